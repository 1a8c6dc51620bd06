// Package model defines shared data structures.
package model

import (
	"fmt"
	"strings"
	"time"
)

// Operation is an arithmetic operation practiced in a stage.
type Operation string

const (
	OpAddition       Operation = "addition"
	OpSubtraction    Operation = "subtraction"
	OpMultiplication Operation = "multiplication"
	OpDivision       Operation = "division"
)

// AllOperations returns every operation in menu order.
func AllOperations() []Operation {
	return []Operation{OpAddition, OpSubtraction, OpMultiplication, OpDivision}
}

// Symbol returns the operator glyph used in question text.
func (o Operation) Symbol() string {
	switch o {
	case OpAddition:
		return "+"
	case OpSubtraction:
		return "-"
	case OpMultiplication:
		return "×"
	case OpDivision:
		return "÷"
	default:
		return "?"
	}
}

// Name returns a display label.
func (o Operation) Name() string {
	switch o {
	case OpAddition:
		return "Addition"
	case OpSubtraction:
		return "Subtraction"
	case OpMultiplication:
		return "Multiplication"
	case OpDivision:
		return "Division"
	default:
		return string(o)
	}
}

// ParseOperation accepts an operation name.
func ParseOperation(s string) (Operation, error) {
	op := Operation(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range AllOperations() {
		if op == known {
			return op, nil
		}
	}
	return "", fmt.Errorf("unknown operation %q", s)
}

// Difficulty is a rally series tier.
type Difficulty string

const (
	DifficultyRookie Difficulty = "rookie"
	DifficultyJunior Difficulty = "junior"
	DifficultyPro    Difficulty = "pro"
)

// AllDifficulties returns the tiers from easiest to hardest.
func AllDifficulties() []Difficulty {
	return []Difficulty{DifficultyRookie, DifficultyJunior, DifficultyPro}
}

// Rank orders difficulties; unknown values rank 0.
func (d Difficulty) Rank() int {
	switch d {
	case DifficultyRookie:
		return 1
	case DifficultyJunior:
		return 2
	case DifficultyPro:
		return 3
	default:
		return 0
	}
}

// SeriesName returns the rally series shown in menus.
func (d Difficulty) SeriesName() string {
	switch d {
	case DifficultyRookie:
		return "Rookie Rally"
	case DifficultyJunior:
		return "Junior Championship"
	case DifficultyPro:
		return "Pro Circuit"
	default:
		return "Unknown Series"
	}
}

// AgeRange returns the target age band of the series.
func (d Difficulty) AgeRange() string {
	switch d {
	case DifficultyRookie:
		return "Ages 5-7"
	case DifficultyJunior:
		return "Ages 7-9"
	case DifficultyPro:
		return "Ages 9-12"
	default:
		return "All ages"
	}
}

// Operations lists the operations available at this difficulty.
func (d Difficulty) Operations() []Operation {
	if d == DifficultyRookie {
		return []Operation{OpAddition, OpSubtraction}
	}
	return AllOperations()
}

// Allows reports whether op can be played at this difficulty.
func (d Difficulty) Allows(op Operation) bool {
	for _, candidate := range d.Operations() {
		if candidate == op {
			return true
		}
	}
	return false
}

// ParseDifficulty accepts a tier name.
func ParseDifficulty(s string) (Difficulty, error) {
	d := Difficulty(strings.ToLower(strings.TrimSpace(s)))
	if d.Rank() == 0 {
		return "", fmt.Errorf("unknown difficulty %q", s)
	}
	return d, nil
}

// PlayerMode selects the kid or parent experience.
type PlayerMode string

const (
	ModeKid    PlayerMode = "kid"
	ModeParent PlayerMode = "parent"
)

// GameConfiguration is the menu selection a stage is played with.
type GameConfiguration struct {
	Operation  Operation
	Difficulty Difficulty
	Mixed      bool
	PlayerMode PlayerMode
}

// Label describes the configuration for summaries.
func (c GameConfiguration) Label() string {
	op := c.Operation.Name()
	if c.Mixed {
		op = "Mixed"
	}
	return fmt.Sprintf("%s · %s", c.Difficulty.SeriesName(), op)
}

// Problem is one arithmetic question.
type Problem struct {
	Operation  Operation
	Difficulty Difficulty
	Left       int
	Right      int
	Answer     int
}

// Question renders the problem as shown to the player.
func (p Problem) Question() string {
	return fmt.Sprintf("%d %s %d = ?", p.Left, p.Operation.Symbol(), p.Right)
}

// StoryProblem is a narrative repair challenge.
type StoryProblem struct {
	Text      string
	Context   string
	Operation Operation
	Answer    int
}

// OperationStats counts answers for a single operation.
type OperationStats struct {
	Answered    int     `json:"answered"`
	Correct     int     `json:"correct"`
	ResponseSum float64 `json:"response_sum"`
}

// Accuracy returns the percentage of correct answers.
func (s OperationStats) Accuracy() float64 {
	return AccuracyPercentage(s.Correct, s.Answered)
}

// Stats is the statistics view achievements are evaluated against.
type Stats struct {
	TotalQuestions      int
	CorrectAnswers      int
	CurrentStreak       int
	BestStreak          int
	AccuracyPct         float64
	AverageResponseTime float64
	StagesCompleted     int
	StagesByDifficulty  map[Difficulty]int
	Comebacks           int
	ByOperation         map[Operation]OperationStats
	PlayTime            time.Duration
}

// SessionRecord archives one completed play session.
type SessionRecord struct {
	ID                   string                       `json:"id"`
	Start                time.Time                    `json:"start"`
	Duration             time.Duration                `json:"duration"`
	Difficulty           Difficulty                   `json:"difficulty"`
	Operation            Operation                    `json:"operation"`
	Mixed                bool                         `json:"mixed"`
	QuestionsAnswered    int                          `json:"questions_answered"`
	CorrectAnswers       int                          `json:"correct_answers"`
	BestStreak           int                          `json:"best_streak"`
	AverageResponseTime  float64                      `json:"average_response_time"`
	StagesCompleted      int                          `json:"stages_completed"`
	StagesByDifficulty   map[Difficulty]int           `json:"stages_by_difficulty,omitempty"`
	Comebacks            int                          `json:"comebacks"`
	Operations           map[Operation]OperationStats `json:"operations,omitempty"`
	AchievementsUnlocked []string                     `json:"achievements_unlocked,omitempty"`
}

// Accuracy returns the session accuracy percentage.
func (r SessionRecord) Accuracy() float64 {
	return AccuracyPercentage(r.CorrectAnswers, r.QuestionsAnswered)
}

// AccuracyPercentage returns correct/total*100, or 0 when total is 0.
func AccuracyPercentage(correct, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(correct) / float64(total) * 100
}
