// Package session accumulates statistics for the running play session.
package session

import (
	"time"

	"github.com/google/uuid"

	"github.com/verte-zerg/mathrally/internal/model"
)

const (
	// MinResponseSeconds floors recorded response times.
	MinResponseSeconds = 0.1
	comebackWindow     = 10
	comebackMisses     = 3
	comebackStreak     = 3
)

// Snapshot is the live HUD view of the session.
type Snapshot struct {
	Accuracy        float64
	Streak          int
	BestStreak      int
	StagesCompleted int
	Comebacks       int
}

// Tracker accumulates answers for one session. It is not safe for concurrent use.
type Tracker struct {
	now func() time.Time

	start        time.Time
	history      []bool
	responseSum  float64
	total        int
	correct      int
	streak       int
	bestStreak   int
	stages       int
	stagesByDiff map[model.Difficulty]int
	comebacks    int
	awaiting     bool
	byOp         map[model.Operation]model.OperationStats
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) {
		if now != nil {
			t.now = now
		}
	}
}

// NewTracker starts a session at the current time.
func NewTracker(opts ...Option) *Tracker {
	t := &Tracker{now: time.Now}
	for _, opt := range opts {
		opt(t)
	}
	t.Reset()
	return t
}

// Reset discards all session data and restarts the clock.
func (t *Tracker) Reset() {
	t.start = t.now()
	t.history = nil
	t.responseSum = 0
	t.total = 0
	t.correct = 0
	t.streak = 0
	t.bestStreak = 0
	t.stages = 0
	t.stagesByDiff = map[model.Difficulty]int{}
	t.comebacks = 0
	t.awaiting = false
	t.byOp = map[model.Operation]model.OperationStats{}
}

// Start returns the session start time.
func (t *Tracker) Start() time.Time {
	return t.start
}

// RecordAnswer records one answer outcome.
func (t *Tracker) RecordAnswer(correct bool, seconds float64) {
	if seconds < MinResponseSeconds {
		seconds = MinResponseSeconds
	}
	t.history = append(t.history, correct)
	t.responseSum += seconds
	t.total++
	if !correct {
		t.streak = 0
		t.awaiting = true
		return
	}
	t.correct++
	t.streak++
	if t.streak > t.bestStreak {
		t.bestStreak = t.streak
	}
	if t.awaiting && t.streak >= comebackStreak && t.recentMisses() >= comebackMisses {
		t.comebacks++
		t.awaiting = false
	}
}

// RecordOperationAnswer records an answer and attributes it to op.
func (t *Tracker) RecordOperationAnswer(op model.Operation, correct bool, seconds float64) {
	t.RecordAnswer(correct, seconds)
	if seconds < MinResponseSeconds {
		seconds = MinResponseSeconds
	}
	st := t.byOp[op]
	st.Answered++
	if correct {
		st.Correct++
	}
	st.ResponseSum += seconds
	t.byOp[op] = st
}

// RecordStageCompletion counts a finished stage.
func (t *Tracker) RecordStageCompletion(d model.Difficulty) {
	t.stages++
	t.stagesByDiff[d]++
}

func (t *Tracker) recentMisses() int {
	from := len(t.history) - comebackWindow
	if from < 0 {
		from = 0
	}
	misses := 0
	for _, ok := range t.history[from:] {
		if !ok {
			misses++
		}
	}
	return misses
}

// Stats returns the session-only statistics.
func (t *Tracker) Stats() model.Stats {
	avg := 0.0
	if t.total > 0 {
		avg = t.responseSum / float64(t.total)
	}
	return model.Stats{
		TotalQuestions:      t.total,
		CorrectAnswers:      t.correct,
		CurrentStreak:       t.streak,
		BestStreak:          t.bestStreak,
		AccuracyPct:         model.AccuracyPercentage(t.correct, t.total),
		AverageResponseTime: avg,
		StagesCompleted:     t.stages,
		StagesByDifficulty:  copyDifficulties(t.stagesByDiff),
		Comebacks:           t.comebacks,
		ByOperation:         copyOperations(t.byOp),
		PlayTime:            t.now().Sub(t.start),
	}
}

// CombinedStats merges the session with lifetime statistics.
func (t *Tracker) CombinedStats(lifetime model.Stats) model.Stats {
	return Combine(t.Stats(), lifetime)
}

// Snapshot returns the HUD view.
func (t *Tracker) Snapshot() Snapshot {
	return Snapshot{
		Accuracy:        model.AccuracyPercentage(t.correct, t.total),
		Streak:          t.streak,
		BestStreak:      t.bestStreak,
		StagesCompleted: t.stages,
		Comebacks:       t.comebacks,
	}
}

// Record builds the archival summary of the session ending at end.
func (t *Tracker) Record(cfg model.GameConfiguration, end time.Time, unlocked []string) model.SessionRecord {
	st := t.Stats()
	dur := end.Sub(t.start)
	if dur < 0 {
		dur = 0
	}
	return model.SessionRecord{
		ID:                   uuid.NewString(),
		Start:                t.start,
		Duration:             dur,
		Difficulty:           cfg.Difficulty,
		Operation:            cfg.Operation,
		Mixed:                cfg.Mixed,
		QuestionsAnswered:    st.TotalQuestions,
		CorrectAnswers:       st.CorrectAnswers,
		BestStreak:           st.BestStreak,
		AverageResponseTime:  st.AverageResponseTime,
		StagesCompleted:      st.StagesCompleted,
		StagesByDifficulty:   st.StagesByDifficulty,
		Comebacks:            st.Comebacks,
		Operations:           st.ByOperation,
		AchievementsUnlocked: append([]string(nil), unlocked...),
	}
}

// Combine merges session statistics with lifetime statistics. Totals sum,
// maxima take the max, and rates come from the session when it has answers.
func Combine(session, lifetime model.Stats) model.Stats {
	out := model.Stats{
		TotalQuestions:     session.TotalQuestions + lifetime.TotalQuestions,
		CorrectAnswers:     session.CorrectAnswers + lifetime.CorrectAnswers,
		CurrentStreak:      session.CurrentStreak,
		BestStreak:         max(session.BestStreak, lifetime.BestStreak),
		StagesCompleted:    session.StagesCompleted + lifetime.StagesCompleted,
		StagesByDifficulty: copyDifficulties(lifetime.StagesByDifficulty),
		Comebacks:          session.Comebacks + lifetime.Comebacks,
		ByOperation:        copyOperations(lifetime.ByOperation),
		PlayTime:           session.PlayTime + lifetime.PlayTime,
	}
	if session.TotalQuestions > 0 {
		out.AccuracyPct = session.AccuracyPct
		out.AverageResponseTime = session.AverageResponseTime
	} else {
		out.AccuracyPct = lifetime.AccuracyPct
		out.AverageResponseTime = lifetime.AverageResponseTime
	}
	for d, n := range session.StagesByDifficulty {
		out.StagesByDifficulty[d] += n
	}
	for op, st := range session.ByOperation {
		cur := out.ByOperation[op]
		cur.Answered += st.Answered
		cur.Correct += st.Correct
		cur.ResponseSum += st.ResponseSum
		out.ByOperation[op] = cur
	}
	return out
}

func copyDifficulties(in map[model.Difficulty]int) map[model.Difficulty]int {
	out := make(map[model.Difficulty]int, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func copyOperations(in map[model.Operation]model.OperationStats) map[model.Operation]model.OperationStats {
	out := make(map[model.Operation]model.OperationStats, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
