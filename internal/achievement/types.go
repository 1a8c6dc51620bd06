// Package achievement holds the achievement catalog and its evaluator.
package achievement

import (
	"fmt"
	"time"

	"github.com/verte-zerg/mathrally/internal/model"
)

// Category groups achievements in the gallery.
type Category string

const (
	CategoryAccuracy    Category = "accuracy"
	CategoryStreak      Category = "streak"
	CategorySpeed       Category = "speed"
	CategoryEndurance   Category = "endurance"
	CategorySeries      Category = "series"
	CategoryMastery     Category = "mastery"
	CategoryComeback    Category = "comeback"
	CategoryConsistency Category = "consistency"
)

// AllCategories returns categories in gallery order.
func AllCategories() []Category {
	return []Category{
		CategoryAccuracy, CategoryStreak, CategorySpeed, CategoryEndurance,
		CategorySeries, CategoryMastery, CategoryComeback, CategoryConsistency,
	}
}

// Title returns the gallery heading for the category.
func (c Category) Title() string {
	switch c {
	case CategoryAccuracy:
		return "🎯 ACCURACY MASTERS"
	case CategoryStreak:
		return "🔥 STREAK LEGENDS"
	case CategorySpeed:
		return "⚡ SPEED DEMONS"
	case CategoryEndurance:
		return "💪 ENDURANCE CHAMPIONS"
	case CategorySeries:
		return "🏁 RALLY GRADUATES"
	case CategoryMastery:
		return "🧠 MATH MASTERS"
	case CategoryComeback:
		return "💥 COMEBACK HEROES"
	case CategoryConsistency:
		return "📈 CONSISTENCY KINGS"
	default:
		return "🏆 MISCELLANEOUS"
	}
}

func (c Category) valid() bool {
	for _, known := range AllCategories() {
		if c == known {
			return true
		}
	}
	return false
}

// Rarity is the difficulty tier of an achievement.
type Rarity string

const (
	RarityCommon    Rarity = "common"
	RarityUncommon  Rarity = "uncommon"
	RarityRare      Rarity = "rare"
	RarityEpic      Rarity = "epic"
	RarityLegendary Rarity = "legendary"
)

// AllRarities returns all rarities from lowest to highest.
func AllRarities() []Rarity {
	return []Rarity{RarityCommon, RarityUncommon, RarityRare, RarityEpic, RarityLegendary}
}

// DisplayName returns the medal name shown for the rarity.
func (r Rarity) DisplayName() string {
	switch r {
	case RarityCommon:
		return "Bronze"
	case RarityUncommon:
		return "Silver"
	case RarityRare:
		return "Gold"
	case RarityEpic:
		return "Platinum"
	case RarityLegendary:
		return "Diamond"
	default:
		return string(r)
	}
}

// Rank orders rarities; unknown values rank 0.
func (r Rarity) Rank() int {
	for i, known := range AllRarities() {
		if r == known {
			return i + 1
		}
	}
	return 0
}

// RuleKind selects the predicate an achievement is unlocked by.
type RuleKind string

const (
	RuleAccuracy         RuleKind = "accuracy"
	RuleStreak           RuleKind = "streak"
	RuleSpeed            RuleKind = "speed"
	RuleQuestions        RuleKind = "questions"
	RuleSeriesStage      RuleKind = "series_stage"
	RuleComebacks        RuleKind = "comebacks"
	RuleOperationCorrect RuleKind = "operation_correct"
	RuleStages           RuleKind = "stages"
)

// Definition is the immutable part of an achievement.
type Definition struct {
	ID          string           `toml:"id"`
	Title       string           `toml:"title"`
	Description string           `toml:"description"`
	Icon        string           `toml:"icon"`
	Category    Category         `toml:"category"`
	Rarity      Rarity           `toml:"rarity"`
	Points      int              `toml:"points"`
	Target      int              `toml:"target"`
	Rule        RuleKind         `toml:"rule"`
	Series      model.Difficulty `toml:"series"`
	Operation   model.Operation  `toml:"operation"`
	Threshold   float64          `toml:"threshold"`
	MaxSeconds  float64          `toml:"max_seconds"`
}

// Achievement is a definition plus its runtime state.
type Achievement struct {
	Definition
	Unlocked   bool
	UnlockedAt time.Time
	Progress   int
}

// Fraction returns progress toward the target in [0,1].
func (a Achievement) Fraction() float64 {
	if a.Unlocked {
		return 1
	}
	if a.Target <= 0 {
		return 0
	}
	return float64(a.Progress) / float64(a.Target)
}

// ProgressString renders progress for the gallery, e.g. "7/10".
func (a Achievement) ProgressString() string {
	if a.Unlocked {
		return "UNLOCKED"
	}
	return fmt.Sprintf("%d/%d", a.Progress, a.Target)
}
