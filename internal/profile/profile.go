// Package profile persists player profiles as JSON documents.
package profile

import (
	"time"

	"github.com/verte-zerg/mathrally/internal/model"
)

const (
	// FormatVersion is the document schema version written by Save.
	FormatVersion = 1
	// MaxSessionHistory caps the archived session records per profile.
	MaxSessionHistory = 100
	// DefaultPlayerName is used when no name is given.
	DefaultPlayerName = "Young Racer"
)

// Profile is the durable player record.
type Profile struct {
	ID             string                `json:"-"`
	Version        int                   `json:"format_version"`
	PlayerName     string                `json:"player_name"`
	CreatedAt      time.Time             `json:"created_at"`
	LastPlayedAt   time.Time             `json:"last_played_at"`
	Settings       Settings              `json:"settings"`
	Achievements   Ledger                `json:"achievements"`
	OverallStats   OverallStats          `json:"overall_stats"`
	Rally          RallyProgress         `json:"rally_progress"`
	SessionHistory []model.SessionRecord `json:"session_history"`
}

// Settings holds player preferences.
type Settings struct {
	SoundVolume                  float64          `json:"sound_volume"`
	MusicVolume                  float64          `json:"music_volume"`
	ShowHints                    bool             `json:"show_hints"`
	ShowAchievementNotifications bool             `json:"show_achievement_notifications"`
	PreferredDifficulty          model.Difficulty `json:"preferred_difficulty"`
	PreferredOperation           model.Operation  `json:"preferred_operation"`
	PreferMixedMode              bool             `json:"prefer_mixed_mode"`
	Theme                        string           `json:"theme"`
	AutoSave                     bool             `json:"auto_save"`
	ShowDetailedStats            bool             `json:"show_detailed_stats"`
}

// DefaultSettings returns the settings of a fresh profile.
func DefaultSettings() Settings {
	return Settings{
		SoundVolume:                  0.7,
		MusicVolume:                  0.5,
		ShowHints:                    true,
		ShowAchievementNotifications: true,
		PreferredDifficulty:          model.DifficultyJunior,
		PreferredOperation:           model.OpAddition,
		Theme:                        "Rally",
		AutoSave:                     true,
		ShowDetailedStats:            true,
	}
}

// Ledger is the persisted shadow of the achievement catalog state.
type Ledger struct {
	Unlocked    map[string]bool      `json:"unlocked"`
	Progress    map[string]int       `json:"progress"`
	UnlockedAt  map[string]time.Time `json:"unlocked_at"`
	TotalPoints int                  `json:"total_points"`
}

func newLedger() Ledger {
	return Ledger{
		Unlocked:   map[string]bool{},
		Progress:   map[string]int{},
		UnlockedAt: map[string]time.Time{},
	}
}

// UnlockedCount returns the number of unlocked achievements.
func (l Ledger) UnlockedCount() int {
	n := 0
	for _, ok := range l.Unlocked {
		if ok {
			n++
		}
	}
	return n
}

// recompute derives TotalPoints from points. Without a lookup the stored
// total is kept.
func (l *Ledger) recompute(points func(string) int) {
	if points == nil {
		return
	}
	total := 0
	for id, ok := range l.Unlocked {
		if ok {
			total += points(id)
		}
	}
	l.TotalPoints = total
}

// OverallStats are lifetime totals. They are never reset by a session.
type OverallStats struct {
	TotalQuestions      int                                      `json:"total_questions"`
	CorrectAnswers      int                                      `json:"correct_answers"`
	BestStreak          int                                      `json:"best_streak"`
	AverageResponseTime float64                                  `json:"average_response_time"`
	StagesCompleted     int                                      `json:"stages_completed"`
	StagesByDifficulty  map[model.Difficulty]int                 `json:"stages_by_difficulty"`
	Comebacks           int                                      `json:"comebacks"`
	ByOperation         map[model.Operation]model.OperationStats `json:"by_operation"`
	SessionsPlayed      int                                      `json:"sessions_played"`
	TotalPlayTime       time.Duration                            `json:"total_play_time"`
	FavoriteOperation   model.Operation                          `json:"favorite_operation,omitempty"`
	FavoriteDifficulty  model.Difficulty                         `json:"favorite_difficulty,omitempty"`
}

// Accuracy returns lifetime accuracy.
func (o OverallStats) Accuracy() float64 {
	return model.AccuracyPercentage(o.CorrectAnswers, o.TotalQuestions)
}

func (o *OverallStats) normalize() {
	if o.StagesByDifficulty == nil {
		o.StagesByDifficulty = map[model.Difficulty]int{}
	}
	if o.ByOperation == nil {
		o.ByOperation = map[model.Operation]model.OperationStats{}
	}
}

// SeriesProgress is the rally record for one difficulty.
type SeriesProgress struct {
	StagesCompleted       int     `json:"stages_completed"`
	BestAccuracy          float64 `json:"best_accuracy"`
	BestCompletionSeconds float64 `json:"best_completion_seconds"`
}

// RallyProgress tracks stage results per difficulty.
type RallyProgress struct {
	Series            map[model.Difficulty]SeriesProgress `json:"series"`
	HighestDifficulty model.Difficulty                    `json:"highest_difficulty,omitempty"`
	TotalStages       int                                 `json:"total_stages"`
}

// New returns a fresh profile for name.
func New(name string, now time.Time) *Profile {
	return &Profile{
		Version:      FormatVersion,
		PlayerName:   name,
		CreatedAt:    now,
		LastPlayedAt: now,
		Settings:     DefaultSettings(),
		Achievements: newLedger(),
		OverallStats: OverallStats{
			StagesByDifficulty: map[model.Difficulty]int{},
			ByOperation:        map[model.Operation]model.OperationStats{},
		},
		Rally: RallyProgress{Series: map[model.Difficulty]SeriesProgress{}},
	}
}

// normalize fills maps a decoded document may lack.
func (p *Profile) normalize() {
	if p.Achievements.Unlocked == nil {
		p.Achievements.Unlocked = map[string]bool{}
	}
	if p.Achievements.Progress == nil {
		p.Achievements.Progress = map[string]int{}
	}
	if p.Achievements.UnlockedAt == nil {
		p.Achievements.UnlockedAt = map[string]time.Time{}
	}
	p.OverallStats.normalize()
	if p.Rally.Series == nil {
		p.Rally.Series = map[model.Difficulty]SeriesProgress{}
	}
}

// Lifetime converts the overall stats into the view achievements evaluate.
func (p *Profile) Lifetime() model.Stats {
	o := p.OverallStats
	st := model.Stats{
		TotalQuestions:      o.TotalQuestions,
		CorrectAnswers:      o.CorrectAnswers,
		BestStreak:          o.BestStreak,
		AccuracyPct:         o.Accuracy(),
		AverageResponseTime: o.AverageResponseTime,
		StagesCompleted:     o.StagesCompleted,
		StagesByDifficulty:  make(map[model.Difficulty]int, len(o.StagesByDifficulty)),
		Comebacks:           o.Comebacks,
		ByOperation:         make(map[model.Operation]model.OperationStats, len(o.ByOperation)),
		PlayTime:            o.TotalPlayTime,
	}
	for k, v := range o.StagesByDifficulty {
		st.StagesByDifficulty[k] = v
	}
	for k, v := range o.ByOperation {
		st.ByOperation[k] = v
	}
	return st
}

// Clone returns a deep copy safe to hand to another goroutine.
func (p *Profile) Clone() *Profile {
	c := *p
	c.Achievements = Ledger{
		Unlocked:    cloneMap(p.Achievements.Unlocked),
		Progress:    cloneMap(p.Achievements.Progress),
		UnlockedAt:  cloneMap(p.Achievements.UnlockedAt),
		TotalPoints: p.Achievements.TotalPoints,
	}
	c.OverallStats.StagesByDifficulty = cloneMap(p.OverallStats.StagesByDifficulty)
	c.OverallStats.ByOperation = cloneMap(p.OverallStats.ByOperation)
	c.Rally.Series = cloneMap(p.Rally.Series)
	if p.SessionHistory != nil {
		c.SessionHistory = make([]model.SessionRecord, len(p.SessionHistory))
		for i, rec := range p.SessionHistory {
			rec.StagesByDifficulty = cloneMap(rec.StagesByDifficulty)
			rec.Operations = cloneMap(rec.Operations)
			rec.AchievementsUnlocked = append([]string(nil), rec.AchievementsUnlocked...)
			c.SessionHistory[i] = rec
		}
	}
	return &c
}

func cloneMap[K comparable, V any](in map[K]V) map[K]V {
	if in == nil {
		return nil
	}
	out := make(map[K]V, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
