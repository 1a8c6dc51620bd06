package achievement

import "github.com/verte-zerg/mathrally/internal/model"

// rule binds an unlock predicate, the metric its progress is driven by, and a
// cheap session-only trigger deciding whether re-evaluation is worthwhile.
type rule struct {
	met       func(d Definition, combined model.Stats) bool
	metric    func(d Definition, combined model.Stats) int
	triggered func(d Definition, session model.Stats, cfg model.GameConfiguration) bool
}

func answeredThisSession(_ Definition, session model.Stats, _ model.GameConfiguration) bool {
	return session.TotalQuestions > 0
}

func totalQuestions(_ Definition, combined model.Stats) int {
	return combined.TotalQuestions
}

var rules = map[RuleKind]rule{
	RuleAccuracy: {
		met: func(d Definition, c model.Stats) bool {
			return c.AccuracyPct >= d.Threshold && c.TotalQuestions >= d.Target
		},
		metric:    totalQuestions,
		triggered: answeredThisSession,
	},
	RuleStreak: {
		met: func(d Definition, c model.Stats) bool {
			return c.BestStreak >= d.Target
		},
		metric: func(_ Definition, c model.Stats) int {
			return c.BestStreak
		},
		triggered: func(_ Definition, s model.Stats, _ model.GameConfiguration) bool {
			return s.BestStreak > 0
		},
	},
	RuleSpeed: {
		met: func(d Definition, c model.Stats) bool {
			return c.AverageResponseTime > 0 && c.AverageResponseTime <= d.MaxSeconds && c.TotalQuestions >= d.Target
		},
		metric:    totalQuestions,
		triggered: answeredThisSession,
	},
	RuleQuestions: {
		met: func(d Definition, c model.Stats) bool {
			return c.TotalQuestions >= d.Target
		},
		metric:    totalQuestions,
		triggered: answeredThisSession,
	},
	RuleSeriesStage: {
		met: func(d Definition, c model.Stats) bool {
			return c.StagesByDifficulty[d.Series] >= d.Target
		},
		metric: func(d Definition, c model.Stats) int {
			return c.StagesByDifficulty[d.Series]
		},
		triggered: func(d Definition, s model.Stats, _ model.GameConfiguration) bool {
			return s.StagesByDifficulty[d.Series] > 0
		},
	},
	RuleComebacks: {
		met: func(d Definition, c model.Stats) bool {
			return c.Comebacks >= d.Target
		},
		metric: func(_ Definition, c model.Stats) int {
			return c.Comebacks
		},
		triggered: func(_ Definition, s model.Stats, _ model.GameConfiguration) bool {
			return s.Comebacks > 0
		},
	},
	RuleOperationCorrect: {
		met: func(d Definition, c model.Stats) bool {
			return c.ByOperation[d.Operation].Correct >= d.Target
		},
		metric: func(d Definition, c model.Stats) int {
			return c.ByOperation[d.Operation].Correct
		},
		triggered: func(d Definition, s model.Stats, cfg model.GameConfiguration) bool {
			if !cfg.Mixed && cfg.Operation != d.Operation {
				return false
			}
			return s.ByOperation[d.Operation].Correct > 0
		},
	},
	RuleStages: {
		met: func(d Definition, c model.Stats) bool {
			return c.StagesCompleted >= d.Target
		},
		metric: func(_ Definition, c model.Stats) int {
			return c.StagesCompleted
		},
		triggered: func(_ Definition, s model.Stats, _ model.GameConfiguration) bool {
			return s.StagesCompleted > 0
		},
	},
}
