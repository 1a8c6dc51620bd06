package profile

import (
	"sort"
	"time"

	"github.com/verte-zerg/mathrally/internal/model"
)

// RecordSession folds rec into the lifetime stats and appends it to the
// capped history.
func (s *Store) RecordSession(p *Profile, rec model.SessionRecord) {
	p.normalize()
	o := &p.OverallStats
	o.TotalQuestions += rec.QuestionsAnswered
	o.CorrectAnswers += rec.CorrectAnswers
	if rec.BestStreak > o.BestStreak {
		o.BestStreak = rec.BestStreak
	}
	o.StagesCompleted += rec.StagesCompleted
	for d, n := range rec.StagesByDifficulty {
		o.StagesByDifficulty[d] += n
	}
	o.Comebacks += rec.Comebacks
	for op, st := range rec.Operations {
		cur := o.ByOperation[op]
		cur.Answered += st.Answered
		cur.Correct += st.Correct
		cur.ResponseSum += st.ResponseSum
		o.ByOperation[op] = cur
	}
	o.SessionsPlayed++
	o.TotalPlayTime += rec.Duration

	p.SessionHistory = append(p.SessionHistory, rec)
	sort.SliceStable(p.SessionHistory, func(i, j int) bool {
		return p.SessionHistory[i].Start.Before(p.SessionHistory[j].Start)
	})
	if extra := len(p.SessionHistory) - MaxSessionHistory; extra > 0 {
		p.SessionHistory = append([]model.SessionRecord(nil), p.SessionHistory[extra:]...)
	}

	o.AverageResponseTime = weightedResponseTime(p.SessionHistory)
	o.FavoriteOperation, o.FavoriteDifficulty = favorites(p.SessionHistory)

	end := rec.Start.Add(rec.Duration)
	if end.After(p.LastPlayedAt) {
		p.LastPlayedAt = end
	}
}

// weightedResponseTime averages session means weighted by answer counts.
func weightedResponseTime(history []model.SessionRecord) float64 {
	sum := 0.0
	answered := 0
	for _, rec := range history {
		if rec.QuestionsAnswered <= 0 {
			continue
		}
		sum += rec.AverageResponseTime * float64(rec.QuestionsAnswered)
		answered += rec.QuestionsAnswered
	}
	if answered == 0 {
		return 0
	}
	return sum / float64(answered)
}

func favorites(history []model.SessionRecord) (model.Operation, model.Difficulty) {
	opCounts := map[model.Operation]int{}
	diffCounts := map[model.Difficulty]int{}
	for _, rec := range history {
		if len(rec.Operations) > 0 {
			for op, st := range rec.Operations {
				opCounts[op] += st.Answered
			}
		} else if rec.Operation != "" {
			opCounts[rec.Operation] += rec.QuestionsAnswered
		}
		if rec.Difficulty != "" {
			diffCounts[rec.Difficulty] += rec.QuestionsAnswered
		}
	}
	var favOp model.Operation
	best := 0
	for _, op := range model.AllOperations() {
		if opCounts[op] > best {
			favOp, best = op, opCounts[op]
		}
	}
	var favDiff model.Difficulty
	best = 0
	for _, d := range model.AllDifficulties() {
		if diffCounts[d] > best {
			favDiff, best = d, diffCounts[d]
		}
	}
	return favOp, favDiff
}

// UpdateAchievementLedger mirrors one achievement's state into the ledger.
// An unlocked entry is never downgraded.
func (s *Store) UpdateAchievementLedger(p *Profile, id string, unlocked bool, progress int) {
	p.normalize()
	l := &p.Achievements
	if l.Unlocked[id] {
		unlocked = true
	}
	if unlocked && !l.Unlocked[id] {
		l.UnlockedAt[id] = s.now()
	}
	if unlocked {
		l.Unlocked[id] = true
	}
	if progress < 0 {
		progress = 0
	}
	if prev, ok := l.Progress[id]; unlocked && ok && prev > progress {
		progress = prev
	}
	l.Progress[id] = progress
	l.recompute(s.points)
}

// UpdateOverallStats replaces the lifetime stats.
func (s *Store) UpdateOverallStats(p *Profile, stats OverallStats) {
	stats.StagesByDifficulty = cloneMap(stats.StagesByDifficulty)
	stats.ByOperation = cloneMap(stats.ByOperation)
	stats.normalize()
	if stats.BestStreak < p.OverallStats.BestStreak {
		stats.BestStreak = p.OverallStats.BestStreak
	}
	p.OverallStats = stats
}

// UpdateRallyProgress records a completed stage for difficulty d.
func (s *Store) UpdateRallyProgress(p *Profile, d model.Difficulty, accuracy float64, elapsed time.Duration) {
	p.normalize()
	sp := p.Rally.Series[d]
	sp.StagesCompleted++
	if accuracy > sp.BestAccuracy {
		sp.BestAccuracy = accuracy
	}
	secs := elapsed.Seconds()
	if secs > 0 && (sp.BestCompletionSeconds == 0 || secs < sp.BestCompletionSeconds) {
		sp.BestCompletionSeconds = secs
	}
	p.Rally.Series[d] = sp
	p.Rally.TotalStages++
	if d.Rank() > p.Rally.HighestDifficulty.Rank() {
		p.Rally.HighestDifficulty = d
	}
}

// UpdateSettings replaces the player's settings.
func (s *Store) UpdateSettings(p *Profile, settings Settings) {
	p.Settings = settings
}

// ResetProfile clears all progress, keeping identity and creation date.
func (s *Store) ResetProfile(p *Profile) {
	fresh := New(p.PlayerName, p.CreatedAt)
	fresh.ID = p.ID
	fresh.LastPlayedAt = s.now()
	*p = *fresh
	if s.catalog != nil {
		s.catalog.Reset()
	}
}

// Touch marks the profile as played now.
func (s *Store) Touch(p *Profile) {
	p.LastPlayedAt = s.now()
}
