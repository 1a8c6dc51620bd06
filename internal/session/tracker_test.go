package session

import (
	"math/rand"
	"testing"
	"time"

	"github.com/verte-zerg/mathrally/internal/model"
)

func fixedClock(ts time.Time) func() time.Time {
	return func() time.Time { return ts }
}

func TestStreakProperties(t *testing.T) {
	tr := NewTracker()
	rng := rand.New(rand.NewSource(7))
	prevBest := 0
	prevStreak := 0
	for i := 0; i < 500; i++ {
		correct := rng.Intn(3) != 0
		tr.RecordAnswer(correct, 1)
		st := tr.Stats()
		if !correct && st.CurrentStreak != 0 {
			t.Fatalf("answer %d: streak %d after wrong answer", i, st.CurrentStreak)
		}
		if correct && st.CurrentStreak != prevStreak+1 {
			t.Fatalf("answer %d: streak %d, want %d", i, st.CurrentStreak, prevStreak+1)
		}
		if st.BestStreak < st.CurrentStreak {
			t.Fatalf("answer %d: best %d < current %d", i, st.BestStreak, st.CurrentStreak)
		}
		if st.BestStreak < prevBest {
			t.Fatalf("answer %d: best streak decreased", i)
		}
		prevBest = st.BestStreak
		prevStreak = st.CurrentStreak
	}
}

func TestFiveCorrectInARow(t *testing.T) {
	tr := NewTracker()
	for i := 0; i < 5; i++ {
		tr.RecordAnswer(true, 1.0)
	}
	st := tr.Stats()
	if st.CurrentStreak != 5 || st.BestStreak != 5 {
		t.Fatalf("unexpected streaks: current=%d best=%d", st.CurrentStreak, st.BestStreak)
	}
	if st.AccuracyPct != 100 {
		t.Fatalf("unexpected accuracy %.1f", st.AccuracyPct)
	}
}

func TestResponseTimeFloor(t *testing.T) {
	tr := NewTracker()
	tr.RecordAnswer(true, 0)
	tr.RecordAnswer(true, 0.05)
	if got := tr.Stats().AverageResponseTime; got != MinResponseSeconds {
		t.Fatalf("expected floored average %.2f, got %.2f", MinResponseSeconds, got)
	}
}

func TestEmptySessionAccuracy(t *testing.T) {
	tr := NewTracker()
	st := tr.Stats()
	if st.AccuracyPct != 0 || st.AverageResponseTime != 0 {
		t.Fatalf("expected zero rates for empty session, got %+v", st)
	}
	if tr.Snapshot().Accuracy != 0 {
		t.Fatalf("expected zero snapshot accuracy")
	}
}

func TestComebackCountedOnce(t *testing.T) {
	tr := NewTracker()
	for i := 0; i < 3; i++ {
		tr.RecordAnswer(false, 1)
	}
	for i := 0; i < 6; i++ {
		tr.RecordAnswer(true, 1)
	}
	if got := tr.Stats().Comebacks; got != 1 {
		t.Fatalf("expected one comeback, got %d", got)
	}

	tr.RecordAnswer(false, 1)
	for i := 0; i < 3; i++ {
		tr.RecordAnswer(true, 1)
	}
	// Only one miss in the trailing window now.
	if got := tr.Stats().Comebacks; got != 1 {
		t.Fatalf("expected comeback count to stay at 1, got %d", got)
	}
}

func TestComebackNeedsMisses(t *testing.T) {
	tr := NewTracker()
	tr.RecordAnswer(false, 1)
	tr.RecordAnswer(false, 1)
	for i := 0; i < 5; i++ {
		tr.RecordAnswer(true, 1)
	}
	if got := tr.Stats().Comebacks; got != 0 {
		t.Fatalf("two misses should not count as comeback, got %d", got)
	}
}

func TestRecordOperationAnswer(t *testing.T) {
	tr := NewTracker()
	tr.RecordOperationAnswer(model.OpAddition, true, 2)
	tr.RecordOperationAnswer(model.OpAddition, false, 4)
	tr.RecordOperationAnswer(model.OpDivision, true, 1)
	st := tr.Stats()
	add := st.ByOperation[model.OpAddition]
	if add.Answered != 2 || add.Correct != 1 || add.ResponseSum != 6 {
		t.Fatalf("unexpected addition stats: %+v", add)
	}
	if st.TotalQuestions != 3 || st.CorrectAnswers != 2 {
		t.Fatalf("unexpected totals: %+v", st)
	}
}

func TestCombine(t *testing.T) {
	lifetime := model.Stats{
		TotalQuestions:      100,
		CorrectAnswers:      80,
		BestStreak:          12,
		AccuracyPct:         80,
		AverageResponseTime: 4,
		StagesCompleted:     3,
		StagesByDifficulty:  map[model.Difficulty]int{model.DifficultyRookie: 3},
		Comebacks:           1,
		ByOperation: map[model.Operation]model.OperationStats{
			model.OpAddition: {Answered: 100, Correct: 80},
		},
	}

	tr := NewTracker()
	emptyCombined := tr.CombinedStats(lifetime)
	if emptyCombined.AccuracyPct != 80 || emptyCombined.AverageResponseTime != 4 {
		t.Fatalf("empty session should fall back to lifetime rates: %+v", emptyCombined)
	}

	for i := 0; i < 4; i++ {
		tr.RecordOperationAnswer(model.OpAddition, true, 2)
	}
	tr.RecordStageCompletion(model.DifficultyRookie)
	tr.RecordStageCompletion(model.DifficultyPro)

	c := tr.CombinedStats(lifetime)
	if c.TotalQuestions != 104 || c.CorrectAnswers != 84 {
		t.Fatalf("totals should sum: %+v", c)
	}
	if c.BestStreak != 12 || c.CurrentStreak != 4 {
		t.Fatalf("unexpected streaks: best=%d current=%d", c.BestStreak, c.CurrentStreak)
	}
	if c.AccuracyPct != 100 || c.AverageResponseTime != 2 {
		t.Fatalf("rates should come from session: acc=%.1f avg=%.1f", c.AccuracyPct, c.AverageResponseTime)
	}
	if c.StagesCompleted != 5 || c.StagesByDifficulty[model.DifficultyRookie] != 4 || c.StagesByDifficulty[model.DifficultyPro] != 1 {
		t.Fatalf("unexpected stages: %+v", c.StagesByDifficulty)
	}
	if c.ByOperation[model.OpAddition].Correct != 84 {
		t.Fatalf("unexpected addition correct: %d", c.ByOperation[model.OpAddition].Correct)
	}
	if lifetime.StagesByDifficulty[model.DifficultyRookie] != 3 {
		t.Fatalf("combine must not mutate lifetime maps")
	}
}

func TestRecord(t *testing.T) {
	start := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	tr := NewTracker(WithClock(fixedClock(start)))
	tr.RecordOperationAnswer(model.OpSubtraction, true, 3)
	tr.RecordOperationAnswer(model.OpSubtraction, true, 5)
	cfg := model.GameConfiguration{Operation: model.OpSubtraction, Difficulty: model.DifficultyJunior}
	rec := tr.Record(cfg, start.Add(2*time.Minute), []string{"streak_5"})
	if rec.ID == "" {
		t.Fatalf("expected record id")
	}
	if rec.Duration != 2*time.Minute || !rec.Start.Equal(start) {
		t.Fatalf("unexpected timing: start=%v dur=%v", rec.Start, rec.Duration)
	}
	if rec.QuestionsAnswered != 2 || rec.CorrectAnswers != 2 || rec.AverageResponseTime != 4 {
		t.Fatalf("unexpected record totals: %+v", rec)
	}
	if rec.Difficulty != model.DifficultyJunior || len(rec.AchievementsUnlocked) != 1 {
		t.Fatalf("unexpected record: %+v", rec)
	}
}

func TestReset(t *testing.T) {
	tr := NewTracker()
	tr.RecordAnswer(true, 1)
	tr.RecordStageCompletion(model.DifficultyPro)
	tr.Reset()
	snap := tr.Snapshot()
	if snap != (Snapshot{}) {
		t.Fatalf("expected empty snapshot after reset, got %+v", snap)
	}
}
