package profile

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/verte-zerg/mathrally/internal/model"
)

var testPoints = map[string]int{"streak_5": 25, "champion": 1000, "comeback_kid": 75}

func openStore(t *testing.T) *Store {
	t.Helper()
	clock := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	s, err := Open(t.TempDir(),
		WithClock(func() time.Time { return clock }),
		WithPoints(func(id string) int { return testPoints[id] }),
	)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	return s
}

func sampleRecord(start time.Time, answered, correct int, avg float64) model.SessionRecord {
	return model.SessionRecord{
		ID:                  start.Format(time.RFC3339Nano),
		Start:               start,
		Duration:            5 * time.Minute,
		Difficulty:          model.DifficultyJunior,
		Operation:           model.OpAddition,
		QuestionsAnswered:   answered,
		CorrectAnswers:      correct,
		BestStreak:          correct,
		AverageResponseTime: avg,
		StagesCompleted:     1,
		StagesByDifficulty:  map[model.Difficulty]int{model.DifficultyJunior: 1},
		Operations: map[model.Operation]model.OperationStats{
			model.OpAddition: {Answered: answered, Correct: correct, ResponseSum: avg * float64(answered)},
		},
	}
}

func TestRoundTrip(t *testing.T) {
	s := openStore(t)
	p := s.LoadOrCreate("Ada Lovelace")
	if p.ID != "ada-lovelace" {
		t.Fatalf("unexpected id %q", p.ID)
	}
	s.RecordSession(p, sampleRecord(time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC), 20, 18, 2.5))
	s.UpdateAchievementLedger(p, "streak_5", true, 5)
	s.UpdateAchievementLedger(p, "champion", false, 20)
	p.Settings.Theme = "Desert"
	if err := s.Save(p); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded := s.LoadOrCreate("ada lovelace")
	if loaded.ID != p.ID {
		t.Fatalf("expected same id, got %q", loaded.ID)
	}
	if !reflect.DeepEqual(loaded.Settings, p.Settings) {
		t.Fatalf("settings mismatch: %+v vs %+v", loaded.Settings, p.Settings)
	}
	if loaded.Achievements.TotalPoints != 25 || !loaded.Achievements.Unlocked["streak_5"] {
		t.Fatalf("ledger mismatch: %+v", loaded.Achievements)
	}
	if loaded.Achievements.Progress["champion"] != 20 {
		t.Fatalf("progress not persisted: %+v", loaded.Achievements.Progress)
	}
	if !reflect.DeepEqual(loaded.OverallStats, p.OverallStats) {
		t.Fatalf("overall stats mismatch:\n%+v\n%+v", loaded.OverallStats, p.OverallStats)
	}
	if len(loaded.SessionHistory) != 1 {
		t.Fatalf("expected 1 session record, got %d", len(loaded.SessionHistory))
	}
}

func TestMissingProfileIsFresh(t *testing.T) {
	s := openStore(t)
	p := s.LoadOrCreate("")
	if p.PlayerName != DefaultPlayerName {
		t.Fatalf("expected default name, got %q", p.PlayerName)
	}
	if p.OverallStats.TotalQuestions != 0 || p.Settings != DefaultSettings() {
		t.Fatalf("expected default profile, got %+v", p)
	}
}

func TestCorruptProfileIsQuarantined(t *testing.T) {
	s := openStore(t)
	path := filepath.Join(s.Dir(), "speedy.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write corrupt: %v", err)
	}
	p := s.LoadOrCreate("Speedy")
	if p.ID != "speedy" || p.OverallStats.TotalQuestions != 0 {
		t.Fatalf("expected fresh profile at same id, got %+v", p)
	}
	if _, err := os.Stat(path + ".corrupt"); err != nil {
		t.Fatalf("expected quarantined file: %v", err)
	}
	if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected corrupt file moved away, got %v", err)
	}
}

func TestVersionMismatchIsFresh(t *testing.T) {
	s := openStore(t)
	doc := `{"format_version": 99, "player_name": "Old", "overall_stats": {"total_questions": 40}}`
	if err := os.WriteFile(filepath.Join(s.Dir(), "old.json"), []byte(doc), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	p := s.LoadOrCreate("Old")
	if p.OverallStats.TotalQuestions != 0 {
		t.Fatalf("expected fresh stats, got %d", p.OverallStats.TotalQuestions)
	}
}

func TestFilenameCollisions(t *testing.T) {
	s := openStore(t)
	first := s.LoadOrCreate("Max!")
	if err := s.Save(first); err != nil {
		t.Fatalf("save: %v", err)
	}
	if first.ID != "max" {
		t.Fatalf("unexpected stem %q", first.ID)
	}
	same := s.LoadOrCreate("MAX!")
	if same.ID != first.ID {
		t.Fatalf("case-insensitive name should reuse profile, got %q", same.ID)
	}
	second := s.LoadOrCreate("max?")
	if second.ID != "max-2" {
		t.Fatalf("expected suffixed stem max-2, got %q", second.ID)
	}
	if err := s.Save(second); err != nil {
		t.Fatalf("save: %v", err)
	}
	third := s.LoadOrCreate("Max 2")
	if third.ID != "max-2-2" {
		t.Fatalf("expected suffixed stem max-2-2, got %q", third.ID)
	}
}

func TestUniqueStemSuffix(t *testing.T) {
	s := openStore(t)
	a := New("Zoë", time.Now())
	s.AssignID(a)
	if err := s.Save(a); err != nil {
		t.Fatalf("save: %v", err)
	}
	b := s.LoadOrCreate("Zoé")
	if b.ID != "zo-2" {
		t.Fatalf("expected suffixed stem zo-2, got %q", b.ID)
	}
}

func TestSlugifyName(t *testing.T) {
	tests := map[string]string{
		"  Ada  ":       "ada",
		"../etc/passwd": "etc-passwd",
		"":              fallbackStem,
		"!!!":           fallbackStem,
		"Kid 42":        "kid-42",
		"CON":           "con-racer",
		"nul":           "nul-racer",
		"Lpt1":          "lpt1-racer",
		"com10":         "com10",
	}
	for in, want := range tests {
		if got := slugifyName(in); got != want {
			t.Fatalf("slugifyName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestRecordSessionCapsHistory(t *testing.T) {
	s := openStore(t)
	p := s.LoadOrCreate("Capped")
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := MaxSessionHistory + 4; i >= 0; i-- {
		s.RecordSession(p, sampleRecord(base.Add(time.Duration(i)*time.Hour), 10, 9, 2))
	}
	if len(p.SessionHistory) != MaxSessionHistory {
		t.Fatalf("expected %d records, got %d", MaxSessionHistory, len(p.SessionHistory))
	}
	if !p.SessionHistory[0].Start.Equal(base.Add(5 * time.Hour)) {
		t.Fatalf("expected oldest records dropped, first start %v", p.SessionHistory[0].Start)
	}
	if p.OverallStats.TotalQuestions != 10*(MaxSessionHistory+5) {
		t.Fatalf("totals should keep summing, got %d", p.OverallStats.TotalQuestions)
	}
	if p.OverallStats.SessionsPlayed != MaxSessionHistory+5 {
		t.Fatalf("unexpected sessions played %d", p.OverallStats.SessionsPlayed)
	}
}

func TestRecordSessionWeightedAverage(t *testing.T) {
	s := openStore(t)
	p := s.LoadOrCreate("Weighted")
	start := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	s.RecordSession(p, sampleRecord(start, 30, 30, 2))
	rec := sampleRecord(start.Add(time.Hour), 10, 5, 6)
	rec.BestStreak = 3
	s.RecordSession(p, rec)
	if got := p.OverallStats.AverageResponseTime; got != 3 {
		t.Fatalf("expected weighted average 3, got %.2f", got)
	}
	if p.OverallStats.BestStreak != 30 {
		t.Fatalf("best streak should be max, got %d", p.OverallStats.BestStreak)
	}
	if p.OverallStats.FavoriteOperation != model.OpAddition || p.OverallStats.FavoriteDifficulty != model.DifficultyJunior {
		t.Fatalf("unexpected favorites: %+v", p.OverallStats)
	}
	if p.OverallStats.StagesByDifficulty[model.DifficultyJunior] != 2 {
		t.Fatalf("unexpected stages by difficulty")
	}
}

func TestLedgerNeverDowngrades(t *testing.T) {
	s := openStore(t)
	p := s.LoadOrCreate("Ledger")
	s.UpdateAchievementLedger(p, "streak_5", true, 5)
	at := p.Achievements.UnlockedAt["streak_5"]
	s.UpdateAchievementLedger(p, "streak_5", false, 2)
	if !p.Achievements.Unlocked["streak_5"] || p.Achievements.Progress["streak_5"] != 5 {
		t.Fatalf("ledger downgraded: %+v", p.Achievements)
	}
	if !p.Achievements.UnlockedAt["streak_5"].Equal(at) {
		t.Fatalf("unlock time changed")
	}
	s.UpdateAchievementLedger(p, "comeback_kid", true, 1)
	if p.Achievements.TotalPoints != 100 {
		t.Fatalf("expected 100 points, got %d", p.Achievements.TotalPoints)
	}
}

func TestRallyProgress(t *testing.T) {
	s := openStore(t)
	p := s.LoadOrCreate("Rally")
	s.UpdateRallyProgress(p, model.DifficultyJunior, 80, 90*time.Second)
	s.UpdateRallyProgress(p, model.DifficultyJunior, 95, 120*time.Second)
	s.UpdateRallyProgress(p, model.DifficultyRookie, 100, 60*time.Second)
	jr := p.Rally.Series[model.DifficultyJunior]
	if jr.StagesCompleted != 2 || jr.BestAccuracy != 95 || jr.BestCompletionSeconds != 90 {
		t.Fatalf("unexpected junior progress: %+v", jr)
	}
	if p.Rally.HighestDifficulty != model.DifficultyJunior || p.Rally.TotalStages != 3 {
		t.Fatalf("unexpected rally: %+v", p.Rally)
	}
}

func TestResetProfileKeepsIdentity(t *testing.T) {
	s := openStore(t)
	p := s.LoadOrCreate("Resetter")
	created := p.CreatedAt
	s.RecordSession(p, sampleRecord(time.Now(), 10, 10, 1))
	s.UpdateAchievementLedger(p, "streak_5", true, 5)
	s.ResetProfile(p)
	if p.PlayerName != "Resetter" || p.ID != "resetter" || !p.CreatedAt.Equal(created) {
		t.Fatalf("identity lost: %+v", p)
	}
	if p.OverallStats.TotalQuestions != 0 || len(p.Achievements.Unlocked) != 0 || len(p.SessionHistory) != 0 {
		t.Fatalf("progress not cleared")
	}
}

type fakeCatalog struct {
	resets int
}

func (c *fakeCatalog) Points(id string) int { return testPoints[id] }

func (c *fakeCatalog) Reset() { c.resets++ }

func TestResetProfileResetsBoundCatalog(t *testing.T) {
	catalog := &fakeCatalog{}
	s, err := Open(t.TempDir(), WithCatalog(catalog))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	p := s.LoadOrCreate("Resetter")
	s.UpdateAchievementLedger(p, "champion", true, 20)
	if p.Achievements.TotalPoints != 1000 {
		t.Fatalf("catalog points not used: %d", p.Achievements.TotalPoints)
	}
	s.ResetProfile(p)
	if catalog.resets != 1 {
		t.Fatalf("expected catalog reset once, got %d", catalog.resets)
	}
	if p.Achievements.TotalPoints != 0 {
		t.Fatalf("points survived reset: %d", p.Achievements.TotalPoints)
	}
}

func TestSummariesWithoutPointsKeepStoredTotal(t *testing.T) {
	s := openStore(t)
	p := s.LoadOrCreate("Champ")
	s.UpdateAchievementLedger(p, "champion", true, 20)
	if err := s.Save(p); err != nil {
		t.Fatalf("save: %v", err)
	}

	plain, err := Open(s.Dir())
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	sums, err := plain.Summaries()
	if err != nil {
		t.Fatalf("summaries: %v", err)
	}
	if len(sums) != 1 || sums[0].TotalPoints != 1000 || sums[0].Unlocked != 1 {
		t.Fatalf("unexpected summaries %+v", sums)
	}
	if got := plain.LoadOrCreate("Champ").Achievements.TotalPoints; got != 1000 {
		t.Fatalf("loaded total = %d, want 1000", got)
	}
}

func TestDeleteListSuggest(t *testing.T) {
	s := openStore(t)
	for _, name := range []string{"Bella", "Charlie"} {
		if err := s.Save(s.LoadOrCreate(name)); err != nil {
			t.Fatalf("save %s: %v", name, err)
		}
	}
	names, err := s.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !reflect.DeepEqual(names, []string{"Bella", "Charlie"}) {
		t.Fatalf("unexpected names %v", names)
	}
	if got, ok := s.Suggest("Charly"); !ok || got != "Charlie" {
		t.Fatalf("expected suggestion Charlie, got %q %v", got, ok)
	}
	if _, ok := s.Suggest("Zebediah"); ok {
		t.Fatalf("unexpected suggestion for distant name")
	}
	if sum, err := s.Find(" charlie "); err != nil || sum.PlayerName != "Charlie" {
		t.Fatalf("find charlie: %+v %v", sum, err)
	}
	if _, err := s.Find("Charly"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for near miss, got %v", err)
	}
	if err := s.Delete("bella"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.Delete("bella"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	names, _ = s.List()
	if len(names) != 1 {
		t.Fatalf("expected one profile left, got %v", names)
	}
}

func TestSummariesReflectSaves(t *testing.T) {
	s := openStore(t)
	p := s.LoadOrCreate("Cache")
	if err := s.Save(p); err != nil {
		t.Fatalf("save: %v", err)
	}
	sums, _ := s.Summaries()
	if len(sums) != 1 || sums[0].TotalQuestions != 0 {
		t.Fatalf("unexpected summaries %+v", sums)
	}
	s.RecordSession(p, sampleRecord(time.Now(), 12, 6, 2))
	if err := s.Save(p); err != nil {
		t.Fatalf("save: %v", err)
	}
	sums, _ = s.Summaries()
	if sums[0].TotalQuestions != 12 || sums[0].Accuracy != 50 {
		t.Fatalf("summary cache stale: %+v", sums[0])
	}
}

func TestSaverWritesLatestSnapshot(t *testing.T) {
	s := openStore(t)
	saver := NewSaver(s, nil)
	p := s.LoadOrCreate("Async")
	var pendings []*Pending
	for i := 1; i <= 5; i++ {
		p.OverallStats.TotalQuestions = i
		pendings = append(pendings, saver.Save(p))
	}
	p.OverallStats.TotalQuestions = 99

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := saver.Flush(ctx); err != nil {
		t.Fatalf("flush: %v", err)
	}
	for i, pending := range pendings {
		if err := pending.Wait(ctx); err != nil {
			t.Fatalf("pending %d: %v", i, err)
		}
	}
	loaded := s.LoadOrCreate("Async")
	if loaded.OverallStats.TotalQuestions != 5 {
		t.Fatalf("expected last snapshot (5), got %d", loaded.OverallStats.TotalQuestions)
	}
}

func TestSaverSwallowsFailure(t *testing.T) {
	s := openStore(t)
	saver := NewSaver(s, nil)
	p := s.LoadOrCreate("Broken")
	if err := os.RemoveAll(s.Dir()); err != nil {
		t.Fatalf("remove dir: %v", err)
	}
	pending := saver.Save(p)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := pending.Wait(ctx); err == nil {
		t.Fatalf("expected save error to be observable")
	}
	if p.PlayerName != "Broken" {
		t.Fatalf("in-memory profile changed")
	}
}

func TestCloneIsDeep(t *testing.T) {
	s := openStore(t)
	p := s.LoadOrCreate("Clone")
	s.RecordSession(p, sampleRecord(time.Now(), 5, 5, 1))
	c := p.Clone()
	c.Achievements.Unlocked["x"] = true
	c.OverallStats.StagesByDifficulty[model.DifficultyPro] = 9
	c.SessionHistory[0].Operations[model.OpAddition] = model.OperationStats{}
	if p.Achievements.Unlocked["x"] || p.OverallStats.StagesByDifficulty[model.DifficultyPro] != 0 {
		t.Fatalf("clone shares maps with original")
	}
	if p.SessionHistory[0].Operations[model.OpAddition].Answered != 5 {
		t.Fatalf("clone shares session record maps")
	}
}
