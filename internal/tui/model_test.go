package tui

import (
	"context"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/verte-zerg/mathrally/internal/achievement"
	"github.com/verte-zerg/mathrally/internal/game"
	"github.com/verte-zerg/mathrally/internal/model"
	"github.com/verte-zerg/mathrally/internal/profile"
)

type stubProblems struct{}

func (stubProblems) Next(cfg model.GameConfiguration) model.Problem {
	return model.Problem{Operation: model.OpAddition, Difficulty: cfg.Difficulty, Left: 1, Right: 1, Answer: 2}
}

func (stubProblems) StoryProblem(d model.Difficulty, op model.Operation) model.StoryProblem {
	return model.StoryProblem{Text: "You have 12 bolts and find 3 more.", Context: "Parts", Operation: op, Answer: 15}
}

func newTestModel(t *testing.T) *Model {
	t.Helper()
	catalog, err := achievement.LoadCatalog()
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	store, err := profile.Open(t.TempDir(), profile.WithPoints(catalog.Points))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	saver := profile.NewSaver(store, nil)
	t.Cleanup(func() {
		_ = saver.Flush(context.Background())
	})
	ctrl := game.New(game.Deps{
		Profiles:     store,
		Saver:        saver,
		Catalog:      catalog,
		Problems:     stubProblems{},
		StageLengths: map[model.Difficulty]int{model.DifficultyRookie: 10},
	}, store.LoadOrCreate("Ada"))
	return NewModel(ctrl, catalog)
}

func press(m *Model, keys ...string) tea.Cmd {
	var cmd tea.Cmd
	for _, k := range keys {
		if k == "enter" {
			_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
			continue
		}
		_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)})
	}
	return cmd
}

func TestMenuDigitsAdvanceWithoutEnter(t *testing.T) {
	m := newTestModel(t)
	press(m, "1", "1", "1", "1")
	if st := m.ctrl.State(); st != game.StatePlaying {
		t.Fatalf("expected playing, got %s", st)
	}
	out := m.View()
	if !strings.Contains(out, "Question 1/10") || !strings.Contains(out, "1 + 1 = ?") {
		t.Fatalf("unexpected playing view:\n%s", out)
	}
}

func TestAnswerFeedbackAndHUD(t *testing.T) {
	m := newTestModel(t)
	press(m, "1", "1", "1", "1", "2", "enter")
	out := m.View()
	for _, want := range []string{"Question 2/10", "Correct!", "Accuracy 100.0%", "Streak 1", "Car: Perfect condition"} {
		if !strings.Contains(out, want) {
			t.Fatalf("view missing %q:\n%s", want, out)
		}
	}
	if m.input.Value() != "" {
		t.Fatalf("input should reset after submit")
	}
}

func TestBreakdownShowsStory(t *testing.T) {
	m := newTestModel(t)
	press(m, "1", "1", "1", "1")
	for i := 0; i < 3; i++ {
		press(m, "9", "enter")
	}
	if st := m.ctrl.State(); st != game.StateCarRepair {
		t.Fatalf("expected car repair, got %s", st)
	}
	out := m.View()
	if !strings.Contains(out, "bolts") || !strings.Contains(out, "BREAKDOWN") {
		t.Fatalf("unexpected repair view:\n%s", out)
	}
}

func TestUnlockToasts(t *testing.T) {
	m := newTestModel(t)
	press(m, "1", "1", "1", "1")
	for i := 0; i < 5; i++ {
		press(m, "2", "enter")
	}
	if !strings.Contains(m.View(), "Achievement unlocked") {
		t.Fatalf("expected an unlock toast:\n%s", m.View())
	}
	if len(m.catalog.RecentUnlocks()) != 0 {
		t.Fatalf("recent unlocks should be drained")
	}
	press(m, "2", "enter")
	if strings.Contains(m.View(), "Achievement unlocked") {
		t.Fatalf("toasts should clear on the next answer")
	}
}

func TestExitQuits(t *testing.T) {
	m := newTestModel(t)
	cmd := press(m, "4")
	if m.ctrl.State() != game.StateExit || cmd == nil {
		t.Fatalf("expected exit with quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatalf("expected tea.QuitMsg")
	}
}
