package statsui

import (
	"context"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/verte-zerg/mathrally/internal/achievement"
	"github.com/verte-zerg/mathrally/internal/model"
	"github.com/verte-zerg/mathrally/internal/profile"
	"github.com/verte-zerg/mathrally/internal/store"
)

type fakeArchive struct {
	sessions []model.SessionAggregate
	filters  []model.ArchiveFilter
}

func (f *fakeArchive) ListSessions(_ context.Context, filter model.ArchiveFilter) ([]model.SessionAggregate, error) {
	f.filters = append(f.filters, filter)
	return f.sessions, nil
}

func (f *fakeArchive) OperationAggregatesForSessions(_ context.Context, ids []string) ([]model.OperationAggregate, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return []model.OperationAggregate{{Operation: "addition", Correct: 8, Incorrect: 2, ResponseSumMs: 20000, Answers: 10}}, nil
}

func (f *fakeArchive) OperationStatsForSessions(_ context.Context, _ []string) (map[string]map[string]model.OperationAggregate, error) {
	return map[string]map[string]model.OperationAggregate{}, nil
}

func (f *fakeArchive) ListUnlocks(_ context.Context, _ string, _ int) ([]store.Unlock, error) {
	return []store.Unlock{{SessionID: "s1", AchievementID: "streak_5", EndedAt: time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC)}}, nil
}

func newTestModel(t *testing.T) (*Model, *fakeArchive) {
	t.Helper()
	catalog, err := achievement.LoadCatalog()
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	archive := &fakeArchive{sessions: []model.SessionAggregate{{
		SessionID:      "s1",
		EndedAt:        time.Date(2025, 3, 2, 9, 2, 0, 0, time.UTC),
		DurationMs:     120000,
		Questions:      10,
		Correct:        8,
		AvgResponseSec: 2,
		Stages:         1,
	}}}
	p := profile.New("Ada", time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	m := NewModel(archive, p, catalog, model.ArchiveFilter{ProfileID: "ada", CurveWindow: 5})
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	return m, archive
}

func TestDashboardRendersTabs(t *testing.T) {
	m, _ := newTestModel(t)
	out := m.View()
	for _, want := range []string{"Overview", "Operations", "Achievements", "Ada", "window=5"} {
		if !strings.Contains(out, want) {
			t.Fatalf("view missing %q:\n%s", want, out)
		}
	}
	m.moveTab(1)
	if out := m.View(); !strings.Contains(out, "Addition") {
		t.Fatalf("operations tab missing table rows:\n%s", out)
	}
	m.moveTab(1)
	if out := m.View(); !strings.Contains(out, "unlocked") {
		t.Fatalf("achievements tab missing summary:\n%s", out)
	}
}

func TestApplyFilter(t *testing.T) {
	m, archive := newTestModel(t)
	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'/'}})
	if !m.form.open {
		t.Fatalf("expected filter form to open")
	}
	if got := m.form.fields[fieldWindow].Value(); got != "5" {
		t.Fatalf("form not filled from filter: %q", got)
	}
	m.form.fields[fieldSince].SetValue("2025-03-01")
	m.form.fields[fieldLast].SetValue("7")
	m.form.fields[fieldWindow].SetValue("3")
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if m.form.open {
		t.Fatalf("form still open: %s", m.form.err)
	}
	if m.filter.ProfileID != "ada" || m.filter.Last != 7 || m.filter.CurveWindow != 3 || m.filter.Since == nil {
		t.Fatalf("unexpected filter: %+v", m.filter)
	}
	if got := archive.filters[len(archive.filters)-1]; got.Last != 7 {
		t.Fatalf("report not rebuilt with new filter: %+v", got)
	}

	m.form.fields[fieldWindow].SetValue("0")
	if _, err := m.form.parse("ada"); err == nil {
		t.Fatalf("expected error for zero curve window")
	}
	m.form.fields[fieldWindow].SetValue("")
	m.form.fields[fieldSince].SetValue("March")
	if _, err := m.form.parse("ada"); err == nil {
		t.Fatalf("expected error for bad date")
	}
	m.form.fields[fieldSince].SetValue("")
	filter, err := m.form.parse("ada")
	if err != nil || filter.CurveWindow != 1 {
		t.Fatalf("empty window should mean 1: %+v %v", filter, err)
	}
}

func TestCurveWindowSteps(t *testing.T) {
	if got := nextCurveWindow(5); got != 10 {
		t.Fatalf("next of 5 = %d", got)
	}
	if got := nextCurveWindow(50); got != 50 {
		t.Fatalf("next of 50 = %d", got)
	}
	if got := prevCurveWindow(5); got != 3 {
		t.Fatalf("prev of 5 = %d", got)
	}
	if got := prevCurveWindow(1); got != 1 {
		t.Fatalf("prev of 1 = %d", got)
	}
}

func TestFitLines(t *testing.T) {
	got := fitLines("ab\ncdef\ngh", 4, 2)
	if got != "ab  \ncdef" {
		t.Fatalf("fit = %q", got)
	}
	if got := fitLines("x", 3, 0); got != "x  " {
		t.Fatalf("pad only = %q", got)
	}
}

func TestFilterSummaryTruncates(t *testing.T) {
	m, _ := newTestModel(t)
	m.width = 12
	if got := m.renderFilterSummary(); !strings.Contains(got, "...") {
		t.Fatalf("expected truncated summary, got %q", got)
	}
}
