package stats

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/verte-zerg/mathrally/internal/model"
	"github.com/verte-zerg/mathrally/internal/profile"
	"github.com/verte-zerg/mathrally/internal/store"
)

func TestBuildReport(t *testing.T) {
	st, err := store.Open(filepath.Join(t.TempDir(), "sessions.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		_ = st.Close()
	})

	ctx := context.Background()
	var ids []string
	for i := 0; i < 3; i++ {
		start := time.Unix(0, 0).Add(time.Duration(i) * time.Minute)
		rec := model.SessionRecord{
			ID:                  fmt.Sprintf("s%d", i),
			Start:               start,
			Duration:            30 * time.Second,
			Difficulty:          model.DifficultyRookie,
			Operation:           model.OpAddition,
			QuestionsAnswered:   10,
			CorrectAnswers:      9,
			AverageResponseTime: 3,
			Operations: map[model.Operation]model.OperationStats{
				model.OpAddition:    {Answered: 5, Correct: 5, ResponseSum: 10},
				model.OpSubtraction: {Answered: 5, Correct: 4, ResponseSum: 20},
			},
			AchievementsUnlocked: []string{fmt.Sprintf("a%d", i)},
		}
		if err := st.InsertSession(ctx, "ada", rec); err != nil {
			t.Fatalf("insert session: %v", err)
		}
		ids = append(ids, rec.ID)
	}

	filter := model.ArchiveFilter{ProfileID: "ada", Last: 2, CurveWindow: 1}
	report, err := BuildReport(ctx, st, filter)
	if err != nil {
		t.Fatalf("build report: %v", err)
	}
	if len(report.Sessions) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(report.Sessions))
	}
	if report.Sessions[0].SessionID != ids[1] || report.Sessions[1].SessionID != ids[2] {
		t.Fatalf("unexpected session ids: %+v", report.Sessions)
	}
	if len(report.WindowSessionIDs) != 1 {
		t.Fatalf("expected 1 window session id, got %d", len(report.WindowSessionIDs))
	}
	if len(report.OpAggsAll) != 2 || len(report.OpAggsWindow) != 2 {
		t.Fatalf("expected operation aggregates, got %+v / %+v", report.OpAggsAll, report.OpAggsWindow)
	}

	var buf bytes.Buffer
	if err := report.Render(&buf, 80, strings.ToUpper); err != nil {
		t.Fatalf("render: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"Summary", "Learning Curves", "Per-Operation (All)", "Per-Operation (Last 1)", "Recent Achievements", "A2"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestRenderSummaryEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := RenderSummary(&buf, nil); err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(buf.String(), "No sessions found.") {
		t.Fatalf("unexpected output %q", buf.String())
	}
}

func TestProfileLines(t *testing.T) {
	now := time.Date(2025, 7, 10, 12, 0, 0, 0, time.UTC)
	p := profile.New("Ada", now.Add(-72*time.Hour))
	p.LastPlayedAt = now.Add(-48 * time.Hour)
	p.OverallStats.TotalQuestions = 1200
	p.OverallStats.CorrectAnswers = 900
	p.OverallStats.ByOperation[model.OpDivision] = model.OperationStats{Answered: 20, Correct: 10, ResponseSum: 80}
	p.OverallStats.ByOperation[model.OpAddition] = model.OperationStats{Answered: 20, Correct: 19, ResponseSum: 30}
	p.Rally.Series[model.DifficultyPro] = profile.SeriesProgress{StagesCompleted: 2, BestAccuracy: 96, BestCompletionSeconds: 125}

	out := strings.Join(ProfileLines(p, now), "\n")
	for _, want := range []string{"Player: Ada", "2 days ago", "1,200", "75.0%", "Pro Circuit", "2m5s", "Needs practice: Division"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in dashboard:\n%s", want, out)
		}
	}
}
