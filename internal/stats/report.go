package stats

import (
	"context"
	"fmt"
	"io"

	"github.com/verte-zerg/mathrally/internal/model"
	"github.com/verte-zerg/mathrally/internal/store"
)

// Archive is the read side of the session archive.
type Archive interface {
	ListSessions(ctx context.Context, filter model.ArchiveFilter) ([]model.SessionAggregate, error)
	OperationAggregatesForSessions(ctx context.Context, sessionIDs []string) ([]model.OperationAggregate, error)
	OperationStatsForSessions(ctx context.Context, sessionIDs []string) (map[string]map[string]model.OperationAggregate, error)
	ListUnlocks(ctx context.Context, profileID string, limit int) ([]store.Unlock, error)
}

// Report contains precomputed data for dashboard rendering.
type Report struct {
	Filter           model.ArchiveFilter
	Sessions         []model.SessionAggregate
	WindowSessionIDs []string
	OpAggsAll        []model.OperationAggregate
	OpAggsWindow     []model.OperationAggregate
	PerSession       map[string]map[string]model.OperationAggregate
	Unlocks          []store.Unlock
}

// BuildReport loads and prepares data for dashboard rendering.
func BuildReport(ctx context.Context, st Archive, filter model.ArchiveFilter) (Report, error) {
	sessions, err := st.ListSessions(ctx, filter)
	if err != nil {
		return Report{}, fmt.Errorf("list sessions: %w", err)
	}
	allIDs := sessionIDs(sessions)
	windowIDs := lastSessionIDs(sessions, filter.CurveWindow)
	opAggsAll, err := st.OperationAggregatesForSessions(ctx, allIDs)
	if err != nil {
		return Report{}, fmt.Errorf("aggregate operations: %w", err)
	}
	opAggsWindow, err := st.OperationAggregatesForSessions(ctx, windowIDs)
	if err != nil {
		return Report{}, fmt.Errorf("aggregate operations: %w", err)
	}
	perSession, err := st.OperationStatsForSessions(ctx, allIDs)
	if err != nil {
		return Report{}, fmt.Errorf("per-session operations: %w", err)
	}
	unlocks, err := st.ListUnlocks(ctx, filter.ProfileID, 10)
	if err != nil {
		return Report{}, fmt.Errorf("list unlocks: %w", err)
	}
	return Report{
		Filter:           filter,
		Sessions:         sessions,
		WindowSessionIDs: windowIDs,
		OpAggsAll:        opAggsAll,
		OpAggsWindow:     opAggsWindow,
		PerSession:       perSession,
		Unlocks:          unlocks,
	}, nil
}

// Render writes the full dashboard. title maps achievement ids to display titles.
func (r Report) Render(w io.Writer, width int, title func(id string) string) error {
	if err := RenderSummary(w, r.Sessions); err != nil {
		return err
	}
	if len(r.Sessions) == 0 {
		return nil
	}
	if err := RenderCurves(w, r.Sessions, r.Filter.CurveWindow, width); err != nil {
		return err
	}
	if err := RenderOperationTable(w, "Per-Operation (All)", r.OpAggsAll); err != nil {
		return err
	}
	if len(r.WindowSessionIDs) < len(r.Sessions) {
		if err := RenderOperationTable(w, fmt.Sprintf("Per-Operation (Last %d)", len(r.WindowSessionIDs)), r.OpAggsWindow); err != nil {
			return err
		}
	}
	ops := TopOperationsByVolume(r.OpAggsAll, len(model.AllOperations()))
	if err := RenderOperationCurves(w, r.Sessions, r.PerSession, ops, r.Filter.CurveWindow, width); err != nil {
		return err
	}
	if weak := SelectWeakOperations(r.OpAggsWindow, 2, 5); len(weak) > 0 {
		line := "Needs practice:"
		for _, op := range weak {
			line += " " + op.Name()
		}
		if err := writeLines(w, []string{line, ""}); err != nil {
			return err
		}
	}
	if len(r.Unlocks) > 0 {
		lines := []string{"Recent Achievements"}
		for _, u := range r.Unlocks {
			name := u.AchievementID
			if title != nil {
				name = title(u.AchievementID)
			}
			lines = append(lines, fmt.Sprintf("  %s  %s", u.EndedAt.Local().Format("2006-01-02"), name))
		}
		lines = append(lines, "")
		if err := writeLines(w, lines); err != nil {
			return err
		}
	}
	return nil
}

func sessionIDs(sessions []model.SessionAggregate) []string {
	ids := make([]string, len(sessions))
	for i, s := range sessions {
		ids[i] = s.SessionID
	}
	return ids
}

func lastSessionIDs(sessions []model.SessionAggregate, window int) []string {
	if window <= 0 || len(sessions) <= window {
		return sessionIDs(sessions)
	}
	return sessionIDs(sessions[len(sessions)-window:])
}
