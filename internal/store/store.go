// Package store archives finished sessions in SQLite for the parent dashboard.
package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/verte-zerg/mathrally/internal/model"

	_ "modernc.org/sqlite" // SQLite driver.
)

// Store wraps SQLite access for archived sessions.
type Store struct {
	db *sqlx.DB
}

// Unlock is an achievement unlocked during an archived session.
type Unlock struct {
	SessionID     string    `db:"session_id"`
	AchievementID string    `db:"achievement_id"`
	EndedAt       time.Time `db:"-"`
	EndedAtRaw    string    `db:"ended_at"`
}

// Open opens or creates the SQLite database and applies migrations.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sqlx.Open("sqlite", path+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			profile_id TEXT NOT NULL,
			started_at TEXT NOT NULL,
			ended_at TEXT NOT NULL,
			duration_ms INTEGER NOT NULL,
			difficulty TEXT NOT NULL,
			operation TEXT NOT NULL,
			mixed INTEGER NOT NULL,
			questions INTEGER NOT NULL,
			correct INTEGER NOT NULL,
			best_streak INTEGER NOT NULL,
			avg_response_sec REAL NOT NULL,
			stages INTEGER NOT NULL,
			comebacks INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS session_op_stats (
			session_id TEXT NOT NULL,
			operation TEXT NOT NULL,
			correct INTEGER NOT NULL,
			incorrect INTEGER NOT NULL,
			response_sum_ms INTEGER NOT NULL,
			answers INTEGER NOT NULL,
			PRIMARY KEY (session_id, operation)
		);`,
		`CREATE TABLE IF NOT EXISTS session_unlocks (
			session_id TEXT NOT NULL,
			achievement_id TEXT NOT NULL,
			PRIMARY KEY (session_id, achievement_id)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_profile_ended ON sessions(profile_id, ended_at);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// InsertSession stores a finished session with its per-operation stats and
// unlocks. Re-inserting the same session id is a no-op.
func (s *Store) InsertSession(ctx context.Context, profileID string, rec model.SessionRecord) (err error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				// Best-effort rollback.
				_ = rerr
			}
		}
	}()

	mixed := 0
	if rec.Mixed {
		mixed = 1
	}
	res, err := tx.ExecContext(ctx,
		`INSERT INTO sessions (id, profile_id, started_at, ended_at, duration_ms, difficulty, operation, mixed, questions, correct, best_streak, avg_response_sec, stages, comebacks)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO NOTHING`,
		rec.ID,
		profileID,
		rec.Start.UTC().Format(time.RFC3339Nano),
		rec.Start.Add(rec.Duration).UTC().Format(time.RFC3339Nano),
		rec.Duration.Milliseconds(),
		string(rec.Difficulty),
		string(rec.Operation),
		mixed,
		rec.QuestionsAnswered,
		rec.CorrectAnswers,
		rec.BestStreak,
		rec.AverageResponseTime,
		rec.StagesCompleted,
		rec.Comebacks,
	)
	if err != nil {
		return err
	}
	inserted, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if inserted == 0 {
		return tx.Commit()
	}

	for op, st := range rec.Operations {
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO session_op_stats (session_id, operation, correct, incorrect, response_sum_ms, answers)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			rec.ID, string(op), st.Correct, st.Answered-st.Correct, int64(st.ResponseSum*1000), st.Answered,
		); err != nil {
			return err
		}
	}
	for _, id := range rec.AchievementsUnlocked {
		if _, err = tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO session_unlocks (session_id, achievement_id) VALUES (?, ?)`,
			rec.ID, id,
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// ListSessions returns session aggregates in chronological order.
func (s *Store) ListSessions(ctx context.Context, filter model.ArchiveFilter) ([]model.SessionAggregate, error) {
	clauses := []string{"1=1"}
	args := []any{}
	if filter.ProfileID != "" {
		clauses = append(clauses, "profile_id = ?")
		args = append(args, filter.ProfileID)
	}
	if filter.Since != nil {
		clauses = append(clauses, "ended_at >= ?")
		args = append(args, filter.Since.UTC().Format(time.RFC3339Nano))
	}
	query := fmt.Sprintf(`SELECT id, ended_at, difficulty, questions, correct, avg_response_sec, stages, duration_ms
		FROM sessions
		WHERE %s
		ORDER BY ended_at ASC`, strings.Join(clauses, " AND "))

	var sessions []model.SessionAggregate
	if err := s.db.SelectContext(ctx, &sessions, query, args...); err != nil {
		return nil, err
	}
	for i := range sessions {
		parsed, err := time.Parse(time.RFC3339Nano, sessions[i].EndedAtRaw)
		if err != nil {
			return nil, err
		}
		sessions[i].EndedAt = parsed
	}
	if filter.Last > 0 && len(sessions) > filter.Last {
		sessions = sessions[len(sessions)-filter.Last:]
	}
	return sessions, nil
}

// RecentOperationAggregates aggregates per-operation stats over the most
// recent sessions of a profile.
func (s *Store) RecentOperationAggregates(ctx context.Context, profileID string, window int) ([]model.OperationAggregate, error) {
	if window <= 0 {
		return nil, nil
	}
	query := `WITH recent_sessions AS (
		SELECT id FROM sessions
		WHERE (? = '' OR profile_id = ?)
		ORDER BY ended_at DESC
		LIMIT ?
	)
	SELECT os.operation, SUM(os.correct) AS correct, SUM(os.incorrect) AS incorrect,
		SUM(os.response_sum_ms) AS response_sum_ms, SUM(os.answers) AS answers
	FROM session_op_stats os
	JOIN recent_sessions r ON r.id = os.session_id
	GROUP BY os.operation
	ORDER BY os.operation`

	var result []model.OperationAggregate
	if err := s.db.SelectContext(ctx, &result, query, profileID, profileID, window); err != nil {
		return nil, err
	}
	return result, nil
}

// OperationAggregatesForSessions aggregates per-operation stats across sessions.
func (s *Store) OperationAggregatesForSessions(ctx context.Context, sessionIDs []string) ([]model.OperationAggregate, error) {
	if len(sessionIDs) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(`SELECT operation, SUM(correct) AS correct, SUM(incorrect) AS incorrect,
		SUM(response_sum_ms) AS response_sum_ms, SUM(answers) AS answers
		FROM session_op_stats
		WHERE session_id IN (?)
		GROUP BY operation
		ORDER BY operation`, sessionIDs)
	if err != nil {
		return nil, err
	}
	var result []model.OperationAggregate
	if err := s.db.SelectContext(ctx, &result, s.db.Rebind(query), args...); err != nil {
		return nil, err
	}
	return result, nil
}

// OperationStatsForSessions returns per-session stats keyed by session id and operation.
func (s *Store) OperationStatsForSessions(ctx context.Context, sessionIDs []string) (map[string]map[string]model.OperationAggregate, error) {
	result := map[string]map[string]model.OperationAggregate{}
	if len(sessionIDs) == 0 {
		return result, nil
	}
	query, args, err := sqlx.In(`SELECT session_id, operation, correct, incorrect, response_sum_ms, answers
		FROM session_op_stats
		WHERE session_id IN (?)`, sessionIDs)
	if err != nil {
		return nil, err
	}
	var rows []struct {
		SessionID string `db:"session_id"`
		model.OperationAggregate
	}
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(query), args...); err != nil {
		return nil, err
	}
	for _, row := range rows {
		if _, ok := result[row.SessionID]; !ok {
			result[row.SessionID] = map[string]model.OperationAggregate{}
		}
		result[row.SessionID][row.Operation] = row.OperationAggregate
	}
	return result, nil
}

// ListUnlocks returns the most recent achievement unlocks of a profile.
func (s *Store) ListUnlocks(ctx context.Context, profileID string, limit int) ([]Unlock, error) {
	if limit <= 0 {
		limit = 10
	}
	var unlocks []Unlock
	err := s.db.SelectContext(ctx, &unlocks,
		`SELECT u.session_id, u.achievement_id, s.ended_at
		 FROM session_unlocks u
		 JOIN sessions s ON s.id = u.session_id
		 WHERE (? = '' OR s.profile_id = ?)
		 ORDER BY s.ended_at DESC, u.achievement_id ASC
		 LIMIT ?`, profileID, profileID, limit)
	if err != nil {
		return nil, err
	}
	for i := range unlocks {
		parsed, err := time.Parse(time.RFC3339Nano, unlocks[i].EndedAtRaw)
		if err != nil {
			return nil, err
		}
		unlocks[i].EndedAt = parsed
	}
	return unlocks, nil
}
