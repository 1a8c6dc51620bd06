package model

import "time"

// ArchiveFilter selects archived sessions for reporting.
type ArchiveFilter struct {
	ProfileID   string
	Since       *time.Time
	Last        int
	CurveWindow int
}

// SessionAggregate summarizes an archived session for reporting.
type SessionAggregate struct {
	SessionID      string    `db:"id"`
	EndedAt        time.Time `db:"-"`
	EndedAtRaw     string    `db:"ended_at"`
	Difficulty     string    `db:"difficulty"`
	Questions      int       `db:"questions"`
	Correct        int       `db:"correct"`
	AvgResponseSec float64   `db:"avg_response_sec"`
	Stages         int       `db:"stages"`
	DurationMs     int64     `db:"duration_ms"`
}

// OperationAggregate aggregates per-operation answers across sessions.
type OperationAggregate struct {
	Operation     string `db:"operation"`
	Correct       int    `db:"correct"`
	Incorrect     int    `db:"incorrect"`
	ResponseSumMs int64  `db:"response_sum_ms"`
	Answers       int64  `db:"answers"`
}
