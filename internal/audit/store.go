// Package audit persists a log of scheduling requests and their outcomes.
package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/wolfman30/appointment-scheduler/pkg/logging"
)

type db interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Entry is one processed scheduling request.
type Entry struct {
	ID                uuid.UUID `json:"id"`
	Source            string    `json:"source"`
	RawText           string    `json:"raw_text"`
	Timezone          string    `json:"tz"`
	Status            string    `json:"status"`
	Message           string    `json:"message,omitempty"`
	Department        string    `json:"department,omitempty"`
	Date              string    `json:"date,omitempty"`
	Time              string    `json:"time,omitempty"`
	AIStatus          string    `json:"ai_status,omitempty"`
	OverallConfidence float64   `json:"overall_confidence,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}

// Store writes entries to the relational database.
type Store struct {
	db     db
	logger *logging.Logger
}

// NewStore initializes a store. db is satisfied by *pgxpool.Pool.
func NewStore(db db, logger *logging.Logger) *Store {
	if logger == nil {
		logger = logging.Default()
	}
	return &Store{db: db, logger: logger.Component("audit")}
}

// Record inserts one entry and returns its id.
func (s *Store) Record(ctx context.Context, entry Entry) (uuid.UUID, error) {
	id := uuid.New()
	query := `
		INSERT INTO scheduling_requests
			(id, source, raw_text, tz, status, message, department, date, time, ai_status, overall_confidence)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	if _, err := s.db.Exec(ctx, query,
		id,
		entry.Source,
		entry.RawText,
		entry.Timezone,
		entry.Status,
		entry.Message,
		entry.Department,
		entry.Date,
		entry.Time,
		entry.AIStatus,
		entry.OverallConfidence,
	); err != nil {
		return uuid.Nil, fmt.Errorf("audit: insert failed: %w", err)
	}
	return id, nil
}

// Recent returns the newest entries, most recent first.
func (s *Store) Recent(ctx context.Context, limit int32) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT id, source, raw_text, tz, status, message, department, date, time, ai_status, overall_confidence, created_at
		FROM scheduling_requests
		ORDER BY created_at DESC
		LIMIT $1
	`
	rows, err := s.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("audit: select failed: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(
			&e.ID,
			&e.Source,
			&e.RawText,
			&e.Timezone,
			&e.Status,
			&e.Message,
			&e.Department,
			&e.Date,
			&e.Time,
			&e.AIStatus,
			&e.OverallConfidence,
			&e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("audit: scan failed: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
