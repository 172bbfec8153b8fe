// Package journal keeps a SQLite record of script evaluations.
//
// Failed evaluations are always journaled; successful ones only when the
// recorder is configured to record everything. The journal is diagnostic:
// the hub never reads it back while running.
package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Outcome mirrors the response kind of a journaled evaluation.
type Outcome string

const (
	OutcomeEmpty  Outcome = "empty"
	OutcomeReturn Outcome = "return"
	OutcomeError  Outcome = "error"
)

const (
	defaultLimit = 50
	maxLimit     = 500

	// timeFormat is fixed width so created_at sorts lexically.
	timeFormat = "2006-01-02T15:04:05.000000Z"
)

// ErrInvalidOutcome is returned by Create for an outcome outside the
// empty/return/error set.
var ErrInvalidOutcome = errors.New("journal: invalid outcome")

// Entry is one journaled evaluation.
type Entry struct {
	ID        string        `json:"id"`
	Source    string        `json:"source"`
	Code      string        `json:"code"`
	Outcome   Outcome       `json:"outcome"`
	Value     string        `json:"value,omitempty"`
	Error     string        `json:"error,omitempty"`
	Duration  time.Duration `json:"duration"`
	CreatedAt time.Time     `json:"created_at"`
}

// Filter controls which entries List returns.
type Filter struct {
	Source  string  // optional
	Outcome Outcome // optional
	Limit   int     // default 50, max 500
	Offset  int
}

// ListResult is one page of entries, most recent first.
type ListResult struct {
	Entries []Entry `json:"entries"`
	Total   int     `json:"total"`
	Limit   int     `json:"limit"`
	Offset  int     `json:"offset"`
}

// Repository stores and queries journal entries.
type Repository interface {
	Create(ctx context.Context, e *Entry) error
	List(ctx context.Context, filter Filter) (*ListResult, error)
}

// SQLiteRepository implements Repository on the evaluations table.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a repository on an already migrated database.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Create inserts e. ID and CreatedAt are filled in when empty.
func (r *SQLiteRepository) Create(ctx context.Context, e *Entry) error {
	switch e.Outcome {
	case OutcomeEmpty, OutcomeReturn, OutcomeError:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidOutcome, e.Outcome)
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO evaluations (id, source, code, outcome, value, error, duration_us, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Source, e.Code, string(e.Outcome),
		nullableString(e.Value), nullableString(e.Error),
		e.Duration.Microseconds(),
		e.CreatedAt.UTC().Format(timeFormat),
	)
	if err != nil {
		return fmt.Errorf("inserting journal entry: %w", err)
	}
	return nil
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// List returns entries matching filter, most recent first.
func (r *SQLiteRepository) List(ctx context.Context, filter Filter) (*ListResult, error) {
	if filter.Limit <= 0 {
		filter.Limit = defaultLimit
	}
	filter.Limit = min(filter.Limit, maxLimit)
	filter.Offset = max(filter.Offset, 0)

	var (
		conditions []string
		args       []any
	)
	if filter.Source != "" {
		conditions = append(conditions, "source = ?")
		args = append(args, filter.Source)
	}
	if filter.Outcome != "" {
		conditions = append(conditions, "outcome = ?")
		args = append(args, string(filter.Outcome))
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	countQuery := "SELECT COUNT(*) FROM evaluations " + where //nolint:gosec // WHERE holds only placeholders
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("counting journal entries: %w", err)
	}

	query := "SELECT id, source, code, outcome, value, error, duration_us, created_at FROM evaluations " + //nolint:gosec // WHERE holds only placeholders
		where + " ORDER BY created_at DESC, id LIMIT ? OFFSET ?"
	rows, err := r.db.QueryContext(ctx, query, append(args, filter.Limit, filter.Offset)...)
	if err != nil {
		return nil, fmt.Errorf("querying journal entries: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var (
			e          Entry
			outcome    string
			value, msg sql.NullString
			durationUS int64
			createdAt  string
		)
		if err := rows.Scan(&e.ID, &e.Source, &e.Code, &outcome, &value, &msg, &durationUS, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning journal entry: %w", err)
		}
		e.Outcome = Outcome(outcome)
		e.Value = value.String
		e.Error = msg.String
		e.Duration = time.Duration(durationUS) * time.Microsecond
		if e.CreatedAt, err = time.Parse(timeFormat, createdAt); err != nil {
			return nil, fmt.Errorf("parsing journal timestamp %q: %w", createdAt, err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating journal entries: %w", err)
	}

	return &ListResult{
		Entries: entries,
		Total:   total,
		Limit:   filter.Limit,
		Offset:  filter.Offset,
	}, nil
}
