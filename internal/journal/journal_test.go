package journal

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Siroj42/heinzelmann/internal/infrastructure/database"
	_ "github.com/Siroj42/heinzelmann/migrations"
)

func openRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	ctx := context.Background()

	db, err := database.Open(ctx, database.Config{
		Path:        filepath.Join(t.TempDir(), "journal.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // Test cleanup

	require.NoError(t, db.Migrate(ctx))
	return NewSQLiteRepository(db.DB)
}

func TestCreateAndList(t *testing.T) {
	repo := openRepo(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	entries := []Entry{
		{Source: "bus", Code: `(handle-event "a" "1")`, Outcome: OutcomeEmpty, CreatedAt: base},
		{Source: "repl", Code: "(+ 1 2)", Outcome: OutcomeReturn, Value: "3", Duration: 1500 * time.Microsecond, CreatedAt: base.Add(time.Second)},
		{Source: "repl", Code: "(car 1)", Outcome: OutcomeError, Error: "car: expected pair, got 1", CreatedAt: base.Add(2 * time.Second)},
	}
	for i := range entries {
		require.NoError(t, repo.Create(ctx, &entries[i]))
		assert.NotEmpty(t, entries[i].ID)
	}

	all, err := repo.List(ctx, Filter{})
	require.NoError(t, err)
	assert.Equal(t, 3, all.Total)
	assert.Equal(t, defaultLimit, all.Limit)
	require.Len(t, all.Entries, 3)

	latest := all.Entries[0]
	assert.Equal(t, entries[2].ID, latest.ID)
	assert.Equal(t, OutcomeError, latest.Outcome)
	assert.Equal(t, "car: expected pair, got 1", latest.Error)
	assert.Empty(t, latest.Value)
	assert.True(t, latest.CreatedAt.Equal(base.Add(2*time.Second)))

	assert.Equal(t, "3", all.Entries[1].Value)
	assert.Equal(t, 1500*time.Microsecond, all.Entries[1].Duration)

	repl, err := repo.List(ctx, Filter{Source: "repl"})
	require.NoError(t, err)
	assert.Equal(t, 2, repl.Total)

	failures, err := repo.List(ctx, Filter{Outcome: OutcomeError})
	require.NoError(t, err)
	require.Len(t, failures.Entries, 1)
	assert.Equal(t, "(car 1)", failures.Entries[0].Code)

	page, err := repo.List(ctx, Filter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)
	require.Len(t, page.Entries, 1)
	assert.Equal(t, entries[1].ID, page.Entries[0].ID)
}

func TestListEmptyAndClamped(t *testing.T) {
	repo := openRepo(t)

	res, err := repo.List(context.Background(), Filter{Limit: 10_000, Offset: -3})
	require.NoError(t, err)
	assert.Equal(t, maxLimit, res.Limit)
	assert.Equal(t, 0, res.Offset)
	assert.NotNil(t, res.Entries)
	assert.Empty(t, res.Entries)
}

func TestCreateRejectsUnknownOutcome(t *testing.T) {
	repo := openRepo(t)

	err := repo.Create(context.Background(), &Entry{Source: "repl", Code: "x", Outcome: "maybe"})
	assert.ErrorIs(t, err, ErrInvalidOutcome)
}

func TestCreateDuplicateID(t *testing.T) {
	repo := openRepo(t)
	ctx := context.Background()

	e := Entry{ID: "fixed", Source: "repl", Code: "1", Outcome: OutcomeReturn, Value: "1"}
	require.NoError(t, repo.Create(ctx, &e))
	assert.Error(t, repo.Create(ctx, &e))
}
