package migrations_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/Siroj42/heinzelmann/internal/infrastructure/database"
	_ "github.com/Siroj42/heinzelmann/migrations"
)

func TestSchemaAppliesAndRollsBack(t *testing.T) {
	ctx := context.Background()
	db, err := database.Open(ctx, database.Config{Path: filepath.Join(t.TempDir(), "journal.db"), WALMode: true})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer db.Close() //nolint:errcheck // Test cleanup

	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}

	_, err = db.ExecContext(ctx,
		`INSERT INTO evaluations (id, source, code, outcome, duration_us, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		"e1", "repl", "(+ 1 2)", "return", 12, "2026-03-01T00:00:00Z")
	if err != nil {
		t.Fatalf("insert into evaluations: %v", err)
	}

	_, err = db.ExecContext(ctx,
		`INSERT INTO evaluations (id, source, code, outcome, created_at) VALUES (?, ?, ?, ?, ?)`,
		"e2", "repl", "x", "bogus", "2026-03-01T00:00:00Z")
	if err == nil {
		t.Error("outcome CHECK constraint not enforced")
	}

	if err := db.MigrateDown(ctx); err != nil {
		t.Fatalf("MigrateDown() error = %v", err)
	}
	_, pending, err := db.GetMigrationStatus(ctx)
	if err != nil {
		t.Fatalf("GetMigrationStatus() error = %v", err)
	}
	if len(pending) != 1 {
		t.Errorf("pending = %d after rollback, want 1", len(pending))
	}
}
