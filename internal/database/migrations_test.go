package database

import (
	"context"
	"path/filepath"
	"testing"
)

func TestInitializeRunsMigrations(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	db, err := Initialize(filepath.Join(t.TempDir(), "registry.db"))
	if err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	tables := []string{"users", "sessions", "communities", "community_users", "families", "members", "contributions", "payments", "invitations"}
	for _, table := range tables {
		var name string
		err := db.QueryRowContext(ctx, "SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		if err != nil {
			t.Errorf("table %s not found: %v", table, err)
		}
	}

	// A second run must be a no-op
	if err := db.RunMigrations(ctx); err != nil {
		t.Fatalf("second RunMigrations() error = %v", err)
	}
	var count int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM migrations").Scan(&count); err != nil {
		t.Fatalf("count migrations: %v", err)
	}
	if count != 1 {
		t.Errorf("migrations recorded = %d, want 1", count)
	}
}

func TestWithTxRollsBackOnError(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	db, err := Initialize(filepath.Join(t.TempDir(), "tx.db"))
	if err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	defer db.Close()
	ctx := context.Background()

	insert := "INSERT INTO users (id, email, name) VALUES (?, ?, ?)"
	err = db.WithTx(ctx, func(tx *Tx) error {
		if _, err := tx.ExecContext(ctx, insert, "u1", "a@example.org", "Ada"); err != nil {
			return err
		}
		// duplicate email violates the unique constraint
		_, err := tx.ExecContext(ctx, insert, "u2", "a@example.org", "Ada Again")
		return err
	})
	if err == nil {
		t.Fatal("WithTx() expected error from duplicate insert")
	}

	var count int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&count); err != nil {
		t.Fatalf("count users: %v", err)
	}
	if count != 0 {
		t.Errorf("users after rollback = %d, want 0", count)
	}

	err = db.WithTx(ctx, func(tx *Tx) error {
		_, err := tx.ExecContext(ctx, insert, "u3", "b@example.org", "Bea")
		return err
	})
	if err != nil {
		t.Fatalf("WithTx() commit error = %v", err)
	}
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&count); err != nil {
		t.Fatalf("count users: %v", err)
	}
	if count != 1 {
		t.Errorf("users after commit = %d, want 1", count)
	}
}
