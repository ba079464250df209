package points

import (
	"context"
	"path/filepath"
	"testing"

	"sitterswap/internal/database"
)

func newTestRepo(t *testing.T) (*Repository, *database.DB, int64, int64) {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "points_test.db")
	db, err := database.Initialize(dbPath)
	if err != nil {
		t.Fatalf("Failed to initialize database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.RunMigrations("../../migrations"); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	ctx := context.Background()

	var userID int64
	err = db.QueryRowContext(ctx,
		"INSERT INTO users (name, email, password_hash) VALUES (?, ?, ?) RETURNING id",
		"Tester", "tester@example.com", "hash").Scan(&userID)
	if err != nil {
		t.Fatalf("Failed to seed user: %v", err)
	}

	var familyID int64
	err = db.QueryRowContext(ctx,
		"INSERT INTO families (name, current_admin_id) VALUES (?, ?) RETURNING id",
		"Testers", userID).Scan(&familyID)
	if err != nil {
		t.Fatalf("Failed to seed family: %v", err)
	}

	var groupID int64
	err = db.QueryRowContext(ctx,
		"INSERT INTO groups (name, invite_code, admin_family_id) VALUES (?, ?, ?) RETURNING id",
		"Testing Group", "TESTCODE01", familyID).Scan(&groupID)
	if err != nil {
		t.Fatalf("Failed to seed group: %v", err)
	}

	return NewRepository(db), db, familyID, groupID
}

func TestGetMissingRowIsZero(t *testing.T) {
	repo, _, familyID, groupID := newTestRepo(t)

	pts, err := repo.Get(context.Background(), familyID, groupID)
	if err != nil {
		t.Fatalf("Failed to get balance: %v", err)
	}
	if pts != 0 {
		t.Errorf("Expected 0 for missing balance row, got %d", pts)
	}
}

func TestApplyDeltaAccumulates(t *testing.T) {
	repo, db, familyID, groupID := newTestRepo(t)
	ctx := context.Background()

	tests := []struct {
		delta int
		want  int
	}{
		{10, 10},  // first delta creates the row
		{-5, 5},   // debit
		{-8, -3},  // balances may go negative, there is no floor
		{3, 0},    // credit back to zero
	}

	for _, tt := range tests {
		if err := repo.ApplyDelta(ctx, db, familyID, groupID, tt.delta); err != nil {
			t.Fatalf("Failed to apply delta %d: %v", tt.delta, err)
		}
		got, err := repo.Get(ctx, familyID, groupID)
		if err != nil {
			t.Fatalf("Failed to get balance: %v", err)
		}
		if got != tt.want {
			t.Errorf("After delta %d expected %d, got %d", tt.delta, tt.want, got)
		}
	}
}

func TestSeedAndListByGroup(t *testing.T) {
	repo, db, familyID, groupID := newTestRepo(t)
	ctx := context.Background()

	if err := repo.Seed(ctx, db, familyID, groupID, JoinSeed); err != nil {
		t.Fatalf("Failed to seed balance: %v", err)
	}

	balances, err := repo.ListByGroup(ctx, groupID)
	if err != nil {
		t.Fatalf("Failed to list balances: %v", err)
	}
	if len(balances) != 1 {
		t.Fatalf("Expected 1 balance, got %d", len(balances))
	}
	if balances[0].Points != JoinSeed {
		t.Errorf("Expected %d points, got %d", JoinSeed, balances[0].Points)
	}
	if balances[0].FamilyName != "Testers" {
		t.Errorf("Expected family name joined in, got %q", balances[0].FamilyName)
	}
}

func TestDeleteRemovesBalance(t *testing.T) {
	repo, db, familyID, groupID := newTestRepo(t)
	ctx := context.Background()

	if err := repo.Seed(ctx, db, familyID, groupID, JoinSeed); err != nil {
		t.Fatalf("Failed to seed balance: %v", err)
	}
	if err := repo.Delete(ctx, db, familyID, groupID); err != nil {
		t.Fatalf("Failed to delete balance: %v", err)
	}

	pts, err := repo.Get(ctx, familyID, groupID)
	if err != nil {
		t.Fatalf("Failed to get balance: %v", err)
	}
	if pts != 0 {
		t.Errorf("Expected 0 after delete, got %d", pts)
	}
}
