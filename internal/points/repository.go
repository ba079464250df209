package points

import (
	"context"
	"database/sql"
	"fmt"

	"sitterswap/internal/database"
)

// Repository handles points balance persistence
type Repository struct {
	db *database.DB
}

// NewRepository creates a new points repository
func NewRepository(db *database.DB) *Repository {
	return &Repository{db: db}
}

// ApplyDelta adjusts a family's balance in a group by delta, creating the
// row with delta as its initial balance when absent. The upsert is a single
// statement so the read-modify-write cannot race. Callers performing a
// status transition must pass their transaction as q so the balance change
// commits or rolls back together with it.
func (r *Repository) ApplyDelta(ctx context.Context, q database.DBTX, familyID, groupID int64, delta int) error {
	query := `
		INSERT INTO family_group_points (family_id, group_id, points)
		VALUES (?, ?, ?)
		ON CONFLICT (family_id, group_id)
		DO UPDATE SET points = family_group_points.points + excluded.points
	`

	if _, err := q.ExecContext(ctx, query, familyID, groupID, delta); err != nil {
		return fmt.Errorf("failed to apply points delta: %w", err)
	}
	return nil
}

// Seed creates the balance row for a family entering a group. Returns a
// unique-violation error if the row already exists.
func (r *Repository) Seed(ctx context.Context, q database.DBTX, familyID, groupID int64, amount int) error {
	query := `
		INSERT INTO family_group_points (family_id, group_id, points)
		VALUES (?, ?, ?)
	`

	if _, err := q.ExecContext(ctx, query, familyID, groupID, amount); err != nil {
		return fmt.Errorf("failed to seed points row: %w", err)
	}
	return nil
}

// Get returns a family's balance in a group. A missing row reads as zero.
func (r *Repository) Get(ctx context.Context, familyID, groupID int64) (int, error) {
	query := `
		SELECT points FROM family_group_points
		WHERE family_id = ? AND group_id = ?
	`

	var balance int
	err := r.db.QueryRowContext(ctx, query, familyID, groupID).Scan(&balance)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to get points balance: %w", err)
	}
	return balance, nil
}

// ListByGroup retrieves all balances in a group, highest first
func (r *Repository) ListByGroup(ctx context.Context, groupID int64) ([]*Balance, error) {
	query := `
		SELECT p.id, p.family_id, p.group_id, p.points, f.name
		FROM family_group_points p
		JOIN families f ON p.family_id = f.id
		WHERE p.group_id = ?
		ORDER BY p.points DESC, f.name
	`

	rows, err := r.db.QueryContext(ctx, query, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to list balances: %w", err)
	}
	defer rows.Close()

	var balances []*Balance
	for rows.Next() {
		balance := &Balance{}
		if err := rows.Scan(
			&balance.ID,
			&balance.FamilyID,
			&balance.GroupID,
			&balance.Points,
			&balance.FamilyName,
		); err != nil {
			return nil, fmt.Errorf("failed to scan balance: %w", err)
		}
		balances = append(balances, balance)
	}

	return balances, nil
}

// Delete removes a family's balance row in a group
func (r *Repository) Delete(ctx context.Context, q database.DBTX, familyID, groupID int64) error {
	query := `DELETE FROM family_group_points WHERE family_id = ? AND group_id = ?`

	if _, err := q.ExecContext(ctx, query, familyID, groupID); err != nil {
		return fmt.Errorf("failed to delete points row: %w", err)
	}
	return nil
}
