package family

import (
	"context"
	"database/sql"
	"fmt"

	"sitterswap/internal/database"
)

// Repository handles family data persistence
type Repository struct {
	db *database.DB
}

// NewRepository creates a new family repository
func NewRepository(db *database.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new family into the database
func (r *Repository) Create(ctx context.Context, q database.DBTX, req *CreateFamilyRequest, adminUserID int64) (*Family, error) {
	query := `
		INSERT INTO families (name, home_address, image_url, current_admin_id)
		VALUES (?, ?, ?, ?)
		RETURNING id, name, home_address, image_url, current_admin_id, created_at
	`

	family := &Family{}
	err := q.QueryRowContext(ctx, query, req.Name, req.HomeAddress, req.ImageURL, adminUserID).Scan(
		&family.ID,
		&family.Name,
		&family.HomeAddress,
		&family.ImageURL,
		&family.CurrentAdminID,
		&family.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create family: %w", err)
	}

	return family, nil
}

// GetByID retrieves a family by its ID
func (r *Repository) GetByID(ctx context.Context, id int64) (*Family, error) {
	query := `
		SELECT id, name, home_address, image_url, current_admin_id, created_at
		FROM families
		WHERE id = ?
	`

	family := &Family{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&family.ID,
		&family.Name,
		&family.HomeAddress,
		&family.ImageURL,
		&family.CurrentAdminID,
		&family.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get family: %w", err)
	}

	return family, nil
}

// Update modifies a family's profile fields
func (r *Repository) Update(ctx context.Context, id int64, req *UpdateFamilyRequest) (*Family, error) {
	query := `
		UPDATE families
		SET name = COALESCE(?, name),
		    home_address = COALESCE(?, home_address),
		    image_url = COALESCE(?, image_url)
		WHERE id = ?
		RETURNING id, name, home_address, image_url, current_admin_id, created_at
	`

	family := &Family{}
	err := r.db.QueryRowContext(ctx, query, req.Name, req.HomeAddress, req.ImageURL, id).Scan(
		&family.ID,
		&family.Name,
		&family.HomeAddress,
		&family.ImageURL,
		&family.CurrentAdminID,
		&family.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to update family: %w", err)
	}

	return family, nil
}

// SetCurrentAdmin changes the family's acting admin user
func (r *Repository) SetCurrentAdmin(ctx context.Context, familyID, userID int64) error {
	query := `UPDATE families SET current_admin_id = ? WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query, userID, familyID)
	if err != nil {
		return fmt.Errorf("failed to set current admin: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("family not found")
	}

	return nil
}

// ReassignCurrentAdmin hands the admin pointer to the family's longest
// standing remaining member when it still references the given user, leaving
// it untouched otherwise.
func (r *Repository) ReassignCurrentAdmin(ctx context.Context, q database.DBTX, familyID, departedUserID int64) error {
	query := `
		UPDATE families
		SET current_admin_id = (
			SELECT id FROM users WHERE family_id = ? ORDER BY created_at LIMIT 1
		)
		WHERE id = ? AND current_admin_id = ?
	`

	if _, err := q.ExecContext(ctx, query, familyID, familyID, departedUserID); err != nil {
		return fmt.Errorf("failed to reassign current admin: %w", err)
	}
	return nil
}

// Delete removes a family. Children, points rows, memberships and outgoing
// invitations go with it via foreign keys.
func (r *Repository) Delete(ctx context.Context, q database.DBTX, id int64) error {
	query := `DELETE FROM families WHERE id = ?`

	if _, err := q.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("failed to delete family: %w", err)
	}
	return nil
}

// CountMembers returns the number of users in a family
func (r *Repository) CountMembers(ctx context.Context, q database.DBTX, familyID int64) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM users WHERE family_id = ?`
	if err := q.QueryRowContext(ctx, query, familyID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count members: %w", err)
	}
	return count, nil
}

// HasOpenEvents reports whether any non-PAST event still references the
// family as creator or holder. Such a family cannot be deleted.
func (r *Repository) HasOpenEvents(ctx context.Context, q database.DBTX, familyID int64) (bool, error) {
	var count int
	query := `
		SELECT COUNT(*) FROM events
		WHERE (creator_family_id = ? OR family_id = ?) AND status != 'PAST'
	`
	if err := q.QueryRowContext(ctx, query, familyID, familyID).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to check family events: %w", err)
	}
	return count > 0, nil
}

// AddChild inserts a child for a family
func (r *Repository) AddChild(ctx context.Context, familyID int64, req *AddChildRequest) (*Child, error) {
	query := `
		INSERT INTO children (family_id, name, birth_date)
		VALUES (?, ?, ?)
		RETURNING id, family_id, name, birth_date
	`

	child := &Child{}
	err := r.db.QueryRowContext(ctx, query, familyID, req.Name, req.BirthDate).Scan(
		&child.ID,
		&child.FamilyID,
		&child.Name,
		&child.BirthDate,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to add child: %w", err)
	}

	return child, nil
}

// ListChildren retrieves all children of a family
func (r *Repository) ListChildren(ctx context.Context, familyID int64) ([]*Child, error) {
	query := `
		SELECT id, family_id, name, birth_date
		FROM children
		WHERE family_id = ?
		ORDER BY id
	`

	rows, err := r.db.QueryContext(ctx, query, familyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list children: %w", err)
	}
	defer rows.Close()

	var children []*Child
	for rows.Next() {
		child := &Child{}
		if err := rows.Scan(&child.ID, &child.FamilyID, &child.Name, &child.BirthDate); err != nil {
			return nil, fmt.Errorf("failed to scan child: %w", err)
		}
		children = append(children, child)
	}

	return children, nil
}

// DeleteChild removes a child from a family
func (r *Repository) DeleteChild(ctx context.Context, familyID, childID int64) error {
	query := `DELETE FROM children WHERE id = ? AND family_id = ?`

	result, err := r.db.ExecContext(ctx, query, childID, familyID)
	if err != nil {
		return fmt.Errorf("failed to delete child: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return sql.ErrNoRows
	}

	return nil
}
