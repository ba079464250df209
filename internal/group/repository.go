package group

import (
	"context"
	"database/sql"
	"fmt"

	"sitterswap/internal/database"
)

// Repository handles group data persistence
type Repository struct {
	db *database.DB
}

// NewRepository creates a new group repository
func NewRepository(db *database.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new group into the database
func (r *Repository) Create(ctx context.Context, q database.DBTX, req *CreateGroupRequest, inviteCode string, adminFamilyID int64) (*Group, error) {
	query := `
		INSERT INTO groups (name, description, invite_code, admin_family_id)
		VALUES (?, ?, ?, ?)
		RETURNING id, name, description, invite_code, admin_family_id, created_at
	`

	group := &Group{}
	err := q.QueryRowContext(ctx, query, req.Name, req.Description, inviteCode, adminFamilyID).Scan(
		&group.ID,
		&group.Name,
		&group.Description,
		&group.InviteCode,
		&group.AdminFamilyID,
		&group.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create group: %w", err)
	}

	return group, nil
}

// GetByID retrieves a group by its ID
func (r *Repository) GetByID(ctx context.Context, id int64) (*Group, error) {
	query := `
		SELECT id, name, description, invite_code, admin_family_id, created_at
		FROM groups
		WHERE id = ?
	`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

// GetByInviteCode resolves a group by its unique invite code
func (r *Repository) GetByInviteCode(ctx context.Context, code string) (*Group, error) {
	query := `
		SELECT id, name, description, invite_code, admin_family_id, created_at
		FROM groups
		WHERE invite_code = ?
	`
	return r.scanOne(r.db.QueryRowContext(ctx, query, code))
}

// ListByFamilyID retrieves all groups a family belongs to
func (r *Repository) ListByFamilyID(ctx context.Context, familyID int64) ([]*Group, error) {
	query := `
		SELECT g.id, g.name, g.description, g.invite_code, g.admin_family_id, g.created_at
		FROM groups g
		JOIN group_members gm ON g.id = gm.group_id
		WHERE gm.family_id = ?
		ORDER BY g.created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, familyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}
	defer rows.Close()

	var groups []*Group
	for rows.Next() {
		group := &Group{}
		if err := rows.Scan(
			&group.ID,
			&group.Name,
			&group.Description,
			&group.InviteCode,
			&group.AdminFamilyID,
			&group.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan group: %w", err)
		}
		groups = append(groups, group)
	}

	return groups, nil
}

// Update modifies an existing group
func (r *Repository) Update(ctx context.Context, id int64, req *UpdateGroupRequest) (*Group, error) {
	query := `
		UPDATE groups
		SET name = COALESCE(?, name),
		    description = COALESCE(?, description)
		WHERE id = ?
		RETURNING id, name, description, invite_code, admin_family_id, created_at
	`
	return r.scanOne(r.db.QueryRowContext(ctx, query, req.Name, req.Description, id))
}

// SetAdmin hands group administration to another family
func (r *Repository) SetAdmin(ctx context.Context, groupID, familyID int64) error {
	query := `UPDATE groups SET admin_family_id = ? WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query, familyID, groupID)
	if err != nil {
		return fmt.Errorf("failed to set group admin: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("group not found")
	}

	return nil
}

// Delete removes a group. Its events, memberships and points rows cascade.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	query := `DELETE FROM groups WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete group: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("group not found")
	}

	return nil
}

// AddMember adds a family to a group
func (r *Repository) AddMember(ctx context.Context, q database.DBTX, groupID, familyID int64) (*Member, error) {
	query := `
		INSERT INTO group_members (group_id, family_id)
		VALUES (?, ?)
		RETURNING id, group_id, family_id, joined_at
	`

	member := &Member{}
	err := q.QueryRowContext(ctx, query, groupID, familyID).Scan(
		&member.ID,
		&member.GroupID,
		&member.FamilyID,
		&member.JoinedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to add member: %w", err)
	}

	return member, nil
}

// IsMember reports whether a family belongs to a group
func (r *Repository) IsMember(ctx context.Context, groupID, familyID int64) (bool, error) {
	var count int
	query := `SELECT COUNT(*) FROM group_members WHERE group_id = ? AND family_id = ?`
	if err := r.db.QueryRowContext(ctx, query, groupID, familyID).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to check membership: %w", err)
	}
	return count > 0, nil
}

// ListMembers retrieves all member families of a group
func (r *Repository) ListMembers(ctx context.Context, groupID int64) ([]*Member, error) {
	query := `
		SELECT gm.id, gm.group_id, gm.family_id, gm.joined_at, f.name
		FROM group_members gm
		JOIN families f ON gm.family_id = f.id
		WHERE gm.group_id = ?
		ORDER BY gm.joined_at
	`

	rows, err := r.db.QueryContext(ctx, query, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	defer rows.Close()

	var members []*Member
	for rows.Next() {
		member := &Member{}
		if err := rows.Scan(
			&member.ID,
			&member.GroupID,
			&member.FamilyID,
			&member.JoinedAt,
			&member.FamilyName,
		); err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		members = append(members, member)
	}

	return members, nil
}

// RemoveMember removes a family from a group
func (r *Repository) RemoveMember(ctx context.Context, q database.DBTX, groupID, familyID int64) error {
	query := `DELETE FROM group_members WHERE group_id = ? AND family_id = ?`

	result, err := q.ExecContext(ctx, query, groupID, familyID)
	if err != nil {
		return fmt.Errorf("failed to remove member: %w", err)
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

func (r *Repository) scanOne(row *sql.Row) (*Group, error) {
	group := &Group{}
	err := row.Scan(
		&group.ID,
		&group.Name,
		&group.Description,
		&group.InviteCode,
		&group.AdminFamilyID,
		&group.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get group: %w", err)
	}
	return group, nil
}
