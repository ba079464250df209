package invitation

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"sitterswap/internal/database"
)

// Repository handles invitation data persistence
type Repository struct {
	db *database.DB
}

// NewRepository creates a new invitation repository
func NewRepository(db *database.DB) *Repository {
	return &Repository{db: db}
}

const invitationColumns = `id, inviter_family_id, invitee_email, status, expires_at, created_at`

// Create inserts a new pending invitation
func (r *Repository) Create(ctx context.Context, inviterFamilyID int64, email string, expiresAt time.Time) (*Invitation, error) {
	query := `
		INSERT INTO invitations (inviter_family_id, invitee_email, status, expires_at)
		VALUES (?, ?, ?, ?)
		RETURNING ` + invitationColumns

	return r.scanOne(r.db.QueryRowContext(ctx, query, inviterFamilyID, email, StatusPending, expiresAt))
}

// GetByID retrieves an invitation by its ID
func (r *Repository) GetByID(ctx context.Context, id int64) (*Invitation, error) {
	query := `SELECT ` + invitationColumns + ` FROM invitations WHERE id = ?`

	inv, err := r.scanOne(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return inv, nil
}

// ListForEmail retrieves pending, unexpired invitations addressed to an email
func (r *Repository) ListForEmail(ctx context.Context, email string, now time.Time) ([]*Invitation, error) {
	query := `
		SELECT ` + invitationColumns + `
		FROM invitations
		WHERE invitee_email = ? AND status = ? AND expires_at > ?
		ORDER BY created_at DESC
	`
	return r.list(ctx, query, email, StatusPending, now)
}

// ListByFamily retrieves a family's outgoing invitations, newest first
func (r *Repository) ListByFamily(ctx context.Context, familyID int64) ([]*Invitation, error) {
	query := `
		SELECT ` + invitationColumns + `
		FROM invitations
		WHERE inviter_family_id = ?
		ORDER BY created_at DESC
	`
	return r.list(ctx, query, familyID)
}

// Resolve moves a still-pending invitation to a terminal status. The status
// guard makes each invitation resolve at most once; a lost race reports
// false.
func (r *Repository) Resolve(ctx context.Context, q database.DBTX, id int64, to Status) (bool, error) {
	query := `UPDATE invitations SET status = ? WHERE id = ? AND status = ?`

	result, err := q.ExecContext(ctx, query, to, id, StatusPending)
	if err != nil {
		return false, fmt.Errorf("failed to resolve invitation: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected == 1, nil
}

func (r *Repository) list(ctx context.Context, query string, args ...interface{}) ([]*Invitation, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list invitations: %w", err)
	}
	defer rows.Close()

	var invitations []*Invitation
	for rows.Next() {
		inv := &Invitation{}
		err := rows.Scan(&inv.ID, &inv.InviterFamilyID, &inv.InviteeEmail, &inv.Status, &inv.ExpiresAt, &inv.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan invitation: %w", err)
		}
		invitations = append(invitations, inv)
	}
	return invitations, nil
}

func (r *Repository) scanOne(row *sql.Row) (*Invitation, error) {
	inv := &Invitation{}
	err := row.Scan(&inv.ID, &inv.InviterFamilyID, &inv.InviteeEmail, &inv.Status, &inv.ExpiresAt, &inv.CreatedAt)
	if err != nil {
		return nil, err
	}
	return inv, nil
}
