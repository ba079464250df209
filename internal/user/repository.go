package user

import (
	"context"
	"database/sql"
	"fmt"

	"sitterswap/internal/database"
)

// Repository handles user data persistence
type Repository struct {
	db *database.DB
}

// NewRepository creates a new user repository
func NewRepository(db *database.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new user into the database
func (r *Repository) Create(ctx context.Context, name, email, passwordHash string) (*User, error) {
	query := `
		INSERT INTO users (name, email, password_hash)
		VALUES (?, ?, ?)
		RETURNING id, family_id, name, email, password_hash, created_at
	`

	user := &User{}
	err := r.db.QueryRowContext(ctx, query, name, email, passwordHash).Scan(
		&user.ID,
		&user.FamilyID,
		&user.Name,
		&user.Email,
		&user.PasswordHash,
		&user.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

// GetByID retrieves a user by their ID
func (r *Repository) GetByID(ctx context.Context, id int64) (*User, error) {
	query := `
		SELECT id, family_id, name, email, password_hash, created_at
		FROM users
		WHERE id = ?
	`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

// GetByEmail retrieves a user by their email address
func (r *Repository) GetByEmail(ctx context.Context, email string) (*User, error) {
	query := `
		SELECT id, family_id, name, email, password_hash, created_at
		FROM users
		WHERE email = ?
	`
	return r.scanOne(r.db.QueryRowContext(ctx, query, email))
}

// SetFamily assigns or clears a user's family membership
func (r *Repository) SetFamily(ctx context.Context, q database.DBTX, userID int64, familyID *int64) error {
	query := `UPDATE users SET family_id = ? WHERE id = ?`

	result, err := q.ExecContext(ctx, query, familyID, userID)
	if err != nil {
		return fmt.Errorf("failed to set user family: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("user not found")
	}

	return nil
}

// ListByFamilyID retrieves all members of a family
func (r *Repository) ListByFamilyID(ctx context.Context, familyID int64) ([]*User, error) {
	query := `
		SELECT id, family_id, name, email, password_hash, created_at
		FROM users
		WHERE family_id = ?
		ORDER BY created_at
	`

	rows, err := r.db.QueryContext(ctx, query, familyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list family members: %w", err)
	}
	defer rows.Close()

	var users []*User
	for rows.Next() {
		user := &User{}
		if err := rows.Scan(
			&user.ID,
			&user.FamilyID,
			&user.Name,
			&user.Email,
			&user.PasswordHash,
			&user.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}

	return users, nil
}

func (r *Repository) scanOne(row *sql.Row) (*User, error) {
	user := &User{}
	err := row.Scan(
		&user.ID,
		&user.FamilyID,
		&user.Name,
		&user.Email,
		&user.PasswordHash,
		&user.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}
