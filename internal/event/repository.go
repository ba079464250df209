package event

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"sitterswap/internal/database"
)

// Repository handles event data persistence. Methods that participate in a
// state transition take the caller's transaction as q; pure reads run
// against the pool.
type Repository struct {
	db *database.DB
}

// NewRepository creates a new event repository
func NewRepository(db *database.DB) *Repository {
	return &Repository{db: db}
}

const eventColumns = `id, group_id, creator_family_id, family_id, name, description, start_time, end_time, points, status, accepted_by, created_at`

// Payout identifies who gets credited when an event expires
type Payout struct {
	FamilyID int64
	GroupID  int64
	Points   int
}

// Create inserts a new pending event held by its creator
func (r *Repository) Create(ctx context.Context, q database.DBTX, creatorFamilyID int64, req *CreateEventRequest) (*Event, error) {
	query := `
		INSERT INTO events (group_id, creator_family_id, family_id, name, description, start_time, end_time, points, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING ` + eventColumns

	return scanEvent(q.QueryRowContext(ctx, query,
		req.GroupID,
		creatorFamilyID,
		creatorFamilyID,
		req.Name,
		req.Description,
		req.StartTime,
		req.EndTime,
		req.Points,
		StatusPending,
	))
}

// GetByID retrieves an event by its ID
func (r *Repository) GetByID(ctx context.Context, q database.DBTX, id int64) (*Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = ?`

	ev, err := scanEvent(q.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	return ev, nil
}

// ListOpenByGroup retrieves pending events in a group, oldest start first,
// excluding events the viewing family has declined.
func (r *Repository) ListOpenByGroup(ctx context.Context, groupID, viewerFamilyID int64) ([]*Event, error) {
	query := `
		SELECT ` + eventColumns + `
		FROM events
		WHERE group_id = ? AND status = ?
		  AND id NOT IN (SELECT event_id FROM event_rejections WHERE family_id = ?)
		ORDER BY start_time
	`
	return r.list(ctx, query, groupID, StatusPending, viewerFamilyID)
}

// ListPastByGroup retrieves expired events in a group, newest first
func (r *Repository) ListPastByGroup(ctx context.Context, groupID int64) ([]*Event, error) {
	query := `
		SELECT ` + eventColumns + `
		FROM events
		WHERE group_id = ? AND status = ?
		ORDER BY end_time DESC
	`
	return r.list(ctx, query, groupID, StatusPast)
}

// ListByFamily retrieves events a family created or is holding
func (r *Repository) ListByFamily(ctx context.Context, familyID int64) ([]*Event, error) {
	query := `
		SELECT ` + eventColumns + `
		FROM events
		WHERE creator_family_id = ? OR family_id = ?
		ORDER BY start_time
	`
	return r.list(ctx, query, familyID, familyID)
}

// MarkAccepted moves a still-pending event to ACCEPTED, handing it to the
// accepting family. The status guard makes racing accepts resolve to
// exactly one winner; the loser sees no rows affected.
func (r *Repository) MarkAccepted(ctx context.Context, q database.DBTX, id, familyID int64, acceptedBy string) (bool, error) {
	query := `
		UPDATE events
		SET status = ?, family_id = ?, accepted_by = ?
		WHERE id = ? AND status = ?
	`

	result, err := q.ExecContext(ctx, query, StatusAccepted, familyID, acceptedBy, id, StatusPending)
	if err != nil {
		return false, fmt.Errorf("failed to accept event: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected == 1, nil
}

// RevertToPending undoes an acceptance, returning the event to its creator.
// Guarded on both status and the expected holder so a concurrent sweep or
// second cancel cannot double-apply the paired points reversal.
func (r *Repository) RevertToPending(ctx context.Context, q database.DBTX, id, creatorFamilyID, expectedHolderID int64) (bool, error) {
	query := `
		UPDATE events
		SET status = ?, family_id = ?, accepted_by = NULL
		WHERE id = ? AND status = ? AND family_id = ?
	`

	result, err := q.ExecContext(ctx, query, StatusPending, creatorFamilyID, id, StatusAccepted, expectedHolderID)
	if err != nil {
		return false, fmt.Errorf("failed to cancel acceptance: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected == 1, nil
}

// MarkPast force-expires an event that is still open, returning the payout
// for the family holding it at that moment. Returns nil when the event was
// already terminal (or gone), so concurrent sweeps credit exactly once.
func (r *Repository) MarkPast(ctx context.Context, q database.DBTX, id int64) (*Payout, error) {
	query := `
		UPDATE events
		SET status = ?
		WHERE id = ? AND status IN (?, ?)
		RETURNING family_id, group_id, points
	`

	payout := &Payout{}
	err := q.QueryRowContext(ctx, query, StatusPast, id, StatusPending, StatusAccepted).Scan(
		&payout.FamilyID,
		&payout.GroupID,
		&payout.Points,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to expire event: %w", err)
	}
	return payout, nil
}

// ListExpiredIDs returns ids of events whose end time has passed but are
// still in a non-terminal status.
func (r *Repository) ListExpiredIDs(ctx context.Context, now time.Time) ([]int64, error) {
	query := `
		SELECT id FROM events
		WHERE end_time < ? AND status IN (?, ?)
		ORDER BY id
	`

	rows, err := r.db.QueryContext(ctx, query, now, StatusPending, StatusAccepted)
	if err != nil {
		return nil, fmt.Errorf("failed to list expired events: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan event id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Update rewrites the mutable fields of an event. The service resolves the
// patch against current values before calling.
func (r *Repository) Update(ctx context.Context, q database.DBTX, ev *Event) error {
	query := `
		UPDATE events
		SET name = ?, description = ?, start_time = ?, end_time = ?, points = ?, group_id = ?, family_id = ?
		WHERE id = ?
	`

	result, err := q.ExecContext(ctx, query,
		ev.Name,
		ev.Description,
		ev.StartTime,
		ev.EndTime,
		ev.Points,
		ev.GroupID,
		ev.FamilyID,
		ev.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update event: %w", err)
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

// Delete removes an event and its rejection rows
func (r *Repository) Delete(ctx context.Context, q database.DBTX, id int64) error {
	query := `DELETE FROM events WHERE id = ?`

	result, err := q.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete event: %w", err)
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

// ToggleRejection flips a family's membership in the event's rejection set.
// Returns true when the family is rejected after the call. Callers run it
// inside a transaction so the delete and insert stay atomic under racing
// toggles.
func (r *Repository) ToggleRejection(ctx context.Context, q database.DBTX, eventID, familyID int64) (bool, error) {
	del := `DELETE FROM event_rejections WHERE event_id = ? AND family_id = ?`

	result, err := q.ExecContext(ctx, del, eventID, familyID)
	if err != nil {
		return false, fmt.Errorf("failed to toggle rejection: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected > 0 {
		return false, nil
	}

	ins := `INSERT INTO event_rejections (event_id, family_id) VALUES (?, ?)`
	if _, err := q.ExecContext(ctx, ins, eventID, familyID); err != nil {
		return false, fmt.Errorf("failed to record rejection: %w", err)
	}
	return true, nil
}

// ListRejections returns the family ids that declined an event
func (r *Repository) ListRejections(ctx context.Context, eventID int64) ([]int64, error) {
	query := `SELECT family_id FROM event_rejections WHERE event_id = ? ORDER BY family_id`

	rows, err := r.db.QueryContext(ctx, query, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to list rejections: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan rejection: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// ListUserIDsForGroup returns the user ids of all member families in a
// group except the excluded family. Used for fan-out notifications.
func (r *Repository) ListUserIDsForGroup(ctx context.Context, groupID, excludeFamilyID int64) ([]int64, error) {
	query := `
		SELECT u.id
		FROM users u
		JOIN group_members gm ON u.family_id = gm.family_id
		WHERE gm.group_id = ? AND gm.family_id != ?
		ORDER BY u.id
	`
	return r.listIDs(ctx, query, groupID, excludeFamilyID)
}

// ListUserIDsForFamily returns the user ids belonging to a family
func (r *Repository) ListUserIDsForFamily(ctx context.Context, familyID int64) ([]int64, error) {
	query := `SELECT id FROM users WHERE family_id = ? ORDER BY id`
	return r.listIDs(ctx, query, familyID)
}

func (r *Repository) list(ctx context.Context, query string, args ...interface{}) ([]*Event, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	var events []*Event
	for rows.Next() {
		ev, err := scanEventRows(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, nil
}

func (r *Repository) listIDs(ctx context.Context, query string, args ...interface{}) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list ids: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func scanEvent(row *sql.Row) (*Event, error) {
	ev := &Event{}
	err := row.Scan(
		&ev.ID,
		&ev.GroupID,
		&ev.CreatorFamilyID,
		&ev.FamilyID,
		&ev.Name,
		&ev.Description,
		&ev.StartTime,
		&ev.EndTime,
		&ev.Points,
		&ev.Status,
		&ev.AcceptedBy,
		&ev.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return ev, nil
}

func scanEventRows(rows *sql.Rows) (*Event, error) {
	ev := &Event{}
	err := rows.Scan(
		&ev.ID,
		&ev.GroupID,
		&ev.CreatorFamilyID,
		&ev.FamilyID,
		&ev.Name,
		&ev.Description,
		&ev.StartTime,
		&ev.EndTime,
		&ev.Points,
		&ev.Status,
		&ev.AcceptedBy,
		&ev.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan event: %w", err)
	}
	return ev, nil
}
