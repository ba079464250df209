package event

import "time"

// CreateEventRequest represents the request to create a sitting request
type CreateEventRequest struct {
	GroupID     int64     `json:"group_id" validate:"required"`
	Name        string    `json:"name" validate:"required,min=1,max=200"`
	Description *string   `json:"description,omitempty"`
	StartTime   time.Time `json:"start_time" validate:"required"`
	EndTime     time.Time `json:"end_time" validate:"required"`
	Points      int       `json:"points" validate:"required,min=1"`
}

// UpdateEventRequest is the typed patch for event edits. Only the fields
// listed here are mutable; a nil field leaves the current value unchanged.
type UpdateEventRequest struct {
	Name        *string    `json:"name,omitempty"`
	Description *string    `json:"description,omitempty"`
	StartTime   *time.Time `json:"start_time,omitempty"`
	EndTime     *time.Time `json:"end_time,omitempty"`
	Points      *int       `json:"points,omitempty"`
	GroupID     *int64     `json:"group_id,omitempty"`
	FamilyID    *int64     `json:"family_id,omitempty"`
}

// EventResponse represents the response for an event
type EventResponse struct {
	ID                int64   `json:"id"`
	GroupID           int64   `json:"group_id"`
	CreatorFamilyID   int64   `json:"creator_family_id"`
	FamilyID          int64   `json:"family_id"`
	Name              string  `json:"name"`
	Description       *string `json:"description,omitempty"`
	StartTime         string  `json:"start_time"`
	EndTime           string  `json:"end_time"`
	Points            int     `json:"points"`
	Status            Status  `json:"status"`
	AcceptedBy        *string `json:"accepted_by,omitempty"`
	CreatedAt         string  `json:"created_at"`
	RejectedFamilyIDs []int64 `json:"rejected_family_ids,omitempty"`
}

// SweepResponse reports how many events a sweep expired
type SweepResponse struct {
	Expired int `json:"expired"`
}

// ToResponse converts an Event model to an EventResponse DTO
func (e *Event) ToResponse() *EventResponse {
	return &EventResponse{
		ID:                e.ID,
		GroupID:           e.GroupID,
		CreatorFamilyID:   e.CreatorFamilyID,
		FamilyID:          e.FamilyID,
		Name:              e.Name,
		Description:       e.Description,
		StartTime:         e.StartTime.Format(time.RFC3339),
		EndTime:           e.EndTime.Format(time.RFC3339),
		Points:            e.Points,
		Status:            e.Status,
		AcceptedBy:        e.AcceptedBy,
		CreatedAt:         e.CreatedAt.Format(time.RFC3339),
		RejectedFamilyIDs: e.RejectedFamilyIDs,
	}
}
