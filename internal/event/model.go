package event

import "time"

// Status represents the lifecycle state of a sitting request
type Status string

const (
	// StatusPending is an open request, visible to all group members
	StatusPending Status = "PENDING"
	// StatusAccepted means one family has committed to perform the sitting
	StatusAccepted Status = "ACCEPTED"
	// StatusPast is terminal; the holding family has been paid out
	StatusPast Status = "PAST"
)

// Event is a babysitting request exchanged within a group. FamilyID is the
// holder: the creator while pending, the accepting family once accepted.
// The holder at expiry is the family credited the event's points.
type Event struct {
	ID              int64     `json:"id"`
	GroupID         int64     `json:"group_id"`
	CreatorFamilyID int64     `json:"creator_family_id"`
	FamilyID        int64     `json:"family_id"`
	Name            string    `json:"name"`
	Description     *string   `json:"description,omitempty"`
	StartTime       time.Time `json:"start_time"`
	EndTime         time.Time `json:"end_time"`
	Points          int       `json:"points"`
	Status          Status    `json:"status"`
	AcceptedBy      *string   `json:"accepted_by,omitempty"`
	CreatedAt       time.Time `json:"created_at"`

	// Families that declined the request. Advisory only: a per-viewer
	// filter, never a status or ledger input.
	RejectedFamilyIDs []int64 `json:"rejected_family_ids,omitempty"`
}
