package invitation

import "time"

// Status represents the resolution state of a family invitation
type Status string

const (
	StatusPending  Status = "PENDING"
	StatusAccepted Status = "ACCEPTED"
	StatusDeclined Status = "DECLINED"
)

// Invitation asks a user, identified by email, to join a family. It is
// resolved exactly once; an expired invitation can no longer be resolved.
type Invitation struct {
	ID              int64     `json:"id"`
	InviterFamilyID int64     `json:"inviter_family_id"`
	InviteeEmail    string    `json:"invitee_email"`
	Status          Status    `json:"status"`
	ExpiresAt       time.Time `json:"expires_at"`
	CreatedAt       time.Time `json:"created_at"`
}
