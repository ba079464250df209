package invitation

import "time"

// CreateInvitationRequest represents the request to invite a user to the
// caller's family. ExpiresAt is optional; a zero value defaults to seven
// days from now.
type CreateInvitationRequest struct {
	Email     string     `json:"email" validate:"required,email"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// InvitationResponse represents the response for an invitation
type InvitationResponse struct {
	ID                int64  `json:"id"`
	InviterFamilyID   int64  `json:"inviter_family_id"`
	InviterFamilyName string `json:"inviter_family_name,omitempty"`
	InviteeEmail      string `json:"invitee_email"`
	Status            Status `json:"status"`
	ExpiresAt         string `json:"expires_at"`
	CreatedAt         string `json:"created_at"`
}

// ToResponse converts an Invitation model to an InvitationResponse DTO
func (i *Invitation) ToResponse() *InvitationResponse {
	return &InvitationResponse{
		ID:              i.ID,
		InviterFamilyID: i.InviterFamilyID,
		InviteeEmail:    i.InviteeEmail,
		Status:          i.Status,
		ExpiresAt:       i.ExpiresAt.Format(time.RFC3339),
		CreatedAt:       i.CreatedAt.Format(time.RFC3339),
	}
}
