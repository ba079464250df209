package notification

import "time"

// NotificationType classifies what a notification is about
type NotificationType string

const (
	TypeEventCreated     NotificationType = "EVENT_CREATED"
	TypeEventAccepted    NotificationType = "EVENT_ACCEPTED"
	TypeEventCancelled   NotificationType = "EVENT_CANCELLED"
	TypeFamilyInvitation NotificationType = "FAMILY_INVITATION"
)

// Notification is a side-effect record produced by state transitions. It is
// informational only and never authoritative for any balance or status.
type Notification struct {
	ID                int64            `json:"id"`
	RecipientID       int64            `json:"recipient_id"`
	Type              NotificationType `json:"type"`
	Message           string           `json:"message"`
	IsRead            bool             `json:"is_read"`
	RelatedEntityType *string          `json:"related_entity_type,omitempty"` // e.g., "EVENT", "INVITATION"
	RelatedEntityID   *int64           `json:"related_entity_id,omitempty"`
	CreatedAt         time.Time        `json:"created_at"`
}
