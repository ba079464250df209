package user

import "time"

// User represents a registered member. A user belongs to at most one family
// and acts on that family's behalf everywhere in the API.
type User struct {
	ID           int64     `json:"id"`
	FamilyID     *int64    `json:"family_id,omitempty"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}
