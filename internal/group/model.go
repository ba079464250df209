package group

import "time"

// Group is a circle of families exchanging babysitting within a shared
// points economy. The admin family administers membership and must itself
// be a member.
type Group struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	Description   *string   `json:"description,omitempty"`
	InviteCode    string    `json:"invite_code"`
	AdminFamilyID int64     `json:"admin_family_id"`
	CreatedAt     time.Time `json:"created_at"`
}

// Member represents a family's membership in a group
type Member struct {
	ID       int64     `json:"id"`
	GroupID  int64     `json:"group_id"`
	FamilyID int64     `json:"family_id"`
	JoinedAt time.Time `json:"joined_at"`

	// Populated via JOIN
	FamilyName string `json:"family_name,omitempty"`
}
