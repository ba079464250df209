package family

import "time"

// Family is the account-holding unit. One or more users belong to a family;
// points balances and events are held by families, not individual users.
type Family struct {
	ID             int64     `json:"id"`
	Name           string    `json:"name"`
	HomeAddress    *string   `json:"home_address,omitempty"`
	ImageURL       *string   `json:"image_url,omitempty"`
	CurrentAdminID *int64    `json:"current_admin_id,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// Child belongs to exactly one family and is removed with it
type Child struct {
	ID        int64      `json:"id"`
	FamilyID  int64      `json:"family_id"`
	Name      string     `json:"name"`
	BirthDate *time.Time `json:"birth_date,omitempty"`
}
