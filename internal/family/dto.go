package family

import (
	"time"

	"sitterswap/internal/user"
)

// CreateFamilyRequest represents the request to create a family
type CreateFamilyRequest struct {
	Name        string  `json:"name" validate:"required,min=1,max=100"`
	HomeAddress *string `json:"home_address,omitempty"`
	ImageURL    *string `json:"image_url,omitempty"`
}

// UpdateFamilyRequest represents the request to update family profile fields
type UpdateFamilyRequest struct {
	Name        *string `json:"name,omitempty" validate:"omitempty,min=1,max=100"`
	HomeAddress *string `json:"home_address,omitempty"`
	ImageURL    *string `json:"image_url,omitempty"`
}

// AddChildRequest represents the request to add a child
type AddChildRequest struct {
	Name      string     `json:"name" validate:"required,min=1,max=100"`
	BirthDate *time.Time `json:"birth_date,omitempty"`
}

// SetAdminRequest represents the request to change the family's current admin
type SetAdminRequest struct {
	UserID int64 `json:"user_id" validate:"required"`
}

// FamilyResponse represents the response for a family
type FamilyResponse struct {
	ID             int64                `json:"id"`
	Name           string               `json:"name"`
	HomeAddress    *string              `json:"home_address,omitempty"`
	ImageURL       *string              `json:"image_url,omitempty"`
	CurrentAdminID *int64               `json:"current_admin_id,omitempty"`
	CreatedAt      string               `json:"created_at"`
	Members        []*user.UserResponse `json:"members,omitempty"`
	Children       []*ChildResponse     `json:"children,omitempty"`
}

// ChildResponse represents a child in a family response
type ChildResponse struct {
	ID        int64   `json:"id"`
	Name      string  `json:"name"`
	BirthDate *string `json:"birth_date,omitempty"`
}

// ToResponse converts a Family model to a FamilyResponse DTO
func (f *Family) ToResponse() *FamilyResponse {
	return &FamilyResponse{
		ID:             f.ID,
		Name:           f.Name,
		HomeAddress:    f.HomeAddress,
		ImageURL:       f.ImageURL,
		CurrentAdminID: f.CurrentAdminID,
		CreatedAt:      f.CreatedAt.Format("2006-01-02T15:04:05Z"),
	}
}

// ToResponse converts a Child model to a ChildResponse DTO
func (c *Child) ToResponse() *ChildResponse {
	resp := &ChildResponse{
		ID:   c.ID,
		Name: c.Name,
	}
	if c.BirthDate != nil {
		s := c.BirthDate.Format("2006-01-02")
		resp.BirthDate = &s
	}
	return resp
}
