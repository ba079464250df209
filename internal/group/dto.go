package group

import "sitterswap/internal/points"

// CreateGroupRequest represents the request to create a new group
type CreateGroupRequest struct {
	Name        string  `json:"name" validate:"required,min=1,max=100"`
	Description *string `json:"description,omitempty"`
}

// UpdateGroupRequest represents the request to update a group
type UpdateGroupRequest struct {
	Name        *string `json:"name,omitempty" validate:"omitempty,min=1,max=100"`
	Description *string `json:"description,omitempty"`
}

// JoinGroupRequest represents the request to join a group by invite code
type JoinGroupRequest struct {
	InviteCode string `json:"invite_code" validate:"required"`
}

// TransferAdminRequest represents the request to hand group administration
// to another member family
type TransferAdminRequest struct {
	FamilyID int64 `json:"family_id" validate:"required"`
}

// GroupResponse represents the response for a group
type GroupResponse struct {
	ID            int64             `json:"id"`
	Name          string            `json:"name"`
	Description   *string           `json:"description,omitempty"`
	InviteCode    string            `json:"invite_code,omitempty"`
	AdminFamilyID int64             `json:"admin_family_id"`
	CreatedAt     string            `json:"created_at"`
	Members       []*MemberResponse `json:"members,omitempty"`
	Balances      []*points.Balance `json:"balances,omitempty"`
}

// MemberResponse represents a member family in a group response
type MemberResponse struct {
	FamilyID   int64  `json:"family_id"`
	FamilyName string `json:"family_name"`
	JoinedAt   string `json:"joined_at"`
}

// ToResponse converts a Group model to a GroupResponse DTO
func (g *Group) ToResponse() *GroupResponse {
	return &GroupResponse{
		ID:            g.ID,
		Name:          g.Name,
		Description:   g.Description,
		InviteCode:    g.InviteCode,
		AdminFamilyID: g.AdminFamilyID,
		CreatedAt:     g.CreatedAt.Format("2006-01-02T15:04:05Z"),
	}
}

// ToResponse converts a Member model to a MemberResponse DTO
func (m *Member) ToResponse() *MemberResponse {
	return &MemberResponse{
		FamilyID:   m.FamilyID,
		FamilyName: m.FamilyName,
		JoinedAt:   m.JoinedAt.Format("2006-01-02T15:04:05Z"),
	}
}
