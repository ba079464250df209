package group

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/google/uuid"

	"sitterswap/internal/database"
	"sitterswap/internal/points"
)

// Common errors
var (
	ErrGroupNotFound     = errors.New("group not found")
	ErrInvalidInviteCode = errors.New("invalid invite code")
	ErrAlreadyMember     = errors.New("family is already a member of this group")
	ErrNotMember         = errors.New("family is not a member of this group")
	ErrNotGroupAdmin     = errors.New("only the group admin can do this")
	ErrCannotRemoveAdmin = errors.New("the admin family cannot be removed")
	ErrNameRequired      = errors.New("name is required")
	ErrNoFamily          = errors.New("caller does not belong to a family")
)

const inviteCodeAttempts = 3

// Service handles group business logic
type Service struct {
	db         *database.DB
	repo       *Repository
	pointsRepo *points.Repository
}

// NewService creates a new group service
func NewService(db *database.DB, repo *Repository, pointsRepo *points.Repository) *Service {
	return &Service{db: db, repo: repo, pointsRepo: pointsRepo}
}

// Create creates a group with the founding family as member and admin, and
// seeds the founder's points row.
func (s *Service) Create(ctx context.Context, founderFamilyID int64, req *CreateGroupRequest) (*Group, error) {
	if founderFamilyID == 0 {
		return nil, ErrNoFamily
	}
	if strings.TrimSpace(req.Name) == "" {
		return nil, ErrNameRequired
	}

	var group *Group
	var err error
	for attempt := 0; attempt < inviteCodeAttempts; attempt++ {
		err = s.db.WithinTx(ctx, func(tx *database.Tx) error {
			group, err = s.repo.Create(ctx, tx, req, newInviteCode(), founderFamilyID)
			if err != nil {
				return err
			}
			if _, err := s.repo.AddMember(ctx, tx, group.ID, founderFamilyID); err != nil {
				return err
			}
			return s.pointsRepo.Seed(ctx, tx, founderFamilyID, group.ID, points.JoinSeed)
		})
		if err == nil || !database.IsUniqueViolation(err) {
			break
		}
	}
	if err != nil {
		return nil, err
	}

	return group, nil
}

// Get retrieves a group with its members. Only members may see it.
func (s *Service) Get(ctx context.Context, actorFamilyID, id int64) (*Group, []*Member, error) {
	group, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if group == nil {
		return nil, nil, ErrGroupNotFound
	}

	if err := s.requireMember(ctx, id, actorFamilyID); err != nil {
		return nil, nil, err
	}

	members, err := s.repo.ListMembers(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	return group, members, nil
}

// ListMine retrieves the groups the acting family belongs to
func (s *Service) ListMine(ctx context.Context, actorFamilyID int64) ([]*Group, error) {
	if actorFamilyID == 0 {
		return nil, ErrNoFamily
	}
	return s.repo.ListByFamilyID(ctx, actorFamilyID)
}

// Update modifies a group's name or description. Admin only.
func (s *Service) Update(ctx context.Context, actorFamilyID, id int64, req *UpdateGroupRequest) (*Group, error) {
	group, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if group == nil {
		return nil, ErrGroupNotFound
	}
	if group.AdminFamilyID != actorFamilyID {
		return nil, ErrNotGroupAdmin
	}

	updated, err := s.repo.Update(ctx, id, req)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, ErrGroupNotFound
	}
	return updated, nil
}

// Delete removes a group and everything it owns. Admin only.
func (s *Service) Delete(ctx context.Context, actorFamilyID, id int64) error {
	group, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if group == nil {
		return ErrGroupNotFound
	}
	if group.AdminFamilyID != actorFamilyID {
		return ErrNotGroupAdmin
	}

	return s.repo.Delete(ctx, id)
}

// JoinByCode adds the acting family to the group behind the invite code and
// seeds its points row. Joining a group twice is a conflict.
func (s *Service) JoinByCode(ctx context.Context, actorFamilyID int64, code string) (*Group, error) {
	if actorFamilyID == 0 {
		return nil, ErrNoFamily
	}

	group, err := s.repo.GetByInviteCode(ctx, strings.TrimSpace(code))
	if err != nil {
		return nil, err
	}
	if group == nil {
		return nil, ErrInvalidInviteCode
	}

	err = s.db.WithinTx(ctx, func(tx *database.Tx) error {
		if _, err := s.repo.AddMember(ctx, tx, group.ID, actorFamilyID); err != nil {
			return err
		}
		return s.pointsRepo.Seed(ctx, tx, actorFamilyID, group.ID, points.JoinSeed)
	})
	if err != nil {
		if database.IsUniqueViolation(err) {
			return nil, ErrAlreadyMember
		}
		return nil, err
	}

	return group, nil
}

// RemoveMember removes a family from the group and deletes its points row.
// Admin only; the admin family itself cannot be removed.
func (s *Service) RemoveMember(ctx context.Context, actorFamilyID, groupID, familyID int64) error {
	group, err := s.repo.GetByID(ctx, groupID)
	if err != nil {
		return err
	}
	if group == nil {
		return ErrGroupNotFound
	}
	if group.AdminFamilyID != actorFamilyID {
		return ErrNotGroupAdmin
	}
	if familyID == group.AdminFamilyID {
		return ErrCannotRemoveAdmin
	}

	err = s.db.WithinTx(ctx, func(tx *database.Tx) error {
		if err := s.repo.RemoveMember(ctx, tx, groupID, familyID); err != nil {
			return err
		}
		return s.pointsRepo.Delete(ctx, tx, familyID, groupID)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotMember
	}
	return err
}

// TransferAdmin hands group administration to another member family.
// Only the current admin may transfer it.
func (s *Service) TransferAdmin(ctx context.Context, actorFamilyID, groupID, newAdminFamilyID int64) error {
	group, err := s.repo.GetByID(ctx, groupID)
	if err != nil {
		return err
	}
	if group == nil {
		return ErrGroupNotFound
	}
	if group.AdminFamilyID != actorFamilyID {
		return ErrNotGroupAdmin
	}

	isMember, err := s.repo.IsMember(ctx, groupID, newAdminFamilyID)
	if err != nil {
		return err
	}
	if !isMember {
		return ErrNotMember
	}

	return s.repo.SetAdmin(ctx, groupID, newAdminFamilyID)
}

// Balances lists all points balances in a group. Members only.
func (s *Service) Balances(ctx context.Context, actorFamilyID, groupID int64) ([]*points.Balance, error) {
	group, err := s.repo.GetByID(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if group == nil {
		return nil, ErrGroupNotFound
	}

	if err := s.requireMember(ctx, groupID, actorFamilyID); err != nil {
		return nil, err
	}

	return s.pointsRepo.ListByGroup(ctx, groupID)
}

func (s *Service) requireMember(ctx context.Context, groupID, familyID int64) error {
	isMember, err := s.repo.IsMember(ctx, groupID, familyID)
	if err != nil {
		return err
	}
	if !isMember {
		return ErrNotMember
	}
	return nil
}

// newInviteCode derives a short shareable code from a random uuid
func newInviteCode() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return strings.ToUpper(raw[:10])
}
