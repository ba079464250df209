package family

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"sitterswap/internal/database"
	"sitterswap/internal/user"
)

// Common errors
var (
	ErrFamilyNotFound  = errors.New("family not found")
	ErrChildNotFound   = errors.New("child not found")
	ErrAlreadyInFamily = errors.New("user already belongs to a family")
	ErrNoFamily        = errors.New("user does not belong to a family")
	ErrNotFamilyMember = errors.New("not a member of this family")
	ErrNotCurrentAdmin = errors.New("only the current admin can do this")
	ErrNameRequired    = errors.New("name is required")
	ErrHasOpenEvents   = errors.New("family still has open events")
)

// Service handles family business logic
type Service struct {
	db       *database.DB
	repo     *Repository
	userRepo *user.Repository
}

// NewService creates a new family service
func NewService(db *database.DB, repo *Repository, userRepo *user.Repository) *Service {
	return &Service{db: db, repo: repo, userRepo: userRepo}
}

// Create creates a family with the acting user as its only member and
// current admin. A user already in a family cannot create another one.
func (s *Service) Create(ctx context.Context, actorUserID int64, req *CreateFamilyRequest) (*Family, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, ErrNameRequired
	}

	actor, err := s.userRepo.GetByID(ctx, actorUserID)
	if err != nil {
		return nil, err
	}
	if actor == nil {
		return nil, user.ErrUserNotFound
	}
	if actor.FamilyID != nil {
		return nil, ErrAlreadyInFamily
	}

	var family *Family
	err = s.db.WithinTx(ctx, func(tx *database.Tx) error {
		family, err = s.repo.Create(ctx, tx, req, actorUserID)
		if err != nil {
			return err
		}
		return s.userRepo.SetFamily(ctx, tx, actorUserID, &family.ID)
	})
	if err != nil {
		return nil, err
	}

	return family, nil
}

// Get retrieves a family with its members and children
func (s *Service) Get(ctx context.Context, id int64) (*Family, []*user.User, []*Child, error) {
	family, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, nil, nil, err
	}
	if family == nil {
		return nil, nil, nil, ErrFamilyNotFound
	}

	members, err := s.userRepo.ListByFamilyID(ctx, id)
	if err != nil {
		return nil, nil, nil, err
	}

	children, err := s.repo.ListChildren(ctx, id)
	if err != nil {
		return nil, nil, nil, err
	}

	return family, members, children, nil
}

// Update modifies a family's profile fields. Only members may update.
func (s *Service) Update(ctx context.Context, actorFamilyID, id int64, req *UpdateFamilyRequest) (*Family, error) {
	if actorFamilyID != id {
		return nil, ErrNotFamilyMember
	}

	family, err := s.repo.Update(ctx, id, req)
	if err != nil {
		return nil, err
	}
	if family == nil {
		return nil, ErrFamilyNotFound
	}
	return family, nil
}

// AddChild adds a child to the actor's family
func (s *Service) AddChild(ctx context.Context, actorFamilyID, familyID int64, req *AddChildRequest) (*Child, error) {
	if actorFamilyID != familyID {
		return nil, ErrNotFamilyMember
	}
	if strings.TrimSpace(req.Name) == "" {
		return nil, ErrNameRequired
	}

	return s.repo.AddChild(ctx, familyID, req)
}

// RemoveChild removes a child from the actor's family
func (s *Service) RemoveChild(ctx context.Context, actorFamilyID, familyID, childID int64) error {
	if actorFamilyID != familyID {
		return ErrNotFamilyMember
	}

	err := s.repo.DeleteChild(ctx, familyID, childID)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrChildNotFound
	}
	return err
}

// SetCurrentAdmin hands the family's acting-admin role to another member.
// Only the current admin may transfer it.
func (s *Service) SetCurrentAdmin(ctx context.Context, actorUserID, familyID, newAdminUserID int64) error {
	family, err := s.repo.GetByID(ctx, familyID)
	if err != nil {
		return err
	}
	if family == nil {
		return ErrFamilyNotFound
	}
	if family.CurrentAdminID == nil || *family.CurrentAdminID != actorUserID {
		return ErrNotCurrentAdmin
	}

	newAdmin, err := s.userRepo.GetByID(ctx, newAdminUserID)
	if err != nil {
		return err
	}
	if newAdmin == nil || newAdmin.FamilyID == nil || *newAdmin.FamilyID != familyID {
		return ErrNotFamilyMember
	}

	return s.repo.SetCurrentAdmin(ctx, familyID, newAdminUserID)
}

// Leave detaches the acting user from their family. The last member leaving
// deletes the family, unless open events still reference it.
func (s *Service) Leave(ctx context.Context, actorUserID int64) error {
	actor, err := s.userRepo.GetByID(ctx, actorUserID)
	if err != nil {
		return err
	}
	if actor == nil {
		return user.ErrUserNotFound
	}
	if actor.FamilyID == nil {
		return ErrNoFamily
	}
	familyID := *actor.FamilyID

	return s.db.WithinTx(ctx, func(tx *database.Tx) error {
		if err := s.userRepo.SetFamily(ctx, tx, actorUserID, nil); err != nil {
			return err
		}

		remaining, err := s.repo.CountMembers(ctx, tx, familyID)
		if err != nil {
			return err
		}
		if remaining > 0 {
			// Don't leave the admin pointer dangling at the departed user.
			return s.repo.ReassignCurrentAdmin(ctx, tx, familyID, actorUserID)
		}

		hasEvents, err := s.repo.HasOpenEvents(ctx, tx, familyID)
		if err != nil {
			return err
		}
		if hasEvents {
			return ErrHasOpenEvents
		}

		return s.repo.Delete(ctx, tx, familyID)
	})
}
