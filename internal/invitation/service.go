package invitation

import (
	"context"
	"errors"
	"strings"
	"time"

	"sitterswap/internal/database"
	"sitterswap/internal/family"
	"sitterswap/internal/user"
)

var (
	ErrInvitationNotFound = errors.New("invitation not found")
	ErrEmailRequired      = errors.New("invitee email is required")
	ErrNoFamily           = errors.New("user does not belong to a family")
	ErrNotInvitee         = errors.New("invitation is addressed to another user")
	ErrAlreadyResolved    = errors.New("invitation has already been resolved")
	ErrInvitationExpired  = errors.New("invitation has expired")
	ErrAlreadyInFamily    = errors.New("user already belongs to a family")
	ErrSelfInvite         = errors.New("cannot invite a member of your own family")
	ErrInvalidExpiry      = errors.New("expiration date must be in the future")
)

// DefaultTTL is how long an invitation stays open when the inviter does not
// pick an expiration date.
const DefaultTTL = 7 * 24 * time.Hour

// Notifier delivers the invitation-received notification. Delivery
// failures never fail the invite.
type Notifier interface {
	NotifyFamilyInvitation(ctx context.Context, recipientID int64, familyName string, invitationID int64) error
}

// Service handles invitation business logic
type Service struct {
	db            *database.DB
	repo          *Repository
	familyRepo    *family.Repository
	userRepo      *user.Repository
	notifications Notifier
}

// NewService creates a new invitation service
func NewService(db *database.DB, repo *Repository, familyRepo *family.Repository, userRepo *user.Repository, notifications Notifier) *Service {
	return &Service{
		db:            db,
		repo:          repo,
		familyRepo:    familyRepo,
		userRepo:      userRepo,
		notifications: notifications,
	}
}

// Invite creates a pending invitation from the caller's family to an email
// address. If a user with that email already exists they are notified.
func (s *Service) Invite(ctx context.Context, actorFamilyID int64, req *CreateInvitationRequest) (*Invitation, error) {
	if actorFamilyID == 0 {
		return nil, ErrNoFamily
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" {
		return nil, ErrEmailRequired
	}

	now := time.Now().UTC()
	expiresAt := now.Add(DefaultTTL)
	if req.ExpiresAt != nil {
		if !req.ExpiresAt.After(now) {
			return nil, ErrInvalidExpiry
		}
		expiresAt = req.ExpiresAt.UTC()
	}

	invitee, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if invitee != nil && invitee.FamilyID != nil && *invitee.FamilyID == actorFamilyID {
		return nil, ErrSelfInvite
	}

	inv, err := s.repo.Create(ctx, actorFamilyID, email, expiresAt)
	if err != nil {
		return nil, err
	}

	if invitee != nil {
		familyName := ""
		if fam, err := s.familyRepo.GetByID(ctx, actorFamilyID); err == nil && fam != nil {
			familyName = fam.Name
		}
		_ = s.notifications.NotifyFamilyInvitation(ctx, invitee.ID, familyName, inv.ID)
	}

	return inv, nil
}

// ListMine lists the pending invitations addressed to the calling user
func (s *Service) ListMine(ctx context.Context, actorUserID int64) ([]*Invitation, error) {
	actor, err := s.userRepo.GetByID(ctx, actorUserID)
	if err != nil {
		return nil, err
	}
	if actor == nil {
		return nil, user.ErrUserNotFound
	}
	return s.repo.ListForEmail(ctx, strings.ToLower(actor.Email), time.Now().UTC())
}

// ListSent lists the calling family's outgoing invitations
func (s *Service) ListSent(ctx context.Context, actorFamilyID int64) ([]*Invitation, error) {
	if actorFamilyID == 0 {
		return nil, ErrNoFamily
	}
	return s.repo.ListByFamily(ctx, actorFamilyID)
}

// Accept resolves an invitation and moves the calling user into the
// inviting family. An invitation resolves exactly once.
func (s *Service) Accept(ctx context.Context, actorUserID int64, id int64) (*Invitation, error) {
	inv, actor, err := s.loadForResolve(ctx, actorUserID, id)
	if err != nil {
		return nil, err
	}
	if actor.FamilyID != nil {
		return nil, ErrAlreadyInFamily
	}

	err = s.db.WithinTx(ctx, func(tx *database.Tx) error {
		resolved, err := s.repo.Resolve(ctx, tx, id, StatusAccepted)
		if err != nil {
			return err
		}
		if !resolved {
			return ErrAlreadyResolved
		}
		familyID := inv.InviterFamilyID
		return s.userRepo.SetFamily(ctx, tx, actorUserID, &familyID)
	})
	if err != nil {
		return nil, err
	}

	inv.Status = StatusAccepted
	return inv, nil
}

// Decline resolves an invitation without joining the family
func (s *Service) Decline(ctx context.Context, actorUserID int64, id int64) (*Invitation, error) {
	inv, _, err := s.loadForResolve(ctx, actorUserID, id)
	if err != nil {
		return nil, err
	}

	resolved, err := s.repo.Resolve(ctx, s.db, id, StatusDeclined)
	if err != nil {
		return nil, err
	}
	if !resolved {
		return nil, ErrAlreadyResolved
	}

	inv.Status = StatusDeclined
	return inv, nil
}

func (s *Service) loadForResolve(ctx context.Context, actorUserID, id int64) (*Invitation, *user.User, error) {
	inv, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if inv == nil {
		return nil, nil, ErrInvitationNotFound
	}

	actor, err := s.userRepo.GetByID(ctx, actorUserID)
	if err != nil {
		return nil, nil, err
	}
	if actor == nil {
		return nil, nil, user.ErrUserNotFound
	}
	if !strings.EqualFold(actor.Email, inv.InviteeEmail) {
		return nil, nil, ErrNotInvitee
	}

	if inv.Status != StatusPending {
		return nil, nil, ErrAlreadyResolved
	}
	if !inv.ExpiresAt.After(time.Now().UTC()) {
		return nil, nil, ErrInvitationExpired
	}
	return inv, actor, nil
}
