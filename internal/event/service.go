package event

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"sitterswap/internal/database"
	"sitterswap/internal/family"
	"sitterswap/internal/group"
	"sitterswap/internal/points"
	"sitterswap/internal/user"
)

var (
	ErrEventNotFound    = errors.New("event not found")
	ErrNotGroupMember   = errors.New("family is not a member of this group")
	ErrNotCreator       = errors.New("only the creating family can modify this event")
	ErrOwnEvent         = errors.New("cannot accept your own event")
	ErrNotPending       = errors.New("event is no longer open")
	ErrNotAccepted      = errors.New("event has no acceptance to cancel")
	ErrEventFinished    = errors.New("event has already finished")
	ErrNotAuthorized    = errors.New("not authorized to perform this action")
	ErrNameRequired     = errors.New("event name is required")
	ErrInvalidTimeRange = errors.New("end time must be after start time")
	ErrInvalidPoints    = errors.New("points must be at least 1")
	ErrNoFamily         = errors.New("user does not belong to a family")
	ErrTargetNotMember  = errors.New("target family is not a member of this group")
)

// Service handles event business logic: the request lifecycle and the
// points movements paired with each transition.
type Service struct {
	db            *database.DB
	repo          *Repository
	groupRepo     *group.Repository
	familyRepo    *family.Repository
	userRepo      *user.Repository
	pointsRepo    *points.Repository
	notifications Notifier
}

// Notifier decouples the event service from notification delivery.
// Notification failures never fail the triggering operation.
type Notifier interface {
	NotifyEventCreated(ctx context.Context, recipientID int64, creatorFamilyName, eventName string, eventID int64) error
	NotifyEventAccepted(ctx context.Context, recipientID int64, acceptorName, eventName string, eventID int64) error
	NotifyEventCancelled(ctx context.Context, recipientID int64, eventName string, eventID int64) error
}

// NewService creates a new event service
func NewService(db *database.DB, repo *Repository, groupRepo *group.Repository, familyRepo *family.Repository, userRepo *user.Repository, pointsRepo *points.Repository, notifications Notifier) *Service {
	return &Service{
		db:            db,
		repo:          repo,
		groupRepo:     groupRepo,
		familyRepo:    familyRepo,
		userRepo:      userRepo,
		pointsRepo:    pointsRepo,
		notifications: notifications,
	}
}

// Create opens a new sitting request. The creating family pays the event's
// points up front; the eventual holder earns them back at expiry.
func (s *Service) Create(ctx context.Context, actorFamilyID int64, req *CreateEventRequest) (*Event, error) {
	if actorFamilyID == 0 {
		return nil, ErrNoFamily
	}
	if err := validateEventFields(req.Name, req.StartTime, req.EndTime, req.Points); err != nil {
		return nil, err
	}

	isMember, err := s.groupRepo.IsMember(ctx, req.GroupID, actorFamilyID)
	if err != nil {
		return nil, err
	}
	if !isMember {
		return nil, ErrNotGroupMember
	}

	var created *Event
	err = s.db.WithinTx(ctx, func(tx *database.Tx) error {
		ev, err := s.repo.Create(ctx, tx, actorFamilyID, req)
		if err != nil {
			return err
		}
		if err := s.pointsRepo.ApplyDelta(ctx, tx, actorFamilyID, req.GroupID, -req.Points); err != nil {
			return err
		}
		created = ev
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.fanOutCreated(ctx, created)

	return created, nil
}

// Get retrieves an event, membership-gated, with its rejection set attached
func (s *Service) Get(ctx context.Context, actorFamilyID, id int64) (*Event, error) {
	if _, err := s.Sweep(ctx); err != nil {
		return nil, err
	}

	ev, err := s.repo.GetByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if ev == nil {
		return nil, ErrEventNotFound
	}

	isMember, err := s.groupRepo.IsMember(ctx, ev.GroupID, actorFamilyID)
	if err != nil {
		return nil, err
	}
	if !isMember {
		return nil, ErrNotGroupMember
	}

	ev.RejectedFamilyIDs, err = s.repo.ListRejections(ctx, id)
	if err != nil {
		return nil, err
	}
	return ev, nil
}

// ListOpenByGroup lists the open requests visible to the calling family.
// Requests the family has declined are filtered out. Expired events are
// swept first so the listing never shows stale open requests.
func (s *Service) ListOpenByGroup(ctx context.Context, actorFamilyID, groupID int64) ([]*Event, error) {
	isMember, err := s.groupRepo.IsMember(ctx, groupID, actorFamilyID)
	if err != nil {
		return nil, err
	}
	if !isMember {
		return nil, ErrNotGroupMember
	}

	if _, err := s.Sweep(ctx); err != nil {
		return nil, err
	}
	return s.repo.ListOpenByGroup(ctx, groupID, actorFamilyID)
}

// ListPastByGroup lists a group's finished events, newest first
func (s *Service) ListPastByGroup(ctx context.Context, actorFamilyID, groupID int64) ([]*Event, error) {
	isMember, err := s.groupRepo.IsMember(ctx, groupID, actorFamilyID)
	if err != nil {
		return nil, err
	}
	if !isMember {
		return nil, ErrNotGroupMember
	}

	if _, err := s.Sweep(ctx); err != nil {
		return nil, err
	}
	return s.repo.ListPastByGroup(ctx, groupID)
}

// ListMine lists events the calling family created or is holding
func (s *Service) ListMine(ctx context.Context, actorFamilyID int64) ([]*Event, error) {
	if actorFamilyID == 0 {
		return nil, ErrNoFamily
	}
	if _, err := s.Sweep(ctx); err != nil {
		return nil, err
	}
	return s.repo.ListByFamily(ctx, actorFamilyID)
}

// Accept commits the calling family to perform the sitting. Points do not
// move here; the acceptor is credited only when the event expires. Racing
// accepts resolve to exactly one winner.
func (s *Service) Accept(ctx context.Context, actorUserID, actorFamilyID, id int64) (*Event, error) {
	if actorFamilyID == 0 {
		return nil, ErrNoFamily
	}

	if _, err := s.Sweep(ctx); err != nil {
		return nil, err
	}

	ev, err := s.repo.GetByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if ev == nil {
		return nil, ErrEventNotFound
	}
	if ev.CreatorFamilyID == actorFamilyID {
		return nil, ErrOwnEvent
	}

	isMember, err := s.groupRepo.IsMember(ctx, ev.GroupID, actorFamilyID)
	if err != nil {
		return nil, err
	}
	if !isMember {
		return nil, ErrNotGroupMember
	}

	actor, err := s.userRepo.GetByID(ctx, actorUserID)
	if err != nil {
		return nil, err
	}
	if actor == nil {
		return nil, user.ErrUserNotFound
	}

	err = s.db.WithinTx(ctx, func(tx *database.Tx) error {
		won, err := s.repo.MarkAccepted(ctx, tx, id, actorFamilyID, actor.Name)
		if err != nil {
			return err
		}
		if !won {
			return ErrNotPending
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	accepted, err := s.repo.GetByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if accepted == nil {
		return nil, ErrEventNotFound
	}

	s.fanOutAccepted(ctx, accepted, actor.Name)

	return accepted, nil
}

// Reject toggles the calling family's decline of an open request. Declines
// only hide the event from that family's listing; the event stays open for
// everyone else and its points are untouched.
func (s *Service) Reject(ctx context.Context, actorFamilyID, id int64) (*Event, error) {
	ev, err := s.repo.GetByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if ev == nil {
		return nil, ErrEventNotFound
	}
	if ev.CreatorFamilyID == actorFamilyID {
		return nil, ErrOwnEvent
	}
	if ev.Status != StatusPending {
		return nil, ErrNotPending
	}

	isMember, err := s.groupRepo.IsMember(ctx, ev.GroupID, actorFamilyID)
	if err != nil {
		return nil, err
	}
	if !isMember {
		return nil, ErrNotGroupMember
	}

	err = s.db.WithinTx(ctx, func(tx *database.Tx) error {
		_, err := s.repo.ToggleRejection(ctx, tx, id, actorFamilyID)
		return err
	})
	if err != nil {
		return nil, err
	}

	ev.RejectedFamilyIDs, err = s.repo.ListRejections(ctx, id)
	if err != nil {
		return nil, err
	}
	return ev, nil
}

// Update edits an event the calling family created. Finished events are
// immutable. Changing the points re-prices the creator's debit by the
// difference; moving the event to another group refunds the old group's
// ledger and charges the new one.
func (s *Service) Update(ctx context.Context, actorFamilyID, id int64, req *UpdateEventRequest) (*Event, error) {
	if _, err := s.Sweep(ctx); err != nil {
		return nil, err
	}

	var updated *Event
	err := s.db.WithinTx(ctx, func(tx *database.Tx) error {
		ev, err := s.repo.GetByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if ev == nil {
			return ErrEventNotFound
		}
		if ev.CreatorFamilyID != actorFamilyID {
			return ErrNotCreator
		}
		if ev.Status == StatusPast {
			return ErrEventFinished
		}

		oldGroupID := ev.GroupID
		oldPoints := ev.Points

		if req.Name != nil {
			ev.Name = *req.Name
		}
		if req.Description != nil {
			ev.Description = req.Description
		}
		if req.StartTime != nil {
			ev.StartTime = *req.StartTime
		}
		if req.EndTime != nil {
			ev.EndTime = *req.EndTime
		}
		if req.Points != nil {
			ev.Points = *req.Points
		}
		if req.GroupID != nil {
			ev.GroupID = *req.GroupID
		}
		if req.FamilyID != nil && *req.FamilyID != ev.FamilyID {
			// Handing the request to another family directly is only
			// possible while it is still open.
			if ev.Status != StatusPending {
				return ErrNotPending
			}
			ev.FamilyID = *req.FamilyID
		}

		if err := validateEventFields(ev.Name, ev.StartTime, ev.EndTime, ev.Points); err != nil {
			return err
		}

		if ev.GroupID != oldGroupID {
			isMember, err := s.groupRepo.IsMember(ctx, ev.GroupID, actorFamilyID)
			if err != nil {
				return err
			}
			if !isMember {
				return ErrNotGroupMember
			}
		}
		// The holding family, whether assigned or self-accepted, must be a
		// member of whichever group the event ends up in.
		if ev.FamilyID != ev.CreatorFamilyID {
			isMember, err := s.groupRepo.IsMember(ctx, ev.GroupID, ev.FamilyID)
			if err != nil {
				return err
			}
			if !isMember {
				return ErrTargetNotMember
			}
		}

		if err := s.repo.Update(ctx, tx, ev); err != nil {
			return err
		}

		// Re-price the creator's debit to match the edited event.
		if ev.GroupID != oldGroupID {
			if err := s.pointsRepo.ApplyDelta(ctx, tx, ev.CreatorFamilyID, oldGroupID, oldPoints); err != nil {
				return err
			}
			if err := s.pointsRepo.ApplyDelta(ctx, tx, ev.CreatorFamilyID, ev.GroupID, -ev.Points); err != nil {
				return err
			}
		} else if ev.Points != oldPoints {
			if err := s.pointsRepo.ApplyDelta(ctx, tx, ev.CreatorFamilyID, ev.GroupID, oldPoints-ev.Points); err != nil {
				return err
			}
		}

		updated = ev
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Cancel undoes an acceptance, returning the event to the open pool. Either
// side of the commitment can cancel. The holder's balance is decremented by
// the event's points, the symmetric reversal of the expiry payout it was
// in line for.
func (s *Service) Cancel(ctx context.Context, actorFamilyID, id int64) (*Event, error) {
	if _, err := s.Sweep(ctx); err != nil {
		return nil, err
	}

	ev, err := s.repo.GetByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if ev == nil {
		return nil, ErrEventNotFound
	}
	if ev.Status == StatusPast {
		return nil, ErrEventFinished
	}
	if ev.Status != StatusAccepted || ev.FamilyID == ev.CreatorFamilyID {
		return nil, ErrNotAccepted
	}
	if actorFamilyID != ev.CreatorFamilyID && actorFamilyID != ev.FamilyID {
		return nil, ErrNotAuthorized
	}

	holderID := ev.FamilyID
	err = s.db.WithinTx(ctx, func(tx *database.Tx) error {
		reverted, err := s.repo.RevertToPending(ctx, tx, id, ev.CreatorFamilyID, holderID)
		if err != nil {
			return err
		}
		if !reverted {
			return ErrNotAccepted
		}
		return s.pointsRepo.ApplyDelta(ctx, tx, holderID, ev.GroupID, -ev.Points)
	})
	if err != nil {
		return nil, err
	}

	cancelled, err := s.repo.GetByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if cancelled == nil {
		return nil, ErrEventNotFound
	}

	s.fanOutCancelled(ctx, cancelled, holderID)

	return cancelled, nil
}

// Delete removes an event the calling family created. The creator's
// up-front debit is refunded in full; if another family was holding the
// event, its balance gives back the points it was in line for.
func (s *Service) Delete(ctx context.Context, actorFamilyID, id int64) error {
	if _, err := s.Sweep(ctx); err != nil {
		return err
	}

	return s.db.WithinTx(ctx, func(tx *database.Tx) error {
		ev, err := s.repo.GetByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if ev == nil {
			return ErrEventNotFound
		}
		if ev.CreatorFamilyID != actorFamilyID {
			return ErrNotCreator
		}

		if ev.Status != StatusPast {
			if ev.Status == StatusAccepted && ev.FamilyID != ev.CreatorFamilyID {
				if err := s.pointsRepo.ApplyDelta(ctx, tx, ev.FamilyID, ev.GroupID, -ev.Points); err != nil {
					return err
				}
			}
			if err := s.pointsRepo.ApplyDelta(ctx, tx, ev.CreatorFamilyID, ev.GroupID, ev.Points); err != nil {
				return err
			}
		}

		if err := s.repo.Delete(ctx, tx, id); err != nil {
			if err == sql.ErrNoRows {
				return ErrEventNotFound
			}
			return err
		}
		return nil
	})
}

// Sweep expires every open event whose end time has passed, crediting each
// event's points to the family holding it. Each event flips in its own
// transaction guarded on status, so concurrent sweeps credit exactly once
// and one failure does not roll back the rest.
func (s *Service) Sweep(ctx context.Context) (int, error) {
	ids, err := s.repo.ListExpiredIDs(ctx, time.Now().UTC())
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, id := range ids {
		err := s.db.WithinTx(ctx, func(tx *database.Tx) error {
			payout, err := s.repo.MarkPast(ctx, tx, id)
			if err != nil {
				return err
			}
			if payout == nil {
				// Another sweep or transition got here first.
				return nil
			}
			if err := s.pointsRepo.ApplyDelta(ctx, tx, payout.FamilyID, payout.GroupID, payout.Points); err != nil {
				return err
			}
			expired++
			return nil
		})
		if err != nil {
			return expired, err
		}
	}
	return expired, nil
}

func validateEventFields(name string, start, end time.Time, pts int) error {
	if name == "" {
		return ErrNameRequired
	}
	if !end.After(start) {
		return ErrInvalidTimeRange
	}
	if pts < 1 {
		return ErrInvalidPoints
	}
	return nil
}

func (s *Service) fanOutCreated(ctx context.Context, ev *Event) {
	creatorName := "A family"
	if fam, err := s.familyRepo.GetByID(ctx, ev.CreatorFamilyID); err == nil && fam != nil {
		creatorName = fam.Name
	}

	userIDs, err := s.repo.ListUserIDsForGroup(ctx, ev.GroupID, ev.CreatorFamilyID)
	if err != nil {
		return
	}
	for _, uid := range userIDs {
		_ = s.notifications.NotifyEventCreated(ctx, uid, creatorName, ev.Name, ev.ID)
	}
}

func (s *Service) fanOutAccepted(ctx context.Context, ev *Event, acceptorName string) {
	userIDs, err := s.repo.ListUserIDsForFamily(ctx, ev.CreatorFamilyID)
	if err != nil {
		return
	}
	for _, uid := range userIDs {
		_ = s.notifications.NotifyEventAccepted(ctx, uid, acceptorName, ev.Name, ev.ID)
	}
}

func (s *Service) fanOutCancelled(ctx context.Context, ev *Event, holderID int64) {
	recipients := make(map[int64]struct{})
	for _, famID := range []int64{ev.CreatorFamilyID, holderID} {
		userIDs, err := s.repo.ListUserIDsForFamily(ctx, famID)
		if err != nil {
			continue
		}
		for _, uid := range userIDs {
			recipients[uid] = struct{}{}
		}
	}
	for uid := range recipients {
		_ = s.notifications.NotifyEventCancelled(ctx, uid, ev.Name, ev.ID)
	}
}
