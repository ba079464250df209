package event

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"sitterswap/internal/database"
	"sitterswap/internal/family"
	"sitterswap/internal/group"
	"sitterswap/internal/notification"
	"sitterswap/internal/points"
	"sitterswap/internal/user"
)

type testEnv struct {
	db         *database.DB
	svc        *Service
	groupSvc   *group.Service
	userRepo   *user.Repository
	familyRepo *family.Repository
	pointsRepo *points.Repository
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "events_test.db")
	db, err := database.Initialize(dbPath)
	if err != nil {
		t.Fatalf("Failed to initialize database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.RunMigrations("../../migrations"); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	userRepo := user.NewRepository(db)
	familyRepo := family.NewRepository(db)
	pointsRepo := points.NewRepository(db)
	groupRepo := group.NewRepository(db)
	groupSvc := group.NewService(db, groupRepo, pointsRepo)
	notificationSvc := notification.NewService(notification.NewRepository(db))

	repo := NewRepository(db)
	svc := NewService(db, repo, groupRepo, familyRepo, userRepo, pointsRepo, notificationSvc)

	return &testEnv{
		db:         db,
		svc:        svc,
		groupSvc:   groupSvc,
		userRepo:   userRepo,
		familyRepo: familyRepo,
		pointsRepo: pointsRepo,
	}
}

// newFamily registers a user and puts them in a fresh family
func (e *testEnv) newFamily(t *testing.T, name, email string) (userID, familyID int64) {
	t.Helper()
	ctx := context.Background()

	u, err := e.userRepo.Create(ctx, name, email, "hash")
	if err != nil {
		t.Fatalf("Failed to create user: %v", err)
	}

	fam, err := e.familyRepo.Create(ctx, e.db, &family.CreateFamilyRequest{Name: name}, u.ID)
	if err != nil {
		t.Fatalf("Failed to create family: %v", err)
	}

	if err := e.userRepo.SetFamily(ctx, e.db, u.ID, &fam.ID); err != nil {
		t.Fatalf("Failed to set family: %v", err)
	}
	return u.ID, fam.ID
}

func (e *testEnv) balance(t *testing.T, familyID, groupID int64) int {
	t.Helper()
	pts, err := e.pointsRepo.Get(context.Background(), familyID, groupID)
	if err != nil {
		t.Fatalf("Failed to get balance: %v", err)
	}
	return pts
}

// backdate pushes an event's end time into the past so the sweep sees it
func (e *testEnv) backdate(t *testing.T, eventID int64) {
	t.Helper()
	past := time.Now().UTC().Add(-time.Hour)
	_, err := e.db.ExecContext(context.Background(), "UPDATE events SET end_time = ? WHERE id = ?", past, eventID)
	if err != nil {
		t.Fatalf("Failed to backdate event: %v", err)
	}
}

func futureRequest(groupID int64, pts int) *CreateEventRequest {
	start := time.Now().UTC().Add(24 * time.Hour).Truncate(time.Second)
	return &CreateEventRequest{
		GroupID:   groupID,
		Name:      "Saturday evening sitting",
		StartTime: start,
		EndTime:   start.Add(3 * time.Hour),
		Points:    pts,
	}
}

func TestCreateDebitsCreator(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, famA := env.newFamily(t, "Family A", "a@example.com")
	g, err := env.groupSvc.Create(ctx, famA, &group.CreateGroupRequest{Name: "Neighborhood"})
	if err != nil {
		t.Fatalf("Failed to create group: %v", err)
	}

	if got := env.balance(t, famA, g.ID); got != points.JoinSeed {
		t.Fatalf("Expected seeded balance %d, got %d", points.JoinSeed, got)
	}

	ev, err := env.svc.Create(ctx, famA, futureRequest(g.ID, 5))
	if err != nil {
		t.Fatalf("Failed to create event: %v", err)
	}

	if ev.Status != StatusPending {
		t.Errorf("Expected status %s, got %s", StatusPending, ev.Status)
	}
	if ev.FamilyID != famA {
		t.Errorf("Expected creator to hold the event, holder is %d", ev.FamilyID)
	}
	if got := env.balance(t, famA, g.ID); got != 5 {
		t.Errorf("Expected balance 5 after creating a 5-point event, got %d", got)
	}
}

func TestCreateValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, famA := env.newFamily(t, "Family A", "a@example.com")
	g, err := env.groupSvc.Create(ctx, famA, &group.CreateGroupRequest{Name: "Neighborhood"})
	if err != nil {
		t.Fatalf("Failed to create group: %v", err)
	}

	start := time.Now().UTC().Add(24 * time.Hour).Truncate(time.Second)

	tests := []struct {
		name    string
		mutate  func(*CreateEventRequest)
		wantErr error
	}{
		{
			name:    "empty name",
			mutate:  func(r *CreateEventRequest) { r.Name = "" },
			wantErr: ErrNameRequired,
		},
		{
			name:    "end before start",
			mutate:  func(r *CreateEventRequest) { r.EndTime = start.Add(-time.Hour) },
			wantErr: ErrInvalidTimeRange,
		},
		{
			name:    "end equals start",
			mutate:  func(r *CreateEventRequest) { r.EndTime = r.StartTime },
			wantErr: ErrInvalidTimeRange,
		},
		{
			name:    "zero points",
			mutate:  func(r *CreateEventRequest) { r.Points = 0 },
			wantErr: ErrInvalidPoints,
		},
		{
			name:    "negative points",
			mutate:  func(r *CreateEventRequest) { r.Points = -3 },
			wantErr: ErrInvalidPoints,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := futureRequest(g.ID, 5)
			req.StartTime = start
			req.EndTime = start.Add(3 * time.Hour)
			tt.mutate(req)

			_, err := env.svc.Create(ctx, famA, req)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Expected %v, got %v", tt.wantErr, err)
			}
		})
	}

	if got := env.balance(t, famA, g.ID); got != points.JoinSeed {
		t.Errorf("Rejected creates must not move points, balance is %d", got)
	}
}

func TestCreateRequiresMembership(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, famA := env.newFamily(t, "Family A", "a@example.com")
	_, famB := env.newFamily(t, "Family B", "b@example.com")

	g, err := env.groupSvc.Create(ctx, famA, &group.CreateGroupRequest{Name: "Neighborhood"})
	if err != nil {
		t.Fatalf("Failed to create group: %v", err)
	}

	if _, err := env.svc.Create(ctx, famB, futureRequest(g.ID, 5)); !errors.Is(err, ErrNotGroupMember) {
		t.Errorf("Expected ErrNotGroupMember, got %v", err)
	}
}

func TestAcceptMovesNoPoints(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, famA := env.newFamily(t, "Family A", "a@example.com")
	userB, famB := env.newFamily(t, "Family B", "b@example.com")

	g, err := env.groupSvc.Create(ctx, famA, &group.CreateGroupRequest{Name: "Neighborhood"})
	if err != nil {
		t.Fatalf("Failed to create group: %v", err)
	}
	if _, err := env.groupSvc.JoinByCode(ctx, famB, g.InviteCode); err != nil {
		t.Fatalf("Failed to join group: %v", err)
	}

	ev, err := env.svc.Create(ctx, famA, futureRequest(g.ID, 5))
	if err != nil {
		t.Fatalf("Failed to create event: %v", err)
	}

	accepted, err := env.svc.Accept(ctx, userB, famB, ev.ID)
	if err != nil {
		t.Fatalf("Failed to accept event: %v", err)
	}

	if accepted.Status != StatusAccepted {
		t.Errorf("Expected status %s, got %s", StatusAccepted, accepted.Status)
	}
	if accepted.FamilyID != famB {
		t.Errorf("Expected holder %d, got %d", famB, accepted.FamilyID)
	}
	if accepted.AcceptedBy == nil || *accepted.AcceptedBy != "Family B" {
		t.Errorf("Expected accepted_by to carry the accepting member's name, got %v", accepted.AcceptedBy)
	}
	if got := env.balance(t, famA, g.ID); got != 5 {
		t.Errorf("Creator balance must not change on accept, got %d", got)
	}
	if got := env.balance(t, famB, g.ID); got != points.JoinSeed {
		t.Errorf("Acceptor balance must not change on accept, got %d", got)
	}
}

func TestAcceptGuards(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	userA, famA := env.newFamily(t, "Family A", "a@example.com")
	userB, famB := env.newFamily(t, "Family B", "b@example.com")
	userC, famC := env.newFamily(t, "Family C", "c@example.com")

	g, err := env.groupSvc.Create(ctx, famA, &group.CreateGroupRequest{Name: "Neighborhood"})
	if err != nil {
		t.Fatalf("Failed to create group: %v", err)
	}
	for _, fam := range []int64{famB, famC} {
		if _, err := env.groupSvc.JoinByCode(ctx, fam, g.InviteCode); err != nil {
			t.Fatalf("Failed to join group: %v", err)
		}
	}

	ev, err := env.svc.Create(ctx, famA, futureRequest(g.ID, 5))
	if err != nil {
		t.Fatalf("Failed to create event: %v", err)
	}

	// Creators cannot accept their own request.
	if _, err := env.svc.Accept(ctx, userA, famA, ev.ID); !errors.Is(err, ErrOwnEvent) {
		t.Errorf("Expected ErrOwnEvent, got %v", err)
	}

	if _, err := env.svc.Accept(ctx, userB, famB, ev.ID); err != nil {
		t.Fatalf("Failed to accept event: %v", err)
	}

	// A second accept loses: the event is no longer pending.
	if _, err := env.svc.Accept(ctx, userC, famC, ev.ID); !errors.Is(err, ErrNotPending) {
		t.Errorf("Expected ErrNotPending, got %v", err)
	}
}

func TestSweepCreditsHolderExactlyOnce(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, famA := env.newFamily(t, "Family A", "a@example.com")
	userB, famB := env.newFamily(t, "Family B", "b@example.com")

	g, err := env.groupSvc.Create(ctx, famA, &group.CreateGroupRequest{Name: "Neighborhood"})
	if err != nil {
		t.Fatalf("Failed to create group: %v", err)
	}
	if _, err := env.groupSvc.JoinByCode(ctx, famB, g.InviteCode); err != nil {
		t.Fatalf("Failed to join group: %v", err)
	}

	ev, err := env.svc.Create(ctx, famA, futureRequest(g.ID, 5))
	if err != nil {
		t.Fatalf("Failed to create event: %v", err)
	}
	if _, err := env.svc.Accept(ctx, userB, famB, ev.ID); err != nil {
		t.Fatalf("Failed to accept event: %v", err)
	}

	env.backdate(t, ev.ID)

	expired, err := env.svc.Sweep(ctx)
	if err != nil {
		t.Fatalf("Failed to sweep: %v", err)
	}
	if expired != 1 {
		t.Errorf("Expected 1 expired event, got %d", expired)
	}
	if got := env.balance(t, famB, g.ID); got != points.JoinSeed+5 {
		t.Errorf("Expected holder credited to %d, got %d", points.JoinSeed+5, got)
	}

	// Sweeping again is a no-op: status and balances stay put.
	expired, err = env.svc.Sweep(ctx)
	if err != nil {
		t.Fatalf("Failed to sweep: %v", err)
	}
	if expired != 0 {
		t.Errorf("Second sweep expired %d events, want 0", expired)
	}
	if got := env.balance(t, famB, g.ID); got != points.JoinSeed+5 {
		t.Errorf("Second sweep changed holder balance to %d", got)
	}

	swept, err := env.svc.Get(ctx, famA, ev.ID)
	if err != nil {
		t.Fatalf("Failed to get event: %v", err)
	}
	if swept.Status != StatusPast {
		t.Errorf("Expected status %s, got %s", StatusPast, swept.Status)
	}
}

func TestSweepExpiresUnacceptedToCreator(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, famA := env.newFamily(t, "Family A", "a@example.com")
	g, err := env.groupSvc.Create(ctx, famA, &group.CreateGroupRequest{Name: "Neighborhood"})
	if err != nil {
		t.Fatalf("Failed to create group: %v", err)
	}

	ev, err := env.svc.Create(ctx, famA, futureRequest(g.ID, 4))
	if err != nil {
		t.Fatalf("Failed to create event: %v", err)
	}
	env.backdate(t, ev.ID)

	if _, err := env.svc.Sweep(ctx); err != nil {
		t.Fatalf("Failed to sweep: %v", err)
	}

	// Nobody accepted, so the creator held the event at expiry and the
	// payout cancels the creation debit.
	if got := env.balance(t, famA, g.ID); got != points.JoinSeed {
		t.Errorf("Expected creator back at %d, got %d", points.JoinSeed, got)
	}
}

func TestCancelRevertsAcceptance(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, famA := env.newFamily(t, "Family A", "a@example.com")
	userB, famB := env.newFamily(t, "Family B", "b@example.com")

	g, err := env.groupSvc.Create(ctx, famA, &group.CreateGroupRequest{Name: "Neighborhood"})
	if err != nil {
		t.Fatalf("Failed to create group: %v", err)
	}
	if _, err := env.groupSvc.JoinByCode(ctx, famB, g.InviteCode); err != nil {
		t.Fatalf("Failed to join group: %v", err)
	}

	ev, err := env.svc.Create(ctx, famA, futureRequest(g.ID, 5))
	if err != nil {
		t.Fatalf("Failed to create event: %v", err)
	}

	// Pending events have no acceptance to cancel.
	if _, err := env.svc.Cancel(ctx, famA, ev.ID); !errors.Is(err, ErrNotAccepted) {
		t.Errorf("Expected ErrNotAccepted, got %v", err)
	}

	if _, err := env.svc.Accept(ctx, userB, famB, ev.ID); err != nil {
		t.Fatalf("Failed to accept event: %v", err)
	}

	cancelled, err := env.svc.Cancel(ctx, famB, ev.ID)
	if err != nil {
		t.Fatalf("Failed to cancel event: %v", err)
	}

	if cancelled.Status != StatusPending {
		t.Errorf("Expected status %s, got %s", StatusPending, cancelled.Status)
	}
	if cancelled.FamilyID != famA {
		t.Errorf("Expected event back with creator %d, holder is %d", famA, cancelled.FamilyID)
	}
	if cancelled.AcceptedBy != nil {
		t.Errorf("Expected accepted_by cleared, got %v", *cancelled.AcceptedBy)
	}
	if got := env.balance(t, famB, g.ID); got != points.JoinSeed-5 {
		t.Errorf("Expected acceptor debited to %d, got %d", points.JoinSeed-5, got)
	}
	if got := env.balance(t, famA, g.ID); got != 5 {
		t.Errorf("Creator balance must not change on cancel, got %d", got)
	}
}

func TestCancelAuthorization(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, famA := env.newFamily(t, "Family A", "a@example.com")
	userB, famB := env.newFamily(t, "Family B", "b@example.com")
	_, famC := env.newFamily(t, "Family C", "c@example.com")

	g, err := env.groupSvc.Create(ctx, famA, &group.CreateGroupRequest{Name: "Neighborhood"})
	if err != nil {
		t.Fatalf("Failed to create group: %v", err)
	}
	for _, fam := range []int64{famB, famC} {
		if _, err := env.groupSvc.JoinByCode(ctx, fam, g.InviteCode); err != nil {
			t.Fatalf("Failed to join group: %v", err)
		}
	}

	ev, err := env.svc.Create(ctx, famA, futureRequest(g.ID, 5))
	if err != nil {
		t.Fatalf("Failed to create event: %v", err)
	}
	if _, err := env.svc.Accept(ctx, userB, famB, ev.ID); err != nil {
		t.Fatalf("Failed to accept event: %v", err)
	}

	// A bystander family can neither cancel nor benefit.
	if _, err := env.svc.Cancel(ctx, famC, ev.ID); !errors.Is(err, ErrNotAuthorized) {
		t.Errorf("Expected ErrNotAuthorized, got %v", err)
	}

	// The creator can cancel the acceptance.
	if _, err := env.svc.Cancel(ctx, famA, ev.ID); err != nil {
		t.Fatalf("Creator cancel failed: %v", err)
	}
}

func TestDeletePendingRefundsCreator(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, famA := env.newFamily(t, "Family A", "a@example.com")
	g, err := env.groupSvc.Create(ctx, famA, &group.CreateGroupRequest{Name: "Neighborhood"})
	if err != nil {
		t.Fatalf("Failed to create group: %v", err)
	}

	ev, err := env.svc.Create(ctx, famA, futureRequest(g.ID, 5))
	if err != nil {
		t.Fatalf("Failed to create event: %v", err)
	}

	if err := env.svc.Delete(ctx, famA, ev.ID); err != nil {
		t.Fatalf("Failed to delete event: %v", err)
	}

	if got := env.balance(t, famA, g.ID); got != points.JoinSeed {
		t.Errorf("Expected creator refunded to %d, got %d", points.JoinSeed, got)
	}
	if _, err := env.svc.Get(ctx, famA, ev.ID); !errors.Is(err, ErrEventNotFound) {
		t.Errorf("Expected ErrEventNotFound after delete, got %v", err)
	}
}

func TestDeleteAcceptedReversesHolderCredit(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, famA := env.newFamily(t, "Family A", "a@example.com")
	userB, famB := env.newFamily(t, "Family B", "b@example.com")

	g, err := env.groupSvc.Create(ctx, famA, &group.CreateGroupRequest{Name: "Neighborhood"})
	if err != nil {
		t.Fatalf("Failed to create group: %v", err)
	}
	if _, err := env.groupSvc.JoinByCode(ctx, famB, g.InviteCode); err != nil {
		t.Fatalf("Failed to join group: %v", err)
	}

	ev, err := env.svc.Create(ctx, famA, futureRequest(g.ID, 5))
	if err != nil {
		t.Fatalf("Failed to create event: %v", err)
	}
	if _, err := env.svc.Accept(ctx, userB, famB, ev.ID); err != nil {
		t.Fatalf("Failed to accept event: %v", err)
	}

	// Only the creator may delete.
	if err := env.svc.Delete(ctx, famB, ev.ID); !errors.Is(err, ErrNotCreator) {
		t.Errorf("Expected ErrNotCreator, got %v", err)
	}

	if err := env.svc.Delete(ctx, famA, ev.ID); err != nil {
		t.Fatalf("Failed to delete event: %v", err)
	}

	if got := env.balance(t, famA, g.ID); got != points.JoinSeed {
		t.Errorf("Expected creator refunded to %d, got %d", points.JoinSeed, got)
	}
	if got := env.balance(t, famB, g.ID); got != points.JoinSeed-5 {
		t.Errorf("Expected holder debited to %d, got %d", points.JoinSeed-5, got)
	}
}

func TestRejectHidesEventFromFamily(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, famA := env.newFamily(t, "Family A", "a@example.com")
	_, famB := env.newFamily(t, "Family B", "b@example.com")
	_, famC := env.newFamily(t, "Family C", "c@example.com")

	g, err := env.groupSvc.Create(ctx, famA, &group.CreateGroupRequest{Name: "Neighborhood"})
	if err != nil {
		t.Fatalf("Failed to create group: %v", err)
	}
	for _, fam := range []int64{famB, famC} {
		if _, err := env.groupSvc.JoinByCode(ctx, fam, g.InviteCode); err != nil {
			t.Fatalf("Failed to join group: %v", err)
		}
	}

	ev, err := env.svc.Create(ctx, famA, futureRequest(g.ID, 5))
	if err != nil {
		t.Fatalf("Failed to create event: %v", err)
	}

	rejected, err := env.svc.Reject(ctx, famB, ev.ID)
	if err != nil {
		t.Fatalf("Failed to reject event: %v", err)
	}
	if rejected.Status != StatusPending {
		t.Errorf("Reject must not change status, got %s", rejected.Status)
	}
	if len(rejected.RejectedFamilyIDs) != 1 || rejected.RejectedFamilyIDs[0] != famB {
		t.Errorf("Expected rejection set [%d], got %v", famB, rejected.RejectedFamilyIDs)
	}
	if got := env.balance(t, famB, g.ID); got != points.JoinSeed {
		t.Errorf("Reject must not move points, balance is %d", got)
	}

	forB, err := env.svc.ListOpenByGroup(ctx, famB, g.ID)
	if err != nil {
		t.Fatalf("Failed to list events: %v", err)
	}
	if len(forB) != 0 {
		t.Errorf("Rejected event should be hidden from the rejecting family, got %d events", len(forB))
	}

	forC, err := env.svc.ListOpenByGroup(ctx, famC, g.ID)
	if err != nil {
		t.Fatalf("Failed to list events: %v", err)
	}
	if len(forC) != 1 {
		t.Errorf("Event should stay visible to other families, got %d events", len(forC))
	}

	// Rejecting again toggles the decline off.
	rejected, err = env.svc.Reject(ctx, famB, ev.ID)
	if err != nil {
		t.Fatalf("Failed to un-reject event: %v", err)
	}
	if len(rejected.RejectedFamilyIDs) != 0 {
		t.Errorf("Expected empty rejection set, got %v", rejected.RejectedFamilyIDs)
	}
}

func TestUpdateRepricesCreatorDebit(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, famA := env.newFamily(t, "Family A", "a@example.com")
	g, err := env.groupSvc.Create(ctx, famA, &group.CreateGroupRequest{Name: "Neighborhood"})
	if err != nil {
		t.Fatalf("Failed to create group: %v", err)
	}

	ev, err := env.svc.Create(ctx, famA, futureRequest(g.ID, 5))
	if err != nil {
		t.Fatalf("Failed to create event: %v", err)
	}
	if got := env.balance(t, famA, g.ID); got != 5 {
		t.Fatalf("Expected balance 5 after create, got %d", got)
	}

	newPoints := 8
	updated, err := env.svc.Update(ctx, famA, ev.ID, &UpdateEventRequest{Points: &newPoints})
	if err != nil {
		t.Fatalf("Failed to update event: %v", err)
	}
	if updated.Points != 8 {
		t.Errorf("Expected points 8, got %d", updated.Points)
	}
	if got := env.balance(t, famA, g.ID); got != 2 {
		t.Errorf("Raising points 5 to 8 should leave balance 2, got %d", got)
	}

	newPoints = 3
	if _, err := env.svc.Update(ctx, famA, ev.ID, &UpdateEventRequest{Points: &newPoints}); err != nil {
		t.Fatalf("Failed to update event: %v", err)
	}
	if got := env.balance(t, famA, g.ID); got != 7 {
		t.Errorf("Lowering points 8 to 3 should leave balance 7, got %d", got)
	}
}

func TestUpdateMovesEventBetweenGroups(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, famA := env.newFamily(t, "Family A", "a@example.com")
	g1, err := env.groupSvc.Create(ctx, famA, &group.CreateGroupRequest{Name: "Neighborhood"})
	if err != nil {
		t.Fatalf("Failed to create group: %v", err)
	}
	g2, err := env.groupSvc.Create(ctx, famA, &group.CreateGroupRequest{Name: "School"})
	if err != nil {
		t.Fatalf("Failed to create group: %v", err)
	}

	ev, err := env.svc.Create(ctx, famA, futureRequest(g1.ID, 5))
	if err != nil {
		t.Fatalf("Failed to create event: %v", err)
	}

	updated, err := env.svc.Update(ctx, famA, ev.ID, &UpdateEventRequest{GroupID: &g2.ID})
	if err != nil {
		t.Fatalf("Failed to move event: %v", err)
	}
	if updated.GroupID != g2.ID {
		t.Errorf("Expected group %d, got %d", g2.ID, updated.GroupID)
	}

	if got := env.balance(t, famA, g1.ID); got != points.JoinSeed {
		t.Errorf("Old group should be refunded to %d, got %d", points.JoinSeed, got)
	}
	if got := env.balance(t, famA, g2.ID); got != points.JoinSeed-5 {
		t.Errorf("New group should carry the debit, expected %d, got %d", points.JoinSeed-5, got)
	}
}

func TestUpdateGroupMoveRequiresHolderMembership(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, famA := env.newFamily(t, "Family A", "a@example.com")
	userB, famB := env.newFamily(t, "Family B", "b@example.com")

	g1, err := env.groupSvc.Create(ctx, famA, &group.CreateGroupRequest{Name: "Neighborhood"})
	if err != nil {
		t.Fatalf("Failed to create group: %v", err)
	}
	g2, err := env.groupSvc.Create(ctx, famA, &group.CreateGroupRequest{Name: "School"})
	if err != nil {
		t.Fatalf("Failed to create group: %v", err)
	}
	if _, err := env.groupSvc.JoinByCode(ctx, famB, g1.InviteCode); err != nil {
		t.Fatalf("Failed to join group: %v", err)
	}

	ev, err := env.svc.Create(ctx, famA, futureRequest(g1.ID, 5))
	if err != nil {
		t.Fatalf("Failed to create event: %v", err)
	}
	if _, err := env.svc.Accept(ctx, userB, famB, ev.ID); err != nil {
		t.Fatalf("Failed to accept event: %v", err)
	}

	// The holder is not a member of the destination group, so the move
	// would strand the commitment outside their membership.
	if _, err := env.svc.Update(ctx, famA, ev.ID, &UpdateEventRequest{GroupID: &g2.ID}); !errors.Is(err, ErrTargetNotMember) {
		t.Fatalf("Expected ErrTargetNotMember, got %v", err)
	}
	kept, err := env.svc.Get(ctx, famA, ev.ID)
	if err != nil {
		t.Fatalf("Failed to get event: %v", err)
	}
	if kept.GroupID != g1.ID {
		t.Errorf("Expected event to stay in group %d, got %d", g1.ID, kept.GroupID)
	}

	// Once the holder joins the destination group the move goes through.
	if _, err := env.groupSvc.JoinByCode(ctx, famB, g2.InviteCode); err != nil {
		t.Fatalf("Failed to join group: %v", err)
	}
	moved, err := env.svc.Update(ctx, famA, ev.ID, &UpdateEventRequest{GroupID: &g2.ID})
	if err != nil {
		t.Fatalf("Failed to move event: %v", err)
	}
	if moved.GroupID != g2.ID || moved.FamilyID != famB {
		t.Errorf("Expected event in group %d held by %d, got group %d holder %d",
			g2.ID, famB, moved.GroupID, moved.FamilyID)
	}
}

func TestConcurrentAcceptSingleWinner(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, famA := env.newFamily(t, "Family A", "a@example.com")
	userB, famB := env.newFamily(t, "Family B", "b@example.com")
	userC, famC := env.newFamily(t, "Family C", "c@example.com")

	g, err := env.groupSvc.Create(ctx, famA, &group.CreateGroupRequest{Name: "Neighborhood"})
	if err != nil {
		t.Fatalf("Failed to create group: %v", err)
	}
	for _, fam := range []int64{famB, famC} {
		if _, err := env.groupSvc.JoinByCode(ctx, fam, g.InviteCode); err != nil {
			t.Fatalf("Failed to join group: %v", err)
		}
	}

	ev, err := env.svc.Create(ctx, famA, futureRequest(g.ID, 5))
	if err != nil {
		t.Fatalf("Failed to create event: %v", err)
	}

	contenders := []struct{ userID, familyID int64 }{
		{userB, famB},
		{userC, famC},
	}
	results := make(chan error, len(contenders))
	var wg sync.WaitGroup
	for _, c := range contenders {
		wg.Add(1)
		go func(userID, familyID int64) {
			defer wg.Done()
			_, err := env.svc.Accept(ctx, userID, familyID, ev.ID)
			results <- err
		}(c.userID, c.familyID)
	}
	wg.Wait()
	close(results)

	var won, lost int
	for err := range results {
		switch {
		case err == nil:
			won++
		case errors.Is(err, ErrNotPending):
			lost++
		default:
			t.Fatalf("Unexpected accept error: %v", err)
		}
	}
	if won != 1 || lost != 1 {
		t.Fatalf("Expected exactly one winner and one loser, got %d winners, %d losers", won, lost)
	}

	// Only the winner's acceptance is recorded; nobody's balance moved.
	accepted, err := env.svc.Get(ctx, famA, ev.ID)
	if err != nil {
		t.Fatalf("Failed to get event: %v", err)
	}
	if accepted.Status != StatusAccepted {
		t.Errorf("Expected status %s, got %s", StatusAccepted, accepted.Status)
	}
	for _, fam := range []int64{famB, famC} {
		if got := env.balance(t, fam, g.ID); got != points.JoinSeed {
			t.Errorf("Expected family %d balance untouched at %d, got %d", fam, points.JoinSeed, got)
		}
	}
}

func TestConcurrentRejectTogglesCleanly(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, famA := env.newFamily(t, "Family A", "a@example.com")
	_, famB := env.newFamily(t, "Family B", "b@example.com")

	g, err := env.groupSvc.Create(ctx, famA, &group.CreateGroupRequest{Name: "Neighborhood"})
	if err != nil {
		t.Fatalf("Failed to create group: %v", err)
	}
	if _, err := env.groupSvc.JoinByCode(ctx, famB, g.InviteCode); err != nil {
		t.Fatalf("Failed to join group: %v", err)
	}

	ev, err := env.svc.Create(ctx, famA, futureRequest(g.ID, 5))
	if err != nil {
		t.Fatalf("Failed to create event: %v", err)
	}

	// An even number of racing toggles must land back on not-rejected
	// without tripping the unique constraint on the rejection row.
	results := make(chan error, 4)
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.svc.Reject(ctx, famB, ev.ID)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	for err := range results {
		if err != nil {
			t.Fatalf("Reject failed under contention: %v", err)
		}
	}

	open, err := env.svc.ListOpenByGroup(ctx, famB, g.ID)
	if err != nil {
		t.Fatalf("Failed to list open events: %v", err)
	}
	if len(open) != 1 || open[0].ID != ev.ID {
		t.Errorf("Expected the event visible again after toggling back, got %v", open)
	}
}

func TestUpdateOnlyCreatorAndNotPast(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, famA := env.newFamily(t, "Family A", "a@example.com")
	_, famB := env.newFamily(t, "Family B", "b@example.com")

	g, err := env.groupSvc.Create(ctx, famA, &group.CreateGroupRequest{Name: "Neighborhood"})
	if err != nil {
		t.Fatalf("Failed to create group: %v", err)
	}
	if _, err := env.groupSvc.JoinByCode(ctx, famB, g.InviteCode); err != nil {
		t.Fatalf("Failed to join group: %v", err)
	}

	ev, err := env.svc.Create(ctx, famA, futureRequest(g.ID, 5))
	if err != nil {
		t.Fatalf("Failed to create event: %v", err)
	}

	name := "Renamed"
	if _, err := env.svc.Update(ctx, famB, ev.ID, &UpdateEventRequest{Name: &name}); !errors.Is(err, ErrNotCreator) {
		t.Errorf("Expected ErrNotCreator, got %v", err)
	}

	env.backdate(t, ev.ID)
	if _, err := env.svc.Update(ctx, famA, ev.ID, &UpdateEventRequest{Name: &name}); !errors.Is(err, ErrEventFinished) {
		t.Errorf("Expected ErrEventFinished, got %v", err)
	}
}

// TestPointsLifecycle walks the full exchange: create, accept, expire.
func TestPointsLifecycle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, famA := env.newFamily(t, "Family A", "a@example.com")
	userB, famB := env.newFamily(t, "Family B", "b@example.com")

	g, err := env.groupSvc.Create(ctx, famA, &group.CreateGroupRequest{Name: "Neighborhood"})
	if err != nil {
		t.Fatalf("Failed to create group: %v", err)
	}
	if _, err := env.groupSvc.JoinByCode(ctx, famB, g.InviteCode); err != nil {
		t.Fatalf("Failed to join group: %v", err)
	}

	ev, err := env.svc.Create(ctx, famA, futureRequest(g.ID, 5))
	if err != nil {
		t.Fatalf("Failed to create event: %v", err)
	}
	if got := env.balance(t, famA, g.ID); got != 5 {
		t.Fatalf("Expected A at 5 after create, got %d", got)
	}

	if _, err := env.svc.Accept(ctx, userB, famB, ev.ID); err != nil {
		t.Fatalf("Failed to accept event: %v", err)
	}
	if got := env.balance(t, famA, g.ID); got != 5 {
		t.Errorf("Expected A still at 5 after accept, got %d", got)
	}
	if got := env.balance(t, famB, g.ID); got != points.JoinSeed {
		t.Errorf("Expected B unchanged at %d after accept, got %d", points.JoinSeed, got)
	}

	env.backdate(t, ev.ID)
	if _, err := env.svc.Sweep(ctx); err != nil {
		t.Fatalf("Failed to sweep: %v", err)
	}

	if got := env.balance(t, famA, g.ID); got != 5 {
		t.Errorf("Expected A final balance 5, got %d", got)
	}
	if got := env.balance(t, famB, g.ID); got != points.JoinSeed+5 {
		t.Errorf("Expected B final balance %d, got %d", points.JoinSeed+5, got)
	}
}
