package invitation

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"sitterswap/internal/database"
	"sitterswap/internal/family"
	"sitterswap/internal/notification"
	"sitterswap/internal/user"
)

type testEnv struct {
	db       *database.DB
	svc      *Service
	userRepo *user.Repository
	famRepo  *family.Repository
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "invitations_test.db")
	db, err := database.Initialize(dbPath)
	if err != nil {
		t.Fatalf("Failed to initialize database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.RunMigrations("../../migrations"); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	userRepo := user.NewRepository(db)
	famRepo := family.NewRepository(db)
	notificationSvc := notification.NewService(notification.NewRepository(db))
	svc := NewService(db, NewRepository(db), famRepo, userRepo, notificationSvc)

	return &testEnv{db: db, svc: svc, userRepo: userRepo, famRepo: famRepo}
}

func (e *testEnv) newUser(t *testing.T, name, email string) *user.User {
	t.Helper()
	u, err := e.userRepo.Create(context.Background(), name, email, "hash")
	if err != nil {
		t.Fatalf("Failed to create user: %v", err)
	}
	return u
}

func (e *testEnv) newFamilyFor(t *testing.T, u *user.User, name string) int64 {
	t.Helper()
	ctx := context.Background()
	fam, err := e.famRepo.Create(ctx, e.db, &family.CreateFamilyRequest{Name: name}, u.ID)
	if err != nil {
		t.Fatalf("Failed to create family: %v", err)
	}
	if err := e.userRepo.SetFamily(ctx, e.db, u.ID, &fam.ID); err != nil {
		t.Fatalf("Failed to set family: %v", err)
	}
	return fam.ID
}

func TestInviteAndAccept(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	inviter := env.newUser(t, "Alice", "alice@example.com")
	famID := env.newFamilyFor(t, inviter, "The Atkins")
	invitee := env.newUser(t, "Bob", "bob@example.com")

	inv, err := env.svc.Invite(ctx, famID, &CreateInvitationRequest{Email: "bob@example.com"})
	if err != nil {
		t.Fatalf("Failed to invite: %v", err)
	}
	if inv.Status != StatusPending {
		t.Errorf("Expected status %s, got %s", StatusPending, inv.Status)
	}

	mine, err := env.svc.ListMine(ctx, invitee.ID)
	if err != nil {
		t.Fatalf("Failed to list invitations: %v", err)
	}
	if len(mine) != 1 || mine[0].ID != inv.ID {
		t.Fatalf("Expected the pending invitation in the invitee's list, got %v", mine)
	}

	accepted, err := env.svc.Accept(ctx, invitee.ID, inv.ID)
	if err != nil {
		t.Fatalf("Failed to accept invitation: %v", err)
	}
	if accepted.Status != StatusAccepted {
		t.Errorf("Expected status %s, got %s", StatusAccepted, accepted.Status)
	}

	joined, err := env.userRepo.GetByID(ctx, invitee.ID)
	if err != nil {
		t.Fatalf("Failed to get user: %v", err)
	}
	if joined.FamilyID == nil || *joined.FamilyID != famID {
		t.Errorf("Expected invitee in family %d, got %v", famID, joined.FamilyID)
	}
}

func TestInvitationResolvesOnce(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	inviter := env.newUser(t, "Alice", "alice@example.com")
	famID := env.newFamilyFor(t, inviter, "The Atkins")
	invitee := env.newUser(t, "Bob", "bob@example.com")

	inv, err := env.svc.Invite(ctx, famID, &CreateInvitationRequest{Email: "bob@example.com"})
	if err != nil {
		t.Fatalf("Failed to invite: %v", err)
	}

	if _, err := env.svc.Decline(ctx, invitee.ID, inv.ID); err != nil {
		t.Fatalf("Failed to decline invitation: %v", err)
	}

	if _, err := env.svc.Accept(ctx, invitee.ID, inv.ID); !errors.Is(err, ErrAlreadyResolved) {
		t.Errorf("Expected ErrAlreadyResolved, got %v", err)
	}
	if _, err := env.svc.Decline(ctx, invitee.ID, inv.ID); !errors.Is(err, ErrAlreadyResolved) {
		t.Errorf("Expected ErrAlreadyResolved, got %v", err)
	}
}

func TestExpiredInvitationCannotResolve(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	inviter := env.newUser(t, "Alice", "alice@example.com")
	famID := env.newFamilyFor(t, inviter, "The Atkins")
	invitee := env.newUser(t, "Bob", "bob@example.com")

	inv, err := env.svc.Invite(ctx, famID, &CreateInvitationRequest{Email: "bob@example.com"})
	if err != nil {
		t.Fatalf("Failed to invite: %v", err)
	}

	past := time.Now().UTC().Add(-time.Hour)
	if _, err := env.db.ExecContext(ctx, "UPDATE invitations SET expires_at = ? WHERE id = ?", past, inv.ID); err != nil {
		t.Fatalf("Failed to expire invitation: %v", err)
	}

	if _, err := env.svc.Accept(ctx, invitee.ID, inv.ID); !errors.Is(err, ErrInvitationExpired) {
		t.Errorf("Expected ErrInvitationExpired, got %v", err)
	}

	mine, err := env.svc.ListMine(ctx, invitee.ID)
	if err != nil {
		t.Fatalf("Failed to list invitations: %v", err)
	}
	if len(mine) != 0 {
		t.Errorf("Expired invitations should not be listed, got %d", len(mine))
	}
}

func TestInviteGuards(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	inviter := env.newUser(t, "Alice", "alice@example.com")
	famID := env.newFamilyFor(t, inviter, "The Atkins")

	if _, err := env.svc.Invite(ctx, 0, &CreateInvitationRequest{Email: "x@example.com"}); !errors.Is(err, ErrNoFamily) {
		t.Errorf("Expected ErrNoFamily, got %v", err)
	}
	if _, err := env.svc.Invite(ctx, famID, &CreateInvitationRequest{Email: "   "}); !errors.Is(err, ErrEmailRequired) {
		t.Errorf("Expected ErrEmailRequired, got %v", err)
	}
	if _, err := env.svc.Invite(ctx, famID, &CreateInvitationRequest{Email: "alice@example.com"}); !errors.Is(err, ErrSelfInvite) {
		t.Errorf("Expected ErrSelfInvite, got %v", err)
	}

	past := time.Now().UTC().Add(-time.Hour)
	if _, err := env.svc.Invite(ctx, famID, &CreateInvitationRequest{Email: "y@example.com", ExpiresAt: &past}); !errors.Is(err, ErrInvalidExpiry) {
		t.Errorf("Expected ErrInvalidExpiry, got %v", err)
	}
}

func TestAcceptGuards(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	inviter := env.newUser(t, "Alice", "alice@example.com")
	famID := env.newFamilyFor(t, inviter, "The Atkins")
	stranger := env.newUser(t, "Carol", "carol@example.com")
	settled := env.newUser(t, "Dave", "dave@example.com")
	env.newFamilyFor(t, settled, "The Davidsons")

	inv, err := env.svc.Invite(ctx, famID, &CreateInvitationRequest{Email: "dave@example.com"})
	if err != nil {
		t.Fatalf("Failed to invite: %v", err)
	}

	if _, err := env.svc.Accept(ctx, stranger.ID, inv.ID); !errors.Is(err, ErrNotInvitee) {
		t.Errorf("Expected ErrNotInvitee, got %v", err)
	}
	if _, err := env.svc.Accept(ctx, settled.ID, inv.ID); !errors.Is(err, ErrAlreadyInFamily) {
		t.Errorf("Expected ErrAlreadyInFamily, got %v", err)
	}
	if _, err := env.svc.Accept(ctx, settled.ID, 9999); !errors.Is(err, ErrInvitationNotFound) {
		t.Errorf("Expected ErrInvitationNotFound, got %v", err)
	}
}
