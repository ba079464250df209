package invitation

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"sitterswap/pkg/middleware"
	"sitterswap/pkg/token"
)

func TestAcceptReissuesToken(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	inviter := env.newUser(t, "Alice", "alice@example.com")
	famID := env.newFamilyFor(t, inviter, "The Atkins")
	invitee := env.newUser(t, "Bob", "bob@example.com")

	inv, err := env.svc.Invite(ctx, famID, &CreateInvitationRequest{Email: "bob@example.com"})
	if err != nil {
		t.Fatalf("Failed to invite: %v", err)
	}

	tokens := token.NewManager("test-secret", time.Hour)
	handler := NewHandler(env.svc, tokens)

	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/%d/accept", inv.ID), nil)
	identity := middleware.Identity{UserID: invitee.ID}
	req = req.WithContext(context.WithValue(req.Context(), middleware.IdentityKey, identity))

	rec := httptest.NewRecorder()
	handler.Routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var body struct {
		Data struct {
			Token string `json:"token"`
		} `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if body.Data.Token == "" {
		t.Fatal("Expected a fresh token alongside the accepted invitation")
	}

	// The new token must carry the joined family so the caller is not stuck
	// on a pre-join identity until re-login.
	claims, err := tokens.Verify(body.Data.Token)
	if err != nil {
		t.Fatalf("Failed to verify token: %v", err)
	}
	if claims.UserID != invitee.ID || claims.FamilyID != famID {
		t.Errorf("Expected claims for user %d in family %d, got user %d in family %d",
			invitee.ID, famID, claims.UserID, claims.FamilyID)
	}
}
