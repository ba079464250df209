package invitation

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"sitterswap/pkg/middleware"
	"sitterswap/pkg/response"
	"sitterswap/pkg/token"
)

// Handler handles HTTP requests for invitation operations
type Handler struct {
	service *Service
	tokens  *token.Manager
}

// NewHandler creates a new invitation handler. The token manager is used to
// re-issue the caller's token when accepting moves them into a family.
func NewHandler(service *Service, tokens *token.Manager) *Handler {
	return &Handler{service: service, tokens: tokens}
}

// Routes returns the router for invitation endpoints
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/", h.Create)
	r.Get("/", h.ListMine)
	r.Get("/sent", h.ListSent)
	r.Post("/{id}/accept", h.Accept)
	r.Post("/{id}/decline", h.Decline)

	return r
}

// Create handles POST /invitations
// @Summary      Invite a user to the caller's family
// @Description  Creates a pending invitation addressed to an email
// @Tags         invitations
// @Accept       json
// @Produce      json
// @Param        request body CreateInvitationRequest true "Invitation request"
// @Success      201 {object} response.APIResponse{data=InvitationResponse}
// @Failure      400 {object} response.APIResponse
// @Router       /invitations [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	identity, _ := middleware.GetIdentity(r.Context())

	var req CreateInvitationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	inv, err := h.service.Invite(r.Context(), identity.FamilyID, &req)
	if err != nil {
		switch {
		case errors.Is(err, ErrNoFamily), errors.Is(err, ErrEmailRequired),
			errors.Is(err, ErrSelfInvite), errors.Is(err, ErrInvalidExpiry):
			response.Validation(w, err.Error())
		default:
			response.InternalError(w, "Failed to create invitation")
		}
		return
	}

	response.JSON(w, http.StatusCreated, inv.ToResponse())
}

// ListMine handles GET /invitations
func (h *Handler) ListMine(w http.ResponseWriter, r *http.Request) {
	identity, _ := middleware.GetIdentity(r.Context())

	invitations, err := h.service.ListMine(r.Context(), identity.UserID)
	if err != nil {
		response.InternalError(w, "Failed to list invitations")
		return
	}

	response.JSON(w, http.StatusOK, toResponses(invitations))
}

// ListSent handles GET /invitations/sent
func (h *Handler) ListSent(w http.ResponseWriter, r *http.Request) {
	identity, _ := middleware.GetIdentity(r.Context())

	invitations, err := h.service.ListSent(r.Context(), identity.FamilyID)
	if err != nil {
		if errors.Is(err, ErrNoFamily) {
			response.Validation(w, err.Error())
			return
		}
		response.InternalError(w, "Failed to list invitations")
		return
	}

	response.JSON(w, http.StatusOK, toResponses(invitations))
}

// Accept handles POST /invitations/{id}/accept
// @Summary      Accept an invitation
// @Description  Resolves the invitation and moves the caller into the inviting family
// @Tags         invitations
// @Produce      json
// @Param        id path int true "Invitation ID"
// @Success      200 {object} response.APIResponse{data=InvitationResponse}
// @Failure      404 {object} response.APIResponse
// @Failure      409 {object} response.APIResponse
// @Router       /invitations/{id}/accept [post]
func (h *Handler) Accept(w http.ResponseWriter, r *http.Request) {
	identity, _ := middleware.GetIdentity(r.Context())

	inv, ok := h.resolve(w, r, h.service.Accept, "Failed to accept invitation")
	if !ok {
		return
	}

	resp := inv.ToResponse()
	// Hand back a token carrying the new family id
	if signed, err := h.tokens.Mint(identity.UserID, inv.InviterFamilyID); err == nil {
		response.JSON(w, http.StatusOK, map[string]interface{}{"invitation": resp, "token": signed})
		return
	}

	response.JSON(w, http.StatusOK, resp)
}

// Decline handles POST /invitations/{id}/decline
func (h *Handler) Decline(w http.ResponseWriter, r *http.Request) {
	inv, ok := h.resolve(w, r, h.service.Decline, "Failed to decline invitation")
	if !ok {
		return
	}
	response.JSON(w, http.StatusOK, inv.ToResponse())
}

func (h *Handler) resolve(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, actorUserID, id int64) (*Invitation, error), failMsg string) (*Invitation, bool) {
	identity, _ := middleware.GetIdentity(r.Context())

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid invitation ID")
		return nil, false
	}

	inv, err := fn(r.Context(), identity.UserID, id)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvitationNotFound):
			response.NotFound(w, err.Error())
		case errors.Is(err, ErrNotInvitee):
			response.Forbidden(w, err.Error())
		case errors.Is(err, ErrAlreadyResolved), errors.Is(err, ErrInvitationExpired):
			response.Conflict(w, err.Error())
		case errors.Is(err, ErrAlreadyInFamily):
			response.Validation(w, err.Error())
		default:
			response.InternalError(w, failMsg)
		}
		return nil, false
	}

	return inv, true
}

func toResponses(invitations []*Invitation) []*InvitationResponse {
	responses := make([]*InvitationResponse, len(invitations))
	for i, inv := range invitations {
		responses[i] = inv.ToResponse()
	}
	return responses
}
