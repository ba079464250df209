package group

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"sitterswap/pkg/middleware"
	"sitterswap/pkg/response"
)

// Handler handles HTTP requests for group operations
type Handler struct {
	service *Service
}

// NewHandler creates a new group handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes returns the router for group endpoints
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/", h.Create)
	r.Get("/", h.ListMine)
	r.Post("/join", h.Join)
	r.Get("/{id}", h.GetByID)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
	r.Get("/{id}/balances", h.Balances)
	r.Delete("/{id}/members/{familyId}", h.RemoveMember)
	r.Post("/{id}/admin", h.TransferAdmin)

	return r
}

// Create handles POST /groups
// @Summary      Create a group
// @Description  Create a group with the caller's family as member and admin
// @Tags         groups
// @Accept       json
// @Produce      json
// @Param        request body CreateGroupRequest true "Group creation request"
// @Success      201 {object} response.APIResponse{data=GroupResponse}
// @Failure      400 {object} response.APIResponse
// @Router       /groups [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	identity, _ := middleware.GetIdentity(r.Context())

	var req CreateGroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	group, err := h.service.Create(r.Context(), identity.FamilyID, &req)
	if err != nil {
		switch {
		case errors.Is(err, ErrNoFamily), errors.Is(err, ErrNameRequired):
			response.Validation(w, err.Error())
		default:
			response.InternalError(w, "Failed to create group")
		}
		return
	}

	response.JSON(w, http.StatusCreated, group.ToResponse())
}

// ListMine handles GET /groups
func (h *Handler) ListMine(w http.ResponseWriter, r *http.Request) {
	identity, _ := middleware.GetIdentity(r.Context())

	groups, err := h.service.ListMine(r.Context(), identity.FamilyID)
	if err != nil {
		if errors.Is(err, ErrNoFamily) {
			response.Validation(w, err.Error())
			return
		}
		response.InternalError(w, "Failed to list groups")
		return
	}

	groupResponses := make([]*GroupResponse, len(groups))
	for i, g := range groups {
		groupResponses[i] = g.ToResponse()
	}

	response.JSON(w, http.StatusOK, groupResponses)
}

// GetByID handles GET /groups/{id}
// @Summary      Get group by ID
// @Description  Get a group with its member families (members only)
// @Tags         groups
// @Produce      json
// @Param        id path int true "Group ID"
// @Success      200 {object} response.APIResponse{data=GroupResponse}
// @Failure      403 {object} response.APIResponse
// @Failure      404 {object} response.APIResponse
// @Router       /groups/{id} [get]
func (h *Handler) GetByID(w http.ResponseWriter, r *http.Request) {
	identity, _ := middleware.GetIdentity(r.Context())

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid group ID")
		return
	}

	group, members, err := h.service.Get(r.Context(), identity.FamilyID, id)
	if err != nil {
		switch {
		case errors.Is(err, ErrGroupNotFound):
			response.NotFound(w, err.Error())
		case errors.Is(err, ErrNotMember):
			response.Forbidden(w, err.Error())
		default:
			response.InternalError(w, "Failed to get group")
		}
		return
	}

	resp := group.ToResponse()
	resp.Members = make([]*MemberResponse, len(members))
	for i, m := range members {
		resp.Members[i] = m.ToResponse()
	}

	response.JSON(w, http.StatusOK, resp)
}

// Update handles PUT /groups/{id}
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	identity, _ := middleware.GetIdentity(r.Context())

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid group ID")
		return
	}

	var req UpdateGroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	group, err := h.service.Update(r.Context(), identity.FamilyID, id, &req)
	if err != nil {
		switch {
		case errors.Is(err, ErrGroupNotFound):
			response.NotFound(w, err.Error())
		case errors.Is(err, ErrNotGroupAdmin):
			response.Forbidden(w, err.Error())
		default:
			response.InternalError(w, "Failed to update group")
		}
		return
	}

	response.JSON(w, http.StatusOK, group.ToResponse())
}

// Delete handles DELETE /groups/{id}
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	identity, _ := middleware.GetIdentity(r.Context())

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid group ID")
		return
	}

	if err := h.service.Delete(r.Context(), identity.FamilyID, id); err != nil {
		switch {
		case errors.Is(err, ErrGroupNotFound):
			response.NotFound(w, err.Error())
		case errors.Is(err, ErrNotGroupAdmin):
			response.Forbidden(w, err.Error())
		default:
			response.InternalError(w, "Failed to delete group")
		}
		return
	}

	response.JSON(w, http.StatusOK, map[string]string{"message": "Group deleted successfully"})
}

// Join handles POST /groups/join
// @Summary      Join a group by invite code
// @Description  Adds the caller's family as a member and seeds its points balance
// @Tags         groups
// @Accept       json
// @Produce      json
// @Param        request body JoinGroupRequest true "Invite code"
// @Success      200 {object} response.APIResponse{data=GroupResponse}
// @Failure      404 {object} response.APIResponse
// @Failure      409 {object} response.APIResponse
// @Router       /groups/join [post]
func (h *Handler) Join(w http.ResponseWriter, r *http.Request) {
	identity, _ := middleware.GetIdentity(r.Context())

	var req JoinGroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	group, err := h.service.JoinByCode(r.Context(), identity.FamilyID, req.InviteCode)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidInviteCode):
			response.NotFound(w, err.Error())
		case errors.Is(err, ErrAlreadyMember):
			response.Conflict(w, err.Error())
		case errors.Is(err, ErrNoFamily):
			response.Validation(w, err.Error())
		default:
			response.InternalError(w, "Failed to join group")
		}
		return
	}

	response.JSON(w, http.StatusOK, group.ToResponse())
}

// Balances handles GET /groups/{id}/balances
func (h *Handler) Balances(w http.ResponseWriter, r *http.Request) {
	identity, _ := middleware.GetIdentity(r.Context())

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid group ID")
		return
	}

	balances, err := h.service.Balances(r.Context(), identity.FamilyID, id)
	if err != nil {
		switch {
		case errors.Is(err, ErrGroupNotFound):
			response.NotFound(w, err.Error())
		case errors.Is(err, ErrNotMember):
			response.Forbidden(w, err.Error())
		default:
			response.InternalError(w, "Failed to list balances")
		}
		return
	}

	response.JSON(w, http.StatusOK, balances)
}

// RemoveMember handles DELETE /groups/{id}/members/{familyId}
func (h *Handler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	identity, _ := middleware.GetIdentity(r.Context())

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid group ID")
		return
	}

	familyID, err := strconv.ParseInt(chi.URLParam(r, "familyId"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid family ID")
		return
	}

	if err := h.service.RemoveMember(r.Context(), identity.FamilyID, id, familyID); err != nil {
		switch {
		case errors.Is(err, ErrGroupNotFound), errors.Is(err, ErrNotMember):
			response.NotFound(w, err.Error())
		case errors.Is(err, ErrNotGroupAdmin):
			response.Forbidden(w, err.Error())
		case errors.Is(err, ErrCannotRemoveAdmin):
			response.Validation(w, err.Error())
		default:
			response.InternalError(w, "Failed to remove member")
		}
		return
	}

	response.JSON(w, http.StatusOK, map[string]string{"message": "Member removed successfully"})
}

// TransferAdmin handles POST /groups/{id}/admin
func (h *Handler) TransferAdmin(w http.ResponseWriter, r *http.Request) {
	identity, _ := middleware.GetIdentity(r.Context())

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid group ID")
		return
	}

	var req TransferAdminRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	if err := h.service.TransferAdmin(r.Context(), identity.FamilyID, id, req.FamilyID); err != nil {
		switch {
		case errors.Is(err, ErrGroupNotFound):
			response.NotFound(w, err.Error())
		case errors.Is(err, ErrNotGroupAdmin):
			response.Forbidden(w, err.Error())
		case errors.Is(err, ErrNotMember):
			response.Validation(w, err.Error())
		default:
			response.InternalError(w, "Failed to transfer admin")
		}
		return
	}

	response.JSON(w, http.StatusOK, map[string]string{"message": "Admin transferred successfully"})
}
