package family

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"sitterswap/internal/user"
	"sitterswap/pkg/middleware"
	"sitterswap/pkg/response"
	"sitterswap/pkg/token"
)

// Handler handles HTTP requests for family operations
type Handler struct {
	service *Service
	tokens  *token.Manager
}

// NewHandler creates a new family handler. The token manager is used to
// re-issue the caller's token when their family membership changes.
func NewHandler(service *Service, tokens *token.Manager) *Handler {
	return &Handler{service: service, tokens: tokens}
}

// Routes returns the router for family endpoints
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/", h.Create)
	r.Post("/leave", h.Leave)
	r.Get("/{id}", h.GetByID)
	r.Put("/{id}", h.Update)
	r.Post("/{id}/children", h.AddChild)
	r.Delete("/{id}/children/{childId}", h.RemoveChild)
	r.Post("/{id}/admin", h.SetAdmin)

	return r
}

// Create handles POST /families
// @Summary      Create a family
// @Description  Create a family with the caller as sole member and current admin
// @Tags         families
// @Accept       json
// @Produce      json
// @Param        request body CreateFamilyRequest true "Family creation request"
// @Success      201 {object} response.APIResponse{data=FamilyResponse}
// @Failure      400 {object} response.APIResponse
// @Failure      409 {object} response.APIResponse
// @Router       /families [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	identity, _ := middleware.GetIdentity(r.Context())

	var req CreateFamilyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	family, err := h.service.Create(r.Context(), identity.UserID, &req)
	if err != nil {
		switch {
		case errors.Is(err, ErrAlreadyInFamily):
			response.Conflict(w, err.Error())
		case errors.Is(err, ErrNameRequired):
			response.Validation(w, err.Error())
		default:
			response.InternalError(w, "Failed to create family")
		}
		return
	}

	resp := family.ToResponse()
	// Hand back a token carrying the new family id
	if signed, err := h.tokens.Mint(identity.UserID, family.ID); err == nil {
		response.JSON(w, http.StatusCreated, map[string]interface{}{"family": resp, "token": signed})
		return
	}

	response.JSON(w, http.StatusCreated, resp)
}

// GetByID handles GET /families/{id}
// @Summary      Get family by ID
// @Tags         families
// @Produce      json
// @Param        id path int true "Family ID"
// @Success      200 {object} response.APIResponse{data=FamilyResponse}
// @Failure      404 {object} response.APIResponse
// @Router       /families/{id} [get]
func (h *Handler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid family ID")
		return
	}

	family, members, children, err := h.service.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrFamilyNotFound) {
			response.NotFound(w, err.Error())
			return
		}
		response.InternalError(w, "Failed to get family")
		return
	}

	resp := family.ToResponse()
	resp.Members = make([]*user.UserResponse, len(members))
	for i, m := range members {
		resp.Members[i] = m.ToResponse()
	}
	resp.Children = make([]*ChildResponse, len(children))
	for i, c := range children {
		resp.Children[i] = c.ToResponse()
	}

	response.JSON(w, http.StatusOK, resp)
}

// Update handles PUT /families/{id}
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	identity, _ := middleware.GetIdentity(r.Context())

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid family ID")
		return
	}

	var req UpdateFamilyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	family, err := h.service.Update(r.Context(), identity.FamilyID, id, &req)
	if err != nil {
		switch {
		case errors.Is(err, ErrFamilyNotFound):
			response.NotFound(w, err.Error())
		case errors.Is(err, ErrNotFamilyMember):
			response.Forbidden(w, err.Error())
		default:
			response.InternalError(w, "Failed to update family")
		}
		return
	}

	response.JSON(w, http.StatusOK, family.ToResponse())
}

// AddChild handles POST /families/{id}/children
func (h *Handler) AddChild(w http.ResponseWriter, r *http.Request) {
	identity, _ := middleware.GetIdentity(r.Context())

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid family ID")
		return
	}

	var req AddChildRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	child, err := h.service.AddChild(r.Context(), identity.FamilyID, id, &req)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFamilyMember):
			response.Forbidden(w, err.Error())
		case errors.Is(err, ErrNameRequired):
			response.Validation(w, err.Error())
		default:
			response.InternalError(w, "Failed to add child")
		}
		return
	}

	response.JSON(w, http.StatusCreated, child.ToResponse())
}

// RemoveChild handles DELETE /families/{id}/children/{childId}
func (h *Handler) RemoveChild(w http.ResponseWriter, r *http.Request) {
	identity, _ := middleware.GetIdentity(r.Context())

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid family ID")
		return
	}

	childID, err := strconv.ParseInt(chi.URLParam(r, "childId"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid child ID")
		return
	}

	if err := h.service.RemoveChild(r.Context(), identity.FamilyID, id, childID); err != nil {
		switch {
		case errors.Is(err, ErrChildNotFound):
			response.NotFound(w, err.Error())
		case errors.Is(err, ErrNotFamilyMember):
			response.Forbidden(w, err.Error())
		default:
			response.InternalError(w, "Failed to remove child")
		}
		return
	}

	response.JSON(w, http.StatusOK, map[string]string{"message": "Child removed successfully"})
}

// SetAdmin handles POST /families/{id}/admin
func (h *Handler) SetAdmin(w http.ResponseWriter, r *http.Request) {
	identity, _ := middleware.GetIdentity(r.Context())

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid family ID")
		return
	}

	var req SetAdminRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	if err := h.service.SetCurrentAdmin(r.Context(), identity.UserID, id, req.UserID); err != nil {
		switch {
		case errors.Is(err, ErrFamilyNotFound):
			response.NotFound(w, err.Error())
		case errors.Is(err, ErrNotCurrentAdmin), errors.Is(err, ErrNotFamilyMember):
			response.Forbidden(w, err.Error())
		default:
			response.InternalError(w, "Failed to change admin")
		}
		return
	}

	response.JSON(w, http.StatusOK, map[string]string{"message": "Admin updated successfully"})
}

// Leave handles POST /families/leave
func (h *Handler) Leave(w http.ResponseWriter, r *http.Request) {
	identity, _ := middleware.GetIdentity(r.Context())

	if err := h.service.Leave(r.Context(), identity.UserID); err != nil {
		switch {
		case errors.Is(err, ErrNoFamily):
			response.Validation(w, err.Error())
		case errors.Is(err, ErrHasOpenEvents):
			response.Conflict(w, err.Error())
		case errors.Is(err, user.ErrUserNotFound):
			response.NotFound(w, err.Error())
		default:
			response.InternalError(w, "Failed to leave family")
		}
		return
	}

	signed, err := h.tokens.Mint(identity.UserID, 0)
	if err != nil {
		response.JSON(w, http.StatusOK, map[string]string{"message": "Left family"})
		return
	}

	response.JSON(w, http.StatusOK, map[string]string{"message": "Left family", "token": signed})
}
