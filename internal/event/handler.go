package event

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"sitterswap/pkg/middleware"
	"sitterswap/pkg/response"
)

// Handler handles HTTP requests for event operations
type Handler struct {
	service *Service
}

// NewHandler creates a new event handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes returns the router for event endpoints
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/", h.Create)
	r.Get("/", h.ListMine)
	r.Post("/sweep", h.Sweep)
	r.Get("/group/{groupId}", h.ListOpenByGroup)
	r.Get("/group/{groupId}/past", h.ListPastByGroup)
	r.Get("/{id}", h.GetByID)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
	r.Post("/{id}/accept", h.Accept)
	r.Post("/{id}/reject", h.Reject)
	r.Post("/{id}/cancel", h.Cancel)

	return r
}

// Create handles POST /events
// @Summary      Create a sitting request
// @Description  Create a pending event; the caller's family is debited the event's points
// @Tags         events
// @Accept       json
// @Produce      json
// @Param        request body CreateEventRequest true "Event creation request"
// @Success      201 {object} response.APIResponse{data=EventResponse}
// @Failure      400 {object} response.APIResponse
// @Failure      403 {object} response.APIResponse
// @Router       /events [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	identity, _ := middleware.GetIdentity(r.Context())

	var req CreateEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	event, err := h.service.Create(r.Context(), identity.FamilyID, &req)
	if err != nil {
		switch {
		case errors.Is(err, ErrNoFamily), errors.Is(err, ErrNameRequired),
			errors.Is(err, ErrInvalidTimeRange), errors.Is(err, ErrInvalidPoints):
			response.Validation(w, err.Error())
		case errors.Is(err, ErrNotGroupMember):
			response.Forbidden(w, err.Error())
		default:
			response.InternalError(w, "Failed to create event")
		}
		return
	}

	response.JSON(w, http.StatusCreated, event.ToResponse())
}

// GetByID handles GET /events/{id}
func (h *Handler) GetByID(w http.ResponseWriter, r *http.Request) {
	identity, _ := middleware.GetIdentity(r.Context())

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid event ID")
		return
	}

	event, err := h.service.Get(r.Context(), identity.FamilyID, id)
	if err != nil {
		switch {
		case errors.Is(err, ErrEventNotFound):
			response.NotFound(w, err.Error())
		case errors.Is(err, ErrNotGroupMember):
			response.Forbidden(w, err.Error())
		default:
			response.InternalError(w, "Failed to get event")
		}
		return
	}

	response.JSON(w, http.StatusOK, event.ToResponse())
}

// ListMine handles GET /events
func (h *Handler) ListMine(w http.ResponseWriter, r *http.Request) {
	identity, _ := middleware.GetIdentity(r.Context())

	events, err := h.service.ListMine(r.Context(), identity.FamilyID)
	if err != nil {
		if errors.Is(err, ErrNoFamily) {
			response.Validation(w, err.Error())
			return
		}
		response.InternalError(w, "Failed to list events")
		return
	}

	response.JSON(w, http.StatusOK, toResponses(events))
}

// ListOpenByGroup handles GET /events/group/{groupId}
// @Summary      List open requests in a group
// @Description  Pending events in the group, excluding ones the caller's family declined
// @Tags         events
// @Produce      json
// @Param        groupId path int true "Group ID"
// @Success      200 {object} response.APIResponse{data=[]EventResponse}
// @Failure      403 {object} response.APIResponse
// @Router       /events/group/{groupId} [get]
func (h *Handler) ListOpenByGroup(w http.ResponseWriter, r *http.Request) {
	identity, _ := middleware.GetIdentity(r.Context())

	groupID, err := strconv.ParseInt(chi.URLParam(r, "groupId"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid group ID")
		return
	}

	events, err := h.service.ListOpenByGroup(r.Context(), identity.FamilyID, groupID)
	if err != nil {
		if errors.Is(err, ErrNotGroupMember) {
			response.Forbidden(w, err.Error())
			return
		}
		response.InternalError(w, "Failed to list events")
		return
	}

	response.JSON(w, http.StatusOK, toResponses(events))
}

// ListPastByGroup handles GET /events/group/{groupId}/past
func (h *Handler) ListPastByGroup(w http.ResponseWriter, r *http.Request) {
	identity, _ := middleware.GetIdentity(r.Context())

	groupID, err := strconv.ParseInt(chi.URLParam(r, "groupId"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid group ID")
		return
	}

	events, err := h.service.ListPastByGroup(r.Context(), identity.FamilyID, groupID)
	if err != nil {
		if errors.Is(err, ErrNotGroupMember) {
			response.Forbidden(w, err.Error())
			return
		}
		response.InternalError(w, "Failed to list events")
		return
	}

	response.JSON(w, http.StatusOK, toResponses(events))
}

// Update handles PUT /events/{id}
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	identity, _ := middleware.GetIdentity(r.Context())

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid event ID")
		return
	}

	var req UpdateEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	event, err := h.service.Update(r.Context(), identity.FamilyID, id, &req)
	if err != nil {
		switch {
		case errors.Is(err, ErrEventNotFound):
			response.NotFound(w, err.Error())
		case errors.Is(err, ErrNotCreator):
			response.Forbidden(w, err.Error())
		case errors.Is(err, ErrEventFinished), errors.Is(err, ErrNotPending):
			response.Conflict(w, err.Error())
		case errors.Is(err, ErrNameRequired), errors.Is(err, ErrInvalidTimeRange),
			errors.Is(err, ErrInvalidPoints), errors.Is(err, ErrNotGroupMember),
			errors.Is(err, ErrTargetNotMember):
			response.Validation(w, err.Error())
		default:
			response.InternalError(w, "Failed to update event")
		}
		return
	}

	response.JSON(w, http.StatusOK, event.ToResponse())
}

// Delete handles DELETE /events/{id}
// @Summary      Delete an event
// @Description  Creator-only; refunds the creator's reservation and reverses the holder's pending credit
// @Tags         events
// @Produce      json
// @Param        id path int true "Event ID"
// @Success      200 {object} response.APIResponse
// @Failure      403 {object} response.APIResponse
// @Failure      404 {object} response.APIResponse
// @Router       /events/{id} [delete]
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	identity, _ := middleware.GetIdentity(r.Context())

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid event ID")
		return
	}

	if err := h.service.Delete(r.Context(), identity.FamilyID, id); err != nil {
		switch {
		case errors.Is(err, ErrEventNotFound):
			response.NotFound(w, err.Error())
		case errors.Is(err, ErrNotCreator):
			response.Forbidden(w, err.Error())
		default:
			response.InternalError(w, "Failed to delete event")
		}
		return
	}

	response.JSON(w, http.StatusOK, map[string]string{"message": "Event deleted successfully"})
}

// Accept handles POST /events/{id}/accept
// @Summary      Accept a sitting request
// @Description  Commits the caller's family to the sitting; payout happens at expiry
// @Tags         events
// @Produce      json
// @Param        id path int true "Event ID"
// @Success      200 {object} response.APIResponse{data=EventResponse}
// @Failure      403 {object} response.APIResponse
// @Failure      409 {object} response.APIResponse
// @Router       /events/{id}/accept [post]
func (h *Handler) Accept(w http.ResponseWriter, r *http.Request) {
	identity, _ := middleware.GetIdentity(r.Context())

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid event ID")
		return
	}

	event, err := h.service.Accept(r.Context(), identity.UserID, identity.FamilyID, id)
	if err != nil {
		switch {
		case errors.Is(err, ErrEventNotFound):
			response.NotFound(w, err.Error())
		case errors.Is(err, ErrNotGroupMember):
			response.Forbidden(w, err.Error())
		case errors.Is(err, ErrOwnEvent), errors.Is(err, ErrNoFamily):
			response.Validation(w, err.Error())
		case errors.Is(err, ErrNotPending):
			response.Conflict(w, err.Error())
		default:
			response.InternalError(w, "Failed to accept event")
		}
		return
	}

	response.JSON(w, http.StatusOK, event.ToResponse())
}

// Reject handles POST /events/{id}/reject
func (h *Handler) Reject(w http.ResponseWriter, r *http.Request) {
	identity, _ := middleware.GetIdentity(r.Context())

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid event ID")
		return
	}

	event, err := h.service.Reject(r.Context(), identity.FamilyID, id)
	if err != nil {
		switch {
		case errors.Is(err, ErrEventNotFound):
			response.NotFound(w, err.Error())
		case errors.Is(err, ErrNotGroupMember):
			response.Forbidden(w, err.Error())
		case errors.Is(err, ErrOwnEvent):
			response.Validation(w, err.Error())
		case errors.Is(err, ErrNotPending):
			response.Conflict(w, err.Error())
		default:
			response.InternalError(w, "Failed to reject event")
		}
		return
	}

	response.JSON(w, http.StatusOK, event.ToResponse())
}

// Cancel handles POST /events/{id}/cancel
// @Summary      Cancel an acceptance
// @Description  Returns an accepted event to the open pool and reverses the holder's pending credit
// @Tags         events
// @Produce      json
// @Param        id path int true "Event ID"
// @Success      200 {object} response.APIResponse{data=EventResponse}
// @Failure      403 {object} response.APIResponse
// @Failure      409 {object} response.APIResponse
// @Router       /events/{id}/cancel [post]
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	identity, _ := middleware.GetIdentity(r.Context())

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid event ID")
		return
	}

	event, err := h.service.Cancel(r.Context(), identity.FamilyID, id)
	if err != nil {
		switch {
		case errors.Is(err, ErrEventNotFound):
			response.NotFound(w, err.Error())
		case errors.Is(err, ErrNotAuthorized):
			response.Forbidden(w, err.Error())
		case errors.Is(err, ErrNotAccepted), errors.Is(err, ErrEventFinished):
			response.Conflict(w, err.Error())
		default:
			response.InternalError(w, "Failed to cancel event")
		}
		return
	}

	response.JSON(w, http.StatusOK, event.ToResponse())
}

// Sweep handles POST /events/sweep
func (h *Handler) Sweep(w http.ResponseWriter, r *http.Request) {
	expired, err := h.service.Sweep(r.Context())
	if err != nil {
		response.InternalError(w, "Failed to sweep events")
		return
	}

	response.JSON(w, http.StatusOK, &SweepResponse{Expired: expired})
}

func toResponses(events []*Event) []*EventResponse {
	responses := make([]*EventResponse, len(events))
	for i, ev := range events {
		responses[i] = ev.ToResponse()
	}
	return responses
}
