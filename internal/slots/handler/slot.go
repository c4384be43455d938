package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"slotter/internal/slots/service"
	apperrors "slotter/pkg/errors"
	httputil "slotter/pkg/http"
	"slotter/pkg/logger"
	"slotter/pkg/middleware"
	"slotter/pkg/model"

	"github.com/julienschmidt/httprouter"
)

// Route patterns double as the rate-limit policy table keys; app wiring
// registers a policy for each (method, pattern) pair before the server
// starts.
const (
	RouteSlots           = "/api/v1/slots"
	RouteSlotByID        = "/api/v1/slots/id/:id"
	RouteSlotSuggestions = "/api/v1/slots/suggestions"
)

// Advisor proposes alternative slots when a requested one is unavailable.
type Advisor interface {
	Suggest(ctx context.Context, workshopID string, requestedStart time.Time, durationMin int) ([]model.SlotSuggestion, error)
}

type SlotHandler struct {
	service   service.SlotService
	advisor   Advisor
	rateLimit *middleware.RateLimit
	log       *logger.Logger
}

func NewSlotHandler(service service.SlotService, advisor Advisor, rateLimit *middleware.RateLimit, log *logger.Logger) *SlotHandler {
	return &SlotHandler{
		service:   service,
		advisor:   advisor,
		rateLimit: rateLimit,
		log:       log,
	}
}

func (h *SlotHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST(RouteSlots, h.rateLimit.Wrap(http.MethodPost, RouteSlots, h.Create))
	router.DELETE(RouteSlotByID, h.rateLimit.Wrap(http.MethodDelete, RouteSlotByID, h.Delete))
	router.GET(RouteSlots, h.rateLimit.Wrap(http.MethodGet, RouteSlots, h.ListAvailable))
	router.GET(RouteSlotSuggestions, h.rateLimit.Wrap(http.MethodGet, RouteSlotSuggestions, h.Suggestions))
}

func (h *SlotHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var slot model.Slot
	if err := json.NewDecoder(r.Body).Decode(&slot); err != nil {
		if writeErr := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Invalid request body",
		}); writeErr != nil {
			h.log.Error("failed to write JSON response", "handler", "Create", "operation", "WriteJSON", "error", writeErr)
		}
		return
	}

	subjectID := middleware.SubjectFrom(r.Context())
	if err := h.service.Create(r.Context(), subjectID, &slot); err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Create", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteCreated(w, slot); err != nil {
		h.log.Error("failed to write created response", "handler", "Create", "operation", "WriteCreated", "error", err)
	}
}

func (h *SlotHandler) Delete(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")

	subjectID := middleware.SubjectFrom(r.Context())
	if err := h.service.Delete(r.Context(), subjectID, id); err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Delete", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	httputil.WriteNoContent(w)
}

func (h *SlotHandler) ListAvailable(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	query := r.URL.Query()

	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "ListAvailable", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	from, err := parseOptionalTime(query.Get("from"))
	if err != nil {
		if writeErr := httputil.WriteError(w, apperrors.InvalidInput("invalid from parameter, expected RFC3339")); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "ListAvailable", "operation", "WriteError", "error", writeErr)
		}
		return
	}
	to, err := parseOptionalTime(query.Get("to"))
	if err != nil {
		if writeErr := httputil.WriteError(w, apperrors.InvalidInput("invalid to parameter, expected RFC3339")); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "ListAvailable", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	slots, total, err := h.service.ListAvailable(r.Context(), query.Get("workshop_id"), from, to, limit, offset)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "ListAvailable", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WritePaginated(w, slots, total, limit, offset); err != nil {
		h.log.Error("failed to write paginated response", "handler", "ListAvailable", "operation", "WritePaginated", "error", err)
	}
}

func (h *SlotHandler) Suggestions(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	query := r.URL.Query()

	workshopID := query.Get("workshop_id")
	if workshopID == "" {
		if writeErr := httputil.WriteError(w, apperrors.InvalidInput("workshop_id is required")); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Suggestions", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	requestedStart, err := time.Parse(time.RFC3339, query.Get("requested_start"))
	if err != nil {
		if writeErr := httputil.WriteError(w, apperrors.InvalidInput("invalid requested_start parameter, expected RFC3339")); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Suggestions", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	durationMin, err := strconv.Atoi(query.Get("duration_min"))
	if err != nil || durationMin <= 0 {
		if writeErr := httputil.WriteError(w, apperrors.InvalidInput("duration_min must be a positive integer")); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Suggestions", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	suggestions, err := h.advisor.Suggest(r.Context(), workshopID, requestedStart, durationMin)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Suggestions", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, suggestions); err != nil {
		h.log.Error("failed to write success response", "handler", "Suggestions", "operation", "WriteSuccess", "error", err)
	}
}

func parseOptionalTime(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
