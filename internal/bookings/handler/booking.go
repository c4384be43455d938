package handler

import (
	"encoding/json"
	"net/http"

	"slotter/internal/bookings/service"
	httputil "slotter/pkg/http"
	"slotter/pkg/logger"
	"slotter/pkg/middleware"
	"slotter/pkg/model"

	"github.com/julienschmidt/httprouter"
)

const (
	RouteBookings             = "/api/v1/bookings"
	RouteBookingByID          = "/api/v1/bookings/id/:id"
	RouteBookingStatus        = "/api/v1/bookings/id/:id/status"
	RouteWorkshopBookingStats = "/api/v1/workshops/id/:id/booking-stats"
)

type BookingHandler struct {
	service   service.BookingService
	rateLimit *middleware.RateLimit
	log       *logger.Logger
}

func NewBookingHandler(service service.BookingService, rateLimit *middleware.RateLimit, log *logger.Logger) *BookingHandler {
	return &BookingHandler{
		service:   service,
		rateLimit: rateLimit,
		log:       log,
	}
}

func (h *BookingHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST(RouteBookings, h.rateLimit.Wrap(http.MethodPost, RouteBookings, h.Reserve))
	router.GET(RouteBookingByID, h.rateLimit.Wrap(http.MethodGet, RouteBookingByID, h.GetByID))
	router.PATCH(RouteBookingStatus, h.rateLimit.Wrap(http.MethodPatch, RouteBookingStatus, h.UpdateStatus))
	router.GET(RouteWorkshopBookingStats, h.rateLimit.Wrap(http.MethodGet, RouteWorkshopBookingStats, h.WorkshopStats))
}

func (h *BookingHandler) Reserve(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var booking model.Booking
	if err := json.NewDecoder(r.Body).Decode(&booking); err != nil {
		if writeErr := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Invalid request body",
		}); writeErr != nil {
			h.log.Error("failed to write JSON response", "handler", "Reserve", "operation", "WriteJSON", "error", writeErr)
		}
		return
	}

	if err := h.service.Reserve(r.Context(), &booking); err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Reserve", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteCreated(w, booking); err != nil {
		h.log.Error("failed to write created response", "handler", "Reserve", "operation", "WriteCreated", "error", err)
	}
}

func (h *BookingHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	booking, err := h.service.GetByID(r.Context(), ps.ByName("id"))
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "GetByID", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, booking); err != nil {
		h.log.Error("failed to write success response", "handler", "GetByID", "operation", "WriteSuccess", "error", err)
	}
}

type statusUpdateRequest struct {
	Status string `json:"status"`
}

func (h *BookingHandler) UpdateStatus(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var req statusUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if writeErr := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Invalid request body",
		}); writeErr != nil {
			h.log.Error("failed to write JSON response", "handler", "UpdateStatus", "operation", "WriteJSON", "error", writeErr)
		}
		return
	}

	if err := h.service.UpdateStatus(r.Context(), ps.ByName("id"), req.Status); err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "UpdateStatus", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	httputil.WriteNoContent(w)
}

func (h *BookingHandler) WorkshopStats(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	stats, err := h.service.StatsByWorkshop(r.Context(), ps.ByName("id"))
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "WorkshopStats", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, stats); err != nil {
		h.log.Error("failed to write success response", "handler", "WorkshopStats", "operation", "WriteSuccess", "error", err)
	}
}
