package handler

import (
	"net/http"

	"github.com/julienschmidt/httprouter"

	"studiobook/internal/bookings/service"
	httputil "studiobook/pkg/http"
	"studiobook/pkg/logger"
	"studiobook/pkg/model"
)

type BookingHandler struct {
	service service.BookingService
	log     *logger.Logger
}

func NewBookingHandler(service service.BookingService, log *logger.Logger) *BookingHandler {
	return &BookingHandler{
		service: service,
		log:     log,
	}
}

func (h *BookingHandler) BookClass(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	actor, err := httputil.RequireActor(r)
	if err != nil {
		h.writeError(w, "BookClass", err)
		return
	}

	var req model.BookClassRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(w, "BookClass", err)
		return
	}
	if req.BookingType == "" {
		req.BookingType = model.BookingTypeClass
	}

	result, err := h.service.BookClass(r.Context(), actor, &req)
	if err != nil {
		h.writeError(w, "BookClass", err)
		return
	}

	if err := httputil.WriteCreated(w, result); err != nil {
		h.log.Error("failed to write created response", "handler", "BookClass", "operation", "WriteCreated", "error", err)
	}
}

func (h *BookingHandler) BookTrainerSession(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	actor, err := httputil.RequireActor(r)
	if err != nil {
		h.writeError(w, "BookTrainerSession", err)
		return
	}

	var req model.BookTrainerSessionRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(w, "BookTrainerSession", err)
		return
	}

	result, err := h.service.BookTrainerSession(r.Context(), actor, &req)
	if err != nil {
		h.writeError(w, "BookTrainerSession", err)
		return
	}

	if err := httputil.WriteCreated(w, result); err != nil {
		h.log.Error("failed to write created response", "handler", "BookTrainerSession", "operation", "WriteCreated", "error", err)
	}
}

func (h *BookingHandler) Cancel(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	actor, err := httputil.RequireActor(r)
	if err != nil {
		h.writeError(w, "Cancel", err)
		return
	}

	var req model.CancelBookingRequest
	if err := httputil.DecodeJSON(r, &req, true); err != nil {
		h.writeError(w, "Cancel", err)
		return
	}

	result, err := h.service.CancelBooking(r.Context(), actor, ps.ByName("id"), &req)
	if err != nil {
		h.writeError(w, "Cancel", err)
		return
	}

	if err := httputil.WriteSuccess(w, result); err != nil {
		h.log.Error("failed to write success response", "handler", "Cancel", "operation", "WriteSuccess", "error", err)
	}
}

func (h *BookingHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	actor, err := httputil.RequireActor(r)
	if err != nil {
		h.writeError(w, "GetByID", err)
		return
	}

	booking, err := h.service.GetBooking(r.Context(), actor, ps.ByName("id"))
	if err != nil {
		h.writeError(w, "GetByID", err)
		return
	}

	if err := httputil.WriteSuccess(w, booking); err != nil {
		h.log.Error("failed to write success response", "handler", "GetByID", "operation", "WriteSuccess", "error", err)
	}
}

func (h *BookingHandler) GetUserBookings(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	actor, err := httputil.RequireActor(r)
	if err != nil {
		h.writeError(w, "GetUserBookings", err)
		return
	}

	scope := model.BookingScope(r.URL.Query().Get("scope"))
	bookings, err := h.service.GetUserBookings(r.Context(), actor, ps.ByName("user_id"), scope)
	if err != nil {
		h.writeError(w, "GetUserBookings", err)
		return
	}

	if err := httputil.WriteSuccess(w, bookings); err != nil {
		h.log.Error("failed to write success response", "handler", "GetUserBookings", "operation", "WriteSuccess", "error", err)
	}
}

func (h *BookingHandler) UpdateCapacity(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	actor, err := httputil.RequireActor(r)
	if err != nil {
		h.writeError(w, "UpdateCapacity", err)
		return
	}

	var req model.UpdateCapacityRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(w, "UpdateCapacity", err)
		return
	}

	occ, err := h.service.UpdateCapacity(r.Context(), actor, ps.ByName("id"), &req)
	if err != nil {
		h.writeError(w, "UpdateCapacity", err)
		return
	}

	if err := httputil.WriteSuccess(w, occ); err != nil {
		h.log.Error("failed to write success response", "handler", "UpdateCapacity", "operation", "WriteSuccess", "error", err)
	}
}

func (h *BookingHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func (h *BookingHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/bookings/classes", h.BookClass)
	router.POST("/api/v1/bookings/trainer-sessions", h.BookTrainerSession)
	router.POST("/api/v1/bookings/id/:id/cancel", h.Cancel)
	router.GET("/api/v1/bookings/id/:id", h.GetByID)
	router.GET("/api/v1/users/:user_id/bookings", h.GetUserBookings)
	router.PATCH("/api/v1/occurrences/id/:id/capacity", h.UpdateCapacity)
}
