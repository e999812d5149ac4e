package handler

import (
	"net/http"
	"strings"

	"github.com/julienschmidt/httprouter"

	"studiobook/internal/catalog/service"
	httputil "studiobook/pkg/http"
	"studiobook/pkg/logger"
	"studiobook/pkg/model"
)

type CatalogHandler struct {
	service service.CatalogService
	log     *logger.Logger
}

func NewCatalogHandler(service service.CatalogService, log *logger.Logger) *CatalogHandler {
	return &CatalogHandler{
		service: service,
		log:     log,
	}
}

func (h *CatalogHandler) ListOccurrences(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		h.writeError(w, "ListOccurrences", err)
		return
	}

	query := r.URL.Query()
	req := model.ListOccurrencesRequest{
		ClassType:    query.Get("class_type"),
		Level:        strings.TrimSpace(query.Get("level")),
		InstructorID: query.Get("instructor_id"),
		From:         strings.TrimSpace(query.Get("from")),
		To:           strings.TrimSpace(query.Get("to")),
		Availability: model.AvailabilityStatus(strings.TrimSpace(query.Get("availability"))),
		Limit:        limit,
		Offset:       offset,
	}

	occurrences, total, err := h.service.ListOccurrences(r.Context(), &req)
	if err != nil {
		h.writeError(w, "ListOccurrences", err)
		return
	}

	if err := httputil.WritePaginated(w, occurrences, total, req.Limit, req.Offset); err != nil {
		h.log.Error("failed to write paginated response", "handler", "ListOccurrences", "operation", "WritePaginated", "error", err)
	}
}

func (h *CatalogHandler) GetOccurrence(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	occ, err := h.service.GetOccurrence(r.Context(), ps.ByName("id"))
	if err != nil {
		h.writeError(w, "GetOccurrence", err)
		return
	}

	if err := httputil.WriteSuccess(w, occ); err != nil {
		h.log.Error("failed to write success response", "handler", "GetOccurrence", "operation", "WriteSuccess", "error", err)
	}
}

func (h *CatalogHandler) CreateOccurrence(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	actor, err := httputil.RequireActor(r)
	if err != nil {
		h.writeError(w, "CreateOccurrence", err)
		return
	}

	var req model.CreateOccurrenceRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(w, "CreateOccurrence", err)
		return
	}

	occ, err := h.service.CreateOccurrence(r.Context(), actor, &req)
	if err != nil {
		h.writeError(w, "CreateOccurrence", err)
		return
	}

	if err := httputil.WriteCreated(w, occ); err != nil {
		h.log.Error("failed to write created response", "handler", "CreateOccurrence", "operation", "WriteCreated", "error", err)
	}
}

func (h *CatalogHandler) UpsertTrainer(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	actor, err := httputil.RequireActor(r)
	if err != nil {
		h.writeError(w, "UpsertTrainer", err)
		return
	}

	var req model.UpsertTrainerRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(w, "UpsertTrainer", err)
		return
	}

	trainer, created, err := h.service.UpsertTrainer(r.Context(), actor, ps.ByName("id"), &req)
	if err != nil {
		h.writeError(w, "UpsertTrainer", err)
		return
	}

	if created {
		err = httputil.WriteCreated(w, trainer)
	} else {
		err = httputil.WriteSuccess(w, trainer)
	}
	if err != nil {
		h.log.Error("failed to write success response", "handler", "UpsertTrainer", "operation", "WriteSuccess", "error", err)
	}
}

func (h *CatalogHandler) GetTrainerAvailability(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	date := strings.TrimSpace(r.URL.Query().Get("date"))
	if date == "" {
		if err := httputil.WriteBadRequest(w, "'date' query parameter is required"); err != nil {
			h.log.Error("failed to write bad request response", "handler", "GetTrainerAvailability", "operation", "WriteBadRequest", "error", err)
		}
		return
	}

	availability, err := h.service.GetTrainerAvailability(r.Context(), ps.ByName("id"), date)
	if err != nil {
		h.writeError(w, "GetTrainerAvailability", err)
		return
	}

	if err := httputil.WriteSuccess(w, availability); err != nil {
		h.log.Error("failed to write success response", "handler", "GetTrainerAvailability", "operation", "WriteSuccess", "error", err)
	}
}

func (h *CatalogHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func (h *CatalogHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/api/v1/occurrences", h.ListOccurrences)
	router.POST("/api/v1/occurrences", h.CreateOccurrence)
	router.GET("/api/v1/occurrences/id/:id", h.GetOccurrence)
	router.PUT("/api/v1/trainers/id/:id", h.UpsertTrainer)
	router.GET("/api/v1/trainers/id/:id/availability", h.GetTrainerAvailability)
}
