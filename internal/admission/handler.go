package admission

import (
	"net/http"

	httputil "classbook/pkg/http"
	"classbook/pkg/logger"
	"classbook/pkg/middleware"

	"github.com/julienschmidt/httprouter"
)

type Handler struct {
	service Service
	log     *logger.Logger
}

func NewHandler(service Service, log *logger.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log,
	}
}

func (h *Handler) Admit(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var req Request
	if err := httputil.DecodeJSON(r, &req, false); err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Admit", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	req.LessonID = ps.ByName("id")
	if identity, ok := middleware.IdentityFromContext(r.Context()); ok {
		req.BookedBy = identity
	}

	result := h.service.AdmitBooking(r.Context(), req)
	if !result.Success {
		if writeErr := httputil.WriteError(w, result.Error.AppError()); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Admit", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteCreated(w, result); err != nil {
		h.log.Error("failed to write created response", "handler", "Admit", "operation", "WriteCreated", "error", err)
	}
}

func (h *Handler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/lessons/id/:id/admissions", h.Admit)
}
