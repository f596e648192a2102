package handler

import (
	"net/http"
	"strconv"

	"classbook/internal/lessons/service"
	apperrors "classbook/pkg/errors"
	httputil "classbook/pkg/http"
	"classbook/pkg/logger"
	"classbook/pkg/model"

	"github.com/julienschmidt/httprouter"
)

// AvailabilityResponse is the capacity view without the lesson document.
type AvailabilityResponse struct {
	LessonID          string                    `json:"lesson_id"`
	Places            int                       `json:"places"`
	ConfirmedCount    int                       `json:"confirmed_count"`
	RemainingCapacity int                       `json:"remaining_capacity"`
	BookingStatus     model.LessonBookingStatus `json:"booking_status"`
}

type LessonHandler struct {
	service service.LessonService
	log     *logger.Logger
}

func NewLessonHandler(service service.LessonService, log *logger.Logger) *LessonHandler {
	return &LessonHandler{
		service: service,
		log:     log,
	}
}

func (h *LessonHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var lesson model.Lesson
	if err := httputil.DecodeJSON(r, &lesson, false); err != nil {
		h.writeError(w, "Create", err)
		return
	}

	if err := h.service.Create(r.Context(), &lesson); err != nil {
		h.writeError(w, "Create", err)
		return
	}

	if err := httputil.WriteCreated(w, lesson); err != nil {
		h.log.Error("failed to write created response", "handler", "Create", "operation", "WriteCreated", "error", err)
	}
}

func (h *LessonHandler) GetAll(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		h.writeError(w, "GetAll", err)
		return
	}
	from, to, err := httputil.ExtractTimeRange(r)
	if err != nil {
		h.writeError(w, "GetAll", err)
		return
	}

	lessons, total, err := h.service.List(r.Context(), from, to, limit, offset)
	if err != nil {
		h.writeError(w, "GetAll", err)
		return
	}

	if err := httputil.WritePaginated(w, lessons, total, limit, offset); err != nil {
		h.log.Error("failed to write paginated response", "handler", "GetAll", "operation", "WritePaginated", "error", err)
	}
}

// GetByID returns the lesson together with its availability.
func (h *LessonHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	availability, err := h.service.Availability(r.Context(), ps.ByName("id"))
	if err != nil {
		h.writeError(w, "GetByID", err)
		return
	}

	if err := httputil.WriteSuccess(w, availability); err != nil {
		h.log.Error("failed to write success response", "handler", "GetByID", "operation", "WriteSuccess", "error", err)
	}
}

func (h *LessonHandler) Availability(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	availability, err := h.service.Availability(r.Context(), ps.ByName("id"))
	if err != nil {
		h.writeError(w, "Availability", err)
		return
	}

	resp := AvailabilityResponse{
		LessonID:          availability.Lesson.ID,
		Places:            availability.Places,
		ConfirmedCount:    availability.ConfirmedCount,
		RemainingCapacity: availability.RemainingCapacity,
		BookingStatus:     availability.BookingStatus,
	}
	if err := httputil.WriteSuccess(w, resp); err != nil {
		h.log.Error("failed to write success response", "handler", "Availability", "operation", "WriteSuccess", "error", err)
	}
}

func (h *LessonHandler) Quote(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	query := r.URL.Query()

	quantity := 1
	if s := query.Get("quantity"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil {
			h.writeError(w, "Quote", apperrors.InvalidInput("invalid quantity parameter: "+s))
			return
		}
		quantity = v
	}

	trial := false
	if s := query.Get("trial"); s != "" {
		v, err := strconv.ParseBool(s)
		if err != nil {
			h.writeError(w, "Quote", apperrors.InvalidInput("invalid trial parameter: "+s))
			return
		}
		trial = v
	}

	quote, err := h.service.Quote(r.Context(), ps.ByName("id"), quantity, trial)
	if err != nil {
		h.writeError(w, "Quote", err)
		return
	}

	if err := httputil.WriteSuccess(w, quote); err != nil {
		h.log.Error("failed to write success response", "handler", "Quote", "operation", "WriteSuccess", "error", err)
	}
}

func (h *LessonHandler) Delete(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if err := h.service.Delete(r.Context(), ps.ByName("id")); err != nil {
		h.writeError(w, "Delete", err)
		return
	}

	httputil.WriteNoContent(w)
}

func (h *LessonHandler) CreateClassOption(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var option model.ClassOption
	if err := httputil.DecodeJSON(r, &option, false); err != nil {
		h.writeError(w, "CreateClassOption", err)
		return
	}

	if err := h.service.CreateClassOption(r.Context(), &option); err != nil {
		h.writeError(w, "CreateClassOption", err)
		return
	}

	if err := httputil.WriteCreated(w, option); err != nil {
		h.log.Error("failed to write created response", "handler", "CreateClassOption", "operation", "WriteCreated", "error", err)
	}
}

func (h *LessonHandler) GetClassOption(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	option, err := h.service.GetClassOption(r.Context(), ps.ByName("id"))
	if err != nil {
		h.writeError(w, "GetClassOption", err)
		return
	}

	if err := httputil.WriteSuccess(w, option); err != nil {
		h.log.Error("failed to write success response", "handler", "GetClassOption", "operation", "WriteSuccess", "error", err)
	}
}

func (h *LessonHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func (h *LessonHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/lessons", h.Create)
	router.GET("/api/v1/lessons", h.GetAll)
	router.GET("/api/v1/lessons/id/:id", h.GetByID)
	router.DELETE("/api/v1/lessons/id/:id", h.Delete)
	router.GET("/api/v1/lessons/id/:id/availability", h.Availability)
	router.GET("/api/v1/lessons/id/:id/quote", h.Quote)

	router.POST("/api/v1/class-options", h.CreateClassOption)
	router.GET("/api/v1/class-options/id/:id", h.GetClassOption)
}
