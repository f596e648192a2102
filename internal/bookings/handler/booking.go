package handler

import (
	"context"
	"net/http"

	"classbook/internal/bookings/service"
	usersservice "classbook/internal/users/service"
	apperrors "classbook/pkg/errors"
	httputil "classbook/pkg/http"
	"classbook/pkg/logger"
	"classbook/pkg/middleware"
	"classbook/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type BookingHandler struct {
	service service.BookingService
	users   usersservice.UserService
	log     *logger.Logger
}

func NewBookingHandler(service service.BookingService, users usersservice.UserService, log *logger.Logger) *BookingHandler {
	return &BookingHandler{
		service: service,
		users:   users,
		log:     log,
	}
}

func (h *BookingHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	booking, err := h.service.GetByID(r.Context(), ps.ByName("id"))
	if err != nil {
		h.writeError(w, "GetByID", err)
		return
	}

	if err := httputil.WriteSuccess(w, booking); err != nil {
		h.log.Error("failed to write success response", "handler", "GetByID", "operation", "WriteSuccess", "error", err)
	}
}

func (h *BookingHandler) ListByLesson(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		h.writeError(w, "ListByLesson", err)
		return
	}

	bookings, total, err := h.service.ListByLesson(r.Context(), ps.ByName("id"), limit, offset)
	if err != nil {
		h.writeError(w, "ListByLesson", err)
		return
	}

	if err := httputil.WritePaginated(w, bookings, total, limit, offset); err != nil {
		h.log.Error("failed to write paginated response", "handler", "ListByLesson", "operation", "WritePaginated", "error", err)
	}
}

func (h *BookingHandler) UpdateStatus(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var update model.BookingStatusUpdate
	if err := httputil.DecodeJSON(r, &update, false); err != nil {
		h.writeError(w, "UpdateStatus", err)
		return
	}

	booking, err := h.service.UpdateStatus(r.Context(), ps.ByName("id"), &update)
	if err != nil {
		h.writeError(w, "UpdateStatus", err)
		return
	}

	if err := httputil.WriteSuccess(w, booking); err != nil {
		h.log.Error("failed to write success response", "handler", "UpdateStatus", "operation", "WriteSuccess", "error", err)
	}
}

func (h *BookingHandler) Delete(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if err := h.service.Delete(r.Context(), ps.ByName("id")); err != nil {
		h.writeError(w, "Delete", err)
		return
	}

	httputil.WriteNoContent(w)
}

func (h *BookingHandler) CheckIn(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	h.actAsCaller(w, r, ps, "CheckIn", true, h.service.CheckIn)
}

func (h *BookingHandler) Cancel(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	h.actAsCaller(w, r, ps, "Cancel", false, h.service.Cancel)
}

func (h *BookingHandler) JoinWaitlist(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	h.actAsCaller(w, r, ps, "JoinWaitlist", true, h.service.JoinWaitlist)
}

func (h *BookingHandler) LeaveWaitlist(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	h.actAsCaller(w, r, ps, "LeaveWaitlist", false, h.service.LeaveWaitlist)
}

type lessonAction func(ctx context.Context, lessonID, userID string) (*model.Booking, error)

// actAsCaller runs action for the user behind the request identity. When
// create is false an unknown caller cannot hold a booking, so the action is
// answered with NOT_FOUND without creating the user.
func (h *BookingHandler) actAsCaller(w http.ResponseWriter, r *http.Request, ps httprouter.Params, name string, create bool, action lessonAction) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		h.writeError(w, name, apperrors.Unauthorized("Identity required"))
		return
	}

	var user *model.User
	var err error
	if create {
		user, _, err = h.users.Resolve(r.Context(), identity.Email, identity.Name)
	} else {
		user, err = h.users.Lookup(r.Context(), identity.Email)
		if err == nil && user == nil {
			err = apperrors.NotFound("Booking")
		}
	}
	if err != nil {
		h.writeError(w, name, err)
		return
	}

	booking, err := action(r.Context(), ps.ByName("id"), user.ID)
	if err != nil {
		h.writeError(w, name, err)
		return
	}

	if err := httputil.WriteSuccess(w, booking); err != nil {
		h.log.Error("failed to write success response", "handler", name, "operation", "WriteSuccess", "error", err)
	}
}

func (h *BookingHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func (h *BookingHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/api/v1/bookings/id/:id", h.GetByID)
	router.PATCH("/api/v1/bookings/id/:id", h.UpdateStatus)
	router.DELETE("/api/v1/bookings/id/:id", h.Delete)

	router.GET("/api/v1/lessons/id/:id/bookings", h.ListByLesson)
	router.POST("/api/v1/lessons/id/:id/check-in", h.CheckIn)
	router.POST("/api/v1/lessons/id/:id/cancel", h.Cancel)
	router.POST("/api/v1/lessons/id/:id/waitlist", h.JoinWaitlist)
	router.DELETE("/api/v1/lessons/id/:id/waitlist", h.LeaveWaitlist)
}
