package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"classbook/internal/testutil/memstore"
	usersservice "classbook/internal/users/service"
	"classbook/pkg/config"
	apperrors "classbook/pkg/errors"
	httputil "classbook/pkg/http"
	"classbook/pkg/logger"
	"classbook/pkg/middleware"
	"classbook/pkg/model"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubBookings records the last lesson action. Transactions are settled by
// the payments worker, never over HTTP.
type stubBookings struct {
	lessonID string
	userID   string
	booking  *model.Booking
	err      error
}

func (s *stubBookings) act(lessonID, userID string, status model.BookingStatus) (*model.Booking, error) {
	s.lessonID, s.userID = lessonID, userID
	if s.err != nil {
		return nil, s.err
	}
	return &model.Booking{ID: "b-1", LessonID: lessonID, UserID: userID, Status: status}, nil
}

func (s *stubBookings) GetByID(_ context.Context, id string) (*model.Booking, error) {
	if s.booking == nil || s.booking.ID != id {
		return nil, apperrors.NotFoundWithID("Booking", id)
	}
	return s.booking, nil
}

func (s *stubBookings) ListByLesson(_ context.Context, lessonID string, limit int, offset int64) ([]*model.Booking, int64, error) {
	s.lessonID = lessonID
	return []*model.Booking{{ID: "b-1"}, {ID: "b-2"}}, 7, nil
}

func (s *stubBookings) UpdateStatus(_ context.Context, id string, update *model.BookingStatusUpdate) (*model.Booking, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &model.Booking{ID: id, Status: update.Status}, nil
}

func (s *stubBookings) Delete(context.Context, string) error { return s.err }

func (s *stubBookings) Cancel(_ context.Context, lessonID, userID string) (*model.Booking, error) {
	return s.act(lessonID, userID, model.BookingCancelled)
}

func (s *stubBookings) CheckIn(_ context.Context, lessonID, userID string) (*model.Booking, error) {
	return s.act(lessonID, userID, model.BookingConfirmed)
}

func (s *stubBookings) JoinWaitlist(_ context.Context, lessonID, userID string) (*model.Booking, error) {
	return s.act(lessonID, userID, model.BookingWaiting)
}

func (s *stubBookings) LeaveWaitlist(_ context.Context, lessonID, userID string) (*model.Booking, error) {
	return s.act(lessonID, userID, model.BookingCancelled)
}

func (s *stubBookings) CompleteTransaction(context.Context, string) error {
	return errors.New("not used")
}

func (s *stubBookings) FailTransaction(context.Context, string) error {
	return errors.New("not used")
}

type harness struct {
	store    *memstore.Store
	bookings *stubBookings
	router   http.Handler
}

func newHarness() *harness {
	store := memstore.New()
	bookings := &stubBookings{}
	users := usersservice.NewUserService(store.Users(), &config.Config{Log: logger.Discard(), BcryptCost: 4})

	router := httprouter.New()
	NewBookingHandler(bookings, users, logger.Discard()).RegisterRoutes(router)
	return &harness{store: store, bookings: bookings, router: middleware.Identity()(router)}
}

func (h *harness) do(method, path, body string, identity bool) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if identity {
		req.Header.Set(middleware.HeaderUserID, "gw-42")
		req.Header.Set(middleware.HeaderUserEmail, "ada@example.com")
		req.Header.Set(middleware.HeaderUserName, "Ada")
	}
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	return rec
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp httputil.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Code
}

func TestCheckIn_ResolvesCaller(t *testing.T) {
	h := newHarness()

	rec := h.do(http.MethodPost, "/api/v1/lessons/id/lesson-1/check-in", "", true)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "lesson-1", h.bookings.lessonID)
	assert.NotEmpty(t, h.bookings.userID)
	assert.Equal(t, 1, h.store.Users().Count())

	var resp struct {
		Data model.Booking `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, model.BookingConfirmed, resp.Data.Status)
}

func TestLessonActions_RequireIdentity(t *testing.T) {
	h := newHarness()

	for _, tc := range []struct{ method, path string }{
		{http.MethodPost, "/api/v1/lessons/id/lesson-1/check-in"},
		{http.MethodPost, "/api/v1/lessons/id/lesson-1/cancel"},
		{http.MethodPost, "/api/v1/lessons/id/lesson-1/waitlist"},
		{http.MethodDelete, "/api/v1/lessons/id/lesson-1/waitlist"},
	} {
		rec := h.do(tc.method, tc.path, "", false)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, tc.path)
	}
	assert.Equal(t, 0, h.store.Users().Count())
}

func TestCancel_UnknownCallerIsNotFound(t *testing.T) {
	h := newHarness()

	rec := h.do(http.MethodPost, "/api/v1/lessons/id/lesson-1/cancel", "", true)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, apperrors.CodeNotFound, errorCode(t, rec))
	assert.Empty(t, h.bookings.lessonID)
	assert.Equal(t, 0, h.store.Users().Count())
}

func TestJoinThenLeaveWaitlist(t *testing.T) {
	h := newHarness()

	rec := h.do(http.MethodPost, "/api/v1/lessons/id/lesson-1/waitlist", "", true)
	require.Equal(t, http.StatusOK, rec.Code)
	joinedAs := h.bookings.userID

	rec = h.do(http.MethodDelete, "/api/v1/lessons/id/lesson-1/waitlist", "", true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, joinedAs, h.bookings.userID)
}

func TestCheckIn_ServiceErrorPassesThrough(t *testing.T) {
	h := newHarness()
	h.bookings.err = apperrors.InsufficientCapacity("lesson-1", 1, 0)

	rec := h.do(http.MethodPost, "/api/v1/lessons/id/lesson-1/check-in", "", true)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, apperrors.CodeInsufficientCapacity, errorCode(t, rec))
}

func TestBookingRoutes(t *testing.T) {
	h := newHarness()
	h.bookings.booking = &model.Booking{ID: "b-9", Status: model.BookingPending}

	rec := h.do(http.MethodGet, "/api/v1/bookings/id/b-9", "", false)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = h.do(http.MethodGet, "/api/v1/bookings/id/missing", "", false)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = h.do(http.MethodPatch, "/api/v1/bookings/id/b-9", `{"status":"cancelled"}`, false)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = h.do(http.MethodPatch, "/api/v1/bookings/id/b-9", `{"status":`, false)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(http.MethodDelete, "/api/v1/bookings/id/b-9", "", false)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = h.do(http.MethodGet, "/api/v1/lessons/id/lesson-3/bookings?limit=2&offset=4", "", false)
	require.Equal(t, http.StatusOK, rec.Code)
	var page httputil.PaginatedResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Equal(t, int64(7), page.TotalCount)
	assert.Equal(t, 2, page.Limit)
	assert.Equal(t, int64(4), page.Offset)
	assert.Equal(t, "lesson-3", h.bookings.lessonID)

	rec = h.do(http.MethodGet, "/api/v1/lessons/id/lesson-3/bookings?limit=abc", "", false)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
