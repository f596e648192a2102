package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	apperrors "classbook/pkg/errors"
	httputil "classbook/pkg/http"
	"classbook/pkg/logger"
	"classbook/pkg/model"
	"classbook/pkg/pricing"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubLessons struct {
	quantity int
	trial    bool
	from, to *time.Time
	created  *model.Lesson
}

func (s *stubLessons) Create(_ context.Context, lesson *model.Lesson) error {
	if lesson.ClassOptionID == "" {
		return apperrors.Validation("Lesson validation failed", map[string]any{"class_option_id": "class_option_id is required"})
	}
	lesson.ID = "lesson-1"
	s.created = lesson
	return nil
}

func (s *stubLessons) GetByID(_ context.Context, id string) (*model.Lesson, error) {
	return &model.Lesson{ID: id}, nil
}

func (s *stubLessons) List(_ context.Context, from, to *time.Time, limit int, offset int64) ([]*model.Lesson, int64, error) {
	s.from, s.to = from, to
	return []*model.Lesson{{ID: "lesson-1"}}, 1, nil
}

func (s *stubLessons) Delete(_ context.Context, id string) error {
	if id != "lesson-1" {
		return apperrors.NotFoundWithID("Lesson", id)
	}
	return nil
}

func (s *stubLessons) Availability(_ context.Context, id string) (*model.LessonAvailability, error) {
	if id != "lesson-1" {
		return nil, apperrors.NotFoundWithID("Lesson", id)
	}
	return &model.LessonAvailability{
		Lesson:            &model.Lesson{ID: id},
		Places:            10,
		ConfirmedCount:    4,
		RemainingCapacity: 6,
		BookingStatus:     model.LessonOpen,
	}, nil
}

func (s *stubLessons) CurrentAvailability(ctx context.Context, id string) (*model.LessonAvailability, error) {
	return s.Availability(ctx, id)
}

func (s *stubLessons) InvalidateAvailability(context.Context, string) {}

func (s *stubLessons) Quote(_ context.Context, _ string, quantity int, trial bool) (*pricing.Result, error) {
	s.quantity, s.trial = quantity, trial
	return &pricing.Result{OriginalPrice: 10, TotalAmount: 10 * float64(quantity), Currency: "EUR"}, nil
}

func (s *stubLessons) CreateClassOption(_ context.Context, option *model.ClassOption) error {
	option.ID = "option-1"
	return nil
}

func (s *stubLessons) GetClassOption(_ context.Context, id string) (*model.ClassOption, error) {
	return &model.ClassOption{ID: id, Name: "Yin", Places: 6}, nil
}

func serve(svc *stubLessons, method, path, body string) *httptest.ResponseRecorder {
	router := httprouter.New()
	NewLessonHandler(svc, logger.Discard()).RegisterRoutes(router)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(method, path, strings.NewReader(body)))
	return rec
}

func TestCreate(t *testing.T) {
	svc := &stubLessons{}

	rec := serve(svc, http.MethodPost, "/api/v1/lessons",
		`{"class_option_id":"abc","start_time":"2026-05-01T10:00:00Z","end_time":"2026-05-01T11:00:00Z","lock_out_time":60}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	require.NotNil(t, svc.created)
	assert.Equal(t, 60, svc.created.LockOutTime)

	rec = serve(svc, http.MethodPost, "/api/v1/lessons", `{"start_time":"2026-05-01T10:00:00Z"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = serve(svc, http.MethodPost, "/api/v1/lessons", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetAll_TimeRange(t *testing.T) {
	svc := &stubLessons{}

	rec := serve(svc, http.MethodGet, "/api/v1/lessons?from=2026-05-01T00:00:00Z&limit=5", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, svc.from)
	assert.Nil(t, svc.to)

	rec = serve(svc, http.MethodGet, "/api/v1/lessons?from=yesterday", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAvailability(t *testing.T) {
	svc := &stubLessons{}

	rec := serve(svc, http.MethodGet, "/api/v1/lessons/id/lesson-1/availability", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data AvailabilityResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, AvailabilityResponse{
		LessonID:          "lesson-1",
		Places:            10,
		ConfirmedCount:    4,
		RemainingCapacity: 6,
		BookingStatus:     model.LessonOpen,
	}, resp.Data)

	rec = serve(svc, http.MethodGet, "/api/v1/lessons/id/other/availability", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestQuote_Params(t *testing.T) {
	svc := &stubLessons{}

	rec := serve(svc, http.MethodGet, "/api/v1/lessons/id/lesson-1/quote", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, svc.quantity)
	assert.False(t, svc.trial)

	rec = serve(svc, http.MethodGet, "/api/v1/lessons/id/lesson-1/quote?quantity=3&trial=true", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 3, svc.quantity)
	assert.True(t, svc.trial)

	for _, q := range []string{"quantity=two", "trial=maybe"} {
		rec = serve(svc, http.MethodGet, "/api/v1/lessons/id/lesson-1/quote?"+q, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, q)
		var resp httputil.ErrorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, apperrors.CodeInvalidInput, resp.Code)
	}
}

func TestDeleteAndClassOptions(t *testing.T) {
	svc := &stubLessons{}

	assert.Equal(t, http.StatusNoContent, serve(svc, http.MethodDelete, "/api/v1/lessons/id/lesson-1", "").Code)
	assert.Equal(t, http.StatusNotFound, serve(svc, http.MethodDelete, "/api/v1/lessons/id/other", "").Code)

	rec := serve(svc, http.MethodPost, "/api/v1/class-options", `{"name":"Yin","places":6}`)
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"id":"option-1"`)

	rec = serve(svc, http.MethodGet, "/api/v1/class-options/id/option-1", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}
