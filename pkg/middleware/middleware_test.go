package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	apperrors "classbook/pkg/errors"
	httputil "classbook/pkg/http"
	"classbook/pkg/logger"
	"classbook/pkg/model"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp httputil.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Code
}

func TestIdentity(t *testing.T) {
	var seen *bool
	handler := Identity()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, ok := IdentityFromContext(r.Context())
		seen = &ok
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name       string
		headers    map[string]string
		wantStatus int
		wantSeen   bool
	}{
		{"anonymous", nil, http.StatusNoContent, false},
		{"full identity", map[string]string{HeaderUserID: "u-1", HeaderUserEmail: " Ada@Example.com "}, http.StatusNoContent, true},
		{"id without email", map[string]string{HeaderUserID: "u-1"}, http.StatusUnauthorized, false},
		{"bad email", map[string]string{HeaderUserID: "u-1", HeaderUserEmail: "not-an-email"}, http.StatusUnauthorized, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = nil
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus == http.StatusUnauthorized {
				assert.Nil(t, seen)
				return
			}
			require.NotNil(t, seen)
			assert.Equal(t, tt.wantSeen, *seen)
		})
	}
}

func TestIdentity_NormalizesEmail(t *testing.T) {
	var email string
	handler := Identity()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, _ := IdentityFromContext(r.Context())
		email = identity.Email
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderUserID, "u-1")
	req.Header.Set(HeaderUserEmail, " Ada@Example.com ")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, "ada@example.com", email)
}

func TestRateLimit_PerCallerWritesOnly(t *testing.T) {
	limiter := NewRateLimiter(2, time.Minute, nil, logger.Discard())
	defer limiter.Stop()
	handler := Identity()(RateLimit(limiter)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})))

	send := func(method, user string) int {
		req := httptest.NewRequest(method, "/", nil)
		req.Header.Set(HeaderUserID, user)
		req.Header.Set(HeaderUserEmail, user+"@example.com")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, send(http.MethodPost, "ada"))
	assert.Equal(t, http.StatusOK, send(http.MethodPost, "ada"))
	assert.Equal(t, http.StatusTooManyRequests, send(http.MethodPost, "ada"))
	assert.Equal(t, http.StatusOK, send(http.MethodGet, "ada"))
	assert.Equal(t, http.StatusOK, send(http.MethodPost, "grace"))
}

func TestCallerKey(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.RemoteAddr = "10.0.0.7:5555"
	assert.Equal(t, "ip:10.0.0.7", CallerKey(req))

	req = req.WithContext(WithIdentity(req.Context(), &model.Identity{ID: "u-9", Email: "u9@example.com"}))
	assert.Equal(t, "user:u-9", CallerKey(req))
}

func TestIdempotency_ReplaysSuccess(t *testing.T) {
	store := NewInMemoryIdempotencyStore(time.Minute)
	defer store.Stop()

	calls := 0
	handler := Idempotency(store)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		_ = httputil.WriteCreated(w, map[string]int{"call": calls})
	}))

	send := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/lessons/id/l-1/admissions", strings.NewReader(body))
		req.Header.Set(IdempotencyKeyHeader, "k-1")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	first := send(`{"a":1}`)
	second := send(`{"a":1}`)
	assert.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, "true", second.Header().Get("Idempotent-Replayed"))
	assert.Equal(t, 1, calls)

	conflict := send(`{"a":2}`)
	assert.Equal(t, http.StatusUnprocessableEntity, conflict.Code)
	assert.Equal(t, apperrors.CodeConflict, errorCode(t, conflict))
	assert.Equal(t, 1, calls)
}

func TestIdempotency_FailuresAreNotStored(t *testing.T) {
	store := NewInMemoryIdempotencyStore(time.Minute)
	defer store.Stop()

	calls := 0
	handler := Idempotency(store)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		_ = httputil.WriteError(w, apperrors.InsufficientCapacity("l-1", 2, 1))
	}))

	for j := 0; j < 2; j++ {
		req := httptest.NewRequest(http.MethodPost, "/x", strings.NewReader(`{}`))
		req.Header.Set(IdempotencyKeyHeader, "k-1")
		handler.ServeHTTP(httptest.NewRecorder(), req)
	}
	assert.Equal(t, 2, calls)
}

func TestRedisIdempotencyStore_Get(t *testing.T) {
	db, mock := redismock.NewClientMock()
	store := NewRedisIdempotencyStore(db, time.Minute, logger.Discard())
	ctx := context.Background()

	cached, err := json.Marshal(&CachedResponse{StatusCode: http.StatusCreated, Body: []byte(`{"data":1}`), RequestHash: "h"})
	require.NoError(t, err)

	mock.ExpectGet(idempotencyKeyPrefix + "hit").SetVal(string(cached))
	mock.ExpectGet(idempotencyKeyPrefix + "miss").RedisNil()
	mock.ExpectGet(idempotencyKeyPrefix + "down").SetErr(errors.New("connection refused"))
	mock.ExpectGet(idempotencyKeyPrefix + "corrupt").SetVal("{")

	response, ok := store.Get(ctx, "hit")
	require.True(t, ok)
	assert.Equal(t, http.StatusCreated, response.StatusCode)
	assert.Equal(t, "h", response.RequestHash)

	for _, key := range []string{"miss", "down", "corrupt"} {
		_, ok := store.Get(ctx, key)
		assert.False(t, ok, key)
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestContentTypeValidation(t *testing.T) {
	handler := ContentTypeValidation(logger.Discard())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	send := func(body, contentType string) int {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
		if contentType != "" {
			req.Header.Set("Content-Type", contentType)
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, send("", ""))
	assert.Equal(t, http.StatusOK, send(`{}`, "application/json; charset=utf-8"))
	assert.Equal(t, http.StatusUnsupportedMediaType, send(`{}`, "text/plain"))
}

func TestMaxRequestSize(t *testing.T) {
	handler := MaxRequestSize(8)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"attendees":[]}`)))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRecovery(t *testing.T) {
	handler := Recovery(logger.Discard())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, apperrors.CodeInternal, errorCode(t, rec))
	assert.NotContains(t, rec.Body.String(), "boom")
}

func TestRecovery_AbortHandlerIsReraised(t *testing.T) {
	handler := Recovery(logger.Discard())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic(http.ErrAbortHandler)
	}))

	assert.PanicsWithValue(t, http.ErrAbortHandler, func() {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	})
}

func TestRequestTimeout(t *testing.T) {
	released := make(chan error, 1)
	slow := RequestTimeout(20 * time.Millisecond)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
		_, err := w.Write([]byte("late"))
		released <- err
	}))

	rec := httptest.NewRecorder()
	slow.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
	assert.Equal(t, http.StatusGatewayTimeout, rec.Code)
	assert.Equal(t, apperrors.CodeTimeout, errorCode(t, rec))
	assert.ErrorIs(t, <-released, http.ErrHandlerTimeout)

	fast := RequestTimeout(time.Second)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))
	rec = httptest.NewRecorder()
	fast.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
	assert.Equal(t, http.StatusCreated, rec.Code)

	disabled := RequestTimeout(0)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, hasDeadline := r.Context().Deadline()
		assert.False(t, hasDeadline)
	}))
	disabled.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
}
