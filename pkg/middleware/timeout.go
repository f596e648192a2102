package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"

	apperrors "classbook/pkg/errors"
	httputil "classbook/pkg/http"
)

type writerState int

const (
	stateIdle writerState = iota
	stateWritten
	stateTimedOut
)

// deadlineWriter guards the response between the handler goroutine and the
// deadline. Whichever side writes first owns the response.
type deadlineWriter struct {
	http.ResponseWriter
	mu    sync.Mutex
	state writerState
}

func (dw *deadlineWriter) WriteHeader(code int) {
	dw.mu.Lock()
	defer dw.mu.Unlock()
	if dw.state != stateIdle {
		return
	}
	dw.state = stateWritten
	dw.ResponseWriter.WriteHeader(code)
}

func (dw *deadlineWriter) Write(b []byte) (int, error) {
	dw.mu.Lock()
	defer dw.mu.Unlock()
	if dw.state == stateTimedOut {
		return 0, http.ErrHandlerTimeout
	}
	dw.state = stateWritten
	return dw.ResponseWriter.Write(b)
}

// expire reports whether the deadline claimed the response.
func (dw *deadlineWriter) expire() bool {
	dw.mu.Lock()
	defer dw.mu.Unlock()
	if dw.state == stateWritten {
		return false
	}
	dw.state = stateTimedOut
	return true
}

// RequestTimeout bounds every request with a context deadline and answers
// 504 TIMEOUT when the handler has not started its response in time. The
// deadline also reaches the lesson lock wait and Mongo calls downstream.
// A non-positive timeout disables the middleware.
func RequestTimeout(timeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if timeout <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()

			dw := &deadlineWriter{ResponseWriter: w}
			done := make(chan any, 1)
			go func() {
				defer func() { done <- recover() }()
				next.ServeHTTP(dw, r.WithContext(ctx))
			}()

			select {
			case p := <-done:
				if p != nil {
					panic(p)
				}
			case <-ctx.Done():
				if dw.expire() {
					_ = httputil.WriteError(w, apperrors.Timeout("Request timeout"))
				}
			}
		})
	}
}
