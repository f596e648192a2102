package middleware

import (
	"context"
	"net/http"
	"net/mail"
	"strings"

	apperrors "classbook/pkg/errors"
	httputil "classbook/pkg/http"
	"classbook/pkg/model"
)

const (
	HeaderUserID    = "X-User-ID"
	HeaderUserEmail = "X-User-Email"
	HeaderUserName  = "X-User-Name"
)

type identityKey struct{}

// Identity attaches the caller identity forwarded by the auth gateway.
// Requests without the headers pass through anonymously; a malformed
// identity is rejected.
func Identity() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := strings.TrimSpace(r.Header.Get(HeaderUserID))
			email := strings.ToLower(strings.TrimSpace(r.Header.Get(HeaderUserEmail)))
			if id == "" && email == "" {
				next.ServeHTTP(w, r)
				return
			}

			if id == "" || email == "" {
				_ = httputil.WriteError(w, apperrors.Unauthorized("Incomplete identity headers"))
				return
			}
			if _, err := mail.ParseAddress(email); err != nil {
				_ = httputil.WriteError(w, apperrors.Unauthorized("Invalid identity email"))
				return
			}

			identity := &model.Identity{
				ID:    id,
				Email: email,
				Name:  strings.TrimSpace(r.Header.Get(HeaderUserName)),
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
		})
	}
}

func WithIdentity(ctx context.Context, identity *model.Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, identity)
}

func IdentityFromContext(ctx context.Context) (*model.Identity, bool) {
	identity, ok := ctx.Value(identityKey{}).(*model.Identity)
	return identity, ok && identity != nil
}
