package auth

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/joestump/joe-forum/internal/store"
)

// BearerTokenMiddleware identifies API viewers from an Authorization header.
// Session cookies are not consulted on API routes.
type BearerTokenMiddleware struct {
	tokens TokenResolver
	users  *store.UserStore
}

func NewBearerTokenMiddleware(tokens TokenResolver, users *store.UserStore) *BearerTokenMiddleware {
	return &BearerTokenMiddleware{tokens: tokens, users: users}
}

// Authenticate puts the token owner on the request context. Requests without
// an Authorization header continue as guests; any other header that does not
// name a live token of an existing user is rejected with 401.
func (m *BearerTokenMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			next.ServeHTTP(w, r)
			return
		}
		bearer, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || bearer == "" {
			writeAuthError(w, http.StatusUnauthorized)
			return
		}

		ctx := r.Context()
		tok, err := m.tokens.Resolve(ctx, bearer)
		if errors.Is(err, ErrTokenInvalid) {
			writeAuthError(w, http.StatusUnauthorized)
			return
		}
		if err != nil {
			slog.ErrorContext(ctx, "resolve api token", "error", err)
			writeAuthError(w, http.StatusInternalServerError)
			return
		}

		user, err := m.users.GetByUID(ctx, tok.UID)
		if errors.Is(err, store.ErrNotFound) {
			writeAuthError(w, http.StatusUnauthorized)
			return
		}
		if err != nil {
			slog.ErrorContext(ctx, "load api token owner", "uid", tok.UID, "error", err)
			writeAuthError(w, http.StatusInternalServerError)
			return
		}

		// last_used_at is advisory; the request does not wait for it.
		go func() {
			if err := m.tokens.Touch(context.Background(), tok.ID); err != nil {
				slog.Warn("touch api token", "id", tok.ID, "error", err)
			}
		}()

		next.ServeHTTP(w, r.WithContext(WithUser(ctx, user)))
	})
}

func writeAuthError(w http.ResponseWriter, status int) {
	code := "unauthorized"
	if status == http.StatusInternalServerError {
		code = "internal"
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": http.StatusText(status), "code": code})
}
