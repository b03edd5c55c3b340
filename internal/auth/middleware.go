// Package auth identifies the viewer of a request, from a session cookie on
// HTML routes or a bearer token on API routes. Unidentified viewers are guests.
package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/alexedwards/scs/v2"

	"github.com/joestump/joe-forum/internal/store"
)

type contextKey string

const UserContextKey contextKey = "user"

// Middleware provides HTTP middleware for session-based identification.
type Middleware struct {
	sessions *scs.SessionManager
	users    *store.UserStore
}

// NewMiddleware creates a new auth Middleware.
func NewMiddleware(sm *scs.SessionManager, us *store.UserStore) *Middleware {
	return &Middleware{sessions: sm, users: us}
}

// OptionalUser loads the session's user onto the request context when there
// is one and lets every request through. Must run inside sessions.LoadAndSave.
func (m *Middleware) OptionalUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		uid := m.sessions.GetInt64(r.Context(), SessionUIDKey)
		if uid <= 0 {
			next.ServeHTTP(w, r)
			return
		}

		user, err := m.users.GetByUID(r.Context(), uid)
		switch {
		case errors.Is(err, store.ErrNotFound):
			// Session references a deleted user; continue as a guest.
			_ = m.sessions.Destroy(r.Context())
			next.ServeHTTP(w, r)
			return
		case err != nil:
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
	})
}

// WithUser returns a copy of ctx carrying u.
func WithUser(ctx context.Context, u *store.User) context.Context {
	return context.WithValue(ctx, UserContextKey, u)
}

// UserFromContext retrieves the identified user from the context, or nil for guests.
func UserFromContext(ctx context.Context) *store.User {
	u, _ := ctx.Value(UserContextKey).(*store.User)
	return u
}

// UIDFromContext returns the viewer's uid, 0 for guests.
func UIDFromContext(ctx context.Context) int64 {
	if u := UserFromContext(ctx); u != nil {
		return u.UID
	}
	return 0
}

// UIDLogAttr is a logger.ContextExtractor stamping the viewer's uid.
func UIDLogAttr(ctx context.Context) (slog.Attr, bool) {
	if uid := UIDFromContext(ctx); uid > 0 {
		return slog.Int64("uid", uid), true
	}
	return slog.Attr{}, false
}
