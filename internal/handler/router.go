package handler

import (
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/alexedwards/scs/v2"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/joestump/joe-forum/internal/auth"
	"github.com/joestump/joe-forum/internal/category"
	"github.com/joestump/joe-forum/internal/store"
	"github.com/joestump/joe-forum/internal/topicindex"
	"github.com/joestump/joe-forum/web"
)

// Deps holds all dependencies required to build the HTTP router.
type Deps struct {
	SessionManager *scs.SessionManager
	AuthMiddleware *auth.Middleware
	APITokens      auth.TokenResolver
	FeedTokenStore *auth.FeedTokenStore
	CategoryStore  *store.CategoryStore
	TopicStore     *store.TopicStore
	UserStore      *store.UserStore
	PrivilegeStore *store.PrivilegeStore
	TagStore       *store.TagStore
	TopicIndex     topicindex.Index
	Site           category.SiteConfig
	ReadCh         chan<- store.ReadEvent
	ClickCh        chan<- store.ClickEvent
	Logger         *slog.Logger
}

// categoryRoutes registers the three category path shapes on r.
func categoryRoutes(r chi.Router, h http.HandlerFunc) {
	r.Get("/{category_id}", h)
	r.Get("/{category_id}/{slug}", h)
	r.Get("/{category_id}/{slug}/{topic_index}", h)
}

// NewRouter assembles the full chi router with all middleware and routes.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()

	// Standard middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.StripSlashes)

	// Static assets (embedded). Use fs.Sub so the file server sees
	// css/app.css directly, not static/css/... paths.
	staticSub, err := fs.Sub(web.StaticFS, "static")
	if err != nil {
		panic("failed to sub static FS: " + err.Error())
	}
	r.Handle("/static/*", http.StripPrefix("/static", http.FileServerFS(staticSub)))
	r.Handle("/metrics", promhttp.Handler())

	categories := NewCategoryHandler(deps)

	// HTML routes identify the viewer from the session cookie.
	r.Group(func(r chi.Router) {
		r.Use(deps.SessionManager.LoadAndSave)
		r.Use(deps.AuthMiddleware.OptionalUser)

		r.Post("/theme", NewThemeHandler().Toggle)
		r.Route("/category", func(r chi.Router) {
			categoryRoutes(r, categories.Show)
		})
	})

	// API routes identify the viewer from a bearer token only.
	bearer := auth.NewBearerTokenMiddleware(deps.APITokens, deps.UserStore)
	r.Route("/api/category", func(r chi.Router) {
		r.Use(bearer.Authenticate)
		categoryRoutes(r, categories.ShowAPI)
	})

	return r
}
