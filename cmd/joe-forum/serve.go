package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"

	"github.com/joestump/joe-forum/internal/activity"
	"github.com/joestump/joe-forum/internal/auth"
	"github.com/joestump/joe-forum/internal/build"
	"github.com/joestump/joe-forum/internal/config"
	"github.com/joestump/joe-forum/internal/db"
	"github.com/joestump/joe-forum/internal/handler"
	"github.com/joestump/joe-forum/internal/logger"
	"github.com/joestump/joe-forum/internal/metrics"
	"github.com/joestump/joe-forum/internal/store"
	"github.com/joestump/joe-forum/internal/topicindex"
)

const (
	activityQueueSize = 256
	shutdownTimeout   = 10 * time.Second
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			log, err := newLogger(cfg)
			if err != nil {
				return err
			}
			slog.SetDefault(log)

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			database, err := db.New(cfg.DB.Driver, cfg.DB.DSN)
			if err != nil {
				return err
			}
			defer func() { _ = database.Close() }()

			if err := db.Migrate(database, cfg.DB.Driver); err != nil {
				return err
			}

			index, closeIndex, err := openIndex(ctx, cfg, database)
			if err != nil {
				return err
			}
			defer closeIndex()

			sessionManager := auth.NewSessionManager(database, cfg.DB.Driver, cfg.SessionLifetime)

			userStore := store.NewUserStore(database)
			categoryStore := store.NewCategoryStore(database)
			tagStore := store.NewTagStore(database)
			topicStore := store.NewTopicStore(database, tagStore)
			privilegeStore := store.NewPrivilegeStore(database, userStore)
			clickStore := store.NewClickStore(database)

			// Page views queue their side effects; writers persist them off
			// the request path and drain on shutdown.
			readCh := make(chan store.ReadEvent, activityQueueSize)
			clickCh := make(chan store.ClickEvent, activityQueueSize)
			writersCtx, stopWriters := context.WithCancel(context.Background())
			writersDone := make(chan struct{}, 2)
			go func() {
				defer func() { writersDone <- struct{}{} }()
				activity.Run(writersCtx, readCh, func(ctx context.Context, e store.ReadEvent) error {
					return categoryStore.MarkRead(ctx, e.CID, e.UID)
				}, func(e store.ReadEvent, err error) {
					metrics.MarkReadErrorsTotal.Inc()
					log.Warn("mark-read write failed", "cid", e.CID, "uid", e.UID, "error", err)
				})
			}()
			go func() {
				defer func() { writersDone <- struct{}{} }()
				activity.Run(writersCtx, clickCh, func(ctx context.Context, e store.ClickEvent) error {
					if err := clickStore.RecordClick(ctx, e); err != nil {
						return err
					}
					metrics.ClicksRecordedTotal.Inc()
					return nil
				}, func(e store.ClickEvent, err error) {
					metrics.ClicksRecordErrorsTotal.Inc()
					log.Warn("click write failed", "cid", e.CategoryID, "error", err)
				})
			}()

			router := handler.NewRouter(handler.Deps{
				SessionManager: sessionManager,
				AuthMiddleware: auth.NewMiddleware(sessionManager, userStore),
				APITokens:      auth.NewAPITokenStore(database),
				FeedTokenStore: auth.NewFeedTokenStore(database),
				CategoryStore:  categoryStore,
				TopicStore:     topicStore,
				UserStore:      userStore,
				PrivilegeStore: privilegeStore,
				TagStore:       tagStore,
				TopicIndex:     index,
				Site:           cfg.Site(),
				ReadCh:         readCh,
				ClickCh:        clickCh,
				Logger:         log,
			})

			srv := &http.Server{
				Addr:              cfg.HTTP.Addr,
				Handler:           router,
				ReadHeaderTimeout: 10 * time.Second,
			}
			serveErr := make(chan error, 1)
			go func() {
				log.Info("listening", "addr", cfg.HTTP.Addr, "version", build.String())
				serveErr <- srv.ListenAndServe()
			}()

			select {
			case err := <-serveErr:
				stopWriters()
				if !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			case <-ctx.Done():
			}

			log.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			err = srv.Shutdown(shutdownCtx)

			stopWriters()
			for range 2 {
				<-writersDone
			}
			return err
		},
	}
}

// newLogger builds the process logger from cfg. Records carry the request id
// and viewer uid when logged with a request context.
func newLogger(cfg *config.Config) (*slog.Logger, error) {
	return logger.New(os.Stderr, cfg.Log.Level, cfg.Log.Format, logger.RequestID, auth.UIDLogAttr)
}

// openIndex returns the Redis topic index when a Redis URL is configured and
// the database-backed one otherwise.
func openIndex(ctx context.Context, cfg *config.Config, database *sqlx.DB) (topicindex.Index, func(), error) {
	if cfg.Redis.URL == "" {
		return topicindex.NewSQL(database), func() {}, nil
	}
	client, err := topicindex.OpenRedis(ctx, cfg.Redis.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("topic index: %w", err)
	}
	return topicindex.NewRedis(client), func() { _ = client.Close() }, nil
}
