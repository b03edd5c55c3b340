package main

import (
	"github.com/spf13/cobra"

	"github.com/joestump/joe-forum/internal/config"
	"github.com/joestump/joe-forum/internal/db"
	"github.com/joestump/joe-forum/internal/store"
	"github.com/joestump/joe-forum/internal/topicindex"
)

func newReindexCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reindex",
		Short: "Rebuild the topic index from the topics table",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			log, err := newLogger(cfg)
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			database, err := db.New(cfg.DB.Driver, cfg.DB.DSN)
			if err != nil {
				return err
			}
			defer func() { _ = database.Close() }()

			index, closeIndex, err := openIndex(ctx, cfg, database)
			if err != nil {
				return err
			}
			defer closeIndex()

			topics, err := store.NewTopicStore(database, store.NewTagStore(database)).ListAll(ctx)
			if err != nil {
				return err
			}
			if err := topicindex.Rebuild(ctx, index, topics); err != nil {
				return err
			}

			log.Info("topic index rebuilt", "topics", len(topics), "redis", cfg.Redis.URL != "")
			return nil
		},
	}
}
