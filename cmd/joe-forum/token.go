package main

import (
	"errors"
	"fmt"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"

	"github.com/joestump/joe-forum/internal/auth"
	"github.com/joestump/joe-forum/internal/config"
	"github.com/joestump/joe-forum/internal/db"
	"github.com/joestump/joe-forum/internal/store"
)

func newTokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Manage API bearer tokens",
	}
	cmd.AddCommand(newTokenCreateCmd(), newTokenListCmd(), newTokenRevokeCmd())
	return cmd
}

// openTokens loads config and opens the token table. The caller closes the DB.
func openTokens() (*sqlx.DB, *auth.APITokenStore, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	database, err := db.New(cfg.DB.Driver, cfg.DB.DSN)
	if err != nil {
		return nil, nil, err
	}
	return database, auth.NewAPITokenStore(database), nil
}

func requireUID(uid int64) error {
	if uid <= 0 {
		return errors.New("--uid must identify a user")
	}
	return nil
}

func newTokenCreateCmd() *cobra.Command {
	var (
		uid     int64
		name    string
		expires time.Duration
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Issue a bearer token for a user and print it once",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireUID(uid); err != nil {
				return err
			}
			database, tokens, err := openTokens()
			if err != nil {
				return err
			}
			defer func() { _ = database.Close() }()
			ctx := cmd.Context()

			if _, err := store.NewUserStore(database).GetByUID(ctx, uid); err != nil {
				return fmt.Errorf("user %d: %w", uid, err)
			}
			bearer, tok, err := tokens.Issue(ctx, uid, name, expires)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "token %s (%s) for uid %d:\n%s\n", tok.ID, tok.Name, uid, bearer)
			return nil
		},
	}
	cmd.Flags().Int64Var(&uid, "uid", 0, "user the token authenticates as")
	cmd.Flags().StringVar(&name, "name", "cli", "label shown by token list")
	cmd.Flags().DurationVar(&expires, "expires", 0, "token lifetime, zero for no expiry")
	return cmd
}

func newTokenListCmd() *cobra.Command {
	var uid int64
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List a user's API tokens",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireUID(uid); err != nil {
				return err
			}
			database, tokens, err := openTokens()
			if err != nil {
				return err
			}
			defer func() { _ = database.Close() }()

			toks, err := tokens.ListByUID(cmd.Context(), uid)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tCREATED\tLAST USED\tSTATUS")
			now := time.Now()
			for _, t := range toks {
				lastUsed := "never"
				if t.LastUsedAt.Valid {
					lastUsed = t.LastUsedAt.Time.Format(time.RFC3339)
				}
				status := "active"
				switch {
				case t.RevokedAt.Valid:
					status = "revoked"
				case !t.Usable(now):
					status = "expired"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", t.ID, t.Name, t.CreatedAt.Format(time.RFC3339), lastUsed, status)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().Int64Var(&uid, "uid", 0, "user whose tokens to list")
	return cmd
}

func newTokenRevokeCmd() *cobra.Command {
	var uid int64
	cmd := &cobra.Command{
		Use:   "revoke <token-id>",
		Short: "Revoke one of a user's API tokens",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireUID(uid); err != nil {
				return err
			}
			database, tokens, err := openTokens()
			if err != nil {
				return err
			}
			defer func() { _ = database.Close() }()

			err = tokens.Revoke(cmd.Context(), uid, args[0])
			if errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("uid %d has no live token %s", uid, args[0])
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "revoked "+args[0]+" for uid "+strconv.FormatInt(uid, 10))
			return nil
		},
	}
	cmd.Flags().Int64Var(&uid, "uid", 0, "owner of the token")
	return cmd
}
