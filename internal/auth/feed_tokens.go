package auth

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/joestump/joe-forum/internal/store"
)

// FeedTokenStore hands out the per-user token appended to RSS feed URLs so
// feed readers can fetch private categories without a session.
type FeedTokenStore struct {
	db *sqlx.DB
}

func NewFeedTokenStore(db *sqlx.DB) *FeedTokenStore {
	return &FeedTokenStore{db: db}
}

func (s *FeedTokenStore) q(query string) string { return s.db.Rebind(query) }

// GetFeedToken returns uid's feed token, creating it on first use. Guests
// have no token.
func (s *FeedTokenStore) GetFeedToken(ctx context.Context, uid int64) (string, error) {
	if uid <= 0 {
		return "", nil
	}
	var token string
	err := s.db.GetContext(ctx, &token, s.q(`SELECT token FROM feed_tokens WHERE uid = ?`), uid)
	if err == nil {
		return token, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", err
	}

	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	token = hex.EncodeToString(b)
	_, err = s.db.ExecContext(ctx, s.q(`INSERT INTO feed_tokens (uid, token, created_at) VALUES (?, ?, ?)`),
		uid, token, time.Now().UTC())
	if store.IsUniqueConstraintError(err) {
		// A concurrent request created it first.
		err = s.db.GetContext(ctx, &token, s.q(`SELECT token FROM feed_tokens WHERE uid = ?`), uid)
	}
	if err != nil {
		return "", err
	}
	return token, nil
}
