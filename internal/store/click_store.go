package store

import (
	"context"
	"crypto/sha256"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// ClickEvent is one visit to a link category.
type ClickEvent struct {
	CategoryID int64
	UID        int64  // 0 = guest
	IPHash     string // caller computes this
	UserAgent  string
	Referrer   string
}

// ClickStore records visits to link categories.
type ClickStore struct {
	db *sqlx.DB
}

// NewClickStore creates a new ClickStore.
func NewClickStore(db *sqlx.DB) *ClickStore {
	return &ClickStore{db: db}
}

// q rebinds ? placeholders to the driver's native format.
func (s *ClickStore) q(query string) string { return s.db.Rebind(query) }

// RecordClick inserts a click row and bumps the category's times_clicked.
func (s *ClickStore) RecordClick(ctx context.Context, e ClickEvent) error {
	id := uuid.New().String()
	now := time.Now().UTC()

	// Truncate user_agent to 512 chars, referrer to 2048.
	ua := e.UserAgent
	if len(ua) > 512 {
		ua = ua[:512]
	}
	ref := e.Referrer
	if len(ref) > 2048 {
		ref = ref[:2048]
	}

	var uid any
	if e.UID > 0 {
		uid = e.UID
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, s.q(`
		INSERT INTO category_clicks (id, cid, uid, ip_hash, user_agent, referrer, clicked_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`), id, e.CategoryID, uid, e.IPHash, ua, ref, now)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, s.q(`UPDATE categories SET times_clicked = times_clicked + 1 WHERE cid = ?`), e.CategoryID)
	if err != nil {
		return err
	}
	return tx.Commit()
}

// CountClicks returns the number of recorded clicks for cid.
func (s *ClickStore) CountClicks(ctx context.Context, cid int64) (int64, error) {
	var n int64
	err := s.db.GetContext(ctx, &n, s.q(`SELECT COUNT(*) FROM category_clicks WHERE cid = ?`), cid)
	return n, err
}

// HashIP computes SHA-256(ip + ":" + YYYYMMDD_UTC) for the current day.
func HashIP(ip string) string {
	salt := time.Now().UTC().Format("20060102")
	h := sha256.Sum256([]byte(ip + ":" + salt))
	return fmt.Sprintf("%x", h)
}
