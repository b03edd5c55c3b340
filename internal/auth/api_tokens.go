package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/joestump/joe-forum/internal/store"
)

// bearerPrefix marks forum API tokens so a leaked value is recognizable.
const bearerPrefix = "jf_"

// ErrTokenInvalid is returned for bearer values that authenticate nobody.
var ErrTokenInvalid = errors.New("auth: invalid api token")

// APIToken is an issued bearer token. Only the hash of its value is kept.
type APIToken struct {
	ID         string       `db:"id"`
	UID        int64        `db:"user_id"`
	Name       string       `db:"name"`
	Hash       string       `db:"token_hash"`
	LastUsedAt sql.NullTime `db:"last_used_at"`
	ExpiresAt  sql.NullTime `db:"expires_at"`
	CreatedAt  time.Time    `db:"created_at"`
	RevokedAt  sql.NullTime `db:"revoked_at"`
}

// Usable reports whether t can still authenticate a request at now.
func (t *APIToken) Usable(now time.Time) bool {
	if t.RevokedAt.Valid {
		return false
	}
	return !t.ExpiresAt.Valid || now.Before(t.ExpiresAt.Time)
}

// TokenResolver maps a bearer value to the token it presents.
type TokenResolver interface {
	// Resolve returns ErrTokenInvalid for unknown or unusable values.
	Resolve(ctx context.Context, bearer string) (*APIToken, error)
	// Touch records that the token with id was just used.
	Touch(ctx context.Context, id string) error
}

// APITokenStore keeps API tokens in the api_tokens table.
type APITokenStore struct {
	db *sqlx.DB
}

func NewAPITokenStore(db *sqlx.DB) *APITokenStore {
	return &APITokenStore{db: db}
}

func (s *APITokenStore) q(query string) string { return s.db.Rebind(query) }

// Issue creates a token for uid and returns its bearer value, which cannot be
// recovered later. A ttl of zero never expires.
func (s *APITokenStore) Issue(ctx context.Context, uid int64, name string, ttl time.Duration) (string, *APIToken, error) {
	bearer, err := newBearer()
	if err != nil {
		return "", nil, err
	}
	tok := &APIToken{
		ID:        uuid.NewString(),
		UID:       uid,
		Name:      name,
		Hash:      hashBearer(bearer),
		CreatedAt: time.Now().UTC(),
	}
	if ttl > 0 {
		tok.ExpiresAt = sql.NullTime{Time: tok.CreatedAt.Add(ttl), Valid: true}
	}

	_, err = s.db.ExecContext(ctx, s.q(`
		INSERT INTO api_tokens (id, user_id, name, token_hash, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`), tok.ID, tok.UID, tok.Name, tok.Hash, tok.ExpiresAt, tok.CreatedAt)
	if err != nil {
		return "", nil, err
	}
	return bearer, tok, nil
}

func (s *APITokenStore) Resolve(ctx context.Context, bearer string) (*APIToken, error) {
	if !strings.HasPrefix(bearer, bearerPrefix) {
		return nil, ErrTokenInvalid
	}
	var tok APIToken
	err := s.db.GetContext(ctx, &tok, s.q(`SELECT * FROM api_tokens WHERE token_hash = ?`), hashBearer(bearer))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTokenInvalid
	}
	if err != nil {
		return nil, err
	}
	if !tok.Usable(time.Now()) {
		return nil, ErrTokenInvalid
	}
	return &tok, nil
}

func (s *APITokenStore) Touch(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, s.q(`UPDATE api_tokens SET last_used_at = ? WHERE id = ?`), time.Now().UTC(), id)
	return err
}

// ListByUID returns uid's tokens, newest first, revoked ones included.
func (s *APITokenStore) ListByUID(ctx context.Context, uid int64) ([]*APIToken, error) {
	var toks []*APIToken
	err := s.db.SelectContext(ctx, &toks, s.q(`
		SELECT * FROM api_tokens WHERE user_id = ? ORDER BY created_at DESC, id ASC
	`), uid)
	return toks, err
}

// Revoke disables uid's token id. It returns store.ErrNotFound when uid holds
// no live token with that id.
func (s *APITokenStore) Revoke(ctx context.Context, uid int64, id string) error {
	res, err := s.db.ExecContext(ctx, s.q(`
		UPDATE api_tokens SET revoked_at = ? WHERE id = ? AND user_id = ? AND revoked_at IS NULL
	`), time.Now().UTC(), id, uid)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func newBearer() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return bearerPrefix + base64.RawURLEncoding.EncodeToString(b), nil
}

func hashBearer(bearer string) string {
	h := sha256.Sum256([]byte(bearer))
	return hex.EncodeToString(h[:])
}
