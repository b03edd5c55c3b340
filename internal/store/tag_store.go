package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// Tag represents a row in the tags table.
type Tag struct {
	ID        string    `db:"id"`
	Name      string    `db:"name"`
	Slug      string    `db:"slug"`
	CreatedAt time.Time `db:"created_at"`
}

// TagStore manages the tags topics are filtered by.
type TagStore struct {
	db *sqlx.DB
}

func NewTagStore(db *sqlx.DB) *TagStore {
	return &TagStore{db: db}
}

func (s *TagStore) q(query string) string { return s.db.Rebind(query) }

// DeriveTagSlug derives the slug a tag is stored and filtered under.
func DeriveTagSlug(name string) string { return DeriveSlug(name) }

type execGetter interface {
	sqlx.ExecerContext
	GetContext(ctx context.Context, dest any, query string, args ...any) error
}

// Upsert creates a tag if it doesn't exist (by slug), or returns the existing one.
func (s *TagStore) Upsert(ctx context.Context, name string) (*Tag, error) {
	return s.upsert(ctx, s.db, name)
}

// upsertTx is the transactional variant used by TopicStore.Create.
func (s *TagStore) upsertTx(ctx context.Context, tx *sqlx.Tx, name string) (*Tag, error) {
	return s.upsert(ctx, tx, name)
}

func (s *TagStore) upsert(ctx context.Context, db execGetter, name string) (*Tag, error) {
	slug := DeriveTagSlug(name)
	if slug == "" {
		return nil, ErrSlugInvalid
	}

	var existing Tag
	err := db.GetContext(ctx, &existing, s.q(`SELECT * FROM tags WHERE slug = ?`), slug)
	if err == nil {
		return &existing, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	id := uuid.New().String()
	now := time.Now().UTC()
	_, err = db.ExecContext(ctx, s.q(`
		INSERT INTO tags (id, name, slug, created_at) VALUES (?, ?, ?, ?)
	`), id, strings.TrimSpace(name), slug, now)
	if err != nil {
		// Race condition: another writer inserted first. Re-fetch.
		if IsUniqueConstraintError(err) {
			if err := db.GetContext(ctx, &existing, s.q(`SELECT * FROM tags WHERE slug = ?`), slug); err != nil {
				return nil, err
			}
			return &existing, nil
		}
		return nil, err
	}

	return &Tag{ID: id, Name: strings.TrimSpace(name), Slug: slug, CreatedAt: now}, nil
}

// GetBySlug returns the tag matching slug, or ErrNotFound.
func (s *TagStore) GetBySlug(ctx context.Context, slug string) (*Tag, error) {
	var t Tag
	err := s.db.GetContext(ctx, &t, s.q(`SELECT * FROM tags WHERE slug = ?`), slug)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// ListAll returns every tag ordered by slug.
func (s *TagStore) ListAll(ctx context.Context) ([]*Tag, error) {
	var tags []*Tag
	if err := s.db.SelectContext(ctx, &tags, `SELECT * FROM tags ORDER BY slug ASC`); err != nil {
		return nil, err
	}
	return tags, nil
}
