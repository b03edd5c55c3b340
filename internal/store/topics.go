package store

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
)

// Topic represents a row in the topics table.
type Topic struct {
	TID        int64     `db:"tid"`
	CID        int64     `db:"cid"`
	UID        int64     `db:"uid"`
	Title      string    `db:"title"`
	Slug       string    `db:"slug"`
	PostCount  int       `db:"post_count"`
	Deleted    bool      `db:"deleted"`
	CreatedAt  time.Time `db:"created_at"`
	LastPostAt time.Time `db:"last_post_at"`

	Tags []string `db:"-"` // tag slugs
}

type TopicStore struct {
	db   *sqlx.DB
	tags *TagStore
}

func NewTopicStore(db *sqlx.DB, tags *TagStore) *TopicStore {
	return &TopicStore{db: db, tags: tags}
}

func (s *TopicStore) q(query string) string { return s.db.Rebind(query) }

// Create inserts t with its tags and bumps the category's topic count.
func (s *TopicStore) Create(ctx context.Context, t *Topic, tagNames []string) error {
	now := time.Now().UTC()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	if t.LastPostAt.IsZero() {
		t.LastPostAt = t.CreatedAt
	}
	if t.PostCount < 1 {
		t.PostCount = 1
	}
	if t.Slug == "" {
		t.Slug = DeriveSlug(t.Title)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, s.q(`
		INSERT INTO topics (tid, cid, uid, title, slug, post_count, deleted, created_at, last_post_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`), t.TID, t.CID, t.UID, t.Title, t.Slug, t.PostCount, boolInt(t.Deleted), t.CreatedAt, t.LastPostAt)
	if err != nil {
		return err
	}

	t.Tags = t.Tags[:0]
	seen := make(map[string]bool, len(tagNames))
	for _, name := range tagNames {
		if seen[DeriveTagSlug(name)] {
			continue
		}
		tag, err := s.tags.upsertTx(ctx, tx, name)
		if err != nil {
			return err
		}
		seen[tag.Slug] = true
		_, err = tx.ExecContext(ctx, s.q(`INSERT INTO topic_tags (tid, tag_id) VALUES (?, ?)`), t.TID, tag.ID)
		if err != nil {
			return err
		}
		t.Tags = append(t.Tags, tag.Slug)
	}

	_, err = tx.ExecContext(ctx, s.q(`UPDATE categories SET topic_count = topic_count + 1 WHERE cid = ?`), t.CID)
	if err != nil {
		return err
	}
	return tx.Commit()
}

// GetByIDs returns the topics for tids in the same order. Unknown ids are
// skipped.
func (s *TopicStore) GetByIDs(ctx context.Context, tids []int64) ([]*Topic, error) {
	if len(tids) == 0 {
		return []*Topic{}, nil
	}
	query, args, err := sqlx.In(`SELECT * FROM topics WHERE tid IN (?)`, tids)
	if err != nil {
		return nil, err
	}
	var rows []*Topic
	if err := s.db.SelectContext(ctx, &rows, s.q(query), args...); err != nil {
		return nil, err
	}
	if err := s.attachTags(ctx, rows); err != nil {
		return nil, err
	}

	byID := make(map[int64]*Topic, len(rows))
	for _, t := range rows {
		byID[t.TID] = t
	}
	out := make([]*Topic, 0, len(tids))
	for _, tid := range tids {
		if t, ok := byID[tid]; ok {
			out = append(out, t)
		}
	}
	return out, nil
}

// ListAll returns every topic with its tags, ordered by tid.
func (s *TopicStore) ListAll(ctx context.Context) ([]*Topic, error) {
	var rows []*Topic
	if err := s.db.SelectContext(ctx, &rows, `SELECT * FROM topics ORDER BY tid ASC`); err != nil {
		return nil, err
	}
	if err := s.attachTags(ctx, rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// RecentByCategory returns up to limit of the most recently active,
// non-deleted topics of each category in cids.
func (s *TopicStore) RecentByCategory(ctx context.Context, cids []int64, limit int) (map[int64][]*Topic, error) {
	out := make(map[int64][]*Topic, len(cids))
	for _, cid := range cids {
		var rows []*Topic
		err := s.db.SelectContext(ctx, &rows, s.q(`
			SELECT * FROM topics
			WHERE cid = ? AND deleted = 0
			ORDER BY last_post_at DESC, tid DESC
			LIMIT ?
		`), cid, limit)
		if err != nil {
			return nil, err
		}
		out[cid] = rows
	}
	return out, nil
}

func (s *TopicStore) attachTags(ctx context.Context, topics []*Topic) error {
	if len(topics) == 0 {
		return nil
	}
	tids := make([]int64, 0, len(topics))
	byID := make(map[int64]*Topic, len(topics))
	for _, t := range topics {
		tids = append(tids, t.TID)
		byID[t.TID] = t
	}
	query, args, err := sqlx.In(`
		SELECT tt.tid, t.slug FROM topic_tags tt
		INNER JOIN tags t ON t.id = tt.tag_id
		WHERE tt.tid IN (?)
		ORDER BY t.slug ASC
	`, tids)
	if err != nil {
		return err
	}
	var pairs []struct {
		TID  int64  `db:"tid"`
		Slug string `db:"slug"`
	}
	if err := s.db.SelectContext(ctx, &pairs, s.q(query), args...); err != nil {
		return err
	}
	for _, p := range pairs {
		byID[p.TID].Tags = append(byID[p.TID].Tags, p.Slug)
	}
	return nil
}
