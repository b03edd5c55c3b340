package store

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"time"

	"github.com/jmoiron/sqlx"
)

// Category represents a row in the categories table.
type Category struct {
	CID             int64     `db:"cid"`
	ParentCID       int64     `db:"parent_cid"`
	Name            string    `db:"name"`
	Slug            string    `db:"slug"` // "<cid>/<text>"
	Description     string    `db:"description"`
	BackgroundImage string    `db:"background_image"`
	Link            string    `db:"link"`
	Disabled        bool      `db:"disabled"`
	TopicCount      int       `db:"topic_count"`
	TimesClicked    int       `db:"times_clicked"`
	SortOrder       int       `db:"sort_order"`
	CreatedAt       time.Time `db:"created_at"`

	Children []*Category `db:"-"`
	Recent   []*Topic    `db:"-"`
}

// CategorySummary is the subset of a category read before resolving a page.
type CategorySummary struct {
	Slug       string `db:"slug"`
	Disabled   bool   `db:"disabled"`
	TopicCount int    `db:"topic_count"`
}

// ReadEvent asks for a category to be marked read by a user.
type ReadEvent struct {
	CID int64
	UID int64
}

// maxCategoryDepth bounds parent-chain walks.
const maxCategoryDepth = 32

type CategoryStore struct {
	db *sqlx.DB
}

func NewCategoryStore(db *sqlx.DB) *CategoryStore {
	return &CategoryStore{db: db}
}

func (s *CategoryStore) q(query string) string { return s.db.Rebind(query) }

// Create inserts c. When c.Slug is empty it is derived as "<cid>/<name-slug>".
func (s *CategoryStore) Create(ctx context.Context, c *Category) error {
	if c.Slug == "" {
		text := DeriveSlug(c.Name)
		if text != "" {
			if err := ValidateSlugFormat(text); err != nil {
				return err
			}
		}
		c.Slug = strconv.FormatInt(c.CID, 10) + "/" + text
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, s.q(`
		INSERT INTO categories (cid, parent_cid, name, slug, description, background_image, link,
			disabled, topic_count, times_clicked, sort_order, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`), c.CID, c.ParentCID, c.Name, c.Slug, c.Description, c.BackgroundImage, c.Link,
		boolInt(c.Disabled), c.TopicCount, c.TimesClicked, c.SortOrder, c.CreatedAt)
	return err
}

// GetSummary returns the slug, disabled flag and topic count of cid, or ErrNotFound.
func (s *CategoryStore) GetSummary(ctx context.Context, cid int64) (CategorySummary, error) {
	var sum CategorySummary
	err := s.db.GetContext(ctx, &sum, s.q(`SELECT slug, disabled, topic_count FROM categories WHERE cid = ?`), cid)
	if errors.Is(err, sql.ErrNoRows) {
		return CategorySummary{}, ErrNotFound
	}
	return sum, err
}

// GetByID returns the full category row, or ErrNotFound.
func (s *CategoryStore) GetByID(ctx context.Context, cid int64) (*Category, error) {
	var c Category
	err := s.db.GetContext(ctx, &c, s.q(`SELECT * FROM categories WHERE cid = ?`), cid)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ListChildren returns the enabled descendants of cid as a tree, each level
// ordered by sort_order.
func (s *CategoryStore) ListChildren(ctx context.Context, cid int64) ([]*Category, error) {
	return s.listChildren(ctx, cid, 0)
}

func (s *CategoryStore) listChildren(ctx context.Context, cid int64, depth int) ([]*Category, error) {
	if depth >= maxCategoryDepth {
		return nil, ErrCategoryCycle
	}
	var children []*Category
	err := s.db.SelectContext(ctx, &children, s.q(`
		SELECT * FROM categories
		WHERE parent_cid = ? AND disabled = 0 AND cid <> parent_cid
		ORDER BY sort_order ASC, cid ASC
	`), cid)
	if err != nil {
		return nil, err
	}
	for _, c := range children {
		if c.Children, err = s.listChildren(ctx, c.CID, depth+1); err != nil {
			return nil, err
		}
	}
	return children, nil
}

// Flatten returns every category of a tree in depth-first order.
func Flatten(tree []*Category) []*Category {
	var out []*Category
	for _, c := range tree {
		out = append(out, c)
		out = append(out, Flatten(c.Children)...)
	}
	return out
}

// Ancestors returns the chain ending at parentCID, root first. A parentCID of
// zero has no ancestors.
func (s *CategoryStore) Ancestors(ctx context.Context, parentCID int64) ([]*Category, error) {
	var chain []*Category
	for cid := parentCID; cid > 0; {
		if len(chain) >= maxCategoryDepth {
			return nil, ErrCategoryCycle
		}
		c, err := s.GetByID(ctx, cid)
		if errors.Is(err, ErrNotFound) {
			break
		}
		if err != nil {
			return nil, err
		}
		chain = append(chain, c)
		cid = c.ParentCID
	}
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain, nil
}

// MarkRead records that uid has seen cid as of now.
func (s *CategoryStore) MarkRead(ctx context.Context, cid, uid int64) error {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx, s.q(`UPDATE category_reads SET read_at = ? WHERE cid = ? AND uid = ?`), now, cid, uid)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil || n > 0 {
		return err
	}
	_, err = s.db.ExecContext(ctx, s.q(`INSERT INTO category_reads (cid, uid, read_at) VALUES (?, ?, ?)`), cid, uid, now)
	if IsUniqueConstraintError(err) {
		// A concurrent view inserted first; its timestamp is close enough.
		return nil
	}
	return err
}
