package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
)

const (
	// DefaultTopicsPerPage applies to guests and users without saved settings.
	DefaultTopicsPerPage = 20
	// MaxTopicsPerPage caps user-chosen page sizes.
	MaxTopicsPerPage = 100
	// DefaultCategoryTopicSort is the sort name used without a preference.
	DefaultCategoryTopicSort = "oldest_to_newest"
)

type User struct {
	UID       int64     `db:"uid"`
	Username  string    `db:"username"`
	Userslug  string    `db:"userslug"`
	Email     string    `db:"email"`
	Role      string    `db:"role"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (u *User) IsAdmin() bool {
	return u.Role == "admin"
}

// Settings are a user's topic list preferences.
type Settings struct {
	TopicsPerPage     int    `db:"topics_per_page"`
	UsePagination     bool   `db:"use_pagination"`
	CategoryTopicSort string `db:"category_topic_sort"`
}

// DefaultSettings returns the preferences applied when none are stored.
func DefaultSettings() Settings {
	return Settings{
		TopicsPerPage:     DefaultTopicsPerPage,
		UsePagination:     true,
		CategoryTopicSort: DefaultCategoryTopicSort,
	}
}

type UserStore struct {
	db *sqlx.DB
}

func NewUserStore(db *sqlx.DB) *UserStore {
	return &UserStore{db: db}
}

func (s *UserStore) q(query string) string { return s.db.Rebind(query) }

// Create inserts a user with a slug derived from username.
func (s *UserStore) Create(ctx context.Context, uid int64, username, email, role string) (*User, error) {
	if role == "" {
		role = "user"
	}
	slug := DeriveSlug(username)
	if err := ValidateUserslug(slug); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx, s.q(`
		INSERT INTO users (uid, username, userslug, email, role, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`), uid, username, slug, email, role, now, now)
	if err != nil {
		return nil, err
	}
	return s.GetByUID(ctx, uid)
}

// GetByUID returns the user with uid, or ErrNotFound.
func (s *UserStore) GetByUID(ctx context.Context, uid int64) (*User, error) {
	var u User
	err := s.db.GetContext(ctx, &u, s.q(`SELECT * FROM users WHERE uid = ?`), uid)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetUIDByUserslug returns the uid owning slug. An empty or unknown slug
// yields 0 and no error.
func (s *UserStore) GetUIDByUserslug(ctx context.Context, slug string) (int64, error) {
	if slug == "" {
		return 0, nil
	}
	var uid int64
	err := s.db.GetContext(ctx, &uid, s.q(`SELECT uid FROM users WHERE userslug = ?`), slug)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return uid, nil
}

// GetSettings returns the stored preferences for uid, falling back to
// DefaultSettings for guests and users who never saved any.
func (s *UserStore) GetSettings(ctx context.Context, uid int64) (Settings, error) {
	if uid <= 0 {
		return DefaultSettings(), nil
	}
	var st Settings
	err := s.db.GetContext(ctx, &st, s.q(`
		SELECT topics_per_page, use_pagination, category_topic_sort
		FROM user_settings WHERE uid = ?
	`), uid)
	if errors.Is(err, sql.ErrNoRows) {
		return DefaultSettings(), nil
	}
	if err != nil {
		return Settings{}, err
	}
	st.TopicsPerPage = min(max(st.TopicsPerPage, 1), MaxTopicsPerPage)
	if st.CategoryTopicSort == "" {
		st.CategoryTopicSort = DefaultCategoryTopicSort
	}
	return st, nil
}

// SaveSettings stores preferences for uid.
func (s *UserStore) SaveSettings(ctx context.Context, uid int64, st Settings) error {
	res, err := s.db.ExecContext(ctx, s.q(`
		UPDATE user_settings SET topics_per_page = ?, use_pagination = ?, category_topic_sort = ?
		WHERE uid = ?
	`), st.TopicsPerPage, boolInt(st.UsePagination), st.CategoryTopicSort, uid)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil || n > 0 {
		return err
	}
	_, err = s.db.ExecContext(ctx, s.q(`
		INSERT INTO user_settings (uid, topics_per_page, use_pagination, category_topic_sort)
		VALUES (?, ?, ?, ?)
	`), uid, st.TopicsPerPage, boolInt(st.UsePagination), st.CategoryTopicSort)
	return err
}
