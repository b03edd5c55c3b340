package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
)

// Privilege groups a viewer is evaluated against.
const (
	GroupGuests     = "guests"
	GroupRegistered = "registered-users"
)

// Privileges is what a viewer may do in one category.
type Privileges struct {
	Read     bool `json:"read"`
	Editable bool `json:"editable"`
	IsAdmin  bool `json:"isAdmin"`
}

// PrivilegeStore evaluates category privileges from category_privileges.
// Categories without a row for a group are readable but not editable.
type PrivilegeStore struct {
	db    *sqlx.DB
	users *UserStore
}

func NewPrivilegeStore(db *sqlx.DB, users *UserStore) *PrivilegeStore {
	return &PrivilegeStore{db: db, users: users}
}

func (s *PrivilegeStore) q(query string) string { return s.db.Rebind(query) }

// Get returns the privileges uid holds on cid. Admins hold all privileges.
func (s *PrivilegeStore) Get(ctx context.Context, cid, uid int64) (Privileges, error) {
	group := GroupGuests
	if uid > 0 {
		u, err := s.users.GetByUID(ctx, uid)
		switch {
		case errors.Is(err, ErrNotFound):
			// A session pointing at a deleted user browses as a guest.
		case err != nil:
			return Privileges{}, err
		case u.IsAdmin():
			return Privileges{Read: true, Editable: true, IsAdmin: true}, nil
		default:
			group = GroupRegistered
		}
	}

	var row struct {
		CanRead bool `db:"can_read"`
		CanEdit bool `db:"can_edit"`
	}
	err := s.db.GetContext(ctx, &row, s.q(`
		SELECT can_read, can_edit FROM category_privileges WHERE cid = ? AND grp = ?
	`), cid, group)
	if errors.Is(err, sql.ErrNoRows) {
		return Privileges{Read: true}, nil
	}
	if err != nil {
		return Privileges{}, err
	}
	return Privileges{Read: row.CanRead, Editable: row.CanEdit}, nil
}

// Set stores the privileges of group on cid.
func (s *PrivilegeStore) Set(ctx context.Context, cid int64, group string, read, edit bool) error {
	res, err := s.db.ExecContext(ctx, s.q(`
		UPDATE category_privileges SET can_read = ?, can_edit = ? WHERE cid = ? AND grp = ?
	`), boolInt(read), boolInt(edit), cid, group)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil || n > 0 {
		return err
	}
	_, err = s.db.ExecContext(ctx, s.q(`
		INSERT INTO category_privileges (cid, grp, can_read, can_edit) VALUES (?, ?, ?, ?)
	`), cid, group, boolInt(read), boolInt(edit))
	return err
}
