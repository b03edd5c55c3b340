package store_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/joestump/joe-forum/internal/store"
	"github.com/joestump/joe-forum/internal/testutil"
)

type storeEnv struct {
	db         *sqlx.DB
	users      *store.UserStore
	categories *store.CategoryStore
	tags       *store.TagStore
	topics     *store.TopicStore
	clicks     *store.ClickStore
	privileges *store.PrivilegeStore
}

func newStoreEnv(t *testing.T) *storeEnv {
	t.Helper()
	db := testutil.NewTestDB(t)
	users := store.NewUserStore(db)
	tags := store.NewTagStore(db)
	return &storeEnv{
		db:         db,
		users:      users,
		categories: store.NewCategoryStore(db),
		tags:       tags,
		topics:     store.NewTopicStore(db, tags),
		clicks:     store.NewClickStore(db),
		privileges: store.NewPrivilegeStore(db, users),
	}
}

func (e *storeEnv) seedCategory(t *testing.T, c *store.Category) *store.Category {
	t.Helper()
	if err := e.categories.Create(context.Background(), c); err != nil {
		t.Fatalf("seed category %d: %v", c.CID, err)
	}
	return c
}

func (e *storeEnv) seedUser(t *testing.T, uid int64, username, role string) *store.User {
	t.Helper()
	u, err := e.users.Create(context.Background(), uid, username, username+"@example.com", role)
	if err != nil {
		t.Fatalf("seed user %d: %v", uid, err)
	}
	return u
}

func (e *storeEnv) setDisabled(t *testing.T, cid int64, disabled bool) {
	t.Helper()
	flag := 0
	if disabled {
		flag = 1
	}
	if _, err := e.db.Exec(e.db.Rebind(`UPDATE categories SET disabled = ? WHERE cid = ?`), flag, cid); err != nil {
		t.Fatalf("disable category %d: %v", cid, err)
	}
}

// lastRead returns when uid last marked cid read, and false when it never did.
func (e *storeEnv) lastRead(t *testing.T, cid, uid int64) (time.Time, bool) {
	t.Helper()
	var at time.Time
	err := e.db.Get(&at, e.db.Rebind(`SELECT read_at FROM category_reads WHERE cid = ? AND uid = ?`), cid, uid)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false
	}
	if err != nil {
		t.Fatalf("read category_reads: %v", err)
	}
	return at, true
}
