package store_test

import (
	"context"
	"errors"
	"testing"

	"github.com/joestump/joe-forum/internal/store"
)

func TestUserCreate(t *testing.T) {
	env := newStoreEnv(t)
	u := env.seedUser(t, 10, "Alice Smith", "")
	if u.Userslug != "alice-smith" {
		t.Errorf("userslug = %q, want %q", u.Userslug, "alice-smith")
	}
	if u.Role != "user" || u.IsAdmin() {
		t.Errorf("role = %q, want plain user", u.Role)
	}
}

func TestUserCreate_ReservedSlug(t *testing.T) {
	env := newStoreEnv(t)
	_, err := env.users.Create(context.Background(), 1, "Category", "c@example.com", "")
	if !errors.Is(err, store.ErrSlugReserved) {
		t.Errorf("err = %v, want ErrSlugReserved", err)
	}
}

func TestGetUIDByUserslug(t *testing.T) {
	env := newStoreEnv(t)
	ctx := context.Background()
	env.seedUser(t, 10, "alice", "")

	uid, err := env.users.GetUIDByUserslug(ctx, "alice")
	if err != nil || uid != 10 {
		t.Errorf("GetUIDByUserslug(alice) = %d, %v; want 10", uid, err)
	}
	uid, err = env.users.GetUIDByUserslug(ctx, "nobody")
	if err != nil || uid != 0 {
		t.Errorf("GetUIDByUserslug(nobody) = %d, %v; want 0", uid, err)
	}
	uid, err = env.users.GetUIDByUserslug(ctx, "")
	if err != nil || uid != 0 {
		t.Errorf("GetUIDByUserslug(\"\") = %d, %v; want 0", uid, err)
	}
}

func TestUserSettings(t *testing.T) {
	env := newStoreEnv(t)
	ctx := context.Background()
	env.seedUser(t, 10, "alice", "")

	st, err := env.users.GetSettings(ctx, 0)
	if err != nil {
		t.Fatalf("GetSettings(guest): %v", err)
	}
	if st != store.DefaultSettings() {
		t.Errorf("guest settings = %+v, want defaults", st)
	}

	st, err = env.users.GetSettings(ctx, 10)
	if err != nil {
		t.Fatalf("GetSettings(unsaved): %v", err)
	}
	if st != store.DefaultSettings() {
		t.Errorf("unsaved settings = %+v, want defaults", st)
	}

	want := store.Settings{TopicsPerPage: 5, UsePagination: false, CategoryTopicSort: "most_posts"}
	if err := env.users.SaveSettings(ctx, 10, want); err != nil {
		t.Fatalf("SaveSettings: %v", err)
	}
	st, err = env.users.GetSettings(ctx, 10)
	if err != nil {
		t.Fatalf("GetSettings: %v", err)
	}
	if st != want {
		t.Errorf("settings = %+v, want %+v", st, want)
	}

	// Out-of-range page sizes are clamped on read.
	if err := env.users.SaveSettings(ctx, 10, store.Settings{TopicsPerPage: 500, UsePagination: true}); err != nil {
		t.Fatalf("SaveSettings: %v", err)
	}
	st, err = env.users.GetSettings(ctx, 10)
	if err != nil {
		t.Fatalf("GetSettings: %v", err)
	}
	if st.TopicsPerPage != store.MaxTopicsPerPage {
		t.Errorf("topics per page = %d, want %d", st.TopicsPerPage, store.MaxTopicsPerPage)
	}
	if st.CategoryTopicSort != store.DefaultCategoryTopicSort {
		t.Errorf("sort = %q, want default", st.CategoryTopicSort)
	}
}
