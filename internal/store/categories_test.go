package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/joestump/joe-forum/internal/store"
)

func TestCategoryCreate_DerivesSlug(t *testing.T) {
	env := newStoreEnv(t)
	c := env.seedCategory(t, &store.Category{CID: 5, Name: "General Discussion"})
	if c.Slug != "5/general-discussion" {
		t.Errorf("slug = %q, want %q", c.Slug, "5/general-discussion")
	}

	got, err := env.categories.GetByID(context.Background(), 5)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Name != "General Discussion" || got.Slug != c.Slug {
		t.Errorf("GetByID = %+v", got)
	}
}

func TestCategoryCreate_EmptySlugText(t *testing.T) {
	env := newStoreEnv(t)
	c := env.seedCategory(t, &store.Category{CID: 9, Name: "!!!"})
	if c.Slug != "9/" {
		t.Errorf("slug = %q, want %q", c.Slug, "9/")
	}
}

func TestCategoryGetSummary(t *testing.T) {
	env := newStoreEnv(t)
	ctx := context.Background()
	env.seedCategory(t, &store.Category{CID: 1, Name: "News", TopicCount: 42})

	sum, err := env.categories.GetSummary(ctx, 1)
	if err != nil {
		t.Fatalf("GetSummary: %v", err)
	}
	if sum.Slug != "1/news" || sum.Disabled || sum.TopicCount != 42 {
		t.Errorf("summary = %+v", sum)
	}

	env.setDisabled(t, 1, true)
	sum, err = env.categories.GetSummary(ctx, 1)
	if err != nil {
		t.Fatalf("GetSummary: %v", err)
	}
	if !sum.Disabled {
		t.Error("expected category to be disabled")
	}

	if _, err := env.categories.GetSummary(ctx, 404); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("GetSummary(missing) err = %v, want ErrNotFound", err)
	}
}

func TestCategoryListChildren(t *testing.T) {
	env := newStoreEnv(t)
	ctx := context.Background()
	env.seedCategory(t, &store.Category{CID: 1, Name: "Root"})
	env.seedCategory(t, &store.Category{CID: 2, ParentCID: 1, Name: "B", SortOrder: 2})
	env.seedCategory(t, &store.Category{CID: 3, ParentCID: 1, Name: "A", SortOrder: 1})
	env.seedCategory(t, &store.Category{CID: 4, ParentCID: 3, Name: "Nested"})
	env.seedCategory(t, &store.Category{CID: 5, ParentCID: 1, Name: "Hidden", Disabled: true})

	tree, err := env.categories.ListChildren(ctx, 1)
	if err != nil {
		t.Fatalf("ListChildren: %v", err)
	}
	if len(tree) != 2 {
		t.Fatalf("len(tree) = %d, want 2", len(tree))
	}
	if tree[0].CID != 3 || tree[1].CID != 2 {
		t.Errorf("order = [%d %d], want [3 2]", tree[0].CID, tree[1].CID)
	}
	if len(tree[0].Children) != 1 || tree[0].Children[0].CID != 4 {
		t.Errorf("nested children = %+v", tree[0].Children)
	}

	flat := store.Flatten(tree)
	var cids []int64
	for _, c := range flat {
		cids = append(cids, c.CID)
	}
	if len(cids) != 3 || cids[0] != 3 || cids[1] != 4 || cids[2] != 2 {
		t.Errorf("Flatten = %v, want [3 4 2]", cids)
	}
}

func TestCategoryAncestors(t *testing.T) {
	env := newStoreEnv(t)
	ctx := context.Background()
	env.seedCategory(t, &store.Category{CID: 1, Name: "Root"})
	env.seedCategory(t, &store.Category{CID: 2, ParentCID: 1, Name: "Mid"})
	env.seedCategory(t, &store.Category{CID: 3, ParentCID: 2, Name: "Leaf"})

	chain, err := env.categories.Ancestors(ctx, 2)
	if err != nil {
		t.Fatalf("Ancestors: %v", err)
	}
	if len(chain) != 2 || chain[0].CID != 1 || chain[1].CID != 2 {
		t.Errorf("chain = %+v, want root then mid", chain)
	}

	chain, err = env.categories.Ancestors(ctx, 0)
	if err != nil {
		t.Fatalf("Ancestors(0): %v", err)
	}
	if len(chain) != 0 {
		t.Errorf("Ancestors(0) = %d entries, want 0", len(chain))
	}
}

func TestCategoryAncestors_Cycle(t *testing.T) {
	env := newStoreEnv(t)
	env.seedCategory(t, &store.Category{CID: 1, ParentCID: 2, Name: "One"})
	env.seedCategory(t, &store.Category{CID: 2, ParentCID: 1, Name: "Two"})

	if _, err := env.categories.Ancestors(context.Background(), 1); !errors.Is(err, store.ErrCategoryCycle) {
		t.Errorf("err = %v, want ErrCategoryCycle", err)
	}
}

func TestCategoryMarkRead(t *testing.T) {
	env := newStoreEnv(t)
	ctx := context.Background()
	env.seedCategory(t, &store.Category{CID: 1, Name: "News"})

	if _, ok := env.lastRead(t, 1, 7); ok {
		t.Fatal("category read before any MarkRead")
	}

	if err := env.categories.MarkRead(ctx, 1, 7); err != nil {
		t.Fatalf("MarkRead: %v", err)
	}
	first, ok := env.lastRead(t, 1, 7)
	if !ok {
		t.Fatal("MarkRead stored nothing")
	}

	time.Sleep(5 * time.Millisecond)
	if err := env.categories.MarkRead(ctx, 1, 7); err != nil {
		t.Fatalf("MarkRead again: %v", err)
	}
	second, _ := env.lastRead(t, 1, 7)
	if second.Before(first) {
		t.Errorf("read_at went backwards: %v then %v", first, second)
	}
}
