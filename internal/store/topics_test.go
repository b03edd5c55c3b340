package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/joestump/joe-forum/internal/store"
)

func TestTopicCreate_TagsAndCount(t *testing.T) {
	env := newStoreEnv(t)
	ctx := context.Background()
	env.seedCategory(t, &store.Category{CID: 1, Name: "News"})

	topic := &store.Topic{TID: 100, CID: 1, UID: 3, Title: "Hello World"}
	if err := env.topics.Create(ctx, topic, []string{"Go", "release notes", "go"}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if topic.Slug != "hello-world" {
		t.Errorf("slug = %q", topic.Slug)
	}
	if diff := cmp.Diff([]string{"go", "release-notes"}, topic.Tags); diff != "" {
		t.Errorf("tags mismatch (-want +got):\n%s", diff)
	}

	sum, err := env.categories.GetSummary(ctx, 1)
	if err != nil {
		t.Fatalf("GetSummary: %v", err)
	}
	if sum.TopicCount != 1 {
		t.Errorf("topic_count = %d, want 1", sum.TopicCount)
	}

	tag, err := env.tags.GetBySlug(ctx, "release-notes")
	if err != nil {
		t.Fatalf("GetBySlug: %v", err)
	}
	if tag.Name != "release notes" {
		t.Errorf("tag name = %q", tag.Name)
	}
	all, err := env.tags.ListAll(ctx)
	if err != nil {
		t.Fatalf("ListAll: %v", err)
	}
	if len(all) != 2 || all[0].Slug != "go" {
		t.Errorf("ListAll = %+v", all)
	}
	if _, err := env.tags.GetBySlug(ctx, "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("GetBySlug(missing) err = %v, want ErrNotFound", err)
	}
}

func TestTopicGetByIDs_PreservesOrder(t *testing.T) {
	env := newStoreEnv(t)
	ctx := context.Background()
	env.seedCategory(t, &store.Category{CID: 1, Name: "News"})
	for _, tid := range []int64{1, 2, 3} {
		if err := env.topics.Create(ctx, &store.Topic{TID: tid, CID: 1, Title: "t"}, []string{"x"}); err != nil {
			t.Fatalf("Create %d: %v", tid, err)
		}
	}

	got, err := env.topics.GetByIDs(ctx, []int64{3, 99, 1})
	if err != nil {
		t.Fatalf("GetByIDs: %v", err)
	}
	var tids []int64
	for _, topic := range got {
		tids = append(tids, topic.TID)
		if len(topic.Tags) != 1 || topic.Tags[0] != "x" {
			t.Errorf("topic %d tags = %v", topic.TID, topic.Tags)
		}
	}
	if diff := cmp.Diff([]int64{3, 1}, tids); diff != "" {
		t.Errorf("tids mismatch (-want +got):\n%s", diff)
	}

	empty, err := env.topics.GetByIDs(ctx, nil)
	if err != nil || len(empty) != 0 {
		t.Errorf("GetByIDs(nil) = %v, %v", empty, err)
	}
}

func TestTopicRecentByCategory(t *testing.T) {
	env := newStoreEnv(t)
	ctx := context.Background()
	env.seedCategory(t, &store.Category{CID: 1, Name: "News"})
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, deleted := range []bool{false, false, true, false} {
		topic := &store.Topic{
			TID:        int64(i + 1),
			CID:        1,
			Title:      "t",
			Deleted:    deleted,
			LastPostAt: base.Add(time.Duration(i) * time.Hour),
		}
		if err := env.topics.Create(ctx, topic, nil); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	recent, err := env.topics.RecentByCategory(ctx, []int64{1, 2}, 2)
	if err != nil {
		t.Fatalf("RecentByCategory: %v", err)
	}
	var tids []int64
	for _, topic := range recent[1] {
		tids = append(tids, topic.TID)
	}
	if diff := cmp.Diff([]int64{4, 2}, tids); diff != "" {
		t.Errorf("recent mismatch (-want +got):\n%s", diff)
	}
	if len(recent[2]) != 0 {
		t.Errorf("empty category has %d recent topics", len(recent[2]))
	}
}
