// Package topicindex serves the ordered topic sets category pages are sliced
// from. Sets are keyed as built by the category package and hold topic ids
// ordered by score.
package topicindex

import (
	"context"
	"errors"

	"github.com/joestump/joe-forum/internal/category"
	"github.com/joestump/joe-forum/internal/store"
)

// ErrEmptySet is returned when Range is asked for a set with no keys.
var ErrEmptySet = errors.New("topicindex: storage set has no keys")

// Index reads and writes scored topic sets.
type Index interface {
	// Range returns the ids ranked start..stop (inclusive, 0-based) in set,
	// lowest score first unless reverse is set. Equal scores order by tid,
	// following the same direction. A stop past the end yields the shorter
	// tail. Repeated filter keys filter once.
	Range(ctx context.Context, set category.StorageSet, reverse bool, start, stop int) ([]int64, error)
	// Add inserts tid into key with score, replacing any previous score.
	Add(ctx context.Context, key string, score float64, tid int64) error
	// Clear drops every topic set.
	Clear(ctx context.Context) error
}

// IndexTopic adds t to every set it belongs to: its category ordered by last
// activity and by post count, its author's set in that category, and one set
// per tag.
func IndexTopic(ctx context.Context, idx Index, t *store.Topic) error {
	type entry struct {
		key   string
		score float64
	}
	lastPost := float64(t.LastPostAt.UnixMilli())
	entries := []entry{
		{category.TopicsKey(t.CID), lastPost},
		{category.TopicsByPostsKey(t.CID), float64(t.PostCount)},
	}
	if t.UID > 0 {
		entries = append(entries, entry{category.UserTopicsKey(t.CID, t.UID), lastPost})
	}
	for _, tag := range t.Tags {
		entries = append(entries, entry{category.TagTopicsKey(tag), lastPost})
	}
	for _, e := range entries {
		if err := idx.Add(ctx, e.key, e.score, t.TID); err != nil {
			return err
		}
	}
	return nil
}

// Rebuild clears idx and indexes every topic in topics.
func Rebuild(ctx context.Context, idx Index, topics []*store.Topic) error {
	if err := idx.Clear(ctx); err != nil {
		return err
	}
	for _, t := range topics {
		if err := IndexTopic(ctx, idx, t); err != nil {
			return err
		}
	}
	return nil
}

func emptyWindow(start, stop int) bool {
	return start < 0 || stop < start
}
