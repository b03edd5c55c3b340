package category

import (
	"strconv"
	"strings"
)

// SortMode is the ordering applied to a category's topic list.
type SortMode int

const (
	SortOldestToNewest SortMode = iota
	SortNewestToOldest
	SortMostPosts
)

var sortNames = map[SortMode]string{
	SortOldestToNewest: "oldest_to_newest",
	SortNewestToOldest: "newest_to_oldest",
	SortMostPosts:      "most_posts",
}

func (m SortMode) String() string {
	if s, ok := sortNames[m]; ok {
		return s
	}
	return sortNames[SortOldestToNewest]
}

// ParseSortMode maps a sort name to its mode. Unknown names report false and
// fall back to SortOldestToNewest.
func ParseSortMode(s string) (SortMode, bool) {
	for m, name := range sortNames {
		if name == s {
			return m, true
		}
	}
	return SortOldestToNewest, false
}

// StorageSet names the ordered topic set(s) a window is sliced from. A set
// with more than one key is an intersection: the first key provides the
// ordering, the rest only filter membership.
type StorageSet struct {
	keys []string
}

// Single returns a storage set backed by one key.
func Single(key string) StorageSet {
	return StorageSet{keys: []string{key}}
}

// Intersection returns a storage set whose members appear in every key.
func Intersection(base string, filters ...string) StorageSet {
	keys := make([]string, 0, 1+len(filters))
	keys = append(keys, base)
	keys = append(keys, filters...)
	return StorageSet{keys: keys}
}

// Keys returns a copy of the set's keys, base key first.
func (s StorageSet) Keys() []string {
	out := make([]string, len(s.keys))
	copy(out, s.keys)
	return out
}

// Base returns the key that orders the set.
func (s StorageSet) Base() string {
	if len(s.keys) == 0 {
		return ""
	}
	return s.keys[0]
}

// IsIntersection reports whether more than one key participates.
func (s StorageSet) IsIntersection() bool { return len(s.keys) > 1 }

func (s StorageSet) String() string { return strings.Join(s.keys, "&") }

// TopicsKey is the set of a category's topics scored by last activity.
func TopicsKey(cid int64) string {
	return "cid:" + strconv.FormatInt(cid, 10) + ":tids"
}

// TopicsByPostsKey is the set of a category's topics scored by post count.
func TopicsByPostsKey(cid int64) string {
	return TopicsKey(cid) + ":posts"
}

// UserTopicsKey is the set of topics one user started in a category.
func UserTopicsKey(cid, uid int64) string {
	return "cid:" + strconv.FormatInt(cid, 10) + ":uid:" + strconv.FormatInt(uid, 10) + ":tids"
}

// TagTopicsKey is the set of topics carrying a tag.
func TagTopicsKey(tag string) string {
	return "tag:" + tag + ":topics"
}
