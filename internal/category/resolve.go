// Package category turns a category page request into the window of topic
// identifiers to fetch, and builds the navigation that surrounds it.
package category

import (
	"strconv"
	"strings"
)

// DefaultTopicsPerPage is used when settings carry a non-positive page size.
const DefaultTopicsPerPage = 20

// Summary is the slice of a category row needed before any topics are read.
type Summary struct {
	Slug       string // canonical "<cid>/<text>"
	Disabled   bool
	TopicCount int
}

// Settings are the viewing user's list preferences.
type Settings struct {
	TopicsPerPage     int
	UsePagination     bool
	CategoryTopicSort SortMode
}

func (s Settings) perPage() int {
	if s.TopicsPerPage < 1 {
		return DefaultTopicsPerPage
	}
	return s.TopicsPerPage
}

// WindowSpec is the query tuple used to slice a storage set. Start and Stop
// are 0-based inclusive offsets.
type WindowSpec struct {
	Set       StorageSet
	Reverse   bool
	Start     int
	Stop      int
	Page      int
	PageCount int
}

// OutcomeKind enumerates how a request resolves.
type OutcomeKind int

const (
	OutcomeSuccess OutcomeKind = iota
	OutcomeNotFound
	OutcomeForbidden
	OutcomeRedirect
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeNotFound:
		return "not_found"
	case OutcomeForbidden:
		return "forbidden"
	case OutcomeRedirect:
		return "redirect"
	default:
		return "unknown"
	}
}

// Outcome is the result of Resolve. Location is set for redirects, Window
// for successes.
type Outcome struct {
	Kind     OutcomeKind
	Location string
	Window   WindowSpec
}

func notFound() Outcome           { return Outcome{Kind: OutcomeNotFound} }
func forbidden() Outcome          { return Outcome{Kind: OutcomeForbidden} }
func redirect(loc string) Outcome { return Outcome{Kind: OutcomeRedirect, Location: loc} }

// PageCount returns the number of pages needed to list topicCount topics,
// never less than one.
func PageCount(topicCount, perPage int) int {
	if perPage < 1 {
		perPage = DefaultTopicsPerPage
	}
	return max(1, ceilDiv(topicCount, perPage))
}

// Resolve decides whether the request can be served and, if so, which window
// of the category's topics to read. canRead is the viewer's read privilege.
func Resolve(req RequestContext, sum Summary, canRead bool, settings Settings) Outcome {
	if sum.Slug == "" || sum.Disabled {
		return notFound()
	}
	if !canRead {
		return forbidden()
	}

	cid := strconv.FormatInt(req.CategoryID, 10)
	base := "/category/" + strings.TrimSuffix(sum.Slug, "/")
	if !req.IsAPI && !isCanonical(cid, req.Slug, sum.Slug) {
		return redirect(base)
	}

	perPage := settings.perPage()
	topicIndex := 0
	if req.HasTopicIndex {
		topicIndex = req.TopicIndex - 1
	}
	topicCount := max(sum.TopicCount, 0)
	pageCount := PageCount(topicCount, perPage)

	if topicIndex < 0 || topicIndex > max(topicCount-1, 0) {
		if topicIndex > topicCount {
			return redirect(base + "/" + strconv.Itoa(topicCount))
		}
		return redirect(base)
	}

	currentPage := req.Page
	switch {
	case !settings.UsePagination:
		// The page parameter is ignored; the window is centred on the
		// requested topic instead.
		currentPage = 1
		topicIndex = max(0, topicIndex-(ceilDiv(perPage, 2)-1))
	case currentPage < 1 || currentPage > pageCount:
		return notFound()
	case !req.HasPage:
		currentPage = ceilDiv(max(topicIndex, 0)+1, perPage)
		topicIndex = 0
	}

	sort := settings.CategoryTopicSort
	if req.HasSort {
		sort = req.Sort
	}

	set := Single(TopicsKey(req.CategoryID))
	reverse := false
	switch sort {
	case SortNewestToOldest:
		reverse = true
	case SortMostPosts:
		reverse = true
		set = Single(TopicsByPostsKey(req.CategoryID))
	}

	start := (currentPage-1)*perPage + topicIndex
	return Outcome{
		Kind: OutcomeSuccess,
		Window: WindowSpec{
			Set:       set,
			Reverse:   reverse,
			Start:     start,
			Stop:      start + perPage - 1,
			Page:      currentPage,
			PageCount: pageCount,
		},
	}
}

// NarrowWindow applies the author and tag filters to a resolved window and
// returns the narrowed copy. authorUID of zero means no author filter. A tag
// requested more than once filters once, at its first position.
func NarrowWindow(w WindowSpec, cid, authorUID int64, tags []string) WindowSpec {
	base := w.Set.Base()
	if authorUID > 0 {
		base = UserTopicsKey(cid, authorUID)
	}
	if len(tags) == 0 {
		w.Set = Single(base)
		return w
	}
	filters := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, t := range tags {
		if seen[t] {
			continue
		}
		seen[t] = true
		filters = append(filters, TagTopicsKey(t))
	}
	w.Set = Intersection(base, filters...)
	return w
}

// isCanonical reports whether the requested slug text matches the stored
// "<cid>/<text>" slug. A stored slug of exactly "<cid>/" has no text part and
// is always considered canonical.
func isCanonical(cid, requested, canonical string) bool {
	if canonical == cid+"/" {
		return true
	}
	return requested != "" && canonical == cid+"/"+requested
}

func ceilDiv(a, b int) int {
	if a <= 0 {
		return 0
	}
	return (a + b - 1) / b
}
