package category

import (
	"errors"
	"net/url"
	"strconv"
	"strings"
)

// ErrMalformedInput is returned when a path parameter is not a valid
// non-negative integer. Callers treat it exactly like a missing category.
var ErrMalformedInput = errors.New("malformed category request")

// RequestContext is everything the resolver needs from an incoming request.
type RequestContext struct {
	CategoryID int64
	Slug       string // slug text after the id, may be empty

	TopicIndex    int // 1-based, meaningful only when HasTopicIndex
	HasTopicIndex bool

	Page    int // defaults to 1 when absent or unparsable
	HasPage bool

	Sort    SortMode
	HasSort bool

	Tags       []string
	AuthorSlug string

	IsAPI bool
	UID   int64 // 0 for guests
}

// ParseRequest builds a RequestContext from raw path and query parameters.
func ParseRequest(categoryID, slug, topicIndex string, query url.Values, isAPI bool, uid int64) (RequestContext, error) {
	cid, ok := parseNonNegative(categoryID)
	if !ok {
		return RequestContext{}, ErrMalformedInput
	}

	req := RequestContext{
		CategoryID: cid,
		Slug:       slug,
		Page:       1,
		IsAPI:      isAPI,
		UID:        uid,
	}

	if topicIndex != "" {
		idx, ok := parseNonNegative(topicIndex)
		if !ok {
			return RequestContext{}, ErrMalformedInput
		}
		req.TopicIndex = int(idx)
		req.HasTopicIndex = true
	}

	if raw := query.Get("page"); raw != "" {
		req.HasPage = true
		if p, err := strconv.Atoi(raw); err == nil && p != 0 {
			req.Page = p
		}
	}

	if raw := query.Get("sort"); raw != "" {
		// An unknown sort name still overrides the user's preference.
		req.Sort, _ = ParseSortMode(raw)
		req.HasSort = true
	}

	for _, t := range query["tag"] {
		if t = strings.TrimSpace(t); t != "" {
			req.Tags = append(req.Tags, t)
		}
	}
	req.AuthorSlug = strings.TrimSpace(query.Get("author"))

	return req, nil
}

func parseNonNegative(s string) (int64, bool) {
	if s == "" {
		return 0, false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, false
		}
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
