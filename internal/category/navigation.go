package category

import (
	"html"
	"net/url"
	"strconv"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/joestump/joe-forum/internal/pagination"
)

var plainPolicy = bluemonday.StrictPolicy()

// SiteConfig carries the site-wide values the navigation depends on.
type SiteConfig struct {
	URL          string // absolute, no trailing slash
	RelativePath string // mount prefix for in-site links, may be empty
	Title        string
	DisableRSS   bool
}

// Details is the category row the navigation is built from.
type Details struct {
	CID             int64
	ParentCID       int64
	Name            string
	Description     string
	Slug            string
	BackgroundImage string
	Link            string
}

// Breadcrumb is one step of the root-to-leaf trail.
type Breadcrumb struct {
	Text string `json:"text"`
	URL  string `json:"url,omitempty"`
}

// MetaTag is a <meta> element. Exactly one of Name or Property is set.
type MetaTag struct {
	Name     string `json:"name,omitempty"`
	Property string `json:"property,omitempty"`
	Content  string `json:"content"`
}

// LinkTag is a <link> element.
type LinkTag struct {
	Rel  string `json:"rel"`
	Type string `json:"type,omitempty"`
	Href string `json:"href"`
}

// Navigation is everything rendered around the topic list.
type Navigation struct {
	Title       string
	Description string
	Breadcrumbs []Breadcrumb
	Pagination  pagination.Pagination
	MetaTags    []MetaTag
	LinkTags    []LinkTag
	RSSFeedURL  string
	DisableRSS  bool
}

// NavInput groups the per-request values the builder reads.
type NavInput struct {
	Category  Details
	Ancestors []Breadcrumb // root first, excluding the category itself
	Window    WindowSpec
	Query     url.Values
	UID       int64
	FeedToken string
}

// IsAuthenticated reports whether uid identifies a signed-in user.
func IsAuthenticated(uid int64) bool { return uid > 0 }

// ExternalLink reports whether opening the category sends the visitor to
// another URL instead of rendering its topics.
func ExternalLink(c Details) (string, bool) { return c.Link, c.Link != "" }

// PlainText strips markup from s and returns unescaped text, ready for a
// template to escape once.
func PlainText(s string) string {
	return html.UnescapeString(plainPolicy.Sanitize(s))
}

// BuildNavigation assembles breadcrumbs, pagination and head tags for a
// resolved category page.
func BuildNavigation(site SiteConfig, in NavInput) Navigation {
	c := in.Category
	nav := Navigation{
		Title:       PlainText(c.Name),
		Description: PlainText(c.Description),
		Breadcrumbs: BuildBreadcrumbs(site, c, in.Ancestors),
		RSSFeedURL:  RSSFeedURL(site, c.CID, in.UID, in.FeedToken),
		DisableRSS:  site.DisableRSS,
	}
	nav.MetaTags = MetaTags(nav.Title, nav.Description, c.BackgroundImage)

	nav.Pagination = pagination.Create(in.Window.Page, in.Window.PageCount, in.Query)
	nav.LinkTags = LinkTags(site, nav.RSSFeedURL)
	pageBase := strings.TrimRight(site.URL, "/") + "/category/" + c.Slug
	for _, rel := range nav.Pagination.Rel {
		nav.LinkTags = append(nav.LinkTags, LinkTag{Rel: rel.Rel, Href: pageBase + rel.Href})
	}
	return nav
}

// BuildBreadcrumbs appends the category to its ancestor trail.
func BuildBreadcrumbs(site SiteConfig, c Details, ancestors []Breadcrumb) []Breadcrumb {
	crumbs := make([]Breadcrumb, 0, len(ancestors)+1)
	crumbs = append(crumbs, ancestors...)
	return append(crumbs, Breadcrumb{
		Text: PlainText(c.Name),
		URL:  site.RelativePath + "/category/" + c.Slug,
	})
}

// RSSFeedURL returns the category feed address. Signed-in users get their
// uid and feed token appended so private categories stay readable.
func RSSFeedURL(site SiteConfig, cid, uid int64, token string) string {
	u := strings.TrimRight(site.URL, "/") + "/category/" + strconv.FormatInt(cid, 10) + ".rss"
	if IsAuthenticated(uid) {
		u += "?uid=" + strconv.FormatInt(uid, 10) + "&token=" + url.QueryEscape(token)
	}
	return u
}

// MetaTags returns the head meta tags for a category page.
func MetaTags(title, description, backgroundImage string) []MetaTag {
	tags := []MetaTag{
		{Name: "title", Content: title},
		{Property: "og:title", Content: title},
		{Name: "description", Content: description},
		{Property: "og:type", Content: "website"},
	}
	if backgroundImage != "" {
		tags = append(tags, MetaTag{Property: "og:image", Content: backgroundImage})
	}
	return tags
}

// LinkTags returns the fixed head link tags: the feed and the site root.
func LinkTags(site SiteConfig, rssURL string) []LinkTag {
	return []LinkTag{
		{Rel: "alternate", Type: "application/rss+xml", Href: rssURL},
		{Rel: "up", Href: site.URL},
	}
}
