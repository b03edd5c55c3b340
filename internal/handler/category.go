package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"github.com/joestump/joe-forum/internal/activity"
	"github.com/joestump/joe-forum/internal/auth"
	"github.com/joestump/joe-forum/internal/category"
	"github.com/joestump/joe-forum/internal/metrics"
	"github.com/joestump/joe-forum/internal/pagination"
	"github.com/joestump/joe-forum/internal/store"
	"github.com/joestump/joe-forum/internal/topicindex"
)

const (
	// recentRepliesPerChild is how many recent topics decorate each child category.
	recentRepliesPerChild = 1
	// deletedTopicTitle replaces the title of deleted topics for viewers who cannot edit.
	deletedTopicTitle = "[deleted]"
)

// CategoryHandler serves category pages as HTML and JSON.
type CategoryHandler struct {
	categories *store.CategoryStore
	topics     *store.TopicStore
	users      *store.UserStore
	privileges *store.PrivilegeStore
	tags       *store.TagStore
	feeds      *auth.FeedTokenStore
	index      topicindex.Index
	site       category.SiteConfig
	readCh     chan<- store.ReadEvent
	clickCh    chan<- store.ClickEvent
	log        *slog.Logger
}

// NewCategoryHandler creates a CategoryHandler from the router dependencies.
func NewCategoryHandler(deps Deps) *CategoryHandler {
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}
	return &CategoryHandler{
		categories: deps.CategoryStore,
		topics:     deps.TopicStore,
		users:      deps.UserStore,
		privileges: deps.PrivilegeStore,
		tags:       deps.TagStore,
		feeds:      deps.FeedTokenStore,
		index:      deps.TopicIndex,
		site:       deps.Site,
		readCh:     deps.ReadCh,
		clickCh:    deps.ClickCh,
		log:        log.With("component", "category"),
	}
}

// topicView is one row of the topic list.
type topicView struct {
	Index      int       `json:"index"` // 0-based position in the storage set
	TID        int64     `json:"tid"`
	Title      string    `json:"title"`
	Slug       string    `json:"slug"`
	PostCount  int       `json:"postcount"`
	Deleted    bool      `json:"deleted"`
	LastPostAt time.Time `json:"lastposttime"`
	Tags       []string  `json:"tags"`
}

// childView is a descendant category with its most recent topics.
type childView struct {
	CID          int64       `json:"cid"`
	ParentCID    int64       `json:"parentCid"`
	Name         string      `json:"name"`
	Description  string      `json:"description"`
	Slug         string      `json:"slug"`
	Link         string      `json:"link,omitempty"`
	TopicCount   int         `json:"topic_count"`
	RecentTopics []topicView `json:"posts"`
}

// categoryPayload is the page model shared by the HTML and JSON renderings.
type categoryPayload struct {
	CID             int64                 `json:"cid"`
	Name            string                `json:"name"`
	Description     string                `json:"description"`
	Slug            string                `json:"slug"`
	BackgroundImage string                `json:"backgroundImage,omitempty"`
	TopicCount      int                   `json:"topic_count"`
	Topics          []topicView           `json:"topics"`
	Children        []childView           `json:"children"`
	TopicIndex      int                   `json:"topicIndex"`
	Sort            string                `json:"selectedSort"`
	SelectedTags    []tagView             `json:"selectedTags"`
	Author          string                `json:"author,omitempty"`
	Privileges      store.Privileges      `json:"privileges"`
	ShowSelect      bool                  `json:"showSelect"`
	Title           string                `json:"title"`
	Breadcrumbs     []category.Breadcrumb `json:"breadcrumbs"`
	Pagination      pagination.Pagination `json:"pagination"`
	MetaTags        []category.MetaTag    `json:"metaTags"`
	LinkTags        []category.LinkTag    `json:"linkTags"`
	RSSFeedURL      string                `json:"rssFeedUrl"`
	DisableRSS      bool                  `json:"feeds:disableRSS"`
}

type categoryPage struct {
	BasePage
	Category categoryPayload
}

type statusPage struct {
	BasePage
	Message string
}

// preResolve is what Resolve needs, read before any topics are touched.
type preResolve struct {
	summary    category.Summary
	privileges store.Privileges
	settings   category.Settings
	feedToken  string
}

// pageData is everything read after a successful resolve.
type pageData struct {
	details   *store.Category
	ancestors []*store.Category
	children  []*store.Category
	recent    map[int64][]*store.Topic
	topics    []*store.Topic
	window    category.WindowSpec
	tags      []string
	tagViews  []tagView
}

// tagView is a tag filter applied to the page.
type tagView struct {
	Slug string `json:"slug"`
	Name string `json:"name"`
}

// Show handles GET /category/{category_id}[/{slug}[/{topic_index}]].
func (h *CategoryHandler) Show(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, false)
}

// ShowAPI handles GET /api/category/{category_id}[/{slug}[/{topic_index}]].
// The slug is not required to be canonical.
func (h *CategoryHandler) ShowAPI(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, true)
}

func (h *CategoryHandler) serve(w http.ResponseWriter, r *http.Request, isAPI bool) {
	start := time.Now()
	defer func() { metrics.CategoryViewDuration.Observe(time.Since(start).Seconds()) }()

	ctx := r.Context()
	uid := auth.UIDFromContext(ctx)

	req, err := category.ParseRequest(
		chi.URLParam(r, "category_id"),
		chi.URLParam(r, "slug"),
		chi.URLParam(r, "topic_index"),
		r.URL.Query(), isAPI, uid,
	)
	if err != nil {
		h.notFound(w, r, isAPI)
		return
	}

	pre, err := h.loadPreResolve(ctx, req)
	if err != nil {
		h.fail(w, r, isAPI, err)
		return
	}

	out := category.Resolve(req, pre.summary, pre.privileges.Read, pre.settings)
	switch out.Kind {
	case category.OutcomeNotFound:
		h.notFound(w, r, isAPI)
		return
	case category.OutcomeForbidden:
		h.forbidden(w, r, isAPI)
		return
	case category.OutcomeRedirect:
		metrics.CategoryViewsTotal.WithLabelValues(out.Kind.String()).Inc()
		h.redirect(w, r, isAPI, h.site.RelativePath+out.Location)
		return
	}

	data, err := h.loadPage(ctx, req, out.Window)
	if errors.Is(err, store.ErrNotFound) {
		// Deleted between the summary read and now.
		h.notFound(w, r, isAPI)
		return
	}
	if err != nil {
		h.fail(w, r, isAPI, err)
		return
	}

	if link, ok := category.ExternalLink(details(data.details)); ok {
		h.recordClick(r, req.CategoryID, uid)
		metrics.CategoryViewsTotal.WithLabelValues(metrics.OutcomeLink).Inc()
		h.redirect(w, r, isAPI, link)
		return
	}

	payload := h.buildPayload(req, r.URL.Query(), pre, data)

	if category.IsAuthenticated(uid) {
		h.markRead(ctx, req.CategoryID, uid)
	}
	metrics.CategoryViewsTotal.WithLabelValues(out.Kind.String()).Inc()

	if isAPI {
		writeJSON(w, http.StatusOK, payload)
		return
	}
	render(w, http.StatusOK, "category.html", categoryPage{
		BasePage: h.basePage(r),
		Category: payload,
	})
}

// loadPreResolve reads the summary, privileges, settings and feed token concurrently.
func (h *CategoryHandler) loadPreResolve(ctx context.Context, req category.RequestContext) (preResolve, error) {
	var pre preResolve
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		sum, err := h.categories.GetSummary(gctx, req.CategoryID)
		if errors.Is(err, store.ErrNotFound) {
			return nil // zero Summary resolves to NotFound
		}
		if err != nil {
			return fmt.Errorf("category summary: %w", err)
		}
		pre.summary = category.Summary{Slug: sum.Slug, Disabled: sum.Disabled, TopicCount: sum.TopicCount}
		return nil
	})
	g.Go(func() error {
		p, err := h.privileges.Get(gctx, req.CategoryID, req.UID)
		if err != nil {
			return fmt.Errorf("privileges: %w", err)
		}
		pre.privileges = p
		return nil
	})
	g.Go(func() error {
		st, err := h.users.GetSettings(gctx, req.UID)
		if err != nil {
			return fmt.Errorf("user settings: %w", err)
		}
		sort, _ := category.ParseSortMode(st.CategoryTopicSort)
		pre.settings = category.Settings{
			TopicsPerPage:     st.TopicsPerPage,
			UsePagination:     st.UsePagination,
			CategoryTopicSort: sort,
		}
		return nil
	})
	g.Go(func() error {
		token, err := h.feeds.GetFeedToken(gctx, req.UID)
		if err != nil {
			return fmt.Errorf("feed token: %w", err)
		}
		pre.feedToken = token
		return nil
	})

	return pre, g.Wait()
}

// loadPage reads the category row, its surroundings and the topic window.
func (h *CategoryHandler) loadPage(ctx context.Context, req category.RequestContext, w category.WindowSpec) (pageData, error) {
	data := pageData{tags: tagSlugs(req.Tags)}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		authorUID, err := h.users.GetUIDByUserslug(gctx, req.AuthorSlug)
		if err != nil {
			return fmt.Errorf("author lookup: %w", err)
		}
		data.window = category.NarrowWindow(w, req.CategoryID, authorUID, data.tags)
		tids, err := h.index.Range(gctx, data.window.Set, data.window.Reverse, data.window.Start, data.window.Stop)
		if err != nil {
			return fmt.Errorf("topic window %s: %w", data.window.Set, err)
		}
		data.topics, err = h.topics.GetByIDs(gctx, tids)
		if err != nil {
			return fmt.Errorf("topics: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		c, err := h.categories.GetByID(gctx, req.CategoryID)
		if err != nil {
			return err
		}
		data.details = c
		data.ancestors, err = h.categories.Ancestors(gctx, c.ParentCID)
		if err != nil {
			return fmt.Errorf("ancestors: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		children, err := h.categories.ListChildren(gctx, req.CategoryID)
		if err != nil {
			return fmt.Errorf("children: %w", err)
		}
		data.children = store.Flatten(children)
		cids := make([]int64, 0, len(data.children))
		for _, c := range data.children {
			cids = append(cids, c.CID)
		}
		data.recent, err = h.topics.RecentByCategory(gctx, cids, recentRepliesPerChild)
		if err != nil {
			return fmt.Errorf("recent replies: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		data.tagViews = make([]tagView, 0, len(data.tags))
		for _, slug := range data.tags {
			v := tagView{Slug: slug, Name: slug}
			t, err := h.tags.GetBySlug(gctx, slug)
			switch {
			case err == nil:
				v.Name = t.Name
			case !errors.Is(err, store.ErrNotFound):
				return fmt.Errorf("tag %q: %w", slug, err)
			}
			data.tagViews = append(data.tagViews, v)
		}
		return nil
	})

	return data, g.Wait()
}

func (h *CategoryHandler) buildPayload(req category.RequestContext, query url.Values, pre preResolve, data pageData) categoryPayload {
	ancestors := make([]category.Breadcrumb, 0, len(data.ancestors)+1)
	ancestors = append(ancestors, category.Breadcrumb{Text: h.site.Title, URL: h.site.RelativePath + "/"})
	for _, a := range data.ancestors {
		ancestors = append(ancestors, category.Breadcrumb{
			Text: category.PlainText(a.Name),
			URL:  h.site.RelativePath + "/category/" + a.Slug,
		})
	}

	nav := category.BuildNavigation(h.site, category.NavInput{
		Category:  details(data.details),
		Ancestors: ancestors,
		Window:    data.window,
		Query:     query,
		UID:       req.UID,
		FeedToken: pre.feedToken,
	})

	topics := make([]topicView, 0, len(data.topics))
	for i, t := range data.topics {
		topics = append(topics, viewTopic(t, data.window.Start+i, pre.privileges.Editable))
	}

	children := make([]childView, 0, len(data.children))
	for _, c := range data.children {
		recent := make([]topicView, 0, len(data.recent[c.CID]))
		for i, t := range data.recent[c.CID] {
			recent = append(recent, viewTopic(t, i, pre.privileges.Editable))
		}
		children = append(children, childView{
			CID:          c.CID,
			ParentCID:    c.ParentCID,
			Name:         category.PlainText(c.Name),
			Description:  category.PlainText(c.Description),
			Slug:         c.Slug,
			Link:         c.Link,
			TopicCount:   c.TopicCount,
			RecentTopics: recent,
		})
	}

	sort := pre.settings.CategoryTopicSort
	if req.HasSort {
		sort = req.Sort
	}
	topicIndex := 0
	if req.HasTopicIndex {
		topicIndex = req.TopicIndex
	}

	return categoryPayload{
		CID:             data.details.CID,
		Name:            nav.Title,
		Description:     nav.Description,
		Slug:            data.details.Slug,
		BackgroundImage: data.details.BackgroundImage,
		TopicCount:      data.details.TopicCount,
		Topics:          topics,
		Children:        children,
		TopicIndex:      topicIndex,
		Sort:            sort.String(),
		SelectedTags:    data.tagViews,
		Author:          req.AuthorSlug,
		Privileges:      pre.privileges,
		ShowSelect:      pre.privileges.Editable,
		Title:           nav.Title,
		Breadcrumbs:     nav.Breadcrumbs,
		Pagination:      nav.Pagination,
		MetaTags:        nav.MetaTags,
		LinkTags:        nav.LinkTags,
		RSSFeedURL:      nav.RSSFeedURL,
		DisableRSS:      nav.DisableRSS,
	}
}

// viewTopic converts t for display. Viewers who cannot edit see deleted
// topics as stubs without title or tags.
func viewTopic(t *store.Topic, index int, editable bool) topicView {
	v := topicView{
		Index:      index,
		TID:        t.TID,
		Title:      t.Title,
		Slug:       t.Slug,
		PostCount:  t.PostCount,
		Deleted:    t.Deleted,
		LastPostAt: t.LastPostAt,
		Tags:       t.Tags,
	}
	if v.Tags == nil {
		v.Tags = []string{}
	}
	if t.Deleted && !editable {
		v.Title = deletedTopicTitle
		v.Slug = ""
		v.Tags = []string{}
	}
	return v
}

func details(c *store.Category) category.Details {
	return category.Details{
		CID:             c.CID,
		ParentCID:       c.ParentCID,
		Name:            c.Name,
		Description:     c.Description,
		Slug:            c.Slug,
		BackgroundImage: c.BackgroundImage,
		Link:            c.Link,
	}
}

// tagSlugs normalizes requested tag names to the slugs topic sets are keyed by.
func tagSlugs(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		out = append(out, store.DeriveTagSlug(t))
	}
	return out
}

func (h *CategoryHandler) markRead(ctx context.Context, cid, uid int64) {
	if activity.Send(h.readCh, store.ReadEvent{CID: cid, UID: uid}) {
		return
	}
	metrics.MarkReadErrorsTotal.Inc()
	h.log.WarnContext(ctx, "mark-read queue full, event dropped", "cid", cid, "uid", uid)
}

func (h *CategoryHandler) recordClick(r *http.Request, cid, uid int64) {
	e := store.ClickEvent{
		CategoryID: cid,
		UID:        uid,
		IPHash:     store.HashIP(r.RemoteAddr),
		UserAgent:  r.UserAgent(),
		Referrer:   r.Referer(),
	}
	if activity.Send(h.clickCh, e) {
		return
	}
	metrics.ClicksRecordErrorsTotal.Inc()
	h.log.WarnContext(r.Context(), "click queue full, event dropped", "cid", cid, "uid", uid)
}

// redirect sends HTML clients a 302. API clients get a 308 whose body names
// the location so they can follow it themselves.
func (h *CategoryHandler) redirect(w http.ResponseWriter, r *http.Request, isAPI bool, location string) {
	if isAPI {
		w.Header().Set("Location", location)
		writeJSON(w, http.StatusPermanentRedirect, map[string]string{"redirect": location})
		return
	}
	http.Redirect(w, r, location, http.StatusFound)
}

func (h *CategoryHandler) notFound(w http.ResponseWriter, r *http.Request, isAPI bool) {
	metrics.CategoryViewsTotal.WithLabelValues(category.OutcomeNotFound.String()).Inc()
	if isAPI {
		writeError(w, http.StatusNotFound, "category not found", "not_found")
		return
	}
	render(w, http.StatusNotFound, "404.html", statusPage{BasePage: h.basePage(r), Message: "This category does not exist."})
}

func (h *CategoryHandler) forbidden(w http.ResponseWriter, r *http.Request, isAPI bool) {
	metrics.CategoryViewsTotal.WithLabelValues(category.OutcomeForbidden.String()).Inc()
	if isAPI {
		writeError(w, http.StatusForbidden, "forbidden", "forbidden")
		return
	}
	render(w, http.StatusForbidden, "403.html", statusPage{BasePage: h.basePage(r), Message: "You do not have access to this category."})
}

func (h *CategoryHandler) fail(w http.ResponseWriter, r *http.Request, isAPI bool, err error) {
	metrics.CategoryViewsTotal.WithLabelValues(metrics.OutcomeError).Inc()
	h.log.ErrorContext(r.Context(), "category page failed", "path", r.URL.Path, "error", err)
	if isAPI {
		writeError(w, http.StatusInternalServerError, "internal server error", "internal")
		return
	}
	http.Error(w, "internal server error", http.StatusInternalServerError)
}

func (h *CategoryHandler) basePage(r *http.Request) BasePage {
	return BasePage{
		Theme:        themeFromRequest(r),
		User:         auth.UserFromContext(r.Context()),
		SiteTitle:    h.site.Title,
		RelativePath: h.site.RelativePath,
	}
}
