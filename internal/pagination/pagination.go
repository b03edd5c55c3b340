// Package pagination builds the page selector and rel links shown under a
// paged topic list.
package pagination

import (
	"net/url"
	"sort"
	"strconv"
)

// PageLink points at a single page.
type PageLink struct {
	Page   int    `json:"page"`
	Active bool   `json:"active"`
	QS     string `json:"qs"`
}

// Item is one entry of the page selector. Separator entries stand in for a
// run of skipped pages and carry no page number.
type Item struct {
	Page      int    `json:"page,omitempty"`
	Active    bool   `json:"active"`
	Separator bool   `json:"separator,omitempty"`
	QS        string `json:"qs,omitempty"`
}

// Rel is a relative navigation link. Href is a query string ("?page=N")
// that the caller joins with the page's absolute base URL.
type Rel struct {
	Rel  string `json:"rel"`
	Href string `json:"href"`
}

// Pagination is the full selector for one page of a list.
type Pagination struct {
	Prev        PageLink `json:"prev"`
	Next        PageLink `json:"next"`
	First       PageLink `json:"first"`
	Last        PageLink `json:"last"`
	Rel         []Rel    `json:"rel"`
	Pages       []Item   `json:"pages"`
	CurrentPage int      `json:"currentPage"`
	PageCount   int      `json:"pageCount"`
}

// Create builds the selector for currentPage of pageCount. Every link keeps
// the other parameters of query (filters, sort) and only swaps the page.
func Create(currentPage, pageCount int, query url.Values) Pagination {
	p := Pagination{
		Rel:         []Rel{},
		Pages:       []Item{},
		CurrentPage: currentPage,
		PageCount:   pageCount,
	}

	if pageCount <= 1 {
		p.Prev = PageLink{Page: 1, Active: currentPage > 1}
		p.Next = PageLink{Page: 1, Active: currentPage < pageCount}
		p.First = PageLink{Page: 1, Active: currentPage == 1}
		p.Last = PageLink{Page: 1, Active: currentPage == pageCount}
		return p
	}

	previous := max(1, currentPage-1)
	next := min(pageCount, currentPage+1)

	startPage := max(1, currentPage-2)
	if startPage > pageCount-5 {
		startPage -= 2 - (pageCount - currentPage)
	}

	candidates := []int{1, 2, pageCount - 1, pageCount}
	for i := 0; i < 5; i++ {
		candidates = append(candidates, startPage+i)
	}

	seen := make(map[int]bool, len(candidates))
	pages := make([]int, 0, len(candidates))
	for _, n := range candidates {
		if n < 1 || n > pageCount || seen[n] {
			continue
		}
		seen[n] = true
		pages = append(pages, n)
	}
	sort.Ints(pages)

	items := make([]Item, 0, len(pages)+2)
	for i, n := range pages {
		if i > 0 {
			prevPage := pages[i-1]
			switch {
			case n-2 == prevPage:
				items = append(items, Item{Page: n - 1, QS: withPage(query, n-1)})
			case n-1 != prevPage:
				items = append(items, Item{Separator: true})
			}
		}
		items = append(items, Item{Page: n, Active: n == currentPage, QS: withPage(query, n)})
	}
	p.Pages = items

	p.Prev = PageLink{Page: previous, Active: currentPage > 1, QS: withPage(query, previous)}
	p.Next = PageLink{Page: next, Active: currentPage < pageCount, QS: withPage(query, next)}
	p.First = PageLink{Page: 1, Active: currentPage == 1, QS: withPage(query, 1)}
	p.Last = PageLink{Page: pageCount, Active: currentPage == pageCount, QS: withPage(query, pageCount)}

	if currentPage < pageCount {
		p.Rel = append(p.Rel, Rel{Rel: "next", Href: "?" + withPage(query, next)})
	}
	if currentPage > 1 {
		p.Rel = append(p.Rel, Rel{Rel: "prev", Href: "?" + withPage(query, previous)})
	}
	return p
}

// withPage encodes query with page replaced by n. The input is not modified.
func withPage(query url.Values, n int) string {
	q := make(url.Values, len(query)+1)
	for k, v := range query {
		if k == "page" {
			continue
		}
		q[k] = append([]string(nil), v...)
	}
	q.Set("page", strconv.Itoa(n))
	return q.Encode()
}
