package pagination

import (
	"net/url"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func pageNumbers(p Pagination) []int {
	var out []int
	for _, it := range p.Pages {
		if it.Separator {
			out = append(out, -1)
			continue
		}
		out = append(out, it.Page)
	}
	return out
}

func TestCreate_SinglePage(t *testing.T) {
	p := Create(1, 1, nil)
	if len(p.Pages) != 0 || len(p.Rel) != 0 {
		t.Errorf("single page produced pages=%v rel=%v", p.Pages, p.Rel)
	}
	if p.Prev.Active || p.Next.Active {
		t.Errorf("prev/next active on single page: %+v %+v", p.Prev, p.Next)
	}
}

func TestCreate_PageWindow(t *testing.T) {
	tests := []struct {
		current, count int
		want           []int // -1 marks a separator
	}{
		{1, 10, []int{1, 2, 3, 4, 5, -1, 9, 10}},
		{10, 10, []int{1, 2, -1, 6, 7, 8, 9, 10}},
		{5, 10, []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}},
		{5, 7, []int{1, 2, 3, 4, 5, 6, 7}},
		{2, 3, []int{1, 2, 3}},
		{20, 40, []int{1, 2, -1, 18, 19, 20, 21, 22, -1, 39, 40}},
	}
	for _, tt := range tests {
		got := pageNumbers(Create(tt.current, tt.count, nil))
		if diff := cmp.Diff(tt.want, got); diff != "" {
			t.Errorf("Create(%d, %d) pages (-want +got):\n%s", tt.current, tt.count, diff)
		}
	}
}

func TestCreate_GapOfOneIsFilled(t *testing.T) {
	// 1,2 then 4.. leaves a single hole at 3 which is shown, not elided.
	got := pageNumbers(Create(6, 12, nil))
	want := []int{1, 2, 3, 4, 5, 6, 7, 8, -1, 11, 12}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("pages (-want +got):\n%s", diff)
	}
}

func TestCreate_RelLinksKeepQuery(t *testing.T) {
	q := url.Values{"sort": {"most_posts"}, "page": {"2"}}
	p := Create(2, 3, q)

	want := []Rel{
		{Rel: "next", Href: "?page=3&sort=most_posts"},
		{Rel: "prev", Href: "?page=1&sort=most_posts"},
	}
	if diff := cmp.Diff(want, p.Rel); diff != "" {
		t.Errorf("rel (-want +got):\n%s", diff)
	}
	if q.Get("page") != "2" {
		t.Error("input query was modified")
	}
}

func TestCreate_Edges(t *testing.T) {
	first := Create(1, 4, nil)
	if len(first.Rel) != 1 || first.Rel[0].Rel != "next" {
		t.Errorf("first page rel = %+v", first.Rel)
	}
	if first.Prev.Active || !first.Next.Active || !first.First.Active {
		t.Errorf("first page links = prev %+v next %+v", first.Prev, first.Next)
	}

	last := Create(4, 4, nil)
	if len(last.Rel) != 1 || last.Rel[0].Rel != "prev" {
		t.Errorf("last page rel = %+v", last.Rel)
	}
	if !last.Last.Active || last.Next.Page != 4 {
		t.Errorf("last page links = next %+v last %+v", last.Next, last.Last)
	}
}
