package store_test

import (
	"context"
	"strings"
	"testing"

	"github.com/joestump/joe-forum/internal/store"
)

func TestRecordClick(t *testing.T) {
	env := newStoreEnv(t)
	ctx := context.Background()
	env.seedCategory(t, &store.Category{CID: 1, Name: "Docs", Link: "https://docs.example.com"})

	events := []store.ClickEvent{
		{CategoryID: 1, UID: 4, IPHash: "abc", UserAgent: "TestBrowser/1.0", Referrer: "https://ref.example.com"},
		{CategoryID: 1, IPHash: "anon", UserAgent: strings.Repeat("A", 600), Referrer: strings.Repeat("r", 3000)},
	}
	for _, e := range events {
		if err := env.clicks.RecordClick(ctx, e); err != nil {
			t.Fatalf("RecordClick: %v", err)
		}
	}

	n, err := env.clicks.CountClicks(ctx, 1)
	if err != nil {
		t.Fatalf("CountClicks: %v", err)
	}
	if n != 2 {
		t.Errorf("clicks = %d, want 2", n)
	}

	c, err := env.categories.GetByID(ctx, 1)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if c.TimesClicked != 2 {
		t.Errorf("times_clicked = %d, want 2", c.TimesClicked)
	}

	var ua string
	if err := env.db.Get(&ua, `SELECT user_agent FROM category_clicks WHERE ip_hash = 'anon'`); err != nil {
		t.Fatalf("select user_agent: %v", err)
	}
	if len(ua) != 512 {
		t.Errorf("user_agent length = %d, want 512", len(ua))
	}
}

func TestHashIP(t *testing.T) {
	a, b := store.HashIP("10.0.0.1"), store.HashIP("10.0.0.2")
	if len(a) != 64 {
		t.Errorf("hash length = %d, want 64", len(a))
	}
	if a == b {
		t.Error("different IPs hashed equal")
	}
	if a != store.HashIP("10.0.0.1") {
		t.Error("hash not stable within a day")
	}
}
