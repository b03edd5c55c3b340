package auth_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/joestump/joe-forum/internal/auth"
	"github.com/joestump/joe-forum/internal/store"
)

func newAPITokenEnv(t *testing.T) (*auth.APITokenStore, *sqlx.DB) {
	t.Helper()
	db := setupTestDBWithUser(t, 7, "alice")
	return auth.NewAPITokenStore(db), db
}

func expireToken(t *testing.T, db *sqlx.DB, id string) {
	t.Helper()
	_, err := db.Exec(db.Rebind(`UPDATE api_tokens SET expires_at = ? WHERE id = ?`), time.Now().UTC().Add(-time.Minute), id)
	if err != nil {
		t.Fatalf("expire token: %v", err)
	}
}

func TestAPITokenStore_IssueAndResolve(t *testing.T) {
	tokens, _ := newAPITokenEnv(t)
	ctx := context.Background()

	bearer, issued, err := tokens.Issue(ctx, 7, "feed reader", 0)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if !strings.HasPrefix(bearer, "jf_") || len(bearer) < 40 {
		t.Errorf("bearer = %q", bearer)
	}
	if issued.Hash == bearer || strings.Contains(issued.Hash, bearer) {
		t.Error("bearer value stored in clear")
	}
	if issued.ExpiresAt.Valid {
		t.Error("zero ttl produced an expiry")
	}

	got, err := tokens.Resolve(ctx, bearer)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got.ID != issued.ID || got.UID != 7 || got.Name != "feed reader" {
		t.Errorf("resolved %+v, issued %+v", got, issued)
	}
}

func TestAPITokenStore_ResolveRejects(t *testing.T) {
	tokens, db := newAPITokenEnv(t)
	ctx := context.Background()

	revoked, tok, err := tokens.Issue(ctx, 7, "old laptop", 0)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if err := tokens.Revoke(ctx, 7, tok.ID); err != nil {
		t.Fatalf("Revoke: %v", err)
	}

	expired, tok, err := tokens.Issue(ctx, 7, "short lived", time.Hour)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if !tok.ExpiresAt.Valid {
		t.Fatal("ttl produced no expiry")
	}
	if _, err := tokens.Resolve(ctx, expired); err != nil {
		t.Fatalf("Resolve before expiry: %v", err)
	}
	expireToken(t, db, tok.ID)

	for name, bearer := range map[string]string{
		"revoked":        revoked,
		"expired":        expired,
		"unknown":        "jf_doesnotexist",
		"missing prefix": strings.TrimPrefix(revoked, "jf_"),
		"empty":          "",
	} {
		if _, err := tokens.Resolve(ctx, bearer); !errors.Is(err, auth.ErrTokenInvalid) {
			t.Errorf("%s: err = %v, want ErrTokenInvalid", name, err)
		}
	}
}

func TestAPITokenStore_RevokeIsScopedToOwner(t *testing.T) {
	tokens, _ := newAPITokenEnv(t)
	ctx := context.Background()

	_, tok, err := tokens.Issue(ctx, 7, "ci", 0)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if err := tokens.Revoke(ctx, 8, tok.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Revoke by another uid err = %v, want ErrNotFound", err)
	}
	if err := tokens.Revoke(ctx, 7, tok.ID); err != nil {
		t.Fatalf("Revoke: %v", err)
	}
	if err := tokens.Revoke(ctx, 7, tok.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("second Revoke err = %v, want ErrNotFound", err)
	}
}

func TestAPITokenStore_ListByUID(t *testing.T) {
	tokens, _ := newAPITokenEnv(t)
	ctx := context.Background()

	for _, issue := range []struct {
		uid  int64
		name string
	}{{7, "laptop"}, {7, "phone"}, {8, "someone else"}} {
		if _, _, err := tokens.Issue(ctx, issue.uid, issue.name, 0); err != nil {
			t.Fatalf("Issue %s: %v", issue.name, err)
		}
	}

	got, err := tokens.ListByUID(ctx, 7)
	if err != nil {
		t.Fatalf("ListByUID: %v", err)
	}
	names := map[string]bool{}
	for _, tok := range got {
		if tok.UID != 7 {
			t.Errorf("listed token of uid %d", tok.UID)
		}
		names[tok.Name] = true
	}
	if len(got) != 2 || !names["laptop"] || !names["phone"] {
		t.Errorf("ListByUID(7) = %d tokens %v", len(got), names)
	}

	none, err := tokens.ListByUID(ctx, 99)
	if err != nil || len(none) != 0 {
		t.Errorf("ListByUID(99) = %v, %v; want none", none, err)
	}
}

func TestAPITokenStore_Touch(t *testing.T) {
	tokens, _ := newAPITokenEnv(t)
	ctx := context.Background()

	bearer, tok, err := tokens.Issue(ctx, 7, "ci", 0)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if tok.LastUsedAt.Valid {
		t.Error("fresh token has last_used_at")
	}
	if err := tokens.Touch(ctx, tok.ID); err != nil {
		t.Fatalf("Touch: %v", err)
	}
	got, err := tokens.Resolve(ctx, bearer)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !got.LastUsedAt.Valid {
		t.Error("Touch did not record last_used_at")
	}
}
