package cache

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestReadProfileMissingIsNotFound(t *testing.T) {
	c, _, _ := newTestCache(t, Config{})
	if _, err := c.Reader.ReadProfile(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := c.Reader.ReadProfile(context.Background(), ""); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
}

func TestReadByEmailFollowsIndex(t *testing.T) {
	c, _, _ := newTestCache(t, Config{})
	ctx := context.Background()

	if _, err := c.Writer.CreateUserSession(ctx, testSession("77", "88", "someone@example.com")); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	profile, err := c.Reader.ReadByEmail(ctx, "  SomeOne@Example.com ")
	if err != nil {
		t.Fatalf("ReadByEmail failed: %v", err)
	}
	if profile.SessionID != "77" || profile.JTI != "88" {
		t.Fatalf("unexpected profile %+v", profile)
	}

	if _, err := c.Reader.ReadByEmail(ctx, "other@example.com"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown email, got %v", err)
	}
}

func TestReadByEmailRejectsCollision(t *testing.T) {
	c, mr, _ := newTestCache(t, Config{})
	ctx := context.Background()

	if _, err := c.Writer.CreateUserSession(ctx, testSession("1", "2", "owner@example.com")); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	// Simulate a second address hashing to an index that points at the owner.
	mr.HSet(EmailIndexKey("intruder@example.com"), "status", "1")

	if _, err := c.Reader.ReadByEmail(ctx, "intruder@example.com"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected collision to read as not found, got %v", err)
	}
}

func TestReadByEmailDanglingPointer(t *testing.T) {
	c, mr, _ := newTestCache(t, Config{})
	mr.HSet(EmailIndexKey("gone@example.com"), "status", "999")

	if _, err := c.Reader.ReadByEmail(context.Background(), "gone@example.com"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestReadAccessClaimsFromRefresh(t *testing.T) {
	c, _, _ := newTestCache(t, Config{})
	ctx := context.Background()

	if _, err := c.Writer.CreateUserSession(ctx, testSession("10", "20", "claims@example.com")); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	seed, err := c.Reader.ReadAccessClaimsFromRefresh(ctx, "20")
	if err != nil {
		t.Fatalf("ReadAccessClaimsFromRefresh failed: %v", err)
	}
	if seed.Sub != "claims@example.com" || seed.Role != "normal" || seed.SessionID != "10" {
		t.Fatalf("unexpected seed %+v", seed)
	}

	if err := c.Deleter.DeleteRefresh(ctx, "20"); err != nil {
		t.Fatalf("DeleteRefresh failed: %v", err)
	}
	if _, err := c.Reader.ReadAccessClaimsFromRefresh(ctx, "20"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound without refresh record, got %v", err)
	}
}

func TestReadAccessClaimsNeedsLiveSession(t *testing.T) {
	c, mr, _ := newTestCache(t, Config{})
	ctx := context.Background()

	if _, err := c.Writer.CreateUserSession(ctx, testSession("10", "20", "claims@example.com")); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	mr.Del(SessionKey("10"))

	if _, err := c.Reader.ReadAccessClaimsFromRefresh(ctx, "20"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound without session, got %v", err)
	}
}

func TestReadRefreshExistsExpires(t *testing.T) {
	c, mr, _ := newTestCache(t, Config{})
	ctx := context.Background()

	if err := c.Writer.CreateRefreshRecord(ctx, RefreshRecord{JTI: "j", SessionID: "s", TTL: 10 * time.Second}); err != nil {
		t.Fatalf("CreateRefreshRecord failed: %v", err)
	}
	key, err := c.Reader.ReadRefreshExists(ctx, "j")
	if err != nil || key != RefreshKey("j") {
		t.Fatalf("expected %s, got %q (%v)", RefreshKey("j"), key, err)
	}

	mr.FastForward(11 * time.Second)
	if _, err := c.Reader.ReadRefreshExists(ctx, "j"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected expiry, got %v", err)
	}
}

func TestReadInactiveListSpansPages(t *testing.T) {
	c, _, _ := newTestCache(t, Config{ScanCount: 2})
	ctx := context.Background()

	for i, sid := range []string{"a1", "a2", "a3", "a4", "a5"} {
		jti := "j" + sid
		if _, err := c.Writer.CreateUserSession(ctx, testSession(sid, jti, sid+"@example.com")); err != nil {
			t.Fatalf("create %d failed: %v", i, err)
		}
		if _, err := c.Updater.MarkInactive(ctx, sid); err != nil {
			t.Fatalf("mark %d failed: %v", i, err)
		}
	}

	keys, err := c.Reader.ReadInactiveList(ctx)
	if err != nil {
		t.Fatalf("ReadInactiveList failed: %v", err)
	}
	if len(keys) != 5*4 {
		t.Fatalf("expected 20 keys, got %d: %v", len(keys), keys)
	}
	seen := map[string]bool{}
	for _, k := range keys {
		seen[k] = true
	}
	for _, want := range []string{InactiveKey("a3"), SessionKey("a3"), RateKey("a3"), RefreshKey("ja3")} {
		if !seen[want] {
			t.Fatalf("missing %s in %v", want, keys)
		}
	}
}

func TestReadInactiveListEmpty(t *testing.T) {
	c, _, _ := newTestCache(t, Config{})
	keys, err := c.Reader.ReadInactiveList(context.Background())
	if err != nil {
		t.Fatalf("ReadInactiveList failed: %v", err)
	}
	if len(keys) != 0 {
		t.Fatalf("expected empty list, got %v", keys)
	}
}

func TestTransientReadFailureStopsAfterTwoAttempts(t *testing.T) {
	c, _, rdb := newTestCache(t, Config{})
	hook := newCmdHook()
	rdb.AddHook(hook)
	hook.failWith("hgetall", errors.New("read tcp: i/o timeout"))

	_, err := c.Reader.ReadProfile(context.Background(), "s1")
	if !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
	if got := hook.count("hgetall"); got != 2 {
		t.Fatalf("expected exactly 2 attempts, got %d", got)
	}
}
