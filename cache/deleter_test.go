package cache

import (
	"context"
	"errors"
	"testing"
)

func TestRevokeRemovesAllStateAndIsIdempotent(t *testing.T) {
	c, mr, _ := newTestCache(t, Config{})
	ctx := context.Background()

	if _, err := c.Writer.CreateUserSession(ctx, testSession("11", "12", "bye@example.com")); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	removed, err := c.Deleter.Revoke(ctx, RevokeRequest{JTI: "12", SessionID: "11", Email: "bye@example.com"})
	if err != nil {
		t.Fatalf("Revoke failed: %v", err)
	}
	if removed != 3 {
		t.Fatalf("expected 3 keys removed, got %d", removed)
	}

	if _, err := c.Reader.ReadProfile(ctx, "11"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("profile: expected ErrNotFound, got %v", err)
	}
	if _, err := c.Reader.ReadRefreshExists(ctx, "12"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("refresh: expected ErrNotFound, got %v", err)
	}
	if _, err := c.Reader.ReadRateCount(ctx, "11"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("rate: expected ErrNotFound, got %v", err)
	}
	if mr.Exists(EmailIndexKey("bye@example.com")) {
		t.Fatal("expected email index removed")
	}

	removed, err = c.Deleter.Revoke(ctx, RevokeRequest{JTI: "12", SessionID: "11"})
	if err != nil || removed != 0 {
		t.Fatalf("second revoke: removed=%d err=%v", removed, err)
	}
}

func TestRevokeKeepsIndexOwnedByNewerSession(t *testing.T) {
	c, mr, _ := newTestCache(t, Config{})
	ctx := context.Background()

	if _, err := c.Writer.CreateUserSession(ctx, testSession("1", "2", "same@example.com")); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if _, err := c.Writer.CreateUserSession(ctx, testSession("3", "4", "same@example.com")); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if _, err := c.Deleter.Revoke(ctx, RevokeRequest{JTI: "2", SessionID: "1", Email: "same@example.com"}); err != nil {
		t.Fatalf("Revoke failed: %v", err)
	}
	if got := mr.HGet(EmailIndexKey("same@example.com"), "status"); got != "3" {
		t.Fatalf("index must still point at session 3, got %q", got)
	}
}

func TestReapInactiveRemovesOnlyInactiveSessions(t *testing.T) {
	c, mr, _ := newTestCache(t, Config{})
	ctx := context.Background()

	if _, err := c.Writer.CreateUserSession(ctx, testSession("on1", "jon1", "on@example.com")); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if _, err := c.Writer.CreateUserSession(ctx, testSession("off1", "joff1", "off@example.com")); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if ok, err := c.Updater.MarkInactive(ctx, "off1"); err != nil || !ok {
		t.Fatalf("MarkInactive: %v (%v)", ok, err)
	}

	removed, err := c.Deleter.ReapInactive(ctx)
	if err != nil {
		t.Fatalf("ReapInactive failed: %v", err)
	}
	if removed != 4 {
		t.Fatalf("expected 4 keys removed, got %d", removed)
	}
	for _, key := range []string{InactiveKey("off1"), SessionKey("off1"), RateKey("off1"), RefreshKey("joff1")} {
		if mr.Exists(key) {
			t.Fatalf("expected %s reaped", key)
		}
	}
	if _, err := c.Reader.ReadProfile(ctx, "on1"); err != nil {
		t.Fatalf("active session must survive reaping: %v", err)
	}
}

func TestReapInactiveIssuesNoDeleteWhenEmpty(t *testing.T) {
	c, _, rdb := newTestCache(t, Config{})
	ctx := context.Background()

	if _, err := c.Writer.CreateUserSession(ctx, testSession("1", "2", "keep@example.com")); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	hook := newCmdHook()
	rdb.AddHook(hook)

	removed, err := c.Deleter.ReapInactive(ctx)
	if err != nil {
		t.Fatalf("ReapInactive failed: %v", err)
	}
	if removed != 0 {
		t.Fatalf("expected nothing removed, got %d", removed)
	}
	if got := hook.count("del"); got != 0 {
		t.Fatalf("expected zero DEL calls, got %d", got)
	}
	if _, err := c.Reader.ReadProfile(ctx, "1"); err != nil {
		t.Fatalf("session must survive: %v", err)
	}
}

func TestDeleteRefreshLeavesSession(t *testing.T) {
	c, _, _ := newTestCache(t, Config{})
	ctx := context.Background()

	if _, err := c.Writer.CreateUserSession(ctx, testSession("1", "2", "keep@example.com")); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if err := c.Deleter.DeleteRefresh(ctx, "2"); err != nil {
		t.Fatalf("DeleteRefresh failed: %v", err)
	}
	if _, err := c.Reader.ReadRefreshExists(ctx, "2"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected refresh gone, got %v", err)
	}
	if _, err := c.Reader.ReadProfile(ctx, "1"); err != nil {
		t.Fatalf("session must survive: %v", err)
	}
}
