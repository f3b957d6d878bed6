package cache

import (
	"context"
	"errors"
	"testing"
)

func TestScriptsRecoverFromFlushedScriptCache(t *testing.T) {
	c, _, rdb := newTestCache(t, Config{})
	ctx := context.Background()

	if _, err := c.Writer.CreateUserSession(ctx, testSession("1", "2", "flush@example.com")); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if err := rdb.ScriptFlush(ctx).Err(); err != nil {
		t.Fatalf("SCRIPT FLUSH failed: %v", err)
	}

	hook := newCmdHook()
	rdb.AddHook(hook)

	d, err := c.Writer.CheckAndIncrementRate(ctx, RateCheck{SessionID: "1", JTI: "2"})
	if err != nil {
		t.Fatalf("check after flush failed: %v", err)
	}
	if !d.Allowed || d.Count != 2 {
		t.Fatalf("unexpected decision %+v", d)
	}
	if got := hook.count("evalsha"); got != 2 {
		t.Fatalf("expected evalsha, load, evalsha; got %d evalsha", got)
	}
	if got := hook.count("script"); got != 1 {
		t.Fatalf("expected one SCRIPT LOAD, got %d", got)
	}
}

func TestPersistentNoScriptIsFatal(t *testing.T) {
	c, _, rdb := newTestCache(t, Config{})
	hook := newCmdHook()
	rdb.AddHook(hook)
	hook.failWith("evalsha", replyError("NOSCRIPT No matching script. Please use EVAL."))

	_, err := c.Updater.UpdateField(context.Background(), "1", "role", "x")
	if !errors.Is(err, ErrScriptMissing) {
		t.Fatalf("expected ErrScriptMissing, got %v", err)
	}
	if got := hook.count("evalsha"); got != 2 {
		t.Fatalf("expected one retry after re-registering, got %d evalsha", got)
	}
	if got := hook.count("script"); got != 1 {
		t.Fatalf("expected one SCRIPT LOAD, got %d", got)
	}
}

func TestKeyScheme(t *testing.T) {
	if RefreshKey("7") != "re:7" || RateKey("42") != "ra:42" || SessionKey("42") != "s:42" {
		t.Fatal("unexpected key scheme")
	}
	k := EmailIndexKey("User@Example.com ")
	if len(k) != 8 || k != EmailIndexKey("user@example.com") {
		t.Fatalf("unexpected email index key %q", k)
	}
}
