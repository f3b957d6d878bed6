package authcache

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestMagicLinkRoundTrip(t *testing.T) {
	box := newMailbox()
	engine, _, _ := newTestEngine(t, testConfig(), withSender(box))
	ctx := context.Background()

	sess := signupAlice(t, engine)
	if err := engine.RequestMagicLink(ctx, "alice@example.com"); err != nil {
		t.Fatalf("RequestMagicLink failed: %v", err)
	}
	token := box.last("alice@example.com")
	if token == "" {
		t.Fatal("expected a delivered token")
	}
	if strings.Contains(token, "alice") {
		t.Fatal("token must not carry the email in clear")
	}

	got, err := engine.ConsumeMagicLink(ctx, token)
	if err != nil {
		t.Fatalf("ConsumeMagicLink failed: %v", err)
	}
	if got.SessionID != sess.SessionID || !got.Reissued {
		t.Fatalf("expected the cached session to be reissued, got %+v", got)
	}

	if _, err := engine.ConsumeMagicLink(ctx, token); !errors.Is(err, ErrMagicLinkInvalid) {
		t.Fatalf("expected single use, got %v", err)
	}

	snap := engine.MetricsSnapshot()
	if snap.Counters[MetricMagicLinkRequested] != 1 || snap.Counters[MetricMagicLinkConsumed] != 1 {
		t.Fatalf("unexpected counters: %+v", snap.Counters)
	}
	if snap.Counters[MetricMagicLinkInvalid] != 1 {
		t.Fatalf("expected one invalid consume, got %d", snap.Counters[MetricMagicLinkInvalid])
	}
}

func TestMagicLinkUnknownEmailIsSilent(t *testing.T) {
	box := newMailbox()
	engine, mr, _ := newTestEngine(t, testConfig(), withSender(box))

	if err := engine.RequestMagicLink(context.Background(), "ghost@example.com"); err != nil {
		t.Fatalf("expected nil for unknown email, got %v", err)
	}
	if box.last("ghost@example.com") != "" {
		t.Fatal("nothing should be sent to an unknown email")
	}
	if len(mr.Keys()) != 0 {
		t.Fatalf("unknown email left keys behind: %v", mr.Keys())
	}
	if got := engine.MetricsSnapshot().Counters[MetricMagicLinkUnknownEmail]; got != 1 {
		t.Fatalf("expected unknown email counter 1, got %d", got)
	}
}

func TestMagicLinkRejectsTamperedTokens(t *testing.T) {
	box := newMailbox()
	engine, _, _ := newTestEngine(t, testConfig(), withSender(box))
	ctx := context.Background()

	signupAlice(t, engine)
	if err := engine.RequestMagicLink(ctx, "alice@example.com"); err != nil {
		t.Fatalf("RequestMagicLink failed: %v", err)
	}
	token := box.last("alice@example.com")
	cut := strings.LastIndexByte(token, '.')

	bad := []string{
		"",
		"no-dot-at-all",
		token[:cut],
		token[:cut] + ".AAAA",
		"other" + token[cut:],
	}
	for _, tok := range bad {
		if _, err := engine.ConsumeMagicLink(ctx, tok); !errors.Is(err, ErrMagicLinkInvalid) {
			t.Fatalf("ConsumeMagicLink(%q): expected ErrMagicLinkInvalid, got %v", tok, err)
		}
	}

	// the genuine token is still redeemable
	if _, err := engine.ConsumeMagicLink(ctx, token); err != nil {
		t.Fatalf("genuine token rejected: %v", err)
	}
}

func TestMagicLinkDeliveryFailureDropsToken(t *testing.T) {
	box := newMailbox()
	box.err = errors.New("smtp down")
	engine, mr, _ := newTestEngine(t, testConfig(), withSender(box))
	ctx := context.Background()

	signupAlice(t, engine)
	before := len(mr.Keys())
	if err := engine.RequestMagicLink(ctx, "alice@example.com"); err == nil || !strings.Contains(err.Error(), "smtp down") {
		t.Fatalf("expected delivery error, got %v", err)
	}
	if after := len(mr.Keys()); after != before {
		t.Fatalf("undelivered token left in store: %d keys before, %d after", before, after)
	}
}

func TestMagicLinkConfiguration(t *testing.T) {
	ctx := context.Background()

	engine, _, _ := newTestEngine(t, testConfig())
	if err := engine.RequestMagicLink(ctx, "alice@example.com"); !errors.Is(err, ErrSenderRequired) {
		t.Fatalf("expected ErrSenderRequired, got %v", err)
	}

	cfg := testConfig()
	cfg.MagicLink.Enabled = false
	disabled, _, _ := newTestEngine(t, cfg, withSender(newMailbox()))
	if err := disabled.RequestMagicLink(ctx, "alice@example.com"); !errors.Is(err, ErrMagicLinkDisabled) {
		t.Fatalf("expected ErrMagicLinkDisabled, got %v", err)
	}
	if _, err := disabled.ConsumeMagicLink(ctx, "a.b"); !errors.Is(err, ErrMagicLinkDisabled) {
		t.Fatalf("expected ErrMagicLinkDisabled, got %v", err)
	}
}
