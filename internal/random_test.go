package internal

import (
	"strings"
	"testing"
)

func TestIDsAreUniqueAndParse(t *testing.T) {
	ids, err := NewIDs(1)
	if err != nil {
		t.Fatalf("NewIDs failed: %v", err)
	}

	seen := make(map[string]struct{}, 1000)
	for i := 0; i < 1000; i++ {
		id := ids.SessionID()
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate id %s", id)
		}
		seen[id] = struct{}{}
		if _, err := ParseID(id); err != nil {
			t.Fatalf("ParseID(%s) failed: %v", id, err)
		}
	}
}

func TestParseIDRejectsGarbage(t *testing.T) {
	for _, in := range []string{"", "abc", "-5", "0"} {
		if _, err := ParseID(in); err == nil {
			t.Fatalf("expected error for %q", in)
		}
	}
}

func TestNewIDsRejectsOutOfRangeNode(t *testing.T) {
	if _, err := NewIDs(1 << 12); err == nil {
		t.Fatal("expected error for node id beyond snowflake range")
	}
}

func TestMagicLinkTokenShape(t *testing.T) {
	a, err := NewMagicLinkToken()
	if err != nil {
		t.Fatalf("NewMagicLinkToken failed: %v", err)
	}
	b, _ := NewMagicLinkToken()
	if a == b {
		t.Fatal("tokens must differ")
	}
	if !strings.Contains(a, ".") || len(a) < 36+1+40 {
		t.Fatalf("unexpected token shape %q", a)
	}
}

func TestFormatID(t *testing.T) {
	if got := FormatID(42); got != "42" {
		t.Fatalf("expected 42, got %s", got)
	}
}
