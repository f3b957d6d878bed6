package seal

import (
	"errors"
	"testing"
)

func TestSealOpenRoundTrip(t *testing.T) {
	box, err := New([]byte("unit-test-secret"))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	sealed, err := box.Seal("1820374651234")
	if err != nil {
		t.Fatalf("Seal failed: %v", err)
	}
	if sealed == "1820374651234" {
		t.Fatal("sealed value must not equal plaintext")
	}

	got, err := box.Open(sealed)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if got != "1820374651234" {
		t.Fatalf("expected round trip, got %q", got)
	}
}

func TestOpenRejectsOtherKeyAndGarbage(t *testing.T) {
	a, _ := New([]byte("key-a"))
	b, _ := New([]byte("key-b"))

	sealed, err := a.Seal("jti")
	if err != nil {
		t.Fatalf("Seal failed: %v", err)
	}
	if _, err := b.Open(sealed); !errors.Is(err, ErrOpen) {
		t.Fatalf("expected ErrOpen for wrong key, got %v", err)
	}
	if _, err := a.Open("not base64 !!"); !errors.Is(err, ErrOpen) {
		t.Fatalf("expected ErrOpen for garbage, got %v", err)
	}
	if _, err := a.Open("AAAA"); !errors.Is(err, ErrOpen) {
		t.Fatalf("expected ErrOpen for short input, got %v", err)
	}
}

func TestNewRequiresSecret(t *testing.T) {
	if _, err := New(nil); !errors.Is(err, ErrKeyRequired) {
		t.Fatalf("expected ErrKeyRequired, got %v", err)
	}
}
