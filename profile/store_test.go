package profile

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"
)

func TestMemoryStoreUpsertKeepsCreatedAt(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	created := time.Unix(1700000000, 0).UTC()

	if err := s.Upsert(ctx, Record{Email: "A@Example.com", SessionID: "1", Blob: "x", CreatedAt: created}); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	if err := s.Upsert(ctx, Record{Email: "a@example.com", SessionID: "2", Blob: "y"}); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	rec, err := s.FindByEmail(ctx, " a@EXAMPLE.com")
	if err != nil {
		t.Fatalf("FindByEmail failed: %v", err)
	}
	if rec.SessionID != "2" || rec.Blob != "y" || !rec.CreatedAt.Equal(created) {
		t.Fatalf("unexpected record %+v", rec)
	}
	if s.Len() != 1 {
		t.Fatalf("expected 1 record, got %d", s.Len())
	}

	if err := s.Delete(ctx, "a@example.com"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := s.FindByEmail(ctx, "a@example.com"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

// TestMongoStoreRoundTrip runs against a real server when MONGO_URI is set.
func TestMongoStoreRoundTrip(t *testing.T) {
	uri := os.Getenv("MONGO_URI")
	if uri == "" {
		t.Skip("MONGO_URI not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	s, err := OpenMongo(ctx, MongoOptions{URI: uri, Database: "authcache_test", Collection: "profiles_" + time.Now().Format("150405")})
	if err != nil {
		t.Fatalf("OpenMongo failed: %v", err)
	}
	t.Cleanup(func() {
		_ = s.coll.Drop(context.Background())
		_ = s.Close(context.Background())
	})

	if err := s.Upsert(ctx, Record{Email: "m@example.com", SessionID: "1", Role: "normal", Blob: "b"}); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	if err := s.Upsert(ctx, Record{Email: "M@example.com", SessionID: "2", Role: "admin", Blob: "c"}); err != nil {
		t.Fatalf("second Upsert failed: %v", err)
	}
	rec, err := s.FindByEmail(ctx, "m@example.com")
	if err != nil {
		t.Fatalf("FindByEmail failed: %v", err)
	}
	if rec.SessionID != "2" || rec.Role != "admin" || rec.Blob != "c" {
		t.Fatalf("unexpected record %+v", rec)
	}
	if err := s.Delete(ctx, "m@example.com"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := s.FindByEmail(ctx, "m@example.com"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
