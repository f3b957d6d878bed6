package profile

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"
)

var ErrNotFound = errors.New("profile not found")

// Record is the durable copy of one account. Blob is the same sealed value
// the session hash carries.
type Record struct {
	Email     string    `bson:"email"`
	SessionID string    `bson:"session_id"`
	Role      string    `bson:"role"`
	Blob      string    `bson:"info"`
	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// Store is the write-through boundary for profiles. Implementations must
// treat Email as the unique key.
type Store interface {
	Upsert(ctx context.Context, rec Record) error
	FindByEmail(ctx context.Context, email string) (Record, error)
	Delete(ctx context.Context, email string) error
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// MemoryStore keeps records in process memory.
type MemoryStore struct {
	mu   sync.RWMutex
	recs map[string]Record
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{recs: map[string]Record{}}
}

func (m *MemoryStore) Upsert(_ context.Context, rec Record) error {
	key := normalizeEmail(rec.Email)
	if key == "" {
		return errors.New("email required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UTC()
	if prev, ok := m.recs[key]; ok {
		rec.CreatedAt = prev.CreatedAt
	} else if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.Email = key
	rec.UpdatedAt = now
	m.recs[key] = rec
	return nil
}

func (m *MemoryStore) FindByEmail(_ context.Context, email string) (Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.recs[normalizeEmail(email)]
	if !ok {
		return Record{}, ErrNotFound
	}
	return rec, nil
}

func (m *MemoryStore) Delete(_ context.Context, email string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.recs, normalizeEmail(email))
	return nil
}

// Len reports how many records are held.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.recs)
}
