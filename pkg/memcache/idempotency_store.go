package mem

import (
	"context"
	"sync"
	"time"
)

const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
)

type IdempotencyRecord struct {
	RequestHash string `json:"request_hash"`
	Status      string `json:"status"`
	Response    []byte `json:"response,omitempty"`
}

type IdempotencyStore interface {
	// Begin claims key for a request. When the key is already held it returns
	// the existing record and false.
	Begin(ctx context.Context, key, requestHash string, ttl time.Duration) (*IdempotencyRecord, bool, error)
	// Complete stores the response for a claimed key.
	Complete(ctx context.Context, key string, response []byte, ttl time.Duration) error
	// Release drops a claim so the request can be retried.
	Release(ctx context.Context, key string) error
}

type entry struct {
	record    IdempotencyRecord
	expiresAt time.Time
}

// MemoryStore keeps idempotency records in process. It is used when no
// Redis address is configured.
type MemoryStore struct {
	mu   sync.Mutex
	data map[string]entry
	now  func() time.Time
}

func NewMemoryStore(now func() time.Time) *MemoryStore {
	if now == nil {
		now = time.Now
	}
	return &MemoryStore{
		data: make(map[string]entry),
		now:  now,
	}
}

func (s *MemoryStore) Begin(_ context.Context, key, requestHash string, ttl time.Duration) (*IdempotencyRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if e, ok := s.data[key]; ok {
		if now.Before(e.expiresAt) {
			rec := e.record
			return &rec, false, nil
		}
		delete(s.data, key) // expired
	}
	s.data[key] = entry{
		record:    IdempotencyRecord{RequestHash: requestHash, Status: StatusPending},
		expiresAt: now.Add(ttl),
	}
	return nil, true, nil
}

func (s *MemoryStore) Complete(_ context.Context, key string, response []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.data[key]
	e.record.Status = StatusCompleted
	e.record.Response = append([]byte(nil), response...)
	e.expiresAt = s.now().Add(ttl)
	s.data[key] = e
	return nil
}

func (s *MemoryStore) Release(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

// Sweep drops expired records and reports how many were removed.
func (s *MemoryStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	n := 0
	for k, e := range s.data {
		if !now.Before(e.expiresAt) {
			delete(s.data, k)
			n++
		}
	}
	return n
}
