package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryOrderStore keeps orders in process memory. Lookup and create for an
// idempotency key execute under one mutex, so concurrent retries with the
// same key cannot both commit.
type MemoryOrderStore struct {
	mu     sync.Mutex
	orders map[string]*OrderRecord
	byKey  map[string]string
}

// NewMemoryOrderStore builds an empty in-memory store.
func NewMemoryOrderStore() *MemoryOrderStore {
	return &MemoryOrderStore{
		orders: make(map[string]*OrderRecord),
		byKey:  make(map[string]string),
	}
}

// Create implements [OrderStore].
func (s *MemoryOrderStore) Create(_ context.Context, rec *OrderRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec.IdempotencyKey != "" {
		if _, exists := s.byKey[rec.IdempotencyKey]; exists {
			return ErrConflict
		}
	}
	if rec.ID == "" {
		rec.ID = "ord_" + uuid.NewString()
	}
	now := time.Now().UTC()
	rec.CreatedAt = now
	rec.UpdatedAt = now

	clone := *rec
	s.orders[rec.ID] = &clone
	if rec.IdempotencyKey != "" {
		s.byKey[rec.IdempotencyKey] = rec.ID
	}
	return nil
}

// GetByID implements [OrderStore].
func (s *MemoryOrderStore) GetByID(_ context.Context, id string) (*OrderRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *rec
	return &clone, nil
}

// FindByIdempotencyKey implements [OrderStore].
func (s *MemoryOrderStore) FindByIdempotencyKey(_ context.Context, key string) (*OrderRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if key == "" {
		return nil, ErrNotFound
	}
	id, ok := s.byKey[key]
	if !ok {
		return nil, ErrNotFound
	}
	rec, ok := s.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *rec
	return &clone, nil
}

// UpdateStatus implements [OrderStore].
func (s *MemoryOrderStore) UpdateStatus(_ context.Context, id string, status OrderStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.orders[id]
	if !ok {
		return ErrNotFound
	}
	rec.Status = status
	rec.UpdatedAt = time.Now().UTC()
	return nil
}

// Len reports the number of stored orders.
func (s *MemoryOrderStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.orders)
}
