package userdata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
)

// ErrCorruptEntry is returned by a Store when the persisted bytes do not
// decode into an Envelope.
var ErrCorruptEntry = errors.New("userdata: corrupt cache entry")

// Store persists the envelope of a single session. A missing entry is
// reported as (nil, nil).
type Store interface {
	Get(ctx context.Context) (*Envelope, error)
	Set(ctx context.Context, env *Envelope) error
	Clear(ctx context.Context) error
}

// StoreFactory opens the Store that belongs to a session.
type StoreFactory func(sessionID string) (Store, error)

func encodeEnvelope(env *Envelope) ([]byte, error) {
	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("encode cache entry: %w", err)
	}
	return data, nil
}

func decodeEnvelope(data []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptEntry, err)
	}
	return &env, nil
}

// MemoryStore keeps the encoded envelope in process memory. Entries are
// stored encoded so reads hand out independent copies.
type MemoryStore struct {
	mu   sync.RWMutex
	data []byte
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// MemoryStoreFactory gives every session its own MemoryStore.
func MemoryStoreFactory() StoreFactory {
	return func(string) (Store, error) { return NewMemoryStore(), nil }
}

func (s *MemoryStore) Get(_ context.Context) (*Envelope, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.data == nil {
		return nil, nil
	}
	return decodeEnvelope(s.data)
}

func (s *MemoryStore) Set(_ context.Context, env *Envelope) error {
	data, err := encodeEnvelope(env)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.data = data
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	s.data = nil
	s.mu.Unlock()
	return nil
}

// Bytes returns the raw persisted entry, or nil when there is none.
func (s *MemoryStore) Bytes() []byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.data == nil {
		return nil
	}
	out := make([]byte, len(s.data))
	copy(out, s.data)
	return out
}

// SetBytes replaces the raw persisted entry.
func (s *MemoryStore) SetBytes(data []byte) {
	s.mu.Lock()
	s.data = data
	s.mu.Unlock()
}
