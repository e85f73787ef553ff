// Package clientstore is the shell's key-value persistence layer. A Store
// wraps one Backend tier (memory, Redis or Badger) and stores collections as
// JSON arrays.
package clientstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/agendai/agendai-go/internal/domain"

	"go.uber.org/zap"
)

// ErrNotFound is returned by backends for a missing key.
var ErrNotFound = errors.New("clientstore: key not found")

// Backend is the raw key-value API a tier implements.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// WriteListener observes every write. value is nil for deletes.
type WriteListener func(key string, value []byte)

// Store serializes all mutations of one tier and notifies listeners after
// each write. Listeners run after the store lock is released, so they may
// write back to the same store.
type Store struct {
	name    string
	backend Backend
	logger  *zap.Logger

	mu        sync.Mutex
	lmu       sync.RWMutex
	listeners []WriteListener
}

// New wraps backend. name identifies the tier in logs.
func New(name string, backend Backend, logger *zap.Logger) *Store {
	return &Store{name: name, backend: backend, logger: logger}
}

// Name returns the tier name.
func (s *Store) Name() string { return s.name }

// Close releases the backend.
func (s *Store) Close() error { return s.backend.Close() }

// OnWrite registers l for every subsequent write.
func (s *Store) OnWrite(l WriteListener) {
	s.lmu.Lock()
	defer s.lmu.Unlock()
	s.listeners = append(s.listeners, l)
}

// GetRaw returns the stored bytes; ok is false when the key is absent.
func (s *Store) GetRaw(ctx context.Context, key string) (value []byte, ok bool, err error) {
	v, err := s.backend.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("%s get %s: %w", s.name, key, err)
	}
	return v, true, nil
}

// SetRaw stores value verbatim.
func (s *Store) SetRaw(ctx context.Context, key string, value []byte) error {
	s.mu.Lock()
	err := s.backend.Set(ctx, key, value)
	s.mu.Unlock()
	if err != nil {
		return fmt.Errorf("%s set %s: %w", s.name, key, err)
	}
	s.notify(key, value)
	return nil
}

// Remove deletes key. Removing an absent key is not an error.
func (s *Store) Remove(ctx context.Context, key string) error {
	s.mu.Lock()
	err := s.backend.Delete(ctx, key)
	s.mu.Unlock()
	if err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("%s delete %s: %w", s.name, key, err)
	}
	s.notify(key, nil)
	return nil
}

// Update applies fn to the current value of key under the store lock.
// fn receives nil when the key is absent.
func (s *Store) Update(ctx context.Context, key string, fn func(current []byte) ([]byte, error)) error {
	s.mu.Lock()
	current, err := s.backend.Get(ctx, key)
	if err != nil && !errors.Is(err, ErrNotFound) {
		s.mu.Unlock()
		return fmt.Errorf("%s get %s: %w", s.name, key, err)
	}
	next, err := fn(current)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	err = s.backend.Set(ctx, key, next)
	s.mu.Unlock()
	if err != nil {
		return fmt.Errorf("%s set %s: %w", s.name, key, err)
	}
	s.notify(key, next)
	return nil
}

func (s *Store) notify(key string, value []byte) {
	s.lmu.RLock()
	listeners := make([]WriteListener, len(s.listeners))
	copy(listeners, s.listeners)
	s.lmu.RUnlock()

	for _, l := range listeners {
		l(key, value)
	}
}

// Get reads the collection under key. It returns nil when the key is absent
// and an empty slice when the stored value is not a JSON array of T.
func Get[T any](ctx context.Context, s *Store, key string) ([]T, error) {
	raw, ok, err := s.GetRaw(ctx, key)
	if err != nil || !ok {
		return nil, err
	}
	return decodeList[T](raw, s.logger, s.name, key), nil
}

// Set writes items under key as a JSON array. A nil slice is stored as [].
func Set[T any](ctx context.Context, s *Store, key string, items []T) error {
	if items == nil {
		items = []T{}
	}
	raw, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return s.SetRaw(ctx, key, raw)
}

// Append adds items to the collection under key in one locked update. A
// malformed stored value is logged and replaced.
func Append[T any](ctx context.Context, s *Store, key string, items ...T) error {
	return s.Update(ctx, key, func(current []byte) ([]byte, error) {
		list := decodeList[T](current, s.logger, s.name, key)
		return json.Marshal(append(list, items...))
	})
}

// GetObject reads a single JSON object. Absent or malformed values yield nil.
func GetObject[T any](ctx context.Context, s *Store, key string) (*T, error) {
	raw, ok, err := s.GetRaw(ctx, key)
	if err != nil || !ok {
		return nil, err
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		s.logger.Warn("discarding malformed value", zap.String("tier", s.name), zap.String("key", key), zap.Error(err))
		return nil, nil
	}
	return &v, nil
}

// SetObject writes v as JSON.
func SetObject[T any](ctx context.Context, s *Store, key string, v *T) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return s.SetRaw(ctx, key, raw)
}

// Flag reports whether a boolean flag is set. Read errors count as unset.
func (s *Store) Flag(ctx context.Context, key string) bool {
	raw, ok, err := s.GetRaw(ctx, key)
	if err != nil || !ok {
		return false
	}
	return string(raw) == "true"
}

// SetFlag sets or clears a boolean flag.
func (s *Store) SetFlag(ctx context.Context, key string, on bool) error {
	if !on {
		return s.Remove(ctx, key)
	}
	return s.SetRaw(ctx, key, []byte("true"))
}

// AppendDeletion records a deletion, keeping the newest MaxDeletionLog entries.
func (s *Store) AppendDeletion(ctx context.Context, entry domain.DeletionEntry) error {
	if entry.DataExclusao.IsZero() {
		entry.DataExclusao = time.Now().UTC()
	}
	return s.Update(ctx, KeyDeletionLog, func(current []byte) ([]byte, error) {
		entries := decodeList[domain.DeletionEntry](current, s.logger, s.name, KeyDeletionLog)
		entries = append(entries, entry)
		if over := len(entries) - MaxDeletionLog; over > 0 {
			entries = entries[over:]
		}
		return json.Marshal(entries)
	})
}

// DeletionLog returns the recorded deletions, oldest first.
func (s *Store) DeletionLog(ctx context.Context) ([]domain.DeletionEntry, error) {
	entries, err := Get[domain.DeletionEntry](ctx, s, KeyDeletionLog)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []domain.DeletionEntry{}
	}
	return entries, nil
}

func decodeList[T any](raw []byte, logger *zap.Logger, tier, key string) []T {
	out := []T{}
	if len(raw) == 0 {
		return out
	}
	if err := json.Unmarshal(raw, &out); err != nil || out == nil {
		if err != nil {
			logger.Warn("discarding malformed collection", zap.String("tier", tier), zap.String("key", key), zap.Error(err))
		}
		return []T{}
	}
	return out
}
