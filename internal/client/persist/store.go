// Package persist binds an in-memory state value to one key of the storage
// medium. The state is rehydrated once when the store is opened and written
// back in full after every committed mutation.
//
// Snapshots are stored in a versioned JSON envelope:
//
//	{"state": <state>, "version": 1}
//
// An absent or undecodable snapshot is the cold-start path: the store starts
// from its default state and the bad payload is overwritten on the next commit.
package persist

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/studentreminder/reminder/internal/client/repositories/kv"
	"github.com/studentreminder/reminder/internal/common"
	"github.com/studentreminder/reminder/internal/logging"
)

// SchemaVersion is written into every envelope. Snapshots with a newer
// version are treated as corrupt.
const SchemaVersion = 1

// Cloner is implemented by state types. Clone must return a deep copy so
// callers can never alias the store's state.
type Cloner[T any] interface {
	Clone() T
}

type envelope struct {
	State   json.RawMessage `json:"state"`
	Version int             `json:"version"`
}

// Store is a durable state container. It is safe for concurrent use;
// commits are serialized.
type Store[T Cloner[T]] struct {
	mu    sync.Mutex
	repo  kv.Repository
	name  string
	state T
	log   logging.Logger
}

// Open loads the snapshot stored under name, falling back to defaults()
// when it is absent or corrupt. Only a failing medium is an error.
func Open[T Cloner[T]](ctx context.Context, repo kv.Repository, name string, defaults func() T, log logging.Logger) (*Store[T], error) {
	raw, err := repo.Get(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", name, err)
	}

	s := &Store[T]{repo: repo, name: name, log: log.With("store", name)}

	if raw == nil {
		s.log.Debug(ctx, "no snapshot, starting from defaults")
		s.state = defaults()
		return s, nil
	}

	state, err := Decode[T](raw)
	if err != nil {
		s.log.Warn(ctx, "snapshot unreadable, starting from defaults", "error", err)
		s.state = defaults()
		return s, nil
	}

	s.log.Debug(ctx, "snapshot rehydrated")
	s.state = state
	return s, nil
}

// Decode parses a snapshot envelope. Every failure wraps common.ErrStorageCorrupt.
func Decode[T any](raw []byte) (T, error) {
	var zero T

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return zero, fmt.Errorf("%w: %v", common.ErrStorageCorrupt, err)
	}
	if len(env.State) == 0 || bytes.Equal(env.State, []byte("null")) {
		return zero, fmt.Errorf("%w: no state", common.ErrStorageCorrupt)
	}
	if env.Version > SchemaVersion {
		return zero, fmt.Errorf("%w: version %d is newer than %d", common.ErrStorageCorrupt, env.Version, SchemaVersion)
	}

	var state T
	if err := json.Unmarshal(env.State, &state); err != nil {
		return zero, fmt.Errorf("%w: %v", common.ErrStorageCorrupt, err)
	}
	return state, nil
}

// Encode wraps state into the current envelope format.
func Encode[T any](state T) ([]byte, error) {
	body, err := json.Marshal(state)
	if err != nil {
		return nil, err
	}
	return json.Marshal(envelope{State: body, Version: SchemaVersion})
}

func (s *Store[T]) Name() string {
	return s.name
}

// Get returns a copy of the current state.
func (s *Store[T]) Get() T {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state.Clone()
}

// Update applies fn to a copy of the state and, if fn succeeds, persists the
// result before making it current. When fn or the write fails the state is
// left untouched and the error is returned. The returned value is the state
// in effect after the call.
func (s *Store[T]) Update(ctx context.Context, fn func(state *T) error) (T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.state.Clone()
	if err := fn(&next); err != nil {
		return s.state.Clone(), err
	}

	raw, err := Encode(next)
	if err != nil {
		return s.state.Clone(), fmt.Errorf("encode %s: %w", s.name, err)
	}
	if err := s.repo.Set(ctx, s.name, raw); err != nil {
		return s.state.Clone(), fmt.Errorf("persist %s: %w", s.name, err)
	}

	s.state = next
	return next.Clone(), nil
}
