package services

import (
	"errors"
	"sync"
)

// errUnchanged aborts a store update that has nothing to write.
var errUnchanged = errors.New("unchanged")

// status is the transient part of a store: the loading flag, the last error
// message and the observers that are told about every change.
type status[V any] struct {
	mu        sync.Mutex
	isLoading bool
	errMsg    string

	obsMu     sync.Mutex
	nextID    int
	observers map[int]func(V)
}

func (s *status[V]) get() (bool, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isLoading, s.errMsg
}

func (s *status[V]) set(loading bool, msg string) {
	s.mu.Lock()
	s.isLoading = loading
	s.errMsg = msg
	s.mu.Unlock()
}

func (s *status[V]) subscribe(fn func(V)) (cancel func()) {
	s.obsMu.Lock()
	defer s.obsMu.Unlock()

	if s.observers == nil {
		s.observers = make(map[int]func(V))
	}
	id := s.nextID
	s.nextID++
	s.observers[id] = fn

	return func() {
		s.obsMu.Lock()
		delete(s.observers, id)
		s.obsMu.Unlock()
	}
}

// notify calls every observer with v. Observers run on the caller's
// goroutine, outside of any store lock.
func (s *status[V]) notify(v V) {
	s.obsMu.Lock()
	fns := make([]func(V), 0, len(s.observers))
	for _, fn := range s.observers {
		fns = append(fns, fn)
	}
	s.obsMu.Unlock()

	for _, fn := range fns {
		fn(v)
	}
}
