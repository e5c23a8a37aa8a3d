package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/studentreminder/reminder/internal/client/notify"
	"github.com/studentreminder/reminder/internal/client/repositories/kv"
	"github.com/studentreminder/reminder/internal/cryptox"
)

// ---- helpers ----

var testNow = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

var testHashParams = cryptox.Params{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}

// clock is a settable time source.
type clock struct {
	mu sync.Mutex
	t  time.Time
}

func newClock() *clock { return &clock{t: testNow} }

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

// recorder captures delivered notifications.
type recorder struct {
	mu   sync.Mutex
	sent []notify.Notification
}

func (r *recorder) Notify(_ context.Context, n notify.Notification) error {
	r.mu.Lock()
	r.sent = append(r.sent, n)
	r.mu.Unlock()
	return nil
}

func (r *recorder) All() []notify.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]notify.Notification(nil), r.sent...)
}

// ---- fake repository ----

var errMediumDown = errors.New("medium down")

// flakyRepo fails writes on demand.
type flakyRepo struct {
	*kv.MemoryRepository

	mu      sync.Mutex
	failSet bool
	sets    int
}

func newFlakyRepo() *flakyRepo {
	return &flakyRepo{MemoryRepository: kv.NewMemoryRepository()}
}

func (r *flakyRepo) FailWrites(v bool) {
	r.mu.Lock()
	r.failSet = v
	r.mu.Unlock()
}

func (r *flakyRepo) Sets() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sets
}

func (r *flakyRepo) Set(ctx context.Context, key string, value []byte) error {
	r.mu.Lock()
	fail := r.failSet
	r.sets++
	r.mu.Unlock()
	if fail {
		return errMediumDown
	}
	return r.MemoryRepository.Set(ctx, key, value)
}

func newIdentity(t *testing.T, repo kv.Repository, opts IdentityOptions) *IdentityStore {
	t.Helper()
	if opts.Now == nil {
		opts.Now = newClock().Now
	}
	if opts.HashParams == (cryptox.Params{}) {
		opts.HashParams = testHashParams
	}
	if opts.Notifier == nil {
		opts.Notifier = &recorder{}
	}
	s, err := NewIdentityStore(context.Background(), repo, opts)
	require.NoError(t, err)
	t.Cleanup(s.Wait)
	return s
}

func newEvents(t *testing.T, repo kv.Repository, session SessionReader, opts EventOptions) *EventStore {
	t.Helper()
	if opts.Now == nil {
		opts.Now = newClock().Now
	}
	s, err := NewEventStore(context.Background(), repo, session, opts)
	require.NoError(t, err)
	return s
}

func rawGet(t *testing.T, repo kv.Repository, key string) []byte {
	t.Helper()
	v, err := repo.Get(context.Background(), key)
	require.NoError(t, err)
	return v
}

func rawSet(t *testing.T, repo kv.Repository, key, value string) {
	t.Helper()
	require.NoError(t, repo.Set(context.Background(), key, []byte(value)))
}
