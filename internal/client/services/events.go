package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/studentreminder/reminder/internal/client/models"
	"github.com/studentreminder/reminder/internal/client/persist"
	"github.com/studentreminder/reminder/internal/client/repositories/kv"
	"github.com/studentreminder/reminder/internal/common"
	"github.com/studentreminder/reminder/internal/logging"
)

// EventService is the calendar surface consumed by the presentation layer.
type EventService interface {
	CreateEvent(ctx context.Context, in models.EventInput) (models.Event, error)
	UpdateEvent(ctx context.Context, id string, patch models.EventPatch) error
	DeleteEvent(ctx context.Context, id string) error
	GetEvents(ctx context.Context) error
	GetEventCreatorInfo(ctx context.Context, userID string) models.CreatorInfo

	Events() []models.Event
	EventsOn(d models.Date) []models.Event
	State() EventState
	Subscribe(fn func(EventState)) (cancel func())
}

// SessionReader exposes the current identity, read-only.
type SessionReader interface {
	CurrentUser() *models.User
}

// Directory resolves identity ids to identities.
type Directory interface {
	LookupUser(id string) (models.User, bool)
}

// EventState is what observers of the event store see.
type EventState struct {
	Events    []models.Event
	IsLoading bool
	Error     string
}

type eventState struct {
	Events []models.Event `json:"events"`
}

func (s eventState) Clone() eventState {
	events := make([]models.Event, len(s.Events))
	for i, e := range s.Events {
		events[i] = e.Clone()
	}
	s.Events = events
	return s
}

func (s *eventState) index(id string) int {
	for i, e := range s.Events {
		if e.ID == id {
			return i
		}
	}
	return -1
}

type EventOptions struct {
	Latency Latency
	Logger  logging.Logger
	Now     func() time.Time

	// Directory, when set, is consulted before the snapshot fallback when
	// resolving event creators.
	Directory Directory
}

// EventStore owns the calendar events. All events are visible to every
// session; each is attributed to the identity that created it.
type EventStore struct {
	store     *persist.Store[eventState]
	repo      kv.Repository
	session   SessionReader
	directory Directory
	latency   Latency
	log       logging.Logger
	now       func() time.Time

	// hidden is set by GetEvents without a session: the view is empty while
	// the persisted list is kept for the next login.
	mu     sync.Mutex
	hidden bool

	status status[EventState]
}

var _ EventService = (*EventStore)(nil)

func NewEventStore(ctx context.Context, repo kv.Repository, session SessionReader, opts EventOptions) (*EventStore, error) {
	if opts.Latency == nil {
		opts.Latency = NoDelay
	}
	if opts.Logger == nil {
		opts.Logger = logging.Nop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	log := opts.Logger.With("component", "events")

	store, err := persist.Open(ctx, repo, common.EventStoreName, func() eventState {
		return eventState{Events: []models.Event{}}
	}, log)
	if err != nil {
		return nil, err
	}

	return &EventStore{
		store:     store,
		repo:      repo,
		session:   session,
		directory: opts.Directory,
		latency:   opts.Latency,
		log:       log,
		now:       opts.Now,
	}, nil
}

// isHidden reports whether a logged-out GetEvents emptied the view and no
// session has been opened since.
func (s *EventStore) isHidden() bool {
	s.mu.Lock()
	hidden := s.hidden
	s.mu.Unlock()
	return hidden && s.session.CurrentUser() == nil
}

func (s *EventStore) setHidden(v bool) {
	s.mu.Lock()
	s.hidden = v
	s.mu.Unlock()
}

// Events returns the visible events in insertion order. The view hidden by a
// logged-out GetEvents reappears as soon as a session exists.
func (s *EventStore) Events() []models.Event {
	if s.isHidden() {
		return []models.Event{}
	}
	return s.store.Get().Events
}

// EventsOn returns the visible events falling on d, sorted for display.
func (s *EventStore) EventsOn(d models.Date) []models.Event {
	var out []models.Event
	for _, e := range s.Events() {
		if e.Date == d {
			out = append(out, e)
		}
	}
	models.SortForDisplay(out)
	return out
}

func (s *EventStore) State() EventState {
	loading, msg := s.status.get()
	return EventState{Events: s.Events(), IsLoading: loading, Error: msg}
}

func (s *EventStore) Subscribe(fn func(EventState)) (cancel func()) {
	return s.status.subscribe(fn)
}

func (s *EventStore) begin() {
	s.status.set(true, "")
	s.status.notify(s.State())
}

func (s *EventStore) succeed() {
	s.status.set(false, "")
	s.status.notify(s.State())
}

func (s *EventStore) fail(ctx context.Context, op string, err error, msg string) error {
	s.log.Info(ctx, op+" failed", "error", err)
	s.status.set(false, msg)
	s.status.notify(s.State())
	return fmt.Errorf("%s: %w", op, err)
}

// CreateEvent appends a new event owned by the current session identity.
func (s *EventStore) CreateEvent(ctx context.Context, in models.EventInput) (models.Event, error) {
	s.begin()
	if err := s.latency.Wait(ctx); err != nil {
		return models.Event{}, s.fail(ctx, "create event", err, err.Error())
	}

	user := s.session.CurrentUser()
	if user == nil {
		return models.Event{}, s.fail(ctx, "create event", common.ErrNotAuthenticated, "You must be logged in to create an event")
	}

	in.Title = strings.TrimSpace(in.Title)
	switch {
	case in.Title == "":
		return models.Event{}, s.fail(ctx, "create event", common.ErrInvalidInput, "Title is required")
	case in.Date.IsZero():
		return models.Event{}, s.fail(ctx, "create event", common.ErrInvalidInput, "Date is required")
	case !in.Date.Valid():
		return models.Event{}, s.fail(ctx, "create event", common.ErrInvalidInput, "Date is not a calendar day")
	}

	e := models.Event{
		ID:          uuid.NewString(),
		Title:       in.Title,
		Description: in.Description,
		Date:        in.Date,
		Time:        in.Time,
		UserID:      user.ID,
		Color:       in.Color,
		CreatedAt:   s.now(),
	}

	_, err := s.store.Update(ctx, func(st *eventState) error {
		st.Events = append(st.Events, e)
		return nil
	})
	if err != nil {
		return models.Event{}, s.fail(ctx, "create event", err, err.Error())
	}

	s.setHidden(false)
	s.log.Info(ctx, "event created", "event_id", e.ID, "user_id", e.UserID)
	s.succeed()
	return e, nil
}

// UpdateEvent merges patch into the event with the given id and stamps
// UpdatedAt. An unknown id is a no-op.
func (s *EventStore) UpdateEvent(ctx context.Context, id string, patch models.EventPatch) error {
	s.begin()
	if err := s.latency.Wait(ctx); err != nil {
		return s.fail(ctx, "update event", err, err.Error())
	}

	if patch.Title != nil && strings.TrimSpace(*patch.Title) == "" {
		return s.fail(ctx, "update event", common.ErrInvalidInput, "Title is required")
	}
	if patch.Date != nil && !patch.Date.Valid() {
		return s.fail(ctx, "update event", common.ErrInvalidInput, "Date is not a calendar day")
	}

	_, err := s.store.Update(ctx, func(st *eventState) error {
		i := st.index(id)
		if i < 0 {
			return errUnchanged
		}
		e := patch.Apply(st.Events[i])
		now := s.now()
		e.UpdatedAt = &now
		st.Events[i] = e
		return nil
	})
	if err != nil && !errors.Is(err, errUnchanged) {
		return s.fail(ctx, "update event", err, err.Error())
	}

	s.succeed()
	return nil
}

// DeleteEvent removes the event with the given id. An unknown id is a no-op.
func (s *EventStore) DeleteEvent(ctx context.Context, id string) error {
	s.begin()
	if err := s.latency.Wait(ctx); err != nil {
		return s.fail(ctx, "delete event", err, err.Error())
	}

	_, err := s.store.Update(ctx, func(st *eventState) error {
		i := st.index(id)
		if i < 0 {
			return errUnchanged
		}
		st.Events = append(st.Events[:i], st.Events[i+1:]...)
		return nil
	})
	if err != nil && !errors.Is(err, errUnchanged) {
		return s.fail(ctx, "delete event", err, err.Error())
	}

	s.succeed()
	return nil
}

// GetEvents refreshes the view. Without a session the view becomes empty;
// the persisted events stay in storage.
func (s *EventStore) GetEvents(ctx context.Context) error {
	s.begin()
	if err := s.latency.Wait(ctx); err != nil {
		return s.fail(ctx, "get events", err, err.Error())
	}

	s.setHidden(s.session.CurrentUser() == nil)
	s.succeed()
	return nil
}
