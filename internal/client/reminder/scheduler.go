// Package reminder sends a digest of the day's events to the signed-in
// identity on a cron schedule.
package reminder

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/studentreminder/reminder/internal/client/models"
	"github.com/studentreminder/reminder/internal/client/notify"
	"github.com/studentreminder/reminder/internal/common"
	"github.com/studentreminder/reminder/internal/logging"
)

// DefaultSchedule fires every morning at 08:00 local time.
const DefaultSchedule = "0 8 * * *"

// Calendar is the read side of the event store the digest needs.
type Calendar interface {
	EventsOn(d models.Date) []models.Event
}

type Session interface {
	CurrentUser() *models.User
}

type Scheduler struct {
	cron     *cron.Cron
	calendar Calendar
	session  Session
	notifier notify.Notifier
	log      logging.Logger
	now      func() time.Time
	timeout  time.Duration
}

// New validates spec (standard five-field cron syntax or a descriptor such
// as "@daily") and registers the digest job. The job does not run until
// Start is called.
func New(spec string, calendar Calendar, session Session, notifier notify.Notifier, log logging.Logger) (*Scheduler, error) {
	if spec == "" {
		spec = DefaultSchedule
	}
	if log == nil {
		log = logging.Nop()
	}
	log = log.With("component", "reminder")

	s := &Scheduler{
		calendar: calendar,
		session:  session,
		notifier: notifier,
		log:      log,
		now:      time.Now,
		timeout:  30 * time.Second,
	}

	cl := cronLogger{log: log}
	s.cron = cron.New(
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	if _, err := s.cron.AddFunc(spec, s.tick); err != nil {
		return nil, fmt.Errorf("%w: reminder schedule %q: %v", common.ErrInvalidInput, spec, err)
	}
	return s, nil
}

// Start runs the scheduler in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts the scheduler and waits for a running digest to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// Next reports when the digest fires next. Zero before Start.
func (s *Scheduler) Next() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

func (s *Scheduler) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	if _, err := s.RunOnce(ctx); err != nil {
		s.log.Warn(ctx, "reminder digest failed", "error", err)
	}
}

// RunOnce sends today's digest now and returns the number of events it
// listed. Nothing is sent when nobody is signed in or the day is empty.
func (s *Scheduler) RunOnce(ctx context.Context) (int, error) {
	user := s.session.CurrentUser()
	if user == nil {
		s.log.Debug(ctx, "no session, digest skipped")
		return 0, nil
	}

	today := models.DateOf(s.now())
	events := s.calendar.EventsOn(today)
	if len(events) == 0 {
		return 0, nil
	}

	err := s.notifier.Notify(ctx, notify.Notification{
		Kind:      notify.KindReminder,
		Recipient: user.Email,
		Subject:   fmt.Sprintf("Today, %s: %d event(s)", today, len(events)),
		Body:      digest(events),
	})
	if err != nil {
		return 0, err
	}
	s.log.Info(ctx, "reminder digest sent", "user_id", user.ID, "events", len(events))
	return len(events), nil
}

func digest(events []models.Event) string {
	var b strings.Builder
	for _, e := range events {
		b.WriteString("- ")
		if e.Time != "" {
			b.WriteString(e.Time)
			b.WriteString(" ")
		}
		b.WriteString(e.Title)
		b.WriteString("\n")
	}
	return b.String()
}

// cronLogger routes cron's own logging into ours.
type cronLogger struct {
	log logging.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug(context.Background(), "cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error(context.Background(), "cron: "+msg, append(keysAndValues, "error", err)...)
}
