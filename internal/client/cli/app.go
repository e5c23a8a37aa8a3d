package cli

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/studentreminder/reminder/internal/client/config"
	"github.com/studentreminder/reminder/internal/client/models"
	"github.com/studentreminder/reminder/internal/client/notify"
	"github.com/studentreminder/reminder/internal/client/reminder"
	"github.com/studentreminder/reminder/internal/client/repositories/kv"
	"github.com/studentreminder/reminder/internal/client/services"
	"github.com/studentreminder/reminder/internal/client/storage"
	"github.com/studentreminder/reminder/internal/common"
	"github.com/studentreminder/reminder/internal/filex"
	"github.com/studentreminder/reminder/internal/logging"
)

const memoryDSN = ":memory:"

type App struct {
	config *config.Config
	log    logging.Logger
	db     *sql.DB
	repo   kv.Repository

	// mu guards the store pointers, which Restore swaps while the reminder
	// job may be reading them.
	mu       sync.RWMutex
	identity *services.IdentityStore
	events   *services.EventStore
	unsub    []func()

	reminders *reminder.Scheduler
	reader    *bufio.Reader
	out       io.Writer
	now       func() time.Time
}

// NewApp opens the storage file named in c and wires the stores on top of it.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	log := logging.New(c.LogLevel, os.Stderr)

	if c.StoragePath != memoryDSN {
		if err := filex.EnsureParentDir(c.StoragePath); err != nil {
			return nil, err
		}
	}
	db, err := storage.Open(ctx, c.StoragePath)
	if err != nil {
		log.Error(ctx, "error initializing database", "path", c.StoragePath, "error", err)
		return nil, err
	}

	a, err := newApp(ctx, c, kv.NewSQLiteRepository(db), log, os.Stdin, os.Stdout)
	if err != nil {
		db.Close()
		return nil, err
	}
	a.db = db
	return a, nil
}

func newApp(ctx context.Context, c *config.Config, repo kv.Repository, log logging.Logger, in io.Reader, out io.Writer) (*App, error) {
	a := &App{
		config: c,
		log:    log,
		repo:   repo,
		reader: bufio.NewReader(in),
		out:    &syncWriter{w: out},
		now:    time.Now,
	}

	if err := a.openStores(ctx); err != nil {
		return nil, err
	}

	if c.ReminderSchedule != "" {
		r, err := reminder.New(c.ReminderSchedule, a, a, a.notifier(), log)
		if err != nil {
			return nil, err
		}
		a.reminders = r
	}
	return a, nil
}

// openStores (re)builds both stores from the current content of the key space.
func (a *App) openStores(ctx context.Context) error {
	secret, err := loadSecret(ctx, a.repo)
	if err != nil {
		return err
	}

	latency := services.Delay(a.config.SimulatedLatency)

	identity, err := services.NewIdentityStore(ctx, a.repo, services.IdentityOptions{
		Latency:         latency,
		Notifier:        a.notifier(),
		Logger:          a.log,
		VerifyPasswords: a.config.VerifyPasswords,
		SessionSecret:   secret,
		SessionTTL:      a.config.SessionTTL,
	})
	if err != nil {
		return err
	}

	events, err := services.NewEventStore(ctx, a.repo, identity, services.EventOptions{
		Latency:   latency,
		Logger:    a.log,
		Directory: identity,
	})
	if err != nil {
		return err
	}

	a.mu.Lock()
	for _, cancel := range a.unsub {
		cancel()
	}
	if a.identity != nil {
		a.identity.Wait()
	}
	a.identity, a.events = identity, events
	a.unsub = []func(){
		identity.Subscribe(func(st services.AuthState) { a.showStatus(st.IsLoading, st.Error) }),
		events.Subscribe(func(st services.EventState) { a.showStatus(st.IsLoading, st.Error) }),
	}
	a.mu.Unlock()
	return nil
}

// loadSecret returns the device secret that signs persisted sessions,
// generating it on first use.
func loadSecret(ctx context.Context, repo kv.Repository) ([]byte, error) {
	secret, err := repo.Get(ctx, common.SecretStoreName)
	if err != nil {
		return nil, err
	}
	if len(secret) > 0 {
		return secret, nil
	}

	s, err := common.MakeRandHexString(32)
	if err != nil {
		return nil, err
	}
	if err := repo.Set(ctx, common.SecretStoreName, []byte(s)); err != nil {
		return nil, err
	}
	return []byte(s), nil
}

// notifier shows outgoing notifications to the user and logs them.
func (a *App) notifier() notify.Notifier {
	logged := notify.NewLogNotifier(a.log)
	return notify.Func(func(ctx context.Context, n notify.Notification) error {
		fmt.Fprintf(a.out, "[mail to %s] %s\n", n.Recipient, n.Subject)
		return logged.Notify(ctx, n)
	})
}

func (a *App) showStatus(loading bool, msg string) {
	switch {
	case loading:
		fmt.Fprintln(a.out, "...")
	case msg != "":
		fmt.Fprintln(a.out, "Error:", msg)
	}
}

// CurrentUser and EventsOn let the reminder job follow store swaps.

func (a *App) CurrentUser() *models.User {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.identity.CurrentUser()
}

func (a *App) EventsOn(d models.Date) []models.Event {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.events.EventsOn(d)
}

func (a *App) isLoggedIn() bool {
	return a.identity.CurrentUser() != nil
}

func (a *App) getStatus() string {
	if u := a.identity.CurrentUser(); u != nil {
		return fmt.Sprintf("(%s)", u.Username)
	}
	return ""
}

// Run starts the reminder job and blocks in the REPL until the user exits.
func (a *App) Run(ctx context.Context) {
	defer a.Close()

	if a.reminders != nil {
		a.reminders.Start()
	}

	fmt.Fprintln(a.out, "Welcome to Students Reminder (type 'help' for commands)")
	if err := a.events.GetEvents(ctx); err != nil {
		a.log.Warn(ctx, "initial refresh failed", "error", err)
	}
	runREPL(ctx, a, a.getStatus, a.reader)
}

// Close stops background work and releases the storage file.
func (a *App) Close() {
	if a.reminders != nil {
		a.reminders.Stop()
	}
	a.identity.Wait()
	if a.db != nil {
		a.db.Close()
	}
}

type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}
