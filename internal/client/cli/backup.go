package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/studentreminder/reminder/internal/client/ics"
	"github.com/studentreminder/reminder/internal/client/models"
	"github.com/studentreminder/reminder/internal/common"
	"github.com/studentreminder/reminder/internal/filex"
)

const backupVersion = 1

// backupFile is a copy of the whole device key space.
type backupFile struct {
	Version int               `json:"version"`
	Created time.Time         `json:"created"`
	Entries map[string]string `json:"entries"`
}

// Export writes every event, sorted for display, to an iCalendar file.
func (a *App) Export(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return a.usage("export <file.ics>")
	}
	if !a.isLoggedIn() {
		return a.fail(common.ErrNotAuthenticated)
	}

	events := a.events.Events()
	models.SortForDisplay(events)
	creator := func(userID string) string {
		return a.events.GetEventCreatorInfo(ctx, userID).Username
	}

	var buf bytes.Buffer
	if err := ics.Export(&buf, "Students Reminder", events, creator, a.now()); err != nil {
		return a.fail(err)
	}
	if err := filex.WriteFileAtomic(args[0], buf.Bytes(), 0o644); err != nil {
		return a.fail(err)
	}

	fmt.Fprintf(a.out, "Exported %d event(s) to %s\n", len(events), args[0])
	return nil
}

// Backup writes the whole key space, sessions and secret included, to a file.
func (a *App) Backup(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return a.usage("backup <file>")
	}

	all, err := a.repo.List(ctx)
	if err != nil {
		return a.fail(err)
	}
	b := backupFile{Version: backupVersion, Created: a.now().UTC(), Entries: make(map[string]string, len(all))}
	for k, v := range all {
		b.Entries[k] = string(v)
	}

	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return a.fail(err)
	}
	if err := filex.WriteFileAtomic(args[0], data, 0o600); err != nil {
		return a.fail(err)
	}

	fmt.Fprintf(a.out, "Saved %d key(s) to %s\n", len(all), args[0])
	return nil
}

// Restore replaces the key space with the content of a backup file and
// reopens both stores from it.
func (a *App) Restore(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return a.usage("restore <file>")
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return a.fail(err)
	}
	var b backupFile
	if err := json.Unmarshal(data, &b); err != nil {
		return a.fail(fmt.Errorf("%w: %v", common.ErrStorageCorrupt, err))
	}
	if b.Version != backupVersion {
		return a.fail(fmt.Errorf("%w: backup version %d", common.ErrStorageCorrupt, b.Version))
	}

	entries := make(map[string][]byte, len(b.Entries))
	for k, v := range b.Entries {
		entries[k] = []byte(v)
	}

	if a.reminders != nil {
		a.reminders.Stop()
		defer a.reminders.Start()
	}
	if err := a.repo.ReplaceAll(ctx, entries); err != nil {
		return a.fail(err)
	}
	if err := a.openStores(ctx); err != nil {
		return a.fail(err)
	}
	if err := a.events.GetEvents(ctx); err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Restored %d key(s) from %s\n", len(entries), args[0])
	return nil
}
