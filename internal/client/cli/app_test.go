package cli

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studentreminder/reminder/internal/client/config"
	"github.com/studentreminder/reminder/internal/client/repositories/kv"
	"github.com/studentreminder/reminder/internal/common"
	"github.com/studentreminder/reminder/internal/logging"
)

// ---- helpers ----

type safeBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *safeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *safeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func testConfig() *config.Config {
	c := &config.Config{}
	c.LoadDefaults()
	c.StoragePath = memoryDSN
	c.SimulatedLatency = 0
	c.ReminderSchedule = ""
	return c
}

// stubPasswords makes getPassword return pws in order.
func stubPasswords(t *testing.T, pws ...string) {
	t.Helper()
	orig := getPassword
	t.Cleanup(func() { getPassword = orig })
	getPassword = func(_ io.Writer, _ string) ([]byte, error) {
		if len(pws) == 0 {
			return nil, io.EOF
		}
		pw := pws[0]
		pws = pws[1:]
		return []byte(pw), nil
	}
}

func testApp(t *testing.T, repo kv.Repository, input string) (*App, *safeBuffer) {
	t.Helper()
	out := &safeBuffer{}
	a, err := newApp(context.Background(), testConfig(), repo, logging.Nop(), strings.NewReader(input), out)
	require.NoError(t, err)
	a.now = func() time.Time { return time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC) }
	t.Cleanup(a.Close)
	return a, out
}

func lines(s ...string) string { return strings.Join(s, "\n") + "\n" }

// ---- tests ----

func TestApp_SignupAddList(t *testing.T) {
	stubPasswords(t, "pw")
	repo := kv.NewMemoryRepository()
	a, out := testApp(t, repo, lines(
		"ana", "ana@uni.edu", "",
		"Math exam", "today", "9am", "", "Room 4", "",
	))
	ctx := context.Background()

	require.NoError(t, a.Signup(ctx))
	require.NoError(t, a.AddEvent(ctx))
	require.NoError(t, a.List(ctx, nil))
	require.NoError(t, a.List(ctx, []string{"2025-03-15"}))

	assert.Equal(t, "(ana)", a.getStatus())
	got := out.String()
	assert.Contains(t, got, "Welcome, ana!")
	assert.Contains(t, got, "2025-03-14  9am      Math exam  (by ana)")
	assert.Contains(t, got, "No events")

	e := a.events.Events()
	require.Len(t, e, 1)
	assert.Equal(t, "Room 4", e[0].Description)
}

func TestApp_LoginErrorsAreShown(t *testing.T) {
	stubPasswords(t, "x")
	a, out := testApp(t, kv.NewMemoryRepository(), lines("ghost@uni.edu"))

	require.ErrorIs(t, a.Login(context.Background()), common.ErrInvalidCredentials)
	assert.Contains(t, out.String(), "Error: Invalid email or password")
	assert.False(t, a.isLoggedIn())
}

func TestApp_AddRequiresSession(t *testing.T) {
	a, out := testApp(t, kv.NewMemoryRepository(), lines("Essay", "tomorrow", "", "", ""))

	require.ErrorIs(t, a.AddEvent(context.Background()), common.ErrNotAuthenticated)
	assert.Contains(t, out.String(), "Error: You must be logged in to create an event")
}

func TestApp_LoginSendsConfirmation(t *testing.T) {
	stubPasswords(t, "x")
	a, out := testApp(t, kv.NewMemoryRepository(), lines("john@example.com"))

	require.NoError(t, a.Login(context.Background()))
	a.identity.Wait()

	assert.Contains(t, out.String(), "Logged in as johndoe")
	assert.Contains(t, out.String(), "[mail to john@example.com] Confirmation email")
}

func TestApp_EditKeepsEmptyAnswers(t *testing.T) {
	stubPasswords(t, "x")
	a, _ := testApp(t, kv.NewMemoryRepository(), "")
	ctx := context.Background()

	a.reader.Reset(strings.NewReader(lines("john@example.com")))
	require.NoError(t, a.Login(ctx))
	a.reader.Reset(strings.NewReader(lines("Essay", "2025-03-20", "", "", "")))
	require.NoError(t, a.AddEvent(ctx))
	id := a.events.Events()[0].ID

	a.reader.Reset(strings.NewReader(lines("Final essay", "", "23:59", "", "")))
	require.NoError(t, a.EditEvent(ctx, []string{id}))

	e := a.events.Events()[0]
	assert.Equal(t, "Final essay", e.Title)
	assert.Equal(t, "2025-03-20", e.Date.String())
	assert.Equal(t, "23:59", e.Time)
	assert.NotNil(t, e.UpdatedAt)

	require.ErrorIs(t, a.EditEvent(ctx, []string{"missing"}), common.ErrorNotFound)
	require.ErrorIs(t, a.EditEvent(ctx, nil), errUsage)
}

func TestApp_SessionSurvivesRestart(t *testing.T) {
	stubPasswords(t, "x")
	repo := kv.NewMemoryRepository()
	a, _ := testApp(t, repo, lines("john@example.com"))
	require.NoError(t, a.Login(context.Background()))

	secret := rawSecret(t, repo)
	require.NotEmpty(t, secret)

	b, _ := testApp(t, repo, "")
	assert.Equal(t, "(johndoe)", b.getStatus())
	assert.Equal(t, secret, rawSecret(t, repo), "secret is generated once")
}

func rawSecret(t *testing.T, repo kv.Repository) string {
	t.Helper()
	v, err := repo.Get(context.Background(), common.SecretStoreName)
	require.NoError(t, err)
	return string(v)
}

func TestApp_ExportBackupRestore(t *testing.T) {
	stubPasswords(t, "x")
	dir := t.TempDir()
	a, out := testApp(t, kv.NewMemoryRepository(), lines(
		"john@example.com",
		"Physics lab", "2025-03-18", "", "", "",
	))
	ctx := context.Background()

	require.NoError(t, a.Login(ctx))
	require.NoError(t, a.AddEvent(ctx))
	id := a.events.Events()[0].ID

	icsPath := filepath.Join(dir, "cal.ics")
	require.NoError(t, a.Export(ctx, []string{icsPath}))
	data, err := os.ReadFile(icsPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "BEGIN:VCALENDAR")
	assert.Contains(t, string(data), "SUMMARY:Physics lab")

	backupPath := filepath.Join(dir, "device.json")
	require.NoError(t, a.Backup(ctx, []string{backupPath}))

	require.NoError(t, a.DeleteEvent(ctx, []string{id}))
	require.NoError(t, a.Logout(ctx))
	assert.Empty(t, a.events.Events())

	require.NoError(t, a.Restore(ctx, []string{backupPath}))
	assert.Equal(t, "(johndoe)", a.getStatus())
	require.Len(t, a.events.Events(), 1)
	assert.Equal(t, id, a.events.Events()[0].ID)
	assert.Contains(t, out.String(), "Restored")
}

func TestApp_RestoreRejectsBadFiles(t *testing.T) {
	dir := t.TempDir()
	a, _ := testApp(t, kv.NewMemoryRepository(), "")
	ctx := context.Background()

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("nope"), 0o600))
	require.ErrorIs(t, a.Restore(ctx, []string{bad}), common.ErrStorageCorrupt)

	future := filepath.Join(dir, "future.json")
	require.NoError(t, os.WriteFile(future, []byte(`{"version":9,"entries":{}}`), 0o600))
	require.ErrorIs(t, a.Restore(ctx, []string{future}), common.ErrStorageCorrupt)

	require.Error(t, a.Restore(ctx, []string{filepath.Join(dir, "missing.json")}))
	require.ErrorIs(t, a.Restore(ctx, nil), errUsage)
}

func TestApp_WhoAmI(t *testing.T) {
	stubPasswords(t, "x")
	a, out := testApp(t, kv.NewMemoryRepository(), lines("john@example.com"))
	ctx := context.Background()

	require.NoError(t, a.WhoAmI(ctx))
	require.NoError(t, a.Login(ctx))
	require.NoError(t, a.WhoAmI(ctx))

	assert.Contains(t, out.String(), "Not logged in")
	assert.Contains(t, out.String(), "johndoe <john@example.com> (student), id 1")
}
