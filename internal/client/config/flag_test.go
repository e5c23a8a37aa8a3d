package config

import (
	"os"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	defaults := func() *Config {
		c := &Config{}
		c.LoadDefaults()
		return c
	}

	tests := []struct {
		expected    *Config
		name        string
		args        []string
		expectPanic bool
	}{
		{name: "all flags", args: []string{"cmd", "-d", "/tmp/r.db", "-l", "250", "-v", "debug", "-p", "-t", "1h", "-r", "@hourly"},
			expected: &Config{StoragePath: "/tmp/r.db", SimulatedLatency: 250 * time.Millisecond, LogLevel: "debug",
				VerifyPasswords: true, SessionTTL: time.Hour, ReminderSchedule: "@hourly"}},
		{name: "no flags keeps defaults", args: []string{"cmd"}, expected: defaults()},
		{name: "foreign flags ignored", args: []string{"cmd", "-x", "1", "-c", "cfg.json", "-v", "warn"},
			expected: func() *Config { c := defaults(); c.LogLevel = "warn"; return c }()},
		{name: "bool flag does not eat next arg", args: []string{"cmd", "-p", "-d", "a.db"},
			expected: func() *Config { c := defaults(); c.VerifyPasswords = true; c.StoragePath = "a.db"; return c }()},
		{name: "incorrect latency", args: []string{"cmd", "-l", "abc"}, expectPanic: true},
		{name: "incorrect ttl", args: []string{"cmd", "-t", "forever"}, expectPanic: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Args = tt.args

			config := defaults()

			if !tt.expectPanic {
				require.NotPanics(t, func() { parseFlags(config) })
				assert.Empty(t, cmp.Diff(tt.expected, config))
			} else {
				require.Panics(t, func() { parseFlags(config) })
			}
		})
	}
}
