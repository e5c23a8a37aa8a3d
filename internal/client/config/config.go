package config

import "time"

// Config holds runtime settings for the reminder CLI.
//
// Fields:
//   - StoragePath: SQLite database file holding the device key space.
//     ":memory:" keeps everything in the process.
//   - SimulatedLatency: delay applied before every asynchronous store
//     operation, standing in for a backend round trip.
//   - LogLevel: debug, info, warn or error.
//   - VerifyPasswords: store and check password hashes.
//   - SessionTTL: lifetime of a persisted session.
//   - ReminderSchedule: cron spec of the daily digest; empty disables it.
type Config struct {
	StoragePath      string
	SimulatedLatency time.Duration
	LogLevel         string
	VerifyPasswords  bool
	SessionTTL       time.Duration
	ReminderSchedule string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.StoragePath = "reminder.db"
	c.SimulatedLatency = time.Second
	c.LogLevel = "info"
	c.VerifyPasswords = false
	c.SessionTTL = 24 * time.Hour
	c.ReminderSchedule = "0 8 * * *"
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
