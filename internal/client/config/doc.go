// Package config loads runtime configuration for the reminder CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file (see parseJson) selected via flags: -c or -config.
//  3. Command-line flags (see parseFlags), which override earlier values.
//
// Supported flags
//
//	-d string     path of the SQLite storage file
//	-l int        simulated latency of store operations (milliseconds)
//	-v string     log level
//	-p            verify passwords
//	-t duration   session lifetime, e.g. 12h
//	-r string     reminder cron schedule, "" disables reminders
//
// # JSON schema
//
// The JSON loader uses timex.Duration for durations, so values can be either
// strings like "250ms" or integer nanoseconds. Absent keys keep the value
// from the previous source:
//
//	{
//	  "storage_path": "reminder.db",
//	  "simulated_latency": "1s",
//	  "log_level": "info",
//	  "verify_passwords": false,
//	  "session_ttl": "24h",
//	  "reminder_schedule": "0 8 * * *"
//	}
//
// Note: This package does not read environment variables directly; use the
// JSON file or flags to configure values.
package config
