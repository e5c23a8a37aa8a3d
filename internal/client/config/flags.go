package config

import (
	"flag"
	"os"
	"time"

	"github.com/studentreminder/reminder/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Note: The function filters os.Args to only include the flags it knows about,
// using flagx.FilterArgs, to avoid interference with other components.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-d", "-l", "-v", "-t", "-r"}, "-p")

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.StoragePath, "d", cfg.StoragePath, "path of the storage file")
	latency := fs.Int("l", int(cfg.SimulatedLatency.Milliseconds()), "simulated latency (in milliseconds)")
	fs.StringVar(&cfg.LogLevel, "v", cfg.LogLevel, "log level: debug, info, warn, error")
	fs.BoolVar(&cfg.VerifyPasswords, "p", cfg.VerifyPasswords, "verify passwords")
	fs.DurationVar(&cfg.SessionTTL, "t", cfg.SessionTTL, "session lifetime")
	fs.StringVar(&cfg.ReminderSchedule, "r", cfg.ReminderSchedule, "reminder cron schedule, empty to disable")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.SimulatedLatency = time.Duration(*latency) * time.Millisecond
}
