package config

import (
	"encoding/json"
	"os"

	"github.com/studentreminder/reminder/internal/flagx"
	"github.com/studentreminder/reminder/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Pointer
// fields distinguish an absent key from a zero value.
type JsonConfig struct {
	StoragePath      *string         `json:"storage_path"`
	SimulatedLatency *timex.Duration `json:"simulated_latency"`
	LogLevel         *string         `json:"log_level"`
	VerifyPasswords  *bool           `json:"verify_passwords"`
	SessionTTL       *timex.Duration `json:"session_ttl"`
	ReminderSchedule *string         `json:"reminder_schedule"`
}

// parseJson overlays Config with values loaded from a JSON file whose path
// comes from -c or -config. Without either flag nothing is loaded.
// Panics on read or unmarshal errors (caller should recover if desired).
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	if jc.StoragePath != nil {
		cfg.StoragePath = *jc.StoragePath
	}
	if jc.SimulatedLatency != nil {
		cfg.SimulatedLatency = jc.SimulatedLatency.Duration
	}
	if jc.LogLevel != nil {
		cfg.LogLevel = *jc.LogLevel
	}
	if jc.VerifyPasswords != nil {
		cfg.VerifyPasswords = *jc.VerifyPasswords
	}
	if jc.SessionTTL != nil {
		cfg.SessionTTL = jc.SessionTTL.Duration
	}
	if jc.ReminderSchedule != nil {
		cfg.ReminderSchedule = *jc.ReminderSchedule
	}
}
