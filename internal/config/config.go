// Package config loads application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds the application configuration loaded from environment variables.
type Config struct {
	DBPath           string
	ChannelName      string
	ListenAddr       string
	GuardMode        string
	SubscriberBuffer int
}

// Load reads configuration from environment variables and returns a validated Config.
// All variables are optional, with defaults: PATREG_DB_PATH (patient-db.sqlite),
// PATREG_CHANNEL (patient-sync), PATREG_LISTEN_ADDR (127.0.0.1:8080),
// PATREG_GUARD_MODE (leading), PATREG_SUBSCRIBER_BUFFER (64).
func Load() (*Config, error) {
	dbPath := "patient-db.sqlite"
	if v, ok := os.LookupEnv("PATREG_DB_PATH"); ok && v != "" {
		dbPath = v
	}

	channel := "patient-sync"
	if v, ok := os.LookupEnv("PATREG_CHANNEL"); ok && v != "" {
		channel = v
	}

	listenAddr := "127.0.0.1:8080"
	if v, ok := os.LookupEnv("PATREG_LISTEN_ADDR"); ok && v != "" {
		listenAddr = v
	}

	guardMode := "leading"
	if v, ok := os.LookupEnv("PATREG_GUARD_MODE"); ok && v != "" {
		v = strings.ToLower(strings.TrimSpace(v))
		if v != "leading" && v != "anywhere" {
			return nil, fmt.Errorf("PATREG_GUARD_MODE has invalid value %q: must be leading or anywhere", v)
		}
		guardMode = v
	}

	buffer := 64
	if v, ok := os.LookupEnv("PATREG_SUBSCRIBER_BUFFER"); ok && v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("PATREG_SUBSCRIBER_BUFFER has invalid integer %q: %w", v, err)
		}
		if parsed <= 0 {
			return nil, fmt.Errorf("PATREG_SUBSCRIBER_BUFFER must be positive, got %d", parsed)
		}
		buffer = parsed
	}

	return &Config{
		DBPath:           dbPath,
		ChannelName:      channel,
		ListenAddr:       listenAddr,
		GuardMode:        guardMode,
		SubscriberBuffer: buffer,
	}, nil
}
