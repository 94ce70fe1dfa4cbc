// Package timeouts holds the deadlines applied to store calls made while
// serving a request. Handlers derive them from the request context, so a
// client that disconnects also cancels its query.
package timeouts

import (
	"os"
	"sync/atomic"
	"time"
)

// Config holds one duration per class of operation.
type Config struct {
	Ping   time.Duration // health probes
	Short  time.Duration // single-document reads and writes
	Medium time.Duration // list queries and multi-step updates
	Long   time.Duration // uploads to object storage
}

// Defaults are used until Configure or ConfigureFromEnv changes them.
var Defaults = Config{
	Ping:   2 * time.Second,
	Short:  5 * time.Second,
	Medium: 10 * time.Second,
	Long:   30 * time.Second,
}

var current atomic.Pointer[Config]

func init() {
	Reset()
}

func load() *Config { return current.Load() }

// Ping returns the timeout for health probes.
func Ping() time.Duration { return load().Ping }

// Short returns the timeout for single-document operations.
func Short() time.Duration { return load().Short }

// Medium returns the timeout for list queries.
func Medium() time.Duration { return load().Medium }

// Long returns the timeout for object storage transfers.
func Long() time.Duration { return load().Long }

// Current returns the active configuration.
func Current() Config { return *load() }

// Configure replaces the active values. Zero or negative fields keep their
// current value.
func Configure(cfg Config) {
	next := *load()
	set := func(dst *time.Duration, v time.Duration) {
		if v > 0 {
			*dst = v
		}
	}
	set(&next.Ping, cfg.Ping)
	set(&next.Short, cfg.Short)
	set(&next.Medium, cfg.Medium)
	set(&next.Long, cfg.Long)
	current.Store(&next)
}

// Reset restores Defaults.
func Reset() {
	d := Defaults
	current.Store(&d)
}

// ConfigureFromEnv reads MTHUNZI_TIMEOUT_PING, _SHORT, _MEDIUM and _LONG as
// Go durations and returns how many were applied. Unparseable values are
// ignored.
func ConfigureFromEnv() int {
	var cfg Config
	applied := 0
	for name, dst := range map[string]*time.Duration{
		"MTHUNZI_TIMEOUT_PING":   &cfg.Ping,
		"MTHUNZI_TIMEOUT_SHORT":  &cfg.Short,
		"MTHUNZI_TIMEOUT_MEDIUM": &cfg.Medium,
		"MTHUNZI_TIMEOUT_LONG":   &cfg.Long,
	} {
		v := os.Getenv(name)
		if v == "" {
			continue
		}
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			*dst = d
			applied++
		}
	}
	Configure(cfg)
	return applied
}
