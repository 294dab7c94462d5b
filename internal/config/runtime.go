// Package config provides centralized configuration for Traincue runtime values.
package config

import (
	"os"
	"strconv"
	"time"
)

// RuntimeConfig holds all runtime configuration values that would otherwise
// be scattered as magic values throughout the codebase.
type RuntimeConfig struct {
	// Scheduler configuration
	Scheduler SchedulerConfig

	// Sink configuration
	Sink SinkConfig

	// HTTP client configuration
	HTTP HTTPConfig

	// Retry queue configuration
	RetryQueue RetryQueueConfig

	// Daemon configuration
	Daemon DaemonConfig
}

// SchedulerConfig holds the reminder engine's policy knobs.
type SchedulerConfig struct {
	// WindowDays bounds how far ahead a refresh eagerly schedules
	// reminders against the sink. Reminders further out are deferred to
	// a later refresh cycle.
	// Default: 60
	WindowDays int

	// MaxScheduled caps how many reminders one refresh schedules. It is
	// kept below the platform's true limit as a safety margin.
	// Default: 60
	MaxScheduled int

	// RefreshInterval is how stale the last refresh may be before a
	// non-forced refresh does work again.
	// Default: 24h
	RefreshInterval time.Duration

	// SinkTimeout bounds every individual sink call.
	// Default: 5s
	SinkTimeout time.Duration

	// StatsUpcoming is how many upcoming fire times stats reports.
	// Default: 5
	StatsUpcoming int
}

// SinkConfig holds the local notification sink's limits.
type SinkConfig struct {
	// MaxSlots is the sink's hard capacity for concurrently scheduled
	// notifications. Kept above the engine's MaxScheduled cap so the
	// immediate scheduler has headroom between refreshes.
	// Default: 64
	MaxSlots int
}

// HTTPConfig holds HTTP client configuration.
type HTTPConfig struct {
	// Timeout is the default HTTP request timeout.
	// Default: 30s
	Timeout time.Duration

	// MaxRetries is the maximum number of retry attempts.
	// Default: 3
	MaxRetries int

	// RetryDelays are the delays between retry attempts.
	// Default: [0s, 5s, 30s]
	RetryDelays []time.Duration
}

// RetryQueueConfig holds retry queue configuration.
type RetryQueueConfig struct {
	// CheckInterval is how often the queue checks for ready notifications.
	// Default: 30s
	CheckInterval time.Duration

	// BackoffSchedule is the exponential backoff schedule for failed notifications.
	// Default: [5s, 30s, 2m, 5m, 15m]
	BackoffSchedule []time.Duration
}

// DaemonConfig holds daemon-related configuration.
type DaemonConfig struct {
	// StartupWait is the time to wait for the daemon to start before checking status.
	// Default: 500ms
	StartupWait time.Duration

	// KillTimeout is the timeout for graceful shutdown before force kill.
	// Default: 5s
	KillTimeout time.Duration

	// SleepThreshold is the time gap that indicates the system was sleeping.
	// If elapsed time since last tick exceeds this, stale ticks are skipped.
	// Default: 1h
	SleepThreshold time.Duration
}

// DefaultRuntimeConfig returns the default runtime configuration.
func DefaultRuntimeConfig() *RuntimeConfig {
	return &RuntimeConfig{
		Scheduler: SchedulerConfig{
			WindowDays:      60,
			MaxScheduled:    60,
			RefreshInterval: 24 * time.Hour,
			SinkTimeout:     5 * time.Second,
			StatsUpcoming:   5,
		},
		Sink: SinkConfig{
			MaxSlots: 64,
		},
		HTTP: HTTPConfig{
			Timeout:    30 * time.Second,
			MaxRetries: 3,
			RetryDelays: []time.Duration{
				0,                // Immediate first attempt
				5 * time.Second,  // Retry after 5s
				30 * time.Second, // Retry after 30s
			},
		},
		RetryQueue: RetryQueueConfig{
			CheckInterval: 30 * time.Second,
			BackoffSchedule: []time.Duration{
				5 * time.Second,
				30 * time.Second,
				2 * time.Minute,
				5 * time.Minute,
				15 * time.Minute,
			},
		},
		Daemon: DaemonConfig{
			StartupWait:    500 * time.Millisecond,
			KillTimeout:    5 * time.Second,
			SleepThreshold: 1 * time.Hour,
		},
	}
}

// Window returns the scheduling window as a duration.
func (c SchedulerConfig) Window() time.Duration {
	return time.Duration(c.WindowDays) * 24 * time.Hour
}

// Global holds the global runtime configuration instance.
// It is initialized with defaults and can be overridden via environment variables.
var Global = initGlobal()

// initGlobal initializes the global config with defaults and environment overrides.
func initGlobal() *RuntimeConfig {
	cfg := DefaultRuntimeConfig()
	cfg.loadFromEnv()
	return cfg
}

// loadFromEnv loads configuration overrides from environment variables.
func (c *RuntimeConfig) loadFromEnv() {
	if v := os.Getenv("TRAINCUE_WINDOW_DAYS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Scheduler.WindowDays = n
		}
	}
	if v := os.Getenv("TRAINCUE_MAX_SCHEDULED"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Scheduler.MaxScheduled = n
		}
	}
	if v := os.Getenv("TRAINCUE_REFRESH_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			c.Scheduler.RefreshInterval = d
		}
	}
	if v := os.Getenv("TRAINCUE_SINK_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			c.Scheduler.SinkTimeout = d
		}
	}
	if v := os.Getenv("TRAINCUE_SINK_MAX_SLOTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Sink.MaxSlots = n
		}
	}
	if v := os.Getenv("TRAINCUE_HTTP_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			c.HTTP.Timeout = d
		}
	}
	if v := os.Getenv("TRAINCUE_RETRY_CHECK_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			c.RetryQueue.CheckInterval = d
		}
	}
	if v := os.Getenv("TRAINCUE_DAEMON_STARTUP_WAIT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			c.Daemon.StartupWait = d
		}
	}
	if v := os.Getenv("TRAINCUE_DAEMON_SLEEP_THRESHOLD"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			c.Daemon.SleepThreshold = d
		}
	}
}
