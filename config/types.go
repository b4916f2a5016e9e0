// Package config provides configuration management for the molniya runtime.
package config

import (
	"time"

	"go.uber.org/multierr"

	"github.com/molniya-im/molniya/logging"
	"github.com/molniya-im/molniya/queue"
)

// Config represents the complete runtime configuration.
type Config struct {
	// Application configuration
	App AppConfig `yaml:"app" json:"app"`

	// Logging configuration
	Log logging.Config `yaml:"log" json:"log"`

	// Scheduler pool configuration
	Scheduler SchedulerConfig `yaml:"scheduler" json:"scheduler"`

	// Queue tuning
	Queue QueueConfig `yaml:"queue" json:"queue"`

	// Custom configurations (for user-defined components)
	Custom map[string]interface{} `yaml:"custom,omitempty" json:"custom,omitempty"`
}

// AppConfig contains application-level configuration.
type AppConfig struct {
	// Application name
	Name string `yaml:"name" json:"name"`

	// Application version
	Version string `yaml:"version" json:"version"`

	// Debug mode
	Debug bool `yaml:"debug" json:"debug"`
}

// SchedulerConfig contains scheduler pool settings.
type SchedulerConfig struct {
	// Workers is the number of worker schedulers running on their own
	// OS threads, in addition to the main scheduler. Zero means
	// everything runs on the main scheduler.
	Workers int `yaml:"workers" json:"workers"`

	// ExtraScheduler adds one scheduler that is never driven by a
	// thread, used as a parking slot for actors awaiting placement.
	ExtraScheduler bool `yaml:"extra_scheduler" json:"extra_scheduler"`

	// PollTimeout bounds how long one scheduler iteration may block
	// waiting for cross-thread events.
	PollTimeout time.Duration `yaml:"poll_timeout" json:"poll_timeout"`

	// CPUAffinity pins scheduler threads to the CPUs of this bit mask.
	// Zero disables pinning. Linux only.
	CPUAffinity uint64 `yaml:"cpu_affinity" json:"cpu_affinity"`
}

// Normalized returns a copy with out-of-range values replaced by
// defaults.
func (c SchedulerConfig) Normalized() SchedulerConfig {
	if c.Workers < 0 {
		c.Workers = 0
	}
	if c.PollTimeout <= 0 {
		c.PollTimeout = 100 * time.Millisecond
	}
	return c
}

// QueueConfig contains queue tuning parameters.
type QueueConfig struct {
	// RingSize is the capacity of a single-producer ring buffer. Must
	// be a power of two.
	RingSize uint64 `yaml:"ring_size" json:"ring_size"`

	// SegmentSize is the capacity of one segment of a growable queue.
	// Must be a power of two.
	SegmentSize uint64 `yaml:"segment_size" json:"segment_size"`

	// SpinLimit is the number of busy-spin rounds before a waiter
	// starts sleeping.
	SpinLimit int `yaml:"spin_limit" json:"spin_limit"`

	// MaxSpinAttempts bounds a waiter's total attempts; zero means
	// unbounded.
	MaxSpinAttempts int `yaml:"max_spin_attempts" json:"max_spin_attempts"`

	// SleepInterval is the sleep between attempts after SpinLimit.
	SleepInterval time.Duration `yaml:"sleep_interval" json:"sleep_interval"`
}

// NewBackoff builds the wait strategy this section describes.
func (c QueueConfig) NewBackoff() *queue.Backoff {
	return queue.NewBackoffWithStrategy(c.SpinLimit, c.MaxSpinAttempts, c.SleepInterval)
}

// DefaultConfig returns a default configuration.
func DefaultConfig() *Config {
	return &Config{
		App: AppConfig{
			Name:    "molniya-app",
			Version: "1.0.0",
			Debug:   false,
		},
		Log: logging.Config{
			Level:      "info",
			Format:     "json",
			OutputPath: "stdout",
		},
		Scheduler: SchedulerConfig{
			Workers:        1,
			ExtraScheduler: false,
			PollTimeout:    100 * time.Millisecond,
		},
		Queue: QueueConfig{
			RingSize:        1024,
			SegmentSize:     256,
			SpinLimit:       50,
			MaxSpinAttempts: 500,
			SleepInterval:   time.Millisecond,
		},
		Custom: make(map[string]interface{}),
	}
}

// Validate validates the configuration, collecting every violation.
func (c *Config) Validate() error {
	var err error

	if c.App.Name == "" {
		err = multierr.Append(err, ErrInvalidAppName)
	}
	if !validLogLevel(c.Log.Level) {
		err = multierr.Append(err, ErrInvalidLogLevel)
	}

	if c.Scheduler.Workers < 0 {
		err = multierr.Append(err, ErrInvalidWorkers)
	}
	if c.Scheduler.PollTimeout < 0 {
		err = multierr.Append(err, ErrInvalidPollTimeout)
	}

	if !isPowerOfTwo(c.Queue.RingSize) {
		err = multierr.Append(err, ErrInvalidRingSize)
	}
	if !isPowerOfTwo(c.Queue.SegmentSize) {
		err = multierr.Append(err, ErrInvalidSegmentSize)
	}
	if c.Queue.SpinLimit < 0 || c.Queue.MaxSpinAttempts < 0 {
		err = multierr.Append(err, ErrInvalidSpinLimit)
	}
	if c.Queue.SleepInterval < 0 {
		err = multierr.Append(err, ErrInvalidSleepInterval)
	}

	return err
}

func validLogLevel(level string) bool {
	switch level {
	case "", "debug", "info", "warn", "error":
		return true
	default:
		return false
	}
}

func isPowerOfTwo(n uint64) bool {
	return n > 0 && n&(n-1) == 0
}

// IsDebugEnabled returns true if debug mode is enabled.
func (c *Config) IsDebugEnabled() bool {
	return c.App.Debug
}
