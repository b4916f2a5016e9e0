// Package config provides error definitions for configuration management.
package config

import "errors"

// Configuration validation errors
var (
	ErrInvalidAppName       = errors.New("invalid application name")
	ErrInvalidLogLevel      = errors.New("invalid log level")
	ErrInvalidWorkers       = errors.New("invalid worker count")
	ErrInvalidPollTimeout   = errors.New("invalid poll timeout")
	ErrInvalidRingSize      = errors.New("ring size must be a power of two")
	ErrInvalidSegmentSize   = errors.New("segment size must be a power of two")
	ErrInvalidSpinLimit     = errors.New("invalid spin limit")
	ErrInvalidSleepInterval = errors.New("invalid sleep interval")
)

// Configuration loading errors
var (
	ErrConfigFileNotFound  = errors.New("configuration file not found")
	ErrConfigParseError    = errors.New("configuration parse error")
	ErrConfigValidateError = errors.New("configuration validation error")
	ErrConfigWatchError    = errors.New("configuration watch error")
)
