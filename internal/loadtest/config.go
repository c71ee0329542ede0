// Package loadtest drives a running ratebook server with generated ratings
// and checks that every accepted rating reads back unchanged.
package loadtest

import (
	"errors"
	"fmt"
	"time"

	"github.com/okian/ratebook/internal/domain/model"
)

// Defaults used when a Config field is zero.
const (
	DefaultOwners  = 20
	DefaultItems   = 50
	DefaultTimeout = 30 * time.Second
)

// ErrConfig reports an unusable Config.
var ErrConfig = errors.New("invalid load test config")

// Config holds configuration for a load test run.
type Config struct {
	BaseURL    string        // Base URL of the service
	Domain     model.Domain  // Collection the server was started with
	Owners     int           // Number of generated owners
	Items      int           // Number of generated items
	Workers    int           // Concurrent requests in flight
	Timeout    time.Duration // Per-request timeout
	OutputFile string        // Optional ratings document of what was sent
}

// Stats holds run statistics.
type Stats struct {
	Generated  int
	Submitted  int
	Created    int
	Updated    int
	Failed     int
	Verified   int
	Mismatched int
	StartTime  time.Time
	EndTime    time.Time
	Duration   time.Duration
}

func (c *Config) withDefaults() error {
	if c.BaseURL == "" {
		return fmt.Errorf("%w: base url is required", ErrConfig)
	}
	if c.Domain.Name == "" {
		return fmt.Errorf("%w: domain is required", ErrConfig)
	}
	if c.Owners < 0 || c.Items < 0 || c.Workers < 0 {
		return fmt.Errorf("%w: counts must not be negative", ErrConfig)
	}
	if c.Owners == 0 {
		c.Owners = DefaultOwners
	}
	if c.Items == 0 {
		c.Items = DefaultItems
	}
	if c.Workers == 0 {
		c.Workers = defaultWorkers()
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	return nil
}
