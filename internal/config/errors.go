package config

import "errors"

// ErrLoadConfig wraps failures reading defaults, the YAML file or the
// environment; ErrInvalidConfig wraps every Validate failure.
var (
	ErrInvalidConfig = errors.New("invalid config")
	ErrLoadConfig    = errors.New("load config failed")
)
