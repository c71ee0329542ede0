package model

import "errors"

// Sentinel kinds for model errors.
var (
	ErrUnknownDomain = errors.New("unknown domain")
)
