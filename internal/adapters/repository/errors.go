package repository

import "errors"

// Sentinel kinds for rating store errors.
var (
	ErrNotFound     = errors.New("rating not found")
	ErrExists       = errors.New("rating already exists")
	ErrDuplicateKey = errors.New("duplicate rating key")
)
