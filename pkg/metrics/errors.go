package metrics

import "errors"

// ErrRegister wraps collector registration failures other than a collector
// that is already registered.
var ErrRegister = errors.New("metrics register failed")
