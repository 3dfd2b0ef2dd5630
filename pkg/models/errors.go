package models

import (
	"errors"
	"fmt"
)

var (
	// ErrPollingExhausted is returned when no transaction hash was observed within the attempt budget
	ErrPollingExhausted = errors.New("maximum attempts reached, transaction hash is still undefined")
	// ErrTaskCancelled is returned when the relay cancelled the task before assigning a hash
	ErrTaskCancelled = errors.New("relay task cancelled")
	// ErrReceiptUnavailable is returned when the node has no receipt for a transaction hash
	ErrReceiptUnavailable = errors.New("no receipt found for the transaction")
	// ErrUnsponsoredRelay is returned for calls the relay would have to charge to a target that cannot pay it
	ErrUnsponsoredRelay = errors.New("only sponsored relay calls are supported")
)

// ConfigError reports missing or malformed configuration
type ConfigError struct {
	Key string
	Err error
}

func (e *ConfigError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("config error: %v", e.Err)
	}
	return fmt.Sprintf("config error (%s): %v", e.Key, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// NewConfigError creates a ConfigError for a key
func NewConfigError(key string, format string, args ...interface{}) *ConfigError {
	return &ConfigError{Key: key, Err: fmt.Errorf(format, args...)}
}

// EncodingError reports an ABI or argument mismatch while building call data
type EncodingError struct {
	Method string
	Err    error
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("failed to encode %s: %v", e.Method, e.Err)
}

func (e *EncodingError) Unwrap() error {
	return e.Err
}

// RelayError reports a failed request to the relay service
type RelayError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *RelayError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("relay %s failed with status %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("relay %s failed: %v", e.Op, e.Err)
}

func (e *RelayError) Unwrap() error {
	return e.Err
}

// IsNonFatal reports whether err is one of the terminal conditions a run stops on without failing
func IsNonFatal(err error) bool {
	return errors.Is(err, ErrPollingExhausted) ||
		errors.Is(err, ErrTaskCancelled) ||
		errors.Is(err, ErrReceiptUnavailable)
}
