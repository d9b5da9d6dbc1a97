package stripclust

import (
	"errors"
	"fmt"
)

// ErrorType represents categories of errors
type ErrorType int

const (
	// Malformed input records or ordering
	ErrTypeInput ErrorType = iota
	// Preallocated capacity exceeded
	ErrTypeCapacity
	// Numerical degeneracy that could not be handled locally
	ErrTypeNumerical
	// Broken algorithm invariant
	ErrTypeInvariant
	// Device runtime failures
	ErrTypeDevice
	// Invalid configuration
	ErrTypeConfig
)

// ClusterError represents a structured error with context. SeedIndex and
// DetID are set for errors raised while processing a particular cluster
// and are -1 / 0 otherwise.
type ClusterError struct {
	Type      ErrorType
	Op        string // Operation that failed
	Message   string // Human-readable message
	Err       error  // Underlying error if any
	SeedIndex int
	DetID     uint32
}

// Error implements the error interface
func (e *ClusterError) Error() string {
	msg := e.Message
	if e.SeedIndex >= 0 {
		msg = fmt.Sprintf("%s (seed index %d, det id %d)", msg, e.SeedIndex, e.DetID)
	}
	if e.Err != nil {
		return fmt.Sprintf("stripclust %s error in %s: %s (caused by: %v)",
			e.Type.String(), e.Op, msg, e.Err)
	}
	return fmt.Sprintf("stripclust %s error in %s: %s", e.Type.String(), e.Op, msg)
}

// Unwrap allows error chain inspection
func (e *ClusterError) Unwrap() error {
	return e.Err
}

// String returns the error type as a string
func (t ErrorType) String() string {
	switch t {
	case ErrTypeInput:
		return "Input"
	case ErrTypeCapacity:
		return "Capacity"
	case ErrTypeNumerical:
		return "Numerical"
	case ErrTypeInvariant:
		return "Invariant"
	case ErrTypeDevice:
		return "Device"
	case ErrTypeConfig:
		return "Config"
	default:
		return "Unknown"
	}
}

// NewInputError creates an input error
func NewInputError(op, message string, err error) error {
	return &ClusterError{Type: ErrTypeInput, Op: op, Message: message, Err: err, SeedIndex: -1}
}

// NewCapacityError creates a capacity error
func NewCapacityError(op, message string) error {
	return &ClusterError{Type: ErrTypeCapacity, Op: op, Message: message, SeedIndex: -1}
}

// NewDeviceError wraps a device runtime failure
func NewDeviceError(op, message string, err error) error {
	return &ClusterError{Type: ErrTypeDevice, Op: op, Message: message, Err: err, SeedIndex: -1}
}

// NewConfigError creates a configuration error
func NewConfigError(op, message string) error {
	return &ClusterError{Type: ErrTypeConfig, Op: op, Message: message, SeedIndex: -1}
}

// newClusterError reports a failure tied to one cluster.
func newClusterError(t ErrorType, op, message string, seedIndex int, detID uint32) error {
	return &ClusterError{Type: t, Op: op, Message: message, SeedIndex: seedIndex, DetID: detID}
}

func isType(err error, t ErrorType) bool {
	var e *ClusterError
	return errors.As(err, &e) && e.Type == t
}

// IsInputError checks if an error is an input error
func IsInputError(err error) bool { return isType(err, ErrTypeInput) }

// IsCapacityError checks if an error is a capacity error
func IsCapacityError(err error) bool { return isType(err, ErrTypeCapacity) }

// IsInvariantError checks if an error is an invariant violation
func IsInvariantError(err error) bool { return isType(err, ErrTypeInvariant) }

// IsDeviceError checks if an error is a device error
func IsDeviceError(err error) bool { return isType(err, ErrTypeDevice) }

// IsConfigError checks if an error is a configuration error
func IsConfigError(err error) bool { return isType(err, ErrTypeConfig) }
