package emotion

import (
	"errors"
	"fmt"
	"time"
)

// ErrNoFace means the frame held no face, or no expression scored high enough.
// It is a normal polling outcome, not a failure.
var ErrNoFace = errors.New("no face found")

// CapabilityError means the runtime lacks the acceleration the model needs.
// It is never masked by degraded mode.
type CapabilityError struct {
	Reason string
}

func (e *CapabilityError) Error() string {
	if e.Reason == "" {
		return "emotion detection is not supported on this device"
	}
	return e.Reason
}

// ConnectivityError means model weights or another remote asset could not be fetched.
type ConnectivityError struct {
	Err error
}

func (e *ConnectivityError) Error() string {
	return fmt.Sprintf("could not load face detection models, check your internet connection: %v", e.Err)
}

func (e *ConnectivityError) Unwrap() error { return e.Err }

// TimeoutError means inference ran past its wall-clock budget.
type TimeoutError struct {
	Budget time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("detection timeout after %s", e.Budget)
}

// IsCapability reports whether err is or wraps a *CapabilityError.
func IsCapability(err error) bool {
	var ce *CapabilityError
	return errors.As(err, &ce)
}

// IsConnectivity reports whether err is or wraps a *ConnectivityError.
func IsConnectivity(err error) bool {
	var ce *ConnectivityError
	return errors.As(err, &ce)
}
