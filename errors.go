package redeux

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidPayload       = errors.New("redeux: payload does not meet validator requirements")
	ErrInvalidObserver      = errors.New("redeux: observer id and callback are required")
	ErrObserverPanic        = errors.New("redeux: observer panic")
	ErrUnknownFailurePolicy = errors.New("redeux: unknown failure policy")
)

// ValidationError is returned by PayloadFactory.Create when the computed
// payload is rejected by the factory validator.
type ValidationError struct {
	Type    Tag
	Payload any
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", ErrInvalidPayload.Error(), e.Type)
}

func (e *ValidationError) Is(target error) bool { return target == ErrInvalidPayload }

// ObserverError wraps the failure of a single observer during Flush.
type ObserverError struct {
	ID  Tag
	Err error
}

func (e *ObserverError) Error() string {
	return fmt.Sprintf("redeux: observer %s: %v", e.ID, e.Err)
}

func (e *ObserverError) Unwrap() error { return e.Err }
