package store

import (
	"errors"
	"fmt"

	"lorry-parking-backend/internal/model"
)

// Error classes. Every error returned by the store that callers are expected
// to handle unwraps to one of these.
var (
	ErrValidation = errors.New("validation error")
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
)

var (
	ErrRecordNotFound = fmt.Errorf("record %w", ErrNotFound)
	ErrJobNotFound    = fmt.Errorf("job %w", ErrNotFound)
)

// ValidationError reports input the store refuses to persist.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }
func (e *ValidationError) Unwrap() error { return ErrValidation }

// DuplicateLorryError is returned when a lorry is checked in while an earlier
// record for it is still IN.
type DuplicateLorryError struct {
	Lorry string
	Token int64
}

func (e *DuplicateLorryError) Error() string {
	return fmt.Sprintf("%s is already parked (Token #%d)", e.Lorry, e.Token)
}
func (e *DuplicateLorryError) Unwrap() error { return ErrConflict }

// AlreadyClosedError is returned when checking out a record that is OUT.
type AlreadyClosedError struct {
	Token int64
}

func (e *AlreadyClosedError) Error() string {
	return fmt.Sprintf("Token #%d already exited", e.Token)
}
func (e *AlreadyClosedError) Unwrap() error { return ErrConflict }

// JobFinalizedError is returned when an acknowledgment would move a job from
// one terminal state to the other.
type JobFinalizedError struct {
	ID     int64
	Status model.PrintJobStatus
}

func (e *JobFinalizedError) Error() string {
	return fmt.Sprintf("job %d is already %s", e.ID, e.Status)
}
func (e *JobFinalizedError) Unwrap() error { return ErrConflict }
