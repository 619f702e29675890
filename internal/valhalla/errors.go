package valhalla

import (
	"errors"
	"fmt"
	"time"
)

// Failure labels. Use errors.Is to branch on them.
var (
	ErrPoolTimeout    = errors.New("pool failed to connect")
	ErrQueryTimeout   = errors.New("query timed out")
	ErrOverallTimeout = errors.New("query exceeded overall deadline")
	ErrClosed         = errors.New("valhalla client is closed")
	ErrInvalidRecord  = errors.New("invalid record")
	ErrNotFound       = errors.New("record not found")
)

// TimeoutError is returned when a bounded step does not finish in time.
type TimeoutError struct {
	Label error
	After time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%v after %s", e.Label, e.After)
}

func (e *TimeoutError) Unwrap() error {
	return e.Label
}

// FaultError carries a panic recovered while a connection was leased.
type FaultError struct {
	Value any
}

func (e *FaultError) Error() string {
	return fmt.Sprintf("unexpected fault in withConnection: %v", e.Value)
}

// Outcome labels used in logs and metrics.
const (
	OutcomeSuccess        = "success"
	OutcomePoolTimeout    = "pool_timeout"
	OutcomeQueryTimeout   = "query_timeout"
	OutcomeOverallTimeout = "overall_timeout"
	OutcomeFault          = "fault"
	OutcomeInvalid        = "invalid"
	OutcomeNotFound       = "not_found"
	OutcomeClosed         = "closed"
	OutcomeError          = "error"
)

// OutcomeOf classifies err into one of the outcome labels.
func OutcomeOf(err error) string {
	var fault *FaultError
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.Is(err, ErrPoolTimeout):
		return OutcomePoolTimeout
	case errors.Is(err, ErrQueryTimeout):
		return OutcomeQueryTimeout
	case errors.Is(err, ErrOverallTimeout):
		return OutcomeOverallTimeout
	case errors.As(err, &fault):
		return OutcomeFault
	case errors.Is(err, ErrInvalidRecord):
		return OutcomeInvalid
	case errors.Is(err, ErrNotFound):
		return OutcomeNotFound
	case errors.Is(err, ErrClosed):
		return OutcomeClosed
	default:
		return OutcomeError
	}
}
