package domain

import (
	"errors"
	"fmt"
	"time"
)

// Submission-time error kinds. Each maps to a distinct, user-actionable
// message: the uploader needs to know which constraint to fix.
var (
	ErrRateLimited       = errors.New("import rate limited")
	ErrPayloadTooLarge   = errors.New("payload too large")
	ErrEmptyInput        = errors.New("empty input")
	ErrTooManyRows       = errors.New("too many rows")
	ErrInvalidEntityType = errors.New("invalid entity type")

	ErrJobNotFound = errors.New("import job not found")
	ErrTemporary   = errors.New("temporary failure")
)

// RateLimitError carries the remaining wait so the caller can surface
// "wait N seconds" instead of a generic failure.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited: retry in %d seconds", int(e.RetryAfter.Seconds()))
}

func (e *RateLimitError) Unwrap() error { return ErrRateLimited }

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
