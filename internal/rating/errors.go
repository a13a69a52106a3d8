package rating

import "errors"

// ErrNotFound indicates no rating exists for the requested (subject, rater)
// pair. Callers routinely probe with Get, so this is a lookup miss, not a
// failure.
var ErrNotFound = errors.New("rating: not found")

// ErrNotEligible indicates the rater has not recorded the prerequisite
// engagement (for example a note download) for a proof-gated subject.
var ErrNotEligible = errors.New("rating: rater not eligible for subject")

// ValidationError flags malformed identity input on a mutating operation.
// Score values are never rejected this way; they are clamped instead.
type ValidationError struct {
	msg string
}

func newValidationError(msg string) *ValidationError {
	return &ValidationError{msg: msg}
}

func (e *ValidationError) Error() string {
	return e.msg
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
