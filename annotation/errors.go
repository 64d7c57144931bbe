package annotation

import (
	"errors"
	"fmt"
)

var (
	// ErrZeroCharge is returned when an annotation declares a charge of zero.
	ErrZeroCharge = errors.New("charge must not be zero")

	// ErrConfidenceOutOfRange is returned when a confidence value lies
	// outside [0, 1].
	ErrConfidenceOutOfRange = errors.New("confidence must be within [0, 1]")

	// ErrConfidenceSum is returned when the confidences of alternative
	// annotations for one peak add up to more than one.
	ErrConfidenceSum = errors.New("combined confidence of alternative annotations exceeds 1")
)

// ErrInvalidAnnotation indicates annotation text that does not match the
// grammar. Content is the full input and Position the byte offset at which
// parsing failed.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type ErrInvalidAnnotation struct {
	Content  string
	Position int
	Reason   string
	cause    error
}

func (e *ErrInvalidAnnotation) Error() string {
	return fmt.Sprintf("invalid annotation %q at offset %d: %s", e.Content, e.Position, e.Reason)
}

func (e *ErrInvalidAnnotation) Unwrap() error { return e.cause }

// ErrMalformedAuxiliary indicates an auxiliary annotation whose closing
// bracket is missing.
type ErrMalformedAuxiliary struct {
	Content string
}

func (e *ErrMalformedAuxiliary) Error() string {
	return fmt.Sprintf("auxiliary annotation %q is missing its closing bracket", e.Content)
}
