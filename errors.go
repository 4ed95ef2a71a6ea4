package anzen

import (
	"errors"
	"fmt"
)

// Diagnostic is the human-readable report for a blocked operation. The
// caller owns presentation; the body already contains any suggested
// replacement code.
type Diagnostic struct {
	Header string
	Body   string
}

// ---

// UnsafeOperationError is returned when a built-in rule matches. It is
// fatal to the run: applying the operation anyway could cause production
// downtime, so there is no retry path.
type UnsafeOperationError struct {
	Diagnostic Diagnostic
}

func (e *UnsafeOperationError) Error() string {
	return fmt.Sprintf("%s\n\n%s", e.Diagnostic.Header, e.Diagnostic.Body)
}

// ---

// PolicyViolationError is returned when a user-supplied check blocks an
// operation. Treated exactly like UnsafeOperationError, but sourced from
// organization policy instead of the built-in catalog.
type PolicyViolationError struct {
	Diagnostic Diagnostic
	Err        error
}

func (e *PolicyViolationError) Error() string {
	return fmt.Sprintf("%s\n\n%s", e.Diagnostic.Header, e.Diagnostic.Body)
}

func (e *PolicyViolationError) Unwrap() error {
	return e.Err
}

// ---

// ErrConfiguration marks a defect in the safety configuration (unknown
// rule key, empty message template). Surfaced at construction time, never
// during evaluation.
var ErrConfiguration = errors.New("invalid safety configuration")
