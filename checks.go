package anzen

import (
	"github.com/root-talis/anzen/operation"
)

// Check is a user-supplied safety predicate, for organization-specific
// policy on top of the built-in catalog. A non-nil error blocks the run.
// Returning an *UnsafeOperationError reuses the engine's own halting
// mechanism and surfaces that diagnostic verbatim; any other error is
// reported as a policy violation.
//
// Checks run for every non-exempt operation, after the built-in rules, in
// registration order.
type Check func(op operation.Operation) error
