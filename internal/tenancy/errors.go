package tenancy

import (
	"fmt"

	"github.com/safeoutput/backoffice/internal/models"
)

// The stores and the invitation engine report failures through this small
// taxonomy. Anything not covered here is an unexpected store failure and is
// returned as-is for the caller to treat as internal.

// NotFoundError means the referenced entity does not exist.
type NotFoundError struct {
	Resource string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s not found", e.Resource)
}

// ValidationError means the input was rejected before any persistence
// was attempted.
type ValidationError struct {
	Field  string
	Reason string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// ConflictError means a uniqueness constraint was violated: duplicate slug,
// duplicate pending invitation, duplicate membership.
type ConflictError struct {
	ID string
}

func (e ConflictError) Error() string {
	return "resource already exists"
}

// InvalidTransitionError means a status change violated the one-directional
// invitation state machine.
type InvalidTransitionError struct {
	From models.InvitationStatus
	To   models.InvitationStatus
}

func (e InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid status transition from %s to %s", e.From, e.To)
}
