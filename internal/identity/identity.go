// Package identity resolves invitee email addresses to principal ids in
// the external identity provider.
package identity

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// ErrUserNotFound is returned when no principal matches the email.
var ErrUserNotFound = fmt.Errorf("user not found")

// Directory looks up principals in the identity provider. The invitation
// flow uses it to attach a known user id to an invitation when the invitee
// already has an account; an unknown email is not an error for callers,
// the invitation simply stays email-addressed.
type Directory interface {
	LookupByEmail(ctx context.Context, email string) (uuid.UUID, error)
}

// StaticDirectory is an in-memory Directory for tests.
type StaticDirectory struct {
	users map[string]uuid.UUID
}

func NewStaticDirectory(users map[string]uuid.UUID) *StaticDirectory {
	if users == nil {
		users = map[string]uuid.UUID{}
	}
	return &StaticDirectory{users: users}
}

func (d *StaticDirectory) LookupByEmail(_ context.Context, email string) (uuid.UUID, error) {
	id, ok := d.users[email]
	if !ok {
		return uuid.Nil, ErrUserNotFound
	}
	return id, nil
}
