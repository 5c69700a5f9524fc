// Package authz decides whether a principal may act on an organization or
// project scope.
package authz

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/safeoutput/backoffice/internal/tenancy"
)

// Action names the operation being gated.
type Action string

const (
	ActionWrite  Action = "write"
	ActionInvite Action = "invite"
)

// PermissionChecker answers permission questions for the HTTP layer. A
// false answer with a nil error means the caller is simply not allowed.
type PermissionChecker interface {
	CanActOnOrganization(ctx context.Context, userID, orgID uuid.UUID, action Action) (bool, error)
	CanActOnProject(ctx context.Context, userID, projectID uuid.UUID, action Action) (bool, error)
}

// MembershipChecker grants any member of a scope every action on it.
// Role-graded permissions can replace this without touching the callers.
type MembershipChecker struct {
	members  *tenancy.MembershipStore
	projects *tenancy.ProjectStore
}

func NewMembershipChecker(members *tenancy.MembershipStore, projects *tenancy.ProjectStore) *MembershipChecker {
	return &MembershipChecker{members: members, projects: projects}
}

func (c *MembershipChecker) CanActOnOrganization(ctx context.Context, userID, orgID uuid.UUID, _ Action) (bool, error) {
	return c.members.IsOrganizationMember(ctx, orgID, userID)
}

// CanActOnProject allows project members and members of the project's
// parent organization.
func (c *MembershipChecker) CanActOnProject(ctx context.Context, userID, projectID uuid.UUID, _ Action) (bool, error) {
	isMember, err := c.members.IsProjectMember(ctx, projectID, userID)
	if err != nil || isMember {
		return isMember, err
	}
	proj, err := c.projects.Get(ctx, projectID)
	if err != nil {
		var notFound tenancy.NotFoundError
		if errors.As(err, &notFound) {
			return false, nil
		}
		return false, err
	}
	return c.members.IsOrganizationMember(ctx, proj.OrganizationID, userID)
}
