package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/safeoutput/backoffice/internal/database/datatype"
)

// InvitationScope selects which parent reference is authoritative for an
// invitation: the organization or one of its projects.
type InvitationScope string

const (
	InvitationScopeOrganization InvitationScope = "organization"
	InvitationScopeProject      InvitationScope = "project"
)

func (s InvitationScope) Valid() bool {
	return s == InvitationScopeOrganization || s == InvitationScopeProject
}

// InvitationStatus is the invitation state machine. Transitions are
// one-directional: pending may move to accepted, revoked or expired;
// the three terminal states never move again.
type InvitationStatus string

const (
	InvitationStatusPending  InvitationStatus = "pending"
	InvitationStatusAccepted InvitationStatus = "accepted"
	InvitationStatusRevoked  InvitationStatus = "revoked"
	InvitationStatusExpired  InvitationStatus = "expired"
)

func (s InvitationStatus) Valid() bool {
	switch s {
	case InvitationStatusPending, InvitationStatusAccepted,
		InvitationStatusRevoked, InvitationStatusExpired:
		return true
	}
	return false
}

// CanTransitionTo reports whether moving from s to next is a legal
// state-machine step.
func (s InvitationStatus) CanTransitionTo(next InvitationStatus) bool {
	if s != InvitationStatusPending {
		return false
	}
	switch next {
	case InvitationStatusAccepted, InvitationStatusRevoked, InvitationStatusExpired:
		return true
	}
	return false
}

// Invitation token length bounds. Tokens are opaque secure random strings;
// anything in range is accepted from callers.
const (
	InvitationTokenMinLen = 16
	InvitationTokenMaxLen = 255
)

// Invitation is a request for a user, addressed by email, to join an
// organization or a project.
type Invitation struct {
	Base
	Scope          InvitationScope  `gorm:"type:varchar(32);not null" json:"scope" example:"organization"`
	OrganizationID *uuid.UUID       `gorm:"type:uuid;index" json:"organization_id"`
	ProjectID      *uuid.UUID       `gorm:"type:uuid;index" json:"project_id"`
	InviterUserID  uuid.UUID        `gorm:"type:uuid;not null" json:"inviter_user_id"`
	InviteeEmail   string           `gorm:"type:varchar(320);not null" json:"invitee_email" example:"a@b.com"`
	InviteeUserID  *uuid.UUID       `gorm:"type:uuid" json:"invitee_user_id"`
	Role           *string          `gorm:"type:varchar(64)" json:"role" example:"member"`
	Token          string           `gorm:"type:varchar(255);not null;uniqueIndex" json:"token"`
	Status         InvitationStatus `gorm:"type:varchar(32);not null;default:pending" json:"status" example:"pending"`
	ExpiresAt      *time.Time       `json:"expires_at"`
	Metadata       datatype.JSONMap `json:"metadata"`
}

// AddInvitation is the payload to create an invitation. Exactly one of
// OrganizationID/ProjectID must be set, consistent with Scope; for
// project-scoped invitations a supplied OrganizationID is only accepted
// when it matches the project's actual parent. Token is optional; the
// engine generates one when absent.
type AddInvitation struct {
	Scope          InvitationScope        `json:"scope" binding:"required" example:"organization"`
	OrganizationID *uuid.UUID             `json:"organization_id"`
	ProjectID      *uuid.UUID             `json:"project_id"`
	InviteeEmail   string                 `json:"invitee_email" binding:"required,email,max=320" example:"a@b.com"`
	Role           *string                `json:"role" binding:"omitempty,max=64"`
	Token          string                 `json:"token" binding:"omitempty,min=16,max=255"`
	ExpiresAt      *time.Time             `json:"expires_at"`
	Metadata       map[string]interface{} `json:"metadata"`
}

// UpdateInvitation is a partial-field patch. Status changes must follow
// the one-directional transition rule.
type UpdateInvitation struct {
	Status        *InvitationStatus      `json:"status"`
	InviteeUserID *uuid.UUID             `json:"invitee_user_id"`
	Role          *string                `json:"role" binding:"omitempty,max=64"`
	ExpiresAt     *time.Time             `json:"expires_at"`
	Metadata      map[string]interface{} `json:"metadata"`
}

func (p UpdateInvitation) Empty() bool {
	return p.Status == nil && p.InviteeUserID == nil && p.Role == nil &&
		p.ExpiresAt == nil && p.Metadata == nil
}

// RevokeInvitation optionally records why a pending invitation was pulled.
type RevokeInvitation struct {
	Reason string `json:"reason" binding:"omitempty,max=255"`
}
