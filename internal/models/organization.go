package models

import (
	"regexp"

	"github.com/google/uuid"
	"github.com/safeoutput/backoffice/internal/database/datatype"
)

// OrganizationType classifies the tenant behind an organization.
type OrganizationType string

const (
	OrganizationTypePersonal    OrganizationType = "Personal"
	OrganizationTypeEducational OrganizationType = "Educational"
	OrganizationTypeStartup     OrganizationType = "Startup"
	OrganizationTypeAgency      OrganizationType = "Agency"
	OrganizationTypeGovernment  OrganizationType = "Government"
	OrganizationTypeOther       OrganizationType = "Other"
)

func (t OrganizationType) Valid() bool {
	switch t {
	case OrganizationTypePersonal, OrganizationTypeEducational, OrganizationTypeStartup,
		OrganizationTypeAgency, OrganizationTypeGovernment, OrganizationTypeOther:
		return true
	}
	return false
}

// SubscriptionStatus mirrors the external payment processor's subscription
// state. It is written by the billing integration, never by the core.
type SubscriptionStatus string

const (
	SubscriptionIncomplete        SubscriptionStatus = "incomplete"
	SubscriptionIncompleteExpired SubscriptionStatus = "incomplete_expired"
	SubscriptionTrialing          SubscriptionStatus = "trialing"
	SubscriptionActive            SubscriptionStatus = "active"
	SubscriptionPastDue           SubscriptionStatus = "past_due"
	SubscriptionCanceled          SubscriptionStatus = "canceled"
	SubscriptionUnpaid            SubscriptionStatus = "unpaid"
	SubscriptionPaused            SubscriptionStatus = "paused"
)

func (s SubscriptionStatus) Valid() bool {
	switch s {
	case SubscriptionIncomplete, SubscriptionIncompleteExpired, SubscriptionTrialing,
		SubscriptionActive, SubscriptionPastDue, SubscriptionCanceled,
		SubscriptionUnpaid, SubscriptionPaused:
		return true
	}
	return false
}

var slugPattern = regexp.MustCompile(`^[a-z0-9-]+$`)

// ValidSlug reports whether s is a usable organization slug: non-empty,
// at most 255 chars, lowercase alphanumeric and hyphens only.
func ValidSlug(s string) bool {
	return s != "" && len(s) <= 255 && slugPattern.MatchString(s)
}

// Organization is the top-level tenant scope. Projects, memberships and
// invitations all hang off an organization.
type Organization struct {
	Base
	Name               string              `gorm:"not null" json:"name" example:"Acme"`
	Slug               string              `gorm:"uniqueIndex" json:"slug" example:"acme-42"`
	Type               OrganizationType    `gorm:"type:varchar(32);not null" json:"type" example:"Startup"`
	Metadata           datatype.JSONMap    `json:"metadata"`
	SubscriptionStatus *SubscriptionStatus `gorm:"type:varchar(32)" json:"subscription_status"`
	CurrentPlanID      *uuid.UUID          `gorm:"type:uuid" json:"current_plan_id"`
	StripeCustomerID   *string             `gorm:"type:varchar(255)" json:"-"`
}

// AddOrganization is the payload to create an organization. Slug is
// optional; a random one is generated when absent.
type AddOrganization struct {
	Name          string                 `json:"name" binding:"required,max=255" example:"Acme"`
	Slug          string                 `json:"slug" binding:"omitempty,max=255,slug" example:"acme-42"`
	Type          OrganizationType       `json:"type" binding:"required" example:"Startup"`
	Metadata      map[string]interface{} `json:"metadata"`
	CurrentPlanID *uuid.UUID             `json:"current_plan_id"`
}

// UpdateOrganization is a partial-field patch. Nil fields are left alone.
type UpdateOrganization struct {
	Name               *string                `json:"name" binding:"omitempty,max=255"`
	Slug               *string                `json:"slug" binding:"omitempty,max=255,slug"`
	Type               *OrganizationType      `json:"type"`
	Metadata           map[string]interface{} `json:"metadata"`
	SubscriptionStatus *SubscriptionStatus    `json:"subscription_status"`
	CurrentPlanID      *uuid.UUID             `json:"current_plan_id"`
}

func (p UpdateOrganization) Empty() bool {
	return p.Name == nil && p.Slug == nil && p.Type == nil &&
		p.Metadata == nil && p.SubscriptionStatus == nil && p.CurrentPlanID == nil
}
