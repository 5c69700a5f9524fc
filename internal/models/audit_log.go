package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/safeoutput/backoffice/internal/database/datatype"
	"gorm.io/gorm"
)

// AuditLog is an immutable record of a state-changing operation. Rows are
// only ever inserted by the core; retention cleanup happens out of band.
type AuditLog struct {
	ID         uuid.UUID        `gorm:"type:uuid;primary_key" json:"id"`
	ActorID    *uuid.UUID       `gorm:"type:uuid" json:"actor_id"`
	EntityType string           `gorm:"type:varchar(255);not null;index:idx_audit_logs_entity" json:"entity_type" example:"invitation"`
	EntityID   uuid.UUID        `gorm:"type:uuid;not null;index:idx_audit_logs_entity" json:"entity_id"`
	EventType  string           `gorm:"type:varchar(255);not null" json:"event_type" example:"invitation.created"`
	Diff       datatype.JSONMap `json:"diff"`
	Context    datatype.JSONMap `json:"context"`
	CreatedAt  time.Time        `json:"created_at"`
}

func (a *AuditLog) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// Audit event types recorded by the tenancy stores and the invitation engine.
const (
	EventOrganizationCreated       = "organization.created"
	EventOrganizationUpdated       = "organization.updated"
	EventOrganizationDeleted       = "organization.deleted"
	EventProjectCreated            = "project.created"
	EventProjectUpdated            = "project.updated"
	EventProjectDeleted            = "project.deleted"
	EventOrganizationMemberAdded   = "organization_member.added"
	EventOrganizationMemberRemoved = "organization_member.removed"
	EventProjectMemberAdded        = "project_member.added"
	EventProjectMemberRemoved      = "project_member.removed"
	EventInvitationCreated         = "invitation.created"
	EventInvitationUpdated         = "invitation.updated"
	EventInvitationRedeemed        = "invitation.redeemed"
	EventInvitationRevoked         = "invitation.revoked"
	EventInvitationExpired         = "invitation.expired"
	EventInvitationDeleted         = "invitation.deleted"
)
