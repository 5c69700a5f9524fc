package migration_20240115_0000

import (
	"time"

	"github.com/go-gormigrate/gormigrate/v2"
	"github.com/google/uuid"

	"github.com/safeoutput/backoffice/internal/database/datatype"
	. "github.com/safeoutput/backoffice/internal/database/migrations"
)

// Models are inlined with the migration to freeze the schema at this point
// in time. Later schema changes get their own migration package.

type Base struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key;"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Plan struct {
	Base
	Name        string `gorm:"uniqueIndex;not null"`
	Description string
	PriceCents  int64
	Metadata    datatype.JSONMap
}

type Organization struct {
	Base
	Name               string `gorm:"not null"`
	Slug               string `gorm:"uniqueIndex"`
	Type               string `gorm:"type:varchar(32);not null"`
	Metadata           datatype.JSONMap
	SubscriptionStatus *string    `gorm:"type:varchar(32)"`
	CurrentPlanID      *uuid.UUID `gorm:"type:uuid"`
	CurrentPlan        *Plan      `gorm:"foreignKey:CurrentPlanID;constraint:OnDelete:SET NULL"`
	StripeCustomerID   *string    `gorm:"type:varchar(255)"`
}

type Project struct {
	Base
	Name           string        `gorm:"not null;uniqueIndex:idx_projects_org_name"`
	OrganizationID uuid.UUID     `gorm:"type:uuid;not null;uniqueIndex:idx_projects_org_name;index"`
	Organization   *Organization `gorm:"constraint:OnDelete:CASCADE"`
	Metadata       datatype.JSONMap
}

type OrganizationMember struct {
	OrganizationID uuid.UUID     `gorm:"type:uuid;primary_key"`
	UserID         uuid.UUID     `gorm:"type:uuid;primary_key"`
	Organization   *Organization `gorm:"constraint:OnDelete:CASCADE"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type ProjectMember struct {
	ProjectID uuid.UUID `gorm:"type:uuid;primary_key"`
	UserID    uuid.UUID `gorm:"type:uuid;primary_key"`
	Project   *Project  `gorm:"constraint:OnDelete:CASCADE"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Invitation struct {
	Base
	Scope          string        `gorm:"type:varchar(32);not null"`
	OrganizationID *uuid.UUID    `gorm:"type:uuid;index"`
	Organization   *Organization `gorm:"constraint:OnDelete:CASCADE"`
	ProjectID      *uuid.UUID    `gorm:"type:uuid;index"`
	Project        *Project      `gorm:"constraint:OnDelete:CASCADE"`
	InviterUserID  uuid.UUID     `gorm:"type:uuid;not null"`
	InviteeEmail   string        `gorm:"type:varchar(320);not null"`
	InviteeUserID  *uuid.UUID    `gorm:"type:uuid"`
	Role           *string       `gorm:"type:varchar(64)"`
	Token          string        `gorm:"type:varchar(255);not null;uniqueIndex"`
	Status         string        `gorm:"type:varchar(32);not null;default:pending;index:idx_invitations_status_expires,priority:1"`
	ExpiresAt      *time.Time    `gorm:"index:idx_invitations_status_expires,priority:2"`
	Metadata       datatype.JSONMap
}

type AuditLog struct {
	ID         uuid.UUID  `gorm:"type:uuid;primary_key"`
	ActorID    *uuid.UUID `gorm:"type:uuid"`
	EntityType string     `gorm:"type:varchar(255);not null;index:idx_audit_logs_entity,priority:1"`
	EntityID   uuid.UUID  `gorm:"type:uuid;not null;index:idx_audit_logs_entity,priority:2"`
	EventType  string     `gorm:"type:varchar(255);not null"`
	Diff       datatype.JSONMap
	Context    datatype.JSONMap
	CreatedAt  time.Time
}

func Migrate() *gormigrate.Migration {
	migrationId := "20240115-0000"

	return CreateMigrationFromActions(migrationId,
		CreateTableAction(&Plan{}),
		CreateTableAction(&Organization{}),
		CreateTableAction(&Project{}),
		CreateTableAction(&OrganizationMember{}),
		CreateTableAction(&ProjectMember{}),
		CreateTableAction(&Invitation{}),
		CreateTableAction(&AuditLog{}),
		ExecAction(
			`CREATE INDEX IF NOT EXISTS invitations_email_lower_idx ON invitations (lower(invitee_email))`,
			`DROP INDEX IF EXISTS invitations_email_lower_idx`,
		),
		// At most one pending invitation per (parent, lower(email)) pair,
		// enforced separately per scope.
		ExecAction(
			`CREATE UNIQUE INDEX IF NOT EXISTS invitations_unique_pending_org ON invitations (organization_id, lower(invitee_email)) WHERE scope = 'organization' AND status = 'pending'`,
			`DROP INDEX IF EXISTS invitations_unique_pending_org`,
		),
		ExecAction(
			`CREATE UNIQUE INDEX IF NOT EXISTS invitations_unique_pending_proj ON invitations (project_id, lower(invitee_email)) WHERE scope = 'project' AND status = 'pending'`,
			`DROP INDEX IF EXISTS invitations_unique_pending_proj`,
		),
	)
}
