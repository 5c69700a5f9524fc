package models

import (
	"time"

	"github.com/google/uuid"
)

// OrganizationMember record means the user is a member of the organization
type OrganizationMember struct {
	OrganizationID uuid.UUID `json:"organization_id" gorm:"type:uuid;primary_key"`
	UserID         uuid.UUID `json:"user_id" gorm:"type:uuid;primary_key"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// ProjectMember record means the user is a member of the project
type ProjectMember struct {
	ProjectID uuid.UUID `json:"project_id" gorm:"type:uuid;primary_key"`
	UserID    uuid.UUID `json:"user_id" gorm:"type:uuid;primary_key"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type AddOrganizationMember struct {
	UserID uuid.UUID `json:"user_id" binding:"required"`
}

// AddProjectMember carries the caller's view of the project's parent
// organization; it must match the project's actual organization_id.
type AddProjectMember struct {
	UserID         uuid.UUID `json:"user_id" binding:"required"`
	OrganizationID uuid.UUID `json:"organization_id" binding:"required"`
}
