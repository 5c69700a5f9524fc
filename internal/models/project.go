package models

import (
	"github.com/google/uuid"
	"github.com/safeoutput/backoffice/internal/database/datatype"
)

// Project is a workspace scoped under exactly one organization. Project
// names are unique within their organization, not globally.
type Project struct {
	Base
	Name           string           `gorm:"not null;uniqueIndex:idx_projects_org_name" json:"name" example:"core"`
	OrganizationID uuid.UUID        `gorm:"type:uuid;not null;uniqueIndex:idx_projects_org_name;index" json:"organization_id"`
	Metadata       datatype.JSONMap `json:"metadata"`
}

type AddProject struct {
	Name           string                 `json:"name" binding:"required,max=255" example:"core"`
	OrganizationID uuid.UUID              `json:"organization_id" binding:"required"`
	Metadata       map[string]interface{} `json:"metadata"`
}

type UpdateProject struct {
	Name     *string                `json:"name" binding:"omitempty,max=255"`
	Metadata map[string]interface{} `json:"metadata"`
}

func (p UpdateProject) Empty() bool {
	return p.Name == nil && p.Metadata == nil
}
