package models

import (
	"github.com/safeoutput/backoffice/internal/database/datatype"
)

// Plan is a billing plan an organization can be subscribed to. Plan and
// pricing management live in the billing integration; the core only holds
// the reference target for organization.current_plan_id.
type Plan struct {
	Base
	Name        string           `gorm:"uniqueIndex;not null" json:"name" example:"pro"`
	Description string           `json:"description"`
	PriceCents  int64            `json:"price_cents" example:"2900"`
	Metadata    datatype.JSONMap `json:"metadata"`
}
