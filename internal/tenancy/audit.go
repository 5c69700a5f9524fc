package tenancy

import (
	"context"

	"github.com/google/uuid"
	"github.com/safeoutput/backoffice/internal/database/datatype"
	"github.com/safeoutput/backoffice/internal/models"
	"gorm.io/gorm"
)

// AuditRecorder appends immutable event records. Append always runs on the
// caller's transactional handle so an operation and its audit trail commit
// or roll back together; the recorder never commits on its own.
type AuditRecorder struct {
	db *gorm.DB
}

func NewAuditRecorder(db *gorm.DB) *AuditRecorder {
	return &AuditRecorder{db: db}
}

// Append inserts one audit row on tx. ActorID is nil for system-initiated
// events (e.g. invitation expiry sweeps).
func (r *AuditRecorder) Append(tx *gorm.DB, actorID *uuid.UUID, entityType string, entityID uuid.UUID, eventType string, diff, auditContext datatype.JSONMap) error {
	if diff == nil {
		diff = datatype.JSONMap{}
	}
	if auditContext == nil {
		auditContext = datatype.JSONMap{}
	}
	entry := models.AuditLog{
		ActorID:    actorID,
		EntityType: entityType,
		EntityID:   entityID,
		EventType:  eventType,
		Diff:       diff,
		Context:    auditContext,
	}
	return tx.Create(&entry).Error
}

// ListByEntity returns the audit trail for one entity, newest first.
func (r *AuditRecorder) ListByEntity(ctx context.Context, entityType string, entityID uuid.UUID, limit, offset int) ([]models.AuditLog, error) {
	var entries []models.AuditLog
	res := r.db.WithContext(ctx).
		Where("entity_type = ? AND entity_id = ?", entityType, entityID).
		Order("created_at DESC").
		Limit(normalizeLimit(limit)).Offset(offset).
		Find(&entries)
	if res.Error != nil {
		return nil, res.Error
	}
	return entries, nil
}

const (
	defaultListLimit = 50
	maxListLimit     = 1000
)

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}
	if limit > maxListLimit {
		return maxListLimit
	}
	return limit
}
