package tenancy

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/safeoutput/backoffice/internal/database"
	"github.com/safeoutput/backoffice/internal/database/datatype"
	"github.com/safeoutput/backoffice/internal/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ProjectStore owns project records. Every project is bound to exactly one
// organization; (organization_id, name) is unique.
type ProjectStore struct {
	db          *gorm.DB
	transaction database.TransactionFunc
	recorder    *AuditRecorder
	logger      *zap.SugaredLogger
}

func NewProjectStore(db *gorm.DB, transaction database.TransactionFunc, recorder *AuditRecorder, logger *zap.SugaredLogger) *ProjectStore {
	return &ProjectStore{
		db:          db,
		transaction: transaction,
		recorder:    recorder,
		logger:      logger,
	}
}

func (s *ProjectStore) Create(ctx context.Context, actorID uuid.UUID, req models.AddProject) (*models.Project, error) {
	proj := models.Project{
		Name:           req.Name,
		OrganizationID: req.OrganizationID,
		Metadata:       datatype.JSONMap(req.Metadata),
	}
	if proj.Metadata == nil {
		proj.Metadata = datatype.JSONMap{}
	}

	err := s.transaction(ctx, func(tx *gorm.DB) error {
		var org models.Organization
		if res := tx.First(&org, "id = ?", req.OrganizationID); res.Error != nil {
			if errors.Is(res.Error, gorm.ErrRecordNotFound) {
				return NotFoundError{Resource: "organization"}
			}
			return res.Error
		}
		if res := tx.Create(&proj); res.Error != nil {
			if database.IsDuplicateError(res.Error) {
				return ConflictError{ID: req.Name}
			}
			return res.Error
		}
		diff := datatype.JSONMap{"name": proj.Name, "organization_id": proj.OrganizationID.String()}
		return s.recorder.Append(tx, &actorID, "project", proj.ID, models.EventProjectCreated, diff, nil)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Infow("project created", "id", proj.ID, "organization_id", proj.OrganizationID)
	return &proj, nil
}

func (s *ProjectStore) Get(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	var proj models.Project
	if res := s.db.WithContext(ctx).First(&proj, "id = ?", id); res.Error != nil {
		if errors.Is(res.Error, gorm.ErrRecordNotFound) {
			return nil, NotFoundError{Resource: "project"}
		}
		return nil, res.Error
	}
	return &proj, nil
}

func (s *ProjectStore) ListByOrganization(ctx context.Context, orgID uuid.UUID, limit, offset int) ([]models.Project, error) {
	var projects []models.Project
	res := s.db.WithContext(ctx).
		Where("organization_id = ?", orgID).
		Order("created_at DESC").
		Limit(normalizeLimit(limit)).Offset(offset).
		Find(&projects)
	if res.Error != nil {
		return nil, res.Error
	}
	return projects, nil
}

func (s *ProjectStore) Update(ctx context.Context, actorID, id uuid.UUID, patch models.UpdateProject) (*models.Project, error) {
	if patch.Empty() {
		return nil, ValidationError{Field: "patch", Reason: "no fields to update"}
	}
	updates := map[string]interface{}{}
	if patch.Name != nil {
		updates["name"] = *patch.Name
	}
	if patch.Metadata != nil {
		updates["metadata"] = datatype.JSONMap(patch.Metadata)
	}

	var proj models.Project
	err := s.transaction(ctx, func(tx *gorm.DB) error {
		if res := tx.First(&proj, "id = ?", id); res.Error != nil {
			if errors.Is(res.Error, gorm.ErrRecordNotFound) {
				return NotFoundError{Resource: "project"}
			}
			return res.Error
		}
		if res := tx.Model(&proj).Updates(updates); res.Error != nil {
			if database.IsDuplicateError(res.Error) {
				return ConflictError{ID: id.String()}
			}
			return res.Error
		}
		return s.recorder.Append(tx, &actorID, "project", id, models.EventProjectUpdated, datatype.JSONMap(updates), nil)
	})
	if err != nil {
		return nil, err
	}
	return &proj, nil
}

// Delete removes the project; project memberships and invitations go with
// it via storage cascades.
func (s *ProjectStore) Delete(ctx context.Context, actorID, id uuid.UUID) (bool, error) {
	found := false
	err := s.transaction(ctx, func(tx *gorm.DB) error {
		res := tx.Delete(&models.Project{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		found = true
		return s.recorder.Append(tx, &actorID, "project", id, models.EventProjectDeleted, nil, nil)
	})
	if err != nil {
		return false, err
	}
	return found, nil
}
