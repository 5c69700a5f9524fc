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

// MembershipStore owns organization and project membership records.
type MembershipStore struct {
	db          *gorm.DB
	transaction database.TransactionFunc
	recorder    *AuditRecorder
	logger      *zap.SugaredLogger
}

func NewMembershipStore(db *gorm.DB, transaction database.TransactionFunc, recorder *AuditRecorder, logger *zap.SugaredLogger) *MembershipStore {
	return &MembershipStore{
		db:          db,
		transaction: transaction,
		recorder:    recorder,
		logger:      logger,
	}
}

// addOrganizationMemberTx inserts the membership row on the caller's
// transaction. A duplicate insert comes back as ConflictError so callers
// can decide whether duplication is an error for them.
func addOrganizationMemberTx(tx *gorm.DB, orgID, userID uuid.UUID) (*models.OrganizationMember, error) {
	member := models.OrganizationMember{
		OrganizationID: orgID,
		UserID:         userID,
	}
	if res := tx.Create(&member); res.Error != nil {
		if database.IsDuplicateError(res.Error) {
			return nil, ConflictError{ID: userID.String()}
		}
		return nil, res.Error
	}
	return &member, nil
}

func addProjectMemberTx(tx *gorm.DB, projectID, userID uuid.UUID) (*models.ProjectMember, error) {
	member := models.ProjectMember{
		ProjectID: projectID,
		UserID:    userID,
	}
	if res := tx.Create(&member); res.Error != nil {
		if database.IsDuplicateError(res.Error) {
			return nil, ConflictError{ID: userID.String()}
		}
		return nil, res.Error
	}
	return &member, nil
}

func (s *MembershipStore) AddOrganizationMember(ctx context.Context, actorID, orgID uuid.UUID, req models.AddOrganizationMember) (*models.OrganizationMember, error) {
	var member *models.OrganizationMember
	err := s.transaction(ctx, func(tx *gorm.DB) error {
		var org models.Organization
		if res := tx.First(&org, "id = ?", orgID); res.Error != nil {
			if errors.Is(res.Error, gorm.ErrRecordNotFound) {
				return NotFoundError{Resource: "organization"}
			}
			return res.Error
		}
		var err error
		if member, err = addOrganizationMemberTx(tx, orgID, req.UserID); err != nil {
			return err
		}
		diff := datatype.JSONMap{"user_id": req.UserID.String()}
		return s.recorder.Append(tx, &actorID, "organization", orgID, models.EventOrganizationMemberAdded, diff, nil)
	})
	if err != nil {
		return nil, err
	}
	return member, nil
}

// AddProjectMember rejects the request when the caller's view of the parent
// organization disagrees with the project's actual organization_id.
func (s *MembershipStore) AddProjectMember(ctx context.Context, actorID, projectID uuid.UUID, req models.AddProjectMember) (*models.ProjectMember, error) {
	var member *models.ProjectMember
	err := s.transaction(ctx, func(tx *gorm.DB) error {
		var proj models.Project
		if res := tx.First(&proj, "id = ?", projectID); res.Error != nil {
			if errors.Is(res.Error, gorm.ErrRecordNotFound) {
				return NotFoundError{Resource: "project"}
			}
			return res.Error
		}
		if proj.OrganizationID != req.OrganizationID {
			return ValidationError{Field: "organization_id", Reason: "does not match the project's organization"}
		}
		var err error
		if member, err = addProjectMemberTx(tx, projectID, req.UserID); err != nil {
			return err
		}
		diff := datatype.JSONMap{"user_id": req.UserID.String()}
		return s.recorder.Append(tx, &actorID, "project", projectID, models.EventProjectMemberAdded, diff, nil)
	})
	if err != nil {
		return nil, err
	}
	return member, nil
}

// RemoveOrganizationMember is idempotent; removing an absent membership
// reports found=false and writes no audit record.
func (s *MembershipStore) RemoveOrganizationMember(ctx context.Context, actorID, orgID, userID uuid.UUID) (bool, error) {
	found := false
	err := s.transaction(ctx, func(tx *gorm.DB) error {
		res := tx.Delete(&models.OrganizationMember{}, "organization_id = ? AND user_id = ?", orgID, userID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		found = true
		diff := datatype.JSONMap{"user_id": userID.String()}
		return s.recorder.Append(tx, &actorID, "organization", orgID, models.EventOrganizationMemberRemoved, diff, nil)
	})
	if err != nil {
		return false, err
	}
	return found, nil
}

func (s *MembershipStore) RemoveProjectMember(ctx context.Context, actorID, projectID, userID uuid.UUID) (bool, error) {
	found := false
	err := s.transaction(ctx, func(tx *gorm.DB) error {
		res := tx.Delete(&models.ProjectMember{}, "project_id = ? AND user_id = ?", projectID, userID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		found = true
		diff := datatype.JSONMap{"user_id": userID.String()}
		return s.recorder.Append(tx, &actorID, "project", projectID, models.EventProjectMemberRemoved, diff, nil)
	})
	if err != nil {
		return false, err
	}
	return found, nil
}

func (s *MembershipStore) ListOrganizationMembers(ctx context.Context, orgID uuid.UUID, limit, offset int) ([]models.OrganizationMember, error) {
	var members []models.OrganizationMember
	res := s.db.WithContext(ctx).
		Where("organization_id = ?", orgID).
		Order("created_at DESC").
		Limit(normalizeLimit(limit)).Offset(offset).
		Find(&members)
	if res.Error != nil {
		return nil, res.Error
	}
	return members, nil
}

func (s *MembershipStore) ListProjectMembers(ctx context.Context, projectID uuid.UUID, limit, offset int) ([]models.ProjectMember, error) {
	var members []models.ProjectMember
	res := s.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("created_at DESC").
		Limit(normalizeLimit(limit)).Offset(offset).
		Find(&members)
	if res.Error != nil {
		return nil, res.Error
	}
	return members, nil
}

// ListOrganizationsForUser returns every organization the user belongs to.
func (s *MembershipStore) ListOrganizationsForUser(ctx context.Context, userID uuid.UUID) ([]models.Organization, error) {
	var orgs []models.Organization
	res := s.db.WithContext(ctx).
		Joins("JOIN organization_members ON organization_members.organization_id = organizations.id").
		Where("organization_members.user_id = ?", userID).
		Order("organizations.created_at DESC").
		Find(&orgs)
	if res.Error != nil {
		return nil, res.Error
	}
	return orgs, nil
}

func (s *MembershipStore) ListProjectsForUser(ctx context.Context, userID uuid.UUID) ([]models.Project, error) {
	var projects []models.Project
	res := s.db.WithContext(ctx).
		Joins("JOIN project_members ON project_members.project_id = projects.id").
		Where("project_members.user_id = ?", userID).
		Order("projects.created_at DESC").
		Find(&projects)
	if res.Error != nil {
		return nil, res.Error
	}
	return projects, nil
}

func (s *MembershipStore) IsOrganizationMember(ctx context.Context, orgID, userID uuid.UUID) (bool, error) {
	var count int64
	res := s.db.WithContext(ctx).Model(&models.OrganizationMember{}).
		Where("organization_id = ? AND user_id = ?", orgID, userID).
		Count(&count)
	if res.Error != nil {
		return false, res.Error
	}
	return count > 0, nil
}

func (s *MembershipStore) IsProjectMember(ctx context.Context, projectID, userID uuid.UUID) (bool, error) {
	var count int64
	res := s.db.WithContext(ctx).Model(&models.ProjectMember{}).
		Where("project_id = ? AND user_id = ?", projectID, userID).
		Count(&count)
	if res.Error != nil {
		return false, res.Error
	}
	return count > 0, nil
}
