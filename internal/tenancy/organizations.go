package tenancy

import (
	"context"
	"crypto/rand"
	"errors"
	"math/big"

	"github.com/google/uuid"
	"github.com/safeoutput/backoffice/internal/database"
	"github.com/safeoutput/backoffice/internal/database/datatype"
	"github.com/safeoutput/backoffice/internal/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// OrganizationStore owns organization records. All mutations run inside one
// coordinator transaction together with their audit records.
type OrganizationStore struct {
	db          *gorm.DB
	transaction database.TransactionFunc
	recorder    *AuditRecorder
	logger      *zap.SugaredLogger
}

func NewOrganizationStore(db *gorm.DB, transaction database.TransactionFunc, recorder *AuditRecorder, logger *zap.SugaredLogger) *OrganizationStore {
	return &OrganizationStore{
		db:          db,
		transaction: transaction,
		recorder:    recorder,
		logger:      logger,
	}
}

// Slug generation feeds from the same restricted alphabet the slug format
// allows. 12 chars over 37 symbols makes collisions vanishingly unlikely;
// a collision still surfaces as ConflictError via the unique index.
const (
	slugAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789-"
	slugLength   = 12
)

func generateSlug() (string, error) {
	buf := make([]byte, slugLength)
	max := big.NewInt(int64(len(slugAlphabet)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		buf[i] = slugAlphabet[n.Int64()]
	}
	return string(buf), nil
}

// Create inserts the organization and makes ownerID its first member in the
// same transaction.
func (s *OrganizationStore) Create(ctx context.Context, ownerID uuid.UUID, req models.AddOrganization) (*models.Organization, error) {
	slug := req.Slug
	if slug == "" {
		var err error
		if slug, err = generateSlug(); err != nil {
			return nil, err
		}
	}
	if !models.ValidSlug(slug) {
		return nil, ValidationError{Field: "slug", Reason: "must be lowercase alphanumeric or hyphen"}
	}
	if !req.Type.Valid() {
		return nil, ValidationError{Field: "type", Reason: "unknown organization type"}
	}

	org := models.Organization{
		Name:          req.Name,
		Slug:          slug,
		Type:          req.Type,
		Metadata:      datatype.JSONMap(req.Metadata),
		CurrentPlanID: req.CurrentPlanID,
	}
	if org.Metadata == nil {
		org.Metadata = datatype.JSONMap{}
	}

	err := s.transaction(ctx, func(tx *gorm.DB) error {
		if res := tx.Create(&org); res.Error != nil {
			if database.IsDuplicateError(res.Error) {
				return ConflictError{ID: slug}
			}
			return res.Error
		}
		if _, err := addOrganizationMemberTx(tx, org.ID, ownerID); err != nil {
			return err
		}
		diff := datatype.JSONMap{"name": org.Name, "slug": org.Slug, "type": string(org.Type)}
		return s.recorder.Append(tx, &ownerID, "organization", org.ID, models.EventOrganizationCreated, diff, nil)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Infow("organization created", "id", org.ID, "slug", org.Slug)
	return &org, nil
}

func (s *OrganizationStore) Get(ctx context.Context, id uuid.UUID) (*models.Organization, error) {
	var org models.Organization
	if res := s.db.WithContext(ctx).First(&org, "id = ?", id); res.Error != nil {
		if errors.Is(res.Error, gorm.ErrRecordNotFound) {
			return nil, NotFoundError{Resource: "organization"}
		}
		return nil, res.Error
	}
	return &org, nil
}

func (s *OrganizationStore) GetBySlug(ctx context.Context, slug string) (*models.Organization, error) {
	var org models.Organization
	if res := s.db.WithContext(ctx).First(&org, "slug = ?", slug); res.Error != nil {
		if errors.Is(res.Error, gorm.ErrRecordNotFound) {
			return nil, NotFoundError{Resource: "organization"}
		}
		return nil, res.Error
	}
	return &org, nil
}

func (s *OrganizationStore) List(ctx context.Context, limit, offset int) ([]models.Organization, error) {
	var orgs []models.Organization
	res := s.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(normalizeLimit(limit)).Offset(offset).
		Find(&orgs)
	if res.Error != nil {
		return nil, res.Error
	}
	return orgs, nil
}

func (s *OrganizationStore) ListByType(ctx context.Context, orgType models.OrganizationType, limit, offset int) ([]models.Organization, error) {
	var orgs []models.Organization
	res := s.db.WithContext(ctx).
		Where("type = ?", orgType).
		Order("created_at DESC").
		Limit(normalizeLimit(limit)).Offset(offset).
		Find(&orgs)
	if res.Error != nil {
		return nil, res.Error
	}
	return orgs, nil
}

// Update applies a partial-field patch and audits the applied diff.
func (s *OrganizationStore) Update(ctx context.Context, actorID, id uuid.UUID, patch models.UpdateOrganization) (*models.Organization, error) {
	if patch.Empty() {
		return nil, ValidationError{Field: "patch", Reason: "no fields to update"}
	}
	updates := map[string]interface{}{}
	if patch.Name != nil {
		updates["name"] = *patch.Name
	}
	if patch.Slug != nil {
		if !models.ValidSlug(*patch.Slug) {
			return nil, ValidationError{Field: "slug", Reason: "must be lowercase alphanumeric or hyphen"}
		}
		updates["slug"] = *patch.Slug
	}
	if patch.Type != nil {
		if !patch.Type.Valid() {
			return nil, ValidationError{Field: "type", Reason: "unknown organization type"}
		}
		updates["type"] = *patch.Type
	}
	if patch.Metadata != nil {
		updates["metadata"] = datatype.JSONMap(patch.Metadata)
	}
	if patch.SubscriptionStatus != nil {
		if !patch.SubscriptionStatus.Valid() {
			return nil, ValidationError{Field: "subscription_status", Reason: "unknown subscription status"}
		}
		updates["subscription_status"] = *patch.SubscriptionStatus
	}
	if patch.CurrentPlanID != nil {
		updates["current_plan_id"] = *patch.CurrentPlanID
	}

	var org models.Organization
	err := s.transaction(ctx, func(tx *gorm.DB) error {
		if res := tx.First(&org, "id = ?", id); res.Error != nil {
			if errors.Is(res.Error, gorm.ErrRecordNotFound) {
				return NotFoundError{Resource: "organization"}
			}
			return res.Error
		}
		if res := tx.Model(&org).Updates(updates); res.Error != nil {
			if database.IsDuplicateError(res.Error) {
				return ConflictError{ID: id.String()}
			}
			return res.Error
		}
		return s.recorder.Append(tx, &actorID, "organization", id, models.EventOrganizationUpdated, datatype.JSONMap(updates), nil)
	})
	if err != nil {
		return nil, err
	}
	return &org, nil
}

// Delete removes the organization. Dependent projects, memberships and
// invitations are cleaned up by the storage layer's cascade rules.
func (s *OrganizationStore) Delete(ctx context.Context, actorID, id uuid.UUID) (bool, error) {
	found := false
	err := s.transaction(ctx, func(tx *gorm.DB) error {
		res := tx.Delete(&models.Organization{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		found = true
		return s.recorder.Append(tx, &actorID, "organization", id, models.EventOrganizationDeleted, nil, nil)
	})
	if err != nil {
		return false, err
	}
	return found, nil
}
