package tenancy

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/safeoutput/backoffice/internal/database"
	"github.com/safeoutput/backoffice/internal/database/datatype"
	"github.com/safeoutput/backoffice/internal/models"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var tracer = otel.Tracer("github.com/safeoutput/backoffice/internal/tenancy")

// InvitationEngine drives the invitation lifecycle: creation, redemption,
// revocation and expiry. Status moves one way only, from pending into one
// of the terminal states, and every transition is serialized through a
// status-guarded update so concurrent writers cannot both win.
type InvitationEngine struct {
	db          *gorm.DB
	transaction database.TransactionFunc
	recorder    *AuditRecorder
	logger      *zap.SugaredLogger
}

func NewInvitationEngine(db *gorm.DB, transaction database.TransactionFunc, recorder *AuditRecorder, logger *zap.SugaredLogger) *InvitationEngine {
	return &InvitationEngine{
		db:          db,
		transaction: transaction,
		recorder:    recorder,
		logger:      logger,
	}
}

func generateToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// Create validates scope, parent references and the invitee email, fills
// in a token when the caller did not supply one, and inserts the
// invitation together with its audit record. For project-scoped
// invitations the organization reference is derived from the project; a
// caller-supplied organization_id that disagrees with the project's
// parent is rejected.
func (e *InvitationEngine) Create(ctx context.Context, actorID uuid.UUID, req models.AddInvitation) (*models.Invitation, error) {
	ctx, span := tracer.Start(ctx, "CreateInvitation")
	defer span.End()

	if !req.Scope.Valid() {
		return nil, ValidationError{Field: "scope", Reason: "must be organization or project"}
	}
	switch req.Scope {
	case models.InvitationScopeOrganization:
		if req.OrganizationID == nil {
			return nil, ValidationError{Field: "organization_id", Reason: "required for organization-scoped invitations"}
		}
		if req.ProjectID != nil {
			return nil, ValidationError{Field: "project_id", Reason: "must be empty for organization-scoped invitations"}
		}
	case models.InvitationScopeProject:
		if req.ProjectID == nil {
			return nil, ValidationError{Field: "project_id", Reason: "required for project-scoped invitations"}
		}
	}

	if !strings.Contains(req.InviteeEmail, "@") {
		return nil, ValidationError{Field: "invitee_email", Reason: "not a valid email address"}
	}

	token := req.Token
	if token == "" {
		var err error
		if token, err = generateToken(); err != nil {
			return nil, err
		}
	}
	if len(token) < models.InvitationTokenMinLen || len(token) > models.InvitationTokenMaxLen {
		return nil, ValidationError{Field: "token", Reason: "length out of range"}
	}

	inv := models.Invitation{
		Scope:          req.Scope,
		OrganizationID: req.OrganizationID,
		ProjectID:      req.ProjectID,
		InviterUserID:  actorID,
		InviteeEmail:   req.InviteeEmail,
		Role:           req.Role,
		Token:          token,
		Status:         models.InvitationStatusPending,
		ExpiresAt:      req.ExpiresAt,
		Metadata:       datatype.JSONMap(req.Metadata),
	}
	if inv.Metadata == nil {
		inv.Metadata = datatype.JSONMap{}
	}

	err := e.transaction(ctx, func(tx *gorm.DB) error {
		switch req.Scope {
		case models.InvitationScopeOrganization:
			var org models.Organization
			if res := tx.First(&org, "id = ?", *req.OrganizationID); res.Error != nil {
				if errors.Is(res.Error, gorm.ErrRecordNotFound) {
					return NotFoundError{Resource: "organization"}
				}
				return res.Error
			}
		case models.InvitationScopeProject:
			var proj models.Project
			if res := tx.First(&proj, "id = ?", *req.ProjectID); res.Error != nil {
				if errors.Is(res.Error, gorm.ErrRecordNotFound) {
					return NotFoundError{Resource: "project"}
				}
				return res.Error
			}
			if req.OrganizationID != nil && *req.OrganizationID != proj.OrganizationID {
				return ValidationError{Field: "organization_id", Reason: "does not match the project's organization"}
			}
			orgID := proj.OrganizationID
			inv.OrganizationID = &orgID
		}

		// Pre-check gives a friendly conflict for the common case; the
		// partial unique indexes remain the backstop under races.
		pending, err := e.pendingExistsTx(tx, inv)
		if err != nil {
			return err
		}
		if pending {
			return ConflictError{ID: inv.InviteeEmail}
		}

		if res := tx.Create(&inv); res.Error != nil {
			if database.IsDuplicateError(res.Error) {
				return ConflictError{ID: inv.InviteeEmail}
			}
			return res.Error
		}
		diff := datatype.JSONMap{
			"scope":         string(inv.Scope),
			"invitee_email": inv.InviteeEmail,
		}
		return e.recorder.Append(tx, &actorID, "invitation", inv.ID, models.EventInvitationCreated, diff, nil)
	})
	if err != nil {
		return nil, err
	}
	e.logger.Infow("invitation created", "id", inv.ID, "scope", inv.Scope)
	return &inv, nil
}

func (e *InvitationEngine) pendingExistsTx(tx *gorm.DB, inv models.Invitation) (bool, error) {
	q := tx.Model(&models.Invitation{}).
		Where("scope = ? AND status = ? AND lower(invitee_email) = lower(?)",
			inv.Scope, models.InvitationStatusPending, inv.InviteeEmail)
	if inv.Scope == models.InvitationScopeOrganization {
		q = q.Where("organization_id = ?", *inv.OrganizationID)
	} else {
		q = q.Where("project_id = ?", *inv.ProjectID)
	}
	var count int64
	if res := q.Count(&count); res.Error != nil {
		return false, res.Error
	}
	return count > 0, nil
}

func (e *InvitationEngine) Get(ctx context.Context, id uuid.UUID) (*models.Invitation, error) {
	var inv models.Invitation
	if res := e.db.WithContext(ctx).First(&inv, "id = ?", id); res.Error != nil {
		if errors.Is(res.Error, gorm.ErrRecordNotFound) {
			return nil, NotFoundError{Resource: "invitation"}
		}
		return nil, res.Error
	}
	return &inv, nil
}

func (e *InvitationEngine) GetByToken(ctx context.Context, token string) (*models.Invitation, error) {
	var inv models.Invitation
	if res := e.db.WithContext(ctx).First(&inv, "token = ?", token); res.Error != nil {
		if errors.Is(res.Error, gorm.ErrRecordNotFound) {
			return nil, NotFoundError{Resource: "invitation"}
		}
		return nil, res.Error
	}
	return &inv, nil
}

func (e *InvitationEngine) ListByOrganization(ctx context.Context, orgID uuid.UUID, limit, offset int) ([]models.Invitation, error) {
	var invitations []models.Invitation
	res := e.db.WithContext(ctx).
		Where("organization_id = ?", orgID).
		Order("created_at DESC").
		Limit(normalizeLimit(limit)).Offset(offset).
		Find(&invitations)
	if res.Error != nil {
		return nil, res.Error
	}
	return invitations, nil
}

func (e *InvitationEngine) ListByProject(ctx context.Context, projectID uuid.UUID, limit, offset int) ([]models.Invitation, error) {
	var invitations []models.Invitation
	res := e.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("created_at DESC").
		Limit(normalizeLimit(limit)).Offset(offset).
		Find(&invitations)
	if res.Error != nil {
		return nil, res.Error
	}
	return invitations, nil
}

// Redeem accepts the invitation identified by token on behalf of userID and
// adds the user to the invited organization or project. The transition to
// accepted is a guarded update on the pending status; when two redeemers
// race, exactly one wins and the loser sees InvalidTransitionError.
//
// A lapsed expiry discovered here moves the invitation to expired instead
// and the redeem fails. Redeeming into a membership the user already holds
// succeeds without duplicating the membership row.
func (e *InvitationEngine) Redeem(ctx context.Context, token string, userID uuid.UUID) (*models.Invitation, error) {
	ctx, span := tracer.Start(ctx, "RedeemInvitation")
	defer span.End()

	var inv models.Invitation
	err := e.transaction(ctx, func(tx *gorm.DB) error {
		if res := tx.First(&inv, "token = ?", token); res.Error != nil {
			if errors.Is(res.Error, gorm.ErrRecordNotFound) {
				return NotFoundError{Resource: "invitation"}
			}
			return res.Error
		}
		if inv.Status != models.InvitationStatusPending {
			return InvalidTransitionError{From: inv.Status, To: models.InvitationStatusAccepted}
		}
		if inv.ExpiresAt != nil && !inv.ExpiresAt.After(time.Now()) {
			if err := e.expireTx(tx, &inv, nil); err != nil {
				return err
			}
			return InvalidTransitionError{From: models.InvitationStatusExpired, To: models.InvitationStatusAccepted}
		}

		res := tx.Model(&models.Invitation{}).
			Where("id = ? AND status = ?", inv.ID, models.InvitationStatusPending).
			Updates(map[string]interface{}{
				"status":          models.InvitationStatusAccepted,
				"invitee_user_id": userID,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return InvalidTransitionError{From: inv.Status, To: models.InvitationStatusAccepted}
		}
		inv.Status = models.InvitationStatusAccepted
		inv.InviteeUserID = &userID

		memberAdded := true
		switch inv.Scope {
		case models.InvitationScopeOrganization:
			if _, err := addOrganizationMemberTx(tx, *inv.OrganizationID, userID); err != nil {
				var conflict ConflictError
				if !errors.As(err, &conflict) {
					return err
				}
				memberAdded = false
			}
		case models.InvitationScopeProject:
			if _, err := addProjectMemberTx(tx, *inv.ProjectID, userID); err != nil {
				var conflict ConflictError
				if !errors.As(err, &conflict) {
					return err
				}
				memberAdded = false
			}
		}

		diff := datatype.JSONMap{"invitee_user_id": userID.String()}
		if err := e.recorder.Append(tx, &userID, "invitation", inv.ID, models.EventInvitationRedeemed, diff, nil); err != nil {
			return err
		}
		if !memberAdded {
			return nil
		}
		memberDiff := datatype.JSONMap{"user_id": userID.String()}
		if inv.Scope == models.InvitationScopeOrganization {
			return e.recorder.Append(tx, &userID, "organization", *inv.OrganizationID, models.EventOrganizationMemberAdded, memberDiff, nil)
		}
		return e.recorder.Append(tx, &userID, "project", *inv.ProjectID, models.EventProjectMemberAdded, memberDiff, nil)
	})
	if err != nil {
		return nil, err
	}
	e.logger.Infow("invitation redeemed", "id", inv.ID, "user_id", userID)
	return &inv, nil
}

// Update applies a partial-field patch. A status change must be a legal
// step of the state machine and is applied with the same pending guard
// that Redeem uses.
func (e *InvitationEngine) Update(ctx context.Context, actorID, id uuid.UUID, patch models.UpdateInvitation) (*models.Invitation, error) {
	if patch.Empty() {
		return nil, ValidationError{Field: "patch", Reason: "no fields to update"}
	}
	if patch.Status != nil && !patch.Status.Valid() {
		return nil, ValidationError{Field: "status", Reason: "unknown invitation status"}
	}

	var inv models.Invitation
	err := e.transaction(ctx, func(tx *gorm.DB) error {
		if res := tx.First(&inv, "id = ?", id); res.Error != nil {
			if errors.Is(res.Error, gorm.ErrRecordNotFound) {
				return NotFoundError{Resource: "invitation"}
			}
			return res.Error
		}

		updates := map[string]interface{}{}
		if patch.Status != nil && *patch.Status != inv.Status {
			if !inv.Status.CanTransitionTo(*patch.Status) {
				return InvalidTransitionError{From: inv.Status, To: *patch.Status}
			}
			updates["status"] = *patch.Status
		}
		if patch.InviteeUserID != nil {
			updates["invitee_user_id"] = *patch.InviteeUserID
		}
		if patch.Role != nil {
			updates["role"] = *patch.Role
		}
		if patch.ExpiresAt != nil {
			updates["expires_at"] = *patch.ExpiresAt
		}
		if patch.Metadata != nil {
			updates["metadata"] = datatype.JSONMap(patch.Metadata)
		}
		if len(updates) == 0 {
			return nil
		}

		q := tx.Model(&models.Invitation{}).Where("id = ?", id)
		_, changingStatus := updates["status"]
		if changingStatus {
			q = q.Where("status = ?", models.InvitationStatusPending)
		}
		res := q.Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if changingStatus && res.RowsAffected == 0 {
			return InvalidTransitionError{From: inv.Status, To: *patch.Status}
		}
		if err := tx.First(&inv, "id = ?", id).Error; err != nil {
			return err
		}
		return e.recorder.Append(tx, &actorID, "invitation", id, models.EventInvitationUpdated, datatype.JSONMap(updates), nil)
	})
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

// Revoke pulls a pending invitation. The optional reason is kept with the
// audit record, not on the invitation itself.
func (e *InvitationEngine) Revoke(ctx context.Context, actorID, id uuid.UUID, req models.RevokeInvitation) (*models.Invitation, error) {
	var inv models.Invitation
	err := e.transaction(ctx, func(tx *gorm.DB) error {
		if res := tx.First(&inv, "id = ?", id); res.Error != nil {
			if errors.Is(res.Error, gorm.ErrRecordNotFound) {
				return NotFoundError{Resource: "invitation"}
			}
			return res.Error
		}
		res := tx.Model(&models.Invitation{}).
			Where("id = ? AND status = ?", id, models.InvitationStatusPending).
			Update("status", models.InvitationStatusRevoked)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return InvalidTransitionError{From: inv.Status, To: models.InvitationStatusRevoked}
		}
		inv.Status = models.InvitationStatusRevoked

		auditContext := datatype.JSONMap{}
		if req.Reason != "" {
			auditContext["reason"] = req.Reason
		}
		diff := datatype.JSONMap{"status": string(models.InvitationStatusRevoked)}
		return e.recorder.Append(tx, &actorID, "invitation", id, models.EventInvitationRevoked, diff, auditContext)
	})
	if err != nil {
		return nil, err
	}
	e.logger.Infow("invitation revoked", "id", id)
	return &inv, nil
}

// Delete removes the invitation record in any status. Deletion of a
// pending invitation is allowed and is always audited.
func (e *InvitationEngine) Delete(ctx context.Context, actorID, id uuid.UUID) (bool, error) {
	found := false
	err := e.transaction(ctx, func(tx *gorm.DB) error {
		res := tx.Delete(&models.Invitation{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		found = true
		return e.recorder.Append(tx, &actorID, "invitation", id, models.EventInvitationDeleted, nil, nil)
	})
	if err != nil {
		return false, err
	}
	return found, nil
}

// ExpireOverdue moves every pending invitation whose expiry has lapsed to
// expired and reports how many were swept. The audit records carry no
// actor; the sweep is system-initiated.
func (e *InvitationEngine) ExpireOverdue(ctx context.Context) (int, error) {
	ctx, span := tracer.Start(ctx, "ExpireOverdueInvitations")
	defer span.End()

	expired := 0
	err := e.transaction(ctx, func(tx *gorm.DB) error {
		var overdue []models.Invitation
		res := tx.Where("status = ? AND expires_at IS NOT NULL AND expires_at <= ?",
			models.InvitationStatusPending, time.Now()).
			Find(&overdue)
		if res.Error != nil {
			return res.Error
		}
		for i := range overdue {
			if err := e.expireTx(tx, &overdue[i], nil); err != nil {
				var transition InvalidTransitionError
				if errors.As(err, &transition) {
					continue
				}
				return err
			}
			expired++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if expired > 0 {
		e.logger.Infow("expired overdue invitations", "count", expired)
	}
	return expired, nil
}

func (e *InvitationEngine) expireTx(tx *gorm.DB, inv *models.Invitation, actorID *uuid.UUID) error {
	res := tx.Model(&models.Invitation{}).
		Where("id = ? AND status = ?", inv.ID, models.InvitationStatusPending).
		Update("status", models.InvitationStatusExpired)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return InvalidTransitionError{From: inv.Status, To: models.InvitationStatusExpired}
	}
	inv.Status = models.InvitationStatusExpired
	diff := datatype.JSONMap{"status": string(models.InvitationStatusExpired)}
	return e.recorder.Append(tx, actorID, "invitation", inv.ID, models.EventInvitationExpired, diff, nil)
}
