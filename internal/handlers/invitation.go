package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/safeoutput/backoffice/internal/authz"
	"github.com/safeoutput/backoffice/internal/identity"
	"github.com/safeoutput/backoffice/internal/models"
	"go.opentelemetry.io/otel/attribute"
)

// invitationScopeAllowed gates an invitation operation on membership of the
// invited scope. It writes the failure response itself and reports whether
// the handler may proceed.
func (api *API) invitationScopeAllowed(c *gin.Context, ctx context.Context, userId uuid.UUID, inv *models.Invitation, action authz.Action) bool {
	var allowed bool
	var err error
	if inv.Scope == models.InvitationScopeProject && inv.ProjectID != nil {
		allowed, err = api.checker.CanActOnProject(ctx, userId, *inv.ProjectID, action)
	} else if inv.OrganizationID != nil {
		allowed, err = api.checker.CanActOnOrganization(ctx, userId, *inv.OrganizationID, action)
	}
	if err != nil {
		api.SendInternalServerError(c, err)
		return false
	}
	if !allowed {
		c.JSON(http.StatusForbidden, models.NewNotAllowedError("not a member of the invited scope"))
		return false
	}
	return true
}

// CreateInvitation creates a new Invitation
// @Summary      Create an Invitation
// @Description  Invites a user by email to join an organization or project
// @Id           CreateInvitation
// @Tags         Invitations
// @Accept       json
// @Produce      json
// @Param        Invitation  body     models.AddInvitation  true  "Add Invitation"
// @Success      201  {object}  models.Invitation
// @Failure      400  {object}  models.ValidationError
// @Failure      404  {object}  models.NotFoundError
// @Failure      409  {object}  models.ConflictsError
// @Failure      500  {object}  models.InternalServerError "Internal Server Error"
// @Router       /api/invitations [post]
func (api *API) CreateInvitation(c *gin.Context) {
	ctx, span := tracer.Start(c.Request.Context(), "CreateInvitation")
	defer span.End()
	userId := api.GetCurrentUserID(c)

	var request models.AddInvitation
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, models.NewBadPayloadError())
		return
	}

	if request.Scope == models.InvitationScopeProject {
		if !api.FlagCheck(c, "project-invitations") {
			return
		}
	}

	// Only members of the invited scope may invite into it. Missing parent
	// references fall through to engine validation.
	if request.OrganizationID != nil || request.ProjectID != nil {
		target := models.Invitation{
			Scope:          request.Scope,
			OrganizationID: request.OrganizationID,
			ProjectID:      request.ProjectID,
		}
		if !api.invitationScopeAllowed(c, ctx, userId, &target, authz.ActionInvite) {
			return
		}
	}

	inv, err := api.invitations.Create(ctx, userId, request)
	if err != nil {
		api.sendError(c, err)
		return
	}

	// Attach the invitee's principal id when the directory already knows
	// the email. An unknown email is fine, the invitation stays
	// email-addressed.
	if api.directory != nil {
		if inviteeID, err := api.directory.LookupByEmail(ctx, inv.InviteeEmail); err == nil {
			updated, err := api.invitations.Update(ctx, userId, inv.ID, models.UpdateInvitation{
				InviteeUserID: &inviteeID,
			})
			if err == nil {
				inv = updated
			}
		} else if !errors.Is(err, identity.ErrUserNotFound) {
			api.logger.Warnw("identity lookup failed", "email", inv.InviteeEmail, "error", err)
		}
	}

	span.SetAttributes(attribute.String("id", inv.ID.String()))
	c.JSON(http.StatusCreated, inv)
}

// GetInvitation gets a specific Invitation
// @Summary      Get an Invitation
// @Id           GetInvitation
// @Tags         Invitations
// @Accept       json
// @Produce      json
// @Param        id   path      string  true "Invitation ID"
// @Success      200  {object}  models.Invitation
// @Failure      400  {object}  models.ValidationError
// @Failure      404  {object}  models.NotFoundError
// @Failure      500  {object}  models.InternalServerError "Internal Server Error"
// @Router       /api/invitations/{id} [get]
func (api *API) GetInvitation(c *gin.Context) {
	ctx, span := tracer.Start(c.Request.Context(), "GetInvitation")
	defer span.End()
	id, ok := api.pathParamUUID(c, "id")
	if !ok {
		return
	}

	inv, err := api.invitations.Get(ctx, id)
	if err != nil {
		api.sendError(c, err)
		return
	}
	c.JSON(http.StatusOK, inv)
}

// GetInvitationByToken resolves an Invitation from its token
// @Summary      Resolve an Invitation token
// @Id           GetInvitationByToken
// @Tags         Invitations
// @Accept       json
// @Produce      json
// @Param        token   path      string  true "Invitation Token"
// @Success      200  {object}  models.Invitation
// @Failure      404  {object}  models.NotFoundError
// @Failure      500  {object}  models.InternalServerError "Internal Server Error"
// @Router       /api/invitations/token/{token} [get]
func (api *API) GetInvitationByToken(c *gin.Context) {
	ctx, span := tracer.Start(c.Request.Context(), "GetInvitationByToken")
	defer span.End()
	token := c.Param("token")
	if token == "" {
		c.JSON(http.StatusBadRequest, models.NewBadPathParameterError("token"))
		return
	}

	inv, err := api.invitations.GetByToken(ctx, token)
	if err != nil {
		api.sendError(c, err)
		return
	}
	c.JSON(http.StatusOK, inv)
}

// UpdateInvitation updates an Invitation
// @Summary      Update an Invitation
// @Id           UpdateInvitation
// @Tags         Invitations
// @Accept       json
// @Produce      json
// @Param        id          path      string  true "Invitation ID"
// @Param        Invitation  body      models.UpdateInvitation true "Invitation Update"
// @Success      200  {object}  models.Invitation
// @Failure      400  {object}  models.ValidationError
// @Failure      404  {object}  models.NotFoundError
// @Failure      422  {object}  models.InvalidTransitionError
// @Failure      500  {object}  models.InternalServerError "Internal Server Error"
// @Router       /api/invitations/{id} [patch]
func (api *API) UpdateInvitation(c *gin.Context) {
	ctx, span := tracer.Start(c.Request.Context(), "UpdateInvitation")
	defer span.End()
	id, ok := api.pathParamUUID(c, "id")
	if !ok {
		return
	}

	var request models.UpdateInvitation
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, models.NewBadPayloadError())
		return
	}
	userId := api.GetCurrentUserID(c)

	inv, err := api.invitations.Get(ctx, id)
	if err != nil {
		api.sendError(c, err)
		return
	}
	if !api.invitationScopeAllowed(c, ctx, userId, inv, authz.ActionWrite) {
		return
	}

	inv, err = api.invitations.Update(ctx, userId, id, request)
	if err != nil {
		api.sendError(c, err)
		return
	}
	c.JSON(http.StatusOK, inv)
}

// AcceptInvitation redeems an Invitation for the current user
// @Summary      Accept an Invitation
// @Description  Accepts the invitation and adds the current user to the
// invited organization or project
// @Id           AcceptInvitation
// @Tags         Invitations
// @Accept       json
// @Produce      json
// @Param        id   path      string  true "Invitation ID"
// @Success      200  {object}  models.Invitation
// @Failure      400  {object}  models.ValidationError
// @Failure      404  {object}  models.NotFoundError
// @Failure      422  {object}  models.InvalidTransitionError
// @Failure      500  {object}  models.InternalServerError "Internal Server Error"
// @Router       /api/invitations/{id}/accept [post]
func (api *API) AcceptInvitation(c *gin.Context) {
	ctx, span := tracer.Start(c.Request.Context(), "AcceptInvitation")
	defer span.End()
	id, ok := api.pathParamUUID(c, "id")
	if !ok {
		return
	}

	inv, err := api.invitations.Get(ctx, id)
	if err != nil {
		api.sendError(c, err)
		return
	}

	redeemed, err := api.invitations.Redeem(ctx, inv.Token, api.GetCurrentUserID(c))
	if err != nil {
		api.sendError(c, err)
		return
	}
	c.JSON(http.StatusOK, redeemed)
}

// RevokeInvitation revokes a pending Invitation
// @Summary      Revoke an Invitation
// @Id           RevokeInvitation
// @Tags         Invitations
// @Accept       json
// @Produce      json
// @Param        id      path   string  true "Invitation ID"
// @Param        Revoke  body   models.RevokeInvitation false "Revocation"
// @Success      200  {object}  models.Invitation
// @Failure      400  {object}  models.ValidationError
// @Failure      404  {object}  models.NotFoundError
// @Failure      422  {object}  models.InvalidTransitionError
// @Failure      500  {object}  models.InternalServerError "Internal Server Error"
// @Router       /api/invitations/{id}/revoke [post]
func (api *API) RevokeInvitation(c *gin.Context) {
	ctx, span := tracer.Start(c.Request.Context(), "RevokeInvitation")
	defer span.End()
	id, ok := api.pathParamUUID(c, "id")
	if !ok {
		return
	}

	var request models.RevokeInvitation
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&request); err != nil {
			c.JSON(http.StatusBadRequest, models.NewBadPayloadError())
			return
		}
	}
	userId := api.GetCurrentUserID(c)

	inv, err := api.invitations.Get(ctx, id)
	if err != nil {
		api.sendError(c, err)
		return
	}
	if !api.invitationScopeAllowed(c, ctx, userId, inv, authz.ActionWrite) {
		return
	}

	inv, err = api.invitations.Revoke(ctx, userId, id, request)
	if err != nil {
		api.sendError(c, err)
		return
	}
	c.JSON(http.StatusOK, inv)
}

// DeleteInvitation deletes an Invitation
// @Summary      Delete an Invitation
// @Id           DeleteInvitation
// @Tags         Invitations
// @Accept       json
// @Produce      json
// @Param        id   path      string  true "Invitation ID"
// @Success      204
// @Failure      400  {object}  models.ValidationError
// @Failure      404  {object}  models.NotFoundError
// @Failure      500  {object}  models.InternalServerError "Internal Server Error"
// @Router       /api/invitations/{id} [delete]
func (api *API) DeleteInvitation(c *gin.Context) {
	ctx, span := tracer.Start(c.Request.Context(), "DeleteInvitation")
	defer span.End()
	id, ok := api.pathParamUUID(c, "id")
	if !ok {
		return
	}

	found, err := api.invitations.Delete(ctx, api.GetCurrentUserID(c), id)
	if err != nil {
		api.sendError(c, err)
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, models.NewNotFoundError("invitation"))
		return
	}
	c.Status(http.StatusNoContent)
}
