package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/safeoutput/backoffice/internal/authz"
	"github.com/safeoutput/backoffice/internal/models"
	"go.opentelemetry.io/otel/attribute"
)

// CreateOrganization creates a new Organization
// @Summary      Create an Organization
// @Description  Creates a named organization owned by the current user
// @Id           CreateOrganization
// @Tags         Organizations
// @Accept       json
// @Produce      json
// @Param        Organization  body     models.AddOrganization  true  "Add Organization"
// @Success      201  {object}  models.Organization
// @Failure      400  {object}  models.ValidationError
// @Failure      401  {object}  models.BaseError
// @Failure      409  {object}  models.ConflictsError
// @Failure      500  {object}  models.InternalServerError "Internal Server Error"
// @Router       /api/organizations [post]
func (api *API) CreateOrganization(c *gin.Context) {
	ctx, span := tracer.Start(c.Request.Context(), "CreateOrganization")
	defer span.End()
	userId := api.GetCurrentUserID(c)

	var request models.AddOrganization
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, models.NewBadPayloadError())
		return
	}

	org, err := api.organizations.Create(ctx, userId, request)
	if err != nil {
		api.sendError(c, err)
		return
	}
	span.SetAttributes(attribute.String("id", org.ID.String()))
	c.JSON(http.StatusCreated, org)
}

// ListOrganizations lists organizations
// @Summary      List Organizations
// @Id           ListOrganizations
// @Tags         Organizations
// @Accept       json
// @Produce      json
// @Success      200  {object}  []models.Organization
// @Failure      401  {object}  models.BaseError
// @Failure      500  {object}  models.InternalServerError "Internal Server Error"
// @Router       /api/organizations [get]
func (api *API) ListOrganizations(c *gin.Context) {
	ctx, span := tracer.Start(c.Request.Context(), "ListOrganizations")
	defer span.End()
	// Scoped to the orgs the caller belongs to.
	orgs, err := api.members.ListOrganizationsForUser(ctx, api.GetCurrentUserID(c))
	if err != nil {
		api.SendInternalServerError(c, err)
		return
	}
	c.JSON(http.StatusOK, orgs)
}

// GetOrganization gets a specific Organization
// @Summary      Get an Organization
// @Id           GetOrganization
// @Tags         Organizations
// @Accept       json
// @Produce      json
// @Param        id   path      string  true "Organization ID"
// @Success      200  {object}  models.Organization
// @Failure      400  {object}  models.ValidationError
// @Failure      404  {object}  models.NotFoundError
// @Failure      500  {object}  models.InternalServerError "Internal Server Error"
// @Router       /api/organizations/{id} [get]
func (api *API) GetOrganization(c *gin.Context) {
	ctx, span := tracer.Start(c.Request.Context(), "GetOrganization")
	defer span.End()
	id, ok := api.pathParamUUID(c, "id")
	if !ok {
		return
	}

	org, err := api.organizations.Get(ctx, id)
	if err != nil {
		api.sendError(c, err)
		return
	}
	c.JSON(http.StatusOK, org)
}

// UpdateOrganization updates an Organization
// @Summary      Update an Organization
// @Id           UpdateOrganization
// @Tags         Organizations
// @Accept       json
// @Produce      json
// @Param        id            path      string  true "Organization ID"
// @Param        Organization  body      models.UpdateOrganization true "Organization Update"
// @Success      200  {object}  models.Organization
// @Failure      400  {object}  models.ValidationError
// @Failure      404  {object}  models.NotFoundError
// @Failure      409  {object}  models.ConflictsError
// @Failure      500  {object}  models.InternalServerError "Internal Server Error"
// @Router       /api/organizations/{id} [patch]
func (api *API) UpdateOrganization(c *gin.Context) {
	ctx, span := tracer.Start(c.Request.Context(), "UpdateOrganization")
	defer span.End()
	id, ok := api.pathParamUUID(c, "id")
	if !ok {
		return
	}
	userId := api.GetCurrentUserID(c)

	allowed, err := api.checker.CanActOnOrganization(ctx, userId, id, authz.ActionWrite)
	if err != nil {
		api.SendInternalServerError(c, err)
		return
	}
	if !allowed {
		c.JSON(http.StatusForbidden, models.NewNotAllowedError("not a member of the organization"))
		return
	}

	var request models.UpdateOrganization
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, models.NewBadPayloadError())
		return
	}

	org, err := api.organizations.Update(ctx, userId, id, request)
	if err != nil {
		api.sendError(c, err)
		return
	}
	c.JSON(http.StatusOK, org)
}

// DeleteOrganization deletes an Organization
// @Summary      Delete an Organization
// @Id           DeleteOrganization
// @Tags         Organizations
// @Accept       json
// @Produce      json
// @Param        id   path      string  true "Organization ID"
// @Success      204
// @Failure      400  {object}  models.ValidationError
// @Failure      404  {object}  models.NotFoundError
// @Failure      500  {object}  models.InternalServerError "Internal Server Error"
// @Router       /api/organizations/{id} [delete]
func (api *API) DeleteOrganization(c *gin.Context) {
	ctx, span := tracer.Start(c.Request.Context(), "DeleteOrganization")
	defer span.End()
	id, ok := api.pathParamUUID(c, "id")
	if !ok {
		return
	}
	userId := api.GetCurrentUserID(c)

	allowed, err := api.checker.CanActOnOrganization(ctx, userId, id, authz.ActionWrite)
	if err != nil {
		api.SendInternalServerError(c, err)
		return
	}
	if !allowed {
		c.JSON(http.StatusForbidden, models.NewNotAllowedError("not a member of the organization"))
		return
	}

	found, err := api.organizations.Delete(ctx, userId, id)
	if err != nil {
		api.sendError(c, err)
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, models.NewNotFoundError("organization"))
		return
	}
	c.Status(http.StatusNoContent)
}

// AddOrganizationMember adds a user to an Organization
// @Summary      Add an Organization Member
// @Id           AddOrganizationMember
// @Tags         Organizations
// @Accept       json
// @Produce      json
// @Param        id      path      string  true "Organization ID"
// @Param        Member  body      models.AddOrganizationMember true "Member"
// @Success      201  {object}  models.OrganizationMember
// @Failure      400  {object}  models.ValidationError
// @Failure      404  {object}  models.NotFoundError
// @Failure      409  {object}  models.ConflictsError
// @Failure      500  {object}  models.InternalServerError "Internal Server Error"
// @Router       /api/organizations/{id}/members [post]
func (api *API) AddOrganizationMember(c *gin.Context) {
	ctx, span := tracer.Start(c.Request.Context(), "AddOrganizationMember")
	defer span.End()
	id, ok := api.pathParamUUID(c, "id")
	if !ok {
		return
	}

	var request models.AddOrganizationMember
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, models.NewBadPayloadError())
		return
	}

	member, err := api.members.AddOrganizationMember(ctx, api.GetCurrentUserID(c), id, request)
	if err != nil {
		api.sendError(c, err)
		return
	}
	c.JSON(http.StatusCreated, member)
}

// ListOrganizationMembers lists the members of an Organization
// @Summary      List Organization Members
// @Id           ListOrganizationMembers
// @Tags         Organizations
// @Accept       json
// @Produce      json
// @Param        id   path      string  true "Organization ID"
// @Success      200  {object}  []models.OrganizationMember
// @Failure      400  {object}  models.ValidationError
// @Failure      500  {object}  models.InternalServerError "Internal Server Error"
// @Router       /api/organizations/{id}/members [get]
func (api *API) ListOrganizationMembers(c *gin.Context) {
	ctx, span := tracer.Start(c.Request.Context(), "ListOrganizationMembers")
	defer span.End()
	id, ok := api.pathParamUUID(c, "id")
	if !ok {
		return
	}
	query, ok := api.bindQuery(c)
	if !ok {
		return
	}

	members, err := api.members.ListOrganizationMembers(ctx, id, query.Limit, query.Offset)
	if err != nil {
		api.SendInternalServerError(c, err)
		return
	}
	c.JSON(http.StatusOK, members)
}

// RemoveOrganizationMember removes a user from an Organization
// @Summary      Remove an Organization Member
// @Id           RemoveOrganizationMember
// @Tags         Organizations
// @Accept       json
// @Produce      json
// @Param        id       path      string  true "Organization ID"
// @Param        userId   path      string  true "User ID"
// @Success      204
// @Failure      400  {object}  models.ValidationError
// @Failure      404  {object}  models.NotFoundError
// @Failure      500  {object}  models.InternalServerError "Internal Server Error"
// @Router       /api/organizations/{id}/members/{userId} [delete]
func (api *API) RemoveOrganizationMember(c *gin.Context) {
	ctx, span := tracer.Start(c.Request.Context(), "RemoveOrganizationMember")
	defer span.End()
	id, ok := api.pathParamUUID(c, "id")
	if !ok {
		return
	}
	userId, ok := api.pathParamUUID(c, "userId")
	if !ok {
		return
	}

	found, err := api.members.RemoveOrganizationMember(ctx, api.GetCurrentUserID(c), id, userId)
	if err != nil {
		api.sendError(c, err)
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, models.NewNotFoundError("membership"))
		return
	}
	c.Status(http.StatusNoContent)
}

// ListOrganizationInvitations lists the invitations of an Organization
// @Summary      List Organization Invitations
// @Id           ListOrganizationInvitations
// @Tags         Organizations
// @Accept       json
// @Produce      json
// @Param        id   path      string  true "Organization ID"
// @Success      200  {object}  []models.Invitation
// @Failure      400  {object}  models.ValidationError
// @Failure      500  {object}  models.InternalServerError "Internal Server Error"
// @Router       /api/organizations/{id}/invitations [get]
func (api *API) ListOrganizationInvitations(c *gin.Context) {
	ctx, span := tracer.Start(c.Request.Context(), "ListOrganizationInvitations")
	defer span.End()
	id, ok := api.pathParamUUID(c, "id")
	if !ok {
		return
	}
	query, ok := api.bindQuery(c)
	if !ok {
		return
	}

	invitations, err := api.invitations.ListByOrganization(ctx, id, query.Limit, query.Offset)
	if err != nil {
		api.SendInternalServerError(c, err)
		return
	}
	c.JSON(http.StatusOK, invitations)
}
