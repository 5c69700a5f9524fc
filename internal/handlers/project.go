package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/safeoutput/backoffice/internal/authz"
	"github.com/safeoutput/backoffice/internal/models"
	"go.opentelemetry.io/otel/attribute"
)

// CreateProject creates a new Project
// @Summary      Create a Project
// @Id           CreateProject
// @Tags         Projects
// @Accept       json
// @Produce      json
// @Param        Project  body     models.AddProject  true  "Add Project"
// @Success      201  {object}  models.Project
// @Failure      400  {object}  models.ValidationError
// @Failure      404  {object}  models.NotFoundError
// @Failure      409  {object}  models.ConflictsError
// @Failure      500  {object}  models.InternalServerError "Internal Server Error"
// @Router       /api/projects [post]
func (api *API) CreateProject(c *gin.Context) {
	ctx, span := tracer.Start(c.Request.Context(), "CreateProject")
	defer span.End()
	userId := api.GetCurrentUserID(c)

	var request models.AddProject
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, models.NewBadPayloadError())
		return
	}

	allowed, err := api.checker.CanActOnOrganization(ctx, userId, request.OrganizationID, authz.ActionWrite)
	if err != nil {
		api.SendInternalServerError(c, err)
		return
	}
	if !allowed {
		c.JSON(http.StatusForbidden, models.NewNotAllowedError("not a member of the organization"))
		return
	}

	proj, err := api.projects.Create(ctx, userId, request)
	if err != nil {
		api.sendError(c, err)
		return
	}
	span.SetAttributes(attribute.String("id", proj.ID.String()))
	c.JSON(http.StatusCreated, proj)
}

// ListProjects lists the caller's projects
// @Summary      List Projects
// @Id           ListProjects
// @Tags         Projects
// @Accept       json
// @Produce      json
// @Success      200  {object}  []models.Project
// @Failure      500  {object}  models.InternalServerError "Internal Server Error"
// @Router       /api/projects [get]
func (api *API) ListProjects(c *gin.Context) {
	ctx, span := tracer.Start(c.Request.Context(), "ListProjects")
	defer span.End()

	projects, err := api.members.ListProjectsForUser(ctx, api.GetCurrentUserID(c))
	if err != nil {
		api.SendInternalServerError(c, err)
		return
	}
	c.JSON(http.StatusOK, projects)
}

// GetProject gets a specific Project
// @Summary      Get a Project
// @Id           GetProject
// @Tags         Projects
// @Accept       json
// @Produce      json
// @Param        id   path      string  true "Project ID"
// @Success      200  {object}  models.Project
// @Failure      400  {object}  models.ValidationError
// @Failure      404  {object}  models.NotFoundError
// @Failure      500  {object}  models.InternalServerError "Internal Server Error"
// @Router       /api/projects/{id} [get]
func (api *API) GetProject(c *gin.Context) {
	ctx, span := tracer.Start(c.Request.Context(), "GetProject")
	defer span.End()
	id, ok := api.pathParamUUID(c, "id")
	if !ok {
		return
	}

	proj, err := api.projects.Get(ctx, id)
	if err != nil {
		api.sendError(c, err)
		return
	}
	c.JSON(http.StatusOK, proj)
}

// UpdateProject updates a Project
// @Summary      Update a Project
// @Id           UpdateProject
// @Tags         Projects
// @Accept       json
// @Produce      json
// @Param        id       path      string  true "Project ID"
// @Param        Project  body      models.UpdateProject true "Project Update"
// @Success      200  {object}  models.Project
// @Failure      400  {object}  models.ValidationError
// @Failure      404  {object}  models.NotFoundError
// @Failure      409  {object}  models.ConflictsError
// @Failure      500  {object}  models.InternalServerError "Internal Server Error"
// @Router       /api/projects/{id} [patch]
func (api *API) UpdateProject(c *gin.Context) {
	ctx, span := tracer.Start(c.Request.Context(), "UpdateProject")
	defer span.End()
	id, ok := api.pathParamUUID(c, "id")
	if !ok {
		return
	}
	userId := api.GetCurrentUserID(c)

	allowed, err := api.checker.CanActOnProject(ctx, userId, id, authz.ActionWrite)
	if err != nil {
		api.SendInternalServerError(c, err)
		return
	}
	if !allowed {
		c.JSON(http.StatusForbidden, models.NewNotAllowedError("not a member of the project"))
		return
	}

	var request models.UpdateProject
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, models.NewBadPayloadError())
		return
	}

	proj, err := api.projects.Update(ctx, userId, id, request)
	if err != nil {
		api.sendError(c, err)
		return
	}
	c.JSON(http.StatusOK, proj)
}

// DeleteProject deletes a Project
// @Summary      Delete a Project
// @Id           DeleteProject
// @Tags         Projects
// @Accept       json
// @Produce      json
// @Param        id   path      string  true "Project ID"
// @Success      204
// @Failure      400  {object}  models.ValidationError
// @Failure      404  {object}  models.NotFoundError
// @Failure      500  {object}  models.InternalServerError "Internal Server Error"
// @Router       /api/projects/{id} [delete]
func (api *API) DeleteProject(c *gin.Context) {
	ctx, span := tracer.Start(c.Request.Context(), "DeleteProject")
	defer span.End()
	id, ok := api.pathParamUUID(c, "id")
	if !ok {
		return
	}
	userId := api.GetCurrentUserID(c)

	allowed, err := api.checker.CanActOnProject(ctx, userId, id, authz.ActionWrite)
	if err != nil {
		api.SendInternalServerError(c, err)
		return
	}
	if !allowed {
		c.JSON(http.StatusForbidden, models.NewNotAllowedError("not a member of the project"))
		return
	}

	found, err := api.projects.Delete(ctx, userId, id)
	if err != nil {
		api.sendError(c, err)
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, models.NewNotFoundError("project"))
		return
	}
	c.Status(http.StatusNoContent)
}

// AddProjectMember adds a user to a Project
// @Summary      Add a Project Member
// @Id           AddProjectMember
// @Tags         Projects
// @Accept       json
// @Produce      json
// @Param        id      path      string  true "Project ID"
// @Param        Member  body      models.AddProjectMember true "Member"
// @Success      201  {object}  models.ProjectMember
// @Failure      400  {object}  models.ValidationError
// @Failure      404  {object}  models.NotFoundError
// @Failure      409  {object}  models.ConflictsError
// @Failure      500  {object}  models.InternalServerError "Internal Server Error"
// @Router       /api/projects/{id}/members [post]
func (api *API) AddProjectMember(c *gin.Context) {
	ctx, span := tracer.Start(c.Request.Context(), "AddProjectMember")
	defer span.End()
	id, ok := api.pathParamUUID(c, "id")
	if !ok {
		return
	}

	var request models.AddProjectMember
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, models.NewBadPayloadError())
		return
	}

	member, err := api.members.AddProjectMember(ctx, api.GetCurrentUserID(c), id, request)
	if err != nil {
		api.sendError(c, err)
		return
	}
	c.JSON(http.StatusCreated, member)
}

// ListProjectMembers lists the members of a Project
// @Summary      List Project Members
// @Id           ListProjectMembers
// @Tags         Projects
// @Accept       json
// @Produce      json
// @Param        id   path      string  true "Project ID"
// @Success      200  {object}  []models.ProjectMember
// @Failure      400  {object}  models.ValidationError
// @Failure      500  {object}  models.InternalServerError "Internal Server Error"
// @Router       /api/projects/{id}/members [get]
func (api *API) ListProjectMembers(c *gin.Context) {
	ctx, span := tracer.Start(c.Request.Context(), "ListProjectMembers")
	defer span.End()
	id, ok := api.pathParamUUID(c, "id")
	if !ok {
		return
	}
	query, ok := api.bindQuery(c)
	if !ok {
		return
	}

	members, err := api.members.ListProjectMembers(ctx, id, query.Limit, query.Offset)
	if err != nil {
		api.SendInternalServerError(c, err)
		return
	}
	c.JSON(http.StatusOK, members)
}

// RemoveProjectMember removes a user from a Project
// @Summary      Remove a Project Member
// @Id           RemoveProjectMember
// @Tags         Projects
// @Accept       json
// @Produce      json
// @Param        id       path      string  true "Project ID"
// @Param        userId   path      string  true "User ID"
// @Success      204
// @Failure      400  {object}  models.ValidationError
// @Failure      404  {object}  models.NotFoundError
// @Failure      500  {object}  models.InternalServerError "Internal Server Error"
// @Router       /api/projects/{id}/members/{userId} [delete]
func (api *API) RemoveProjectMember(c *gin.Context) {
	ctx, span := tracer.Start(c.Request.Context(), "RemoveProjectMember")
	defer span.End()
	id, ok := api.pathParamUUID(c, "id")
	if !ok {
		return
	}
	userId, ok := api.pathParamUUID(c, "userId")
	if !ok {
		return
	}

	found, err := api.members.RemoveProjectMember(ctx, api.GetCurrentUserID(c), id, userId)
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

// ListProjectInvitations lists the invitations of a Project
// @Summary      List Project Invitations
// @Id           ListProjectInvitations
// @Tags         Projects
// @Accept       json
// @Produce      json
// @Param        id   path      string  true "Project ID"
// @Success      200  {object}  []models.Invitation
// @Failure      400  {object}  models.ValidationError
// @Failure      500  {object}  models.InternalServerError "Internal Server Error"
// @Router       /api/projects/{id}/invitations [get]
func (api *API) ListProjectInvitations(c *gin.Context) {
	ctx, span := tracer.Start(c.Request.Context(), "ListProjectInvitations")
	defer span.End()
	id, ok := api.pathParamUUID(c, "id")
	if !ok {
		return
	}
	query, ok := api.bindQuery(c)
	if !ok {
		return
	}

	invitations, err := api.invitations.ListByProject(ctx, id, query.Limit, query.Offset)
	if err != nil {
		api.SendInternalServerError(c, err)
		return
	}
	c.JSON(http.StatusOK, invitations)
}
