package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/safeoutput/backoffice/internal/models"
)

var auditEntityTypes = map[string]bool{
	"organization": true,
	"project":      true,
	"invitation":   true,
}

// ListAuditLogs lists the audit trail for one entity, newest first
// @Summary      List Audit Logs
// @Id           ListAuditLogs
// @Tags         Audit
// @Accept       json
// @Produce      json
// @Param        entityType  query     string  true "Entity Type"
// @Param        entityId    query     string  true "Entity ID"
// @Success      200  {object}  []models.AuditLog
// @Failure      400  {object}  models.ValidationError
// @Failure      500  {object}  models.InternalServerError "Internal Server Error"
// @Router       /api/audit [get]
func (api *API) ListAuditLogs(c *gin.Context) {
	ctx, span := tracer.Start(c.Request.Context(), "ListAuditLogs")
	defer span.End()

	entityType := c.Query("entityType")
	if !auditEntityTypes[entityType] {
		c.JSON(http.StatusBadRequest, models.NewFieldValidationError("entityType", "unknown entity type"))
		return
	}
	entityID, err := uuid.Parse(c.Query("entityId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, models.NewFieldValidationError("entityId", "must be a uuid"))
		return
	}
	query, ok := api.bindQuery(c)
	if !ok {
		return
	}

	entries, err := api.recorder.ListByEntity(ctx, entityType, entityID, query.Limit, query.Offset)
	if err != nil {
		api.SendInternalServerError(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}
