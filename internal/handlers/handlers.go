package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/safeoutput/backoffice/internal/models"
)

// Query is the common list pagination binding. Limit defaults to 50 and is
// capped server-side.
type Query struct {
	Limit  int `form:"limit"`
	Offset int `form:"offset"`
}

func (api *API) bindQuery(c *gin.Context) (Query, bool) {
	var query Query
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, models.NewBadPayloadError())
		return query, false
	}
	if query.Offset < 0 {
		query.Offset = 0
	}
	return query, true
}

func (api *API) pathParamUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, models.NewBadPathParameterError(name))
		return uuid.Nil, false
	}
	return id, true
}
