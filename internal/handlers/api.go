package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/safeoutput/backoffice/internal/authz"
	"github.com/safeoutput/backoffice/internal/billing"
	"github.com/safeoutput/backoffice/internal/database"
	"github.com/safeoutput/backoffice/internal/fflags"
	"github.com/safeoutput/backoffice/internal/identity"
	"github.com/safeoutput/backoffice/internal/models"
	"github.com/safeoutput/backoffice/internal/tenancy"
	"github.com/safeoutput/backoffice/internal/util"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var tracer trace.Tracer

func init() {
	tracer = otel.Tracer("github.com/safeoutput/backoffice/internal/handlers")
}

type API struct {
	logger      *zap.SugaredLogger
	db          *gorm.DB
	fflags      *fflags.FFlags
	transaction database.TransactionFunc
	dialect     database.Dialect

	organizations *tenancy.OrganizationStore
	projects      *tenancy.ProjectStore
	members       *tenancy.MembershipStore
	invitations   *tenancy.InvitationEngine
	recorder      *tenancy.AuditRecorder

	directory identity.Directory
	checker   authz.PermissionChecker
	processor billing.PaymentProcessor
}

func NewAPI(
	parent context.Context,
	logger *zap.SugaredLogger,
	db *gorm.DB,
	fflags *fflags.FFlags,
	directory identity.Directory,
	processor billing.PaymentProcessor,
) (*API, error) {
	_, span := tracer.Start(parent, "NewAPI")
	defer span.End()

	transactionFunc, dialect, err := database.GetTransactionFunc(db)
	if err != nil {
		return nil, err
	}

	recorder := tenancy.NewAuditRecorder(db)
	organizations := tenancy.NewOrganizationStore(db, transactionFunc, recorder, logger)
	projects := tenancy.NewProjectStore(db, transactionFunc, recorder, logger)
	members := tenancy.NewMembershipStore(db, transactionFunc, recorder, logger)
	invitations := tenancy.NewInvitationEngine(db, transactionFunc, recorder, logger)

	return &API{
		logger:        logger,
		db:            db,
		fflags:        fflags,
		transaction:   transactionFunc,
		dialect:       dialect,
		organizations: organizations,
		projects:      projects,
		members:       members,
		invitations:   invitations,
		recorder:      recorder,
		directory:     directory,
		checker:       authz.NewMembershipChecker(members, projects),
		processor:     processor,
	}, nil
}

func (api *API) SendInternalServerError(c *gin.Context, err error) {
	SendInternalServerError(c, api.logger, err)
}

func SendInternalServerError(c *gin.Context, logger *zap.SugaredLogger, err error) {
	ctx := c.Request.Context()
	util.WithTrace(ctx, logger).Errorw("internal server error", "error", err)

	result := models.InternalServerError{
		BaseError: models.BaseError{
			Error: "internal server error",
		},
	}
	sc := trace.SpanFromContext(ctx).SpanContext()
	if sc.HasTraceID() {
		result.TraceId = sc.TraceID().String()
	}
	c.JSON(http.StatusInternalServerError, result)
}

func (api *API) GetCurrentUserID(c *gin.Context) uuid.UUID {
	userId, found := c.Get(gin.AuthUserKey)
	if !found {
		api.SendInternalServerError(c, fmt.Errorf("no current user found"))
		panic("no current user found")
	}
	switch v := userId.(type) {
	case uuid.UUID:
		return v
	case string:
		id, err := uuid.Parse(v)
		if err != nil {
			api.SendInternalServerError(c, fmt.Errorf("current user id is not a uuid"))
			panic("current user id is not a uuid")
		}
		return id
	default:
		api.SendInternalServerError(c, fmt.Errorf("current user id has unexpected type"))
		panic("current user id has unexpected type")
	}
}

func (api *API) FlagCheck(c *gin.Context, name string) bool {
	enabled, err := api.fflags.GetFlag(name)
	if err != nil {
		api.SendInternalServerError(c, err)
		return false
	}
	if !enabled {
		c.JSON(http.StatusMethodNotAllowed, models.NewNotAllowedError(fmt.Sprintf("%s support is disabled", name)))
		return false
	}
	return true
}

// sendError translates the tenancy error taxonomy into response bodies.
// Unexpected errors become a 500 with no internal detail leaked.
func (api *API) sendError(c *gin.Context, err error) {
	var notFound tenancy.NotFoundError
	var validation tenancy.ValidationError
	var conflict tenancy.ConflictError
	var transition tenancy.InvalidTransitionError
	switch {
	case errors.As(err, &notFound):
		c.JSON(http.StatusNotFound, models.NewNotFoundError(notFound.Resource))
	case errors.As(err, &validation):
		c.JSON(http.StatusBadRequest, models.NewFieldValidationError(validation.Field, validation.Reason))
	case errors.As(err, &conflict):
		c.JSON(http.StatusConflict, models.NewConflictsError(conflict.ID))
	case errors.As(err, &transition):
		c.JSON(http.StatusUnprocessableEntity,
			models.NewInvalidTransitionError(string(transition.From), string(transition.To)))
	default:
		api.SendInternalServerError(c, err)
	}
}
