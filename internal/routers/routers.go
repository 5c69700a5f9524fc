package routers

import (
	"context"
	"net/http"
	"strings"
	"time"

	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/safeoutput/backoffice/internal/handlers"
	ginprometheus "github.com/zsais/go-gin-prometheus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const name = "github.com/safeoutput/backoffice/internal/routers"

type APIRouterOptions struct {
	Logger      *zap.SugaredLogger
	Api         *handlers.API
	ClientIdWeb string
	ClientIdCli string
	OidcURL     string
	InsecureTLS bool
}

func NewAPIRouter(ctx context.Context, o APIRouterOptions) (*gin.Engine, error) {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	loggerMiddleware := ginzap.GinzapWithConfig(o.Logger.Desugar(), &ginzap.Config{
		TimeFormat: time.RFC3339,
		UTC:        true,
		Context: func(c *gin.Context) []zapcore.Field {
			return []zapcore.Field{
				zap.String("traceID", trace.SpanFromContext(c.Request.Context()).SpanContext().TraceID().String()),
			}
		},
	})

	r.Use(otelgin.Middleware(name, otelgin.WithPropagators(
		propagation.TraceContext{},
	)))
	r.Use(ginzap.RecoveryWithZap(o.Logger.Desugar(), true))

	newPrometheus().Use(r)

	api := o.Api

	// Webhooks authenticate by signature, not bearer token.
	r.POST("/api/billing/webhook", loggerMiddleware, api.BillingWebhook)

	private := r.Group("/api", loggerMiddleware)
	{
		validateJWT, err := newValidateJWT(ctx, o)
		if err != nil {
			return nil, err
		}
		private.Use(validateJWT)

		// Feature Flags
		private.GET("/fflags", api.ListFeatureFlags)
		private.GET("/fflags/:name", api.GetFeatureFlag)

		// Organizations
		private.GET("/organizations", api.ListOrganizations)
		private.POST("/organizations", api.CreateOrganization)
		private.GET("/organizations/:id", api.GetOrganization)
		private.PATCH("/organizations/:id", api.UpdateOrganization)
		private.DELETE("/organizations/:id", api.DeleteOrganization)
		private.GET("/organizations/:id/members", api.ListOrganizationMembers)
		private.POST("/organizations/:id/members", api.AddOrganizationMember)
		private.DELETE("/organizations/:id/members/:userId", api.RemoveOrganizationMember)
		private.GET("/organizations/:id/invitations", api.ListOrganizationInvitations)

		// Projects
		private.GET("/projects", api.ListProjects)
		private.POST("/projects", api.CreateProject)
		private.GET("/projects/:id", api.GetProject)
		private.PATCH("/projects/:id", api.UpdateProject)
		private.DELETE("/projects/:id", api.DeleteProject)
		private.GET("/projects/:id/members", api.ListProjectMembers)
		private.POST("/projects/:id/members", api.AddProjectMember)
		private.DELETE("/projects/:id/members/:userId", api.RemoveProjectMember)
		private.GET("/projects/:id/invitations", api.ListProjectInvitations)

		// Invitations
		private.POST("/invitations", api.CreateInvitation)
		private.GET("/invitations/:id", api.GetInvitation)
		private.PATCH("/invitations/:id", api.UpdateInvitation)
		private.DELETE("/invitations/:id", api.DeleteInvitation)
		private.POST("/invitations/:id/accept", api.AcceptInvitation)
		private.POST("/invitations/:id/revoke", api.RevokeInvitation)
		private.GET("/invitations/token/:token", api.GetInvitationByToken)

		// Audit
		private.GET("/audit", api.ListAuditLogs)

		// Billing
		private.POST("/billing/customers/link", api.LinkBillingCustomer)
		private.GET("/billing/customers/:id", api.GetBillingCustomer)
	}

	// Don't log the health/readiness checks.
	r.GET("/live", api.Live)
	r.GET("/ready", api.Ready)
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "UP",
		})
	})

	return r, nil
}

func newPrometheus() *ginprometheus.Prometheus {
	p := ginprometheus.NewPrometheus("apiserver")
	p.ReqCntURLLabelMappingFn = func(c *gin.Context) string {
		url := c.Request.URL.Path
		for _, p := range c.Params {
			if p.Key == "id" || p.Key == "token" {
				url = strings.Replace(url, p.Value, ":"+p.Key, 1)
				break
			}
		}
		return url
	}
	return p
}
