package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/safeoutput/backoffice/internal/billing"
	"github.com/safeoutput/backoffice/internal/database"
	"github.com/safeoutput/backoffice/internal/fflags"
	"github.com/safeoutput/backoffice/internal/handlers"
	"github.com/safeoutput/backoffice/internal/identity"
	"github.com/safeoutput/backoffice/internal/routers"
	"github.com/safeoutput/backoffice/internal/tenancy"
	"github.com/safeoutput/backoffice/internal/util"
	"github.com/urfave/cli/v3"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.18.0"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"google.golang.org/grpc/credentials"
	"gorm.io/gorm"
)

var tracer trace.Tracer

func init() {
	tracer = otel.Tracer("apiserver")
}

// @title               Back Office API
// @description         Invitation and membership lifecycle API server.
// @version             1.0
// @BasePath            /
func main() {
	// Override to capitalize "Show"
	cli.HelpFlag.(*cli.BoolFlag).Usage = "Show help"
	app := &cli.Command{
		Name: "apiserver",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "debug",
				Value:   false,
				Usage:   "Enable debug logging",
				Sources: cli.EnvVars("BACKOFFICE_DEBUG"),
			},
			&cli.StringFlag{
				Name:    "listen",
				Value:   "0.0.0.0:8080",
				Usage:   "The address and port to listen for HTTP requests on",
				Sources: cli.EnvVars("BACKOFFICE_LISTEN"),
			},
			&cli.StringFlag{
				Name:    "oidc-url",
				Value:   "http://localhost:8081/realms/backoffice",
				Usage:   "Address of oidc provider",
				Sources: cli.EnvVars("BACKOFFICE_OIDC_URL"),
			},
			&cli.BoolFlag{
				Name:    "insecure-tls",
				Value:   false,
				Usage:   "Trust any TLS certificate",
				Sources: cli.EnvVars("BACKOFFICE_INSECURE_TLS"),
			},
			&cli.StringFlag{
				Name:    "oidc-client-id-web",
				Value:   "backoffice-web",
				Usage:   "OIDC client id for web",
				Sources: cli.EnvVars("BACKOFFICE_OIDC_CLIENT_ID_WEB"),
			},
			&cli.StringFlag{
				Name:    "oidc-client-id-cli",
				Value:   "backoffice-cli",
				Usage:   "OIDC client id for cli",
				Sources: cli.EnvVars("BACKOFFICE_OIDC_CLIENT_ID_CLI"),
			},
			&cli.StringFlag{
				Name:    "keycloak-realm",
				Value:   "backoffice",
				Usage:   "Keycloak realm used for invitee lookups",
				Sources: cli.EnvVars("BACKOFFICE_KEYCLOAK_REALM"),
			},
			&cli.StringFlag{
				Name:    "keycloak-client-id",
				Value:   "",
				Usage:   "Keycloak service account client id, empty disables invitee lookups",
				Sources: cli.EnvVars("BACKOFFICE_KEYCLOAK_CLIENT_ID"),
			},
			&cli.StringFlag{
				Name:    "keycloak-client-secret",
				Value:   "",
				Usage:   "Keycloak service account client secret",
				Sources: cli.EnvVars("BACKOFFICE_KEYCLOAK_CLIENT_SECRET"),
			},
			&cli.StringFlag{
				Name:    "db-host",
				Value:   "apiserver-db",
				Usage:   "Database host name",
				Sources: cli.EnvVars("BACKOFFICE_DB_HOST"),
			},
			&cli.StringFlag{
				Name:    "db-port",
				Value:   "5432",
				Usage:   "Database port",
				Sources: cli.EnvVars("BACKOFFICE_DB_PORT"),
			},
			&cli.StringFlag{
				Name:    "db-user",
				Value:   "apiserver",
				Usage:   "Database user",
				Sources: cli.EnvVars("BACKOFFICE_DB_USER"),
			},
			&cli.StringFlag{
				Name:    "db-password",
				Value:   "",
				Usage:   "Database password",
				Sources: cli.EnvVars("BACKOFFICE_DB_PASSWORD"),
			},
			&cli.StringFlag{
				Name:    "db-name",
				Value:   "apiserver",
				Usage:   "Database name",
				Sources: cli.EnvVars("BACKOFFICE_DB_NAME"),
			},
			&cli.StringFlag{
				Name:    "db-sslmode",
				Value:   "disable",
				Usage:   "Database ssl mode",
				Sources: cli.EnvVars("BACKOFFICE_DB_SSLMODE"),
			},
			&cli.StringFlag{
				Name:    "trace-endpoint",
				Value:   "",
				Usage:   "Otel collector endpoint",
				Sources: cli.EnvVars("BACKOFFICE_TRACE_ENDPOINT_OTLP_GRPC"),
			},
			&cli.BoolFlag{
				Name:    "trace-insecure",
				Value:   false,
				Usage:   "Don't verify the certificate of the otel collector",
				Sources: cli.EnvVars("BACKOFFICE_TRACE_INSECURE"),
			},
			&cli.StringFlag{
				Name:    "stripe-secret-key",
				Value:   "",
				Usage:   "Stripe API secret key",
				Sources: cli.EnvVars("BACKOFFICE_STRIPE_SECRET_KEY"),
			},
			&cli.StringFlag{
				Name:    "stripe-webhook-secret",
				Value:   "",
				Usage:   "Stripe webhook signing secret",
				Sources: cli.EnvVars("BACKOFFICE_STRIPE_WEBHOOK_SECRET"),
			},
			&cli.DurationFlag{
				Name:    "invitation-expiry-interval",
				Value:   time.Minute,
				Usage:   "How often to sweep overdue pending invitations",
				Sources: cli.EnvVars("BACKOFFICE_INVITATION_EXPIRY_INTERVAL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			ctx, _ = signal.NotifyContext(ctx, syscall.SIGTERM, syscall.SIGQUIT, syscall.SIGINT)
			ctx, span := tracer.Start(ctx, "Run")
			defer span.End()
			withLoggerAndDB(ctx, command, func(logger *zap.Logger, db *gorm.DB) {
				featureFlags := fflags.NewFFlags(logger.Sugar())

				var directory identity.Directory
				if command.String("keycloak-client-id") != "" {
					directory = identity.NewKeycloakDirectory(
						logger.Sugar(),
						command.String("oidc-url"),
						command.String("keycloak-realm"),
						command.String("keycloak-client-id"),
						command.String("keycloak-client-secret"),
					)
				}

				processor := billing.NewStripeProcessor(logger.Sugar(), billing.StripeConfig{
					SecretKey:     command.String("stripe-secret-key"),
					WebhookSecret: command.String("stripe-webhook-secret"),
				})

				api, err := handlers.NewAPI(ctx, logger.Sugar(), db, featureFlags, directory, processor)
				if err != nil {
					log.Fatal(err)
				}

				router, err := routers.NewAPIRouter(ctx, routers.APIRouterOptions{
					Logger:      logger.Sugar(),
					Api:         api,
					ClientIdWeb: command.String("oidc-client-id-web"),
					ClientIdCli: command.String("oidc-client-id-cli"),
					OidcURL:     command.String("oidc-url"),
					InsecureTLS: command.Bool("insecure-tls"),
				})
				if err != nil {
					log.Fatal(err)
				}

				wg := &sync.WaitGroup{}

				// Overdue pending invitations are swept in the background.
				if enabled, _ := featureFlags.GetFlag("invitation-expiry"); enabled {
					transaction, _, err := database.GetTransactionFunc(db)
					if err != nil {
						log.Fatal(err)
					}
					engine := tenancy.NewInvitationEngine(db, transaction,
						tenancy.NewAuditRecorder(db), logger.Sugar())
					util.GoWithWaitGroup(wg, func() {
						util.RunPeriodically(ctx, command.Duration("invitation-expiry-interval"), func() {
							if _, err := engine.ExpireOverdue(ctx); err != nil {
								logger.Sugar().Errorw("invitation expiry sweep failed", "error", err)
							}
						})
					})
				}

				httpServer := &http.Server{
					Addr:              command.String("listen"),
					Handler:           router,
					ReadHeaderTimeout: 5 * time.Second,
				}

				util.GoWithWaitGroup(wg, func() {
					<-ctx.Done()
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					_ = httpServer.Shutdown(shutdownCtx)
				})

				logger.Sugar().Infow("starting HTTP server", "listen", command.String("listen"))
				if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal(err)
				}
				wg.Wait()
			})
			return nil
		},
	}
	if err := app.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

func getLogger(command *cli.Command) *zap.Logger {
	var logger *zap.Logger
	var err error
	// set the log level
	if command.Bool("debug") {
		logConfig := zap.NewProductionConfig()
		logConfig.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		logger, err = logConfig.Build()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		log.Fatal(err)
	}
	return logger
}

func withLoggerAndDB(ctx context.Context, command *cli.Command, f func(logger *zap.Logger, db *gorm.DB)) {
	logger := getLogger(command)
	cleanup := initTracer(logger.Sugar(), command.Bool("trace-insecure"), command.String("trace-endpoint"))
	defer func() {
		if cleanup == nil {
			return
		}
		if err := cleanup(ctx); err != nil {
			logger.Error(err.Error())
		}
	}()

	db, err := database.NewDatabase(
		ctx,
		logger.Sugar(),
		command.String("db-host"),
		command.String("db-user"),
		command.String("db-password"),
		command.String("db-name"),
		command.String("db-port"),
		command.String("db-sslmode"),
	)
	if err != nil {
		log.Fatal(err)
	}

	f(logger, db)
}

func initTracer(logger *zap.SugaredLogger, insecure bool, collector string) func(context.Context) error {
	if collector == "" {
		logger.Info("No collector endpoint configured")
		otel.SetTracerProvider(
			sdktrace.NewTracerProvider(
				sdktrace.WithSampler(sdktrace.AlwaysSample()),
			),
		)
		return nil
	}
	secureOption := otlptracegrpc.WithTLSCredentials(credentials.NewClientTLSFromCert(nil, ""))
	if insecure {
		secureOption = otlptracegrpc.WithInsecure()
	}
	exporter, err := otlptrace.New(
		context.Background(),
		otlptracegrpc.NewClient(
			secureOption,
			otlptracegrpc.WithEndpoint(collector),
		),
	)
	if err != nil {
		logger.Errorf("Unable to create open telemetry exporter: %s", err.Error())
		return nil
	}
	resources, err := resource.New(
		context.Background(),
		resource.WithAttributes(
			attribute.String("service.name", "apiserver"),
			attribute.String("library.language", "go"),
		),
	)
	if err != nil {
		logger.Errorf("Unable to create resources: %s", err.Error())
		return nil
	}

	deployEnvironment := os.Getenv("BACKOFFICE_ENVIRONMENT")
	if deployEnvironment == "" {
		deployEnvironment = "development"
	}

	otel.SetTracerProvider(
		sdktrace.NewTracerProvider(
			sdktrace.WithResource(resource.NewWithAttributes(
				semconv.SchemaURL,
				semconv.ServiceName("apiserver"),
				semconv.DeploymentEnvironment(deployEnvironment),
			)),
			sdktrace.WithSampler(sdktrace.AlwaysSample()),
			sdktrace.WithBatcher(exporter),
			sdktrace.WithResource(resources),
		),
	)
	return exporter.Shutdown
}
