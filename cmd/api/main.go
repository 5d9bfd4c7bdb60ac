package main

import (
	"context"
	"fmt"
	"log"
	"time"

	common_api "go-reporting/internal/common/api"
	"go-reporting/internal/config"
	"go-reporting/internal/database"
	"go-reporting/internal/email"
	"go-reporting/internal/features/audit"
	"go-reporting/internal/features/auth"
	"go-reporting/internal/features/delivery"
	"go-reporting/internal/features/permission"
	"go-reporting/internal/features/record"
	"go-reporting/internal/features/report"
	"go-reporting/internal/features/reportconfig"
	"go-reporting/internal/features/scheduler"
	"go-reporting/internal/features/share"
	"go-reporting/internal/features/system"
	"go-reporting/internal/features/template"
	"go-reporting/internal/features/user"
	"go-reporting/internal/logger"
	"go-reporting/internal/middleware"
	"go-reporting/internal/storage"

	_ "go-reporting/docs" // Import swagger docs

	"github.com/gofiber/fiber/v2"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

// NewFiberServer creates a new Fiber app instance
func NewFiberServer() *fiber.App {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	app.Use(middleware.CORSMiddleware())

	return app
}

// AsRoute is a helper function to reduce boilerplate.
// It tags the constructor so Fx knows to add it to the "routes" group.
func AsRoute(f any) any {
	return fx.Annotate(
		f,
		fx.As(new(common_api.Route)),
		fx.ResultTags(`group:"routes"`),
	)
}

// RegisterAllRoutes takes the group "routes" (slice of interfaces)
// and calls Setup() on each one.
func RegisterAllRoutes(app *fiber.App, routes []common_api.Route) {
	for _, route := range routes {
		route.Setup(app)
	}
}

var RegisterAllRoutesWithAnnotation = fx.Annotate(
	RegisterAllRoutes,
	fx.ParamTags(``, `group:"routes"`),
)

// StartServer creates a lifecycle hook to start Fiber in a goroutine
// and shut it down when the app exits.
func StartServer(lc fx.Lifecycle, app *fiber.App, cfg *config.Config) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				port := fmt.Sprintf(":%s", cfg.Port)
				if err := app.Listen(port); err != nil {
					log.Fatalf("Server failed to start: %v", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return app.Shutdown()
		},
	})
}

// InitializeIndexes ensures that necessary database indexes are created
func InitializeIndexes(
	lc fx.Lifecycle,
	occurrences scheduler.OccurrenceRepository,
	shares share.ShareRepository,
	audits audit.AuditRepository,
	members permission.MemberRepository,
	users user.UserRepository,
) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				defer cancel()

				if err := occurrences.EnsureIndexes(ctx); err != nil {
					log.Printf("Failed to ensure occurrence indexes: %v", err)
				}
				if err := shares.EnsureIndexes(ctx); err != nil {
					log.Printf("Failed to ensure share indexes: %v", err)
				}
				if err := audits.EnsureIndexes(ctx); err != nil {
					log.Printf("Failed to ensure access log indexes: %v", err)
				}
				if err := members.EnsureIndexes(ctx); err != nil {
					log.Printf("Failed to ensure member indexes: %v", err)
				}
				if err := users.EnsureIndexes(ctx); err != nil {
					log.Printf("Failed to ensure user indexes: %v", err)
				}
			}()
			return nil
		},
	})
}

// templateConfigCounter and templateInstanceCounter are the slices of the
// config and report repositories the deletion guard needs.
type templateConfigCounter interface {
	CountByTemplate(ctx context.Context, templateID string) (int64, error)
}

type templateInstanceCounter interface {
	CountInstancesByTemplate(ctx context.Context, templateID string) (int64, error)
}

// templateRefChecker reports whether any report config or generated
// report instance still references a template, so template deletion can
// refuse.
type templateRefChecker struct {
	configs   templateConfigCounter
	instances templateInstanceCounter
}

func (a *templateRefChecker) TemplateReferenced(ctx context.Context, templateID string) (bool, error) {
	n, err := a.configs.CountByTemplate(ctx, templateID)
	if err != nil {
		return false, err
	}
	if n > 0 {
		return true, nil
	}
	n, err = a.instances.CountInstancesByTemplate(ctx, templateID)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func main() {
	app := fx.New(
		fx.Provide(
			// Load Config
			config.LoadConfig,

			// Initialize Logger
			logger.NewLogger,

			// Initialize Fiber Server
			NewFiberServer,

			// Initialize Database
			database.NewDatabase,

			// Collaborators
			storage.NewLocalStorage,
			email.NewSMTPSender,
			record.NewStore,

			// Initialize Repository
			template.NewTemplateRepository,
			reportconfig.NewConfigRepository,
			report.NewReportRepository,
			scheduler.NewOccurrenceRepository,
			share.NewShareRepository,
			delivery.NewDeliveryRepository,
			audit.NewAuditRepository,
			permission.NewMemberRepository,
			user.NewUserRepository,

			// Initialize Service
			template.NewTemplateService,
			reportconfig.NewConfigService,
			report.NewReportService,
			scheduler.NewScheduler,
			share.NewShareService,
			delivery.NewDeliveryService,
			audit.NewAuditService,
			permission.NewPermissionService,
			auth.NewAuthService,
			system.NewHub,

			// Interface Adapters to break circular dependencies and satisfy Fx
			func(c reportconfig.ConfigRepository, r report.ReportRepository) template.ReferenceChecker {
				return &templateRefChecker{configs: c, instances: r}
			},
			func(s permission.PermissionService) middleware.CapabilityChecker { return s },
			func(s permission.PermissionService) share.CapabilityResolver { return s },
			func(s share.ShareService) report.EmailHandoff { return s },
			func(s share.ShareService) report.CascadePurger { return s },
			func(s audit.AuditService) report.AccessRecorder { return s },
			func(h *system.Hub) report.Notifier { return h },
			func(s report.ReportService) scheduler.Generator { return s },
			func(r report.ReportRepository) share.ReportStore { return r },
			func(r report.ReportRepository) delivery.ReportFinder { return r },

			// Initialize Controller
			template.NewTemplateController,
			reportconfig.NewConfigController,
			report.NewReportController,
			scheduler.NewSchedulerController,
			share.NewShareController,
			delivery.NewDeliveryController,
			audit.NewAuditController,
			permission.NewPermissionController,
			auth.NewAuthController,
			user.NewUserController,

			// Initialize API Routes
			AsRoute(template.NewTemplateApi),
			AsRoute(reportconfig.NewConfigApi),
			AsRoute(report.NewReportApi),
			AsRoute(scheduler.NewSchedulerApi),
			AsRoute(share.NewShareApi),
			AsRoute(delivery.NewDeliveryApi),
			AsRoute(audit.NewAuditApi),
			AsRoute(permission.NewPermissionApi),
			AsRoute(auth.NewAuthApi),
			AsRoute(user.NewUserApi),
			AsRoute(system.NewHealthApi),
			AsRoute(system.NewSwaggerApi),
			AsRoute(system.NewWebSocketApi),
		),
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log}
		}),
		fx.Invoke(
			// Register Routes & Start
			RegisterAllRoutesWithAnnotation,
			StartServer,
			scheduler.RegisterScheduler,
			InitializeIndexes,
		),
	)

	app.Run()
}
