package audit

import (
	"go-reporting/internal/common/api"
	common_models "go-reporting/internal/common/models"
	"go-reporting/internal/config"
	"go-reporting/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type AuditApi struct {
	AuditController *AuditController
	Config          *config.Config
	Capabilities    middleware.CapabilityChecker
}

func NewAuditApi(auditController *AuditController, cfg *config.Config, capabilities middleware.CapabilityChecker) api.Route {
	return &AuditApi{
		AuditController: auditController,
		Config:          cfg,
		Capabilities:    capabilities,
	}
}

func (a *AuditApi) Setup(app *fiber.App) {
	group := app.Group("/api/access-logs", middleware.AuthMiddleware(a.Config.SkipAuth))

	group.Get("/", middleware.RequireCapability(a.Capabilities, a.Config.SkipAuth, common_models.CapabilityRead), a.AuditController.List)
}
