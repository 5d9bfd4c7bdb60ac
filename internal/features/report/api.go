package report

import (
	"go-reporting/internal/common/api"
	common_models "go-reporting/internal/common/models"
	"go-reporting/internal/config"
	"go-reporting/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type ReportApi struct {
	ReportController *ReportController
	Config           *config.Config
	Capabilities     middleware.CapabilityChecker
}

func NewReportApi(reportController *ReportController, cfg *config.Config, capabilities middleware.CapabilityChecker) api.Route {
	return &ReportApi{
		ReportController: reportController,
		Config:           cfg,
		Capabilities:     capabilities,
	}
}

func (a *ReportApi) Setup(app *fiber.App) {
	group := app.Group("/api/reports", middleware.AuthMiddleware(a.Config.SkipAuth))

	group.Post("/generate/:configId", middleware.RequireCapability(a.Capabilities, a.Config.SkipAuth, common_models.CapabilityWrite), a.ReportController.Trigger)
	group.Get("/instances", middleware.RequireCapability(a.Capabilities, a.Config.SkipAuth, common_models.CapabilityRead), a.ReportController.ListInstances)
	group.Get("/instances/:id", middleware.RequireCapability(a.Capabilities, a.Config.SkipAuth, common_models.CapabilityRead), a.ReportController.GetInstance)
	group.Get("/", middleware.RequireCapability(a.Capabilities, a.Config.SkipAuth, common_models.CapabilityRead), a.ReportController.List)
	group.Get("/:id", middleware.RequireCapability(a.Capabilities, a.Config.SkipAuth, common_models.CapabilityRead), a.ReportController.Get)
	group.Get("/:id/download", middleware.RequireCapability(a.Capabilities, a.Config.SkipAuth, common_models.CapabilityRead), a.ReportController.Download)
	group.Delete("/:id", middleware.RequireCapability(a.Capabilities, a.Config.SkipAuth, common_models.CapabilityDelete), a.ReportController.Delete)
}
