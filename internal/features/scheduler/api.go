package scheduler

import (
	"go-reporting/internal/common/api"
	common_models "go-reporting/internal/common/models"
	"go-reporting/internal/config"
	"go-reporting/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type SchedulerApi struct {
	SchedulerController *SchedulerController
	Config              *config.Config
	Capabilities        middleware.CapabilityChecker
}

func NewSchedulerApi(schedulerController *SchedulerController, cfg *config.Config, capabilities middleware.CapabilityChecker) api.Route {
	return &SchedulerApi{
		SchedulerController: schedulerController,
		Config:              cfg,
		Capabilities:        capabilities,
	}
}

func (a *SchedulerApi) Setup(app *fiber.App) {
	group := app.Group("/api/scheduler", middleware.AuthMiddleware(a.Config.SkipAuth))

	group.Get("/occurrences", middleware.RequireCapability(a.Capabilities, a.Config.SkipAuth, common_models.CapabilityRead), a.SchedulerController.ListOccurrences)
}
