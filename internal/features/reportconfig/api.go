package reportconfig

import (
	"go-reporting/internal/common/api"
	common_models "go-reporting/internal/common/models"
	"go-reporting/internal/config"
	"go-reporting/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type ConfigApi struct {
	ConfigController *ConfigController
	Config           *config.Config
	Capabilities     middleware.CapabilityChecker
}

func NewConfigApi(configController *ConfigController, cfg *config.Config, capabilities middleware.CapabilityChecker) api.Route {
	return &ConfigApi{
		ConfigController: configController,
		Config:           cfg,
		Capabilities:     capabilities,
	}
}

func (a *ConfigApi) Setup(app *fiber.App) {
	group := app.Group("/api/report-configs", middleware.AuthMiddleware(a.Config.SkipAuth))

	group.Post("/", middleware.RequireCapability(a.Capabilities, a.Config.SkipAuth, common_models.CapabilityWrite), a.ConfigController.Create)
	group.Get("/", middleware.RequireCapability(a.Capabilities, a.Config.SkipAuth, common_models.CapabilityRead), a.ConfigController.List)
	group.Get("/:id", middleware.RequireCapability(a.Capabilities, a.Config.SkipAuth, common_models.CapabilityRead), a.ConfigController.Get)
	group.Put("/:id", middleware.RequireCapability(a.Capabilities, a.Config.SkipAuth, common_models.CapabilityWrite), a.ConfigController.Update)
	group.Delete("/:id", middleware.RequireCapability(a.Capabilities, a.Config.SkipAuth, common_models.CapabilityDelete), a.ConfigController.Delete)
}
