package template

import (
	"go-reporting/internal/common/api"
	common_models "go-reporting/internal/common/models"
	"go-reporting/internal/config"
	"go-reporting/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type TemplateApi struct {
	TemplateController *TemplateController
	Config             *config.Config
	Capabilities       middleware.CapabilityChecker
}

func NewTemplateApi(templateController *TemplateController, cfg *config.Config, capabilities middleware.CapabilityChecker) api.Route {
	return &TemplateApi{
		TemplateController: templateController,
		Config:             cfg,
		Capabilities:       capabilities,
	}
}

func (a *TemplateApi) Setup(app *fiber.App) {
	group := app.Group("/api/templates", middleware.AuthMiddleware(a.Config.SkipAuth))

	group.Post("/", middleware.RequireCapability(a.Capabilities, a.Config.SkipAuth, common_models.CapabilityWrite), a.TemplateController.Create)
	group.Get("/", middleware.RequireCapability(a.Capabilities, a.Config.SkipAuth, common_models.CapabilityRead), a.TemplateController.List)
	group.Get("/:id", middleware.RequireCapability(a.Capabilities, a.Config.SkipAuth, common_models.CapabilityRead), a.TemplateController.Get)
	group.Put("/:id", middleware.RequireCapability(a.Capabilities, a.Config.SkipAuth, common_models.CapabilityWrite), a.TemplateController.Update)
	group.Delete("/:id", middleware.RequireCapability(a.Capabilities, a.Config.SkipAuth, common_models.CapabilityDelete), a.TemplateController.Delete)
	group.Get("/:id/versions", middleware.RequireCapability(a.Capabilities, a.Config.SkipAuth, common_models.CapabilityRead), a.TemplateController.ListVersions)
	group.Post("/:id/preview", middleware.RequireCapability(a.Capabilities, a.Config.SkipAuth, common_models.CapabilityRead), a.TemplateController.Preview)
}
