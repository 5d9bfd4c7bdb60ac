package permission

import (
	"go-reporting/internal/common/api"
	common_models "go-reporting/internal/common/models"
	"go-reporting/internal/config"
	"go-reporting/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type PermissionApi struct {
	PermissionController *PermissionController
	Config               *config.Config
	Capabilities         middleware.CapabilityChecker
}

func NewPermissionApi(permissionController *PermissionController, cfg *config.Config, capabilities middleware.CapabilityChecker) api.Route {
	return &PermissionApi{
		PermissionController: permissionController,
		Config:               cfg,
		Capabilities:         capabilities,
	}
}

func (a *PermissionApi) Setup(app *fiber.App) {
	group := app.Group("/api/members", middleware.AuthMiddleware(a.Config.SkipAuth))

	group.Post("/", middleware.RequireCapability(a.Capabilities, a.Config.SkipAuth, common_models.CapabilityManage), a.PermissionController.AddMember)
	group.Get("/", middleware.RequireCapability(a.Capabilities, a.Config.SkipAuth, common_models.CapabilityRead), a.PermissionController.List)
	group.Delete("/:userId", middleware.RequireCapability(a.Capabilities, a.Config.SkipAuth, common_models.CapabilityManage), a.PermissionController.Remove)
}
