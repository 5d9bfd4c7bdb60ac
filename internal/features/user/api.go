package user

import (
	"go-reporting/internal/common/api"
	common_models "go-reporting/internal/common/models"
	"go-reporting/internal/config"
	"go-reporting/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type UserApi struct {
	UserController *UserController
	Config         *config.Config
	Capabilities   middleware.CapabilityChecker
}

func NewUserApi(userController *UserController, cfg *config.Config, capabilities middleware.CapabilityChecker) api.Route {
	return &UserApi{
		UserController: userController,
		Config:         cfg,
		Capabilities:   capabilities,
	}
}

func (a *UserApi) Setup(app *fiber.App) {
	group := app.Group("/api/users", middleware.AuthMiddleware(a.Config.SkipAuth))

	group.Get("/me", a.UserController.Me)
	group.Get("/", middleware.RequireCapability(a.Capabilities, a.Config.SkipAuth, common_models.CapabilityManage), a.UserController.List)
}
