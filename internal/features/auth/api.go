package auth

import (
	"go-reporting/internal/common/api"
	"go-reporting/internal/config"

	"github.com/gofiber/fiber/v2"
)

type AuthApi struct {
	controller *AuthController
	config     *config.Config
}

func NewAuthApi(controller *AuthController, cfg *config.Config) api.Route {
	return &AuthApi{
		controller: controller,
		config:     cfg,
	}
}

// Setup registers the public auth routes.
func (h *AuthApi) Setup(app *fiber.App) {
	app.Post("/api/register", h.controller.Register)
	app.Post("/api/login", h.controller.Login)
}
