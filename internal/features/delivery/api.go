package delivery

import (
	"go-reporting/internal/common/api"
	common_models "go-reporting/internal/common/models"
	"go-reporting/internal/config"
	"go-reporting/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type DeliveryApi struct {
	DeliveryController *DeliveryController
	Config             *config.Config
	Capabilities       middleware.CapabilityChecker
}

func NewDeliveryApi(deliveryController *DeliveryController, cfg *config.Config, capabilities middleware.CapabilityChecker) api.Route {
	return &DeliveryApi{
		DeliveryController: deliveryController,
		Config:             cfg,
		Capabilities:       capabilities,
	}
}

func (a *DeliveryApi) Setup(app *fiber.App) {
	group := app.Group("/api/deliveries", middleware.AuthMiddleware(a.Config.SkipAuth))

	group.Get("/", middleware.RequireCapability(a.Capabilities, a.Config.SkipAuth, common_models.CapabilityRead), a.DeliveryController.List)
	group.Get("/:id", middleware.RequireCapability(a.Capabilities, a.Config.SkipAuth, common_models.CapabilityRead), a.DeliveryController.Get)
	group.Post("/:id/retry", middleware.RequireCapability(a.Capabilities, a.Config.SkipAuth, common_models.CapabilityWrite), a.DeliveryController.Retry)
	group.Delete("/:id", middleware.RequireCapability(a.Capabilities, a.Config.SkipAuth, common_models.CapabilityDelete), a.DeliveryController.Delete)
}
