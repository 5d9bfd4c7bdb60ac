package share

import (
	"go-reporting/internal/common/api"
	common_models "go-reporting/internal/common/models"
	"go-reporting/internal/config"
	"go-reporting/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type ShareApi struct {
	ShareController *ShareController
	Config          *config.Config
	Capabilities    middleware.CapabilityChecker
}

func NewShareApi(shareController *ShareController, cfg *config.Config, capabilities middleware.CapabilityChecker) api.Route {
	return &ShareApi{
		ShareController: shareController,
		Config:          cfg,
		Capabilities:    capabilities,
	}
}

func (a *ShareApi) Setup(app *fiber.App) {
	group := app.Group("/api/shares", middleware.AuthMiddleware(a.Config.SkipAuth))
	group.Post("/", middleware.RequireCapability(a.Capabilities, a.Config.SkipAuth, common_models.CapabilityWrite), a.ShareController.Create)
	group.Get("/", middleware.RequireCapability(a.Capabilities, a.Config.SkipAuth, common_models.CapabilityRead), a.ShareController.List)
	group.Delete("/:id", middleware.RequireCapability(a.Capabilities, a.Config.SkipAuth, common_models.CapabilityWrite), a.ShareController.Revoke)

	// Token-bearing endpoints stay outside auth but behind the per-IP
	// limiter.
	public := app.Group("/share", middleware.ShareRateLimit(a.Config.ShareRateRPS, a.Config.ShareRateBurst))
	public.Get("/:token", a.ShareController.PublicView)
	public.Get("/:token/download", a.ShareController.PublicDownload)
}
