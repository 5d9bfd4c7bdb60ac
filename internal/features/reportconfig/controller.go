package reportconfig

import (
	"errors"

	"github.com/gofiber/fiber/v2"
)

type ConfigController struct {
	ConfigService ConfigService
}

func NewConfigController(configService ConfigService) *ConfigController {
	return &ConfigController{ConfigService: configService}
}

func (c *ConfigController) Create(ctx *fiber.Ctx) error {
	var cfg ReportConfig
	if err := ctx.BodyParser(&cfg); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	if err := c.ConfigService.CreateConfig(ctx.Context(), &cfg); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	return ctx.Status(fiber.StatusCreated).JSON(cfg)
}

func (c *ConfigController) List(ctx *fiber.Ctx) error {
	configs, err := c.ConfigService.ListConfigs(ctx.Context(), ctx.Query("workspace_id"))
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.JSON(configs)
}

func (c *ConfigController) Get(ctx *fiber.Ctx) error {
	cfg, err := c.ConfigService.GetConfig(ctx.Context(), ctx.Params("id"))
	if err != nil {
		return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Config not found"})
	}
	return ctx.JSON(cfg)
}

func (c *ConfigController) Update(ctx *fiber.Ctx) error {
	var cfg ReportConfig
	if err := ctx.BodyParser(&cfg); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	if err := c.ConfigService.UpdateConfig(ctx.Context(), ctx.Params("id"), &cfg); err != nil {
		if errors.Is(err, ErrNotFound) {
			return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Config not found"})
		}
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	return ctx.SendStatus(fiber.StatusNoContent)
}

func (c *ConfigController) Delete(ctx *fiber.Ctx) error {
	if err := c.ConfigService.DeleteConfig(ctx.Context(), ctx.Params("id")); err != nil {
		if errors.Is(err, ErrNotFound) {
			return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Config not found"})
		}
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.SendStatus(fiber.StatusNoContent)
}
