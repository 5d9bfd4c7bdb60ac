package template

import (
	"errors"

	"github.com/gofiber/fiber/v2"
)

type TemplateController struct {
	TemplateService TemplateService
}

func NewTemplateController(templateService TemplateService) *TemplateController {
	return &TemplateController{TemplateService: templateService}
}

func (c *TemplateController) Create(ctx *fiber.Ctx) error {
	var t ReportTemplate
	if err := ctx.BodyParser(&t); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	if err := c.TemplateService.CreateTemplate(ctx.Context(), &t); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	return ctx.Status(fiber.StatusCreated).JSON(t)
}

func (c *TemplateController) List(ctx *fiber.Ctx) error {
	templates, err := c.TemplateService.ListTemplates(ctx.Context(), ctx.Query("category"))
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.JSON(templates)
}

func (c *TemplateController) Get(ctx *fiber.Ctx) error {
	t, err := c.TemplateService.GetTemplate(ctx.Context(), ctx.Params("id"))
	if err != nil {
		return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Template not found"})
	}
	return ctx.JSON(t)
}

func (c *TemplateController) Update(ctx *fiber.Ctx) error {
	var t ReportTemplate
	if err := ctx.BodyParser(&t); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	if err := c.TemplateService.UpdateTemplate(ctx.Context(), ctx.Params("id"), &t); err != nil {
		if errors.Is(err, ErrNotFound) {
			return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Template not found"})
		}
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	return ctx.SendStatus(fiber.StatusNoContent)
}

func (c *TemplateController) Delete(ctx *fiber.Ctx) error {
	if err := c.TemplateService.DeleteTemplate(ctx.Context(), ctx.Params("id")); err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Template not found"})
		case errors.Is(err, ErrTemplateInUse):
			return ctx.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
		default:
			return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		}
	}
	return ctx.SendStatus(fiber.StatusNoContent)
}

func (c *TemplateController) ListVersions(ctx *fiber.Ctx) error {
	versions, err := c.TemplateService.ListVersions(ctx.Context(), ctx.Params("id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Template not found"})
		}
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.JSON(versions)
}

func (c *TemplateController) Preview(ctx *fiber.Ctx) error {
	var req struct {
		Variables map[string]any `json:"variables"`
	}
	if err := ctx.BodyParser(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	rendered, err := c.TemplateService.Preview(ctx.Context(), ctx.Params("id"), req.Variables)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Template not found"})
		}
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	return ctx.JSON(fiber.Map{"rendered": rendered})
}
