package delivery

import (
	"errors"

	"github.com/gofiber/fiber/v2"
)

type DeliveryController struct {
	DeliveryService DeliveryService
}

func NewDeliveryController(deliveryService DeliveryService) *DeliveryController {
	return &DeliveryController{DeliveryService: deliveryService}
}

func (c *DeliveryController) List(ctx *fiber.Ctx) error {
	reportID := ctx.Query("report_id")
	if reportID == "" {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "report_id is required"})
	}
	deliveries, err := c.DeliveryService.ListByReport(ctx.Context(), reportID)
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.JSON(deliveries)
}

func (c *DeliveryController) Get(ctx *fiber.Ctx) error {
	d, err := c.DeliveryService.Get(ctx.Context(), ctx.Params("id"))
	if err != nil {
		return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Delivery not found"})
	}
	return ctx.JSON(d)
}

func (c *DeliveryController) Retry(ctx *fiber.Ctx) error {
	force := ctx.Query("force") == "true"
	err := c.DeliveryService.Retry(ctx.Context(), ctx.Params("id"), force)
	if err != nil {
		switch {
		case errors.Is(err, ErrDeliveryNotFound):
			return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Delivery not found"})
		case errors.Is(err, ErrAlreadySent):
			return ctx.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
		case errors.Is(err, ErrAttemptsExhausted):
			return ctx.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Attempt budget spent; pass force=true to retry anyway"})
		}
		// The attempt itself failed; the outcome is on the delivery row.
		return ctx.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.SendStatus(fiber.StatusNoContent)
}

func (c *DeliveryController) Delete(ctx *fiber.Ctx) error {
	if err := c.DeliveryService.Delete(ctx.Context(), ctx.Params("id")); err != nil {
		if errors.Is(err, ErrDeliveryNotFound) {
			return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Delivery not found"})
		}
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to delete delivery"})
	}
	return ctx.SendStatus(fiber.StatusNoContent)
}
