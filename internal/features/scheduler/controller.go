package scheduler

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
)

type SchedulerController struct {
	Scheduler *Scheduler
}

func NewSchedulerController(scheduler *Scheduler) *SchedulerController {
	return &SchedulerController{Scheduler: scheduler}
}

func (c *SchedulerController) ListOccurrences(ctx *fiber.Ctx) error {
	limit, _ := strconv.ParseInt(ctx.Query("limit"), 10, 64)
	occurrences, err := c.Scheduler.ListOccurrences(ctx.Context(), ctx.Query("config_id"), limit)
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.JSON(occurrences)
}
