package audit

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
)

type AuditController struct {
	AuditService AuditService
}

func NewAuditController(auditService AuditService) *AuditController {
	return &AuditController{AuditService: auditService}
}

func (c *AuditController) List(ctx *fiber.Ctx) error {
	filter := ListFilter{
		ReportID:   ctx.Query("report_id"),
		ShareID:    ctx.Query("share_id"),
		AccessType: ctx.Query("access_type"),
	}
	if v := ctx.Query("success"); v != "" {
		success := v == "true"
		filter.Success = &success
	}
	if v := ctx.Query("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid from timestamp"})
		}
		filter.From = &t
	}
	if v := ctx.Query("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid to timestamp"})
		}
		filter.To = &t
	}

	page, _ := strconv.ParseInt(ctx.Query("page", "1"), 10, 64)
	limit, _ := strconv.ParseInt(ctx.Query("limit", "50"), 10, 64)

	entries, total, err := c.AuditService.ListEntries(ctx.Context(), filter, page, limit)
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.JSON(fiber.Map{
		"entries": entries,
		"total":   total,
		"page":    page,
		"limit":   limit,
	})
}
