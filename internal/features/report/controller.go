package report

import (
	"errors"
	"io"
	"path/filepath"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"go-reporting/pkg/utils"
)

type ReportController struct {
	ReportService ReportService
}

func NewReportController(reportService ReportService) *ReportController {
	return &ReportController{ReportService: reportService}
}

func claimsFrom(ctx *fiber.Ctx) *utils.UserClaims {
	if claims, ok := ctx.Locals(utils.UserClaimsKey).(*utils.UserClaims); ok {
		return claims
	}
	return &utils.UserClaims{}
}

// Trigger starts a manual generation for a config, bypassing the enabled
// flag and the schedule.
func (c *ReportController) Trigger(ctx *fiber.Ctx) error {
	instanceID, err := c.ReportService.Generate(ctx.Context(), ctx.Params("configId"), true)
	if err != nil {
		if instanceID != "" {
			// Generation ran and failed; the outcome lives on the instance.
			return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
				"instanceId": instanceID,
				"status":     StatusFailed,
				"error":      err.Error(),
			})
		}
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.Status(fiber.StatusCreated).JSON(fiber.Map{
		"instanceId": instanceID,
		"status":     StatusCompleted,
	})
}

func (c *ReportController) ListInstances(ctx *fiber.Ctx) error {
	limit, _ := strconv.ParseInt(ctx.Query("limit"), 10, 64)
	instances, err := c.ReportService.ListInstances(ctx.Context(), claimsFrom(ctx).WorkspaceID, ctx.Query("config_id"), limit)
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.JSON(instances)
}

func (c *ReportController) GetInstance(ctx *fiber.Ctx) error {
	inst, err := c.ReportService.GetInstance(ctx.Context(), ctx.Params("id"))
	if err != nil {
		return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Instance not found"})
	}
	return ctx.JSON(inst)
}

func (c *ReportController) List(ctx *fiber.Ctx) error {
	limit, _ := strconv.ParseInt(ctx.Query("limit"), 10, 64)
	reports, err := c.ReportService.ListReports(ctx.Context(), claimsFrom(ctx).WorkspaceID, ctx.Query("config_id"), limit)
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.JSON(reports)
}

func (c *ReportController) Get(ctx *fiber.Ctx) error {
	rep, err := c.ReportService.GetReport(ctx.Context(), ctx.Params("id"))
	if err != nil {
		return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Report not found"})
	}
	return ctx.JSON(rep)
}

func (c *ReportController) Download(ctx *fiber.Ctx) error {
	claims := claimsFrom(ctx)
	rc, rep, err := c.ReportService.Download(ctx.Context(), ctx.Params("id"), claims.UserID, ctx.IP(), ctx.Get("User-Agent"))
	if err != nil {
		if errors.Is(err, ErrReportNotFound) {
			return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Report not found"})
		}
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	ctx.Set("Content-Disposition", "attachment; filename="+strconv.Quote(filepath.Base(rep.FilePath)))
	ctx.Set("Content-Type", contentTypeFor(rep.Format))
	return ctx.Send(data)
}

func (c *ReportController) Delete(ctx *fiber.Ctx) error {
	if err := c.ReportService.DeleteReport(ctx.Context(), ctx.Params("id"), claimsFrom(ctx).UserID); err != nil {
		switch {
		case errors.Is(err, ErrReportNotFound):
			return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Report not found"})
		case errors.Is(err, ErrNotOwner):
			return ctx.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": err.Error()})
		}
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.SendStatus(fiber.StatusNoContent)
}

func contentTypeFor(format string) string {
	switch format {
	case "html":
		return "text/html; charset=utf-8"
	case "csv":
		return "text/csv"
	case "xlsx":
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return "text/plain; charset=utf-8"
	}
}
