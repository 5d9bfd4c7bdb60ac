package share

import (
	"errors"
	"io"
	"path/filepath"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"go-reporting/pkg/utils"
)

type ShareController struct {
	ShareService ShareService
}

func NewShareController(shareService ShareService) *ShareController {
	return &ShareController{ShareService: shareService}
}

func actorFrom(ctx *fiber.Ctx) string {
	if claims, ok := ctx.Locals(utils.UserClaimsKey).(*utils.UserClaims); ok {
		return claims.UserID
	}
	return ""
}

func (c *ShareController) Create(ctx *fiber.Ctx) error {
	var req CreateShareRequest
	if err := ctx.BodyParser(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	link, err := c.ShareService.CreateShare(ctx.Context(), &req, actorFrom(ctx))
	if err != nil {
		switch {
		case errors.Is(err, ErrNotReportOwner):
			return ctx.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": err.Error()})
		}
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.Status(fiber.StatusCreated).JSON(link)
}

func (c *ShareController) List(ctx *fiber.Ctx) error {
	reportID := ctx.Query("report_id")
	if reportID == "" {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "report_id is required"})
	}
	links, err := c.ShareService.ListByReport(ctx.Context(), reportID)
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.JSON(links)
}

func (c *ShareController) Revoke(ctx *fiber.Ctx) error {
	if err := c.ShareService.Revoke(ctx.Context(), ctx.Params("id"), actorFrom(ctx)); err != nil {
		switch {
		case errors.Is(err, ErrShareNotFound):
			return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Share not found"})
		case errors.Is(err, ErrNotReportOwner):
			return ctx.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": err.Error()})
		}
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.SendStatus(fiber.StatusNoContent)
}

// sharePassword pulls the password from the header first, falling back to
// a query parameter for plain-browser access.
func sharePassword(ctx *fiber.Ctx) string {
	if pw := ctx.Get("X-Share-Password"); pw != "" {
		return pw
	}
	return ctx.Query("password")
}

func accessStatus(err error) int {
	switch {
	case errors.Is(err, ErrShareNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, ErrShareRevoked), errors.Is(err, ErrShareExpired), errors.Is(err, ErrQuotaExhausted):
		return fiber.StatusGone
	case errors.Is(err, ErrPasswordRequired), errors.Is(err, ErrInvalidPassword):
		return fiber.StatusUnauthorized
	case errors.Is(err, ErrIPNotAllowed), errors.Is(err, ErrPermissionDenied):
		return fiber.StatusForbidden
	}
	return fiber.StatusInternalServerError
}

// PublicView serves report metadata through a bearer token. No session is
// involved; the token plus the share's own checks are the whole gate.
func (c *ShareController) PublicView(ctx *fiber.Ctx) error {
	rep, link, err := c.ShareService.View(ctx.Context(), ctx.Params("token"), sharePassword(ctx), ctx.IP(), ctx.Get("User-Agent"))
	if err != nil {
		return ctx.Status(accessStatus(err)).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.JSON(fiber.Map{
		"report": fiber.Map{
			"id":          rep.ID.Hex(),
			"name":        rep.Name,
			"format":      rep.Format,
			"fileSize":    rep.FileSize,
			"generatedAt": rep.GeneratedAt,
		},
		"permissions": link.Permissions,
		"expiresAt":   link.ExpiresAt,
	})
}

func (c *ShareController) PublicDownload(ctx *fiber.Ctx) error {
	rc, rep, err := c.ShareService.Download(ctx.Context(), ctx.Params("token"), sharePassword(ctx), ctx.IP(), ctx.Get("User-Agent"))
	if err != nil {
		return ctx.Status(accessStatus(err)).JSON(fiber.Map{"error": err.Error()})
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	ctx.Set("Content-Disposition", "attachment; filename="+strconv.Quote(filepath.Base(rep.FilePath)))
	return ctx.Send(data)
}
