package permission

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"go-reporting/pkg/utils"
)

type PermissionController struct {
	PermissionService PermissionService
}

func NewPermissionController(permissionService PermissionService) *PermissionController {
	return &PermissionController{PermissionService: permissionService}
}

func (c *PermissionController) AddMember(ctx *fiber.Ctx) error {
	var member WorkspaceMember
	if err := ctx.BodyParser(&member); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if claims, ok := ctx.Locals(utils.UserClaimsKey).(*utils.UserClaims); ok {
		member.AddedBy = claims.UserID
	}

	if err := c.PermissionService.AddMember(ctx.Context(), &member); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.Status(fiber.StatusCreated).JSON(member)
}

func (c *PermissionController) List(ctx *fiber.Ctx) error {
	workspaceID := ctx.Query("workspace_id")
	if workspaceID == "" {
		if claims, ok := ctx.Locals(utils.UserClaimsKey).(*utils.UserClaims); ok {
			workspaceID = claims.WorkspaceID
		}
	}
	members, err := c.PermissionService.ListMembers(ctx.Context(), workspaceID)
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.JSON(members)
}

func (c *PermissionController) Remove(ctx *fiber.Ctx) error {
	if err := c.PermissionService.RemoveMember(ctx.Context(), ctx.Params("userId"), ctx.Query("workspace_id")); err != nil {
		if errors.Is(err, ErrMemberNotFound) {
			return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Member not found"})
		}
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.SendStatus(fiber.StatusNoContent)
}
