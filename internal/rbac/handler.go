package rbac

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/nusaledger/nusa_ledger/internal/middleware"
)

// Handler exposes the governance surface: granting, revoking and listing
// role assignments.
type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type grantRequest struct {
	Role     string `json:"role"`
	Identity string `json:"identity"`
	Scope    string `json:"scope"`
}

// Grant assigns a role to an identity. Requires GOVERNANCE.
func (h *Handler) Grant(c *fiber.Ctx) error {
	var req grantRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	actor := middleware.Identity(c)

	grant := Grant{Role: Role(strings.ToLower(req.Role)), Identity: req.Identity, Scope: req.Scope}
	if err := h.service.Grant(c.UserContext(), actor, grant); err != nil {
		if errors.Is(err, ErrUnauthorized) {
			return fiber.NewError(http.StatusForbidden, "governance role required")
		}
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	return c.SendStatus(http.StatusNoContent)
}

// Revoke removes a role from an identity. Requires GOVERNANCE.
func (h *Handler) Revoke(c *fiber.Ctx) error {
	var req grantRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	actor := middleware.Identity(c)

	grant := Grant{Role: Role(strings.ToLower(req.Role)), Identity: req.Identity, Scope: req.Scope}
	if err := h.service.Revoke(c.UserContext(), actor, grant); err != nil {
		if errors.Is(err, ErrUnauthorized) {
			return fiber.NewError(http.StatusForbidden, "governance role required")
		}
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	return c.SendStatus(http.StatusNoContent)
}

// Holders lists the identities currently holding a role.
func (h *Handler) Holders(c *fiber.Ctx) error {
	role := Role(strings.ToLower(c.Params("role")))
	if !role.Valid() {
		return fiber.NewError(http.StatusNotFound, "unknown role")
	}
	holders, err := h.service.Holders(c.UserContext(), role)
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	if holders == nil {
		holders = []string{}
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"role": string(role), "holders": holders})
}
