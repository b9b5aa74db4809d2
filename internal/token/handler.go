package token

import (
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/nusaledger/nusa_ledger/internal/ledger"
	"github.com/nusaledger/nusa_ledger/internal/middleware"
	"github.com/nusaledger/nusa_ledger/internal/rbac"
	"github.com/nusaledger/nusa_ledger/internal/registry"
)

// Handler exposes balance and token movement endpoints.
type Handler struct {
	service  *Service
	registry *registry.Service
}

// NewHandler builds a token HTTP handler.
func NewHandler(service *Service, reg *registry.Service) *Handler {
	return &Handler{service: service, registry: reg}
}

type mintRequest struct {
	Identity string `json:"identity"`
	Amount   int64  `json:"amount"`
}

type transferRequest struct {
	BankID      string `json:"bank_id"`
	FromAccount string `json:"from_account"`
	ToAccount   string `json:"to_account"`
	Amount      int64  `json:"amount"`
	Memo        string `json:"memo"`
}

// Balance returns the identity's balance.
func (h *Handler) Balance(c *fiber.Ctx) error {
	balance, err := h.service.BalanceOf(c.UserContext(), c.Params("identity"))
	if err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			return fiber.NewError(http.StatusNotFound, "identity not found")
		}
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"identity":  c.Params("identity"),
		"balance":   balance,
		"timestamp": time.Now().UTC(),
	})
}

// Mint credits new value to an identity.
func (h *Handler) Mint(c *fiber.Ctx) error {
	var req mintRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	actor := middleware.Identity(c)

	balance, err := h.service.Mint(c.UserContext(), actor, req.Identity, req.Amount)
	if err != nil {
		return mapTokenError(err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"identity": req.Identity, "balance": balance})
}

// Burn destroys value held by an identity.
func (h *Handler) Burn(c *fiber.Ctx) error {
	var req mintRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	actor := middleware.Identity(c)

	balance, err := h.service.Burn(c.UserContext(), actor, req.Identity, req.Amount)
	if err != nil {
		return mapTokenError(err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"identity": req.Identity, "balance": balance})
}

// TransferInternal moves funds between two accounts of the same bank. The
// acting identity must own the debited account.
func (h *Handler) TransferInternal(c *fiber.Ctx) error {
	var req transferRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	actor := middleware.Identity(c)

	from, err := h.registry.Resolve(c.UserContext(), req.BankID, req.FromAccount)
	if err != nil {
		if errors.Is(err, registry.ErrNotFound) {
			return fiber.NewError(http.StatusNotFound, "source account not found")
		}
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	to, err := h.registry.Resolve(c.UserContext(), req.BankID, req.ToAccount)
	if err != nil {
		if errors.Is(err, registry.ErrNotFound) {
			return fiber.NewError(http.StatusNotFound, "destination account not found")
		}
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}

	res, err := h.service.Transfer(c.UserContext(), actor, from, to, req.Amount, req.Memo)
	if err != nil {
		return mapTokenError(err)
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"from_balance": res.FromBalance,
		"to_balance":   res.ToBalance,
		"completed_at": time.Now().UTC(),
	})
}

func mapTokenError(err error) error {
	switch {
	case errors.Is(err, rbac.ErrUnauthorized):
		return fiber.NewError(http.StatusForbidden, "role check failed")
	case errors.Is(err, ledger.ErrInvalidAmount):
		return fiber.NewError(http.StatusBadRequest, "amount must be positive")
	case errors.Is(err, ledger.ErrOverflow):
		return fiber.NewError(http.StatusBadRequest, "balance overflow")
	case errors.Is(err, ledger.ErrSameAccount):
		return fiber.NewError(http.StatusBadRequest, "cannot transfer to the same account")
	case errors.Is(err, ledger.ErrInsufficientBalance):
		return fiber.NewError(http.StatusBadRequest, "insufficient balance")
	case errors.Is(err, ledger.ErrNotFound):
		return fiber.NewError(http.StatusNotFound, "identity not found")
	default:
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
}
