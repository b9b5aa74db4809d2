package registry

import (
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/nusaledger/nusa_ledger/internal/middleware"
	"github.com/nusaledger/nusa_ledger/internal/rbac"
)

// Handler exposes account registry HTTP endpoints.
type Handler struct {
	service *Service
}

// NewHandler builds a registry HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type registerRequest struct {
	BankID string `json:"bank_id"`
	Number string `json:"account_number"`
	Owner  string `json:"owner"`
	Name   string `json:"name"`
}

type accountResponse struct {
	BankID    string `json:"bank_id"`
	Number    string `json:"account_number"`
	Owner     string `json:"owner"`
	Name      string `json:"name"`
	CreatedAt string `json:"created_at"`
}

func toResponse(a Account) accountResponse {
	return accountResponse{
		BankID:    a.BankID,
		Number:    a.Number,
		Owner:     a.Owner,
		Name:      a.Name,
		CreatedAt: a.CreatedAt.Format(time.RFC3339Nano),
	}
}

// Register creates an account for the acting bank.
func (h *Handler) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	actor := middleware.Identity(c)

	account, err := h.service.Register(c.UserContext(), actor, RegisterInput{
		BankID: req.BankID,
		Number: req.Number,
		Owner:  req.Owner,
		Name:   req.Name,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrDuplicateAccount):
			return fiber.NewError(http.StatusConflict, "account already exists")
		case errors.Is(err, rbac.ErrUnauthorized):
			return fiber.NewError(http.StatusForbidden, "bank role required")
		default:
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}
	}
	return c.Status(http.StatusCreated).JSON(toResponse(account))
}

// Resolve returns the owning identity of an account.
func (h *Handler) Resolve(c *fiber.Ctx) error {
	account, err := h.service.Get(c.UserContext(), c.Params("bankId"), c.Params("number"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return fiber.NewError(http.StatusNotFound, "account not found")
		}
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.Status(http.StatusOK).JSON(toResponse(account))
}

// ListByBank returns the accounts registered under a bank.
func (h *Handler) ListByBank(c *fiber.Ctx) error {
	accounts, err := h.service.ListByBank(c.UserContext(), c.Params("bankId"))
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	out := make([]accountResponse, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, toResponse(a))
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"accounts": out})
}
