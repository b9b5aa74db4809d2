package purchase

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/nusaledger/nusa_ledger/internal/catalog"
	"github.com/nusaledger/nusa_ledger/internal/ledger"
	"github.com/nusaledger/nusa_ledger/internal/middleware"
)

// Handler exposes the purchase endpoint.
type Handler struct {
	service *Service
}

// NewHandler constructs a purchase handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type purchaseRequest struct {
	ProductID string `json:"product_id"`
}

// Purchase buys a product with the acting identity's balance.
func (h *Handler) Purchase(c *fiber.Ctx) error {
	var req purchaseRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	buyer := middleware.Identity(c)

	res, err := h.service.Purchase(c.UserContext(), buyer, req.ProductID)
	if err != nil {
		switch {
		case errors.Is(err, catalog.ErrNotFound):
			return fiber.NewError(http.StatusNotFound, "product not found")
		case errors.Is(err, catalog.ErrProductInactive):
			return fiber.NewError(http.StatusBadRequest, "product inactive")
		case errors.Is(err, ledger.ErrInsufficientBalance):
			return fiber.NewError(http.StatusBadRequest, "insufficient balance")
		default:
			return fiber.NewError(http.StatusInternalServerError, err.Error())
		}
	}

	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"product_id":   res.ProductID,
		"amount":       res.Amount,
		"provider":     res.Provider,
		"completed_at": res.CompletedAt,
	})
}
