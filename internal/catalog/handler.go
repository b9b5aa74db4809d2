package catalog

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/nusaledger/nusa_ledger/internal/middleware"
	"github.com/nusaledger/nusa_ledger/internal/rbac"
)

// Handler exposes product catalog endpoints.
type Handler struct {
	service *Service
}

// NewHandler builds a catalog HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type addProductRequest struct {
	ID          string `json:"id"`
	Price       int64  `json:"price"`
	Description string `json:"description"`
}

type setActiveRequest struct {
	Active bool `json:"active"`
}

type productResponse struct {
	ID          string `json:"id"`
	Price       int64  `json:"price"`
	Provider    string `json:"provider"`
	Active      bool   `json:"active"`
	Description string `json:"description"`
}

func toResponse(p Product) productResponse {
	return productResponse{
		ID:          p.ID,
		Price:       p.Price,
		Provider:    p.Provider,
		Active:      p.Active,
		Description: p.Description,
	}
}

// Add lists a new product for the acting provider.
func (h *Handler) Add(c *fiber.Ctx) error {
	var req addProductRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	actor := middleware.Identity(c)

	product, err := h.service.AddProduct(c.UserContext(), actor, AddInput{
		ID:          req.ID,
		Price:       req.Price,
		Description: req.Description,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrDuplicateProduct):
			return fiber.NewError(http.StatusConflict, "product already exists")
		case errors.Is(err, ErrInvalidPrice):
			return fiber.NewError(http.StatusBadRequest, "price must be positive")
		case errors.Is(err, rbac.ErrUnauthorized):
			return fiber.NewError(http.StatusForbidden, "provider role required")
		default:
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}
	}
	return c.Status(http.StatusCreated).JSON(toResponse(product))
}

// Get returns a product by identifier.
func (h *Handler) Get(c *fiber.Ctx) error {
	product, err := h.service.GetProduct(c.UserContext(), c.Params("id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return fiber.NewError(http.StatusNotFound, "product not found")
		}
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.Status(http.StatusOK).JSON(toResponse(product))
}

// List returns product identifiers in insertion order.
func (h *Handler) List(c *fiber.Ctx) error {
	ids, err := h.service.ListProductIDs(c.UserContext())
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	if ids == nil {
		ids = []string{}
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"product_ids": ids})
}

// SetActive toggles a product's availability.
func (h *Handler) SetActive(c *fiber.Ctx) error {
	var req setActiveRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	actor := middleware.Identity(c)

	if err := h.service.SetActive(c.UserContext(), actor, c.Params("id"), req.Active); err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			return fiber.NewError(http.StatusNotFound, "product not found")
		case errors.Is(err, rbac.ErrUnauthorized):
			return fiber.NewError(http.StatusForbidden, "only the product provider may toggle it")
		default:
			return fiber.NewError(http.StatusInternalServerError, err.Error())
		}
	}
	return c.SendStatus(http.StatusNoContent)
}
