package settlement

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

// Handler exposes settlement endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs a settlement handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type proposeRequest struct {
	OriginBank    string `json:"origin_bank"`
	OriginAccount string `json:"origin_account"`
	DestBank      string `json:"dest_bank"`
	DestAccount   string `json:"dest_account"`
	Amount        int64  `json:"amount"`
}

type attestRequest struct {
	Approve bool `json:"approve"`
}

type requestResponse struct {
	ID           string          `json:"request_id"`
	Seq          int64           `json:"seq"`
	OriginBank   string          `json:"origin_bank"`
	OriginAcct   string          `json:"origin_account"`
	DestBank     string          `json:"dest_bank"`
	DestAcct     string          `json:"dest_account"`
	Amount       int64           `json:"amount"`
	Quorum       int             `json:"quorum"`
	Attestations map[string]bool `json:"attestations"`
	Status       string          `json:"status"`
	Reason       string          `json:"reason,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	ResolvedAt   *time.Time      `json:"resolved_at,omitempty"`
}

func toResponse(r Request) requestResponse {
	out := requestResponse{
		ID:           r.ID,
		Seq:          r.Seq,
		OriginBank:   r.OriginBank,
		OriginAcct:   r.OriginAccount,
		DestBank:     r.DestBank,
		DestAcct:     r.DestAccount,
		Amount:       r.Amount,
		Quorum:       r.Quorum,
		Attestations: r.Attestations,
		Status:       string(r.Status),
		Reason:       r.Reason,
		CreatedAt:    r.CreatedAt,
	}
	if !r.ResolvedAt.IsZero() {
		resolvedAt := r.ResolvedAt
		out.ResolvedAt = &resolvedAt
	}
	return out
}

// Propose submits a new settlement request for the acting bank.
func (h *Handler) Propose(c *fiber.Ctx) error {
	var req proposeRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	actor := middleware.Identity(c)

	request, err := h.service.Propose(c.UserContext(), actor, ProposeInput{
		OriginBank:    req.OriginBank,
		OriginAccount: req.OriginAccount,
		DestBank:      req.DestBank,
		DestAccount:   req.DestAccount,
		Amount:        req.Amount,
	})
	if err != nil {
		switch {
		case errors.Is(err, rbac.ErrUnauthorized):
			return fiber.NewError(http.StatusForbidden, "bank role required for origin bank")
		case errors.Is(err, registry.ErrNotFound):
			return fiber.NewError(http.StatusNotFound, "origin account not found")
		case errors.Is(err, ledger.ErrInsufficientBalance):
			return fiber.NewError(http.StatusBadRequest, "insufficient balance")
		case errors.Is(err, ledger.ErrInvalidAmount):
			return fiber.NewError(http.StatusBadRequest, "amount must be positive")
		default:
			return fiber.NewError(http.StatusInternalServerError, err.Error())
		}
	}
	return c.Status(http.StatusCreated).JSON(toResponse(request))
}

// Attest records the acting validator's vote on a request.
func (h *Handler) Attest(c *fiber.Ctx) error {
	var req attestRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	validator := middleware.Identity(c)

	request, err := h.service.Attest(c.UserContext(), validator, c.Params("id"), req.Approve)
	if err != nil {
		switch {
		case errors.Is(err, rbac.ErrUnauthorized):
			return fiber.NewError(http.StatusForbidden, "validator role required")
		case errors.Is(err, ErrNotFound):
			return fiber.NewError(http.StatusNotFound, "settlement request not found")
		case errors.Is(err, ErrDuplicateAttestation):
			return fiber.NewError(http.StatusConflict, "validator already attested")
		case errors.Is(err, ErrWrongState):
			return fiber.NewError(http.StatusConflict, "settlement request already resolved")
		case errors.Is(err, ErrUnknownDestination):
			// The vote completed the quorum but resolution failed; the
			// terminal request state still carries the detail.
			return c.Status(http.StatusUnprocessableEntity).JSON(fiber.Map{
				"error":   "destination account not registered",
				"request": toResponse(request),
			})
		case errors.Is(err, ledger.ErrInsufficientBalance):
			return c.Status(http.StatusUnprocessableEntity).JSON(fiber.Map{
				"error":   "insufficient balance at settlement",
				"request": toResponse(request),
			})
		default:
			return fiber.NewError(http.StatusInternalServerError, err.Error())
		}
	}
	return c.Status(http.StatusOK).JSON(toResponse(request))
}

// Get returns a settlement request's current state.
func (h *Handler) Get(c *fiber.Ctx) error {
	request, err := h.service.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return fiber.NewError(http.StatusNotFound, "settlement request not found")
		}
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.Status(http.StatusOK).JSON(toResponse(request))
}
