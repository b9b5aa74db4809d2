package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/nusaledger/nusa_ledger/internal/rbac"
)

// Service manages the product catalog, independent of ledger mechanics.
type Service struct {
	repo  Repository
	roles *rbac.Service
}

// NewService creates a catalog service.
func NewService(repo Repository, roles *rbac.Service) *Service {
	return &Service{repo: repo, roles: roles}
}

// AddInput captures the data required to list a product.
type AddInput struct {
	ID          string
	Price       int64
	Description string
}

// AddProduct lists a new product owned by the acting provider.
func (s *Service) AddProduct(ctx context.Context, actor string, input AddInput) (Product, error) {
	if input.ID == "" {
		return Product{}, fmt.Errorf("product id is required")
	}
	if input.Price <= 0 {
		return Product{}, ErrInvalidPrice
	}
	if err := s.roles.RequireAny(ctx, rbac.RoleProvider, actor); err != nil {
		return Product{}, err
	}

	product := Product{
		ID:          input.ID,
		Price:       input.Price,
		Provider:    actor,
		Active:      true,
		Description: input.Description,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, product); err != nil {
		return Product{}, err
	}
	return product, nil
}

// GetProduct fetches a product by identifier. Pure read.
func (s *Service) GetProduct(ctx context.Context, id string) (Product, error) {
	return s.repo.Get(ctx, id)
}

// ListProductIDs returns product identifiers in insertion order. Each call
// returns a fresh slice, so iteration is restartable.
func (s *Service) ListProductIDs(ctx context.Context) ([]string, error) {
	return s.repo.ListIDs(ctx)
}

// SetActive toggles a product. Only the product's own provider may toggle it.
func (s *Service) SetActive(ctx context.Context, actor, id string, active bool) error {
	product, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if product.Provider != actor {
		return rbac.ErrUnauthorized
	}
	return s.repo.SetActive(ctx, id, active)
}
