package purchase

import (
	"context"
	"time"

	"github.com/nusaledger/nusa_ledger/internal/catalog"
	"github.com/nusaledger/nusa_ledger/internal/events"
	"github.com/nusaledger/nusa_ledger/internal/token"
)

// Service orchestrates the single atomic "debit buyer, credit provider"
// purchase flow. Funds move through the token service with the configured
// OPERATOR identity as the acting principal.
type Service struct {
	catalog   *catalog.Service
	tokens    *token.Service
	publisher events.Publisher
	operator  string
}

// NewService constructs a purchase processor.
func NewService(cat *catalog.Service, tokens *token.Service, publisher events.Publisher, operator string) *Service {
	return &Service{catalog: cat, tokens: tokens, publisher: publisher, operator: operator}
}

// Result describes a completed purchase.
type Result struct {
	ProductID   string
	Amount      int64
	Provider    string
	CompletedAt time.Time
}

// Purchase debits the buyer and credits the product's provider in one atomic
// step. On any failure the buyer's balance is untouched.
func (s *Service) Purchase(ctx context.Context, buyer, productID string) (Result, error) {
	product, err := s.catalog.GetProduct(ctx, productID)
	if err != nil {
		return Result{}, err
	}
	if !product.Active {
		return Result{}, catalog.ErrProductInactive
	}

	if _, err := s.tokens.Transfer(ctx, s.operator, buyer, product.Provider, product.Price, "purchase:"+product.ID); err != nil {
		return Result{}, err
	}

	result := Result{
		ProductID:   product.ID,
		Amount:      product.Price,
		Provider:    product.Provider,
		CompletedAt: time.Now().UTC(),
	}

	if s.publisher != nil {
		_ = s.publisher.Publish(ctx, events.Now(events.Fact{
			Kind:   events.KindProductPurchased,
			Actor:  buyer,
			Amount: product.Price,
			Details: map[string]string{
				"product_id": product.ID,
				"provider":   product.Provider,
			},
		}))
	}

	return result, nil
}
