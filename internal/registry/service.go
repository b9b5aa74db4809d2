package registry

import (
	"context"
	"fmt"
	"time"

	"github.com/nusaledger/nusa_ledger/internal/events"
	"github.com/nusaledger/nusa_ledger/internal/rbac"
)

// Service manages the account registry, the root of truth for who may act as
// a given account.
type Service struct {
	repo      Repository
	roles     *rbac.Service
	publisher events.Publisher
}

// NewService creates a registry service.
func NewService(repo Repository, roles *rbac.Service, publisher events.Publisher) *Service {
	return &Service{repo: repo, roles: roles, publisher: publisher}
}

// RegisterInput captures the data required to register an account.
type RegisterInput struct {
	BankID string
	Number string
	Owner  string
	Name   string
}

// Register creates an account under the caller's bank. The actor must hold
// the BANK role scoped to the target bank.
func (s *Service) Register(ctx context.Context, actor string, input RegisterInput) (Account, error) {
	if input.BankID == "" || input.Number == "" || input.Owner == "" {
		return Account{}, fmt.Errorf("bank id, account number and owner are required")
	}
	if err := s.roles.Require(ctx, rbac.RoleBank, actor, input.BankID); err != nil {
		return Account{}, err
	}

	account := Account{
		BankID:    input.BankID,
		Number:    input.Number,
		Owner:     input.Owner,
		Name:      input.Name,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, account); err != nil {
		return Account{}, err
	}

	if s.publisher != nil {
		_ = s.publisher.Publish(ctx, events.Now(events.Fact{
			Kind:  events.KindAccountCreated,
			Actor: actor,
			Details: map[string]string{
				"bank_id":        account.BankID,
				"account_number": account.Number,
				"owner":          account.Owner,
			},
		}))
	}

	return account, nil
}

// Resolve returns the owning identity for a (bank, number) pair. Pure
// lookup, no side effects.
func (s *Service) Resolve(ctx context.Context, bankID, number string) (string, error) {
	account, err := s.repo.Get(ctx, bankID, number)
	if err != nil {
		return "", err
	}
	return account.Owner, nil
}

// Get fetches the full account record.
func (s *Service) Get(ctx context.Context, bankID, number string) (Account, error) {
	return s.repo.Get(ctx, bankID, number)
}

// ListByBank returns a bank's accounts in registration order.
func (s *Service) ListByBank(ctx context.Context, bankID string) ([]Account, error) {
	return s.repo.ListByBank(ctx, bankID)
}
