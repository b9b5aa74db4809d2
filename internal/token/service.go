package token

import (
	"context"
	"strconv"

	"github.com/nusaledger/nusa_ledger/internal/events"
	"github.com/nusaledger/nusa_ledger/internal/ledger"
	"github.com/nusaledger/nusa_ledger/internal/rbac"
)

// Service is the role-gated surface over the balance ledger. All value
// movement in the system ultimately passes through here.
type Service struct {
	ledger    ledger.Ledger
	roles     *rbac.Service
	publisher events.Publisher
}

// NewService builds a token service.
func NewService(l ledger.Ledger, roles *rbac.Service, publisher events.Publisher) *Service {
	return &Service{ledger: l, roles: roles, publisher: publisher}
}

// BalanceOf returns the identity's current balance.
func (s *Service) BalanceOf(ctx context.Context, identity string) (int64, error) {
	return s.ledger.Balance(ctx, identity)
}

// Mint credits new value to an identity. Requires the BANK role.
func (s *Service) Mint(ctx context.Context, actor, identity string, amount int64) (int64, error) {
	if err := s.roles.RequireAny(ctx, rbac.RoleBank, actor); err != nil {
		return 0, err
	}
	balance, err := s.ledger.Mint(ctx, identity, amount)
	if err != nil {
		return 0, err
	}
	s.emitBalanceChanged(ctx, actor, identity, amount, balance, "mint")
	return balance, nil
}

// Burn destroys value held by an identity. Requires the BANK role.
func (s *Service) Burn(ctx context.Context, actor, identity string, amount int64) (int64, error) {
	if err := s.roles.RequireAny(ctx, rbac.RoleBank, actor); err != nil {
		return 0, err
	}
	balance, err := s.ledger.Burn(ctx, identity, amount)
	if err != nil {
		return 0, err
	}
	s.emitBalanceChanged(ctx, actor, identity, -amount, balance, "burn")
	return balance, nil
}

// Transfer moves value between identities. The actor must be the debited
// identity itself or hold the OPERATOR role. The settlement engine and the
// purchase processor act through the operator path.
func (s *Service) Transfer(ctx context.Context, actor, from, to string, amount int64, memo string) (ledger.TransferResult, error) {
	if actor != from {
		if err := s.roles.RequireAny(ctx, rbac.RoleOperator, actor); err != nil {
			return ledger.TransferResult{}, err
		}
	}

	res, err := s.ledger.Transfer(ctx, from, to, amount)
	if err != nil {
		return ledger.TransferResult{}, err
	}
	s.emitBalanceChanged(ctx, actor, from, -amount, res.FromBalance, memo)
	s.emitBalanceChanged(ctx, actor, to, amount, res.ToBalance, memo)
	return res, nil
}

func (s *Service) emitBalanceChanged(ctx context.Context, actor, identity string, delta, balance int64, memo string) {
	if s.publisher == nil {
		return
	}
	details := map[string]string{
		"identity": identity,
		"balance":  strconv.FormatInt(balance, 10),
	}
	if memo != "" {
		details["memo"] = memo
	}
	_ = s.publisher.Publish(ctx, events.Now(events.Fact{
		Kind:    events.KindBalanceChanged,
		Actor:   actor,
		Amount:  delta,
		Details: details,
	}))
}
