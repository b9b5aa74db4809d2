package ledger

import (
	"context"
	"errors"
)

var (
	// ErrNotFound indicates the identity has no balance entry.
	ErrNotFound = errors.New("identity not found")

	// ErrInvalidAmount indicates a non-positive amount was supplied.
	ErrInvalidAmount = errors.New("amount must be positive")

	// ErrOverflow indicates the credit would overflow the int64 balance width.
	ErrOverflow = errors.New("balance overflow")

	// ErrInsufficientBalance occurs when the debited identity lacks funds to
	// cover a requested movement.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrSameAccount indicates a transfer where debit and credit identities coincide.
	ErrSameAccount = errors.New("transfer to same identity")
)

// Ledger holds one non-negative int64 balance per identity, denominated in the
// smallest currency unit. Implementations must serialize mutations touching
// the same identity and apply transfers atomically: no reader ever observes a
// debit without its matching credit.
type Ledger interface {
	Balance(ctx context.Context, identity string) (int64, error)
	Mint(ctx context.Context, identity string, amount int64) (int64, error)
	Burn(ctx context.Context, identity string, amount int64) (int64, error)
	Transfer(ctx context.Context, from, to string, amount int64) (TransferResult, error)
}

// TransferResult captures the post-transfer balances of both legs.
type TransferResult struct {
	FromBalance int64
	ToBalance   int64
}
