package registry

import (
	"context"
	"sync"
)

type accountKey struct {
	bankID string
	number string
}

type memoryRepository struct {
	mu       sync.RWMutex
	accounts map[accountKey]Account
	order    []accountKey
}

// NewMemoryRepository constructs an in-memory account store for tests.
func NewMemoryRepository() Repository {
	return &memoryRepository{accounts: make(map[accountKey]Account)}
}

func (r *memoryRepository) Create(_ context.Context, account Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := accountKey{bankID: account.BankID, number: account.Number}
	if _, exists := r.accounts[key]; exists {
		return ErrDuplicateAccount
	}
	r.accounts[key] = account
	r.order = append(r.order, key)
	return nil
}

func (r *memoryRepository) Get(_ context.Context, bankID, number string) (Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	account, ok := r.accounts[accountKey{bankID: bankID, number: number}]
	if !ok {
		return Account{}, ErrNotFound
	}
	return account, nil
}

func (r *memoryRepository) ListByBank(_ context.Context, bankID string) ([]Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var accounts []Account
	for _, key := range r.order {
		if key.bankID == bankID {
			accounts = append(accounts, r.accounts[key])
		}
	}
	return accounts, nil
}
