package ledger

import (
	"context"
	"math"
	"sync"
)

// inMemoryLedger keeps one mutex per identity so operations on disjoint
// identities run in parallel while mutations of the same balance serialize.
// The outer mutex only guards map structure, never balance math.
type inMemoryLedger struct {
	mu       sync.Mutex
	locks    map[string]*sync.Mutex
	balances map[string]int64
}

// NewInMemory creates a concurrency-safe in-memory ledger useful for unit
// tests and dev mode.
func NewInMemory() Ledger {
	return &inMemoryLedger{
		locks:    make(map[string]*sync.Mutex),
		balances: make(map[string]int64),
	}
}

func (l *inMemoryLedger) lockFor(identity string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	lock, ok := l.locks[identity]
	if !ok {
		lock = &sync.Mutex{}
		l.locks[identity] = lock
	}
	return lock
}

func (l *inMemoryLedger) read(identity string) (int64, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	balance, ok := l.balances[identity]
	return balance, ok
}

func (l *inMemoryLedger) write(identity string, balance int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[identity] = balance
}

func (l *inMemoryLedger) Balance(_ context.Context, identity string) (int64, error) {
	balance, ok := l.read(identity)
	if !ok {
		return 0, ErrNotFound
	}
	return balance, nil
}

func (l *inMemoryLedger) Mint(_ context.Context, identity string, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}

	lock := l.lockFor(identity)
	lock.Lock()
	defer lock.Unlock()

	balance, _ := l.read(identity)
	if math.MaxInt64-balance < amount {
		return 0, ErrOverflow
	}
	balance += amount
	l.write(identity, balance)
	return balance, nil
}

func (l *inMemoryLedger) Burn(_ context.Context, identity string, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}

	lock := l.lockFor(identity)
	lock.Lock()
	defer lock.Unlock()

	balance, ok := l.read(identity)
	if !ok || balance < amount {
		return 0, ErrInsufficientBalance
	}
	balance -= amount
	l.write(identity, balance)
	return balance, nil
}

func (l *inMemoryLedger) Transfer(_ context.Context, from, to string, amount int64) (TransferResult, error) {
	if amount <= 0 {
		return TransferResult{}, ErrInvalidAmount
	}
	if from == to {
		return TransferResult{}, ErrSameAccount
	}

	// Lock the pair in lexical order so two opposing transfers cannot deadlock.
	first, second := from, to
	if first > second {
		first, second = second, first
	}
	firstLock := l.lockFor(first)
	secondLock := l.lockFor(second)
	firstLock.Lock()
	defer firstLock.Unlock()
	secondLock.Lock()
	defer secondLock.Unlock()

	fromBalance, ok := l.read(from)
	if !ok || fromBalance < amount {
		return TransferResult{}, ErrInsufficientBalance
	}
	toBalance, _ := l.read(to)
	if math.MaxInt64-toBalance < amount {
		return TransferResult{}, ErrOverflow
	}

	fromBalance -= amount
	toBalance += amount
	l.write(from, fromBalance)
	l.write(to, toBalance)

	return TransferResult{FromBalance: fromBalance, ToBalance: toBalance}, nil
}
