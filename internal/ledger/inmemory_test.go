package ledger

import (
	"context"
	"math"
	"sync"
	"testing"
)

func TestInMemoryLedger_TransferConservesValue(t *testing.T) {
	l := NewInMemory()
	ctx := context.Background()

	SeedBalance(l, "user:a", 10_000)

	res, err := l.Transfer(ctx, "user:a", "user:b", 1_500)
	if err != nil {
		t.Fatalf("transfer failed: %v", err)
	}
	if res.FromBalance != 8_500 {
		t.Fatalf("expected from balance 8500, got %d", res.FromBalance)
	}
	if res.ToBalance != 1_500 {
		t.Fatalf("expected to balance 1500, got %d", res.ToBalance)
	}

	impl := l.(*inMemoryLedger)
	total := impl.balances["user:a"] + impl.balances["user:b"]
	if total != 10_000 {
		t.Fatalf("ledger not balanced, total=%d", total)
	}
}

func TestInMemoryLedger_TransferRejectsBadInput(t *testing.T) {
	l := NewInMemory()
	ctx := context.Background()
	SeedBalance(l, "user:a", 1_000)

	if _, err := l.Transfer(ctx, "user:a", "user:b", 0); err != ErrInvalidAmount {
		t.Fatalf("expected invalid amount, got %v", err)
	}
	if _, err := l.Transfer(ctx, "user:a", "user:a", 100); err != ErrSameAccount {
		t.Fatalf("expected same account, got %v", err)
	}
	if _, err := l.Transfer(ctx, "user:a", "user:b", 2_000); err != ErrInsufficientBalance {
		t.Fatalf("expected insufficient balance, got %v", err)
	}
	if _, err := l.Transfer(ctx, "user:missing", "user:b", 100); err != ErrInsufficientBalance {
		t.Fatalf("expected insufficient balance for unknown debit, got %v", err)
	}

	// Nothing moved on any failure.
	if balance, _ := l.Balance(ctx, "user:a"); balance != 1_000 {
		t.Fatalf("expected untouched balance 1000, got %d", balance)
	}
}

func TestInMemoryLedger_MintBurn(t *testing.T) {
	l := NewInMemory()
	ctx := context.Background()

	balance, err := l.Mint(ctx, "user:a", 5_000)
	if err != nil || balance != 5_000 {
		t.Fatalf("mint: balance=%d err=%v", balance, err)
	}
	if _, err := l.Mint(ctx, "user:a", -1); err != ErrInvalidAmount {
		t.Fatalf("expected invalid amount, got %v", err)
	}

	balance, err = l.Burn(ctx, "user:a", 2_000)
	if err != nil || balance != 3_000 {
		t.Fatalf("burn: balance=%d err=%v", balance, err)
	}
	if _, err := l.Burn(ctx, "user:a", 10_000); err != ErrInsufficientBalance {
		t.Fatalf("expected insufficient balance, got %v", err)
	}
	if _, err := l.Burn(ctx, "user:missing", 1); err != ErrInsufficientBalance {
		t.Fatalf("expected insufficient balance for unknown identity, got %v", err)
	}
}

func TestInMemoryLedger_Overflow(t *testing.T) {
	l := NewInMemory()
	ctx := context.Background()
	SeedBalance(l, "user:rich", math.MaxInt64-10)

	if _, err := l.Mint(ctx, "user:rich", 100); err != ErrOverflow {
		t.Fatalf("expected overflow on mint, got %v", err)
	}

	SeedBalance(l, "user:a", 100)
	if _, err := l.Transfer(ctx, "user:a", "user:rich", 100); err != ErrOverflow {
		t.Fatalf("expected overflow on credit leg, got %v", err)
	}
	// The failed transfer must not have debited the source.
	if balance, _ := l.Balance(ctx, "user:a"); balance != 100 {
		t.Fatalf("expected untouched balance 100, got %d", balance)
	}
}

func TestInMemoryLedger_BalanceNotFound(t *testing.T) {
	l := NewInMemory()
	if _, err := l.Balance(context.Background(), "user:none"); err != ErrNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestInMemoryLedger_ConcurrentTransfersNeverGoNegative(t *testing.T) {
	l := NewInMemory()
	ctx := context.Background()
	SeedBalance(l, "user:a", 10_000)
	SeedBalance(l, "user:b", 0)

	// 40 workers each try to move 500 out of a 10k balance; exactly 20 can win.
	const workers = 40
	const amount = int64(500)

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := l.Transfer(ctx, "user:a", "user:b", amount); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if succeeded != 20 {
		t.Fatalf("expected exactly 20 transfers to succeed, got %d", succeeded)
	}
	impl := l.(*inMemoryLedger)
	if impl.balances["user:a"] != 0 || impl.balances["user:b"] != 10_000 {
		t.Fatalf("unexpected balances a=%d b=%d", impl.balances["user:a"], impl.balances["user:b"])
	}
}

func TestInMemoryLedger_OpposingTransfersDoNotDeadlock(t *testing.T) {
	l := NewInMemory()
	ctx := context.Background()
	SeedBalance(l, "user:a", 100_000)
	SeedBalance(l, "user:b", 100_000)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = l.Transfer(ctx, "user:a", "user:b", 10)
		}()
		go func() {
			defer wg.Done()
			_, _ = l.Transfer(ctx, "user:b", "user:a", 10)
		}()
	}
	wg.Wait()

	impl := l.(*inMemoryLedger)
	total := impl.balances["user:a"] + impl.balances["user:b"]
	if total != 200_000 {
		t.Fatalf("ledger not balanced after opposing transfers, total=%d", total)
	}
}
