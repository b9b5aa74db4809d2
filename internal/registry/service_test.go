package registry

import (
	"context"
	"testing"

	"github.com/nusaledger/nusa_ledger/internal/rbac"
)

func newTestService(t *testing.T) (*Service, *rbac.Service) {
	t.Helper()
	roles := rbac.NewService(rbac.NewMemoryStore())
	ctx := context.Background()
	if err := roles.Bootstrap(ctx, "regulator"); err != nil {
		t.Fatalf("bootstrap roles: %v", err)
	}
	if err := roles.Grant(ctx, "regulator", rbac.Grant{Role: rbac.RoleBank, Identity: "bank-a", Scope: "BANKA"}); err != nil {
		t.Fatalf("grant bank role: %v", err)
	}
	return NewService(NewMemoryRepository(), roles, nil), roles
}

func TestRegisterAndResolve(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	account, err := svc.Register(ctx, "bank-a", RegisterInput{
		BankID: "BANKA",
		Number: "A-1001",
		Owner:  "user:1",
		Name:   "Budi Santoso",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if account.CreatedAt.IsZero() {
		t.Fatalf("expected creation timestamp")
	}

	owner, err := svc.Resolve(ctx, "BANKA", "A-1001")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if owner != "user:1" {
		t.Fatalf("expected owner user:1, got %s", owner)
	}
}

func TestRegisterDuplicateAlwaysFails(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	input := RegisterInput{BankID: "BANKA", Number: "A-1001", Owner: "user:1"}
	if _, err := svc.Register(ctx, "bank-a", input); err != nil {
		t.Fatalf("first register: %v", err)
	}

	input.Owner = "user:2"
	if _, err := svc.Register(ctx, "bank-a", input); err != ErrDuplicateAccount {
		t.Fatalf("expected duplicate account, got %v", err)
	}

	// Ownership of the original registration is untouched.
	owner, err := svc.Resolve(ctx, "BANKA", "A-1001")
	if err != nil || owner != "user:1" {
		t.Fatalf("expected original owner, got %s err=%v", owner, err)
	}
}

func TestRegisterRequiresScopedBankRole(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	// bank-a holds the role for BANKA only.
	if _, err := svc.Register(ctx, "bank-a", RegisterInput{BankID: "BANKB", Number: "B-2001", Owner: "user:3"}); err != rbac.ErrUnauthorized {
		t.Fatalf("expected unauthorized for foreign bank, got %v", err)
	}
	if _, err := svc.Register(ctx, "stranger", RegisterInput{BankID: "BANKA", Number: "A-1002", Owner: "user:3"}); err != rbac.ErrUnauthorized {
		t.Fatalf("expected unauthorized for stranger, got %v", err)
	}
}

func TestResolveNotFound(t *testing.T) {
	svc, _ := newTestService(t)
	if _, err := svc.Resolve(context.Background(), "BANKA", "A-9999"); err != ErrNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestListByBankInsertionOrder(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	for _, number := range []string{"A-1003", "A-1001", "A-1002"} {
		if _, err := svc.Register(ctx, "bank-a", RegisterInput{BankID: "BANKA", Number: number, Owner: "user:" + number}); err != nil {
			t.Fatalf("register %s: %v", number, err)
		}
	}

	accounts, err := svc.ListByBank(ctx, "BANKA")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(accounts) != 3 {
		t.Fatalf("expected 3 accounts, got %d", len(accounts))
	}
	want := []string{"A-1003", "A-1001", "A-1002"}
	for i, number := range want {
		if accounts[i].Number != number {
			t.Fatalf("expected %s at index %d, got %s", number, i, accounts[i].Number)
		}
	}
}
