package settlement

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nusaledger/nusa_ledger/internal/ledger"
	"github.com/nusaledger/nusa_ledger/internal/rbac"
	"github.com/nusaledger/nusa_ledger/internal/registry"
	"github.com/nusaledger/nusa_ledger/internal/token"
)

const operatorID = "operator:core"

type fixture struct {
	settlements *Service
	tokens      *token.Service
	registry    *registry.Service
	ledger      ledger.Ledger
}

func newFixture(t *testing.T, quorum int) *fixture {
	t.Helper()
	ctx := context.Background()

	roles := rbac.NewService(rbac.NewMemoryStore())
	require.NoError(t, roles.Bootstrap(ctx, "regulator"))
	grants := []rbac.Grant{
		{Role: rbac.RoleBank, Identity: "bank-a", Scope: "BANKA"},
		{Role: rbac.RoleBank, Identity: "bank-b", Scope: "BANKB"},
		{Role: rbac.RoleOperator, Identity: operatorID},
		{Role: rbac.RoleValidator, Identity: "v1"},
		{Role: rbac.RoleValidator, Identity: "v2"},
		{Role: rbac.RoleValidator, Identity: "v3"},
		{Role: rbac.RoleValidator, Identity: "v4"},
		{Role: rbac.RoleValidator, Identity: "v5"},
	}
	for _, g := range grants {
		require.NoError(t, roles.Grant(ctx, "regulator", g))
	}

	led := ledger.NewInMemory()
	tokens := token.NewService(led, roles, nil)
	reg := registry.NewService(registry.NewMemoryRepository(), roles, nil)

	_, err := reg.Register(ctx, "bank-a", registry.RegisterInput{BankID: "BANKA", Number: "A-1001", Owner: "user:1", Name: "Budi Santoso"})
	require.NoError(t, err)
	_, err = reg.Register(ctx, "bank-b", registry.RegisterInput{BankID: "BANKB", Number: "B-2001", Owner: "user:2", Name: "Siti Nurhaliza"})
	require.NoError(t, err)

	svc := NewService(NewMemoryRepository(), reg, tokens, roles, nil, quorum, operatorID)
	return &fixture{settlements: svc, tokens: tokens, registry: reg, ledger: led}
}

func (f *fixture) propose(t *testing.T, amount int64) Request {
	t.Helper()
	req, err := f.settlements.Propose(context.Background(), "bank-a", ProposeInput{
		OriginBank:    "BANKA",
		OriginAccount: "A-1001",
		DestBank:      "BANKB",
		DestAccount:   "B-2001",
		Amount:        amount,
	})
	require.NoError(t, err)
	return req
}

func TestProposeChecksRoleAccountAndBalance(t *testing.T) {
	f := newFixture(t, 2)
	ctx := context.Background()
	ledger.SeedBalance(f.ledger, "user:1", 100_000)

	_, err := f.settlements.Propose(ctx, "bank-b", ProposeInput{OriginBank: "BANKA", OriginAccount: "A-1001", DestBank: "BANKB", DestAccount: "B-2001", Amount: 1_000})
	assert.ErrorIs(t, err, rbac.ErrUnauthorized, "bank-b must not propose for BANKA")

	_, err = f.settlements.Propose(ctx, "bank-a", ProposeInput{OriginBank: "BANKA", OriginAccount: "A-9999", DestBank: "BANKB", DestAccount: "B-2001", Amount: 1_000})
	assert.ErrorIs(t, err, registry.ErrNotFound)

	_, err = f.settlements.Propose(ctx, "bank-a", ProposeInput{OriginBank: "BANKA", OriginAccount: "A-1001", DestBank: "BANKB", DestAccount: "B-2001", Amount: 200_000})
	assert.ErrorIs(t, err, ledger.ErrInsufficientBalance)

	_, err = f.settlements.Propose(ctx, "bank-a", ProposeInput{OriginBank: "BANKA", OriginAccount: "A-1001", DestBank: "BANKB", DestAccount: "B-2001", Amount: 0})
	assert.ErrorIs(t, err, ledger.ErrInvalidAmount)

	req := f.propose(t, 60_000)
	assert.Equal(t, StatusProposed, req.Status)
	assert.Equal(t, int64(1), req.Seq)

	// Proposal reserves nothing: the balance is untouched until settlement.
	balance, err := f.ledger.Balance(ctx, "user:1")
	require.NoError(t, err)
	assert.Equal(t, int64(100_000), balance)
}

func TestQuorumSettlesExactlyOnce(t *testing.T) {
	f := newFixture(t, 2)
	ctx := context.Background()
	ledger.SeedBalance(f.ledger, "user:1", 100_000)

	req := f.propose(t, 60_000)

	got, err := f.settlements.Attest(ctx, "v1", req.ID, true)
	require.NoError(t, err)
	assert.Equal(t, StatusAttesting, got.Status)

	got, err = f.settlements.Attest(ctx, "v2", req.ID, true)
	require.NoError(t, err)
	assert.Equal(t, StatusSettled, got.Status)
	assert.False(t, got.ResolvedAt.IsZero())

	origin, _ := f.ledger.Balance(ctx, "user:1")
	dest, _ := f.ledger.Balance(ctx, "user:2")
	assert.Equal(t, int64(40_000), origin)
	assert.Equal(t, int64(60_000), dest)

	// Further attestations hit the terminal state, never a double debit.
	_, err = f.settlements.Attest(ctx, "v3", req.ID, true)
	assert.ErrorIs(t, err, ErrWrongState)
	origin, _ = f.ledger.Balance(ctx, "user:1")
	assert.Equal(t, int64(40_000), origin)
}

func TestBalanceDropBetweenProposalAndQuorum(t *testing.T) {
	f := newFixture(t, 2)
	ctx := context.Background()
	ledger.SeedBalance(f.ledger, "user:1", 100_000)

	req := f.propose(t, 60_000)

	_, err := f.settlements.Attest(ctx, "v1", req.ID, true)
	require.NoError(t, err)

	// The origin owner spends 50k through an ordinary transfer while the
	// request is still attesting.
	_, err = f.tokens.Transfer(ctx, "user:1", "user:1", "user:3", 50_000, "intervening spend")
	require.NoError(t, err)

	got, err := f.settlements.Attest(ctx, "v2", req.ID, true)
	assert.ErrorIs(t, err, ledger.ErrInsufficientBalance)
	assert.Equal(t, StatusRejected, got.Status)

	balance, _ := f.ledger.Balance(ctx, "user:1")
	assert.Equal(t, int64(50_000), balance, "origin balance must not go negative")
}

func TestUnknownDestinationIsRejectedNotProvisioned(t *testing.T) {
	f := newFixture(t, 2)
	ctx := context.Background()
	ledger.SeedBalance(f.ledger, "user:1", 100_000)

	req, err := f.settlements.Propose(ctx, "bank-a", ProposeInput{
		OriginBank:    "BANKA",
		OriginAccount: "A-1001",
		DestBank:      "BANKB",
		DestAccount:   "B-9999",
		Amount:        10_000,
	})
	require.NoError(t, err)

	_, err = f.settlements.Attest(ctx, "v1", req.ID, true)
	require.NoError(t, err)
	got, err := f.settlements.Attest(ctx, "v2", req.ID, true)
	assert.ErrorIs(t, err, ErrUnknownDestination)
	assert.Equal(t, StatusRejected, got.Status)

	// No account materialized and no funds moved.
	_, err = f.registry.Resolve(ctx, "BANKB", "B-9999")
	assert.ErrorIs(t, err, registry.ErrNotFound)
	balance, _ := f.ledger.Balance(ctx, "user:1")
	assert.Equal(t, int64(100_000), balance)
}

func TestDuplicateAttestation(t *testing.T) {
	f := newFixture(t, 2)
	ctx := context.Background()
	ledger.SeedBalance(f.ledger, "user:1", 100_000)

	req := f.propose(t, 10_000)

	_, err := f.settlements.Attest(ctx, "v1", req.ID, true)
	require.NoError(t, err)
	_, err = f.settlements.Attest(ctx, "v1", req.ID, true)
	assert.ErrorIs(t, err, ErrDuplicateAttestation)
	_, err = f.settlements.Attest(ctx, "v1", req.ID, false)
	assert.ErrorIs(t, err, ErrDuplicateAttestation, "a validator cannot change its vote either")
}

func TestAttestRequiresValidatorRole(t *testing.T) {
	f := newFixture(t, 2)
	ctx := context.Background()
	ledger.SeedBalance(f.ledger, "user:1", 100_000)

	req := f.propose(t, 10_000)
	_, err := f.settlements.Attest(ctx, "user:1", req.ID, true)
	assert.ErrorIs(t, err, rbac.ErrUnauthorized)
}

func TestRejectionsMakeQuorumUnreachable(t *testing.T) {
	// Five validators, quorum 2: once four reject, approval is unreachable.
	f := newFixture(t, 2)
	ctx := context.Background()
	ledger.SeedBalance(f.ledger, "user:1", 100_000)

	req := f.propose(t, 10_000)

	for _, v := range []string{"v1", "v2", "v3"} {
		got, err := f.settlements.Attest(ctx, v, req.ID, false)
		require.NoError(t, err)
		assert.Equal(t, StatusAttesting, got.Status)
	}
	got, err := f.settlements.Attest(ctx, "v4", req.ID, false)
	require.NoError(t, err)
	assert.Equal(t, StatusRejected, got.Status)

	balance, _ := f.ledger.Balance(ctx, "user:1")
	assert.Equal(t, int64(100_000), balance)
}

func TestConcurrentAttestationsResolveOnce(t *testing.T) {
	f := newFixture(t, 2)
	ctx := context.Background()
	ledger.SeedBalance(f.ledger, "user:1", 100_000)

	req := f.propose(t, 60_000)

	var wg sync.WaitGroup
	for _, v := range []string{"v1", "v2", "v3", "v4", "v5"} {
		wg.Add(1)
		go func(validator string) {
			defer wg.Done()
			_, _ = f.settlements.Attest(ctx, validator, req.ID, true)
		}(v)
	}
	wg.Wait()

	got, err := f.settlements.Get(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusSettled, got.Status)

	origin, _ := f.ledger.Balance(ctx, "user:1")
	dest, _ := f.ledger.Balance(ctx, "user:2")
	assert.Equal(t, int64(40_000), origin, "debited exactly once")
	assert.Equal(t, int64(60_000), dest, "credited exactly once")
}

func TestExpireStale(t *testing.T) {
	f := newFixture(t, 2)
	ctx := context.Background()
	ledger.SeedBalance(f.ledger, "user:1", 100_000)

	req := f.propose(t, 10_000)
	_, err := f.settlements.Attest(ctx, "v1", req.ID, true)
	require.NoError(t, err)

	expired, err := f.settlements.ExpireStale(ctx, time.Now().UTC().Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 1, expired)

	got, err := f.settlements.Get(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusExpired, got.Status)

	_, err = f.settlements.Attest(ctx, "v2", req.ID, true)
	assert.ErrorIs(t, err, ErrWrongState)
	balance, _ := f.ledger.Balance(ctx, "user:1")
	assert.Equal(t, int64(100_000), balance)
}

func TestConservationAcrossMixedFlows(t *testing.T) {
	f := newFixture(t, 2)
	ctx := context.Background()
	ledger.SeedBalance(f.ledger, "user:1", 500_000)
	ledger.SeedBalance(f.ledger, "user:2", 500_000)

	req := f.propose(t, 200_000)
	_, err := f.settlements.Attest(ctx, "v1", req.ID, true)
	require.NoError(t, err)
	_, err = f.settlements.Attest(ctx, "v2", req.ID, true)
	require.NoError(t, err)

	_, err = f.tokens.Transfer(ctx, "user:2", "user:2", "user:1", 70_000, "")
	require.NoError(t, err)

	a, _ := f.ledger.Balance(ctx, "user:1")
	b, _ := f.ledger.Balance(ctx, "user:2")
	assert.Equal(t, int64(1_000_000), a+b, "transfers conserve total value")
	assert.Equal(t, int64(370_000), a)
	assert.Equal(t, int64(630_000), b)
}
