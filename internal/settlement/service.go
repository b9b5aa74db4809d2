package settlement

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nusaledger/nusa_ledger/internal/events"
	"github.com/nusaledger/nusa_ledger/internal/ledger"
	"github.com/nusaledger/nusa_ledger/internal/rbac"
	"github.com/nusaledger/nusa_ledger/internal/registry"
	"github.com/nusaledger/nusa_ledger/internal/token"
)

// Service runs the interbank settlement state machine: propose records the
// intent, validator attestations authorize it, and only a completed quorum
// moves funds. No single bank or validator can move cross-bank value alone.
//
// Attest and expiry serialize per request, so two concurrent callers can
// never both believe they crossed the quorum threshold.
type Service struct {
	repo      Repository
	registry  *registry.Service
	tokens    *token.Service
	roles     *rbac.Service
	publisher events.Publisher
	quorum    int
	operator  string

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewService constructs the settlement engine. The quorum size is fixed at
// configuration time; the operator identity is what the engine acts as when
// moving funds.
func NewService(repo Repository, reg *registry.Service, tokens *token.Service, roles *rbac.Service, publisher events.Publisher, quorum int, operator string) *Service {
	if quorum < 1 {
		quorum = 1
	}
	return &Service{
		repo:      repo,
		registry:  reg,
		tokens:    tokens,
		roles:     roles,
		publisher: publisher,
		quorum:    quorum,
		operator:  operator,
		locks:     make(map[string]*sync.Mutex),
	}
}

// ProposeInput captures a cross-bank transfer intent.
type ProposeInput struct {
	OriginBank    string
	OriginAccount string
	DestBank      string
	DestAccount   string
	Amount        int64
}

// Propose submits a settlement request. The actor must hold the BANK role
// for the origin bank. The origin balance is checked but not debited: funds
// only move once the quorum completes, and the check runs again at that point.
func (s *Service) Propose(ctx context.Context, actor string, input ProposeInput) (Request, error) {
	if input.Amount <= 0 {
		return Request{}, ledger.ErrInvalidAmount
	}
	if err := s.roles.Require(ctx, rbac.RoleBank, actor, input.OriginBank); err != nil {
		return Request{}, err
	}

	owner, err := s.registry.Resolve(ctx, input.OriginBank, input.OriginAccount)
	if err != nil {
		return Request{}, err
	}
	balance, err := s.tokens.BalanceOf(ctx, owner)
	if err != nil && !errors.Is(err, ledger.ErrNotFound) {
		return Request{}, err
	}
	if balance < input.Amount {
		return Request{}, ledger.ErrInsufficientBalance
	}

	request := Request{
		ID:            uuid.NewString(),
		OriginBank:    input.OriginBank,
		OriginAccount: input.OriginAccount,
		DestBank:      input.DestBank,
		DestAccount:   input.DestAccount,
		Amount:        input.Amount,
		Quorum:        s.quorum,
		Attestations:  make(map[string]bool),
		Status:        StatusProposed,
		CreatedAt:     time.Now().UTC(),
	}
	request, err = s.repo.Create(ctx, request)
	if err != nil {
		return Request{}, err
	}

	s.emitFact(ctx, events.KindSettlementProposed, actor, request.Amount, map[string]string{
		"request_id":   request.ID,
		"seq":          strconv.FormatInt(request.Seq, 10),
		"origin_bank":  request.OriginBank,
		"dest_bank":    request.DestBank,
		"dest_account": request.DestAccount,
	})
	return request, nil
}

// Get returns the request's current state.
func (s *Service) Get(ctx context.Context, requestID string) (Request, error) {
	return s.repo.Get(ctx, requestID)
}

// Attest records a validator's vote. Each validator votes at most once per
// request. The quorum check runs atomically with the vote: the attestation
// that reaches the threshold resolves the request exactly once, and its
// error return carries the resolution failure if funds could not move.
func (s *Service) Attest(ctx context.Context, validator, requestID string, approve bool) (Request, error) {
	if err := s.roles.RequireAny(ctx, rbac.RoleValidator, validator); err != nil {
		return Request{}, err
	}

	lock := s.lockFor(requestID)
	lock.Lock()
	defer lock.Unlock()

	request, err := s.repo.Get(ctx, requestID)
	if err != nil {
		return Request{}, err
	}
	if request.Status.Terminal() {
		return request, ErrWrongState
	}
	if _, voted := request.Attestations[validator]; voted {
		return request, ErrDuplicateAttestation
	}

	request.Attestations[validator] = approve
	request.Status = StatusAttesting
	if err := s.repo.Update(ctx, request); err != nil {
		return Request{}, err
	}
	s.emitFact(ctx, events.KindSettlementAttested, validator, request.Amount, map[string]string{
		"request_id": request.ID,
		"approved":   strconv.FormatBool(approve),
	})

	approvals, rejections := request.Tally()
	if approvals >= request.Quorum {
		return s.resolve(ctx, request)
	}

	// Rejections can make quorum approval mathematically unreachable even
	// while validators remain who have not voted.
	validators, err := s.roles.Holders(ctx, rbac.RoleValidator)
	if err != nil {
		return Request{}, err
	}
	if rejections > len(validators)-request.Quorum {
		return s.terminate(ctx, request, StatusRejected, "quorum unreachable", nil)
	}

	return request, nil
}

// resolve moves the funds for a request whose quorum completed. Runs with
// the per-request lock held.
func (s *Service) resolve(ctx context.Context, request Request) (Request, error) {
	origin, err := s.registry.Resolve(ctx, request.OriginBank, request.OriginAccount)
	if err != nil {
		return s.terminate(ctx, request, StatusRejected, "origin account unresolvable", err)
	}

	dest, err := s.registry.Resolve(ctx, request.DestBank, request.DestAccount)
	if err != nil {
		if errors.Is(err, registry.ErrNotFound) {
			// Never auto-provision the destination; reject instead.
			return s.terminate(ctx, request, StatusRejected, "unknown destination", ErrUnknownDestination)
		}
		return Request{}, err
	}

	if _, err := s.tokens.Transfer(ctx, s.operator, origin, dest, request.Amount, "settlement:"+request.ID); err != nil {
		if errors.Is(err, ledger.ErrInsufficientBalance) {
			// The origin balance dropped between proposal and quorum
			// completion. The quorum never forces a negative balance.
			return s.terminate(ctx, request, StatusRejected, "insufficient balance at settlement", err)
		}
		return s.terminate(ctx, request, StatusRejected, "transfer failed", err)
	}

	return s.terminate(ctx, request, StatusSettled, "", nil)
}

// terminate moves the request into a terminal state, persists it and emits
// the resolution fact. The passed err, if any, is returned to the caller
// whose attestation triggered resolution.
func (s *Service) terminate(ctx context.Context, request Request, status Status, reason string, cause error) (Request, error) {
	request.Status = status
	request.Reason = reason
	request.ResolvedAt = time.Now().UTC()
	if err := s.repo.Update(ctx, request); err != nil {
		return Request{}, err
	}

	details := map[string]string{
		"request_id": request.ID,
		"outcome":    string(status),
	}
	if reason != "" {
		details["reason"] = reason
	}
	s.emitFact(ctx, events.KindSettlementResolved, s.operator, request.Amount, details)

	return request, cause
}

// ExpireStale moves non-terminal requests created before the cutoff to
// Expired. Invoked by the governance-configured sweeper; without one,
// requests only ever leave Attesting through resolution.
func (s *Service) ExpireStale(ctx context.Context, cutoff time.Time) (int, error) {
	stale, err := s.repo.ListUnresolved(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, candidate := range stale {
		lock := s.lockFor(candidate.ID)
		lock.Lock()
		request, err := s.repo.Get(ctx, candidate.ID)
		if err == nil && !request.Status.Terminal() && request.CreatedAt.Before(cutoff) {
			if _, err := s.terminate(ctx, request, StatusExpired, "attestation window elapsed", nil); err == nil {
				expired++
			}
		}
		lock.Unlock()
	}
	return expired, nil
}

func (s *Service) lockFor(requestID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[requestID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[requestID] = lock
	}
	return lock
}

func (s *Service) emitFact(ctx context.Context, kind, actor string, amount int64, details map[string]string) {
	if s.publisher == nil {
		return
	}
	_ = s.publisher.Publish(ctx, events.Now(events.Fact{
		Kind:    kind,
		Actor:   actor,
		Amount:  amount,
		Details: details,
	}))
}
