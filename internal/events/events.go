package events

import (
	"context"
	"log/slog"
	"time"
)

const (
	// KindAccountCreated records a new registry entry.
	KindAccountCreated = "account_created"
	// KindBalanceChanged records any ledger balance mutation.
	KindBalanceChanged = "balance_changed"
	// KindSettlementProposed records a new settlement request.
	KindSettlementProposed = "settlement_proposed"
	// KindSettlementAttested records a validator vote.
	KindSettlementAttested = "settlement_attested"
	// KindSettlementResolved records a terminal settlement outcome.
	KindSettlementResolved = "settlement_resolved"
	// KindProductPurchased records a catalog purchase.
	KindProductPurchased = "product_purchased"
)

// Fact is an append-only record of something the core did. Facts are never
// revised after emission.
type Fact struct {
	Kind       string            `json:"kind"`
	Actor      string            `json:"actor"`
	Amount     int64             `json:"amount,omitempty"`
	Details    map[string]string `json:"details,omitempty"`
	OccurredAt time.Time         `json:"occurred_at"`
}

// Publisher delivers facts to downstream observers (audit log, UI feeds).
type Publisher interface {
	Publish(ctx context.Context, fact Fact) error
}

// LogPublisher writes facts to the structured logger.
type LogPublisher struct {
	logger *slog.Logger
}

// NewLogPublisher constructs a logging publisher.
func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

// Publish writes the fact to the logger.
func (p *LogPublisher) Publish(_ context.Context, fact Fact) error {
	if p == nil || p.logger == nil {
		return nil
	}
	attrs := []any{
		slog.String("kind", fact.Kind),
		slog.String("actor", fact.Actor),
		slog.Time("occurred_at", fact.OccurredAt),
	}
	if fact.Amount != 0 {
		attrs = append(attrs, slog.Int64("amount", fact.Amount))
	}
	for k, v := range fact.Details {
		attrs = append(attrs, slog.String(k, v))
	}
	p.logger.Info("fact", attrs...)
	return nil
}

// Fanout publishes each fact to every wrapped publisher, ignoring individual
// delivery failures. Emission is best-effort and never fails a core operation.
type Fanout []Publisher

// Publish delivers the fact to all members.
func (f Fanout) Publish(ctx context.Context, fact Fact) error {
	for _, p := range f {
		_ = p.Publish(ctx, fact)
	}
	return nil
}

// Now stamps a fact with the current UTC time if unset.
func Now(fact Fact) Fact {
	if fact.OccurredAt.IsZero() {
		fact.OccurredAt = time.Now().UTC()
	}
	return fact
}
