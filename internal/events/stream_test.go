package events

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestStreamPublisherAppendsFacts(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	pub := NewStreamPublisher(client, "")
	ctx := context.Background()

	facts := []Fact{
		{Kind: KindAccountCreated, Actor: "bank-a", Details: map[string]string{"bank_id": "BANKA", "account_number": "A-1001"}, OccurredAt: time.Now().UTC()},
		{Kind: KindBalanceChanged, Actor: "bank-a", Amount: 50_000, Details: map[string]string{"identity": "user:1"}, OccurredAt: time.Now().UTC()},
	}
	for _, fact := range facts {
		if err := pub.Publish(ctx, fact); err != nil {
			t.Fatalf("publish %s: %v", fact.Kind, err)
		}
	}

	entries, err := client.XRange(ctx, DefaultStream, "-", "+").Result()
	if err != nil {
		t.Fatalf("xrange: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 stream entries, got %d", len(entries))
	}
	if entries[0].Values["kind"] != KindAccountCreated {
		t.Fatalf("expected first entry %s, got %v", KindAccountCreated, entries[0].Values["kind"])
	}
	if entries[1].Values["kind"] != KindBalanceChanged {
		t.Fatalf("expected second entry %s, got %v", KindBalanceChanged, entries[1].Values["kind"])
	}
}
