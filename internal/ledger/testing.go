package ledger

// SeedBalance is a test helper that sets the balance for an identity when
// using the in-memory ledger.
func SeedBalance(l Ledger, identity string, amount int64) {
	if mem, ok := l.(*inMemoryLedger); ok {
		mem.write(identity, amount)
	}
}
