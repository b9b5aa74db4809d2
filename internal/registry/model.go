package registry

import "time"

// Account maps a (bank identifier, account number) pair to its owning
// identity. Ownership is immutable once registered; accounts are never
// deleted. Balances live in the ledger, not here.
type Account struct {
	BankID    string
	Number    string
	Owner     string
	Name      string
	CreatedAt time.Time
}
