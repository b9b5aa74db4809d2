package catalog

import "time"

// Product is a balance-backed purchasable item offered by a provider. The
// price never changes after creation; repricing means listing a new product.
type Product struct {
	ID          string
	Price       int64
	Provider    string
	Active      bool
	Description string
	CreatedAt   time.Time
}
