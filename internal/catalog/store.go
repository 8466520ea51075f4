package catalog

import "context"

// Store is the read surface the agents consume. The storefront owns the
// catalog; the assistant only queries it.
type Store interface {
	ListAvailable(ctx context.Context, filter Filter) ([]Product, error)
	GetProduct(ctx context.Context, id int64) (*Product, error)
	GetUser(ctx context.Context, id int64) (*User, error)
}

// InteractionStore records assistant turns. Writes only; the core never
// reads interactions back except for the daily rollup.
type InteractionStore interface {
	RecordInteraction(ctx context.Context, rec *Interaction) error
	RateInteraction(ctx context.Context, id string, rating int) error
	IntentCounts(ctx context.Context, sinceDays int) (map[string]int, error)
}
