package catalog

// Product is one sellable item from the storefront catalog.
type Product struct {
	ID            int64
	Name          string
	Description   string
	Price         float64
	Calories      int
	Ingredients   string
	HealthBenefit string
	ImageURL      string
	OrderCount    int
	AvgRating     float64
	Category      string
	Available     bool
	CreatedAt     string
}

type User struct {
	ID     int64
	Name   string
	Email  string
	Locale string
}

// CartItem is a snapshot line of the caller's current cart; the core
// reads it for context but never mutates it.
type CartItem struct {
	ProductID int64
	Name      string
	Quantity  int
	Size      string
	UnitPrice float64
}

// Interaction is one persisted assistant turn.
type Interaction struct {
	ID        string
	SessionID string
	UserID    string
	Input     string
	InputType string // "text" or "voice"
	Output    string
	Intent    string
	LatencyMs int64
	Rating    int
	Status    string // "completed" or "error"
	CreatedAt string
}

// Filter narrows ListAvailable results.
type Filter struct {
	Category string
	Limit    int
}
