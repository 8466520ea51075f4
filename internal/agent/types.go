package agent

import (
	"context"

	"github.com/tokosegar/tokobot/internal/catalog"
	"github.com/tokosegar/tokobot/internal/memory"
)

// Context is the per-turn state owned by the current request. Nothing
// here outlives the turn.
type Context struct {
	RawInput  string
	Locale    string
	UserID    string
	SessionID string

	Cart    []catalog.CartItem
	History []memory.Entry

	// Voice turns carry the raw audio instead of text.
	Audio     []byte
	AudioMIME string
	IsVoice   bool

	DetectedIntent Intent
	Entities       map[string]string
	Metadata       map[string]any
}

// SetIntent attaches the classified intent. The first classification
// wins for the rest of the turn.
func (c *Context) SetIntent(i Intent) {
	if c.DetectedIntent == "" {
		c.DetectedIntent = i
	}
}

func (c *Context) Entity(key string) string {
	if c.Entities == nil {
		return ""
	}
	return c.Entities[key]
}

// OrderItem is one proposed cart line. The agents only propose; the
// storefront applies the mutation.
type OrderItem struct {
	ProductID   int64   `json:"product_id"`
	Name        string  `json:"name"`
	Quantity    int     `json:"quantity"`
	Size        string  `json:"size"`
	UnitPrice   float64 `json:"unit_price"`
	LineTotal   float64 `json:"line_total"`
	ImageURL    string  `json:"image_url,omitempty"`
	Description string  `json:"description,omitempty"`
}

type RecommendedProduct struct {
	ID         int64   `json:"id"`
	Name       string  `json:"name"`
	Price      float64 `json:"price"`
	ImageURL   string  `json:"image_url,omitempty"`
	Category   string  `json:"category,omitempty"`
	OrderCount int     `json:"order_count,omitempty"`
}

// Response is the uniform output of every specialist. Invariants:
// OrderItems is non-empty only when ShouldAddToCart is set, and
// Destination is non-empty only when ShouldNavigate is set.
type Response struct {
	Success bool
	Message string
	Intent  Intent

	OrderItems []OrderItem

	Destination string

	SearchQuery string
	SortBy      string
	FilterBy    string

	Recommended []RecommendedProduct

	ShouldAddToCart bool
	ShouldNavigate  bool
}

// ProcessFunc is the uniform specialist contract the orchestrator
// dispatches on.
type ProcessFunc func(ctx context.Context, turn *Context) Response
