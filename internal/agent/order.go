package agent

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/tokosegar/tokobot/internal/catalog"
)

// OrderAgent turns cart-mutating intents into structured proposals.
// It never mutates the cart itself; the storefront applies proposals
// the user confirms.
type OrderAgent struct {
	catalog catalog.Store
}

func NewOrderAgent(store catalog.Store) *OrderAgent {
	return &OrderAgent{catalog: store}
}

// productAliases maps common nicknames and misspellings to canonical
// catalog names.
var productAliases = map[string]string{
	"esteh":          "Es Teh Manis",
	"teh manis":      "Es Teh Manis",
	"es the":         "Es Teh Manis",
	"es oren":        "Es Jeruk",
	"orange juice":   "Es Jeruk",
	"jeruk peras":    "Es Jeruk",
	"pokat":          "Jus Alpukat",
	"jus pokat":      "Jus Alpukat",
	"avocado juice":  "Jus Alpukat",
	"mango juice":    "Jus Mangga",
	"jus stroberi":   "Jus Strawberry",
	"smoothie hijau": "Green Smoothie",
	"smoothie ijo":   "Green Smoothie",
	"aqua":           "Air Mineral",
	"air putih":      "Air Mineral",
}

func (a *OrderAgent) Process(ctx context.Context, turn *Context) Response {
	switch turn.DetectedIntent {
	case IntentRemoveFromCart:
		return a.removeFromCart(turn)
	case IntentClearCart:
		return a.clearCart(turn)
	case IntentCheckout:
		return a.checkout(turn)
	default:
		return a.addToCart(ctx, turn)
	}
}

func (a *OrderAgent) addToCart(ctx context.Context, turn *Context) Response {
	products, err := a.catalog.ListAvailable(ctx, catalog.Filter{})
	if err != nil {
		log.Printf("[order-agent] list catalog failed: %v", err)
		return unavailableResponse(turn)
	}
	if len(products) == 0 {
		return unavailableResponse(turn)
	}

	matched := matchProducts(products, turn.RawInput)

	// No product named: fall back to criteria-based selection.
	if len(matched) == 0 {
		if p := selectByCriteria(products, turn); p != nil {
			matched = []catalog.Product{*p}
		}
	}

	if len(matched) == 0 {
		return Response{
			Success: false,
			Intent:  turn.DetectedIntent,
			Message: clarifyOrderMessage(turn.Locale),
		}
	}

	qty := 1
	if parsed, err := strconv.Atoi(turn.Entity(EntityQuantity)); err == nil && parsed > 0 {
		qty = parsed
	}
	size := turn.Entity(EntitySize)
	if size == "" {
		size = "medium"
	}

	items := make([]OrderItem, 0, len(matched))
	subtotal := 0.0
	for _, p := range matched {
		unit := priceForSize(p.Price, size)
		item := OrderItem{
			ProductID:   p.ID,
			Name:        p.Name,
			Quantity:    qty,
			Size:        size,
			UnitPrice:   unit,
			LineTotal:   unit * float64(qty),
			ImageURL:    p.ImageURL,
			Description: p.Description,
		}
		subtotal += item.LineTotal
		items = append(items, item)
	}

	return Response{
		Success:         true,
		Intent:          turn.DetectedIntent,
		Message:         addToCartMessage(turn.Locale, items, subtotal),
		OrderItems:      items,
		ShouldAddToCart: true,
	}
}

// matchProducts resolves products named in the input: direct substring
// match first, then a >=50% significant-word overlap, then the alias
// table. Results are ordered by catalog position for determinism.
func matchProducts(products []catalog.Product, input string) []catalog.Product {
	norm := normalize(input)

	var matched []catalog.Product
	for _, p := range products {
		if strings.Contains(norm, normalize(p.Name)) {
			matched = append(matched, p)
		}
	}
	if len(matched) > 0 {
		return matched
	}

	var best *catalog.Product
	bestScore := 0.0
	for i := range products {
		score := wordOverlap(input, products[i].Name)
		if score >= 0.5 && score > bestScore {
			best = &products[i]
			bestScore = score
		}
	}
	if best != nil {
		return []catalog.Product{*best}
	}

	aliases := make([]string, 0, len(productAliases))
	for alias := range productAliases {
		aliases = append(aliases, alias)
	}
	sort.Strings(aliases)
	for _, alias := range aliases {
		if !strings.Contains(norm, normalize(alias)) {
			continue
		}
		canonical := productAliases[alias]
		for _, p := range products {
			if strings.EqualFold(p.Name, canonical) {
				return []catalog.Product{p}
			}
		}
	}
	return nil
}

// selectByCriteria picks one product when the user orders by property
// instead of by name ("the cheapest one").
func selectByCriteria(products []catalog.Product, turn *Context) *catalog.Product {
	sorted := make([]catalog.Product, len(products))
	copy(sorted, products)

	switch {
	case turn.Entity(EntityPricePref) == "cheapest":
		sort.SliceStable(sorted, func(i, j int) bool {
			if sorted[i].Price != sorted[j].Price {
				return sorted[i].Price < sorted[j].Price
			}
			return sorted[i].Name < sorted[j].Name
		})
	case turn.Entity(EntityPricePref) == "most_expensive":
		sort.SliceStable(sorted, func(i, j int) bool {
			if sorted[i].Price != sorted[j].Price {
				return sorted[i].Price > sorted[j].Price
			}
			return sorted[i].Name < sorted[j].Name
		})
	case turn.Entity(EntityCategory) == "healthy":
		sort.SliceStable(sorted, func(i, j int) bool {
			if sorted[i].Calories != sorted[j].Calories {
				return sorted[i].Calories < sorted[j].Calories
			}
			return sorted[i].Name < sorted[j].Name
		})
	case turn.Entity(EntityCategory) == "bestseller":
		sort.SliceStable(sorted, func(i, j int) bool {
			if sorted[i].OrderCount != sorted[j].OrderCount {
				return sorted[i].OrderCount > sorted[j].OrderCount
			}
			return sorted[i].Name < sorted[j].Name
		})
	default:
		return nil
	}
	return &sorted[0]
}

// priceForSize adjusts the base (medium) price for the resolved size.
func priceForSize(base float64, size string) float64 {
	switch size {
	case "small":
		adjusted := base - 2000
		if adjusted < 0 {
			return 0
		}
		return adjusted
	case "large":
		return base + 3000
	default:
		return base
	}
}

var removeTargetRe = regexp.MustCompile(`(?i)\b(?:hapus|buang|keluarkan|batalkan|remove|delete|take)\s+(.+?)\s+(?:dari|from)\b`)

func (a *OrderAgent) removeFromCart(turn *Context) Response {
	target := ""
	if m := removeTargetRe.FindStringSubmatch(turn.RawInput); m != nil {
		target = strings.TrimSpace(m[1])
	}

	msg := ""
	if strings.HasPrefix(turn.Locale, "en") {
		if target == "" {
			msg = "Which item should I remove from your cart?"
		} else {
			msg = fmt.Sprintf("Okay, removing %s from your cart.", target)
		}
	} else {
		if target == "" {
			msg = "Item mana yang mau dihapus dari keranjang?"
		} else {
			msg = fmt.Sprintf("Oke, %s aku hapus dari keranjang ya.", target)
		}
	}

	return Response{
		Success: target != "",
		Intent:  IntentRemoveFromCart,
		Message: msg,
	}
}

func (a *OrderAgent) clearCart(turn *Context) Response {
	msg := "Oke, keranjangmu sudah dikosongkan."
	if strings.HasPrefix(turn.Locale, "en") {
		msg = "Okay, your cart has been cleared."
	}
	return Response{Success: true, Intent: IntentClearCart, Message: msg}
}

func (a *OrderAgent) checkout(turn *Context) Response {
	msg := "Siap! Aku bawa kamu ke halaman pembayaran."
	if strings.HasPrefix(turn.Locale, "en") {
		msg = "Great! Taking you to checkout."
	}
	return Response{
		Success:        true,
		Intent:         IntentCheckout,
		Message:        msg,
		ShouldNavigate: true,
		Destination:    "/checkout",
	}
}

func addToCartMessage(locale string, items []OrderItem, subtotal float64) string {
	parts := make([]string, 0, len(items))
	for _, it := range items {
		parts = append(parts, fmt.Sprintf("%dx %s (%s)", it.Quantity, it.Name, it.Size))
	}
	list := strings.Join(parts, ", ")
	if strings.HasPrefix(locale, "en") {
		return fmt.Sprintf("Added to your cart: %s. Subtotal Rp%.0f.", list, subtotal)
	}
	return fmt.Sprintf("Sudah kutambahkan ke keranjang: %s. Subtotal Rp%.0f.", list, subtotal)
}

func clarifyOrderMessage(locale string) string {
	if strings.HasPrefix(locale, "en") {
		return "Which drink would you like to order? Tell me the name, for example \"add 2 orange juice to cart\"."
	}
	return "Minuman apa yang mau dipesan? Sebutkan namanya ya, misalnya \"tambahkan 2 es jeruk ke keranjang\"."
}
