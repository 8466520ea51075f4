package agent

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"sort"
	"strings"

	"github.com/tokosegar/tokobot/internal/catalog"
)

const maxRecommendations = 5

// ProductAgent serves recommendation, search and product-info turns
// from the catalog. It never calls the model; everything here is a
// deterministic catalog query.
type ProductAgent struct {
	catalog catalog.Store
}

func NewProductAgent(store catalog.Store) *ProductAgent {
	return &ProductAgent{catalog: store}
}

func (a *ProductAgent) Process(ctx context.Context, turn *Context) Response {
	switch turn.DetectedIntent {
	case IntentSearch:
		return a.search(ctx, turn)
	case IntentProductInfo:
		return a.productInfo(ctx, turn)
	default:
		return a.recommend(ctx, turn)
	}
}

func (a *ProductAgent) recommend(ctx context.Context, turn *Context) Response {
	products, err := a.catalog.ListAvailable(ctx, catalog.Filter{})
	if err != nil {
		log.Printf("[product-agent] list catalog failed: %v", err)
		return unavailableResponse(turn)
	}
	if len(products) == 0 {
		return unavailableResponse(turn)
	}

	strategy := pickStrategy(turn)
	picked := applyStrategy(products, strategy, turn.RawInput)
	if len(picked) > maxRecommendations {
		picked = picked[:maxRecommendations]
	}

	return Response{
		Success:     true,
		Intent:      turn.DetectedIntent,
		Message:     recommendMessage(turn.Locale, strategy, picked),
		Recommended: toRecommended(picked),
	}
}

// Recommendation strategies, chosen by entity or keyword match.
type strategy string

const (
	strategyCheapest      strategy = "cheapest"
	strategyMostExpensive strategy = "most_expensive"
	strategyLowCalorie    strategy = "low_calorie"
	strategyBestseller    strategy = "bestseller"
	strategyFreshest      strategy = "freshest"
	strategyCategory      strategy = "category"
	strategyTopRated      strategy = "top_rated"
)

func pickStrategy(turn *Context) strategy {
	switch turn.Entity(EntityPricePref) {
	case "cheapest":
		return strategyCheapest
	case "most_expensive":
		return strategyMostExpensive
	}
	switch turn.Entity(EntityCategory) {
	case "healthy":
		return strategyLowCalorie
	case "bestseller":
		return strategyBestseller
	case "fresh":
		return strategyFreshest
	}
	if containsAnyWord(turn.RawInput, []string{"kalori", "calorie", "calories", "diet"}) {
		return strategyLowCalorie
	}
	if matchesCategory(turn.RawInput) {
		return strategyCategory
	}
	return strategyTopRated
}

var knownCategories = []string{"jus buah", "minuman segar", "healthy"}

func matchesCategory(input string) bool {
	norm := normalize(input)
	for _, cat := range knownCategories {
		for _, w := range strings.Fields(cat) {
			if containsWord(norm, w) {
				return true
			}
		}
	}
	return false
}

func applyStrategy(products []catalog.Product, s strategy, input string) []catalog.Product {
	out := make([]catalog.Product, len(products))
	copy(out, products)

	switch s {
	case strategyCheapest:
		sort.SliceStable(out, func(i, j int) bool {
			if out[i].Price != out[j].Price {
				return out[i].Price < out[j].Price
			}
			return out[i].Name < out[j].Name
		})
	case strategyMostExpensive:
		sort.SliceStable(out, func(i, j int) bool {
			if out[i].Price != out[j].Price {
				return out[i].Price > out[j].Price
			}
			return out[i].Name < out[j].Name
		})
	case strategyLowCalorie:
		sort.SliceStable(out, func(i, j int) bool {
			if out[i].Calories != out[j].Calories {
				return out[i].Calories < out[j].Calories
			}
			return out[i].Name < out[j].Name
		})
	case strategyBestseller:
		sort.SliceStable(out, func(i, j int) bool {
			if out[i].OrderCount != out[j].OrderCount {
				return out[i].OrderCount > out[j].OrderCount
			}
			return out[i].Name < out[j].Name
		})
	case strategyFreshest:
		sort.SliceStable(out, func(i, j int) bool {
			if out[i].CreatedAt != out[j].CreatedAt {
				return out[i].CreatedAt > out[j].CreatedAt
			}
			return out[i].Name < out[j].Name
		})
	case strategyCategory:
		norm := normalize(input)
		var filtered []catalog.Product
		for _, p := range out {
			for _, w := range strings.Fields(normalize(p.Category)) {
				if containsWord(norm, w) {
					filtered = append(filtered, p)
					break
				}
			}
		}
		if len(filtered) > 0 {
			out = filtered
		}
		sort.SliceStable(out, func(i, j int) bool {
			if out[i].OrderCount != out[j].OrderCount {
				return out[i].OrderCount > out[j].OrderCount
			}
			return out[i].Name < out[j].Name
		})
	default: // top rated
		sort.SliceStable(out, func(i, j int) bool {
			if out[i].AvgRating != out[j].AvgRating {
				return out[i].AvgRating > out[j].AvgRating
			}
			return out[i].Name < out[j].Name
		})
	}
	return out
}

func (a *ProductAgent) search(ctx context.Context, turn *Context) Response {
	query := extractSearchQuery(turn.RawInput)
	if query == "" {
		query = strings.Join(significantWords(turn.RawInput), " ")
	}

	products, err := a.catalog.ListAvailable(ctx, catalog.Filter{})
	if err != nil {
		log.Printf("[product-agent] list catalog failed: %v", err)
		return unavailableResponse(turn)
	}

	normQuery := normalize(query)
	var hits []catalog.Product
	for _, p := range products {
		haystack := normalize(p.Name + " " + p.Description + " " + p.Ingredients)
		if normQuery != "" && strings.Contains(haystack, normQuery) {
			hits = append(hits, p)
			continue
		}
		for _, w := range strings.Fields(normQuery) {
			if strings.Contains(haystack, w) {
				hits = append(hits, p)
				break
			}
		}
	}
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].OrderCount != hits[j].OrderCount {
			return hits[i].OrderCount > hits[j].OrderCount
		}
		return hits[i].Name < hits[j].Name
	})
	if len(hits) > maxRecommendations {
		hits = hits[:maxRecommendations]
	}

	msg := searchMessage(turn.Locale, query, len(hits))
	return Response{
		Success:        len(hits) > 0,
		Intent:         IntentSearch,
		Message:        msg,
		SearchQuery:    query,
		SortBy:         "popularity",
		Recommended:    toRecommended(hits),
		ShouldNavigate: true,
		Destination:    "/menu",
	}
}

var searchVerbRe = regexp.MustCompile(`(?i)\b(cari(kan)?|temukan|search(\s+for)?|find|look\s+for|tolong|please)\b`)

func extractSearchQuery(input string) string {
	cleaned := searchVerbRe.ReplaceAllString(input, " ")
	return strings.Join(significantWords(cleaned), " ")
}

func (a *ProductAgent) productInfo(ctx context.Context, turn *Context) Response {
	products, err := a.catalog.ListAvailable(ctx, catalog.Filter{})
	if err != nil {
		log.Printf("[product-agent] list catalog failed: %v", err)
		return unavailableResponse(turn)
	}

	if p := resolveProduct(products, turn.RawInput); p != nil {
		return Response{
			Success:     true,
			Intent:      IntentProductInfo,
			Message:     productInfoMessage(turn.Locale, p),
			Recommended: toRecommended([]catalog.Product{*p}),
		}
	}

	// No match: show bestsellers and ask which product they meant.
	best := applyStrategy(products, strategyBestseller, "")
	if len(best) > maxRecommendations {
		best = best[:maxRecommendations]
	}
	return Response{
		Success:     false,
		Intent:      IntentProductInfo,
		Message:     clarifyProductMessage(turn.Locale),
		Recommended: toRecommended(best),
	}
}

// resolveProduct finds a catalog product named in the input: exact
// normalized name match first, then significant-word overlap.
func resolveProduct(products []catalog.Product, input string) *catalog.Product {
	norm := normalize(input)
	for i := range products {
		if strings.Contains(norm, normalize(products[i].Name)) {
			return &products[i]
		}
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
	return best
}

func toRecommended(products []catalog.Product) []RecommendedProduct {
	out := make([]RecommendedProduct, 0, len(products))
	for _, p := range products {
		out = append(out, RecommendedProduct{
			ID:         p.ID,
			Name:       p.Name,
			Price:      p.Price,
			ImageURL:   p.ImageURL,
			Category:   p.Category,
			OrderCount: p.OrderCount,
		})
	}
	return out
}

func unavailableResponse(turn *Context) Response {
	msg := "Maaf, katalog sedang tidak bisa diakses. Coba lagi sebentar ya."
	if strings.HasPrefix(turn.Locale, "en") {
		msg = "Sorry, the catalog is unavailable right now. Please try again shortly."
	}
	return Response{Success: false, Intent: turn.DetectedIntent, Message: msg}
}

func recommendMessage(locale string, s strategy, picked []catalog.Product) string {
	if len(picked) == 0 {
		if strings.HasPrefix(locale, "en") {
			return "I couldn't find anything to recommend right now."
		}
		return "Belum ada yang bisa aku rekomendasikan saat ini."
	}
	names := make([]string, 0, len(picked))
	for _, p := range picked {
		names = append(names, p.Name)
	}
	list := strings.Join(names, ", ")

	if strings.HasPrefix(locale, "en") {
		switch s {
		case strategyCheapest:
			return "Our most affordable picks: " + list + "."
		case strategyMostExpensive:
			return "Our premium picks: " + list + "."
		case strategyLowCalorie:
			return "Light and healthy picks: " + list + "."
		case strategyFreshest:
			return "Fresh arrivals on the menu: " + list + "."
		case strategyBestseller:
			return "Customer favorites: " + list + "."
		}
		return "You might like: " + list + "."
	}

	switch s {
	case strategyCheapest:
		return "Pilihan paling hemat: " + list + "."
	case strategyMostExpensive:
		return "Pilihan premium kami: " + list + "."
	case strategyLowCalorie:
		return "Pilihan sehat rendah kalori: " + list + "."
	case strategyFreshest:
		return "Menu terbaru kami: " + list + "."
	case strategyBestseller:
		return "Favorit pelanggan: " + list + "."
	}
	return "Mungkin kamu suka: " + list + "."
}

func searchMessage(locale, query string, n int) string {
	if strings.HasPrefix(locale, "en") {
		if n == 0 {
			return fmt.Sprintf("No products matched %q. Try a different keyword?", query)
		}
		return fmt.Sprintf("Found %d product(s) for %q. Taking you to the menu.", n, query)
	}
	if n == 0 {
		return fmt.Sprintf("Tidak ada produk yang cocok dengan %q. Coba kata kunci lain?", query)
	}
	return fmt.Sprintf("Ketemu %d produk untuk %q. Aku bukakan halaman menunya ya.", n, query)
}

func productInfoMessage(locale string, p *catalog.Product) string {
	if strings.HasPrefix(locale, "en") {
		return fmt.Sprintf("%s costs Rp%.0f. %s %s", p.Name, p.Price, p.Description, p.HealthBenefit)
	}
	return fmt.Sprintf("%s harganya Rp%.0f. %s %s", p.Name, p.Price, p.Description, p.HealthBenefit)
}

func clarifyProductMessage(locale string) string {
	if strings.HasPrefix(locale, "en") {
		return "I couldn't find that product. Here are our bestsellers, which one did you mean?"
	}
	return "Produk itu tidak ketemu. Ini menu terlaris kami, yang mana yang kamu maksud?"
}
