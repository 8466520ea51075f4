package agent

import (
	"regexp"
	"strconv"
	"strings"
)

// The router classifies one turn in three ordered layers: exact command
// patterns, keyword scoring, then a contextual product-noun fallback.
// All layers are rule tables; identical (input, locale) always yields
// identical (Intent, entities).

type patternRule struct {
	intent   Intent
	patterns []*regexp.Regexp
}

// patternRules is the exact-match layer, ordered. Cart-destructive
// phrasings come before the broad add/order patterns so "hapus semua
// dari keranjang" never reads as an order.
var patternRules = []patternRule{
	{IntentClearCart, []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(kosongkan|bersihkan|hapus\s+semua)\b.*\b(keranjang|cart)\b`),
		regexp.MustCompile(`(?i)\b(clear|empty)\b.*\b(cart|basket)\b`),
	}},
	{IntentRemoveFromCart, []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(hapus|buang|keluarkan|batalkan)\b.*\b(keranjang|cart|pesanan)\b`),
		regexp.MustCompile(`(?i)\b(remove|delete|take)\b.*\b(from\s+(the\s+)?cart|basket)\b`),
	}},
	{IntentCheckout, []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(checkout|check\s*out)\b`),
		regexp.MustCompile(`(?i)\b(lanjut(kan)?\s+(bayar|pembayaran)|selesaikan\s+pesanan|proses\s+pesanan|bayar\s+sekarang)\b`),
		regexp.MustCompile(`(?i)\b(pay\s+now|place\s+(my\s+)?order|complete\s+(my\s+)?order)\b`),
	}},
	{IntentAddToCart, []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(tambah(kan)?|masuk(k)?an)\b.*\b(keranjang|cart)\b`),
		regexp.MustCompile(`(?i)\b(add|put)\b.*\b(to|into)\b.*\b(cart|basket)\b`),
		regexp.MustCompile(`(?i)\b(pesan(kan)?|order|beli(kan)?|buy)\b\s+\S+`),
	}},
	{IntentNavigate, []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(buka|pergi\s+ke|menuju|tampilkan)\b.*\b(halaman|menu|keranjang|pesanan|promo|profil|beranda)\b`),
		regexp.MustCompile(`(?i)\b(go\s+to|open|show\s+me|take\s+me\s+to)\b.*\b(page|menu|cart|orders?|home|profile|promo)\b`),
		regexp.MustCompile(`(?i)\blihat\b.*\b(keranjang|pesanan|menu|promo)\b`),
	}},
	{IntentSearch, []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(cari(kan)?|temukan)\b\s+\S+`),
		regexp.MustCompile(`(?i)\b(search|find|look\s+for)\b\s+\S+`),
	}},
	{IntentRecommendation, []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(rekomendasi(kan)?|saran(kan)?|recommend|suggest(ion)?)\b`),
		regexp.MustCompile(`(?i)\b(minuman|jus|menu)\s+apa\s+yang\s+(enak|bagus|segar)\b`),
		regexp.MustCompile(`(?i)\bwhat\s+(drink\s+)?(do\s+you\s+|would\s+you\s+)?(recommend|suggest)\b`),
	}},
}

// Keyword sets for the scoring layer.
var (
	orderKeywords = []string{
		"pesan", "beli", "order", "buy", "tambah", "tambahkan", "purchase", "ambil",
	}
	recommendationKeywords = []string{
		"rekomendasi", "recommend", "saran", "suggest", "enak", "favorit",
		"favorite", "terlaris", "best", "terbaik", "paling",
	}
	productInfoKeywords = []string{
		"harga", "price", "berapa", "info", "kandungan", "ingredient",
		"ingredients", "terbuat", "isinya", "detail",
	}
	searchKeywords = []string{
		"cari", "search", "find", "temukan",
	}
	navigateKeywords = []string{
		"halaman", "page", "beranda", "home",
	}
	checkoutKeywords = []string{
		"checkout", "bayar", "pembayaran", "payment",
	}
)

// destinationTable maps navigation keywords to storefront paths.
var destinationTable = []struct {
	keywords []string
	path     string
}{
	{[]string{"keranjang", "cart", "basket"}, "/cart"},
	{[]string{"pesanan", "order", "orders", "riwayat"}, "/orders"},
	{[]string{"checkout", "bayar", "pembayaran", "payment"}, "/checkout"},
	{[]string{"promo", "promosi", "diskon", "voucher"}, "/promotions"},
	{[]string{"profil", "profile", "akun", "account"}, "/profile"},
	{[]string{"menu", "katalog", "catalog", "produk", "products"}, "/menu"},
	{[]string{"beranda", "home", "utama", "depan"}, "/"},
}

// Route classifies input and extracts entities. Entity extraction runs
// regardless of which layer matched.
func Route(input, locale string) (Intent, map[string]string) {
	intent := classify(input)
	entities := ExtractEntities(input, intent)
	return intent, entities
}

func classify(input string) Intent {
	// Layer 1: exact patterns, first match wins.
	for _, rule := range patternRules {
		for _, re := range rule.patterns {
			if re.MatchString(input) {
				return rule.intent
			}
		}
	}

	// Layer 2: keyword scoring with priority rules.
	hasOrder := containsAnyWord(input, orderKeywords)
	hasRec := containsAnyWord(input, recommendationKeywords)
	hasHealth := containsAnyWord(input, healthKeywords)
	hasInfo := containsAnyWord(input, productInfoKeywords)

	switch {
	case hasRec && hasOrder:
		// "beli yang paling murah" is an order, not a plain
		// recommendation request.
		return IntentAddToCart
	case hasRec:
		return IntentRecommendation
	case hasHealth:
		// Health wins over product info so "what vitamins does X
		// have" is not read as a price lookup.
		return IntentHealthInquiry
	case hasInfo:
		return IntentProductInfo
	case hasOrder:
		return IntentAddToCart
	case containsAnyWord(input, checkoutKeywords):
		return IntentCheckout
	case containsAnyWord(input, searchKeywords):
		return IntentSearch
	case containsAnyWord(input, navigateKeywords):
		return IntentNavigate
	}

	// Layer 3: contextual fallback on product-domain nouns.
	if containsAnyWord(input, productNouns) {
		if hasOrder {
			return IntentAddToCart
		}
		if hasRec {
			return IntentRecommendation
		}
		return IntentProductInfo
	}

	return IntentInquiry
}

var quantityDigitRe = regexp.MustCompile(`\b(\d{1,2})\b`)

var numberWords = map[string]int{
	"satu": 1, "dua": 2, "tiga": 3, "empat": 4, "lima": 5,
	"enam": 6, "tujuh": 7, "delapan": 8, "sembilan": 9, "sepuluh": 10,
	"one": 1, "two": 2, "three": 3, "four": 4, "five": 5,
	"six": 6, "seven": 7, "eight": 8, "nine": 9, "ten": 10,
}

// ExtractEntities pulls the structured values that parameterize an
// intent. Quantity defaults to 1 and size to medium.
func ExtractEntities(input string, intent Intent) map[string]string {
	entities := map[string]string{
		EntityQuantity: "1",
		EntitySize:     "medium",
	}

	norm := normalize(input)

	if m := quantityDigitRe.FindStringSubmatch(norm); m != nil {
		if qty, err := strconv.Atoi(m[1]); err == nil && qty > 0 {
			entities[EntityQuantity] = strconv.Itoa(qty)
		}
	} else {
		for _, w := range strings.Fields(norm) {
			if qty, ok := numberWords[w]; ok {
				entities[EntityQuantity] = strconv.Itoa(qty)
				break
			}
		}
	}

	switch {
	case containsAnyWord(input, []string{"kecil", "small"}):
		entities[EntitySize] = "small"
	case containsAnyWord(input, []string{"besar", "large", "jumbo"}):
		entities[EntitySize] = "large"
	}

	switch {
	case containsAnyWord(input, []string{"termurah", "murah", "cheapest", "cheap"}):
		entities[EntityPricePref] = "cheapest"
	case containsAnyWord(input, []string{"termahal", "mahal", "expensive", "priciest"}):
		entities[EntityPricePref] = "most_expensive"
	}

	switch {
	case containsAnyWord(input, []string{"sehat", "healthy", "menyehatkan"}):
		entities[EntityCategory] = "healthy"
	case containsAnyWord(input, []string{"terlaris", "bestseller", "favorit", "favorite", "populer", "popular"}):
		entities[EntityCategory] = "bestseller"
	case containsAnyWord(input, []string{"segar", "fresh", "baru", "terbaru", "new"}):
		entities[EntityCategory] = "fresh"
	}

	if intent == IntentNavigate {
		if path := ResolveDestination(input); path != "" {
			entities[EntityDestination] = path
		}
	}

	return entities
}

// ResolveDestination scans the fixed keyword table; empty when nothing
// matches.
func ResolveDestination(input string) string {
	for _, entry := range destinationTable {
		if containsAnyWord(input, entry.keywords) {
			return entry.path
		}
	}
	return ""
}
