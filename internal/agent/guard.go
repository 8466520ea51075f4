package agent

import (
	"regexp"
	"strings"
)

// ScopeResult is the guard verdict for one turn.
type ScopeResult struct {
	Allowed bool
	Hint    Intent
	Reply   string
}

// greetings are matched exact (after normalization) and always allowed.
var greetings = map[string]bool{
	"halo": true, "hai": true, "hi": true, "hello": true, "hey": true,
	"selamat pagi": true, "selamat siang": true, "selamat sore": true,
	"selamat malam": true, "good morning": true, "good afternoon": true,
	"good evening": true, "pagi": true, "siang": true, "sore": true,
	"malam": true, "terima kasih": true, "makasih": true, "thanks": true,
	"thank you": true, "ok": true, "oke": true, "sip": true,
}

// offTopicPatterns cover the subject areas the assistant refuses:
// programming, academic homework, politics/religion, unsafe requests,
// and unrelated general knowledge.
var offTopicPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(coding|programming|python|javascript|golang|java\b|sql|algoritma|algorithm|compile|debug)\b`),
	regexp.MustCompile(`(?i)\b(pr sekolah|homework|tugas sekolah|skripsi|matematika|math|fisika|physics|kimia|chemistry|sejarah|history)\b`),
	regexp.MustCompile(`(?i)\b(politik|politics|presiden|president|pemilu|election|partai|agama|religion)\b`),
	regexp.MustCompile(`(?i)\b(hack|hacking|meretas|bobol|exploit|password|crack|virus|malware|judi|gambling|narkoba|drugs)\b`),
	regexp.MustCompile(`(?i)\b(cuaca|weather|saham|stock market|crypto|bitcoin|bola|football|sepak bola|artis|celebrity|film|movie)\b`),
	regexp.MustCompile(`(?i)\b(siapa penemu|who invented|ibu kota|capital of|berapa jarak|translate|terjemahkan)\b`),
}

// domainKeywords mark store context; their presence always wins over an
// off-topic lexical match.
var domainKeywords = append([]string{
	"pesan", "order", "beli", "buy", "keranjang", "cart", "checkout",
	"harga", "price", "promo", "diskon", "discount", "toko", "store",
	"rekomendasi", "recommend", "voucher",
}, productNouns...)

// healthKeywords route nutrition questions to the conversational agent
// with the topic already resolved.
var healthKeywords = []string{
	"sehat", "kesehatan", "health", "healthy", "manfaat", "benefit",
	"vitamin", "nutrisi", "nutrition", "gizi", "kalori", "calorie",
	"diet", "antioksidan", "antioxidant", "imun", "immune", "serat", "fiber",
}

// ClassifyScope decides whether one turn is inside the assistant's
// topic domain. Pure classification; it cannot fail.
func ClassifyScope(input, locale string) ScopeResult {
	norm := normalize(input)

	if greetings[norm] {
		return ScopeResult{Allowed: true, Hint: IntentGreeting}
	}

	offTopic := false
	for _, re := range offTopicPatterns {
		if re.MatchString(input) {
			offTopic = true
			break
		}
	}

	// An explicit command must reach the router even when health words
	// appear, so "beli yang paling sehat" stays an order. The hint only
	// fires for pure nutrition questions.
	health := containsAnyWord(input, healthKeywords) && !commandSignal(input)
	domain := containsAnyWord(input, domainKeywords)

	if offTopic {
		// Domain context always wins over an off-topic lexical match.
		if health {
			return ScopeResult{Allowed: true, Hint: IntentHealthInquiry}
		}
		if domain {
			return ScopeResult{Allowed: true, Hint: IntentInquiry}
		}
		return ScopeResult{Allowed: false, Hint: IntentOffTopic, Reply: rejectionMessage(locale)}
	}

	if health {
		return ScopeResult{Allowed: true, Hint: IntentHealthInquiry}
	}

	return ScopeResult{Allowed: true}
}

// commandSignal reports whether the input carries an order, cart,
// recommendation, search or checkout command.
func commandSignal(input string) bool {
	for _, rule := range patternRules {
		for _, re := range rule.patterns {
			if re.MatchString(input) {
				return true
			}
		}
	}
	return containsAnyWord(input, orderKeywords) ||
		containsAnyWord(input, recommendationKeywords) ||
		containsAnyWord(input, searchKeywords) ||
		containsAnyWord(input, checkoutKeywords)
}

func rejectionMessage(locale string) string {
	if strings.HasPrefix(locale, "en") {
		return "Sorry, I can only help with things related to our store: " +
			"ordering drinks, menu and price information, product recommendations, " +
			"health benefits of our drinks, and finding your way around the shop."
	}
	return "Maaf, aku hanya bisa membantu hal-hal seputar toko kami: " +
		"pemesanan minuman, info menu dan harga, rekomendasi produk, " +
		"manfaat kesehatan minuman kami, dan navigasi halaman toko."
}

// GreetingReply is the canned response for the greeting short-circuit.
func GreetingReply(locale string) string {
	if strings.HasPrefix(locale, "en") {
		return "Hello! Welcome to Toko Segar. Want a drink recommendation, or ready to order?"
	}
	return "Halo! Selamat datang di Toko Segar. Mau rekomendasi minuman, atau langsung pesan?"
}
