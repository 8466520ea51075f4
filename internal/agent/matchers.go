package agent

import (
	"regexp"
	"strings"
)

var nonWordRe = regexp.MustCompile(`[^a-z0-9 ]+`)

// normalize lowercases and strips punctuation so keyword tables match
// on plain word content.
func normalize(s string) string {
	s = strings.ToLower(s)
	s = nonWordRe.ReplaceAllString(s, " ")
	return strings.Join(strings.Fields(s), " ")
}

// stopwords shared by Indonesian and English phrasing; excluded from
// significant-word matching.
var stopwords = map[string]bool{
	"yang": true, "dan": true, "atau": true, "untuk": true, "dengan": true,
	"dari": true, "ke": true, "di": true, "itu": true, "ini": true,
	"ada": true, "saya": true, "aku": true, "kamu": true, "mau": true,
	"dong": true, "ya": true, "deh": true, "nya": true, "juga": true,
	"the": true, "a": true, "an": true, "and": true, "or": true,
	"for": true, "to": true, "of": true, "in": true, "is": true,
	"me": true, "my": true, "please": true, "want": true, "some": true,
}

// significantWords returns the normalized words of s that carry product
// name signal.
func significantWords(s string) []string {
	var words []string
	for _, w := range strings.Fields(normalize(s)) {
		if len(w) < 3 || stopwords[w] {
			continue
		}
		words = append(words, w)
	}
	return words
}

// wordOverlap is the fraction of name's significant words present in
// input (0 when name has none).
func wordOverlap(input, name string) float64 {
	nameWords := significantWords(name)
	if len(nameWords) == 0 {
		return 0
	}
	normalized := " " + normalize(input) + " "
	hits := 0
	for _, w := range nameWords {
		if strings.Contains(normalized, " "+w+" ") {
			hits++
		}
	}
	return float64(hits) / float64(len(nameWords))
}

// containsWord matches w as a whole word inside s.
func containsWord(s, w string) bool {
	return strings.Contains(" "+normalize(s)+" ", " "+normalize(w)+" ")
}

func containsAnyWord(s string, words []string) bool {
	for _, w := range words {
		if containsWord(s, w) {
			return true
		}
	}
	return false
}

// productNouns is the store vocabulary used by the guard override and
// the router's contextual fallback layer.
var productNouns = []string{
	"jus", "juice", "es", "teh", "tea", "smoothie", "minuman", "drink",
	"jeruk", "orange", "mangga", "mango", "alpukat", "avocado",
	"wortel", "carrot", "strawberry", "stroberi", "bayam", "spinach",
	"air", "mineral", "menu", "produk", "product",
}
