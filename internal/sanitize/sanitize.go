// Package sanitize holds the pure text transforms applied at the turn
// boundary: user input is normalized and stripped of prompt-injection
// phrasing before classification, and model output is stripped of
// markup that could execute in the storefront widget.
package sanitize

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

const maxInputLen = 1000

// dangerousPatterns match output fragments that must never reach the
// storefront DOM. Removal loops to a fixpoint so nested fragments
// ("<scr<script>ipt>") cannot reassemble after one pass.
var dangerousPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`),
	regexp.MustCompile(`(?is)<script[^>]*>`),
	regexp.MustCompile(`(?is)</script>`),
	regexp.MustCompile(`(?is)<iframe[^>]*>.*?</iframe>`),
	regexp.MustCompile(`(?is)<iframe[^>]*>`),
	regexp.MustCompile(`(?i)javascript:`),
	regexp.MustCompile(`(?i)\son\w+\s*=\s*"[^"]*"`),
	regexp.MustCompile(`(?i)\son\w+\s*=\s*'[^']*'`),
	regexp.MustCompile(`(?i)data:text/html`),
	regexp.MustCompile(`(?i)vbscript:`),
	regexp.MustCompile(`\{\{.*?\}\}`),
	regexp.MustCompile(`<%.*?%>`),
}

// injectionPhrases are stripped from user input before it is shown to
// the classifier or embedded into a model prompt.
var injectionPhrases = []*regexp.Regexp{
	regexp.MustCompile(`(?i)ignore\s+(all\s+)?(previous|prior|above)\s+(instructions|prompts?)`),
	regexp.MustCompile(`(?i)disregard\s+(all\s+)?(previous|prior|above)\s+(instructions|prompts?)`),
	regexp.MustCompile(`(?i)abaikan\s+(semua\s+)?(instruksi|perintah)\s+(sebelumnya|di\s*atas)`),
	regexp.MustCompile(`(?i)lupakan\s+(semua\s+)?(instruksi|perintah)\s+(sebelumnya|di\s*atas)`),
	regexp.MustCompile(`(?i)you\s+are\s+now\s+(a|an)\s+`),
	regexp.MustCompile(`(?i)system\s*prompt\s*:`),
	regexp.MustCompile(`(?i)\[\s*system\s*\]`),
	regexp.MustCompile(`(?i)pretend\s+(to\s+be|you\s+are)`),
	regexp.MustCompile(`(?i)act\s+as\s+(if\s+you\s+are\s+)?(a|an)\s+`),
	regexp.MustCompile(`(?i)new\s+instructions?\s*:`),
}

// Input normalizes one turn of raw user text: control characters out,
// whitespace collapsed, injection phrasing removed, length capped.
func Input(s string) string {
	s = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return ' '
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)

	for _, re := range injectionPhrases {
		s = re.ReplaceAllString(s, " ")
	}

	s = strings.Join(strings.Fields(s), " ")

	if len(s) > maxInputLen {
		// Back up to a rune start so the cap never leaves a split rune.
		cut := maxInputLen
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		s = s[:cut]
		if idx := strings.LastIndex(s, " "); idx > 0 {
			s = s[:idx]
		}
	}
	return strings.TrimSpace(s)
}

// Output strips dangerous markup from model text. Runs to a fixpoint,
// so Output(Output(s)) == Output(s).
func Output(s string) string {
	for {
		prev := s
		for _, re := range dangerousPatterns {
			s = re.ReplaceAllString(s, "")
		}
		if s == prev {
			return strings.TrimSpace(s)
		}
	}
}

// ContainsDangerous reports whether any dangerous pattern matches s.
func ContainsDangerous(s string) bool {
	for _, re := range dangerousPatterns {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}
