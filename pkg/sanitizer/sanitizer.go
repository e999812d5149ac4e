package sanitizer

import (
	"strings"
	"unicode"
)

// SanitizeLabel turns a free-form category such as "Hot  Yoga!" into its
// canonical key "hot_yoga". Any run of characters other than letters and
// digits becomes a single underscore.
func SanitizeLabel(input string) string {
	var b strings.Builder
	pendingSep := false
	for _, r := range strings.ToLower(input) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteRune(r)
			continue
		}
		pendingSep = true
	}
	return b.String()
}
