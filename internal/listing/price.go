package listing

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	currencyMarks = regexp.MustCompile(`(?:USD|CAD|EUR|GBP|\$|£|€|,)`)
	trailingText  = regexp.MustCompile(`\s.*`)
)

// ParsePrice extracts a non-negative decimal amount from a free-text
// price. Currency symbols and thousands separators are stripped; a
// range ("$100 - $150") yields its lower bound; anything after the
// first whitespace run is dropped ("19.99 (10% off)"). The second
// return value is false when nothing parseable remains; malformed
// input never errors.
func ParsePrice(text string) (float64, bool) {
	if text == "" {
		return 0, false
	}

	s := currencyMarks.ReplaceAllString(text, "")
	s = strings.SplitN(s, "-", 2)[0]
	s = strings.TrimSpace(s)
	s = trailingText.ReplaceAllString(s, "")

	value, err := strconv.ParseFloat(s, 64)
	if err != nil || value < 0 {
		return 0, false
	}
	return value, true
}
