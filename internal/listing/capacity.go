package listing

import (
	"regexp"
	"strconv"
	"strings"
)

// Capacity expressions as they appear in product titles: "4TB",
// "500 GB", "1.92TB", sometimes a bare "4T". The strict pattern
// requires the trailing B and is preferred; the loose one tolerates
// its absence. Matches immediately followed by "/s" are transfer
// rates ("6Gb/s"), not capacities.
var (
	capacityStrict = regexp.MustCompile(`\b([0-9.]+) ?([TGtg])[Bb]\b`)
	capacityLoose  = regexp.MustCompile(`\b([0-9.]+) ?([TGtg])[Bb]?\b`)
)

// ParseCapacity extracts a capacity in gigabytes from free text.
// Terabytes scale by 1000 (decimal, matching the marketing unit).
// The second return value is false when no capacity expression is
// present; absence is expected, not an error.
func ParseCapacity(text string) (float64, bool) {
	if gb, ok := findCapacity(capacityStrict, text); ok {
		return gb, true
	}
	return findCapacity(capacityLoose, text)
}

func findCapacity(re *regexp.Regexp, text string) (float64, bool) {
	for _, m := range re.FindAllStringSubmatchIndex(text, -1) {
		if strings.HasPrefix(text[m[1]:], "/s") {
			continue
		}
		value, err := strconv.ParseFloat(text[m[2]:m[3]], 64)
		if err != nil {
			continue
		}
		if unit := text[m[4]:m[5]]; unit == "T" || unit == "t" {
			value *= 1000
		}
		if value <= 0 {
			continue
		}
		return value, true
	}
	return 0, false
}
