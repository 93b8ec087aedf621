package listing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParsePrice(t *testing.T) {
	testCases := []struct {
		input    string
		expected float64
		found    bool
	}{
		{"$1,234.56", 1234.56, true},
		{"$79.99", 79.99, true},
		{"79.99", 79.99, true},
		{"€99 - €120", 99, true},
		{"$100 - $150", 100, true},
		{"19.99 (free shipping)", 19.99, true},
		{"USD 249.00", 249, true},
		{"GBP179.99", 179.99, true},
		{"$0", 0, true},
		{"N/A", 0, false},
		{"See price in cart", 0, false},
		{"", 0, false},
	}

	for _, tc := range testCases {
		price, ok := ParsePrice(tc.input)
		assert.Equal(t, tc.found, ok, "found mismatch for %q", tc.input)
		if tc.found {
			assert.Equal(t, tc.expected, price, "price mismatch for %q", tc.input)
		}
	}
}
