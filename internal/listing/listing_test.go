package listing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	raw := RawListing{
		ItemID:       "N82E16822184793",
		Title:        "Acme 4TB HDD",
		RawPriceText: "$79.99",
		URL:          "https://example.com/item/N82E16822184793",
		Retailer:     RetailerNewegg,
	}

	l, ok := Normalize(raw)
	assert.True(t, ok)
	assert.Equal(t, 79.99, l.Price)
	assert.Equal(t, float64(4000), l.CapacityGB)
	assert.InDelta(t, 19.9975, l.PricePerTB, 1e-9)
	assert.Equal(t, raw.ItemID, l.ItemID)
	assert.Equal(t, raw.Retailer, l.Retailer)
}

func TestNormalizeCapacityFromSeparateText(t *testing.T) {
	raw := RawListing{
		ItemID:          "id1",
		Title:           "Enterprise drive",
		RawPriceText:    "$199.99",
		RawCapacityText: "Capacity: 1.92TB",
		URL:             "https://example.com/id1",
		Retailer:        RetailerServerPartDeals,
	}

	l, ok := Normalize(raw)
	assert.True(t, ok)
	assert.Equal(t, float64(1920), l.CapacityGB)
}

func TestNormalizeRejectsIncompleteRecords(t *testing.T) {
	testCases := []struct {
		name string
		raw  RawListing
	}{
		{"missing id", RawListing{Title: "Acme 4TB", RawPriceText: "$10", URL: "u", Retailer: RetailerNewegg}},
		{"missing title", RawListing{ItemID: "a", RawPriceText: "$10", URL: "u", Retailer: RetailerNewegg}},
		{"missing url", RawListing{ItemID: "a", Title: "Acme 4TB", RawPriceText: "$10", Retailer: RetailerNewegg}},
		{"unparseable price", RawListing{ItemID: "a", Title: "Acme 4TB", RawPriceText: "N/A", URL: "u", Retailer: RetailerNewegg}},
		{"no capacity", RawListing{ItemID: "a", Title: "Acme HDD", RawPriceText: "$10", URL: "u", Retailer: RetailerNewegg}},
		{"transfer rate only", RawListing{ItemID: "a", Title: "SATA 6Gb/s cable", RawPriceText: "$10", URL: "u", Retailer: RetailerNewegg}},
	}

	for _, tc := range testCases {
		_, ok := Normalize(tc.raw)
		assert.False(t, ok, tc.name)
	}
}

// The scenario from a two-page crawl: item A appears twice with a
// price change between fetches, and ranking is by price per TB.
func TestNormalizeAndRankScenario(t *testing.T) {
	raws := []RawListing{
		{ItemID: "A", Title: "Acme 4TB HDD", RawPriceText: "$79.99", URL: "https://example.com/A", Retailer: RetailerNewegg},
		{ItemID: "B", Title: "Acme 2TB HDD", RawPriceText: "$49.99", URL: "https://example.com/B", Retailer: RetailerNewegg},
		{ItemID: "A", Title: "Acme 4TB HDD", RawPriceText: "$84.99", URL: "https://example.com/A", Retailer: RetailerNewegg},
	}

	var normalized []NormalizedListing
	for _, raw := range raws {
		l, ok := Normalize(raw)
		assert.True(t, ok)
		normalized = append(normalized, l)
	}

	ranked, duplicates := DedupeAndRank(normalized)
	assert.Equal(t, 1, duplicates)
	assert.Len(t, ranked, 2)

	assert.Equal(t, "A", ranked[0].ItemID)
	assert.Equal(t, 79.99, ranked[0].Price)
	assert.Equal(t, float64(4000), ranked[0].CapacityGB)
	assert.InDelta(t, 19.9975, ranked[0].PricePerTB, 1e-9)

	assert.Equal(t, "B", ranked[1].ItemID)
	assert.InDelta(t, 24.995, ranked[1].PricePerTB, 1e-9)
}
