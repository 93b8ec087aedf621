package listing

import "math"

// Retailer identifies the source site a listing was extracted from.
// Item identifiers are only comparable within the same retailer.
type Retailer string

const (
	RetailerNewegg          Retailer = "Newegg"
	RetailerAmazon          Retailer = "Amazon"
	RetailerServerPartDeals Retailer = "ServerPartDeals"
)

// RawListing is one item as it came out of the page markup, before
// normalization. It is transient: consumed into a NormalizedListing
// or discarded.
type RawListing struct {
	ItemID          string
	Title           string
	RawPriceText    string
	RawCapacityText string
	URL             string
	Retailer        Retailer
}

// NormalizedListing is the unit the pipeline produces and ranks.
type NormalizedListing struct {
	ItemID     string   `json:"item_id"`
	Title      string   `json:"title"`
	URL        string   `json:"url"`
	Retailer   Retailer `json:"retailer"`
	Price      float64  `json:"price"`
	CapacityGB float64  `json:"capacity_gb"`
	PricePerTB float64  `json:"price_per_tb"`
}

// PricePerTB derives the ranking metric from a price and a capacity
// in gigabytes. Terabytes are decimal: 1 TB = 1000 GB.
func PricePerTB(price, capacityGB float64) float64 {
	return price / (capacityGB / 1000)
}

// Normalize converts a raw listing into a normalized one. It returns
// false when the price or capacity text does not parse, or when a
// required field is empty; the caller drops the record, never emits a
// partial one.
func Normalize(raw RawListing) (NormalizedListing, bool) {
	if raw.ItemID == "" || raw.Title == "" || raw.URL == "" {
		return NormalizedListing{}, false
	}

	price, ok := ParsePrice(raw.RawPriceText)
	if !ok {
		return NormalizedListing{}, false
	}

	capacityText := raw.RawCapacityText
	if capacityText == "" {
		capacityText = raw.Title
	}
	capacityGB, ok := ParseCapacity(capacityText)
	if !ok {
		return NormalizedListing{}, false
	}

	price = roundCents(price)
	return NormalizedListing{
		ItemID:     raw.ItemID,
		Title:      raw.Title,
		URL:        raw.URL,
		Retailer:   raw.Retailer,
		Price:      price,
		CapacityGB: capacityGB,
		PricePerTB: PricePerTB(price, capacityGB),
	}, true
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
