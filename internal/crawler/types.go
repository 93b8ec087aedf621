package crawler

import (
	"github.com/PuerkitoBio/goquery"

	"driveprices/internal/listing"
)

// Crawler is one retailer category crawl: fetch the listing pages,
// extract and normalize the records. Deduplication and ranking happen
// later, across all crawlers, at the single merge point.
type Crawler interface {
	// FetchListings walks the category's pages and returns the
	// normalized listings found, possibly with cross-page duplicates.
	FetchListings() ([]listing.NormalizedListing, error)

	// GetName returns the crawler's name for logging and identification
	GetName() string

	// GetRetailer returns the retailer the crawler scrapes
	GetRetailer() listing.Retailer

	// GetLabel returns the human-readable category label
	GetLabel() string
}

// IDExtractorFunc derives the site-scoped item identifier from an
// item container and its resolved product URL. It must error rather
// than return an empty identifier.
type IDExtractorFunc func(s *goquery.Selection, link string) (string, error)

// SkipFunc reports whether an item container should be excluded
// without emitting a record.
type SkipFunc func(s *goquery.Selection) bool

// SkipRule pairs an exclusion predicate with a name for counters.
type SkipRule struct {
	Name  string
	Match SkipFunc
}

// PriceTextFunc assembles the raw price text for an item. Layouts
// that split the price into whole and fractional nodes concatenate
// them here, before normalization.
type PriceTextFunc func(s *goquery.Selection) string

// Selectors contains CSS selectors for the elements of a listing page
type Selectors struct {
	// ItemList locates the item containers on a page
	ItemList string
	// Title locates the product title node within a container
	Title string
	// Link locates the anchor carrying the product URL
	Link string
	// Price locates the price text node; ignored when the crawler
	// config carries a PriceText func
	Price string
	// Capacity optionally locates a dedicated capacity node; the
	// title text is used when empty
	Capacity string
}

// CrawlerConfig contains configuration for a crawler
type CrawlerConfig struct {
	URL           string
	CategoryName  string
	CategoryLabel string
	CacheKey      string
	BlockTime     int
	BaseURL       string
	Retailer      listing.Retailer

	// Pagination: PageParam is the query parameter for pages past the
	// first, MaxPages bounds the walk, and PageCountRegex (optional,
	// one capture group) reads the real page count off page 1.
	PageParam      string
	MaxPages       int
	PageCountRegex string

	UseChrome bool

	Selectors   Selectors
	SkipRules   []SkipRule
	IDExtractor IDExtractorFunc
	PriceText   PriceTextFunc
	// LinkValid optionally rejects anchors that are not product
	// links (search pages mix in navigation anchors)
	LinkValid func(link string) bool
}

// ExtractStats counts what happened to the containers of one page.
// Recoverable gaps are counters, not errors.
type ExtractStats struct {
	Containers    int
	Extracted     int
	SkippedByRule map[string]int
	MissingField  int
	Unparseable   int
	LayoutErrors  int
}

func newExtractStats() ExtractStats {
	return ExtractStats{SkippedByRule: make(map[string]int)}
}

func (s *ExtractStats) merge(other ExtractStats) {
	s.Containers += other.Containers
	s.Extracted += other.Extracted
	s.MissingField += other.MissingField
	s.Unparseable += other.Unparseable
	s.LayoutErrors += other.LayoutErrors
	for name, n := range other.SkippedByRule {
		s.SkippedByRule[name] += n
	}
}
