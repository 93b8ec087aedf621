package crawler

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"driveprices/internal/listing"
	"driveprices/pkg/errors"
	"driveprices/services/cache"
	"driveprices/services/pagecache"
)

// Env carries the shared services and crawl-wide settings a crawler
// runs against, separate from the per-category configuration.
type Env struct {
	Cache        cache.CacheService
	Pages        *pagecache.Store
	SnapshotDate string
	CachedOnly   bool
	MinDelay     time.Duration
	MaxDelay     time.Duration
	// Fetch overrides the network fetch, mainly for tests. When nil,
	// chrome-backed categories render through a headless browser and
	// the rest use the plain HTTP client.
	Fetch FetchFunc
}

// ConfigurableCrawler extracts listings from a retailer category
// driven entirely by its CrawlerConfig: selectors locate the fields,
// skip rules exclude non-purchasable items, and the ID extractor
// derives the stable site identifier. Adding a retailer means adding
// a config in the factory, not a new crawler type.
type ConfigurableCrawler struct {
	BaseCrawler
	config CrawlerConfig

	pageCountRe *regexp.Regexp
}

// NewConfigurableCrawler creates a crawler from its configuration and
// the crawl environment.
func NewConfigurableCrawler(cfg CrawlerConfig, env Env) *ConfigurableCrawler {
	fetch := env.Fetch
	if fetch == nil && cfg.UseChrome {
		fetch = fetchWithChrome
	}
	c := &ConfigurableCrawler{
		BaseCrawler: BaseCrawler{
			URL:          cfg.URL,
			CategoryName: cfg.CategoryName,
			Label:        cfg.CategoryLabel,
			CacheKey:     cfg.CacheKey,
			CacheSvc:     env.Cache,
			BlockTime:    time.Duration(cfg.BlockTime) * time.Second,
			BaseURL:      cfg.BaseURL,
			Retailer:     cfg.Retailer,
			PageParam:    cfg.PageParam,
			MaxPages:     cfg.MaxPages,
			Pages:        env.Pages,
			SnapshotDate: env.SnapshotDate,
			CachedOnly:   env.CachedOnly,
			MinDelay:     env.MinDelay,
			MaxDelay:     env.MaxDelay,
			Fetch:        fetch,
		},
		config: cfg,
	}
	if cfg.PageCountRegex != "" {
		c.pageCountRe = regexp.MustCompile(cfg.PageCountRegex)
	}
	return c
}

// FetchListings fetches every page of the category and extracts the
// normalized listings. Individual broken items are skipped and
// counted; only page-level failures (network, parse) abort the crawl.
func (c *ConfigurableCrawler) FetchListings() ([]listing.NormalizedListing, error) {
	log := c.crawlLogger()

	pages, err := c.pagesToWalk()
	if err != nil {
		return nil, err
	}

	var listings []listing.NormalizedListing
	total := newExtractStats()

	// Indexed loop: the walk over page 1 extends the page list once
	// the advertised page count is known.
	for i := 0; i < len(pages); i++ {
		page := pages[i]
		body, err := c.fetchPage(page)
		if err != nil {
			if i == 0 {
				return nil, err
			}
			// Later pages failing should not throw away what the
			// earlier pages already produced.
			log.WithError(err).Warn().Int("page", page).Msg("Skipping page after fetch failure")
			continue
		}

		if i == 0 && !c.CachedOnly {
			pages = c.extendPages(pages, string(body))
		}

		doc, err := c.createDocument(body)
		if err != nil {
			if i == 0 {
				return nil, err
			}
			log.WithError(err).Warn().Int("page", page).Msg("Skipping unparseable page")
			continue
		}

		pageListings, stats := c.extractPage(doc)
		total.merge(stats)

		if stats.Containers == 0 && i > 0 {
			// Past the last real page; retailers serve an empty grid
			// rather than a 404.
			log.Debug().Int("page", page).Msg("Empty page, stopping pagination")
			break
		}
		listings = append(listings, pageListings...)
	}

	if total.Containers > 0 && total.Extracted == 0 {
		log.Warn().
			Int("containers", total.Containers).
			Msg("Zero listings extracted from candidate containers, the site layout may have changed")
	}

	log.Info().
		Int("pages", len(pages)).
		Int("containers", total.Containers).
		Int("extracted", total.Extracted).
		Int("missing_field", total.MissingField).
		Int("unparseable", total.Unparseable).
		Int("layout_errors", total.LayoutErrors).
		Interface("skipped", total.SkippedByRule).
		Msg("Crawl finished")

	return listings, nil
}

// pagesToWalk returns the initial page numbers to visit. In cached
// mode the snapshot store is authoritative; otherwise the walk starts
// at page 1 and extends once the real page count is known.
func (c *ConfigurableCrawler) pagesToWalk() ([]int, error) {
	if c.CachedOnly {
		if c.Pages == nil {
			return nil, errors.NewConfiguration("cached-only crawl without a page store", nil)
		}
		date := c.snapshotDate()
		pages, err := c.Pages.Pages(date, c.CategoryName)
		if err != nil {
			return nil, errors.NewValidation(string(c.Retailer),
				fmt.Sprintf("no snapshots for %s on %s", c.CategoryName, date))
		}
		return pages, nil
	}
	return []int{1}, nil
}

// extendPages grows the page list after page 1, using the page count
// advertised in its markup when a regex is configured, bounded by
// MaxPages either way.
func (c *ConfigurableCrawler) extendPages(pages []int, firstPage string) []int {
	count := c.MaxPages
	if c.pageCountRe != nil {
		if m := c.pageCountRe.FindStringSubmatch(firstPage); m != nil {
			if advertised, err := strconv.Atoi(m[1]); err == nil && advertised < count {
				count = advertised
			}
		}
	}
	if c.PageParam == "" {
		count = 1
	}
	for p := 2; p <= count; p++ {
		pages = append(pages, p)
	}
	return pages
}

// extractPage runs the extraction pipeline over every item container
// on one page.
func (c *ConfigurableCrawler) extractPage(doc *goquery.Document) ([]listing.NormalizedListing, ExtractStats) {
	stats := newExtractStats()
	var listings []listing.NormalizedListing

	doc.Find(c.config.Selectors.ItemList).Each(func(_ int, s *goquery.Selection) {
		stats.Containers++
		l, err := c.processItem(s, &stats)
		if err != nil {
			// A derivation failure is a layout contract violation:
			// log the offending markup and move on to the next item.
			stats.LayoutErrors++
			c.crawlLogger().WithError(err).Error().Msg("Failed to extract item")
			return
		}
		if l == nil {
			return
		}
		stats.Extracted++
		listings = append(listings, *l)
	})

	return listings, stats
}

// processItem extracts one listing from its container. A nil, nil
// return means the item was deliberately skipped. Skip rules run
// first, in configured order, so a sponsored out-of-stock item counts
// under whichever rule matched it first.
func (c *ConfigurableCrawler) processItem(s *goquery.Selection, stats *ExtractStats) (*listing.NormalizedListing, error) {
	for _, rule := range c.config.SkipRules {
		if rule.Match(s) {
			stats.SkippedByRule[rule.Name]++
			c.crawlLogger().Debug().Str("rule", rule.Name).Msg("Skipping item")
			return nil, nil
		}
	}

	title := strings.TrimSpace(s.Find(c.config.Selectors.Title).First().Text())
	link, _ := s.Find(c.config.Selectors.Link).First().Attr("href")
	link = strings.TrimSpace(link)

	if title == "" || link == "" {
		stats.MissingField++
		return nil, nil
	}
	if c.config.LinkValid != nil && !c.config.LinkValid(link) {
		stats.MissingField++
		return nil, nil
	}
	link = c.resolveURL(link)

	itemID, err := c.config.IDExtractor(s, link)
	if err != nil || itemID == "" {
		fragment, _ := goquery.OuterHtml(s)
		return nil, errors.NewLayout(string(c.Retailer),
			fmt.Sprintf("cannot derive item identifier from %s", link), fragment)
	}

	priceText := c.priceText(s)
	if priceText == "" {
		stats.MissingField++
		return nil, nil
	}

	capacityText := ""
	if c.config.Selectors.Capacity != "" {
		capacityText = strings.TrimSpace(s.Find(c.config.Selectors.Capacity).First().Text())
	}

	raw := listing.RawListing{
		ItemID:          itemID,
		Title:           title,
		RawPriceText:    priceText,
		RawCapacityText: capacityText,
		URL:             link,
		Retailer:        c.Retailer,
	}
	normalized, ok := listing.Normalize(raw)
	if !ok {
		stats.Unparseable++
		c.crawlLogger().Debug().
			Str("title", title).
			Str("price_text", priceText).
			Msg("Dropping listing with unparseable price or capacity")
		return nil, nil
	}
	return &normalized, nil
}

func (c *ConfigurableCrawler) priceText(s *goquery.Selection) string {
	if c.config.PriceText != nil {
		return strings.TrimSpace(c.config.PriceText(s))
	}
	return strings.TrimSpace(s.Find(c.config.Selectors.Price).First().Text())
}
