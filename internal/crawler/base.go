package crawler

import (
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"driveprices/helpers"
	"driveprices/internal/listing"
	"driveprices/logger"
	"driveprices/pkg/errors"
	"driveprices/services/cache"
	"driveprices/services/pagecache"
)

// FetchFunc retrieves the raw HTML of one page URL over the network.
type FetchFunc func(pageURL string) ([]byte, error)

// BaseCrawler implements functionality shared by all crawlers:
// rate-limit bookkeeping, snapshot-aware page fetching, pagination
// URL building and relative link resolution.
type BaseCrawler struct {
	URL          string
	CategoryName string
	Label        string
	CacheKey     string
	CacheSvc     cache.CacheService
	BlockTime    time.Duration
	BaseURL      string
	Retailer     listing.Retailer

	PageParam string
	MaxPages  int

	// Pages is the on-disk snapshot store. SnapshotDate selects which
	// day's directory to read and write. With CachedOnly set the
	// crawler never touches the network and reads snapshots only,
	// which is how reports get rebuilt after the fact.
	Pages        *pagecache.Store
	SnapshotDate string
	CachedOnly   bool

	MinDelay time.Duration
	MaxDelay time.Duration

	Fetch FetchFunc

	log *logger.Logger
}

// GetName returns the crawler's name, qualified by retailer.
func (b *BaseCrawler) GetName() string {
	return string(b.Retailer) + "/" + b.CategoryName
}

// GetRetailer returns the retailer the crawler scrapes.
func (b *BaseCrawler) GetRetailer() listing.Retailer {
	return b.Retailer
}

// GetLabel returns the human-readable category label.
func (b *BaseCrawler) GetLabel() string {
	return b.Label
}

// snapshotDate resolves per call so a long-running loop rolls over
// to a fresh dated directory at midnight.
func (b *BaseCrawler) snapshotDate() string {
	if b.SnapshotDate != "" {
		return b.SnapshotDate
	}
	return pagecache.Today()
}

func (b *BaseCrawler) crawlLogger() *logger.Logger {
	if b.log == nil {
		b.log = logger.ForScraper(b.GetName())
	}
	return b.log
}

// checkRateLimit returns an error when the retailer is currently
// marked blocked in the cache.
func (b *BaseCrawler) checkRateLimit() error {
	if b.CacheSvc == nil || b.CacheKey == "" {
		return nil
	}
	if _, err := b.CacheSvc.Get(b.CacheKey); err == nil {
		return errors.NewRateLimit(string(b.Retailer), b.BlockTime)
	}
	return nil
}

// markRateLimited records a block for the retailer so subsequent
// crawls back off instead of hammering it.
func (b *BaseCrawler) markRateLimited() {
	if b.CacheSvc == nil || b.CacheKey == "" {
		return
	}
	if err := b.CacheSvc.Set(b.CacheKey, []byte("1"), b.BlockTime); err != nil {
		b.crawlLogger().WithError(err).Warn().Msg("Failed to record rate limit block")
	}
}

// pageURL builds the URL for the given 1-based page number.
func (b *BaseCrawler) pageURL(page int) (string, error) {
	if page <= 1 || b.PageParam == "" {
		return b.URL, nil
	}
	u, err := url.Parse(b.URL)
	if err != nil {
		return "", fmt.Errorf("invalid category URL %q: %w", b.URL, err)
	}
	q := u.Query()
	q.Set(b.PageParam, strconv.Itoa(page))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// fetchPage returns the HTML of one page, from the snapshot store
// when present, from the network otherwise. Network fetches are
// snapshotted for later rebuilds.
func (b *BaseCrawler) fetchPage(page int) ([]byte, error) {
	date := b.snapshotDate()
	if b.Pages != nil && b.Pages.Exists(date, b.CategoryName, page) {
		body, err := b.Pages.Get(date, b.CategoryName, page)
		if err == nil {
			b.crawlLogger().Debug().Int("page", page).Str("date", date).Msg("Using page snapshot")
			return body, nil
		}
		b.crawlLogger().WithError(err).Warn().Int("page", page).Msg("Failed to read page snapshot")
	}

	if b.CachedOnly {
		return nil, errors.NewValidation(string(b.Retailer),
			fmt.Sprintf("no snapshot for %s page %d on %s", b.CategoryName, page, date))
	}

	if err := b.checkRateLimit(); err != nil {
		return nil, err
	}

	if page > 1 {
		helpers.SleepPolitely(b.MinDelay, b.MaxDelay)
	}

	pageURL, err := b.pageURL(page)
	if err != nil {
		return nil, errors.NewConfiguration("bad page URL", err)
	}

	body, err := b.fetchURL(pageURL)
	if err != nil {
		if strings.Contains(err.Error(), "rate limited") {
			b.markRateLimited()
			return nil, errors.NewRateLimit(string(b.Retailer), b.BlockTime)
		}
		return nil, errors.NewNetwork(string(b.Retailer), fmt.Sprintf("failed to fetch page %d", page), err)
	}

	if b.Pages != nil {
		if err := b.Pages.Put(date, b.CategoryName, page, body); err != nil {
			b.crawlLogger().WithError(err).Warn().Int("page", page).Msg("Failed to write page snapshot")
		}
	}
	return body, nil
}

// fetchURL runs the configured fetch function, defaulting to the
// plain HTTP client with browser-like headers.
func (b *BaseCrawler) fetchURL(pageURL string) ([]byte, error) {
	if b.Fetch != nil {
		return b.Fetch(pageURL)
	}
	reader, err := helpers.FetchWithRandomHeaders(pageURL)
	if err != nil {
		return nil, err
	}
	return io.ReadAll(reader)
}

// createDocument parses page HTML into a goquery document.
func (b *BaseCrawler) createDocument(body []byte) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return nil, errors.NewParsing(string(b.Retailer), "failed to parse HTML", err)
	}
	return doc, nil
}

// resolveURL turns a relative product link into an absolute one.
func (b *BaseCrawler) resolveURL(link string) string {
	if link == "" || strings.HasPrefix(link, "http://") || strings.HasPrefix(link, "https://") {
		return link
	}
	if strings.HasPrefix(link, "//") {
		return "https:" + link
	}
	base := strings.TrimSuffix(b.BaseURL, "/")
	if !strings.HasPrefix(link, "/") {
		link = "/" + link
	}
	return base + link
}
