package crawler

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"driveprices/config"
	"driveprices/helpers"
	"driveprices/internal/listing"
	"driveprices/pkg/errors"
)

// Rate-limit blocks are shared per retailer, not per category, so one
// 429 backs off every category on that site.
const defaultBlockSeconds = 500

// CreateCrawlers builds a crawler for each configured category.
func CreateCrawlers(cfg *config.Config, env Env) ([]Crawler, error) {
	crawlers := make([]Crawler, 0, len(cfg.Categories))
	for _, cat := range cfg.Categories {
		c, err := createCrawler(cat, env)
		if err != nil {
			return nil, err
		}
		crawlers = append(crawlers, c)
	}
	return crawlers, nil
}

func createCrawler(cat config.Category, env Env) (Crawler, error) {
	var cc CrawlerConfig
	switch listing.Retailer(cat.Retailer) {
	case listing.RetailerNewegg:
		cc = neweggConfig()
	case listing.RetailerAmazon:
		cc = amazonConfig()
	case listing.RetailerServerPartDeals:
		cc = serverPartDealsConfig()
	default:
		return nil, errors.NewConfiguration(
			fmt.Sprintf("no crawler for retailer %q", cat.Retailer), nil)
	}

	cc.URL = cat.URL
	cc.CategoryName = cat.Name
	cc.CategoryLabel = cat.Label
	cc.MaxPages = cat.MaxPages
	cc.UseChrome = cat.UseChrome

	return NewConfigurableCrawler(cc, env), nil
}

func neweggConfig() CrawlerConfig {
	return CrawlerConfig{
		CacheKey:  "rate_limited:newegg",
		BlockTime: defaultBlockSeconds,
		BaseURL:   "https://www.newegg.com",
		Retailer:  listing.RetailerNewegg,

		PageParam: "page",
		// The pager reads "Page 1/29"; the advertised total caps the walk.
		PageCountRegex: `Page <strong>\d+/(\d+)</strong>`,

		Selectors: Selectors{
			ItemList: "div.item-container, div.item-cell",
			Title:    "a.item-title",
			Link:     "a.item-title",
		},
		SkipRules: []SkipRule{
			{Name: "hidden_price", Match: neweggHiddenPrice},
			{Name: "out_of_stock", Match: neweggOutOfStock},
			{Name: "coming_soon", Match: neweggComingSoon},
		},
		IDExtractor: neweggItemID,
		PriceText:   neweggPriceText,
	}
}

// Price is only revealed in the cart; the listed value would be a
// placeholder, not a price.
func neweggHiddenPrice(s *goquery.Selection) bool {
	text := strings.TrimSpace(s.Find("li.price-map a").First().Text())
	return text == "See price in cart" || text == "See Price after Checkout"
}

// The promo banner wording and the button label are the only stock
// markers on the grid. Both only disqualify an item when the price
// node is empty too, matching how the site renders sold-out cards.
func neweggOutOfStock(s *goquery.Selection) bool {
	if s.Find("li.price-current").Children().Length() > 0 {
		return false
	}
	promo := strings.TrimSpace(s.Find("p.item-promo").First().Text())
	if promo == "OUT OF STOCK" {
		return true
	}
	btn := strings.TrimSpace(s.Find("span.btn-message").First().Text())
	return btn == "Out Of Stock"
}

func neweggComingSoon(s *goquery.Selection) bool {
	return strings.TrimSpace(s.Find("li.price-current strong").First().Text()) == "COMING SOON"
}

// neweggItemID reads the Item query parameter off the product URL.
func neweggItemID(_ *goquery.Selection, link string) (string, error) {
	return helpers.QueryParam(link, "Item")
}

// neweggPriceText joins the dollars and cents nodes, which the site
// renders separately as <strong>59</strong><sup>.99</sup>.
func neweggPriceText(s *goquery.Selection) string {
	current := s.Find("li.price-current").First()
	strong := current.Find("strong").First()
	if strong.Length() == 0 {
		return strings.TrimSpace(current.Text())
	}
	sup := current.Find("sup").First()
	return strings.TrimSpace(strong.Text()) + strings.TrimSpace(sup.Text())
}

func amazonConfig() CrawlerConfig {
	return CrawlerConfig{
		CacheKey:  "rate_limited:amazon",
		BlockTime: defaultBlockSeconds,
		BaseURL:   "https://www.amazon.com",
		Retailer:  listing.RetailerAmazon,

		PageParam: "page",

		Selectors: Selectors{
			ItemList: `div[data-component-type='s-search-result']`,
			Title:    "h2 span",
			Link:     "a.a-link-normal.s-no-outline, h2 a.a-link-normal, a.a-link-normal",
		},
		SkipRules: []SkipRule{
			{Name: "sponsored", Match: amazonSponsored},
		},
		IDExtractor: amazonASIN,
		PriceText:   amazonPriceText,
		LinkValid: func(link string) bool {
			return strings.Contains(link, "/dp/") || strings.Contains(link, "/gp/product/")
		},
	}
}

// Sponsored placements are ads, not organic listings.
func amazonSponsored(s *goquery.Selection) bool {
	label := s.Find("span.s-label-popover-default, span.puis-sponsored-label-text").First()
	return strings.Contains(label.Text(), "Sponsored")
}

// amazonASIN reads the ASIN off the result container's data attribute.
func amazonASIN(s *goquery.Selection, _ string) (string, error) {
	asin := strings.TrimSpace(s.AttrOr("data-asin", ""))
	if asin == "" {
		return "", fmt.Errorf("result container has no data-asin")
	}
	return asin, nil
}

// amazonPriceText prefers the machine-readable offscreen price and
// falls back to joining the whole and fraction nodes.
func amazonPriceText(s *goquery.Selection) string {
	if off := s.Find("span.a-price span.a-offscreen").First(); off.Length() > 0 {
		return strings.TrimSpace(off.Text())
	}
	whole := s.Find("span.a-price-whole").First()
	fraction := s.Find("span.a-price-fraction").First()
	if whole.Length() > 0 && fraction.Length() > 0 {
		return strings.TrimSpace(whole.Text()) + strings.TrimSpace(fraction.Text())
	}
	return strings.TrimSpace(s.Find("span.a-price").First().Text())
}

func serverPartDealsConfig() CrawlerConfig {
	return CrawlerConfig{
		CacheKey:  "rate_limited:serverpartdeals",
		BlockTime: defaultBlockSeconds,
		BaseURL:   "https://serverpartdeals.com",
		Retailer:  listing.RetailerServerPartDeals,

		// The collection grid is a single filtered page.
		PageParam: "",

		Selectors: Selectors{
			ItemList: "div.boost-pfs-filter-product-item-inner",
			Title:    "a.boost-pfs-filter-product-item-title",
			Link:     "a.boost-pfs-filter-product-item-title",
			Price:    "span.boost-pfs-filter-product-item-regular-price",
		},
		IDExtractor: serverPartDealsHandle,
	}
}

// serverPartDealsHandle uses the product handle, the last path
// segment of /products/<handle>, as the identifier.
func serverPartDealsHandle(_ *goquery.Selection, link string) (string, error) {
	return helpers.LastPathSegment(link)
}
