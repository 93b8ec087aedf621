package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Category is one retailer listing crawl: a named category with its
// entry URL and pagination bound. Categories are explicit
// configuration handed to the pipeline at startup; nothing in the
// crawl path reads mutable globals.
type Category struct {
	Name      string `yaml:"name"`
	Label     string `yaml:"label"`
	Retailer  string `yaml:"retailer"`
	URL       string `yaml:"url"`
	MaxPages  int    `yaml:"max_pages"`
	UseChrome bool   `yaml:"use_chrome"`
}

// Config represents the application configuration
type Config struct {
	// Redis configuration
	RedisAddr            string
	RedisDB              int
	RedisStream          string
	RedisStreamMaxLength int

	// Memcache configuration
	MemcacheAddr string

	// Crawl configuration
	CrawlInterval time.Duration
	MinFetchDelay time.Duration
	MaxFetchDelay time.Duration

	// Storage locations
	DataDir   string
	OutputDir string

	// Optional YAML file overriding the built-in category table
	CategoriesFile string

	// Environment
	Environment string

	Categories []Category
}

// LoadConfig loads the configuration from environment variables with
// defaults, including the category table.
func LoadConfig() (Config, error) {
	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	streamMaxLen, _ := strconv.Atoi(getEnv("REDIS_STREAM_MAX_LENGTH", "500"))
	crawlInterval, _ := strconv.Atoi(getEnv("CRAWL_INTERVAL_SECONDS", "86400"))
	minDelay, _ := strconv.Atoi(getEnv("MIN_FETCH_DELAY_SECONDS", "4"))
	maxDelay, _ := strconv.Atoi(getEnv("MAX_FETCH_DELAY_SECONDS", "8"))

	cfg := Config{
		RedisAddr:            getEnv("REDIS_ADDR", "localhost:6379"),
		RedisDB:              redisDB,
		RedisStream:          getEnv("REDIS_STREAM", "driveprices"),
		RedisStreamMaxLength: streamMaxLen,
		MemcacheAddr:         getEnv("MEMCACHE_ADDR", "localhost:11211"),
		CrawlInterval:        time.Duration(crawlInterval) * time.Second,
		MinFetchDelay:        time.Duration(minDelay) * time.Second,
		MaxFetchDelay:        time.Duration(maxDelay) * time.Second,
		DataDir:              getEnv("DATA_DIR", "data"),
		OutputDir:            getEnv("OUTPUT_DIR", "pages"),
		CategoriesFile:       getEnv("CATEGORIES_FILE", ""),
		Environment:          getEnv("DRIVEPRICES_ENVIRONMENT", "development"),
	}

	categories, err := LoadCategories(cfg.CategoriesFile)
	if err != nil {
		return cfg, err
	}
	cfg.Categories = categories

	return cfg, nil
}

// LoadCategories reads the category table from a YAML file, or
// returns the built-in table when path is empty.
func LoadCategories(path string) ([]Category, error) {
	if path == "" {
		return DefaultCategories(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read categories file: %w", err)
	}

	var file struct {
		Categories []Category `yaml:"categories"`
	}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse categories file: %w", err)
	}
	return file.Categories, nil
}

// DefaultCategories is the compiled-in category table.
func DefaultCategories() []Category {
	return []Category{
		{
			Name:     "internal_35",
			Label:    `3.5" internal drives`,
			Retailer: "Newegg",
			URL:      "https://www.newegg.com/Product/ProductList.aspx?Submit=ENE&N=100167523+8000+4814+600003489&IsNodeId=1&Order=RELEASE&PageSize=96",
			MaxPages: 10,
		},
		{
			Name:     "ssd_sata",
			Label:    "SSD with SATA interface",
			Retailer: "Newegg",
			URL:      "https://www.newegg.com/Product/ProductList.aspx?Submit=ENE&N=100011693+8000+4814+600038506+600038510+600038519&IsNodeId=1&Order=RELEASE&PageSize=96",
			MaxPages: 10,
		},
		{
			Name:     "amazon_internal",
			Label:    "Internal hard drives",
			Retailer: "Amazon",
			URL:      "https://www.amazon.com/s?k=internal+hard+drive&i=computers&rh=n%3A1254762011&ref=nb_sb_noss",
			MaxPages: 4,
		},
		{
			Name:      "spd_recertified",
			Label:     "Manufacturer recertified drives",
			Retailer:  "ServerPartDeals",
			URL:       "https://serverpartdeals.com/collections/manufacturer-recertified-drives",
			MaxPages:  1,
			UseChrome: true,
		},
	}
}

var knownRetailers = map[string]bool{
	"Newegg":          true,
	"Amazon":          true,
	"ServerPartDeals": true,
}

// Validate checks the configuration for problems that would only
// surface mid-crawl.
func (c *Config) Validate() error {
	if len(c.Categories) == 0 {
		return fmt.Errorf("no categories configured")
	}
	seen := map[string]bool{}
	for _, cat := range c.Categories {
		if cat.Name == "" || cat.URL == "" {
			return fmt.Errorf("category %q: name and url are required", cat.Name)
		}
		if seen[cat.Name] {
			return fmt.Errorf("duplicate category name %q", cat.Name)
		}
		seen[cat.Name] = true
		if !knownRetailers[cat.Retailer] {
			return fmt.Errorf("category %q: unknown retailer %q", cat.Name, cat.Retailer)
		}
		if cat.MaxPages < 1 {
			return fmt.Errorf("category %q: max_pages must be at least 1", cat.Name)
		}
	}
	if c.MaxFetchDelay < c.MinFetchDelay {
		return fmt.Errorf("MAX_FETCH_DELAY_SECONDS must be >= MIN_FETCH_DELAY_SECONDS")
	}
	return nil
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}
