package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"driveprices/config"
	"driveprices/internal/crawler"
	"driveprices/internal/listing"
	"driveprices/internal/report"
	"driveprices/services/cache"
	"driveprices/services/pagecache"
	"driveprices/services/worker"
)

// Listing page in the Newegg grid layout, served by the test server.
const testListingHTML = `<!DOCTYPE html>
<html>
<head><title>Test Listings</title></head>
<body>
    <div class="list-tool-bar">Page <strong>1/1</strong></div>

    <div class="item-container">
        <a class="item-title" href="/p/N82E16822184794?Item=N82E16822184794">Seagate IronWolf 4TB NAS Hard Drive SATA 6Gb/s</a>
        <ul class="price"><li class="price-current"><strong>79</strong><sup>.99</sup></li></ul>
    </div>

    <div class="item-container">
        <a class="item-title" href="/p/N82E16822234567?Item=N82E16822234567">WD Red Plus 8TB NAS Hard Drive</a>
        <ul class="price"><li class="price-current"><strong>149</strong><sup>.99</sup></li></ul>
    </div>

    <div class="item-container">
        <a class="item-title" href="/p/N82E16822345678?Item=N82E16822345678">Toshiba N300 6TB NAS Hard Drive</a>
        <p class="item-promo">OUT OF STOCK</p>
        <ul class="price"><li class="price-current"></li></ul>
    </div>
</body>
</html>`

// MockCacheService implements a simple in-memory cache for testing
type MockCacheService struct {
	mu    sync.Mutex
	cache map[string][]byte
}

var _ cache.CacheService = (*MockCacheService)(nil)

func (m *MockCacheService) Get(key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if val, ok := m.cache[key]; ok {
		return val, nil
	}
	return nil, errors.New("cache miss")
}

func (m *MockCacheService) Set(key string, value []byte, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cache[key] = value
	return nil
}

func (m *MockCacheService) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.cache, key)
	return nil
}

// MockPublisher captures published payloads in memory.
type MockPublisher struct {
	mu        sync.Mutex
	published map[string][]byte
}

func (m *MockPublisher) Publish(key string, message []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.published == nil {
		m.published = make(map[string][]byte)
	}
	m.published[key] = message
	return nil
}

func (m *MockPublisher) TrimStreams() error { return nil }
func (m *MockPublisher) Close() error       { return nil }

// TestIntegration runs the whole pipeline against a local test
// server: fetch, snapshot, extract, rank, report, publish.
func TestIntegration(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		io.WriteString(w, testListingHTML)
	}))
	defer server.Close()

	dataDir := t.TempDir()
	outputDir := t.TempDir()

	pages, err := pagecache.NewStore(dataDir)
	require.NoError(t, err)

	cfg := &config.Config{
		Categories: []config.Category{
			{
				Name:     "internal_35",
				Label:    `3.5" internal drives`,
				Retailer: "Newegg",
				URL:      server.URL + "/list",
				MaxPages: 1,
			},
		},
	}
	env := crawler.Env{
		Cache:        &MockCacheService{cache: make(map[string][]byte)},
		Pages:        pages,
		SnapshotDate: "2026-08-30",
	}

	crawlers, err := crawler.CreateCrawlers(cfg, env)
	require.NoError(t, err)
	require.Len(t, crawlers, 1)

	pub := &MockPublisher{}
	w := worker.NewWorker(context.Background(), crawlers, pub, report.NewBuilder(outputDir), time.Hour)
	require.NoError(t, w.RunOnce())

	// The fetched page was snapshotted for later rebuilds.
	assert.True(t, pages.Exists("2026-08-30", "internal_35", 1))

	// The report ranks the 8TB drive first; the sold out drive is absent.
	content, err := os.ReadFile(filepath.Join(outputDir, "index.html"))
	require.NoError(t, err)
	html := string(content)
	assert.Contains(t, html, "WD Red Plus 8TB NAS Hard Drive")
	assert.Contains(t, html, "Seagate IronWolf 4TB NAS Hard Drive SATA 6Gb/s")
	assert.NotContains(t, html, "Toshiba N300 6TB")

	// The published payload carries the same ranked set.
	var payload struct {
		Listings []listing.NormalizedListing `json:"listings"`
	}
	require.NoError(t, json.Unmarshal(pub.published["listings"], &payload))
	require.Len(t, payload.Listings, 2)

	assert.Equal(t, "N82E16822234567", payload.Listings[0].ItemID)
	assert.InDelta(t, 18.74875, payload.Listings[0].PricePerTB, 0.0001)
	assert.Equal(t, "N82E16822184794", payload.Listings[1].ItemID)
	assert.InDelta(t, 19.9975, payload.Listings[1].PricePerTB, 0.0001)

	// A cached-only rerun produces the same listings without the
	// server.
	server.Close()
	env.CachedOnly = true
	cachedCrawlers, err := crawler.CreateCrawlers(cfg, env)
	require.NoError(t, err)
	cached, err := cachedCrawlers[0].FetchListings()
	require.NoError(t, err)
	assert.Len(t, cached, 2)
}
