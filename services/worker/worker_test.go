package worker

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"driveprices/internal/crawler"
	"driveprices/internal/listing"
	"driveprices/internal/report"
)

type mockCrawler struct {
	name     string
	retailer listing.Retailer
	listings []listing.NormalizedListing
	err      error
}

func (m *mockCrawler) FetchListings() ([]listing.NormalizedListing, error) {
	return m.listings, m.err
}
func (m *mockCrawler) GetName() string               { return m.name }
func (m *mockCrawler) GetRetailer() listing.Retailer { return m.retailer }
func (m *mockCrawler) GetLabel() string              { return m.name }

type mockPublisher struct {
	published map[string][]byte
	trimmed   bool
}

func newMockPublisher() *mockPublisher {
	return &mockPublisher{published: make(map[string][]byte)}
}

func (m *mockPublisher) Publish(key string, message []byte) error {
	m.published[key] = message
	return nil
}
func (m *mockPublisher) TrimStreams() error { m.trimmed = true; return nil }
func (m *mockPublisher) Close() error       { return nil }

func mustNormalize(t *testing.T, raw listing.RawListing) listing.NormalizedListing {
	t.Helper()
	l, ok := listing.Normalize(raw)
	require.True(t, ok, "fixture listing must normalize")
	return l
}

func TestRunOnce(t *testing.T) {
	newegg := mustNormalize(t, listing.RawListing{
		ItemID: "N1", Title: "Seagate 4TB Hard Drive", RawPriceText: "$79.99",
		URL: "https://www.newegg.com/p/N1", Retailer: listing.RetailerNewegg,
	})
	neweggDup := mustNormalize(t, listing.RawListing{
		ItemID: "N1", Title: "Seagate 4TB Hard Drive", RawPriceText: "$84.99",
		URL: "https://www.newegg.com/p/N1", Retailer: listing.RetailerNewegg,
	})
	spd := mustNormalize(t, listing.RawListing{
		ItemID: "st12", Title: "Seagate 12TB Recertified", RawPriceText: "$89.99",
		URL: "https://serverpartdeals.com/products/st12", Retailer: listing.RetailerServerPartDeals,
	})

	crawlers := []crawler.Crawler{
		&mockCrawler{name: "Newegg/internal_35", retailer: listing.RetailerNewegg,
			listings: []listing.NormalizedListing{newegg, neweggDup}},
		&mockCrawler{name: "ServerPartDeals/spd", retailer: listing.RetailerServerPartDeals,
			listings: []listing.NormalizedListing{spd}},
		&mockCrawler{name: "Amazon/internal", retailer: listing.RetailerAmazon,
			err: errors.New("rate limited")},
	}

	dir := t.TempDir()
	pub := newMockPublisher()
	w := NewWorker(context.Background(), crawlers, pub, report.NewBuilder(dir), time.Hour)

	require.NoError(t, w.RunOnce())

	// Report written despite one crawler failing.
	content, err := os.ReadFile(filepath.Join(dir, "index.html"))
	require.NoError(t, err)
	assert.Contains(t, string(content), "Seagate 12TB Recertified")
	assert.Contains(t, string(content), "rate limited")

	// Published payload carries the deduped, ranked listing set.
	require.Contains(t, pub.published, "listings")
	var payload struct {
		DuplicatesRemoved int                         `json:"duplicates_removed"`
		Listings          []listing.NormalizedListing `json:"listings"`
	}
	require.NoError(t, json.Unmarshal(pub.published["listings"], &payload))
	assert.Equal(t, 1, payload.DuplicatesRemoved)
	require.Len(t, payload.Listings, 2)
	// Cheapest per TB first; the first-seen price survives the dupe.
	assert.Equal(t, "st12", payload.Listings[0].ItemID)
	assert.Equal(t, "N1", payload.Listings[1].ItemID)
	assert.Equal(t, 79.99, payload.Listings[1].Price)
	assert.True(t, pub.trimmed)
}

func TestRunOnceAllCrawlersFailed(t *testing.T) {
	crawlers := []crawler.Crawler{
		&mockCrawler{name: "Newegg/a", retailer: listing.RetailerNewegg, err: errors.New("boom")},
		&mockCrawler{name: "Amazon/b", retailer: listing.RetailerAmazon, err: errors.New("boom")},
	}

	w := NewWorker(context.Background(), crawlers, nil, report.NewBuilder(t.TempDir()), time.Hour)
	assert.Error(t, w.RunOnce())
}

func TestStartStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	w := NewWorker(ctx, nil, nil, nil, 10*time.Millisecond)

	done := make(chan error, 1)
	go func() { done <- w.Start() }()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("worker did not stop after context cancellation")
	}
}
