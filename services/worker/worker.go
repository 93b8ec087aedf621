package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"driveprices/internal/crawler"
	"driveprices/internal/listing"
	"driveprices/internal/report"
	"driveprices/logger"
	"driveprices/services/publisher"
)

// Worker runs the crawl pipeline: every crawler in parallel, one
// merge, one dedupe and rank pass, then the report and the stream
// publish. A crawler failing affects only its own listings.
type Worker struct {
	ctx       context.Context
	crawlers  []crawler.Crawler
	publisher publisher.Publisher
	report    *report.Builder
	interval  time.Duration
	log       *logger.Logger
}

// NewWorker creates a worker. The publisher and report builder are
// optional; a nil value disables that output.
func NewWorker(ctx context.Context, crawlers []crawler.Crawler, pub publisher.Publisher, reportBuilder *report.Builder, interval time.Duration) *Worker {
	return &Worker{
		ctx:       ctx,
		crawlers:  crawlers,
		publisher: pub,
		report:    reportBuilder,
		interval:  interval,
		log:       logger.ForWorker(),
	}
}

type crawlResult struct {
	status   report.ScraperStatus
	listings []listing.NormalizedListing
}

// streamPayload is the message appended to the Redis stream after
// each cycle.
type streamPayload struct {
	GeneratedAt       time.Time                   `json:"generated_at"`
	DuplicatesRemoved int                         `json:"duplicates_removed"`
	Listings          []listing.NormalizedListing `json:"listings"`
}

// RunOnce executes one full crawl cycle. It errors only when every
// crawler failed; partial failures are carried in the report's
// status section.
func (w *Worker) RunOnce() error {
	start := time.Now()
	w.log.Info().Int("crawlers", len(w.crawlers)).Msg("Starting crawl cycle")

	results := make([]crawlResult, len(w.crawlers))
	var wg sync.WaitGroup
	for i, c := range w.crawlers {
		wg.Add(1)
		go func(i int, c crawler.Crawler) {
			defer wg.Done()
			results[i] = w.runCrawler(c)
		}(i, c)
	}
	wg.Wait()

	var merged []listing.NormalizedListing
	statuses := make([]report.ScraperStatus, 0, len(results))
	failed := 0
	for _, r := range results {
		statuses = append(statuses, r.status)
		merged = append(merged, r.listings...)
		if !r.status.OK() {
			failed++
		}
	}

	ranked, duplicates := listing.DedupeAndRank(merged)

	if w.report != nil {
		if _, err := w.report.Build(ranked, statuses, duplicates, time.Now()); err != nil {
			w.log.WithError(err).Error().Msg("Failed to build report")
		}
	}

	if w.publisher != nil {
		if err := w.publish(ranked, duplicates); err != nil {
			w.log.WithError(err).Error().Msg("Failed to publish listings")
		}
	}

	w.log.Info().
		Int("listings", len(ranked)).
		Int("duplicates", duplicates).
		Int("failed_crawlers", failed).
		Dur("elapsed", time.Since(start)).
		Msg("Crawl cycle finished")

	if len(w.crawlers) > 0 && failed == len(w.crawlers) {
		return fmt.Errorf("all %d crawlers failed", failed)
	}
	return nil
}

func (w *Worker) runCrawler(c crawler.Crawler) crawlResult {
	listings, err := c.FetchListings()
	status := report.ScraperStatus{
		Name:     c.GetName(),
		Label:    c.GetLabel(),
		Retailer: string(c.GetRetailer()),
		Items:    len(listings),
	}
	if err != nil {
		status.Err = err.Error()
		w.log.WithError(err).Error().Str("crawler", c.GetName()).Msg("Crawler failed")
	} else {
		w.log.Info().Str("crawler", c.GetName()).Int("listings", len(listings)).Msg("Crawler finished")
	}
	return crawlResult{status: status, listings: listings}
}

func (w *Worker) publish(ranked []listing.NormalizedListing, duplicates int) error {
	payload, err := json.Marshal(streamPayload{
		GeneratedAt:       time.Now(),
		DuplicatesRemoved: duplicates,
		Listings:          ranked,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal listings: %w", err)
	}
	if err := w.publisher.Publish("listings", payload); err != nil {
		return err
	}
	return w.publisher.TrimStreams()
}

// Start runs a cycle immediately, then on every interval tick until
// the context is cancelled.
func (w *Worker) Start() error {
	if err := w.RunOnce(); err != nil {
		w.log.WithError(err).Error().Msg("Crawl cycle failed")
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			w.log.Info().Msg("Worker stopping")
			return w.ctx.Err()
		case <-ticker.C:
			if err := w.RunOnce(); err != nil {
				w.log.WithError(err).Error().Msg("Crawl cycle failed")
			}
		}
	}
}
