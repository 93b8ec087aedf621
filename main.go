package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"driveprices/config"
	"driveprices/internal/crawler"
	"driveprices/internal/report"
	"driveprices/logger"
	"driveprices/services/cache"
	"driveprices/services/pagecache"
	"driveprices/services/publisher"
	"driveprices/services/worker"
)

func main() {
	// .env is optional; environment variables win either way.
	_ = godotenv.Load()
	logger.Init()

	root := &cobra.Command{
		Use:           "driveprices",
		Short:         "Crawls drive listings and ranks them by price per terabyte",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	var buildDate string

	fetchCmd := &cobra.Command{
		Use:   "fetch",
		Short: "Crawl every category once and write the report",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCycle(cmd.Context(), false, "")
		},
	}

	buildCmd := &cobra.Command{
		Use:   "build",
		Short: "Rebuild the report from page snapshots without fetching",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCycle(cmd.Context(), true, buildDate)
		},
	}
	buildCmd.Flags().StringVar(&buildDate, "date", "", "snapshot date (YYYY-MM-DD), defaults to the latest crawl")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run the crawl loop on the configured interval",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLoop(cmd.Context())
		},
	}

	root.AddCommand(fetchCmd, buildCmd, runCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := root.ExecuteContext(ctx); err != nil {
		logger.Error("driveprices failed: %v", err)
		os.Exit(1)
	}
}

func loadConfig() (config.Config, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// runCycle executes one crawl (or snapshot rebuild) and exits.
func runCycle(ctx context.Context, cachedOnly bool, snapshotDate string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	pages, err := pagecache.NewStore(cfg.DataDir)
	if err != nil {
		return err
	}
	if cachedOnly && snapshotDate == "" {
		snapshotDate, err = pages.LatestDate()
		if err != nil {
			return fmt.Errorf("no snapshots to rebuild from: %w", err)
		}
		logger.Info("Rebuilding report from snapshots of %s", snapshotDate)
	}

	env := crawler.Env{
		Pages:        pages,
		SnapshotDate: snapshotDate,
		CachedOnly:   cachedOnly,
		MinDelay:     cfg.MinFetchDelay,
		MaxDelay:     cfg.MaxFetchDelay,
	}

	var pub publisher.Publisher
	if !cachedOnly {
		env.Cache = cache.NewMemcacheService(cfg.MemcacheAddr)
		redisPub := publisher.NewRedisPublisher(ctx, cfg.RedisAddr, cfg.RedisDB, cfg.RedisStream, cfg.RedisStreamMaxLength)
		defer redisPub.Close()
		pub = redisPub
	}

	crawlers, err := crawler.CreateCrawlers(&cfg, env)
	if err != nil {
		return err
	}

	w := worker.NewWorker(ctx, crawlers, pub, report.NewBuilder(cfg.OutputDir), cfg.CrawlInterval)
	return w.RunOnce()
}

// runLoop crawls on the configured interval until interrupted.
func runLoop(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	pages, err := pagecache.NewStore(cfg.DataDir)
	if err != nil {
		return err
	}

	env := crawler.Env{
		Cache:    cache.NewMemcacheService(cfg.MemcacheAddr),
		Pages:    pages,
		MinDelay: cfg.MinFetchDelay,
		MaxDelay: cfg.MaxFetchDelay,
	}

	crawlers, err := crawler.CreateCrawlers(&cfg, env)
	if err != nil {
		return err
	}

	pub := publisher.NewRedisPublisher(ctx, cfg.RedisAddr, cfg.RedisDB, cfg.RedisStream, cfg.RedisStreamMaxLength)
	defer pub.Close()

	logger.Info("Starting crawl loop, interval %s, %d categories", cfg.CrawlInterval, len(cfg.Categories))
	w := worker.NewWorker(ctx, crawlers, pub, report.NewBuilder(cfg.OutputDir), cfg.CrawlInterval)

	if err := w.Start(); err != nil && err != context.Canceled {
		return err
	}
	return nil
}
