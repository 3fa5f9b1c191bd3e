package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/xhad/filingmap/internal/types"
	"github.com/xhad/filingmap/pkg/cache"
	cfgPkg "github.com/xhad/filingmap/pkg/config"
	"github.com/xhad/filingmap/pkg/resolver"
	"github.com/xhad/filingmap/pkg/scraper"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "filingmap",
	Short: "Map S&P 500 companies to their latest 10-K filing",
	Long: "filingmap joins the SEC ticker file with the S&P 500 constituents table and " +
		"writes a CSV linking each company's CIK to the full-text URL of its most recent non-amended 10-K.",
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file")
	rootCmd.AddCommand(buildCmd, resolveCmd, inspectCmd)
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		color.Red("Error: %v", err)
		os.Exit(1)
	}
}

func loadConfig() (*cfgPkg.Config, error) {
	cfg, err := cfgPkg.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

func validate(cfg *cfgPkg.Config) error {
	errs := cfg.Validate()
	if len(errs) == 0 {
		return nil
	}
	msgs := make([]string, len(errs))
	for i, e := range errs {
		msgs[i] = e.Error()
	}
	return fmt.Errorf("invalid configuration:\n  %s", strings.Join(msgs, "\n  "))
}

// newScraper builds the request layer, with the Redis page cache when one is
// configured. The returned cleanup closes the cache connection.
func newScraper(ctx context.Context, cfg *cfgPkg.Config) (*scraper.Scraper, func(), error) {
	var pageCache types.PageCache
	cleanup := func() {}

	if cfg.Cache.RedisAddr != "" {
		rc, err := cache.Dial(ctx, cfg.Cache.RedisAddr, cfg.Cache.TTL)
		if err != nil {
			return nil, nil, err
		}
		log.Printf("Using page cache at %s", cfg.Cache.RedisAddr)
		pageCache = rc
		cleanup = func() { rc.Close() }
	}

	s, err := scraper.NewWithConfig(scraper.ScraperConfig{
		UserAgent: cfg.HTTP.UserAgent,
		Timeout:   cfg.HTTP.Timeout,
		RateLimit: cfg.HTTP.RateLimit,
		Burst:     cfg.HTTP.Burst,
		Cache:     pageCache,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("failed to initialize scraper: %w", err)
	}
	return s, cleanup, nil
}

func resolverConfig(cfg *cfgPkg.Config, onProgress func(int64)) resolver.ResolverConfig {
	return resolver.ResolverConfig{
		BaseURL:       cfg.Edgar.BaseURL,
		BrowseURL:     cfg.Edgar.BrowseURL,
		FormType:      cfg.Edgar.FormType,
		AmendmentType: cfg.Edgar.AmendmentType,
		Count:         cfg.Edgar.Count,
		Workers:       cfg.Resolver.Workers,
		OnProgress:    onProgress,
	}
}
