package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/xhad/filingmap/internal/types"
	"github.com/xhad/filingmap/pkg/pipeline"
	"github.com/xhad/filingmap/pkg/processor"
	"github.com/xhad/filingmap/pkg/resolver"
	"github.com/xhad/filingmap/pkg/store"
)

var buildOpts struct {
	output           string
	workers          int
	normalizeTickers bool
	dbURL            string
}

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Fetch all sources, resolve filings and write the CSV",
	Args:  cobra.NoArgs,
	RunE:  runBuild,
}

func init() {
	buildCmd.Flags().StringVarP(&buildOpts.output, "output", "o", "", "Output CSV path")
	buildCmd.Flags().IntVarP(&buildOpts.workers, "workers", "w", 0, "Concurrent CIK lookups (1 = sequential)")
	buildCmd.Flags().BoolVar(&buildOpts.normalizeTickers, "normalize-tickers", false, "Match BRK.B style tickers to BRK-B")
	buildCmd.Flags().StringVar(&buildOpts.dbURL, "db-url", "", "PostgreSQL connection string for mirroring the output")
}

func runBuild(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// Override config with command line flags if provided
	flags := cmd.Flags()
	if flags.Changed("output") {
		cfg.Output.Path = buildOpts.output
	}
	if flags.Changed("workers") {
		cfg.Resolver.Workers = buildOpts.workers
	}
	if flags.Changed("normalize-tickers") {
		cfg.Join.NormalizeTickers = buildOpts.normalizeTickers
	}
	if flags.Changed("db-url") {
		cfg.Database.URL = buildOpts.dbURL
	}
	if err := validate(cfg); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	s, cleanup, err := newScraper(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	var linkStore types.RecordStore
	if cfg.Database.URL != "" {
		ls, err := store.NewWithConfig(ctx, store.StoreConfig{
			ConnString: cfg.Database.URL,
			TableName:  cfg.Database.TableName,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize link store: %w", err)
		}
		defer ls.Close()
		linkStore = ls
	}

	var bar *progressbar.ProgressBar
	r := resolver.NewWithConfig(s, resolverConfig(cfg, func(int64) {
		if bar != nil {
			bar.Add(1)
		}
	}))

	color.Blue("\nBuilding %s filing links (workers: %d)\n", cfg.Edgar.FormType, cfg.Resolver.Workers)
	spinner := getSpinner(" Fetching identifiers...")

	p := pipeline.New(s, r, linkStore, pipeline.PipelineConfig{
		TickersURL:    cfg.Sources.TickersURL,
		MembershipURL: cfg.Sources.MembershipURL,
		OutputPath:    cfg.Output.Path,
		Processor: processor.ProcessorConfig{
			NormalizeTickers: cfg.Join.NormalizeTickers,
		},
		OnStage: func(stage pipeline.Stage, rows int) {
			switch stage {
			case pipeline.StageIdentifiers:
				spinner.Describe(color.CyanString(" Fetching index members..."))
			case pipeline.StageMembership:
				spinner.Finish()
			case pipeline.StageJoin:
				color.Green("\n✓ Joined %d companies\n", rows)
				bar = getProgressBar(rows, " Resolving filings")
			case pipeline.StageResolve:
				bar.Finish()
			}
		},
	})

	summary, err := p.Run(ctx)
	if err != nil {
		spinner.Finish()
		return err
	}

	color.Green("\n✓ Resolved %d of %d companies (%d without a qualifying filing)\n",
		summary.Resolved, summary.Joined, summary.Missing)
	color.Green("✓ Wrote %s\n", summary.OutputPath)
	return nil
}
