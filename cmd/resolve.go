package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/xhad/filingmap/pkg/resolver"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve <cik>...",
	Short: "Print the latest non-amended filing document URL for each CIK",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runResolve,
}

func parseCIKs(args []string) ([]int64, error) {
	ciks := make([]int64, len(args))
	for i, arg := range args {
		cik, err := strconv.ParseInt(strings.TrimLeft(arg, "0"), 10, 64)
		if err != nil || cik <= 0 {
			return nil, fmt.Errorf("invalid CIK %q", arg)
		}
		ciks[i] = cik
	}
	return ciks, nil
}

func runResolve(cmd *cobra.Command, args []string) error {
	ciks, err := parseCIKs(args)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := validate(cfg); err != nil {
		return err
	}

	ctx := context.Background()
	s, cleanup, err := newScraper(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	r := resolver.NewWithConfig(s, resolverConfig(cfg, nil))
	links, err := r.ResolveAll(ctx, ciks)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, link := range links {
		if link.URL == nil {
			fmt.Fprintf(out, "%d\t%s\n", link.ID, color.YellowString("no %s found", cfg.Edgar.FormType))
			continue
		}
		fmt.Fprintf(out, "%d\t%s\n", link.ID, *link.URL)
	}
	return nil
}
