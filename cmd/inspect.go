package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/xhad/filingmap/pkg/writer"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <csv>",
	Short: "Summarize a CSV written by build",
	Args:  cobra.ExactArgs(1),
	RunE:  runInspect,
}

func runInspect(cmd *cobra.Command, args []string) error {
	records, err := writer.ReadCSV(args[0])
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", args[0], err)
	}

	var missing []string
	for _, r := range records {
		if !r.HasURL() {
			missing = append(missing, r.Ticker)
		}
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s %d rows, %d with a document URL\n",
		color.CyanString(args[0]+":"), len(records), len(records)-len(missing))
	if len(missing) > 0 {
		fmt.Fprintf(out, "%s %s\n", color.YellowString("missing:"), strings.Join(missing, ", "))
	}
	return nil
}
