package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/yacobolo/cssloader"
	"github.com/yacobolo/cssloader/internal/report"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List discovered stylesheets by audience",
	Long: `Scan the CSS directory and show which stylesheets each audience receives.
With --verbose, entries that were skipped are listed with the reason.`,
	RunE: func(_ *cobra.Command, _ []string) error {
		cfg, err := buildConfig()
		if err != nil {
			return err
		}
		if getBoolWithFallback("quiet", "quiet", false) {
			return nil
		}
		return runList(os.Stdout, cfg, getStringWithFallback("output-format", "list.output-format", ""))
	},
}

func init() {
	listCmd.Flags().String("output-format", "", "Output format: text|json")
}

// runList scans cfg's directory and writes the report to w.
func runList(w io.Writer, cfg cssloader.Config, format string) error {
	discovery := cssloader.NewFilesystemDiscovery(cfg.BaseDirectory, cfg.Audiences, logger).
		WithIgnoreFile(cfg.IgnoreFile)
	rep := discovery.Scan()
	order := audienceOrder(discovery.Audiences())

	switch report.DetermineOutputFormat(format) {
	case report.OutputJSON:
		renderer := cssloader.NewHTMLRenderer(cfg.BaseURL, logger)
		if err := report.WriteJSON(w, rep, order, renderer, version); err != nil {
			return fmt.Errorf("writing JSON: %w", err)
		}
	default:
		r := report.NewReporter(w, report.Options{
			UseColors: getBoolWithFallback("color", "color", false),
			Verbose:   getBoolWithFallback("verbose", "verbose", false),
		})
		r.PrintReport(rep, order)
		if !cfg.Enabled {
			fmt.Fprintln(w, report.RenderStyle(report.StyleYellow, "Injection is disabled", r.UseColors()))
		}
	}
	return nil
}
