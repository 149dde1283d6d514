package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/yacobolo/cssloader"
	"github.com/yacobolo/cssloader/internal/report"
	"go.uber.org/zap"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the CSS directory and reprint the listing on changes",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := buildConfig()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return runWatch(ctx, os.Stdout, cfg)
	},
}

// runWatch prints the listing and reprints it after every change until
// ctx is done.
func runWatch(ctx context.Context, w io.Writer, cfg cssloader.Config) error {
	if err := cssloader.EnsureDirectory(cfg.BaseDirectory, logger); err != nil {
		return err
	}

	inner := cssloader.NewFilesystemDiscovery(cfg.BaseDirectory, cfg.Audiences, logger).
		WithIgnoreFile(cfg.IgnoreFile)
	watched, err := cssloader.NewWatchedDiscovery(inner, cfg.BaseDirectory, logger)
	if err != nil {
		return err
	}
	defer func() { _ = watched.Close() }()
	watched.Start(ctx)

	r := report.NewReporter(w, report.Options{
		UseColors: getBoolWithFallback("color", "color", false),
		Verbose:   getBoolWithFallback("verbose", "verbose", false),
	})
	order := audienceOrder(inner.Audiences())

	printListing := func() {
		r.PrintReport(watched.Scan(), order)
		fmt.Fprintln(w, report.RenderStyle(report.StyleGray, "Watching for changes (Ctrl+C to stop)", r.UseColors()))
	}
	printListing()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-watched.Changes():
			logger.Debug("rescanning", zap.String("dir", cfg.BaseDirectory))
			fmt.Fprintln(w, "")
			printListing()
		}
	}
}
