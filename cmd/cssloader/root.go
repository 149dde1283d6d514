package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// logger is replaced in PersistentPreRunE; the no-op default keeps the
// run* helpers usable from tests.
var logger = zap.NewNop()

var rootCmd = &cobra.Command{
	Use:   "cssloader",
	Short: "Audience-aware custom stylesheet loader",
	Long: `Discovers custom stylesheets in a directory, classifies them by audience
(staff panel or client portal) from their filenames, and injects cache-busted
<link> tags into the <head> of rendered pages.`,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		if err := loadConfig(cmd); err != nil {
			return err
		}
		l, err := newLogger(
			getBoolWithFallback("verbose", "verbose", false),
			getBoolWithFallback("quiet", "quiet", false),
		)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		logger = l
		return nil
	},
	PersistentPostRun: func(_ *cobra.Command, _ []string) {
		_ = logger.Sync()
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

// newLogger builds the CLI logger. Logs go to stderr so that command
// output on stdout stays pipeable.
func newLogger(verbose, quiet bool) (*zap.Logger, error) {
	config := zap.NewProductionConfig()
	config.Encoding = "console"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.DisableStacktrace = true
	switch {
	case quiet:
		config.Level = zap.NewAtomicLevelAt(zapcore.ErrorLevel)
	case verbose:
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	default:
		config.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	}
	return config.Build()
}

func init() {
	// Global persistent flags (inherited by all subcommands)
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().Bool("quiet", false, "Suppress all output (exit code only)")
	rootCmd.PersistentFlags().Bool("color", false, "Force color output")
	rootCmd.PersistentFlags().String("config", ".cssloader.yaml", "Config file path")
	rootCmd.PersistentFlags().String("dir", "", "CSS directory (default: assets/custom/css)")
	rootCmd.PersistentFlags().String("base-url", "", "Public URL of the CSS directory (default: /assets/custom/css)")
	rootCmd.PersistentFlags().String("state-file", "", "State file path (default: .cssloader.state.yaml)")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(renderCmd)
	rootCmd.AddCommand(injectCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(enableCmd)
	rootCmd.AddCommand(disableCmd)
	rootCmd.AddCommand(completionCmd)
	rootCmd.AddCommand(versionCmd)
}
