package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/yacobolo/cssloader"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run upgrade steps and optionally seed demo stylesheets",
	Long: `Create the CSS directory and record the installed version when the
state file holds an older (or no) version. With --demo, the bundled example
stylesheets are copied into an empty CSS directory.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := buildConfig()
		if err != nil {
			return err
		}
		demo, _ := cmd.Flags().GetBool("demo")
		current := getStringWithFallback("to-version", "to-version", version)
		return runMigrate(os.Stdout, cfg, stateStore(), current, demo)
	},
}

func init() {
	migrateCmd.Flags().Bool("demo", false, "Copy demo stylesheets into an empty CSS directory")
	migrateCmd.Flags().String("to-version", "", "Version to record (default: the binary's version)")
}

func runMigrate(w io.Writer, cfg cssloader.Config, store *cssloader.StateStore, current string, demo bool) error {
	upgraded, err := cssloader.Migrate(store, cfg.BaseDirectory, current, logger)
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	if upgraded {
		fmt.Fprintf(w, "Migrated to %s\n", current)
	} else {
		fmt.Fprintln(w, "Already up to date")
	}

	if !demo {
		return nil
	}

	if err := cssloader.EnsureDirectory(cfg.BaseDirectory, logger); err != nil {
		return err
	}
	copied, err := cssloader.CopyDemoFiles(cfg.BaseDirectory, logger)
	if err != nil {
		return err
	}
	for _, name := range copied {
		fmt.Fprintf(w, "Copied %s\n", name)
	}
	return nil
}
