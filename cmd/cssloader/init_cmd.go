package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate a default .cssloader.yaml config file",
	Long:  `Create a .cssloader.yaml configuration file in the current directory with sensible defaults.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		force, _ := cmd.Flags().GetBool("force")
		return writeDefaultConfig(".cssloader.yaml", force)
	},
}

func writeDefaultConfig(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}

	if err := os.WriteFile(path, []byte(defaultConfig), 0o644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	fmt.Println("Created", path)
	return nil
}

const defaultConfig = `# cssloader configuration

# Master switch. When unset, the state file decides (see enable/disable).
# enabled: true

# Directory scanned for *.css files (not recursive)
dir: assets/custom/css

# Public URL of that directory
base-url: /assets/custom/css

# gitignore-style file inside dir; matching stylesheets are skipped
ignore-file: .cssignore

state-file: .cssloader.state.yaml
verbose: false

# Filename patterns, first match wins
audiences:
  - name: staff
    pattern: "(?i)staff"
  - name: client
    pattern: "(?i)client"

# Request classification
detect:
  staff-path: /scp/
  api-path: /api/
  dynamic-extensions: ["", ".php", ".html", ".htm"]
`

func init() {
	initCmd.Flags().Bool("force", false, "Overwrite existing config file")
}
