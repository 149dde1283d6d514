package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/yacobolo/cssloader"
	"github.com/yacobolo/cssloader/internal/report"
)

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Print the <link> tags a request would receive",
	Long: `Run detection, discovery and rendering and print the resulting tags.
The audience comes from --audience, or is detected from --path.`,
	RunE: func(_ *cobra.Command, _ []string) error {
		cfg, err := buildConfig()
		if err != nil {
			return err
		}
		detector, err := buildDetector(cfg)
		if err != nil {
			return err
		}
		return runRender(os.Stdout, cfg, detector)
	},
}

func init() {
	addDetectorFlags(renderCmd)
}

// addDetectorFlags registers the flags read by buildDetector.
func addDetectorFlags(cmd *cobra.Command) {
	cmd.Flags().String("audience", "", "Audience to render for (e.g. staff, client)")
	cmd.Flags().String("path", "", "Request path to detect the audience from (e.g. /scp/index.php)")
}

// buildDetector returns a FixedDetector for --audience, or a
// RuntimeDetector for --path. Exactly one of them must be set.
func buildDetector(cfg cssloader.Config) (cssloader.ContextDetector, error) {
	audience := k.String("audience")
	path := k.String("path")

	switch {
	case audience != "" && path != "":
		return nil, fmt.Errorf("--audience and --path are mutually exclusive")
	case audience != "":
		for _, p := range cfg.Audiences {
			if string(p.Audience) == audience {
				return cssloader.FixedDetector{Audience: p.Audience}, nil
			}
		}
		return nil, fmt.Errorf("unknown audience %q", audience)
	case path != "":
		return cssloader.RuntimeDetector{
			Path:              path,
			StaffPath:         cfg.StaffPath,
			APIPath:           cfg.APIPath,
			DynamicExtensions: cfg.DynamicExtensions,
		}, nil
	default:
		return nil, fmt.Errorf("one of --audience or --path is required")
	}
}

// runRender prepares an orchestrator and prints its pending tags.
func runRender(w io.Writer, cfg cssloader.Config, detector cssloader.ContextDetector) error {
	orch := cssloader.New(cfg, detector, logger)
	orch.Prepare()

	report.NewReporter(w, report.Options{}).PrintTags(orch.PendingLinks())
	return nil
}
