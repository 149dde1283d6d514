package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/yacobolo/cssloader"
)

var injectCmd = &cobra.Command{
	Use:   "inject [file]",
	Short: "Inject stylesheet tags into an HTML document",
	Long: `Read an HTML document from file (or stdin), insert the tags for the
detected audience before </head>, and write the result to stdout.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		cfg, err := buildConfig()
		if err != nil {
			return err
		}
		detector, err := buildDetector(cfg)
		if err != nil {
			return err
		}

		in := io.Reader(os.Stdin)
		if len(args) == 1 && args[0] != "-" {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("opening %s: %w", args[0], err)
			}
			defer func() { _ = f.Close() }()
			in = f
		}

		return runInject(in, os.Stdout, cfg, detector)
	},
}

func init() {
	addDetectorFlags(injectCmd)
}

// runInject copies r to w with the audience's stylesheets injected.
func runInject(r io.Reader, w io.Writer, cfg cssloader.Config, detector cssloader.ContextDetector) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("reading document: %w", err)
	}

	orch := cssloader.New(cfg, detector, logger)
	orch.Prepare()

	_, err = io.WriteString(w, orch.InjectIntoBuffer(string(data)))
	return err
}
