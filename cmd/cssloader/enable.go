package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/yacobolo/cssloader"
)

var enableCmd = &cobra.Command{
	Use:   "enable",
	Short: "Turn stylesheet injection on",
	RunE: func(_ *cobra.Command, _ []string) error {
		return runSetEnabled(os.Stdout, stateStore(), true)
	},
}

var disableCmd = &cobra.Command{
	Use:   "disable",
	Short: "Turn stylesheet injection off without removing any files",
	RunE: func(_ *cobra.Command, _ []string) error {
		return runSetEnabled(os.Stdout, stateStore(), false)
	},
}

// runSetEnabled persists the enabled flag in the state file.
func runSetEnabled(w io.Writer, store *cssloader.StateStore, enabled bool) error {
	st, err := store.Load()
	if err != nil {
		return err
	}
	st.SetEnabled(enabled)
	if err := store.Save(st); err != nil {
		return err
	}

	state := "disabled"
	if enabled {
		state = "enabled"
	}
	fmt.Fprintf(w, "Stylesheet injection %s (%s)\n", state, store.Path())
	return nil
}
