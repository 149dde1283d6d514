// Package main provides the cssloader CLI for inspecting and testing the
// stylesheet injection pipeline outside of a host application.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
