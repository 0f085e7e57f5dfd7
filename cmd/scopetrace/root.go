package main

import (
	"os"

	"github.com/rs/xid"
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use: "scopetrace",
	Short: "Scopetrace CLI tool works with Chrome trace documents produced " +
		"from scoped timers and stack samples.",
	Long: `Scopetrace CLI tool works with Chrome trace documents. It can ` +
		`synthesize a trace from recorded call-stack samples and run a demo ` +
		`session with nested scoped timers. Open the output in ` +
		`chrome://tracing or a compatible viewer.`,
}

// Execute adds all child commands to the root command and sets flags
// appropriately.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		atexit.Exit(1)
	}
}

// defaultOutputPath picks the trace output path when --out is not given:
// SCOPETRACE_OUT if set, otherwise a generated name.
func defaultOutputPath() string {
	if path := os.Getenv("SCOPETRACE_OUT"); path != "" {
		return path
	}

	return "scopetrace_" + xid.New().String() + ".json"
}
