package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tracelab/scopetrace"
	"github.com/tracelab/scopetrace/sampling"
	"github.com/tracelab/scopetrace/samplestore"
)

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Run an example session with nested scoped timers.",
	Long: "`demo` runs a few nested timed scopes inside one session and " +
		"writes the resulting trace document. With `--sample-db`, it also " +
		"records checkpoint stack samples into a sample database that " +
		"`synth --from-db` can consume.",
	RunE: runDemo,
}

var demoRecorder *sampling.StackRecorder

func init() {
	rootCmd.AddCommand(demoCmd)
	demoCmd.Flags().String("out", scopetrace.DefaultTracePath,
		"Output trace file")
	demoCmd.Flags().String("sample-db", "",
		"Also record checkpoint stack samples into this database")
}

func runDemo(cmd *cobra.Command, _ []string) error {
	out, _ := cmd.Flags().GetString("out")
	sampleDB, _ := cmd.Flags().GetString("sample-db")

	if sampleDB != "" {
		demoRecorder = sampling.NewStackRecorder()
	}

	if err := scopetrace.BeginSession("Example Session", out); err != nil {
		return err
	}

	func() {
		defer scopetrace.Scope("main").Stop()

		demoFoo()
		demoBar()
		demoFoo()
	}()

	if err := scopetrace.EndSession(); err != nil {
		return err
	}

	fmt.Printf("Trace written to %s\n", out)

	if demoRecorder != nil {
		if err := storeDemoSamples(sampleDB); err != nil {
			return err
		}
	}

	return nil
}

func storeDemoSamples(path string) error {
	store, err := samplestore.Create(path)
	if err != nil {
		return err
	}

	for _, sample := range demoRecorder.Samples() {
		if err := store.Put(sample); err != nil {
			store.Close()
			return err
		}
	}

	return store.Close()
}

// busySink keeps the demo loops from being optimized away.
var busySink int

func demoFoo() {
	defer scopetrace.Func().Stop()

	if demoRecorder != nil {
		demoRecorder.Take()
	}

	for i := 0; i < 2_000_000; i++ {
		busySink += i
	}
}

func demoBar() {
	defer scopetrace.Func().Stop()

	demoFoo()

	func() {
		defer scopetrace.Scope("bar/inner").Stop()

		if demoRecorder != nil {
			demoRecorder.Take()
		}

		for i := 0; i < 1_000_000; i++ {
			busySink += i
		}
	}()
}
