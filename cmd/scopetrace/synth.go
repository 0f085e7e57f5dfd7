package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/tracelab/scopetrace/chrometrace"
	"github.com/tracelab/scopetrace/sampling"
	"github.com/tracelab/scopetrace/samplestore"
)

var synthCmd = &cobra.Command{
	Use:   "synth",
	Short: "Synthesize a Chrome trace document from recorded stack samples.",
	Long: "`synth --in samples.collapsed --out trace.json` reconstructs " +
		"nested spans from an ordered sequence of call-stack samples and " +
		"writes them as Chrome duration events. Samples can also come from " +
		"a sample database recorded earlier (`--from-db`).",
	RunE: runSynth,
}

func init() {
	rootCmd.AddCommand(synthCmd)
	synthCmd.Flags().String("in", "",
		"Collapsed sample file to read (frame;frame <timestamp> per line)")
	synthCmd.Flags().String("from-db", "",
		"Sample database to read instead of a collapsed file")
	synthCmd.Flags().String("out", "",
		"Output trace file (default $SCOPETRACE_OUT or a generated name)")
	synthCmd.Flags().Bool("close-open", false,
		"Close frames still open at the last sample's timestamp")
}

func runSynth(cmd *cobra.Command, _ []string) error {
	in, _ := cmd.Flags().GetString("in")
	fromDB, _ := cmd.Flags().GetString("from-db")
	out, _ := cmd.Flags().GetString("out")
	closeOpen, _ := cmd.Flags().GetBool("close-open")

	if (in == "") == (fromDB == "") {
		return errors.New("exactly one of --in and --from-db must be given")
	}

	if out == "" {
		out = defaultOutputPath()
	}

	sampleCh := make(chan sampling.Sample, 64)

	var g errgroup.Group
	g.Go(func() error {
		defer close(sampleCh)

		if in != "" {
			return produceFromFile(in, sampleCh)
		}

		return produceFromDB(fromDB, sampleCh)
	})

	var samples []sampling.Sample
	g.Go(func() error {
		for sample := range sampleCh {
			samples = append(samples, sample)
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}

	count, err := writeTrace(out, samples, closeOpen)
	if err != nil {
		return err
	}

	fmt.Printf("Wrote %d events from %d samples to %s\n",
		count, len(samples), out)

	return nil
}

func produceFromFile(path string, out chan<- sampling.Sample) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening sample file: %w", err)
	}
	defer f.Close()

	samples, err := sampling.Decode(bufio.NewReader(f))
	if err != nil {
		return err
	}

	for _, sample := range samples {
		out <- sample
	}

	return nil
}

func produceFromDB(path string, out chan<- sampling.Sample) error {
	store, err := samplestore.Open(path)
	if err != nil {
		return err
	}
	defer store.Close()

	samples, err := store.Load()
	if err != nil {
		return err
	}

	for _, sample := range samples {
		out <- sample
	}

	return nil
}

func writeTrace(
	path string,
	samples []sampling.Sample,
	closeOpen bool,
) (int, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("creating trace file: %w", err)
	}
	defer f.Close()

	w := chrometrace.NewWriter(bufio.NewWriter(f))
	if err := w.WriteHeader(); err != nil {
		return 0, err
	}

	stream := sampling.NewEventStream(samples)
	for stream.Scan() {
		if err := writeSpanEvent(w, stream.Event()); err != nil {
			return 0, err
		}
	}

	if err := stream.Err(); err != nil {
		return 0, err
	}

	if closeOpen && len(samples) > 0 {
		lastTS := samples[len(samples)-1].TimestampS
		for _, e := range stream.CloseAll(lastTS) {
			if err := writeSpanEvent(w, e); err != nil {
				return 0, err
			}
		}
	}

	if err := w.WriteFooter(); err != nil {
		return 0, err
	}

	return w.EventCount(), nil
}

// writeSpanEvent emits one span edge. Sample timestamps are in seconds; the
// trace format expects microseconds.
func writeSpanEvent(w *chrometrace.Writer, e sampling.SpanEvent) error {
	tsUS := e.TimestampS * 1e6

	if e.Kind == sampling.SpanEnd {
		return w.WriteEnd(e.Frame, tsUS, 0)
	}

	return w.WriteBegin(e.Frame, tsUS, 0)
}
