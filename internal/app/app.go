// internal/app/app.go
package app

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"strings"

	"github.com/google/uuid"

	"kinscan/internal/cli"
	"kinscan/internal/fasta"
	"kinscan/internal/kinetics"
	"kinscan/internal/orchestrate"
	"kinscan/internal/output"
	"kinscan/internal/refwin"
	"kinscan/internal/supervise"
	"kinscan/internal/version"
	"kinscan/internal/writer"
)

// Record is the per-chunk payload flowing from workers to the writer.
type Record = []kinetics.Site

func RunContext(parent context.Context, argv []string, stdout, stderr io.Writer) int {
	outw := bufio.NewWriter(stdout)
	defer func() { _ = outw.Flush() }()

	fs := cli.NewFlagSet("kinscan")
	fs.SetOutput(io.Discard)

	if len(argv) == 0 {
		fs.SetOutput(outw)
		fs.Usage()
		if err := outw.Flush(); output.IsBrokenPipe(err) {
			return 0
		} else if err != nil {
			_, _ = fmt.Fprintln(stderr, err)
			return 3
		}
		return 0
	}

	opts, err := cli.ParseArgs(fs, argv)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			fs.SetOutput(outw)
			fs.Usage()
			if e := outw.Flush(); output.IsBrokenPipe(e) {
				return 0
			} else if e != nil {
				_, _ = fmt.Fprintln(stderr, e)
				return 3
			}
			return 0
		}
		_, _ = fmt.Fprintln(stderr, err)
		return 2
	}

	if opts.Version {
		_, _ = fmt.Fprintf(outw, "kinscan version %s\n", version.Version)
		if e := outw.Flush(); output.IsBrokenPipe(e) {
			return 0
		} else if e != nil {
			_, _ = fmt.Fprintln(stderr, e)
			return 3
		}
		return 0
	}

	level := slog.LevelInfo
	if opts.Quiet {
		level = slog.LevelError
	}
	log := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	runID := uuid.NewString()
	log.Info("kinscan starting", "version", version.Version, "run_id", runID, "reference", opts.Reference)

	contigs, err := fasta.LoadContigs(opts.Reference)
	if err != nil {
		_, _ = fmt.Fprintln(stderr, err)
		return 2
	}
	lengths := fasta.Lengths(contigs)

	var windows []refwin.Window
	switch {
	case opts.WindowsFile != "":
		windows, err = refwin.ParseFile(opts.WindowsFile, lengths, opts.SkipUnrecognized)
	case len(opts.Windows) > 0:
		windows, err = refwin.ParseList(strings.Join(opts.Windows, ","), lengths, opts.SkipUnrecognized)
	default:
		windows = refwin.FromContigs(contigs, opts.MaxLength)
	}
	if err != nil {
		_, _ = fmt.Fprintln(stderr, err)
		return 2
	}

	scanner, err := kinetics.NewScanner(kinetics.Config{
		PValue:      opts.PValue,
		MinCoverage: opts.MinCoverage,
		MaxCoverage: opts.MaxCoverage,
		Mods:        opts.Mods(),
	}, contigs)
	if err != nil {
		_, _ = fmt.Fprintln(stderr, err)
		return 2
	}

	workers := opts.Workers
	if workers < 1 {
		workers = runtime.NumCPU()
	} else if workers > runtime.NumCPU() {
		log.Warn("more workers than CPUs", "workers", workers, "cpus", runtime.NumCPU())
	}

	var sinks []writer.Sink[Record]
	closeAll := func() {
		for _, s := range sinks {
			_ = s.Close()
		}
	}
	if opts.GFF != "" {
		gff, err := output.NewGFFFile(opts.GFF, runID)
		if err != nil {
			_, _ = fmt.Fprintln(stderr, err)
			return 3
		}
		sinks = append(sinks, gff)
	}
	if opts.CSV != "" {
		csvSink, err := output.NewCSVFile(opts.CSV)
		if err != nil {
			closeAll()
			_, _ = fmt.Fprintln(stderr, err)
			return 3
		}
		sinks = append(sinks, csvSink)
	}
	// The collector closes the sinks after draining; this covers the paths
	// where it never ran. Close is idempotent on every sink.
	defer closeAll()

	stats, err := orchestrate.Run(parent, orchestrate.Options{
		Workers:   workers,
		QueueSize: opts.QueueSize,
		Stride:    opts.Stride,
		Progress:  opts.Progress,
		Logger:    log,
	}, windows, scanner.ScanChunk, sinks...)
	if err != nil {
		var exit *supervise.ExitError
		switch {
		case errors.As(err, &exit):
			log.Error("child process failed", "name", exit.Name, "code", exit.Code)
			return exit.Code
		case errors.Is(err, context.Canceled):
			log.Error("run canceled")
			return 130
		case output.IsBrokenPipe(err):
			return 0
		default:
			_, _ = fmt.Fprintln(stderr, err)
			return 3
		}
	}

	log.Info("run complete", "run_id", runID, "chunks", stats.Chunks, "records", stats.Records)
	return 0
}

func Run(argv []string, stdout, stderr io.Writer) int {
	return RunContext(context.Background(), argv, stdout, stderr)
}
