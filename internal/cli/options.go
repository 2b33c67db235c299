// internal/cli/options.go
package cli

import (
	"errors"
	"flag"
	"fmt"
	"strings"
)

// Options holds all CLI flags and arguments.
type Options struct {
	// Reference input
	Reference string

	// Region selection
	Windows          []string
	WindowsFile      string
	SkipUnrecognized bool
	MaxLength        int // 0 = no cap on per-contig scan length

	// Detection parameters
	PValue      float64
	MinCoverage int
	MaxCoverage int
	Identify    string // comma-separated modification types

	// Performance
	Workers   int // 0 = all CPUs
	QueueSize int
	Stride    int

	// Output
	GFF      string
	CSV      string
	Progress bool
	Quiet    bool

	Version bool
}

// Mods splits the --identify value into individual modification names.
func (o Options) Mods() []string {
	var mods []string
	for _, m := range strings.Split(o.Identify, ",") {
		if m = strings.TrimSpace(m); m != "" {
			mods = append(mods, m)
		}
	}
	return mods
}

// Parse is the top-level call for CLI parsing.
func Parse() (Options, error) { return ParseArgs(flag.CommandLine, nil) }

// ParseArgs registers and parses all flags, returns an Options struct.
func ParseArgs(fs *flag.FlagSet, argv []string) (Options, error) {
	var opt Options
	var help bool

	// Region selection
	var windows stringSlice
	fs.Var(&windows, "w", "reference window refId[:start-end] (repeatable)")
	fs.Var(&windows, "refContigs", "comma-separated reference windows")
	fs.StringVar(&opt.WindowsFile, "W", "", "file with one reference window per line")
	fs.StringVar(&opt.WindowsFile, "refContigsFile", "", "file with one reference window per line")
	fs.BoolVar(&opt.SkipUnrecognized, "skip-unrecognized", false, "skip windows naming contigs absent from the reference [false]")
	fs.IntVar(&opt.MaxLength, "max-length", 0, "maximum number of bases to scan per contig (0 = all) [0]")

	// Detection parameters
	fs.Float64Var(&opt.PValue, "pvalue", 0.01, "p-value cutoff for calling a site [0.01]")
	fs.IntVar(&opt.MinCoverage, "min-coverage", 3, "minimum coverage required to call a site [3]")
	fs.IntVar(&opt.MaxCoverage, "max-coverage", 0, "cap per-site coverage (0 = uncapped) [0]")
	fs.StringVar(&opt.Identify, "identify", "m6A,m4C", "comma-separated modifications to identify [m6A,m4C]")

	// Performance
	fs.IntVar(&opt.Workers, "j", 0, "number of workers (0 = all CPUs) (shorthand) [0]")
	fs.IntVar(&opt.Workers, "workers", 0, "number of workers (0 = all CPUs) [0]")
	fs.IntVar(&opt.QueueSize, "queue-size", 20, "max unacknowledged items per queue [20]")
	fs.IntVar(&opt.Stride, "stride", 1000, "reference bases per work chunk [1000]")

	// Output
	fs.StringVar(&opt.GFF, "gff", "", "write called sites as GFF3 to this path")
	fs.StringVar(&opt.CSV, "csv", "", "write called sites as CSV to this path")
	fs.BoolVar(&opt.Progress, "progress", false, "show a progress bar on stderr [false]")
	fs.BoolVar(&opt.Quiet, "quiet", false, "suppress log output below errors [false]")

	fs.BoolVar(&opt.Version, "v", false, "print version and exit (shorthand) [false]")
	fs.BoolVar(&opt.Version, "version", false, "print version and exit [false]")
	fs.BoolVar(&help, "h", false, "show this help message (shorthand) [false]")

	if err := fs.Parse(argv); err != nil {
		return opt, err
	}
	if help {
		fs.Usage()
		return opt, flag.ErrHelp
	}
	if opt.Version {
		return opt, nil
	}
	opt.Windows = splitWindows(windows)

	// Validation
	switch fs.NArg() {
	case 0:
		return opt, errors.New("a reference FASTA argument is required")
	case 1:
		opt.Reference = fs.Arg(0)
	default:
		return opt, fmt.Errorf("unexpected extra arguments: %v", fs.Args()[1:])
	}
	if opt.GFF == "" && opt.CSV == "" {
		return opt, errors.New("provide at least one of --gff or --csv")
	}
	if len(opt.Windows) > 0 && opt.WindowsFile != "" {
		return opt, errors.New("-w conflicts with -W")
	}
	if opt.Workers < 0 {
		return opt, errors.New("--workers must be >= 0")
	}
	if opt.QueueSize <= 0 {
		return opt, errors.New("--queue-size must be > 0")
	}
	if opt.Stride <= 0 {
		return opt, errors.New("--stride must be > 0")
	}
	if opt.MaxLength < 0 {
		return opt, errors.New("--max-length must be >= 0")
	}
	if opt.PValue <= 0 || opt.PValue > 1 {
		return opt, fmt.Errorf("invalid --pvalue %g", opt.PValue)
	}
	if opt.MinCoverage < 0 {
		return opt, errors.New("--min-coverage must be >= 0")
	}
	if opt.MaxCoverage < 0 {
		return opt, errors.New("--max-coverage must be >= 0")
	}
	if len(opt.Mods()) == 0 {
		return opt, errors.New("--identify must name at least one modification")
	}
	return opt, nil
}

// splitWindows expands comma-separated values inside repeated window flags.
func splitWindows(raw []string) []string {
	var out []string
	for _, v := range raw {
		for _, w := range strings.Split(v, ",") {
			if w = strings.TrimSpace(w); w != "" {
				out = append(out, w)
			}
		}
	}
	return out
}

// stringSlice allows repeatable string flags.
type stringSlice []string

func (s *stringSlice) String() string     { return strings.Join(*s, ",") }
func (s *stringSlice) Set(v string) error { *s = append(*s, v); return nil }
