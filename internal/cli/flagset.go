package cli

import (
	"flag"
	"fmt"

	"kinscan/internal/version"
)

// NewFlagSet returns a configured FlagSet with custom usage/help.
func NewFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(),
			`%s: kinetic modification detection over a reference

Version: %s

Usage: %s [flags] <reference.fasta>
`, name, version.Version, name)
		fs.PrintDefaults()
	}
	return fs
}
