// beetl-correct runs the BWT error corrector over a single BWT
// (SPEC_FULL.md's "Comparator drivers" addition, grounded on
// BwtCorrectorIntervalHandler.cpp).
//
// Usage:
//
//	beetl-correct -i <prefix> -min-occurrences 3 -min-witness-length 3
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/grailbio/base/grail"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/vcontext"

	"github.com/beetl-go/beetl/internal/bwtio"
	"github.com/beetl-go/beetl/internal/cliutil"
	"github.com/beetl-go/beetl/internal/config"
	"github.com/beetl-go/beetl/internal/rangestore"
	"github.com/beetl-go/beetl/internal/search"
)

func usage() {
	fmt.Fprintln(os.Stderr, `
beetl-correct scans a BWT for positions where the backward-search signal
splits between one dominant letter and a low-occurrence outlier, reporting
each outlier as a candidate sequencing error.

Usage:

    beetl-correct -i /data/sample -min-occurrences 3 -min-witness-length 3
`)
	flag.PrintDefaults()
}

func main() {
	flag.Usage = usage
	flags := config.BindCorrectFlags(flag.CommandLine)
	cleanup := grail.Init()
	defer cleanup()
	ctx := vcontext.Background()

	if err := flags.Validate(); err != nil {
		log.Printf("%v", err)
		os.Exit(cliutil.ExitCode(err))
	}
	cliutil.RegisterS3()

	readers, err := bwtio.OpenPiles(flags.Input, flags.UseShm)
	if err != nil {
		log.Printf("%v", err)
		os.Exit(cliutil.ExitCode(err))
	}
	defer bwtio.ClosePiles(readers)

	spillDir, err := os.MkdirTemp("", "beetl-correct-")
	if err != nil {
		log.Printf("%v", err)
		os.Exit(1)
	}
	defer os.RemoveAll(spillDir)

	store, err := rangestore.New(spillDir, func() rangestore.Payload {
		return &rangestore.ErrorCorrectionPayload{}
	}, false)
	if err != nil {
		log.Printf("%v", err)
		os.Exit(cliutil.ExitCode(err))
	}

	errStore := search.NewErrorStore()
	handler := &search.BwtCorrectorHandler{
		Store:            errStore,
		MinWitnessLength: flags.MinWitnessLength,
		MinOccurrences:   flags.MinOccurrences,
	}

	if err := search.RunCorrector(readers, store, handler); err != nil {
		log.Printf("%v", err)
		os.Exit(cliutil.ExitCode(err))
	}

	out, err := cliutil.OpenOutput(ctx, flags.Output)
	if err != nil {
		log.Printf("%v", err)
		os.Exit(cliutil.ExitCode(err))
	}
	if err := search.EmitErrorReport(out, errStore); err != nil {
		log.Printf("%v", err)
		os.Exit(cliutil.ExitCode(err))
	}
	if err := out.Close(); err != nil {
		log.Printf("%v", err)
		os.Exit(cliutil.ExitCode(err))
	}
}
