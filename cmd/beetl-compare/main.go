// beetl-compare runs one of the two-BWT joint comparator handlers
// (SPEC_FULL.md's "Comparator drivers" addition): tumour/normal breakpoint
// detection or splice-junction detection.
//
// Usage:
//
//	beetl-compare -t -a tumour-prefix -b normal-prefix -o breakpoints.txt
//	beetl-compare -s -a rna-prefix -b genome-prefix -o junctions.txt
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
beetl-compare walks two BWTs in lockstep, cycle by cycle, reporting points
where their shared suffix paths diverge.

Usage:

    beetl-compare -t -a /data/tumour -b /data/normal -o bkpts.txt
    beetl-compare -s -a /data/rna -b /data/genome -o junctions.txt
`)
	flag.PrintDefaults()
}

func main() {
	flag.Usage = usage
	flags := config.BindCompareFlags(flag.CommandLine)
	cleanup := grail.Init()
	defer cleanup()
	ctx := vcontext.Background()

	if err := flags.Validate(); err != nil {
		log.Printf("%v", err)
		os.Exit(cliutil.ExitCode(err))
	}
	cliutil.RegisterS3()

	readersA, err := bwtio.OpenPiles(flags.InputA, flags.UseShm)
	if err != nil {
		log.Printf("%v", err)
		os.Exit(cliutil.ExitCode(err))
	}
	defer bwtio.ClosePiles(readersA)

	readersB, err := bwtio.OpenPiles(flags.InputB, flags.UseShm)
	if err != nil {
		log.Printf("%v", err)
		os.Exit(cliutil.ExitCode(err))
	}
	defer bwtio.ClosePiles(readersB)

	spillA, err := os.MkdirTemp("", "beetl-compare-a-")
	if err != nil {
		log.Printf("%v", err)
		os.Exit(1)
	}
	defer os.RemoveAll(spillA)
	spillB, err := os.MkdirTemp("", "beetl-compare-b-")
	if err != nil {
		log.Printf("%v", err)
		os.Exit(1)
	}
	defer os.RemoveAll(spillB)

	storeA, err := rangestore.New(spillA, nil, true)
	if err != nil {
		log.Printf("%v", err)
		os.Exit(cliutil.ExitCode(err))
	}
	storeB, err := rangestore.New(spillB, nil, true)
	if err != nil {
		log.Printf("%v", err)
		os.Exit(cliutil.ExitCode(err))
	}

	out, err := cliutil.OpenOutput(ctx, flags.Output)
	if err != nil {
		log.Printf("%v", err)
		os.Exit(cliutil.ExitCode(err))
	}
	bkptOut := search.NewBkptWriter(out)

	var handler search.Handler
	if flags.TumourNormal {
		handler = &search.TumourNormalHandler{MinOcc: flags.MinOccurrence, Out: bkptOut}
	} else {
		handler = &search.SpliceHandler{MinOcc: flags.MinOccurrence, Out: bkptOut}
	}

	if err := search.RunComparator(readersA, readersB, storeA, storeB, handler); err != nil {
		log.Printf("%v", err)
		os.Exit(cliutil.ExitCode(err))
	}
	if err := out.Close(); err != nil {
		log.Printf("%v", err)
		os.Exit(cliutil.ExitCode(err))
	}
}
