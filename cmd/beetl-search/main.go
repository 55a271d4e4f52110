// beetl-search runs the k-mer locator over a BWT's piles (spec.md §6
// "CLI — kmer search").
//
// Usage:
//
//	beetl-search -i <prefix> -j queries.txt
//	beetl-search -i <prefix> -k ACGT
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/grailbio/base/file"
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
beetl-search looks up one or more k-mers against a BWT built by beetl-index,
reporting each k-mer's BWT position and occurrence count.

Usage:

    beetl-search -i /data/sample -j queries.txt
    beetl-search -i /data/sample -k ACGTACGT -o hits.txt
`)
	flag.PrintDefaults()
}

func main() {
	flag.Usage = usage
	flags := config.BindSearchFlags(flag.CommandLine)
	cleanup := grail.Init()
	defer cleanup()
	ctx := vcontext.Background()

	if err := flags.Validate(); err != nil {
		log.Printf("%v", err)
		os.Exit(cliutil.ExitCode(err))
	}
	cliutil.RegisterS3()

	var kmers []string
	if flags.OneKmerString != "" {
		kmers = []string{flags.OneKmerString}
	} else {
		f, err := file.Open(ctx, flags.KmersInputFile)
		if err != nil {
			log.Printf("%v", err)
			os.Exit(1)
		}
		kmers, err = search.ReadKmerQueries(f.Reader(ctx))
		if cerr := f.Close(ctx); cerr != nil && err == nil {
			err = cerr
		}
		if err != nil {
			log.Printf("%v", err)
			os.Exit(cliutil.ExitCode(err))
		}
	}

	readers, err := bwtio.OpenPiles(flags.Input, flags.UseShm)
	if err != nil {
		log.Printf("%v", err)
		os.Exit(cliutil.ExitCode(err))
	}
	defer bwtio.ClosePiles(readers)

	items := search.NewKmerSearchItems(kmers)
	spillDir, err := os.MkdirTemp("", "beetl-search-")
	if err != nil {
		log.Printf("%v", err)
		os.Exit(1)
	}
	defer os.RemoveAll(spillDir)
	store, err := rangestore.New(spillDir, func() rangestore.Payload {
		return &rangestore.KmerSearchPayload{}
	}, true)
	if err != nil {
		log.Printf("%v", err)
		os.Exit(cliutil.ExitCode(err))
	}

	if err := search.RunKmerSearch(readers, store, items); err != nil {
		log.Printf("%v", err)
		os.Exit(cliutil.ExitCode(err))
	}

	out, err := cliutil.OpenOutput(ctx, flags.Output)
	if err != nil {
		log.Printf("%v", err)
		os.Exit(cliutil.ExitCode(err))
	}
	if err := search.EmitResults(out, kmers, items); err != nil {
		log.Printf("%v", err)
		os.Exit(cliutil.ExitCode(err))
	}
	if err := out.Close(); err != nil {
		log.Printf("%v", err)
		os.Exit(cliutil.ExitCode(err))
	}
}
