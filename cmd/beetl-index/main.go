// beetl-index builds the .idx sidecar for a BWT's six pile files
// (spec.md §6 "CLI — index builder").
//
// Usage:
//
//	beetl-index -i <prefix> [-b block-size] [-f]
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/grailbio/base/grail"
	"github.com/grailbio/base/log"

	"github.com/beetl-go/beetl/internal/alphabet"
	"github.com/beetl-go/beetl/internal/bwtio"
	"github.com/beetl-go/beetl/internal/cliutil"
	"github.com/beetl-go/beetl/internal/config"
)

func usage() {
	fmt.Fprintln(os.Stderr, `
beetl-index builds a .idx sidecar index next to each BWT pile file, so that
beetl-search and beetl-compare can skip to an arbitrary BWT position without
rescanning from the start of the pile.

Usage:

    beetl-index -i /data/sample -b 2048
`)
	flag.PrintDefaults()
}

func main() {
	flag.Usage = usage
	flags := config.BindIndexFlags(flag.CommandLine)
	cleanup := grail.Init()
	defer cleanup()

	if err := flags.Validate(); err != nil {
		log.Printf("%v", err)
		os.Exit(cliutil.ExitCode(err))
	}
	cliutil.RegisterS3()

	for p := 0; p < alphabet.Size; p++ {
		path := bwtio.PilePath(flags.Input, p)
		idxPath := path + ".idx"
		idx, err := bwtio.BuildIndex(path, flags.BlockSize)
		if err != nil {
			log.Printf("%v", err)
			os.Exit(cliutil.ExitCode(err))
		}
		if err := bwtio.WriteIndex(idxPath, idx, flags.Force); err != nil {
			log.Printf("%v", err)
			os.Exit(cliutil.ExitCode(err))
		}
		log.Printf("wrote %s: %d index points", idxPath, len(idx.Entries))
	}
}
