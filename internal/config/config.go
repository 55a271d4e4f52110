// Package config binds each beetl-* command's flags into a plain option
// struct and validates it, the fusionFlags/gencodeFlags pattern from
// cmd/bio-fusion/main.go generalised across beetl-index, beetl-search,
// beetl-compare and beetl-correct (spec.md §6, §7).
package config

import (
	"flag"

	"github.com/beetl-go/beetl/internal/bioerr"
)

// IndexFlags binds beetl-index's flags (spec.md §6).
type IndexFlags struct {
	Input     string
	BlockSize int
	Force     bool
	UseShm    bool
}

// BindIndexFlags registers IndexFlags on fs and returns the struct to be
// filled in once fs.Parse has run.
func BindIndexFlags(fs *flag.FlagSet) *IndexFlags {
	f := &IndexFlags{}
	fs.StringVar(&f.Input, "input", "", "BWT prefix (required)")
	fs.StringVar(&f.Input, "i", "", "shorthand for -input")
	fs.IntVar(&f.BlockSize, "block-size", 2048, "bytes between index points (must be > 0)")
	fs.IntVar(&f.BlockSize, "b", 2048, "shorthand for -block-size")
	fs.BoolVar(&f.Force, "force", false, "overwrite an existing .idx file")
	fs.BoolVar(&f.Force, "f", false, "shorthand for -force")
	fs.BoolVar(&f.UseShm, "use-shm", false, "accepted but unused: beetl-index always reads piles through a buffered file")
	return f
}

// Validate applies spec.md §7's BadConfig rules.
func (f *IndexFlags) Validate() error {
	if f.Input == "" {
		return bioerr.E(bioerr.BadConfig, "beetl-index: -input is required")
	}
	if f.BlockSize <= 0 {
		return bioerr.E(bioerr.BadConfig, "beetl-index: -block-size must be > 0")
	}
	return nil
}

// SearchFlags binds beetl-search's flags (spec.md §6).
type SearchFlags struct {
	Input          string
	KmersInputFile string
	OneKmerString  string
	Output         string
	UseShm         bool
}

func BindSearchFlags(fs *flag.FlagSet) *SearchFlags {
	f := &SearchFlags{}
	fs.StringVar(&f.Input, "input", "", "BWT prefix (required)")
	fs.StringVar(&f.Input, "i", "", "shorthand for -input")
	fs.StringVar(&f.KmersInputFile, "kmers-input-file", "", "file of whitespace-delimited kmer queries")
	fs.StringVar(&f.KmersInputFile, "j", "", "shorthand for -kmers-input-file")
	fs.StringVar(&f.OneKmerString, "one-kmer-string", "", "a single kmer query")
	fs.StringVar(&f.OneKmerString, "k", "", "shorthand for -one-kmer-string")
	fs.StringVar(&f.Output, "output", "-", "output file (default '-' for stdout)")
	fs.StringVar(&f.Output, "o", "-", "shorthand for -output")
	fs.BoolVar(&f.UseShm, "use-shm", false, "open piles with a shared memory mapping")
	return f
}

func (f *SearchFlags) Validate() error {
	if f.Input == "" {
		return bioerr.E(bioerr.BadConfig, "beetl-search: -input is required")
	}
	if f.KmersInputFile == "" && f.OneKmerString == "" {
		return bioerr.E(bioerr.BadConfig, "beetl-search: exactly one of -kmers-input-file or -one-kmer-string is required")
	}
	if f.KmersInputFile != "" && f.OneKmerString != "" {
		return bioerr.E(bioerr.Conflict, "beetl-search: -kmers-input-file and -one-kmer-string are mutually exclusive")
	}
	return nil
}

// CompareFlags binds beetl-compare's flags (SPEC_FULL.md's "Comparator
// drivers" addition).
type CompareFlags struct {
	InputA        string
	InputB        string
	TumourNormal  bool
	Splice        bool
	MinOccurrence uint64
	Output        string
	UseShm        bool
}

func BindCompareFlags(fs *flag.FlagSet) *CompareFlags {
	f := &CompareFlags{}
	fs.StringVar(&f.InputA, "a", "", "first (tumour/RNA) BWT prefix (required)")
	fs.StringVar(&f.InputB, "b", "", "second (normal/genome) BWT prefix (required)")
	fs.BoolVar(&f.TumourNormal, "t", false, "run the tumour/normal comparator")
	fs.BoolVar(&f.Splice, "s", false, "run the splice-junction comparator")
	fs.Uint64Var(&f.MinOccurrence, "min-occurrence", 1, "minimum occurrence floor for breakpoint detection")
	fs.StringVar(&f.Output, "output", "-", "output file (default '-' for stdout)")
	fs.StringVar(&f.Output, "o", "-", "shorthand for -output")
	fs.BoolVar(&f.UseShm, "use-shm", false, "open piles with a shared memory mapping")
	return f
}

func (f *CompareFlags) Validate() error {
	if f.InputA == "" || f.InputB == "" {
		return bioerr.E(bioerr.BadConfig, "beetl-compare: both -a and -b are required")
	}
	if f.TumourNormal == f.Splice {
		return bioerr.E(bioerr.Conflict, "beetl-compare: exactly one of -t or -s is required")
	}
	return nil
}

// CorrectFlags binds beetl-correct's flags (SPEC_FULL.md's "Comparator
// drivers" addition).
type CorrectFlags struct {
	Input            string
	MinOccurrences   uint64
	MinWitnessLength int
	Output           string
	UseShm           bool
}

func BindCorrectFlags(fs *flag.FlagSet) *CorrectFlags {
	f := &CorrectFlags{}
	fs.StringVar(&f.Input, "input", "", "BWT prefix (required)")
	fs.StringVar(&f.Input, "i", "", "shorthand for -input")
	fs.Uint64Var(&f.MinOccurrences, "min-occurrences", 3, "minimum occurrences for a letter to be believed correct")
	fs.IntVar(&f.MinWitnessLength, "min-witness-length", 3, "minimum cycle length before an interval is inspected for errors")
	fs.StringVar(&f.Output, "output", "-", "output file (default '-' for stdout)")
	fs.StringVar(&f.Output, "o", "-", "shorthand for -output")
	fs.BoolVar(&f.UseShm, "use-shm", false, "open piles with a shared memory mapping")
	return f
}

func (f *CorrectFlags) Validate() error {
	if f.Input == "" {
		return bioerr.E(bioerr.BadConfig, "beetl-correct: -input is required")
	}
	if f.MinWitnessLength <= 0 {
		return bioerr.E(bioerr.BadConfig, "beetl-correct: -min-witness-length must be > 0")
	}
	return nil
}
