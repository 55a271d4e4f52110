package bwtio

import (
	"fmt"
	"io"
	"os"

	"github.com/beetl-go/beetl/internal/alphabet"
	"github.com/beetl-go/beetl/internal/bioerr"
	"github.com/beetl-go/beetl/internal/letter"
)

// PilePath returns the on-disk path of pile p for the given BWT prefix,
// following the "<prefix>-B0<digit>" naming convention (spec.md §6).
func PilePath(prefix string, p int) string {
	return fmt.Sprintf("%s-B0%d", prefix, p)
}

// OpenPiles opens all alphabet.Size pile readers for prefix.
func OpenPiles(prefix string, useSharedMem bool) ([alphabet.Size]*Reader, error) {
	var readers [alphabet.Size]*Reader
	for p := 0; p < alphabet.Size; p++ {
		path := PilePath(prefix, p)
		if _, err := os.Stat(path); err != nil {
			for j := 0; j < p; j++ {
				readers[j].Close()
			}
			return readers, bioerr.E(bioerr.MissingFile, "BWT pile", path)
		}
		r, err := Open(path, useSharedMem)
		if err != nil {
			for j := 0; j < p; j++ {
				readers[j].Close()
			}
			return readers, err
		}
		readers[p] = r
	}
	return readers, nil
}

// ClosePiles closes every non-nil reader in readers.
func ClosePiles(readers [alphabet.Size]*Reader) {
	for _, r := range readers {
		if r != nil {
			r.Close()
		}
	}
}

// ScanTotalCounts computes the per-pile letter-count matrix (spec.md §3
// "Cumulative count table") by reading each pile reader from its current
// position to EOF, then rewinding it back to position 0. Run once at
// search/compare/correct startup: the backtracker's pile-block addressing
// (letter.EachPile.StartOfPile) depends on this matrix being known before
// the first cycle, not recomputed as cycles progress.
func ScanTotalCounts(readers [alphabet.Size]*Reader) (letter.EachPile, error) {
	var totals letter.EachPile
	for p, r := range readers {
		for {
			c, err := r.nextByte()
			if err == io.EOF {
				break
			}
			if err != nil {
				return totals, err
			}
			totals[p][alphabet.WhichPile(c)]++
		}
		if err := r.Rewind(); err != nil {
			return totals, err
		}
	}
	return totals, nil
}

