// Package bwttest builds small, provably-correct BWT fixtures for tests
// across bwtio, rangestore and search. It computes the BWT of a collection
// of sequences the naive way (sort all cyclic rotations), which is fine for
// the handful-of-bases inputs exercised here - real construction (BCR) is
// out of scope (spec.md §1).
package bwttest

import (
	"os"
	"sort"

	"github.com/beetl-go/beetl/internal/alphabet"
	"github.com/beetl-go/beetl/internal/bwtio"
)

type rotation struct {
	s    string // full cyclic rotation, used only for sorting
	last byte   // character immediately preceding the rotation start
	first byte  // rotation's own first character, i.e. the pile it belongs to
}

// Piles computes the BWT of sequences (each implicitly terminated with
// alphabet.TerminatorChar) and returns it split into the alphabet.Size
// per-pile substrings, bucketed by each row's first column character -
// exactly the partition the on-disk pile files hold.
func Piles(sequences []string) [alphabet.Size][]byte {
	var rotations []rotation
	for _, s := range sequences {
		padded := s + string(alphabet.TerminatorChar)
		n := len(padded)
		for k := 0; k < n; k++ {
			rotations = append(rotations, rotation{
				s:    padded[k:] + padded[:k],
				last: padded[(k-1+n)%n],
				first: padded[k],
			})
		}
	}
	sort.Slice(rotations, func(i, j int) bool { return rotations[i].s < rotations[j].s })

	var piles [alphabet.Size][]byte
	for _, r := range rotations {
		p := alphabet.WhichPile(r.first)
		piles[p] = append(piles[p], r.last)
	}
	return piles
}

// WritePiles writes Piles(sequences) to dir as "<prefix>-B0<digit>" files
// using bwtio's run-length encoder, and returns the prefix path (dir/prefix).
func WritePiles(dir, prefix string, sequences []string) (string, error) {
	full := dir + "/" + prefix
	piles := Piles(sequences)
	for p := 0; p < alphabet.Size; p++ {
		if err := writePile(bwtio.PilePath(full, p), piles[p]); err != nil {
			return "", err
		}
	}
	return full, nil
}

func writePile(path string, bwt []byte) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return bwtio.WriteRunLength(f, bwt)
}
