// Package search implements the backward-search backtracker and the four
// interval handlers that plug into it (spec.md §4.5, §4.6).
package search

import (
	"github.com/beetl-go/beetl/internal/letter"
	"github.com/beetl-go/beetl/internal/rangestore"
)

// Handler is the interval-handler contract (spec.md §4.6): given a range
// and its BWT substring, decide which letters to propagate and stage their
// child ranges into children. pileNum is the pile currently being scanned
// (the "fromPile" of any child this call produces); cycle is the current
// backward-search cycle (suffix length).
//
// The k-mer locator and error corrector only ever see a single BWT, so
// they implement FoundInAOnly and leave FoundInBOnly/FoundInBoth as no-ops
// (SingleBWTHandler embeds a pair of such no-ops for that purpose). Comparator
// handlers implement all three.
type Handler interface {
	FoundInAOnly(pileNum int, countsSoFar, countsThisRange letter.Count, bwt []byte, rng *rangestore.Range, children *rangestore.ChildrenData, cycle int) error
	FoundInBOnly(pileNum int, countsSoFar, countsThisRange letter.Count, bwt []byte, rng *rangestore.Range, children *rangestore.ChildrenData, cycle int) error
	FoundInBoth(pileNum int,
		countsSoFarA, countsThisRangeA letter.Count, bwtA []byte, rngA *rangestore.Range, childrenA *rangestore.ChildrenData,
		countsSoFarB, countsThisRangeB letter.Count, bwtB []byte, rngB *rangestore.Range, childrenB *rangestore.ChildrenData,
		cycle int) error
}

// SingleBWTHandler is embedded by handlers that never see a second BWT
// (k-mer locator, error corrector), so they only need to implement
// FoundInAOnly.
type SingleBWTHandler struct{}

func (SingleBWTHandler) FoundInBOnly(int, letter.Count, letter.Count, []byte, *rangestore.Range, *rangestore.ChildrenData, int) error {
	return nil
}

func (SingleBWTHandler) FoundInBoth(int,
	letter.Count, letter.Count, []byte, *rangestore.Range, *rangestore.ChildrenData,
	letter.Count, letter.Count, []byte, *rangestore.Range, *rangestore.ChildrenData,
	int) error {
	return nil
}
