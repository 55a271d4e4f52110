package search

import (
	"fmt"

	"github.com/beetl-go/beetl/internal/alphabet"
	"github.com/beetl-go/beetl/internal/bwtio"
	"github.com/beetl-go/beetl/internal/letter"
	"github.com/beetl-go/beetl/internal/rangestore"
)

// OneBwtBackTracker drives a single cycle over a single BWT pile (spec.md
// §4.5): it reads the ranges addressed to Pile (bucket toPile=Pile,
// fromPile=0..5, consumed in that order - pile blocks are laid out
// contiguously by ascending source-pile number within a destination
// pile's own file, so no cross-bucket merge is needed), walks the pile's
// reader under each range, asks Handler to classify it, and stages each
// propagated letter's child range into the next cycle's store.
type OneBwtBackTracker struct {
	Store   *rangestore.Store
	Reader  *bwtio.Reader
	Handler Handler
	Pile    int
	Cycle   int
}

// Counters summarises one backtracker pass for progress reporting (spec.md
// §4.5 "Returns counters numRanges, numSingletonRanges").
type Counters struct {
	NumRanges          int
	NumSingletonRanges int
}

// Run drives the cycle. startCounts is the destination pile's C-array
// baseline (letter.EachPile.Cumulative().StartOfPile(Pile) over the
// global per-pile letter-count matrix computed once at startup).
func (bt *OneBwtBackTracker) Run(startCounts letter.Count) (Counters, error) {
	var counters Counters
	var currentPos uint64
	countsSoFar := startCounts
	var children rangestore.ChildrenData

	for fromPile := 0; fromPile < alphabet.Size; fromPile++ {
		if err := bt.Store.SetPortion(bt.Pile, fromPile, 0); err != nil {
			return counters, err
		}
		for {
			rng, ok, err := bt.Store.GetRange()
			if err != nil {
				return counters, err
			}
			if !ok {
				break
			}
			if rng.Pos < currentPos {
				return counters, fmt.Errorf("search: range pos %d precedes current position %d in pile %d", rng.Pos, currentPos, bt.Pile)
			}

			if err := bt.Reader.SkipTo(rng.Pos, &countsSoFar); err != nil {
				return counters, err
			}

			buf := make([]byte, rng.Num)
			countsThisRange, err := bt.Reader.Read(buf, rng.Num)
			if err != nil {
				return counters, err
			}

			children.Reset()
			if err := bt.Handler.FoundInAOnly(bt.Pile, countsSoFar, countsThisRange, buf, rng, &children, bt.Cycle); err != nil {
				return counters, err
			}

			for l := 0; l < alphabet.Size; l++ {
				if !children.Propagate[l] {
					continue
				}
				child := children.Slots[l]
				child.Pos = countsSoFar[l]
				child.Num = countsThisRange[l]
				if child.Num == 0 {
					continue
				}
				if bt.Store.IsRangeKnown(&child, l, bt.Pile, 0) {
					continue
				}
				if err := bt.Store.AddRange(&child, l, bt.Pile, 0); err != nil {
					return counters, err
				}
			}

			countsSoFar.Add(countsThisRange)
			currentPos = rng.Pos + rng.Num

			counters.NumRanges++
			if rng.Num == 1 {
				counters.NumSingletonRanges++
			}
		}
	}
	return counters, nil
}
