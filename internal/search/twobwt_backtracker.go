package search

import (
	"fmt"

	"github.com/beetl-go/beetl/internal/alphabet"
	"github.com/beetl-go/beetl/internal/bwtio"
	"github.com/beetl-go/beetl/internal/letter"
	"github.com/beetl-go/beetl/internal/rangestore"
)

// pendingInterval is one side's (A or B) not-yet-classified range from a
// single bucket, captured so the two sides can be matched up by
// propagated word before the handler is invoked (see TwoBwtBackTracker).
type pendingInterval struct {
	rng             *rangestore.Range
	countsSoFar     letter.Count
	countsThisRange letter.Count
	bwt             []byte
}

// TwoBwtBackTracker drives one cycle jointly over two BWTs for the
// comparator handlers (spec.md §4.6). The original BEETL source for this
// traversal was not part of the retrieved sources; the join strategy below
// is this module's own resolution of that gap (documented in DESIGN.md):
// each side's range store is read independently, and because comparator
// handlers always carry a propagated Word, ranges from A and B that share
// a (pile, fromPile) bucket are paired up by matching Word rather than by
// position - the two BWTs need not have identical sizes or layouts for
// this to stay correct.
type TwoBwtBackTracker struct {
	StoreA, StoreB   *rangestore.Store
	ReaderA, ReaderB *bwtio.Reader
	Handler          Handler
	Pile             int
	Cycle            int
}

// Run drives the cycle, returning each side's progress counters.
func (bt *TwoBwtBackTracker) Run(startA, startB letter.Count) (Counters, Counters, error) {
	var countersA, countersB Counters
	countsSoFarA := startA
	countsSoFarB := startB
	var childrenA, childrenB rangestore.ChildrenData

	for fromPile := 0; fromPile < alphabet.Size; fromPile++ {
		pendingA, nA, err := bt.collect(bt.StoreA, bt.ReaderA, fromPile, &countsSoFarA)
		if err != nil {
			return countersA, countersB, err
		}
		pendingB, nB, err := bt.collect(bt.StoreB, bt.ReaderB, fromPile, &countsSoFarB)
		if err != nil {
			return countersA, countersB, err
		}
		countersA.NumRanges += nA
		countersB.NumRanges += nB

		for word, a := range pendingA {
			if b, ok := pendingB[word]; ok {
				childrenA.Reset()
				childrenB.Reset()
				if err := bt.Handler.FoundInBoth(bt.Pile,
					a.countsSoFar, a.countsThisRange, a.bwt, a.rng, &childrenA,
					b.countsSoFar, b.countsThisRange, b.bwt, b.rng, &childrenB,
					bt.Cycle); err != nil {
					return countersA, countersB, err
				}
				if err := bt.commit(bt.StoreA, a, &childrenA); err != nil {
					return countersA, countersB, err
				}
				if err := bt.commit(bt.StoreB, b, &childrenB); err != nil {
					return countersA, countersB, err
				}
				delete(pendingB, word)
			} else {
				childrenA.Reset()
				if err := bt.Handler.FoundInAOnly(bt.Pile, a.countsSoFar, a.countsThisRange, a.bwt, a.rng, &childrenA, bt.Cycle); err != nil {
					return countersA, countersB, err
				}
				if err := bt.commit(bt.StoreA, a, &childrenA); err != nil {
					return countersA, countersB, err
				}
			}
		}
		for _, b := range pendingB {
			childrenB.Reset()
			if err := bt.Handler.FoundInBOnly(bt.Pile, b.countsSoFar, b.countsThisRange, b.bwt, b.rng, &childrenB, bt.Cycle); err != nil {
				return countersA, countersB, err
			}
			if err := bt.commit(bt.StoreB, b, &childrenB); err != nil {
				return countersA, countersB, err
			}
		}
	}
	return countersA, countersB, nil
}

// collect drains one (Pile,fromPile) bucket of store, returning its ranges
// keyed by propagated word. countsSoFar is threaded through sequentially,
// exactly as OneBwtBackTracker does, so each entry's snapshot reflects the
// cumulative counts immediately before that range.
func (bt *TwoBwtBackTracker) collect(store *rangestore.Store, reader *bwtio.Reader, fromPile int, countsSoFar *letter.Count) (map[string]*pendingInterval, int, error) {
	if err := store.SetPortion(bt.Pile, fromPile, 0); err != nil {
		return nil, 0, err
	}
	var currentPos uint64
	out := make(map[string]*pendingInterval)
	n := 0
	for {
		rng, ok, err := store.GetRange()
		if err != nil {
			return nil, 0, err
		}
		if !ok {
			break
		}
		if rng.Pos < currentPos {
			return nil, 0, fmt.Errorf("search: range pos %d precedes current position %d in pile %d", rng.Pos, currentPos, bt.Pile)
		}
		if err := reader.SkipTo(rng.Pos, countsSoFar); err != nil {
			return nil, 0, err
		}
		buf := make([]byte, rng.Num)
		countsThisRange, err := reader.Read(buf, rng.Num)
		if err != nil {
			return nil, 0, err
		}
		out[rng.Word] = &pendingInterval{
			rng:             rng,
			countsSoFar:     *countsSoFar,
			countsThisRange: countsThisRange,
			bwt:             buf,
		}
		countsSoFar.Add(countsThisRange)
		currentPos = rng.Pos + rng.Num
		n++
	}
	return out, n, nil
}

// commit stages children's propagated letters into store's next cycle,
// prepending the currently-scanned pile's letter onto the parent's word
// (spec.md §3: "word.length() == cycle-1 ... the top character always
// equals alphabet[from-pile]").
func (bt *TwoBwtBackTracker) commit(store *rangestore.Store, parent *pendingInterval, children *rangestore.ChildrenData) error {
	childWord := string(alphabet.Letters[bt.Pile]) + parent.rng.Word
	for l := 0; l < alphabet.Size; l++ {
		if !children.Propagate[l] {
			continue
		}
		child := children.Slots[l]
		child.Pos = parent.countsSoFar[l]
		child.Num = parent.countsThisRange[l]
		child.Word = childWord
		if child.Num == 0 {
			continue
		}
		if store.IsRangeKnown(&child, l, bt.Pile, 0) {
			continue
		}
		if err := store.AddRange(&child, l, bt.Pile, 0); err != nil {
			return err
		}
	}
	return nil
}
