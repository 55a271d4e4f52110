package search

import (
	"github.com/beetl-go/beetl/internal/alphabet"
	"github.com/beetl-go/beetl/internal/bwtio"
	"github.com/beetl-go/beetl/internal/letter"
	"github.com/beetl-go/beetl/internal/rangestore"
)

// seedWholeBWT queues one cycle-0 range per pile covering that pile's
// entire span, the comparator's starting point (every suffix of length
// zero is a candidate): pile p's range for letter l starts at
// cumulative.StartOfPile(p)[l] and spans totals[p][l] positions.
func seedWholeBWT(store *rangestore.Store, totals, cumulative letter.EachPile) error {
	store.SetCycleNum(0)
	for p := 1; p < alphabet.Size; p++ {
		start := cumulative.StartOfPile(p)
		width := totals[p]
		for l := 0; l < alphabet.Size; l++ {
			if width[l] == 0 {
				continue
			}
			rng := &rangestore.Range{Pos: start[l], Num: width[l]}
			if err := store.AddRange(rng, l, p, 0); err != nil {
				return err
			}
		}
	}
	return store.Clear()
}

// RunComparator drives the joint two-BWT cycle loop to completion (spec.md
// §4.6.2/§4.6.3). handler carries its own output writer (TumourNormalHandler
// or SpliceHandler's Out field) for breakpoint lines.
func RunComparator(readersA, readersB [alphabet.Size]*bwtio.Reader, storeA, storeB *rangestore.Store, handler Handler) error {
	totalsA, err := bwtio.ScanTotalCounts(readersA)
	if err != nil {
		return err
	}
	totalsB, err := bwtio.ScanTotalCounts(readersB)
	if err != nil {
		return err
	}
	cumulativeA := totalsA.Cumulative()
	cumulativeB := totalsB.Cumulative()

	if tn, ok := handler.(*TumourNormalHandler); ok && tn.FsizeRatio == 0 {
		tn.FsizeRatio = fsizeRatio(totalsA, totalsB)
	}

	if err := seedWholeBWT(storeA, totalsA, cumulativeA); err != nil {
		return err
	}
	if err := seedWholeBWT(storeB, totalsB, cumulativeB); err != nil {
		return err
	}

	for cycle := 1; ; cycle++ {
		for pile := 1; pile < alphabet.Size; pile++ {
			if err := readersA[pile].Rewind(); err != nil {
				return err
			}
			if err := readersB[pile].Rewind(); err != nil {
				return err
			}
			bt := &TwoBwtBackTracker{
				StoreA:  storeA,
				StoreB:  storeB,
				ReaderA: readersA[pile],
				ReaderB: readersB[pile],
				Handler: handler,
				Pile:    pile,
				Cycle:   cycle,
			}
			if _, _, err := bt.Run(cumulativeA.StartOfPile(pile), cumulativeB.StartOfPile(pile)); err != nil {
				return err
			}
		}
		pendingA := storeA.PendingWrites()
		pendingB := storeB.PendingWrites()
		if err := storeA.Clear(); err != nil {
			return err
		}
		if err := storeB.Clear(); err != nil {
			return err
		}
		if pendingA == 0 && pendingB == 0 {
			break
		}
	}

	if bw, ok := handlerOutput(handler); ok {
		return bw.Flush()
	}
	return nil
}

// fsizeRatio approximates the input-size ratio between A and B from their
// BWT's total letter counts, the scale factor TumourNormalHandler applies
// to A's occurrence floor (spec.md §4.6.2).
func fsizeRatio(totalsA, totalsB letter.EachPile) float64 {
	var sumA, sumB uint64
	for p := 1; p < alphabet.Size; p++ {
		sumA += totalsA[p].Total()
		sumB += totalsB[p].Total()
	}
	if sumB == 0 {
		return 1
	}
	return float64(sumA) / float64(sumB)
}

func handlerOutput(h Handler) (*BkptWriter, bool) {
	switch v := h.(type) {
	case *TumourNormalHandler:
		return v.Out, v.Out != nil
	case *SpliceHandler:
		return v.Out, v.Out != nil
	default:
		return nil, false
	}
}
