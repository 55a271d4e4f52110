package search

import (
	"bufio"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/beetl-go/beetl/internal/alphabet"
	"github.com/beetl-go/beetl/internal/bioerr"
	"github.com/beetl-go/beetl/internal/letter"
	"github.com/beetl-go/beetl/internal/rangestore"
)

// BkptWriter serialises output lines from concurrent pile workers, grounded
// on the mutex-guarded output stream in
// IntervalHandlerTumourNormal.cpp/IntervalHandlerSplice.cpp. The comparator
// handlers write only BKPT lines through it; no READ or INBS trace lines
// are produced for A-only or B-only ranges.
type BkptWriter struct {
	mu sync.Mutex
	w  *bufio.Writer
}

func NewBkptWriter(w io.Writer) *BkptWriter {
	return &BkptWriter{w: bufio.NewWriter(w)}
}

func (b *BkptWriter) WriteLine(line string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, err := b.w.WriteString(line); err != nil {
		return bioerr.E(bioerr.IoError, "write breakpoint output", err)
	}
	if _, err := b.w.WriteString("\n"); err != nil {
		return bioerr.E(bioerr.IoError, "write breakpoint output", err)
	}
	return nil
}

func (b *BkptWriter) Flush() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.w.Flush()
}

func formatCounts(c letter.Count) string {
	parts := make([]string, alphabet.Size)
	for i := 0; i < alphabet.Size; i++ {
		parts[i] = strconv.FormatUint(c[i], 10)
	}
	return strings.Join(parts, ":")
}

// TumourNormalHandler is the two-BWT comparator handler for "somatic"
// calling (spec.md §4.6.2), grounded on IntervalHandlerTumourNormal.cpp.
// Every range that exists only in A (tumour) or only in B (normal)
// propagates unconditionally; when a range survives in both, a breakpoint
// is reported once the shared-path signal has dropped low enough relative
// to the minimum-occurrence floor.
type TumourNormalHandler struct {
	MinOcc uint64
	Out    *BkptWriter

	// FsizeRatio scales A's occurrence floor in the non-shared-path test
	// (spec.md §4.6.2) to account for A and B BWTs built from differently
	// sized inputs. RunComparator sets it from the two BWTs' total letter
	// counts; zero is treated as 1 (no scaling).
	FsizeRatio float64
}

func (h *TumourNormalHandler) FoundInAOnly(pileNum int, countsSoFar, countsThisRange letter.Count, bwt []byte, rng *rangestore.Range, children *rangestore.ChildrenData, cycle int) error {
	return propagateAnyNonZero(countsThisRange, children)
}

func (h *TumourNormalHandler) FoundInBOnly(pileNum int, countsSoFar, countsThisRange letter.Count, bwt []byte, rng *rangestore.Range, children *rangestore.ChildrenData, cycle int) error {
	return propagateAnyNonZero(countsThisRange, children)
}

func (h *TumourNormalHandler) FoundInBoth(pileNum int,
	countsSoFarA, countsThisRangeA letter.Count, bwtA []byte, rngA *rangestore.Range, childrenA *rangestore.ChildrenData,
	countsSoFarB, countsThisRangeB letter.Count, bwtB []byte, rngB *rangestore.Range, childrenB *rangestore.ChildrenData,
	cycle int) error {

	minOccA := h.MinOcc
	if cycle >= 12 {
		meanSignalAOnly := (countsThisRangeA[1] + countsThisRangeA[2] + countsThisRangeA[3] + countsThisRangeA[5]) / 10
		if meanSignalAOnly > minOccA {
			minOccA = meanSignalAOnly
		}
	}
	minOccB := h.MinOcc
	if cycle >= 12 {
		meanSignalBOnly := (countsThisRangeB[1] + countsThisRangeB[2] + countsThisRangeB[3] + countsThisRangeB[5]) / 10
		if meanSignalBOnly > minOccB {
			minOccB = meanSignalBOnly
		}
	}

	fsizeRatio := h.FsizeRatio
	if fsizeRatio == 0 {
		fsizeRatio = 1
	}
	thresholdA := uint64(float64(minOccA) * fsizeRatio)

	var sharedPathsA, sharedPathsB, nonsharedPaths uint64
	for l := 0; l < alphabet.Size; l++ {
		if l == alphabet.TerminatorPile || l == alphabet.DontKnowPile {
			continue
		}
		a, b := countsThisRangeA[l], countsThisRangeB[l]
		switch {
		case a > 1 && b > 1:
			sharedPathsA++
			sharedPathsB++
		case a >= thresholdA && b == 0:
			nonsharedPaths++
		case b >= minOccB && a == 0:
			nonsharedPaths++
		}
	}

	termA := countsThisRangeA[alphabet.TerminatorPile]
	termB := countsThisRangeB[alphabet.TerminatorPile]
	if (termA > 0 && countsThisRangeA.Total()-termA == termA) ||
		(termB > 0 && countsThisRangeB.Total()-termB == termB) {
		nonsharedPaths = 0
	}

	breakpoint := nonsharedPaths > 0 && sharedPathsA < 3 && sharedPathsB < 3

	for l := 0; l < alphabet.Size; l++ {
		if l == alphabet.DontKnowPile {
			continue
		}
		a, b := countsThisRangeA[l], countsThisRangeB[l]
		if breakpoint {
			if a >= minOccA && b == 0 {
				childrenA.Propagate[l] = true
			}
			if b >= minOccB && a == 0 {
				childrenB.Propagate[l] = true
			}
		} else {
			if a >= minOccA {
				childrenA.Propagate[l] = true
			}
			if b >= minOccB {
				childrenB.Propagate[l] = true
			}
		}
	}

	if breakpoint && h.Out != nil {
		line := "BKPT " + rngA.Word + " " + formatCounts(countsThisRangeA) + " " + formatCounts(countsThisRangeB) +
			" " + itoa64(rngA.Pos) + " " + itoa64(rngB.Pos) + " " + itoa64(countsThisRangeA.Total()) + " " + itoa64(countsThisRangeB.Total())
		if err := h.Out.WriteLine(line); err != nil {
			return err
		}
		for l := range childrenA.Propagate {
			childrenA.Slots[l].IsBkptExtension = true
			childrenB.Slots[l].IsBkptExtension = true
		}
	}

	return nil
}

func propagateAnyNonZero(counts letter.Count, children *rangestore.ChildrenData) error {
	for l := 0; l < alphabet.Size; l++ {
		if l == alphabet.TerminatorPile || l == alphabet.DontKnowPile {
			continue
		}
		if counts[l] > 0 {
			children.Propagate[l] = true
		}
	}
	return nil
}

// SpliceHandler is the two-BWT comparator handler for splice-junction
// discovery (spec.md §4.6.3), grounded on IntervalHandlerSplice.cpp: A
// always propagates the letters whose A count clears MinOcc. Outside a
// breakpoint B propagates those same letters. When A and B share no letter
// and each side's largest count clears MinOcc, a junction is reported and
// B instead propagates the letters whose own B count clears MinOcc.
type SpliceHandler struct {
	MinOcc uint64
	Out    *BkptWriter
}

func (h *SpliceHandler) FoundInAOnly(pileNum int, countsSoFar, countsThisRange letter.Count, bwt []byte, rng *rangestore.Range, children *rangestore.ChildrenData, cycle int) error {
	return propagateAnyNonZero(countsThisRange, children)
}

func (h *SpliceHandler) FoundInBOnly(pileNum int, countsSoFar, countsThisRange letter.Count, bwt []byte, rng *rangestore.Range, children *rangestore.ChildrenData, cycle int) error {
	return propagateAnyNonZero(countsThisRange, children)
}

func (h *SpliceHandler) FoundInBoth(pileNum int,
	countsSoFarA, countsThisRangeA letter.Count, bwtA []byte, rngA *rangestore.Range, childrenA *rangestore.ChildrenData,
	countsSoFarB, countsThisRangeB letter.Count, bwtB []byte, rngB *rangestore.Range, childrenB *rangestore.ChildrenData,
	cycle int) error {

	sharedPath := false
	var maxSignalAOnly, maxSignalBOnly uint64
	for l := 0; l < alphabet.Size; l++ {
		a, b := countsThisRangeA[l], countsThisRangeB[l]
		if a > 0 && b > 0 {
			sharedPath = true
		}
		if a > 0 && a > maxSignalAOnly {
			maxSignalAOnly = a
		}
		if b > 0 && b > maxSignalBOnly {
			maxSignalBOnly = b
		}
	}

	breakpoint := !sharedPath && maxSignalAOnly >= h.MinOcc && maxSignalBOnly >= h.MinOcc

	for l := 0; l < alphabet.Size; l++ {
		if l == alphabet.DontKnowPile {
			continue
		}
		if countsThisRangeA[l] >= h.MinOcc {
			childrenA.Propagate[l] = true
		}
		if breakpoint {
			if countsThisRangeB[l] >= h.MinOcc {
				childrenB.Propagate[l] = true
			}
		} else if countsThisRangeA[l] >= h.MinOcc {
			childrenB.Propagate[l] = true
		}
	}

	if breakpoint && h.Out != nil {
		line := "BKPT " + rngA.Word + " " + formatCounts(countsThisRangeA) + " " + formatCounts(countsThisRangeB) +
			" " + itoa64(rngA.Pos) + " " + itoa64(rngB.Pos) + " " + itoa64(countsThisRangeA.Total()) + " " + itoa64(countsThisRangeB.Total())
		if err := h.Out.WriteLine(line); err != nil {
			return err
		}
		for l := range childrenA.Propagate {
			childrenA.Slots[l].IsBkptExtension = true
		}
		for l := range childrenB.Propagate {
			childrenB.Slots[l].IsBkptExtension = true
		}
	}

	return nil
}

func itoa64(v uint64) string {
	return strconv.FormatUint(v, 10)
}
