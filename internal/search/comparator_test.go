package search_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beetl-go/beetl/internal/alphabet"
	"github.com/beetl-go/beetl/internal/letter"
	"github.com/beetl-go/beetl/internal/rangestore"
	"github.com/beetl-go/beetl/internal/search"
)

func TestTumourNormalPropagatesEveryLetterOutsideBreakpoint(t *testing.T) {
	h := &search.TumourNormalHandler{MinOcc: 2}
	countsA := letter.Count{0, 5, 3, 0, 0, 0}
	countsB := letter.Count{0, 5, 3, 0, 0, 0}
	var childrenA, childrenB rangestore.ChildrenData
	rngA := &rangestore.Range{Pos: 10, Num: 8, Word: "AC"}
	rngB := &rangestore.Range{Pos: 20, Num: 8, Word: "AC"}

	err := h.FoundInBoth(2, countsA, countsA, nil, rngA, &childrenA, countsB, countsB, nil, rngB, &childrenB, 5)
	require.NoError(t, err)

	assert.True(t, childrenA.Propagate[1])
	assert.True(t, childrenA.Propagate[2])
	assert.True(t, childrenB.Propagate[1])
	assert.True(t, childrenB.Propagate[2])
	assert.False(t, childrenA.Slots[1].IsBkptExtension)
}

func TestTumourNormalStrayOccurrenceBelowThresholdIsNotANonsharedPath(t *testing.T) {
	h := &search.TumourNormalHandler{MinOcc: 5}
	countsA := letter.Count{0, 1, 0, 0, 0, 0}
	countsB := letter.Count{0, 0, 0, 0, 0, 0}
	var childrenA, childrenB rangestore.ChildrenData
	rngA := &rangestore.Range{Pos: 10, Num: 1, Word: "AC"}
	rngB := &rangestore.Range{Pos: 20, Num: 0, Word: "AC"}

	require.NoError(t, h.FoundInBoth(2, countsA, countsA, nil, rngA, &childrenA, countsB, countsB, nil, rngB, &childrenB, 5))

	assert.False(t, childrenA.Propagate[1], "single stray occurrence below minOcc must not register a non-shared path")
	assert.False(t, childrenA.Slots[1].IsBkptExtension)
}

func TestTumourNormalSharedPathsAreCountedNotSummed(t *testing.T) {
	var out bytes.Buffer
	h := &search.TumourNormalHandler{MinOcc: 1}
	h.Out = search.NewBkptWriter(&out)

	// Pile 1 is shared with a high occurrence count on both sides; pile 2
	// is A-only. A sum-based sharedPaths tally would let pile 1's count of
	// 100 swamp the <3 breakpoint threshold and suppress the breakpoint;
	// a correct per-letter tally counts it once.
	countsA := letter.Count{0, 100, 5, 0, 0, 0}
	countsB := letter.Count{0, 100, 0, 0, 0, 0}
	var childrenA, childrenB rangestore.ChildrenData
	rngA := &rangestore.Range{Pos: 10, Num: 105, Word: "AC"}
	rngB := &rangestore.Range{Pos: 20, Num: 100, Word: "AC"}

	require.NoError(t, h.FoundInBoth(2, countsA, countsA, nil, rngA, &childrenA, countsB, countsB, nil, rngB, &childrenB, 5))
	require.NoError(t, h.Out.Flush())

	assert.True(t, strings.HasPrefix(out.String(), "BKPT AC "))
}

func TestTumourNormalReportsBreakpointWhenSharedSignalLow(t *testing.T) {
	var out bytes.Buffer
	h := &search.TumourNormalHandler{MinOcc: 1}
	h.Out = search.NewBkptWriter(&out)

	countsA := letter.Count{0, 4, 0, 0, 0, 0}
	countsB := letter.Count{0, 0, 0, 0, 0, 0}
	var childrenA, childrenB rangestore.ChildrenData
	rngA := &rangestore.Range{Pos: 10, Num: 4, Word: "AC"}
	rngB := &rangestore.Range{Pos: 20, Num: 0, Word: "AC"}

	require.NoError(t, h.FoundInBoth(2, countsA, countsA, nil, rngA, &childrenA, countsB, countsB, nil, rngB, &childrenB, 5))
	require.NoError(t, h.Out.Flush())

	assert.True(t, strings.HasPrefix(out.String(), "BKPT AC "))
	assert.True(t, childrenA.Slots[1].IsBkptExtension)
}

func TestSpliceNoBreakpointWhenPathsShared(t *testing.T) {
	h := &search.SpliceHandler{MinOcc: 2}
	countsA := letter.Count{0, 3, 0, 0, 0, 0}
	countsB := letter.Count{0, 3, 0, 0, 0, 0}
	var childrenA, childrenB rangestore.ChildrenData
	rngA := &rangestore.Range{Pos: 1, Num: 3, Word: "A"}
	rngB := &rangestore.Range{Pos: 2, Num: 3, Word: "A"}

	require.NoError(t, h.FoundInBoth(1, countsA, countsA, nil, rngA, &childrenA, countsB, countsB, nil, rngB, &childrenB, 3))

	assert.True(t, childrenA.Propagate[1])
	assert.True(t, childrenB.Propagate[1])
	assert.False(t, childrenA.Slots[1].IsBkptExtension)
}

func TestSpliceBreakpointWhenPathsDiverge(t *testing.T) {
	var out bytes.Buffer
	h := &search.SpliceHandler{MinOcc: 2}
	h.Out = search.NewBkptWriter(&out)

	countsA := letter.Count{0, 5, 0, 0, 0, 0}
	countsB := letter.Count{0, 0, 3, 0, 0, 0}
	var childrenA, childrenB rangestore.ChildrenData
	rngA := &rangestore.Range{Pos: 1, Num: 5, Word: "A"}
	rngB := &rangestore.Range{Pos: 2, Num: 3, Word: "A"}

	require.NoError(t, h.FoundInBoth(1, countsA, countsA, nil, rngA, &childrenA, countsB, countsB, nil, rngB, &childrenB, 3))
	require.NoError(t, h.Out.Flush())

	assert.Contains(t, out.String(), "BKPT A ")
	assert.True(t, childrenA.Propagate[1])
	assert.True(t, childrenB.Propagate[2])
	assert.False(t, childrenB.Propagate[1]) // B's own zero count at pile 1 does not propagate
}

func TestSpliceDoesNotPropagateALetterBelowMinOcc(t *testing.T) {
	h := &search.SpliceHandler{MinOcc: 5}
	countsA := letter.Count{0, 3, 0, 0, 0, 0}
	countsB := letter.Count{0, 3, 0, 0, 0, 0}
	var childrenA, childrenB rangestore.ChildrenData
	rngA := &rangestore.Range{Pos: 1, Num: 3, Word: "A"}
	rngB := &rangestore.Range{Pos: 2, Num: 3, Word: "A"}

	require.NoError(t, h.FoundInBoth(1, countsA, countsA, nil, rngA, &childrenA, countsB, countsB, nil, rngB, &childrenB, 3))

	assert.False(t, childrenA.Propagate[1], "A's count of 3 is below MinOcc=5 and must not propagate")
	assert.False(t, childrenB.Propagate[1])
}

func TestFoundInAOnlyNeverPropagatesTerminator(t *testing.T) {
	h := &search.TumourNormalHandler{MinOcc: 1}
	counts := letter.Count{2, 1, 0, 0, 0, 0}
	var children rangestore.ChildrenData
	require.NoError(t, h.FoundInAOnly(1, counts, counts, nil, &rangestore.Range{}, &children, 1))
	assert.False(t, children.Propagate[alphabet.TerminatorPile])
	assert.True(t, children.Propagate[1])
}
