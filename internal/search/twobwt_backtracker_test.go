package search_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beetl-go/beetl/internal/alphabet"
	"github.com/beetl-go/beetl/internal/bwtio"
	"github.com/beetl-go/beetl/internal/bwttest"
	"github.com/beetl-go/beetl/internal/letter"
	"github.com/beetl-go/beetl/internal/rangestore"
	"github.com/beetl-go/beetl/internal/search"
)

// recordingHandler tracks how many times each classification fires and
// propagates every non-zero, non-terminator letter on both sides so the
// traversal runs to completion.
type recordingHandler struct {
	aOnly, bOnly, both int
}

func (h *recordingHandler) FoundInAOnly(pileNum int, countsSoFar, countsThisRange letter.Count, bwt []byte, rng *rangestore.Range, children *rangestore.ChildrenData, cycle int) error {
	h.aOnly++
	propagate(countsThisRange, children)
	return nil
}

func (h *recordingHandler) FoundInBOnly(pileNum int, countsSoFar, countsThisRange letter.Count, bwt []byte, rng *rangestore.Range, children *rangestore.ChildrenData, cycle int) error {
	h.bOnly++
	propagate(countsThisRange, children)
	return nil
}

func (h *recordingHandler) FoundInBoth(pileNum int,
	_, countsThisRangeA letter.Count, _ []byte, _ *rangestore.Range, childrenA *rangestore.ChildrenData,
	_, countsThisRangeB letter.Count, _ []byte, _ *rangestore.Range, childrenB *rangestore.ChildrenData,
	cycle int) error {
	h.both++
	propagate(countsThisRangeA, childrenA)
	propagate(countsThisRangeB, childrenB)
	return nil
}

func propagate(counts letter.Count, children *rangestore.ChildrenData) {
	for l := 1; l < alphabet.Size; l++ {
		if counts[l] > 0 {
			children.Propagate[l] = true
		}
	}
}

func TestTwoBwtBackTrackerJoinsOnSharedSequence(t *testing.T) {
	dir := t.TempDir()
	prefixA, err := bwttest.WritePiles(dir, "a", []string{"ACGTACGT"})
	require.NoError(t, err)
	prefixB, err := bwttest.WritePiles(dir, "b", []string{"ACGTACGT", "TTTTAAAA"})
	require.NoError(t, err)

	readersA, err := bwtio.OpenPiles(prefixA, false)
	require.NoError(t, err)
	defer bwtio.ClosePiles(readersA)
	readersB, err := bwtio.OpenPiles(prefixB, false)
	require.NoError(t, err)
	defer bwtio.ClosePiles(readersB)

	storeA, err := rangestore.New(t.TempDir(), nil, false)
	require.NoError(t, err)
	storeB, err := rangestore.New(t.TempDir(), nil, false)
	require.NoError(t, err)

	handler := &recordingHandler{}
	require.NoError(t, search.RunComparator(readersA, readersB, storeA, storeB, handler))

	assert.Greater(t, handler.both, 0, "identical sequence should yield shared paths")
	assert.Greater(t, handler.bOnly, 0, "B-only sequence content should surface as B-only classifications")
}
