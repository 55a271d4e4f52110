package bwttest_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/beetl-go/beetl/internal/alphabet"
	"github.com/beetl-go/beetl/internal/bwttest"
)

// TestPilesKnownBWT checks bwttest.Piles against a hand-worked BWT: the
// sorted rotations of "ACGT$" are $ACGT, ACGT$, CGT$A, GT$AC, T$ACG, whose
// last column is "T$ACG" - bucketed by each row's first character that's
// pile '$' -> "T", pile 'A' -> "$", pile 'C' -> "A", pile 'G' -> "C",
// pile 'T' -> "G".
func TestPilesKnownBWT(t *testing.T) {
	piles := bwttest.Piles([]string{"ACGT"})
	assert.Equal(t, []byte("T"), piles[alphabet.WhichPile('$')])
	assert.Equal(t, []byte("$"), piles[alphabet.WhichPile('A')])
	assert.Equal(t, []byte("A"), piles[alphabet.WhichPile('C')])
	assert.Equal(t, []byte("C"), piles[alphabet.WhichPile('G')])
	assert.Equal(t, []byte("G"), piles[alphabet.WhichPile('T')])
	assert.Empty(t, piles[alphabet.WhichPile('N')])
}

// TestPilesDuplicateSequences exercises the "two identical rotations can
// appear with no explicit tie-break" case (spec.md §8 scenario 2).
func TestPilesDuplicateSequences(t *testing.T) {
	piles := bwttest.Piles([]string{"AAAA", "AAAA"})
	total := 0
	for _, p := range piles {
		total += len(p)
	}
	assert.Equal(t, 10, total) // 2 sequences * 5 rotations each
	// Every rotation of "AAAA$" other than the one starting at the $ is all
	// A's before it; the terminator pile always holds the two "full word"
	// rows' last character, which is the base preceding the wraparound $.
	assert.Len(t, piles[alphabet.WhichPile('$')], 2)
}
