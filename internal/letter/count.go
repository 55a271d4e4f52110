// Package letter implements the cumulative letter-count vectors used
// throughout backward search: per-position counts within a single pile, and
// the 6x6 matrix of counts across all piles.
package letter

import "github.com/beetl-go/beetl/internal/alphabet"

// Count is a vector of per-letter occurrence counts, one entry per pile.
type Count [alphabet.Size]uint64

// Clear zeroes every entry.
func (c *Count) Clear() {
	*c = Count{}
}

// Add accumulates other into c.
func (c *Count) Add(other Count) {
	for i := range c {
		c[i] += other[i]
	}
}

// Total returns the sum across all piles.
func (c Count) Total() uint64 {
	var total uint64
	for _, v := range c {
		total += v
	}
	return total
}

// AddSubstring increments the pile entries for each character of s, folding
// any character outside the alphabet onto the N-pile.
func (c *Count) AddSubstring(s []byte) {
	for _, ch := range s {
		c[alphabet.WhichPile(ch)]++
	}
}

// EachPile is the per-pile letter-count matrix: EachPile[p][l] is the count
// of letter l seen within pile p.
type EachPile [alphabet.Size]Count

// Clear zeroes every pile's counts.
func (e *EachPile) Clear() {
	*e = EachPile{}
}

// Cumulative returns a new matrix where row i holds the running sum of rows
// 0..i of e. This gives the C-array of backward search: Cumulative()[p][l]
// is the number of occurrences of letter l in piles 0..p.
func (e EachPile) Cumulative() EachPile {
	var out EachPile
	out[0] = e[0]
	for i := 1; i < alphabet.Size; i++ {
		out[i] = out[i-1]
		out[i].Add(e[i])
	}
	return out
}

// StartOfPile returns the per-letter cumulative count over piles 0..p-1:
// entry l is where the l-children of pile p's first row start within pile
// l. Its Total() is the global starting BWT position of pile p.
func (cumulative EachPile) StartOfPile(p int) Count {
	if p == 0 {
		return Count{}
	}
	return cumulative[p-1]
}
