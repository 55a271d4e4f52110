package rangestore

import (
	"encoding/binary"

	farm "github.com/dgryski/go-farm"
	"github.com/biogo/store/llrb"
)

// dedupKey orders known-range entries by hash, then by the fields that
// went into it, so llrb.Tree.Get can confirm an exact match rather than
// merely a hash collision.
type dedupKey struct {
	hash     uint64
	pos, num uint64
	word     string
}

func (k dedupKey) Compare(c llrb.Comparable) int {
	o := c.(dedupKey)
	switch {
	case k.hash != o.hash:
		if k.hash < o.hash {
			return -1
		}
		return 1
	case k.pos != o.pos:
		if k.pos < o.pos {
			return -1
		}
		return 1
	case k.num != o.num:
		if k.num < o.num {
			return -1
		}
		return 1
	default:
		if k.word < o.word {
			return -1
		}
		if k.word > o.word {
			return 1
		}
		return 0
	}
}

func newDedupKey(r *Range) dedupKey {
	buf := make([]byte, 16+len(r.Word))
	binary.LittleEndian.PutUint64(buf[0:8], r.Pos)
	binary.LittleEndian.PutUint64(buf[8:16], r.Num)
	copy(buf[16:], r.Word)
	return dedupKey{hash: farm.Hash64(buf), pos: r.Pos, num: r.Num, word: r.Word}
}

// dedupSet tracks the ranges already queued into one next-cycle bucket, so
// isRangeKnown (spec.md §4.3, §3 "at most one active range per handler per
// cycle") can be checked in O(log n) instead of a linear bucket scan.
type dedupSet struct {
	tree llrb.Tree
}

func (d *dedupSet) has(r *Range) bool {
	return d.tree.Get(newDedupKey(r)) != nil
}

func (d *dedupSet) add(r *Range) {
	d.tree.Insert(newDedupKey(r))
}
