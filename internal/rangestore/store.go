package rangestore

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/beetl-go/beetl/internal/bioerr"
)

// Store is the external, double-buffered queue of pending ranges (spec.md
// §4.3). While cycle c is being driven, Store reads cycle c's buckets and
// writes cycle c+1's buckets; Clear retires cycle c and promotes c+1 to be
// the new "current".
type Store struct {
	dir          string
	newPayload   func() Payload
	dedupEnabled bool

	cycle int

	writers map[bucketKey]*bucketWriter
	dedup   map[bucketKey]*dedupSet

	curKey    bucketKey
	curReader *bucketReader

	pendingWrites int // ranges appended to next cycle's buckets since the last Clear
}

// New creates a Store rooted at dir. newPayload, if non-nil, is called to
// construct the zero-value payload for each range read back out - callers
// pass nil for basic ranges (comparator handlers), or a constructor
// returning *KmerSearchPayload / *ErrorCorrectionPayload for the other two
// variants. One Store handles exactly one variant: the wire format carries
// no type tag (spec.md §4.3).
func New(dir string, newPayload func() Payload, dedupEnabled bool) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, bioerr.E(bioerr.IoError, "create range-store directory", dir, err)
	}
	return &Store{
		dir:          dir,
		newPayload:   newPayload,
		dedupEnabled: dedupEnabled,
		writers:      make(map[bucketKey]*bucketWriter),
		dedup:        make(map[bucketKey]*dedupSet),
	}, nil
}

// SetCycleNum sets the store's current cycle number, used only for bucket
// filenames (spec.md §4.3 setCycleNum).
func (s *Store) SetCycleNum(c int) { s.cycle = c }

// CycleNum returns the store's current cycle number.
func (s *Store) CycleNum() int { return s.cycle }

// AddRange appends r to next cycle's bucket (toPile,fromPile,subset),
// opening that bucket's spill file on first use.
func (s *Store) AddRange(r *Range, toPile, fromPile, subset int) error {
	key := bucketKey{toPile, fromPile, subset}
	w, ok := s.writers[key]
	if !ok {
		var err error
		w, err = newBucketWriter(bucketPath(s.dir, s.cycle+1, key))
		if err != nil {
			return err
		}
		s.writers[key] = w
	}
	if err := w.append(r); err != nil {
		return err
	}
	if s.dedupEnabled {
		s.dedupFor(key).add(r)
	}
	s.pendingWrites++
	return nil
}

// PendingWrites reports how many ranges have been appended to next cycle's
// buckets since the last Clear - used by cycle drivers to decide whether
// the run has converged (spec.md §2 "When the next-cycle store is empty
// the run terminates").
func (s *Store) PendingWrites() int { return s.pendingWrites }

// IsRangeKnown reports whether an identical range has already been queued
// into next cycle's bucket (toPile,fromPile,subset). It is a no-op
// (always false) when deduplication is disabled - the default (spec.md
// §4.3).
func (s *Store) IsRangeKnown(r *Range, toPile, fromPile, subset int) bool {
	if !s.dedupEnabled {
		return false
	}
	key := bucketKey{toPile, fromPile, subset}
	return s.dedupFor(key).has(r)
}

func (s *Store) dedupFor(key bucketKey) *dedupSet {
	d, ok := s.dedup[key]
	if !ok {
		d = &dedupSet{}
		s.dedup[key] = d
	}
	return d
}

// SetPortion positions the store to read the current cycle's
// (toPile,fromPile,subset) bucket from its start. Call GetRange
// repeatedly afterwards to drain it.
func (s *Store) SetPortion(toPile, fromPile, subset int) error {
	if s.curReader != nil {
		if err := s.curReader.close(); err != nil {
			return err
		}
		s.curReader = nil
	}
	key := bucketKey{toPile, fromPile, subset}
	r, err := openBucketReader(bucketPath(s.dir, s.cycle, key))
	if err != nil {
		return err
	}
	s.curKey = key
	s.curReader = r
	return nil
}

// GetRange returns the next range from the bucket set up by SetPortion, or
// ok=false at end of bucket (or if the bucket was never written this
// cycle).
func (s *Store) GetRange() (rng *Range, ok bool, err error) {
	if s.curReader == nil {
		return nil, false, nil
	}
	rng, err = s.curReader.next(s.newPayload)
	if err != nil {
		return nil, false, err
	}
	if rng == nil {
		return nil, false, nil
	}
	return rng, true, nil
}

// Clear closes every open writer/reader, deletes all of the current
// cycle's bucket files, and advances the cycle pointer so next cycle's
// buckets become "current" (spec.md §4.3 clear()).
func (s *Store) Clear() error {
	if s.curReader != nil {
		s.curReader.close()
		s.curReader = nil
	}
	for _, w := range s.writers {
		if err := w.close(); err != nil {
			return err
		}
	}
	s.writers = make(map[bucketKey]*bucketWriter)
	s.dedup = make(map[bucketKey]*dedupSet)
	s.pendingWrites = 0

	pattern := filepath.Join(s.dir, cyclePrefix(s.cycle)+"-*")
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return bioerr.E(bioerr.IoError, "glob range-store cycle files", pattern, err)
	}
	for _, m := range matches {
		if err := os.Remove(m); err != nil {
			return bioerr.E(bioerr.IoError, "remove range-store bucket", m, err)
		}
	}
	s.cycle++
	return nil
}

func cyclePrefix(cycle int) string {
	return "cycle" + strconv.Itoa(cycle)
}
