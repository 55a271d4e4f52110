package search

import (
	"bufio"
	"io"
	"sort"
	"strconv"
	"sync"

	"github.com/beetl-go/beetl/internal/alphabet"
	"github.com/beetl-go/beetl/internal/bioerr"
	"github.com/beetl-go/beetl/internal/bwtio"
	"github.com/beetl-go/beetl/internal/letter"
	"github.com/beetl-go/beetl/internal/rangestore"
)

// ErrorInfo records one putative sequencing error discovered by the
// corrector (spec.md §4.6.4), grounded on the BwtCorrectorDataForInterval
// fields in ErrorCorrectionRange.hh: FirstCycle/LastCycle
// bound the span of cycles during which the error's interval kept
// resurfacing, Corrector accumulates the believed-correct replacement
// letters back-to-front, and SeqNum/ReadEnd are filled in once the read
// carrying the error terminates.
type ErrorInfo struct {
	FirstCycle int
	LastCycle  int
	Corrector  string
	SeqNum     int64
	ReadEnd    int
}

// ErrorStore is the shared map from global BWT position to ErrorInfo
// (grounded on the errorStore_ member of BwtCorrectorIntervalHandler),
// guarded by a mutex since multiple pile workers may update it concurrently.
type ErrorStore struct {
	mu sync.Mutex
	m  map[uint64]*ErrorInfo
}

// NewErrorStore returns an empty store.
func NewErrorStore() *ErrorStore {
	return &ErrorStore{m: make(map[uint64]*ErrorInfo)}
}

// Get returns the ErrorInfo at pos and whether it was found.
func (s *ErrorStore) Get(pos uint64) (*ErrorInfo, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.m[pos]
	return e, ok
}

// GetOrCreate returns the ErrorInfo at pos, creating it via newErr if absent,
// and reports whether it already existed.
func (s *ErrorStore) GetOrCreate(pos uint64, newErr *ErrorInfo) (*ErrorInfo, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.m[pos]; ok {
		return e, true
	}
	s.m[pos] = newErr
	return newErr, false
}

// Len reports the number of recorded errors.
func (s *ErrorStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.m)
}

// errorRecord pairs a BWT position with its ErrorInfo, for reporting.
type errorRecord struct {
	Pos  uint64
	Info *ErrorInfo
}

// All returns every recorded error, ordered by BWT position.
func (s *ErrorStore) All() []errorRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]errorRecord, 0, len(s.m))
	for pos, info := range s.m {
		out = append(out, errorRecord{Pos: pos, Info: info})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Pos < out[j].Pos })
	return out
}

// EmitErrorReport writes one "ERR <pos> <firstCycle> <lastCycle> <corrector>
// <seqNum>" line per recorded error, ordered by BWT position.
func EmitErrorReport(w io.Writer, store *ErrorStore) error {
	bw := bufio.NewWriter(w)
	for _, rec := range store.All() {
		if _, err := bw.WriteString("ERR "); err != nil {
			return bioerr.E(bioerr.IoError, "write error report", err)
		}
		fields := []string{
			strconv.FormatUint(rec.Pos, 10),
			strconv.Itoa(rec.Info.FirstCycle),
			strconv.Itoa(rec.Info.LastCycle),
			rec.Info.Corrector,
			strconv.FormatInt(rec.Info.SeqNum, 10),
		}
		for i, f := range fields {
			if i > 0 {
				if _, err := bw.WriteString(" "); err != nil {
					return bioerr.E(bioerr.IoError, "write error report", err)
				}
			}
			if _, err := bw.WriteString(f); err != nil {
				return bioerr.E(bioerr.IoError, "write error report", err)
			}
		}
		if _, err := bw.WriteString("\n"); err != nil {
			return bioerr.E(bioerr.IoError, "write error report", err)
		}
	}
	return bw.Flush()
}

// BwtCorrectorHandler is the single-BWT error-correction interval handler
// (spec.md §4.6.4), grounded on BwtCorrectorIntervalHandler.cpp: Default
// intervals no wider than MinOccurrences never propagate; once a cycle has scanned at
// least MinWitnessLength letters, an interval with one dominant letter and
// at least one minority letter marks the minority positions as putative
// errors and stages the dominant letter's extension as their corrector.
type BwtCorrectorHandler struct {
	SingleBWTHandler

	Store            *ErrorStore
	MinWitnessLength int
	MinOccurrences   uint64
}

func (h *BwtCorrectorHandler) FoundInAOnly(pileNum int, countsSoFar, countsThisRange letter.Count, bwt []byte, rng *rangestore.Range, children *rangestore.ChildrenData, cycle int) error {
	payload, _ := rng.Payload.(*rangestore.ErrorCorrectionPayload)
	if payload == nil {
		payload = &rangestore.ErrorCorrectionPayload{}
	}

	children.Propagate[alphabet.TerminatorPile] = false
	for l := 1; l < alphabet.Size; l++ {
		children.Propagate[l] = countsThisRange[l] > 0
	}

	if payload.Type == rangestore.Default && rng.Num <= h.MinOccurrences {
		for l := range children.Propagate {
			children.Propagate[l] = false
		}
		return nil
	}

	if cycle < h.MinWitnessLength {
		return nil
	}

	if payload.Type == rangestore.Error {
		h.propagateErrorInterval(countsSoFar, bwt, payload, children, cycle)
		return nil
	}

	if correct, ok := h.defaultDetermineErrors(countsThisRange); ok {
		h.recordErrors(countsSoFar, bwt, correct, children, cycle)
	}

	if payload.Type == rangestore.Corrector {
		h.propagateCorrectorInterval(countsThisRange, payload, children)
	}
	return nil
}

// defaultDetermineErrors reports whether exactly one letter clears
// MinOccurrences (the believed-correct one) while at least one other letter
// is present at all (evidence of an error).
func (h *BwtCorrectorHandler) defaultDetermineErrors(counts letter.Count) (int, bool) {
	hasErrors := false
	correct := -1
	for i := 1; i < alphabet.Size; i++ {
		if counts[i] >= h.MinOccurrences {
			if correct >= 0 {
				return 0, false
			}
			correct = i
		} else if counts[i] > 0 {
			hasErrors = true
		}
	}
	if correct < 0 || !hasErrors {
		return 0, false
	}
	return correct, true
}

// propagateErrorInterval re-tags an already-flagged error interval's
// non-dollar extensions with the same error type, carrying forward the
// BWT positions being tracked; a dollar means the carrying read terminates
// here, so its ErrorInfo gets its sequence number and read end filled in.
func (h *BwtCorrectorHandler) propagateErrorInterval(countsSoFar letter.Count, bwt []byte, payload *rangestore.ErrorCorrectionPayload, children *rangestore.ChildrenData, cycle int) {
	dollarCount := int64(0)
	for relPos, c := range bwt {
		if c == alphabet.TerminatorChar {
			if relPos < len(payload.ErrorBWTPositions) {
				if e, ok := h.Store.Get(payload.ErrorBWTPositions[relPos]); ok && e.SeqNum == -1 {
					e.SeqNum = int64(countsSoFar[alphabet.TerminatorPile]) + dollarCount
					e.ReadEnd = cycle
				}
			}
			dollarCount++
			continue
		}
		for i := 1; i < alphabet.Size; i++ {
			sub := childPayload(children, i)
			sub.Type = rangestore.Error
			if c == alphabet.Letters[i] && relPos < len(payload.ErrorBWTPositions) {
				sub.ErrorBWTPositions = append(sub.ErrorBWTPositions, payload.ErrorBWTPositions[relPos])
			}
		}
	}
}

// recordErrors scans bwt for letters other than the believed-correct one
// (and the terminator), creating or refreshing an ErrorInfo per putative
// error position and tagging the corresponding child intervals.
func (h *BwtCorrectorHandler) recordErrors(countsSoFar letter.Count, bwt []byte, correct int, children *rangestore.ChildrenData, cycle int) {
	base := countsSoFar.Total()
	for relPos, c := range bwt {
		if c == alphabet.Letters[correct] || c == alphabet.TerminatorChar {
			continue
		}
		errBwtPos := base + uint64(relPos)
		putativePile := alphabet.WhichPile(c)

		if _, existed := h.Store.GetOrCreate(errBwtPos, &ErrorInfo{
			FirstCycle: cycle,
			LastCycle:  cycle,
			Corrector:  string(alphabet.Letters[correct]),
			SeqNum:     -1,
		}); !existed {
			errSub := childPayload(children, putativePile)
			errSub.Type = rangestore.Error
			errSub.ErrorBWTPositions = append(errSub.ErrorBWTPositions, errBwtPos)

			correctSub := childPayload(children, correct)
			correctSub.Type = rangestore.Corrector
			correctSub.CorrectionBWTPositions = append(correctSub.CorrectionBWTPositions, errBwtPos)
		} else if e, ok := h.Store.Get(errBwtPos); ok {
			e.LastCycle = cycle
		}
	}
}

// propagateCorrectorInterval checks whether one backward extension
// dominates the others; if so, that extension keeps the corrector type and
// every error object tracked here has its corrector string extended.
func (h *BwtCorrectorHandler) propagateCorrectorInterval(countsThisRange letter.Count, payload *rangestore.ErrorCorrectionPayload, children *rangestore.ChildrenData) {
	var rangeLength uint64
	for i := 1; i < alphabet.Size; i++ {
		rangeLength += countsThisRange[i]
	}
	dominator := 0
	for i := 1; i < alphabet.Size; i++ {
		if countsThisRange[i] >= h.MinOccurrences {
			dominator = i
		}
	}
	if dominator == 0 || rangeLength == 0 {
		return
	}
	sub := childPayload(children, dominator)
	sub.Type = rangestore.Corrector
	for _, pos := range payload.CorrectionBWTPositions {
		if e, ok := h.Store.Get(pos); ok {
			e.Corrector += string(alphabet.Letters[dominator])
		}
		sub.CorrectionBWTPositions = append(sub.CorrectionBWTPositions, pos)
	}
}

func childPayload(children *rangestore.ChildrenData, l int) *rangestore.ErrorCorrectionPayload {
	p, ok := children.Slots[l].Payload.(*rangestore.ErrorCorrectionPayload)
	if !ok {
		p = &rangestore.ErrorCorrectionPayload{}
		children.Slots[l].Payload = p
	}
	return p
}

// SeedCorrector queues one cycle-0 Default-type range per (pile,letter)
// covering that pile's entire span, mirroring seedWholeBWT: error
// correction starts with no prior knowledge of where the errors are.
func SeedCorrector(store *rangestore.Store, totals, cumulative letter.EachPile) error {
	store.SetCycleNum(0)
	for p := 1; p < alphabet.Size; p++ {
		start := cumulative.StartOfPile(p)
		width := totals[p]
		for l := 0; l < alphabet.Size; l++ {
			if width[l] == 0 {
				continue
			}
			rng := &rangestore.Range{
				Pos:     start[l],
				Num:     width[l],
				Payload: &rangestore.ErrorCorrectionPayload{Type: rangestore.Default},
			}
			if err := store.AddRange(rng, l, p, 0); err != nil {
				return err
			}
		}
	}
	return store.Clear()
}

// RunCorrector drives the single-BWT cycle loop to completion (spec.md
// §4.6.4), populating handler.Store with one ErrorInfo per putative error
// discovered along the way.
func RunCorrector(readers [alphabet.Size]*bwtio.Reader, store *rangestore.Store, handler *BwtCorrectorHandler) error {
	totals, err := bwtio.ScanTotalCounts(readers)
	if err != nil {
		return err
	}
	cumulative := totals.Cumulative()

	if err := SeedCorrector(store, totals, cumulative); err != nil {
		return err
	}

	for cycle := 1; ; cycle++ {
		for pile := 1; pile < alphabet.Size; pile++ {
			reader := readers[pile]
			if err := reader.Rewind(); err != nil {
				return err
			}
			bt := &OneBwtBackTracker{
				Store:   store,
				Reader:  reader,
				Handler: handler,
				Pile:    pile,
				Cycle:   cycle,
			}
			if _, err := bt.Run(cumulative.StartOfPile(pile)); err != nil {
				return err
			}
		}
		pending := store.PendingWrites()
		if err := store.Clear(); err != nil {
			return err
		}
		if pending == 0 {
			break
		}
	}
	return nil
}
