package search

import (
	"bufio"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/beetl-go/beetl/internal/alphabet"
	"github.com/beetl-go/beetl/internal/bioerr"
	"github.com/beetl-go/beetl/internal/bwtio"
	"github.com/beetl-go/beetl/internal/letter"
	"github.com/beetl-go/beetl/internal/rangestore"
)

// KmerSearchItem is one query's progress through the backward search
// (spec.md §3): Reversed is the original k-mer read back to front (the
// form actually matched, cycle by cycle, against BWT letters), Position
// and Count are resolved once the query's range stabilises, and
// OriginalIndex records its place in the input so results can be emitted
// back in that order.
type KmerSearchItem struct {
	Reversed      string
	Position      uint64
	Count         uint64
	OriginalIndex int
}

// byReversed sorts kmerList2-equivalent slices lexicographically on the
// reversed k-mer, grouping queries that share a backward-search path.
type byReversed []KmerSearchItem

func (s byReversed) Len() int           { return len(s) }
func (s byReversed) Less(i, j int) bool { return s[i].Reversed < s[j].Reversed }
func (s byReversed) Swap(i, j int)      { s[i], s[j] = s[j], s[i] }

// ReadKmerQueries parses the query-file format (spec.md §6): one
// whitespace-delimited token per line, first token is the k-mer. Blank and
// 1-mer lines are ignored.
func ReadKmerQueries(r io.Reader) ([]string, error) {
	var kmers []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		kmer := fields[0]
		if len(kmer) < 2 {
			continue
		}
		if err := validateKmer(kmer); err != nil {
			return nil, err
		}
		kmers = append(kmers, kmer)
	}
	if err := sc.Err(); err != nil {
		return nil, bioerr.E(bioerr.BadInput, "read kmer query file", err)
	}
	return kmers, nil
}

func validateKmer(kmer string) error {
	for _, c := range []byte(kmer) {
		if !alphabet.IsKnown(c) || c == alphabet.TerminatorChar {
			return bioerr.E(bioerr.BadInput, "kmer contains letter outside alphabet", kmer)
		}
	}
	return nil
}

// NewKmerSearchItems builds the sorted, reversed item list from raw query
// strings (spec.md §3 k-mer search item lifecycle).
func NewKmerSearchItems(kmers []string) []KmerSearchItem {
	items := make([]KmerSearchItem, len(kmers))
	for i, k := range kmers {
		items[i] = KmerSearchItem{Reversed: reverseString(k), OriginalIndex: i}
	}
	sort.Sort(byReversed(items))
	return items
}

func reverseString(s string) string {
	b := []byte(s)
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
	return string(b)
}

// KmerLocator is the k-mer locator interval handler (spec.md §4.6.1),
// grounded on KmerSearchIntervalHandler.cpp: it partitions the
// [start,end) slice of Items carried by each range's payload by the next
// letter to consume, emits a resolved (position,count) for queries that
// complete this cycle, and stages child sub-slices for the rest.
type KmerLocator struct {
	SingleBWTHandler
	Items []KmerSearchItem
}

func (h *KmerLocator) FoundInAOnly(pileNum int, countsSoFar, countsThisRange letter.Count, bwt []byte, rng *rangestore.Range, children *rangestore.ChildrenData, cycle int) error {
	payload, ok := rng.Payload.(*rangestore.KmerSearchPayload)
	if !ok {
		return bioerr.E(bioerr.CorruptBwt, "kmer search range missing payload")
	}
	start, end := payload.Start, payload.End
	if start >= end {
		return bioerr.E(bioerr.CorruptBwt, "kmer search range has empty slice")
	}

	lastPile := 0
	lastPileEnd := start
	for k := start; k < end; k++ {
		item := &h.Items[k]
		kmer := item.Reversed
		if len(kmer) == cycle {
			item.Position = rng.Pos
			item.Count = rng.Num
			lastPileEnd = k + 1
			continue
		}
		pile := alphabet.WhichPile(kmer[cycle])
		children.Propagate[pile] = true
		slotPayload, ok := children.Slots[pile].Payload.(*rangestore.KmerSearchPayload)
		if !ok {
			slotPayload = &rangestore.KmerSearchPayload{}
			children.Slots[pile].Payload = slotPayload
		}
		if pile != lastPile {
			slotPayload.Start = lastPileEnd
		}
		slotPayload.End = k + 1
		lastPile = pile
		lastPileEnd = k + 1
	}
	return nil
}

// SeedKmerSearch partitions items (already reversed and sorted) into the
// first driven cycle's ranges (cycle 2, since two letters are already
// matched) by their first two reversed letters (the last two
// letters of the original k-mer), mirroring SearchUsingBacktracker.cpp's
// startup loop: bucket (toPile=j, fromPile=i) gets items whose reversed
// form starts with alphabet[i], alphabet[j], seeded at the BWT position
// where pile i's j-column begins.
func SeedKmerSearch(store *rangestore.Store, items []KmerSearchItem, cumulative letter.EachPile) error {
	store.SetCycleNum(0)
	end := 0
	for i := 1; i < alphabet.Size; i++ {
		for j := 1; j < alphabet.Size; j++ {
			start := end
			for end < len(items) &&
				len(items[end].Reversed) >= 2 &&
				alphabet.WhichPile(items[end].Reversed[0]) == i &&
				alphabet.WhichPile(items[end].Reversed[1]) == j {
				end++
			}
			if start == end {
				continue
			}
			pos := cumulative.StartOfPile(i)[j]
			width := cumulative[i][j] - cumulative[i-1][j]
			if width == 0 {
				continue
			}
			rng := &rangestore.Range{
				Pos:     pos,
				Num:     width,
				Payload: &rangestore.KmerSearchPayload{Start: start, End: end},
			}
			if err := store.AddRange(rng, j, i, 0); err != nil {
				return err
			}
		}
	}
	return store.Clear()
}

// EmitResults writes one "<kmer> <positionInBwt> <count>" line per query,
// in original input order (spec.md §6 output format).
func EmitResults(w io.Writer, originalKmers []string, items []KmerSearchItem) error {
	byIndex := make([]*KmerSearchItem, len(items))
	for i := range items {
		byIndex[items[i].OriginalIndex] = &items[i]
	}
	bw := bufio.NewWriter(w)
	for i, kmer := range originalKmers {
		item := byIndex[i]
		if _, err := bw.WriteString(kmer); err != nil {
			return bioerr.E(bioerr.IoError, "write result", err)
		}
		if _, err := bw.WriteString(" "); err != nil {
			return bioerr.E(bioerr.IoError, "write result", err)
		}
		if err := writeUint(bw, item.Position); err != nil {
			return err
		}
		if _, err := bw.WriteString(" "); err != nil {
			return bioerr.E(bioerr.IoError, "write result", err)
		}
		if err := writeUint(bw, item.Count); err != nil {
			return err
		}
		if _, err := bw.WriteString("\n"); err != nil {
			return bioerr.E(bioerr.IoError, "write result", err)
		}
	}
	return bw.Flush()
}

func writeUint(w io.Writer, v uint64) error {
	_, err := io.WriteString(w, strconv.FormatUint(v, 10))
	return err
}

// RunKmerSearch drives the cycle loop to completion (spec.md §2, §4.5)
// over one BWT's piles, resolving every item's Position/Count in place.
func RunKmerSearch(readers [alphabet.Size]*bwtio.Reader, store *rangestore.Store, items []KmerSearchItem) error {
	totals, err := bwtio.ScanTotalCounts(readers)
	if err != nil {
		return err
	}
	cumulative := totals.Cumulative()

	if err := SeedKmerSearch(store, items, cumulative); err != nil {
		return err
	}

	handler := &KmerLocator{Items: items}
	// The seeded ranges already match two letters, so the first driven
	// cycle is cycle 2.
	for cycle := 2; ; cycle++ {
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
