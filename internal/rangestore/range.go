// Package rangestore implements the external, double-buffered queue of
// pending backward-search intervals (spec.md §4.3, §4.4): one bucket file
// per (pile, fromLetter) pair, read in the order they were written and
// written to the next cycle's buckets as the current cycle's handlers
// propagate.
package rangestore

import (
	"io"

	"github.com/beetl-go/beetl/internal/alphabet"
)

// IntervalType distinguishes the three kinds of error-correction range
// (spec.md §4.6.4).
type IntervalType uint8

const (
	Default IntervalType = iota
	Corrector
	Error
)

// Payload is implemented by the handler-specific fields that ride along
// with a Range (spec.md §4.4): KmerSearchPayload, ErrorCorrectionPayload,
// or nil for a basic range used by the comparator handlers.
type Payload interface {
	writeTo(w io.Writer) error
	readFrom(r io.ByteReader) error
}

// Range is the core traversal unit (spec.md §3). Pos and Num delimit a
// contiguous slice of BWT positions; Word is the reversed suffix
// propagated so far (empty until a handler starts tracking it);
// IsBkptExtension marks a range descended from a breakpoint detection.
type Range struct {
	Pos             uint64
	Num             uint64
	Word            string
	IsBkptExtension bool
	Payload         Payload
}

const (
	flagHasWord         = 1 << 0
	flagIsBkptExtension = 1 << 1
)

// writeTo serialises r to w, delta-encoding Pos against *prevPos (the last
// Pos written to this bucket; monotonically non-decreasing per spec.md
// §3). *prevPos is updated to r.Pos on success.
func (r *Range) writeTo(w io.Writer, prevPos *uint64) error {
	if r.Pos < *prevPos {
		return errNonMonotonicPos
	}
	var flag byte
	if r.Word != "" {
		flag |= flagHasWord
	}
	if r.IsBkptExtension {
		flag |= flagIsBkptExtension
	}
	if _, err := w.Write([]byte{flag}); err != nil {
		return err
	}
	if err := writeVarint(w, r.Pos-*prevPos); err != nil {
		return err
	}
	if err := writeVarint(w, r.Num); err != nil {
		return err
	}
	if flag&flagHasWord != 0 {
		if err := writeVarint(w, uint64(len(r.Word))); err != nil {
			return err
		}
		if _, err := io.WriteString(w, r.Word); err != nil {
			return err
		}
	}
	if r.Payload != nil {
		if err := r.Payload.writeTo(w); err != nil {
			return err
		}
	}
	*prevPos = r.Pos
	return nil
}

// readFrom deserialises one Range from r, reversing writeTo. newPayload,
// if non-nil, constructs the zero-value payload to decode into (the caller
// knows the bucket's variant ahead of time; the wire format itself carries
// no type tag, matching the range store's generic, handler-supplied
// writeTo/readFrom hooks - spec.md §4.3).
func readFrom(r io.ByteReader, prevPos *uint64, newPayload func() Payload) (*Range, error) {
	flagByte, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	delta, err := readVarint(r)
	if err != nil {
		return nil, err
	}
	num, err := readVarint(r)
	if err != nil {
		return nil, err
	}
	rng := &Range{
		Pos:             *prevPos + delta,
		Num:             num,
		IsBkptExtension: flagByte&flagIsBkptExtension != 0,
	}
	if flagByte&flagHasWord != 0 {
		n, err := readVarint(r)
		if err != nil {
			return nil, err
		}
		buf := make([]byte, n)
		for i := range buf {
			b, err := r.ReadByte()
			if err != nil {
				return nil, err
			}
			buf[i] = b
		}
		rng.Word = string(buf)
	}
	if newPayload != nil {
		p := newPayload()
		if err := p.readFrom(r); err != nil {
			return nil, err
		}
		rng.Payload = p
	}
	*prevPos = rng.Pos
	return rng, nil
}

// KmerSearchPayload is the k-mer locator's variant (spec.md §4.4): a
// half-open slice [Start,End) of the sorted reversed-kmer list identifying
// which queries belong to this range.
type KmerSearchPayload struct {
	Start, End int
}

func (p *KmerSearchPayload) writeTo(w io.Writer) error {
	if err := writeVarint(w, uint64(p.Start)); err != nil {
		return err
	}
	return writeVarint(w, uint64(p.End))
}

func (p *KmerSearchPayload) readFrom(r io.ByteReader) error {
	start, err := readVarint(r)
	if err != nil {
		return err
	}
	end, err := readVarint(r)
	if err != nil {
		return err
	}
	p.Start, p.End = int(start), int(end)
	return nil
}

// ErrorCorrectionPayload is the corrector's variant (spec.md §4.4, §4.6.4):
// the interval's type plus the BWT positions of error/corrector letters
// awaiting propagation.
type ErrorCorrectionPayload struct {
	Type                   IntervalType
	CorrectionBWTPositions []uint64
	ErrorBWTPositions      []uint64
}

func (p *ErrorCorrectionPayload) writeTo(w io.Writer) error {
	if _, err := w.Write([]byte{byte(p.Type)}); err != nil {
		return err
	}
	if err := writeUint64Slice(w, p.CorrectionBWTPositions); err != nil {
		return err
	}
	return writeUint64Slice(w, p.ErrorBWTPositions)
}

func (p *ErrorCorrectionPayload) readFrom(r io.ByteReader) error {
	b, err := r.ReadByte()
	if err != nil {
		return err
	}
	p.Type = IntervalType(b)
	if p.CorrectionBWTPositions, err = readUint64Slice(r); err != nil {
		return err
	}
	if p.ErrorBWTPositions, err = readUint64Slice(r); err != nil {
		return err
	}
	return nil
}

func writeUint64Slice(w io.Writer, xs []uint64) error {
	if err := writeVarint(w, uint64(len(xs))); err != nil {
		return err
	}
	for _, x := range xs {
		if err := writeVarint(w, x); err != nil {
			return err
		}
	}
	return nil
}

func readUint64Slice(r io.ByteReader) ([]uint64, error) {
	n, err := readVarint(r)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}
	xs := make([]uint64, n)
	for i := range xs {
		v, err := readVarint(r)
		if err != nil {
			return nil, err
		}
		xs[i] = v
	}
	return xs, nil
}

// ChildrenData is the thread-local arena of alphabet.Size staging slots a
// handler uses to build up each letter's child range before it is
// committed to the next cycle's bucket (spec.md §4.4, §9 "arena for
// children data"), avoiding one allocation per child per range.
type ChildrenData struct {
	Slots     [alphabet.Size]Range
	Propagate [alphabet.Size]bool
}

// Reset clears every slot and propagation flag for reuse on the next range.
func (c *ChildrenData) Reset() {
	for i := range c.Slots {
		c.Slots[i] = Range{}
		c.Propagate[i] = false
	}
}
