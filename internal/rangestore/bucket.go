package rangestore

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/golang/snappy"

	"github.com/beetl-go/beetl/internal/bioerr"
)

var errNonMonotonicPos = errors.New("rangestore: range pos went backwards within a bucket")

// bucketKey identifies one spill file: the destination pile, the pile the
// range came from, and an optional handler-defined subset tag (spec.md
// §3 "Range-store bucket").
type bucketKey struct {
	toPile, fromPile, subset int
}

func bucketPath(dir string, cycle int, k bucketKey) string {
	if k.subset == 0 {
		return fmt.Sprintf("%s/cycle%d-%d-%d", dir, cycle, k.toPile, k.fromPile)
	}
	return fmt.Sprintf("%s/cycle%d-%d-%d-%d", dir, cycle, k.toPile, k.fromPile, k.subset)
}

// bucketWriter appends ranges to one bucket's spill file, snappy-framing
// the whole stream (the encoder itself is bit-packed already, but snappy
// still collapses the long runs of repeated small deltas typical of
// densely-populated buckets).
type bucketWriter struct {
	f       *os.File
	sw      *snappy.Writer
	prevPos uint64
}

func newBucketWriter(path string) (*bucketWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, bioerr.E(bioerr.IoError, "create range-store bucket", path, err)
	}
	return &bucketWriter{f: f, sw: snappy.NewBufferedWriter(f)}, nil
}

func (b *bucketWriter) append(r *Range) error {
	if err := r.writeTo(b.sw, &b.prevPos); err != nil {
		return bioerr.E(bioerr.IoError, "write range", err)
	}
	return nil
}

func (b *bucketWriter) close() error {
	if err := b.sw.Close(); err != nil {
		b.f.Close()
		return bioerr.E(bioerr.IoError, "flush range-store bucket", err)
	}
	return b.f.Close()
}

// bucketReader reads ranges back out of a spill file in the order they
// were appended (spec.md §4.3 setPortion/getRange).
type bucketReader struct {
	f       *os.File
	sr      *snappy.Reader
	br      *bufio.Reader
	prevPos uint64
}

func openBucketReader(path string) (*bucketReader, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil // empty bucket: never written this cycle
		}
		return nil, bioerr.E(bioerr.IoError, "open range-store bucket", path, err)
	}
	sr := snappy.NewReader(f)
	return &bucketReader{f: f, sr: sr, br: bufio.NewReader(sr)}, nil
}

// next returns the next range, or (nil, nil) at end of bucket.
func (b *bucketReader) next(newPayload func() Payload) (*Range, error) {
	rng, err := readFrom(b.br, &b.prevPos, newPayload)
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, bioerr.E(bioerr.CorruptBwt, "read range-store bucket", err)
	}
	return rng, nil
}

func (b *bucketReader) close() error {
	return b.f.Close()
}
