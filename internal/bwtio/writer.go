package bwtio

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/beetl-go/beetl/internal/alphabet"
	"github.com/beetl-go/beetl/internal/bioerr"
)

// WriteRunLength RLE-encodes bwt (a slice of alphabet letters, not BWT pile
// files - the caller splits a full BWT string into per-pile substrings
// before calling this) into w, using the run format documented in format.go.
// It is the encode side of Reader's decode loop, used to build pile
// fixtures in tests: BWT construction proper (BCR) is out of scope
// (spec.md §1).
func WriteRunLength(w io.Writer, bwt []byte) error {
	i := 0
	for i < len(bwt) {
		c := bwt[i]
		code := alphabet.WhichPile(c)
		known := alphabet.IsKnown(c)
		j := i + 1
		if known {
			for j < len(bwt) && bwt[j] == c {
				j++
			}
		}
		runLen := j - i
		if !known {
			// Plain-ASCII fallback: emit one escape record for this single
			// unknown byte (callers needing longer literal runs can build
			// directly against the escape format below).
			if err := writeLiteral(w, bwt[i:i+1]); err != nil {
				return err
			}
			i++
			continue
		}
		if err := writeRun(w, code, runLen); err != nil {
			return err
		}
		i = j
	}
	return nil
}

func writeRun(w io.Writer, letterCode, runLen int) error {
	for runLen > 0 {
		if runLen <= maxShortRun {
			if _, err := w.Write([]byte{headerByte(runLen-1, letterCode)}); err != nil {
				return bioerr.E(bioerr.IoError, "write run header", err)
			}
			return nil
		}
		if _, err := w.Write([]byte{headerByte(extendTag, letterCode)}); err != nil {
			return bioerr.E(bioerr.IoError, "write extended run header", err)
		}
		extra := uint64(runLen - maxShortRun)
		var buf [binary.MaxVarintLen64]byte
		n := binary.PutUvarint(buf[:], extra)
		if _, err := w.Write(buf[:n]); err != nil {
			return bioerr.E(bioerr.IoError, "write extended run length", err)
		}
		return nil
	}
	return nil
}

func writeLiteral(w io.Writer, lit []byte) error {
	if _, err := w.Write([]byte{headerByte(escapeTag, 0)}); err != nil {
		return bioerr.E(bioerr.IoError, "write literal header", err)
	}
	var buf [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(buf[:], uint64(len(lit)))
	if _, err := w.Write(buf[:n]); err != nil {
		return bioerr.E(bioerr.IoError, "write literal length", err)
	}
	if _, err := w.Write(lit); err != nil {
		return bioerr.E(bioerr.IoError, "write literal bytes", err)
	}
	return nil
}

// EncodePileBytes is a convenience wrapper returning the encoded bytes for
// one pile's BWT substring.
func EncodePileBytes(bwt []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteRunLength(&buf, bwt); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
