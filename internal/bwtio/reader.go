package bwtio

import (
	"bufio"
	"encoding/binary"
	"io"
	"os"

	"golang.org/x/sys/unix"

	"github.com/beetl-go/beetl/internal/alphabet"
	"github.com/beetl-go/beetl/internal/bioerr"
	"github.com/beetl-go/beetl/internal/letter"
)

// byteReadReader is what fillPending needs from its compressed-stream
// cursor: single-byte reads for run headers, bulk reads for escape-run
// literals and varint lengths.
type byteReadReader interface {
	io.Reader
	io.ByteReader
}

// mmapCursor is a byteReadReader over an mmapped pile file, used in place
// of the bufio.Reader when the reader was opened with useSharedMem: the
// compressed bytes are already resident, so decoding reads straight out of
// the mapping instead of copying through a buffered *os.File.
type mmapCursor struct {
	data []byte
	pos  int
}

func (c *mmapCursor) ReadByte() (byte, error) {
	if c.pos >= len(c.data) {
		return 0, io.EOF
	}
	b := c.data[c.pos]
	c.pos++
	return b, nil
}

func (c *mmapCursor) Read(p []byte) (int, error) {
	if c.pos >= len(c.data) {
		return 0, io.EOF
	}
	n := copy(p, c.data[c.pos:])
	c.pos += n
	return n, nil
}

// Reader is a sequential-or-random-access decoder for one compressed BWT
// pile. It satisfies the spec.md §4.1 contract: after any operation the
// reader's logical position equals the stated BWT position.
type Reader struct {
	path string
	f    *os.File
	br   *bufio.Reader

	mmapData []byte      // non-nil when opened with useSharedMem
	mmapCur  *mmapCursor // cursor into mmapData; non-nil iff mmapData is

	pos uint64 // logical BWT position of the next character to decode

	// pending is the not-yet-consumed tail of the run currently being
	// decoded: either `remaining` copies of `letterByte`, or the next
	// `len(literal)` bytes of literal (mutually exclusive).
	letterByte byte
	remaining  uint64
	literal    []byte

	idx *Index
}

// Open opens the compressed pile at path. If a sibling path+".idx" file
// exists it is loaded eagerly so SkipTo can use it.
func Open(path string, useSharedMem bool) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, bioerr.E(bioerr.MissingFile, "open BWT pile", path, err)
	}
	r := &Reader{path: path, f: f}
	if useSharedMem {
		info, statErr := f.Stat()
		if statErr != nil {
			f.Close()
			return nil, bioerr.E(bioerr.IoError, "stat BWT pile", path, statErr)
		}
		if info.Size() > 0 {
			data, mmapErr := unix.Mmap(int(f.Fd()), 0, int(info.Size()), unix.PROT_READ, unix.MAP_SHARED)
			if mmapErr != nil {
				f.Close()
				return nil, bioerr.E(bioerr.IoError, "mmap BWT pile", path, mmapErr)
			}
			_ = unix.Madvise(data, unix.MADV_RANDOM)
			r.mmapData = data
			r.mmapCur = &mmapCursor{data: data}
		}
	}
	r.br = bufio.NewReader(f)
	if idx, err := ReadIndex(path + ".idx"); err == nil {
		r.idx = idx
	} else if !bioerr.Is(bioerr.MissingFile, err) {
		f.Close()
		return nil, err
	}
	return r, nil
}

// Close releases the underlying file (and mmap, if any).
func (r *Reader) Close() error {
	if r.mmapData != nil {
		_ = unix.Munmap(r.mmapData)
		r.mmapData = nil
	}
	return r.f.Close()
}

// Pos returns the reader's current logical BWT position.
func (r *Reader) Pos() uint64 { return r.pos }

// Index returns the sidecar index, or nil if none was found.
func (r *Reader) Index() *Index { return r.idx }

func (r *Reader) byteSource() byteReadReader {
	if r.mmapCur != nil {
		return r.mmapCur
	}
	return r.br
}

// fillPending decodes the next run header (and, for an escape run, its
// literal bytes) into r.letterByte/r.remaining/r.literal. Must only be
// called when the previous run has been fully consumed.
func (r *Reader) fillPending() error {
	header, err := r.byteSource().ReadByte()
	if err == io.EOF {
		return io.EOF
	}
	if err != nil {
		return bioerr.E(bioerr.IoError, "read run header", r.path, err)
	}
	runTag := int(header >> 4)
	letterCode := int(header & 0x0F)

	switch {
	case runTag == escapeTag:
		n, err := binary.ReadUvarint(r.byteSource())
		if err != nil {
			return bioerr.E(bioerr.CorruptBwt, "read literal length", r.path, err)
		}
		lit := make([]byte, n)
		if _, err := io.ReadFull(r.byteSource(), lit); err != nil {
			return bioerr.E(bioerr.CorruptBwt, "read literal bytes", r.path, err)
		}
		r.literal = lit
		r.remaining = 0
	case runTag == extendTag:
		extra, err := binary.ReadUvarint(r.byteSource())
		if err != nil {
			return bioerr.E(bioerr.CorruptBwt, "read extended run length", r.path, err)
		}
		if letterCode >= alphabet.Size {
			return bioerr.E(bioerr.CorruptBwt, "invalid letter code in run header", r.path)
		}
		r.letterByte = alphabet.Letters[letterCode]
		r.remaining = maxShortRun + extra
		r.literal = nil
	default:
		if letterCode >= alphabet.Size {
			return bioerr.E(bioerr.CorruptBwt, "invalid letter code in run header", r.path)
		}
		r.letterByte = alphabet.Letters[letterCode]
		r.remaining = uint64(runTag + 1)
		r.literal = nil
	}
	return nil
}

// hasPending reports whether there is still undecoded output from the
// current run.
func (r *Reader) hasPending() bool {
	return r.remaining > 0 || len(r.literal) > 0
}

// nextByte returns the next decoded BWT character, refilling from the
// underlying stream as needed.
func (r *Reader) nextByte() (byte, error) {
	for !r.hasPending() {
		if err := r.fillPending(); err != nil {
			return 0, err
		}
	}
	if len(r.literal) > 0 {
		c := r.literal[0]
		r.literal = r.literal[1:]
		return c, nil
	}
	r.remaining--
	return r.letterByte, nil
}

// ReadAndCount advances exactly n BWT positions, accumulating letter
// frequencies into counts. It handles partial runs at either boundary.
func (r *Reader) ReadAndCount(counts *letter.Count, n uint64) error {
	for i := uint64(0); i < n; i++ {
		c, err := r.nextByte()
		if err != nil {
			return err
		}
		counts[alphabet.WhichPile(c)]++
	}
	r.pos += n
	return nil
}

// Read advances n BWT positions like ReadAndCount, additionally writing the
// decoded characters into buf[:n].
func (r *Reader) Read(buf []byte, n uint64) (letter.Count, error) {
	var counts letter.Count
	if uint64(len(buf)) < n {
		return counts, bioerr.E(bioerr.IoError, "read buffer too small", r.path)
	}
	for i := uint64(0); i < n; i++ {
		c, err := r.nextByte()
		if err != nil {
			return counts, err
		}
		buf[i] = c
		counts[alphabet.WhichPile(c)]++
	}
	r.pos += n
	return counts, nil
}

// Rewind repositions the reader at BWT position 0.
func (r *Reader) Rewind() error {
	if r.mmapCur != nil {
		r.mmapCur.pos = 0
	} else {
		if _, err := r.f.Seek(0, io.SeekStart); err != nil {
			return bioerr.E(bioerr.IoError, "rewind BWT pile", r.path, err)
		}
		r.br.Reset(r.f)
	}
	r.pos = 0
	r.remaining = 0
	r.literal = nil
	return nil
}

// SkipTo repositions the reader at the given BWT position, setting
// countsOut to the cumulative letter count over [0,pos). If the reader has
// an index, it jumps to the nearest block boundary at or below pos and
// scans forward from there; otherwise it scans forward from the current
// position, which must be <= pos.
func (r *Reader) SkipTo(pos uint64, countsOut *letter.Count) error {
	if r.idx != nil {
		entry, ok := r.idx.Floor(pos)
		if ok && (r.pos > pos || entry.BWTPos > r.pos) {
			if r.mmapCur != nil {
				r.mmapCur.pos = int(entry.CompressedOffset)
			} else {
				if _, err := r.f.Seek(int64(entry.CompressedOffset), io.SeekStart); err != nil {
					return bioerr.E(bioerr.IoError, "seek via index", r.path, err)
				}
				r.br.Reset(r.f)
			}
			r.pos = entry.BWTPos
			r.remaining = 0
			r.literal = nil
			*countsOut = entry.Counts
		}
	}
	if r.pos > pos {
		return bioerr.E(bioerr.IoError, "SkipTo: position went backwards without an index", r.path)
	}
	delta := pos - r.pos
	if delta > 0 {
		var advance letter.Count
		if err := r.ReadAndCount(&advance, delta); err != nil {
			return err
		}
		countsOut.Add(advance)
	}
	return nil
}
