package bwtio

import (
	"bytes"
	"encoding/binary"
	"io"
	"os"
	"sort"

	"github.com/klauspost/compress/gzip"
	"github.com/minio/highwayhash"

	"github.com/beetl-go/beetl/internal/alphabet"
	"github.com/beetl-go/beetl/internal/bioerr"
	"github.com/beetl-go/beetl/internal/letter"
)

// DefaultBlockSize is the default spacing, in compressed bytes, between
// index records (spec.md §4.2).
const DefaultBlockSize = 2048

// idxMagic identifies a .idx file, the same way encoding/bam/gindex.go's
// gbaiMagic identifies a .gbai file: a fixed byte sequence that is
// vanishingly unlikely to occur by coincidence at the start of any other
// format.
var idxMagic = [8]byte{'B', 'E', 'E', 'T', 'L', 'I', 'D', 'X'}

// highwayKey is a fixed 32-byte key for the whole-pile-file checksum stored
// in the index header. It need not be secret: it only guards against
// accidental corruption, not tampering.
var highwayKey = [32]byte{
	0xb3, 0x37, 0x62, 0x5d, 0x1a, 0x90, 0xee, 0x31,
	0x49, 0x8d, 0x2f, 0x77, 0xc4, 0x06, 0x15, 0x83,
	0x2a, 0x5e, 0x9b, 0x44, 0xf1, 0x08, 0x3c, 0x97,
	0x6b, 0xd4, 0x21, 0x7a, 0x53, 0xe8, 0x0f, 0xc9,
}

// IndexEntry is one record of the sidecar index: the BWT position and
// compressed byte offset of a block boundary, plus the cumulative letter
// count over [0, BWTPos).
type IndexEntry struct {
	BWTPos           uint64
	CompressedOffset uint64
	Counts           letter.Count
}

// Index is an in-memory, ordered-by-offset sidecar index for one BWT pile.
type Index struct {
	Entries  []IndexEntry
	Checksum uint64 // highwayhash of the pile file this index covers
}

// Floor returns the last entry whose BWTPos is <= pos.
func (idx *Index) Floor(pos uint64) (IndexEntry, bool) {
	if len(idx.Entries) == 0 {
		return IndexEntry{}, false
	}
	i := sort.Search(len(idx.Entries), func(i int) bool {
		return idx.Entries[i].BWTPos > pos
	})
	if i == 0 {
		return IndexEntry{}, false
	}
	return idx.Entries[i-1], true
}

// BuildIndex scans a freshly-opened reader from position 0 to EOF, emitting
// an entry at the first run boundary after each blockSize compressed bytes
// (plus a mandatory entry at position 0), along with a whole-file checksum
// for corruption detection. Entries sit only at run boundaries, so a seek to
// an entry's offset resumes decoding at the start of a run.
func BuildIndex(path string, blockSize int) (*Index, error) {
	if blockSize <= 0 {
		return nil, bioerr.E(bioerr.BadConfig, "index block size must be > 0")
	}
	r, err := Open(path, false)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	idx := &Index{}
	var counts letter.Count
	var lastOffset int64
	idx.Entries = append(idx.Entries, IndexEntry{BWTPos: 0, CompressedOffset: 0, Counts: counts})

	for {
		c, err := r.nextByte()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		counts[alphabet.WhichPile(c)]++
		r.pos++

		offset := offsetOf(r)
		if !r.hasPending() && offset-lastOffset >= int64(blockSize) {
			idx.Entries = append(idx.Entries, IndexEntry{
				BWTPos:           r.pos,
				CompressedOffset: uint64(offset),
				Counts:           counts,
			})
			lastOffset = offset
		}
	}

	checksum, err := fileChecksum(path)
	if err != nil {
		return nil, err
	}
	idx.Checksum = checksum
	return idx, nil
}

// offsetOf returns the current compressed-byte read offset of the reader's
// underlying file, accounting for bufio look-ahead.
func offsetOf(r *Reader) int64 {
	pos, err := r.f.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0
	}
	return pos - int64(r.br.Buffered())
}

func fileChecksum(path string) (uint64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, bioerr.E(bioerr.IoError, "checksum open", path, err)
	}
	defer f.Close()
	h, err := highwayhash.New64(highwayKey[:])
	if err != nil {
		return 0, bioerr.E(bioerr.IoError, "init highwayhash", err)
	}
	if _, err := io.Copy(h, f); err != nil {
		return 0, bioerr.E(bioerr.IoError, "checksum read", path, err)
	}
	return h.Sum64(), nil
}

// WriteIndex serializes idx to path as a gzip-framed stream of fixed-size
// binary records behind a magic header, mirroring encoding/bam/gindex.go's
// .gbai format.
func WriteIndex(path string, idx *Index, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return bioerr.E(bioerr.Conflict, "index already exists", path)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return bioerr.E(bioerr.IoError, "create index", path, err)
	}
	defer f.Close()

	gz, _ := gzip.NewWriterLevel(f, gzip.BestSpeed)
	defer gz.Close()

	if _, err := gz.Write(idxMagic[:]); err != nil {
		return bioerr.E(bioerr.IoError, "write index magic", path, err)
	}
	var header [8]byte
	binary.LittleEndian.PutUint64(header[:], idx.Checksum)
	if _, err := gz.Write(header[:]); err != nil {
		return bioerr.E(bioerr.IoError, "write index checksum", path, err)
	}

	buf := make([]byte, 8+8+8*alphabet.Size)
	for _, e := range idx.Entries {
		binary.LittleEndian.PutUint64(buf[0:8], e.BWTPos)
		binary.LittleEndian.PutUint64(buf[8:16], e.CompressedOffset)
		for i, v := range e.Counts {
			binary.LittleEndian.PutUint64(buf[16+8*i:24+8*i], v)
		}
		if _, err := gz.Write(buf); err != nil {
			return bioerr.E(bioerr.IoError, "write index record", path, err)
		}
	}
	return nil
}

const indexRecordSize = 8 + 8 + 8*alphabet.Size

// ReadIndex loads a .idx file written by WriteIndex. A missing file is
// reported as bioerr.MissingFile so callers can treat it as "no index".
func ReadIndex(path string) (*Index, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, bioerr.E(bioerr.MissingFile, "index file", path)
		}
		return nil, bioerr.E(bioerr.IoError, "open index", path, err)
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return nil, bioerr.E(bioerr.CorruptBwt, "index gzip header", path, err)
	}
	defer gz.Close()

	var magic [8]byte
	if _, err := io.ReadFull(gz, magic[:]); err != nil {
		return nil, bioerr.E(bioerr.CorruptBwt, "read index magic", path, err)
	}
	if !bytes.Equal(magic[:], idxMagic[:]) {
		return nil, bioerr.E(bioerr.CorruptBwt, "bad index magic", path)
	}
	var header [8]byte
	if _, err := io.ReadFull(gz, header[:]); err != nil {
		return nil, bioerr.E(bioerr.CorruptBwt, "read index checksum", path, err)
	}
	idx := &Index{Checksum: binary.LittleEndian.Uint64(header[:])}

	buf := make([]byte, indexRecordSize)
	for {
		_, err := io.ReadFull(gz, buf)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, bioerr.E(bioerr.CorruptBwt, "read index record", path, err)
		}
		var e IndexEntry
		e.BWTPos = binary.LittleEndian.Uint64(buf[0:8])
		e.CompressedOffset = binary.LittleEndian.Uint64(buf[8:16])
		for i := range e.Counts {
			e.Counts[i] = binary.LittleEndian.Uint64(buf[16+8*i : 24+8*i])
		}
		idx.Entries = append(idx.Entries, e)
	}
	return idx, nil
}

// VerifyChecksum recomputes the checksum of the pile at path and compares it
// against idx.Checksum, returning a CorruptBwt error on mismatch.
func VerifyChecksum(path string, idx *Index) error {
	got, err := fileChecksum(path)
	if err != nil {
		return err
	}
	if got != idx.Checksum {
		return bioerr.E(bioerr.CorruptBwt, "pile checksum mismatch", path)
	}
	return nil
}
