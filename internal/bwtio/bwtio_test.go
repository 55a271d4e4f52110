package bwtio_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beetl-go/beetl/internal/alphabet"
	"github.com/beetl-go/beetl/internal/bwtio"
	"github.com/beetl-go/beetl/internal/bwttest"
	"github.com/beetl-go/beetl/internal/letter"
)

func TestRoundTripSingleSequence(t *testing.T) {
	dir := t.TempDir()
	prefix, err := bwttest.WritePiles(dir, "single", []string{"ACGT"})
	require.NoError(t, err)

	readers, err := bwtio.OpenPiles(prefix, false)
	require.NoError(t, err)
	defer bwtio.ClosePiles(readers)

	wantPiles := bwttest.Piles([]string{"ACGT"})
	for p := 0; p < alphabet.Size; p++ {
		buf := make([]byte, len(wantPiles[p]))
		_, err := readers[p].Read(buf, uint64(len(wantPiles[p])))
		require.NoError(t, err)
		assert.Equal(t, wantPiles[p], buf, "pile %d", p)
	}
}

func TestRoundTripDuplicateSequences(t *testing.T) {
	dir := t.TempDir()
	prefix, err := bwttest.WritePiles(dir, "dup", []string{"AAAA", "AAAT"})
	require.NoError(t, err)

	readers, err := bwtio.OpenPiles(prefix, false)
	require.NoError(t, err)
	defer bwtio.ClosePiles(readers)

	wantPiles := bwttest.Piles([]string{"AAAA", "AAAT"})
	for p := 0; p < alphabet.Size; p++ {
		if len(wantPiles[p]) == 0 {
			continue
		}
		buf := make([]byte, len(wantPiles[p]))
		_, err := readers[p].Read(buf, uint64(len(wantPiles[p])))
		require.NoError(t, err)
		assert.Equal(t, wantPiles[p], buf, "pile %d", p)
	}
}

func TestSkipToAdditiveWithoutIndex(t *testing.T) {
	dir := t.TempDir()
	prefix, err := bwttest.WritePiles(dir, "skip", []string{"ACGTACGT"})
	require.NoError(t, err)

	r, err := bwtio.Open(bwtio.PilePath(prefix, alphabet.WhichPile('A')), false)
	require.NoError(t, err)
	defer r.Close()

	var counts letter.Count
	require.NoError(t, r.SkipTo(0, &counts))
	require.NoError(t, r.SkipTo(1, &counts))

	// Going backwards without an index must fail.
	err = r.SkipTo(0, &counts)
	assert.Error(t, err)
}

func TestSkipToUsesIndexForRandomAccess(t *testing.T) {
	dir := t.TempDir()
	prefix, err := bwttest.WritePiles(dir, "idx", []string{"ACGTACGTACGTACGT"})
	require.NoError(t, err)

	path := bwtio.PilePath(prefix, alphabet.WhichPile('A'))
	idx, err := bwtio.BuildIndex(path, 1)
	require.NoError(t, err)
	require.NoError(t, bwtio.WriteIndex(path+".idx", idx, false))

	r, err := bwtio.Open(path, false)
	require.NoError(t, err)
	defer r.Close()
	require.NotNil(t, r.Index())

	var forward, jumped letter.Count
	require.NoError(t, r.SkipTo(3, &forward))

	r2, err := bwtio.Open(path, false)
	require.NoError(t, err)
	defer r2.Close()
	require.NoError(t, r2.SkipTo(3, &jumped))

	assert.Equal(t, forward, jumped)

	// Jump backwards using the index.
	var back letter.Count
	require.NoError(t, r2.SkipTo(1, &back))
	assert.Equal(t, uint64(1), r2.Pos())
}

func TestIndexChecksumDetectsCorruption(t *testing.T) {
	dir := t.TempDir()
	prefix, err := bwttest.WritePiles(dir, "sum", []string{"ACGT"})
	require.NoError(t, err)
	path := bwtio.PilePath(prefix, alphabet.WhichPile('A'))

	idx, err := bwtio.BuildIndex(path, 1024)
	require.NoError(t, err)
	require.NoError(t, bwtio.VerifyChecksum(path, idx))

	idx.Checksum++
	assert.Error(t, bwtio.VerifyChecksum(path, idx))
}
