package rangestore_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beetl-go/beetl/internal/rangestore"
)

func TestAddAndDrainBasicRanges(t *testing.T) {
	store, err := rangestore.New(t.TempDir(), nil, false)
	require.NoError(t, err)
	store.SetCycleNum(3)

	want := []*rangestore.Range{
		{Pos: 0, Num: 4, Word: "A"},
		{Pos: 4, Num: 2, Word: "A", IsBkptExtension: true},
		{Pos: 9, Num: 1},
	}
	for _, r := range want {
		require.NoError(t, store.AddRange(r, 2, 1, 0))
	}
	require.NoError(t, store.Clear()) // cycle 3 -> 4, cycle 4 buckets now current
	assert.Equal(t, 4, store.CycleNum())

	require.NoError(t, store.SetPortion(2, 1, 0))
	var got []*rangestore.Range
	for {
		r, ok, err := store.GetRange()
		require.NoError(t, err)
		if !ok {
			break
		}
		got = append(got, r)
	}
	require.Len(t, got, len(want))
	for i, r := range want {
		assert.Equal(t, r.Pos, got[i].Pos)
		assert.Equal(t, r.Num, got[i].Num)
		assert.Equal(t, r.Word, got[i].Word)
		assert.Equal(t, r.IsBkptExtension, got[i].IsBkptExtension)
	}
}

func TestEmptyBucketReadsNothing(t *testing.T) {
	store, err := rangestore.New(t.TempDir(), nil, false)
	require.NoError(t, err)
	require.NoError(t, store.Clear())
	require.NoError(t, store.SetPortion(5, 5, 0))
	_, ok, err := store.GetRange()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestIsRangeKnownDedup(t *testing.T) {
	store, err := rangestore.New(t.TempDir(), nil, true)
	require.NoError(t, err)

	r := &rangestore.Range{Pos: 10, Num: 3, Word: "AC"}
	assert.False(t, store.IsRangeKnown(r, 1, 2, 0))
	require.NoError(t, store.AddRange(r, 1, 2, 0))
	assert.True(t, store.IsRangeKnown(r, 1, 2, 0))

	other := &rangestore.Range{Pos: 11, Num: 1, Word: "AC"}
	assert.False(t, store.IsRangeKnown(other, 1, 2, 0))
}

func TestKmerSearchPayloadRoundTrip(t *testing.T) {
	store, err := rangestore.New(t.TempDir(), func() rangestore.Payload { return &rangestore.KmerSearchPayload{} }, false)
	require.NoError(t, err)

	r := &rangestore.Range{Pos: 2, Num: 5, Payload: &rangestore.KmerSearchPayload{Start: 3, End: 9}}
	require.NoError(t, store.AddRange(r, 1, 0, 0))
	require.NoError(t, store.Clear())

	require.NoError(t, store.SetPortion(1, 0, 0))
	got, ok, err := store.GetRange()
	require.NoError(t, err)
	require.True(t, ok)
	payload, ok := got.Payload.(*rangestore.KmerSearchPayload)
	require.True(t, ok)
	assert.Equal(t, 3, payload.Start)
	assert.Equal(t, 9, payload.End)
}

func TestErrorCorrectionPayloadRoundTrip(t *testing.T) {
	store, err := rangestore.New(t.TempDir(), func() rangestore.Payload { return &rangestore.ErrorCorrectionPayload{} }, false)
	require.NoError(t, err)

	r := &rangestore.Range{
		Pos: 0, Num: 1,
		Payload: &rangestore.ErrorCorrectionPayload{
			Type:                   rangestore.Corrector,
			CorrectionBWTPositions: []uint64{5, 6, 7},
			ErrorBWTPositions:      nil,
		},
	}
	require.NoError(t, store.AddRange(r, 3, 3, 0))
	require.NoError(t, store.Clear())

	require.NoError(t, store.SetPortion(3, 3, 0))
	got, ok, err := store.GetRange()
	require.NoError(t, err)
	require.True(t, ok)
	payload := got.Payload.(*rangestore.ErrorCorrectionPayload)
	assert.Equal(t, rangestore.Corrector, payload.Type)
	assert.Equal(t, []uint64{5, 6, 7}, payload.CorrectionBWTPositions)
	assert.Nil(t, payload.ErrorBWTPositions)
}

func TestSubsetTagSeparatesBuckets(t *testing.T) {
	store, err := rangestore.New(t.TempDir(), nil, false)
	require.NoError(t, err)

	require.NoError(t, store.AddRange(&rangestore.Range{Pos: 0, Num: 1}, 1, 1, 1))
	require.NoError(t, store.AddRange(&rangestore.Range{Pos: 0, Num: 2}, 1, 1, 2))
	require.NoError(t, store.Clear())

	require.NoError(t, store.SetPortion(1, 1, 1))
	r, ok, err := store.GetRange()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uint64(1), r.Num)

	require.NoError(t, store.SetPortion(1, 1, 2))
	r, ok, err = store.GetRange()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uint64(2), r.Num)
}
