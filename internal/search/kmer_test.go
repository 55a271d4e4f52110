package search_test

import (
	"bytes"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beetl-go/beetl/internal/bwtio"
	"github.com/beetl-go/beetl/internal/bwttest"
	"github.com/beetl-go/beetl/internal/rangestore"
	"github.com/beetl-go/beetl/internal/search"
)

func TestReadKmerQueries(t *testing.T) {
	r := strings.NewReader("ACGT count=4\nAC\n\nA\nNNAC extra\n")
	kmers, err := search.ReadKmerQueries(r)
	require.NoError(t, err)
	assert.Equal(t, []string{"ACGT", "AC", "NNAC"}, kmers)
}

func TestReadKmerQueriesRejectsTerminator(t *testing.T) {
	_, err := search.ReadKmerQueries(strings.NewReader("AC$GT\n"))
	assert.Error(t, err)
}

func TestRunKmerSearchFindsExactPositions(t *testing.T) {
	dir := t.TempDir()
	sequences := []string{"ACGTACGT", "ACGTTTAA"}
	prefix, err := bwttest.WritePiles(dir, "kmers", sequences)
	require.NoError(t, err)

	store, err := rangestore.New(t.TempDir(), func() rangestore.Payload { return &rangestore.KmerSearchPayload{} }, false)
	require.NoError(t, err)

	kmers := []string{"ACGT", "TTAA", "GGGG"}
	items := search.NewKmerSearchItems(kmers)

	readers, err := bwtio.OpenPiles(prefix, false)
	require.NoError(t, err)
	defer bwtio.ClosePiles(readers)

	require.NoError(t, search.RunKmerSearch(readers, store, items))

	var buf bytes.Buffer
	require.NoError(t, search.EmitResults(&buf, kmers, items))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, len(kmers))

	results := make(map[string][2]string)
	for i, line := range lines {
		fields := strings.Fields(line)
		require.Len(t, fields, 3)
		assert.Equal(t, kmers[i], fields[0])
		results[fields[0]] = [2]string{fields[1], fields[2]}
	}

	// GGGG never occurs in either sequence: count must be zero.
	assert.Equal(t, "0", results["GGGG"][1])

	// ACGT occurs twice in the first sequence and once in the second.
	assert.Equal(t, "3", results["ACGT"][1])

	// TTAA occurs exactly once, in the second sequence.
	assert.Equal(t, "1", results["TTAA"][1])
}

func TestNewKmerSearchItemsSortsByReversedForm(t *testing.T) {
	items := search.NewKmerSearchItems([]string{"ACGT", "AAAA", "TTTT"})
	var reversed []string
	for _, it := range items {
		reversed = append(reversed, it.Reversed)
	}
	assert.True(t, sort.StringsAreSorted(reversed))
}
