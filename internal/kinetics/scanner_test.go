package kinetics

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kinscan/internal/chunk"
	"kinscan/internal/fasta"
)

func testContigs() []fasta.Contig {
	return []fasta.Contig{
		{ID: "chr1", Seq: []byte(strings.Repeat("ACGT", 500))},
	}
}

func TestNewScanner_Validation(t *testing.T) {
	contigs := testContigs()

	_, err := NewScanner(Defaults(), contigs)
	require.NoError(t, err)

	bad := []Config{
		{PValue: 0, MinCoverage: 3, Mods: []string{"m6A"}},
		{PValue: 1.5, MinCoverage: 3, Mods: []string{"m6A"}},
		{PValue: 0.01, MinCoverage: -1, Mods: []string{"m6A"}},
		{PValue: 0.01, MinCoverage: 3, Mods: []string{"m7G"}},
	}
	for _, cfg := range bad {
		_, err := NewScanner(cfg, contigs)
		require.Error(t, err, "%+v", cfg)
	}
}

func TestScanChunk_Deterministic(t *testing.T) {
	s, err := NewScanner(Defaults(), testContigs())
	require.NoError(t, err)

	c := chunk.Chunk{Index: 0, RefID: "chr1", Start: 0, End: 2000}
	first, err := s.ScanChunk(context.Background(), c)
	require.NoError(t, err)
	second, err := s.ScanChunk(context.Background(), c)
	require.NoError(t, err)
	assert.Equal(t, first, second, "same chunk must always yield the same sites")
	require.NotEmpty(t, first, "a 2kb chunk should call at least one site")

	for _, site := range first {
		assert.Equal(t, "chr1", site.RefID)
		assert.GreaterOrEqual(t, site.Pos, c.Start)
		assert.Less(t, site.Pos, c.End)
		assert.Contains(t, []byte{'+', '-'}, site.Strand)
		assert.GreaterOrEqual(t, site.Coverage, 3)
		assert.GreaterOrEqual(t, site.IPDRatio, 1.0)
		switch site.Mod {
		case "m6A":
			assert.Equal(t, byte('A'), site.Base)
		case "m4C":
			assert.Equal(t, byte('C'), site.Base)
		default:
			t.Fatalf("unexpected modification %q", site.Mod)
		}
	}
}

func TestScanChunk_ChunkingDoesNotChangeCalls(t *testing.T) {
	s, err := NewScanner(Defaults(), testContigs())
	require.NoError(t, err)
	ctx := context.Background()

	whole, err := s.ScanChunk(ctx, chunk.Chunk{RefID: "chr1", Start: 0, End: 2000})
	require.NoError(t, err)

	left, err := s.ScanChunk(ctx, chunk.Chunk{RefID: "chr1", Start: 0, End: 1000})
	require.NoError(t, err)
	right, err := s.ScanChunk(ctx, chunk.Chunk{RefID: "chr1", Start: 1000, End: 2000})
	require.NoError(t, err)

	assert.Equal(t, whole, append(left, right...))
}

func TestScanChunk_Faults(t *testing.T) {
	s, err := NewScanner(Defaults(), testContigs())
	require.NoError(t, err)
	ctx := context.Background()

	_, err = s.ScanChunk(ctx, chunk.Chunk{RefID: "nope", Start: 0, End: 10})
	require.Error(t, err)

	_, err = s.ScanChunk(ctx, chunk.Chunk{RefID: "chr1", Start: 0, End: 99999})
	require.Error(t, err)
}

func TestScanChunk_MinCoverageGate(t *testing.T) {
	strict := Defaults()
	strict.MinCoverage = 98 // above the synthetic coverage range

	s, err := NewScanner(strict, testContigs())
	require.NoError(t, err)

	sites, err := s.ScanChunk(context.Background(), chunk.Chunk{RefID: "chr1", Start: 0, End: 2000})
	require.NoError(t, err)
	assert.Empty(t, sites)
}
