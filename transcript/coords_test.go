package transcript

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/genomegate/docstore"
)

func TestRelative_ForwardStrand(t *testing.T) {
	transcript := Location{Start: 32315474, End: 32400266}
	cds := Location{Start: 32316461, End: 32398770}

	rel := Relative(cds, transcript, Forward)
	assert.Equal(t, Location{Start: 988, End: 83297}, rel)
	assert.Equal(t, 82310, rel.Length())
}

func TestRelative_ReverseStrand(t *testing.T) {
	parent := Location{Start: 1000, End: 2000}
	child := Location{Start: 1900, End: 1950}

	assert.Equal(t, Location{Start: 51, End: 101}, Relative(child, parent, Reverse))
}

func TestRelative_RoundTrip(t *testing.T) {
	parent := Location{Start: 500, End: 9000}
	children := []Location{{500, 500}, {501, 720}, {8000, 9000}, {4321, 4322}}

	for _, strand := range []int{Forward, Reverse} {
		for _, child := range children {
			rel := Relative(child, parent, strand)
			assert.Equal(t, child.Length(), rel.Length())
			assert.Equal(t, child, Absolute(rel, parent, strand), "strand %d child %v", strand, child)
		}
	}
}

func TestIntrons(t *testing.T) {
	exons := []Location{{300, 400}, {100, 200}, {401, 450}, {600, 700}}

	fwd := Introns(exons, Forward)
	assert.Equal(t, []Location{{201, 299}, {451, 599}}, fwd)

	rev := Introns(exons, Reverse)
	assert.Equal(t, []Location{{451, 599}, {201, 299}}, rev)

	assert.Equal(t, []Location{{600, 700}, {401, 450}, {300, 400}, {100, 200}}, OrderExons(exons, Reverse))
	assert.Empty(t, Introns(exons[:1], Forward))
}

func TestBuildIntrons(t *testing.T) {
	doc := docstore.Document{
		"slice": map[string]any{
			"region_id": "homo_sapiens_GCA_000001405_28_13_chromosome",
			"location":  map[string]any{"start": 32315474, "end": 32400266},
			"strand":    map[string]any{"code": "forward", "value": 1},
			"default":   true,
		},
		"spliced_exons": []any{
			map[string]any{"index": 1, "exon": map[string]any{"slice": map[string]any{
				"location": map[string]any{"start": 32370971, "end": 32371100},
			}}},
			map[string]any{"index": 2, "exon": map[string]any{"slice": map[string]any{
				"location": map[string]any{"start": 32375343, "end": 32375406},
			}}},
		},
	}

	introns := BuildIntrons(doc)
	require.Len(t, introns, 1)

	in := introns[0]
	assert.Equal(t, 1, in["index"])
	loc := docstore.Map(in, "slice.location")
	assert.Equal(t, 32371101, loc["start"])
	assert.Equal(t, 32375342, loc["end"])
	assert.Equal(t, 4242, loc["length"])
	assert.Equal(t, "homo_sapiens_GCA_000001405_28_13_chromosome", docstore.String(in, "slice.region_id"))
	assert.Equal(t, 55628, docstore.Int(in, "relative_location.start"))
}
