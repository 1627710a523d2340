package resolver

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/genomegate/docstore"
	"github.com/c360/genomegate/docstore/memstore"
	"github.com/c360/genomegate/metadata"
	"github.com/c360/genomegate/metric"
	"github.com/c360/genomegate/pkg/gqlexec"
	"github.com/c360/genomegate/resultcache"
	"github.com/c360/genomegate/xref"
)

const (
	human = "homo_sapiens_GCA_000001405_28"
	wheat = "triticum_aestivum_GCA_900519105_1"
)

type stubMetadata struct {
	genomes  []metadata.Genome
	datasets []metadata.Dataset
	calls    atomic.Int32
	release  atomic.Value
}

func (s *stubMetadata) GenomeByUUID(_ context.Context, uuid string, _ float64) (*metadata.Genome, error) {
	s.calls.Add(1)
	for i := range s.genomes {
		if s.genomes[i].GenomeUUID == uuid {
			return &s.genomes[i], nil
		}
	}
	return nil, nil
}

func (s *stubMetadata) GenomesByKeyword(_ context.Context, sel metadata.KeywordSelector, _ float64) ([]metadata.Genome, error) {
	s.calls.Add(1)
	var out []metadata.Genome
	for _, g := range s.genomes {
		if g.Organism != nil && g.Organism.CommonName == sel.CommonName {
			out = append(out, g)
		}
	}
	return out, nil
}

func (s *stubMetadata) DatasetsByUUID(_ context.Context, _ string, release float64) ([]metadata.Dataset, error) {
	s.calls.Add(1)
	s.release.Store(release)
	return s.datasets, nil
}

type fixture struct {
	resolver *Resolver
	backend  *memstore.Backend
	meta     *stubMetadata
}

func newFixture(t *testing.T, configure ...func(*Config)) *fixture {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	backend := memstore.New()
	require.NoError(t, backend.LoadFile("release_default", "testdata/brca2.json"))

	store, err := docstore.NewStore(ctx, backend, nil, docstore.StoreConfig{DefaultDB: "release_default"}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close(context.Background()) })

	registry, err := xref.LoadRegistryFile("../xref/testdata/mini_identifiers.json")
	require.NoError(t, err)
	mapping, err := xref.DefaultMapping()
	require.NoError(t, err)

	meta := &stubMetadata{
		genomes: []metadata.Genome{{
			GenomeUUID: "a7335667-93e7-11ec-a39d-005056b38ce3",
			Created:    "2023-05-12 13:30:58",
			Assembly:   &metadata.Assembly{Accession: "GCA_000001405.29", Name: "GRCh38.p14", IsReference: true},
			Organism:   &metadata.Organism{CommonName: "human", ScientificName: "Homo sapiens", TaxonomyID: 9606},
			Release:    &metadata.Release{ReleaseVersion: 110.1, IsCurrent: true},
		}},
		datasets: []metadata.Dataset{{
			DatasetUUID: "559d7660-d92d-47e1-924e-e741151c2cef",
			DatasetName: "assembly",
			DatasetType: "assembly",
		}},
	}

	cfg := Config{
		Store:    store,
		Metadata: meta,
		Xref:     xref.NewResolver(registry, mapping),
	}
	for _, c := range configure {
		c(&cfg)
	}
	r, err := New(cfg)
	require.NoError(t, err)
	return &fixture{resolver: r, backend: backend, meta: meta}
}

type result struct {
	Data   map[string]any   `json:"data"`
	Errors []map[string]any `json:"errors"`
}

func (f *fixture) run(t *testing.T, query string, vars map[string]any) result {
	t.Helper()
	resp := f.resolver.Execute(context.Background(), gqlexec.Request{Query: query, Variables: vars})
	raw, err := json.Marshal(resp)
	require.NoError(t, err)
	var out result
	require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	return out
}

func code(e map[string]any) any {
	ext, _ := e["extensions"].(map[string]any)
	return ext["code"]
}

func obj(t *testing.T, v any) map[string]any {
	t.Helper()
	m, ok := v.(map[string]any)
	require.True(t, ok, "expected object, got %T", v)
	return m
}

func list(t *testing.T, v any) []any {
	t.Helper()
	l, ok := v.([]any)
	require.True(t, ok, "expected list, got %T", v)
	return l
}

func ids(t *testing.T, v any) []string {
	t.Helper()
	var out []string
	for _, item := range list(t, v) {
		out = append(out, obj(t, item)["stable_id"].(string))
	}
	return out
}

func TestGeneByID(t *testing.T) {
	f := newFixture(t)
	res := f.run(t, `query($g: String!, $id: String!) {
		gene(by_id: {genome_id: $g, stable_id: $id}) {
			stable_id
			symbol
			alternative_symbols
			slice { region { name } location { start end } }
		}
	}`, map[string]any{"g": human, "id": "ENSG00000139618.15"})

	require.Empty(t, res.Errors)
	gene := obj(t, res.Data["gene"])
	assert.Equal(t, "BRCA2", gene["symbol"])
	assert.Equal(t, []any{"FACD", "FANCD1"}, gene["alternative_symbols"])

	slice := obj(t, gene["slice"])
	assert.Equal(t, "13", obj(t, slice["region"])["name"])
	loc := obj(t, slice["location"])
	assert.EqualValues(t, 32315086, loc["start"])
	assert.EqualValues(t, 32400266, loc["end"])
}

func TestGeneByID_Unversioned(t *testing.T) {
	f := newFixture(t)
	res := f.run(t, fmt.Sprintf(`{ gene(by_id: {genome_id: %q, stable_id: "ENSG00000139618"}) { stable_id } }`, human), nil)

	require.Empty(t, res.Errors)
	assert.Equal(t, "ENSG00000139618.15", obj(t, res.Data["gene"])["stable_id"])
}

func TestGeneByID_NotFound(t *testing.T) {
	f := newFixture(t)
	res := f.run(t, fmt.Sprintf(`{ gene(by_id: {genome_id: %q, stable_id: "ENSG00000000000"}) { stable_id } }`, human), nil)

	require.Len(t, res.Errors, 1)
	assert.Nil(t, res.Data["gene"])
	assert.Equal(t, "GENE_NOT_FOUND", code(res.Errors[0]))
	assert.Equal(t, []any{"gene"}, res.Errors[0]["path"])
	assert.Equal(t, "Failed to find gene with ids: stable_id=ENSG00000000000, genome_id="+human, res.Errors[0]["message"])

	ext := obj(t, res.Errors[0]["extensions"])
	assert.Equal(t, "ENSG00000000000", ext["stable_id"])
	assert.Equal(t, human, ext["genome_id"])
}

func TestTranscriptCDS(t *testing.T) {
	f := newFixture(t)
	res := f.run(t, fmt.Sprintf(`{
		transcript(by_id: {genome_id: %q, stable_id: "ENST00000380152.7"}) {
			stable_id
			product_generating_contexts {
				cds { start end nucleotide_length protein_length relative_start relative_end }
			}
		}
	}`, human), nil)

	require.Empty(t, res.Errors)
	pgcs := list(t, obj(t, res.Data["transcript"])["product_generating_contexts"])
	require.Len(t, pgcs, 1)

	cds := obj(t, obj(t, pgcs[0])["cds"])
	want := map[string]int{
		"start":             32316461,
		"end":               32398770,
		"nucleotide_length": 82309,
		"protein_length":    27436,
		"relative_start":    988,
		"relative_end":      83297,
	}
	for key, v := range want {
		assert.EqualValues(t, v, cds[key], key)
	}
}

func TestTranscript_RequiresOneSelector(t *testing.T) {
	f := newFixture(t)
	tests := []struct {
		name  string
		query string
	}{
		{"both", fmt.Sprintf(`{ transcript(by_id: {genome_id: %q, stable_id: "ENST00000380152.7"}, by_symbol: {genome_id: %q, symbol: "BRCA2-201"}) { stable_id } }`, human, human)},
		{"neither", `{ transcript { stable_id } }`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := f.run(t, tt.query, nil)
			require.Len(t, res.Errors, 1)
			assert.Equal(t, "INPUT_FIELD_ARG_COUNT", code(res.Errors[0]))
			assert.Nil(t, res.Data["transcript"])
		})
	}
}

func TestTranscript_BySymbol(t *testing.T) {
	f := newFixture(t)
	res := f.run(t, fmt.Sprintf(`{ transcript(by_symbol: {genome_id: %q, symbol: "BRCA2-203"}) { stable_id so_term } }`, human), nil)

	require.Empty(t, res.Errors)
	tr := obj(t, res.Data["transcript"])
	assert.Equal(t, "ENST00000528762.1", tr["stable_id"])
	assert.Equal(t, "nonsense_mediated_decay", tr["so_term"])
}

func TestTranscript_Joins(t *testing.T) {
	f := newFixture(t)
	res := f.run(t, fmt.Sprintf(`{
		transcript(by_id: {genome_id: %q, stable_id: "ENST00000380152.7"}) {
			gene { symbol }
			introns { index so_term slice { location { start end } } }
			spliced_exons { index exon { stable_id slice { region { name } } } }
			product_generating_contexts {
				phased_exons { index start_phase }
				product { __typename stable_id }
			}
			metadata {
				canonical { value label }
				mane { value label ncbi_transcript { id url } }
				tsl { value label }
			}
		}
	}`, human), nil)

	require.Empty(t, res.Errors)
	tr := obj(t, res.Data["transcript"])
	assert.Equal(t, "BRCA2", obj(t, tr["gene"])["symbol"])

	introns := list(t, tr["introns"])
	require.Len(t, introns, 1)
	loc := obj(t, obj(t, obj(t, introns[0])["slice"])["location"])
	assert.EqualValues(t, 32371101, loc["start"])
	assert.EqualValues(t, 32375342, loc["end"])

	exons := list(t, tr["spliced_exons"])
	require.Len(t, exons, 2)
	exon := obj(t, obj(t, exons[0])["exon"])
	assert.Equal(t, "13", obj(t, obj(t, exon["slice"])["region"])["name"])

	pgc := obj(t, list(t, tr["product_generating_contexts"])[0])
	assert.Len(t, list(t, pgc["phased_exons"]), 1)
	product := obj(t, pgc["product"])
	assert.Equal(t, "Protein", product["__typename"])
	assert.Equal(t, "ENSP00000369497.3", product["stable_id"])

	meta := obj(t, tr["metadata"])
	assert.Equal(t, "true", obj(t, meta["canonical"])["value"])
	assert.Equal(t, "Ensembl canonical", obj(t, meta["canonical"])["label"])
	mane := obj(t, meta["mane"])
	assert.Equal(t, "MANE Select", mane["label"])
	assert.Equal(t, "https://www.ncbi.nlm.nih.gov/nuccore/NM_000059.4", obj(t, mane["ncbi_transcript"])["url"])
	assert.Equal(t, "TSL:1", obj(t, meta["tsl"])["label"])
}

func TestOverlapRegion(t *testing.T) {
	f := newFixture(t)
	res := f.run(t, fmt.Sprintf(`{
		overlap_region(by_slice: {genome_id: %q, region_name: "13", start: 32379496, end: 32400266}) {
			genes { stable_id }
			transcripts { stable_id }
		}
	}`, human), nil)

	require.Empty(t, res.Errors)
	locus := obj(t, res.Data["overlap_region"])
	assert.Equal(t, []string{"ENSG00000139618.15"}, ids(t, locus["genes"]))
	assert.Equal(t, []string{"ENST00000380152.7"}, ids(t, locus["transcripts"]))
}

func TestOverlapRegion_WideSliceSorted(t *testing.T) {
	f := newFixture(t)
	res := f.run(t, fmt.Sprintf(`{
		overlap_region(by_slice: {genome_id: %q, region_name: "13", start: 32300000, end: 32400000}) {
			transcripts { stable_id }
		}
	}`, human), nil)

	require.Empty(t, res.Errors)
	assert.Equal(t, []string{"ENST00000380152.7", "ENST00000528762.1"}, ids(t, obj(t, res.Data["overlap_region"])["transcripts"]))
}

func TestOverlapRegion_LimitMet(t *testing.T) {
	f := newFixture(t)
	genome := "dense_genome"
	regionID := genome + "_1_chromosome"
	docs := make([]docstore.Document, 0, OverlapLimit)
	for i := 0; i < OverlapLimit; i++ {
		docs = append(docs, docstore.Document{
			"type":      "Gene",
			"genome_id": genome,
			"stable_id": fmt.Sprintf("G%04d", i),
			"slice": docstore.Document{
				"region_id": regionID,
				"location":  docstore.Document{"start": 100 + i, "end": 200 + i},
			},
		})
	}
	f.backend.Insert("release_default", docstore.CollectionGene, docs...)

	res := f.run(t, fmt.Sprintf(`{
		overlap_region(by_slice: {genome_id: %q, region_name: "1", start: 1, end: 10000}) {
			genes { stable_id }
		}
	}`, genome), nil)

	require.Len(t, res.Errors, 1)
	assert.Equal(t, "SLICE_RESULT_LIMIT_EXCEEDED", code(res.Errors[0]))
	assert.Equal(t, "Slice query met size limit of 1000", res.Errors[0]["message"])
	assert.Equal(t, []any{"overlap_region", "genes"}, res.Errors[0]["path"])
	assert.Nil(t, res.Data["overlap_region"])
}

func TestGeneTranscripts_Ordered(t *testing.T) {
	f := newFixture(t)
	res := f.run(t, fmt.Sprintf(`{
		gene(by_id: {genome_id: %q, stable_id: "ENSG00000139618.15"}) {
			transcripts { stable_id }
		}
	}`, human), nil)

	require.Empty(t, res.Errors)
	assert.Equal(t, []string{"ENST00000380152.7", "ENST00000528762.1"}, ids(t, obj(t, res.Data["gene"])["transcripts"]))
}

func TestGeneTranscriptsPage(t *testing.T) {
	f := newFixture(t)
	query := fmt.Sprintf(`query($page: Int!) {
		gene(by_id: {genome_id: %q, stable_id: "ENSG00000139618.15"}) {
			transcripts_page(page: $page, per_page: 1) {
				transcripts { stable_id }
				page_metadata { page per_page total_count }
			}
		}
	}`, human)

	res := f.run(t, query, map[string]any{"page": 2})
	require.Empty(t, res.Errors)
	page := obj(t, obj(t, res.Data["gene"])["transcripts_page"])
	assert.Equal(t, []string{"ENST00000528762.1"}, ids(t, page["transcripts"]))

	meta := obj(t, page["page_metadata"])
	assert.EqualValues(t, 2, meta["page"])
	assert.EqualValues(t, 1, meta["per_page"])
	assert.EqualValues(t, 2, meta["total_count"])

	res = f.run(t, query, map[string]any{"page": 0})
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "INVALID_ARGUMENT", code(res.Errors[0]))
}

func TestGeneExternalReferences_DropsUnknownMethod(t *testing.T) {
	f := newFixture(t)
	res := f.run(t, fmt.Sprintf(`{
		gene(by_id: {genome_id: %q, stable_id: "ENSG00000139618.15"}) {
			external_references {
				accession_id
				url
				source { id name url description }
				assignment_method { type description }
			}
		}
	}`, human), nil)

	require.Empty(t, res.Errors)
	xrefs := list(t, obj(t, res.Data["gene"])["external_references"])
	require.Len(t, xrefs, 1, "xref with an unknown assignment method is dropped")

	x := obj(t, xrefs[0])
	assert.Equal(t, "HGNC:1101", x["accession_id"])
	assert.Equal(t, "https://www.genenames.org/data/gene-symbol-report/#!/hgnc_id/HGNC:1101", x["url"])
	src := obj(t, x["source"])
	assert.Equal(t, "HGNC", src["id"])
	assert.Equal(t, "https://www.genenames.org/", src["url"])
	assert.NotEmpty(t, src["description"])
	method := obj(t, x["assignment_method"])
	assert.Equal(t, "DIRECT", method["type"])
	assert.Contains(t, method["description"], "imports without modification")
}

func TestGeneMetadataName(t *testing.T) {
	f := newFixture(t)
	query := `query($g: String!, $id: String!) {
		gene(by_id: {genome_id: $g, stable_id: $id}) {
			metadata { biotype { value } name { accession_id value url source { id name url } } }
		}
	}`

	res := f.run(t, query, map[string]any{"g": human, "id": "ENSG00000139618.15"})
	require.Empty(t, res.Errors)
	name := obj(t, obj(t, obj(t, res.Data["gene"])["metadata"])["name"])
	assert.Equal(t, "https://www.genenames.org/data/gene-symbol-report/#!/hgnc_id/HGNC:1101", name["url"])
	src := obj(t, name["source"])
	assert.Equal(t, "HGNC", src["id"])
	assert.Equal(t, "HGNC Symbol", src["name"])
	assert.Equal(t, "https://www.genenames.org/", src["url"])

	res = f.run(t, query, map[string]any{"g": wheat, "id": "TraesCS3D02G273600"})
	require.Empty(t, res.Errors)
	name = obj(t, obj(t, obj(t, res.Data["gene"])["metadata"])["name"])
	assert.Equal(t, "https://purl.uniprot.org/uniprot/A0A1D5TR86", name["url"])
	assert.Nil(t, name["source"], "unnamed source is not reported")
}

func TestAliasedRoots_GetSeparateScopes(t *testing.T) {
	f := newFixture(t)
	scope := NewScope()
	defer scope.Release()

	resp := f.resolver.Executor().Execute(WithScope(context.Background(), scope), gqlexec.Request{
		Query: fmt.Sprintf(`{
			human: gene(by_id: {genome_id: %q, stable_id: "ENSG00000139618.15"}) { transcripts { stable_id } }
			wheat: gene(by_id: {genome_id: %q, stable_id: "TraesCS3D02G273600"}) { transcripts { stable_id } }
		}`, human, wheat),
	})
	require.Empty(t, resp.Errors)
	assert.Equal(t, 2, scope.Roots())

	byGenome := map[string]*RootState{}
	for _, st := range scope.States() {
		byGenome[st.GenomeID] = st
	}
	require.Contains(t, byGenome, human)
	require.Contains(t, byGenome, wheat)
	assert.NotSame(t, byGenome[human].Loaders, byGenome[wheat].Loaders)

	raw, err := json.Marshal(resp)
	require.NoError(t, err)
	var out result
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.Equal(t, []string{"ENST00000380152.7", "ENST00000528762.1"}, ids(t, obj(t, out.Data["human"])["transcripts"]))
	assert.Equal(t, []string{"TraesCS3D02G273600.1"}, ids(t, obj(t, out.Data["wheat"])["transcripts"]))
}

func TestSameGenomeRoots_DoNotShareLoaders(t *testing.T) {
	f := newFixture(t)
	scope := NewScope()
	defer scope.Release()

	resp := f.resolver.Executor().Execute(WithScope(context.Background(), scope), gqlexec.Request{
		Query: fmt.Sprintf(`{
			a: gene(by_id: {genome_id: %[1]q, stable_id: "ENSG00000139618.15"}) { symbol }
			b: gene(by_id: {genome_id: %[1]q, stable_id: "ENSG00000139618"}) { symbol }
		}`, human),
	})
	require.Empty(t, resp.Errors)

	states := scope.States()
	require.Len(t, states, 2)
	assert.NotSame(t, states[0].Loaders, states[1].Loaders)
}

func TestScope_ReleasedRejectsBind(t *testing.T) {
	scope := NewScope()
	scope.Release()
	_, err := scope.Bind(context.Background(), func(context.Context) (*RootState, error) {
		return &RootState{}, nil
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestProduct_Interface(t *testing.T) {
	f := newFixture(t)
	res := f.run(t, fmt.Sprintf(`{
		product(by_id: {genome_id: %q, stable_id: "ENSP00000369497"}) {
			__typename
			stable_id
			... on Protein { length }
			family_matches { sequence_family { name source { name } } score evalue }
			external_references { url source { id } }
			product_generating_context { product_type cds { protein_length } }
		}
	}`, human), nil)

	require.Empty(t, res.Errors)
	p := obj(t, res.Data["product"])
	assert.Equal(t, "Protein", p["__typename"])
	assert.Equal(t, "ENSP00000369497.3", p["stable_id"])
	assert.EqualValues(t, 3418, p["length"])

	match := obj(t, list(t, p["family_matches"])[0])
	assert.Equal(t, "PF09103", obj(t, match["sequence_family"])["name"])
	assert.Equal(t, 212.5, match["score"])

	x := obj(t, list(t, p["external_references"])[0])
	assert.Equal(t, "https://purl.uniprot.org/uniprot/P51587", x["url"])
	assert.Equal(t, "Uniprot/SWISSPROT", obj(t, x["source"])["id"])

	pgc := obj(t, p["product_generating_context"])
	assert.Equal(t, "Protein", pgc["product_type"])
	assert.EqualValues(t, 27436, obj(t, pgc["cds"])["protein_length"])
}

func TestProduct_NotFound(t *testing.T) {
	f := newFixture(t)
	res := f.run(t, fmt.Sprintf(`{ product(by_id: {genome_id: %q, stable_id: "ENSP00000000000"}) { stable_id } }`, human), nil)

	require.Len(t, res.Errors, 1)
	assert.Equal(t, "PRODUCT_NOT_FOUND", code(res.Errors[0]))
}

func TestRegion_AssemblyChain(t *testing.T) {
	f := newFixture(t)
	res := f.run(t, fmt.Sprintf(`{
		region(by_name: {genome_id: %q, name: "13"}) {
			name code length topology
			metadata { ontology_terms { accession_id } }
			assembly {
				name
				regions { name }
				organism {
					scientific_name
					assemblies { assembly_id }
					species { scientific_name organisms { scientific_name } }
				}
			}
		}
	}`, human), nil)

	require.Empty(t, res.Errors)
	region := obj(t, res.Data["region"])
	assert.Equal(t, "chromosome", region["code"])
	assert.EqualValues(t, 114364328, region["length"])

	assembly := obj(t, region["assembly"])
	assert.Equal(t, "GRCh38", assembly["name"])
	assert.Len(t, list(t, assembly["regions"]), 2)

	organism := obj(t, assembly["organism"])
	assert.Equal(t, "Homo sapiens", organism["scientific_name"])
	assert.Equal(t, "GRCh38.p13", obj(t, list(t, organism["assemblies"])[0])["assembly_id"])
	species := obj(t, organism["species"])
	assert.Equal(t, "Homo sapiens", species["scientific_name"])
	assert.Len(t, list(t, species["organisms"]), 1)
}

func TestRegions(t *testing.T) {
	f := newFixture(t)
	res := f.run(t, fmt.Sprintf(`{ regions(by_genome_id: {genome_id: %q}) { name } }`, human), nil)
	require.Empty(t, res.Errors)
	var names []any
	for _, r := range list(t, res.Data["regions"]) {
		names = append(names, obj(t, r)["name"])
	}
	assert.Equal(t, []any{"13", "17"}, names)

	res = f.run(t, `{ regions(by_genome_id: {genome_id: "unknown"}) { name } }`, nil)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "REGIONS_NOT_FOUND", code(res.Errors[0]))
}

func TestRegion_NotFound(t *testing.T) {
	f := newFixture(t)
	res := f.run(t, fmt.Sprintf(`{ region(by_name: {genome_id: %q, name: "99"}) { name } }`, human), nil)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "REGION_NOT_FOUND", code(res.Errors[0]))
}

func TestGenomes_TwoSelectors(t *testing.T) {
	f := newFixture(t)
	res := f.run(t, `{ genomes(by_keyword: {common_name: "human", assembly_name: "GRCh38"}) { genome_id } }`, nil)

	require.Len(t, res.Errors, 1)
	assert.Equal(t, "INPUT_FIELD_ARG_COUNT", code(res.Errors[0]))
	assert.Zero(t, f.meta.calls.Load(), "metadata service is not called")
}

func TestGenomes_ByKeyword(t *testing.T) {
	f := newFixture(t)
	res := f.run(t, `{
		genomes(by_keyword: {common_name: "human", release_version: 110.1}) {
			genome_id
			assembly { accession_id name is_reference }
			organism { scientific_name }
			datasets { dataset_uuid name type }
		}
	}`, nil)

	require.Empty(t, res.Errors)
	genomes := list(t, res.Data["genomes"])
	require.Len(t, genomes, 1)
	g := obj(t, genomes[0])
	assert.Equal(t, "a7335667-93e7-11ec-a39d-005056b38ce3", g["genome_id"])
	assert.Equal(t, "GCA_000001405.29", obj(t, g["assembly"])["accession_id"])
	assert.Equal(t, true, obj(t, g["assembly"])["is_reference"])

	datasets := list(t, g["datasets"])
	require.Len(t, datasets, 1)
	assert.Equal(t, "assembly", obj(t, datasets[0])["name"])
	assert.Equal(t, 110.1, f.meta.release.Load(), "requested release reaches the dataset lookup")
}

func TestGenomes_NotFound(t *testing.T) {
	f := newFixture(t)
	res := f.run(t, `{ genomes(by_keyword: {common_name: "unicorn"}) { genome_id } }`, nil)

	require.Len(t, res.Errors, 1)
	assert.Equal(t, "GENOME_NOT_FOUND", code(res.Errors[0]))
	assert.Equal(t, "unicorn", obj(t, res.Errors[0]["extensions"])["common_name"])
}

func TestGenome_ByUUID(t *testing.T) {
	f := newFixture(t)
	res := f.run(t, `{ genome(by_genome_uuid: {genome_uuid: "a7335667-93e7-11ec-a39d-005056b38ce3"}) { genome_id release { release_version is_current } } }`, nil)
	require.Empty(t, res.Errors)
	release := obj(t, obj(t, res.Data["genome"])["release"])
	assert.Equal(t, 110.1, release["release_version"])

	res = f.run(t, `{ genome(by_genome_uuid: {genome_uuid: "missing"}) { genome_id } }`, nil)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "GENOME_NOT_FOUND", code(res.Errors[0]))
	assert.Nil(t, res.Data["genome"])
}

func TestGenomes_NoMetadataService(t *testing.T) {
	f := newFixture(t, func(c *Config) { c.Metadata = nil })
	res := f.run(t, `{ genome(by_genome_uuid: {genome_uuid: "x"}) { genome_id } }`, nil)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "UPSTREAM_UNAVAILABLE", code(res.Errors[0]))
}

func TestVersion(t *testing.T) {
	f := newFixture(t)
	res := f.run(t, `{ version { api { major minor patch } } }`, nil)
	require.Empty(t, res.Errors)
	assert.Equal(t, map[string]any{"major": "0", "minor": "1", "patch": "0-beta"}, obj(t, res.Data["version"])["api"])

	path := filepath.Join(t.TempDir(), "version.ini")
	require.NoError(t, os.WriteFile(path, []byte("[version]\nmajor = 2\nminor = 3\n"), 0o644))
	f = newFixture(t, func(c *Config) { c.VersionFile = path })
	res = f.run(t, `{ version { api { major minor patch } } }`, nil)
	require.Empty(t, res.Errors)
	assert.Equal(t, map[string]any{"major": "2", "minor": "3", "patch": "0-beta"}, obj(t, res.Data["version"])["api"])
}

func TestResultCache_ServesRepeatedLookups(t *testing.T) {
	backend, err := resultcache.NewMemoryBackend(context.Background(), time.Minute, 100)
	require.NoError(t, err)
	cache := resultcache.NewCache(backend, time.Minute, nil, nil)
	t.Cleanup(func() { _ = cache.Close() })

	f := newFixture(t, func(c *Config) { c.Cache = cache })
	query := fmt.Sprintf(`{ gene(by_id: {genome_id: %q, stable_id: "ENSG00000139618.15"}) { symbol } }`, human)

	res := f.run(t, query, nil)
	require.Empty(t, res.Errors)
	served := f.backend.Queries()
	require.NotZero(t, served)

	res = f.run(t, query, nil)
	require.Empty(t, res.Errors)
	assert.Equal(t, "BRCA2", obj(t, res.Data["gene"])["symbol"])
	assert.Equal(t, served, f.backend.Queries(), "second lookup is served from the cache")
}

func TestRootFieldsAreTimed(t *testing.T) {
	metrics := metric.NewMetricsRegistry().CoreMetrics()
	f := newFixture(t, func(c *Config) { c.Metrics = metrics })

	res := f.run(t, fmt.Sprintf(`{
		version { api { major } }
		gene(by_id: {genome_id: %q, stable_id: "ENSG00000139618.15"}) { transcripts { stable_id } }
	}`, human), nil)
	require.Empty(t, res.Errors)

	assert.Equal(t, 2, testutil.CollectAndCount(metrics.ResolverDuration), "one series per root field")
}

func TestNew_RequiresCollaborators(t *testing.T) {
	_, err := New(Config{})
	require.Error(t, err)
}
