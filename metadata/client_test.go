package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/genomegate/errors"
	"github.com/c360/genomegate/metric"
)

type stubTransport struct {
	responses []json.RawMessage
	err       error
	method    string
	request   any
}

func (s *stubTransport) Call(_ context.Context, method string, request any) ([]json.RawMessage, error) {
	s.method = method
	s.request = request
	return s.responses, s.err
}

func (s *stubTransport) Close() error { return nil }

func TestKeywordSelector_Validate(t *testing.T) {
	assert.NoError(t, KeywordSelector{AssemblyAccessionID: "GCA_000001405.28"}.Validate())
	assert.NoError(t, KeywordSelector{SpeciesTaxonomyID: "9606"}.Validate())

	err := KeywordSelector{}.Validate()
	assert.True(t, errors.HasCode(err, errors.CodeInvalidArgument))

	err = KeywordSelector{EnsemblName: "homo_sapiens", ScientificParlanceName: "human"}.Validate()
	assert.True(t, errors.HasCode(err, errors.CodeInvalidArgument))
}

func TestClient_RequestShape(t *testing.T) {
	stub := &stubTransport{}
	client := NewClient(stub, ClientConfig{})

	_, err := client.GenomesByKeyword(context.Background(), KeywordSelector{Tolid: "mHomSap1"}, 110)
	require.NoError(t, err)
	assert.Equal(t, MethodGenomesByKeyword, stub.method)

	body, err := json.Marshal(stub.request)
	require.NoError(t, err)
	assert.JSONEq(t, `{"tolid":"mHomSap1","release_version":110}`, string(body))

	_, err = client.ReleaseByGenome(context.Background(), humanUUID)
	require.NoError(t, err)
	body, err = json.Marshal(stub.request)
	require.NoError(t, err)
	assert.JSONEq(t, `{"genome_uuid":"`+humanUUID+`"}`, string(body))
}

func TestClient_MissingUUID(t *testing.T) {
	client := NewClient(&stubTransport{}, ClientConfig{})

	_, err := client.GenomeByUUID(context.Background(), "", 0)
	assert.True(t, errors.HasCode(err, errors.CodeMissingArgument))
	_, err = client.DatasetsByUUID(context.Background(), "", 0)
	assert.True(t, errors.HasCode(err, errors.CodeMissingArgument))
}

func TestClient_FailuresAreUpstreamUnavailable(t *testing.T) {
	registry := metric.NewMetricsRegistry()
	metrics := registry.CoreMetrics()
	client := NewClient(&stubTransport{err: fmt.Errorf("dial tcp: connection refused")}, ClientConfig{
		Timeout: time.Second,
		Metrics: metrics,
	})

	_, err := client.GenomeByUUID(context.Background(), humanUUID, 0)
	require.Error(t, err)
	qe, ok := errors.AsQueryError(err)
	require.True(t, ok)
	assert.Equal(t, errors.CodeUpstreamUnavailable, qe.Code)
	assert.Equal(t, "metadata", qe.Extensions()["service"])

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.UpstreamCalls.WithLabelValues("metadata", MethodGenomeByUUID, "error")))
}

func TestClient_UndecodableResponse(t *testing.T) {
	client := NewClient(&stubTransport{responses: []json.RawMessage{json.RawMessage(`{"genome_uuid": 7}`)}}, ClientConfig{})

	_, err := client.GenomeByUUID(context.Background(), humanUUID, 0)
	assert.True(t, errors.HasCode(err, errors.CodeUpstreamUnavailable))
}

func TestClient_Ping(t *testing.T) {
	stub := &stubTransport{}
	client := NewClient(stub, ClientConfig{})
	require.NoError(t, client.Ping(context.Background()))
	assert.Equal(t, MethodGenomeByUUID, stub.method)

	stub.err = errors.InvalidArgument("unknown genome")
	assert.NoError(t, client.Ping(context.Background()), "a rejected lookup still proves the service is up")

	stub.err = fmt.Errorf("connection refused")
	err := client.Ping(context.Background())
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeUpstreamUnavailable))
}
