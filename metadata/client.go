package metadata

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/c360/genomegate/docstore"
	"github.com/c360/genomegate/errors"
	"github.com/c360/genomegate/metric"
	"github.com/c360/genomegate/tracing"
)

// Service and method names of the metadata service.
const (
	ServiceName = "ensembl_metadata.EnsemblMetadata"

	MethodGenomeByUUID     = "GetGenomeByUUID"
	MethodGenomesByKeyword = "GetGenomesBySpecificKeyword"
	MethodDatasetsByUUID   = "GetDatasetsListByUUID"
	MethodReleaseByGenome  = "GetReleaseVersionByUUID"
)

const upstreamName = "metadata"

// Transport carries one call to the metadata service. Requests and
// responses are JSON objects using the service's field names. A unary
// call yields one response, a server stream yields one per message.
// A missing record yields no responses and no error.
type Transport interface {
	Call(ctx context.Context, method string, request any) ([]json.RawMessage, error)
	Close() error
}

// ClientConfig configures a Client.
type ClientConfig struct {
	Timeout time.Duration
	Metrics *metric.Metrics
	Logger  *slog.Logger
}

// Client is the typed metadata service client.
type Client struct {
	transport Transport
	timeout   time.Duration
	metrics   *metric.Metrics
	logger    *slog.Logger
}

var _ docstore.ReleaseResolver = (*Client)(nil)

// NewClient wraps transport.
func NewClient(transport Transport, cfg ClientConfig) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Client{
		transport: transport,
		timeout:   cfg.Timeout,
		metrics:   cfg.Metrics,
		logger:    cfg.Logger.With("component", "metadata"),
	}
}

type uuidRequest struct {
	GenomeUUID     string  `json:"genome_uuid"`
	ReleaseVersion float64 `json:"release_version,omitempty"`
}

type keywordRequest struct {
	KeywordSelector
	ReleaseVersion float64 `json:"release_version,omitempty"`
}

// GenomeByUUID fetches one genome. A nil genome without error means the
// service does not know the UUID. release 0 means the current release.
func (c *Client) GenomeByUUID(ctx context.Context, genomeUUID string, release float64) (*Genome, error) {
	if genomeUUID == "" {
		return nil, errors.MissingArgument("genome_uuid")
	}
	var genome *Genome
	err := c.call(ctx, MethodGenomeByUUID, uuidRequest{GenomeUUID: genomeUUID, ReleaseVersion: release}, func(raw json.RawMessage) error {
		var g Genome
		if err := json.Unmarshal(raw, &g); err != nil {
			return err
		}
		if g.GenomeUUID != "" {
			genome = &g
		}
		return nil
	})
	return genome, err
}

// GenomesByKeyword collects the genome stream for a selector.
func (c *Client) GenomesByKeyword(ctx context.Context, selector KeywordSelector, release float64) ([]Genome, error) {
	if err := selector.Validate(); err != nil {
		return nil, err
	}
	genomes := []Genome{}
	err := c.call(ctx, MethodGenomesByKeyword, keywordRequest{KeywordSelector: selector, ReleaseVersion: release}, func(raw json.RawMessage) error {
		var g Genome
		if err := json.Unmarshal(raw, &g); err != nil {
			return err
		}
		if g.GenomeUUID != "" {
			genomes = append(genomes, g)
		}
		return nil
	})
	return genomes, err
}

// DatasetsByUUID lists the datasets attached to a genome.
func (c *Client) DatasetsByUUID(ctx context.Context, genomeUUID string, release float64) ([]Dataset, error) {
	if genomeUUID == "" {
		return nil, errors.MissingArgument("genome_uuid")
	}
	datasets := []Dataset{}
	err := c.call(ctx, MethodDatasetsByUUID, uuidRequest{GenomeUUID: genomeUUID, ReleaseVersion: release}, func(raw json.RawMessage) error {
		var resp struct {
			DatasetInfos []Dataset `json:"dataset_infos"`
		}
		if err := json.Unmarshal(raw, &resp); err != nil {
			return err
		}
		datasets = append(datasets, resp.DatasetInfos...)
		return nil
	})
	return datasets, err
}

// ReleaseByGenome returns the release version of a genome formatted for
// database naming, or "" when the genome has none.
func (c *Client) ReleaseByGenome(ctx context.Context, genomeUUID string) (string, error) {
	var version float64
	err := c.call(ctx, MethodReleaseByGenome, uuidRequest{GenomeUUID: genomeUUID}, func(raw json.RawMessage) error {
		var resp struct {
			ReleaseVersion float64 `json:"release_version"`
		}
		if err := json.Unmarshal(raw, &resp); err != nil {
			return err
		}
		version = resp.ReleaseVersion
		return nil
	})
	if err != nil || version == 0 {
		return "", err
	}
	return docstore.FormatVersion(version), nil
}

// pingUUID names no genome; looking it up exercises the transport only.
const pingUUID = "00000000-0000-0000-0000-000000000000"

// Ping reports whether the service answers. A lookup the service rejects
// still proves it is reachable.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.GenomeByUUID(ctx, pingUUID, 0)
	if err != nil && !errors.HasCode(err, errors.CodeUpstreamUnavailable) {
		return nil
	}
	return err
}

// Close closes the transport.
func (c *Client) Close() error {
	return c.transport.Close()
}

func (c *Client) call(ctx context.Context, method string, request any, decode func(json.RawMessage) error) error {
	ctx, span := tracing.Start(ctx, "metadata."+method, attribute.String("rpc.method", method))
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	responses, err := c.transport.Call(ctx, method, request)
	if err == nil {
		for _, raw := range responses {
			if err = decode(raw); err != nil {
				err = errors.WrapInvalid(err, "Client", method, "decode response")
				break
			}
		}
	}
	if c.metrics != nil {
		c.metrics.RecordUpstream(upstreamName, method, time.Since(start), err)
	}
	tracing.End(span, err)

	if err != nil {
		c.logger.Debug("Metadata call failed", "method", method, "error", err)
		if _, ok := errors.AsQueryError(err); ok {
			return err
		}
		return errors.UpstreamUnavailable(upstreamName, err)
	}
	return nil
}
