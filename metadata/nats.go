package metadata

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/c360/genomegate/errors"
)

// Envelope is the reply format of the NATS metadata responder. Code is
// set alongside Error for outcomes the client treats specially.
type Envelope struct {
	Items []json.RawMessage `json:"items"`
	Error string            `json:"error,omitempty"`
	Code  string            `json:"code,omitempty"`
}

// Envelope codes.
const (
	EnvelopeNotFound        = "NOT_FOUND"
	EnvelopeInvalidArgument = "INVALID_ARGUMENT"
)

// NATSConfig configures a NATS transport.
type NATSConfig struct {
	URL           string
	SubjectPrefix string
	Name          string
	MaxReconnects int
	ReconnectWait time.Duration
	Timeout       time.Duration
	Logger        *slog.Logger
}

// NATSTransport sends JSON requests on {prefix}.{method} and expects an
// Envelope reply.
type NATSTransport struct {
	conn   *nats.Conn
	prefix string
	owned  bool
	logger *slog.Logger
}

// ConnectNATS dials the server and returns a transport owning the
// connection.
func ConnectNATS(ctx context.Context, cfg NATSConfig) (*NATSTransport, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.MaxReconnects == 0 {
		cfg.MaxReconnects = -1
	}
	if cfg.ReconnectWait <= 0 {
		cfg.ReconnectWait = 2 * time.Second
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.Name == "" {
		cfg.Name = "genomegate"
	}
	logger := cfg.Logger.With("component", "metadata-nats")

	opts := []nats.Option{
		nats.Name(cfg.Name),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.Timeout(cfg.Timeout),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("Disconnected from NATS", "error", err)
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("Reconnected to NATS", "url", c.ConnectedUrl())
		}),
		nats.ErrorHandler(func(_ *nats.Conn, _ *nats.Subscription, err error) {
			logger.Error("NATS error", "error", err)
		}),
	}

	type result struct {
		conn *nats.Conn
		err  error
	}
	done := make(chan result, 1)
	go func() {
		conn, err := nats.Connect(cfg.URL, opts...)
		done <- result{conn, err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			return nil, errors.WrapTransient(r.err, "NATSTransport", "Connect", "establish connection")
		}
		logger.Info("Connected to NATS", "url", cfg.URL)
		t := NewNATSTransport(r.conn, cfg.SubjectPrefix, cfg.Logger)
		t.owned = true
		return t, nil
	case <-ctx.Done():
		go func() {
			if r := <-done; r.conn != nil {
				r.conn.Close()
			}
		}()
		return nil, errors.WrapTransient(ctx.Err(), "NATSTransport", "Connect", "connection cancelled")
	}
}

// NewNATSTransport uses an existing connection, which the caller keeps
// ownership of.
func NewNATSTransport(conn *nats.Conn, subjectPrefix string, logger *slog.Logger) *NATSTransport {
	if logger == nil {
		logger = slog.Default()
	}
	if subjectPrefix == "" {
		subjectPrefix = "ensembl_metadata"
	}
	return &NATSTransport{conn: conn, prefix: subjectPrefix, logger: logger.With("component", "metadata-nats")}
}

// Subject returns the request subject for method.
func (t *NATSTransport) Subject(method string) string {
	return t.prefix + "." + method
}

// Call implements Transport.
func (t *NATSTransport) Call(ctx context.Context, method string, request any) ([]json.RawMessage, error) {
	data, err := json.Marshal(request)
	if err != nil {
		return nil, errors.WrapInvalid(err, "NATSTransport", method, "marshal request")
	}

	msg, err := t.conn.RequestWithContext(ctx, t.Subject(method), data)
	if err != nil {
		t.logger.Debug("Metadata request failed", "subject", t.Subject(method), "error", err)
		return nil, errors.WrapTransient(err, "NATSTransport", method, "request "+t.Subject(method))
	}

	var env Envelope
	if err := json.Unmarshal(msg.Data, &env); err != nil {
		return nil, errors.WrapInvalid(err, "NATSTransport", method, "unmarshal response")
	}

	switch {
	case env.Code == EnvelopeNotFound:
		return nil, nil
	case env.Code == EnvelopeInvalidArgument:
		return nil, errors.InvalidArgument(env.Error)
	case env.Error != "":
		return nil, errors.WrapTransient(stderrors.New(env.Error), "NATSTransport", method, "remote service error")
	}
	return env.Items, nil
}

// Close closes the connection if the transport opened it.
func (t *NATSTransport) Close() error {
	if t.owned {
		t.conn.Close()
	}
	return nil
}
