// Package dian submits signed fiscal documents to the DIAN web services and
// normalizes their replies.
package dian

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/cloudfly/dian-service/internal/domain/document"
)

const maxResponseSize = 10 << 20

// Client talks SOAP to the authority. Submit never returns an error:
// transport problems are reported in the outcome.
type Client struct {
	config     Config
	httpClient *http.Client
	logger     *zap.Logger
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the HTTP client
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(cl *Client) {
		cl.logger = logger
	}
}

// NewClient creates a client for the configured endpoints
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	c := &Client{
		config: cfg,
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Endpoint returns the service URL for an environment and category
func (c *Client) Endpoint(env document.Environment, category document.Category) string {
	base := c.config.TestURL
	if env == document.EnvironmentProduction {
		base = c.config.ProductionURL
	}
	_, path := operationFor(category)
	return base + path
}

// Submit sends signedXML to the environment of mode
func (c *Client) Submit(
	ctx context.Context,
	signedXML []byte,
	mode *document.OperationMode,
	category document.Category,
) document.SubmissionOutcome {
	env := document.EnvironmentTest
	if mode != nil {
		env = mode.Environment
	}
	operation, _ := operationFor(category)
	endpoint := c.Endpoint(env, category)
	fileName := newFileName()

	logger := c.logger.With(
		zap.String("environment", env.String()),
		zap.String("operation", operation),
		zap.String("file_name", fileName),
	)

	envelope, err := BuildEnvelope(signedXML, operation, fileName)
	if err != nil {
		logger.Error("Failed to build SOAP envelope", zap.Error(err))
		return transportFailure(document.CodeConnectionError, fmt.Sprintf("build envelope: %v", err), nil)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(envelope))
	if err != nil {
		return transportFailure(document.CodeConnectionError, fmt.Sprintf("create request: %v", err), nil)
	}
	req.Header.Set("Content-Type", "text/xml; charset=utf-8")
	req.Header.Set("SOAPAction", "")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		logger.Warn("DIAN request failed", zap.Error(err))
		return transportFailure(document.CodeConnectionError, err.Error(), nil)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		logger.Warn("Failed to read DIAN response", zap.Error(err))
		return transportFailure(document.CodeConnectionError, fmt.Sprintf("read response: %v", err), nil)
	}

	logger.Info("DIAN response received", zap.Int("http_status", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return transportFailure(document.CodeConnectionError, fmt.Sprintf("HTTP %d", resp.StatusCode), raw)
	}

	reply, err := ParseReply(raw)
	if err != nil {
		logger.Warn("Failed to parse DIAN response", zap.Error(err))
		return transportFailure(document.CodeParseError, fmt.Sprintf("parse response: %v", err), raw)
	}

	outcome := reply.Outcome(raw)
	logger.Info("DIAN verdict",
		zap.Bool("accepted", outcome.Accepted),
		zap.String("status_code", outcome.StatusCode),
		zap.String("confirmation_id", outcome.ConfirmationID),
	)
	return outcome
}

func transportFailure(code, message string, raw []byte) document.SubmissionOutcome {
	return document.SubmissionOutcome{
		TransportFailed: true,
		RawResponse:     raw,
		ErrorCode:       code,
		ErrorMessage:    message,
	}
}
