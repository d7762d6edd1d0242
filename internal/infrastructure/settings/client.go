// Package settings reads the active DIAN configuration of a tenant from the
// ERP settings service.
package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/cloudfly/dian-service/internal/domain/document"
)

// API paths of the settings service
const (
	OperationModePath  = "/api/settings/dian/operation-modes/active"
	NumberingRangePath = "/api/settings/dian/resolutions/active"

	DefaultTimeout = 30 * time.Second
	maxBodySize    = 1 << 20
)

// ErrMissingBaseURL is returned by NewClient without a base URL
var ErrMissingBaseURL = errors.New("settings: missing base URL")

// Config holds the settings service connection
type Config struct {
	BaseURL string
	Token   string
	Timeout time.Duration
}

// Client fetches configuration over HTTP. It never retries; callers treat
// every error as fatal for the current document.
type Client struct {
	baseURL    string
	token      string
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

// NewClient creates a settings client
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, ErrMissingBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	c := &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.Token,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// ActiveOperationMode returns the active operation mode for a document type
func (c *Client) ActiveOperationMode(
	ctx context.Context,
	tenantID, companyID int64,
	docType document.Type,
) (*document.OperationMode, error) {
	query := scope(tenantID, companyID, docType)

	var mode *document.OperationMode
	if err := c.get(ctx, OperationModePath, query, &mode); err != nil {
		return nil, fmt.Errorf("operation mode for %s: %w", docType, err)
	}
	if mode == nil || !mode.IsActive() {
		return nil, fmt.Errorf("%w: operation mode for %s", document.ErrConfigurationNotFound, docType)
	}
	mode.Environment = document.ParseEnvironment(string(mode.Environment))

	c.logger.Debug("Operation mode retrieved",
		zap.Int64("tenant_id", tenantID),
		zap.Int64("company_id", companyID),
		zap.Int64("operation_mode_id", mode.ID),
		zap.String("environment", mode.Environment.String()),
	)
	return mode, nil
}

// ActiveNumberingRange returns the active numbering resolution for a prefix
func (c *Client) ActiveNumberingRange(
	ctx context.Context,
	tenantID, companyID int64,
	docType document.Type,
	prefix string,
) (*document.NumberingRange, error) {
	query := scope(tenantID, companyID, docType)
	query.Set("prefix", prefix)

	var numbering *document.NumberingRange
	if err := c.get(ctx, NumberingRangePath, query, &numbering); err != nil {
		return nil, fmt.Errorf("numbering range %q: %w", prefix, err)
	}
	if numbering == nil || !numbering.IsActive() {
		return nil, fmt.Errorf("%w: numbering range %q", document.ErrConfigurationNotFound, prefix)
	}

	c.logger.Debug("Numbering range retrieved",
		zap.Int64("tenant_id", tenantID),
		zap.Int64("company_id", companyID),
		zap.Int64("numbering_range_id", numbering.ID),
		zap.Int64("current_number", numbering.CurrentNumber),
	)
	return numbering, nil
}

func scope(tenantID, companyID int64, docType document.Type) url.Values {
	q := url.Values{}
	q.Set("tenantId", strconv.FormatInt(tenantID, 10))
	q.Set("companyId", strconv.FormatInt(companyID, 10))
	q.Set("documentType", docType.String())
	return q
}

// get decodes the JSON body into out. A 404 or empty body is
// ErrConfigurationNotFound; anything else that fails is
// ErrConfigurationUnavailable.
func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	endpoint := c.baseURL + path + "?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("%w: create request: %v", document.ErrConfigurationUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("Settings request failed", zap.String("path", path), zap.Error(err))
		return fmt.Errorf("%w: %v", document.ErrConfigurationUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return fmt.Errorf("%w: read response: %v", document.ErrConfigurationUnavailable, err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusNoContent:
		return document.ErrConfigurationNotFound
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return fmt.Errorf("%w: HTTP %d", document.ErrConfigurationUnavailable, resp.StatusCode)
	}

	if len(strings.TrimSpace(string(body))) == 0 {
		return document.ErrConfigurationNotFound
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: decode response: %v", document.ErrConfigurationUnavailable, err)
	}
	return nil
}
