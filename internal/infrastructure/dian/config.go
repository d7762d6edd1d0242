package dian

import (
	"errors"
	"net/url"
	"time"
)

// Endpoint paths of the DIAN WCF services
const (
	InvoicePath = "/wcf/ReceiveInvoice.svc"
	PayrollPath = "/wcf/ReceivePayroll.svc"

	DefaultTimeout = 60 * time.Second
)

// Configuration errors
var (
	ErrMissingTestURL       = errors.New("dian: missing test URL")
	ErrMissingProductionURL = errors.New("dian: missing production URL")
	ErrInvalidURL           = errors.New("dian: invalid URL")
)

// Config holds the authority endpoints
type Config struct {
	TestURL       string
	ProductionURL string
	Timeout       time.Duration
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.TestURL == "" {
		return ErrMissingTestURL
	}
	if c.ProductionURL == "" {
		return ErrMissingProductionURL
	}
	for _, raw := range []string{c.TestURL, c.ProductionURL} {
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return ErrInvalidURL
		}
	}
	return nil
}
