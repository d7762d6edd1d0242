package settings

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/cloudfly/dian-service/internal/domain/document"
	"github.com/cloudfly/dian-service/internal/infrastructure/cache"
	"github.com/cloudfly/dian-service/internal/testutil"
)

func newClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewClient(Config{BaseURL: srv.URL + "/", Token: "tok", Timeout: time.Second},
		WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, err)
	return c
}

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	require.NoError(t, json.NewEncoder(w).Encode(v))
}

func TestNewClient_RequiresBaseURL(t *testing.T) {
	_, err := NewClient(Config{})
	assert.ErrorIs(t, err, ErrMissingBaseURL)
}

func TestClient_ActiveOperationMode(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, OperationModePath, r.URL.Path)
		assert.Equal(t, "10", r.URL.Query().Get("tenantId"))
		assert.Equal(t, "1", r.URL.Query().Get("companyId"))
		assert.Equal(t, "INVOICE", r.URL.Query().Get("documentType"))
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))

		writeJSON(t, w, map[string]any{
			"id":                  7,
			"environment":         "PRODUCTION",
			"credentialReference": "/certs/a.p12",
			"credentialPassword":  "pw",
			"softwareId":          "soft",
			"pin":                 "123",
		})
	})

	mode, err := c.ActiveOperationMode(context.Background(), 10, 1, document.TypeInvoice)
	require.NoError(t, err)
	assert.Equal(t, int64(7), mode.ID)
	assert.Equal(t, document.EnvironmentProduction, mode.Environment)
	assert.Equal(t, "/certs/a.p12", mode.CredentialReference)
	assert.Equal(t, "pw", mode.CredentialPassword)
}

func TestClient_ActiveNumberingRange(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, NumberingRangePath, r.URL.Path)
		assert.Equal(t, "FE", r.URL.Query().Get("prefix"))
		writeJSON(t, w, testutil.SampleNumberingRange())
	})

	numbering, err := c.ActiveNumberingRange(context.Background(), 10, 1, document.TypeInvoice, "FE")
	require.NoError(t, err)
	assert.Equal(t, "FE1001", numbering.NextNumber())
}

func TestClient_Failures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		target  error
	}{
		{"not found", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNotFound) }, document.ErrConfigurationNotFound},
		{"null body", func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte("null")) }, document.ErrConfigurationNotFound},
		{"empty body", func(w http.ResponseWriter, r *http.Request) {}, document.ErrConfigurationNotFound},
		{"inactive", func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte(`{"id":1,"active":false}`)) }, document.ErrConfigurationNotFound},
		{"server error", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusBadGateway) }, document.ErrConfigurationUnavailable},
		{"bad json", func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte("{")) }, document.ErrConfigurationUnavailable},
		{"timeout", func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-time.After(3 * time.Second):
			case <-r.Context().Done():
			}
		}, document.ErrConfigurationUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newClient(t, tt.handler)

			_, err := c.ActiveOperationMode(context.Background(), 10, 1, document.TypeInvoice)
			assert.ErrorIs(t, err, tt.target)

			_, err = c.ActiveNumberingRange(context.Background(), 10, 1, document.TypeInvoice, "FE")
			assert.ErrorIs(t, err, tt.target)
		})
	}
}

type countingGateway struct {
	modes  atomic.Int32
	ranges atomic.Int32
	err    error
}

func (g *countingGateway) ActiveOperationMode(_ context.Context, tenantID, companyID int64, _ document.Type) (*document.OperationMode, error) {
	g.modes.Add(1)
	if g.err != nil {
		return nil, g.err
	}
	mode := testutil.SampleOperationMode("/certs/a.p12", "pw")
	mode.TenantID, mode.CompanyID = tenantID, companyID
	return mode, nil
}

func (g *countingGateway) ActiveNumberingRange(context.Context, int64, int64, document.Type, string) (*document.NumberingRange, error) {
	g.ranges.Add(1)
	return testutil.SampleNumberingRange(), nil
}

type failingCache struct{}

func (failingCache) Get(context.Context, string) (*document.OperationMode, bool, error) {
	return nil, false, errors.New("cache down")
}

func (failingCache) Set(context.Context, string, *document.OperationMode, time.Duration) error {
	return errors.New("cache down")
}

func TestCachingGateway(t *testing.T) {
	ctx := context.Background()
	store := cache.NewInMemoryModeCache()
	defer store.Close()

	next := &countingGateway{}
	g := NewCachingGateway(next, store, time.Minute, zaptest.NewLogger(t))

	for i := 0; i < 3; i++ {
		mode, err := g.ActiveOperationMode(ctx, 10, 1, document.TypeInvoice)
		require.NoError(t, err)
		assert.Equal(t, int64(10), mode.TenantID)
	}
	assert.Equal(t, int32(1), next.modes.Load())

	_, err := g.ActiveOperationMode(ctx, 10, 2, document.TypeInvoice)
	require.NoError(t, err)
	assert.Equal(t, int32(2), next.modes.Load())

	for i := 0; i < 2; i++ {
		_, err := g.ActiveNumberingRange(ctx, 10, 1, document.TypeInvoice, "FE")
		require.NoError(t, err)
	}
	assert.Equal(t, int32(2), next.ranges.Load(), "numbering ranges are never cached")
}

func TestCachingGateway_ErrorsNotCached(t *testing.T) {
	ctx := context.Background()
	store := cache.NewInMemoryModeCache()
	defer store.Close()

	next := &countingGateway{err: document.ErrConfigurationNotFound}
	g := NewCachingGateway(next, store, time.Minute, nil)

	_, err := g.ActiveOperationMode(ctx, 10, 1, document.TypePayroll)
	assert.ErrorIs(t, err, document.ErrConfigurationNotFound)
	_, err = g.ActiveOperationMode(ctx, 10, 1, document.TypePayroll)
	assert.ErrorIs(t, err, document.ErrConfigurationNotFound)
	assert.Equal(t, int32(2), next.modes.Load())
	assert.Equal(t, 0, store.Size())
}

func TestCachingGateway_BypassesBrokenCache(t *testing.T) {
	next := &countingGateway{}
	g := NewCachingGateway(next, failingCache{}, 0, zaptest.NewLogger(t))

	mode, err := g.ActiveOperationMode(context.Background(), 10, 1, document.TypeInvoice)
	require.NoError(t, err)
	assert.NotNil(t, mode)
	assert.Equal(t, DefaultModeTTL, g.ttl)
}

func TestModeKey(t *testing.T) {
	assert.Equal(t, "10:1:CREDIT_NOTE", ModeKey(10, 1, document.TypeCreditNote))
}
