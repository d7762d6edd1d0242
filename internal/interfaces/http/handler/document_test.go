package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	docapp "github.com/cloudfly/dian-service/internal/application/document"
	"github.com/cloudfly/dian-service/internal/domain/shared"
	"github.com/cloudfly/dian-service/internal/infrastructure/worker"
	"github.com/cloudfly/dian-service/internal/interfaces/http/dto"
	"github.com/cloudfly/dian-service/internal/interfaces/http/middleware"
	"github.com/cloudfly/dian-service/internal/testutil"
)

type MockDocumentQueries struct {
	mock.Mock
}

func (m *MockDocumentQueries) List(ctx context.Context, query docapp.ListQuery) (*docapp.ListResult, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*docapp.ListResult), args.Error(1)
}

func (m *MockDocumentQueries) Get(ctx context.Context, id uuid.UUID, includeXML bool) (*docapp.DocumentView, error) {
	args := m.Called(ctx, id, includeXML)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*docapp.DocumentView), args.Error(1)
}

func (m *MockDocumentQueries) GetBySource(ctx context.Context, tenantID, companyID int64, sourceDocumentID string) (*docapp.DocumentView, error) {
	args := m.Called(ctx, tenantID, companyID, sourceDocumentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*docapp.DocumentView), args.Error(1)
}

// newDocumentEngine mounts the handler, optionally behind a fake tenant claim
func newDocumentEngine(queries DocumentQueries, claimedTenant int64) *gin.Engine {
	engine := gin.New()
	api := engine.Group("/api/v1")
	if claimedTenant > 0 {
		api.Use(func(c *gin.Context) {
			c.Set(middleware.JWTTenantIDKey, claimedTenant)
			c.Next()
		})
	}
	NewDocumentHandler(queries).RegisterRoutes(api)
	return engine
}

func decode(t *testing.T, body []byte) dto.Response {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(body, &resp))
	return resp
}

func sampleView() *docapp.DocumentView {
	return &docapp.DocumentView{
		ID:               uuid.New(),
		EventID:          "evt-1",
		DocumentType:     "INVOICE",
		TenantID:         testutil.TenantID,
		CompanyID:        testutil.CompanyID,
		SourceDocumentID: "SO-1",
		Status:           "ACCEPTED",
		CreatedAt:        time.Now(),
		UpdatedAt:        time.Now(),
	}
}

func TestDocumentHandler_List(t *testing.T) {
	t.Run("returns page with meta", func(t *testing.T) {
		queries := new(MockDocumentQueries)
		view := sampleView()
		result := shared.NewPaginated([]docapp.DocumentView{*view}, 1, 1, 20)
		queries.On("List", mock.Anything, mock.MatchedBy(func(q docapp.ListQuery) bool {
			return q.TenantID == testutil.TenantID && q.CompanyID == testutil.CompanyID && q.Status == "ACCEPTED"
		})).Return(&result, nil)

		target := fmt.Sprintf("/api/v1/dian/documents?tenantId=%d&companyId=%d&status=ACCEPTED", testutil.TenantID, testutil.CompanyID)
		w := testutil.Do(newDocumentEngine(queries, 0), http.MethodGet, target, nil)

		assert.Equal(t, http.StatusOK, w.Code)
		resp := decode(t, w.Body.Bytes())
		assert.True(t, resp.Success)
		require.NotNil(t, resp.Meta)
		assert.Equal(t, int64(1), resp.Meta.Total)
		queries.AssertExpectations(t)
	})

	t.Run("missing tenant is a bad request", func(t *testing.T) {
		queries := new(MockDocumentQueries)
		w := testutil.Do(newDocumentEngine(queries, 0), http.MethodGet, "/api/v1/dian/documents?companyId=1", nil)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, dto.ErrCodeBadRequest, decode(t, w.Body.Bytes()).Error.Code)
		queries.AssertNotCalled(t, "List", mock.Anything, mock.Anything)
	})

	t.Run("foreign tenant is forbidden", func(t *testing.T) {
		queries := new(MockDocumentQueries)
		target := fmt.Sprintf("/api/v1/dian/documents?tenantId=%d&companyId=1", testutil.TenantID)
		w := testutil.Do(newDocumentEngine(queries, testutil.TenantID+1), http.MethodGet, target, nil)

		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("invalid filter maps to 400", func(t *testing.T) {
		queries := new(MockDocumentQueries)
		queries.On("List", mock.Anything, mock.Anything).
			Return(nil, fmt.Errorf("%w: unknown status", shared.ErrInvalidInput))

		w := testutil.Do(newDocumentEngine(queries, 0), http.MethodGet, "/api/v1/dian/documents?tenantId=1&companyId=1&status=LOST", nil)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, dto.ErrCodeInvalidInput, decode(t, w.Body.Bytes()).Error.Code)
	})
}

func TestDocumentHandler_Get(t *testing.T) {
	t.Run("includes xml by default", func(t *testing.T) {
		queries := new(MockDocumentQueries)
		view := sampleView()
		queries.On("Get", mock.Anything, view.ID, true).Return(view, nil)

		w := testutil.Do(newDocumentEngine(queries, 0), http.MethodGet, "/api/v1/dian/documents/"+view.ID.String(), nil)

		assert.Equal(t, http.StatusOK, w.Code)
		queries.AssertExpectations(t)
	})

	t.Run("includeXml=false is forwarded", func(t *testing.T) {
		queries := new(MockDocumentQueries)
		view := sampleView()
		queries.On("Get", mock.Anything, view.ID, false).Return(view, nil)

		w := testutil.Do(newDocumentEngine(queries, 0), http.MethodGet, "/api/v1/dian/documents/"+view.ID.String()+"?includeXml=false", nil)

		assert.Equal(t, http.StatusOK, w.Code)
		queries.AssertExpectations(t)
	})

	t.Run("rejects malformed params", func(t *testing.T) {
		queries := new(MockDocumentQueries)
		engine := newDocumentEngine(queries, 0)

		w := testutil.Do(engine, http.MethodGet, "/api/v1/dian/documents/not-a-uuid", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)

		w = testutil.Do(engine, http.MethodGet, "/api/v1/dian/documents/"+uuid.NewString()+"?includeXml=maybe", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("not found", func(t *testing.T) {
		queries := new(MockDocumentQueries)
		id := uuid.New()
		queries.On("Get", mock.Anything, id, true).Return(nil, shared.ErrNotFound)

		w := testutil.Do(newDocumentEngine(queries, 0), http.MethodGet, "/api/v1/dian/documents/"+id.String(), nil)

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, dto.ErrCodeNotFound, decode(t, w.Body.Bytes()).Error.Code)
	})

	t.Run("other tenant reads as not found", func(t *testing.T) {
		queries := new(MockDocumentQueries)
		view := sampleView()
		queries.On("Get", mock.Anything, view.ID, true).Return(view, nil)

		w := testutil.Do(newDocumentEngine(queries, testutil.TenantID+1), http.MethodGet, "/api/v1/dian/documents/"+view.ID.String(), nil)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("unexpected error is hidden", func(t *testing.T) {
		queries := new(MockDocumentQueries)
		id := uuid.New()
		queries.On("Get", mock.Anything, id, true).Return(nil, errors.New("connection reset"))

		w := testutil.Do(newDocumentEngine(queries, 0), http.MethodGet, "/api/v1/dian/documents/"+id.String(), nil)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.NotContains(t, w.Body.String(), "connection reset")
	})
}

func TestDocumentHandler_GetBySource(t *testing.T) {
	target := fmt.Sprintf("/api/v1/dian/documents/by-source?tenantId=%d&companyId=%d&sourceDocumentId=SO-1", testutil.TenantID, testutil.CompanyID)

	t.Run("found", func(t *testing.T) {
		queries := new(MockDocumentQueries)
		queries.On("GetBySource", mock.Anything, testutil.TenantID, testutil.CompanyID, "SO-1").Return(sampleView(), nil)

		w := testutil.Do(newDocumentEngine(queries, testutil.TenantID), http.MethodGet, target, nil)

		assert.Equal(t, http.StatusOK, w.Code)
		queries.AssertExpectations(t)
	})

	t.Run("missing source id", func(t *testing.T) {
		queries := new(MockDocumentQueries)
		w := testutil.Do(newDocumentEngine(queries, 0), http.MethodGet, "/api/v1/dian/documents/by-source?tenantId=1&companyId=1", nil)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("not issued", func(t *testing.T) {
		queries := new(MockDocumentQueries)
		queries.On("GetBySource", mock.Anything, testutil.TenantID, testutil.CompanyID, "SO-1").
			Return(nil, fmt.Errorf("by source: %w", shared.ErrNotFound))

		w := testutil.Do(newDocumentEngine(queries, 0), http.MethodGet, target, nil)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

type stubStats struct{ stats worker.Stats }

func (s stubStats) Stats() worker.Stats { return s.stats }

func TestSystemHandler(t *testing.T) {
	newEngine := func(pingErr error) *gin.Engine {
		h := NewSystemHandler("dian-service", "test", stubPinger{err: pingErr}, stubStats{stats: worker.Stats{Workers: 4, QueueSize: 16, Running: true}})
		engine := gin.New()
		engine.GET("/health", h.Health)
		engine.GET("/ready", h.Ready)
		engine.GET("/workers", h.Workers)
		return engine
	}

	t.Run("health", func(t *testing.T) {
		w := testutil.Do(newEngine(nil), http.MethodGet, "/health", nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"status":"ok"`)
	})

	t.Run("ready", func(t *testing.T) {
		w := testutil.Do(newEngine(nil), http.MethodGet, "/ready", nil)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("not ready when database is down", func(t *testing.T) {
		w := testutil.Do(newEngine(errors.New("dial tcp: refused")), http.MethodGet, "/ready", nil)
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Equal(t, dto.ErrCodeUnavailable, decode(t, w.Body.Bytes()).Error.Code)
	})

	t.Run("workers", func(t *testing.T) {
		w := testutil.Do(newEngine(nil), http.MethodGet, "/workers", nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"workers":4`)
		assert.Contains(t, w.Body.String(), `"queueSize":16`)
	})
}
