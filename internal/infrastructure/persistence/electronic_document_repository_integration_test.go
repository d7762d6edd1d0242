//go:build integration

package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap/zaptest"
	"gorm.io/driver/postgres"

	"github.com/cloudfly/dian-service/internal/domain/document"
	"github.com/cloudfly/dian-service/internal/domain/shared"
	"github.com/cloudfly/dian-service/internal/infrastructure/migration"
	"github.com/cloudfly/dian-service/internal/testutil"
	"github.com/cloudfly/dian-service/migrations"
)

func setupPostgres(t *testing.T) *Database {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("dian_test"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err, "Failed to start PostgreSQL container")
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := Open(postgres.Open(dsn))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	sqlDB, err := db.DB.DB()
	require.NoError(t, err)
	m, err := migration.New(sqlDB, migrations.FS, zaptest.NewLogger(t))
	require.NoError(t, err)
	require.NoError(t, m.Up())

	version, dirty, err := m.Version()
	require.NoError(t, err)
	assert.NotZero(t, version)
	assert.False(t, dirty)

	return db
}

func TestElectronicDocumentRepository_Integration(t *testing.T) {
	db := setupPostgres(t)
	repo := NewGormElectronicDocumentRepository(db.DB)
	ctx := testutil.ContextWithTimeout(t, time.Minute)

	doc := newDocument(t, "evt-int-1")
	require.NoError(t, repo.Create(ctx, doc))

	t.Run("duplicate event id violates the unique index", func(t *testing.T) {
		err := repo.Create(ctx, newDocument(t, "evt-int-1"))
		assert.ErrorIs(t, err, shared.ErrAlreadyExists)
	})

	t.Run("duplicate source reference violates the partial index", func(t *testing.T) {
		dup := newDocument(t, "evt-int-2")
		dup.SourceDocumentID = doc.SourceDocumentID
		assert.ErrorIs(t, repo.Create(ctx, dup), shared.ErrAlreadyExists)
	})

	t.Run("terminal update round trips", func(t *testing.T) {
		require.NoError(t, doc.StartProcessing())
		require.NoError(t, doc.RecordSubmission("FE1001", "cufe", document.EnvironmentTest, []byte("<Invoice/>")))
		require.NoError(t, doc.Reject(document.SubmissionOutcome{
			RawResponse:  []byte("<fault/>"),
			ErrorCode:    "99",
			ErrorMessage: "Regla FAD06",
		}))
		require.NoError(t, repo.Update(ctx, doc))

		found, err := repo.FindBySource(ctx, doc.TenantID, doc.CompanyID, doc.SourceDocumentID)
		require.NoError(t, err)
		assert.Equal(t, document.StatusRejected, found.Status)
		assert.Equal(t, "99", found.ErrorCode)
		assert.Equal(t, []byte("<Invoice/>"), found.SignedXML)
	})

	t.Run("check constraint rejects unknown status", func(t *testing.T) {
		bad := newDocument(t, "evt-int-3")
		bad.Status = "LOST"
		assert.Error(t, repo.Create(ctx, bad))
	})

	t.Run("list", func(t *testing.T) {
		docs, total, err := repo.List(ctx, document.Filter{TenantID: doc.TenantID, CompanyID: doc.CompanyID})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		assert.Len(t, docs, 1)
	})
}
