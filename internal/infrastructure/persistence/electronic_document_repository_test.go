package persistence

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"

	"github.com/cloudfly/dian-service/internal/domain/document"
	"github.com/cloudfly/dian-service/internal/domain/shared"
	"github.com/cloudfly/dian-service/internal/testutil"
)

func setupDocumentTestDB(t *testing.T) *GormElectronicDocumentRepository {
	t.Helper()
	db, err := Open(sqlite.Open(":memory:"))
	require.NoError(t, err)

	sqlDB, err := db.DB.DB()
	require.NoError(t, err)
	// every connection to :memory: is a separate database
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, db.DB.AutoMigrate(&ElectronicDocumentModel{}))
	return NewGormElectronicDocumentRepository(db.DB)
}

func newDocument(t *testing.T, eventID string) *document.ElectronicDocument {
	t.Helper()
	doc, err := document.NewElectronicDocument(testutil.SampleInvoiceEvent(eventID))
	require.NoError(t, err)
	return doc
}

func TestElectronicDocumentRepository_CreateAndFind(t *testing.T) {
	repo := setupDocumentTestDB(t)
	ctx := context.Background()

	doc := newDocument(t, "evt-1")
	require.NoError(t, repo.Create(ctx, doc))

	t.Run("by id", func(t *testing.T) {
		found, err := repo.FindByID(ctx, doc.ID)
		require.NoError(t, err)
		assert.Equal(t, doc.EventID, found.EventID)
		assert.Equal(t, document.TypeInvoice, found.Type)
		assert.Equal(t, document.StatusReceived, found.Status)
		assert.Equal(t, document.EnvironmentTest, found.Environment)
		assert.Equal(t, doc.PayloadJSON, found.PayloadJSON)
		assert.Nil(t, found.ProcessedAt)
	})

	t.Run("by event id", func(t *testing.T) {
		found, err := repo.FindByEventID(ctx, "evt-1")
		require.NoError(t, err)
		assert.Equal(t, doc.ID, found.ID)
	})

	t.Run("exists", func(t *testing.T) {
		exists, err := repo.ExistsByEventID(ctx, "evt-1")
		require.NoError(t, err)
		assert.True(t, exists)

		exists, err = repo.ExistsByEventID(ctx, "evt-unknown")
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("not found", func(t *testing.T) {
		_, err := repo.FindByID(ctx, uuid.New())
		assert.ErrorIs(t, err, shared.ErrNotFound)

		_, err = repo.FindByEventID(ctx, "evt-unknown")
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestElectronicDocumentRepository_UniqueKeys(t *testing.T) {
	repo := setupDocumentTestDB(t)
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, newDocument(t, "evt-1")))

	t.Run("same event id", func(t *testing.T) {
		err := repo.Create(ctx, newDocument(t, "evt-1"))
		assert.ErrorIs(t, err, shared.ErrAlreadyExists)
	})

	t.Run("same source reference", func(t *testing.T) {
		dup := newDocument(t, "evt-2")
		dup.SourceDocumentID = "INV-evt-1"
		err := repo.Create(ctx, dup)
		assert.ErrorIs(t, err, shared.ErrAlreadyExists)
	})

	t.Run("same source in another company", func(t *testing.T) {
		other := newDocument(t, "evt-3")
		other.SourceDocumentID = "INV-evt-1"
		other.CompanyID = 2
		assert.NoError(t, repo.Create(ctx, other))
	})
}

func TestElectronicDocumentRepository_Update(t *testing.T) {
	repo := setupDocumentTestDB(t)
	ctx := context.Background()

	doc := newDocument(t, "evt-1")
	require.NoError(t, repo.Create(ctx, doc))

	require.NoError(t, doc.StartProcessing())
	require.NoError(t, doc.RecordSubmission("FE1001", "abc123", document.EnvironmentProduction, []byte("<Invoice/>")))
	require.NoError(t, doc.Accept(document.SubmissionOutcome{Accepted: true, RawResponse: []byte("<ok/>")}))
	require.NoError(t, repo.Update(ctx, doc))

	found, err := repo.FindByID(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, document.StatusAccepted, found.Status)
	assert.Equal(t, "FE1001", found.DocumentNumber)
	assert.Equal(t, "abc123", found.Fingerprint)
	assert.Equal(t, document.EnvironmentProduction, found.Environment)
	assert.Equal(t, []byte("<Invoice/>"), found.SignedXML)
	assert.Equal(t, []byte("<ok/>"), found.ResponseXML)
	require.NotNil(t, found.ProcessedAt)

	t.Run("unknown document", func(t *testing.T) {
		err := repo.Update(ctx, newDocument(t, "evt-ghost"))
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestElectronicDocumentRepository_FindBySource(t *testing.T) {
	repo := setupDocumentTestDB(t)
	ctx := context.Background()

	doc := newDocument(t, "evt-1")
	require.NoError(t, repo.Create(ctx, doc))

	found, err := repo.FindBySource(ctx, testutil.TenantID, testutil.CompanyID, "INV-evt-1")
	require.NoError(t, err)
	assert.Equal(t, doc.ID, found.ID)

	_, err = repo.FindBySource(ctx, testutil.TenantID, 99, "INV-evt-1")
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestElectronicDocumentRepository_List(t *testing.T) {
	repo := setupDocumentTestDB(t)
	ctx := context.Background()

	base := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"evt-a", "evt-b", "evt-c", "evt-d"} {
		doc := newDocument(t, id)
		doc.CreatedAt = base.Add(time.Duration(i) * time.Hour)
		doc.UpdatedAt = doc.CreatedAt
		if i%2 == 1 {
			require.NoError(t, doc.Fail(document.CodeProcessingError, "boom"))
		}
		require.NoError(t, repo.Create(ctx, doc))
	}
	foreign := newDocument(t, "evt-foreign")
	foreign.TenantID = 99
	require.NoError(t, repo.Create(ctx, foreign))

	t.Run("scoped and newest first", func(t *testing.T) {
		docs, total, err := repo.List(ctx, document.Filter{TenantID: testutil.TenantID, CompanyID: testutil.CompanyID})
		require.NoError(t, err)
		assert.Equal(t, int64(4), total)
		require.Len(t, docs, 4)
		assert.Equal(t, "evt-d", docs[0].EventID)
		assert.Equal(t, "evt-a", docs[3].EventID)
	})

	t.Run("by status", func(t *testing.T) {
		docs, total, err := repo.List(ctx, document.Filter{
			TenantID:  testutil.TenantID,
			CompanyID: testutil.CompanyID,
			Status:    document.StatusError,
		})
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)
		for _, d := range docs {
			assert.Equal(t, document.StatusError, d.Status)
		}
	})

	t.Run("by type and source", func(t *testing.T) {
		docs, total, err := repo.List(ctx, document.Filter{
			TenantID:         testutil.TenantID,
			CompanyID:        testutil.CompanyID,
			Type:             document.TypeInvoice,
			SourceDocumentID: "INV-evt-b",
		})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		require.Len(t, docs, 1)
		assert.Equal(t, "evt-b", docs[0].EventID)
	})

	t.Run("paginates", func(t *testing.T) {
		docs, total, err := repo.List(ctx, document.Filter{
			TenantID:  testutil.TenantID,
			CompanyID: testutil.CompanyID,
			Page:      2,
			PageSize:  3,
		})
		require.NoError(t, err)
		assert.Equal(t, int64(4), total)
		require.Len(t, docs, 1)
		assert.Equal(t, "evt-a", docs[0].EventID)
	})
}

func TestElectronicDocumentRepository_Postgres(t *testing.T) {
	t.Run("translates unique violation", func(t *testing.T) {
		mdb := testutil.NewMockDB(t)
		repo := NewGormElectronicDocumentRepository(mdb.DB)

		mdb.Mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "electronic_documents"`)).
			WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "idx_electronic_documents_event_id"})

		err := repo.Create(context.Background(), newDocument(t, "evt-1"))
		assert.ErrorIs(t, err, shared.ErrAlreadyExists)
		mdb.ExpectationsWereMet(t)
	})

	t.Run("exists counts by event id", func(t *testing.T) {
		mdb := testutil.NewMockDB(t)
		repo := NewGormElectronicDocumentRepository(mdb.DB)

		mdb.Mock.ExpectQuery(`SELECT count\(\*\) FROM "electronic_documents" WHERE event_id = \$1`).
			WithArgs("evt-1").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

		exists, err := repo.ExistsByEventID(context.Background(), "evt-1")
		require.NoError(t, err)
		assert.True(t, exists)
		mdb.ExpectationsWereMet(t)
	})

	t.Run("update without match", func(t *testing.T) {
		mdb := testutil.NewMockDB(t)
		repo := NewGormElectronicDocumentRepository(mdb.DB)

		mdb.Mock.ExpectExec(`UPDATE "electronic_documents" SET .* WHERE "id" = \$\d+`).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.Update(context.Background(), newDocument(t, "evt-1"))
		assert.ErrorIs(t, err, shared.ErrNotFound)
		mdb.ExpectationsWereMet(t)
	})
}
