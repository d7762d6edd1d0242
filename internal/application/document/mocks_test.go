package document

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/cloudfly/dian-service/internal/domain/document"
	"github.com/cloudfly/dian-service/internal/infrastructure/codec"
)

// MockRepository is a mock implementation of document.Repository
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Create(ctx context.Context, doc *document.ElectronicDocument) error {
	args := m.Called(ctx, doc)
	return args.Error(0)
}

func (m *MockRepository) Update(ctx context.Context, doc *document.ElectronicDocument) error {
	args := m.Called(ctx, doc)
	return args.Error(0)
}

func (m *MockRepository) FindByID(ctx context.Context, id uuid.UUID) (*document.ElectronicDocument, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*document.ElectronicDocument), args.Error(1)
}

func (m *MockRepository) FindByEventID(ctx context.Context, eventID string) (*document.ElectronicDocument, error) {
	args := m.Called(ctx, eventID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*document.ElectronicDocument), args.Error(1)
}

func (m *MockRepository) ExistsByEventID(ctx context.Context, eventID string) (bool, error) {
	args := m.Called(ctx, eventID)
	return args.Bool(0), args.Error(1)
}

func (m *MockRepository) FindBySource(ctx context.Context, tenantID, companyID int64, sourceDocumentID string) (*document.ElectronicDocument, error) {
	args := m.Called(ctx, tenantID, companyID, sourceDocumentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*document.ElectronicDocument), args.Error(1)
}

func (m *MockRepository) List(ctx context.Context, filter document.Filter) ([]document.ElectronicDocument, int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]document.ElectronicDocument), args.Get(1).(int64), args.Error(2)
}

// MockGateway is a mock implementation of ConfigurationGateway
type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) ActiveOperationMode(ctx context.Context, tenantID, companyID int64, docType document.Type) (*document.OperationMode, error) {
	args := m.Called(ctx, tenantID, companyID, docType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*document.OperationMode), args.Error(1)
}

func (m *MockGateway) ActiveNumberingRange(ctx context.Context, tenantID, companyID int64, docType document.Type, prefix string) (*document.NumberingRange, error) {
	args := m.Called(ctx, tenantID, companyID, docType, prefix)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*document.NumberingRange), args.Error(1)
}

// MockAuthority is a mock implementation of AuthorityClient
type MockAuthority struct {
	mock.Mock
}

func (m *MockAuthority) Submit(ctx context.Context, signedXML []byte, mode *document.OperationMode, category document.Category) document.SubmissionOutcome {
	args := m.Called(ctx, signedXML, mode, category)
	return args.Get(0).(document.SubmissionOutcome)
}

// MockArchive is a mock implementation of ArtifactArchive
type MockArchive struct {
	mock.Mock
}

func (m *MockArchive) Archive(ctx context.Context, doc *document.ElectronicDocument) error {
	args := m.Called(ctx, doc)
	return args.Error(0)
}

// MockMetrics is a mock implementation of Metrics
type MockMetrics struct {
	mock.Mock
}

func (m *MockMetrics) RecordDocument(ctx context.Context, docType document.Type, status document.Status, duration time.Duration) {
	m.Called(ctx, docType, status, duration)
}

func (m *MockMetrics) RecordDiscarded(ctx context.Context, docType document.Type, reason string) {
	m.Called(ctx, docType, reason)
}

// fallbackEncoder always reports a fingerprint fallback
type fallbackEncoder struct{}

func (fallbackEncoder) GenerateInvoiceXML(
	_ document.Type,
	_ *document.InvoicePayload,
	_ *document.OperationMode,
	_ *document.NumberingRange,
	number string,
) (*codec.Result, error) {
	return &codec.Result{
		XML:                 []byte("<Invoice/>"),
		Number:              number,
		Fingerprint:         uuid.NewString(),
		FingerprintFallback: true,
	}, nil
}

// stubProcessor records the documents it was handed
type stubProcessor struct {
	category document.Category
	err      error
	docs     []*document.ElectronicDocument
}

func (p *stubProcessor) Category() document.Category { return p.category }

func (p *stubProcessor) Process(_ context.Context, doc *document.ElectronicDocument, _ *document.ElectronicDocumentEvent) error {
	p.docs = append(p.docs, doc)
	return p.err
}
