package document

import (
	"context"
	"time"

	"github.com/cloudfly/dian-service/internal/domain/document"
	"github.com/cloudfly/dian-service/internal/infrastructure/codec"
)

// ConfigurationGateway reads the tenant's DIAN configuration
type ConfigurationGateway interface {
	ActiveOperationMode(ctx context.Context, tenantID, companyID int64, docType document.Type) (*document.OperationMode, error)
	ActiveNumberingRange(ctx context.Context, tenantID, companyID int64, docType document.Type, prefix string) (*document.NumberingRange, error)
}

// InvoiceEncoder renders invoices, credit notes and debit notes
type InvoiceEncoder interface {
	GenerateInvoiceXML(
		docType document.Type,
		payload *document.InvoicePayload,
		mode *document.OperationMode,
		numbering *document.NumberingRange,
		number string,
	) (*codec.Result, error)
}

// PayrollEncoder renders individual payroll receipts
type PayrollEncoder interface {
	GeneratePayrollXML(payload *document.PayrollPayload, mode *document.OperationMode, number string) (*codec.Result, error)
}

// Signer applies the enveloped signature
type Signer interface {
	Sign(xml []byte, credentialReference, password string) ([]byte, error)
}

// AuthorityClient submits signed documents. Transport failures are reported
// through the outcome, not as errors.
type AuthorityClient interface {
	Submit(ctx context.Context, signedXML []byte, mode *document.OperationMode, category document.Category) document.SubmissionOutcome
}

// ArtifactArchive stores the signed XML and authority reply of a finished
// document
type ArtifactArchive interface {
	Archive(ctx context.Context, doc *document.ElectronicDocument) error
}

// Metrics records pipeline measurements
type Metrics interface {
	RecordDocument(ctx context.Context, docType document.Type, status document.Status, duration time.Duration)
	RecordDiscarded(ctx context.Context, docType document.Type, reason string)
}

type nopArchive struct{}

func (nopArchive) Archive(context.Context, *document.ElectronicDocument) error { return nil }

type nopMetrics struct{}

func (nopMetrics) RecordDocument(context.Context, document.Type, document.Status, time.Duration) {}
func (nopMetrics) RecordDiscarded(context.Context, document.Type, string)                       {}
