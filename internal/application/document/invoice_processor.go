package document

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/cloudfly/dian-service/internal/domain/document"
)

// DefaultInvoicePrefix is used when the caller supplies no number to derive
// a prefix from
const DefaultInvoicePrefix = "FE"

// InvoiceProcessor handles invoices, credit notes and debit notes
type InvoiceProcessor struct {
	pipeline
	gateway ConfigurationGateway
	encoder InvoiceEncoder
}

// NewInvoiceProcessor creates an invoice processor
func NewInvoiceProcessor(deps Dependencies, encoder InvoiceEncoder) *InvoiceProcessor {
	return &InvoiceProcessor{
		pipeline: newPipeline(deps),
		gateway:  deps.Gateway,
		encoder:  encoder,
	}
}

// Category implements Processor
func (p *InvoiceProcessor) Category() document.Category {
	return document.CategoryInvoice
}

// Process implements Processor
func (p *InvoiceProcessor) Process(ctx context.Context, doc *document.ElectronicDocument, event *document.ElectronicDocumentEvent) error {
	return p.run(ctx, doc, event, document.CategoryInvoice, p.build)
}

func (p *InvoiceProcessor) build(ctx context.Context, doc *document.ElectronicDocument, event *document.ElectronicDocumentEvent) (*rendered, error) {
	payload := event.Invoice
	if payload == nil {
		return nil, fmt.Errorf("%w: invoice payload missing", document.ErrValidation)
	}

	mode, err := p.gateway.ActiveOperationMode(ctx, doc.TenantID, doc.CompanyID, doc.Type)
	if err != nil {
		return nil, err
	}

	prefix := InvoicePrefix(payload.ExternalInvoiceNumber)
	numbering, err := p.gateway.ActiveNumberingRange(ctx, doc.TenantID, doc.CompanyID, doc.Type, prefix)
	if err != nil {
		return nil, err
	}

	number := payload.DocumentNumber()
	if number == "" {
		number = numbering.NextNumber()
	}

	result, err := p.encoder.GenerateInvoiceXML(doc.Type, payload, mode, numbering, number)
	if err != nil {
		return nil, fmt.Errorf("generate %s xml: %w", doc.Type, err)
	}
	return &rendered{mode: mode, result: result}, nil
}

// InvoicePrefix selects the numbering resolution of an invoice. An absent
// number uses DefaultInvoicePrefix. A supplied number uses its leading
// non-digit run, which is empty for an all-digit number.
func InvoicePrefix(number *string) string {
	if number == nil {
		return DefaultInvoicePrefix
	}
	n := strings.TrimSpace(*number)
	end := strings.IndexFunc(n, unicode.IsDigit)
	if end < 0 {
		end = len(n)
	}
	return n[:end]
}
