package document

import (
	"context"
	"fmt"

	"github.com/cloudfly/dian-service/internal/domain/document"
)

// PayrollProcessor handles individual payroll receipts
type PayrollProcessor struct {
	pipeline
	gateway ConfigurationGateway
	encoder PayrollEncoder
}

// NewPayrollProcessor creates a payroll processor
func NewPayrollProcessor(deps Dependencies, encoder PayrollEncoder) *PayrollProcessor {
	return &PayrollProcessor{
		pipeline: newPipeline(deps),
		gateway:  deps.Gateway,
		encoder:  encoder,
	}
}

// Category implements Processor
func (p *PayrollProcessor) Category() document.Category {
	return document.CategoryPayroll
}

// Process implements Processor
func (p *PayrollProcessor) Process(ctx context.Context, doc *document.ElectronicDocument, event *document.ElectronicDocumentEvent) error {
	return p.run(ctx, doc, event, document.CategoryPayroll, p.build)
}

func (p *PayrollProcessor) build(ctx context.Context, doc *document.ElectronicDocument, event *document.ElectronicDocumentEvent) (*rendered, error) {
	payload := event.Payroll
	if payload == nil {
		return nil, fmt.Errorf("%w: payroll payload missing", document.ErrValidation)
	}

	mode, err := p.gateway.ActiveOperationMode(ctx, doc.TenantID, doc.CompanyID, document.TypePayroll)
	if err != nil {
		return nil, err
	}

	result, err := p.encoder.GeneratePayrollXML(payload, mode, payload.DocumentNumber())
	if err != nil {
		return nil, fmt.Errorf("generate payroll xml: %w", err)
	}
	return &rendered{mode: mode, result: result}, nil
}
