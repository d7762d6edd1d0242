package document

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// ElectronicDocumentEvent is the message published by upstream systems to
// request issuance of a fiscal document
type ElectronicDocumentEvent struct {
	EventID          string          `json:"eventId" validate:"required"`
	DocumentType     Type            `json:"documentType" validate:"required"`
	Origin           Origin          `json:"origin" validate:"required"`
	TenantID         int64           `json:"tenantId" validate:"required"`
	CompanyID        int64           `json:"companyId" validate:"required"`
	SourceSystem     string          `json:"sourceSystem" validate:"required"`
	SourceDocumentID string          `json:"sourceDocumentId" validate:"required"`
	EnvironmentHint  *string         `json:"environmentHint,omitempty"`
	Timestamp        EventTime       `json:"timestamp"`
	Invoice          *InvoicePayload `json:"invoice,omitempty"`
	Payroll          *PayrollPayload `json:"payroll,omitempty"`
	Metadata         string          `json:"metadata,omitempty"`
}

var (
	validatorOnce sync.Once
	eventValidate *validator.Validate
)

// xmlNamePattern accepts unprefixed XML element names in ASCII
var xmlNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_.-]*$`)

func eventValidator() *validator.Validate {
	validatorOnce.Do(func() {
		eventValidate = validator.New(validator.WithRequiredStructEnabled())
		// payroll entry types become element names
		_ = eventValidate.RegisterValidation("xmlname", func(fl validator.FieldLevel) bool {
			return xmlNamePattern.MatchString(fl.Field().String())
		})
	})
	return eventValidate
}

// Validate checks required fields and that exactly one payload matching the
// declared document type is present. Errors wrap ErrValidation.
func (e *ElectronicDocumentEvent) Validate() error {
	if e == nil {
		return fmt.Errorf("%w: event is nil", ErrValidation)
	}
	if !e.DocumentType.IsValid() {
		return fmt.Errorf("%w: unknown document type %q", ErrValidation, e.DocumentType)
	}
	if !e.Origin.IsValid() {
		return fmt.Errorf("%w: unknown origin %q", ErrValidation, e.Origin)
	}

	switch e.DocumentType.Category() {
	case CategoryInvoice:
		if e.Invoice == nil {
			return fmt.Errorf("%w: %s requires an invoice payload", ErrValidation, e.DocumentType)
		}
		if e.Payroll != nil {
			return fmt.Errorf("%w: %s must not carry a payroll payload", ErrValidation, e.DocumentType)
		}
	case CategoryPayroll:
		if e.Payroll == nil {
			return fmt.Errorf("%w: %s requires a payroll payload", ErrValidation, e.DocumentType)
		}
		if e.Invoice != nil {
			return fmt.Errorf("%w: %s must not carry an invoice payload", ErrValidation, e.DocumentType)
		}
		if e.Payroll.DocumentNumber() == "" {
			return fmt.Errorf("%w: payroll requires payrollReceiptId or payrollSequence", ErrValidation)
		}
	}

	if err := eventValidator().Struct(e); err != nil {
		return fmt.Errorf("%w: %s", ErrValidation, describeValidation(err))
	}
	return nil
}

// Environment returns the environment hinted by the event, TEST by default
func (e *ElectronicDocumentEvent) Environment() Environment {
	if e.EnvironmentHint == nil {
		return EnvironmentTest
	}
	return ParseEnvironment(*e.EnvironmentHint)
}

func describeValidation(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fmt.Sprintf("%s failed on %s", fe.Namespace(), fe.Tag()))
	}
	return strings.Join(parts, "; ")
}
