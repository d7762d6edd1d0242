package codec

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/cloudfly/dian-service/internal/domain/document"
)

// TaxTypeIVA is the fixed tax-type code in the CUFE field sequence
const TaxTypeIVA = "01"

// DefaultEnvironmentFlag is hashed when neither the payload nor an
// operation mode supplies the ambient
const DefaultEnvironmentFlag = "1"

// InvoiceFingerprintFields is the ordered CUFE input. Field order and
// formatting must match the authority's computation exactly.
type InvoiceFingerprintFields struct {
	Number          string
	IssueDate       document.Date
	IssueTime       document.Clock
	PayableAmount   decimal.Decimal
	TaxAmount       decimal.Decimal
	IssuerID        string
	CustomerID      string
	TechnicalKey    string
	EnvironmentFlag string
}

// Canonical returns the concatenated CUFE input string
func (f InvoiceFingerprintFields) Canonical() string {
	env := f.EnvironmentFlag
	if env == "" {
		env = DefaultEnvironmentFlag
	}
	var b strings.Builder
	b.WriteString(text(f.Number))
	b.WriteString(f.IssueDate.String())
	b.WriteString(f.IssueTime.String())
	b.WriteString(FormatAmount(f.PayableAmount))
	b.WriteString(TaxTypeIVA)
	b.WriteString(FormatAmount(f.TaxAmount))
	b.WriteString(text(f.IssuerID))
	b.WriteString(text(f.CustomerID))
	b.WriteString(text(f.TechnicalKey))
	b.WriteString(text(env))
	return b.String()
}

// NewInvoiceFingerprintFields collects the CUFE inputs of an invoice
func NewInvoiceFingerprintFields(
	payload *document.InvoicePayload,
	numbering *document.NumberingRange,
	number string,
) InvoiceFingerprintFields {
	f := InvoiceFingerprintFields{
		Number:        number,
		IssueDate:     payload.IssueDate,
		IssueTime:     payload.IssueTime,
		PayableAmount: payload.Totals.PayableAmount,
		TaxAmount:     payload.Totals.TotalTaxAmount,
		IssuerID:      payload.Issuer.IdentificationNumber,
		CustomerID:    payload.Customer.IdentificationNumber,
	}
	if numbering != nil {
		f.TechnicalKey = numbering.TechnicalKey
	}
	if payload.Environment != nil {
		f.EnvironmentFlag = *payload.Environment
	}
	return f
}

// PayrollFingerprintFields is the ordered CUNE input
type PayrollFingerprintFields struct {
	Number     string
	IssueDate  document.Date
	NetPayment decimal.Decimal
	EmployerID string
	EmployeeID string
}

// Canonical returns the concatenated CUNE input string
func (f PayrollFingerprintFields) Canonical() string {
	var b strings.Builder
	b.WriteString(text(f.Number))
	b.WriteString(f.IssueDate.String())
	b.WriteString(FormatAmount(f.NetPayment))
	b.WriteString(text(f.EmployerID))
	b.WriteString(text(f.EmployeeID))
	return b.String()
}

// NewPayrollFingerprintFields collects the CUNE inputs of a payroll receipt
func NewPayrollFingerprintFields(payload *document.PayrollPayload, number string) PayrollFingerprintFields {
	return PayrollFingerprintFields{
		Number:     number,
		IssueDate:  payload.IssueDate,
		NetPayment: payload.Totals.NetPayment,
		EmployerID: payload.Employer.IdentificationNumber,
		EmployeeID: payload.Employee.IdentificationNumber,
	}
}

// InvoiceFingerprint computes the CUFE. fallback reports a random value.
func (g *Generator) InvoiceFingerprint(f InvoiceFingerprintFields) (value string, fallback bool) {
	return g.fingerprint(f.Canonical())
}

// PayrollFingerprint computes the CUNE. fallback reports a random value.
func (g *Generator) PayrollFingerprint(f PayrollFingerprintFields) (value string, fallback bool) {
	return g.fingerprint(f.Canonical())
}
