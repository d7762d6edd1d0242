package document

import (
	"github.com/shopspring/decimal"
)

// InvoicePayload carries an invoice, credit note or debit note as issued by
// the upstream system. Amounts arrive pre-computed; no tax is derived here.
type InvoicePayload struct {
	ExternalInvoiceNumber *string           `json:"externalInvoiceNumber,omitempty"`
	IssueDate             Date              `json:"issueDate" validate:"required"`
	IssueTime             Clock             `json:"issueTime"`
	InvoiceTypeCode       string            `json:"invoiceTypeCode,omitempty"`
	Currency              string            `json:"currency" validate:"required,len=3"`
	OrderReference        *string           `json:"orderReference,omitempty"`
	Environment           *string           `json:"environment,omitempty"` // fingerprint environment flag, "1" when absent
	Issuer                Party             `json:"issuer" validate:"required"`
	Customer              Party             `json:"customer" validate:"required"`
	Lines                 []Line            `json:"lines" validate:"dive"`
	Totals                Totals            `json:"totals"`
	PaymentMeans          []Payment         `json:"paymentMeans,omitempty" validate:"dive"`
	BillingReference      *BillingReference `json:"billingReference,omitempty"`
	Notes                 []string          `json:"notes,omitempty"`
}

// DocumentNumber returns the caller-supplied number, if any
func (p *InvoicePayload) DocumentNumber() string {
	if p.ExternalInvoiceNumber == nil {
		return ""
	}
	return *p.ExternalInvoiceNumber
}

// Party identifies an issuer, customer or employer
type Party struct {
	IdentificationType   string   `json:"identificationType" validate:"required"`
	IdentificationNumber string   `json:"identificationNumber" validate:"required"`
	CheckDigit           *string  `json:"checkDigit,omitempty"`
	LegalName            string   `json:"legalName" validate:"required"`
	TaxScheme            string   `json:"taxScheme,omitempty"`
	Email                *string  `json:"email,omitempty"`
	Telephone            *string  `json:"telephone,omitempty"`
	Address              *Address `json:"address,omitempty"`
}

// Address is a physical location in DANE terms
type Address struct {
	CityCode       string `json:"cityCode,omitempty"`
	CityName       string `json:"cityName,omitempty"`
	DepartmentName string `json:"departmentName,omitempty"`
	AddressLine    string `json:"addressLine,omitempty"`
	CountryCode    string `json:"countryCode,omitempty"`
}

// Line is an invoiced item
type Line struct {
	LineNumber          int              `json:"lineNumber" validate:"gte=1"`
	Description         string           `json:"description" validate:"required"`
	ItemCode            *string          `json:"itemCode,omitempty"`
	UnitCode            string           `json:"unitCode,omitempty"`
	Quantity            decimal.Decimal  `json:"quantity"`
	UnitPrice           decimal.Decimal  `json:"unitPrice"`
	LineExtensionAmount *decimal.Decimal `json:"lineExtensionAmount,omitempty"` // quantity x unit price when absent
	TaxPercent          decimal.Decimal  `json:"taxPercent"`
	TaxAmount           decimal.Decimal  `json:"taxAmount"`
}

// ExtensionAmount returns the line total before tax
func (l *Line) ExtensionAmount() decimal.Decimal {
	if l.LineExtensionAmount != nil {
		return *l.LineExtensionAmount
	}
	return l.Quantity.Mul(l.UnitPrice)
}

// Totals is the monetary summary of an invoice
type Totals struct {
	LineExtensionAmount decimal.Decimal `json:"lineExtensionAmount"`
	TaxExclusiveAmount  decimal.Decimal `json:"taxExclusiveAmount"`
	TaxInclusiveAmount  decimal.Decimal `json:"taxInclusiveAmount"`
	TotalTaxAmount      decimal.Decimal `json:"totalTaxAmount"`
	PayableAmount       decimal.Decimal `json:"payableAmount"`
}

// Payment is a payment means entry
type Payment struct {
	PaymentMeansCode string `json:"paymentMeansCode" validate:"required"`
	DueDate          *Date  `json:"dueDate,omitempty"`
}

// BillingReference points a credit or debit note at the document it amends
type BillingReference struct {
	Number      string `json:"number" validate:"required"`
	Fingerprint string `json:"fingerprint,omitempty"`
	IssueDate   *Date  `json:"issueDate,omitempty"`
}

// PayrollPayload carries an individual payroll receipt. Earnings and
// deductions are computed upstream.
type PayrollPayload struct {
	PayrollReceiptID string         `json:"payrollReceiptId,omitempty"`
	PayrollSequence  string         `json:"payrollSequence,omitempty"`
	PayrollType      string         `json:"payrollType,omitempty"`
	IssueDate        Date           `json:"issueDate" validate:"required"`
	Period           PayrollPeriod  `json:"period" validate:"required"`
	Employer         Party          `json:"employer" validate:"required"`
	Employee         Employee       `json:"employee" validate:"required"`
	Earnings         []PayrollEntry `json:"earnings,omitempty" validate:"dive"`
	Deductions       []PayrollEntry `json:"deductions,omitempty" validate:"dive"`
	Provisions       []PayrollEntry `json:"provisions,omitempty" validate:"dive"`
	Totals           PayrollTotals  `json:"totals"`
}

// DocumentNumber returns the receipt id, falling back to the sequence
func (p *PayrollPayload) DocumentNumber() string {
	if p.PayrollReceiptID != "" {
		return p.PayrollReceiptID
	}
	return p.PayrollSequence
}

// PayrollPeriod is the settlement window of a payroll receipt
type PayrollPeriod struct {
	StartDate   Date   `json:"startDate" validate:"required"`
	EndDate     Date   `json:"endDate" validate:"required"`
	Periodicity string `json:"periodicity,omitempty"`
}

// Employee identifies the worker of a payroll receipt
type Employee struct {
	IdentificationType   string          `json:"identificationType" validate:"required"`
	IdentificationNumber string          `json:"identificationNumber" validate:"required"`
	FirstName            string          `json:"firstName" validate:"required"`
	LastName             string          `json:"lastName" validate:"required"`
	ContractType         string          `json:"contractType,omitempty"`
	Salary               decimal.Decimal `json:"salary"`
}

// PayrollEntry is a typed earning, deduction or employer provision
type PayrollEntry struct {
	Type        string          `json:"type" validate:"required,xmlname"`
	Description string          `json:"description,omitempty"`
	Amount      decimal.Decimal `json:"amount"`
}

// PayrollTotals is the monetary summary of a payroll receipt
type PayrollTotals struct {
	TotalEarnings   decimal.Decimal `json:"totalEarnings"`
	TotalDeductions decimal.Decimal `json:"totalDeductions"`
	NetPayment      decimal.Decimal `json:"netPayment"`
}
