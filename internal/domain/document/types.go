package document

import "strings"

// Type identifies the kind of fiscal document
type Type string

const (
	TypeInvoice    Type = "INVOICE"
	TypeCreditNote Type = "CREDIT_NOTE"
	TypeDebitNote  Type = "DEBIT_NOTE"
	TypePayroll    Type = "PAYROLL"
)

// IsValid checks if the type is a known document type
func (t Type) IsValid() bool {
	switch t {
	case TypeInvoice, TypeCreditNote, TypeDebitNote, TypePayroll:
		return true
	}
	return false
}

// String returns the string representation of Type
func (t Type) String() string {
	return string(t)
}

// Category returns the payload category the type belongs to
func (t Type) Category() Category {
	switch t {
	case TypeInvoice, TypeCreditNote, TypeDebitNote:
		return CategoryInvoice
	case TypePayroll:
		return CategoryPayroll
	}
	return CategoryUnknown
}

// Category groups document types that share a payload shape and pipeline
type Category string

const (
	CategoryUnknown Category = ""
	CategoryInvoice Category = "INVOICE" // invoices, credit notes and debit notes
	CategoryPayroll Category = "PAYROLL" // individual payroll receipts
)

// AllCategories lists every category a processor registry must cover
func AllCategories() []Category {
	return []Category{CategoryInvoice, CategoryPayroll}
}

// Status represents the lifecycle status of an electronic document
type Status string

const (
	StatusReceived   Status = "RECEIVED"   // Persisted, not yet picked by a processor
	StatusProcessing Status = "PROCESSING" // Processor owns the document
	StatusAccepted   Status = "ACCEPTED"   // Authority confirmed the document
	StatusRejected   Status = "REJECTED"   // Authority explicitly declined the document
	StatusError      Status = "ERROR"      // Failed before an authority decision was obtained
)

// IsValid checks if the status is a valid Status
func (s Status) IsValid() bool {
	switch s {
	case StatusReceived, StatusProcessing, StatusAccepted, StatusRejected, StatusError:
		return true
	}
	return false
}

// String returns the string representation of Status
func (s Status) String() string {
	return string(s)
}

// IsTerminal returns true if no further transition is possible
func (s Status) IsTerminal() bool {
	return s == StatusAccepted || s == StatusRejected || s == StatusError
}

// CanTransitionTo reports whether the lifecycle allows moving to next
func (s Status) CanTransitionTo(next Status) bool {
	switch s {
	case StatusReceived:
		return next == StatusProcessing || next == StatusError
	case StatusProcessing:
		return next == StatusAccepted || next == StatusRejected || next == StatusError
	}
	return false
}

// Environment selects the authority endpoint a document is submitted to
type Environment string

const (
	EnvironmentTest       Environment = "TEST"
	EnvironmentProduction Environment = "PRODUCTION"
)

// ParseEnvironment maps free-form input to an Environment, defaulting to TEST
func ParseEnvironment(s string) Environment {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "PRODUCTION", "PROD":
		return EnvironmentProduction
	default:
		return EnvironmentTest
	}
}

// String returns the string representation of Environment
func (e Environment) String() string {
	return string(e)
}

// Origin identifies the upstream business area that emitted an event
type Origin string

const (
	OriginERP Origin = "ERP"
	OriginPOS Origin = "POS"
	OriginHR  Origin = "HR"
	OriginAPI Origin = "API"
)

// IsValid checks if the origin is known
func (o Origin) IsValid() bool {
	switch o {
	case OriginERP, OriginPOS, OriginHR, OriginAPI:
		return true
	}
	return false
}
