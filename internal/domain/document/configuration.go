package document

import "strconv"

// OperationMode is the tenant's active DIAN configuration for a document
// type. It is owned by the configuration service and read-only here.
type OperationMode struct {
	ID                  int64       `json:"id"`
	TenantID            int64       `json:"tenantId"`
	CompanyID           int64       `json:"companyId"`
	DocumentType        string      `json:"documentType"`
	Environment         Environment `json:"environment"`
	CredentialReference string      `json:"credentialReference"`
	CredentialPassword  string      `json:"credentialPassword"`
	SoftwareID          string      `json:"softwareId"`
	PIN                 string      `json:"pin"`
	TestSetID           string      `json:"testSetId,omitempty"`
	Active              *bool       `json:"active,omitempty"`
}

// IsActive treats a missing flag as active
func (m *OperationMode) IsActive() bool {
	return m.Active == nil || *m.Active
}

// NumberingRange is an authority-authorized numbering resolution. The core
// reads the current pointer but never increments it; the configuration
// service must guarantee atomic advancement.
type NumberingRange struct {
	ID               int64  `json:"id"`
	Prefix           string `json:"prefix"`
	NumberRangeFrom  int64  `json:"numberRangeFrom"`
	NumberRangeTo    int64  `json:"numberRangeTo"`
	CurrentNumber    int64  `json:"currentNumber"`
	TechnicalKey     string `json:"technicalKey"`
	ResolutionNumber string `json:"resolutionNumber,omitempty"`
	ValidFrom        *Date  `json:"validFrom,omitempty"`
	ValidTo          *Date  `json:"validTo,omitempty"`
	Active           *bool  `json:"active,omitempty"`
}

// IsActive treats a missing flag as active
func (r *NumberingRange) IsActive() bool {
	return r.Active == nil || *r.Active
}

// NextNumber formats prefix + current pointer. This is a read, not a
// reservation.
func (r *NumberingRange) NextNumber() string {
	return r.Prefix + strconv.FormatInt(r.CurrentNumber, 10)
}

// SubmissionOutcome is the normalized authority reply. Transport failures are
// values too: TransportFailed is set and no verdict is implied.
type SubmissionOutcome struct {
	Accepted        bool
	TransportFailed bool
	ConfirmationID  string
	StatusCode      string
	StatusMessage   string
	RawResponse     []byte
	ErrorCode       string
	ErrorMessage    string
}
