package document

import (
	"encoding/json"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/cloudfly/dian-service/internal/domain/shared"
)

// MaxErrorMessageLength bounds the persisted error message
const MaxErrorMessageLength = 1000

// ElectronicDocument is the aggregate root tracking one fiscal document from
// intake to the authority's verdict. It is created once per event id and is
// never deleted.
type ElectronicDocument struct {
	shared.BaseEntity
	EventID          string
	Type             Type
	TenantID         int64
	CompanyID        int64
	SourceSystem     string
	SourceDocumentID string
	Status           Status
	DocumentNumber   string
	Fingerprint      string // CUFE for invoices and notes, CUNE for payroll
	Environment      Environment
	SignedXML        []byte
	ResponseXML      []byte
	ErrorCode        string
	ErrorMessage     string
	PayloadJSON      string
	ProcessedAt      *time.Time
}

// NewElectronicDocument records a validated event in RECEIVED status
func NewElectronicDocument(event *ElectronicDocumentEvent) (*ElectronicDocument, error) {
	if err := event.Validate(); err != nil {
		return nil, err
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("%w: payload cannot be serialized: %v", ErrValidation, err)
	}

	return &ElectronicDocument{
		BaseEntity:       shared.NewBaseEntity(),
		EventID:          event.EventID,
		Type:             event.DocumentType,
		TenantID:         event.TenantID,
		CompanyID:        event.CompanyID,
		SourceSystem:     event.SourceSystem,
		SourceDocumentID: event.SourceDocumentID,
		Status:           StatusReceived,
		Environment:      event.Environment(),
		PayloadJSON:      string(payload),
	}, nil
}

// StartProcessing hands the document over to a processor
func (d *ElectronicDocument) StartProcessing() error {
	return d.transition(StatusProcessing)
}

// RecordSubmission stores the artifacts produced for submission. It is only
// allowed while the document is being processed.
func (d *ElectronicDocument) RecordSubmission(number, fingerprint string, env Environment, signedXML []byte) error {
	if d.Status.IsTerminal() {
		return fmt.Errorf("%w: document %s is %s", ErrImmutableDocument, d.ID, d.Status)
	}
	if d.Status != StatusProcessing {
		return fmt.Errorf("%w: cannot record submission while %s", shared.ErrInvalidState, d.Status)
	}
	d.DocumentNumber = number
	d.Fingerprint = fingerprint
	d.Environment = env
	d.SignedXML = signedXML
	d.Touch()
	return nil
}

// Accept finalizes the document after explicit authority confirmation
func (d *ElectronicDocument) Accept(outcome SubmissionOutcome) error {
	if err := d.transition(StatusAccepted); err != nil {
		return err
	}
	d.ResponseXML = outcome.RawResponse
	d.ErrorCode = ""
	d.ErrorMessage = ""
	d.markProcessed()
	return nil
}

// Reject finalizes the document after an explicit authority decline
func (d *ElectronicDocument) Reject(outcome SubmissionOutcome) error {
	if err := d.transition(StatusRejected); err != nil {
		return err
	}
	d.ResponseXML = outcome.RawResponse
	d.setError(outcome.ErrorCode, outcome.ErrorMessage)
	d.markProcessed()
	return nil
}

// Fail finalizes the document when no authority verdict could be obtained
func (d *ElectronicDocument) Fail(code, message string) error {
	if err := d.transition(StatusError); err != nil {
		return err
	}
	d.setError(code, message)
	d.markProcessed()
	return nil
}

// AttachResponse keeps a raw authority reply on a document that failed
// after the wire exchange
func (d *ElectronicDocument) AttachResponse(raw []byte) {
	if d.Status == StatusAccepted || d.Status == StatusRejected {
		return
	}
	d.ResponseXML = raw
}

// IsFinal reports whether signed artifacts are frozen
func (d *ElectronicDocument) IsFinal() bool {
	return d.Status == StatusAccepted || d.Status == StatusRejected
}

func (d *ElectronicDocument) transition(next Status) error {
	if !d.Status.CanTransitionTo(next) {
		if d.Status.IsTerminal() {
			return fmt.Errorf("%w: document %s is %s", ErrImmutableDocument, d.ID, d.Status)
		}
		return fmt.Errorf("%w: %s -> %s", shared.ErrInvalidState, d.Status, next)
	}
	d.Status = next
	d.Touch()
	return nil
}

func (d *ElectronicDocument) setError(code, message string) {
	d.ErrorCode = code
	d.ErrorMessage = truncate(message, MaxErrorMessageLength)
}

func (d *ElectronicDocument) markProcessed() {
	now := time.Now()
	d.ProcessedAt = &now
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
