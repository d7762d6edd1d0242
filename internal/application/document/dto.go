package document

import (
	"encoding/base64"
	"time"

	"github.com/google/uuid"

	"github.com/cloudfly/dian-service/internal/domain/document"
	"github.com/cloudfly/dian-service/internal/domain/shared"
)

// ListQuery selects documents of one tenant company
type ListQuery struct {
	TenantID         int64  `form:"tenantId" binding:"required"`
	CompanyID        int64  `form:"companyId" binding:"required"`
	DocumentType     string `form:"documentType"`
	Status           string `form:"status"`
	SourceDocumentID string `form:"sourceDocumentId"`
	Page             int    `form:"page"`
	PageSize         int    `form:"page_size"`
}

// ListResult is one page of document views
type ListResult = shared.Paginated[DocumentView]

// DocumentView is the read model exposed to consumers
type DocumentView struct {
	ID               uuid.UUID  `json:"id"`
	EventID          string     `json:"eventId"`
	DocumentType     string     `json:"documentType"`
	TenantID         int64      `json:"tenantId"`
	CompanyID        int64      `json:"companyId"`
	SourceSystem     string     `json:"sourceSystem"`
	SourceDocumentID string     `json:"sourceDocumentId"`
	Status           string     `json:"status"`
	DocumentNumber   string     `json:"documentNumber,omitempty"`
	Fingerprint      string     `json:"fingerprint,omitempty"`
	Environment      string     `json:"environment"`
	ErrorCode        string     `json:"errorCode,omitempty"`
	ErrorMessage     string     `json:"errorMessage,omitempty"`
	SignedXML        string     `json:"signedXml,omitempty"`   // base64
	ResponseXML      string     `json:"responseXml,omitempty"` // base64
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
	ProcessedAt      *time.Time `json:"processedAt,omitempty"`
}

// ToDocumentView converts an aggregate. Artifacts are base64-encoded and only
// included when includeXML is set.
func ToDocumentView(d *document.ElectronicDocument, includeXML bool) DocumentView {
	view := DocumentView{
		ID:               d.ID,
		EventID:          d.EventID,
		DocumentType:     d.Type.String(),
		TenantID:         d.TenantID,
		CompanyID:        d.CompanyID,
		SourceSystem:     d.SourceSystem,
		SourceDocumentID: d.SourceDocumentID,
		Status:           d.Status.String(),
		DocumentNumber:   d.DocumentNumber,
		Fingerprint:      d.Fingerprint,
		Environment:      d.Environment.String(),
		ErrorCode:        d.ErrorCode,
		ErrorMessage:     d.ErrorMessage,
		CreatedAt:        d.CreatedAt,
		UpdatedAt:        d.UpdatedAt,
		ProcessedAt:      d.ProcessedAt,
	}
	if includeXML {
		view.SignedXML = encode(d.SignedXML)
		view.ResponseXML = encode(d.ResponseXML)
	}
	return view
}

func encode(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	return base64.StdEncoding.EncodeToString(b)
}
