package document

import (
	"context"

	"github.com/google/uuid"
)

// Filter narrows document listings. TenantID and CompanyID are mandatory
// scoping keys; the remaining fields are optional.
type Filter struct {
	TenantID         int64
	CompanyID        int64
	Type             Type
	Status           Status
	SourceDocumentID string
	Page             int
	PageSize         int
}

// Repository persists electronic documents
type Repository interface {
	// Create inserts a new document. A unique-key violation (event id or
	// source reference) returns shared.ErrAlreadyExists.
	Create(ctx context.Context, doc *ElectronicDocument) error
	Update(ctx context.Context, doc *ElectronicDocument) error
	FindByID(ctx context.Context, id uuid.UUID) (*ElectronicDocument, error)
	FindByEventID(ctx context.Context, eventID string) (*ElectronicDocument, error)
	ExistsByEventID(ctx context.Context, eventID string) (bool, error)
	FindBySource(ctx context.Context, tenantID, companyID int64, sourceDocumentID string) (*ElectronicDocument, error)
	List(ctx context.Context, filter Filter) ([]ElectronicDocument, int64, error)
}
