// Package document orchestrates the issuance pipeline of fiscal documents
// and serves their read model.
package document

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cloudfly/dian-service/internal/domain/document"
	"github.com/cloudfly/dian-service/internal/domain/shared"
	"github.com/cloudfly/dian-service/internal/infrastructure/logger"
)

// Discard reasons reported to Metrics
const (
	DiscardInvalid   = "invalid"
	DiscardDuplicate = "duplicate"
)

// ErrNotPersisted marks failures that happened before a record for the event
// existed. Such events may be redelivered safely.
var ErrNotPersisted = errors.New("event not persisted")

// Service is the entry point for inbound events and document queries
type Service struct {
	repo     document.Repository
	registry *Registry
	metrics  Metrics
	logger   *zap.Logger
}

// NewService creates a new document service
func NewService(repo document.Repository, registry *Registry, metrics Metrics, logger *zap.Logger) *Service {
	if metrics == nil {
		metrics = nopMetrics{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		repo:     repo,
		registry: registry,
		metrics:  metrics,
		logger:   logger,
	}
}

// ProcessEvent validates and records an event, then runs it through the
// processor of its category. A previously seen event id returns
// ErrDuplicateEvent without side effects.
func (s *Service) ProcessEvent(ctx context.Context, event *document.ElectronicDocumentEvent) error {
	if event == nil {
		return fmt.Errorf("%w: event is nil", document.ErrValidation)
	}
	ctx, log := logger.WithDocument(ctx, s.logger, event.EventID, event.TenantID, event.CompanyID)

	if err := event.Validate(); err != nil {
		log.Warn("Discarding invalid event", zap.Error(err))
		s.metrics.RecordDiscarded(ctx, event.DocumentType, DiscardInvalid)
		return err
	}

	exists, err := s.repo.ExistsByEventID(ctx, event.EventID)
	if err != nil {
		return fmt.Errorf("%w: check event: %v", ErrNotPersisted, err)
	}
	if exists {
		log.Info("Duplicate event ignored")
		s.metrics.RecordDiscarded(ctx, event.DocumentType, DiscardDuplicate)
		return fmt.Errorf("%w: %s", document.ErrDuplicateEvent, event.EventID)
	}

	processor, err := s.registry.Lookup(event.DocumentType)
	if err != nil {
		return err
	}

	doc, err := document.NewElectronicDocument(event)
	if err != nil {
		return err
	}
	if err := s.repo.Create(ctx, doc); err != nil {
		if errors.Is(err, shared.ErrAlreadyExists) {
			log.Info("Duplicate event ignored", zap.String("source_document_id", event.SourceDocumentID))
			s.metrics.RecordDiscarded(ctx, event.DocumentType, DiscardDuplicate)
			return fmt.Errorf("%w: %s", document.ErrDuplicateEvent, event.EventID)
		}
		return fmt.Errorf("%w: create record: %v", ErrNotPersisted, err)
	}

	log.Info("Event recorded",
		zap.String("document_id", doc.ID.String()),
		zap.String("document_type", doc.Type.String()),
		zap.String("source_document_id", doc.SourceDocumentID),
	)
	return processor.Process(ctx, doc, event)
}

// List returns a page of documents of one tenant company
func (s *Service) List(ctx context.Context, query ListQuery) (*ListResult, error) {
	filter := document.Filter{
		TenantID:         query.TenantID,
		CompanyID:        query.CompanyID,
		SourceDocumentID: query.SourceDocumentID,
		Page:             query.Page,
		PageSize:         query.PageSize,
	}
	if query.TenantID <= 0 || query.CompanyID <= 0 {
		return nil, fmt.Errorf("%w: tenantId and companyId are required", shared.ErrInvalidInput)
	}
	if query.DocumentType != "" {
		filter.Type = document.Type(query.DocumentType)
		if !filter.Type.IsValid() {
			return nil, fmt.Errorf("%w: unknown document type %q", shared.ErrInvalidInput, query.DocumentType)
		}
	}
	if query.Status != "" {
		filter.Status = document.Status(query.Status)
		if !filter.Status.IsValid() {
			return nil, fmt.Errorf("%w: unknown status %q", shared.ErrInvalidInput, query.Status)
		}
	}

	docs, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	items := make([]DocumentView, len(docs))
	for i := range docs {
		items[i] = ToDocumentView(&docs[i], false)
	}
	page, pageSize := shared.NormalizePage(query.Page, query.PageSize)
	result := shared.NewPaginated(items, total, page, pageSize)
	return &result, nil
}

// Get returns one document by id
func (s *Service) Get(ctx context.Context, id uuid.UUID, includeXML bool) (*DocumentView, error) {
	doc, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	view := ToDocumentView(doc, includeXML)
	return &view, nil
}

// GetBySource returns the latest document issued for a source reference
func (s *Service) GetBySource(ctx context.Context, tenantID, companyID int64, sourceDocumentID string) (*DocumentView, error) {
	if tenantID <= 0 || companyID <= 0 || sourceDocumentID == "" {
		return nil, fmt.Errorf("%w: tenantId, companyId and sourceDocumentId are required", shared.ErrInvalidInput)
	}
	doc, err := s.repo.FindBySource(ctx, tenantID, companyID, sourceDocumentID)
	if err != nil {
		return nil, err
	}
	view := ToDocumentView(doc, true)
	return &view, nil
}
