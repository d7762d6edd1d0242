package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/cloudfly/dian-service/internal/domain/document"
	"github.com/cloudfly/dian-service/internal/domain/shared"
)

// ElectronicDocumentModel is the persistence model of document.ElectronicDocument
type ElectronicDocumentModel struct {
	ID               uuid.UUID  `gorm:"type:uuid;primaryKey"`
	EventID          string     `gorm:"size:100;not null;uniqueIndex:idx_electronic_documents_event_id"`
	DocumentType     string     `gorm:"size:20;not null"`
	TenantID         int64      `gorm:"not null;index:idx_electronic_documents_scope,priority:1;uniqueIndex:idx_electronic_documents_source,priority:1,where:source_document_id <> ''"`
	CompanyID        int64      `gorm:"not null;index:idx_electronic_documents_scope,priority:2;uniqueIndex:idx_electronic_documents_source,priority:2"`
	SourceSystem     string     `gorm:"size:50;not null;uniqueIndex:idx_electronic_documents_source,priority:3"`
	SourceDocumentID string     `gorm:"size:100;not null;uniqueIndex:idx_electronic_documents_source,priority:4"`
	Status           string     `gorm:"size:20;not null;index:idx_electronic_documents_status"`
	DocumentNumber   string     `gorm:"size:50"`
	Fingerprint      string     `gorm:"size:128;index:idx_electronic_documents_fingerprint"`
	Environment      string     `gorm:"size:20;not null"`
	SignedXML        []byte     `gorm:"column:signed_xml"`
	ResponseXML      []byte     `gorm:"column:response_xml"`
	ErrorCode        string     `gorm:"size:50"`
	ErrorMessage     string     `gorm:"size:1000"`
	PayloadJSON      string     `gorm:"column:payload_json;type:text"`
	CreatedAt        time.Time  `gorm:"not null"`
	UpdatedAt        time.Time  `gorm:"not null"`
	ProcessedAt      *time.Time
}

// TableName returns the table name for GORM
func (ElectronicDocumentModel) TableName() string {
	return "electronic_documents"
}

// ToEntity converts the model to the domain aggregate
func (m *ElectronicDocumentModel) ToEntity() *document.ElectronicDocument {
	return &document.ElectronicDocument{
		BaseEntity: shared.BaseEntity{
			ID:        m.ID,
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		EventID:          m.EventID,
		Type:             document.Type(m.DocumentType),
		TenantID:         m.TenantID,
		CompanyID:        m.CompanyID,
		SourceSystem:     m.SourceSystem,
		SourceDocumentID: m.SourceDocumentID,
		Status:           document.Status(m.Status),
		DocumentNumber:   m.DocumentNumber,
		Fingerprint:      m.Fingerprint,
		Environment:      document.Environment(m.Environment),
		SignedXML:        m.SignedXML,
		ResponseXML:      m.ResponseXML,
		ErrorCode:        m.ErrorCode,
		ErrorMessage:     m.ErrorMessage,
		PayloadJSON:      m.PayloadJSON,
		ProcessedAt:      m.ProcessedAt,
	}
}

// FromEntity populates the model from the domain aggregate
func (m *ElectronicDocumentModel) FromEntity(d *document.ElectronicDocument) {
	m.ID = d.ID
	m.CreatedAt = d.CreatedAt
	m.UpdatedAt = d.UpdatedAt
	m.EventID = d.EventID
	m.DocumentType = string(d.Type)
	m.TenantID = d.TenantID
	m.CompanyID = d.CompanyID
	m.SourceSystem = d.SourceSystem
	m.SourceDocumentID = d.SourceDocumentID
	m.Status = string(d.Status)
	m.DocumentNumber = d.DocumentNumber
	m.Fingerprint = d.Fingerprint
	m.Environment = string(d.Environment)
	m.SignedXML = d.SignedXML
	m.ResponseXML = d.ResponseXML
	m.ErrorCode = d.ErrorCode
	m.ErrorMessage = d.ErrorMessage
	m.PayloadJSON = d.PayloadJSON
	m.ProcessedAt = d.ProcessedAt
}

// GormElectronicDocumentRepository implements document.Repository using GORM
type GormElectronicDocumentRepository struct {
	db *gorm.DB
}

// NewGormElectronicDocumentRepository creates a new repository
func NewGormElectronicDocumentRepository(db *gorm.DB) *GormElectronicDocumentRepository {
	return &GormElectronicDocumentRepository{db: db}
}

// Create inserts a RECEIVED document. Unique violations on the event id or
// the source reference return shared.ErrAlreadyExists.
func (r *GormElectronicDocumentRepository) Create(ctx context.Context, doc *document.ElectronicDocument) error {
	model := &ElectronicDocumentModel{}
	model.FromEntity(doc)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("%w: event %s", shared.ErrAlreadyExists, doc.EventID)
		}
		return fmt.Errorf("insert electronic document: %w", err)
	}
	return nil
}

// Update writes every mutable column of doc
func (r *GormElectronicDocumentRepository) Update(ctx context.Context, doc *document.ElectronicDocument) error {
	model := &ElectronicDocumentModel{}
	model.FromEntity(doc)
	result := r.db.WithContext(ctx).
		Model(model).
		Select("*").
		Omit("id", "event_id", "created_at").
		Updates(model)
	if result.Error != nil {
		return fmt.Errorf("update electronic document: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// FindByID finds a document by its internal id
func (r *GormElectronicDocumentRepository) FindByID(ctx context.Context, id uuid.UUID) (*document.ElectronicDocument, error) {
	return r.first(r.db.WithContext(ctx).Where("id = ?", id))
}

// FindByEventID finds a document by its correlation id
func (r *GormElectronicDocumentRepository) FindByEventID(ctx context.Context, eventID string) (*document.ElectronicDocument, error) {
	return r.first(r.db.WithContext(ctx).Where("event_id = ?", eventID))
}

// ExistsByEventID reports whether an event has already been recorded
func (r *GormElectronicDocumentRepository) ExistsByEventID(ctx context.Context, eventID string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&ElectronicDocumentModel{}).
		Where("event_id = ?", eventID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// FindBySource returns the most recent document for a source reference
func (r *GormElectronicDocumentRepository) FindBySource(ctx context.Context, tenantID, companyID int64, sourceDocumentID string) (*document.ElectronicDocument, error) {
	return r.first(r.db.WithContext(ctx).
		Where("tenant_id = ? AND company_id = ? AND source_document_id = ?", tenantID, companyID, sourceDocumentID).
		Order("created_at DESC"))
}

// List returns a page of documents matching filter, newest first, plus the
// total number of matches
func (r *GormElectronicDocumentRepository) List(ctx context.Context, filter document.Filter) ([]document.ElectronicDocument, int64, error) {
	var total int64
	if err := r.filtered(ctx, filter).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page, pageSize := shared.NormalizePage(filter.Page, filter.PageSize)
	var models []ElectronicDocumentModel
	if err := r.filtered(ctx, filter).
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&models).Error; err != nil {
		return nil, 0, err
	}

	docs := make([]document.ElectronicDocument, len(models))
	for i := range models {
		docs[i] = *models[i].ToEntity()
	}
	return docs, total, nil
}

// filtered builds a fresh statement so Count and Find do not share clauses
func (r *GormElectronicDocumentRepository) filtered(ctx context.Context, filter document.Filter) *gorm.DB {
	query := r.db.WithContext(ctx).
		Model(&ElectronicDocumentModel{}).
		Where("tenant_id = ? AND company_id = ?", filter.TenantID, filter.CompanyID)
	if filter.Type != "" {
		query = query.Where("document_type = ?", string(filter.Type))
	}
	if filter.Status != "" {
		query = query.Where("status = ?", string(filter.Status))
	}
	if filter.SourceDocumentID != "" {
		query = query.Where("source_document_id = ?", filter.SourceDocumentID)
	}
	return query
}

func (r *GormElectronicDocumentRepository) first(query *gorm.DB) (*document.ElectronicDocument, error) {
	var model ElectronicDocumentModel
	if err := query.First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToEntity(), nil
}

var _ document.Repository = (*GormElectronicDocumentRepository)(nil)
