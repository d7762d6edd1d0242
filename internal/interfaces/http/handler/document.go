package handler

import (
	"context"
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	docapp "github.com/cloudfly/dian-service/internal/application/document"
	"github.com/cloudfly/dian-service/internal/domain/shared"
	"github.com/cloudfly/dian-service/internal/interfaces/http/middleware"
)

// DocumentQueries is the read side of the document service
type DocumentQueries interface {
	List(ctx context.Context, query docapp.ListQuery) (*docapp.ListResult, error)
	Get(ctx context.Context, id uuid.UUID, includeXML bool) (*docapp.DocumentView, error)
	GetBySource(ctx context.Context, tenantID, companyID int64, sourceDocumentID string) (*docapp.DocumentView, error)
}

// DocumentHandler serves the electronic document queries
type DocumentHandler struct {
	BaseHandler
	queries DocumentQueries
}

// NewDocumentHandler creates a new DocumentHandler
func NewDocumentHandler(queries DocumentQueries) *DocumentHandler {
	return &DocumentHandler{queries: queries}
}

// RegisterRoutes mounts the document routes under rg
func (h *DocumentHandler) RegisterRoutes(rg *gin.RouterGroup) {
	docs := rg.Group("/dian/documents")
	docs.GET("", h.List)
	docs.GET("/by-source", h.GetBySource)
	docs.GET("/:id", h.Get)
}

// List godoc
// @ID           listDianDocuments
// @Summary      List electronic documents
// @Description  Page through the fiscal documents of one tenant company. Artifacts are never included.
// @Tags         dian-documents
// @Produce      json
// @Param        tenantId         query int    true  "Tenant ID"
// @Param        companyId        query int    true  "Company ID"
// @Param        documentType     query string false "Document type" Enums(INVOICE, CREDIT_NOTE, DEBIT_NOTE, PAYROLL)
// @Param        status           query string false "Status" Enums(RECEIVED, PROCESSING, ACCEPTED, REJECTED, ERROR)
// @Param        sourceDocumentId query string false "Upstream document reference"
// @Param        page             query int    false "Page number" default(1)
// @Param        page_size        query int    false "Page size" default(20) maximum(100)
// @Success      200 {object} dto.Response{data=[]docapp.DocumentView,meta=dto.Meta}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /dian/documents [get]
func (h *DocumentHandler) List(c *gin.Context) {
	var query docapp.ListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		h.BadRequest(c, "tenantId and companyId are required numeric parameters")
		return
	}
	if !middleware.TenantAllowed(c, query.TenantID) {
		h.Forbidden(c, "Token is not valid for this tenant")
		return
	}

	result, err := h.queries.List(c.Request.Context(), query)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, result.Items, result.Total, result.Page, result.PageSize, result.TotalPages)
}

// Get godoc
// @ID           getDianDocument
// @Summary      Get electronic document by ID
// @Description  Signed XML and the raw authority response are included as base64 unless includeXml=false
// @Tags         dian-documents
// @Produce      json
// @Param        id         path  string true  "Document ID" format(uuid)
// @Param        includeXml query bool   false "Include signed and response XML" default(true)
// @Success      200 {object} dto.Response{data=docapp.DocumentView}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /dian/documents/{id} [get]
func (h *DocumentHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "id must be a UUID")
		return
	}
	includeXML := true
	if raw := c.Query("includeXml"); raw != "" {
		includeXML, err = strconv.ParseBool(raw)
		if err != nil {
			h.BadRequest(c, "includeXml must be a boolean")
			return
		}
	}

	view, err := h.queries.Get(c.Request.Context(), id, includeXML)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	// other tenants' documents are reported as absent
	if !middleware.TenantAllowed(c, view.TenantID) {
		h.NotFound(c, "Document not found")
		return
	}
	h.Success(c, view)
}

type bySourceQuery struct {
	TenantID         int64  `form:"tenantId" binding:"required"`
	CompanyID        int64  `form:"companyId" binding:"required"`
	SourceDocumentID string `form:"sourceDocumentId" binding:"required"`
}

// GetBySource godoc
// @ID           getDianDocumentBySource
// @Summary      Get electronic document by source reference
// @Description  Returns the document issued for an upstream document
// @Tags         dian-documents
// @Produce      json
// @Param        tenantId         query int    true "Tenant ID"
// @Param        companyId        query int    true "Company ID"
// @Param        sourceDocumentId query string true "Upstream document reference" example(INV-2024-0042)
// @Success      200 {object} dto.Response{data=docapp.DocumentView}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /dian/documents/by-source [get]
func (h *DocumentHandler) GetBySource(c *gin.Context) {
	var query bySourceQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		h.BadRequest(c, "tenantId, companyId and sourceDocumentId are required")
		return
	}
	if !middleware.TenantAllowed(c, query.TenantID) {
		h.Forbidden(c, "Token is not valid for this tenant")
		return
	}

	view, err := h.queries.GetBySource(c.Request.Context(), query.TenantID, query.CompanyID, query.SourceDocumentID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			h.NotFound(c, "No document issued for this source")
			return
		}
		h.HandleError(c, err)
		return
	}
	h.Success(c, view)
}
