package document

import (
	"context"
	"fmt"

	"github.com/cloudfly/dian-service/internal/domain/document"
)

// Processor drives one category of documents from RECEIVED to a terminal
// status
type Processor interface {
	Category() document.Category
	Process(ctx context.Context, doc *document.ElectronicDocument, event *document.ElectronicDocumentEvent) error
}

// Registry maps every document category to exactly one processor
type Registry struct {
	processors map[document.Category]Processor
}

// NewRegistry fails unless processors cover every category exactly once
func NewRegistry(processors ...Processor) (*Registry, error) {
	r := &Registry{processors: make(map[document.Category]Processor, len(processors))}
	for _, p := range processors {
		if p == nil {
			return nil, fmt.Errorf("processor registry: nil processor")
		}
		category := p.Category()
		if _, dup := r.processors[category]; dup {
			return nil, fmt.Errorf("processor registry: duplicate processor for category %q", category)
		}
		r.processors[category] = p
	}
	for _, category := range document.AllCategories() {
		if _, ok := r.processors[category]; !ok {
			return nil, fmt.Errorf("%w: %s", document.ErrProcessorNotRegistered, category)
		}
	}
	if len(r.processors) != len(document.AllCategories()) {
		return nil, fmt.Errorf("processor registry: unknown category registered")
	}
	return r, nil
}

// Lookup returns the processor for a document type
func (r *Registry) Lookup(docType document.Type) (Processor, error) {
	p, ok := r.processors[docType.Category()]
	if !ok {
		return nil, fmt.Errorf("%w: %s", document.ErrProcessorNotRegistered, docType)
	}
	return p, nil
}
