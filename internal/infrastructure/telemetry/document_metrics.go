package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/cloudfly/dian-service/internal/domain/document"
)

// Metric attribute keys
const (
	AttrDocumentType = attribute.Key("document_type")
	AttrStatus       = attribute.Key("status")
	AttrReason       = attribute.Key("reason")
)

// DocumentMetrics exports pipeline counters and latency
type DocumentMetrics struct {
	processed *Counter
	discarded *Counter
	duration  *Histogram
}

// NewDocumentMetrics registers the document instruments on meter
func NewDocumentMetrics(meter metric.Meter) (*DocumentMetrics, error) {
	processed, err := NewCounter(meter,
		"dian.documents.processed",
		"Documents that reached a terminal status",
		"{document}",
	)
	if err != nil {
		return nil, err
	}
	discarded, err := NewCounter(meter,
		"dian.events.discarded",
		"Document events dropped before a record was created",
		"{event}",
	)
	if err != nil {
		return nil, err
	}
	duration, err := NewHistogram(meter,
		"dian.documents.pipeline.duration",
		"Time from processing start to terminal status",
		"s",
		PipelineDurationBuckets...,
	)
	if err != nil {
		return nil, err
	}
	return &DocumentMetrics{
		processed: processed,
		discarded: discarded,
		duration:  duration,
	}, nil
}

// RecordDocument counts a terminal document and its pipeline latency
func (m *DocumentMetrics) RecordDocument(ctx context.Context, docType document.Type, status document.Status, duration time.Duration) {
	attrs := []attribute.KeyValue{
		AttrDocumentType.String(docType.String()),
		AttrStatus.String(status.String()),
	}
	m.processed.Inc(ctx, attrs...)
	m.duration.RecordDuration(ctx, duration, attrs...)
}

// RecordDiscarded counts a dropped event
func (m *DocumentMetrics) RecordDiscarded(ctx context.Context, docType document.Type, reason string) {
	m.discarded.Inc(ctx,
		AttrDocumentType.String(docType.String()),
		AttrReason.String(reason),
	)
}
