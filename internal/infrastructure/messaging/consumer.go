package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	docapp "github.com/cloudfly/dian-service/internal/application/document"
	"github.com/cloudfly/dian-service/internal/domain/document"
	"github.com/cloudfly/dian-service/internal/infrastructure/telemetry"
	"github.com/cloudfly/dian-service/internal/infrastructure/worker"
)

const defaultFetchMaxWait = 5 * time.Second

// EventProcessor handles one decoded event
type EventProcessor interface {
	ProcessEvent(ctx context.Context, event *document.ElectronicDocumentEvent) error
}

// TaskSubmitter queues work for asynchronous execution
type TaskSubmitter interface {
	Submit(ctx context.Context, task worker.Task) (*worker.Handle, error)
}

// ConsumerConfig configures the durable pull consumer
type ConsumerConfig struct {
	Stream       string
	Subject      string
	Durable      string
	AckWait      time.Duration
	FetchBatch   int
	FetchMaxWait time.Duration
}

// Consumer pulls document events from JetStream and runs each one on the
// worker pool. Every message is settled by the task that processed it.
type Consumer struct {
	js        jetstream.JetStream
	config    ConsumerConfig
	processor EventProcessor
	pool      TaskSubmitter
	logger    *zap.Logger

	mu       sync.Mutex
	consumer jetstream.Consumer
	inflight sync.WaitGroup
}

// NewConsumer creates a consumer. Call Run to start pulling.
func NewConsumer(js jetstream.JetStream, cfg ConsumerConfig, processor EventProcessor, pool TaskSubmitter, logger *zap.Logger) *Consumer {
	if cfg.FetchBatch <= 0 {
		cfg.FetchBatch = 1
	}
	if cfg.FetchMaxWait <= 0 {
		cfg.FetchMaxWait = defaultFetchMaxWait
	}
	return &Consumer{
		js:        js,
		config:    cfg,
		processor: processor,
		pool:      pool,
		logger:    logger.Named("document_consumer"),
	}
}

// Run binds the durable consumer and pulls until ctx is cancelled. Tasks
// already handed to the pool keep running and settle their messages.
func (c *Consumer) Run(ctx context.Context) error {
	stream, err := EnsureStream(ctx, c.js, c.config.Stream, c.config.Subject)
	if err != nil {
		return err
	}
	consumer, err := stream.CreateOrUpdateConsumer(ctx, jetstream.ConsumerConfig{
		Durable:       c.config.Durable,
		FilterSubject: c.config.Subject,
		AckPolicy:     jetstream.AckExplicitPolicy,
		AckWait:       c.config.AckWait,
		DeliverPolicy: jetstream.DeliverAllPolicy,
	})
	if err != nil {
		return fmt.Errorf("create consumer %s: %w", c.config.Durable, err)
	}
	c.mu.Lock()
	c.consumer = consumer
	c.mu.Unlock()

	c.logger.Info("Document consumer started",
		zap.String("stream", c.config.Stream),
		zap.String("subject", c.config.Subject),
		zap.String("durable", c.config.Durable),
	)

	for {
		if ctx.Err() != nil {
			c.logger.Info("Document consumer stopped")
			return nil
		}

		batch, err := consumer.Fetch(c.config.FetchBatch, jetstream.FetchMaxWait(c.config.FetchMaxWait))
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			c.logger.Debug("Fetch failed", zap.Error(err))
			continue
		}
		for msg := range batch.Messages() {
			c.dispatch(ctx, msg)
		}
		if err := batch.Error(); err != nil && !errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, jetstream.ErrNoMessages) {
			c.logger.Warn("Message fetch error", zap.Error(err))
		}
	}
}

// Wait blocks until every dispatched message has been settled or ctx ends
func (c *Consumer) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		c.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Consumer) dispatch(ctx context.Context, msg jetstream.Msg) {
	event, err := decodeEvent(msg.Data())
	if err != nil {
		c.logger.Warn("Terminating undecodable message",
			zap.String("subject", msg.Subject()),
			zap.Error(err),
		)
		c.settle(msg, dispositionTerm)
		return
	}

	c.inflight.Add(1)
	_, err = c.pool.Submit(ctx, func(taskCtx context.Context) error {
		defer c.inflight.Done()
		return c.handle(taskCtx, msg, event)
	})
	if err != nil {
		c.inflight.Done()
		c.logger.Warn("Worker pool refused event, requesting redelivery",
			zap.String("event_id", event.EventID),
			zap.Error(err),
		)
		c.settle(msg, dispositionNak)
	}
}

func (c *Consumer) handle(ctx context.Context, msg jetstream.Msg, event *document.ElectronicDocumentEvent) error {
	ctx, span := telemetry.StartServiceSpan(ctx, "document_consumer", "handle",
		telemetry.WithSpanKind(trace.SpanKindConsumer),
		telemetry.WithAttribute(telemetry.SpanAttrEventID, event.EventID),
		telemetry.WithAttribute(telemetry.SpanAttrDocumentType, event.DocumentType.String()),
	)
	defer span.End()

	err := c.processor.ProcessEvent(ctx, event)
	disposition := dispositionFor(err)
	c.settle(msg, disposition)

	fields := []zap.Field{
		zap.String("event_id", event.EventID),
		zap.String("document_type", event.DocumentType.String()),
		zap.String("disposition", disposition.String()),
	}
	switch {
	case err == nil:
		telemetry.SetOK(span)
		c.logger.Debug("Event processed", fields...)
	case disposition == dispositionNak:
		telemetry.RecordError(span, err)
		c.logger.Warn("Event not recorded, will be redelivered", append(fields, zap.Error(err))...)
	default:
		telemetry.RecordError(span, err)
		c.logger.Info("Event settled with error", append(fields, zap.Error(err))...)
	}
	return err
}

func (c *Consumer) settle(msg jetstream.Msg, d disposition) {
	var err error
	switch d {
	case dispositionAck:
		err = msg.Ack()
	case dispositionNak:
		err = msg.Nak()
	case dispositionTerm:
		err = msg.Term()
	}
	if err != nil {
		c.logger.Error("Failed to settle message",
			zap.String("disposition", d.String()),
			zap.Error(err),
		)
	}
}

func decodeEvent(data []byte) (*document.ElectronicDocumentEvent, error) {
	var event document.ElectronicDocumentEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return nil, fmt.Errorf("decode event: %w", err)
	}
	return &event, nil
}

type disposition int

const (
	dispositionAck disposition = iota
	dispositionNak
	dispositionTerm
)

func (d disposition) String() string {
	switch d {
	case dispositionNak:
		return "nak"
	case dispositionTerm:
		return "term"
	default:
		return "ack"
	}
}

// dispositionFor maps a processing result to the message outcome. Only
// failures that left no record behind are redelivered; once a record
// exists its status carries the outcome and the event is never retried.
func dispositionFor(err error) disposition {
	if errors.Is(err, docapp.ErrNotPersisted) {
		return dispositionNak
	}
	return dispositionAck
}
