package messaging

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/cloudfly/dian-service/internal/domain/document"
)

// Publisher writes document events to the stream. The event id doubles as
// the JetStream message id, so the stream drops repeats inside its
// duplicate window.
type Publisher struct {
	js      jetstream.JetStream
	subject string
}

// NewPublisher creates a publisher for the wildcard subject the consumer
// subscribes to
func NewPublisher(js jetstream.JetStream, subject string) *Publisher {
	return &Publisher{js: js, subject: subject}
}

// Publish sends event and returns the stream sequence it was stored at
func (p *Publisher) Publish(ctx context.Context, event *document.ElectronicDocumentEvent) (uint64, error) {
	if err := event.Validate(); err != nil {
		return 0, err
	}
	data, err := json.Marshal(event)
	if err != nil {
		return 0, fmt.Errorf("marshal event: %w", err)
	}

	msg := &nats.Msg{
		Subject: SubjectFor(p.subject, event.DocumentType),
		Data:    data,
		Header:  nats.Header{},
	}
	msg.Header.Set(jetstream.MsgIDHeader, event.EventID)

	ack, err := p.js.PublishMsg(ctx, msg)
	if err != nil {
		return 0, fmt.Errorf("publish event %s: %w", event.EventID, err)
	}
	return ack.Sequence, nil
}
