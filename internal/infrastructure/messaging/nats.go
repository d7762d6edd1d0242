// Package messaging carries document events over NATS JetStream.
package messaging

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"

	"github.com/cloudfly/dian-service/internal/domain/document"
)

// Connect dials NATS with unlimited reconnects and logs connection changes
func Connect(url, name string, logger *zap.Logger) (*nats.Conn, error) {
	conn, err := nats.Connect(url,
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("NATS disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("NATS reconnected", zap.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	return conn, nil
}

// EnsureStream creates or updates the stream that captures subject
func EnsureStream(ctx context.Context, js jetstream.JetStream, name, subject string) (jetstream.Stream, error) {
	stream, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:       name,
		Subjects:   []string{subject},
		Retention:  jetstream.LimitsPolicy,
		Storage:    jetstream.FileStorage,
		Duplicates: 2 * time.Minute,
	})
	if err != nil {
		return nil, fmt.Errorf("ensure stream %s: %w", name, err)
	}
	return stream, nil
}

// SubjectFor derives the publish subject of a document type from a
// wildcard subscription subject, so "dian.documents.>" and INVOICE give
// "dian.documents.invoice"
func SubjectFor(wildcard string, docType document.Type) string {
	base := strings.TrimSuffix(strings.TrimSuffix(wildcard, ">"), "*")
	base = strings.TrimSuffix(base, ".")
	return base + "." + strings.ToLower(docType.String())
}
