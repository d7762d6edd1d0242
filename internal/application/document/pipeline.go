package document

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/cloudfly/dian-service/internal/domain/document"
	"github.com/cloudfly/dian-service/internal/infrastructure/codec"
	"github.com/cloudfly/dian-service/internal/infrastructure/logger"
	"github.com/cloudfly/dian-service/internal/infrastructure/telemetry"
)

// commitTimeout bounds status commits made after the processing context is
// gone. A document leaving PROCESSING must reach the store even when the
// task deadline or a shutdown cancelled the attempt.
const commitTimeout = 10 * time.Second

// Dependencies groups the collaborators shared by every processor
type Dependencies struct {
	Repository document.Repository
	Gateway    ConfigurationGateway
	Signer     Signer
	Authority  AuthorityClient
	Archive    ArtifactArchive
	Metrics    Metrics
	Logger     *zap.Logger
}

// rendered is what a category-specific builder hands back to the pipeline
type rendered struct {
	mode   *document.OperationMode
	result *codec.Result
}

type buildFunc func(ctx context.Context, doc *document.ElectronicDocument, event *document.ElectronicDocumentEvent) (*rendered, error)

// pipeline runs the steps common to all categories. Category specifics
// (configuration lookup, numbering, rendering) come in through build.
type pipeline struct {
	repo      document.Repository
	signer    Signer
	authority AuthorityClient
	archive   ArtifactArchive
	metrics   Metrics
	logger    *zap.Logger
}

func newPipeline(deps Dependencies) pipeline {
	p := pipeline{
		repo:      deps.Repository,
		signer:    deps.Signer,
		authority: deps.Authority,
		archive:   deps.Archive,
		metrics:   deps.Metrics,
		logger:    deps.Logger,
	}
	if p.archive == nil {
		p.archive = nopArchive{}
	}
	if p.metrics == nil {
		p.metrics = nopMetrics{}
	}
	if p.logger == nil {
		p.logger = zap.NewNop()
	}
	return p
}

// run takes a RECEIVED document to ACCEPTED, REJECTED or ERROR. Failures
// without an authority verdict are persisted as ERROR and returned.
func (p *pipeline) run(
	ctx context.Context,
	doc *document.ElectronicDocument,
	event *document.ElectronicDocumentEvent,
	category document.Category,
	build buildFunc,
) error {
	start := time.Now()
	ctx, span := telemetry.StartServiceSpan(ctx, "document_pipeline", "run",
		telemetry.WithAttribute("document.type", doc.Type.String()),
		telemetry.WithAttribute("document.event_id", doc.EventID),
	)
	defer span.End()
	ctx, log := logger.WithDocument(ctx, p.logger, doc.EventID, doc.TenantID, doc.CompanyID)

	if err := doc.StartProcessing(); err != nil {
		telemetry.RecordError(span, err)
		return err
	}
	if err := p.repo.Update(ctx, doc); err != nil {
		telemetry.RecordError(span, err)
		return fmt.Errorf("commit processing status: %w", err)
	}

	outcome, err := p.produce(ctx, doc, event, category, build)
	if err != nil {
		log.Error("Document processing failed", zap.Error(err))
		p.finishWithError(ctx, doc, document.CodeProcessingError, err.Error())
		p.metrics.RecordDocument(ctx, doc.Type, doc.Status, time.Since(start))
		telemetry.RecordError(span, err)
		return err
	}

	var result error
	switch {
	case outcome.TransportFailed:
		log.Warn("Authority exchange failed",
			zap.String("error_code", outcome.ErrorCode),
			zap.String("error_message", outcome.ErrorMessage),
		)
		doc.AttachResponse(outcome.RawResponse)
		_ = doc.Fail(outcome.ErrorCode, outcome.ErrorMessage)
		result = fmt.Errorf("%w: %s", document.ErrTransport, outcome.ErrorMessage)
	case outcome.Accepted:
		if err := doc.Accept(outcome); err != nil {
			return err
		}
		log.Info("Document accepted",
			zap.String("document_number", doc.DocumentNumber),
			zap.String("fingerprint", doc.Fingerprint),
		)
	default:
		if err := doc.Reject(outcome); err != nil {
			return err
		}
		log.Warn("Document rejected",
			zap.String("document_number", doc.DocumentNumber),
			zap.String("error_code", doc.ErrorCode),
			zap.String("error_message", doc.ErrorMessage),
		)
	}

	commitCtx, cancel := detached(ctx)
	defer cancel()
	if err := p.repo.Update(commitCtx, doc); err != nil {
		telemetry.RecordError(span, err)
		return fmt.Errorf("commit terminal status: %w", err)
	}
	p.metrics.RecordDocument(ctx, doc.Type, doc.Status, time.Since(start))

	if doc.SignedXML != nil {
		if err := p.archive.Archive(commitCtx, doc); err != nil {
			log.Warn("Artifact archival failed", zap.Error(err))
		}
	}

	if result != nil {
		telemetry.RecordError(span, result)
		return result
	}
	telemetry.SetOK(span)
	return nil
}

// produce covers every step up to and including the authority exchange
func (p *pipeline) produce(
	ctx context.Context,
	doc *document.ElectronicDocument,
	event *document.ElectronicDocumentEvent,
	category document.Category,
	build buildFunc,
) (document.SubmissionOutcome, error) {
	r, err := build(ctx, doc, event)
	if err != nil {
		return document.SubmissionOutcome{}, err
	}
	if r.result.FingerprintFallback {
		return document.SubmissionOutcome{}, fmt.Errorf("%w: digest unavailable for %s", document.ErrInvalidFingerprint, r.result.Number)
	}

	signed, err := p.signer.Sign(r.result.XML, r.mode.CredentialReference, r.mode.CredentialPassword)
	if err != nil {
		return document.SubmissionOutcome{}, fmt.Errorf("sign document: %w", err)
	}
	if err := doc.RecordSubmission(r.result.Number, r.result.Fingerprint, r.mode.Environment, signed); err != nil {
		return document.SubmissionOutcome{}, err
	}
	logger.FromContext(ctx).Debug("Document signed",
		zap.String("document_number", r.result.Number),
		zap.String("environment", r.mode.Environment.String()),
	)

	return p.authority.Submit(ctx, signed, r.mode, category), nil
}

// finishWithError persists ERROR on a best-effort basis; the original error
// is what the caller sees
func (p *pipeline) finishWithError(ctx context.Context, doc *document.ElectronicDocument, code, message string) {
	log := logger.FromContext(ctx)
	if err := doc.Fail(code, message); err != nil {
		log.Error("Cannot mark document as failed", zap.Error(err))
		return
	}
	commitCtx, cancel := detached(ctx)
	defer cancel()
	if err := p.repo.Update(commitCtx, doc); err != nil {
		log.Error("Cannot persist failed document", zap.Error(err))
	}
}

// detached keeps ctx values (trace, logger) but drops its cancellation
func detached(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), commitTimeout)
}
