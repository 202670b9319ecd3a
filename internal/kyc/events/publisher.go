package events

import (
	"context"

	"github.com/kycflow/kycflow-backend/internal/kyc/domain"
	"github.com/kycflow/kycflow-backend/pkg/logger"
	"github.com/kycflow/kycflow-backend/pkg/messaging"
)

// KYCEventPublisher publishes document and batch events
type KYCEventPublisher struct {
	publisher *messaging.Publisher
	logger    *logger.Logger
}

// NewKYCEventPublisher creates a new KYC event publisher
func NewKYCEventPublisher(rmq *messaging.RabbitMQ, log *logger.Logger) (*KYCEventPublisher, error) {
	publisher, err := messaging.NewPublisher(rmq, messaging.ExchangeKYCEvents, "kyc-service", log)
	if err != nil {
		return nil, err
	}

	return &KYCEventPublisher{
		publisher: publisher,
		logger:    log,
	}, nil
}

// PublishDocumentOutcome publishes the event matching a document's verdict
func (p *KYCEventPublisher) PublishDocumentOutcome(ctx context.Context, batchID string, out *domain.DocumentOutcome) {
	switch out.Validation.Status {
	case domain.StatusApproved:
		data := messaging.DocumentVerifiedEvent{
			BatchID:    batchID,
			Filename:   out.Filename,
			FullName:   out.FullName,
			Confidence: out.Record.ConfidenceScore,
		}
		data.DocumentType = out.Record.DocumentType
		data.DocumentNumber = out.Record.DocumentNumber
		p.publish(ctx, messaging.EventDocumentVerified, out.Filename, data)

	case domain.StatusRejected:
		data := messaging.DocumentRejectedEvent{
			BatchID:        batchID,
			Filename:       out.Filename,
			DocumentType:   out.Record.DocumentType,
			CriticalIssues: out.Validation.CriticalIssues,
			Warnings:       out.Validation.Warnings,
		}
		p.publish(ctx, messaging.EventDocumentRejected, out.Filename, data)

	default:
		data := messaging.DocumentFailedEvent{
			BatchID:  batchID,
			Filename: out.Filename,
			Error:    out.Err,
		}
		p.publish(ctx, messaging.EventDocumentFailed, out.Filename, data)
	}
}

// PublishBatchCompleted publishes a batch completed event
func (p *KYCEventPublisher) PublishBatchCompleted(ctx context.Context, batchID string, rep *domain.BatchReport) {
	data := messaging.BatchCompletedEvent{
		BatchID:       batchID,
		Total:         len(rep.Outcomes),
		ApprovedCount: rep.ApprovedCount,
		RejectedCount: rep.RejectedCount,
		ErrorCount:    rep.ErrorCount,
		TotalTokens:   rep.TotalTokens,
	}
	p.publish(ctx, messaging.EventBatchCompleted, batchID, data)
}

func (p *KYCEventPublisher) publish(ctx context.Context, eventType, subject string, data interface{}) {
	if err := p.publisher.Publish(ctx, eventType, data); err != nil {
		p.logger.Error().Err(err).
			Str("event_type", eventType).
			Str("subject", subject).
			Msg("failed to publish event")
	}
}
