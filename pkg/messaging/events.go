package messaging

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Exchanges
const (
	ExchangeKYCEvents = "kyc.events"
)

// Event types
const (
	// Document events
	EventDocumentVerified = "kyc.document.verified"
	EventDocumentRejected = "kyc.document.rejected"
	EventDocumentFailed   = "kyc.document.failed"

	// Batch events
	EventBatchCompleted = "kyc.batch.completed"
)

// Event is the envelope published to RabbitMQ
type Event struct {
	ID            string          `json:"id"`
	Type          string          `json:"type"`
	Source        string          `json:"source"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Timestamp     time.Time       `json:"timestamp"`
	Data          json.RawMessage `json:"data"`
}

// NewEvent creates an event envelope with a marshaled payload
func NewEvent(eventType, source, correlationID string, data interface{}) (*Event, error) {
	body, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event data: %w", err)
	}

	return &Event{
		ID:            uuid.New().String(),
		Type:          eventType,
		Source:        source,
		CorrelationID: correlationID,
		Timestamp:     time.Now().UTC(),
		Data:          body,
	}, nil
}

// DocumentVerifiedEvent is published when a document is approved
type DocumentVerifiedEvent struct {
	BatchID        string  `json:"batch_id"`
	Filename       string  `json:"filename"`
	DocumentType   string  `json:"document_type"`
	DocumentNumber string  `json:"document_number,omitempty"`
	FullName       string  `json:"full_name,omitempty"`
	Confidence     float64 `json:"confidence"`
}

// DocumentRejectedEvent is published when a document is rejected
type DocumentRejectedEvent struct {
	BatchID        string   `json:"batch_id"`
	Filename       string   `json:"filename"`
	DocumentType   string   `json:"document_type"`
	CriticalIssues []string `json:"critical_issues"`
	Warnings       []string `json:"warnings,omitempty"`
}

// DocumentFailedEvent is published when extraction fails for a document
type DocumentFailedEvent struct {
	BatchID  string `json:"batch_id"`
	Filename string `json:"filename"`
	Error    string `json:"error"`
}

// BatchCompletedEvent is published when a whole batch finishes
type BatchCompletedEvent struct {
	BatchID       string `json:"batch_id"`
	Total         int    `json:"total"`
	ApprovedCount int    `json:"approved_count"`
	RejectedCount int    `json:"rejected_count"`
	ErrorCount    int    `json:"error_count"`
	TotalTokens   int    `json:"total_tokens"`
}
