// Package extractor defines the boundary to the external
// document-understanding model. The rest of the pipeline only sees the
// Extractor interface and the RawExtraction it returns.
package extractor

import (
	"context"

	"github.com/kycflow/kycflow-backend/internal/kyc/domain"
)

// Document is one uploaded document image
type Document struct {
	Filename string
	Data     []byte
}

// Extractor extracts identity fields from a document image.
// Implementations own their timeout; a failed call is reported per
// document and never aborts a batch.
type Extractor interface {
	Extract(ctx context.Context, doc Document) (*domain.RawExtraction, error)
}
