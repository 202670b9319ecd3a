package domain

import (
	"time"

	"github.com/kycflow/kycflow-backend/internal/kyc/parse"
)

// VerdictStatus is the final decision for one document
type VerdictStatus string

const (
	StatusApproved VerdictStatus = "APPROVED"
	StatusRejected VerdictStatus = "REJECTED"
	StatusError    VerdictStatus = "ERROR"
)

// DateLayout is the canonical serialization for all date fields
const DateLayout = "2006-01-02"

// DocumentTypeUnknown is used whenever the model did not return a usable type
const DocumentTypeUnknown = "Unknown"

// Recognized payload keys. Anything else the model returns ends up in
// ExtensionFields.
const (
	KeyDocumentType    = "document_type"
	KeyFirstName       = "first_name"
	KeyLastName        = "last_name"
	KeyDateOfBirth     = "date_of_birth"
	KeyGender          = "gender"
	KeyNationality     = "nationality"
	KeyDocumentNumber  = "document_number"
	KeyIssueDate       = "issue_date"
	KeyExpiryDate      = "expiry_date"
	KeyIssuingCountry  = "issuing_country"
	KeyAddress         = "address"
	KeyMRZRaw          = "mrz_raw"
	KeyConfidenceScore = "confidence_score"
	KeyOtherFields     = "other_fields"
)

// RecognizedKeys maps every typed record key for the fallback reconstruction
// path: on a structurally malformed payload only these keys are retried.
var RecognizedKeys = map[string]bool{
	KeyDocumentType:    true,
	KeyFirstName:       true,
	KeyLastName:        true,
	KeyDateOfBirth:     true,
	KeyGender:          true,
	KeyNationality:     true,
	KeyDocumentNumber:  true,
	KeyIssueDate:       true,
	KeyExpiryDate:      true,
	KeyIssuingCountry:  true,
	KeyAddress:         true,
	KeyMRZRaw:          true,
	KeyConfidenceScore: true,
	KeyOtherFields:     true,
}

// ExtractionRecord is the normalized, structured representation of one
// identity document. String fields use "" for absent. The record is
// immutable after construction; verdicts and metrics are attached alongside
// it in DocumentOutcome, never embedded.
type ExtractionRecord struct {
	DocumentType    string            `json:"document_type"`
	FirstName       string            `json:"first_name,omitempty"`
	LastName        string            `json:"last_name,omitempty"`
	DateOfBirth     string            `json:"date_of_birth,omitempty"`
	Gender          string            `json:"gender,omitempty"`
	Nationality     string            `json:"nationality,omitempty"`
	DocumentNumber  string            `json:"document_number,omitempty"`
	IssueDate       string            `json:"issue_date,omitempty"`
	ExpiryDate      string            `json:"expiry_date,omitempty"`
	IssuingCountry  string            `json:"issuing_country,omitempty"`
	Address         string            `json:"address,omitempty"`
	MRZRaw          string            `json:"mrz_raw,omitempty"`
	ConfidenceScore float64           `json:"confidence_score"`
	ExtensionFields map[string]string `json:"other_fields,omitempty"`
}

// ExpiryValid reports whether the expiry date parses and lies strictly
// after the given evaluation instant. It is recomputed on every call;
// the same record can flip near an expiry boundary, which is intentional.
func (r *ExtractionRecord) ExpiryValid(at time.Time) bool {
	if r.ExpiryDate == "" {
		return false
	}
	exp, err := time.Parse(DateLayout, r.ExpiryDate)
	if err != nil {
		return false
	}
	return exp.After(at)
}

// FullName returns the title-cased "First Last" concatenation, or "" when
// either part is missing. Derived on demand, never stored.
func (r *ExtractionRecord) FullName() string {
	if r.FirstName == "" || r.LastName == "" {
		return ""
	}
	return parse.NormalizeDisplayText(r.FirstName + " " + r.LastName)
}

// ValidationResult is the verdict for one record. A nil slice means
// "no findings in this track" and serializes as an omitted key.
type ValidationResult struct {
	Status         VerdictStatus `json:"status"`
	CriticalIssues []string      `json:"critical_issues,omitempty"`
	Warnings       []string      `json:"warnings,omitempty"`
}

// FindingCount returns the combined number of critical issues and warnings
func (v *ValidationResult) FindingCount() int {
	return len(v.CriticalIssues) + len(v.Warnings)
}

// PerfMetrics carries per-document token and latency figures reported by
// the extraction collaborator. Purely observational; absent values stay nil
// and never influence the verdict.
type PerfMetrics struct {
	PromptTokens      *int     `json:"prompt_tokens,omitempty"`
	CompletionTokens  *int     `json:"completion_tokens,omitempty"`
	TotalTokens       *int     `json:"total_tokens,omitempty"`
	TTFTSeconds       *float64 `json:"ttft,omitempty"`
	ProcessingSeconds *float64 `json:"processing,omitempty"`
}

// DocumentOutcome is the single result emitted for one input document:
// either a fully processed record with its verdict, or an error descriptor.
type DocumentOutcome struct {
	Filename   string            `json:"filename"`
	Record     *ExtractionRecord `json:"record,omitempty"`
	ExpiryOK   bool              `json:"expiry_valid"`
	FullName   string            `json:"full_name,omitempty"`
	Validation ValidationResult  `json:"kyc_validation"`
	Perf       PerfMetrics       `json:"perf"`
	Err        string            `json:"error,omitempty"`
}

// Failed reports whether this document never reached evaluation
func (o *DocumentOutcome) Failed() bool {
	return o.Err != ""
}

// BatchReport aggregates the outcomes of one upload batch. Outcomes keep
// the input order. The report is finalized once processing completes and
// is read-only afterwards.
type BatchReport struct {
	Outcomes      []DocumentOutcome `json:"outcomes"`
	TotalTokens   int               `json:"total_tokens"`
	ApprovedCount int               `json:"approved_count"`
	RejectedCount int               `json:"rejected_count"`
	ErrorCount    int               `json:"error_count"`
	StartedAt     time.Time         `json:"started_at"`
	CompletedAt   time.Time         `json:"completed_at"`
}

// SummaryRow is one document's line in the batch summary
type SummaryRow struct {
	Filename     string `json:"filename"`
	DocumentType string `json:"document_type"`
	FullName     string `json:"full_name"`
	Verdict      string `json:"verdict"`
	Confidence   string `json:"confidence"`
	TotalTokens  string `json:"total_tokens"`
	Findings     int    `json:"findings"`
}

// BatchSummary is the cross-document aggregate attached to completed
// jobs with more than one document
type BatchSummary struct {
	Rows        []SummaryRow `json:"rows"`
	TotalTokens int          `json:"total_tokens"`
}

// RawExtraction is the inbound boundary type returned by the extraction
// collaborator: the untyped model payload plus optional usage and
// performance reports.
type RawExtraction struct {
	Payload map[string]any
	Usage   *UsageReport
	Perf    map[string]string
}

// UsageReport carries token counts from the model response
type UsageReport struct {
	PromptTokens     *int
	CompletionTokens *int
	TotalTokens      *int
}

// Perf metric keys reported by the model server
const (
	PerfKeyTTFT       = "server-time-to-first-token"
	PerfKeyProcessing = "server-processing-time"
)

// BatchJobStatus represents the lifecycle state of an async batch job
type BatchJobStatus string

const (
	JobStatusProcessing BatchJobStatus = "processing"
	JobStatusCompleted  BatchJobStatus = "completed"
	JobStatusFailed     BatchJobStatus = "failed"
)

// BatchJob tracks an asynchronously processed upload batch
type BatchJob struct {
	JobID     string         `json:"job_id"`
	Status    BatchJobStatus `json:"status"`
	Total     int            `json:"total"`
	Processed int            `json:"processed"`
	Report    *BatchReport   `json:"report,omitempty"`
	Summary   *BatchSummary  `json:"summary,omitempty"`
	Error     string         `json:"error,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}
