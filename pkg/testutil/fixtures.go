package testutil

import (
	"time"

	"github.com/kycflow/kycflow-backend/internal/kyc/domain"
)

// ValidRecord returns a record that passes every KYC rule when evaluated
// at time.Now(): all core identifiers present and an expiry one year out.
func ValidRecord() *domain.ExtractionRecord {
	return &domain.ExtractionRecord{
		DocumentType:    "Passport",
		FirstName:       "Max",
		LastName:        "Mustermann",
		DateOfBirth:     "1990-01-15",
		Gender:          "M",
		Nationality:     "German",
		DocumentNumber:  "C01X00T47",
		IssueDate:       "2020-06-01",
		ExpiryDate:      time.Now().AddDate(1, 0, 0).Format(domain.DateLayout),
		IssuingCountry:  "DEU",
		ConfidenceScore: 0.95,
	}
}

// ValidPayload returns the raw-payload equivalent of ValidRecord, shaped
// like a decoded model response.
func ValidPayload() map[string]any {
	return map[string]any{
		"document_type":    "Passport",
		"first_name":       "Max",
		"last_name":        "Mustermann",
		"date_of_birth":    "1990-01-15",
		"gender":           "m",
		"nationality":      "german",
		"document_number":  "C01X00T47",
		"issue_date":       "2020-06-01",
		"expiry_date":      time.Now().AddDate(1, 0, 0).Format(domain.DateLayout),
		"issuing_country":  "deu",
		"confidence_score": 0.95,
		"other_fields":     map[string]any{},
	}
}

// IntPtr returns a pointer to n
func IntPtr(n int) *int { return &n }

// FloatPtr returns a pointer to f
func FloatPtr(f float64) *float64 { return &f }
