// Package validate holds the KYC decision engine. Evaluate is pure and
// deterministic for a fixed evaluation instant.
package validate

import (
	"fmt"
	"time"

	"github.com/kycflow/kycflow-backend/internal/kyc/domain"
)

const (
	minAge              = 16
	maxAge              = 100
	confidenceThreshold = 0.7
)

// Evaluate checks a normalized record against the KYC rules at the given
// instant. Any critical issue forces REJECTED; warnings never block
// approval. Both tracks are always fully evaluated. A track with no
// findings stays nil.
func Evaluate(rec *domain.ExtractionRecord, now time.Time) domain.ValidationResult {
	var issues []string
	var warnings []string

	if rec.DocumentNumber == "" {
		issues = append(issues, "Missing document number")
	}
	if rec.FirstName == "" && rec.LastName == "" && rec.FullName() == "" {
		issues = append(issues, "Missing name information")
	}
	if rec.DateOfBirth == "" {
		issues = append(issues, "Missing date of birth")
	}
	// Absent and expired dates are deliberately merged into one finding
	if !rec.ExpiryValid(now) {
		issues = append(issues, "Document expired or missing expiry date")
	}

	if rec.DateOfBirth != "" {
		if dob, err := time.Parse(domain.DateLayout, rec.DateOfBirth); err == nil {
			age := int(now.Sub(dob).Hours() / 24 / 365)
			if age < minAge || age > maxAge {
				warnings = append(warnings, fmt.Sprintf("Unusual age (%d years)", age))
			}
		} else {
			warnings = append(warnings, "Invalid date of birth format")
		}
	}

	if rec.ConfidenceScore < confidenceThreshold {
		warnings = append(warnings, fmt.Sprintf(
			"Low model confidence (%.2f) - recommend manual review", rec.ConfidenceScore))
	}

	status := domain.StatusApproved
	if len(issues) > 0 {
		status = domain.StatusRejected
	}

	return domain.ValidationResult{
		Status:         status,
		CriticalIssues: issues,
		Warnings:       warnings,
	}
}
