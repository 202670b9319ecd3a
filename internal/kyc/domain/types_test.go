package domain_test

import (
	"testing"
	"time"

	"github.com/kycflow/kycflow-backend/internal/kyc/domain"
)

func TestExtractionRecord_ExpiryValid(t *testing.T) {
	now := time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		expiry string
		want   bool
	}{
		{"future", "2027-06-15", true},
		{"tomorrow", "2026-06-16", true},
		{"yesterday", "2026-06-14", false},
		{"same day", "2026-06-15", false},
		{"absent", "", false},
		{"unparseable", "junk", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &domain.ExtractionRecord{ExpiryDate: tt.expiry}
			if got := rec.ExpiryValid(now); got != tt.want {
				t.Errorf("ExpiryValid(%s) with expiry %q = %v, want %v", now, tt.expiry, got, tt.want)
			}
		})
	}
}

// ExpiryValid is recomputed per call: the same record can flip around a
// boundary instant.
func TestExtractionRecord_ExpiryValid_TimeDependent(t *testing.T) {
	rec := &domain.ExtractionRecord{ExpiryDate: "2026-06-15"}

	before := time.Date(2026, 6, 14, 0, 0, 0, 0, time.UTC)
	after := time.Date(2026, 6, 16, 0, 0, 0, 0, time.UTC)

	if !rec.ExpiryValid(before) {
		t.Error("expected valid before expiry")
	}
	if rec.ExpiryValid(after) {
		t.Error("expected invalid after expiry")
	}
}

func TestExtractionRecord_FullName(t *testing.T) {
	tests := []struct {
		name      string
		firstName string
		lastName  string
		want      string
	}{
		{"both present", "Max", "Mustermann", "Max Mustermann"},
		{"title cased", "max alexander", "mustermann", "Max Alexander Mustermann"},
		{"missing first", "", "Mustermann", ""},
		{"missing last", "Max", "", ""},
		{"both missing", "", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &domain.ExtractionRecord{FirstName: tt.firstName, LastName: tt.lastName}
			if got := rec.FullName(); got != tt.want {
				t.Errorf("FullName() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestValidationResult_FindingCount(t *testing.T) {
	v := domain.ValidationResult{
		Status:         domain.StatusRejected,
		CriticalIssues: []string{"a", "b"},
		Warnings:       []string{"c"},
	}
	if got := v.FindingCount(); got != 3 {
		t.Errorf("FindingCount() = %d, want 3", got)
	}

	empty := domain.ValidationResult{Status: domain.StatusApproved}
	if got := empty.FindingCount(); got != 0 {
		t.Errorf("FindingCount() = %d, want 0", got)
	}
}
