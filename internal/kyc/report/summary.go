// Package report builds the aggregate batch summary attached to
// completed jobs and logged. A summary is only meaningful for batches
// with more than one document.
package report

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/kycflow/kycflow-backend/internal/kyc/domain"
)

// Build computes the batch summary, or nil when the batch has one document
// or fewer.
func Build(rep *domain.BatchReport) *domain.BatchSummary {
	if len(rep.Outcomes) <= 1 {
		return nil
	}

	s := &domain.BatchSummary{
		Rows:        make([]domain.SummaryRow, 0, len(rep.Outcomes)),
		TotalTokens: rep.TotalTokens,
	}

	for i := range rep.Outcomes {
		out := &rep.Outcomes[i]
		row := domain.SummaryRow{
			Filename:     out.Filename,
			DocumentType: domain.DocumentTypeUnknown,
			Verdict:      string(out.Validation.Status),
			Confidence:   "0.00",
			TotalTokens:  "N/A",
			Findings:     out.Validation.FindingCount(),
		}
		if out.Record != nil {
			row.DocumentType = out.Record.DocumentType
			row.Confidence = fmt.Sprintf("%.2f", out.Record.ConfidenceScore)
			row.FullName = out.FullName
			if row.FullName == "" {
				// fall back to whichever name part survived normalization
				row.FullName = joinNonEmpty(out.Record.FirstName, out.Record.LastName)
			}
		}
		if out.Perf.TotalTokens != nil {
			row.TotalTokens = fmt.Sprintf("%d", *out.Perf.TotalTokens)
		}
		s.Rows = append(s.Rows, row)
	}

	return s
}

// Render formats the summary as a text table
func Render(s *domain.BatchSummary) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{
		"Filename", "Document Type", "Full Name", "Verdict", "Confidence", "Total Tokens", "Issues/Warnings",
	})
	for _, row := range s.Rows {
		tw.AppendRow(table.Row{
			row.Filename, row.DocumentType, row.FullName, row.Verdict,
			row.Confidence, row.TotalTokens, row.Findings,
		})
	}
	tw.AppendFooter(table.Row{"", "", "", "", "", "Batch total", s.TotalTokens})
	return tw.Render()
}

func joinNonEmpty(first, last string) string {
	switch {
	case first == "":
		return last
	case last == "":
		return first
	default:
		return first + " " + last
	}
}
