// Package parse contains the pure field parsers used while normalizing
// raw model payloads. Every function is total: bad input yields the empty
// string (absent) or a safe default, never an error.
package parse

import (
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// dateLayouts is the fixed priority order for date parsing. A raw value
// matching more than one layout resolves to the first one that accepts it;
// ambiguity is settled by this list, not by locale inference.
var dateLayouts = []string{
	"2006-01-02", // YYYY-MM-DD
	"01/02/2006", // MM/DD/YYYY
	"01-02-2006", // MM-DD-YYYY
	"02/01/2006", // DD/MM/YYYY
}

var titleCaser = cases.Title(language.Und)

// Date parses a raw date string against the supported layouts and returns
// the canonical YYYY-MM-DD form, or "" if the value is empty or matches
// none of them.
func Date(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Format("2006-01-02")
		}
	}
	return ""
}

// NormalizeDisplayText collapses whitespace runs to single spaces, trims,
// and title-cases. Whitespace-only input yields "".
func NormalizeDisplayText(raw string) string {
	collapsed := strings.Join(strings.Fields(raw), " ")
	if collapsed == "" {
		return ""
	}
	return titleCaser.String(collapsed)
}

// CollapseWhitespace collapses whitespace runs and trims without changing
// letter case. Used for extension field values.
func CollapseWhitespace(raw string) string {
	return strings.Join(strings.Fields(raw), " ")
}

// NormalizeAddress joins the non-empty trimmed lines of a multi-line
// address with ", " and title-cases the result.
func NormalizeAddress(raw string) string {
	var lines []string
	for _, line := range strings.Split(normalizeLineBreaks(raw), "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			lines = append(lines, trimmed)
		}
	}
	if len(lines) == 0 {
		return ""
	}
	return titleCaser.String(strings.Join(lines, ", "))
}

// NormalizeCode trims and upper-cases. Used for gender and issuing country.
func NormalizeCode(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}

// FlattenMRZ replaces every line-break variant in an MRZ block with a
// literal " | " separator and trims the result.
func FlattenMRZ(raw string) string {
	flat := strings.ReplaceAll(raw, "\r\n", " | ")
	flat = strings.ReplaceAll(flat, "\n", " | ")
	flat = strings.ReplaceAll(flat, "\r", " | ")
	return strings.TrimSpace(flat)
}

// ClampConfidence forces a confidence value into [0,1]. Out-of-range
// values clamp to the nearest bound; NaN falls back to 0.
func ClampConfidence(raw float64) float64 {
	switch {
	case raw != raw: // NaN
		return 0
	case raw < 0:
		return 0
	case raw > 1:
		return 1
	default:
		return raw
	}
}

// normalizeLineBreaks folds \r\n and bare \r into \n
func normalizeLineBreaks(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}
