// Package normalize turns the untyped payload returned by the extraction
// collaborator into a sanitized domain.ExtractionRecord. The engine is
// total: every payload, however malformed, produces a record.
package normalize

import (
	"fmt"
	"sort"
	"strings"

	"github.com/kycflow/kycflow-backend/internal/kyc/domain"
	"github.com/kycflow/kycflow-backend/internal/kyc/parse"
	"github.com/kycflow/kycflow-backend/pkg/logger"
)

// Engine applies the field parsers across a raw payload
type Engine struct {
	log *logger.Logger
}

// NewEngine creates a normalization engine
func NewEngine(log *logger.Logger) *Engine {
	return &Engine{log: log}
}

// MalformationError reports payload keys whose values had the wrong shape.
// It is recovered from locally and never surfaces past the engine.
type MalformationError struct {
	Fields []string
}

func (e *MalformationError) Error() string {
	return "malformed payload fields: " + strings.Join(e.Fields, ", ")
}

// Record builds a normalized ExtractionRecord from a raw payload.
// Construction is two-phase: a strict type-checked pass first, and on a
// structural error a fallback pass that keeps only the well-typed
// recognized keys. The discrepancy is logged, not returned.
func (e *Engine) Record(payload map[string]any) *domain.ExtractionRecord {
	fields, err := decodeStrict(payload)
	if err != nil {
		var malformed *MalformationError
		if m, ok := err.(*MalformationError); ok {
			malformed = m
		}
		if e.log != nil && malformed != nil {
			e.log.Warn().
				Strs("fields", malformed.Fields).
				Msg("payload failed strict decode, retrying with recognized keys only")
		}
		fields = decodeLenient(payload)
	}
	return e.build(fields)
}

// rawFields is the intermediate shape between decode and normalization:
// recognized scalar values with their JSON types already settled.
type rawFields struct {
	strings    map[string]string
	confidence *float64
	docType    *string
	extensions map[string]any
}

// decodeStrict type-checks every recognized key. A wrong-typed value is a
// structural malformation; null and missing values are fine.
func decodeStrict(payload map[string]any) (*rawFields, error) {
	fields := &rawFields{strings: make(map[string]string)}
	var bad []string

	for key, value := range payload {
		if value == nil || !domain.RecognizedKeys[key] {
			continue
		}
		switch key {
		case domain.KeyDocumentType:
			s, ok := value.(string)
			if !ok {
				bad = append(bad, key)
				continue
			}
			fields.docType = &s
		case domain.KeyConfidenceScore:
			f, ok := value.(float64)
			if !ok {
				bad = append(bad, key)
				continue
			}
			fields.confidence = &f
		case domain.KeyOtherFields:
			m, ok := value.(map[string]any)
			if !ok {
				bad = append(bad, key)
				continue
			}
			fields.extensions = m
		default:
			s, ok := value.(string)
			if !ok {
				bad = append(bad, key)
				continue
			}
			fields.strings[key] = s
		}
	}

	if len(bad) > 0 {
		sort.Strings(bad)
		return nil, &MalformationError{Fields: bad}
	}
	return fields, nil
}

// decodeLenient keeps the well-typed recognized keys and silently drops
// everything else.
func decodeLenient(payload map[string]any) *rawFields {
	fields := &rawFields{strings: make(map[string]string)}
	for key, value := range payload {
		if value == nil || !domain.RecognizedKeys[key] {
			continue
		}
		switch key {
		case domain.KeyDocumentType:
			if s, ok := value.(string); ok {
				fields.docType = &s
			}
		case domain.KeyConfidenceScore:
			if f, ok := value.(float64); ok {
				fields.confidence = &f
			}
		case domain.KeyOtherFields:
			if m, ok := value.(map[string]any); ok {
				fields.extensions = m
			}
		default:
			if s, ok := value.(string); ok {
				fields.strings[key] = s
			}
		}
	}
	return fields
}

// build applies the field parsers to the decoded values
func (e *Engine) build(fields *rawFields) *domain.ExtractionRecord {
	rec := &domain.ExtractionRecord{
		DocumentType:   domain.DocumentTypeUnknown,
		FirstName:      parse.NormalizeDisplayText(fields.strings[domain.KeyFirstName]),
		LastName:       parse.NormalizeDisplayText(fields.strings[domain.KeyLastName]),
		Nationality:    parse.NormalizeDisplayText(fields.strings[domain.KeyNationality]),
		DateOfBirth:    parse.Date(fields.strings[domain.KeyDateOfBirth]),
		IssueDate:      parse.Date(fields.strings[domain.KeyIssueDate]),
		ExpiryDate:     parse.Date(fields.strings[domain.KeyExpiryDate]),
		Gender:         parse.NormalizeCode(fields.strings[domain.KeyGender]),
		IssuingCountry: parse.NormalizeCode(fields.strings[domain.KeyIssuingCountry]),
		DocumentNumber: strings.TrimSpace(fields.strings[domain.KeyDocumentNumber]),
		Address:        parse.NormalizeAddress(fields.strings[domain.KeyAddress]),
		MRZRaw:         parse.FlattenMRZ(fields.strings[domain.KeyMRZRaw]),
	}

	if fields.docType != nil {
		if t := strings.TrimSpace(*fields.docType); t != "" {
			rec.DocumentType = t
		}
	}
	if fields.confidence != nil {
		rec.ConfidenceScore = parse.ClampConfidence(*fields.confidence)
	}

	if len(fields.extensions) > 0 {
		rec.ExtensionFields = make(map[string]string, len(fields.extensions))
		for k, v := range fields.extensions {
			if s, ok := v.(string); ok {
				rec.ExtensionFields[k] = parse.CollapseWhitespace(s)
			} else {
				// non-text extension values survive as their string rendering
				rec.ExtensionFields[k] = fmt.Sprint(v)
			}
		}
	}

	return rec
}
