package models

// Severity classifies a validation finding. Errors mean the document should
// not be trusted as billing-ready; warnings are advisory and never block XML
// generation.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// ValidationError is one immutable validation finding. Messages are bilingual
// (Dutch and English) because the conversion reports are shown to both
// Dutch-speaking and international users.
type ValidationError struct {
	// Code is a stable identifier, namespaced ERR_* / WARN_* / INFO_*.
	Code     string   `json:"code"`
	Severity Severity `json:"severity"`

	MessageNL string `json:"messageNl"`
	MessageEN string `json:"messageEn"`

	// Field addresses the offending UBL element when one applies,
	// e.g. "Invoice.ID" or "Invoice.InvoiceLine[2]".
	Field string `json:"field,omitempty"`

	// Suggestion is an optional human-readable fix.
	Suggestion string `json:"suggestion,omitempty"`
}

// ValidationReport splits a flat finding list by severity. IsValid is true
// exactly when no severity=error finding exists; reports are always built
// through NewValidationReport, never assembled by hand.
type ValidationReport struct {
	Errors   []ValidationError `json:"errors"`
	Warnings []ValidationError `json:"warnings"`
	IsValid  bool              `json:"isValid"`
}

// NewValidationReport derives a report from a flat list of findings.
func NewValidationReport(findings []ValidationError) ValidationReport {
	report := ValidationReport{
		Errors:   []ValidationError{},
		Warnings: []ValidationError{},
	}
	for _, f := range findings {
		switch f.Severity {
		case SeverityError:
			report.Errors = append(report.Errors, f)
		default:
			report.Warnings = append(report.Warnings, f)
		}
	}
	report.IsValid = len(report.Errors) == 0
	return report
}

// QualityLevel is the discrete bucket a data-quality score falls into.
type QualityLevel string

const (
	QualityExcellent QualityLevel = "excellent"
	QualityGood      QualityLevel = "good"
	QualityFair      QualityLevel = "fair"
	QualityPoor      QualityLevel = "poor"
)

// DataQualityScore summarizes how trustworthy the overall extraction is,
// independent of strict business-rule validity.
type DataQualityScore struct {
	// Score is clamped to [0, 1].
	Score  float64      `json:"score"`
	Level  QualityLevel `json:"level"`
	Issues []string     `json:"issues"`
}

// LevelForScore maps a clamped score onto its quality level.
func LevelForScore(score float64) QualityLevel {
	switch {
	case score >= 0.9:
		return QualityExcellent
	case score >= 0.7:
		return QualityGood
	case score >= 0.5:
		return QualityFair
	default:
		return QualityPoor
	}
}

// MappingReport is the provenance side of a conversion result: every mapping
// field the extractors and enhancer produced, the required field paths that
// stayed empty, freeform warnings, and the derived quality score.
type MappingReport struct {
	Fields          []MappingField   `json:"fields"`
	MissingRequired []string         `json:"missingRequired"`
	Warnings        []string         `json:"warnings"`
	Quality         DataQualityScore `json:"quality"`
}
