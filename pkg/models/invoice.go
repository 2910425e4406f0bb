// Package models defines the shared invoice data model used by every stage of
// the conversion pipeline: extraction, AI enhancement, normalization,
// validation and UBL serialization.
//
// Optionality conventions:
//   - optional strings are the empty string when absent
//   - optional numerics are nil pointers
//   - optional dates are nil *time.Time
//
// "Absent" and "zero" are distinct for numeric fields: a nil LineTotal means
// the extractor never found one (the normalizer may derive it), while a
// pointer to 0 is an explicit, extracted zero (the normalizer must leave it
// alone and the validators decide what to make of it).
package models

import "time"

// SourceType identifies which extractor produced an invoice.
type SourceType string

const (
	SourcePDF  SourceType = "pdf"
	SourceXLSX SourceType = "xlsx"
)

// MIME types accepted at the pipeline input boundary.
const (
	MIMEPDF  = "application/pdf"
	MIMEXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// Address is a postal address. CountryCode is ISO-3166-1 alpha-2, uppercased
// by the normalizer when present.
type Address struct {
	Street      string `json:"street,omitempty"`
	City        string `json:"city,omitempty"`
	PostalCode  string `json:"postalCode,omitempty"`
	CountryCode string `json:"countryCode,omitempty"`
}

// Party is a supplier or customer. All fields are optional; a Party is always
// embedded by value in an Invoice and has no lifecycle of its own.
type Party struct {
	Name string `json:"name,omitempty"`

	Address Address `json:"address,omitempty"`

	// VATNumber is the EU VAT identifier, e.g. "BE0123456789".
	VATNumber string `json:"vatNumber,omitempty"`

	// RegistrationNumber is the national business-registry identifier
	// (KBO/KvK/SIREN and the like).
	RegistrationNumber string `json:"registrationNumber,omitempty"`

	// TaxID is a generic tax-registration identifier for registrations that
	// are neither VAT nor registry numbers.
	TaxID string `json:"taxId,omitempty"`
}

// InvoiceLine is a single invoice line item. VATRate is a percentage number:
// 21 means 21%, never 0.21.
type InvoiceLine struct {
	Description string   `json:"description,omitempty"`
	Quantity    *float64 `json:"quantity,omitempty"`
	UnitPrice   *float64 `json:"unitPrice,omitempty"`

	// UnitCode is the UN/ECE Recommendation 20 unit of measure.
	// Defaults to "C62" (piece / unit) during normalization.
	UnitCode string `json:"unitCode,omitempty"`

	VATRate *float64 `json:"vatRate,omitempty"`

	// VATCategory is the UBL tax category code; "S" (standard rate) is the
	// normalization default when a rate is present.
	VATCategory string `json:"vatCategory,omitempty"`

	// LineTotal is the line amount excluding VAT. Derived as
	// quantity x unitPrice by the normalizer only when absent.
	LineTotal *float64 `json:"lineTotal,omitempty"`

	// Confidence is the extraction confidence for this line (0-1).
	Confidence float64 `json:"confidence,omitempty"`

	// Source tags the extraction provenance, e.g. "pdf-text" or "ai".
	Source string `json:"source,omitempty"`
}

// Invoice is the normalized invoice record shared by the whole pipeline.
// Created partially filled by an extractor, optionally enriched by the AI
// enhancer, completed by the normalizer, and read-only for the validators and
// the UBL serializer.
type Invoice struct {
	InvoiceNumber string     `json:"invoiceNumber,omitempty"`
	IssueDate     *time.Time `json:"issueDate,omitempty"`
	DueDate       *time.Time `json:"dueDate,omitempty"`

	// Currency is the ISO-4217 code; the normalizer defaults it to EUR.
	Currency string `json:"currency,omitempty"`

	Supplier Party `json:"supplier,omitempty"`
	Customer Party `json:"customer,omitempty"`

	PaymentReference string `json:"paymentReference,omitempty"`
	IBAN             string `json:"iban,omitempty"`
	BIC              string `json:"bic,omitempty"`

	Lines []InvoiceLine `json:"lines"`

	SubtotalExclVAT *float64 `json:"subtotalExclVat,omitempty"`
	VATTotal        *float64 `json:"vatTotal,omitempty"`
	TotalInclVAT    *float64 `json:"totalInclVat,omitempty"`

	SourceType SourceType `json:"sourceType,omitempty"`
	SourceFile string     `json:"sourceFile,omitempty"`

	// Confidence is the overall extraction confidence (0-1).
	Confidence float64 `json:"confidence,omitempty"`
}

// MappingField records the provenance of one extracted invoice field: which
// field path it landed on, where the value came from and how confident the
// extraction was. A field path may appear more than once when the AI pass
// re-extracts a field; merge semantics keep the AI entry and drop the rest.
type MappingField struct {
	// Path addresses the invoice field in dotted/bracketed form,
	// e.g. "invoiceNumber" or "lines[0].description".
	Path string `json:"path"`

	// Value is the extracted value after cleanup, stringified.
	Value string `json:"value"`

	// Source tags the extraction origin: "pdf-text", "xlsx-cell-B4", "ai".
	Source string `json:"source"`

	Confidence float64 `json:"confidence"`

	// Raw is the pre-normalization text the value was read from, when it
	// differs from Value.
	Raw string `json:"raw,omitempty"`
}

// Provenance tags used in MappingField.Source.
const (
	SourceAI      = "ai"
	SourcePDFText = "pdf-text"
)

// CriticalFieldPaths lists the field paths whose absence or low extraction
// confidence degrades the data-quality score.
var CriticalFieldPaths = []string{
	"invoiceNumber",
	"issueDate",
	"supplier.name",
	"customer.name",
}

// Float returns a pointer to v. Convenience for building optional numerics.
func Float(v float64) *float64 {
	return &v
}

// Date returns a pointer to a date truncated to midnight UTC.
func Date(year int, month time.Month, day int) *time.Time {
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	return &t
}
