// Package normalize canonicalizes an extracted invoice and derives the
// monetary fields that can be computed from what is present. Normalization
// is a pure, total function: it always succeeds, never overwrites an
// explicit value with a derived one, and applying it twice changes nothing.
package normalize

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"ubltools/pkg/models"
)

// DefaultCurrency is assumed when no currency was extracted.
const DefaultCurrency = "EUR"

// DefaultUnitCode is the UN/ECE "unit" code applied to lines without one.
const DefaultUnitCode = "C62"

// DefaultVATCategory is the UBL standard-rate category code.
const DefaultVATCategory = "S"

var (
	bareBEPattern = regexp.MustCompile(`^\d{10}$`)
	bareNLPattern = regexp.MustCompile(`^\d{9}B\d{2}$`)
)

// Normalize returns a canonicalized copy of the invoice. Step order matters:
// identifier cleanup precedes derivation because the derivations read the
// cleaned values.
func Normalize(in *models.Invoice) *models.Invoice {
	out := *in
	out.Lines = make([]models.InvoiceLine, len(in.Lines))
	copy(out.Lines, in.Lines)

	// (a) currency
	out.Currency = strings.ToUpper(strings.TrimSpace(out.Currency))
	if out.Currency == "" {
		out.Currency = DefaultCurrency
	}

	// (b) dates are already typed in this model; extractors and the AI
	// enhancer coerce textual dates before they get here.

	// (c) VAT identifiers
	out.Supplier = normalizeParty(out.Supplier)
	out.Customer = normalizeParty(out.Customer)

	// (d) bank identifiers
	out.IBAN = strings.ToUpper(strings.ReplaceAll(out.IBAN, " ", ""))
	out.BIC = strings.ToUpper(strings.ReplaceAll(out.BIC, " ", ""))

	// (e) lines
	for i := range out.Lines {
		out.Lines[i] = normalizeLine(out.Lines[i])
	}

	// (f) totals
	if out.SubtotalExclVAT == nil {
		v := SubtotalFromLines(out.Lines)
		out.SubtotalExclVAT = &v
	}
	if out.VATTotal == nil {
		v := VATTotalFromLines(out.Lines)
		out.VATTotal = &v
	}
	if out.TotalInclVAT == nil {
		v := models.Round2(*out.SubtotalExclVAT + *out.VATTotal)
		out.TotalInclVAT = &v
	}

	return &out
}

func normalizeParty(p models.Party) models.Party {
	p.Name = strings.TrimSpace(p.Name)
	p.VATNumber = NormalizeVATNumber(p.VATNumber)
	p.Address.CountryCode = strings.ToUpper(strings.TrimSpace(p.Address.CountryCode))
	return p
}

func normalizeLine(line models.InvoiceLine) models.InvoiceLine {
	if line.Quantity == nil {
		one := 1.0
		line.Quantity = &one
	}
	if line.LineTotal == nil && line.UnitPrice != nil {
		// Derived only when absent: an explicit total that disagrees with
		// quantity x price is the validator's finding, not ours to repair.
		v := models.MulRound2(*line.Quantity, *line.UnitPrice)
		line.LineTotal = &v
	}
	if line.VATRate != nil {
		v := models.Round2(*line.VATRate)
		line.VATRate = &v
		if line.VATCategory == "" {
			line.VATCategory = DefaultVATCategory
		}
	}
	if line.UnitCode == "" {
		line.UnitCode = DefaultUnitCode
	}
	return line
}

// NormalizeVATNumber strips whitespace and punctuation, uppercases, and
// prefixes a country code when the bare digits have an unmistakable shape.
// The inference is a best-effort heuristic, not a registry lookup: 10 bare
// digits are read as Belgian and 9-digits+B+2 as Dutch, which can misfire
// for other countries' numbers of the same shape.
func NormalizeVATNumber(v string) string {
	cleaned := strings.NewReplacer(" ", "", ".", "", "-", "").Replace(strings.ToUpper(strings.TrimSpace(v)))
	if cleaned == "" {
		return ""
	}
	if bareBEPattern.MatchString(cleaned) {
		return "BE" + cleaned
	}
	if bareNLPattern.MatchString(cleaned) {
		return "NL" + cleaned
	}
	return cleaned
}

// SubtotalFromLines recomputes the subtotal excluding VAT as the rounded sum
// of the line totals. The validator uses the same recomputation to check an
// explicit subtotal, so the two can never disagree on rounding.
func SubtotalFromLines(lines []models.InvoiceLine) float64 {
	sum := decimal.Zero
	for _, line := range lines {
		if line.LineTotal != nil {
			sum = sum.Add(models.Dec(*line.LineTotal))
		}
	}
	f, _ := sum.Round(2).Float64()
	return f
}

// VATTotalFromLines recomputes the VAT total as the rounded sum of each
// line's lineTotal x vatRate / 100. Rounding happens once, at the end.
func VATTotalFromLines(lines []models.InvoiceLine) float64 {
	sum := decimal.Zero
	for _, line := range lines {
		if line.LineTotal != nil && line.VATRate != nil {
			sum = sum.Add(models.RateAmount(*line.LineTotal, *line.VATRate))
		}
	}
	f, _ := sum.Round(2).Float64()
	return f
}
