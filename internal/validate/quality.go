package validate

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"ubltools/internal/logger"
	"ubltools/pkg/models"
)

// Plausibility bounds. These flag likely parse errors, not business
// violations, so everything here except sign and VAT-rate-range checks is a
// warning.
const (
	maxLineTotal    = 10_000_000.0
	maxGrandTotal   = 100_000_000.0
	maxInvoiceAgeYears  = 5
	maxFutureIssueYears = 1
)

// placeholderValues are extraction artifacts, not real identifiers.
var placeholderValues = map[string]bool{
	"unknown": true, "n/a": true, "null": true, "none": true, "-": true,
}

// placeholderPartyNames are generic labels that ended up where a company
// name should be.
var placeholderPartyNames = map[string]bool{
	"unknown": true, "n/a": true, "test": true,
	"supplier": true, "leverancier": true,
	"customer": true, "klant": true,
}

// europeanCountries is the allow-list of country codes this tool expects to
// see on Peppol invoices. Anything else is worth a manual look.
var europeanCountries = map[string]bool{
	"BE": true, "NL": true, "FR": true, "DE": true, "LU": true, "AT": true,
	"ES": true, "PT": true, "IT": true, "IE": true, "DK": true, "SE": true,
	"FI": true, "NO": true, "PL": true, "CZ": true, "SK": true, "HU": true,
	"SI": true, "HR": true, "RO": true, "BG": true, "EE": true, "LV": true,
	"LT": true, "GR": true, "CY": true, "MT": true, "CH": true,
}

// QualityValidator runs heuristic plausibility checks over an invoice and
// its extraction provenance, and derives the overall data-quality score.
type QualityValidator struct {
	log zerolog.Logger
}

func NewQualityValidator() *QualityValidator {
	return &QualityValidator{log: logger.WithComponent("quality-validator")}
}

// Validate returns the data-quality findings for an invoice. Negative
// amounts and out-of-range VAT rates are errors (never legitimate on a
// commercial invoice); everything else is advisory.
func (v *QualityValidator) Validate(inv *models.Invoice, fields []models.MappingField) []models.ValidationError {
	findings := []models.ValidationError{}

	findings = append(findings, v.checkFieldConfidence(inv, fields)...)
	findings = append(findings, v.checkInvoiceNumber(inv)...)
	findings = append(findings, v.checkIssueDatePlausibility(inv)...)
	findings = append(findings, v.checkLines(inv)...)
	findings = append(findings, v.checkGrandTotal(inv)...)
	findings = append(findings, v.checkPartyNames(inv)...)
	findings = append(findings, v.checkCountries(inv)...)

	v.log.Debug().
		Int("findings", len(findings)).
		Msg("Data-quality validation completed")

	return findings
}

// criticalFloors maps each critical field path to the confidence below
// which a warning fires. Dates get a higher floor: a misread date is harder
// to spot by eye than a misread name.
var criticalFloors = map[string]float64{
	"invoiceNumber": models.MinConfidenceIdentifier,
	"issueDate":     models.MinConfidenceDate,
	"supplier.name": models.MinConfidenceIdentifier,
	"customer.name": models.MinConfidenceIdentifier,
}

func (v *QualityValidator) checkFieldConfidence(inv *models.Invoice, fields []models.MappingField) []models.ValidationError {
	var findings []models.ValidationError

	for _, path := range models.CriticalFieldPaths {
		value, present := criticalFieldValue(inv, path)
		if !present {
			continue
		}
		confidence, found := FieldConfidence(fields, path)
		if !found || confidence >= criticalFloors[path] {
			continue
		}
		findings = append(findings, warning("WARN_LOW_CONFIDENCE", "",
			fmt.Sprintf("Veld %s (%q) werd met lage zekerheid (%.2f) herkend", path, value, confidence),
			fmt.Sprintf("Field %s (%q) was extracted with low confidence (%.2f)", path, value, confidence),
			"Verify this value against the source document"))
	}

	return findings
}

func (v *QualityValidator) checkInvoiceNumber(inv *models.Invoice) []models.ValidationError {
	if inv.InvoiceNumber == "" {
		return nil
	}
	if IsPlaceholderInvoiceNumber(inv.InvoiceNumber) {
		return []models.ValidationError{warning("WARN_PLACEHOLDER_INVOICE_NUMBER", "Invoice.ID",
			fmt.Sprintf("Factuurnummer %q lijkt een plaatshouder", inv.InvoiceNumber),
			fmt.Sprintf("Invoice number %q looks like a placeholder", inv.InvoiceNumber),
			"")}
	}
	return nil
}

func (v *QualityValidator) checkIssueDatePlausibility(inv *models.Invoice) []models.ValidationError {
	if inv.IssueDate == nil || inv.IssueDate.IsZero() {
		return nil
	}

	now := time.Now()
	tooOld := inv.IssueDate.Before(now.AddDate(-maxInvoiceAgeYears, 0, 0))
	tooNew := inv.IssueDate.After(now.AddDate(maxFutureIssueYears, 0, 0))
	if tooOld || tooNew {
		// Old archival invoices are legitimate, so this never hardens into
		// an error.
		return []models.ValidationError{warning("WARN_IMPLAUSIBLE_ISSUE_DATE", "Invoice.IssueDate",
			fmt.Sprintf("Factuurdatum %s valt buiten het verwachte bereik", inv.IssueDate.Format("2006-01-02")),
			fmt.Sprintf("Issue date %s falls outside the expected range", inv.IssueDate.Format("2006-01-02")),
			"")}
	}
	return nil
}

func (v *QualityValidator) checkLines(inv *models.Invoice) []models.ValidationError {
	var findings []models.ValidationError
	lowConfidence := 0

	for i, line := range inv.Lines {
		field := fmt.Sprintf("Invoice.InvoiceLine[%d]", i)

		if line.Quantity != nil && *line.Quantity < 0 {
			findings = append(findings, verr("ERR_NEGATIVE_QUANTITY", field,
				fmt.Sprintf("Regel %d heeft een negatieve hoeveelheid (%.2f)", i+1, *line.Quantity),
				fmt.Sprintf("Line %d has a negative quantity (%.2f)", i+1, *line.Quantity),
				""))
		}
		if line.UnitPrice != nil && *line.UnitPrice < 0 {
			findings = append(findings, verr("ERR_NEGATIVE_PRICE", field,
				fmt.Sprintf("Regel %d heeft een negatieve eenheidsprijs (%.2f)", i+1, *line.UnitPrice),
				fmt.Sprintf("Line %d has a negative unit price (%.2f)", i+1, *line.UnitPrice),
				""))
		}
		if line.LineTotal != nil {
			switch {
			case *line.LineTotal < 0:
				findings = append(findings, verr("ERR_NEGATIVE_LINE_TOTAL", field,
					fmt.Sprintf("Regel %d heeft een negatief regeltotaal (%.2f)", i+1, *line.LineTotal),
					fmt.Sprintf("Line %d has a negative line total (%.2f)", i+1, *line.LineTotal),
					""))
			case *line.LineTotal > maxLineTotal:
				findings = append(findings, warning("WARN_EXCESSIVE_LINE_TOTAL", field,
					fmt.Sprintf("Regel %d heeft een uitzonderlijk hoog totaal (%.2f); mogelijk een leesfout", i+1, *line.LineTotal),
					fmt.Sprintf("Line %d has an exceptionally high total (%.2f); possibly a parse error", i+1, *line.LineTotal),
					""))
			case *line.LineTotal == 0 && line.Quantity != nil && *line.Quantity > 0 &&
				line.UnitPrice != nil && *line.UnitPrice > 0:
				findings = append(findings, warning("WARN_ZERO_LINE_TOTAL", field,
					fmt.Sprintf("Regel %d heeft totaal 0 ondanks hoeveelheid en prijs", i+1),
					fmt.Sprintf("Line %d has total 0 despite a quantity and price", i+1),
					""))
			}
		}
		if line.VATRate != nil {
			rate := *line.VATRate
			if rate < 0 || rate > 100 {
				findings = append(findings, verr("ERR_INVALID_VAT_RATE", field,
					fmt.Sprintf("Regel %d heeft een BTW-tarief buiten 0-100 (%.2f)", i+1, rate),
					fmt.Sprintf("Line %d has a VAT rate outside 0-100 (%.2f)", i+1, rate),
					""))
			} else if rate > 0 && rate < 1 {
				// Almost certainly a decimal fraction (0.21) where a
				// percentage (21) was meant. A legitimate sub-1% rate will
				// misfire here; that trade-off is intentional.
				findings = append(findings, warning("WARN_VAT_RATE_FRACTION", field,
					fmt.Sprintf("Regel %d heeft BTW-tarief %.2f; bedoelde u %.0f%%?", i+1, rate, rate*100),
					fmt.Sprintf("Line %d has VAT rate %.2f; did you mean %.0f%%?", i+1, rate, rate*100),
					""))
			}
		}
		if line.Confidence > 0 && line.Confidence < models.MinConfidenceLine {
			lowConfidence++
		}
	}

	if lowConfidence > 0 {
		findings = append(findings, warning("WARN_LOW_CONFIDENCE_LINES", "Invoice.InvoiceLine",
			fmt.Sprintf("%d factuurregel(s) werden met lage zekerheid herkend", lowConfidence),
			fmt.Sprintf("%d invoice line(s) were extracted with low confidence", lowConfidence),
			""))
	}

	return findings
}

func (v *QualityValidator) checkGrandTotal(inv *models.Invoice) []models.ValidationError {
	if inv.TotalInclVAT == nil {
		return nil
	}

	switch {
	case *inv.TotalInclVAT < 0:
		return []models.ValidationError{verr("ERR_NEGATIVE_TOTAL", "Invoice.LegalMonetaryTotal.PayableAmount",
			fmt.Sprintf("Totaalbedrag is negatief (%.2f)", *inv.TotalInclVAT),
			fmt.Sprintf("Grand total is negative (%.2f)", *inv.TotalInclVAT),
			"")}
	case *inv.TotalInclVAT > maxGrandTotal:
		return []models.ValidationError{warning("WARN_EXCESSIVE_TOTAL", "Invoice.LegalMonetaryTotal.PayableAmount",
			fmt.Sprintf("Totaalbedrag is uitzonderlijk hoog (%.2f)", *inv.TotalInclVAT),
			fmt.Sprintf("Grand total is exceptionally high (%.2f)", *inv.TotalInclVAT),
			"")}
	}
	return nil
}

func (v *QualityValidator) checkPartyNames(inv *models.Invoice) []models.ValidationError {
	var findings []models.ValidationError

	check := func(name, field string) {
		if name == "" {
			return
		}
		if len([]rune(name)) < 2 || placeholderPartyNames[strings.ToLower(name)] {
			findings = append(findings, warning("WARN_SUSPICIOUS_PARTY_NAME", field,
				fmt.Sprintf("Partijnaam %q lijkt geen echte bedrijfsnaam", name),
				fmt.Sprintf("Party name %q does not look like a real company name", name),
				""))
		}
	}

	check(inv.Supplier.Name, "Invoice.AccountingSupplierParty")
	check(inv.Customer.Name, "Invoice.AccountingCustomerParty")

	return findings
}

func (v *QualityValidator) checkCountries(inv *models.Invoice) []models.ValidationError {
	var findings []models.ValidationError

	check := func(code, field string) {
		if code != "" && !europeanCountries[code] {
			findings = append(findings, warning("WARN_UNKNOWN_COUNTRY", field,
				fmt.Sprintf("Landcode %s ligt buiten het verwachte Europese bereik", code),
				fmt.Sprintf("Country code %s is outside the expected European range", code),
				""))
		}
	}

	check(inv.Supplier.Address.CountryCode, "Invoice.AccountingSupplierParty.Party.PostalAddress")
	check(inv.Customer.Address.CountryCode, "Invoice.AccountingCustomerParty.Party.PostalAddress")

	return findings
}

// IsPlaceholderInvoiceNumber reports whether a non-empty invoice number is
// an extraction artifact rather than a real identifier.
func IsPlaceholderInvoiceNumber(number string) bool {
	return placeholderValues[strings.ToLower(number)] || len([]rune(number)) < 3
}

// FieldConfidence returns the highest confidence recorded for a field path.
func FieldConfidence(fields []models.MappingField, path string) (float64, bool) {
	best, found := 0.0, false
	for _, f := range fields {
		if f.Path == path && (!found || f.Confidence > best) {
			best, found = f.Confidence, true
		}
	}
	return best, found
}

func criticalFieldValue(inv *models.Invoice, path string) (string, bool) {
	switch path {
	case "invoiceNumber":
		return inv.InvoiceNumber, inv.InvoiceNumber != ""
	case "issueDate":
		if inv.IssueDate == nil {
			return "", false
		}
		return inv.IssueDate.Format("2006-01-02"), true
	case "supplier.name":
		return inv.Supplier.Name, inv.Supplier.Name != ""
	case "customer.name":
		return inv.Customer.Name, inv.Customer.Name != ""
	}
	return "", false
}

// Score derives the 0-1 data-quality score from the invoice, its extraction
// provenance and every validation finding (business plus quality).
func (v *QualityValidator) Score(inv *models.Invoice, fields []models.MappingField, findings []models.ValidationError) models.DataQualityScore {
	score := 1.0
	issues := []string{}

	for _, path := range models.CriticalFieldPaths {
		if _, present := criticalFieldValue(inv, path); !present {
			score -= 0.1
			issues = append(issues, fmt.Sprintf("missing critical field %s", path))
			continue
		}
		confidence, found := FieldConfidence(fields, path)
		if !found {
			continue
		}
		switch {
		case confidence < models.MinConfidenceIdentifier:
			score -= 0.15
			issues = append(issues, fmt.Sprintf("low confidence (%.2f) for %s", confidence, path))
		case confidence < models.GoodConfidence:
			score -= 0.05
			issues = append(issues, fmt.Sprintf("moderate confidence (%.2f) for %s", confidence, path))
		}
	}

	for _, f := range findings {
		switch f.Severity {
		case models.SeverityError:
			score -= 0.1
			issues = append(issues, fmt.Sprintf("validation error %s", f.Code))
		case models.SeverityWarning:
			score -= 0.02
		}
	}

	if inv.InvoiceNumber != "" && IsPlaceholderInvoiceNumber(inv.InvoiceNumber) {
		score -= 0.1
		issues = append(issues, "invoice number looks like a placeholder")
	}

	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}

	result := models.DataQualityScore{
		Score:  score,
		Level:  models.LevelForScore(score),
		Issues: issues,
	}

	v.log.Debug().
		Float64("score", score).
		Str("level", string(result.Level)).
		Msg("Data-quality score derived")

	return result
}
