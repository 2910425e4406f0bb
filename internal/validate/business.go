// Package validate checks a normalized invoice against Peppol billing
// business rules and data-quality heuristics. Findings are data, never
// exceptions: severity=error means the document should not be trusted as
// billing-ready, but the XML still gets produced.
package validate

import (
	"fmt"
	"regexp"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"ubltools/internal/logger"
	"ubltools/internal/normalize"
	"ubltools/pkg/models"
)

// AmountTolerance is the reconciliation tolerance: arithmetic must agree to
// the cent, with one cent of slack for rounding.
var amountTolerance = decimal.NewFromFloat(0.01)

var (
	vatBEFormat = regexp.MustCompile(`^BE\d{10}$`)
	vatNLFormat = regexp.MustCompile(`^NL\d{9}B\d{2}$`)
)

// BusinessValidator runs the structural and business-rule checks. Every
// check is independent; nothing short-circuits.
type BusinessValidator struct {
	formats *validator.Validate
	log     zerolog.Logger
}

func NewBusinessValidator() *BusinessValidator {
	return &BusinessValidator{
		formats: validator.New(),
		log:     logger.WithComponent("business-validator"),
	}
}

// Validate returns the flat list of business-rule findings for an invoice.
func (v *BusinessValidator) Validate(inv *models.Invoice) []models.ValidationError {
	findings := []models.ValidationError{}

	findings = append(findings, v.checkRequiredFields(inv)...)
	findings = append(findings, v.checkIssueDate(inv)...)
	findings = append(findings, v.checkLineArithmetic(inv)...)
	findings = append(findings, v.checkTotals(inv)...)
	findings = append(findings, v.checkVATFormats(inv)...)
	findings = append(findings, v.checkCurrency(inv)...)
	findings = append(findings, v.checkBankDetails(inv)...)

	v.log.Debug().
		Int("findings", len(findings)).
		Msg("Business-rule validation completed")

	return findings
}

// checkRequiredFields flags missing required fields. All of these are
// warnings, not errors: the serializer has a safe default for every one of
// them, so absence degrades quality without blocking XML generation.
func (v *BusinessValidator) checkRequiredFields(inv *models.Invoice) []models.ValidationError {
	var findings []models.ValidationError

	if inv.InvoiceNumber == "" {
		findings = append(findings, warning("WARN_MISSING_INVOICE_NUMBER", "Invoice.ID",
			"Factuurnummer ontbreekt",
			"Invoice number is missing",
			"Add the invoice number; the XML will carry the placeholder UNKNOWN"))
	}
	if inv.IssueDate == nil {
		findings = append(findings, warning("WARN_MISSING_ISSUE_DATE", "Invoice.IssueDate",
			"Factuurdatum ontbreekt",
			"Issue date is missing",
			"Add the issue date; the XML will carry today's date"))
	}
	if inv.Supplier.Name == "" {
		findings = append(findings, warning("WARN_MISSING_SUPPLIER_NAME", "Invoice.AccountingSupplierParty",
			"Naam van de leverancier ontbreekt",
			"Supplier name is missing", ""))
	}
	if inv.Supplier.Address.CountryCode == "" {
		findings = append(findings, warning("WARN_MISSING_SUPPLIER_COUNTRY", "Invoice.AccountingSupplierParty",
			"Land van de leverancier ontbreekt",
			"Supplier country is missing",
			"The XML will assume BE"))
	}
	if inv.Customer.Name == "" {
		findings = append(findings, warning("WARN_MISSING_CUSTOMER_NAME", "Invoice.AccountingCustomerParty",
			"Naam van de klant ontbreekt",
			"Customer name is missing", ""))
	}
	if len(inv.Lines) == 0 {
		findings = append(findings, warning("WARN_NO_LINES", "Invoice.InvoiceLine",
			"Factuur bevat geen factuurregels",
			"Invoice contains no invoice lines", ""))
	}

	return findings
}

func (v *BusinessValidator) checkIssueDate(inv *models.Invoice) []models.ValidationError {
	if inv.IssueDate == nil {
		return nil
	}

	if inv.IssueDate.IsZero() {
		return []models.ValidationError{verr("ERR_INVALID_ISSUE_DATE", "Invoice.IssueDate",
			"Factuurdatum is ongeldig",
			"Issue date is invalid", "")}
	}
	if inv.IssueDate.After(time.Now()) {
		return []models.ValidationError{warning("WARN_FUTURE_ISSUE_DATE", "Invoice.IssueDate",
			"Factuurdatum ligt in de toekomst",
			"Issue date is in the future", "")}
	}
	return nil
}

// checkLineArithmetic verifies quantity x unitPrice against the line total
// when all three are present.
func (v *BusinessValidator) checkLineArithmetic(inv *models.Invoice) []models.ValidationError {
	var findings []models.ValidationError

	for i, line := range inv.Lines {
		if line.Quantity == nil || line.UnitPrice == nil || line.LineTotal == nil {
			continue
		}
		computed := models.Dec(*line.Quantity).Mul(models.Dec(*line.UnitPrice))
		diff := computed.Sub(models.Dec(*line.LineTotal)).Abs()
		if diff.GreaterThan(amountTolerance) {
			findings = append(findings, verr("ERR_LINE_CALCULATION",
				fmt.Sprintf("Invoice.InvoiceLine[%d]", i),
				fmt.Sprintf("Regel %d: %.2f x %.2f komt niet overeen met regeltotaal %.2f",
					i+1, *line.Quantity, *line.UnitPrice, *line.LineTotal),
				fmt.Sprintf("Line %d: %.2f x %.2f does not match line total %.2f",
					i+1, *line.Quantity, *line.UnitPrice, *line.LineTotal),
				"Correct the quantity, unit price or line total"))
		}
	}

	return findings
}

// checkTotals reconciles each stated document total against the value
// recomputed from the lines, using the same rounding as the normalizer and
// the serializer. Each total is checked independently.
func (v *BusinessValidator) checkTotals(inv *models.Invoice) []models.ValidationError {
	if len(inv.Lines) == 0 {
		return nil
	}

	var findings []models.ValidationError

	if inv.SubtotalExclVAT != nil {
		computed := normalize.SubtotalFromLines(inv.Lines)
		if exceedsTolerance(*inv.SubtotalExclVAT, computed) {
			findings = append(findings, verr("ERR_INVALID_SUBTOTAL",
				"Invoice.LegalMonetaryTotal.LineExtensionAmount",
				fmt.Sprintf("Subtotaal %.2f komt niet overeen met de som van de regels %.2f", *inv.SubtotalExclVAT, computed),
				fmt.Sprintf("Subtotal %.2f does not match the sum of the lines %.2f", *inv.SubtotalExclVAT, computed),
				""))
		}
	}

	if inv.VATTotal != nil {
		computed := normalize.VATTotalFromLines(inv.Lines)
		if exceedsTolerance(*inv.VATTotal, computed) {
			findings = append(findings, verr("ERR_INVALID_VAT_TOTAL",
				"Invoice.TaxTotal.TaxAmount",
				fmt.Sprintf("BTW-totaal %.2f komt niet overeen met het berekende bedrag %.2f", *inv.VATTotal, computed),
				fmt.Sprintf("VAT total %.2f does not match the computed amount %.2f", *inv.VATTotal, computed),
				""))
		}
	}

	if inv.TotalInclVAT != nil && inv.SubtotalExclVAT != nil && inv.VATTotal != nil {
		computed := models.Round2(*inv.SubtotalExclVAT + *inv.VATTotal)
		if exceedsTolerance(*inv.TotalInclVAT, computed) {
			findings = append(findings, verr("ERR_INVALID_TOTAL",
				"Invoice.LegalMonetaryTotal.PayableAmount",
				fmt.Sprintf("Totaal %.2f komt niet overeen met subtotaal plus BTW %.2f", *inv.TotalInclVAT, computed),
				fmt.Sprintf("Total %.2f does not match subtotal plus VAT %.2f", *inv.TotalInclVAT, computed),
				""))
		}
	}

	return findings
}

// checkVATFormats validates country-specific VAT number shapes. Only BE and
// NL shapes are known; other prefixes pass unchecked.
func (v *BusinessValidator) checkVATFormats(inv *models.Invoice) []models.ValidationError {
	var findings []models.ValidationError

	check := func(number, field string) {
		if number == "" {
			return
		}
		prefix := ""
		if len(number) >= 2 {
			prefix = number[:2]
		}
		var ok bool
		switch prefix {
		case "BE":
			ok = vatBEFormat.MatchString(number)
		case "NL":
			ok = vatNLFormat.MatchString(number)
		default:
			return
		}
		if !ok {
			findings = append(findings, verr("ERR_INVALID_VAT_FORMAT", field,
				fmt.Sprintf("BTW-nummer %s heeft geen geldig %s-formaat", number, prefix),
				fmt.Sprintf("VAT number %s is not a valid %s format", number, prefix),
				"BE numbers take 10 digits after the prefix, NL numbers 9 digits, B, 2 digits"))
		}
	}

	check(inv.Supplier.VATNumber, "Invoice.AccountingSupplierParty.Party.PartyTaxScheme.CompanyID")
	check(inv.Customer.VATNumber, "Invoice.AccountingCustomerParty.Party.PartyTaxScheme.CompanyID")

	return findings
}

func (v *BusinessValidator) checkCurrency(inv *models.Invoice) []models.ValidationError {
	var findings []models.ValidationError

	if inv.Currency != "" && v.formats.Var(inv.Currency, "iso4217") != nil {
		findings = append(findings, warning("WARN_INVALID_CURRENCY_CODE", "Invoice.DocumentCurrencyCode",
			fmt.Sprintf("Valutacode %s is geen geldige ISO-4217 code", inv.Currency),
			fmt.Sprintf("Currency code %s is not a valid ISO-4217 code", inv.Currency),
			""))
	} else if inv.Currency != "" && inv.Currency != "EUR" {
		findings = append(findings, warning("WARN_NON_EUR_CURRENCY", "Invoice.DocumentCurrencyCode",
			fmt.Sprintf("Valuta is %s, niet EUR; controleer of dit klopt", inv.Currency),
			fmt.Sprintf("Currency is %s, not EUR; please confirm this is intended", inv.Currency),
			""))
	}

	return findings
}

// checkBankDetails validates IBAN/BIC shapes and party country codes with
// the go-playground format validators.
func (v *BusinessValidator) checkBankDetails(inv *models.Invoice) []models.ValidationError {
	var findings []models.ValidationError

	if inv.IBAN != "" && v.formats.Var(inv.IBAN, "iban") != nil {
		findings = append(findings, warning("WARN_INVALID_IBAN", "Invoice.PaymentMeans.PayeeFinancialAccount.ID",
			fmt.Sprintf("IBAN %s heeft een ongeldig formaat", inv.IBAN),
			fmt.Sprintf("IBAN %s has an invalid format", inv.IBAN),
			""))
	}
	if inv.BIC != "" && v.formats.Var(inv.BIC, "bic") != nil {
		findings = append(findings, warning("WARN_INVALID_BIC", "Invoice.PaymentMeans.PayeeFinancialAccount.FinancialInstitutionBranch.ID",
			fmt.Sprintf("BIC %s heeft een ongeldig formaat", inv.BIC),
			fmt.Sprintf("BIC %s has an invalid format", inv.BIC),
			""))
	}
	if cc := inv.Supplier.Address.CountryCode; cc != "" && v.formats.Var(cc, "iso3166_1_alpha2") != nil {
		findings = append(findings, warning("WARN_INVALID_COUNTRY_CODE", "Invoice.AccountingSupplierParty.Party.PostalAddress.Country.IdentificationCode",
			fmt.Sprintf("Landcode %s is geen geldige ISO-3166 code", cc),
			fmt.Sprintf("Country code %s is not a valid ISO-3166 code", cc),
			""))
	}
	if cc := inv.Customer.Address.CountryCode; cc != "" && v.formats.Var(cc, "iso3166_1_alpha2") != nil {
		findings = append(findings, warning("WARN_INVALID_COUNTRY_CODE", "Invoice.AccountingCustomerParty.Party.PostalAddress.Country.IdentificationCode",
			fmt.Sprintf("Landcode %s is geen geldige ISO-3166 code", cc),
			fmt.Sprintf("Country code %s is not a valid ISO-3166 code", cc),
			""))
	}

	return findings
}

func exceedsTolerance(stated, computed float64) bool {
	return models.Dec(stated).Sub(models.Dec(computed)).Abs().GreaterThan(amountTolerance)
}

// Finding constructors. Every finding carries both locales.

func warning(code, field, nl, en, suggestion string) models.ValidationError {
	return models.ValidationError{
		Code:       code,
		Severity:   models.SeverityWarning,
		MessageNL:  nl,
		MessageEN:  en,
		Field:      field,
		Suggestion: suggestion,
	}
}

func verr(code, field, nl, en, suggestion string) models.ValidationError {
	return models.ValidationError{
		Code:       code,
		Severity:   models.SeverityError,
		MessageNL:  nl,
		MessageEN:  en,
		Field:      field,
		Suggestion: suggestion,
	}
}
