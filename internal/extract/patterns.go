package extract

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Shared token patterns and parsers used by both extractors. The PDF
// extractor matches these against free text flow; the spreadsheet extractor
// applies the same parsers to individual cell values so that "15/03/2024"
// means the same date regardless of where it was read from.

var (
	// dateTokenPattern matches ISO dates and the common European separator
	// variants (15/03/2024, 15-03-2024, 15.03.2024, 15/03/24).
	dateTokenPattern = regexp.MustCompile(`\b(\d{4}-\d{2}-\d{2}|\d{1,2}[./-]\d{1,2}[./-]\d{2,4})\b`)

	// currencyTokenPattern matches an ISO-4217-looking 3-letter token.
	currencyTokenPattern = regexp.MustCompile(`\b(EUR|USD|GBP|CHF|SEK|DKK|NOK|PLN|CZK|HUF|JPY)\b`)

	// ibanPattern is the generic IBAN shape, tolerating grouped spacing.
	// The separator class excludes newlines so the optional tail group
	// cannot swallow a label on the following line.
	ibanPattern = regexp.MustCompile(`\b([A-Z]{2}\d{2}(?:[ \t]?[A-Z0-9]{4}){2,7}(?:[ \t]?[A-Z0-9]{1,4})?)\b`)

	// Country-prefixed VAT number patterns. The generic keyword fallback
	// below catches prefixless numbers near a BTW/VAT/TVA label.
	vatBEPattern      = regexp.MustCompile(`\bBE\s?0?\d{3}[. ]?\d{3}[. ]?\d{3}\b`)
	vatNLPattern      = regexp.MustCompile(`\bNL\s?\d{9}\s?B\s?\d{2}\b`)
	vatFRPattern      = regexp.MustCompile(`\bFR\s?[A-Z0-9]{2}\s?\d{9}\b`)
	vatKeywordPattern = regexp.MustCompile(`(?i)(?:btw|vat|tva)[-. ]?(?:nr|nummer|number|no)?[.:]?\s*([A-Z]{0,2}[0-9][0-9.\s]{7,14}[0-9](?:\s?B\s?\d{2})?)`)

	// postalCityPattern matches Belgian/Dutch postal blocks: a 4-digit code
	// with an optional two-letter suffix (NL) followed by a city name.
	postalCityPattern = regexp.MustCompile(`\b(\d{4}\s?(?:[A-Z]{2}\b)?)\s+([A-Z][\p{L}'-]+(?:\s[A-Z][\p{L}'-]+)?)`)
)

// countryNames maps country spellings that show up on Benelux invoices onto
// ISO-3166-1 alpha-2 codes.
var countryNames = map[string]string{
	"belgië":      "BE",
	"belgie":      "BE",
	"belgique":    "BE",
	"belgium":     "BE",
	"nederland":   "NL",
	"netherlands": "NL",
	"the netherlands": "NL",
	"france":      "FR",
	"frankrijk":   "FR",
	"deutschland": "DE",
	"duitsland":   "DE",
	"germany":     "DE",
	"luxembourg":  "LU",
	"luxemburg":   "LU",
}

// ParseDate parses a date token in ISO or European separator notation.
// For ambiguous x/y/year tokens the rule is: if the first numeric group is
// greater than 12 it has to be the day; otherwise day-first (DD/MM) is
// assumed, since the documents this tool targets are European.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}

	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, true
	}

	parts := regexp.MustCompile(`[./-]`).Split(s, -1)
	if len(parts) != 3 {
		return time.Time{}, false
	}

	// Year-first variant (2024/03/15).
	if len(parts[0]) == 4 {
		return assembleDate(parts[0], parts[1], parts[2])
	}

	d1, err1 := strconv.Atoi(parts[0])
	d2, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil {
		return time.Time{}, false
	}

	day, month := d1, d2
	if d1 <= 12 && d2 > 12 {
		day, month = d2, d1
	}

	year := parts[2]
	if len(year) == 2 {
		year = "20" + year
	}
	return assembleDate(year, strconv.Itoa(month), strconv.Itoa(day))
}

func assembleDate(year, month, day string) (time.Time, bool) {
	y, err := strconv.Atoi(year)
	if err != nil {
		return time.Time{}, false
	}
	m, err := strconv.Atoi(month)
	if err != nil || m < 1 || m > 12 {
		return time.Time{}, false
	}
	d, err := strconv.Atoi(day)
	if err != nil || d < 1 || d > 31 {
		return time.Time{}, false
	}
	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	// Reject overflow like 31/02 that time.Date silently rolls over.
	if t.Day() != d || t.Month() != time.Month(m) {
		return time.Time{}, false
	}
	return t, true
}

// ParseAmount parses a monetary or numeric token, handling both the
// continental format (1.234,56) and the anglophone format (1,234.56) as well
// as stray currency symbols.
func ParseAmount(s string) (float64, bool) {
	cleaned := strings.TrimSpace(s)
	for _, junk := range []string{"€", "$", "£", "EUR", "USD", "GBP", " ", " "} {
		cleaned = strings.ReplaceAll(cleaned, junk, "")
	}
	if cleaned == "" {
		return 0, false
	}

	hasComma := strings.Contains(cleaned, ",")
	hasDot := strings.Contains(cleaned, ".")
	switch {
	case hasComma && hasDot:
		if strings.LastIndex(cleaned, ",") > strings.LastIndex(cleaned, ".") {
			// Continental: dot thousands, comma decimal.
			cleaned = strings.ReplaceAll(cleaned, ".", "")
			cleaned = strings.ReplaceAll(cleaned, ",", ".")
		} else {
			// Anglophone: comma thousands.
			cleaned = strings.ReplaceAll(cleaned, ",", "")
		}
	case hasComma:
		parts := strings.Split(cleaned, ",")
		if len(parts) == 2 && len(parts[1]) <= 2 {
			cleaned = parts[0] + "." + parts[1]
		} else {
			cleaned = strings.ReplaceAll(cleaned, ",", "")
		}
	}

	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// countryCodeForName resolves a country name spelling to its alpha-2 code.
func countryCodeForName(name string) (string, bool) {
	code, ok := countryNames[strings.ToLower(strings.TrimSpace(name))]
	return code, ok
}

// compactVAT strips spacing and punctuation out of a raw VAT number match.
func compactVAT(raw string) string {
	return strings.NewReplacer(" ", "", ".", "", "-", "").Replace(strings.ToUpper(strings.TrimSpace(raw)))
}

// compactIBAN strips spacing out of a raw IBAN match.
func compactIBAN(raw string) string {
	return strings.NewReplacer(" ", "", "\t", "").Replace(strings.ToUpper(strings.TrimSpace(raw)))
}
