package extract

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"ubltools/internal/logger"
	"ubltools/pkg/models"
)

// MaxPDFLines bounds how many invoice lines the columnar line heuristic will
// accept from one document, so a pathological text layer cannot explode the
// result.
const MaxPDFLines = 20

// strategyHit is the result of one extraction strategy: the cleaned value,
// the confidence it carries and the raw text it was matched from.
type strategyHit struct {
	value      string
	confidence float64
	raw        string
}

// textStrategy is one named attempt at extracting a field from text. Each
// field owns an ordered strategy list; the first strategy to produce a hit
// wins and the rest are never consulted. Keeping the order in a slice rather
// than in code layout makes it explicit and lets every strategy be tested on
// its own.
type textStrategy struct {
	name  string
	apply func(text string) (strategyHit, bool)
}

func firstHit(text string, strategies []textStrategy) (strategyHit, string, bool) {
	for _, s := range strategies {
		if hit, ok := s.apply(text); ok {
			return hit, s.name, true
		}
	}
	return strategyHit{}, "", false
}

// keywordCapture builds a strategy that matches a capture-group regex and
// reports the first group at the given confidence.
func keywordCapture(name string, re *regexp.Regexp, confidence float64) textStrategy {
	return textStrategy{
		name: name,
		apply: func(text string) (strategyHit, bool) {
			m := re.FindStringSubmatch(text)
			if len(m) < 2 || strings.TrimSpace(m[1]) == "" {
				return strategyHit{}, false
			}
			return strategyHit{
				value:      strings.TrimSpace(m[1]),
				confidence: confidence,
				raw:        strings.TrimSpace(m[0]),
			}, true
		},
	}
}

var (
	invoiceNumberKeywordRe = regexp.MustCompile(`(?i)\b(?:factuurnummer|factuur\s?nr|invoice\s?(?:number|nr|no)|facture\s?n[o°])\b\s*[.:#]?\s*([A-Za-z0-9][A-Za-z0-9/_-]{2,})`)
	invoiceNumberBareRe    = regexp.MustCompile(`\b((?:INV|FACT|FAC|FV|F)[-/]?\d{3,}(?:[-/]\d+)*)\b`)

	// Plain "date" is deliberately absent: it would swallow "due date".
	issueDateKeywordRe = regexp.MustCompile(`(?i)\b(?:factuurdatum|invoice\s?date|issue\s?date|date\s?of\s?issue|datum)\b\s*[.:]?\s*(\d{4}-\d{2}-\d{2}|\d{1,2}[./-]\d{1,2}[./-]\d{2,4})`)
	dueDateKeywordRe   = regexp.MustCompile(`(?i)\b(?:vervaldatum|vervaldag|due\s?date|te\s?betalen\s?(?:voor|vóór)|payment\s?due)\b\s*[.:]?\s*(\d{4}-\d{2}-\d{2}|\d{1,2}[./-]\d{1,2}[./-]\d{2,4})`)

	bicKeywordRe = regexp.MustCompile(`(?i)\b(?:BIC|SWIFT)\b\s*[.:]?\s*([A-Z]{6}[A-Z0-9]{2}(?:[A-Z0-9]{3})?)`)

	paymentRefKeywordRe = regexp.MustCompile(`(?i)\b(?:betalingskenmerk|gestructureerde\s?mededeling|payment\s?reference|mededeling)\b\s*[.:]?\s*([A-Za-z0-9+/*-]{4,26})`)

	// pdfLineRe matches a "description qty price vat% total" columnar row in
	// text flow. Amount groups are deliberately loose; ParseAmount decides
	// what they mean.
	pdfLineRe = regexp.MustCompile(`(?m)^[ \t]*(.*?\S)[ \t]+(\d+(?:[.,]\d+)?)[ \t]+(\d[\d.,]*)[ \t]+(\d+(?:[.,]\d+)?)[ \t]*%[ \t]+(\d[\d.,]*)[ \t]*$`)
)

var supplierKeywords = []string{"leverancier", "verkoper", "supplier", "afzender", "sold by", "from:"}
var customerKeywords = []string{"klant", "koper", "customer", "bill to", "invoice to", "facturatie aan", "aan:"}

// PDFExtractor turns the text layer of a PDF invoice into a candidate
// invoice record plus mapping provenance. Extraction is best-effort
// throughout: a field that no strategy matches simply stays absent, and an
// all-empty invoice is a valid, non-erroring result. Downstream validation
// is what flags incompleteness.
type PDFExtractor struct {
	log zerolog.Logger
}

func NewPDFExtractor() *PDFExtractor {
	return &PDFExtractor{log: logger.WithComponent("pdf-extractor")}
}

// Extract parses the PDF bytes and runs the field heuristics over its text
// layer. The only error condition is an unreadable document.
func (e *PDFExtractor) Extract(data []byte, filename string) (*models.Invoice, []models.MappingField, error) {
	const op = "PDFExtractor.Extract"

	text, err := PDFText(data)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}

	invoice, fields := e.FromText(text, filename)
	return invoice, fields, nil
}

// FromText runs the extraction heuristics over already-extracted text. Split
// out from Extract so the heuristics are testable without fabricating PDF
// documents.
func (e *PDFExtractor) FromText(text, filename string) (*models.Invoice, []models.MappingField) {
	invoice := &models.Invoice{
		SourceType: models.SourcePDF,
		SourceFile: filename,
		Lines:      []models.InvoiceLine{},
	}
	fields := []models.MappingField{}

	record := func(path, value string, confidence float64, raw string) {
		if raw == value {
			raw = ""
		}
		fields = append(fields, models.MappingField{
			Path:       path,
			Value:      value,
			Source:     models.SourcePDFText,
			Confidence: confidence,
			Raw:        raw,
		})
	}

	if hit, name, ok := firstHit(text, e.invoiceNumberStrategies()); ok {
		invoice.InvoiceNumber = hit.value
		record("invoiceNumber", hit.value, hit.confidence, hit.raw)
		e.log.Debug().Str("strategy", name).Str("value", hit.value).Msg("Invoice number extracted")
	}

	if hit, _, ok := firstHit(text, e.issueDateStrategies()); ok {
		if t, parsed := ParseDate(hit.value); parsed {
			invoice.IssueDate = &t
			record("issueDate", t.Format("2006-01-02"), hit.confidence, hit.raw)
		}
	}

	if hit, _, ok := firstHit(text, e.dueDateStrategies()); ok {
		if t, parsed := ParseDate(hit.value); parsed {
			invoice.DueDate = &t
			record("dueDate", t.Format("2006-01-02"), hit.confidence, hit.raw)
		}
	}

	if m := currencyTokenPattern.FindString(text); m != "" {
		confidence := float64(models.ConfidenceCurrencyExplicit)
		if m == "EUR" {
			// EUR is also the normalization default, so finding it proves
			// little about the document.
			confidence = models.ConfidenceCurrencyDefault
		}
		invoice.Currency = m
		record("currency", m, confidence, "")
	}

	if hit, _, ok := firstHit(text, e.vatNumberStrategies()); ok {
		invoice.Supplier.VATNumber = hit.value
		record("supplier.vatNumber", hit.value, hit.confidence, hit.raw)
	}

	if m := ibanPattern.FindString(text); m != "" {
		iban := compactIBAN(m)
		invoice.IBAN = iban
		record("iban", iban, models.ConfidenceIBAN, m)
	}

	if m := bicKeywordRe.FindStringSubmatch(text); len(m) > 1 {
		invoice.BIC = strings.ToUpper(m[1])
		record("bic", invoice.BIC, models.ConfidenceKeywordMatch, m[0])
	}

	if m := paymentRefKeywordRe.FindStringSubmatch(text); len(m) > 1 {
		invoice.PaymentReference = m[1]
		record("paymentReference", m[1], models.ConfidenceKeywordMatch, m[0])
	}

	e.extractParty(text, supplierKeywords, "supplier", &invoice.Supplier, record)
	e.extractParty(text, customerKeywords, "customer", &invoice.Customer, record)

	invoice.Lines = e.extractLines(text, record)

	invoice.Confidence = overallConfidence(fields)

	e.log.Info().
		Str("file", filename).
		Int("mapping_fields", len(fields)).
		Int("lines", len(invoice.Lines)).
		Float64("confidence", invoice.Confidence).
		Msg("PDF extraction completed")

	return invoice, fields
}

func (e *PDFExtractor) invoiceNumberStrategies() []textStrategy {
	return []textStrategy{
		keywordCapture("invoice-number-keyword", invoiceNumberKeywordRe, models.ConfidenceKeywordMatch),
		keywordCapture("invoice-number-bare", invoiceNumberBareRe, models.ConfidenceFallbackMatch),
	}
}

func (e *PDFExtractor) issueDateStrategies() []textStrategy {
	return []textStrategy{
		keywordCapture("issue-date-keyword", issueDateKeywordRe, models.ConfidenceKeywordMatch),
		{
			// Any date-shaped token anywhere in the text. Weak, but a lone
			// date on an invoice is usually the issue date.
			name: "issue-date-first-token",
			apply: func(text string) (strategyHit, bool) {
				m := dateTokenPattern.FindString(text)
				if m == "" {
					return strategyHit{}, false
				}
				return strategyHit{value: m, confidence: models.ConfidenceFallbackMatch, raw: m}, true
			},
		},
	}
}

func (e *PDFExtractor) dueDateStrategies() []textStrategy {
	// No positional fallback here: the first date in the text is far more
	// likely the issue date than the due date.
	return []textStrategy{
		keywordCapture("due-date-keyword", dueDateKeywordRe, models.ConfidenceKeywordMatch),
	}
}

func (e *PDFExtractor) vatNumberStrategies() []textStrategy {
	compacting := func(name string, re *regexp.Regexp) textStrategy {
		return textStrategy{
			name: name,
			apply: func(text string) (strategyHit, bool) {
				m := re.FindString(text)
				if m == "" {
					return strategyHit{}, false
				}
				return strategyHit{value: compactVAT(m), confidence: models.ConfidenceVATNumber, raw: m}, true
			},
		}
	}
	return []textStrategy{
		compacting("vat-be", vatBEPattern),
		compacting("vat-nl", vatNLPattern),
		compacting("vat-fr", vatFRPattern),
		{
			name: "vat-keyword",
			apply: func(text string) (strategyHit, bool) {
				m := vatKeywordPattern.FindStringSubmatch(text)
				if len(m) < 2 {
					return strategyHit{}, false
				}
				return strategyHit{value: compactVAT(m[1]), confidence: models.ConfidenceVATNumber, raw: m[0]}, true
			},
		},
	}
}

// extractParty scans a window of lines after a party keyword for a name,
// postal code, city and country.
func (e *PDFExtractor) extractParty(text string, keywords []string, pathPrefix string, party *models.Party, record func(string, string, float64, string)) {
	lines := strings.Split(text, "\n")

	window, after := partyWindow(lines, keywords)
	if window == nil {
		return
	}

	if name := partyName(after, window); name != "" {
		party.Name = name
		record(pathPrefix+".name", name, models.ConfidencePartyName, "")
	}

	for _, line := range window {
		if m := postalCityPattern.FindStringSubmatch(line); len(m) > 2 {
			postal := strings.TrimSpace(m[1])
			city := strings.TrimSpace(m[2])
			if party.Address.PostalCode == "" {
				party.Address.PostalCode = postal
				record(pathPrefix+".address.postalCode", postal, models.ConfidenceAddress, line)
			}
			if party.Address.City == "" {
				party.Address.City = city
				record(pathPrefix+".address.city", city, models.ConfidenceAddress, line)
			}
		}
		for _, token := range strings.Fields(line) {
			if code, ok := countryCodeForName(token); ok && party.Address.CountryCode == "" {
				party.Address.CountryCode = code
				record(pathPrefix+".address.countryCode", code, models.ConfidenceKeywordMatch, token)
			}
		}
	}
}

// partyWindow finds the first line containing any keyword and returns the
// following few lines plus whatever trails the keyword on its own line.
func partyWindow(lines []string, keywords []string) ([]string, string) {
	for i, line := range lines {
		lower := strings.ToLower(line)
		for _, kw := range keywords {
			idx := strings.Index(lower, kw)
			if idx < 0 {
				continue
			}
			after := strings.Trim(strings.TrimSpace(line[idx+len(kw):]), ":.- ")
			end := i + 6
			if end > len(lines) {
				end = len(lines)
			}
			return lines[i+1 : end], after
		}
	}
	return nil, ""
}

// partyName prefers text on the keyword line itself, then the first
// non-empty line below it.
func partyName(after string, window []string) string {
	if after != "" {
		return after
	}
	for _, line := range window {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

func (e *PDFExtractor) extractLines(text string, record func(string, string, float64, string)) []models.InvoiceLine {
	matches := pdfLineRe.FindAllStringSubmatch(text, MaxPDFLines)
	lines := make([]models.InvoiceLine, 0, len(matches))

	for _, m := range matches {
		description := strings.TrimSpace(m[1])
		qty, qtyOK := ParseAmount(m[2])
		price, priceOK := ParseAmount(m[3])
		rate, rateOK := ParseAmount(m[4])
		total, totalOK := ParseAmount(m[5])
		if !qtyOK || !priceOK || !rateOK || !totalOK {
			continue
		}

		i := len(lines)
		line := models.InvoiceLine{
			Description: description,
			Quantity:    &qty,
			UnitPrice:   &price,
			VATRate:     &rate,
			LineTotal:   &total,
			Confidence:  models.ConfidenceLinePattern,
			Source:      models.SourcePDFText,
		}
		lines = append(lines, line)

		prefix := fmt.Sprintf("lines[%d]", i)
		record(prefix+".description", description, models.ConfidenceLinePattern, m[0])
		record(prefix+".quantity", m[2], models.ConfidenceLinePattern, "")
		record(prefix+".unitPrice", strconv.FormatFloat(price, 'f', -1, 64), models.ConfidenceLinePattern, m[3])
		record(prefix+".vatRate", strconv.FormatFloat(rate, 'f', -1, 64), models.ConfidenceLinePattern, m[4])
		record(prefix+".lineTotal", strconv.FormatFloat(total, 'f', -1, 64), models.ConfidenceLinePattern, m[5])
	}

	return lines
}

// overallConfidence is the mean confidence across all mapping fields.
func overallConfidence(fields []models.MappingField) float64 {
	if len(fields) == 0 {
		return 0
	}
	var sum float64
	for _, f := range fields {
		sum += f.Confidence
	}
	return sum / float64(len(fields))
}
