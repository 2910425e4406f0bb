package enhance

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"ubltools/internal/extract"
	"ubltools/pkg/models"
)

// aiInvoice is the JSON shape the model is asked to return. Scalar amounts
// are pointers so an absent field is distinguishable from an explicit zero.
type aiInvoice struct {
	InvoiceNumber    string   `json:"invoiceNumber"`
	IssueDate        string   `json:"issueDate"`
	DueDate          string   `json:"dueDate"`
	Currency         string   `json:"currency"`
	Supplier         aiParty  `json:"supplier"`
	Customer         aiParty  `json:"customer"`
	PaymentReference string   `json:"paymentReference"`
	IBAN             string   `json:"iban"`
	BIC              string   `json:"bic"`
	Lines            []aiLine `json:"lines"`
	SubtotalExclVAT  *float64 `json:"subtotalExclVat"`
	VATTotal         *float64 `json:"vatTotal"`
	TotalInclVAT     *float64 `json:"totalInclVat"`
}

type aiParty struct {
	Name        string `json:"name"`
	Street      string `json:"street"`
	City        string `json:"city"`
	PostalCode  string `json:"postalCode"`
	CountryCode string `json:"countryCode"`
	VATNumber   string `json:"vatNumber"`
}

type aiLine struct {
	Description string   `json:"description"`
	Quantity    *float64 `json:"quantity"`
	UnitPrice   *float64 `json:"unitPrice"`
	VATRate     *float64 `json:"vatRate"`
	LineTotal   *float64 `json:"lineTotal"`
}

// Merge folds the AI result into the heuristic extraction. The AI value wins
// wherever it is present; the line array is replaced wholesale when the AI
// returned any lines. The mapping list is rewritten so each path keeps a
// single entry, with the AI entry taking precedence.
func Merge(inv *models.Invoice, fields []models.MappingField, ai *aiInvoice) (*models.Invoice, []models.MappingField) {
	merged := *inv
	merged.Lines = append([]models.InvoiceLine(nil), inv.Lines...)

	rec := &fieldRecorder{}

	mergeString(&merged.InvoiceNumber, ai.InvoiceNumber, "invoiceNumber", rec)
	mergeDate(&merged.IssueDate, ai.IssueDate, "issueDate", rec)
	mergeDate(&merged.DueDate, ai.DueDate, "dueDate", rec)
	mergeString(&merged.Currency, ai.Currency, "currency", rec)
	mergeParty(&merged.Supplier, ai.Supplier, "supplier", rec)
	mergeParty(&merged.Customer, ai.Customer, "customer", rec)
	mergeString(&merged.PaymentReference, ai.PaymentReference, "paymentReference", rec)
	mergeString(&merged.IBAN, ai.IBAN, "iban", rec)
	mergeString(&merged.BIC, ai.BIC, "bic", rec)
	mergeFloat(&merged.SubtotalExclVAT, ai.SubtotalExclVAT, "subtotalExclVat", rec)
	mergeFloat(&merged.VATTotal, ai.VATTotal, "vatTotal", rec)
	mergeFloat(&merged.TotalInclVAT, ai.TotalInclVAT, "totalInclVat", rec)

	linesReplaced := len(ai.Lines) > 0
	if linesReplaced {
		merged.Lines = make([]models.InvoiceLine, 0, len(ai.Lines))
		for i, al := range ai.Lines {
			line := models.InvoiceLine{
				Description: al.Description,
				Quantity:    al.Quantity,
				UnitPrice:   al.UnitPrice,
				VATRate:     al.VATRate,
				LineTotal:   al.LineTotal,
				Confidence:  models.ConfidenceAI,
				Source:      models.SourceAI,
			}
			merged.Lines = append(merged.Lines, line)
			recordLine(rec, i, al)
		}
	}

	merged.Confidence = overallConfidence(&merged)
	return &merged, dedupeFields(fields, rec.fields, linesReplaced)
}

type fieldRecorder struct {
	fields []models.MappingField
}

func (r *fieldRecorder) add(path, value, raw string) {
	r.fields = append(r.fields, models.MappingField{
		Path:       path,
		Value:      value,
		Source:     models.SourceAI,
		Confidence: models.ConfidenceAI,
		Raw:        raw,
	})
}

func mergeString(dst *string, ai, path string, rec *fieldRecorder) {
	if ai == "" {
		return
	}
	*dst = ai
	rec.add(path, ai, "")
}

func mergeDate(dst **time.Time, ai, path string, rec *fieldRecorder) {
	if ai == "" {
		return
	}
	t, ok := extract.ParseDate(ai)
	if !ok {
		return
	}
	*dst = &t
	rec.add(path, t.Format("2006-01-02"), ai)
}

func mergeFloat(dst **float64, ai *float64, path string, rec *fieldRecorder) {
	if ai == nil {
		return
	}
	*dst = ai
	rec.add(path, formatNumber(*ai), "")
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func mergeParty(dst *models.Party, ai aiParty, prefix string, rec *fieldRecorder) {
	mergeString(&dst.Name, ai.Name, prefix+".name", rec)
	mergeString(&dst.Address.Street, ai.Street, prefix+".address.street", rec)
	mergeString(&dst.Address.City, ai.City, prefix+".address.city", rec)
	mergeString(&dst.Address.PostalCode, ai.PostalCode, prefix+".address.postalCode", rec)
	mergeString(&dst.Address.CountryCode, ai.CountryCode, prefix+".address.countryCode", rec)
	mergeString(&dst.VATNumber, ai.VATNumber, prefix+".vatNumber", rec)
}

func recordLine(rec *fieldRecorder, i int, al aiLine) {
	prefix := fmt.Sprintf("lines[%d]", i)
	if al.Description != "" {
		rec.add(prefix+".description", al.Description, "")
	}
	if al.Quantity != nil {
		rec.add(prefix+".quantity", formatNumber(*al.Quantity), "")
	}
	if al.UnitPrice != nil {
		rec.add(prefix+".unitPrice", formatNumber(*al.UnitPrice), "")
	}
	if al.VATRate != nil {
		rec.add(prefix+".vatRate", formatNumber(*al.VATRate), "")
	}
	if al.LineTotal != nil {
		rec.add(prefix+".lineTotal", formatNumber(*al.LineTotal), "")
	}
}

// dedupeFields keeps one mapping entry per path. AI entries shadow the
// heuristic ones; heuristic entries for paths the AI did not touch survive.
// When the line array was replaced wholesale, every heuristic lines[...]
// entry is dropped, so the mapping never references lines that no longer
// exist in the invoice.
func dedupeFields(heuristic, ai []models.MappingField, linesReplaced bool) []models.MappingField {
	aiPaths := make(map[string]bool, len(ai))
	for _, f := range ai {
		aiPaths[f.Path] = true
	}

	out := make([]models.MappingField, 0, len(heuristic)+len(ai))
	seen := map[string]bool{}
	for _, f := range heuristic {
		if aiPaths[f.Path] || seen[f.Path] {
			continue
		}
		if linesReplaced && strings.HasPrefix(f.Path, "lines[") {
			continue
		}
		seen[f.Path] = true
		out = append(out, f)
	}
	return append(out, ai...)
}

func overallConfidence(inv *models.Invoice) float64 {
	// The AI pass reviews the whole document, so the document confidence
	// floor rises to the AI level when it was below it.
	if inv.Confidence < models.ConfidenceAI {
		return models.ConfidenceAI
	}
	return inv.Confidence
}
