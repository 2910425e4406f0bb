package extract

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"

	"ubltools/internal/logger"
	"ubltools/pkg/models"
)

// Excel serial dates count days from 1899-12-30. Serials below 25569
// (1970-01-01) are rejected: small integers in amount-bearing sheets are far
// more likely quantities than dates from before 1970.
const (
	excelSerialEpochYear = 1899
	excelSerialMin       = 25569
)

// headerKeywords marks a row as the line-item header row.
var headerKeywords = []string{
	"factuur", "invoice", "nummer", "datum", "date", "omschrijving",
	"description", "aantal", "qty", "quantity", "prijs", "price",
	"btw", "vat", "totaal", "total",
}

// lineColumnSynonyms maps line-item fields onto Dutch and English header
// spellings. Matching is substring-based on the lowercased header cell.
var lineColumnSynonyms = map[string][]string{
	"description": {"omschrijving", "beschrijving", "description", "artikel", "item", "product", "dienst"},
	"quantity":    {"aantal", "hoeveelheid", "qty", "quantity"},
	"unitPrice":   {"eenheidsprijs", "stukprijs", "prijs", "unit price", "price", "tarief", "rate"},
	"vatRate":     {"btw%", "btw-tarief", "btw", "vat%", "vat rate", "vat", "tax"},
	"lineTotal":   {"totaal", "total", "bedrag", "amount"},
}

// lineColumnOrder fixes the matching order so that the more specific
// synonyms ("btw%") claim a column before the generic ones ("totaal") can.
var lineColumnOrder = []string{"description", "quantity", "unitPrice", "vatRate", "lineTotal"}

// scalarLabelSynonyms maps header-area label cells onto scalar invoice
// fields. The value is taken from the first non-empty cell to the right of
// the label.
var scalarLabelSynonyms = []struct {
	field    string
	synonyms []string
}{
	{"invoiceNumber", []string{"factuurnummer", "factuur nr", "invoice number", "invoice no", "invoice nr"}},
	// dueDate is probed before issueDate: "vervaldatum" contains "datum".
	{"dueDate", []string{"vervaldatum", "due date"}},
	{"issueDate", []string{"factuurdatum", "invoice date", "datum"}},
	{"currency", []string{"valuta", "currency", "munt"}},
	{"supplierName", []string{"leverancier", "verkoper", "supplier", "afzender"}},
	{"customerName", []string{"klant", "koper", "customer"}},
}

// XLSXExtractor reads an Office Open XML workbook into a candidate invoice
// record. The first sheet is treated as the invoice; header-area rows carry
// scalar fields, the synonym-matched header row introduces the line table,
// and the trailing rows are scanned for totals.
type XLSXExtractor struct {
	log zerolog.Logger
}

func NewXLSXExtractor() *XLSXExtractor {
	return &XLSXExtractor{log: logger.WithComponent("xlsx-extractor")}
}

// Extract parses the workbook bytes and maps its cells onto an invoice.
// Unreadable workbooks are the only error; sheets that simply do not look
// like invoices produce a near-empty result for validation to flag.
func (e *XLSXExtractor) Extract(data []byte, filename string) (*models.Invoice, []models.MappingField, error) {
	const op = "XLSXExtractor.Extract"

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w: %v", op, ErrInvalidWorkbook, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil, fmt.Errorf("%s: %w", op, ErrEmptyDocument)
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w: %v", op, ErrInvalidWorkbook, err)
	}

	invoice := &models.Invoice{
		SourceType: models.SourceXLSX,
		SourceFile: filename,
		Lines:      []models.InvoiceLine{},
	}
	fields := []models.MappingField{}

	record := func(row, col int, path, value string, confidence float64, raw string) {
		cell, _ := excelize.CoordinatesToCellName(col+1, row+1)
		if raw == value {
			raw = ""
		}
		fields = append(fields, models.MappingField{
			Path:       path,
			Value:      value,
			Source:     "xlsx-cell-" + cell,
			Confidence: confidence,
			Raw:        raw,
		})
	}

	headerRow, columns := findHeaderRow(rows)

	scalarEnd := len(rows)
	if headerRow >= 0 && headerRow+6 < scalarEnd {
		scalarEnd = headerRow + 6
	}
	e.extractScalars(rows[:scalarEnd], invoice, record)

	if headerRow >= 0 {
		e.extractLineRows(rows, headerRow, columns, invoice, record)
	}

	e.extractTotals(rows, invoice, record)

	invoice.Confidence = overallConfidence(fields)

	e.log.Info().
		Str("file", filename).
		Str("sheet", sheets[0]).
		Int("header_row", headerRow).
		Int("mapping_fields", len(fields)).
		Int("lines", len(invoice.Lines)).
		Msg("Spreadsheet extraction completed")

	return invoice, fields, nil
}

// findHeaderRow scans the first 10 rows for one containing a header keyword
// and maps its columns onto line-item fields.
func findHeaderRow(rows [][]string) (int, map[string]int) {
	limit := len(rows)
	if limit > 10 {
		limit = 10
	}

	for r := 0; r < limit; r++ {
		if !rowHasKeyword(rows[r]) {
			continue
		}
		columns := map[string]int{}
		for c, cell := range rows[r] {
			label := strings.ToLower(strings.TrimSpace(cell))
			if label == "" {
				continue
			}
			for _, field := range lineColumnOrder {
				if _, claimed := columns[field]; claimed {
					continue
				}
				if matchesAny(label, lineColumnSynonyms[field]) {
					columns[field] = c
					break
				}
			}
		}
		if len(columns) >= 2 {
			return r, columns
		}
	}
	return -1, nil
}

func rowHasKeyword(row []string) bool {
	for _, cell := range row {
		if matchesAny(strings.ToLower(strings.TrimSpace(cell)), headerKeywords) {
			return true
		}
	}
	return false
}

func matchesAny(label string, synonyms []string) bool {
	for _, s := range synonyms {
		if strings.Contains(label, s) {
			return true
		}
	}
	return false
}

// extractScalars walks the header area looking for label/value cell pairs.
// The first occurrence of each field wins.
func (e *XLSXExtractor) extractScalars(rows [][]string, invoice *models.Invoice, record func(int, int, string, string, float64, string)) {
	seen := map[string]bool{}

	for r, row := range rows {
		for c, cell := range row {
			label := strings.ToLower(strings.TrimSpace(cell))
			if label == "" {
				continue
			}
			for _, candidate := range scalarLabelSynonyms {
				if seen[candidate.field] || !matchesAny(label, candidate.synonyms) {
					continue
				}
				valueCol, value := nextValue(row, c)
				if value == "" {
					continue
				}
				if e.applyScalar(invoice, candidate.field, value, r, valueCol, record) {
					seen[candidate.field] = true
				}
				break
			}
		}
	}
}

// nextValue returns the first non-empty cell to the right of col.
func nextValue(row []string, col int) (int, string) {
	for c := col + 1; c < len(row); c++ {
		if v := strings.TrimSpace(row[c]); v != "" {
			return c, v
		}
	}
	return -1, ""
}

func (e *XLSXExtractor) applyScalar(invoice *models.Invoice, field, value string, row, col int, record func(int, int, string, string, float64, string)) bool {
	switch field {
	case "invoiceNumber":
		invoice.InvoiceNumber = value
		record(row, col, "invoiceNumber", value, models.ConfidenceCellCritical, "")
	case "issueDate":
		t, ok := parseCellDate(value)
		if !ok {
			return false
		}
		invoice.IssueDate = &t
		record(row, col, "issueDate", t.Format("2006-01-02"), models.ConfidenceCellCritical, value)
	case "dueDate":
		t, ok := parseCellDate(value)
		if !ok {
			return false
		}
		invoice.DueDate = &t
		record(row, col, "dueDate", t.Format("2006-01-02"), models.ConfidenceCellCritical, value)
	case "currency":
		code := strings.ToUpper(value)
		if len(code) != 3 {
			return false
		}
		invoice.Currency = code
		record(row, col, "currency", code, models.ConfidenceCellCritical, value)
	case "supplierName":
		invoice.Supplier.Name = value
		record(row, col, "supplier.name", value, models.ConfidenceCellParty, "")
	case "customerName":
		invoice.Customer.Name = value
		record(row, col, "customer.name", value, models.ConfidenceCellParty, "")
	default:
		return false
	}
	return true
}

// totalsLabels classifies trailing label cells. Subtotal synonyms are probed
// before the generic total ones because "subtotaal" contains "totaal", and
// the VAT bucket excludes inclusive-total labels like "Totaal incl. BTW"
// that would otherwise match on the BTW token.
var totalsLabels = []struct {
	field    string
	synonyms []string
	excludes []string
}{
	{"subtotal", []string{"subtotaal", "subtotal", "excl"}, nil},
	{"vatTotal", []string{"btw", "vat", "tax"}, []string{"incl"}},
	{"total", []string{"totaal", "total", "te betalen", "amount due"}, nil},
}

// extractTotals scans the last 5 rows for subtotal / VAT total / grand total
// label cells with a numeric cell to their right.
func (e *XLSXExtractor) extractTotals(rows [][]string, invoice *models.Invoice, record func(int, int, string, string, float64, string)) {
	start := len(rows) - 5
	if start < 0 {
		start = 0
	}

	for r := start; r < len(rows); r++ {
		for c, cell := range rows[r] {
			label := strings.ToLower(strings.TrimSpace(cell))
			if label == "" {
				continue
			}
			for _, candidate := range totalsLabels {
				if !matchesAny(label, candidate.synonyms) {
					continue
				}
				if len(candidate.excludes) > 0 && matchesAny(label, candidate.excludes) {
					continue
				}
				valueCol, value := nextValue(rows[r], c)
				amount, ok := ParseAmount(value)
				if !ok {
					break
				}
				switch candidate.field {
				case "subtotal":
					if invoice.SubtotalExclVAT == nil {
						invoice.SubtotalExclVAT = &amount
						record(r, valueCol, "subtotalExclVat", value, models.ConfidenceCellCritical, "")
					}
				case "vatTotal":
					if invoice.VATTotal == nil {
						invoice.VATTotal = &amount
						record(r, valueCol, "vatTotal", value, models.ConfidenceCellCritical, "")
					}
				case "total":
					if invoice.TotalInclVAT == nil {
						invoice.TotalInclVAT = &amount
						record(r, valueCol, "totalInclVat", value, models.ConfidenceCellCritical, "")
					}
				}
				break
			}
		}
	}
}

// extractLineRows reads line items below the header row. A row qualifies as
// a line when at least one mapped cell yields a value; rows whose
// description cell is a totals label are left for extractTotals.
func (e *XLSXExtractor) extractLineRows(rows [][]string, headerRow int, columns map[string]int, invoice *models.Invoice, record func(int, int, string, string, float64, string)) {
	for r := headerRow + 1; r < len(rows); r++ {
		row := rows[r]

		description := cellAt(row, columns, "description")
		quantity := cellAt(row, columns, "quantity")
		if description == "" && quantity == "" {
			continue
		}
		if looksLikeTotalsLabel(description) {
			continue
		}

		i := len(invoice.Lines)
		line := models.InvoiceLine{
			Confidence: models.ConfidenceCellNormal,
			Source:     "xlsx",
		}
		prefix := fmt.Sprintf("lines[%d]", i)

		populated := false
		if description != "" {
			line.Description = description
			record(r, columns["description"], prefix+".description", description, models.ConfidenceCellNormal, "")
			populated = true
		}
		if v, ok := ParseAmount(quantity); ok {
			line.Quantity = &v
			record(r, columns["quantity"], prefix+".quantity", quantity, models.ConfidenceCellNormal, "")
			populated = true
		}
		if raw := cellAt(row, columns, "unitPrice"); raw != "" {
			if v, ok := ParseAmount(raw); ok {
				line.UnitPrice = &v
				record(r, columns["unitPrice"], prefix+".unitPrice", raw, models.ConfidenceCellNormal, "")
				populated = true
			}
		}
		if raw := cellAt(row, columns, "vatRate"); raw != "" {
			if v, ok := ParseAmount(strings.TrimSuffix(raw, "%")); ok {
				line.VATRate = &v
				record(r, columns["vatRate"], prefix+".vatRate", raw, models.ConfidenceCellNormal, "")
				populated = true
			}
		}
		if raw := cellAt(row, columns, "lineTotal"); raw != "" {
			if v, ok := ParseAmount(raw); ok {
				line.LineTotal = &v
				record(r, columns["lineTotal"], prefix+".lineTotal", raw, models.ConfidenceCellNormal, "")
				populated = true
			}
		}

		// A label cell drifting into the quantity column must not yield an
		// empty line.
		if !populated {
			continue
		}

		invoice.Lines = append(invoice.Lines, line)
	}
}

func cellAt(row []string, columns map[string]int, field string) string {
	c, ok := columns[field]
	if !ok || c >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[c])
}

func looksLikeTotalsLabel(description string) bool {
	label := strings.ToLower(description)
	for _, candidate := range totalsLabels {
		if matchesAny(label, candidate.synonyms) {
			return true
		}
	}
	return false
}

// parseCellDate accepts both Excel serial-date numbers and textual dates.
func parseCellDate(value string) (time.Time, bool) {
	if serial, err := strconv.ParseFloat(value, 64); err == nil {
		if serial <= excelSerialMin {
			return time.Time{}, false
		}
		epoch := time.Date(excelSerialEpochYear, time.December, 30, 0, 0, 0, 0, time.UTC)
		return epoch.AddDate(0, 0, int(serial)), true
	}
	return ParseDate(value)
}
