package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/xuri/excelize/v2"
)

// PDFText extracts the text layer of a PDF, row by row, page by page. Row
// boundaries become newlines so the columnar line heuristics can work on the
// text flow. Scanned PDFs without a text layer come back empty, not as an
// error: emptiness is a data-quality concern, unreadability is not.
func PDFText(data []byte) (string, error) {
	const op = "PDFText"

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%s: %w: %v", op, ErrInvalidPDF, err)
	}

	var sb strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		rows, err := page.GetTextByRow()
		if err != nil {
			// A single unreadable page does not invalidate the rest.
			continue
		}
		for _, row := range rows {
			for _, word := range row.Content {
				sb.WriteString(word.S)
				sb.WriteString(" ")
			}
			sb.WriteString("\n")
		}
	}

	return sb.String(), nil
}

// XLSXText renders a workbook as plain text, one row per line with cells
// joined by tabs. It exists for the AI enhancer, which wants a textual view
// of the document to embed in its prompt.
func XLSXText(data []byte) (string, error) {
	const op = "XLSXText"

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("%s: %w: %v", op, ErrInvalidWorkbook, err)
	}
	defer f.Close()

	var sb strings.Builder
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			continue
		}
		for _, row := range rows {
			sb.WriteString(strings.Join(row, "\t"))
			sb.WriteString("\n")
		}
	}

	return sb.String(), nil
}
