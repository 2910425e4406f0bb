package extract

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"ubltools/pkg/models"
)

// buildWorkbook writes the given cells into an in-memory workbook.
func buildWorkbook(t *testing.T, cells map[string]string) []byte {
	t.Helper()

	f := excelize.NewFile()
	for ref, value := range cells {
		require.NoError(t, f.SetCellStr("Sheet1", ref, value))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func sampleWorkbook(t *testing.T) []byte {
	return buildWorkbook(t, map[string]string{
		"A1": "Factuurnummer", "B1": "2024-0042",
		"A2": "Factuurdatum", "B2": "15/03/2024",
		"A3": "Vervaldatum", "B3": "14/04/2024",
		"A4": "Leverancier", "B4": "Acme Consulting BV",
		"A5": "Klant", "B5": "Voorbeeld NV",

		"A7": "Omschrijving", "B7": "Aantal", "C7": "Prijs", "D7": "BTW%", "E7": "Totaal",
		"A8": "Consulting", "B8": "10", "C8": "100.00", "D8": "21%", "E8": "1000.00",
		"A9": "Hosting", "B9": "1", "C9": "50.00", "D9": "21%", "E9": "50.00",

		"A11": "Subtotaal", "B11": "1050.00",
		"A12": "BTW", "B12": "220.50",
		"A13": "Totaal", "B13": "1270.50",
	})
}

func TestXLSXExtract(t *testing.T) {
	e := NewXLSXExtractor()
	invoice, fields, err := e.Extract(sampleWorkbook(t), "factuur.xlsx")
	require.NoError(t, err)

	assert.Equal(t, "2024-0042", invoice.InvoiceNumber)

	require.NotNil(t, invoice.IssueDate)
	assert.Equal(t, "2024-03-15", invoice.IssueDate.Format("2006-01-02"))
	require.NotNil(t, invoice.DueDate)
	assert.Equal(t, "2024-04-14", invoice.DueDate.Format("2006-01-02"))

	assert.Equal(t, "Acme Consulting BV", invoice.Supplier.Name)
	assert.Equal(t, "Voorbeeld NV", invoice.Customer.Name)

	require.Len(t, invoice.Lines, 2)
	first := invoice.Lines[0]
	assert.Equal(t, "Consulting", first.Description)
	require.NotNil(t, first.Quantity)
	assert.Equal(t, 10.0, *first.Quantity)
	require.NotNil(t, first.UnitPrice)
	assert.Equal(t, 100.0, *first.UnitPrice)
	require.NotNil(t, first.VATRate)
	assert.Equal(t, 21.0, *first.VATRate)
	require.NotNil(t, first.LineTotal)
	assert.Equal(t, 1000.0, *first.LineTotal)

	require.NotNil(t, invoice.SubtotalExclVAT)
	assert.Equal(t, 1050.0, *invoice.SubtotalExclVAT)
	require.NotNil(t, invoice.VATTotal)
	assert.Equal(t, 220.50, *invoice.VATTotal)
	require.NotNil(t, invoice.TotalInclVAT)
	assert.Equal(t, 1270.50, *invoice.TotalInclVAT)

	assert.Equal(t, models.SourceXLSX, invoice.SourceType)
	assert.NotEmpty(t, fields)
}

func TestXLSXExtractCellProvenance(t *testing.T) {
	e := NewXLSXExtractor()
	_, fields, err := e.Extract(sampleWorkbook(t), "factuur.xlsx")
	require.NoError(t, err)

	byPath := map[string]models.MappingField{}
	for _, f := range fields {
		byPath[f.Path] = f
	}

	number, ok := byPath["invoiceNumber"]
	require.True(t, ok)
	assert.Equal(t, "xlsx-cell-B1", number.Source)
	assert.Equal(t, models.ConfidenceCellCritical, number.Confidence)

	supplier, ok := byPath["supplier.name"]
	require.True(t, ok)
	assert.Equal(t, "xlsx-cell-B4", supplier.Source)
	assert.Equal(t, models.ConfidenceCellParty, supplier.Confidence)

	desc, ok := byPath["lines[0].description"]
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(desc.Source, "xlsx-cell-"))
	assert.Equal(t, models.ConfidenceCellNormal, desc.Confidence)
}

func TestXLSXExtractSerialDate(t *testing.T) {
	// 45366 is the Excel serial for 2024-03-15.
	data := buildWorkbook(t, map[string]string{
		"A1": "Factuurdatum", "B1": "45366",
		"A3": "Omschrijving", "B3": "Aantal",
		"A4": "Dienst", "B4": "1",
	})

	e := NewXLSXExtractor()
	invoice, _, err := e.Extract(data, "serial.xlsx")
	require.NoError(t, err)

	require.NotNil(t, invoice.IssueDate)
	assert.Equal(t, "2024-03-15", invoice.IssueDate.Format("2006-01-02"))
}

func TestXLSXExtractSmallSerialRejected(t *testing.T) {
	// Small integers near amounts are quantities, not 19th-century dates.
	data := buildWorkbook(t, map[string]string{
		"A1": "Factuurdatum", "B1": "42",
	})

	e := NewXLSXExtractor()
	invoice, _, err := e.Extract(data, "serial.xlsx")
	require.NoError(t, err)
	assert.Nil(t, invoice.IssueDate)
}

func TestXLSXExtractInclusiveTotalLabel(t *testing.T) {
	// "Totaal incl. BTW" is a grand total, not a VAT total, even though it
	// contains the BTW token.
	data := buildWorkbook(t, map[string]string{
		"A1": "Factuurnummer", "B1": "2024-0042",

		"A3": "Omschrijving", "B3": "Aantal", "C3": "Totaal",
		"A4": "Consulting", "B4": "1", "C4": "1000.00",

		"A6": "BTW 21%", "B6": "210.00",
		"A7": "Totaal incl. BTW", "B7": "1210.00",
	})

	e := NewXLSXExtractor()
	invoice, _, err := e.Extract(data, "incl.xlsx")
	require.NoError(t, err)

	require.NotNil(t, invoice.VATTotal)
	assert.Equal(t, 210.0, *invoice.VATTotal)
	require.NotNil(t, invoice.TotalInclVAT)
	assert.Equal(t, 1210.0, *invoice.TotalInclVAT)
}

func TestXLSXExtractSkipsShiftedLabelRow(t *testing.T) {
	// A totals label drifting into the quantity column with no value cells
	// must not become an empty invoice line.
	data := buildWorkbook(t, map[string]string{
		"A1": "Omschrijving", "B1": "Aantal", "C1": "Totaal",
		"A2": "Consulting", "B2": "1", "C2": "100.00",

		"B4": "Totaal",
	})

	e := NewXLSXExtractor()
	invoice, _, err := e.Extract(data, "shifted.xlsx")
	require.NoError(t, err)

	require.Len(t, invoice.Lines, 1)
	assert.Equal(t, "Consulting", invoice.Lines[0].Description)
}

func TestXLSXExtractNoInvoiceShape(t *testing.T) {
	data := buildWorkbook(t, map[string]string{
		"A1": "Hello", "B1": "World",
	})

	e := NewXLSXExtractor()
	invoice, fields, err := e.Extract(data, "noise.xlsx")
	require.NoError(t, err)

	assert.Empty(t, invoice.InvoiceNumber)
	assert.Empty(t, invoice.Lines)
	assert.Empty(t, fields)
}

func TestXLSXExtractInvalidWorkbook(t *testing.T) {
	e := NewXLSXExtractor()
	_, _, err := e.Extract([]byte("not a workbook"), "broken.xlsx")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidWorkbook)
}

func TestForMIMEType(t *testing.T) {
	pdf, err := ForMIMEType(models.MIMEPDF)
	require.NoError(t, err)
	assert.IsType(t, &PDFExtractor{}, pdf)

	xlsx, err := ForMIMEType(models.MIMEXLSX)
	require.NoError(t, err)
	assert.IsType(t, &XLSXExtractor{}, xlsx)

	_, err = ForMIMEType("text/plain")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}
