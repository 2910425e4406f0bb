package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ubltools/pkg/models"
)

const sampleInvoiceText = `FACTUUR

Leverancier: Acme Consulting BV
Hoofdstraat 12
2000 Antwerpen
België

Klant: Voorbeeld NV
Kerkstraat 5
1000 Brussel
België

Factuurnummer: INV-2024-001
Factuurdatum: 15/03/2024
Vervaldatum: 14/04/2024

IBAN: BE71096123456769
BIC: GKCCBEBB
BTW-nummer: BE0123456789

Omschrijving Aantal Prijs BTW Totaal
Consulting diensten 10 100.00 21% 1000.00
Hosting 1 50.00 21% 50.00

Totaal: 1270.50 EUR
`

func TestPDFFromText(t *testing.T) {
	e := NewPDFExtractor()
	invoice, _ := e.FromText(sampleInvoiceText, "factuur.pdf")

	assert.Equal(t, "INV-2024-001", invoice.InvoiceNumber)

	require.NotNil(t, invoice.IssueDate)
	assert.Equal(t, "2024-03-15", invoice.IssueDate.Format("2006-01-02"))
	require.NotNil(t, invoice.DueDate)
	assert.Equal(t, "2024-04-14", invoice.DueDate.Format("2006-01-02"))

	assert.Equal(t, "EUR", invoice.Currency)
	assert.Equal(t, "BE0123456789", invoice.Supplier.VATNumber)
	assert.Equal(t, "BE71096123456769", invoice.IBAN)
	assert.Equal(t, "GKCCBEBB", invoice.BIC)

	assert.Equal(t, "Acme Consulting BV", invoice.Supplier.Name)
	assert.Equal(t, "2000", invoice.Supplier.Address.PostalCode)
	assert.Equal(t, "Antwerpen", invoice.Supplier.Address.City)
	assert.Equal(t, "BE", invoice.Supplier.Address.CountryCode)

	assert.Equal(t, "Voorbeeld NV", invoice.Customer.Name)
	assert.Equal(t, "Brussel", invoice.Customer.Address.City)

	require.Len(t, invoice.Lines, 2)
	first := invoice.Lines[0]
	assert.Equal(t, "Consulting diensten", first.Description)
	require.NotNil(t, first.Quantity)
	assert.Equal(t, 10.0, *first.Quantity)
	require.NotNil(t, first.UnitPrice)
	assert.Equal(t, 100.0, *first.UnitPrice)
	require.NotNil(t, first.VATRate)
	assert.Equal(t, 21.0, *first.VATRate)
	require.NotNil(t, first.LineTotal)
	assert.Equal(t, 1000.0, *first.LineTotal)
	assert.Equal(t, models.SourcePDFText, first.Source)

	assert.Equal(t, models.SourcePDF, invoice.SourceType)
	assert.Equal(t, "factuur.pdf", invoice.SourceFile)
	assert.Greater(t, invoice.Confidence, 0.0)
}

func TestPDFFromTextProvenance(t *testing.T) {
	e := NewPDFExtractor()
	_, fields := e.FromText(sampleInvoiceText, "factuur.pdf")

	byPath := map[string]models.MappingField{}
	for _, f := range fields {
		byPath[f.Path] = f
	}

	number, ok := byPath["invoiceNumber"]
	require.True(t, ok)
	assert.Equal(t, "INV-2024-001", number.Value)
	assert.Equal(t, models.SourcePDFText, number.Source)
	assert.Equal(t, models.ConfidenceKeywordMatch, number.Confidence)

	date, ok := byPath["issueDate"]
	require.True(t, ok)
	assert.Equal(t, "2024-03-15", date.Value)

	// Line fields carry the looser line-pattern confidence.
	desc, ok := byPath["lines[0].description"]
	require.True(t, ok)
	assert.Equal(t, models.ConfidenceLinePattern, desc.Confidence)
}

func TestPDFIBANStopsAtLineEnd(t *testing.T) {
	e := NewPDFExtractor()

	// The label on the next line must not be absorbed as an IBAN group.
	invoice, _ := e.FromText("IBAN: BE71096123456769\nBIC: GKCCBEBB\n", "x.pdf")
	assert.Equal(t, "BE71096123456769", invoice.IBAN)
	assert.Equal(t, "GKCCBEBB", invoice.BIC)

	// Grouped spacing within the line is still compacted.
	invoice, _ = e.FromText("IBAN: BE71 0961 2345 6769\nBTW: BE0123456789\n", "x.pdf")
	assert.Equal(t, "BE71096123456769", invoice.IBAN)
}

func TestPDFFromTextEmpty(t *testing.T) {
	e := NewPDFExtractor()
	invoice, fields := e.FromText("", "empty.pdf")

	assert.Empty(t, invoice.InvoiceNumber)
	assert.Nil(t, invoice.IssueDate)
	assert.Empty(t, invoice.Lines)
	assert.Empty(t, fields)
	assert.Zero(t, invoice.Confidence)
}

func TestPDFFromTextBareInvoiceNumberFallback(t *testing.T) {
	e := NewPDFExtractor()
	invoice, fields := e.FromText("Betreft INV-20240001 van 15/03/2024", "x.pdf")

	assert.Equal(t, "INV-20240001", invoice.InvoiceNumber)
	for _, f := range fields {
		if f.Path == "invoiceNumber" {
			assert.Equal(t, models.ConfidenceFallbackMatch, f.Confidence)
		}
	}

	// Without a date keyword the first date token is used at low confidence.
	require.NotNil(t, invoice.IssueDate)
	assert.Equal(t, "2024-03-15", invoice.IssueDate.Format("2006-01-02"))
}
