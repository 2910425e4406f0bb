package ubl

import (
	"encoding/xml"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ubltools/pkg/models"
)

// parsedInvoice reads back the serialized document by local element names,
// so tests verify well-formed XML rather than substrings.
type parsedInvoice struct {
	CustomizationID string `xml:"CustomizationID"`
	ProfileID       string `xml:"ProfileID"`
	ID              string `xml:"ID"`
	IssueDate       string `xml:"IssueDate"`
	DueDate         string `xml:"DueDate"`
	InvoiceTypeCode string `xml:"InvoiceTypeCode"`
	CurrencyCode    string `xml:"DocumentCurrencyCode"`

	Supplier struct {
		Name    string `xml:"Party>PartyName>Name"`
		Country string `xml:"Party>PostalAddress>Country>IdentificationCode"`
		VAT     string `xml:"Party>PartyTaxScheme>CompanyID"`
	} `xml:"AccountingSupplierParty"`
	Customer struct {
		Name    string `xml:"Party>PartyName>Name"`
		Country string `xml:"Party>PostalAddress>Country>IdentificationCode"`
	} `xml:"AccountingCustomerParty"`

	PaymentMeans struct {
		Code    string `xml:"PaymentMeansCode"`
		Account string `xml:"PayeeFinancialAccount>ID"`
	} `xml:"PaymentMeans"`

	TaxTotal struct {
		Amount    parsedAmount `xml:"TaxAmount"`
		Subtotals []struct {
			Taxable parsedAmount `xml:"TaxableAmount"`
			Tax     parsedAmount `xml:"TaxAmount"`
			Percent string       `xml:"TaxCategory>Percent"`
			ID      string       `xml:"TaxCategory>ID"`
		} `xml:"TaxSubtotal"`
	} `xml:"TaxTotal"`

	Totals struct {
		LineExtension parsedAmount `xml:"LineExtensionAmount"`
		TaxExclusive  parsedAmount `xml:"TaxExclusiveAmount"`
		TaxInclusive  parsedAmount `xml:"TaxInclusiveAmount"`
		Payable       parsedAmount `xml:"PayableAmount"`
	} `xml:"LegalMonetaryTotal"`

	Lines []struct {
		ID       string       `xml:"ID"`
		Quantity string       `xml:"InvoicedQuantity"`
		Amount   parsedAmount `xml:"LineExtensionAmount"`
		Name     string       `xml:"Item>Name"`
		Price    parsedAmount `xml:"Price>PriceAmount"`
	} `xml:"InvoiceLine"`
}

type parsedAmount struct {
	CurrencyID string `xml:"currencyID,attr"`
	Value      string `xml:",chardata"`
}

func parse(t *testing.T, out string) parsedInvoice {
	t.Helper()
	var doc parsedInvoice
	require.NoError(t, xml.Unmarshal([]byte(out), &doc))
	return doc
}

func TestSerializeCompleteInvoice(t *testing.T) {
	inv := &models.Invoice{
		InvoiceNumber: "2024-0042",
		IssueDate:     models.Date(2024, time.March, 15),
		DueDate:       models.Date(2024, time.April, 14),
		Currency:      "EUR",
		Supplier: models.Party{
			Name:      "Acme Consulting BV",
			VATNumber: "BE0123456789",
			Address:   models.Address{CountryCode: "BE"},
		},
		Customer: models.Party{
			Name:    "Voorbeeld NV",
			Address: models.Address{CountryCode: "BE"},
		},
		IBAN: "BE71096123456769",
		Lines: []models.InvoiceLine{
			{
				Description: "Consulting",
				Quantity:    models.Float(10),
				UnitPrice:   models.Float(100),
				UnitCode:    "C62",
				VATRate:     models.Float(21),
				VATCategory: "S",
				LineTotal:   models.Float(1000),
			},
		},
		SubtotalExclVAT: models.Float(1000),
		VATTotal:        models.Float(210),
		TotalInclVAT:    models.Float(1210),
	}

	out := NewSerializer().Serialize(inv)
	assert.True(t, strings.HasPrefix(out, xml.Header))
	doc := parse(t, out)

	assert.Equal(t, CustomizationID, doc.CustomizationID)
	assert.Equal(t, ProfileID, doc.ProfileID)
	assert.Equal(t, "2024-0042", doc.ID)
	assert.Equal(t, "2024-03-15", doc.IssueDate)
	assert.Equal(t, "2024-04-14", doc.DueDate)
	assert.Equal(t, "380", doc.InvoiceTypeCode)
	assert.Equal(t, "EUR", doc.CurrencyCode)

	assert.Equal(t, "Acme Consulting BV", doc.Supplier.Name)
	assert.Equal(t, "BE0123456789", doc.Supplier.VAT)
	assert.Equal(t, "Voorbeeld NV", doc.Customer.Name)

	assert.Equal(t, "30", doc.PaymentMeans.Code)
	assert.Equal(t, "BE71096123456769", doc.PaymentMeans.Account)

	assert.Equal(t, "210.00", doc.TaxTotal.Amount.Value)
	require.Len(t, doc.TaxTotal.Subtotals, 1)
	sub := doc.TaxTotal.Subtotals[0]
	assert.Equal(t, "1000.00", sub.Taxable.Value)
	assert.Equal(t, "210.00", sub.Tax.Value)
	assert.Equal(t, "21", sub.Percent)
	assert.Equal(t, "S", sub.ID)
	assert.Equal(t, "EUR", sub.Taxable.CurrencyID)

	assert.Equal(t, "1000.00", doc.Totals.LineExtension.Value)
	assert.Equal(t, "1000.00", doc.Totals.TaxExclusive.Value)
	assert.Equal(t, "1210.00", doc.Totals.TaxInclusive.Value)
	assert.Equal(t, "1210.00", doc.Totals.Payable.Value)

	require.Len(t, doc.Lines, 1)
	line := doc.Lines[0]
	assert.Equal(t, "1", line.ID)
	assert.Equal(t, "10", line.Quantity)
	assert.Equal(t, "1000.00", line.Amount.Value)
	assert.Equal(t, "Consulting", line.Name)
	assert.Equal(t, "100.00", line.Price.Value)
}

// An entirely empty invoice still serializes into a structurally complete
// document: placeholder ID, today's date, default country, zero tax block
// and zero monetary totals.
func TestSerializeEmptyInvoice(t *testing.T) {
	out := NewSerializer().Serialize(&models.Invoice{Lines: []models.InvoiceLine{}})
	doc := parse(t, out)

	assert.Equal(t, "UNKNOWN", doc.ID)
	assert.Equal(t, time.Now().Format("2006-01-02"), doc.IssueDate)
	assert.Equal(t, "EUR", doc.CurrencyCode)
	assert.Equal(t, "BE", doc.Supplier.Country)
	assert.Equal(t, "BE", doc.Customer.Country)

	require.Len(t, doc.TaxTotal.Subtotals, 1)
	assert.Equal(t, "0.00", doc.TaxTotal.Amount.Value)
	assert.Equal(t, "0.00", doc.TaxTotal.Subtotals[0].Taxable.Value)
	assert.Equal(t, "0", doc.TaxTotal.Subtotals[0].Percent)

	assert.Equal(t, "0.00", doc.Totals.LineExtension.Value)
	assert.Equal(t, "0.00", doc.Totals.TaxExclusive.Value)
	assert.Equal(t, "0.00", doc.Totals.TaxInclusive.Value)
	assert.Equal(t, "0.00", doc.Totals.Payable.Value)

	assert.Empty(t, doc.Lines)
	assert.Empty(t, doc.PaymentMeans.Code)
}

func TestSerializeGroupsByVATRate(t *testing.T) {
	inv := &models.Invoice{
		Currency: "EUR",
		Lines: []models.InvoiceLine{
			{LineTotal: models.Float(100), VATRate: models.Float(21)},
			{LineTotal: models.Float(200), VATRate: models.Float(21)},
			{LineTotal: models.Float(50), VATRate: models.Float(6)},
			{LineTotal: models.Float(10)}, // no rate lands in the 0% group
		},
	}

	doc := parse(t, NewSerializer().Serialize(inv))

	require.Len(t, doc.TaxTotal.Subtotals, 3)
	// Groups are sorted by ascending rate.
	assert.Equal(t, "0", doc.TaxTotal.Subtotals[0].Percent)
	assert.Equal(t, "10.00", doc.TaxTotal.Subtotals[0].Taxable.Value)
	assert.Equal(t, "0.00", doc.TaxTotal.Subtotals[0].Tax.Value)

	assert.Equal(t, "6", doc.TaxTotal.Subtotals[1].Percent)
	assert.Equal(t, "50.00", doc.TaxTotal.Subtotals[1].Taxable.Value)
	assert.Equal(t, "3.00", doc.TaxTotal.Subtotals[1].Tax.Value)

	assert.Equal(t, "21", doc.TaxTotal.Subtotals[2].Percent)
	assert.Equal(t, "300.00", doc.TaxTotal.Subtotals[2].Taxable.Value)
	assert.Equal(t, "63.00", doc.TaxTotal.Subtotals[2].Tax.Value)

	assert.Equal(t, "66.00", doc.TaxTotal.Amount.Value)
	assert.Equal(t, "360.00", doc.Totals.LineExtension.Value)
	assert.Equal(t, "426.00", doc.Totals.Payable.Value)
}

func TestSerializeDefaultsMissingLineFields(t *testing.T) {
	inv := &models.Invoice{
		Lines: []models.InvoiceLine{
			{UnitPrice: models.Float(50)},
		},
	}

	doc := parse(t, NewSerializer().Serialize(inv))

	require.Len(t, doc.Lines, 1)
	assert.Equal(t, "Item", doc.Lines[0].Name)
	assert.Equal(t, "1", doc.Lines[0].Quantity)
	assert.Equal(t, "50.00", doc.Lines[0].Amount.Value)
}
