package enhance

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ubltools/pkg/models"
)

func TestMergeAIWins(t *testing.T) {
	inv := &models.Invoice{
		InvoiceNumber: "OLD-1",
		Currency:      "EUR",
		Confidence:    0.6,
	}
	fields := []models.MappingField{
		{Path: "invoiceNumber", Value: "OLD-1", Source: models.SourcePDFText, Confidence: 0.6},
		{Path: "currency", Value: "EUR", Source: models.SourcePDFText, Confidence: 0.5},
	}

	merged, mergedFields := Merge(inv, fields, &aiInvoice{InvoiceNumber: "NEW-2"})

	assert.Equal(t, "NEW-2", merged.InvoiceNumber)
	// The heuristic entry for the path is shadowed, not duplicated.
	var numberEntries []models.MappingField
	for _, f := range mergedFields {
		if f.Path == "invoiceNumber" {
			numberEntries = append(numberEntries, f)
		}
	}
	require.Len(t, numberEntries, 1)
	assert.Equal(t, models.SourceAI, numberEntries[0].Source)
	assert.Equal(t, models.ConfidenceAI, numberEntries[0].Confidence)

	// Paths the AI did not touch keep their heuristic entry.
	found := false
	for _, f := range mergedFields {
		if f.Path == "currency" {
			found = true
			assert.Equal(t, models.SourcePDFText, f.Source)
		}
	}
	assert.True(t, found)

	// Untouched invoice fields survive.
	assert.Equal(t, "EUR", merged.Currency)
	// The original is never mutated.
	assert.Equal(t, "OLD-1", inv.InvoiceNumber)
}

func TestMergeParsesDates(t *testing.T) {
	merged, fields := Merge(&models.Invoice{}, nil, &aiInvoice{
		IssueDate: "2024-03-15",
		DueDate:   "not a date",
	})

	require.NotNil(t, merged.IssueDate)
	assert.Equal(t, "2024-03-15", merged.IssueDate.Format("2006-01-02"))
	// Unparseable AI dates are dropped rather than guessed at.
	assert.Nil(t, merged.DueDate)

	require.Len(t, fields, 1)
	assert.Equal(t, "issueDate", fields[0].Path)
}

func TestMergeReplacesLinesWholesale(t *testing.T) {
	inv := &models.Invoice{
		Lines: []models.InvoiceLine{
			{Description: "old line", LineTotal: models.Float(10)},
			{Description: "old line 2", LineTotal: models.Float(20)},
		},
	}

	merged, fields := Merge(inv, nil, &aiInvoice{
		Lines: []aiLine{
			{
				Description: "Consulting services",
				Quantity:    models.Float(10),
				UnitPrice:   models.Float(100),
				VATRate:     models.Float(21),
				LineTotal:   models.Float(1000),
			},
		},
	})

	require.Len(t, merged.Lines, 1)
	line := merged.Lines[0]
	assert.Equal(t, "Consulting services", line.Description)
	assert.Equal(t, models.SourceAI, line.Source)
	assert.Equal(t, models.ConfidenceAI, line.Confidence)

	byPath := map[string]models.MappingField{}
	for _, f := range fields {
		byPath[f.Path] = f
	}
	assert.Contains(t, byPath, "lines[0].description")
	assert.Contains(t, byPath, "lines[0].lineTotal")
	assert.Equal(t, "1000", byPath["lines[0].lineTotal"].Value)

	// The original line slice is untouched.
	assert.Len(t, inv.Lines, 2)
}

func TestMergeDropsStaleLineEntries(t *testing.T) {
	inv := &models.Invoice{
		Lines: []models.InvoiceLine{
			{Description: "old line", LineTotal: models.Float(10)},
			{Description: "old line 2", LineTotal: models.Float(20)},
		},
	}
	fields := []models.MappingField{
		{Path: "lines[0].description", Value: "old line", Source: models.SourcePDFText, Confidence: 0.6},
		{Path: "lines[1].description", Value: "old line 2", Source: models.SourcePDFText, Confidence: 0.6},
		{Path: "lines[1].lineTotal", Value: "20", Source: models.SourcePDFText, Confidence: 0.6},
		{Path: "currency", Value: "EUR", Source: models.SourcePDFText, Confidence: 0.5},
	}

	// The AI returns fewer lines than the heuristics found. Entries for the
	// second heuristic line must not survive into the merged mapping.
	merged, mergedFields := Merge(inv, fields, &aiInvoice{
		Lines: []aiLine{{Description: "Consulting services", LineTotal: models.Float(1000)}},
	})
	require.Len(t, merged.Lines, 1)

	for _, f := range mergedFields {
		if f.Path == "lines[1].description" || f.Path == "lines[1].lineTotal" {
			t.Errorf("stale mapping entry %s survived line replacement", f.Path)
		}
		if f.Path == "lines[0].description" {
			assert.Equal(t, models.SourceAI, f.Source)
		}
	}

	// Non-line heuristic entries are unaffected.
	found := false
	for _, f := range mergedFields {
		if f.Path == "currency" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestMergeKeepsLinesWhenAIReturnsNone(t *testing.T) {
	inv := &models.Invoice{
		Lines: []models.InvoiceLine{{Description: "kept", LineTotal: models.Float(10)}},
	}

	merged, _ := Merge(inv, nil, &aiInvoice{InvoiceNumber: "X-1"})
	require.Len(t, merged.Lines, 1)
	assert.Equal(t, "kept", merged.Lines[0].Description)
}

func TestMergeParties(t *testing.T) {
	inv := &models.Invoice{
		Supplier: models.Party{Name: "Acme?"},
	}

	merged, _ := Merge(inv, nil, &aiInvoice{
		Supplier: aiParty{
			Name:        "Acme Consulting BV",
			CountryCode: "BE",
			VATNumber:   "BE0123456789",
		},
	})

	assert.Equal(t, "Acme Consulting BV", merged.Supplier.Name)
	assert.Equal(t, "BE", merged.Supplier.Address.CountryCode)
	assert.Equal(t, "BE0123456789", merged.Supplier.VATNumber)
}

func TestMergeRaisesConfidenceFloor(t *testing.T) {
	merged, _ := Merge(&models.Invoice{Confidence: 0.4}, nil, &aiInvoice{})
	assert.Equal(t, models.ConfidenceAI, merged.Confidence)

	merged, _ = Merge(&models.Invoice{Confidence: 0.95}, nil, &aiInvoice{})
	assert.Equal(t, 0.95, merged.Confidence)
}

func TestStripCodeFences(t *testing.T) {
	assert.Equal(t, `{"a":1}`, stripCodeFences("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripCodeFences("```\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripCodeFences(`{"a":1}`))
}
