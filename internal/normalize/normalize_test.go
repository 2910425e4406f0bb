package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ubltools/pkg/models"
)

func TestNormalizeDefaults(t *testing.T) {
	in := &models.Invoice{}
	out := Normalize(in)

	assert.Equal(t, "EUR", out.Currency)
	require.NotNil(t, out.SubtotalExclVAT)
	assert.Equal(t, 0.0, *out.SubtotalExclVAT)
	require.NotNil(t, out.TotalInclVAT)
	assert.Equal(t, 0.0, *out.TotalInclVAT)

	// The input is never mutated.
	assert.Empty(t, in.Currency)
	assert.Nil(t, in.SubtotalExclVAT)
}

func TestNormalizeLineDerivation(t *testing.T) {
	in := &models.Invoice{
		Lines: []models.InvoiceLine{
			{
				Description: "Consulting",
				Quantity:    models.Float(10),
				UnitPrice:   models.Float(100),
				VATRate:     models.Float(21),
			},
		},
	}
	out := Normalize(in)

	line := out.Lines[0]
	require.NotNil(t, line.LineTotal)
	assert.Equal(t, 1000.0, *line.LineTotal)
	assert.Equal(t, "C62", line.UnitCode)
	assert.Equal(t, "S", line.VATCategory)

	require.NotNil(t, out.SubtotalExclVAT)
	assert.Equal(t, 1000.0, *out.SubtotalExclVAT)
	require.NotNil(t, out.VATTotal)
	assert.Equal(t, 210.0, *out.VATTotal)
	require.NotNil(t, out.TotalInclVAT)
	assert.Equal(t, 1210.0, *out.TotalInclVAT)
}

func TestNormalizeRoundsHalfAwayFromZero(t *testing.T) {
	// 3 x 19.995 must round to 59.99, not fall to 59.98 through binary
	// float error.
	in := &models.Invoice{
		Lines: []models.InvoiceLine{
			{Quantity: models.Float(3), UnitPrice: models.Float(19.995)},
		},
	}
	out := Normalize(in)

	require.NotNil(t, out.Lines[0].LineTotal)
	assert.Equal(t, 59.99, *out.Lines[0].LineTotal)
}

func TestNormalizeKeepsExplicitValues(t *testing.T) {
	in := &models.Invoice{
		Currency: "usd",
		Lines: []models.InvoiceLine{
			{
				Quantity:  models.Float(2),
				UnitPrice: models.Float(10),
				// Disagrees with quantity x price; normalization must not
				// repair it.
				LineTotal: models.Float(25),
			},
		},
		SubtotalExclVAT: models.Float(999),
	}
	out := Normalize(in)

	assert.Equal(t, "USD", out.Currency)
	assert.Equal(t, 25.0, *out.Lines[0].LineTotal)
	assert.Equal(t, 999.0, *out.SubtotalExclVAT)
}

func TestNormalizeQuantityDefaultsToOne(t *testing.T) {
	in := &models.Invoice{
		Lines: []models.InvoiceLine{
			{UnitPrice: models.Float(50)},
		},
	}
	out := Normalize(in)

	require.NotNil(t, out.Lines[0].Quantity)
	assert.Equal(t, 1.0, *out.Lines[0].Quantity)
	require.NotNil(t, out.Lines[0].LineTotal)
	assert.Equal(t, 50.0, *out.Lines[0].LineTotal)
}

func TestNormalizeIdempotent(t *testing.T) {
	in := &models.Invoice{
		Currency: " eur ",
		IBAN:     "be71 0961 2345 6769",
		Supplier: models.Party{VATNumber: "be 0123.456.789"},
		Lines: []models.InvoiceLine{
			{Quantity: models.Float(3), UnitPrice: models.Float(19.995), VATRate: models.Float(21)},
		},
	}

	once := Normalize(in)
	twice := Normalize(once)
	assert.Equal(t, once, twice)
}

func TestNormalizeVATNumber(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"BE 0123.456.789", "BE0123456789"},
		{"be0123456789", "BE0123456789"},
		// Bare digits get a country prefix inferred from their shape.
		{"0123456789", "BE0123456789"},
		{"123456789B01", "NL123456789B01"},
		{"NL123456789B01", "NL123456789B01"},
		{"FRXX123456789", "FRXX123456789"},
		{"", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeVATNumber(tt.input), "input %q", tt.input)
	}
}

func TestTotalsFromLinesRoundOnce(t *testing.T) {
	// Per-line VAT is 2.09895; the sum 6.29685 is rounded once at the end.
	lines := []models.InvoiceLine{
		{LineTotal: models.Float(9.995), VATRate: models.Float(21)},
		{LineTotal: models.Float(9.995), VATRate: models.Float(21)},
		{LineTotal: models.Float(9.995), VATRate: models.Float(21)},
	}

	assert.Equal(t, 29.99, SubtotalFromLines(lines))
	assert.Equal(t, 6.30, VATTotalFromLines(lines))
}
