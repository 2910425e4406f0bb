package ubl

import (
	"encoding/xml"
	"sort"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"ubltools/internal/logger"
	"ubltools/internal/normalize"
	"ubltools/pkg/models"
)

// Fallback defaults. Every structurally required Peppol element is emitted
// even when the source data is absent, so the output is always a well-formed
// (if semantically incomplete) document.
const (
	defaultInvoiceNumber = "UNKNOWN"
	defaultCountryCode   = "BE"
	defaultItemName      = "Item"

	// PaymentMeansCode 30 is "credit transfer".
	paymentMeansCredit = "30"
)

// Serializer maps a normalized invoice onto a UBL document. Serialization is
// total: it never fails and never skips a required element.
type Serializer struct {
	log zerolog.Logger
}

func NewSerializer() *Serializer {
	return &Serializer{log: logger.WithComponent("ubl-serializer")}
}

// Serialize renders the invoice as a UBL 2.1 Invoice XML string.
func (s *Serializer) Serialize(inv *models.Invoice) string {
	doc := s.build(inv)

	out, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		// Cannot happen for this document shape, but a serializer that
		// promises totality still needs an answer.
		s.log.Error().Err(err).Msg("UBL marshalling failed")
		return xml.Header + "<Invoice/>"
	}
	return xml.Header + string(out) + "\n"
}

func (s *Serializer) build(inv *models.Invoice) Document {
	currency := inv.Currency
	if currency == "" {
		currency = normalize.DefaultCurrency
	}

	amount := func(v float64) Amount {
		return Amount{CurrencyID: currency, Value: formatAmount(v)}
	}

	doc := Document{
		Xmlns:    NamespaceInvoice,
		XmlnsCAC: NamespaceCAC,
		XmlnsCBC: NamespaceCBC,

		CustomizationID:      CustomizationID,
		ProfileID:            ProfileID,
		ID:                   orDefault(inv.InvoiceNumber, defaultInvoiceNumber),
		IssueDate:            formatDate(inv.IssueDate),
		InvoiceTypeCode:      InvoiceTypeCode,
		DocumentCurrencyCode: currency,

		AccountingSupplierParty: buildParty(inv.Supplier),
		AccountingCustomerParty: buildParty(inv.Customer),
	}
	if inv.DueDate != nil {
		doc.DueDate = inv.DueDate.Format("2006-01-02")
	}

	doc.PaymentMeans = buildPaymentMeans(inv)

	groups := groupByVATRate(inv.Lines)
	doc.TaxTotal = buildTaxTotal(inv, groups, amount)
	doc.LegalMonetaryTotal = buildMonetaryTotal(inv, amount)
	doc.InvoiceLines = buildLines(inv.Lines, amount)

	s.log.Debug().
		Str("invoice_number", doc.ID).
		Int("lines", len(doc.InvoiceLines)).
		Int("tax_subtotals", len(doc.TaxTotal.TaxSubtotal)).
		Msg("UBL document assembled")

	return doc
}

func buildParty(p models.Party) PartyWrapper {
	party := Party{
		PartyName: PartyName{Name: p.Name},
		PostalAddress: PostalAddress{
			StreetName: p.Address.Street,
			CityName:   p.Address.City,
			PostalZone: p.Address.PostalCode,
			Country: Country{
				IdentificationCode: orDefault(p.Address.CountryCode, defaultCountryCode),
			},
		},
		PartyLegalEntity: PartyLegalEntity{
			RegistrationName: p.Name,
			CompanyID:        p.RegistrationNumber,
		},
	}
	if p.VATNumber != "" {
		party.PartyTaxScheme = &PartyTaxScheme{
			CompanyID: p.VATNumber,
			TaxScheme: TaxScheme{ID: "VAT"},
		}
	}
	return PartyWrapper{Party: party}
}

func buildPaymentMeans(inv *models.Invoice) *PaymentMeans {
	if inv.IBAN == "" && inv.PaymentReference == "" {
		return nil
	}
	means := &PaymentMeans{
		PaymentMeansCode: paymentMeansCredit,
		PaymentID:        inv.PaymentReference,
	}
	if inv.IBAN != "" {
		account := &PayeeFinancialAccount{ID: inv.IBAN}
		if inv.BIC != "" {
			account.FinancialInstitutionBranch = &FinancialInstitutionBranch{ID: inv.BIC}
		}
		means.PayeeFinancialAccount = account
	}
	return means
}

// vatGroup collects the lines sharing one VAT rate.
type vatGroup struct {
	rate     float64
	category string
	taxable  decimal.Decimal
	tax      decimal.Decimal
}

// groupByVATRate buckets lines into one tax group per distinct rate. Lines
// without a rate land in the 0% bucket so no amount escapes the tax totals.
func groupByVATRate(lines []models.InvoiceLine) []vatGroup {
	byRate := map[float64]*vatGroup{}
	for _, line := range lines {
		if line.LineTotal == nil {
			continue
		}
		rate := 0.0
		if line.VATRate != nil {
			rate = models.Round2(*line.VATRate)
		}
		group, ok := byRate[rate]
		if !ok {
			group = &vatGroup{rate: rate, category: normalize.DefaultVATCategory}
			if line.VATCategory != "" {
				group.category = line.VATCategory
			}
			byRate[rate] = group
		}
		group.taxable = group.taxable.Add(models.Dec(*line.LineTotal))
		group.tax = group.tax.Add(models.RateAmount(*line.LineTotal, rate))
	}

	groups := make([]vatGroup, 0, len(byRate))
	for _, g := range byRate {
		groups = append(groups, *g)
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].rate < groups[j].rate })
	return groups
}

func buildTaxTotal(inv *models.Invoice, groups []vatGroup, amount func(float64) Amount) TaxTotal {
	subtotals := make([]TaxSubtotal, 0, len(groups))
	taxSum := decimal.Zero
	for _, g := range groups {
		taxable, _ := g.taxable.Round(2).Float64()
		tax, _ := g.tax.Round(2).Float64()
		taxSum = taxSum.Add(g.tax)
		subtotals = append(subtotals, TaxSubtotal{
			TaxableAmount: amount(taxable),
			TaxAmount:     amount(tax),
			TaxCategory: TaxCategory{
				ID:        g.category,
				Percent:   formatRate(g.rate),
				TaxScheme: TaxScheme{ID: "VAT"},
			},
		})
	}

	taxAmount := 0.0
	switch {
	case inv.VATTotal != nil:
		taxAmount = models.Round2(*inv.VATTotal)
	default:
		taxAmount, _ = taxSum.Round(2).Float64()
	}

	if len(subtotals) == 0 {
		// No VAT groups at all: a zero-valued subtotal keeps the TaxTotal
		// block structurally complete.
		subtotals = append(subtotals, TaxSubtotal{
			TaxableAmount: amount(0),
			TaxAmount:     amount(0),
			TaxCategory: TaxCategory{
				ID:        normalize.DefaultVATCategory,
				Percent:   formatRate(0),
				TaxScheme: TaxScheme{ID: "VAT"},
			},
		})
	}

	return TaxTotal{TaxAmount: amount(taxAmount), TaxSubtotal: subtotals}
}

// buildMonetaryTotal mirrors LineExtensionAmount into TaxExclusiveAmount and
// TaxInclusiveAmount into PayableAmount, as the Peppol profile requires the
// pairs to be numerically identical.
func buildMonetaryTotal(inv *models.Invoice, amount func(float64) Amount) MonetaryTotal {
	lineExtension := 0.0
	if inv.SubtotalExclVAT != nil {
		lineExtension = models.Round2(*inv.SubtotalExclVAT)
	} else {
		lineExtension = normalize.SubtotalFromLines(inv.Lines)
	}

	vat := 0.0
	if inv.VATTotal != nil {
		vat = models.Round2(*inv.VATTotal)
	} else {
		vat = normalize.VATTotalFromLines(inv.Lines)
	}

	inclusive := models.Round2(lineExtension + vat)
	if inv.TotalInclVAT != nil {
		inclusive = models.Round2(*inv.TotalInclVAT)
	}

	return MonetaryTotal{
		LineExtensionAmount: amount(lineExtension),
		TaxExclusiveAmount:  amount(lineExtension),
		TaxInclusiveAmount:  amount(inclusive),
		PayableAmount:       amount(inclusive),
	}
}

func buildLines(lines []models.InvoiceLine, amount func(float64) Amount) []InvoiceLine {
	out := make([]InvoiceLine, 0, len(lines))
	for i, line := range lines {
		quantity := 1.0
		if line.Quantity != nil {
			quantity = *line.Quantity
		}
		lineTotal := 0.0
		if line.LineTotal != nil {
			lineTotal = models.Round2(*line.LineTotal)
		} else if line.UnitPrice != nil {
			lineTotal = models.MulRound2(quantity, *line.UnitPrice)
		}
		price := 0.0
		if line.UnitPrice != nil {
			price = models.Round2(*line.UnitPrice)
		}
		rate := 0.0
		if line.VATRate != nil {
			rate = models.Round2(*line.VATRate)
		}

		out = append(out, InvoiceLine{
			ID:                  strconv.Itoa(i + 1),
			InvoicedQuantity:    Quantity{UnitCode: orDefault(line.UnitCode, normalize.DefaultUnitCode), Value: formatRate(quantity)},
			LineExtensionAmount: amount(lineTotal),
			Item: Item{
				Name: orDefault(line.Description, defaultItemName),
				ClassifiedTaxCategory: TaxCategory{
					ID:        orDefault(line.VATCategory, normalize.DefaultVATCategory),
					Percent:   formatRate(rate),
					TaxScheme: TaxScheme{ID: "VAT"},
				},
			},
			Price: Price{PriceAmount: amount(price)},
		})
	}
	return out
}

// formatAmount renders an amount with exactly two decimals after the shared
// rounding rule.
func formatAmount(v float64) string {
	return models.Dec(models.Round2(v)).StringFixed(2)
}

// formatRate renders a percentage or quantity without trailing zeros
// (21, not 21.00).
func formatRate(v float64) string {
	return strconv.FormatFloat(models.Round2(v), 'f', -1, 64)
}

func formatDate(t *time.Time) string {
	if t == nil || t.IsZero() {
		return time.Now().Format("2006-01-02")
	}
	return t.Format("2006-01-02")
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
