package models

// Extraction confidence vocabulary shared by the extractors, the AI enhancer
// and the data-quality validator. Keeping the thresholds next to the values
// the extractors assign prevents the quality scoring from drifting out of
// sync with what extraction actually produces.
const (
	// ConfidenceKeywordMatch is assigned when a field is found adjacent to a
	// recognized keyword ("Factuurnummer:", "Invoice date", ...).
	ConfidenceKeywordMatch = 0.8

	// ConfidenceFallbackMatch is assigned when a field is taken from the
	// first token anywhere in the text that merely looks like the field.
	ConfidenceFallbackMatch = 0.5

	// ConfidenceCurrencyExplicit applies to a non-EUR currency token found in
	// the text; ConfidenceCurrencyDefault applies to EUR, which is also the
	// normalization default and therefore a weaker signal that the currency
	// was actually extracted rather than assumed.
	ConfidenceCurrencyExplicit = 0.9
	ConfidenceCurrencyDefault  = 0.5

	// ConfidenceVATNumber and ConfidenceIBAN cover identifier patterns that
	// are hard to match by accident.
	ConfidenceVATNumber = 0.9
	ConfidenceIBAN      = 0.9

	// ConfidenceAddress covers postal-code/city/country heuristics near a
	// party keyword window; ConfidencePartyName covers the name itself.
	ConfidenceAddress   = 0.7
	ConfidencePartyName = 0.75

	// ConfidenceLinePattern covers invoice lines matched out of PDF text flow
	// by the columnar line regex.
	ConfidenceLinePattern = 0.6

	// Spreadsheet cells are addressed, not pattern-matched, so they score
	// higher: critical header cells (number, dates, totals) highest, party
	// names next, ordinary line cells lowest.
	ConfidenceCellCritical = 0.9
	ConfidenceCellParty    = 0.8
	ConfidenceCellNormal   = 0.7

	// ConfidenceAI is assigned to every field the AI enhancer contributes.
	ConfidenceAI = 0.9
)

// Confidence floors used by the data-quality validator.
const (
	// MinConfidenceIdentifier is the floor for invoice numbers and party
	// names before a low-confidence warning fires.
	MinConfidenceIdentifier = 0.5

	// MinConfidenceDate is the floor for the issue date.
	MinConfidenceDate = 0.6

	// MinConfidenceLine is the floor below which extracted lines are counted
	// into the aggregate low-confidence-lines warning.
	MinConfidenceLine = 0.4

	// GoodConfidence is the level above which a critical field costs nothing
	// in the quality score.
	GoodConfidence = 0.7
)
