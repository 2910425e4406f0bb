// Package extract converts raw document bytes into a candidate invoice
// record plus a list of mapping provenance entries. Extractors are selected
// by declared MIME type and are independent of each other.
package extract

import (
	"fmt"

	"ubltools/pkg/models"
)

// Extractor is the contract both document extractors implement. Extraction
// never fails on missing fields; the only errors are unreadable documents.
type Extractor interface {
	Extract(data []byte, filename string) (*models.Invoice, []models.MappingField, error)
}

// ForMIMEType selects the extractor for a declared MIME type.
func ForMIMEType(mimeType string) (Extractor, error) {
	switch mimeType {
	case models.MIMEPDF:
		return NewPDFExtractor(), nil
	case models.MIMEXLSX:
		return NewXLSXExtractor(), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, mimeType)
	}
}
