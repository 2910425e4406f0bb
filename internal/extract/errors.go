package extract

import "errors"

// Extraction failures are the only fatal error category in the pipeline:
// when the bytes cannot be parsed as the declared type there is no partial
// invoice to hand downstream. Missing fields are never errors; they surface
// later as validation findings.
var (
	// ErrInvalidPDF is returned when the provided data is not a readable PDF
	// document or its text layer cannot be opened.
	ErrInvalidPDF = errors.New("invalid or corrupted PDF document")

	// ErrInvalidWorkbook is returned when the provided data is not a readable
	// Office Open XML spreadsheet.
	ErrInvalidWorkbook = errors.New("invalid or corrupted spreadsheet")

	// ErrEmptyDocument is returned when the document parses but contains no
	// usable content at all (no text layer, no sheets).
	ErrEmptyDocument = errors.New("document contains no extractable content")

	// ErrUnsupportedFormat is returned for MIME types no extractor handles.
	ErrUnsupportedFormat = errors.New("unsupported document format")
)
