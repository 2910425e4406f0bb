// Package pipeline chains extraction, AI enhancement, normalization,
// validation and UBL serialization into a single conversion run.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"ubltools/internal/config"
	"ubltools/internal/enhance"
	"ubltools/internal/extract"
	"ubltools/internal/logger"
	"ubltools/internal/normalize"
	"ubltools/internal/ubl"
	"ubltools/internal/validate"
	"ubltools/pkg/models"
)

// Result is the full output of one conversion run.
type Result struct {
	Invoice    *models.Invoice         `json:"invoice"`
	Mapping    models.MappingReport    `json:"mapping"`
	Validation models.ValidationReport `json:"validation"`
	XML        string                  `json:"-"`
	AIUsed     bool                    `json:"aiUsed"`
	RunID      string                  `json:"runId"`
	Duration   time.Duration           `json:"-"`
}

// Converter owns the pipeline stages. Construct once, use for any number of
// conversions.
type Converter struct {
	enhancer   enhance.Enhancer
	business   *validate.BusinessValidator
	quality    *validate.QualityValidator
	serializer *ubl.Serializer
	log        zerolog.Logger
}

func New(cfg *config.Config) *Converter {
	return &Converter{
		enhancer:   enhance.NewOpenAIEnhancer(cfg),
		business:   validate.NewBusinessValidator(),
		quality:    validate.NewQualityValidator(),
		serializer: ubl.NewSerializer(),
		log:        logger.WithComponent("pipeline"),
	}
}

// WithEnhancer swaps the AI stage, mainly for tests and the --no-ai flag.
func (c *Converter) WithEnhancer(e enhance.Enhancer) *Converter {
	c.enhancer = e
	return c
}

// Convert runs the document through every stage. Only extraction failures
// abort the run; everything downstream degrades into report findings.
func (c *Converter) Convert(ctx context.Context, data []byte, mimeType, filename string) (*Result, error) {
	const op = "Convert"

	runID := uuid.NewString()
	start := time.Now()
	log := logger.WithRun("pipeline", runID)

	log.Info().
		Str("file", filename).
		Str("mime_type", mimeType).
		Int("size_bytes", len(data)).
		Msg("Starting conversion")

	extractor, err := extract.ForMIMEType(mimeType)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	invoice, fields, err := extractor.Extract(data, filename)
	if err != nil {
		return nil, fmt.Errorf("%s: extraction failed: %w", op, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	invoice, fields, aiUsed := c.enhancer.Enhance(ctx, invoice, fields, data, mimeType)
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	invoice = normalize.Normalize(invoice)

	findings := c.business.Validate(invoice)
	findings = append(findings, c.quality.Validate(invoice, fields)...)
	validation := models.NewValidationReport(findings)
	score := c.quality.Score(invoice, fields, findings)

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	result := &Result{
		Invoice:    invoice,
		Mapping:    buildMappingReport(invoice, fields, score),
		Validation: validation,
		XML:        c.serializer.Serialize(invoice),
		AIUsed:     aiUsed,
		RunID:      runID,
		Duration:   time.Since(start),
	}

	log.Info().
		Str("invoice_number", invoice.InvoiceNumber).
		Bool("ai_used", aiUsed).
		Bool("valid", validation.IsValid).
		Int("errors", len(validation.Errors)).
		Int("warnings", len(validation.Warnings)).
		Str("quality", string(score.Level)).
		Dur("duration", result.Duration).
		Msg("Conversion finished")

	return result, nil
}

// buildMappingReport summarizes field provenance: which required fields are
// still missing and which extracted fields carry low confidence.
func buildMappingReport(inv *models.Invoice, fields []models.MappingField, score models.DataQualityScore) models.MappingReport {
	report := models.MappingReport{
		Fields:          fields,
		MissingRequired: []string{},
		Warnings:        []string{},
		Quality:         score,
	}

	for _, path := range models.CriticalFieldPaths {
		if criticalFieldMissing(inv, path) {
			report.MissingRequired = append(report.MissingRequired, path)
		}
	}
	if len(inv.Lines) == 0 {
		report.MissingRequired = append(report.MissingRequired, "lines")
	}

	for _, f := range fields {
		if f.Confidence < models.GoodConfidence {
			report.Warnings = append(report.Warnings,
				fmt.Sprintf("%s extracted with low confidence (%.2f)", f.Path, f.Confidence))
		}
	}
	return report
}

func criticalFieldMissing(inv *models.Invoice, path string) bool {
	switch path {
	case "invoiceNumber":
		return inv.InvoiceNumber == ""
	case "issueDate":
		return inv.IssueDate == nil
	case "supplier.name":
		return inv.Supplier.Name == ""
	case "customer.name":
		return inv.Customer.Name == ""
	}
	return false
}
