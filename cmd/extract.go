package cmd

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"ubltools/internal/extract"
	"ubltools/internal/logger"
	"ubltools/internal/normalize"
	"ubltools/pkg/models"
)

var extractCmd = &cobra.Command{
	Use:   "extract [invoice-file]",
	Short: "Extract structured invoice data without AI or serialization",
	Long: `Extract runs only the heuristic extraction and normalization stages
and prints the resulting invoice with its field-level mapping as JSON.

Use this to inspect what the format-specific extractors see before the
AI enhancement or validation stages run.`,
	Example: `  # Inspect extraction on stdout
  ubltools extract invoice.xlsx

  # Save the extraction result
  ubltools extract invoice.pdf -o extracted.json`,
	Args: cobra.ExactArgs(1),
	RunE: runExtract,
}

// extractOutput pairs the normalized invoice with its field provenance.
type extractOutput struct {
	Invoice *models.Invoice       `json:"invoice"`
	Fields  []models.MappingField `json:"fields"`
}

func init() {
	rootCmd.AddCommand(extractCmd)

	extractCmd.Flags().StringP("output", "o", "", "Output file path (default: stdout)")
}

func runExtract(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("extract")

	outputPath, _ := cmd.Flags().GetString("output")

	path := args[0]
	data, mimeType, err := readDocument(path, log)
	if err != nil {
		return err
	}

	extractor, err := extract.ForMIMEType(mimeType)
	if err != nil {
		return err
	}

	invoice, fields, err := extractor.Extract(data, filepath.Base(path))
	if err != nil {
		return err
	}
	invoice = normalize.Normalize(invoice)

	log.Info().
		Str("invoice_number", invoice.InvoiceNumber).
		Int("lines", len(invoice.Lines)).
		Int("fields", len(fields)).
		Msg("Extraction finished")

	return writeJSON(outputPath, extractOutput{Invoice: invoice, Fields: fields}, log)
}
