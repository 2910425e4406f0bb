package cmd

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"ubltools/internal/config"
	"ubltools/internal/logger"
	"ubltools/internal/pipeline"
)

var convertCmd = &cobra.Command{
	Use:   "convert [invoice-file]",
	Short: "Convert a PDF or XLSX invoice to Peppol UBL XML",
	Long: `Convert runs the full pipeline on a single invoice document:
extraction, optional AI enhancement, normalization, validation and UBL
serialization.

The UBL XML is always produced, even for incomplete invoices; missing
required elements get defensive defaults. Validation findings are
available through the --report flag.

Set OPENAI_API_KEY to enable the AI enhancement stage.`,
	Example: `  # Convert to stdout
  ubltools convert invoice.pdf

  # Write the XML to a file and the mapping/validation report next to it
  ubltools convert invoice.xlsx -o invoice.xml --report invoice-report.json

  # Skip the AI stage even when an API key is configured
  ubltools convert invoice.pdf --no-ai`,
	Args: cobra.ExactArgs(1),
	RunE: runConvert,
}

func init() {
	rootCmd.AddCommand(convertCmd)

	convertCmd.Flags().StringP("output", "o", "", "Output file path for the UBL XML (default: stdout)")
	convertCmd.Flags().String("report", "", "Write the mapping and validation report as JSON to this path")
	convertCmd.Flags().Bool("no-ai", false, "Disable the AI enhancement stage")
	convertCmd.Flags().Int("timeout", 120, "Processing timeout in seconds")
}

func runConvert(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("convert")

	outputPath, _ := cmd.Flags().GetString("output")
	reportPath, _ := cmd.Flags().GetString("report")
	noAI, _ := cmd.Flags().GetBool("no-ai")
	timeoutSecs, _ := cmd.Flags().GetInt("timeout")

	path := args[0]
	data, mimeType, err := readDocument(path, log)
	if err != nil {
		return err
	}

	cfg := config.Load()
	if noAI {
		cfg.OpenAIAPIKey = ""
	}

	ctx, cancel := runContext(timeoutSecs)
	defer cancel()

	result, err := pipeline.New(cfg).Convert(ctx, data, mimeType, filepath.Base(path))
	if err != nil {
		return err
	}

	if err := writeOutput(outputPath, result.XML, log); err != nil {
		return err
	}
	if reportPath != "" {
		if err := writeJSON(reportPath, result, log); err != nil {
			return err
		}
	}
	return nil
}
