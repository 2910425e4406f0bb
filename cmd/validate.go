package cmd

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"ubltools/internal/config"
	"ubltools/internal/logger"
	"ubltools/internal/pipeline"
	"ubltools/pkg/models"
)

var validateCmd = &cobra.Command{
	Use:   "validate [invoice-file]",
	Short: "Validate an invoice and report findings without emitting XML",
	Long: `Validate runs the pipeline up to and including the validation stage
and prints the validation report and data quality score as JSON.

The exit code is 0 when the invoice passes all error-level checks and 1
when it does not; warnings never affect the exit code.`,
	Example: `  # Validate and inspect findings
  ubltools validate invoice.pdf

  # Use in scripts: exit code reflects validity
  ubltools validate invoice.xlsx && echo OK`,
	Args: cobra.ExactArgs(1),
	RunE: runValidate,
}

type validateOutput struct {
	Validation models.ValidationReport `json:"validation"`
	Quality    models.DataQualityScore `json:"quality"`
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringP("output", "o", "", "Output file path (default: stdout)")
	validateCmd.Flags().Bool("no-ai", false, "Disable the AI enhancement stage")
	validateCmd.Flags().Int("timeout", 120, "Processing timeout in seconds")
}

func runValidate(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("validate")

	outputPath, _ := cmd.Flags().GetString("output")
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

	out := validateOutput{
		Validation: result.Validation,
		Quality:    result.Mapping.Quality,
	}
	if err := writeJSON(outputPath, out, log); err != nil {
		return err
	}

	if !result.Validation.IsValid {
		log.Warn().
			Int("errors", len(result.Validation.Errors)).
			Msg("Invoice failed validation")
		os.Exit(1)
	}
	return nil
}
