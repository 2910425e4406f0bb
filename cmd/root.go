package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"ubltools/internal/logger"
)

var version = "1.0.0"

var rootCmd = &cobra.Command{
	Use:   "ubltools",
	Short: "ubltools - convert PDF and XLSX invoices to Peppol UBL",
	Long: `ubltools converts PDF and XLSX invoices into UBL 2.1 Invoice XML
following the Peppol BIS Billing 3.0 profile.

A conversion extracts the invoice data with format-specific heuristics,
optionally lets an AI model fill gaps and correct misreads, normalizes
the result, validates it against business rules, and serializes it to
UBL. Validation findings never block the XML output; they are reported
alongside it.`,
	Version: version,
}

func Execute() {
	log := logger.WithComponent("cmd")

	if err := rootCmd.Execute(); err != nil {
		log.Error().
			Err(err).
			Msg("Command execution failed")
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
