package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"ubltools/pkg/models"
)

// readDocument loads the invoice file and derives its MIME type from the
// file extension.
func readDocument(path string, log zerolog.Logger) ([]byte, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, "", fmt.Errorf("invoice file not found: %s", path)
		}
		return nil, "", fmt.Errorf("failed to read invoice file: %w", err)
	}

	var mimeType string
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		mimeType = models.MIMEPDF
	case ".xlsx":
		mimeType = models.MIMEXLSX
	default:
		return nil, "", fmt.Errorf("unsupported file extension %q (expected .pdf or .xlsx)", filepath.Ext(path))
	}

	log.Debug().
		Str("file", path).
		Str("mime_type", mimeType).
		Int("size_bytes", len(data)).
		Msg("Invoice file loaded")

	return data, mimeType, nil
}

// runContext returns a context bounded by the timeout flag and cancelled on
// SIGINT/SIGTERM.
func runContext(timeoutSecs int) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(timeoutSecs)*time.Second)
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	return ctx, func() {
		stop()
		cancel()
	}
}

// writeOutput writes content to the given path, or stdout when the path is
// empty.
func writeOutput(path, content string, log zerolog.Logger) error {
	if path == "" {
		fmt.Print(content)
		return nil
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	log.Info().Str("file", path).Msg("Output written")
	return nil
}

func writeJSON(path string, v any, log zerolog.Logger) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode JSON output: %w", err)
	}
	return writeOutput(path, string(out)+"\n", log)
}
