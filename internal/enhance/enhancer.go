// Package enhance runs the optional AI pass over an extracted invoice.
// The stage is best-effort: when no API key is configured, or any call,
// parse, or merge step fails, the heuristic extraction result passes
// through untouched.
package enhance

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"

	"ubltools/internal/config"
	"ubltools/internal/extract"
	"ubltools/internal/logger"
	"ubltools/pkg/models"
)

const maxResponseTokens = 2000

// Enhancer fills gaps in an extracted invoice and corrects misreads using a
// language model.
type Enhancer interface {
	// Enhance returns the (possibly) improved invoice and mapping list, and
	// whether the AI result was applied. It never fails the conversion.
	Enhance(ctx context.Context, inv *models.Invoice, fields []models.MappingField, data []byte, mimeType string) (*models.Invoice, []models.MappingField, bool)
}

// OpenAIEnhancer implements Enhancer against the OpenAI chat API.
type OpenAIEnhancer struct {
	client      *openai.Client
	model       string
	temperature float32
	enabled     bool
	log         zerolog.Logger
}

// NewOpenAIEnhancer builds an enhancer from the runtime configuration. With
// no API key configured the enhancer is a no-op.
func NewOpenAIEnhancer(cfg *config.Config) *OpenAIEnhancer {
	e := &OpenAIEnhancer{
		model:       cfg.OpenAIModel,
		temperature: cfg.OpenAITemperature,
		enabled:     cfg.AIEnabled(),
		log:         logger.WithComponent("ai-enhancer"),
	}
	if e.enabled {
		e.client = openai.NewClient(cfg.OpenAIAPIKey)
	}
	return e
}

func (e *OpenAIEnhancer) Enhance(ctx context.Context, inv *models.Invoice, fields []models.MappingField, data []byte, mimeType string) (*models.Invoice, []models.MappingField, bool) {
	if !e.enabled {
		e.log.Debug().Msg("AI enhancement disabled, passing extraction through")
		return inv, fields, false
	}

	aiInv, err := e.complete(ctx, inv, data, mimeType)
	if err != nil {
		e.log.Warn().Err(err).Msg("AI enhancement failed, keeping heuristic extraction")
		return inv, fields, false
	}

	merged, mergedFields := Merge(inv, fields, aiInv)
	e.log.Info().
		Str("invoice_number", merged.InvoiceNumber).
		Int("lines", len(merged.Lines)).
		Msg("AI enhancement applied")
	return merged, mergedFields, true
}

// complete sends the document to the model and parses the structured reply.
// PDF documents go out as an inline image part first; if the model rejects
// that, a single text-only retry uses the locally extracted text.
func (e *OpenAIEnhancer) complete(ctx context.Context, inv *models.Invoice, data []byte, mimeType string) (*aiInvoice, error) {
	const op = "complete"

	prompt := buildPrompt(inv)

	var lastErr error
	for _, messages := range e.messageVariants(prompt, data, mimeType) {
		resp, err := e.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model:       e.model,
			Temperature: e.temperature,
			MaxTokens:   maxResponseTokens,
			ResponseFormat: &openai.ChatCompletionResponseFormat{
				Type: openai.ChatCompletionResponseFormatTypeJSONObject,
			},
			Messages: messages,
		})
		if err != nil {
			lastErr = err
			e.log.Warn().Err(err).Msg("chat completion failed, trying fallback variant")
			continue
		}
		if len(resp.Choices) == 0 {
			lastErr = fmt.Errorf("no response choices")
			continue
		}

		content := stripCodeFences(resp.Choices[0].Message.Content)
		var ai aiInvoice
		if err := json.Unmarshal([]byte(content), &ai); err != nil {
			lastErr = fmt.Errorf("parse response: %w", err)
			e.log.Warn().Err(err).Str("response", content).Msg("unparseable AI response")
			continue
		}
		return &ai, nil
	}

	return nil, fmt.Errorf("%s: %w", op, lastErr)
}

// messageVariants yields the message sets to try in order. PDFs get a vision
// attempt with the raw document, then a text-only fallback; spreadsheets are
// text-only from the start.
func (e *OpenAIEnhancer) messageVariants(prompt string, data []byte, mimeType string) [][]openai.ChatCompletionMessage {
	system := openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: systemPrompt,
	}

	var variants [][]openai.ChatCompletionMessage
	if mimeType == models.MIMEPDF {
		variants = append(variants, []openai.ChatCompletionMessage{
			system,
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{Type: openai.ChatMessagePartTypeText, Text: prompt},
					{
						Type: openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{
							URL: "data:application/pdf;base64," + base64.StdEncoding.EncodeToString(data),
						},
					},
				},
			},
		})
	}

	text := e.documentText(data, mimeType)
	if text != "" {
		variants = append(variants, []openai.ChatCompletionMessage{
			system,
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt + "\n\nDocument text:\n" + text,
			},
		})
	}
	return variants
}

func (e *OpenAIEnhancer) documentText(data []byte, mimeType string) string {
	var (
		text string
		err  error
	)
	switch mimeType {
	case models.MIMEPDF:
		text, err = extract.PDFText(data)
	case models.MIMEXLSX:
		text, err = extract.XLSXText(data)
	}
	if err != nil {
		e.log.Warn().Err(err).Msg("text fallback extraction failed")
		return ""
	}
	return text
}

const systemPrompt = `You are an expert invoice data extractor. You read invoices in Dutch, French, German and English. Respond with a single JSON object and nothing else. Use null for any field you cannot determine. Never invent values.`

func buildPrompt(inv *models.Invoice) string {
	partial, _ := json.Marshal(inv)
	return fmt.Sprintf(`Extract the invoice data from the attached document.

A heuristic extractor already produced this partial result, which may contain mistakes or gaps:
%s

Return a JSON object with exactly this shape:
{
  "invoiceNumber": "string or null",
  "issueDate": "YYYY-MM-DD or null",
  "dueDate": "YYYY-MM-DD or null",
  "currency": "ISO 4217 code or null",
  "supplier": {"name": "", "street": "", "city": "", "postalCode": "", "countryCode": "", "vatNumber": ""},
  "customer": {"name": "", "street": "", "city": "", "postalCode": "", "countryCode": "", "vatNumber": ""},
  "paymentReference": "string or null",
  "iban": "string or null",
  "bic": "string or null",
  "lines": [{"description": "", "quantity": 0, "unitPrice": 0, "vatRate": 0, "lineTotal": 0}],
  "subtotalExclVat": 0,
  "vatTotal": 0,
  "totalInclVat": 0
}

Rules:
- Dates in ISO format YYYY-MM-DD.
- Amounts as plain numbers with a dot decimal separator, no currency symbols.
- vatRate as a percentage (21, not 0.21).
- VAT numbers without spaces or dots, with their country prefix.`, partial)
}

// stripCodeFences removes a markdown code fence wrapper some models add
// despite the JSON response format.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
