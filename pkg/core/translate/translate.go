// Package translate provides the request/response text translation client.
package translate

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/genai"
)

// Client translates text into the target language. targetLanguage is a
// display name, not a code. An error or empty result means the caller must
// skip all downstream effects silently; nothing is retried.
type Client interface {
	Translate(ctx context.Context, text, targetLanguage string) (string, error)
}

const defaultModel = "gemini-2.0-flash"

// Gemini is a Client backed by a non-realtime Gemini text endpoint.
type Gemini struct {
	client *genai.Client
	model  string
	log    *slog.Logger
}

// NewGemini creates a translation client. An empty model selects the
// default.
func NewGemini(ctx context.Context, apiKey, model string, logger *slog.Logger) (*Gemini, error) {
	if model == "" {
		model = defaultModel
	}
	if logger == nil {
		logger = slog.Default()
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &Gemini{client: client, model: model, log: logger}, nil
}

// Translate issues a single generation request. The prompt instructs the
// model to return the translated text only, without commentary or fences.
func (g *Gemini) Translate(ctx context.Context, text, targetLanguage string) (string, error) {
	prompt := fmt.Sprintf(
		"Translate the following text into %s. Respond with the translated text only - no commentary, no quotes, no markdown fences.\n\n%s",
		targetLanguage, text)

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), nil)
	if err != nil {
		g.log.Warn("translation request failed", "error", err)
		return "", fmt.Errorf("translate: %w", err)
	}
	return CleanResponse(resp.Text()), nil
}

// CleanResponse strips whitespace and any markdown fence the model emitted
// despite the instruction.
func CleanResponse(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		// Drop an optional language tag on the opening fence.
		if idx := strings.Index(s, "\n"); idx >= 0 {
			s = s[idx+1:]
		}
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
		s = strings.TrimSpace(s)
	}
	return s
}
