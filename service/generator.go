package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/sirupsen/logrus"
)

// Generator is the text-completion port the orchestrators depend on.
type Generator interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

var (
	ErrUnsupportedJurisdiction = errors.New("unsupported jurisdiction")
	ErrModelCall               = errors.New("model call failed")
)

const (
	defaultGenerationModel = "gemini-2.0-flash"
	maxRetries             = 3
	initialBackoff         = time.Second
	maxPromptChars         = 30000
)

// GeminiGenerator completes prompts with the Gemini SDK.
type GeminiGenerator struct {
	client      *genai.Client
	model       string
	temperature float32
}

// GeminiGeneratorOption is a functional option for GeminiGenerator
type GeminiGeneratorOption func(*GeminiGenerator)

// GeminiWithModel overrides the generation model
func GeminiWithModel(model string) GeminiGeneratorOption {
	return func(g *GeminiGenerator) {
		g.model = model
	}
}

// GeminiWithTemperature overrides the sampling temperature
func GeminiWithTemperature(t float32) GeminiGeneratorOption {
	return func(g *GeminiGenerator) {
		g.temperature = t
	}
}

// NewGeminiGenerator creates a generator backed by an existing Gemini client
func NewGeminiGenerator(client *genai.Client, opts ...GeminiGeneratorOption) *GeminiGenerator {
	g := &GeminiGenerator{
		client:      client,
		model:       defaultGenerationModel,
		temperature: 0.2,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Complete sends the prompt to Gemini and returns the concatenated text parts.
// Retries transient failures with exponential backoff. Prompts beyond the
// context limit are truncated rather than rejected.
func (g *GeminiGenerator) Complete(ctx context.Context, prompt string) (string, error) {
	if g.client == nil {
		return "", fmt.Errorf("%w: gemini client not set", ErrModelCall)
	}

	if len(prompt) > maxPromptChars {
		logrus.WithField("chars", len(prompt)).Warn("Prompt too long, truncating")
		prompt = prompt[:maxPromptChars] + "\n\n[Content truncated due to length...]"
	}

	model := g.client.GenerativeModel(g.model)
	model.SetTemperature(g.temperature)

	var lastErr error
	backoff := initialBackoff
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return "", fmt.Errorf("%w: %v", ErrModelCall, ctx.Err())
			}
			backoff *= 2
		}

		resp, err := model.GenerateContent(ctx, genai.Text(prompt))
		if err != nil {
			lastErr = err
			if ctx.Err() != nil {
				break
			}
			continue
		}

		text := collectText(resp)
		if text != "" {
			return text, nil
		}
		lastErr = errors.New("model returned empty content")
	}

	return "", fmt.Errorf("%w after %d attempts: %v", ErrModelCall, maxRetries, lastErr)
}

func collectText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	var builder strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				builder.WriteString(string(text))
			}
		}
	}
	return builder.String()
}
