package extraction

import (
	"context"
	"fmt"
	"log/slog"

	"google.golang.org/genai"
)

// contentGenerator is the slice of *genai.Models the backend depends on.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

type GeminiBackend struct {
	models   contentGenerator
	profiles *Profiles
}

func NewGeminiBackend(ctx context.Context, apiKey string, profiles *Profiles) (*GeminiBackend, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: gemini api key is empty", ErrNotConfigured)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	return &GeminiBackend{models: client.Models, profiles: profiles}, nil
}

func (g *GeminiBackend) Name() string {
	return "gemini"
}

func (g *GeminiBackend) Model() string {
	return g.profiles.Model
}

// SplitTypes expands TypeAll into the configured per-type profiles so every
// GenerateContent request takes its own pacer slot.
func (g *GeminiBackend) SplitTypes(extractionType Type) []Type {
	return g.profiles.Expand(extractionType)
}

func (g *GeminiBackend) Extract(ctx context.Context, chunk string, extractionType Type, ec Context) (Result, error) {
	if extractionType != TypeAll {
		payload, err := g.extractOne(ctx, chunk, extractionType, ec)
		if err != nil {
			return Result{}, err
		}
		return Single(extractionType, payload), nil
	}

	grouped := make(map[Type]Payload)
	for _, t := range g.profiles.Expand(TypeAll) {
		payload, err := g.extractOne(ctx, chunk, t, ec)
		if err != nil {
			return Result{}, fmt.Errorf("failed to extract %s: %w", t, err)
		}
		grouped[t] = payload
	}
	return Grouped(grouped), nil
}

func (g *GeminiBackend) extractOne(ctx context.Context, chunk string, t Type, ec Context) (Payload, error) {
	profile, err := g.profiles.Profile(t)
	if err != nil {
		return nil, err
	}

	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		Temperature:      genai.Ptr(g.profiles.Temperature),
	}
	if g.profiles.SystemPrompt != "" {
		config.SystemInstruction = genai.NewContentFromText(g.profiles.SystemPrompt, genai.RoleUser)
	}

	prompt := profile.Prompt + "\n\nТЕКСТ ЗА АНАЛИЗ:\n" + chunk
	contents := genai.Text(prompt)

	resp, err := g.models.GenerateContent(ctx, g.profiles.Model, contents, config)
	if err != nil {
		return nil, fmt.Errorf("failed to generate content: %w", err)
	}

	rawText := resp.Text()
	slog.Debug("Model response received",
		"transcript_id", ec.TranscriptID,
		"type", string(t),
		"chunk", ec.ChunkIndex,
		"bytes", len(rawText))

	return decodePayload(rawText)
}
