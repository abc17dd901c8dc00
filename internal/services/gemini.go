package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

// maxEmbedChars keeps requests under the embedding model's input limit.
const maxEmbedChars = 40000

// EmbeddingEncoder maps text to a dense vector.
type EmbeddingEncoder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

type geminiEncoder struct {
	client     *genai.Client
	embedModel string
}

func NewGeminiEncoder(ctx context.Context, apiKey, embedModel string, log *zap.Logger) (EmbeddingEncoder, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is empty")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	log.Info("🔑 Gemini embedding client ready", zap.String("model", embedModel))

	return &geminiEncoder{
		client:     client,
		embedModel: embedModel,
	}, nil
}

// Embed implements EmbeddingEncoder.
func (g *geminiEncoder) Embed(ctx context.Context, text string) ([]float32, error) {
	if runes := []rune(text); len(runes) > maxEmbedChars {
		text = string(runes[:maxEmbedChars])
	}

	result, err := g.client.Models.EmbedContent(ctx, g.embedModel, genai.Text(text), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to generate embedding: %w", err)
	}

	if result == nil || len(result.Embeddings) == 0 {
		return nil, fmt.Errorf("empty embedding result")
	}

	return result.Embeddings[0].Values, nil
}
