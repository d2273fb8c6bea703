package ai

import (
	"context"
	"fmt"

	genai "github.com/google/generative-ai-go/genai"
)

// EmbedTexts returns one embedding vector per input text, issued as a single
// batch request.
func (gc *GeminiClient) EmbedTexts(ctx context.Context, embeddingModel string, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	if err := gc.rateLimiter.Wait(ctx); err != nil {
		return nil, err
	}

	em := gc.client.EmbeddingModel(embeddingModel)
	batch := em.NewBatch()
	for _, text := range texts {
		batch.AddContent(genai.Text(text))
	}

	resp, err := em.BatchEmbedContents(ctx, batch)
	if err != nil {
		return nil, fmt.Errorf("batch embedding failed: %w", err)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(resp.Embeddings))
	}

	vectors := make([][]float32, len(resp.Embeddings))
	for i, emb := range resp.Embeddings {
		if emb == nil || len(emb.Values) == 0 {
			return nil, fmt.Errorf("no embedding returned for text %d", i)
		}
		vectors[i] = emb.Values
	}
	return vectors, nil
}

// EmbedQuery embeds a single retrieval query.
func (gc *GeminiClient) EmbedQuery(ctx context.Context, embeddingModel, text string) ([]float32, error) {
	vectors, err := gc.EmbedTexts(ctx, embeddingModel, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}
