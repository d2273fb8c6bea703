package services

import (
	"context"
	"fmt"
	"math"
	"sort"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"edu-ai-assistant/models"
)

// VectorStore persists document chunks with their embeddings in Mongo and
// ranks them by cosine similarity at query time. Candidate sets are small
// (a handful of pages per uploaded file), so scoring happens in process
// after an optional file_name filter narrows the set.
type VectorStore struct {
	chunks *mongo.Collection
}

func NewVectorStore(chunks *mongo.Collection) *VectorStore {
	return &VectorStore{chunks: chunks}
}

// Add writes a batch of chunks in a single insert. An error means nothing
// useful was committed; the caller treats the batch as all-or-nothing.
func (s *VectorStore) Add(ctx context.Context, chunks []models.DocumentChunk) error {
	if len(chunks) == 0 {
		return nil
	}

	docs := make([]interface{}, len(chunks))
	for i, chunk := range chunks {
		docs[i] = chunk
	}

	if _, err := s.chunks.InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("failed to index chunks: %w", err)
	}
	return nil
}

// Search returns the topK chunks most similar to the query vector. When
// fileName is non-empty, only chunks from that file are considered.
func (s *VectorStore) Search(ctx context.Context, vector []float32, topK int, fileName string) ([]models.ScoredChunk, error) {
	filter := bson.M{}
	if fileName != "" {
		filter["file_name"] = fileName
	}

	cursor, err := s.chunks.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to query chunks: %w", err)
	}
	defer cursor.Close(ctx)

	var candidates []models.DocumentChunk
	if err := cursor.All(ctx, &candidates); err != nil {
		return nil, fmt.Errorf("failed to decode chunks: %w", err)
	}

	return rankChunks(candidates, vector, topK), nil
}

// rankChunks scores candidates against the query vector and keeps the topK.
func rankChunks(candidates []models.DocumentChunk, vector []float32, topK int) []models.ScoredChunk {
	if topK <= 0 {
		topK = 4
	}

	scored := make([]models.ScoredChunk, 0, len(candidates))
	for _, chunk := range candidates {
		score := cosineSimilarity(vector, chunk.Vector)
		scored = append(scored, models.ScoredChunk{Chunk: chunk, Score: score})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if len(scored) > topK {
		scored = scored[:topK]
	}
	return scored
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
