package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/ledongthuc/pdf"

	"edu-ai-assistant/internal/config"
	"edu-ai-assistant/internal/logger"
	"edu-ai-assistant/models"
)

type chunkEmbedder interface {
	EmbedTexts(ctx context.Context, embeddingModel string, texts []string) ([][]float32, error)
}

type chunkWriter interface {
	Add(ctx context.Context, chunks []models.DocumentChunk) error
}

// DocumentIndexer splits an uploaded PDF into page-scoped chunks, embeds
// them, and submits the whole batch to the vector store. Any parse or
// embedding error aborts the run; nothing partial is committed.
type DocumentIndexer struct {
	embedder       chunkEmbedder
	store          chunkWriter
	embeddingModel string
	pagesPerChunk  int
}

func NewDocumentIndexer(embedder chunkEmbedder, store chunkWriter, cfg *config.Config) *DocumentIndexer {
	pagesPerChunk := cfg.PagesPerChunk
	if pagesPerChunk < 1 {
		pagesPerChunk = 1
	}
	return &DocumentIndexer{
		embedder:       embedder,
		store:          store,
		embeddingModel: cfg.EmbeddingModel,
		pagesPerChunk:  pagesPerChunk,
	}
}

// Index parses the stored PDF at path, chunks it, and writes the batch.
// Every chunk carries the originating fileName so retrieval can be scoped
// to a single file. Returns the number of chunks indexed.
func (ix *DocumentIndexer) Index(ctx context.Context, path, fileName string) (int, error) {
	pages, err := extractPages(path)
	if err != nil {
		return 0, fmt.Errorf("failed to parse PDF: %w", err)
	}

	chunks := buildChunks(pages, fileName, ix.pagesPerChunk)
	if len(chunks) == 0 {
		return 0, fmt.Errorf("no extractable text in PDF")
	}

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Content
	}

	vectors, err := ix.embedder.EmbedTexts(ctx, ix.embeddingModel, texts)
	if err != nil {
		return 0, fmt.Errorf("failed to embed chunks: %w", err)
	}
	for i := range chunks {
		chunks[i].Vector = vectors[i]
	}

	if err := ix.store.Add(ctx, chunks); err != nil {
		return 0, err
	}

	logger.Info("Indexed document", "file_name", fileName, "chunks", len(chunks))
	return len(chunks), nil
}

// extractPages returns the plain text of every page, 1-based order.
func extractPages(path string) ([]string, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	total := reader.NumPage()
	pages := make([]string, 0, total)
	fonts := make(map[string]*pdf.Font)

	for i := 1; i <= total; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		text, err := page.GetPlainText(fonts)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i, err)
		}
		pages = append(pages, text)
	}
	return pages, nil
}

// buildChunks groups pagesPerChunk consecutive pages into one chunk each,
// normalizing extracted text. Pages with no text are skipped; the recorded
// page number is the first page of the group.
func buildChunks(pages []string, fileName string, pagesPerChunk int) []models.DocumentChunk {
	if pagesPerChunk < 1 {
		pagesPerChunk = 1
	}

	var chunks []models.DocumentChunk
	for start := 0; start < len(pages); start += pagesPerChunk {
		end := start + pagesPerChunk
		if end > len(pages) {
			end = len(pages)
		}

		parts := make([]string, 0, end-start)
		for _, page := range pages[start:end] {
			if normalized := normalizeExtractedText(page); normalized != "" {
				parts = append(parts, normalized)
			}
		}
		if len(parts) == 0 {
			continue
		}

		chunks = append(chunks, models.DocumentChunk{
			ChunkID:  uuid.NewString(),
			Content:  strings.Join(parts, "\n"),
			FileName: fileName,
			Page:     start + 1,
		})
	}
	return chunks
}

// normalizeExtractedText collapses the whitespace noise PDF extraction
// leaves behind: runs of spaces, stray line breaks, leading and trailing
// padding.
func normalizeExtractedText(text string) string {
	lines := strings.Split(text, "\n")
	cleaned := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			cleaned = append(cleaned, line)
		}
	}
	return strings.Join(cleaned, "\n")
}
