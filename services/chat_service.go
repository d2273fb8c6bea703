package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"edu-ai-assistant/internal/ai"
	"edu-ai-assistant/internal/config"
	"edu-ai-assistant/internal/logger"
	"edu-ai-assistant/models"
)

// ErrNoFileBound is returned by the pdf channel when the conversation id has
// no uploaded file. The model client is never reached in that case.
var ErrNoFileBound = errors.New("no file bound to this conversation")

const serviceSystemPrompt = `You are the customer service assistant of an IT education provider.
Answer questions about courses, campuses and enrollment in a friendly, concise tone.
If you do not know something, say so instead of guessing.`

const pdfSystemPrompt = `You answer questions strictly based on the content of the PDF document
the user has uploaded to this conversation. The relevant excerpts are provided as context.
If the answer is not in the document, say that the document does not cover it.`

type conversationRecorder interface {
	Save(ctx context.Context, channel, chatID string) error
}

type memoryStore interface {
	History(ctx context.Context, chatID string) ([]models.ChatTurn, error)
	Append(ctx context.Context, chatID string, turns ...models.ChatTurn) error
}

type boundFileReader interface {
	Get(ctx context.Context, chatID string) (*models.StoredFile, error)
}

type chunkRetriever interface {
	Search(ctx context.Context, vector []float32, topK int, fileName string) ([]models.ScoredChunk, error)
}

type modelClient interface {
	StreamChat(ctx context.Context, req ai.StreamRequest) (<-chan ai.Fragment, error)
	EmbedQuery(ctx context.Context, embeddingModel, text string) ([]float32, error)
}

// ChatService is the retrieval-augmented chat orchestrator. It holds no
// per-conversation state; everything is looked up fresh per call, keyed by
// the conversation id.
type ChatService struct {
	cfg           *config.Config
	conversations conversationRecorder
	memory        memoryStore
	files         boundFileReader
	retriever     chunkRetriever
	model         modelClient
}

func NewChatService(
	cfg *config.Config,
	conversations conversationRecorder,
	memory memoryStore,
	files boundFileReader,
	retriever chunkRetriever,
	model modelClient,
) *ChatService {
	return &ChatService{
		cfg:           cfg,
		conversations: conversations,
		memory:        memory,
		files:         files,
		retriever:     retriever,
		model:         model,
	}
}

// StreamServiceChat handles the general service channel: memory-scoped,
// no retrieval filter.
func (s *ChatService) StreamServiceChat(ctx context.Context, prompt, chatID string) (<-chan ai.Fragment, error) {
	req := models.ChatRequest{Prompt: prompt, ChatID: chatID}
	return s.stream(ctx, models.ChannelService, req, serviceSystemPrompt)
}

// StreamPDFChat handles the pdf channel. The conversation must have a bound
// file; retrieval is restricted to chunks from that file.
func (s *ChatService) StreamPDFChat(ctx context.Context, prompt, chatID string) (<-chan ai.Fragment, error) {
	file, err := s.files.Get(ctx, chatID)
	if errors.Is(err, ErrFileNotFound) {
		return nil, ErrNoFileBound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve bound file: %w", err)
	}

	req := models.ChatRequest{Prompt: prompt, ChatID: chatID, FileNameFilter: file.Filename}
	return s.stream(ctx, models.ChannelPDF, req, pdfSystemPrompt)
}

func (s *ChatService) stream(ctx context.Context, channel string, req models.ChatRequest, system string) (<-chan ai.Fragment, error) {
	// Audit write before the model call; a failure here never blocks the
	// conversational path.
	if err := s.conversations.Save(ctx, channel, req.ChatID); err != nil {
		logger.Warn("Conversation audit write failed", "channel", channel, "chat_id", req.ChatID, "error", err)
	}

	history, err := s.memory.History(ctx, req.ChatID)
	if err != nil {
		logger.Warn("Failed to load conversation memory", "chat_id", req.ChatID, "error", err)
		history = nil
	}

	var contextChunks []string
	if req.FileNameFilter != "" {
		contextChunks, err = s.retrieve(ctx, req.Prompt, req.FileNameFilter)
		if err != nil {
			return nil, err
		}
	}

	upstream, err := s.model.StreamChat(ctx, ai.StreamRequest{
		System:  system,
		History: history,
		Context: contextChunks,
		Prompt:  req.Prompt,
	})
	if err != nil {
		return nil, err
	}

	return s.forward(ctx, req, upstream), nil
}

func (s *ChatService) retrieve(ctx context.Context, prompt, fileName string) ([]string, error) {
	vector, err := s.model.EmbedQuery(ctx, s.cfg.EmbeddingModel, prompt)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	results, err := s.retriever.Search(ctx, vector, s.cfg.RetrievalTopK, fileName)
	if err != nil {
		return nil, fmt.Errorf("retrieval failed: %w", err)
	}

	chunks := make([]string, 0, len(results))
	for _, result := range results {
		chunks = append(chunks, result.Chunk.Content)
	}
	return chunks, nil
}

// forward relays upstream fragments to the caller and, once the exchange is
// complete, appends both turns to conversation memory. The memory write is
// best-effort; partial output from a failed stream still counts.
func (s *ChatService) forward(ctx context.Context, req models.ChatRequest, upstream <-chan ai.Fragment) <-chan ai.Fragment {
	out := make(chan ai.Fragment)

	go func() {
		defer close(out)

		var reply strings.Builder
	loop:
		for {
			select {
			case fragment, open := <-upstream:
				if !open {
					break loop
				}
				if fragment.Err == nil {
					reply.WriteString(fragment.Text)
				}
				select {
				case out <- fragment:
				case <-ctx.Done():
					break loop
				}
			case <-ctx.Done():
				break loop
			}
		}

		if reply.Len() == 0 {
			return
		}

		now := time.Now()
		err := s.memory.Append(context.WithoutCancel(ctx), req.ChatID,
			models.ChatTurn{Role: models.RoleUser, Content: req.Prompt, Timestamp: now},
			models.ChatTurn{Role: models.RoleAssistant, Content: reply.String(), Timestamp: now},
		)
		if err != nil {
			logger.Warn("Failed to persist conversation turns", "chat_id", req.ChatID, "error", err)
		}
	}()

	return out
}
