package ai

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/time/rate"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"edu-ai-assistant/models"

	genai "github.com/google/generative-ai-go/genai"
)

type GeminiClient struct {
	modelName   string
	breaker     *gobreaker.TwoStepCircuitBreaker
	rateLimiter *rate.Limiter
	client      *genai.Client
	tier        string
}

type RateLimits struct {
	RPM int // Requests per minute
	TPM int // Tokens per minute
	RPD int // Requests per day
}

// StreamRequest carries one chat invocation: the system prompt for the
// channel, the conversation's prior turns, retrieved context chunks and the
// user prompt.
type StreamRequest struct {
	System  string
	History []models.ChatTurn
	Context []string
	Prompt  string
}

// Fragment is one streamed piece of model output. Err is set on the final
// fragment when the upstream stream terminated abnormally.
type Fragment struct {
	Text string
	Err  error
}

func NewGeminiClient(apiKey, modelName, tier string) (*GeminiClient, error) {
	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}

	limits := getRateLimits(tier)

	breaker := gobreaker.NewTwoStepCircuitBreaker(gobreaker.Settings{
		Name:        "GeminiAPI",
		MaxRequests: 5,
		Interval:    10 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Printf("Circuit breaker %s: %s -> %s", name, from, to)
		},
	})

	// RPM limit with some buffer
	rateLimiter := rate.NewLimiter(rate.Limit(float64(limits.RPM)*0.9/60.0), limits.RPM/10)

	return &GeminiClient{
		modelName:   modelName,
		breaker:     breaker,
		rateLimiter: rateLimiter,
		client:      client,
		tier:        tier,
	}, nil
}

func getRateLimits(tier string) RateLimits {
	switch tier {
	case "free":
		return RateLimits{RPM: 10, TPM: 250000, RPD: 250}
	case "tier1":
		return RateLimits{RPM: 1000, TPM: 1000000, RPD: 10000}
	case "tier2":
		return RateLimits{RPM: 2000, TPM: 4000000, RPD: 50000}
	default:
		return RateLimits{RPM: 10, TPM: 250000, RPD: 250}
	}
}

// StreamChat issues a streaming completion and forwards fragments on the
// returned channel as they arrive. The channel is closed when the upstream
// stream finishes, fails, or ctx is cancelled; cancelling ctx aborts the
// upstream call.
func (gc *GeminiClient) StreamChat(ctx context.Context, req StreamRequest) (<-chan Fragment, error) {
	tracer := otel.Tracer("gemini-client")
	ctx, span := tracer.Start(ctx, "gemini.stream_chat")

	span.SetAttributes(
		attribute.Int("gemini.history_turns", len(req.History)),
		attribute.Int("gemini.context_chunks", len(req.Context)),
		attribute.String("gemini.model", gc.modelName),
	)

	if err := gc.rateLimiter.Wait(ctx); err != nil {
		span.SetAttributes(attribute.Bool("gemini.rate_limited", true))
		span.End()
		return nil, err
	}

	// gobreaker.Execute does not fit a long-lived stream; Allow/done gives
	// the same failure accounting with the outcome reported at stream end.
	done, err := gc.breaker.Allow()
	if err != nil {
		span.SetAttributes(attribute.Bool("gemini.circuit_breaker_open", true))
		span.End()
		return nil, fmt.Errorf("model temporarily unavailable: %w", err)
	}

	model := gc.client.GenerativeModel(gc.modelName)
	model.SetTemperature(0.7)
	model.SetMaxOutputTokens(2048)
	if req.System != "" {
		model.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(req.System)},
		}
	}

	cs := model.StartChat()
	cs.History = buildHistory(req.History)

	fullPrompt := buildPromptWithContext(req.Prompt, req.Context)
	iter := cs.SendMessageStream(ctx, genai.Text(fullPrompt))

	out := make(chan Fragment)
	go func() {
		defer close(out)
		defer span.End()

		for {
			resp, err := iter.Next()
			if err == iterator.Done {
				done(true)
				span.SetAttributes(attribute.Bool("gemini.success", true))
				return
			}
			if err != nil {
				done(false)
				span.SetAttributes(
					attribute.Bool("gemini.error", true),
					attribute.String("gemini.error_message", err.Error()),
				)
				select {
				case out <- Fragment{Err: err}:
				case <-ctx.Done():
				}
				return
			}

			text := collectText(resp)
			if text == "" {
				continue
			}
			select {
			case out <- Fragment{Text: text}:
			case <-ctx.Done():
				done(true)
				return
			}
		}
	}()

	return out, nil
}

// buildHistory converts stored turns into the genai chat history format.
func buildHistory(turns []models.ChatTurn) []*genai.Content {
	history := make([]*genai.Content, 0, len(turns))
	for _, turn := range turns {
		role := turn.Role
		if role != models.RoleUser && role != models.RoleAssistant {
			role = models.RoleUser
		}
		history = append(history, &genai.Content{
			Role:  role,
			Parts: []genai.Part{genai.Text(turn.Content)},
		})
	}
	return history
}

// collectText flattens the text parts of a streaming response chunk.
func collectText(resp *genai.GenerateContentResponse) string {
	text := ""
	for _, candidate := range resp.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if t, ok := part.(genai.Text); ok {
				text += string(t)
			}
		}
	}
	return text
}

// buildPromptWithContext prefixes the user prompt with retrieved chunks.
func buildPromptWithContext(prompt string, contextChunks []string) string {
	if len(contextChunks) == 0 {
		return prompt
	}

	contextStr := ""
	for i, chunk := range contextChunks {
		contextStr += fmt.Sprintf("Context %d:\n%s\n\n", i+1, chunk)
	}

	return fmt.Sprintf("Based on the following context:\n\n%s\n\nPlease answer this question: %s", contextStr, prompt)
}

// Close the client
func (gc *GeminiClient) Close() error {
	if gc.client != nil {
		return gc.client.Close()
	}
	return nil
}
