package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"edu-ai-assistant/internal/logger"
	"edu-ai-assistant/models"
)

const memoryKeyPrefix = "chat:memory:"

// ChatMemory stores conversation turns in Redis, one list per conversation
// id. Distinct conversation ids never see each other's history.
type ChatMemory struct {
	rdb      *redis.Client
	maxTurns int
}

func NewChatMemory(rdb *redis.Client, maxTurns int) *ChatMemory {
	if maxTurns <= 0 {
		maxTurns = 20
	}
	return &ChatMemory{rdb: rdb, maxTurns: maxTurns}
}

// History returns the most recent turns for a conversation, oldest first.
func (m *ChatMemory) History(ctx context.Context, chatID string) ([]models.ChatTurn, error) {
	key := memoryKeyPrefix + chatID

	// Two list entries per exchange (user + assistant)
	raw, err := m.rdb.LRange(ctx, key, int64(-2*m.maxTurns), -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load conversation memory: %w", err)
	}

	turns := make([]models.ChatTurn, 0, len(raw))
	for _, item := range raw {
		var turn models.ChatTurn
		if err := json.Unmarshal([]byte(item), &turn); err != nil {
			logger.Warn("Skipping malformed memory entry", "chat_id", chatID, "error", err)
			continue
		}
		turns = append(turns, turn)
	}
	return turns, nil
}

// Append adds turns to the end of a conversation's history.
func (m *ChatMemory) Append(ctx context.Context, chatID string, turns ...models.ChatTurn) error {
	if len(turns) == 0 {
		return nil
	}

	key := memoryKeyPrefix + chatID
	values := make([]interface{}, 0, len(turns))
	for _, turn := range turns {
		data, err := json.Marshal(turn)
		if err != nil {
			return fmt.Errorf("failed to encode turn: %w", err)
		}
		values = append(values, data)
	}

	if err := m.rdb.RPush(ctx, key, values...).Err(); err != nil {
		return fmt.Errorf("failed to append conversation memory: %w", err)
	}
	return nil
}
