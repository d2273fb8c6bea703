package services

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const chatIDsKeyPrefix = "chat:ids:"

// ConversationStore records which conversation ids have been used per
// channel. It is an audit sink: writes are idempotent set adds and the
// orchestrator never blocks on a failure here.
type ConversationStore struct {
	rdb *redis.Client
}

func NewConversationStore(rdb *redis.Client) *ConversationStore {
	return &ConversationStore{rdb: rdb}
}

// Save records the (channel, chatID) pair. Adding the same pair twice is a
// no-op.
func (s *ConversationStore) Save(ctx context.Context, channel, chatID string) error {
	if err := s.rdb.SAdd(ctx, chatIDsKeyPrefix+channel, chatID).Err(); err != nil {
		return fmt.Errorf("failed to record conversation id: %w", err)
	}
	return nil
}

// ChatIDs lists every conversation id recorded for a channel.
func (s *ConversationStore) ChatIDs(ctx context.Context, channel string) ([]string, error) {
	ids, err := s.rdb.SMembers(ctx, chatIDsKeyPrefix+channel).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list conversation ids: %w", err)
	}
	return ids, nil
}
