package conversation

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const (
	chatKeyPrefix      = "chat:"
	aiDisabledSetKey   = "ai_disabled"
	processedKeyPrefix = "processed:"
	processedTTL       = 24 * time.Hour
)

// RedisStore is a Store backed by Redis lists, for deployments where
// the dashboard should survive relay restarts.
type RedisStore struct {
	redis  *redis.Client
	tracer trace.Tracer
}

// NewRedisStore creates a Redis-backed Store.
func NewRedisStore(client *redis.Client) *RedisStore {
	if client == nil {
		panic("conversation: redis client cannot be nil")
	}
	return &RedisStore{
		redis:  client,
		tracer: otel.Tracer("warelay.internal.conversation.store"),
	}
}

func (s *RedisStore) Record(ctx context.Context, sender string, msg Message) (Message, error) {
	if sender == "" {
		return Message{}, ErrSenderRequired
	}
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}

	ctx, span := s.tracer.Start(ctx, "conversation.record")
	defer span.End()

	data, err := json.Marshal(msg)
	if err != nil {
		span.RecordError(err)
		return Message{}, fmt.Errorf("conversation: marshal message: %w", err)
	}
	if err := s.redis.RPush(ctx, chatKey(sender), data).Err(); err != nil {
		span.RecordError(err)
		return Message{}, fmt.Errorf("conversation: append message: %w", err)
	}
	return msg, nil
}

func (s *RedisStore) List(ctx context.Context, sender string) ([]Message, error) {
	if sender == "" {
		return nil, ErrSenderRequired
	}

	ctx, span := s.tracer.Start(ctx, "conversation.list")
	defer span.End()

	raw, err := s.redis.LRange(ctx, chatKey(sender), 0, -1).Result()
	if err != nil {
		span.RecordError(err)
		if err == redis.Nil {
			return []Message{}, nil
		}
		return nil, fmt.Errorf("conversation: list messages: %w", err)
	}

	out := make([]Message, 0, len(raw))
	for _, item := range raw {
		var msg Message
		if err := json.Unmarshal([]byte(item), &msg); err != nil {
			span.RecordError(err)
			continue
		}
		out = append(out, msg)
	}
	return out, nil
}

func (s *RedisStore) Summaries(ctx context.Context) ([]Summary, error) {
	ctx, span := s.tracer.Start(ctx, "conversation.summaries")
	defer span.End()

	keys, err := s.redis.Keys(ctx, chatKeyPrefix+"*").Result()
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("conversation: scan chats: %w", err)
	}

	out := make([]Summary, 0, len(keys))
	for _, key := range keys {
		sender := key[len(chatKeyPrefix):]
		count, err := s.redis.LLen(ctx, key).Result()
		if err != nil || count == 0 {
			continue
		}
		raw, err := s.redis.LRange(ctx, key, -1, -1).Result()
		if err != nil || len(raw) == 0 {
			continue
		}
		var last Message
		if err := json.Unmarshal([]byte(raw[0]), &last); err != nil {
			span.RecordError(err)
			continue
		}
		enabled, _ := s.AIEnabled(ctx, sender)
		out = append(out, Summary{
			Sender:       sender,
			LastText:     last.Text,
			LastActivity: last.Timestamp,
			MessageCount: int(count),
			AIEnabled:    enabled,
		})
	}
	sortSummaries(out)
	return out, nil
}

func (s *RedisStore) SetAIEnabled(ctx context.Context, sender string, enabled bool) error {
	if sender == "" {
		return ErrSenderRequired
	}
	var err error
	if enabled {
		err = s.redis.SRem(ctx, aiDisabledSetKey, sender).Err()
	} else {
		err = s.redis.SAdd(ctx, aiDisabledSetKey, sender).Err()
	}
	if err != nil {
		return fmt.Errorf("conversation: toggle ai: %w", err)
	}
	return nil
}

func (s *RedisStore) AIEnabled(ctx context.Context, sender string) (bool, error) {
	if sender == "" {
		return false, ErrSenderRequired
	}
	disabled, err := s.redis.SIsMember(ctx, aiDisabledSetKey, sender).Result()
	if err != nil {
		return false, fmt.Errorf("conversation: check ai toggle: %w", err)
	}
	return !disabled, nil
}

func (s *RedisStore) Seen(ctx context.Context, providerMessageID string) (bool, error) {
	if providerMessageID == "" {
		return false, nil
	}
	set, err := s.redis.SetNX(ctx, processedKeyPrefix+providerMessageID, 1, processedTTL).Result()
	if err != nil {
		return false, fmt.Errorf("conversation: mark processed: %w", err)
	}
	return !set, nil
}

func chatKey(sender string) string {
	return chatKeyPrefix + sender
}

func sortSummaries(out []Summary) {
	sort.Slice(out, func(i, j int) bool {
		return out[i].LastActivity.After(out[j].LastActivity)
	})
}
