package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"surveybot/internal/model"
)

// ErrStateNotFound is returned when a respondent has no conversation in progress
var ErrStateNotFound = errors.New("conversation state not found")

// StateStore persists conversation state per respondent. Implementations are safe for
// concurrent use; callers serialize access per respondent.
type StateStore interface {
	Get(ctx context.Context, id model.RespondentID) (*model.ConversationState, error)
	Put(ctx context.Context, state *model.ConversationState) error
	Delete(ctx context.Context, id model.RespondentID) error
}

type redisStateStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStateStore creates a Redis-backed state store. Idle conversations expire after ttl.
func NewRedisStateStore(client *redis.Client, ttl time.Duration) StateStore {
	return &redisStateStore{
		client: client,
		ttl:    ttl,
	}
}

func (c *redisStateStore) key(id model.RespondentID) string {
	return fmt.Sprintf("surveybot:state:%d", id)
}

func (c *redisStateStore) Get(ctx context.Context, id model.RespondentID) (*model.ConversationState, error) {
	data, err := c.client.Get(ctx, c.key(id)).Bytes()
	if err == redis.Nil {
		return nil, ErrStateNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get state %d: %w", id, err)
	}
	var state model.ConversationState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("decode state %d: %w", id, err)
	}
	if state.Answers == nil {
		state.Answers = make(model.Answers)
	}
	return &state, nil
}

func (c *redisStateStore) Put(ctx context.Context, state *model.ConversationState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode state %d: %w", state.RespondentID, err)
	}
	return c.client.Set(ctx, c.key(state.RespondentID), data, c.ttl).Err()
}

func (c *redisStateStore) Delete(ctx context.Context, id model.RespondentID) error {
	return c.client.Del(ctx, c.key(id)).Err()
}
