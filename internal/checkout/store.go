package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/redis/go-redis/v9"
)

// Key formats, one session per user per flow:
//
//	checkout:{user_id}          -> order checkout State JSON
//	preorder-checkout:{user_id} -> pre-order checkout State JSON
const (
	KeyOrderCheckout    = "checkout:%s"
	KeyPreorderCheckout = "preorder-checkout:%s"
)

var stateTTL = 24 * time.Hour

// Store persists checkout session state between wizard steps. The store
// does not interpret the state; lifecycle rules live in the Wizard.
type Store interface {
	Get(ctx context.Context, userID uuid.UUID) (*State, error)
	Save(ctx context.Context, userID uuid.UUID, state *State) error
}

type RedisStore struct {
	rdb       *redis.Client
	keyFormat string
}

func NewRedisStore(rdb *redis.Client, keyFormat string) *RedisStore {
	return &RedisStore{rdb: rdb, keyFormat: keyFormat}
}

// Get returns a zero-valued State when no session exists yet; the wizard's
// step preconditions decide whether that is acceptable.
func (s *RedisStore) Get(ctx context.Context, userID uuid.UUID) (*State, error) {
	raw, err := s.rdb.Get(ctx, fmt.Sprintf(s.keyFormat, userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return &State{}, nil
		}
		return nil, fmt.Errorf("failed to read checkout state: %w", err)
	}

	var state State
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, fmt.Errorf("failed to decode checkout state: %w", err)
	}
	return &state, nil
}

func (s *RedisStore) Save(ctx context.Context, userID uuid.UUID, state *State) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to encode checkout state: %w", err)
	}
	if err := s.rdb.Set(ctx, fmt.Sprintf(s.keyFormat, userID), raw, stateTTL).Err(); err != nil {
		return fmt.Errorf("failed to save checkout state: %w", err)
	}
	return nil
}
