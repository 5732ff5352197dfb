package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/oss-listings/claims-backend/internal/forge"
)

const (
	stateKeyPrefix  = "oauth:state:" // oauth:state:{state}
	defaultStateTTL = 10 * time.Minute
)

var ErrInvalidState = errors.New("oauth state is unknown, expired or already used")

// pending is what the connect step leaves for the callback.
type pending struct {
	UserID   string     `json:"user_id"`
	Host     forge.Host `json:"host"`
	Verifier string     `json:"verifier"`
}

// StateStore keeps single-use OAuth state values in redis.
type StateStore struct {
	client redis.Cmdable
	ttl    time.Duration
}

func NewStateStore(client redis.Cmdable, ttl time.Duration) *StateStore {
	if ttl <= 0 {
		ttl = defaultStateTTL
	}
	return &StateStore{client: client, ttl: ttl}
}

func (s *StateStore) Save(ctx context.Context, state string, p pending) error {
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, stateKeyPrefix+state, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save oauth state: %w", err)
	}
	return nil
}

// Consume returns and deletes the pending link for state.
func (s *StateStore) Consume(ctx context.Context, state string) (*pending, error) {
	if state == "" {
		return nil, ErrInvalidState
	}
	data, err := s.client.GetDel(ctx, stateKeyPrefix+state).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrInvalidState
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read oauth state: %w", err)
	}

	var p pending
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to unmarshal oauth state: %w", err)
	}
	return &p, nil
}
