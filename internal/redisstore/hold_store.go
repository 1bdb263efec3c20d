package redisstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Hold mirrors an active soft-lock for quick countdown lookups. The Redis
// TTL matches the soft-lock TTL, so entries vanish on their own even if
// nobody evicts them.
type Hold struct {
	SessionID     string    `json:"session_id"`
	StationID     string    `json:"station_id"`
	UserID        string    `json:"user_id"`
	PricePerKWh   float64   `json:"price_per_kwh"`
	ReservedUntil time.Time `json:"reserved_until"`
}

// HoldStore caches active soft-locks in Redis.
type HoldStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewHoldStore returns redis-backed store.
func NewHoldStore(client *redis.Client, ttl time.Duration) *HoldStore {
	return &HoldStore{client: client, ttl: ttl}
}

func (s *HoldStore) key(sessionID string) string {
	return fmt.Sprintf("sessions:hold:%s", sessionID)
}

// Save caches the hold.
func (s *HoldStore) Save(ctx context.Context, hold Hold) error {
	data, err := json.Marshal(hold)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.key(hold.SessionID), data, s.ttl).Err()
}

// Get returns the cached hold.
func (s *HoldStore) Get(ctx context.Context, sessionID string) (*Hold, error) {
	result, err := s.client.Get(ctx, s.key(sessionID)).Result()
	if err != nil {
		return nil, err
	}
	var hold Hold
	if err := json.Unmarshal([]byte(result), &hold); err != nil {
		return nil, err
	}
	return &hold, nil
}

// Delete evicts the cached hold.
func (s *HoldStore) Delete(ctx context.Context, sessionID string) error {
	return s.client.Del(ctx, s.key(sessionID)).Err()
}
