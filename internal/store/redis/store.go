package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/opportunities/internal/domain"
)

// Store handles Redis operations for snapshots, saved items and preferences
type Store struct {
	client *redis.Client
	now    func() time.Time
}

// NewStore creates a new Redis store
func NewStore(client *redis.Client) *Store {
	return &Store{
		client: client,
		now:    time.Now,
	}
}

// Get returns the raw value under key. ok=false on a miss.
func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to get %s: %w", key, err)
	}
	return data, true, nil
}

// Set stores value under key. A ttl of 0 keeps the key forever.
func (s *Store) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := s.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	return nil
}

// SavePreferences stores a user's preferences as JSON
func (s *Store) SavePreferences(ctx context.Context, pref domain.UserPreference) error {
	data, err := json.Marshal(pref)
	if err != nil {
		return fmt.Errorf("failed to marshal preferences: %w", err)
	}
	if err := s.client.Set(ctx, PreferencesKey(pref.UserID), data, 0).Err(); err != nil {
		return fmt.Errorf("failed to save preferences: %w", err)
	}
	return nil
}

// GetPreferences returns a user's preferences; ok=false when none are stored.
func (s *Store) GetPreferences(ctx context.Context, userID string) (domain.UserPreference, bool, error) {
	data, err := s.client.Get(ctx, PreferencesKey(userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.UserPreference{UserID: userID}, false, nil
		}
		return domain.UserPreference{}, false, fmt.Errorf("failed to get preferences: %w", err)
	}

	var pref domain.UserPreference
	if err := json.Unmarshal(data, &pref); err != nil {
		return domain.UserPreference{}, false, fmt.Errorf("failed to unmarshal preferences: %w", err)
	}
	pref.UserID = userID
	return pref, true, nil
}

// Ping checks the connection
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
