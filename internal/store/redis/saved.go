package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// SaveOpportunities adds ids to the user's saved set and returns how many
// were new. IDs already saved keep their original position.
func (s *Store) SaveOpportunities(ctx context.Context, userID string, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	added, err := s.client.ZAddNX(ctx, SavedKey(userID), savedMembers(s.now(), ids)...).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to save opportunities: %w", err)
	}
	return int(added), nil
}

// savedMembers scores ids by save time in microseconds, which a float64
// holds exactly, so +i keeps submission order within one call.
func savedMembers(now time.Time, ids []string) []redis.Z {
	base := float64(now.UnixMicro())
	members := make([]redis.Z, len(ids))
	for i, id := range ids {
		members[i] = redis.Z{Score: base + float64(i), Member: id}
	}
	return members
}

// SavedIDs returns the user's saved IDs, oldest first
func (s *Store) SavedIDs(ctx context.Context, userID string) ([]string, error) {
	ids, err := s.client.ZRange(ctx, SavedKey(userID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get saved IDs: %w", err)
	}
	return ids, nil
}

// DeleteSaved removes one ID from the user's saved set. It reports whether
// the ID was present.
func (s *Store) DeleteSaved(ctx context.Context, userID, id string) (bool, error) {
	removed, err := s.client.ZRem(ctx, SavedKey(userID), id).Result()
	if err != nil {
		return false, fmt.Errorf("failed to delete saved opportunity: %w", err)
	}
	return removed > 0, nil
}
