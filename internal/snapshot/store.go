package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"github.com/MrSnakeDoc/opportunities/internal/domain"
	"github.com/MrSnakeDoc/opportunities/internal/index"
	"github.com/MrSnakeDoc/opportunities/internal/logger"
)

// EnvelopeVersion tags the cached JSON layout. Entries with any other
// version are ignored.
const EnvelopeVersion = 1

// KV is the shared byte cache behind the in-process slot.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

type envelope struct {
	Version   int              `json:"version"`
	ExpiresAt time.Time        `json:"expires_at"`
	Snapshot  *domain.Snapshot `json:"snapshot"`
}

// Store is a TTL-keyed snapshot slot: an in-process index in front of a
// shared KV. A nil KV keeps everything in process.
type Store struct {
	kv     KV
	slot   *index.MemoryIndex
	logger logger.Logger
	now    func() time.Time
}

// NewStore creates a store.
func NewStore(kv KV, slot *index.MemoryIndex, log logger.Logger) *Store {
	return &Store{
		kv:     kv,
		slot:   slot,
		logger: log,
		now:    time.Now,
	}
}

// Get returns the snapshot under key. ok=false means absent, expired or
// corrupt; the caller should rebuild. A KV error is returned alongside
// ok=false so the caller can decide whether to rebuild.
func (s *Store) Get(ctx context.Context, key string) (*domain.Snapshot, bool, error) {
	if snap, ok := s.slot.Current(key, s.now()); ok {
		return snap, true, nil
	}
	if s.kv == nil {
		return nil, false, nil
	}

	data, ok, err := s.kv.Get(ctx, key)
	if err != nil {
		return nil, false, fmt.Errorf("failed to read cached snapshot: %w", err)
	}
	if !ok {
		return nil, false, nil
	}

	env, err := decode(data)
	if err != nil {
		s.logger.Warn("ignoring corrupt cached snapshot",
			logger.String("key", key),
			logger.Error(err))
		return nil, false, nil
	}
	if !env.ExpiresAt.IsZero() && !s.now().Before(env.ExpiresAt) {
		return nil, false, nil
	}

	s.slot.Update(key, env.Snapshot, env.ExpiresAt)
	return env.Snapshot, true, nil
}

// Set publishes snap under key. The in-process slot is always updated; a
// KV failure is returned but the snapshot still serves locally.
func (s *Store) Set(ctx context.Context, key string, snap *domain.Snapshot, ttl time.Duration) error {
	if snap == nil {
		return fmt.Errorf("refusing to store nil snapshot")
	}

	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = s.now().Add(ttl)
	}
	s.slot.Update(key, snap, expiresAt)

	if s.kv == nil {
		return nil
	}
	data, err := json.Marshal(envelope{Version: EnvelopeVersion, ExpiresAt: expiresAt, Snapshot: snap})
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	if err := s.kv.Set(ctx, key, data, ttl); err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return nil
}

func decode(data []byte) (envelope, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return envelope{}, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}
	if env.Version != EnvelopeVersion {
		return envelope{}, fmt.Errorf("unsupported snapshot version %d", env.Version)
	}
	if env.Snapshot == nil {
		return envelope{}, fmt.Errorf("snapshot envelope is empty")
	}
	for bucket, opps := range map[string][]*domain.Opportunity{
		"general":      env.Snapshot.General,
		"closing_soon": env.Snapshot.ClosingSoon,
		"featured":     env.Snapshot.Featured,
	} {
		if slices.Contains(opps, nil) {
			return envelope{}, fmt.Errorf("snapshot %s bucket has a null entry", bucket)
		}
	}
	env.Snapshot = relink(env.Snapshot)
	return env, nil
}

// relink makes the closing-soon and featured buckets point at the same
// opportunities as the general bucket after decoding.
func relink(snap *domain.Snapshot) *domain.Snapshot {
	byID := make(map[string]*domain.Opportunity, len(snap.General))
	for _, o := range snap.General {
		byID[o.ID] = o
	}
	swap := func(in []*domain.Opportunity) []*domain.Opportunity {
		out := make([]*domain.Opportunity, 0, len(in))
		for _, o := range in {
			if g, ok := byID[o.ID]; ok {
				out = append(out, g)
			}
		}
		return out
	}
	snap.ClosingSoon = swap(snap.ClosingSoon)
	snap.Featured = swap(snap.Featured)
	return snap
}
