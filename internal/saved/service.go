package saved

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/MrSnakeDoc/opportunities/internal/domain"
	"github.com/MrSnakeDoc/opportunities/internal/logger"
	"github.com/MrSnakeDoc/opportunities/internal/sources/notion"
	"github.com/MrSnakeDoc/opportunities/internal/taxonomy"
)

const (
	// DefaultWorkers bounds concurrent detail fetches.
	DefaultWorkers = 8
	// DefaultSimilarLimit caps Similar results.
	DefaultSimilarLimit = 10
)

// ErrNoIDs is returned when Save is called without any ID.
var ErrNoIDs = errors.New("no opportunity IDs given")

// Store persists each user's saved IDs in save order.
type Store interface {
	SaveOpportunities(ctx context.Context, userID string, ids []string) (int, error)
	SavedIDs(ctx context.Context, userID string) ([]string, error)
	DeleteSaved(ctx context.Context, userID, id string) (bool, error)
}

// Fetcher reads one record from the source by ID.
type Fetcher interface {
	GetRecord(ctx context.Context, id string) (domain.RawRecord, error)
}

// Normalizer maps a raw record; ok=false means it is not published.
type Normalizer interface {
	Map(raw domain.RawRecord) (domain.Opportunity, bool, error)
}

// List is a user's saved opportunities in save order plus the IDs that
// could not be resolved.
type List struct {
	Items   []*domain.Opportunity `json:"items"`
	Missing []string              `json:"missing,omitempty"`
}

// SimilarHit is an opportunity sharing AI keywords with saved items.
type SimilarHit struct {
	Opportunity *domain.Opportunity `json:"opportunity"`
	Shared      int                 `json:"shared_keywords"`
}

// Service manages saved opportunities.
type Service struct {
	store      Store
	fetcher    Fetcher
	normalizer Normalizer
	workers    int
	logger     logger.Logger
}

// NewService creates a service. workers <= 0 means DefaultWorkers.
func NewService(store Store, fetcher Fetcher, normalizer Normalizer, workers int, log logger.Logger) *Service {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &Service{
		store:      store,
		fetcher:    fetcher,
		normalizer: normalizer,
		workers:    workers,
		logger:     log,
	}
}

// Save adds ids to the user's list, skipping ones already saved. It returns
// how many were added.
func (s *Service) Save(ctx context.Context, userID string, ids []string) (int, error) {
	clean := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		clean = append(clean, id)
	}
	if len(clean) == 0 {
		return 0, ErrNoIDs
	}

	added, err := s.store.SaveOpportunities(ctx, userID, clean)
	if err != nil {
		return 0, err
	}
	s.logger.Info("opportunities saved",
		logger.String("user_id", userID),
		logger.Int("requested", len(clean)),
		logger.Int("added", added))
	return added, nil
}

// Delete removes one saved ID and reports whether it was present.
func (s *Service) Delete(ctx context.Context, userID, id string) (bool, error) {
	return s.store.DeleteSaved(ctx, userID, id)
}

// List resolves the user's saved IDs into full records.
func (s *Service) List(ctx context.Context, userID string, snap *domain.Snapshot) (List, error) {
	ids, err := s.store.SavedIDs(ctx, userID)
	if err != nil {
		return List{}, err
	}

	found, err := s.Resolve(ctx, snap, ids)
	if err != nil {
		return List{}, err
	}

	list := List{Items: make([]*domain.Opportunity, 0, len(ids))}
	for _, id := range ids {
		if o, ok := found[id]; ok {
			list.Items = append(list.Items, o)
		} else {
			list.Missing = append(list.Missing, id)
		}
	}
	return list, nil
}

// Resolve looks each ID up in snap, then fetches the rest from the source
// with at most workers requests in flight. IDs that are gone upstream or
// no longer published are absent from the map. Any other fetch error
// cancels the remaining work and is returned.
func (s *Service) Resolve(ctx context.Context, snap *domain.Snapshot, ids []string) (map[string]*domain.Opportunity, error) {
	found := make(map[string]*domain.Opportunity, len(ids))
	var pending []string
	for _, id := range ids {
		if o, ok := snap.Lookup(id); ok {
			found[id] = o
		} else {
			pending = append(pending, id)
		}
	}
	if len(pending) == 0 || s.fetcher == nil {
		return found, nil
	}

	fetched := make([]*domain.Opportunity, len(pending))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, id := range pending {
		g.Go(func() error {
			o, err := s.fetch(gctx, id)
			if err != nil {
				return err
			}
			fetched[i] = o
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for i, id := range pending {
		if fetched[i] != nil {
			found[id] = fetched[i]
		}
	}
	return found, nil
}

func (s *Service) fetch(ctx context.Context, id string) (*domain.Opportunity, error) {
	raw, err := s.fetcher.GetRecord(ctx, id)
	if errors.Is(err, notion.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch saved opportunity %s: %w", id, err)
	}

	o, ok, err := s.normalizer.Map(raw)
	if err != nil {
		s.logger.Warn("dropping malformed saved record",
			logger.String("record_id", id),
			logger.Error(err))
		return nil, nil
	}
	if !ok {
		return nil, nil
	}
	return &o, nil
}

// Similar returns general-bucket opportunities sharing at least one AI
// keyword with the user's saved items, excluding the saved ones. Results
// are ordered by shared keyword count, then general order.
func (s *Service) Similar(ctx context.Context, userID string, snap *domain.Snapshot, limit int) ([]SimilarHit, error) {
	if limit <= 0 {
		limit = DefaultSimilarLimit
	}

	ids, err := s.store.SavedIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	found, err := s.Resolve(ctx, snap, ids)
	if err != nil {
		return nil, err
	}

	keywords := make(map[string]struct{})
	for _, o := range found {
		for _, k := range taxonomy.NormalizeAll(o.AIKeywords) {
			keywords[k] = struct{}{}
		}
	}

	hits := []SimilarHit{}
	if len(keywords) == 0 || snap == nil {
		return hits, nil
	}

	excluded := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		excluded[id] = struct{}{}
	}

	for _, o := range snap.General {
		if _, skip := excluded[o.ID]; skip {
			continue
		}
		shared := 0
		for _, k := range taxonomy.NormalizeAll(o.AIKeywords) {
			if _, ok := keywords[k]; ok {
				shared++
			}
		}
		if shared > 0 {
			hits = append(hits, SimilarHit{Opportunity: o, Shared: shared})
		}
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Shared > hits[j].Shared })
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}
