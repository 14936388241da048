package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/MrSnakeDoc/opportunities/internal/domain"
	"github.com/MrSnakeDoc/opportunities/internal/logger"
	"github.com/MrSnakeDoc/opportunities/internal/metrics"
	"github.com/MrSnakeDoc/opportunities/internal/saved"
	"github.com/MrSnakeDoc/opportunities/internal/search"
	"github.com/MrSnakeDoc/opportunities/internal/taxonomy"
)

// ErrNoData means no snapshot is cached and none could be built.
var ErrNoData = errors.New("no data available")

// Refresh reasons, logged with every rebuild.
const (
	ReasonMiss     = "miss"
	ReasonSchedule = "schedule"
	ReasonManual   = "manual"
	ReasonStartup  = "startup"
)

// SnapshotStore is the TTL-keyed snapshot slot.
type SnapshotStore interface {
	Get(ctx context.Context, key string) (*domain.Snapshot, bool, error)
	Set(ctx context.Context, key string, snap *domain.Snapshot, ttl time.Duration) error
}

// Builder produces a complete snapshot from the source.
type Builder interface {
	Build(ctx context.Context) (*domain.Snapshot, error)
}

// PreferenceStore persists user preferences.
type PreferenceStore interface {
	GetPreferences(ctx context.Context, userID string) (domain.UserPreference, bool, error)
	SavePreferences(ctx context.Context, pref domain.UserPreference) error
}

// Options are the snapshot lifecycle settings.
type Options struct {
	Key            string
	TTL            time.Duration
	RefreshTimeout time.Duration // upper bound for one rebuild, detached from callers
}

// Service composes the snapshot lifecycle with search, personalization and
// saved items. It is the only entry point for the HTTP layer and the CLI.
type Service struct {
	opts         Options
	store        SnapshotStore
	builder      Builder
	engine       *search.Engine
	personalizer *search.Personalizer
	prefs        PreferenceStore
	saved        *saved.Service
	metrics      *metrics.Metrics
	logger       logger.Logger

	refresh singleflight.Group
}

// Deps are the collaborators of a Service. Prefs, Saved and Metrics are
// optional.
type Deps struct {
	Store        SnapshotStore
	Builder      Builder
	Engine       *search.Engine
	Personalizer *search.Personalizer
	Prefs        PreferenceStore
	Saved        *saved.Service
	Metrics      *metrics.Metrics
	Logger       logger.Logger
}

// New creates a service.
func New(opts Options, d Deps) *Service {
	if opts.RefreshTimeout <= 0 {
		opts.RefreshTimeout = 5 * time.Minute
	}
	return &Service{
		opts:         opts,
		store:        d.Store,
		builder:      d.Builder,
		engine:       d.Engine,
		personalizer: d.Personalizer,
		prefs:        d.Prefs,
		saved:        d.Saved,
		metrics:      d.Metrics,
		logger:       d.Logger,
	}
}

// Taxonomy returns the discipline table.
func (s *Service) Taxonomy() *taxonomy.Taxonomy { return s.engine.Taxonomy() }

// Current returns the cached snapshot, rebuilding it on a miss. When the
// rebuild fails and nothing is cached the error wraps ErrNoData.
func (s *Service) Current(ctx context.Context) (*domain.Snapshot, error) {
	snap, ok, err := s.store.Get(ctx, s.opts.Key)
	switch {
	case err != nil:
		s.countCache("error")
		s.logger.Warn("snapshot cache read failed, rebuilding", logger.Error(err))
	case ok:
		s.countCache("hit")
		return snap, nil
	default:
		s.countCache("miss")
	}

	snap, err = s.Refresh(ctx, ReasonMiss)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoData, err)
	}
	return snap, nil
}

// Cached returns the cached snapshot without triggering a rebuild.
func (s *Service) Cached(ctx context.Context) (*domain.Snapshot, bool) {
	snap, ok, err := s.store.Get(ctx, s.opts.Key)
	if err != nil || !ok {
		return nil, false
	}
	return snap, true
}

// Refresh builds and publishes a new snapshot. Concurrent calls share one
// build. On failure the store is left untouched.
func (s *Service) Refresh(ctx context.Context, reason string) (*domain.Snapshot, error) {
	ch := s.refresh.DoChan("refresh", func() (any, error) {
		buildCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.RefreshTimeout)
		defer cancel()
		return s.rebuild(buildCtx, reason)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*domain.Snapshot), nil
	}
}

func (s *Service) rebuild(ctx context.Context, reason string) (*domain.Snapshot, error) {
	start := time.Now()
	snap, err := s.builder.Build(ctx)
	elapsed := time.Since(start)

	if s.metrics != nil {
		s.metrics.RefreshDuration.Observe(elapsed.Seconds())
	}
	if err != nil {
		s.countRefresh(metrics.ResultFailure)
		s.logger.Error("snapshot refresh failed",
			logger.String("reason", reason),
			logger.Duration("elapsed", elapsed),
			logger.Error(err))
		return nil, fmt.Errorf("refresh failed: %w", err)
	}

	if err := s.store.Set(ctx, s.opts.Key, snap, s.opts.TTL); err != nil {
		// The in-process slot still serves it.
		s.logger.Warn("snapshot not shared through cache", logger.Error(err))
	}

	s.countRefresh(metrics.ResultSuccess)
	if s.metrics != nil {
		s.metrics.ObserveSnapshot(snap)
	}
	s.logger.Info("snapshot published",
		logger.String("reason", reason),
		logger.String("snapshot_id", snap.ID),
		logger.Int("general", len(snap.General)),
		logger.Int("closing_soon", len(snap.ClosingSoon)),
		logger.Int("featured", len(snap.Featured)),
		logger.Duration("elapsed", elapsed))
	return snap, nil
}

// Search runs a query against the current snapshot.
func (s *Service) Search(ctx context.Context, p search.Params) (search.Result, error) {
	snap, err := s.Current(ctx)
	if err != nil {
		return search.Result{}, err
	}
	r := s.engine.Search(snap, p)
	s.countQuery(r.Mode)
	return r, nil
}

// Facets counts records per discipline group in the current snapshot.
func (s *Service) Facets(ctx context.Context) ([]search.FacetCount, error) {
	snap, err := s.Current(ctx)
	if err != nil {
		return nil, err
	}
	return s.engine.Facets(snap), nil
}

// Recommend runs a query and re-ranks it by the user's preferences.
func (s *Service) Recommend(ctx context.Context, userID string, p search.Params) (search.Result, error) {
	r, err := s.Search(ctx, p)
	if err != nil {
		return search.Result{}, err
	}
	pref, err := s.Preferences(ctx, userID)
	if err != nil {
		return search.Result{}, err
	}
	r.Items = s.personalizer.Rank(r.Items, pref.Disciplines)
	return r, nil
}

// Preferences returns the user's stored preferences, empty if none.
func (s *Service) Preferences(ctx context.Context, userID string) (domain.UserPreference, error) {
	if s.prefs == nil {
		return domain.UserPreference{UserID: userID}, nil
	}
	pref, _, err := s.prefs.GetPreferences(ctx, userID)
	if err != nil {
		return domain.UserPreference{}, err
	}
	return pref, nil
}

// SetPreferences normalizes and stores the user's preferences.
func (s *Service) SetPreferences(ctx context.Context, pref domain.UserPreference) (domain.UserPreference, error) {
	if s.prefs == nil {
		return domain.UserPreference{}, errors.New("preferences are not configured")
	}
	pref.Disciplines = taxonomy.NormalizeAll(pref.Disciplines)
	if pref.Disciplines == nil {
		pref.Disciplines = []string{}
	}
	if err := s.prefs.SavePreferences(ctx, pref); err != nil {
		return domain.UserPreference{}, err
	}
	return pref, nil
}

// Save adds opportunities to the user's saved list.
func (s *Service) Save(ctx context.Context, userID string, ids []string) (int, error) {
	return s.saved.Save(ctx, userID, ids)
}

// Unsave removes one opportunity from the user's saved list.
func (s *Service) Unsave(ctx context.Context, userID, id string) (bool, error) {
	return s.saved.Delete(ctx, userID, id)
}

// Saved lists the user's saved opportunities. Without a snapshot every ID
// is fetched from the source.
func (s *Service) Saved(ctx context.Context, userID string) (saved.List, error) {
	snap, _ := s.Cached(ctx)
	return s.saved.List(ctx, userID, snap)
}

// Similar returns opportunities sharing keywords with the user's saved ones.
func (s *Service) Similar(ctx context.Context, userID string, limit int) ([]saved.SimilarHit, error) {
	snap, err := s.Current(ctx)
	if err != nil {
		return nil, err
	}
	return s.saved.Similar(ctx, userID, snap, limit)
}

func (s *Service) countCache(outcome string) {
	if s.metrics != nil {
		s.metrics.CacheReadsTotal.WithLabelValues(outcome).Inc()
	}
}

func (s *Service) countRefresh(result string) {
	if s.metrics != nil {
		s.metrics.RefreshTotal.WithLabelValues(result).Inc()
	}
}

func (s *Service) countQuery(mode string) {
	if s.metrics != nil {
		s.metrics.QueriesTotal.WithLabelValues(mode).Inc()
	}
}
