package catalog

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/opportunities/internal/domain"
	"github.com/MrSnakeDoc/opportunities/internal/index"
	"github.com/MrSnakeDoc/opportunities/internal/logger"
	"github.com/MrSnakeDoc/opportunities/internal/metrics"
	"github.com/MrSnakeDoc/opportunities/internal/saved"
	"github.com/MrSnakeDoc/opportunities/internal/search"
	"github.com/MrSnakeDoc/opportunities/internal/snapshot"
	"github.com/MrSnakeDoc/opportunities/internal/taxonomy"
)

type fakeBuilder struct {
	calls   atomic.Int32
	err     error
	release chan struct{} // when set, Build blocks until closed
	snap    *domain.Snapshot
}

func (b *fakeBuilder) Build(ctx context.Context) (*domain.Snapshot, error) {
	b.calls.Add(1)
	if b.release != nil {
		select {
		case <-b.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if b.err != nil {
		return nil, b.err
	}
	return b.snap, nil
}

type memPrefs struct {
	mu    sync.Mutex
	prefs map[string]domain.UserPreference
}

func (m *memPrefs) GetPreferences(_ context.Context, userID string) (domain.UserPreference, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.prefs[userID]
	if !ok {
		return domain.UserPreference{UserID: userID}, false, nil
	}
	return p, true, nil
}

func (m *memPrefs) SavePreferences(_ context.Context, pref domain.UserPreference) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prefs[pref.UserID] = pref
	return nil
}

type memSaved struct {
	ids map[string][]string
}

func (m *memSaved) SaveOpportunities(_ context.Context, userID string, ids []string) (int, error) {
	m.ids[userID] = append(m.ids[userID], ids...)
	return len(ids), nil
}

func (m *memSaved) SavedIDs(_ context.Context, userID string) ([]string, error) {
	return m.ids[userID], nil
}

func (m *memSaved) DeleteSaved(context.Context, string, string) (bool, error) { return false, nil }

func testSnapshot() *domain.Snapshot {
	opera := &domain.Opportunity{ID: "opera", Disciplines: []string{"opera"}, ClosingDate: domain.DateOf(2024, 7, 10), AIKeywords: []string{"voz"}}
	danza := &domain.Opportunity{ID: "danza", Disciplines: []string{"danza"}, ClosingDate: domain.DateOf(2024, 7, 1), AIKeywords: []string{"voz", "cuerpo"}}
	return &domain.Snapshot{
		ID:      "snap-1",
		General: []*domain.Opportunity{danza, opera},
		BuiltAt: time.Unix(1718000000, 0),
	}
}

type fixture struct {
	svc     *Service
	builder *fakeBuilder
	metrics *metrics.Metrics
	saved   *memSaved
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	tax := taxonomy.Default()
	b := &fakeBuilder{snap: testSnapshot()}
	m := metrics.New()
	store := snapshot.NewStore(nil, index.NewMemoryIndex(), logger.NewNop())
	sv := &memSaved{ids: map[string][]string{}}

	svc := New(Options{Key: "opp:snapshot:v1", TTL: time.Hour}, Deps{
		Store:        store,
		Builder:      b,
		Engine:       search.NewEngine(search.NewScorer(search.DefaultWeights(), tax), tax),
		Personalizer: search.NewPersonalizer(tax),
		Prefs:        &memPrefs{prefs: map[string]domain.UserPreference{}},
		Saved:        saved.NewService(sv, nil, nil, 2, logger.NewNop()),
		Metrics:      m,
		Logger:       logger.NewNop(),
	})
	return &fixture{svc: svc, builder: b, metrics: m, saved: sv}
}

func TestCurrentBuildsOnMissThenServesCache(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	snap, err := f.svc.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, "snap-1", snap.ID)

	again, err := f.svc.Current(ctx)
	require.NoError(t, err)
	assert.Same(t, snap, again)

	assert.EqualValues(t, 1, f.builder.calls.Load())
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.CacheReadsTotal.WithLabelValues("miss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.CacheReadsTotal.WithLabelValues("hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.RefreshTotal.WithLabelValues(metrics.ResultSuccess)))
	assert.Equal(t, 2.0, testutil.ToFloat64(f.metrics.SnapshotRecords.WithLabelValues("general")))
}

func TestCurrentWithoutDataReturnsErrNoData(t *testing.T) {
	f := newFixture(t)
	f.builder.err = snapshot.ErrSourceUnavailable

	_, err := f.svc.Current(context.Background())
	assert.ErrorIs(t, err, ErrNoData)
	assert.ErrorIs(t, err, snapshot.ErrSourceUnavailable)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.RefreshTotal.WithLabelValues(metrics.ResultFailure)))
}

func TestFailedRefreshKeepsPreviousSnapshot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first, err := f.svc.Refresh(ctx, ReasonStartup)
	require.NoError(t, err)

	f.builder.err = errors.New("notion down")
	_, err = f.svc.Refresh(ctx, ReasonManual)
	require.Error(t, err)

	current, err := f.svc.Current(ctx)
	require.NoError(t, err)
	assert.Same(t, first, current)
}

func TestConcurrentRefreshesShareOneBuild(t *testing.T) {
	f := newFixture(t)
	f.builder.release = make(chan struct{})

	var wg sync.WaitGroup
	results := make([]*domain.Snapshot, 10)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			snap, err := f.svc.Refresh(context.Background(), ReasonMiss)
			assert.NoError(t, err)
			results[i] = snap
		}()
	}

	// Let every caller join the in-flight build before it completes.
	assert.Eventually(t, func() bool { return f.builder.calls.Load() == 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(f.builder.release)
	wg.Wait()

	assert.EqualValues(t, 1, f.builder.calls.Load())
	for _, snap := range results {
		assert.Same(t, results[0], snap)
	}
}

func TestRefreshCallerCancelDoesNotAbortBuild(t *testing.T) {
	f := newFixture(t)
	f.builder.release = make(chan struct{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := f.svc.Refresh(ctx, ReasonMiss)
		done <- err
	}()

	assert.Eventually(t, func() bool { return f.builder.calls.Load() == 1 }, time.Second, time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)

	close(f.builder.release)
	assert.Eventually(t, func() bool {
		_, ok := f.svc.Cached(context.Background())
		return ok
	}, time.Second, time.Millisecond)
}

func TestSearchAndFacets(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	r, err := f.svc.Search(ctx, search.Params{Query: "musica"})
	require.NoError(t, err)
	require.Len(t, r.Items, 1)
	assert.Equal(t, "opera", r.Items[0].Opportunity.ID)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.QueriesTotal.WithLabelValues(search.ModeGroup)))

	facets, err := f.svc.Facets(ctx)
	require.NoError(t, err)
	counts := map[string]int{}
	for _, fc := range facets {
		counts[fc.Name] = fc.Count
	}
	assert.Equal(t, 1, counts["musica"])
	assert.Equal(t, 2, counts["artes escenicas"])
}

func TestRecommendUsesPreferences(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	pref, err := f.svc.SetPreferences(ctx, domain.UserPreference{UserID: "u1", Disciplines: []string{"Música", "MÚSICA"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"musica"}, pref.Disciplines)

	r, err := f.svc.Recommend(ctx, "u1", search.Params{})
	require.NoError(t, err)
	require.Len(t, r.Items, 2)
	assert.Equal(t, "opera", r.Items[0].Opportunity.ID)
	assert.Equal(t, 2, r.Items[0].PrefScore)

	// Without preferences the order is by closing date.
	r, err = f.svc.Recommend(ctx, "u2", search.Params{})
	require.NoError(t, err)
	assert.Equal(t, "danza", r.Items[0].Opportunity.ID)
}

func TestSavedAndSimilar(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	added, err := f.svc.Save(ctx, "u1", []string{"opera"})
	require.NoError(t, err)
	assert.Equal(t, 1, added)

	list, err := f.svc.Saved(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, list.Items, "nothing cached yet and no source configured")
	assert.Equal(t, []string{"opera"}, list.Missing)

	hits, err := f.svc.Similar(ctx, "u1", 0)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "danza", hits[0].Opportunity.ID)

	list, err = f.svc.Saved(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list.Items, 1)
	assert.Equal(t, "opera", list.Items[0].ID)
}
