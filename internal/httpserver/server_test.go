package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/opportunities/internal/catalog"
	"github.com/MrSnakeDoc/opportunities/internal/domain"
	"github.com/MrSnakeDoc/opportunities/internal/httpserver/deps"
	"github.com/MrSnakeDoc/opportunities/internal/index"
	"github.com/MrSnakeDoc/opportunities/internal/logger"
	"github.com/MrSnakeDoc/opportunities/internal/metrics"
	"github.com/MrSnakeDoc/opportunities/internal/saved"
	"github.com/MrSnakeDoc/opportunities/internal/search"
	"github.com/MrSnakeDoc/opportunities/internal/snapshot"
	"github.com/MrSnakeDoc/opportunities/internal/taxonomy"
)

type stubBuilder struct {
	mu  sync.Mutex
	err error
}

func (b *stubBuilder) fail(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.err = err
}

func (b *stubBuilder) Build(context.Context) (*domain.Snapshot, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return nil, b.err
	}
	opera := &domain.Opportunity{ID: "opera", Title: "Beca de ópera", Disciplines: []string{"opera"}, ClosingDate: domain.DateOf(2024, 7, 10), AIKeywords: []string{"voz"}}
	danza := &domain.Opportunity{ID: "danza", Title: "Residencia de danza", Disciplines: []string{"danza"}, ClosingDate: domain.DateOf(2024, 7, 1), AIKeywords: []string{"voz", "cuerpo"}}
	return &domain.Snapshot{
		ID:          "snap-1",
		General:     []*domain.Opportunity{danza, opera},
		ClosingSoon: []*domain.Opportunity{danza},
		Featured:    []*domain.Opportunity{},
		BuiltAt:     time.Date(2024, 6, 28, 12, 0, 0, 0, time.UTC),
	}, nil
}

type memStore struct {
	mu    sync.Mutex
	prefs map[string]domain.UserPreference
	saved map[string][]string
}

func newMemStore() *memStore {
	return &memStore{prefs: map[string]domain.UserPreference{}, saved: map[string][]string{}}
}

func (m *memStore) GetPreferences(_ context.Context, userID string) (domain.UserPreference, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.prefs[userID]
	if !ok {
		return domain.UserPreference{UserID: userID}, false, nil
	}
	return p, true, nil
}

func (m *memStore) SavePreferences(_ context.Context, pref domain.UserPreference) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prefs[pref.UserID] = pref
	return nil
}

func (m *memStore) SaveOpportunities(_ context.Context, userID string, ids []string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	added := 0
	for _, id := range ids {
		found := false
		for _, have := range m.saved[userID] {
			found = found || have == id
		}
		if !found {
			m.saved[userID] = append(m.saved[userID], id)
			added++
		}
	}
	return added, nil
}

func (m *memStore) SavedIDs(_ context.Context, userID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.saved[userID]...), nil
}

func (m *memStore) DeleteSaved(_ context.Context, userID, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := m.saved[userID]
	for i, have := range ids {
		if have == id {
			m.saved[userID] = append(ids[:i], ids[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

type fixture struct {
	router  http.Handler
	builder *stubBuilder
	trigger chan struct{}
}

func newFixture(t *testing.T, tweak func(d *deps.Deps)) *fixture {
	t.Helper()
	tax := taxonomy.Default()
	b := &stubBuilder{}
	store := newMemStore()
	m := metrics.New()

	svc := catalog.New(catalog.Options{Key: "opp:snapshot:v1", TTL: time.Hour}, catalog.Deps{
		Store:        snapshot.NewStore(nil, index.NewMemoryIndex(), logger.NewNop()),
		Builder:      b,
		Engine:       search.NewEngine(search.NewScorer(search.DefaultWeights(), tax), tax),
		Personalizer: search.NewPersonalizer(tax),
		Prefs:        store,
		Saved:        saved.NewService(store, nil, nil, 2, logger.NewNop()),
		Metrics:      m,
		Logger:       logger.NewNop(),
	})

	trigger := make(chan struct{}, 1)
	d := deps.Deps{
		Logger:        logger.NewNop(),
		StartTime:     time.Now(),
		Version:       "test",
		Catalog:       svc,
		Metrics:       m,
		Redis:         stubPinger{},
		ReloadTrigger: trigger,
	}
	if tweak != nil {
		tweak(&d)
	}
	return &fixture{router: NewRouter(d), builder: b, trigger: trigger}
}

func (f *fixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealthz(t *testing.T) {
	f := newFixture(t, nil)
	rec := f.do(t, http.MethodGet, "/healthz", "")

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[map[string]any](t, rec)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "test", body["version"])
}

func TestReadyzFollowsSnapshot(t *testing.T) {
	f := newFixture(t, nil)

	rec := f.do(t, http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code, "readyz must not build")

	require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/api/opportunities", "").Code)

	rec = f.do(t, http.MethodGet, "/readyz", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[map[string]any](t, rec)
	assert.Equal(t, true, body["ready"])
	assert.Equal(t, "snap-1", body["snapshot_id"])
}

func TestOpportunitiesBuckets(t *testing.T) {
	f := newFixture(t, nil)
	rec := f.do(t, http.MethodGet, "/api/opportunities", "")

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[struct {
		SnapshotID  string               `json:"snapshot_id"`
		General     []domain.Opportunity `json:"general"`
		ClosingSoon []domain.Opportunity `json:"closing_soon"`
		Featured    []domain.Opportunity `json:"featured"`
	}](t, rec)
	assert.Equal(t, "snap-1", body.SnapshotID)
	assert.Len(t, body.General, 2)
	require.Len(t, body.ClosingSoon, 1)
	assert.Equal(t, "danza", body.ClosingSoon[0].ID)
	assert.NotNil(t, body.Featured)
}

func TestNoDataIs503(t *testing.T) {
	f := newFixture(t, nil)
	f.builder.fail(snapshot.ErrSourceUnavailable)

	for _, path := range []string{"/api/opportunities", "/api/search?q=danza", "/api/facets"} {
		rec := f.do(t, http.MethodGet, path, "")
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code, path)
		assert.JSONEq(t, `{"error":"no data available"}`, rec.Body.String(), path)
	}
}

func TestSearch(t *testing.T) {
	f := newFixture(t, nil)

	rec := f.do(t, http.MethodGet, "/api/search?q=M%C3%BAsica", "")
	require.Equal(t, http.StatusOK, rec.Code)
	res := decode[search.Result](t, rec)
	assert.Equal(t, search.ModeGroup, res.Mode)
	require.Len(t, res.Items, 1)
	assert.Equal(t, "opera", res.Items[0].Opportunity.ID)

	rec = f.do(t, http.MethodGet, "/api/search?month=13&no_date=maybe", "")
	require.Equal(t, http.StatusOK, rec.Code, "invalid input is not an HTTP error")
	res = decode[search.Result](t, rec)
	assert.Empty(t, res.Items)
	assert.NotEmpty(t, res.Diagnostics)
}

func TestFacets(t *testing.T) {
	f := newFixture(t, nil)
	rec := f.do(t, http.MethodGet, "/api/facets", "")

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[struct {
		Facets []search.FacetCount `json:"facets"`
	}](t, rec)
	counts := map[string]int{}
	for _, fc := range body.Facets {
		counts[fc.Name] = fc.Count
	}
	assert.Equal(t, 1, counts["musica"])
	assert.Equal(t, 1, counts["danza"])
}

func TestPreferencesAndRecommendations(t *testing.T) {
	f := newFixture(t, nil)

	rec := f.do(t, http.MethodGet, "/api/users/u1/preferences", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"user_id":"u1","disciplines":[]}`, rec.Body.String())

	rec = f.do(t, http.MethodPut, "/api/users/u1/preferences", `{"disciplines":["Música"]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	pref := decode[domain.UserPreference](t, rec)
	assert.Equal(t, []string{"musica"}, pref.Disciplines)

	rec = f.do(t, http.MethodGet, "/api/users/u1/recommendations", "")
	require.Equal(t, http.StatusOK, rec.Code)
	res := decode[search.Result](t, rec)
	require.Len(t, res.Items, 2)
	assert.Equal(t, "opera", res.Items[0].Opportunity.ID)
	assert.Equal(t, 2, res.Items[0].PrefScore)
}

func TestPreferencesRejectsBadBody(t *testing.T) {
	f := newFixture(t, nil)

	for _, body := range []string{`{"disciplines":`, `{"unknown":true}`, `[]`} {
		rec := f.do(t, http.MethodPut, "/api/users/u1/preferences", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
}

func TestSavedLifecycle(t *testing.T) {
	f := newFixture(t, nil)
	require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/api/opportunities", "").Code)

	rec := f.do(t, http.MethodPost, "/api/users/u1/saved", `{"ids":[" "]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/users/u1/saved", `{"ids":["opera","gone"]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"added":2}`, rec.Body.String())

	rec = f.do(t, http.MethodPost, "/api/users/u1/saved", `{"ids":["opera"]}`)
	assert.JSONEq(t, `{"added":0}`, rec.Body.String())

	rec = f.do(t, http.MethodGet, "/api/users/u1/saved", "")
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[saved.List](t, rec)
	require.Len(t, list.Items, 1)
	assert.Equal(t, "opera", list.Items[0].ID)
	assert.Equal(t, []string{"gone"}, list.Missing)

	rec = f.do(t, http.MethodGet, "/api/users/u1/similar", "")
	require.Equal(t, http.StatusOK, rec.Code)
	similar := decode[struct {
		Items []saved.SimilarHit `json:"items"`
	}](t, rec)
	require.Len(t, similar.Items, 1)
	assert.Equal(t, "danza", similar.Items[0].Opportunity.ID)

	assert.Equal(t, http.StatusNoContent, f.do(t, http.MethodDelete, "/api/users/u1/saved/opera", "").Code)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodDelete, "/api/users/u1/saved/opera", "").Code)
}

func TestInvalidUserID(t *testing.T) {
	f := newFixture(t, nil)
	long := strings.Repeat("x", 200)
	rec := f.do(t, http.MethodGet, "/api/users/"+long+"/saved", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReloadIsNonBlocking(t *testing.T) {
	f := newFixture(t, nil)

	rec := f.do(t, http.MethodPost, "/reload", "")
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Len(t, f.trigger, 1)

	rec = f.do(t, http.MethodPost, "/reload", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code, "a pending reload is not queued twice")
}

func TestReloadGuards(t *testing.T) {
	f := newFixture(t, func(d *deps.Deps) {
		d.AllowedCIDRS = []string{"10.0.0.0/8"}
		d.AllowedHosts = []string{"*.internal.example"}
	})

	req := httptest.NewRequest(http.MethodPost, "/reload", nil)
	req.RemoteAddr = "203.0.113.7:5555"
	req.Host = "api.internal.example"
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code, "ip outside the allowed ranges")

	req = httptest.NewRequest(http.MethodPost, "/reload", nil)
	req.RemoteAddr = "10.1.2.3:5555"
	req.Host = "public.example"
	rec = httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code, "host not allowed")

	req = httptest.NewRequest(http.MethodPost, "/reload", nil)
	req.RemoteAddr = "10.1.2.3:5555"
	req.Host = "api.internal.example"
	rec = httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusAccepted, rec.Code)
}

func TestInfraServingMode(t *testing.T) {
	f := newFixture(t, nil)

	mode := func(f *fixture) string {
		rec := f.do(t, http.MethodGet, "/infra", "")
		require.Equal(t, http.StatusOK, rec.Code)
		return decode[map[string]any](t, rec)["serving_mode"].(string)
	}

	assert.Equal(t, "critical", mode(f))
	f.do(t, http.MethodGet, "/api/facets", "")
	assert.Equal(t, "optimal", mode(f))

	down := newFixture(t, func(d *deps.Deps) { d.Redis = stubPinger{err: errors.New("connection refused")} })
	down.do(t, http.MethodGet, "/api/facets", "")
	assert.Equal(t, "degraded", mode(down))
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t, nil)
	f.do(t, http.MethodGet, "/api/search?q=beca", "")

	rec := f.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `opportunities_refresh_total{result="success"} 1`)
	assert.Contains(t, rec.Body.String(), `opportunities_queries_total{mode="term"} 1`)
}

func TestAPIRateLimit(t *testing.T) {
	f := newFixture(t, func(d *deps.Deps) {
		d.RateLimitPerMin = 1
		d.RateLimitBurst = 1
	})

	first := f.do(t, http.MethodGet, "/api/facets", "")
	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "0", first.Header().Get("X-RateLimit-Remaining"))

	second := f.do(t, http.MethodGet, "/api/facets", "")
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.NotEmpty(t, second.Header().Get("Retry-After"))

	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/healthz", "").Code, "ops routes are not limited")
}
