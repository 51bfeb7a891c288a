package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/i474232898/weather-tracker/internal/cache"
	"github.com/i474232898/weather-tracker/internal/metrics"
	"github.com/i474232898/weather-tracker/internal/store"
	"github.com/i474232898/weather-tracker/internal/weather"
)

type stubProvider struct {
	mu    sync.Mutex
	calls int
	temps map[string]float64
}

func (p *stubProvider) Name() string { return "stub" }

func (p *stubProvider) Fetch(_ context.Context, city string) (weather.Reading, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	t, ok := p.temps[city]
	if !ok {
		return weather.Reading{}, context.DeadlineExceeded
	}
	return weather.Reading{Temperature: t, Humidity: 60, Description: "clear sky"}, nil
}

// brokenStore fails every operation.
type brokenStore struct{}

func (brokenStore) Insert(context.Context, string, weather.Reading) (weather.Observation, error) {
	return weather.Observation{}, errors.New("database is locked")
}

func (brokenStore) ListRecent(context.Context, int) ([]weather.Observation, error) {
	return nil, errors.New("database is locked")
}

// limitSpy records the limit each ListRecent call asked for.
type limitSpy struct {
	*store.MemoryStore
	limits []int
}

func (s *limitSpy) ListRecent(ctx context.Context, limit int) ([]weather.Observation, error) {
	s.limits = append(s.limits, limit)
	return s.MemoryStore.ListRecent(ctx, limit)
}

type testEnv struct {
	app      *fiber.App
	provider *stubProvider
	store    weather.Store
	logs     *observer.ObservedLogs
	now      time.Time
}

func (e *testEnv) clock() time.Time { return e.now }

func newTestEnv(t *testing.T, st weather.Store) *testEnv {
	t.Helper()
	if st == nil {
		st = store.NewMemoryStore()
	}
	core, logs := observer.New(zap.InfoLevel)
	logger := zap.New(core)

	env := &testEnv{
		provider: &stubProvider{temps: map[string]float64{"Paris": 18.2, "Oslo": -3}},
		store:    st,
		logs:     logs,
		now:      time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}

	memo := cache.New[weather.Reading](5*time.Minute, cache.WithClock(env.clock))
	env.app = NewApp(Options{
		Deps: Deps{
			Service:   weather.NewService(st, env.provider, memo, logger, nil),
			Logger:    logger,
			Metrics:   metrics.New(),
			ListCache: cache.New[CachedResponse](60*time.Second, cache.WithClock(env.clock)),
			PlotCache: cache.New[CachedResponse](300*time.Second, cache.WithClock(env.clock)),
		},
	})
	return env
}

func (e *testEnv) do(t *testing.T, req *http.Request) (*http.Response, string) {
	t.Helper()
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func (e *testEnv) postCity(t *testing.T, city string) *http.Response {
	t.Helper()
	form := url.Values{"city": {city}}
	req := httptest.NewRequest(http.MethodPost, "/add_city", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, _ := e.do(t, req)
	return resp
}

func (e *testEnv) rows(t *testing.T) []weather.Observation {
	t.Helper()
	rows, err := e.store.ListRecent(context.Background(), 0)
	require.NoError(t, err)
	return rows
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, brokenStore{})

	resp, body := env.do(t, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var payload struct {
		Status    string  `json:"status"`
		Timestamp float64 `json:"timestamp"`
	}
	require.NoError(t, json.Unmarshal([]byte(body), &payload))
	assert.Equal(t, "healthy", payload.Status)
	assert.InDelta(t, float64(time.Now().Unix()), payload.Timestamp, 5)
}

func TestHome(t *testing.T) {
	env := newTestEnv(t, nil)

	resp, body := env.do(t, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `action="/add_city"`)
	assert.NotEmpty(t, resp.Header.Get(fiber.HeaderXRequestID))
}

func TestAddCityStoresRowAndRedirects(t *testing.T) {
	env := newTestEnv(t, nil)

	resp := env.postCity(t, "Paris")
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/", resp.Header.Get("Location"))

	rows := env.rows(t)
	require.Len(t, rows, 1)
	assert.Equal(t, "Paris", rows[0].City)
	assert.Equal(t, 18.2, rows[0].Temperature)
	assert.Equal(t, 60, rows[0].Humidity)
	assert.Equal(t, "clear sky", rows[0].Description)
}

func TestAddCityBlankIsIgnored(t *testing.T) {
	for _, city := range []string{"", "   "} {
		env := newTestEnv(t, nil)

		resp := env.postCity(t, city)
		assert.Equal(t, http.StatusFound, resp.StatusCode)
		assert.Equal(t, "/", resp.Header.Get("Location"))
		assert.Zero(t, env.provider.calls)
		assert.Empty(t, env.rows(t))
		assert.Equal(t, 1, env.logs.FilterMessage("empty city name submitted").Len())
	}
}

func TestAddCityUpstreamFailureLooksLikeSuccess(t *testing.T) {
	env := newTestEnv(t, nil)

	resp := env.postCity(t, "Atlantis")
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/", resp.Header.Get("Location"))
	assert.Empty(t, env.rows(t))
	assert.Equal(t, 1, env.logs.FilterLevelExact(zap.ErrorLevel).Len())
}

func TestAddCityStoreFailureStillRedirects(t *testing.T) {
	env := newTestEnv(t, brokenStore{})

	resp := env.postCity(t, "Paris")
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, 1, env.logs.FilterMessage("error saving to database").Len())
	assert.Equal(t, 1, env.logs.FilterMessage("error processing city").Len())
}

func TestAddCityMemoizesUpstream(t *testing.T) {
	env := newTestEnv(t, nil)

	env.postCity(t, "Paris")
	env.now = env.now.Add(4 * time.Minute)
	env.postCity(t, "Paris")
	assert.Equal(t, 1, env.provider.calls)

	env.now = env.now.Add(2 * time.Minute)
	env.postCity(t, "Paris")
	assert.Equal(t, 2, env.provider.calls)
	assert.Len(t, env.rows(t), 3)
}

func TestWeatherListsAtMostFiftyNewestFirst(t *testing.T) {
	mem := store.NewMemoryStore()
	env := newTestEnv(t, mem)
	for i := 0; i < 60; i++ {
		_, err := mem.Insert(context.Background(), fmt.Sprintf("city-%02d", i), weather.Reading{})
		require.NoError(t, err)
	}

	resp, body := env.do(t, httptest.NewRequest(http.MethodGet, "/weather", nil))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, ListLimit, strings.Count(body, `class="observation"`))
	assert.Less(t, strings.Index(body, "city-59"), strings.Index(body, "city-58"))
	assert.NotContains(t, body, "city-09")
}

func TestWeatherResponseIsCachedForAMinute(t *testing.T) {
	env := newTestEnv(t, nil)

	env.postCity(t, "Paris")
	_, body := env.do(t, httptest.NewRequest(http.MethodGet, "/weather", nil))
	assert.Contains(t, body, "Paris")

	env.postCity(t, "Oslo")
	_, body = env.do(t, httptest.NewRequest(http.MethodGet, "/weather", nil))
	assert.NotContains(t, body, "Oslo", "cached listing is not invalidated by writes")

	env.now = env.now.Add(61 * time.Second)
	_, body = env.do(t, httptest.NewRequest(http.MethodGet, "/weather", nil))
	assert.Contains(t, body, "Oslo")
}

func TestWeatherStorageFailure(t *testing.T) {
	env := newTestEnv(t, brokenStore{})

	resp, body := env.do(t, httptest.NewRequest(http.MethodGet, "/weather", nil))
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Contains(t, body, "Unable to fetch weather data")

	// Errors are not cached.
	resp, _ = env.do(t, httptest.NewRequest(http.MethodGet, "/weather", nil))
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, 2, env.logs.FilterMessage("error reading weather data").Len())
}

func TestPlotReturnsPNG(t *testing.T) {
	spy := &limitSpy{MemoryStore: store.NewMemoryStore()}
	env := newTestEnv(t, spy)
	env.postCity(t, "Paris")
	env.postCity(t, "Oslo")

	resp, body := env.do(t, httptest.NewRequest(http.MethodGet, "/plot", nil))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	assert.True(t, bytes.HasPrefix([]byte(body), []byte("\x89PNG\r\n\x1a\n")))
	assert.Equal(t, []int{PlotLimit}, spy.limits)

	// Served from cache for five minutes.
	env.now = env.now.Add(299 * time.Second)
	resp, cached := env.do(t, httptest.NewRequest(http.MethodGet, "/plot", nil))
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	assert.Equal(t, body, cached)
	assert.Len(t, spy.limits, 1)

	env.now = env.now.Add(2 * time.Second)
	env.do(t, httptest.NewRequest(http.MethodGet, "/plot", nil))
	assert.Len(t, spy.limits, 2)
}

func TestPlotFailureReturnsJSON(t *testing.T) {
	env := newTestEnv(t, brokenStore{})

	resp, body := env.do(t, httptest.NewRequest(http.MethodGet, "/plot", nil))
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.JSONEq(t, `{"error":"Unable to generate plot"}`, body)
}

func TestNotFoundRendersErrorPage(t *testing.T) {
	env := newTestEnv(t, nil)

	resp, body := env.do(t, httptest.NewRequest(http.MethodGet, "/nowhere", nil))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, body, "Page not found")
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t, nil)
	env.do(t, httptest.NewRequest(http.MethodGet, "/", nil))

	resp, body := env.do(t, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `weather_tracker_request_duration_seconds_count{route="home",status="200"} 1`)
}

func TestInternalErrorRendersErrorPage(t *testing.T) {
	env := newTestEnv(t, nil)
	env.app.Get("/boom", func(c *fiber.Ctx) error {
		panic("boom")
	})

	resp, body := env.do(t, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Contains(t, resp.Header.Get(fiber.HeaderContentType), fiber.MIMETextHTML)
	assert.Contains(t, body, "Internal server error")
	assert.Equal(t, 1, env.logs.FilterMessage("internal server error").Len())
}

func TestRequestsAreTimedInLog(t *testing.T) {
	env := newTestEnv(t, nil)

	resp, _ := env.do(t, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	entries := env.logs.FilterMessage("request timed").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "home", fields["route"])
	assert.Contains(t, fields, "took")
	assert.Equal(t, int64(http.StatusOK), fields["status"])
	assert.Equal(t, resp.Header.Get(fiber.HeaderXRequestID), fields["request_id"])
}

func TestRoutesWithoutResponseCaches(t *testing.T) {
	st := store.NewMemoryStore()
	provider := &stubProvider{temps: map[string]float64{"Paris": 18.2}}
	memo := cache.New[weather.Reading](5 * time.Minute)
	app := NewApp(Options{
		Deps: Deps{
			Service: weather.NewService(st, provider, memo, zap.NewNop(), nil),
			Logger:  zap.NewNop(),
		},
	})
	env := &testEnv{app: app, provider: provider, store: st}

	env.postCity(t, "Paris")

	resp, body := env.do(t, httptest.NewRequest(http.MethodGet, "/weather", nil))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, strings.Count(body, `class="observation"`))

	resp, _ = env.do(t, httptest.NewRequest(http.MethodGet, "/plot", nil))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get(fiber.HeaderContentType))
}

func TestAccessLogIsSeparateFromAppLog(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	logger := zap.New(core)
	var access bytes.Buffer

	app := NewApp(Options{
		Deps:      Deps{Logger: logger},
		AccessLog: &access,
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil), -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	assert.Contains(t, access.String(), "/health")
	assert.Zero(t, logs.Len())
}
