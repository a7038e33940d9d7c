package main

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"phone8/internal/config"
	"phone8/internal/middleware"
	"phone8/internal/storefront"
)

// MockPublisher is a mock implementation of storefront.EventPublisher
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishEvent(eventType string, payload interface{}) error {
	args := m.Called(eventType, payload)
	return args.Error(0)
}

func testConfig(apiURL string) *config.Config {
	return &config.Config{
		AppPort:      ":0",
		APIURL:       apiURL,
		FetchTimeout: time.Second,
		RetryDelay:   0,
		PageSize:     8,
		SessionTTL:   time.Minute,
		LogLevel:     "info",
	}
}

func catalogBackend(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id": 7, "name": "Pixel 8", "brand": "Google", "category": "Flagship", "price": 18990000, "stock": 4}]`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestHealthCheck(t *testing.T) {
	app, registry := newApp(context.Background(), testConfig("http://localhost:8000"), nil, zap.NewNop())
	defer registry.Close()

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, false, body["events"])

	// Health checks do not mount sessions.
	assert.Equal(t, 0, registry.Len())
	for _, c := range resp.Cookies() {
		assert.NotEqual(t, middleware.VisitorCookie, c.Name)
	}
}

func TestServesFallbackImage(t *testing.T) {
	app, registry := newApp(context.Background(), testConfig("http://localhost:8000"), nil, zap.NewNop())
	defer registry.Close()

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/static/no-image.svg", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "No Image")
	assert.Equal(t, 0, registry.Len())
}

func TestUnroutedPathsDoNotMountSessions(t *testing.T) {
	var hits int32
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	}))
	defer backend.Close()

	app, registry := newApp(context.Background(), testConfig(backend.URL), nil, zap.NewNop())
	defer registry.Close()

	for _, target := range []string{"/favicon.ico", "/robots.txt"} {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, target, nil), -1)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode, target)
		for _, c := range resp.Cookies() {
			assert.NotEqual(t, middleware.VisitorCookie, c.Name)
		}
	}

	assert.Equal(t, 0, registry.Len())
	assert.Equal(t, int32(0), atomic.LoadInt32(&hits))
}

func TestStorefrontPublishesEvents(t *testing.T) {
	backend := catalogBackend(t)
	publisher := new(MockPublisher)
	publisher.On("PublishEvent", storefront.EventCatalogLoaded, mock.AnythingOfType("storefront.CatalogEvent")).Return(nil).Once()
	publisher.On("PublishEvent", storefront.EventCartChanged, mock.AnythingOfType("storefront.CartEvent")).Return(nil).Once()

	app, registry := newApp(context.Background(), testConfig(backend.URL), publisher, zap.NewNop())
	defer registry.Close()

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil), -1)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var cookie *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == middleware.VisitorCookie {
			cookie = c
		}
	}
	require.NotNil(t, cookie)

	require.Eventually(t, func() bool {
		v, ok := registry.Lookup(cookie.Value)
		return ok && v.Session.Snapshot().Catalog.Phase.Settled()
	}, 2*time.Second, 10*time.Millisecond)

	req := httptest.NewRequest(http.MethodPost, "/cart/7/add", nil)
	req.AddCookie(&http.Cookie{Name: cookie.Name, Value: cookie.Value})
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)

	publisher.AssertExpectations(t)
}

func TestNewLogger(t *testing.T) {
	level := zap.NewAtomicLevelAt(zapcore.WarnLevel)
	logger, err := newLogger(level)
	require.NoError(t, err)

	assert.False(t, logger.Core().Enabled(zapcore.InfoLevel))
	level.SetLevel(zapcore.DebugLevel)
	assert.True(t, logger.Core().Enabled(zapcore.DebugLevel))
}

func TestSweepInterval(t *testing.T) {
	assert.Equal(t, 5*time.Minute, sweepInterval(20*time.Minute))
	assert.Equal(t, time.Second, sweepInterval(time.Second))
}
