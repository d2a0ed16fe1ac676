package app

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/odyssey-erp/flexcard/testing"

	"github.com/odyssey-erp/flexcard/internal/card"
	"github.com/odyssey-erp/flexcard/internal/observability"
	"github.com/odyssey-erp/flexcard/jobs"
)

func newTestRouter(t *testing.T, cfg *Config) http.Handler {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	metrics := observability.NewMetrics()
	svc := card.NewService(card.NewRedisStore(client, time.Hour), card.Deps{Observer: metrics})
	return NewRouter(RouterParams{
		Config:      cfg,
		CardHandler: card.NewHandler(nil, svc),
		JobHandler:  jobs.NewHandler(nil, nil),
		Metrics:     metrics,
	})
}

func TestRouterHealthAndHeaders(t *testing.T) {
	router := newTestRouter(t, &Config{RateLimitPerMin: 100})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.NotEmpty(t, rec.Header().Get("Content-Security-Policy"))
}

func TestRouterMountsCardsJobsAndMetrics(t *testing.T) {
	router := newTestRouter(t, &Config{RateLimitPerMin: 100})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/cards", bytes.NewBufferString(`{"account_id":"001"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/cards/unknown", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/jobs/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "flexcard_http_requests_total"))
}

func TestRouterRateLimit(t *testing.T) {
	router := newTestRouter(t, &Config{RateLimitPerMin: 2})

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		req.RemoteAddr = "203.0.113.7:5555"
		router.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}
