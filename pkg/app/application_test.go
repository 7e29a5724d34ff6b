package app

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"smartpark/pkg/config"
	"smartpark/pkg/logger"

	"github.com/julienschmidt/httprouter"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type routes func(*httprouter.Router)

func (r routes) RegisterRoutes(router *httprouter.Router) { r(router) }

func newTestApplication(t *testing.T) *Application {
	t.Helper()
	cfg := &config.Config{
		Port:              "8080",
		Log:               logger.Discard(),
		RateLimitRequests: 2,
		RateLimitWindow:   time.Minute,
		RequestTimeout:    time.Second,
		IdempotencyTTL:    time.Minute,
		MaxRequestSize:    1024,
		ReadTimeout:       time.Second,
		WriteTimeout:      time.Second,
		IdleTimeout:       time.Second,
		ShutdownTimeout:   time.Second,
	}

	health := routes(func(r *httprouter.Router) {
		r.GET("/health", func(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
			w.WriteHeader(http.StatusOK)
		})
	})
	api := routes(func(r *httprouter.Router) {
		r.POST("/api/v1/checkins", func(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
			w.WriteHeader(http.StatusCreated)
		})
	})

	reg := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "test_probe_total", Help: "probe"})
	reg.MustRegister(counter)
	counter.Inc()

	a := NewApplication(cfg)
	a.SetApp(health, api, reg)
	t.Cleanup(func() {
		a.idempotencyStore.Stop()
		a.rateLimiter.Stop()
	})
	return a
}

func TestApplication_Routes(t *testing.T) {
	a := newTestApplication(t)
	h := a.Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "test_probe_total 1")
}

func TestApplication_AppMiddleware(t *testing.T) {
	a := newTestApplication(t)
	h := a.Handler()

	post := func(contentType string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/checkins", strings.NewReader(`{}`))
		req.Header.Set("Content-Type", contentType)
		req.Header.Set("X-Client-ID", "kiosk")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusUnsupportedMediaType, post("text/plain").Code)
	assert.Equal(t, http.StatusCreated, post("application/json").Code)
	assert.Equal(t, http.StatusCreated, post("application/json").Code)
	assert.Equal(t, http.StatusTooManyRequests, post("application/json").Code)
}
