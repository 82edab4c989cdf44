package gatewayapp

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cubeforge/gateway/config"
)

func newTestConfig(t *testing.T, redisAddr string) *config.Config {
	t.Helper()
	return &config.Config{
		Port:               8787,
		PluginVersion:      "test",
		RevisionCacheSize:  16,
		TraceMaxEntries:    100,
		TraceMaxBytes:      0,
		TraceFlushEvery:    1000,
		TraceFlushInterval: 0,
		SessionTTL:         0,
		RedisURL:           "redis://" + redisAddr + "/0",
		PersistenceBackend: "memory",
		// Each test gets its own namespace: promauto registers every
		// metric against the global default registry, and a repeat
		// registration under the same name panics.
		MetricsNamespace: "gatewayapp_test_" + t.Name(),
	}
}

func TestNewBuildsAppAgainstMemoryBackend(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	app, err := New(newTestConfig(t, mr.Addr()), logrus.NewEntry(logrus.StandardLogger()))
	require.NoError(t, err)
	require.NotNil(t, app)
	defer app.Close()

	assert.NotNil(t, app.router)
	assert.NotNil(t, app.jobs)
	assert.NotNil(t, app.sessions)
}

func TestNewRejectsUnreachableRedis(t *testing.T) {
	cfg := newTestConfig(t, "127.0.0.1:1")
	cfg.RedisURL = "redis://127.0.0.1:1/0"

	_, err := New(cfg, logrus.NewEntry(logrus.StandardLogger()))
	assert.Error(t, err)
}

func TestNewRejectsUnknownPersistenceBackend(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	cfg := newTestConfig(t, mr.Addr())
	cfg.PersistenceBackend = "nonsense"

	_, err = New(cfg, logrus.NewEntry(logrus.StandardLogger()))
	assert.Error(t, err)
}

func TestRegisterMountsHealthzAndMetrics(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	app, err := New(newTestConfig(t, mr.Addr()), logrus.NewEntry(logrus.StandardLogger()))
	require.NoError(t, err)
	defer app.Close()

	e := echo.New()
	app.Register(e)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)

	req2 := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec2 := httptest.NewRecorder()
	e.ServeHTTP(rec2, req2)
	assert.Equal(t, http.StatusOK, rec2.Code)
}
