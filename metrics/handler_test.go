package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

func TestHandlerServesPrometheusExpositionFormat(t *testing.T) {
	m := New("handler_test_ns")
	m.RecordToolCall("add_cube", "ok", 10*time.Millisecond)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	Handler()(echo.New().NewContext(req, rec))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "handler_test_ns_tool_calls_total")
}

func TestRegisterDefaultsPathWhenBlank(t *testing.T) {
	e := echo.New()
	Register(e, "")

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRegisterMountsAtCustomPath(t *testing.T) {
	e := echo.New()
	Register(e, "/internal/metrics")

	req := httptest.NewRequest(http.MethodGet, "/internal/metrics", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}
