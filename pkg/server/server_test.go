package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voxar-platform/spatialmetrics/pkg/config"
	"github.com/voxar-platform/spatialmetrics/pkg/metrics"
)

func newTestServer(t *testing.T) (*Server, *metrics.Engine) {
	t.Helper()
	engine := metrics.NewEngine(metrics.Config{})
	srv := New(config.DefaultConfig().Server, engine, zerolog.Nop())
	return srv, engine
}

func TestServer_MetricsEndpoint(t *testing.T) {
	srv, engine := newTestServer(t)
	engine.IncrementCounter("requests_total", 3, nil)
	engine.RecordSample("op", 0.4, nil)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	resp := w.Result()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/plain; version=0.0.4", resp.Header.Get("Content-Type"))

	body := w.Body.String()
	assert.Contains(t, body, "# TYPE vps_requests_total counter")
	assert.Contains(t, body, "vps_requests_total 3")
	assert.Contains(t, body, `vps_op_histogram_bucket{le="+Inf"} 1`)
}

func TestServer_MetricsEndpoint_JSONFormat(t *testing.T) {
	srv, engine := newTestServer(t)
	engine.IncrementCounter("x", 1, nil)

	req := httptest.NewRequest(http.MethodGet, "/metrics?format=json", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	assert.Equal(t, "application/json", w.Result().Header.Get("Content-Type"))

	var snap metrics.SnapshotReply
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
	assert.Equal(t, uint64(1), snap.Counters["x"])
}

func TestServer_SnapshotEndpoint(t *testing.T) {
	srv, engine := newTestServer(t)
	engine.SetGauge("g", 2.5, nil)

	req := httptest.NewRequest(http.MethodGet, "/snapshot", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	var snap metrics.SnapshotReply
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
	assert.Equal(t, 2.5, snap.Gauges["g"])
	assert.Equal(t, 86400.0, snap.WindowSeconds)
}

func TestServer_HealthEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Result().StatusCode)

	var reply map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &reply))
	assert.Equal(t, "ok", reply["status"])
}

func TestServer_MethodNotAllowed(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/metrics", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusMethodNotAllowed, w.Result().StatusCode)
}
