package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Adam-Cosner/monitord/internal/collector"
	"github.com/Adam-Cosner/monitord/internal/config"
	"github.com/Adam-Cosner/monitord/internal/engine"
	"github.com/Adam-Cosner/monitord/internal/model"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCollector mirrors the engine test double: canned payloads per category.
type fakeCollector struct {
	cat model.Category
	min time.Duration
}

func (f *fakeCollector) Category() model.Category   { return f.cat }
func (f *fakeCollector) MinInterval() time.Duration { return f.min }
func (f *fakeCollector) Collect(context.Context) (*model.Snapshot, error) {
	snap := &model.Snapshot{Category: f.cat, CollectedAt: time.Now()}
	switch f.cat {
	case model.CategoryCPU:
		snap.CPU = &model.CPUInfo{GlobalUtilization: 7}
	case model.CategoryMemory:
		snap.Memory = &model.MemoryInfo{TotalBytes: 1024}
	case model.CategoryNetwork:
		snap.Networks = &model.NetworkList{Interfaces: []model.NetworkInfo{
			{InterfaceName: "eth0"}, {InterfaceName: "lo"},
		}}
	default:
		snap.System = &model.SystemInfo{Hostname: "test"}
		snap.Category = model.CategorySystem
	}
	return snap, nil
}

func newTestRouter(t *testing.T) (*Router, *engine.Engine) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cols := []collector.Collector{
		&fakeCollector{cat: model.CategorySystem, min: 10 * time.Millisecond},
		&fakeCollector{cat: model.CategoryCPU, min: 10 * time.Millisecond},
		&fakeCollector{cat: model.CategoryMemory, min: 10 * time.Millisecond},
		&fakeCollector{cat: model.CategoryNetwork, min: 10 * time.Millisecond},
	}
	cfg := config.Default()
	eng := engine.New(cfg, collector.NewRegistryOf(cols...), slog.Default())
	require.NoError(t, eng.Start(context.Background()))
	t.Cleanup(func() { eng.Shutdown(2 * time.Second) })
	return NewRouter(eng, "/api/v1", slog.Default()), eng
}

func doReq(t *testing.T, h http.Handler, method, path string, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestHealthz(t *testing.T) {
	r, _ := newTestRouter(t)
	w := doReq(t, r.Handler(), http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	r, _ := newTestRouter(t)
	w := doReq(t, r.Handler(), http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCompositeSnapshot(t *testing.T) {
	r, _ := newTestRouter(t)
	w := doReq(t, r.Handler(), http.MethodGet, "/api/v1/snapshot", "")
	require.Equal(t, http.StatusOK, w.Code)

	var snap model.CompositeSnapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
	require.NotNil(t, snap.CPU)
	assert.Equal(t, 7.0, snap.CPU.GlobalUtilization)
	require.NotNil(t, snap.Memory)
	assert.Nil(t, snap.GPUs, "unregistered category stays absent")
}

func TestSingleCategorySnapshot(t *testing.T) {
	r, _ := newTestRouter(t)
	w := doReq(t, r.Handler(), http.MethodGet, "/api/v1/snapshot?category=memory", "")
	require.Equal(t, http.StatusOK, w.Code)

	var snap model.Snapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
	assert.Equal(t, model.CategoryMemory, snap.Category)
	require.NotNil(t, snap.Memory)
	assert.Equal(t, uint64(1024), snap.Memory.TotalBytes)
}

func TestSnapshotRejectsBadCategory(t *testing.T) {
	r, _ := newTestRouter(t)
	w := doReq(t, r.Handler(), http.MethodGet, "/api/v1/snapshot?category=quantum", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), engine.StatusInvalidType)

	w = doReq(t, r.Handler(), http.MethodGet, "/api/v1/snapshot?category=all", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListSubscriptionsEmpty(t *testing.T) {
	r, _ := newTestRouter(t)
	w := doReq(t, r.Handler(), http.MethodGet, "/api/v1/subscriptions", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "subscriptions")
}

func TestUnsubscribeIsIdempotentOverHTTP(t *testing.T) {
	r, _ := newTestRouter(t)
	w := doReq(t, r.Handler(), http.MethodDelete, "/api/v1/subscriptions/no-such-id", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSignalValidation(t *testing.T) {
	r, _ := newTestRouter(t)
	h := r.Handler()

	w := doReq(t, h, http.MethodPost, "/api/v1/processes/abc/signal", `{"signal":"SIGTERM"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doReq(t, h, http.MethodPost, "/api/v1/processes/1/signal", `{"signal":"SIGHUP"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doReq(t, h, http.MethodPost, "/api/v1/processes/1/signal", `not-json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSanitizeBase(t *testing.T) {
	assert.Equal(t, "", sanitizeBase(""))
	assert.Equal(t, "", sanitizeBase("/"))
	assert.Equal(t, "/api", sanitizeBase("api"))
	assert.Equal(t, "/api/v1", sanitizeBase("/api/v1/"))
}

func TestStatusCodeMapping(t *testing.T) {
	assert.Equal(t, http.StatusOK, statusCodeOf(engine.StatusSuccess))
	assert.Equal(t, http.StatusTooManyRequests, statusCodeOf(engine.StatusResourceNotAvailable))
	assert.Equal(t, http.StatusBadRequest, statusCodeOf(engine.StatusInvalidFilter))
	assert.Equal(t, http.StatusInternalServerError, statusCodeOf(engine.StatusInternalError))
}
