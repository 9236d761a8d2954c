package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	m := MustNewMetrics(prometheus.NewRegistry())

	m.IncUpload("default", "ok")
	m.IncUpload("default", "ok")
	m.IncUpload("compact", "storage_upload_failed")
	m.AddCleanupFailures(2)
	m.AddCleanupFailures(0)
	m.ObserveRequest(http.MethodPost, "/api/upload-image", "200", 10*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.uploads.WithLabelValues("default", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.uploads.WithLabelValues("compact", "storage_upload_failed")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.cleanupFailures))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("POST", "/api/upload-image", "200")))
}

func TestMetrics_ObserveStage(t *testing.T) {
	m := MustNewMetrics(prometheus.NewRegistry())

	m.ObserveStage("resize", nil, time.Millisecond)
	m.ObserveStage("storage", errors.New("down"), time.Second)

	assert.Equal(t, 2, testutil.CollectAndCount(m.stageDuration))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics

	m.IncUpload("default", "ok")
	m.AddCleanupFailures(1)
	m.ObserveStage("resize", nil, time.Millisecond)
	m.ObserveRequest("GET", "/health", "200", time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMetrics_HandlerExposesRegistry(t *testing.T) {
	m := MustNewMetrics(prometheus.NewRegistry())
	m.IncUpload("default", "ok")

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `imgrelay_uploads_total{profile="default",result="ok"} 1`)
}
