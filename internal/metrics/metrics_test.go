package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSync_CountsPerCollection(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewSync(reg)

	m.Snapshots.WithLabelValues("esame").Inc()
	m.Dropped.WithLabelValues("esame").Add(2)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Snapshots.WithLabelValues("esame")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Dropped.WithLabelValues("esame")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.Dropped.WithLabelValues("lezione")))
}

func TestNewSync_NilRegistererSkipsRegistration(t *testing.T) {
	assert.NotPanics(t, func() {
		NewSync(nil)
		NewSync(nil)
	})
}

func TestHandler_ExposesServerMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewServer(reg)
	m.Subscribers.WithLabelValues("esame").Set(3)
	m.Logins.WithLabelValues("ok").Inc()

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `survive_server_subscribers{collection="esame"} 3`)
	assert.Contains(t, body, `survive_server_logins_total{result="ok"} 1`)
}
