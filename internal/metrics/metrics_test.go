package metrics

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveExport(t *testing.T) {
	m := New()

	m.ObserveExport("Blog Public", 30*time.Second, nil)
	m.ObserveExport("Blog Public", 10*time.Second, errors.New("boom"))
	m.ObserveExport("Blog Public", 20*time.Second, nil)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.exportsTotal.WithLabelValues("Blog Public", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.exportsTotal.WithLabelValues("Blog Public", "failure")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.exportDuration))
}

func TestGauges(t *testing.T) {
	m := New()

	m.SetEntries("Blog Public", map[string]int{"added": 3, "removed": 1})
	m.SetPendingMigrations(2)
	m.MarkRun(time.Unix(1700000000, 0))

	assert.Equal(t, 3.0, testutil.ToFloat64(m.entries.WithLabelValues("Blog Public", "added")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.entries.WithLabelValues("Blog Public", "removed")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.pending))
	assert.Equal(t, 1700000000.0, testutil.ToFloat64(m.lastRun))
}

func TestPush(t *testing.T) {
	var (
		method, path string
		body         string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method, path = r.Method, r.URL.Path
		b, _ := io.ReadAll(r.Body)
		body = string(b)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	m := New()
	m.SetPendingMigrations(4)

	require.NoError(t, m.Push(context.Background(), srv.URL, "journalsync"))
	assert.Equal(t, http.MethodPut, method)
	assert.True(t, strings.HasPrefix(path, "/metrics/job/journalsync"), path)
	assert.NotEmpty(t, body)
}

func TestPush_GatewayError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	err := New().Push(context.Background(), srv.URL, "journalsync")
	require.Error(t, err)
}
