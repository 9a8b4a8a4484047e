package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hrp_projects/internal/domain"
)

func TestRecordPlan(t *testing.T) {
	c := NewCollector(prometheus.NewRegistry())

	c.RecordPlan("kept")
	c.RecordPlan("kept")
	c.RecordPlan("no_projects")

	assert.Equal(t, 2.0, testutil.ToFloat64(c.plans.WithLabelValues("kept")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.plans.WithLabelValues("no_projects")))
}

func TestRecordActionAndError(t *testing.T) {
	c := NewCollector(prometheus.NewRegistry())

	c.RecordAction("create")
	c.RecordError("update")
	c.RecordError("update")

	assert.Equal(t, 1.0, testutil.ToFloat64(c.actions.WithLabelValues("create")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.errors.WithLabelValues("update")))
}

func TestObserveRun(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.ObserveRun(&domain.SyncStats{Countries: 7, Created: 2, Unchanged: 5, Charts: 2, Duration: 3 * time.Second})

	assert.Equal(t, 7.0, testutil.ToFloat64(c.countries))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.lastRun.WithLabelValues("create")))
	assert.Equal(t, 5.0, testutil.ToFloat64(c.lastRun.WithLabelValues("unchanged")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.chartsPushed))
	assert.Greater(t, testutil.ToFloat64(c.lastSuccess), 0.0)
	assert.Equal(t, 1, testutil.CollectAndCount(c.runDuration))
}

func TestObserveRun_ErrorsKeepLastSuccess(t *testing.T) {
	c := NewCollector(prometheus.NewRegistry())

	c.ObserveRun(&domain.SyncStats{Errors: 1})

	assert.Equal(t, 0.0, testutil.ToFloat64(c.lastSuccess))
}

func TestPush(t *testing.T) {
	var path, body string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		buf := new(strings.Builder)
		_, _ = io.Copy(buf, r.Body)
		body = buf.String()
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	c.RecordAction("create")

	require.NoError(t, Push(context.Background(), srv.URL, "hrp_projects", reg))
	assert.Equal(t, "/metrics/job/hrp_projects", path)
	assert.NotEmpty(t, body)
}

func TestPush_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	err := Push(context.Background(), srv.URL, "hrp_projects", prometheus.NewRegistry())

	assert.Error(t, err)
}
