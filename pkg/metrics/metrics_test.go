package metrics_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "sqljob/pkg/metrics"
)

func TestRecordRun(t *testing.T) {
	before := testutil.ToFloat64(RunsTotal.WithLabelValues("CRASH"))

	RecordRun("CRASH", 0.25)
	RecordRun("CRASH", 0.5)

	assert.Equal(t, before+2, testutil.ToFloat64(RunsTotal.WithLabelValues("CRASH")))
}

func TestRecordBatch(t *testing.T) {
	LastSuccess.Set(0)

	RecordBatch(3*time.Second, false)
	assert.Equal(t, 3.0, testutil.ToFloat64(BatchDuration))
	assert.Zero(t, testutil.ToFloat64(LastSuccess))

	RecordBatch(time.Second, true)
	assert.Equal(t, 1.0, testutil.ToFloat64(BatchDuration))
	assert.Greater(t, testutil.ToFloat64(LastSuccess), 0.0)
}

func TestPush(t *testing.T) {
	var (
		mu   sync.Mutex
		path string
		body string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		mu.Lock()
		path, body = r.URL.Path, string(data)
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	FilesDiscovered.Set(3)
	require.NoError(t, Push(context.Background(), srv.URL, "sqljob"))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "/metrics/job/sqljob", path)
	assert.True(t, strings.Contains(body, "sqljob_files_discovered"))
}

func TestPush_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	assert.Error(t, Push(context.Background(), srv.URL, "sqljob"))
}
