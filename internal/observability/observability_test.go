package observability

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	logx "hwbot/pkg/logx"
)

func TestMetricsRecordCycles(t *testing.T) {
	t.Parallel()
	m := NewMetrics()

	m.CycleFinished("", 20*time.Millisecond)
	m.CycleFinished("fetch", time.Second)
	m.CycleFinished("fetch", time.Second)
	m.MessageSent("status")
	m.MessageSent("failure")
	m.ErrorSuppressed()

	assert.Equal(t, 3.0, testutil.ToFloat64(m.Cycles))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.CycleFailures.WithLabelValues("fetch")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.MessagesSent.WithLabelValues("status")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Suppressed))
	assert.Greater(t, testutil.ToFloat64(m.LastSuccessUnix), 0.0)
}

func TestHandlerRoutes(t *testing.T) {
	t.Parallel()
	m := NewMetrics()
	m.CycleFinished("", time.Millisecond)
	m.GaugeFunc("goroutines_supervised", "Supervised goroutines", func() float64 { return 4 })

	srv := httptest.NewServer(NewServer(Config{}, m, logx.Nop()).Handler())
	defer srv.Close()

	body := get(t, srv.URL+"/metrics", http.StatusOK)
	assert.Contains(t, body, "hwbot_poll_cycles_total 1")
	assert.Contains(t, body, "hwbot_goroutines_supervised 4")

	assert.Equal(t, "ok", get(t, srv.URL+"/healthz", http.StatusOK))
	get(t, srv.URL+"/debug/pprof/", http.StatusNotFound)
}

func TestHandlerPprof(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(NewServer(Config{Pprof: true}, NewMetrics(), logx.Nop()).Handler())
	defer srv.Close()

	assert.Contains(t, get(t, srv.URL+"/debug/pprof/", http.StatusOK), "goroutine")
}

func TestServeStopsOnCancel(t *testing.T) {
	t.Parallel()
	s := NewServer(Config{Addr: "127.0.0.1:0"}, NewMetrics(), logx.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx) }()

	require.Eventually(t, func() bool { return s.Addr() != "" }, 2*time.Second, 10*time.Millisecond)
	get(t, "http://"+s.Addr()+"/healthz", http.StatusOK)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
	assert.Empty(t, s.Addr())
}

func TestServeListenError(t *testing.T) {
	t.Parallel()
	s := NewServer(Config{Addr: "not-an-addr"}, NewMetrics(), logx.Nop())
	require.Error(t, s.Serve(context.Background()))
}

func TestIsLoopbackAddr(t *testing.T) {
	t.Parallel()
	assert.True(t, isLoopbackAddr("127.0.0.1:9090"))
	assert.True(t, isLoopbackAddr("localhost:9090"))
	assert.True(t, isLoopbackAddr("[::1]:9090"))
	assert.False(t, isLoopbackAddr(":9090"))
	assert.False(t, isLoopbackAddr("0.0.0.0:9090"))
	assert.False(t, isLoopbackAddr("garbage"))
}

func get(t *testing.T, url string, want int) string {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, want, resp.StatusCode, string(b))
	return string(b)
}
