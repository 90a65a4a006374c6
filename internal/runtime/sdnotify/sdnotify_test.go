package sdnotify

import (
	"context"
	"net"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	logx "hwbot/pkg/logx"
)

func TestNoSocketIsNoop(t *testing.T) {
	t.Setenv("NOTIFY_SOCKET", "")
	t.Setenv("WATCHDOG_USEC", "")
	n := New(logx.Nop())
	assert.Zero(t, n.WatchdogInterval())
	n.Ready()
	n.Watchdog()
	n.Stopping()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	n.KeepAlive(ctx, nil)
}

func listenNotify(t *testing.T) *net.UnixConn {
	t.Helper()
	sock := filepath.Join(t.TempDir(), "notify.sock")
	conn, err := net.ListenUnixgram("unixgram", &net.UnixAddr{Name: sock, Net: "unixgram"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	t.Setenv("NOTIFY_SOCKET", sock)
	return conn
}

func readState(conn *net.UnixConn, wait time.Duration) (string, error) {
	if err := conn.SetReadDeadline(time.Now().Add(wait)); err != nil {
		return "", err
	}
	buf := make([]byte, 64)
	n, _, err := conn.ReadFromUnix(buf)
	if err != nil {
		return "", err
	}
	return string(buf[:n]), nil
}

func TestReadyReachesSocket(t *testing.T) {
	conn := listenNotify(t)
	t.Setenv("WATCHDOG_USEC", "")
	New(logx.Nop()).Ready()

	got, err := readState(conn, 2*time.Second)
	require.NoError(t, err)
	assert.Equal(t, "READY=1", got)
}

func TestReloadingReachesSocket(t *testing.T) {
	conn := listenNotify(t)
	t.Setenv("WATCHDOG_USEC", "")
	n := New(logx.Nop())
	n.Reloading()
	n.Ready()

	for _, want := range []string{"RELOADING=1", "READY=1"} {
		got, err := readState(conn, 2*time.Second)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestKeepAliveWithholdsPingWhileStalled(t *testing.T) {
	conn := listenNotify(t)
	t.Setenv("WATCHDOG_USEC", "100000")
	t.Setenv("WATCHDOG_PID", "")
	n := New(logx.Nop())
	require.Equal(t, 100*time.Millisecond, n.WatchdogInterval())

	var alive atomic.Bool
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		n.KeepAlive(ctx, alive.Load)
	}()
	defer func() {
		cancel()
		<-done
	}()

	_, err := readState(conn, 300*time.Millisecond)
	require.Error(t, err, "no ping expected while stalled")

	alive.Store(true)
	got, err := readState(conn, 2*time.Second)
	require.NoError(t, err)
	assert.Equal(t, "WATCHDOG=1", got)
}
