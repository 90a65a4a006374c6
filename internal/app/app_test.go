package app

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hwbot/internal/config"
	kit "hwbot/internal/transport"
)

type memSender struct {
	mu   sync.Mutex
	sent []string
}

func (m *memSender) SendText(_ context.Context, to kit.ChatTarget, text string, _ *kit.SendOptions) (kit.MessageRef, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, text)
	return kit.MessageRef{ChatID: to.ChatID, MessageID: len(m.sent)}, nil
}

func (m *memSender) messages() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.sent...)
}

type countingTransport struct{ calls atomic.Int32 }

func (c *countingTransport) RoundTrip(*http.Request) (*http.Response, error) {
	c.calls.Add(1)
	return nil, errors.New("network must not be used")
}

func setEnv(t *testing.T, kv map[string]string) {
	t.Helper()
	for _, k := range []string{
		"PRACTICUM_TOKEN", "TELEGRAM_TOKEN", "TELEGRAM_CHAT_ID",
		"PRACTICUM_ENDPOINT", "POLL_INTERVAL", "LOG_LEVEL", "NOTIFY_SOCKET", "WATCHDOG_USEC",
	} {
		t.Setenv(k, kv[k])
	}
}

func TestNewRefusesMissingCredentials(t *testing.T) {
	full := map[string]string{
		"PRACTICUM_TOKEN":  "p-token",
		"TELEGRAM_TOKEN":   "t-token",
		"TELEGRAM_CHAT_ID": "12345",
	}
	for _, missing := range []string{"PRACTICUM_TOKEN", "TELEGRAM_TOKEN", "TELEGRAM_CHAT_ID"} {
		t.Run(missing, func(t *testing.T) {
			env := map[string]string{}
			for k, v := range full {
				if k != missing {
					env[k] = v
				}
			}
			setEnv(t, env)

			tr := &countingTransport{}
			sender := &memSender{}
			a, err := New(Options{Sender: sender, HTTPClient: &http.Client{Transport: tr}})
			require.Nil(t, a)
			require.ErrorIs(t, err, config.ErrConfigMissing)

			var me *config.MissingError
			require.ErrorAs(t, err, &me)
			assert.Equal(t, []string{missing}, me.Names)
			assert.Zero(t, tr.calls.Load())
			assert.Empty(t, sender.messages())
		})
	}
}

func TestNewRejectsBadPollInterval(t *testing.T) {
	setEnv(t, map[string]string{
		"PRACTICUM_TOKEN":  "p",
		"TELEGRAM_TOKEN":   "t",
		"TELEGRAM_CHAT_ID": "1",
		"POLL_INTERVAL":    "whenever",
	})
	_, err := New(Options{Sender: &memSender{}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "poll.interval")
}

func TestAppReportsStatusAndJournalsIt(t *testing.T) {
	var auth atomic.Value
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth.Store(r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"homeworks":[{"homework_name":"hw1","status":"approved"}],"current_date":1000}`))
	}))
	defer api.Close()

	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	yml := "logging:\n  level: error\n  console: true\nstorage:\n  driver: file\n  path: " + filepath.Join(dir, "journal") + "\n"
	require.NoError(t, os.WriteFile(cfgPath, []byte(yml), 0o600))

	setEnv(t, map[string]string{
		"PRACTICUM_TOKEN":    "p-token",
		"TELEGRAM_TOKEN":     "t-token",
		"TELEGRAM_CHAT_ID":   "12345",
		"PRACTICUM_ENDPOINT": api.URL,
		"POLL_INTERVAL":      "1h",
	})

	sender := &memSender{}
	a, err := New(Options{ConfigPath: cfgPath, Sender: sender, HTTPClient: api.Client()})
	require.NoError(t, err)
	require.NotNil(t, a.Journal())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, a.Start(ctx))

	want := `Status of "hw1" changed. Work reviewed: reviewer liked everything. Hooray!`
	require.Eventually(t, func() bool { return len(sender.messages()) == 1 }, 5*time.Second, 20*time.Millisecond)
	assert.Equal(t, want, sender.messages()[0])
	assert.Equal(t, "OAuth p-token", auth.Load())
	assert.Equal(t, want, a.Notifier().Last())

	require.Eventually(t, func() bool {
		got, err := a.Journal().Recent(context.Background(), 10)
		return err == nil && len(got) == 1 && got[0].Text == want && got[0].ChatID == 12345
	}, 5*time.Second, 20*time.Millisecond)

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer stopCancel()
	require.NoError(t, a.Stop(stopCtx, StopSignal))
	assert.Len(t, sender.messages(), 1)
}

func TestAppReportsRemoteFailureOnce(t *testing.T) {
	var hits atomic.Int32
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"message":"maintenance"}`))
	}))
	defer api.Close()

	setEnv(t, map[string]string{
		"PRACTICUM_TOKEN":    "p",
		"TELEGRAM_TOKEN":     "t",
		"TELEGRAM_CHAT_ID":   "7",
		"PRACTICUM_ENDPOINT": api.URL,
		"POLL_INTERVAL":      "1s",
		"LOG_LEVEL":          "error",
	})

	sender := &memSender{}
	a, err := New(Options{Sender: sender, HTTPClient: api.Client()})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, a.Start(ctx))

	require.Eventually(t, func() bool {
		return testutil.ToFloat64(a.Metrics().Suppressed) >= 1
	}, 10*time.Second, 50*time.Millisecond)
	assert.GreaterOrEqual(t, hits.Load(), int32(2))

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer stopCancel()
	require.NoError(t, a.Stop(stopCtx, StopSignal))

	assert.Equal(t, []string{"Program failure: api status code is not 200: 503 (maintenance)"}, sender.messages())
	assert.GreaterOrEqual(t, testutil.ToFloat64(a.Metrics().CycleFailures.WithLabelValues("fetch")), 2.0)
}

func TestApplyConfigSignalsReload(t *testing.T) {
	sock := filepath.Join(t.TempDir(), "notify.sock")
	conn, err := net.ListenUnixgram("unixgram", &net.UnixAddr{Name: sock, Net: "unixgram"})
	require.NoError(t, err)
	defer conn.Close()

	setEnv(t, map[string]string{
		"PRACTICUM_TOKEN":  "p",
		"TELEGRAM_TOKEN":   "t",
		"TELEGRAM_CHAT_ID": "1",
		"LOG_LEVEL":        "error",
		"NOTIFY_SOCKET":    sock,
	})
	a, err := New(Options{Sender: &memSender{}})
	require.NoError(t, err)
	defer a.logs.Close()

	old := a.cfgm.Get()
	next := *old
	next.Poll.Interval = "5m"
	next.Notifier.SendTimeout = "45s"
	a.applyConfig(old, &next)

	buf := make([]byte, 64)
	for _, want := range []string{"RELOADING=1", "READY=1"} {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		n, _, err := conn.ReadFromUnix(buf)
		require.NoError(t, err)
		assert.Equal(t, want, string(buf[:n]))
	}
	assert.Equal(t, 1.0, testutil.ToFloat64(a.Metrics().ConfigReloads.WithLabelValues("applied")))
}
