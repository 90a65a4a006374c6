package logx

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	kit "hwbot/internal/transport"
)

func TestZeroLoggerIsNoop(t *testing.T) {
	var l Logger
	require.True(t, l.IsZero())
	l.Info("dropped", String("k", "v"))
}

func TestJSONLoggerWritesFields(t *testing.T) {
	var buf bytes.Buffer
	l := NewJSON(&buf, "debug").With(String("comp", "poller"))
	l.Warn("malformed response", Int64("ts", 1000))

	var m map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &m))
	assert.Equal(t, "warn", m["level"])
	assert.Equal(t, "malformed response", m["message"])
	assert.Equal(t, "poller", m["comp"])
	assert.EqualValues(t, 1000, m["ts"])
	assert.Contains(t, m[zerolog.CallerFieldName], "logging_test.go:")
}

func TestParseLevel(t *testing.T) {
	t.Parallel()
	tests := map[string]zerolog.Level{
		"debug":    zerolog.DebugLevel,
		" INFO ":   zerolog.InfoLevel,
		"warning":  zerolog.WarnLevel,
		"critical": zerolog.ErrorLevel,
		"bogus":    zerolog.InfoLevel,
	}
	for in, want := range tests {
		assert.Equal(t, want, parseLevel(in, zerolog.InfoLevel), in)
	}
}

func TestFormatTelegramJSON(t *testing.T) {
	t.Parallel()
	line := []byte(`{"level":"error","time":"x","caller":"a.go:1","message":"cycle failed","stage":"fetch","comp":"poller"}`)
	got := formatTelegramJSON(line)
	require.Equal(t, "[ERROR] cycle failed\n- comp=poller\n- stage=fetch", got)
}

func TestTelegramSinkRespectsMinLevel(t *testing.T) {
	var (
		mu   sync.Mutex
		sent []string
	)
	sender := kit.SenderFunc(func(_ context.Context, _ kit.ChatTarget, text string, _ *kit.SendOptions) (kit.MessageRef, error) {
		mu.Lock()
		sent = append(sent, text)
		mu.Unlock()
		return kit.MessageRef{}, nil
	})

	sink := newTelegramSink(sender, kit.ChatTarget{ChatID: 5})
	sink.configure(zerolog.WarnLevel, rate.NewLimiter(rate.Inf, 1))
	sink.start()
	defer sink.stop()

	_, _ = sink.WriteLevel(zerolog.InfoLevel, []byte(`{"level":"info","message":"quiet"}`))
	_, _ = sink.WriteLevel(zerolog.ErrorLevel, []byte(`{"level":"error","message":"loud"}`))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(sent) == 1
	}, time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.True(t, strings.HasPrefix(sent[0], "[ERROR] loud"))
}

func TestTruncate(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))

	// "Домашка" is two bytes per rune; cutting at 10 bytes lands mid-rune.
	got := truncate("Домашка проверена", 10)
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, "Дом...", got)
	assert.Equal(t, "Д", truncate("Домашка", 3))
}
