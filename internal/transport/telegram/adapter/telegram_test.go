package adapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	kit "hwbot/internal/transport"
	logx "hwbot/pkg/logx"
)

func TestSplitTelegramTextShort(t *testing.T) {
	t.Parallel()
	got := splitTelegramText("hello", 10, "")
	require.Equal(t, []string{"hello"}, got)
}

func TestSplitTelegramTextPrefersNewline(t *testing.T) {
	t.Parallel()
	in := strings.Repeat("a", 6) + "\n" + strings.Repeat("b", 6)
	got := splitTelegramText(in, 10, "")
	require.Equal(t, []string{strings.Repeat("a", 6), strings.Repeat("b", 6)}, got)
}

func TestSplitTelegramTextHardCut(t *testing.T) {
	t.Parallel()
	got := splitTelegramText(strings.Repeat("x", 25), 10, "")
	require.Len(t, got, 3)
	assert.Equal(t, strings.Repeat("x", 5), got[2])
}

func TestSplitTelegramTextAvoidsDanglingTag(t *testing.T) {
	t.Parallel()
	in := "abcdef<b>bold</b>"
	got := splitTelegramText(in, 8, "HTML")
	require.NotEmpty(t, got)
	assert.Equal(t, "abcdef", got[0])
	assert.Equal(t, in, strings.Join(got, ""))
}

type botAPI struct {
	mu    sync.Mutex
	texts []string
	chats []string
}

func (b *botAPI) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/sendMessage") {
			http.NotFound(w, r)
			return
		}
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		b.mu.Lock()
		b.texts = append(b.texts, asString(body["text"]))
		b.chats = append(b.chats, asString(body["chat_id"]))
		n := len(b.texts)
		b.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"ok": true,
			"result": map[string]any{
				"message_id": 40 + n,
				"date":       0,
				"chat":       map[string]any{"id": 777, "type": "private"},
				"text":       body["text"],
			},
		})
	}
}

func asString(v any) string {
	if v == nil {
		return ""
	}
	return fmt.Sprint(v)
}

func TestSendTextDeliversToChat(t *testing.T) {
	api := &botAPI{}
	srv := httptest.NewServer(api.handler(t))
	defer srv.Close()

	a, err := New(Config{Token: "123:abc", URL: srv.URL, Offline: true}, logx.Nop())
	require.NoError(t, err)

	ref, err := a.SendText(context.Background(), kit.ChatTarget{ChatID: 777}, "Status changed", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(777), ref.ChatID)
	assert.Equal(t, 41, ref.MessageID)

	api.mu.Lock()
	defer api.mu.Unlock()
	require.Equal(t, []string{"Status changed"}, api.texts)
	assert.Equal(t, []string{"777"}, api.chats)
}

func TestSendTextRejectsEmptyTarget(t *testing.T) {
	a, err := New(Config{Token: "123:abc", URL: "http://127.0.0.1:1", Offline: true}, logx.Nop())
	require.NoError(t, err)

	_, err = a.SendText(context.Background(), kit.ChatTarget{}, "x", nil)
	require.Error(t, err)
}

func TestNewRequiresToken(t *testing.T) {
	_, err := New(Config{Token: "  "}, logx.Nop())
	require.Error(t, err)
}

func TestSendTextErrorHidesToken(t *testing.T) {
	const token = "123:SECRETTOKEN"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(300 * time.Millisecond):
		}
	}))
	defer srv.Close()

	a, err := New(Config{Token: token, URL: srv.URL, Offline: true, RequestTimeout: 50 * time.Millisecond}, logx.Nop())
	require.NoError(t, err)

	_, err = a.SendText(context.Background(), kit.ChatTarget{ChatID: 777}, "hello", nil)
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "SECRETTOKEN")
	assert.Contains(t, err.Error(), "<redacted>")
}

func TestRedactTokenLeavesOtherErrorsAlone(t *testing.T) {
	plain := errors.New("telegram: chat not found")
	assert.Same(t, plain, redactToken(plain, "123:abc"))
	assert.Nil(t, redactToken(nil, "123:abc"))
	assert.Equal(t, "Post /bot<redacted>/sendMessage: EOF", redactToken(errors.New("Post /bot123:abc/sendMessage: EOF"), "123:abc").Error())
}
