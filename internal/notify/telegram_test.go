package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTelegram_RoutesChannels(t *testing.T) {
	var got []sendMessageRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/botTOKEN/sendMessage", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		var req sendMessageRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		got = append(got, req)
		w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	tg := NewTelegram(TelegramConfig{
		BaseURL:     server.URL,
		Token:       "TOKEN",
		DefaultChat: "100",
		Chats:       map[string]string{ChannelTrades: "200"},
	})

	require.NoError(t, tg.Notify(context.Background(), ChannelTrades, "bought"))
	require.NoError(t, tg.Notify(context.Background(), ChannelAlerts, "rejected"))

	require.Len(t, got, 2)
	assert.Equal(t, "200", got[0].ChatID)
	assert.Equal(t, "bought", got[0].Text)
	assert.Equal(t, "100", got[1].ChatID)
}

func TestTelegram_NoChat(t *testing.T) {
	tg := NewTelegram(TelegramConfig{Token: "TOKEN"})
	err := tg.Notify(context.Background(), ChannelAlerts, "x")
	assert.ErrorIs(t, err, ErrNoChat)
}

func TestTelegram_APIErrorHidesToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"ok":false,"description":"Bad Request: chat not found"}`))
	}))
	defer server.Close()

	tg := NewTelegram(TelegramConfig{BaseURL: server.URL, Token: "SECRET", DefaultChat: "1"})
	err := tg.Notify(context.Background(), ChannelTrades, "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chat not found")
	assert.NotContains(t, err.Error(), "SECRET")
}

func TestTelegram_BreakerOpensOnRepeatedFailures(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	logger, hook := test.NewNullLogger()
	tg := NewTelegram(TelegramConfig{BaseURL: server.URL, Token: "T", DefaultChat: "1"}, WithLogger(logger))

	for i := 0; i < MaxNumOfFailingRequests; i++ {
		require.Error(t, tg.Notify(context.Background(), ChannelTrades, "x"))
	}
	assert.Equal(t, int32(MaxNumOfFailingRequests), atomic.LoadInt32(&hits))

	err := tg.Notify(context.Background(), ChannelTrades, "x")
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, int32(MaxNumOfFailingRequests), atomic.LoadInt32(&hits))

	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
}

func TestNopAndLog(t *testing.T) {
	assert.NoError(t, Nop{}.Notify(context.Background(), ChannelTrades, "x"))

	logger, hook := test.NewNullLogger()
	require.NoError(t, Log{Logger: logger}.Notify(context.Background(), ChannelAlerts, "token rejected"))
	require.Len(t, hook.Entries, 1)
	assert.Equal(t, "token rejected", hook.Entries[0].Message)
	assert.Equal(t, ChannelAlerts, hook.Entries[0].Data["channel"])
}
