package slack

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/notify-engine/internal/gateway"
	"github.com/jwalitptl/notify-engine/internal/model"
	"github.com/jwalitptl/notify-engine/pkg/httpclient"
)

func newTestAdapter(t *testing.T, server *httptest.Server) gateway.Gateway {
	t.Helper()
	adapter, err := New(model.GatewayConfig{
		"bot_token":       "xoxb-test",
		"default_channel": "#alerts",
		"base_url":        server.URL,
	}, gateway.Deps{HTTP: httpclient.New(httpclient.Config{})})
	require.NoError(t, err)
	return adapter
}

func TestSendSuccess(t *testing.T) {
	var gotReq map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat.postMessage", r.URL.Path)
		assert.Equal(t, "Bearer xoxb-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

		w.Write([]byte(`{"ok":true,"ts":"1700000000.000100","channel":"C1"}`))
	}))
	defer server.Close()

	result := newTestAdapter(t, server).Send(context.Background(), gateway.Message{
		Recipient: "#ops",
		Subject:   "Task due",
		Body:      "review the inquiry",
	})

	assert.True(t, result.Success)
	assert.Equal(t, "1700000000.000100", result.MessageID)
	assert.Equal(t, "#ops", gotReq["channel"])
	assert.Contains(t, gotReq["text"], "Task due")
	assert.Contains(t, gotReq["text"], "review the inquiry")
}

// Slack reports failures inside a 2xx body; the ok flag decides.
func TestSendAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ok":false,"error":"channel_not_found"}`))
	}))
	defer server.Close()

	result := newTestAdapter(t, server).Send(context.Background(), gateway.Message{
		Recipient: "#gone",
		Body:      "hello",
	})

	assert.False(t, result.Success)
	assert.True(t, result.Permanent)
	assert.Contains(t, result.Error, "channel_not_found")
}

func TestSendFallsBackToDefaultChannel(t *testing.T) {
	var gotReq map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		w.Write([]byte(`{"ok":true,"ts":"1.2"}`))
	}))
	defer server.Close()

	result := newTestAdapter(t, server).Send(context.Background(), gateway.Message{Body: "hello"})
	assert.True(t, result.Success)
	assert.Equal(t, "#alerts", gotReq["channel"])
}

func TestSendInteractive(t *testing.T) {
	var gotReq postMessageRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		w.Write([]byte(`{"ok":true,"ts":"1.3"}`))
	}))
	defer server.Close()

	sender, ok := newTestAdapter(t, server).(gateway.InteractiveSender)
	require.True(t, ok)

	result := sender.SendInteractive(context.Background(),
		gateway.Message{Recipient: "#ops", Body: "new inquiry"},
		[]gateway.Action{{Label: "Open", URL: "https://example.com/i/1"}},
	)

	assert.True(t, result.Success)
	require.Len(t, gotReq.Attachments, 1)
	require.Len(t, gotReq.Attachments[0].Actions, 1)
	assert.Equal(t, "Open", gotReq.Attachments[0].Actions[0].Text)
	assert.Equal(t, "https://example.com/i/1", gotReq.Attachments[0].Actions[0].URL)
}
