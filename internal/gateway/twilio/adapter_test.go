package twilio

import (
	"context"
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
		"account_sid": "AC123",
		"auth_token":  "secret",
		"from_number": "+15550001111",
		"base_url":    server.URL,
	}, gateway.Deps{
		HTTP:               httpclient.New(httpclient.Config{}),
		DefaultCountryCode: "1",
	})
	require.NoError(t, err)
	return adapter
}

func TestSendSuccess(t *testing.T) {
	var gotForm map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/2010-04-01/Accounts/AC123/Messages.json", r.URL.Path)

		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "AC123", user)
		assert.Equal(t, "secret", pass)

		require.NoError(t, r.ParseForm())
		gotForm = map[string]string{
			"To":   r.PostForm.Get("To"),
			"From": r.PostForm.Get("From"),
			"Body": r.PostForm.Get("Body"),
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"sid":"SM1","status":"queued"}`))
	}))
	defer server.Close()

	result := newTestAdapter(t, server).Send(context.Background(), gateway.Message{
		Recipient: "05551234567",
		Body:      "hello",
	})

	assert.True(t, result.Success)
	assert.Equal(t, "SM1", result.MessageID)
	assert.Equal(t, "queued", result.Status)
	// National number normalized with the default country code.
	assert.Equal(t, "+15551234567", gotForm["To"])
	assert.Equal(t, "+15550001111", gotForm["From"])
	assert.Equal(t, "hello", gotForm["Body"])
}

func TestSendRejection(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		permanent bool
	}{
		{"invalid number", http.StatusBadRequest, true},
		{"rate limited", http.StatusTooManyRequests, false},
		{"provider outage", http.StatusServiceUnavailable, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(`{"message":"no"}`))
			}))
			defer server.Close()

			result := newTestAdapter(t, server).Send(context.Background(), gateway.Message{
				Recipient: "+15551234567",
				Body:      "hello",
			})
			assert.False(t, result.Success)
			assert.Equal(t, tt.permanent, result.Permanent)
			assert.NotEmpty(t, result.Error)
		})
	}
}

func TestSendTransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // connection refused from here on

	result := newTestAdapter(t, server).Send(context.Background(), gateway.Message{
		Recipient: "+15551234567",
		Body:      "hello",
	})
	assert.False(t, result.Success)
	assert.False(t, result.Permanent)
	assert.Equal(t, "transport_error", result.Status)
}

func TestGetStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/2010-04-01/Accounts/AC123/Messages/SM1.json", r.URL.Path)
		w.Write([]byte(`{"sid":"SM1","status":"delivered"}`))
	}))
	defer server.Close()

	status, err := newTestAdapter(t, server).GetStatus(context.Background(), "SM1")
	require.NoError(t, err)
	assert.Equal(t, "SM1", status.MessageID)
	assert.Equal(t, "delivered", status.Status)
}

func TestBalance(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/2010-04-01/Accounts/AC123/Balance.json", r.URL.Path)
		w.Write([]byte(`{"balance":"12.50","currency":"USD"}`))
	}))
	defer server.Close()

	adapter := newTestAdapter(t, server)
	checker, ok := adapter.(gateway.BalanceChecker)
	require.True(t, ok)

	amount, currency, err := checker.Balance(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 12.5, amount)
	assert.Equal(t, "USD", currency)
}

func TestHandleWebhook(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	handler, ok := newTestAdapter(t, server).(gateway.WebhookHandler)
	require.True(t, ok)

	status, err := handler.HandleWebhook(context.Background(), []byte("MessageSid=SM9&MessageStatus=failed"))
	require.NoError(t, err)
	assert.Equal(t, "SM9", status.MessageID)
	assert.Equal(t, "failed", status.Status)

	_, err = handler.HandleWebhook(context.Background(), []byte("MessageStatus=failed"))
	assert.Error(t, err)
}
