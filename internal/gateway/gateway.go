package gateway

import (
	"context"
	"fmt"

	"github.com/jwalitptl/notify-engine/internal/model"
	"github.com/jwalitptl/notify-engine/pkg/httpclient"
)

// Capability is an optional behavior a provider adapter may support.
// Capabilities are declared statically by the adapter; no network call
// is needed to query them.
type Capability string

const (
	CapabilityMedia       Capability = "media"
	CapabilityTemplates   Capability = "templates"
	CapabilityInteractive Capability = "interactive"
	CapabilityBalance     Capability = "balance"
	CapabilityWebhooks    Capability = "webhooks"
)

// Message is the rendered payload handed to an adapter.
type Message struct {
	Recipient string
	Subject   string
	Body      string
}

// DeliveryResult is the typed outcome of one send attempt. Expected
// failures (transport errors, provider rejections) come back with
// Success=false and a populated Error; adapters never panic for them.
type DeliveryResult struct {
	Success   bool
	MessageID string
	Status    string
	Error     string
	// Permanent marks rejections that will not succeed on retry
	// (4xx other than 429). Transport failures and 429/5xx stay
	// retryable.
	Permanent bool
}

// StatusResult reports provider-side delivery state for a message id.
type StatusResult struct {
	MessageID string
	Status    string
}

// Gateway is the mandatory contract every provider adapter implements.
type Gateway interface {
	// Provider returns the vendor identifier, e.g. "twilio".
	Provider() string
	Channel() model.Channel
	Send(ctx context.Context, msg Message) DeliveryResult
	GetStatus(ctx context.Context, messageID string) (*StatusResult, error)
	TestConnection(ctx context.Context) error
	Capabilities() []Capability
}

// Optional capability contracts. Callers type-assert before use; an
// adapter that does not implement one simply lacks the method.

// MediaSender delivers a message with an attached media URL.
type MediaSender interface {
	SendMedia(ctx context.Context, msg Message, mediaURL string) DeliveryResult
}

// TemplatedSender delivers a provider-side template with parameters.
type TemplatedSender interface {
	SendTemplate(ctx context.Context, recipient, template string, params map[string]string) DeliveryResult
}

// InteractiveSender delivers a message with action buttons.
type InteractiveSender interface {
	SendInteractive(ctx context.Context, msg Message, actions []Action) DeliveryResult
}

// Action is one interactive element attached to a message.
type Action struct {
	Label string `json:"label"`
	URL   string `json:"url"`
}

// BalanceChecker reports the remaining account balance at the provider.
type BalanceChecker interface {
	Balance(ctx context.Context) (amount float64, currency string, err error)
}

// WebhookHandler ingests provider-originated delivery callbacks.
type WebhookHandler interface {
	HandleWebhook(ctx context.Context, payload []byte) (*StatusResult, error)
}

// Supports reports whether gw declares the capability.
func Supports(gw Gateway, c Capability) bool {
	for _, have := range gw.Capabilities() {
		if have == c {
			return true
		}
	}
	return false
}

// ClassifyResponse maps the shared transport's three outcome shapes to
// a failure DeliveryResult common to every HTTP adapter: transport
// failure (no response, retryable), non-2xx (provider rejection,
// permanent unless 429/5xx), or nil for a 2xx response, in which case
// the adapter extracts its provider-specific success fields.
func ClassifyResponse(resp *httpclient.Response, err error) *DeliveryResult {
	if err != nil {
		return &DeliveryResult{
			Success: false,
			Status:  "transport_error",
			Error:   err.Error(),
		}
	}
	if !resp.Success() {
		permanent := resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != 429
		return &DeliveryResult{
			Success:   false,
			Status:    "rejected",
			Error:     rejectionError(resp),
			Permanent: permanent,
		}
	}
	return nil
}

func rejectionError(resp *httpclient.Response) string {
	body := string(resp.Body)
	if len(body) > 512 {
		body = body[:512]
	}
	return fmt.Sprintf("provider returned HTTP %d: %s", resp.StatusCode, body)
}
