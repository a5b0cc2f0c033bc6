package ntfy

import (
	"context"
	"fmt"
	"strings"

	"github.com/jwalitptl/notify-engine/internal/gateway"
	"github.com/jwalitptl/notify-engine/internal/model"
	"github.com/jwalitptl/notify-engine/pkg/httpclient"
)

const Provider = "ntfy"

var RequiredKeys = []string{"server_url", "topic_prefix"}

func Register(r *gateway.Registry) {
	r.Register(Provider, model.ChannelPush, RequiredKeys, New)
}

var (
	_ gateway.Gateway           = (*Adapter)(nil)
	_ gateway.InteractiveSender = (*Adapter)(nil)
)

// Adapter publishes push notifications to an ntfy server: the message
// body goes as a raw POST body, everything else (title, priority,
// actions, auth) rides in custom headers. The recipient is the topic
// name, namespaced under the configured prefix.
type Adapter struct {
	http        *httpclient.Client
	serverURL   string
	topicPrefix string
	accessToken string
}

func New(cfg model.GatewayConfig, deps gateway.Deps) (gateway.Gateway, error) {
	if deps.HTTP == nil {
		panic("ntfy: nil HTTP client")
	}
	return &Adapter{
		http:        deps.HTTP,
		serverURL:   strings.TrimRight(cfg["server_url"], "/"),
		topicPrefix: cfg["topic_prefix"],
		accessToken: cfg["access_token"],
	}, nil
}

func (a *Adapter) Provider() string       { return Provider }
func (a *Adapter) Channel() model.Channel { return model.ChannelPush }

func (a *Adapter) Capabilities() []gateway.Capability {
	return []gateway.Capability{gateway.CapabilityInteractive}
}

func (a *Adapter) Send(ctx context.Context, msg gateway.Message) gateway.DeliveryResult {
	return a.publish(ctx, msg, nil)
}

// SendInteractive attaches view actions rendered into the X-Actions header.
func (a *Adapter) SendInteractive(ctx context.Context, msg gateway.Message, actions []gateway.Action) gateway.DeliveryResult {
	return a.publish(ctx, msg, actions)
}

func (a *Adapter) publish(ctx context.Context, msg gateway.Message, actions []gateway.Action) gateway.DeliveryResult {
	opts := []httpclient.RequestOption{}
	if a.accessToken != "" {
		opts = append(opts, httpclient.WithBearer(a.accessToken))
	}
	if msg.Subject != "" {
		opts = append(opts, httpclient.WithHeader("X-Title", msg.Subject))
	}
	if len(actions) > 0 {
		opts = append(opts, httpclient.WithHeader("X-Actions", renderActions(actions)))
	}

	resp, err := a.http.PostRaw(ctx, a.topicURL(msg.Recipient), []byte(msg.Body), opts...)
	if failure := gateway.ClassifyResponse(resp, err); failure != nil {
		return *failure
	}

	var body struct {
		ID string `json:"id"`
	}
	if err := resp.DecodeJSON(&body); err != nil {
		return gateway.DeliveryResult{
			Success: false,
			Status:  "bad_response",
			Error:   fmt.Sprintf("failed to decode response: %v", err),
		}
	}

	return gateway.DeliveryResult{
		Success:   true,
		MessageID: body.ID,
		Status:    "published",
	}
}

// GetStatus is final-on-publish for ntfy; the server keeps no per-device
// delivery state the API exposes.
func (a *Adapter) GetStatus(ctx context.Context, messageID string) (*gateway.StatusResult, error) {
	return &gateway.StatusResult{MessageID: messageID, Status: "published"}, nil
}

func (a *Adapter) TestConnection(ctx context.Context) error {
	opts := []httpclient.RequestOption{}
	if a.accessToken != "" {
		opts = append(opts, httpclient.WithBearer(a.accessToken))
	}
	resp, err := a.http.Get(ctx, a.serverURL+"/v1/health", opts...)
	if err != nil {
		return err
	}
	if !resp.Success() {
		return fmt.Errorf("health check returned HTTP %d", resp.StatusCode)
	}
	return nil
}

func (a *Adapter) topicURL(recipient string) string {
	topic := recipient
	if a.topicPrefix != "" {
		topic = a.topicPrefix + "-" + topic
	}
	return a.serverURL + "/" + topic
}

// renderActions encodes actions in ntfy's header syntax:
// "view, <label>, <url>; view, <label>, <url>".
func renderActions(actions []gateway.Action) string {
	parts := make([]string, 0, len(actions))
	for _, action := range actions {
		parts = append(parts, fmt.Sprintf("view, %s, %s", action.Label, action.URL))
	}
	return strings.Join(parts, "; ")
}
