package slack

import (
	"context"
	"fmt"

	"github.com/jwalitptl/notify-engine/internal/gateway"
	"github.com/jwalitptl/notify-engine/internal/model"
	"github.com/jwalitptl/notify-engine/pkg/httpclient"
)

const defaultBaseURL = "https://slack.com/api"

const Provider = "slack"

var RequiredKeys = []string{"bot_token", "default_channel"}

func Register(r *gateway.Registry) {
	r.Register(Provider, model.ChannelChat, RequiredKeys, New)
}

var (
	_ gateway.Gateway           = (*Adapter)(nil)
	_ gateway.InteractiveSender = (*Adapter)(nil)
)

// Adapter posts chat messages through Slack's Web API: bearer-token
// authenticated JSON requests. Slack reports errors inside a 2xx
// response body, so the adapter checks the ok flag on top of the
// shared status classification.
type Adapter struct {
	http           *httpclient.Client
	botToken       string
	defaultChannel string
	baseURL        string
}

func New(cfg model.GatewayConfig, deps gateway.Deps) (gateway.Gateway, error) {
	if deps.HTTP == nil {
		panic("slack: nil HTTP client")
	}
	base := cfg["base_url"]
	if base == "" {
		base = defaultBaseURL
	}
	return &Adapter{
		http:           deps.HTTP,
		botToken:       cfg["bot_token"],
		defaultChannel: cfg["default_channel"],
		baseURL:        base,
	}, nil
}

func (a *Adapter) Provider() string       { return Provider }
func (a *Adapter) Channel() model.Channel { return model.ChannelChat }

func (a *Adapter) Capabilities() []gateway.Capability {
	return []gateway.Capability{gateway.CapabilityInteractive}
}

type postMessageRequest struct {
	Channel     string       `json:"channel"`
	Text        string       `json:"text"`
	Attachments []attachment `json:"attachments,omitempty"`
}

type attachment struct {
	Title   string        `json:"title,omitempty"`
	Text    string        `json:"text,omitempty"`
	Actions []actionBlock `json:"actions,omitempty"`
}

type actionBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
	URL  string `json:"url"`
}

type postMessageResponse struct {
	OK      bool   `json:"ok"`
	TS      string `json:"ts"`
	Error   string `json:"error"`
	Channel string `json:"channel"`
}

func (a *Adapter) Send(ctx context.Context, msg gateway.Message) gateway.DeliveryResult {
	req := postMessageRequest{
		Channel: a.target(msg.Recipient),
		Text:    a.renderText(msg),
	}
	return a.post(ctx, req)
}

// SendInteractive attaches link buttons to the message.
func (a *Adapter) SendInteractive(ctx context.Context, msg gateway.Message, actions []gateway.Action) gateway.DeliveryResult {
	blocks := make([]actionBlock, 0, len(actions))
	for _, action := range actions {
		blocks = append(blocks, actionBlock{Type: "button", Text: action.Label, URL: action.URL})
	}
	req := postMessageRequest{
		Channel: a.target(msg.Recipient),
		Text:    a.renderText(msg),
		Attachments: []attachment{
			{Actions: blocks},
		},
	}
	return a.post(ctx, req)
}

func (a *Adapter) post(ctx context.Context, req postMessageRequest) gateway.DeliveryResult {
	resp, err := a.http.PostJSON(ctx, a.baseURL+"/chat.postMessage", req, httpclient.WithBearer(a.botToken))
	if failure := gateway.ClassifyResponse(resp, err); failure != nil {
		return *failure
	}

	var body postMessageResponse
	if err := resp.DecodeJSON(&body); err != nil {
		return gateway.DeliveryResult{
			Success: false,
			Status:  "bad_response",
			Error:   fmt.Sprintf("failed to decode response: %v", err),
		}
	}
	if !body.OK {
		// invalid_auth, channel_not_found and friends will not
		// recover on retry.
		return gateway.DeliveryResult{
			Success:   false,
			Status:    "rejected",
			Error:     "slack error: " + body.Error,
			Permanent: true,
		}
	}

	return gateway.DeliveryResult{
		Success:   true,
		MessageID: body.TS,
		Status:    "posted",
	}
}

// GetStatus is not meaningful for chat posts; a posted message is final.
func (a *Adapter) GetStatus(ctx context.Context, messageID string) (*gateway.StatusResult, error) {
	return &gateway.StatusResult{MessageID: messageID, Status: "posted"}, nil
}

func (a *Adapter) TestConnection(ctx context.Context) error {
	resp, err := a.http.PostJSON(ctx, a.baseURL+"/auth.test", struct{}{}, httpclient.WithBearer(a.botToken))
	if err != nil {
		return err
	}
	if !resp.Success() {
		return fmt.Errorf("auth test returned HTTP %d", resp.StatusCode)
	}
	var body struct {
		OK    bool   `json:"ok"`
		Error string `json:"error"`
	}
	if err := resp.DecodeJSON(&body); err != nil {
		return fmt.Errorf("failed to decode auth test response: %w", err)
	}
	if !body.OK {
		return fmt.Errorf("slack error: %s", body.Error)
	}
	return nil
}

func (a *Adapter) target(recipient string) string {
	if recipient != "" {
		return recipient
	}
	return a.defaultChannel
}

func (a *Adapter) renderText(msg gateway.Message) string {
	if msg.Subject == "" {
		return msg.Body
	}
	return "*" + msg.Subject + "*\n" + msg.Body
}
