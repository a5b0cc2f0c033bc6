package twilio

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/jwalitptl/notify-engine/internal/gateway"
	"github.com/jwalitptl/notify-engine/internal/model"
	"github.com/jwalitptl/notify-engine/pkg/httpclient"
	"github.com/jwalitptl/notify-engine/pkg/phone"
)

const defaultBaseURL = "https://api.twilio.com"

// Provider is the vendor identifier used in gateway records.
const Provider = "twilio"

// RequiredKeys are the config keys a twilio gateway must carry.
var RequiredKeys = []string{"account_sid", "auth_token", "from_number"}

// Register wires the adapter into a registry.
func Register(r *gateway.Registry) {
	r.Register(Provider, model.ChannelSMS, RequiredKeys, New)
}

var (
	_ gateway.Gateway        = (*Adapter)(nil)
	_ gateway.MediaSender    = (*Adapter)(nil)
	_ gateway.BalanceChecker = (*Adapter)(nil)
	_ gateway.WebhookHandler = (*Adapter)(nil)
)

// Adapter sends SMS through Twilio's REST API: form-encoded requests
// authenticated with basic auth.
type Adapter struct {
	http        *httpclient.Client
	accountSID  string
	authToken   string
	fromNumber  string
	baseURL     string
	countryCode string
}

func New(cfg model.GatewayConfig, deps gateway.Deps) (gateway.Gateway, error) {
	if deps.HTTP == nil {
		panic("twilio: nil HTTP client")
	}
	base := cfg["base_url"]
	if base == "" {
		base = defaultBaseURL
	}
	return &Adapter{
		http:        deps.HTTP,
		accountSID:  cfg["account_sid"],
		authToken:   cfg["auth_token"],
		fromNumber:  cfg["from_number"],
		baseURL:     base,
		countryCode: deps.DefaultCountryCode,
	}, nil
}

func (a *Adapter) Provider() string       { return Provider }
func (a *Adapter) Channel() model.Channel { return model.ChannelSMS }

func (a *Adapter) Capabilities() []gateway.Capability {
	return []gateway.Capability{
		gateway.CapabilityMedia,
		gateway.CapabilityBalance,
		gateway.CapabilityWebhooks,
	}
}

func (a *Adapter) Send(ctx context.Context, msg gateway.Message) gateway.DeliveryResult {
	return a.send(ctx, msg, "")
}

// SendMedia attaches a media URL to the outbound message (MMS).
func (a *Adapter) SendMedia(ctx context.Context, msg gateway.Message, mediaURL string) gateway.DeliveryResult {
	return a.send(ctx, msg, mediaURL)
}

func (a *Adapter) send(ctx context.Context, msg gateway.Message, mediaURL string) gateway.DeliveryResult {
	values := url.Values{}
	values.Set("To", phone.Normalize(msg.Recipient, a.countryCode))
	values.Set("From", a.fromNumber)
	values.Set("Body", msg.Body)
	if mediaURL != "" {
		values.Set("MediaUrl", mediaURL)
	}

	resp, err := a.http.PostForm(ctx, a.messagesURL(), values, a.auth())
	if failure := gateway.ClassifyResponse(resp, err); failure != nil {
		return *failure
	}

	var body struct {
		SID    string `json:"sid"`
		Status string `json:"status"`
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
		MessageID: body.SID,
		Status:    body.Status,
	}
}

func (a *Adapter) GetStatus(ctx context.Context, messageID string) (*gateway.StatusResult, error) {
	u := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages/%s.json", a.baseURL, a.accountSID, messageID)
	resp, err := a.http.Get(ctx, u, a.auth())
	if err != nil {
		return nil, err
	}
	if !resp.Success() {
		return nil, fmt.Errorf("status lookup returned HTTP %d", resp.StatusCode)
	}

	var body struct {
		SID    string `json:"sid"`
		Status string `json:"status"`
	}
	if err := resp.DecodeJSON(&body); err != nil {
		return nil, fmt.Errorf("failed to decode status response: %w", err)
	}
	return &gateway.StatusResult{MessageID: body.SID, Status: body.Status}, nil
}

func (a *Adapter) TestConnection(ctx context.Context) error {
	u := fmt.Sprintf("%s/2010-04-01/Accounts/%s.json", a.baseURL, a.accountSID)
	resp, err := a.http.Get(ctx, u, a.auth())
	if err != nil {
		return err
	}
	if !resp.Success() {
		return fmt.Errorf("account lookup returned HTTP %d", resp.StatusCode)
	}
	return nil
}

// Balance reports the remaining account balance.
func (a *Adapter) Balance(ctx context.Context) (float64, string, error) {
	u := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Balance.json", a.baseURL, a.accountSID)
	resp, err := a.http.Get(ctx, u, a.auth())
	if err != nil {
		return 0, "", err
	}
	if !resp.Success() {
		return 0, "", fmt.Errorf("balance lookup returned HTTP %d", resp.StatusCode)
	}

	var body struct {
		Balance  string `json:"balance"`
		Currency string `json:"currency"`
	}
	if err := resp.DecodeJSON(&body); err != nil {
		return 0, "", fmt.Errorf("failed to decode balance response: %w", err)
	}
	amount, err := strconv.ParseFloat(body.Balance, 64)
	if err != nil {
		return 0, "", fmt.Errorf("unparseable balance %q: %w", body.Balance, err)
	}
	return amount, body.Currency, nil
}

// HandleWebhook parses a form-encoded status callback.
func (a *Adapter) HandleWebhook(ctx context.Context, payload []byte) (*gateway.StatusResult, error) {
	values, err := url.ParseQuery(string(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to parse callback payload: %w", err)
	}
	sid := values.Get("MessageSid")
	if sid == "" {
		return nil, fmt.Errorf("callback payload missing MessageSid")
	}
	return &gateway.StatusResult{
		MessageID: sid,
		Status:    values.Get("MessageStatus"),
	}, nil
}

func (a *Adapter) messagesURL() string {
	return fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", a.baseURL, a.accountSID)
}

func (a *Adapter) auth() httpclient.RequestOption {
	return httpclient.WithBasicAuth(a.accountSID, a.authToken)
}
