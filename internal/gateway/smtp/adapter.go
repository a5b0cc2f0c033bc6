package smtp

import (
	"context"
	"fmt"
	"strconv"

	"gopkg.in/gomail.v2"

	"github.com/jwalitptl/notify-engine/internal/gateway"
	"github.com/jwalitptl/notify-engine/internal/model"

	"github.com/google/uuid"
)

const Provider = "smtp"

var RequiredKeys = []string{"host", "port", "username", "password", "from_address"}

func Register(r *gateway.Registry) {
	r.Register(Provider, model.ChannelEmail, RequiredKeys, New)
}

var _ gateway.Gateway = (*Adapter)(nil)

// Adapter delivers email over SMTP. Unlike the HTTP adapters it has no
// provider message id; a local one is generated so the queue can store
// a non-null reference.
type Adapter struct {
	dialer *gomail.Dialer
	from   string
}

func New(cfg model.GatewayConfig, _ gateway.Deps) (gateway.Gateway, error) {
	port, err := strconv.Atoi(cfg["port"])
	if err != nil {
		return nil, &gateway.ConfigError{
			Provider: Provider,
			Reason:   fmt.Sprintf("invalid port %q", cfg["port"]),
		}
	}
	return &Adapter{
		dialer: gomail.NewDialer(cfg["host"], port, cfg["username"], cfg["password"]),
		from:   cfg["from_address"],
	}, nil
}

func (a *Adapter) Provider() string       { return Provider }
func (a *Adapter) Channel() model.Channel { return model.ChannelEmail }

func (a *Adapter) Capabilities() []gateway.Capability {
	return nil
}

func (a *Adapter) Send(ctx context.Context, msg gateway.Message) gateway.DeliveryResult {
	m := gomail.NewMessage()
	m.SetHeader("From", a.from)
	m.SetHeader("To", msg.Recipient)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/plain", msg.Body)

	// gomail has no context support; the dial timeout bounds the call.
	type result struct{ err error }
	done := make(chan result, 1)
	go func() {
		done <- result{err: a.dialer.DialAndSend(m)}
	}()

	select {
	case <-ctx.Done():
		return gateway.DeliveryResult{
			Success: false,
			Status:  "transport_error",
			Error:   ctx.Err().Error(),
		}
	case r := <-done:
		if r.err != nil {
			return gateway.DeliveryResult{
				Success: false,
				Status:  "transport_error",
				Error:   r.err.Error(),
			}
		}
	}

	return gateway.DeliveryResult{
		Success:   true,
		MessageID: uuid.New().String(),
		Status:    "accepted",
	}
}

// GetStatus cannot see past the receiving MTA.
func (a *Adapter) GetStatus(ctx context.Context, messageID string) (*gateway.StatusResult, error) {
	return &gateway.StatusResult{MessageID: messageID, Status: "accepted"}, nil
}

func (a *Adapter) TestConnection(ctx context.Context) error {
	closer, err := a.dialer.Dial()
	if err != nil {
		return fmt.Errorf("smtp dial failed: %w", err)
	}
	return closer.Close()
}
