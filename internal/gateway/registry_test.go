package gateway

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/notify-engine/internal/model"
)

type noopGateway struct{}

func (noopGateway) Provider() string       { return "noop" }
func (noopGateway) Channel() model.Channel { return model.ChannelSMS }
func (noopGateway) Send(ctx context.Context, msg Message) DeliveryResult {
	return DeliveryResult{Success: true}
}
func (noopGateway) GetStatus(ctx context.Context, messageID string) (*StatusResult, error) {
	return nil, nil
}
func (noopGateway) TestConnection(ctx context.Context) error { return nil }
func (noopGateway) Capabilities() []Capability               { return []Capability{CapabilityMedia} }

func testRegistry() *Registry {
	r := NewRegistry()
	r.Register("noop", model.ChannelSMS, []string{"api_key"}, func(cfg model.GatewayConfig, deps Deps) (Gateway, error) {
		return noopGateway{}, nil
	})
	return r
}

func record(provider string, channel model.Channel, config model.GatewayConfig) *model.Gateway {
	return &model.Gateway{
		ID:       uuid.New(),
		Channel:  channel,
		Provider: provider,
		Config:   config,
	}
}

func TestRegistryBuild(t *testing.T) {
	r := testRegistry()

	gw, err := r.Build(record("noop", model.ChannelSMS, model.GatewayConfig{"api_key": "k"}), Deps{})
	require.NoError(t, err)
	assert.Equal(t, "noop", gw.Provider())
}

func TestRegistryBuildConfigErrors(t *testing.T) {
	r := testRegistry()

	tests := []struct {
		name string
		rec  *model.Gateway
	}{
		{"unknown provider", record("nope", model.ChannelSMS, nil)},
		{"channel mismatch", record("noop", model.ChannelEmail, model.GatewayConfig{"api_key": "k"})},
		{"missing key", record("noop", model.ChannelSMS, model.GatewayConfig{})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Build(tt.rec, Deps{})
			require.Error(t, err)
			var cfgErr *ConfigError
			assert.ErrorAs(t, err, &cfgErr)
		})
	}
}

func TestRegistryDuplicatePanics(t *testing.T) {
	r := testRegistry()
	assert.Panics(t, func() {
		r.Register("noop", model.ChannelSMS, nil, nil)
	})
}

func TestSupports(t *testing.T) {
	gw := noopGateway{}
	assert.True(t, Supports(gw, CapabilityMedia))
	assert.False(t, Supports(gw, CapabilityBalance))
}
