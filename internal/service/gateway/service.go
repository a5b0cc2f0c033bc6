package gateway

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	gw "github.com/jwalitptl/notify-engine/internal/gateway"
	"github.com/jwalitptl/notify-engine/internal/model"
	"github.com/jwalitptl/notify-engine/internal/repository"
	"github.com/jwalitptl/notify-engine/pkg/errors"
)

type GatewayServicer interface {
	CreateGateway(ctx context.Context, gateway *model.Gateway) error
	GetGateway(ctx context.Context, id uuid.UUID) (*model.Gateway, error)
	UpdateGateway(ctx context.Context, gateway *model.Gateway) error
	DeleteGateway(ctx context.Context, id uuid.UUID) error
	ListGateways(ctx context.Context) ([]*model.Gateway, error)
	TestConnection(ctx context.Context, id uuid.UUID) error
	Balance(ctx context.Context, id uuid.UUID) (float64, string, error)
	Providers() []ProviderInfo
}

// ProviderInfo describes one registered adapter for the admin API.
type ProviderInfo struct {
	Provider     string        `json:"provider"`
	Channel      model.Channel `json:"channel"`
	RequiredKeys []string      `json:"required_keys"`
}

type Service struct {
	repo     repository.GatewayRepository
	registry *gw.Registry
	deps     gw.Deps
}

func NewService(repo repository.GatewayRepository, registry *gw.Registry, deps gw.Deps) *Service {
	return &Service{
		repo:     repo,
		registry: registry,
		deps:     deps,
	}
}

func (s *Service) CreateGateway(ctx context.Context, gateway *model.Gateway) error {
	if err := s.validateGateway(gateway); err != nil {
		return fmt.Errorf("invalid gateway: %w", err)
	}
	if err := s.repo.Create(ctx, gateway); err != nil {
		return fmt.Errorf("failed to create gateway: %w", err)
	}
	return nil
}

func (s *Service) GetGateway(ctx context.Context, id uuid.UUID) (*model.Gateway, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) UpdateGateway(ctx context.Context, gateway *model.Gateway) error {
	if err := s.validateGateway(gateway); err != nil {
		return fmt.Errorf("invalid gateway: %w", err)
	}
	if err := s.repo.Update(ctx, gateway); err != nil {
		return fmt.Errorf("failed to update gateway: %w", err)
	}
	return nil
}

func (s *Service) DeleteGateway(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

func (s *Service) ListGateways(ctx context.Context) ([]*model.Gateway, error) {
	return s.repo.List(ctx)
}

// TestConnection builds the adapter for a stored gateway and probes the
// provider.
func (s *Service) TestConnection(ctx context.Context, id uuid.UUID) error {
	adapter, err := s.buildAdapter(ctx, id)
	if err != nil {
		return err
	}
	return adapter.TestConnection(ctx)
}

// Balance is capability-gated: providers without balance support yield
// a conflict error rather than a panic.
func (s *Service) Balance(ctx context.Context, id uuid.UUID) (float64, string, error) {
	adapter, err := s.buildAdapter(ctx, id)
	if err != nil {
		return 0, "", err
	}
	checker, ok := adapter.(gw.BalanceChecker)
	if !ok {
		return 0, "", errors.NewConflict(fmt.Sprintf("provider %q does not support balance inquiry", adapter.Provider()))
	}
	return checker.Balance(ctx)
}

// Providers lists the registered adapters with their declared config keys.
func (s *Service) Providers() []ProviderInfo {
	names := s.registry.Providers()
	infos := make([]ProviderInfo, 0, len(names))
	for _, name := range names {
		keys, _ := s.registry.RequiredKeys(name)
		channel, _ := s.registry.ChannelFor(name)
		infos = append(infos, ProviderInfo{
			Provider:     name,
			Channel:      channel,
			RequiredKeys: keys,
		})
	}
	return infos
}

func (s *Service) buildAdapter(ctx context.Context, id uuid.UUID) (gw.Gateway, error) {
	record, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.registry.Build(record, s.deps)
}

func (s *Service) validateGateway(gateway *model.Gateway) error {
	if strings.TrimSpace(gateway.Name) == "" {
		return errors.NewValidation("gateway name is required")
	}
	if !gateway.Channel.Valid() {
		return errors.NewValidation(fmt.Sprintf("unknown channel %q", gateway.Channel))
	}
	if gateway.DailyLimit < 0 {
		return errors.NewValidation("daily_limit cannot be negative")
	}

	channel, ok := s.registry.ChannelFor(gateway.Provider)
	if !ok {
		return errors.NewValidation(fmt.Sprintf("unknown provider %q", gateway.Provider))
	}
	if channel != gateway.Channel {
		return errors.NewValidation(fmt.Sprintf("provider %q serves channel %q", gateway.Provider, channel))
	}

	keys, _ := s.registry.RequiredKeys(gateway.Provider)
	for _, key := range keys {
		if gateway.Config[key] == "" {
			return errors.NewValidation(fmt.Sprintf("missing required config key %q for provider %q", key, gateway.Provider))
		}
	}
	return nil
}
