package message

import (
	"context"
	"time"

	"github.com/google/uuid"

	gw "github.com/jwalitptl/notify-engine/internal/gateway"
	"github.com/jwalitptl/notify-engine/internal/model"
	"github.com/jwalitptl/notify-engine/internal/repository"
	"github.com/jwalitptl/notify-engine/pkg/errors"
)

type MessageServicer interface {
	GetMessage(ctx context.Context, id uuid.UUID) (*model.QueuedMessage, error)
	ListMessages(ctx context.Context, status model.MessageStatus, limit int) ([]*model.QueuedMessage, error)
	CancelMessage(ctx context.Context, id uuid.UUID) error
	RetryMessage(ctx context.Context, id uuid.UUID) error
	RefreshStatus(ctx context.Context, id uuid.UUID) (*gw.StatusResult, error)
}

type Service struct {
	messages repository.MessageRepository
	gateways repository.GatewayRepository
	registry *gw.Registry
	deps     gw.Deps
}

func NewService(messages repository.MessageRepository, gateways repository.GatewayRepository, registry *gw.Registry, deps gw.Deps) *Service {
	return &Service{messages: messages, gateways: gateways, registry: registry, deps: deps}
}

func (s *Service) GetMessage(ctx context.Context, id uuid.UUID) (*model.QueuedMessage, error) {
	return s.messages.Get(ctx, id)
}

func (s *Service) ListMessages(ctx context.Context, status model.MessageStatus, limit int) ([]*model.QueuedMessage, error) {
	if status != "" && !status.Valid() {
		return nil, errors.NewValidation("invalid message status")
	}
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return s.messages.List(ctx, status, limit)
}

// CancelMessage withdraws a pending message. Messages already claimed,
// sent or failed are past the point of cancellation.
func (s *Service) CancelMessage(ctx context.Context, id uuid.UUID) error {
	ok, err := s.messages.Cancel(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return errors.NewConflict("message is not pending")
	}
	return nil
}

// RetryMessage puts a failed message back on the queue immediately,
// with a fresh attempt budget.
func (s *Service) RetryMessage(ctx context.Context, id uuid.UUID) error {
	ok, err := s.messages.RetryNow(ctx, id, time.Now())
	if err != nil {
		return err
	}
	if !ok {
		return errors.NewConflict("message is not failed")
	}
	return nil
}

// RefreshStatus asks the provider for the current delivery state of a
// sent message.
func (s *Service) RefreshStatus(ctx context.Context, id uuid.UUID) (*gw.StatusResult, error) {
	msg, err := s.messages.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if msg.ProviderID == nil || *msg.ProviderID == "" {
		return nil, errors.NewConflict("message has no provider message id yet")
	}
	if msg.GatewayID == nil {
		return nil, errors.NewConflict("message is not bound to a gateway")
	}
	gateway, err := s.gateways.Get(ctx, *msg.GatewayID)
	if err != nil {
		return nil, err
	}
	adapter, err := s.registry.Build(gateway, s.deps)
	if err != nil {
		return nil, errors.NewConflict(err.Error())
	}
	return adapter.GetStatus(ctx, *msg.ProviderID)
}
