package workflow

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/jwalitptl/notify-engine/internal/model"
	"github.com/jwalitptl/notify-engine/internal/repository"
	"github.com/jwalitptl/notify-engine/pkg/errors"
)

type WorkflowServicer interface {
	CreateWorkflow(ctx context.Context, workflow *model.Workflow) error
	GetWorkflow(ctx context.Context, id uuid.UUID) (*model.Workflow, error)
	UpdateWorkflow(ctx context.Context, workflow *model.Workflow) error
	DeleteWorkflow(ctx context.Context, id uuid.UUID) error
	ListWorkflows(ctx context.Context) ([]*model.Workflow, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
}

type Service struct {
	repo      repository.WorkflowRepository
	templates repository.TemplateRepository
	gateways  repository.GatewayRepository
}

func NewService(repo repository.WorkflowRepository, templates repository.TemplateRepository, gateways repository.GatewayRepository) *Service {
	return &Service{
		repo:      repo,
		templates: templates,
		gateways:  gateways,
	}
}

func (s *Service) CreateWorkflow(ctx context.Context, workflow *model.Workflow) error {
	if err := s.validateWorkflow(ctx, workflow); err != nil {
		return fmt.Errorf("invalid workflow: %w", err)
	}
	if err := s.repo.Create(ctx, workflow); err != nil {
		return fmt.Errorf("failed to create workflow: %w", err)
	}
	return nil
}

func (s *Service) GetWorkflow(ctx context.Context, id uuid.UUID) (*model.Workflow, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) UpdateWorkflow(ctx context.Context, workflow *model.Workflow) error {
	if err := s.validateWorkflow(ctx, workflow); err != nil {
		return fmt.Errorf("invalid workflow: %w", err)
	}
	if err := s.repo.Update(ctx, workflow); err != nil {
		return fmt.Errorf("failed to update workflow: %w", err)
	}
	return nil
}

func (s *Service) DeleteWorkflow(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

func (s *Service) ListWorkflows(ctx context.Context) ([]*model.Workflow, error) {
	return s.repo.List(ctx)
}

// SetActive toggles a workflow. Messages already in the queue are
// unaffected; only future fires see the change.
func (s *Service) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	return s.repo.SetActive(ctx, id, active)
}

// validateWorkflow enforces the save-time invariants so the dispatcher
// and resolver never re-check them per event.
func (s *Service) validateWorkflow(ctx context.Context, w *model.Workflow) error {
	if strings.TrimSpace(w.Name) == "" {
		return errors.NewValidation("workflow name is required")
	}
	if !w.TriggerEvent.Valid() {
		return errors.NewValidation(fmt.Sprintf("unknown trigger event %q", w.TriggerEvent))
	}
	if !w.Channel.Valid() {
		return errors.NewValidation(fmt.Sprintf("unknown channel %q", w.Channel))
	}

	switch w.ScheduleType {
	case model.ScheduleImmediate:
	case model.ScheduleDelay:
		if w.DelayMinutes <= 0 {
			return errors.NewValidation("delay_minutes must be positive for delay scheduling")
		}
	case model.ScheduleDistinctTime:
		if strings.TrimSpace(w.ScheduleReference) == "" {
			return errors.NewValidation("schedule_reference is required for distinct_time scheduling")
		}
		if _, err := w.ScheduleUnit.Duration(); err != nil {
			return errors.NewValidation(fmt.Sprintf("unknown schedule unit %q", w.ScheduleUnit))
		}
	default:
		return errors.NewValidation(fmt.Sprintf("unknown schedule type %q", w.ScheduleType))
	}

	for i, cond := range w.Conditions {
		if strings.TrimSpace(cond.Field) == "" {
			return errors.NewValidation(fmt.Sprintf("condition %d: field is required", i))
		}
		if !cond.Operator.Valid() {
			return errors.NewValidation(fmt.Sprintf("condition %d: unknown operator %q", i, cond.Operator))
		}
	}

	if _, err := s.templates.Get(ctx, w.TemplateID); err != nil {
		return errors.NewValidation(fmt.Sprintf("template %s does not exist", w.TemplateID))
	}

	if w.GatewayID != nil {
		gw, err := s.gateways.Get(ctx, *w.GatewayID)
		if err != nil {
			return errors.NewValidation(fmt.Sprintf("gateway %s does not exist", w.GatewayID))
		}
		if gw.Channel != w.Channel {
			return errors.NewValidation(fmt.Sprintf("gateway %s serves channel %q, workflow targets %q", gw.ID, gw.Channel, w.Channel))
		}
	}

	return nil
}
