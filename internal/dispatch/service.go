package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"github.com/jwalitptl/notify-engine/internal/model"
	"github.com/jwalitptl/notify-engine/internal/repository"
	"github.com/jwalitptl/notify-engine/pkg/logger"
	"github.com/jwalitptl/notify-engine/pkg/metrics"
)

// Renderer turns a stored template plus payload into subject/body text.
type Renderer interface {
	Render(ctx context.Context, templateID uuid.UUID, payload map[string]interface{}) (subject, body string, err error)
}

// recipientFields maps each channel to the payload field carrying the
// delivery address. Callers of Fire must include the field for any
// channel their workflows target.
var recipientFields = map[model.Channel]string{
	model.ChannelSMS:   "phone",
	model.ChannelEmail: "email",
	model.ChannelPush:  "push_topic",
	model.ChannelChat:  "chat_id",
}

// Service is the trigger dispatcher: it receives fired events, matches
// them against active workflows, and enqueues rendered messages. One
// bad rule never suppresses notifications from sibling rules.
type Service struct {
	workflows repository.WorkflowRepository
	gateways  repository.GatewayRepository
	messages  repository.MessageRepository
	renderer  Renderer
	cache     *cache.Cache
	logger    *logger.Logger
	metrics   *metrics.Metrics
	now       func() time.Time
}

func NewService(
	workflows repository.WorkflowRepository,
	gateways repository.GatewayRepository,
	messages repository.MessageRepository,
	renderer Renderer,
	log *logger.Logger,
	m *metrics.Metrics,
) *Service {
	return &Service{
		workflows: workflows,
		gateways:  gateways,
		messages:  messages,
		renderer:  renderer,
		cache:     cache.New(30*time.Second, 5*time.Minute),
		logger:    log,
		metrics:   m,
		now:       time.Now,
	}
}

// Fire dispatches one domain event. It returns the number of messages
// enqueued; per-workflow evaluation and scheduling errors are logged
// and skipped, never propagated.
func (s *Service) Fire(ctx context.Context, event model.TriggerEvent, payload map[string]interface{}) (int, error) {
	if !event.Valid() {
		return 0, fmt.Errorf("unknown trigger event %q", event)
	}
	s.metrics.EventsFired.WithLabelValues(string(event)).Inc()

	workflows, err := s.activeWorkflows(ctx, event)
	if err != nil {
		return 0, fmt.Errorf("failed to load workflows for event %s: %w", event, err)
	}

	enqueued := 0
	for _, w := range workflows {
		if s.dispatchOne(ctx, w, payload) {
			enqueued++
		}
	}
	return enqueued, nil
}

func (s *Service) dispatchOne(ctx context.Context, w *model.Workflow, payload map[string]interface{}) bool {
	wlog := s.logger.WithFields(map[string]interface{}{
		"workflow_id":   w.ID.String(),
		"workflow_name": w.Name,
	})

	matched, err := MatchesConditions(w.Conditions, payload)
	if err != nil {
		// Fail open for this workflow only.
		s.metrics.WorkflowsSkipped.WithLabelValues("bad_condition").Inc()
		wlog.Error(err, "condition evaluation failed, skipping workflow")
		return false
	}
	if !matched {
		s.metrics.WorkflowsSkipped.WithLabelValues("conditions_not_met").Inc()
		return false
	}

	dueAt, err := ResolveDueAt(w, s.now(), payload)
	if err != nil {
		reason := "schedule_error"
		if errors.Is(err, ErrMissingReference) {
			reason = "missing_reference"
		}
		s.metrics.WorkflowsSkipped.WithLabelValues(reason).Inc()
		wlog.Error(err, "schedule resolution failed, skipping workflow")
		return false
	}

	recipient := coerceString(payload[recipientFields[w.Channel]])
	if recipient == "" {
		s.metrics.WorkflowsSkipped.WithLabelValues("missing_recipient").Inc()
		wlog.Warn("payload carries no recipient for channel", "channel", w.Channel)
		return false
	}

	subject, body, err := s.renderer.Render(ctx, w.TemplateID, payload)
	if err != nil {
		s.metrics.WorkflowsSkipped.WithLabelValues("render_error").Inc()
		wlog.Error(err, "template rendering failed, skipping workflow")
		return false
	}

	msg := &model.QueuedMessage{
		WorkflowID: w.ID,
		Recipient:  recipient,
		Channel:    w.Channel,
		Subject:    subject,
		Body:       body,
		GatewayID:  s.resolveGateway(ctx, w),
		DueAt:      dueAt,
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		s.metrics.WorkflowsSkipped.WithLabelValues("enqueue_error").Inc()
		wlog.Error(err, "failed to enqueue message")
		return false
	}

	s.metrics.MessagesEnqueued.WithLabelValues(string(w.Channel)).Inc()
	wlog.Debug("message enqueued", "message_id", msg.ID.String(), "due_at", dueAt)
	return true
}

// resolveGateway pins the workflow's gateway, or the highest-priority
// active gateway of the channel. A nil result leaves the message
// claimable by whichever gateway of the channel runs first.
func (s *Service) resolveGateway(ctx context.Context, w *model.Workflow) *uuid.UUID {
	if w.GatewayID != nil {
		return w.GatewayID
	}
	gw, err := s.gateways.HighestPriorityActive(ctx, w.Channel)
	if err != nil {
		return nil
	}
	return &gw.ID
}

func (s *Service) activeWorkflows(ctx context.Context, event model.TriggerEvent) ([]*model.Workflow, error) {
	key := string(event)
	if cached, found := s.cache.Get(key); found {
		return cached.([]*model.Workflow), nil
	}

	workflows, err := s.workflows.ListActiveForEvent(ctx, event)
	if err != nil {
		return nil, err
	}
	s.cache.Set(key, workflows, cache.DefaultExpiration)
	return workflows, nil
}
