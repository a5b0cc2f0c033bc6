package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/notify-engine/internal/model"
)

// All repository interfaces in one file
type (
	// WorkflowRepository handles workflow rule persistence.
	WorkflowRepository interface {
		Create(ctx context.Context, workflow *model.Workflow) error
		Get(ctx context.Context, id uuid.UUID) (*model.Workflow, error)
		Update(ctx context.Context, workflow *model.Workflow) error
		Delete(ctx context.Context, id uuid.UUID) error
		List(ctx context.Context) ([]*model.Workflow, error)
		// ListActiveForEvent returns active workflows bound to the
		// trigger event; the dispatcher's hot path.
		ListActiveForEvent(ctx context.Context, event model.TriggerEvent) ([]*model.Workflow, error)
		SetActive(ctx context.Context, id uuid.UUID, active bool) error
	}

	GatewayRepository interface {
		Create(ctx context.Context, gw *model.Gateway) error
		Get(ctx context.Context, id uuid.UUID) (*model.Gateway, error)
		Update(ctx context.Context, gw *model.Gateway) error
		Delete(ctx context.Context, id uuid.UUID) error
		List(ctx context.Context) ([]*model.Gateway, error)
		// ListActive returns active gateways ordered by descending priority.
		ListActive(ctx context.Context) ([]*model.Gateway, error)
		// HighestPriorityActive picks the active gateway for a channel
		// with the highest priority; used when a workflow pins no gateway.
		HighestPriorityActive(ctx context.Context, channel model.Channel) (*model.Gateway, error)
		// TryIncrementDailyCount atomically performs the
		// daily_count < daily_limit check and increment in one
		// statement, returning false when the quota is exhausted.
		TryIncrementDailyCount(ctx context.Context, id uuid.UUID) (bool, error)
		// ResetDailyCounts zeroes daily_count on every gateway.
		ResetDailyCounts(ctx context.Context) error
	}

	// MessageRepository owns the queue table shared between the
	// dispatcher (producer) and processor (consumer). All consumer
	// mutations are conditional state transitions.
	MessageRepository interface {
		Create(ctx context.Context, msg *model.QueuedMessage) error
		Get(ctx context.Context, id uuid.UUID) (*model.QueuedMessage, error)
		List(ctx context.Context, status model.MessageStatus, limit int) ([]*model.QueuedMessage, error)
		// ClaimDue atomically transitions up to limit due pending
		// messages for the gateway (or its channel when unpinned) from
		// pending to processing, ordered by due_at ascending, and
		// returns the claimed rows. Concurrent callers never claim
		// the same row.
		ClaimDue(ctx context.Context, gatewayID uuid.UUID, channel model.Channel, now time.Time, limit int) ([]*model.QueuedMessage, error)
		// Release returns a processing claim to pending with a new
		// due time without counting an attempt.
		Release(ctx context.Context, id uuid.UUID, dueAt time.Time) error
		// MarkSent transitions processing to sent, binding the carrying
		// gateway and the provider's message id.
		MarkSent(ctx context.Context, id uuid.UUID, gatewayID uuid.UUID, providerMessageID string, sentAt time.Time) error
		// MarkFailed records a terminal failure.
		MarkFailed(ctx context.Context, id uuid.UUID, attempts int, lastError string) error
		// Requeue records a failed attempt and schedules a retry.
		Requeue(ctx context.Context, id uuid.UUID, attempts int, lastError string, dueAt time.Time) error
		// Cancel transitions pending to cancelled; returns false when
		// the message was no longer pending.
		Cancel(ctx context.Context, id uuid.UUID) (bool, error)
		// RetryNow transitions failed back to pending with due_at=now.
		RetryNow(ctx context.Context, id uuid.UUID, now time.Time) (bool, error)
	}

	TemplateRepository interface {
		Create(ctx context.Context, tpl *model.MessageTemplate) error
		Get(ctx context.Context, id uuid.UUID) (*model.MessageTemplate, error)
		Update(ctx context.Context, tpl *model.MessageTemplate) error
		Delete(ctx context.Context, id uuid.UUID) error
		List(ctx context.Context) ([]*model.MessageTemplate, error)
	}

	// SettingRepository stores engine-wide key/value settings; its one
	// hot key is the global last_reset_date guarding daily counters.
	SettingRepository interface {
		Get(ctx context.Context, key string) (string, error)
		Set(ctx context.Context, key, value string) error
		// CompareAndSet updates key from old to new atomically,
		// returning false when the stored value no longer matches old.
		CompareAndSet(ctx context.Context, key, old, new string) (bool, error)
	}
)
