package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/notify-engine/internal/model"
	"github.com/jwalitptl/notify-engine/internal/repository"
	"github.com/jwalitptl/notify-engine/pkg/errors"
)

type messageRepository struct {
	BaseRepository
}

func NewMessageRepository(base BaseRepository) repository.MessageRepository {
	return &messageRepository{base}
}

const messageColumns = `
	id, workflow_id, recipient, channel, subject, body, gateway_id,
	due_at, status, attempts, last_error, provider_message_id,
	created_at, updated_at, sent_at
`

func (r *messageRepository) Create(ctx context.Context, msg *model.QueuedMessage) error {
	msg.ID = uuid.New()
	msg.CreatedAt = time.Now()
	msg.UpdatedAt = msg.CreatedAt
	msg.Status = model.MessageStatusPending

	query := `
		INSERT INTO message_queue (
			id, workflow_id, recipient, channel, subject, body, gateway_id,
			due_at, status, attempts, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12
		)
	`
	_, err := r.db.ExecContext(ctx, query,
		msg.ID,
		msg.WorkflowID,
		msg.Recipient,
		msg.Channel,
		msg.Subject,
		msg.Body,
		msg.GatewayID,
		msg.DueAt,
		msg.Status,
		msg.Attempts,
		msg.CreatedAt,
		msg.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to enqueue message: %w", err)
	}
	return nil
}

func (r *messageRepository) Get(ctx context.Context, id uuid.UUID) (*model.QueuedMessage, error) {
	query := `SELECT ` + messageColumns + ` FROM message_queue WHERE id = $1`

	var msg model.QueuedMessage
	err := r.db.GetContext(ctx, &msg, query, id)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound("message", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get message: %w", err)
	}
	return &msg, nil
}

func (r *messageRepository) List(ctx context.Context, status model.MessageStatus, limit int) ([]*model.QueuedMessage, error) {
	query := `
		SELECT ` + messageColumns + `
		FROM message_queue
		WHERE ($1 = '' OR status = $1)
		ORDER BY created_at DESC
		LIMIT $2
	`
	var messages []*model.QueuedMessage
	if err := r.db.SelectContext(ctx, &messages, query, string(status), limit); err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	return messages, nil
}

// ClaimDue marks due pending rows as processing and returns them in one
// statement. FOR UPDATE SKIP LOCKED keeps two concurrent runs from
// selecting the same rows; the guarded UPDATE makes the transition
// atomic with the selection.
func (r *messageRepository) ClaimDue(ctx context.Context, gatewayID uuid.UUID, channel model.Channel, now time.Time, limit int) ([]*model.QueuedMessage, error) {
	query := `
		UPDATE message_queue
		SET status = $1, updated_at = NOW()
		WHERE id IN (
			SELECT id FROM message_queue
			WHERE status = $2
			  AND due_at <= $3
			  AND (gateway_id = $4 OR (gateway_id IS NULL AND channel = $5))
			ORDER BY due_at ASC
			LIMIT $6
			FOR UPDATE SKIP LOCKED
		)
		RETURNING ` + messageColumns

	var messages []*model.QueuedMessage
	err := r.db.SelectContext(ctx, &messages, query,
		model.MessageStatusProcessing,
		model.MessageStatusPending,
		now,
		gatewayID,
		channel,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to claim due messages: %w", err)
	}
	return messages, nil
}

func (r *messageRepository) Release(ctx context.Context, id uuid.UUID, dueAt time.Time) error {
	query := `
		UPDATE message_queue
		SET status = $2, due_at = $3, updated_at = NOW()
		WHERE id = $1 AND status = $4
	`
	_, err := r.db.ExecContext(ctx, query, id, model.MessageStatusPending, dueAt, model.MessageStatusProcessing)
	if err != nil {
		return fmt.Errorf("failed to release claim: %w", err)
	}
	return nil
}

// MarkSent also records which gateway carried the message, so that
// unpinned messages can be traced back to a provider for status lookups.
func (r *messageRepository) MarkSent(ctx context.Context, id uuid.UUID, gatewayID uuid.UUID, providerMessageID string, sentAt time.Time) error {
	query := `
		UPDATE message_queue
		SET status = $2, gateway_id = $3, provider_message_id = $4, sent_at = $5,
			attempts = attempts + 1, last_error = NULL, updated_at = NOW()
		WHERE id = $1 AND status = $6
	`
	_, err := r.db.ExecContext(ctx, query, id, model.MessageStatusSent, gatewayID, providerMessageID, sentAt, model.MessageStatusProcessing)
	if err != nil {
		return fmt.Errorf("failed to mark message sent: %w", err)
	}
	return nil
}

func (r *messageRepository) MarkFailed(ctx context.Context, id uuid.UUID, attempts int, lastError string) error {
	query := `
		UPDATE message_queue
		SET status = $2, attempts = $3, last_error = $4, updated_at = NOW()
		WHERE id = $1 AND status = $5
	`
	_, err := r.db.ExecContext(ctx, query, id, model.MessageStatusFailed, attempts, lastError, model.MessageStatusProcessing)
	if err != nil {
		return fmt.Errorf("failed to mark message failed: %w", err)
	}
	return nil
}

func (r *messageRepository) Requeue(ctx context.Context, id uuid.UUID, attempts int, lastError string, dueAt time.Time) error {
	query := `
		UPDATE message_queue
		SET status = $2, attempts = $3, last_error = $4, due_at = $5, updated_at = NOW()
		WHERE id = $1 AND status = $6
	`
	_, err := r.db.ExecContext(ctx, query, id, model.MessageStatusPending, attempts, lastError, dueAt, model.MessageStatusProcessing)
	if err != nil {
		return fmt.Errorf("failed to requeue message: %w", err)
	}
	return nil
}

func (r *messageRepository) Cancel(ctx context.Context, id uuid.UUID) (bool, error) {
	query := `
		UPDATE message_queue
		SET status = $2, updated_at = NOW()
		WHERE id = $1 AND status = $3
	`
	result, err := r.db.ExecContext(ctx, query, id, model.MessageStatusCancelled, model.MessageStatusPending)
	if err != nil {
		return false, fmt.Errorf("failed to cancel message: %w", err)
	}
	rows, _ := result.RowsAffected()
	return rows > 0, nil
}

func (r *messageRepository) RetryNow(ctx context.Context, id uuid.UUID, now time.Time) (bool, error) {
	query := `
		UPDATE message_queue
		SET status = $2, due_at = $3, attempts = 0, last_error = NULL, updated_at = NOW()
		WHERE id = $1 AND status = $4
	`
	result, err := r.db.ExecContext(ctx, query, id, model.MessageStatusPending, now, model.MessageStatusFailed)
	if err != nil {
		return false, fmt.Errorf("failed to retry message: %w", err)
	}
	rows, _ := result.RowsAffected()
	return rows > 0, nil
}
