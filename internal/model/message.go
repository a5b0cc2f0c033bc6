package model

import (
	"time"

	"github.com/google/uuid"
)

type MessageStatus string

const (
	MessageStatusPending    MessageStatus = "pending"
	MessageStatusProcessing MessageStatus = "processing"
	MessageStatusSent       MessageStatus = "sent"
	MessageStatusFailed     MessageStatus = "failed"
	MessageStatusCancelled  MessageStatus = "cancelled"
)

func (s MessageStatus) Valid() bool {
	switch s {
	case MessageStatusPending, MessageStatusProcessing, MessageStatusSent,
		MessageStatusFailed, MessageStatusCancelled:
		return true
	}
	return false
}

// QueuedMessage is one rendered delivery attempt waiting in the queue.
// Created by the dispatcher, mutated only by the queue processor through
// conditional state transitions.
type QueuedMessage struct {
	ID         uuid.UUID     `db:"id" json:"id"`
	WorkflowID uuid.UUID     `db:"workflow_id" json:"workflow_id"`
	Recipient  string        `db:"recipient" json:"recipient"`
	Channel    Channel       `db:"channel" json:"channel"`
	Subject    string        `db:"subject" json:"subject"`
	Body       string        `db:"body" json:"body"`
	GatewayID  *uuid.UUID    `db:"gateway_id" json:"gateway_id,omitempty"`
	DueAt      time.Time     `db:"due_at" json:"due_at"`
	Status     MessageStatus `db:"status" json:"status"`
	Attempts   int           `db:"attempts" json:"attempts"`
	LastError  *string       `db:"last_error" json:"last_error,omitempty"`
	ProviderID *string       `db:"provider_message_id" json:"provider_message_id,omitempty"`
	CreatedAt  time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time     `db:"updated_at" json:"updated_at"`
	SentAt     *time.Time    `db:"sent_at" json:"sent_at,omitempty"`
}

// MessageEvent is published to the broker when a message reaches a
// terminal state.
type MessageEvent struct {
	MessageID  uuid.UUID     `json:"message_id"`
	WorkflowID uuid.UUID     `json:"workflow_id"`
	Channel    Channel       `json:"channel"`
	Status     MessageStatus `json:"status"`
	ProviderID *string       `json:"provider_message_id,omitempty"`
	Error      *string       `json:"error,omitempty"`
	OccurredAt time.Time     `json:"occurred_at"`
}
