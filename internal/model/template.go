package model

import (
	"time"

	"github.com/google/uuid"
)

// MessageTemplate holds subject/body text with {{field}} placeholders
// substituted from the triggering payload at dispatch time.
type MessageTemplate struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Channel   Channel   `db:"channel" json:"channel"`
	Subject   string    `db:"subject" json:"subject"`
	Body      string    `db:"body" json:"body"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
