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

type templateRepository struct {
	BaseRepository
}

func NewTemplateRepository(base BaseRepository) repository.TemplateRepository {
	return &templateRepository{base}
}

func (r *templateRepository) Create(ctx context.Context, tpl *model.MessageTemplate) error {
	tpl.ID = uuid.New()
	tpl.CreatedAt = time.Now()
	tpl.UpdatedAt = tpl.CreatedAt

	query := `
		INSERT INTO message_templates (id, name, channel, subject, body, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.ExecContext(ctx, query, tpl.ID, tpl.Name, tpl.Channel, tpl.Subject, tpl.Body, tpl.CreatedAt, tpl.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create template: %w", err)
	}
	return nil
}

func (r *templateRepository) Get(ctx context.Context, id uuid.UUID) (*model.MessageTemplate, error) {
	query := `
		SELECT id, name, channel, subject, body, created_at, updated_at
		FROM message_templates WHERE id = $1
	`
	var tpl model.MessageTemplate
	err := r.db.GetContext(ctx, &tpl, query, id)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound("template", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get template: %w", err)
	}
	return &tpl, nil
}

func (r *templateRepository) Update(ctx context.Context, tpl *model.MessageTemplate) error {
	tpl.UpdatedAt = time.Now()

	query := `
		UPDATE message_templates
		SET name = $2, channel = $3, subject = $4, body = $5, updated_at = $6
		WHERE id = $1
	`
	result, err := r.db.ExecContext(ctx, query, tpl.ID, tpl.Name, tpl.Channel, tpl.Subject, tpl.Body, tpl.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update template: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return errors.NewNotFound("template", sql.ErrNoRows)
	}
	return nil
}

func (r *templateRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM message_templates WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete template: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return errors.NewNotFound("template", sql.ErrNoRows)
	}
	return nil
}

func (r *templateRepository) List(ctx context.Context) ([]*model.MessageTemplate, error) {
	query := `
		SELECT id, name, channel, subject, body, created_at, updated_at
		FROM message_templates ORDER BY name ASC
	`
	var templates []*model.MessageTemplate
	if err := r.db.SelectContext(ctx, &templates, query); err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}
	return templates, nil
}
