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

type workflowRepository struct {
	BaseRepository
}

func NewWorkflowRepository(base BaseRepository) repository.WorkflowRepository {
	return &workflowRepository{base}
}

const workflowColumns = `
	id, name, trigger_event, channel, template_id, gateway_id,
	schedule_type, delay_minutes, schedule_offset, schedule_unit,
	schedule_reference, conditions, is_active, created_at, updated_at
`

func (r *workflowRepository) Create(ctx context.Context, workflow *model.Workflow) error {
	workflow.ID = uuid.New()
	workflow.CreatedAt = time.Now()
	workflow.UpdatedAt = workflow.CreatedAt

	query := `
		INSERT INTO workflows (
			id, name, trigger_event, channel, template_id, gateway_id,
			schedule_type, delay_minutes, schedule_offset, schedule_unit,
			schedule_reference, conditions, is_active, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15
		)
	`
	_, err := r.db.ExecContext(ctx, query,
		workflow.ID,
		workflow.Name,
		workflow.TriggerEvent,
		workflow.Channel,
		workflow.TemplateID,
		workflow.GatewayID,
		workflow.ScheduleType,
		workflow.DelayMinutes,
		workflow.ScheduleOffset,
		workflow.ScheduleUnit,
		workflow.ScheduleReference,
		workflow.Conditions,
		workflow.IsActive,
		workflow.CreatedAt,
		workflow.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create workflow: %w", err)
	}
	return nil
}

func (r *workflowRepository) Get(ctx context.Context, id uuid.UUID) (*model.Workflow, error) {
	query := `SELECT ` + workflowColumns + ` FROM workflows WHERE id = $1`

	var workflow model.Workflow
	err := r.db.GetContext(ctx, &workflow, query, id)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound("workflow", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get workflow: %w", err)
	}
	return &workflow, nil
}

func (r *workflowRepository) Update(ctx context.Context, workflow *model.Workflow) error {
	workflow.UpdatedAt = time.Now()

	query := `
		UPDATE workflows
		SET name = $2, trigger_event = $3, channel = $4, template_id = $5,
			gateway_id = $6, schedule_type = $7, delay_minutes = $8,
			schedule_offset = $9, schedule_unit = $10, schedule_reference = $11,
			conditions = $12, is_active = $13, updated_at = $14
		WHERE id = $1
	`
	result, err := r.db.ExecContext(ctx, query,
		workflow.ID,
		workflow.Name,
		workflow.TriggerEvent,
		workflow.Channel,
		workflow.TemplateID,
		workflow.GatewayID,
		workflow.ScheduleType,
		workflow.DelayMinutes,
		workflow.ScheduleOffset,
		workflow.ScheduleUnit,
		workflow.ScheduleReference,
		workflow.Conditions,
		workflow.IsActive,
		workflow.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update workflow: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return errors.NewNotFound("workflow", sql.ErrNoRows)
	}
	return nil
}

func (r *workflowRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM workflows WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete workflow: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return errors.NewNotFound("workflow", sql.ErrNoRows)
	}
	return nil
}

func (r *workflowRepository) List(ctx context.Context) ([]*model.Workflow, error) {
	query := `SELECT ` + workflowColumns + ` FROM workflows ORDER BY created_at DESC`

	var workflows []*model.Workflow
	if err := r.db.SelectContext(ctx, &workflows, query); err != nil {
		return nil, fmt.Errorf("failed to list workflows: %w", err)
	}
	return workflows, nil
}

func (r *workflowRepository) ListActiveForEvent(ctx context.Context, event model.TriggerEvent) ([]*model.Workflow, error) {
	query := `
		SELECT ` + workflowColumns + `
		FROM workflows
		WHERE trigger_event = $1 AND is_active = true
		ORDER BY created_at ASC
	`
	var workflows []*model.Workflow
	if err := r.db.SelectContext(ctx, &workflows, query, event); err != nil {
		return nil, fmt.Errorf("failed to list workflows for event %s: %w", event, err)
	}
	return workflows, nil
}

func (r *workflowRepository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	query := `UPDATE workflows SET is_active = $2, updated_at = $3 WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id, active, time.Now())
	if err != nil {
		return fmt.Errorf("failed to toggle workflow: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return errors.NewNotFound("workflow", sql.ErrNoRows)
	}
	return nil
}
