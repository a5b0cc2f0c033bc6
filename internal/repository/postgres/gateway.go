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

type gatewayRepository struct {
	BaseRepository
}

func NewGatewayRepository(base BaseRepository) repository.GatewayRepository {
	return &gatewayRepository{base}
}

const gatewayColumns = `
	id, name, channel, provider, config, priority, is_active,
	daily_limit, daily_count, last_reset_date, created_at, updated_at
`

func (r *gatewayRepository) Create(ctx context.Context, gw *model.Gateway) error {
	gw.ID = uuid.New()
	gw.CreatedAt = time.Now()
	gw.UpdatedAt = gw.CreatedAt
	if gw.LastResetDate == "" {
		gw.LastResetDate = gw.CreatedAt.Format("2006-01-02")
	}

	query := `
		INSERT INTO gateways (
			id, name, channel, provider, config, priority, is_active,
			daily_limit, daily_count, last_reset_date, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12
		)
	`
	_, err := r.db.ExecContext(ctx, query,
		gw.ID,
		gw.Name,
		gw.Channel,
		gw.Provider,
		gw.Config,
		gw.Priority,
		gw.IsActive,
		gw.DailyLimit,
		gw.DailyCount,
		gw.LastResetDate,
		gw.CreatedAt,
		gw.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create gateway: %w", err)
	}
	return nil
}

func (r *gatewayRepository) Get(ctx context.Context, id uuid.UUID) (*model.Gateway, error) {
	query := `SELECT ` + gatewayColumns + ` FROM gateways WHERE id = $1`

	var gw model.Gateway
	err := r.db.GetContext(ctx, &gw, query, id)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound("gateway", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get gateway: %w", err)
	}
	return &gw, nil
}

func (r *gatewayRepository) Update(ctx context.Context, gw *model.Gateway) error {
	gw.UpdatedAt = time.Now()

	query := `
		UPDATE gateways
		SET name = $2, channel = $3, provider = $4, config = $5,
			priority = $6, is_active = $7, daily_limit = $8, updated_at = $9
		WHERE id = $1
	`
	result, err := r.db.ExecContext(ctx, query,
		gw.ID,
		gw.Name,
		gw.Channel,
		gw.Provider,
		gw.Config,
		gw.Priority,
		gw.IsActive,
		gw.DailyLimit,
		gw.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update gateway: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return errors.NewNotFound("gateway", sql.ErrNoRows)
	}
	return nil
}

func (r *gatewayRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM gateways WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete gateway: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return errors.NewNotFound("gateway", sql.ErrNoRows)
	}
	return nil
}

func (r *gatewayRepository) List(ctx context.Context) ([]*model.Gateway, error) {
	query := `SELECT ` + gatewayColumns + ` FROM gateways ORDER BY priority DESC, created_at ASC`

	var gateways []*model.Gateway
	if err := r.db.SelectContext(ctx, &gateways, query); err != nil {
		return nil, fmt.Errorf("failed to list gateways: %w", err)
	}
	return gateways, nil
}

func (r *gatewayRepository) ListActive(ctx context.Context) ([]*model.Gateway, error) {
	query := `
		SELECT ` + gatewayColumns + `
		FROM gateways
		WHERE is_active = true
		ORDER BY priority DESC, created_at ASC
	`
	var gateways []*model.Gateway
	if err := r.db.SelectContext(ctx, &gateways, query); err != nil {
		return nil, fmt.Errorf("failed to list active gateways: %w", err)
	}
	return gateways, nil
}

func (r *gatewayRepository) HighestPriorityActive(ctx context.Context, channel model.Channel) (*model.Gateway, error) {
	query := `
		SELECT ` + gatewayColumns + `
		FROM gateways
		WHERE is_active = true AND channel = $1
		ORDER BY priority DESC, created_at ASC
		LIMIT 1
	`
	var gw model.Gateway
	err := r.db.GetContext(ctx, &gw, query, channel)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound("active gateway for channel "+string(channel), err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to pick gateway for channel %s: %w", channel, err)
	}
	return &gw, nil
}

// TryIncrementDailyCount folds the quota check and the increment into a
// single guarded UPDATE so two concurrent processor runs cannot both
// pass a stale check. A zero daily_limit means unlimited.
func (r *gatewayRepository) TryIncrementDailyCount(ctx context.Context, id uuid.UUID) (bool, error) {
	query := `
		UPDATE gateways
		SET daily_count = daily_count + 1, updated_at = NOW()
		WHERE id = $1 AND (daily_limit = 0 OR daily_count < daily_limit)
	`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("failed to increment daily count: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return rows > 0, nil
}

func (r *gatewayRepository) ResetDailyCounts(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `UPDATE gateways SET daily_count = 0, last_reset_date = CURRENT_DATE::text, updated_at = NOW()`)
	if err != nil {
		return fmt.Errorf("failed to reset daily counts: %w", err)
	}
	return nil
}
