package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jwalitptl/notify-engine/internal/repository"
	"github.com/jwalitptl/notify-engine/pkg/errors"
)

type settingRepository struct {
	BaseRepository
}

func NewSettingRepository(base BaseRepository) repository.SettingRepository {
	return &settingRepository{base}
}

func (r *settingRepository) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := r.db.GetContext(ctx, &value, `SELECT value FROM engine_settings WHERE key = $1`, key)
	if err == sql.ErrNoRows {
		return "", errors.NewNotFound("setting "+key, err)
	}
	if err != nil {
		return "", fmt.Errorf("failed to get setting %s: %w", key, err)
	}
	return value, nil
}

func (r *settingRepository) Set(ctx context.Context, key, value string) error {
	query := `
		INSERT INTO engine_settings (key, value, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()
	`
	if _, err := r.db.ExecContext(ctx, query, key, value); err != nil {
		return fmt.Errorf("failed to set setting %s: %w", key, err)
	}
	return nil
}

// CompareAndSet is the single global guard for the daily counter reset:
// only the run that wins this update performs the reset.
func (r *settingRepository) CompareAndSet(ctx context.Context, key, old, new string) (bool, error) {
	query := `
		UPDATE engine_settings
		SET value = $3, updated_at = NOW()
		WHERE key = $1 AND value = $2
	`
	result, err := r.db.ExecContext(ctx, query, key, old, new)
	if err != nil {
		return false, fmt.Errorf("failed to compare-and-set setting %s: %w", key, err)
	}
	rows, _ := result.RowsAffected()
	return rows > 0, nil
}
