package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// GatewayConfig holds provider-specific configuration as a JSONB map
// (credentials, sender ids, endpoints). Required keys are declared per
// provider by its adapter factory.
type GatewayConfig map[string]string

func (c GatewayConfig) Value() (driver.Value, error) {
	if c == nil {
		return "{}", nil
	}
	return json.Marshal(c)
}

func (c *GatewayConfig) Scan(src interface{}) error {
	if src == nil {
		*c = nil
		return nil
	}
	var data []byte
	switch v := src.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into GatewayConfig", src)
	}
	return json.Unmarshal(data, c)
}

// Gateway is a configured provider integration for one channel.
// DailyCount is mutated only by the queue processor via an atomic
// check-and-increment; the reset to zero happens once per calendar day
// behind a single global compare-and-set (see SettingRepository).
type Gateway struct {
	ID            uuid.UUID     `db:"id" json:"id"`
	Name          string        `db:"name" json:"name"`
	Channel       Channel       `db:"channel" json:"channel"`
	Provider      string        `db:"provider" json:"provider"`
	Config        GatewayConfig `db:"config" json:"config"`
	Priority      int           `db:"priority" json:"priority"`
	IsActive      bool          `db:"is_active" json:"is_active"`
	DailyLimit    int           `db:"daily_limit" json:"daily_limit"`
	DailyCount    int           `db:"daily_count" json:"daily_count"`
	LastResetDate string        `db:"last_reset_date" json:"last_reset_date"`
	CreatedAt     time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time     `db:"updated_at" json:"updated_at"`
}

// QuotaExhausted reports whether the gateway has used up today's quota.
// A zero DailyLimit means unlimited.
func (g *Gateway) QuotaExhausted() bool {
	return g.DailyLimit > 0 && g.DailyCount >= g.DailyLimit
}
