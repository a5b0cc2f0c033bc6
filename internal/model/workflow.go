package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Channel identifies the delivery medium a workflow targets.
type Channel string

const (
	ChannelSMS   Channel = "sms"
	ChannelPush  Channel = "push"
	ChannelChat  Channel = "chat"
	ChannelEmail Channel = "email"
)

func (c Channel) Valid() bool {
	switch c {
	case ChannelSMS, ChannelPush, ChannelChat, ChannelEmail:
		return true
	}
	return false
}

// ScheduleType selects how a workflow computes the delivery time.
type ScheduleType string

const (
	ScheduleImmediate    ScheduleType = "immediate"
	ScheduleDelay        ScheduleType = "delay"
	ScheduleDistinctTime ScheduleType = "distinct_time"
)

func (s ScheduleType) Valid() bool {
	switch s {
	case ScheduleImmediate, ScheduleDelay, ScheduleDistinctTime:
		return true
	}
	return false
}

// ScheduleUnit is the unit applied to a distinct_time offset.
type ScheduleUnit string

const (
	UnitMinutes ScheduleUnit = "minutes"
	UnitHours   ScheduleUnit = "hours"
	UnitDays    ScheduleUnit = "days"
)

// Duration returns the length of one unit.
func (u ScheduleUnit) Duration() (time.Duration, error) {
	switch u {
	case UnitMinutes:
		return time.Minute, nil
	case UnitHours:
		return time.Hour, nil
	case UnitDays:
		return 24 * time.Hour, nil
	}
	return 0, fmt.Errorf("unknown schedule unit: %q", u)
}

// ConditionOperator is the closed set of comparison operators a workflow
// condition may use. Validated at save time, not re-checked per event.
type ConditionOperator string

const (
	OperatorEq ConditionOperator = "eq"
	OperatorNe ConditionOperator = "ne"
	OperatorIn ConditionOperator = "in"
)

func (o ConditionOperator) Valid() bool {
	switch o {
	case OperatorEq, OperatorNe, OperatorIn:
		return true
	}
	return false
}

// Condition is one predicate over the triggering payload. A workflow's
// conditions are AND-combined; an empty list always matches.
type Condition struct {
	Field    string            `json:"field"`
	Operator ConditionOperator `json:"operator"`
	Value    string            `json:"value"`
}

// ConditionList stores conditions as a JSONB column.
type ConditionList []Condition

func (c ConditionList) Value() (driver.Value, error) {
	if c == nil {
		return "[]", nil
	}
	return json.Marshal(c)
}

func (c *ConditionList) Scan(src interface{}) error {
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
		return fmt.Errorf("cannot scan %T into ConditionList", src)
	}
	return json.Unmarshal(data, c)
}

// TriggerEvent is a named domain occurrence that can activate workflows.
type TriggerEvent string

const (
	EventInquiryCreated     TriggerEvent = "inquiry_created"
	EventInquiryAssigned    TriggerEvent = "inquiry_assigned"
	EventInquiryStatusMoved TriggerEvent = "inquiry_status_changed"
	EventTaskCreated        TriggerEvent = "task_created"
	EventTaskDue            TriggerEvent = "task_due"
	EventAppointmentBooked  TriggerEvent = "appointment_booked"
	EventPaymentReceived    TriggerEvent = "payment_received"
)

// TriggerEvents is the fixed enumeration of events workflows may bind to.
var TriggerEvents = []TriggerEvent{
	EventInquiryCreated,
	EventInquiryAssigned,
	EventInquiryStatusMoved,
	EventTaskCreated,
	EventTaskDue,
	EventAppointmentBooked,
	EventPaymentReceived,
}

func (e TriggerEvent) Valid() bool {
	for _, known := range TriggerEvents {
		if e == known {
			return true
		}
	}
	return false
}

// Workflow maps a trigger event and conditions to a scheduled
// notification through one template, channel and (optionally pinned)
// gateway. Read-only for the dispatcher; mutated only by the admin API.
type Workflow struct {
	ID                uuid.UUID     `db:"id" json:"id"`
	Name              string        `db:"name" json:"name"`
	TriggerEvent      TriggerEvent  `db:"trigger_event" json:"trigger_event"`
	Channel           Channel       `db:"channel" json:"channel"`
	TemplateID        uuid.UUID     `db:"template_id" json:"template_id"`
	GatewayID         *uuid.UUID    `db:"gateway_id" json:"gateway_id,omitempty"`
	ScheduleType      ScheduleType  `db:"schedule_type" json:"schedule_type"`
	DelayMinutes      int           `db:"delay_minutes" json:"delay_minutes"`
	ScheduleOffset    int           `db:"schedule_offset" json:"schedule_offset"`
	ScheduleUnit      ScheduleUnit  `db:"schedule_unit" json:"schedule_unit"`
	ScheduleReference string        `db:"schedule_reference" json:"schedule_reference"`
	Conditions        ConditionList `db:"conditions" json:"conditions"`
	IsActive          bool          `db:"is_active" json:"is_active"`
	CreatedAt         time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time     `db:"updated_at" json:"updated_at"`
}
