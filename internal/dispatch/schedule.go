package dispatch

import (
	"errors"
	"fmt"
	"time"

	"github.com/jwalitptl/notify-engine/internal/model"
)

// ErrMissingReference is returned when a distinct_time workflow's
// reference field is absent from the payload. The dispatcher skips
// only that workflow.
var ErrMissingReference = errors.New("schedule reference field missing from payload")

// timestampLayouts are the accepted wire formats for reference fields.
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ResolveDueAt computes the absolute delivery time for a workflow
// against the triggering payload. It is pure: fixed inputs always
// produce the same output.
func ResolveDueAt(w *model.Workflow, now time.Time, payload map[string]interface{}) (time.Time, error) {
	switch w.ScheduleType {
	case model.ScheduleImmediate:
		return now, nil

	case model.ScheduleDelay:
		// delay mode ignores schedule_offset/schedule_unit entirely.
		return now.Add(time.Duration(w.DelayMinutes) * time.Minute), nil

	case model.ScheduleDistinctTime:
		raw, ok := payload[w.ScheduleReference]
		if !ok || raw == nil {
			return time.Time{}, fmt.Errorf("%w: %q", ErrMissingReference, w.ScheduleReference)
		}
		ref, err := parseTimestamp(raw)
		if err != nil {
			return time.Time{}, fmt.Errorf("reference field %q: %w", w.ScheduleReference, err)
		}
		unit, err := w.ScheduleUnit.Duration()
		if err != nil {
			return time.Time{}, err
		}
		// A negative offset lands before the reference, positive after.
		return ref.Add(time.Duration(w.ScheduleOffset) * unit), nil

	default:
		return time.Time{}, fmt.Errorf("unknown schedule type %q", w.ScheduleType)
	}
}

func parseTimestamp(v interface{}) (time.Time, error) {
	switch val := v.(type) {
	case time.Time:
		return val, nil
	case string:
		for _, layout := range timestampLayouts {
			if ts, err := time.Parse(layout, val); err == nil {
				return ts, nil
			}
		}
		return time.Time{}, fmt.Errorf("unparseable timestamp %q", val)
	case float64:
		return time.Unix(int64(val), 0).UTC(), nil
	case int64:
		return time.Unix(val, 0).UTC(), nil
	case int:
		return time.Unix(int64(val), 0).UTC(), nil
	default:
		return time.Time{}, fmt.Errorf("unsupported timestamp type %T", v)
	}
}
