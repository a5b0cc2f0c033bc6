package dispatch

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jwalitptl/notify-engine/internal/model"
)

// MatchesConditions evaluates a workflow's AND-combined predicate list
// against an event payload. An empty list always matches. A field
// absent from the payload coerces to the empty string, so Eq against a
// non-empty value fails while the corresponding Ne succeeds.
//
// A malformed condition yields an error; the dispatcher treats that
// workflow as non-matching without disturbing its siblings.
func MatchesConditions(conditions []model.Condition, payload map[string]interface{}) (bool, error) {
	for i, cond := range conditions {
		if cond.Field == "" {
			return false, fmt.Errorf("condition %d: empty field", i)
		}

		actual := coerceString(payload[cond.Field])

		switch cond.Operator {
		case model.OperatorEq:
			if actual != cond.Value {
				return false, nil
			}
		case model.OperatorNe:
			if actual == cond.Value {
				return false, nil
			}
		case model.OperatorIn:
			if !inList(actual, cond.Value) {
				return false, nil
			}
		default:
			return false, fmt.Errorf("condition %d: unknown operator %q", i, cond.Operator)
		}
	}
	return true, nil
}

// inList tests membership in a comma-separated value list.
func inList(actual, list string) bool {
	for _, candidate := range strings.Split(list, ",") {
		if strings.TrimSpace(candidate) == actual {
			return true
		}
	}
	return false
}

// coerceString normalizes payload values to strings for comparison.
// JSON numbers arrive as float64; integral ones must render without a
// decimal point so {"count": 3} matches the stored value "3".
func coerceString(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	default:
		return fmt.Sprintf("%v", val)
	}
}
