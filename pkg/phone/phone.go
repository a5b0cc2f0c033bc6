package phone

import (
	"strings"
)

// Normalize canonicalizes a phone number: everything but digits is
// stripped, a leading + survives, and numbers without a country prefix
// get defaultCountryCode after dropping a single leading zero.
// Normalizing an already-normalized number is a no-op.
func Normalize(raw, defaultCountryCode string) string {
	var b strings.Builder
	for i, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		} else if r == '+' && i == 0 {
			b.WriteRune(r)
		}
	}
	number := b.String()
	if number == "" {
		return ""
	}

	if strings.HasPrefix(number, "+") {
		return number
	}

	cc := strings.TrimPrefix(defaultCountryCode, "+")
	number = strings.TrimPrefix(number, "0")
	return "+" + cc + number
}
