package phone

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name        string
		raw         string
		countryCode string
		want        string
	}{
		{
			name:        "already international",
			raw:         "+15551234567",
			countryCode: "+44",
			want:        "+15551234567",
		},
		{
			name:        "leading zero replaced with country code",
			raw:         "05551234567",
			countryCode: "+1",
			want:        "+15551234567",
		},
		{
			name:        "no leading zero still gets country code",
			raw:         "5551234567",
			countryCode: "+1",
			want:        "+15551234567",
		},
		{
			name:        "formatting characters stripped",
			raw:         "+1 (555) 123-4567",
			countryCode: "+44",
			want:        "+15551234567",
		},
		{
			name:        "country code without plus",
			raw:         "07700900123",
			countryCode: "44",
			want:        "+447700900123",
		},
		{
			name:        "plus only counts at position zero",
			raw:         "555+1234567",
			countryCode: "+1",
			want:        "+15551234567",
		},
		{
			name:        "empty input",
			raw:         "",
			countryCode: "+1",
			want:        "",
		},
		{
			name:        "no digits at all",
			raw:         "n/a",
			countryCode: "+1",
			want:        "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.raw, tt.countryCode))
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{"05551234567", "+447700900123", "(555) 123 4567"}
	for _, raw := range inputs {
		once := Normalize(raw, "+1")
		twice := Normalize(once, "+1")
		assert.Equal(t, once, twice, "normalizing %q twice changed the result", raw)
	}
}
