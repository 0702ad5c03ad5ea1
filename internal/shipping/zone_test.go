package shipping

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZone_Matches(t *testing.T) {
	tests := []struct {
		name     string
		pattern  string
		addr     Address
		expected bool
	}{
		{
			name:     "country match",
			pattern:  "FR",
			addr:     Address{Country: "FR", Zip: "75001"},
			expected: true,
		},
		{
			name:     "country mismatch",
			pattern:  "FR",
			addr:     Address{Country: "BE", Zip: "1000"},
			expected: false,
		},
		{
			name:     "country alternatives",
			pattern:  "FR|BE|LU",
			addr:     Address{Country: "BE", Zip: "1000"},
			expected: true,
		},
		{
			name:     "country and zip glob",
			pattern:  "FR&75*",
			addr:     Address{Country: "FR", Zip: "75011"},
			expected: true,
		},
		{
			name:     "zip glob rejects other area",
			pattern:  "FR&75*",
			addr:     Address{Country: "FR", Zip: "13001"},
			expected: false,
		},
		{
			name:     "zip alternatives within group",
			pattern:  "FR&75*|13*",
			addr:     Address{Country: "FR", Zip: "13001"},
			expected: true,
		},
		{
			name:     "case insensitive country",
			pattern:  "FR",
			addr:     Address{Country: "fr", Zip: "75001"},
			expected: true,
		},
		{
			name:     "empty pattern matches nothing",
			pattern:  "",
			addr:     Address{Country: "FR"},
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			zone := &Zone{Code: "01", Pattern: tt.pattern}
			assert.Equal(t, tt.expected, zone.Matches(tt.addr))
		})
	}
}

func TestZone_Matches_DefaultNeverMatchesDirectly(t *testing.T) {
	zone := &Zone{Code: DefaultZoneCode, Pattern: "FR"}
	assert.False(t, zone.Matches(Address{Country: "FR"}))
}

func TestResolveZone(t *testing.T) {
	zones := []Zone{
		{Code: DefaultZoneCode},
		{Code: "01", Pattern: "FR&75*"},
		{Code: "02", Pattern: "FR"},
		{Code: "03", Pattern: "BE|LU"},
	}

	t.Run("most specific listed zone wins in order", func(t *testing.T) {
		zone := ResolveZone(zones, Address{Country: "FR", Zip: "75001"})
		require.NotNil(t, zone)
		assert.Equal(t, "01", zone.Code)
	})

	t.Run("falls through to broader zone", func(t *testing.T) {
		zone := ResolveZone(zones, Address{Country: "FR", Zip: "13001"})
		require.NotNil(t, zone)
		assert.Equal(t, "02", zone.Code)
	})

	t.Run("default zone only when nothing matches", func(t *testing.T) {
		zone := ResolveZone(zones, Address{Country: "US", Zip: "90210"})
		require.NotNil(t, zone)
		assert.Equal(t, DefaultZoneCode, zone.Code)
	})

	t.Run("nil without default zone", func(t *testing.T) {
		zone := ResolveZone(zones[1:], Address{Country: "US"})
		assert.Nil(t, zone)
	})
}
