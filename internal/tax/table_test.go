package tax

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTable_Apply(t *testing.T) {
	table, err := NewTable([]Rule{
		{Code: "VAT20", Country: "FR", Ratio: 20, Formula: "ttc = ht * (1 + tr / 100)"},
		{Code: "VAT55", Country: "FR", Ratio: 5.5, Formula: "ttc = ht * (1 + tr / 100)"},
		{Code: "FLAT", Country: "FR", Ratio: 0, Formula: "ht + 2"},
		{Code: "EXEMPT", Country: "FR", Ratio: 0, Formula: ""},
	})
	require.NoError(t, err)

	tests := []struct {
		name    string
		code    string
		untaxed float64
		taxed   float64
		tax     float64
	}{
		{
			name:    "standard rate",
			code:    "VAT20",
			untaxed: 100,
			taxed:   120,
			tax:     20,
		},
		{
			name:    "reduced rate",
			code:    "VAT55",
			untaxed: 100,
			taxed:   105.5,
			tax:     5.5,
		},
		{
			name:    "flat surcharge formula",
			code:    "FLAT",
			untaxed: 10,
			taxed:   12,
			tax:     2,
		},
		{
			name:    "empty formula is identity",
			code:    "EXEMPT",
			untaxed: 80,
			taxed:   80,
			tax:     0,
		},
		{
			name:    "empty code is identity",
			code:    "",
			untaxed: 33,
			taxed:   33,
			tax:     0,
		},
		{
			name:    "zero amount",
			code:    "VAT20",
			untaxed: 0,
			taxed:   0,
			tax:     0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := table.Apply(tt.code, tt.untaxed)
			require.NoError(t, err)
			assert.InDelta(t, tt.untaxed, got.Untaxed, 0.001)
			assert.InDelta(t, tt.taxed, got.Taxed, 0.001)
			assert.InDelta(t, tt.tax, got.Tax, 0.001)
		})
	}
}

func TestTable_Apply_UnknownRule(t *testing.T) {
	table, err := NewTable(nil)
	require.NoError(t, err)

	got, err := table.Apply("MISSING", 50)
	require.Error(t, err)

	var terr *TaxError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, ErrCodeUnknownRule, terr.Code)

	// Unknown rules fall back to the untaxed amount so a
	// misconfigured item never charges phantom tax.
	assert.InDelta(t, 50, got.Taxed, 0.001)
	assert.InDelta(t, 0, got.Tax, 0.001)
}

func TestNewTable_BadFormula(t *testing.T) {
	_, err := NewTable([]Rule{
		{Code: "BROKEN", Formula: "ht * (1 +"},
	})
	require.Error(t, err)

	var terr *TaxError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, ErrCodeBadFormula, terr.Code)
}

func TestZero_Apply(t *testing.T) {
	zero := NewZero()

	got, err := zero.Apply("VAT20", 100)
	require.NoError(t, err)
	assert.InDelta(t, 100, got.Taxed, 0.001)
	assert.InDelta(t, 0, got.Tax, 0.001)
}
