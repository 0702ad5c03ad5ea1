package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verzog/merchant/internal/domain"
)

// Schedule: 1-4 at 10, 5-9 at 9, 10 and up at 8.
func volumeTiers() []domain.PriceTier {
	return []domain.PriceTier{
		{From: 1, Range: 4, Price: 10},
		{From: 5, Range: 5, Price: 9},
		{From: 10, Range: 0, Price: 8},
	}
}

func TestUnitPrice(t *testing.T) {
	tests := []struct {
		name     string
		qty      int
		expected float64
	}{
		{"first bracket low edge", 1, 10},
		{"first bracket high edge", 4, 10},
		{"middle bracket", 5, 9},
		{"middle bracket high edge", 9, 9},
		{"open bracket start", 10, 8},
		{"open bracket large quantity", 5000, 8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := UnitPrice(volumeTiers(), tt.qty)
			require.NoError(t, err)
			assert.InDelta(t, tt.expected, got, 0.001)
		})
	}
}

func TestUnitPrice_TotalsFollowBracket(t *testing.T) {
	// The entire quantity is billed at its bracket price, so three
	// units cost 30 while ten units cost 80.
	unit, err := UnitPrice(volumeTiers(), 3)
	require.NoError(t, err)
	assert.InDelta(t, 30.0, unit*3, 0.001)

	unit, err = UnitPrice(volumeTiers(), 10)
	require.NoError(t, err)
	assert.InDelta(t, 80.0, unit*10, 0.001)
}

func TestUnitPrice_Errors(t *testing.T) {
	t.Run("no tiers", func(t *testing.T) {
		_, err := UnitPrice(nil, 1)
		var perr *PricingError
		require.ErrorAs(t, err, &perr)
		assert.Equal(t, ErrCodeNoTiers, perr.Code)
	})

	t.Run("zero quantity", func(t *testing.T) {
		_, err := UnitPrice(volumeTiers(), 0)
		var perr *PricingError
		require.ErrorAs(t, err, &perr)
		assert.Equal(t, ErrCodeNoBracket, perr.Code)
	})

	t.Run("gap before first bracket", func(t *testing.T) {
		tiers := []domain.PriceTier{{From: 5, Range: 0, Price: 9}}
		_, err := UnitPrice(tiers, 2)
		var perr *PricingError
		require.ErrorAs(t, err, &perr)
		assert.Equal(t, ErrCodeNoBracket, perr.Code)
	})
}

func TestValidateTiers(t *testing.T) {
	t.Run("contiguous schedule", func(t *testing.T) {
		assert.NoError(t, ValidateTiers(volumeTiers()))
	})

	t.Run("single open bracket", func(t *testing.T) {
		assert.NoError(t, ValidateTiers([]domain.PriceTier{{From: 1, Range: 0, Price: 10}}))
	})

	t.Run("gap between brackets", func(t *testing.T) {
		err := ValidateTiers([]domain.PriceTier{
			{From: 1, Range: 4, Price: 10},
			{From: 6, Range: 0, Price: 9},
		})
		var perr *PricingError
		require.ErrorAs(t, err, &perr)
		assert.Equal(t, ErrCodeBadRange, perr.Code)
	})

	t.Run("open bracket not last", func(t *testing.T) {
		err := ValidateTiers([]domain.PriceTier{
			{From: 1, Range: 0, Price: 10},
			{From: 5, Range: 5, Price: 9},
		})
		var perr *PricingError
		require.ErrorAs(t, err, &perr)
		assert.Equal(t, ErrCodeBadRange, perr.Code)
	})
}

func TestDiscount_Amount(t *testing.T) {
	discount := Discount{Threshold: 100, Rate: 10}

	tests := []struct {
		name     string
		total    float64
		expected float64
	}{
		{"below threshold", 99.99, 0},
		{"at threshold", 100, 10},
		{"above threshold", 250, 25},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, discount.Amount(tt.total), 0.001)
		})
	}

	t.Run("disabled discount", func(t *testing.T) {
		assert.Zero(t, Discount{}.Amount(1000))
	})
}

func TestRound(t *testing.T) {
	assert.InDelta(t, 10.56, Round(10.555), 1e-9)
	assert.InDelta(t, 0.1, Round(0.1+0.2-0.2), 1e-9)
}
