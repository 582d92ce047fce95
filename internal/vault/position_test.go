package vault

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nevermind0825/phamous-sub000/internal/model"
)

var positionFees = FeeParams{
	SwapFeeBps:        30,
	StableSwapFeeBps:  1,
	TaxBps:            50,
	StableTaxBps:      5,
	MintBurnFeeBps:    25,
	MarginFeeBps:      10,
	LiquidationFeeUsd: usd(5),
	MaxLeverage:       100 * BasisPointsDivisor,
}

// Test_Leverage tests leverage computation and its absence semantics.
func Test_Leverage(t *testing.T) {
	tests := []struct {
		name        string
		size        *big.Int
		collateral  *big.Int
		entryRate   *big.Int
		cumRate     *big.Int
		expected    int64 // bps, 0 means expect absent
		expectOk    bool
		description string
	}{
		{
			name:        "Ten times leverage after margin fee",
			size:        usd(1000),
			collateral:  usd(100),
			expected:    101010, // 1000*10000 / (100 - 1 margin fee)
			expectOk:    true,
			description: "Margin fee on the full size reduces effective collateral",
		},
		{
			name:        "Funding fee reduces collateral further",
			size:        usd(1000),
			collateral:  usd(100),
			entryRate:   bi(100_000),
			cumRate:     bi(100_500), // delta 500 -> fee 1000*500/1e6 = 0.5 USD
			expected:    101522,      // 1000*10000 / 98.5
			expectOk:    true,
			description: "Accrued funding is charged before dividing",
		},
		{
			name:        "Zero size is absent",
			size:        bi(0),
			collateral:  usd(100),
			expectOk:    false,
			description: "No position means no leverage, never zero",
		},
		{
			name:        "Zero collateral is absent",
			size:        usd(1000),
			collateral:  bi(0),
			expectOk:    false,
			description: "Division by zero collateral has no meaningful result",
		},
		{
			name:        "Missing inputs are absent",
			size:        nil,
			collateral:  nil,
			expectOk:    false,
			description: "Missing data is not displayable",
		},
		{
			name:        "Fees exceeding collateral are absent",
			size:        usd(1_000_000),
			collateral:  usd(100), // margin fee alone is 1000 USD
			expectOk:    false,
			description: "Non-positive post-fee collateral is absent, not negative",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Leverage(tt.size, tt.collateral, tt.entryRate, tt.cumRate, positionFees)
			require.Equal(t, tt.expectOk, ok, tt.description)
			if tt.expectOk {
				assert.Equal(t, tt.expected, got.Int64(), tt.description)
			} else {
				assert.Nil(t, got, "absent leverage must carry no value")
			}
		})
	}
}

// Test_PositionDelta tests P&L computation including the minimum-profit
// grace window.
func Test_PositionDelta(t *testing.T) {
	const now = int64(1_700_000_000)

	longPos := func(lastIncreased int64) model.Position {
		return model.Position{
			Size:              usd(1000),
			Collateral:        usd(100),
			AveragePrice:      usd(2000),
			IsLong:            true,
			LastIncreasedTime: lastIncreased,
		}
	}

	t.Run("Long profit above average price", func(t *testing.T) {
		got, ok := PositionDelta(usd(2200), longPos(0), PositionParams{}, now)
		require.True(t, ok)
		assert.True(t, got.HasProfit)
		assert.Equal(t, 0, usd(100).Cmp(got.Delta), "1000 * 200/2000 = 100 USD profit")
		assert.Equal(t, 0, got.Delta.Cmp(got.PendingDelta))
	})

	t.Run("Long loss below average price", func(t *testing.T) {
		got, ok := PositionDelta(usd(1800), longPos(0), PositionParams{}, now)
		require.True(t, ok)
		assert.False(t, got.HasProfit)
		assert.Equal(t, 0, usd(100).Cmp(got.Delta))
	})

	t.Run("Short profit below average price", func(t *testing.T) {
		pos := longPos(0)
		pos.IsLong = false
		got, ok := PositionDelta(usd(1800), pos, PositionParams{}, now)
		require.True(t, ok)
		assert.True(t, got.HasProfit)
	})

	t.Run("Small profit zeroed inside the grace window", func(t *testing.T) {
		params := PositionParams{MinProfitTime: 60, MinProfitBps: 150}
		got, ok := PositionDelta(usd(2002), longPos(now-10), params, now)
		require.True(t, ok)
		assert.True(t, got.HasProfit)
		assert.Equal(t, 0, got.Delta.Sign(), "0.1% profit is below the 1.5% threshold")
		assert.Equal(t, 0, usd(1).Cmp(got.PendingDelta), "pending delta keeps the raw value")
	})

	t.Run("Grace window expires", func(t *testing.T) {
		params := PositionParams{MinProfitTime: 60, MinProfitBps: 150}
		got, ok := PositionDelta(usd(2002), longPos(now-120), params, now)
		require.True(t, ok)
		assert.Equal(t, 0, usd(1).Cmp(got.Delta), "expired window leaves the profit intact")
	})

	t.Run("Losses are never zeroed by the window", func(t *testing.T) {
		params := PositionParams{MinProfitTime: 60, MinProfitBps: 150}
		got, ok := PositionDelta(usd(1998), longPos(now-10), params, now)
		require.True(t, ok)
		assert.False(t, got.HasProfit)
		assert.Equal(t, 0, usd(1).Cmp(got.Delta), "the window only suppresses profits")
	})

	t.Run("Zero average price is absent", func(t *testing.T) {
		pos := longPos(0)
		pos.AveragePrice = bi(0)
		_, ok := PositionDelta(usd(2000), pos, PositionParams{}, now)
		assert.False(t, ok)
	})
}

// Test_LiquidationPrice tests the conservative two-candidate liquidation
// price.
func Test_LiquidationPrice(t *testing.T) {
	basePos := model.Position{
		Size:         usd(1000),
		Collateral:   usd(100),
		AveragePrice: usd(2000),
		IsLong:       true,
	}

	t.Run("Long takes the higher candidate", func(t *testing.T) {
		got, ok := LiquidationPrice(basePos, nil, positionFees)
		require.True(t, ok)

		// Max-leverage candidate: liqAmount 10 -> delta 90 -> 2000-180 = 1820.
		// Fee candidate: fees 1+5=6 -> delta 94 -> 2000-188 = 1812.
		assert.Equal(t, 0, usd(1820).Cmp(got), "max-leverage candidate dominates here")
		assert.True(t, got.Cmp(basePos.AveragePrice) < 0, "long liquidation is below entry")
	})

	t.Run("Large fees push the long candidate higher", func(t *testing.T) {
		fees := positionFees
		fees.LiquidationFeeUsd = usd(50) // total fees 51 > max-leverage amount 10
		got, ok := LiquidationPrice(basePos, nil, fees)
		require.True(t, ok)

		// Fee candidate: delta 49 -> 2000-98 = 1902, above the 1820 candidate.
		assert.Equal(t, 0, usd(1902).Cmp(got))
		assert.True(t, got.Cmp(usd(1820)) > 0,
			"nonzero fees beyond the leverage cap must worsen the liquidation price")
	})

	t.Run("Short takes the lower candidate", func(t *testing.T) {
		pos := basePos
		pos.IsLong = false
		got, ok := LiquidationPrice(pos, nil, positionFees)
		require.True(t, ok)

		// Mirror of the long case: min(2188, 2180) = 2180.
		assert.Equal(t, 0, usd(2180).Cmp(got))
		assert.True(t, got.Cmp(pos.AveragePrice) > 0, "short liquidation is above entry")
	})

	t.Run("Funding accrual moves the candidate", func(t *testing.T) {
		pos := basePos
		pos.EntryFundingRate = bi(0)
		cumRate := bi(100_000) // fee 1000 * 0.1 = 100 USD

		got, ok := LiquidationPrice(pos, cumRate, positionFees)
		require.True(t, ok)

		// Total fees 106 exceed collateral 100: candidate above entry is
		// impossible to dodge, liquidation is immediate at any price at or
		// above 2012; the fee candidate dominates the leverage candidate.
		assert.True(t, got.Cmp(usd(1820)) > 0)
	})

	t.Run("Zero size is absent", func(t *testing.T) {
		pos := basePos
		pos.Size = bi(0)
		_, ok := LiquidationPrice(pos, nil, positionFees)
		assert.False(t, ok)
	})

	t.Run("Idempotent and non-mutating", func(t *testing.T) {
		first, ok1 := LiquidationPrice(basePos, nil, positionFees)
		second, ok2 := LiquidationPrice(basePos, nil, positionFees)
		require.True(t, ok1)
		require.True(t, ok2)
		assert.Equal(t, 0, first.Cmp(second))
		assert.Equal(t, 0, usd(1000).Cmp(basePos.Size), "input position must not be mutated")
	})
}
