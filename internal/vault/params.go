// Package vault implements the client-side mirror of the on-chain pool and
// position math.
//
// Every function operates on scaled *big.Int amounts and reproduces the
// contracts' truncating integer division at every step, in the same order of
// operations, so that fee and liquidation previews shown before a
// transaction match what the chain will actually compute. Nothing here may
// round, and nothing here may touch floating point.
//
// Absent results are expressed as comma-ok returns: (nil, false) means the
// inputs are insufficient for a meaningful answer (zero divisor, missing
// price), which callers must treat as "not displayable", never as zero.
package vault

import "math/big"

// Scale constants shared with the on-chain contracts.
const (
	// BasisPointsDivisor is the denominator for all basis-point values;
	// 10000 bps = 100%.
	BasisPointsDivisor = 10000

	// UsdDecimals is the decimal exponent of USD-denominated values.
	UsdDecimals = 30

	// UsdphDecimals is the decimal exponent of the usdph accounting unit.
	UsdphDecimals = 18

	// UsdphSymbol identifies the synthetic USD-pegged accounting token used
	// as the intermediate leg of pool deposits and redemptions.
	UsdphSymbol = "USDPH"
)

// FundingRatePrecision is the scale of cumulative funding rate values.
var FundingRatePrecision = big.NewInt(1_000_000)

// FeeParams holds the per-chain fee tier configuration. All bps fields use
// BasisPointsDivisor scale; LiquidationFeeUsd is a USD value at 30 decimals;
// MaxLeverage is bps-scaled (1_000_000 = 100x).
type FeeParams struct {
	SwapFeeBps        int64
	StableSwapFeeBps  int64
	TaxBps            int64
	StableTaxBps      int64
	MintBurnFeeBps    int64
	MarginFeeBps      int64
	LiquidationFeeUsd *big.Int
	MaxLeverage       int64
}

// PositionParams configures the minimum-profit grace window applied to
// freshly increased positions. A zero MinProfitTime disables the window; it
// stays configurable rather than hard-coded because deployments differ.
type PositionParams struct {
	MinProfitTime int64 // Window length in seconds after the last size increase
	MinProfitBps  int64 // Profit threshold in basis points below which profit is zeroed
}
