package vault

import (
	"math/big"

	"github.com/nevermind0825/phamous-sub000/internal/model"
)

// SwapResult carries a derived swap amount together with the fee tier that
// produced it. Amount is scaled by the computed side's token decimals and is
// already net of (NextToAmount) or gross of (NextFromAmount) the fee.
type SwapResult struct {
	Amount         *big.Int
	FeeBasisPoints int64
}

// isNativeWrappedPair reports whether the two tokens are the native asset
// and its wrapped form, which convert 1:1 without touching the pool.
func isNativeWrappedPair(a, b model.Token) bool {
	return (a.IsNative && b.IsWrapped) || (a.IsWrapped && b.IsNative)
}

// NextToAmount derives the output amount of a swap given a known input
// amount.
//
// It mirrors the contract's routing: same-token and native/wrapped pairs
// pass through 1:1; a usdph leg prices the pool deposit (mint) or
// redemption (burn) with the mint/burn fee curve; token-to-token swaps use
// the worse price on each side (seller's min price in, buyer's max price
// out) and pay the higher of the two sides' fee basis points.
//
// Absent when the input amount or any required price is missing or zero.
func NextToAmount(from, to model.Token, fromState, toState *model.TokenPoolState, amountIn *big.Int, fees FeeParams) (SwapResult, bool) {
	if amountIn == nil {
		return SwapResult{}, false
	}

	if from.Symbol == to.Symbol || isNativeWrappedPair(from, to) {
		return SwapResult{Amount: new(big.Int).Set(amountIn)}, true
	}

	if from.Symbol == UsdphSymbol {
		if toState == nil || !positive(toState.MaxPrice) {
			return SwapResult{}, false
		}
		usdValue := AdjustDecimals(amountIn, UsdphDecimals, UsdDecimals)
		amountOut := mulDiv(usdValue, pow10(to.Decimals), toState.MaxPrice)
		feeBps := FeeBasisPoints(toState.UsdphAmount, amountIn, fees.MintBurnFeeBps, fees.TaxBps, false, toState.TargetUsdphAmount)
		return SwapResult{Amount: applyFeeBps(amountOut, feeBps), FeeBasisPoints: feeBps}, true
	}

	if to.Symbol == UsdphSymbol {
		if fromState == nil || !positive(fromState.MinPrice) {
			return SwapResult{}, false
		}
		usdValue := mulDiv(amountIn, fromState.MinPrice, pow10(from.Decimals))
		amountOut := AdjustDecimals(usdValue, UsdDecimals, UsdphDecimals)
		feeBps := FeeBasisPoints(fromState.UsdphAmount, amountOut, fees.MintBurnFeeBps, fees.TaxBps, true, fromState.TargetUsdphAmount)
		return SwapResult{Amount: applyFeeBps(amountOut, feeBps), FeeBasisPoints: feeBps}, true
	}

	if fromState == nil || toState == nil || !positive(fromState.MinPrice) || !positive(toState.MaxPrice) {
		return SwapResult{}, false
	}

	amountOut := AdjustDecimals(mulDiv(amountIn, fromState.MinPrice, toState.MaxPrice), from.Decimals, to.Decimals)
	usdphDelta := AdjustDecimals(mulDiv(amountIn, fromState.MinPrice, pow10(UsdDecimals)), from.Decimals, UsdphDecimals)
	feeBps := SwapFeeBasisPoints(
		from.IsStable && to.IsStable,
		fromState.UsdphAmount, fromState.TargetUsdphAmount,
		toState.UsdphAmount, toState.TargetUsdphAmount,
		usdphDelta, fees,
	)
	return SwapResult{Amount: applyFeeBps(amountOut, feeBps), FeeBasisPoints: feeBps}, true
}

// NextFromAmount derives the input amount required for a swap given a known
// output amount. The routing matches NextToAmount with the fee grossed up
// onto the input side instead of deducted from the output.
func NextFromAmount(from, to model.Token, fromState, toState *model.TokenPoolState, amountOut *big.Int, fees FeeParams) (SwapResult, bool) {
	if amountOut == nil {
		return SwapResult{}, false
	}

	if from.Symbol == to.Symbol || isNativeWrappedPair(from, to) {
		return SwapResult{Amount: new(big.Int).Set(amountOut)}, true
	}

	if to.Symbol == UsdphSymbol {
		if fromState == nil || !positive(fromState.MinPrice) {
			return SwapResult{}, false
		}
		usdValue := AdjustDecimals(amountOut, UsdphDecimals, UsdDecimals)
		amountIn := mulDiv(usdValue, pow10(from.Decimals), fromState.MinPrice)
		feeBps := FeeBasisPoints(fromState.UsdphAmount, amountOut, fees.MintBurnFeeBps, fees.TaxBps, true, fromState.TargetUsdphAmount)
		return SwapResult{Amount: grossUpFeeBps(amountIn, feeBps), FeeBasisPoints: feeBps}, true
	}

	if from.Symbol == UsdphSymbol {
		if toState == nil || !positive(toState.MaxPrice) {
			return SwapResult{}, false
		}
		usdValue := mulDiv(amountOut, toState.MaxPrice, pow10(to.Decimals))
		usdphIn := AdjustDecimals(usdValue, UsdDecimals, UsdphDecimals)
		feeBps := FeeBasisPoints(toState.UsdphAmount, usdphIn, fees.MintBurnFeeBps, fees.TaxBps, false, toState.TargetUsdphAmount)
		return SwapResult{Amount: grossUpFeeBps(usdphIn, feeBps), FeeBasisPoints: feeBps}, true
	}

	if fromState == nil || toState == nil || !positive(fromState.MinPrice) || !positive(toState.MaxPrice) {
		return SwapResult{}, false
	}

	amountIn := AdjustDecimals(mulDiv(amountOut, toState.MaxPrice, fromState.MinPrice), to.Decimals, from.Decimals)
	usdphDelta := AdjustDecimals(mulDiv(amountOut, toState.MaxPrice, pow10(UsdDecimals)), to.Decimals, UsdphDecimals)
	feeBps := SwapFeeBasisPoints(
		from.IsStable && to.IsStable,
		fromState.UsdphAmount, fromState.TargetUsdphAmount,
		toState.UsdphAmount, toState.TargetUsdphAmount,
		usdphDelta, fees,
	)
	return SwapResult{Amount: grossUpFeeBps(amountIn, feeBps), FeeBasisPoints: feeBps}, true
}

// positive reports whether v is non-nil and strictly greater than zero.
func positive(v *big.Int) bool {
	return v != nil && v.Sign() > 0
}
