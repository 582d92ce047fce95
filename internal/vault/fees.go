package vault

import "math/big"

// TargetUsdphAmount computes the usdph allocation a token should hold given
// its configured weight: weight * totalUsdphSupply / totalTokenWeights, with
// truncating division. Absent when any input is missing or the total weight
// is zero.
func TargetUsdphAmount(weight, totalUsdphSupply, totalTokenWeights *big.Int) (*big.Int, bool) {
	target := mulDiv(weight, totalUsdphSupply, totalTokenWeights)
	if target == nil {
		return nil, false
	}
	return target, true
}

// FeeBasisPoints computes the rebate/tax-adjusted fee for moving a token's
// usdph allocation by usdphDelta.
//
// The curve rewards trades that move the allocation toward targetAmount and
// penalizes trades that move it away:
//
//   - When the deviation from target shrinks, the base fee is rebated by
//     taxBps * initialDeviation / target, floored at zero.
//   - When the deviation grows, a tax of taxBps * averageDeviation / target
//     is added, where averageDeviation is the mean of the deviation before
//     and after the trade, capped at target.
//
// A zero or missing target short-circuits to the base fee: with nothing to
// steer toward, the curve has no opinion. Every division truncates, in the
// same order the contract evaluates it.
func FeeBasisPoints(usdphAmount, usdphDelta *big.Int, baseBps, taxBps int64, increment bool, targetAmount *big.Int) int64 {
	if usdphAmount == nil || usdphDelta == nil {
		return baseBps
	}
	if targetAmount == nil || targetAmount.Sign() == 0 {
		return baseBps
	}

	nextAmount := new(big.Int)
	if increment {
		nextAmount.Add(usdphAmount, usdphDelta)
	} else {
		nextAmount.Sub(usdphAmount, usdphDelta)
		if nextAmount.Sign() < 0 {
			nextAmount.SetInt64(0)
		}
	}

	initialDiff := new(big.Int).Sub(usdphAmount, targetAmount)
	initialDiff.Abs(initialDiff)
	nextDiff := new(big.Int).Sub(nextAmount, targetAmount)
	nextDiff.Abs(nextDiff)

	if nextDiff.Cmp(initialDiff) < 0 {
		rebate := new(big.Int).Mul(big.NewInt(taxBps), initialDiff)
		rebate.Quo(rebate, targetAmount)
		if rebate.Cmp(big.NewInt(baseBps)) >= 0 {
			return 0
		}
		return baseBps - rebate.Int64()
	}

	avgDiff := new(big.Int).Add(initialDiff, nextDiff)
	avgDiff.Quo(avgDiff, bigTwo)
	if avgDiff.Cmp(targetAmount) > 0 {
		avgDiff.Set(targetAmount)
	}
	tax := new(big.Int).Mul(big.NewInt(taxBps), avgDiff)
	tax.Quo(tax, targetAmount)
	return baseBps + tax.Int64()
}

// SwapFeeBasisPoints returns the fee for a token-to-token swap moving
// usdphDelta units of usdph from one allocation to the other. The contract
// charges the worse of the inbound (increment) and outbound (decrement)
// sides, and stable-to-stable swaps use the stable fee tier.
func SwapFeeBasisPoints(isStableSwap bool, fromUsdph, fromTarget, toUsdph, toTarget, usdphDelta *big.Int, fees FeeParams) int64 {
	baseBps := fees.SwapFeeBps
	taxBps := fees.TaxBps
	if isStableSwap {
		baseBps = fees.StableSwapFeeBps
		taxBps = fees.StableTaxBps
	}

	feesIn := FeeBasisPoints(fromUsdph, usdphDelta, baseBps, taxBps, true, fromTarget)
	feesOut := FeeBasisPoints(toUsdph, usdphDelta, baseBps, taxBps, false, toTarget)
	if feesIn > feesOut {
		return feesIn
	}
	return feesOut
}
