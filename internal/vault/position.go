package vault

import (
	"math/big"

	"github.com/nevermind0825/phamous-sub000/internal/model"
)

// PositionDeltaResult is the unrealized P&L of a position at a mark price.
//
// Delta is the displayable profit or loss after the minimum-profit grace
// window has been applied; PendingDelta is the raw value before that
// adjustment. Both are USD values at 30 decimals, always non-negative, with
// the sign carried by HasProfit.
type PositionDeltaResult struct {
	HasProfit    bool
	Delta        *big.Int
	PendingDelta *big.Int
}

// fundingFee returns size * (cumulative - entry) / FundingRatePrecision, or
// zero when either rate snapshot is missing or the delta is non-positive.
func fundingFee(size, entryFundingRate, cumulativeFundingRate *big.Int) *big.Int {
	if size == nil || entryFundingRate == nil || cumulativeFundingRate == nil {
		return new(big.Int)
	}
	rateDelta := new(big.Int).Sub(cumulativeFundingRate, entryFundingRate)
	if rateDelta.Sign() <= 0 {
		return new(big.Int)
	}
	return mulDiv(size, rateDelta, FundingRatePrecision)
}

// marginFee returns the margin fee charged on a given size delta:
// sizeDelta * marginFeeBps / BasisPointsDivisor.
func marginFee(sizeDelta *big.Int, marginFeeBps int64) *big.Int {
	if sizeDelta == nil {
		return new(big.Int)
	}
	return mulDiv(sizeDelta, big.NewInt(marginFeeBps), big.NewInt(BasisPointsDivisor))
}

// Leverage computes position leverage in basis points (10000 = 1x):
// size * BasisPointsDivisor / (collateral - marginFee - fundingFee).
//
// Absent when size or collateral is missing or zero, or when fees consume
// the collateral entirely; absent leverage means "not displayable", never
// zero.
func Leverage(size, collateral, entryFundingRate, cumulativeFundingRate *big.Int, fees FeeParams) (*big.Int, bool) {
	if size == nil || collateral == nil || size.Sign() == 0 || collateral.Sign() == 0 {
		return nil, false
	}

	remaining := new(big.Int).Set(collateral)
	remaining.Sub(remaining, marginFee(size, fees.MarginFeeBps))
	remaining.Sub(remaining, fundingFee(size, entryFundingRate, cumulativeFundingRate))
	if remaining.Sign() <= 0 {
		return nil, false
	}

	return mulDiv(size, big.NewInt(BasisPointsDivisor), remaining), true
}

// PositionDelta computes the unrealized P&L of a position at markPrice:
// size * |markPrice - averagePrice| / averagePrice.
//
// Inside the minimum-profit window (now within params.MinProfitTime of the
// last size increase), a profit at or below params.MinProfitBps of the
// position size is forced to zero; PendingDelta keeps the raw value. This
// guards against picking off stale oracle prices right after an increase.
//
// Absent when the mark price, size or average price is missing, or the
// average price is zero.
func PositionDelta(markPrice *big.Int, pos model.Position, params PositionParams, now int64) (PositionDeltaResult, bool) {
	if markPrice == nil || pos.Size == nil || pos.AveragePrice == nil || pos.AveragePrice.Sign() == 0 {
		return PositionDeltaResult{}, false
	}

	priceDelta := new(big.Int).Sub(pos.AveragePrice, markPrice)
	priceDelta.Abs(priceDelta)
	delta := mulDiv(pos.Size, priceDelta, pos.AveragePrice)
	pending := new(big.Int).Set(delta)

	var hasProfit bool
	if pos.IsLong {
		hasProfit = markPrice.Cmp(pos.AveragePrice) > 0
	} else {
		hasProfit = markPrice.Cmp(pos.AveragePrice) < 0
	}

	minProfitExpired := pos.LastIncreasedTime+params.MinProfitTime < now
	if !minProfitExpired && hasProfit {
		// delta * divisor <= size * minProfitBps
		scaledDelta := new(big.Int).Mul(delta, big.NewInt(BasisPointsDivisor))
		threshold := new(big.Int).Mul(pos.Size, big.NewInt(params.MinProfitBps))
		if scaledDelta.Cmp(threshold) <= 0 {
			delta = new(big.Int)
		}
	}

	return PositionDeltaResult{HasProfit: hasProfit, Delta: delta, PendingDelta: pending}, true
}

// liquidationPriceFromDelta converts a liquidation amount (the USD loss that
// would trigger liquidation) into the mark price at which that loss occurs.
func liquidationPriceFromDelta(liquidationAmount, size, collateral, averagePrice *big.Int, isLong bool) (*big.Int, bool) {
	if liquidationAmount == nil || size == nil || collateral == nil || averagePrice == nil || size.Sign() == 0 {
		return nil, false
	}

	if liquidationAmount.Cmp(collateral) > 0 {
		liquidationDelta := new(big.Int).Sub(liquidationAmount, collateral)
		priceDelta := mulDiv(liquidationDelta, averagePrice, size)
		if isLong {
			return new(big.Int).Add(averagePrice, priceDelta), true
		}
		return new(big.Int).Sub(averagePrice, priceDelta), true
	}

	liquidationDelta := new(big.Int).Sub(collateral, liquidationAmount)
	priceDelta := mulDiv(liquidationDelta, averagePrice, size)
	if isLong {
		return new(big.Int).Sub(averagePrice, priceDelta), true
	}
	return new(big.Int).Add(averagePrice, priceDelta), true
}

// LiquidationPrice computes the mark price at which a position is
// liquidated.
//
// Two candidates are derived: the price at which accrued fees (margin fee on
// the full size, funding fee, fixed liquidation fee) exhaust the collateral,
// and the price at which the position breaches the max-leverage cap. The
// contract liquidates at whichever is worse for the trader, so the higher
// price is returned for longs and the lower for shorts.
func LiquidationPrice(pos model.Position, cumulativeFundingRate *big.Int, fees FeeParams) (*big.Int, bool) {
	if pos.Size == nil || pos.Collateral == nil || pos.AveragePrice == nil || pos.Size.Sign() == 0 {
		return nil, false
	}
	if fees.MaxLeverage <= 0 {
		return nil, false
	}

	totalFees := marginFee(pos.Size, fees.MarginFeeBps)
	totalFees.Add(totalFees, fundingFee(pos.Size, pos.EntryFundingRate, cumulativeFundingRate))
	if fees.LiquidationFeeUsd != nil {
		totalFees.Add(totalFees, fees.LiquidationFeeUsd)
	}

	priceForFees, okFees := liquidationPriceFromDelta(totalFees, pos.Size, pos.Collateral, pos.AveragePrice, pos.IsLong)
	maxLeverageAmount := mulDiv(pos.Size, big.NewInt(BasisPointsDivisor), big.NewInt(fees.MaxLeverage))
	priceForLeverage, okLev := liquidationPriceFromDelta(maxLeverageAmount, pos.Size, pos.Collateral, pos.AveragePrice, pos.IsLong)
	if !okFees || !okLev {
		return nil, false
	}

	if pos.IsLong {
		if priceForFees.Cmp(priceForLeverage) > 0 {
			return priceForFees, true
		}
		return priceForLeverage, true
	}
	if priceForFees.Cmp(priceForLeverage) < 0 {
		return priceForFees, true
	}
	return priceForLeverage, true
}
