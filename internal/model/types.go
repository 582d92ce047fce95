// Package model defines core data types for the trading front-end core.
//
// This package contains the fundamental data structures shared across the
// system: token reference data, per-token pool snapshots, leveraged
// positions, raw price ticks and aggregated OHLC candles.
//
// Two numeric representations coexist on purpose:
//   - On-chain amounts (pool balances, position sizes, USD values) are
//     *big.Int scaled by fixed decimal exponents, because downstream math
//     must reproduce the contracts' truncating integer arithmetic exactly.
//   - Chart-scale prices (ticks, candles) use decimal.Decimal, the precision
//     charting needs without the fixed-point bookkeeping.
package model

import (
	"fmt"
	"math/big"
	"time"

	json "github.com/goccy/go-json"
	"github.com/shopspring/decimal"
)

// Token holds immutable reference data for a single tradable asset.
//
// Instances come from the static per-chain registries and are never mutated
// at runtime. MinProfitBps is the per-token minimum-profit threshold applied
// by the position delta calculation during the minimum-profit grace window.
type Token struct {
	Symbol       string // Display symbol (e.g., "PLS", "USDC")
	Name         string // Human-readable asset name
	Address      string // On-chain token contract address (hex string)
	Decimals     int    // Native decimal exponent of the token
	IsStable     bool   // USD-pegged stablecoin
	IsWrapped    bool   // Wrapped form of the chain's native asset
	IsNative     bool   // The chain's native gas asset
	IsShortable  bool   // Eligible as a short position index token
	MinProfitBps int64  // Minimum-profit threshold in basis points
}

// TokenPoolState is a per-token snapshot of the liquidity pool contract.
//
// The first fifteen fields mirror the flat positional array returned by the
// chain-reading collaborator, in stride order. The trailing fields are
// derived client-side by internal/chain into a fresh copy; a snapshot is
// never mutated in place.
//
// All amounts are scaled integers: token amounts by the token's native
// decimals, USD values by 30 decimals, usdph amounts by 18 decimals.
type TokenPoolState struct {
	PoolAmount         *big.Int // Total token amount held by the pool
	ReservedAmount     *big.Int // Amount reserved for open leverage positions
	UsdphAmount        *big.Int // USD-pegged accounting units minted against this token
	RedemptionAmount   *big.Int // Token amount redeemable per usdph unit
	Weight             *big.Int // Configured target weight of this token
	BufferAmount       *big.Int // Minimum pool amount kept as a buffer
	MaxUsdphAmount     *big.Int // Cap on usdph minted against this token
	GlobalShortSize    *big.Int // Aggregate short size against this token (USD)
	MaxGlobalShortSize *big.Int // Cap on aggregate short size (USD)
	MaxGlobalLongSize  *big.Int // Cap on aggregate long size (USD)
	MinPrice           *big.Int // Lower bound of the current oracle price (USD, 30 decimals)
	MaxPrice           *big.Int // Upper bound of the current oracle price (USD, 30 decimals)
	GuaranteedUsd      *big.Int // USD value guaranteed to long position holders
	MaxPrimaryPrice    *big.Int // Upper primary oracle price (USD, 30 decimals)
	MinPrimaryPrice    *big.Int // Lower primary oracle price (USD, 30 decimals)

	// Derived fields, computed by internal/chain.
	AvailableAmount   *big.Int // PoolAmount - ReservedAmount
	AvailableUsd      *big.Int // Available amount valued at MinPrice (USD, 30 decimals)
	ManagedUsd        *big.Int // AvailableUsd + GuaranteedUsd
	TargetUsdphAmount *big.Int // Target usdph allocation implied by Weight
}

// Position is a read-only snapshot of a leveraged position.
//
// Size and Collateral are USD values at 30 decimals. EntryFundingRate is the
// cumulative funding rate snapshot taken when the position was last changed,
// at FundingRatePrecision scale. Positions are only ever mutated on-chain;
// this struct is pure input to the vault math.
type Position struct {
	Size              *big.Int // Position size in USD (30 decimals)
	Collateral        *big.Int // Collateral in USD (30 decimals)
	AveragePrice      *big.Int // Average entry price in USD (30 decimals)
	EntryFundingRate  *big.Int // Cumulative funding rate at entry
	IsLong            bool     // Long or short
	LastIncreasedTime int64    // Unix seconds of the last size increase
}

// PriceTick is a single raw price observation from the indexer.
//
// Tick streams may contain duplicates and out-of-order entries; the candle
// pipeline deduplicates and sorts before bucketing.
type PriceTick struct {
	Time  int64           // Unix seconds
	Price decimal.Decimal // Chart-scale price
}

// rawTick mirrors the indexer's wire representation of a tick. Timestamps
// arrive as unix seconds, unix milliseconds or an RFC3339 string, prices as
// a JSON number or string, depending on the upstream endpoint.
type rawTick struct {
	Time  json.RawMessage `json:"timestamp"`
	Price json.RawMessage `json:"price"`
}

// UnmarshalJSON decodes the tolerant wire format described on rawTick.
func (t *PriceTick) UnmarshalJSON(data []byte) error {
	var raw rawTick
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	ts, err := parseTickTime(raw.Time)
	if err != nil {
		return fmt.Errorf("invalid tick timestamp: %w", err)
	}

	price, err := parseTickPrice(raw.Price)
	if err != nil {
		return fmt.Errorf("invalid tick price: %w", err)
	}

	t.Time = ts
	t.Price = price
	return nil
}

// millisThreshold separates unix-second from unix-millisecond timestamps.
// Any value above it cannot be a plausible second count.
const millisThreshold = 1_000_000_000_000

func parseTickTime(raw json.RawMessage) (int64, error) {
	if len(raw) == 0 {
		return 0, fmt.Errorf("missing timestamp")
	}

	var n int64
	if err := json.Unmarshal(raw, &n); err == nil {
		if n >= millisThreshold {
			n /= 1000
		}
		return n, nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, err
	}
	parsed, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return 0, err
	}
	return parsed.Unix(), nil
}

func parseTickPrice(raw json.RawMessage) (decimal.Decimal, error) {
	if len(raw) == 0 {
		return decimal.Decimal{}, fmt.Errorf("missing price")
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return decimal.NewFromString(s)
	}
	var d decimal.Decimal
	if err := json.Unmarshal(raw, &d); err != nil {
		return decimal.Decimal{}, err
	}
	return d, nil
}

// SymbolTick pairs a tick with the symbol it belongs to, as delivered by
// the live feed where multiple symbols share one connection.
type SymbolTick struct {
	Symbol string
	Tick   PriceTick
}

// Candle is one OHLC bucket of a fixed chart period.
//
// Candle sequences produced by the aggregation pipeline are strictly
// ascending in Time with no duplicate timestamps and no gaps larger than
// one period.
type Candle struct {
	Time  int64           `json:"time"`  // Bucket start, unix seconds
	Open  decimal.Decimal `json:"open"`  // First price entering the bucket
	High  decimal.Decimal `json:"high"`  // Highest price in the bucket
	Low   decimal.Decimal `json:"low"`   // Lowest price in the bucket
	Close decimal.Decimal `json:"close"` // Last price in the bucket
}

// CandleUpdate is a single refreshed candle pushed to chart subscribers
// whenever a live tick lands in the symbol's chart.
type CandleUpdate struct {
	Symbol string `json:"symbol"`
	Period string `json:"period"`
	Candle Candle `json:"candle"`
}

// periodSeconds maps chart period names to their length in seconds.
var periodSeconds = map[string]int64{
	"5m":  5 * 60,
	"15m": 15 * 60,
	"1h":  60 * 60,
	"4h":  4 * 60 * 60,
	"1d":  24 * 60 * 60,
}

// PeriodSeconds returns the length of the named chart period in seconds.
// The second return value is false for unknown period names.
func PeriodSeconds(name string) (int64, bool) {
	sec, ok := periodSeconds[name]
	return sec, ok
}

// Periods returns the supported chart period names.
func Periods() []string {
	return []string{"5m", "15m", "1h", "4h", "1d"}
}
