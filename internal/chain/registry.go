// Package chain holds the static per-chain reference data and decodes pool
// state snapshots delivered by the chain-reading collaborator.
//
// Reference data (token lists, fee tiers) is wired at startup from the
// tables below. Lookups with an unknown chain id or token symbol panic:
// that is a misconfiguration of static data, not a runtime condition, and
// must surface immediately rather than be handled.
package chain

import (
	"fmt"
	"math/big"

	"github.com/nevermind0825/phamous-sub000/internal/model"
	"github.com/nevermind0825/phamous-sub000/internal/vault"
)

// Supported chain ids.
const (
	PulseChain        = 369
	PulseChainTestnet = 943
)

// liquidationFeeUsd is the fixed 5 USD liquidation fee at 30 decimals.
var liquidationFeeUsd = new(big.Int).Mul(big.NewInt(5), new(big.Int).Exp(big.NewInt(10), big.NewInt(vault.UsdDecimals), nil))

// chainFees holds the fee tier configuration per chain.
var chainFees = map[int]vault.FeeParams{
	PulseChain: {
		SwapFeeBps:        30,
		StableSwapFeeBps:  1,
		TaxBps:            50,
		StableTaxBps:      5,
		MintBurnFeeBps:    25,
		MarginFeeBps:      10,
		LiquidationFeeUsd: liquidationFeeUsd,
		MaxLeverage:       100 * vault.BasisPointsDivisor,
	},
	PulseChainTestnet: {
		SwapFeeBps:        30,
		StableSwapFeeBps:  1,
		TaxBps:            50,
		StableTaxBps:      5,
		MintBurnFeeBps:    25,
		MarginFeeBps:      10,
		LiquidationFeeUsd: liquidationFeeUsd,
		MaxLeverage:       100 * vault.BasisPointsDivisor,
	},
}

// chainPositionParams holds the minimum-profit configuration per chain. The
// window is currently disabled (zero duration) on both deployments but
// remains configuration, not a constant baked into the math.
var chainPositionParams = map[int]vault.PositionParams{
	PulseChain:        {MinProfitTime: 0, MinProfitBps: 0},
	PulseChainTestnet: {MinProfitTime: 0, MinProfitBps: 0},
}

// chainTokens lists the whitelisted pool tokens per chain, in the order the
// chain reader reports them. Snapshot decoding depends on this order.
var chainTokens = map[int][]model.Token{
	PulseChain: {
		{Symbol: "PLS", Name: "Pulse", Address: "0x0000000000000000000000000000000000000000", Decimals: 18, IsNative: true},
		{Symbol: "WPLS", Name: "Wrapped Pulse", Address: "0xA1077a294dDE1B09bB078844df40758a5D0f9a27", Decimals: 18, IsWrapped: true, IsShortable: true},
		{Symbol: "HEX", Name: "HEX", Address: "0x2b591e99afE9f32eAA6214f7B7629768c40Eeb39", Decimals: 8, IsShortable: true},
		{Symbol: "PLSX", Name: "PulseX", Address: "0x95B303987A60C71504D99Aa1b13B4DA07b0790ab", Decimals: 18, IsShortable: true},
		{Symbol: "WETH", Name: "Wrapped Ether", Address: "0x02DcdD04e3F455D838cd1249292C58f3B79e3C3C", Decimals: 18, IsShortable: true},
		{Symbol: "USDC", Name: "USD Coin", Address: "0x15D38573d2feeb82e7ad5187aB8c1D52810B1f07", Decimals: 6, IsStable: true},
		{Symbol: "USDT", Name: "Tether USD", Address: "0x0Cb6F5a34ad42ec934882A05265A7d5F59b51A2f", Decimals: 6, IsStable: true},
		{Symbol: "DAI", Name: "Dai Stablecoin", Address: "0xefD766cCb38EaF1dfd701853BFCe31359239F305", Decimals: 18, IsStable: true},
	},
	PulseChainTestnet: {
		{Symbol: "PLS", Name: "Pulse", Address: "0x0000000000000000000000000000000000000000", Decimals: 18, IsNative: true},
		{Symbol: "WPLS", Name: "Wrapped Pulse", Address: "0x70499adEBB11Efd915E3b69E700c331778628707", Decimals: 18, IsWrapped: true, IsShortable: true},
		{Symbol: "HEX", Name: "HEX", Address: "0x39B9d781dAD0810D07E24426c876217218Ad353D", Decimals: 8, IsShortable: true},
		{Symbol: "USDC", Name: "USD Coin", Address: "0x3693693695E7a8Ac0ee0FF2f2C4E7b85eAB6a2B8", Decimals: 6, IsStable: true},
	},
}

// FeeParamsFor returns the fee tier configuration for a chain. Unknown
// chain ids panic.
func FeeParamsFor(chainID int) vault.FeeParams {
	fees, ok := chainFees[chainID]
	if !ok {
		panic(fmt.Sprintf("chain: unsupported chain id %d", chainID))
	}
	return fees
}

// PositionParamsFor returns the minimum-profit configuration for a chain.
// Unknown chain ids panic.
func PositionParamsFor(chainID int) vault.PositionParams {
	params, ok := chainPositionParams[chainID]
	if !ok {
		panic(fmt.Sprintf("chain: unsupported chain id %d", chainID))
	}
	return params
}

// TokensFor returns the whitelisted pool tokens for a chain in snapshot
// order. Unknown chain ids panic.
func TokensFor(chainID int) []model.Token {
	tokens, ok := chainTokens[chainID]
	if !ok {
		panic(fmt.Sprintf("chain: unsupported chain id %d", chainID))
	}
	out := make([]model.Token, len(tokens))
	copy(out, tokens)
	return out
}

// TokenBySymbol returns the token with the given symbol on a chain.
// Unknown symbols panic, matching the contract for static reference data.
func TokenBySymbol(chainID int, symbol string) model.Token {
	for _, token := range TokensFor(chainID) {
		if token.Symbol == symbol {
			return token
		}
	}
	panic(fmt.Sprintf("chain: unknown token %q on chain %d", symbol, chainID))
}
