package chain

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/nevermind0825/phamous-sub000/internal/model"
	"github.com/nevermind0825/phamous-sub000/internal/vault"
)

// SnapshotStride is the number of values the chain reader reports per
// whitelisted token, in TokenPoolState field order.
const SnapshotStride = 15

// ErrBadSnapshotLength indicates the flat snapshot array does not match
// stride * token count.
var ErrBadSnapshotLength = errors.New("snapshot length does not match token list")

// DecodePoolSnapshot decodes the chain reader's flat positional array into
// per-token pool states and computes the derived fields.
//
// values must contain exactly SnapshotStride entries per token, in the
// order TokensFor reports them. The returned states are fresh copies; the
// input slice is never retained or mutated.
func DecodePoolSnapshot(tokens []model.Token, values []*big.Int) (map[string]*model.TokenPoolState, error) {
	if len(values) != SnapshotStride*len(tokens) {
		return nil, fmt.Errorf("%w: got %d values for %d tokens", ErrBadSnapshotLength, len(values), len(tokens))
	}

	states := make(map[string]*model.TokenPoolState, len(tokens))
	totalUsdph := new(big.Int)
	totalWeights := new(big.Int)

	for i, token := range tokens {
		base := i * SnapshotStride
		state := &model.TokenPoolState{
			PoolAmount:         clone(values[base+0]),
			ReservedAmount:     clone(values[base+1]),
			UsdphAmount:        clone(values[base+2]),
			RedemptionAmount:   clone(values[base+3]),
			Weight:             clone(values[base+4]),
			BufferAmount:       clone(values[base+5]),
			MaxUsdphAmount:     clone(values[base+6]),
			GlobalShortSize:    clone(values[base+7]),
			MaxGlobalShortSize: clone(values[base+8]),
			MaxGlobalLongSize:  clone(values[base+9]),
			MinPrice:           clone(values[base+10]),
			MaxPrice:           clone(values[base+11]),
			GuaranteedUsd:      clone(values[base+12]),
			MaxPrimaryPrice:    clone(values[base+13]),
			MinPrimaryPrice:    clone(values[base+14]),
		}
		states[token.Symbol] = state

		if state.UsdphAmount != nil {
			totalUsdph.Add(totalUsdph, state.UsdphAmount)
		}
		if state.Weight != nil {
			totalWeights.Add(totalWeights, state.Weight)
		}
	}

	for _, token := range tokens {
		deriveFields(token, states[token.Symbol], totalUsdph, totalWeights)
	}
	return states, nil
}

// deriveFields fills the client-side derived fields of a freshly decoded
// state. Absent inputs leave the derived field nil.
func deriveFields(token model.Token, state *model.TokenPoolState, totalUsdph, totalWeights *big.Int) {
	if state.PoolAmount != nil && state.ReservedAmount != nil {
		state.AvailableAmount = new(big.Int).Sub(state.PoolAmount, state.ReservedAmount)
	}

	if state.AvailableAmount != nil && state.MinPrice != nil {
		usdValue := new(big.Int).Mul(state.AvailableAmount, state.MinPrice)
		tokenUnit := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(token.Decimals)), nil)
		state.AvailableUsd = usdValue.Quo(usdValue, tokenUnit)
	}

	if state.AvailableUsd != nil && state.GuaranteedUsd != nil {
		state.ManagedUsd = new(big.Int).Add(state.AvailableUsd, state.GuaranteedUsd)
	}

	if target, ok := vault.TargetUsdphAmount(state.Weight, totalUsdph, totalWeights); ok {
		state.TargetUsdphAmount = target
	}
}

func clone(v *big.Int) *big.Int {
	if v == nil {
		return nil
	}
	return new(big.Int).Set(v)
}
