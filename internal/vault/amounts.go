package vault

import "math/big"

var bigTwo = big.NewInt(2)

// pow10 returns 10^exp as a fresh big.Int. Negative exponents are a
// programmer error and yield 1, matching integer semantics.
func pow10(exp int) *big.Int {
	if exp <= 0 {
		return big.NewInt(1)
	}
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(exp)), nil)
}

// AdjustDecimals rescales amount from one decimal exponent to another.
//
// Scaling up multiplies by 10^(toExp-fromExp); scaling down divides with
// truncation toward zero, exactly like the contracts' integer division. The
// input is never mutated; a nil amount yields nil.
func AdjustDecimals(amount *big.Int, fromExp, toExp int) *big.Int {
	if amount == nil {
		return nil
	}
	out := new(big.Int).Set(amount)
	if toExp > fromExp {
		return out.Mul(out, pow10(toExp-fromExp))
	}
	if fromExp > toExp {
		return out.Quo(out, pow10(fromExp-toExp))
	}
	return out
}

// mulDiv computes a*b/c with truncating division. Returns nil when any
// operand is nil or c is zero.
func mulDiv(a, b, c *big.Int) *big.Int {
	if a == nil || b == nil || c == nil || c.Sign() == 0 {
		return nil
	}
	out := new(big.Int).Mul(a, b)
	return out.Quo(out, c)
}

// applyFeeBps deducts a basis-point fee from amount:
// amount * (divisor - feeBps) / divisor.
func applyFeeBps(amount *big.Int, feeBps int64) *big.Int {
	if amount == nil {
		return nil
	}
	return mulDiv(amount, big.NewInt(BasisPointsDivisor-feeBps), big.NewInt(BasisPointsDivisor))
}

// grossUpFeeBps inverts applyFeeBps for the known-output direction:
// amount * divisor / (divisor - feeBps).
func grossUpFeeBps(amount *big.Int, feeBps int64) *big.Int {
	if amount == nil || feeBps >= BasisPointsDivisor {
		return nil
	}
	return mulDiv(amount, big.NewInt(BasisPointsDivisor), big.NewInt(BasisPointsDivisor-feeBps))
}
