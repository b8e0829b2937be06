package fixedpoint

import (
	"math/big"
	"sync"
)

// All seizure math in this module truncates toward zero. Ceiling percentages
// and wallet/collateral ratios are reproduced bit-for-bit from the reference
// behavior, so no rounding mode other than truncation is offered here.

var intPool = &sync.Pool{
	New: func() interface{} {
		return new(big.Int)
	},
}

func getInt() *big.Int {
	return intPool.Get().(*big.Int)
}

func putInt(v *big.Int) {
	v.SetInt64(0)
	intPool.Put(v)
}

// MulDiv computes (a * b) / den with 128-bit intermediates, truncating toward
// zero. den must be non-zero. Inputs in this codebase are non-negative, so
// truncation and floor coincide.
func MulDiv(a, b, den int64) int64 {
	product := getInt()
	product.Mul(big.NewInt(a), big.NewInt(b))

	quotient := getInt()
	quotient.Quo(product, big.NewInt(den))

	result := quotient.Int64()

	putInt(product)
	putInt(quotient)

	return result
}

// PctOf computes (amount * pct) / 100, truncating toward zero.
func PctOf(amount, pct int64) int64 {
	return MulDiv(amount, pct, 100)
}

// Ratio computes (num * 100) / den, truncating toward zero.
// Returns 0 when den is zero.
func Ratio(num, den int64) int64 {
	if den == 0 {
		return 0
	}
	return MulDiv(num, 100, den)
}
