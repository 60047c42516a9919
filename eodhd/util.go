package eodhd

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// simplifyDecimalRatio converts a ratio of decimals into a simplified integer
// fraction, e.g. 1.5/1 is 3/2.
func simplifyDecimalRatio(num, den decimal.Decimal) (int64, int64) {
	// scale both by the largest number of fractional digits
	digits := max(-num.Exponent(), -den.Exponent(), 0)
	n := num.Shift(digits).BigInt()
	d := den.Shift(digits).BigInt()

	gcd := new(big.Int).GCD(nil, nil, new(big.Int).Abs(n), new(big.Int).Abs(d))
	if gcd.Sign() == 0 {
		return n.Int64(), d.Int64()
	}
	return new(big.Int).Quo(n, gcd).Int64(), new(big.Int).Quo(d, gcd).Int64()
}
