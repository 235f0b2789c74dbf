package crypto

import (
	"errors"
	"math/big"
)

// ErrInvalidModulus is returned for a nil, zero or negative modulus.
var ErrInvalidModulus = errors.New("crypto: invalid modulus")

// ErrNegativeOperand is returned when base or exponent is negative or nil.
var ErrNegativeOperand = errors.New("crypto: negative operand")

var one = big.NewInt(1)

// ModPow computes base^exponent mod modulus by binary square-and-multiply,
// walking exponent from its least significant bit upwards. A modulus of 1
// yields 0. Inputs are not modified.
//
// The running time depends on the bit pattern of exponent.
func ModPow(base, exponent, modulus *big.Int) (*big.Int, error) {
	if modulus == nil || modulus.Sign() <= 0 {
		return nil, ErrInvalidModulus
	}
	if base == nil || exponent == nil || base.Sign() < 0 || exponent.Sign() < 0 {
		return nil, ErrNegativeOperand
	}
	if modulus.Cmp(one) == 0 {
		return new(big.Int), nil
	}

	result := big.NewInt(1)
	b := new(big.Int).Mod(base, modulus)
	tmp := new(big.Int)

	n := exponent.BitLen()
	for i := 0; i < n; i++ {
		if exponent.Bit(i) == 1 {
			tmp.Mul(result, b)
			result.Mod(tmp, modulus)
		}
		tmp.Mul(b, b)
		b.Mod(tmp, modulus)
	}
	return result, nil
}
