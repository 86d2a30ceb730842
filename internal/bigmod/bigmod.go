// Package bigmod implements arbitrary-precision arithmetic modulo the
// fixed 256-bit prime used by the commutative card cipher.
package bigmod

import (
	"errors"
	"math/big"
)

// ErrNoInverse is returned when a value has no modular inverse, i.e.
// gcd(x, modulus) != 1.
var ErrNoInverse = errors.New("bigmod: no modular inverse")

// Prime is P = 2^256 - 189. It is prime but not a safe prime: (P-1)/2
// is composite.
var Prime = mustPrime()

// GroupOrder is P-1, the modulus under which cipher exponents live.
var GroupOrder = new(big.Int).Sub(Prime, big.NewInt(1))

func mustPrime() *big.Int {
	p, ok := new(big.Int).SetString("115792089237316195423570985008687907853269984665640564039457584007913129639747", 10)
	if !ok {
		panic("bigmod: failed to parse fixed prime")
	}
	return p
}

// ModPow returns base^exp mod Prime. base is reduced mod Prime first;
// exp is used as given (callers pass non-negative exponents only).
func ModPow(base, exp *big.Int) *big.Int {
	b := new(big.Int).Mod(base, Prime)
	return new(big.Int).Exp(b, exp, Prime)
}

// GCD returns the greatest common divisor of a and b.
func GCD(a, b *big.Int) *big.Int {
	return new(big.Int).GCD(nil, nil, new(big.Int).Abs(a), new(big.Int).Abs(b))
}

// ModInv returns x^-1 mod GroupOrder. Fails with ErrNoInverse if x is
// zero mod GroupOrder or gcd(x, GroupOrder) != 1.
func ModInv(x *big.Int) (*big.Int, error) {
	xr := new(big.Int).Mod(x, GroupOrder)
	if xr.Sign() == 0 {
		return nil, ErrNoInverse
	}
	inv := new(big.Int).ModInverse(xr, GroupOrder)
	if inv == nil {
		return nil, ErrNoInverse
	}
	return inv, nil
}

// CoprimeToGroupOrder reports whether gcd(k, GroupOrder) == 1, the
// precondition for k to be usable as a cipher key.
func CoprimeToGroupOrder(k *big.Int) bool {
	return GCD(k, GroupOrder).Cmp(big.NewInt(1)) == 0
}
