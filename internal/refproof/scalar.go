// Package refproof is a concrete, swappable proof.Verifier built on
// ristretto255 Chaum-Pedersen equality-of-discrete-log proofs. It is
// one reference implementation of the opaque proof system spec.md's
// ProofVerifier abstracts over -- adapted from the teacher's
// internal/ocpcrypto committee-proof scaffolding down to a two-party
// setting.
package refproof

import (
	"fmt"

	"github.com/gtank/ristretto255"
)

const ScalarBytes = 32

// Scalar is a ristretto255 scalar (canonical 32-byte little-endian encoding).
type Scalar struct {
	v ristretto255.Scalar
}

func ScalarZero() Scalar {
	return Scalar{}
}

func ScalarFromBytesCanonical(b []byte) (Scalar, error) {
	if len(b) != ScalarBytes {
		return Scalar{}, fmt.Errorf("scalar: expected %d bytes", ScalarBytes)
	}
	var s Scalar
	if _, err := s.v.SetCanonicalBytes(b); err != nil {
		return Scalar{}, fmt.Errorf("scalar: non-canonical: %w", err)
	}
	return s, nil
}

func ScalarFromUniformBytes(b []byte) (Scalar, error) {
	if len(b) != 64 {
		return Scalar{}, fmt.Errorf("scalar: expected 64 uniform bytes")
	}
	var s Scalar
	s.v.FromUniformBytes(b)
	return s, nil
}

func (s Scalar) Bytes() []byte {
	return s.v.Bytes()
}

func (s Scalar) IsZero() bool {
	var z ristretto255.Scalar
	return s.v.Equal(&z) == 1
}

func ScalarAdd(a, b Scalar) Scalar {
	var out Scalar
	out.v.Add(&a.v, &b.v)
	return out
}

func ScalarMul(a, b Scalar) Scalar {
	var out Scalar
	out.v.Multiply(&a.v, &b.v)
	return out
}
