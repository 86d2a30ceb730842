package refproof

import (
	"fmt"

	"github.com/gtank/ristretto255"
)

const PointBytes = 32

// Point is a ristretto255 group element (canonical 32-byte encoding).
type Point struct {
	v ristretto255.Element
}

func PointFromBytesCanonical(b []byte) (Point, error) {
	if len(b) != PointBytes {
		return Point{}, fmt.Errorf("point: expected %d bytes", PointBytes)
	}
	var p Point
	if _, err := p.v.SetCanonicalBytes(b); err != nil {
		return Point{}, fmt.Errorf("point: non-canonical: %w", err)
	}
	return p, nil
}

func (p Point) Bytes() []byte {
	return p.v.Bytes()
}

func PointEq(a, b Point) bool {
	return a.v.Equal(&b.v) == 1
}

func PointAdd(a, b Point) Point {
	var out Point
	out.v.Add(&a.v, &b.v)
	return out
}

func MulBase(k Scalar) Point {
	var out Point
	out.v.ScalarBaseMult(&k.v)
	return out
}

func MulPoint(p Point, k Scalar) Point {
	var out Point
	out.v.ScalarMult(&k.v, &p.v)
	return out
}

// DeriveFromSeed maps an arbitrary-length seed (e.g. a Merkle root or
// a player's encoded key) to a group element, by hashing to a
// non-zero scalar and multiplying the base point -- the same
// collision-free technique the teacher's dealer.go uses to map card
// IDs onto ristretto255 points (cardPoint).
func DeriveFromSeed(seed []byte) (Point, error) {
	for counter := uint32(0); counter < 256; counter++ {
		s, err := HashToScalar("ocp-ref/v1/derive-point", seed, []byte{byte(counter)})
		if err != nil {
			return Point{}, err
		}
		if !s.IsZero() {
			return MulBase(s), nil
		}
	}
	return Point{}, fmt.Errorf("refproof: failed to derive a non-zero point")
}
