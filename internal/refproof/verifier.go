package refproof

import (
	"crypto/rand"

	"github.com/ocplabs/holdemcore/internal/proof"
)

// Verifier is a concrete, swappable proof.Verifier. Each of the three
// kinds is checked as a Chaum-Pedersen discrete-log equality proof:
// the "pk" signal is treated as an already-published commitment
// Y = x*G to the prover's secret x (analogous to the teacher's
// dealer PKP point); the two content signals (old/new root, or
// stored cipher/revealed value) are independently derived into group
// elements c1, d, and the proof shows d = x*c1 for the same x that Y
// commits to -- without revealing x.
type Verifier struct{}

func signalPoints(kind proof.Kind, signals proof.Signals) (y, c1, d Point, err error) {
	switch kind {
	case proof.DeckCreation:
		y, err = PointFromBytesCanonical(signals["author_pk"])
		if err != nil {
			return
		}
		c1, err = DeriveFromSeed([]byte("ocp-ref/v1/deck-creation-base"))
		if err != nil {
			return
		}
		d, err = DeriveFromSeed(signals["merkle_root"])
	case proof.Reshuffle:
		y, err = PointFromBytesCanonical(signals["reshuffler_pk"])
		if err != nil {
			return
		}
		c1, err = DeriveFromSeed(signals["old_root"])
		if err != nil {
			return
		}
		d, err = DeriveFromSeed(signals["new_root"])
	case proof.Decryption:
		y, err = PointFromBytesCanonical(signals["revealer_pk"])
		if err != nil {
			return
		}
		c1, err = DeriveFromSeed(signals["stored_cipher"])
		if err != nil {
			return
		}
		d, err = DeriveFromSeed(signals["revealed_value"])
	default:
		return Point{}, Point{}, Point{}, errUnknownKind
	}
	return
}

// Verify implements proof.Verifier.
func (Verifier) Verify(kind proof.Kind, proofBytes []byte, signals proof.Signals) bool {
	p, err := DecodeEqualityProof(proofBytes)
	if err != nil {
		return false
	}
	y, c1, d, err := signalPoints(kind, signals)
	if err != nil {
		return false
	}
	return VerifyEquality(y, c1, d, p)
}

// PublishKey derives the public commitment Y = x*G for a fresh secret
// x, to be placed in a proof's "*_pk" signal before proving/verifying
// against it.
func PublishKey() (pk []byte, secret Scalar, err error) {
	secret, err = randomNonzeroScalar()
	if err != nil {
		return nil, Scalar{}, err
	}
	return MulBase(secret).Bytes(), secret, nil
}

// Prove builds a proof for kind given the matching public signals
// (whose "*_pk" entry must equal MulBase(secret).Bytes()) and the
// prover's secret x. Used by test harnesses to produce optimistic
// proofs that Verifier accepts, and -- with a mismatched secret -- a
// proof that it rejects (S4's injected cheat).
func Prove(kind proof.Kind, signals proof.Signals, secret Scalar) ([]byte, error) {
	y, c1, d, err := signalPoints(kind, signals)
	if err != nil {
		return nil, err
	}
	w, err := randomNonzeroScalar()
	if err != nil {
		return nil, err
	}
	eq, err := proveEquality(y, c1, d, secret, w)
	if err != nil {
		return nil, err
	}
	return EncodeEqualityProof(eq), nil
}

func randomNonzeroScalar() (Scalar, error) {
	var buf [64]byte
	for i := 0; i < 256; i++ {
		if _, err := rand.Read(buf[:]); err != nil {
			return Scalar{}, err
		}
		s, err := ScalarFromUniformBytes(buf[:])
		if err != nil {
			return Scalar{}, err
		}
		if !s.IsZero() {
			return s, nil
		}
	}
	return Scalar{}, errUnknownKind
}

var errUnknownKind = &unknownKindError{}

type unknownKindError struct{}

func (*unknownKindError) Error() string { return "refproof: unknown proof kind" }
