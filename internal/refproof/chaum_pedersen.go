package refproof

import "fmt"

// EqualityProof proves knowledge of x such that y = x*G and d = x*c1,
// without revealing x -- a Chaum-Pedersen equality-of-discrete-log
// proof, the shape shared by Reshuffle (old-root/new-root equality
// under the reshuffler's key) and Decryption (ciphertext/plaintext
// equality under the revealer's key) statements.
type EqualityProof struct {
	A Point
	B Point
	S Scalar
}

const eqDomain = "ocp-ref/v1/chaum-pedersen-eqdl"

func proveEquality(y, c1, d Point, x, w Scalar) (EqualityProof, error) {
	if w.IsZero() {
		return EqualityProof{}, fmt.Errorf("refproof: nonce must be non-zero")
	}
	a := MulBase(w)
	b := MulPoint(c1, w)

	tr := NewTranscript(eqDomain)
	_ = tr.AppendMessage("y", y.Bytes())
	_ = tr.AppendMessage("c1", c1.Bytes())
	_ = tr.AppendMessage("d", d.Bytes())
	_ = tr.AppendMessage("a", a.Bytes())
	_ = tr.AppendMessage("b", b.Bytes())
	e, err := tr.ChallengeScalar("e")
	if err != nil {
		return EqualityProof{}, err
	}

	s := ScalarAdd(w, ScalarMul(e, x))
	return EqualityProof{A: a, B: b, S: s}, nil
}

func VerifyEquality(y, c1, d Point, proof EqualityProof) bool {
	tr := NewTranscript(eqDomain)
	_ = tr.AppendMessage("y", y.Bytes())
	_ = tr.AppendMessage("c1", c1.Bytes())
	_ = tr.AppendMessage("d", d.Bytes())
	_ = tr.AppendMessage("a", proof.A.Bytes())
	_ = tr.AppendMessage("b", proof.B.Bytes())
	e, err := tr.ChallengeScalar("e")
	if err != nil {
		return false
	}

	lhs1 := MulBase(proof.S)
	rhs1 := PointAdd(proof.A, MulPoint(y, e))
	if !PointEq(lhs1, rhs1) {
		return false
	}

	lhs2 := MulPoint(c1, proof.S)
	rhs2 := PointAdd(proof.B, MulPoint(d, e))
	return PointEq(lhs2, rhs2)
}

// Encoding: A(32) || B(32) || s(32) = 96 bytes.
func EncodeEqualityProof(p EqualityProof) []byte {
	return concatBytes(p.A.Bytes(), p.B.Bytes(), p.S.Bytes())
}

func DecodeEqualityProof(b []byte) (EqualityProof, error) {
	if len(b) != 96 {
		return EqualityProof{}, fmt.Errorf("refproof: expected 96 bytes")
	}
	a, err := PointFromBytesCanonical(b[0:32])
	if err != nil {
		return EqualityProof{}, err
	}
	bl, err := PointFromBytesCanonical(b[32:64])
	if err != nil {
		return EqualityProof{}, err
	}
	s, err := ScalarFromBytesCanonical(b[64:96])
	if err != nil {
		return EqualityProof{}, err
	}
	return EqualityProof{A: a, B: bl, S: s}, nil
}
