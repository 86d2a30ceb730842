package bigmod

import (
	"math/big"
	"testing"
)

func TestModPowReducesBase(t *testing.T) {
	got := ModPow(new(big.Int).Add(Prime, big.NewInt(5)), big.NewInt(1))
	if got.Cmp(big.NewInt(5)) != 0 {
		t.Fatalf("ModPow did not reduce base: got %s", got)
	}
}

func TestModInvRoundtrip(t *testing.T) {
	k := big.NewInt(65537)
	if !CoprimeToGroupOrder(k) {
		t.Fatalf("expected 65537 coprime to group order")
	}
	inv, err := ModInv(k)
	if err != nil {
		t.Fatalf("ModInv: %v", err)
	}
	m := big.NewInt(42)
	enc := ModPow(m, k)
	dec := ModPow(enc, inv)
	if dec.Cmp(m) != 0 {
		t.Fatalf("roundtrip failed: got %s want %s", dec, m)
	}
}

func TestModInvZeroFails(t *testing.T) {
	if _, err := ModInv(big.NewInt(0)); err != ErrNoInverse {
		t.Fatalf("expected ErrNoInverse, got %v", err)
	}
}

func TestGCD(t *testing.T) {
	if g := GCD(big.NewInt(12), big.NewInt(18)); g.Cmp(big.NewInt(6)) != 0 {
		t.Fatalf("GCD(12,18) = %s, want 6", g)
	}
}
