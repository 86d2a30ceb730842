package engine

import (
	"github.com/ocplabs/holdemcore/internal/cipher"
	"github.com/ocplabs/holdemcore/internal/proof"
)

// DefaultActionTimeoutSecs is ACTION_TIMEOUT from §6.
const DefaultActionTimeoutSecs int64 = 60

// DefaultBondFractionBps is BOND_FRACTION (10%) from §6, expressed in
// basis points the way the teacher's slash.go expresses its own
// percentages.
const DefaultBondFractionBps uint32 = 1000

// DefaultDisputeWindowSecs bounds how long after an optimistic proof is
// stored a claim_timeout cheat-dispute may target it.
const DefaultDisputeWindowSecs int64 = 60

// Engine holds the swappable collaborators Transitions consults: the
// proof verifier (§4.4) and the timing constants (§6). It carries no
// mutable state of its own -- GameState is the only mutable object
// (§5).
type Engine struct {
	Verifier            proof.Verifier
	ActionTimeoutSecs    int64
	DisputeWindowSecs    int64
	BondFractionBps      uint32
}

// NewEngine returns an Engine with the spec's default constants.
func NewEngine(verifier proof.Verifier) *Engine {
	return &Engine{
		Verifier:          verifier,
		ActionTimeoutSecs: DefaultActionTimeoutSecs,
		DisputeWindowSecs: DefaultDisputeWindowSecs,
		BondFractionBps:   DefaultBondFractionBps,
	}
}

// bondForStake computes BOND_FRACTION of a stake, rounding up the way
// the teacher's slashAmount rounds basis-point cuts up rather than
// down, so a bond is never short a fractional unit.
func bondForStake(stake uint64, bps uint32) uint64 {
	if stake == 0 || bps == 0 {
		return 0
	}
	num := stake * uint64(bps)
	q := num / 10000
	if num%10000 != 0 {
		q++
	}
	return q
}

// encryptedCard adapts a raw 32-byte slot into cipher.EncryptedCard.
func encryptedCard(b []byte) cipher.EncryptedCard {
	var out cipher.EncryptedCard
	copy(out[:], b)
	return out
}
