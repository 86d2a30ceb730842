// Package engine is the Transitions kernel (§4.7): pure command
// handlers of the shape (GameState, Command, now) -> (GameState,
// error), consulting cipher/merkle/proof/holdem but never mutating
// GameState on an error path -- with one exception: a coherence
// failure in RevealShare or ShowdownReveal settles the hand against
// the revealer (fold, pot to the opponent, bonds returned) and returns
// the settled state together with the CoherenceFailure error. Adapted from the teacher's
// internal/app poker.go dispatch (applyAction, settleKnownShowdown,
// runoutAndSettleHand) and timeouts.go deadline bookkeeping, narrowed
// from a 9-seat multi-table ABCI command set to the fixed two-seat,
// eleven-command surface this protocol specifies.
package engine

import (
	"errors"
	"fmt"

	"github.com/ocplabs/holdemcore/internal/proof"
)

// Sentinel errors for the taxonomy of §7. Each is checkable via
// errors.Is; ProofInvalid and CoherenceFailure carry extra context
// through typed wrappers below.
var (
	ErrPreconditionViolated = errors.New("engine: precondition violated")
	ErrDeadlineExpired      = errors.New("engine: deadline expired")
	ErrProofInvalid         = errors.New("engine: proof invalid")
	ErrCoherenceFailure     = errors.New("engine: reveal coherence failure")
	ErrInsufficientStack    = errors.New("engine: insufficient stack")
	ErrCryptoError          = errors.New("engine: crypto error")
	ErrMerkleMismatch       = errors.New("engine: merkle mismatch")
	ErrConservationViolation = errors.New("engine: conservation violation")
)

// ProofInvalidError carries which proof.Kind failed verification.
type ProofInvalidError struct {
	Kind proof.Kind
}

func (e *ProofInvalidError) Error() string {
	return fmt.Sprintf("engine: proof invalid (%s)", e.Kind)
}

func (e *ProofInvalidError) Unwrap() error { return ErrProofInvalid }

func newProofInvalid(kind proof.Kind) error {
	return &ProofInvalidError{Kind: kind}
}

// CoherenceFailureError carries the slot whose reveal did not
// re-encrypt to the stored ciphertext.
type CoherenceFailureError struct {
	Slot int
}

func (e *CoherenceFailureError) Error() string {
	return fmt.Sprintf("engine: reveal coherence failure at slot %d", e.Slot)
}

func (e *CoherenceFailureError) Unwrap() error { return ErrCoherenceFailure }

func newCoherenceFailure(slot int) error {
	return &CoherenceFailureError{Slot: slot}
}

func precondition(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrPreconditionViolated)
}
