package engine

import (
	"github.com/ocplabs/holdemcore/internal/proof"
	"github.com/ocplabs/holdemcore/internal/settlement"
	"github.com/ocplabs/holdemcore/internal/state"
)

// expectedActor returns which seat the protocol is currently waiting
// on, across every stage a hand can be stuck in -- the seat a
// liveness claim_timeout accuses of having gone dark.
func expectedActor(h *state.HandState) int {
	switch h.Stage {
	case state.AwaitingCommit:
		return h.SmallBlindIndex
	case state.AwaitingDealer:
		return h.DealerIndex
	case state.FlopReveal, state.TurnReveal, state.RiverReveal, state.Showdown:
		if h.RevealStep == 0 {
			return h.DealerIndex
		}
		return state.Opponent(h.DealerIndex)
	default:
		return h.TurnIndex
	}
}

// ClaimTimeout is §4.7's two-mode escape hatch for a stalled hand.
// In liveness mode (disputedKind == nil) the caller asserts the
// opponent has missed its deadline and wins the pot plus the
// opponent's bond outright. In cheat-dispute mode the caller instead
// contests a specific optimistic proof already stored at (kind,
// slot): if it fails verification the caller wins exactly as in
// liveness mode; if it verifies, the caller's own bond is forfeited
// to the opponent and the hand continues from where it was.
func (e *Engine) ClaimTimeout(g *state.GameState, now int64, caller int, disputedKind *proof.Kind, disputedSlot int) (*state.GameState, error) {
	h := g.Hand
	if h == nil || h.Stage == state.Settled {
		return nil, precondition("claim_timeout requires an active hand")
	}

	if disputedKind == nil {
		if now <= h.Deadline {
			return nil, precondition("deadline has not yet expired")
		}
		delinquent := expectedActor(h)
		if delinquent == caller {
			return nil, precondition("cannot claim timeout against your own pending action")
		}
		return settleTimeoutWin(g, caller, delinquent)
	}

	found, ok := h.FindProof(*disputedKind, disputedSlot)
	if !ok {
		// §9 Open Question (c): without a stored optimistic proof to
		// target, only a liveness claim is available.
		return nil, precondition("no stored proof at (%s, %d) to dispute", disputedKind.String(), disputedSlot)
	}
	if now-found.RecordedAt > e.DisputeWindowSecs {
		return nil, precondition("dispute window has closed for (%s, %d)", disputedKind.String(), disputedSlot)
	}

	opponent := state.Opponent(caller)
	if e.Verifier != nil && e.Verifier.Verify(found.Kind, found.Bytes, found.Signals) {
		// The dispute failed to find cheating: the disputer forfeits
		// their own bond and the hand plays on.
		settlement.ForfeitBond(g, caller)
		return g, nil
	}

	// Proof did not verify: confirmed cheat. The cheater forfeits
	// their bond and the caller also takes the pot, exactly as a
	// liveness win.
	return settleTimeoutWin(g, caller, opponent)
}

func settleTimeoutWin(g *state.GameState, winner, loser int) (*state.GameState, error) {
	h := g.Hand
	h.Pot += h.Bets[0] + h.Bets[1]
	h.Bets = [2]uint64{}
	g.Stacks[winner] += h.Pot
	h.Pot = 0
	settlement.ForfeitBond(g, loser)
	settlement.ReturnBonds(g)
	h.Stage = state.Settled
	return g, nil
}
