package engine

import "github.com/ocplabs/holdemcore/internal/state"

// Move is a player_action verb (§4.7).
type Move int

const (
	MoveCheck Move = iota
	MoveCall
	MoveRaise
	MoveFold
)

// applyCheck is legal only when bets are equal.
func applyCheck(h *state.HandState, actor int) error {
	opponent := state.Opponent(actor)
	if h.Bets[actor] != h.Bets[opponent] {
		return precondition("check is not legal when facing a bet")
	}
	h.ActedThisRound[actor] = true
	return nil
}

// applyCall equalizes bets, capping at the actor's remaining stack
// (a full-stack call is an all-in).
func applyCall(g *state.GameState, actor int) error {
	h := g.Hand
	opponent := state.Opponent(actor)
	need := int64(h.Bets[opponent]) - int64(h.Bets[actor])
	if need <= 0 {
		return precondition("call is not legal when facing no bet")
	}
	pay := uint64(need)
	if pay > g.Stacks[actor] {
		pay = g.Stacks[actor]
	}
	g.Stacks[actor] -= pay
	h.Bets[actor] += pay
	if g.Stacks[actor] == 0 {
		h.AllIn[actor] = true
	}
	h.ActedThisRound[actor] = true
	return nil
}

// applyRaise requires the new total bet to exceed the opponent's bet
// by at least 1 unit and to not exceed the actor's stack (a raise
// that exhausts the stack is an all-in). n is the raise SIZE added on
// top of calling the current bet, per §4.7's "Raise(n)".
func applyRaise(g *state.GameState, actor int, n uint64) error {
	h := g.Hand
	opponent := state.Opponent(actor)
	if n == 0 {
		return precondition("raise size must be > 0")
	}
	toCall := int64(h.Bets[opponent]) - int64(h.Bets[actor])
	if toCall < 0 {
		toCall = 0
	}
	total := uint64(toCall) + n
	if total > g.Stacks[actor] {
		return ErrInsufficientStack
	}
	g.Stacks[actor] -= total
	h.Bets[actor] += total
	if g.Stacks[actor] == 0 {
		h.AllIn[actor] = true
	}
	// A raise reopens the action: only the raiser is considered to
	// have acted this round until the opponent responds.
	h.ActedThisRound[actor] = true
	h.ActedThisRound[opponent] = false
	return nil
}

func applyFold(h *state.HandState, actor int) {
	h.Folded[actor] = true
	h.ActedThisRound[actor] = true
}

// roundClosed reports whether both players have acted this round with
// equal bets (§4.7's "A round closes when both players have acted
// this round and bets are equal"), or one side has folded.
func roundClosed(h *state.HandState) bool {
	if h.Folded[0] || h.Folded[1] {
		return true
	}
	if h.Bets[0] != h.Bets[1] {
		return false
	}
	return h.ActedThisRound[0] && h.ActedThisRound[1]
}

// sweepBetsIntoPot moves both players' street bets into the pot and
// resets the round, as every street boundary does.
func sweepBetsIntoPot(h *state.HandState) {
	h.Pot += h.Bets[0] + h.Bets[1]
	h.Bets = [2]uint64{}
	h.ActedThisRound = [2]bool{}
}

// eitherAllIn reports whether either player is out of chips, the
// trigger for running out all remaining streets without further
// betting (§4.7 "All-in").
func eitherAllIn(h *state.HandState) bool {
	return h.AllIn[0] || h.AllIn[1]
}
