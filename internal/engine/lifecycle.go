package engine

import (
	"github.com/ocplabs/holdemcore/internal/settlement"
	"github.com/ocplabs/holdemcore/internal/state"
)

// CreateMatch starts a new match record in StatusPending, seating the
// creator in seat 0 and escrowing their bond out of stake_amount.
func (e *Engine) CreateMatch(myPK []byte, stakeAmount uint64, playerID string) (*state.GameState, error) {
	if stakeAmount == 0 {
		return nil, precondition("stake_amount must be > 0")
	}
	bond := bondForStake(stakeAmount, e.BondFractionBps)
	if bond >= stakeAmount {
		return nil, precondition("bond would consume the entire stake")
	}
	g := &state.GameState{
		StakeAmount: stakeAmount,
		Status:      state.StatusPending,
	}
	g.Players[0] = playerID
	g.PaillierPKs[0] = append([]byte(nil), myPK...)
	g.Stacks[0] = stakeAmount - bond
	g.Bonds[0] = bond
	return g, nil
}

// JoinMatch seats the second player at the same stake and starts the
// first hand.
func (e *Engine) JoinMatch(g *state.GameState, myPK []byte, playerID string) (*state.GameState, error) {
	if g.Status != state.StatusPending {
		return nil, precondition("match is not awaiting a second player")
	}
	if g.Players[1] != "" {
		return nil, precondition("match already has two players")
	}
	bond := bondForStake(g.StakeAmount, e.BondFractionBps)
	g.Players[1] = playerID
	g.PaillierPKs[1] = append([]byte(nil), myPK...)
	g.Stacks[1] = g.StakeAmount - bond
	g.Bonds[1] = bond
	g.Status = state.StatusActive
	g.Hand = state.NewHandState(0)
	return g, nil
}

// StartNextHand rotates the dealer and resets HandState, per §4.7.
func (e *Engine) StartNextHand(g *state.GameState) (*state.GameState, error) {
	if g.Hand == nil || g.Hand.Stage != state.Settled {
		return nil, precondition("previous hand is not settled")
	}
	if g.Stacks[0] == 0 || g.Stacks[1] == 0 {
		return nil, precondition("both players must have a positive stack to start a hand")
	}
	nextDealer := state.Opponent(g.Hand.DealerIndex)
	g.CurrentHandID++
	g.Hand = state.NewHandState(nextDealer)
	return g, nil
}

// LeaveGame ends the match for the caller. Only legal when no hand is
// in progress (Settled or the match never started a hand).
func (e *Engine) LeaveGame(g *state.GameState, seat int) (*state.GameState, error) {
	if g.Hand != nil && g.Hand.Stage != state.Settled && g.Hand.Stage != state.AwaitingCommit {
		return nil, precondition("cannot leave while a hand is in progress")
	}
	if g.Hand != nil && g.Hand.Stage == state.Settled {
		settlement.ReturnBonds(g)
	}
	g.Status = state.StatusConcluded
	return g, nil
}
