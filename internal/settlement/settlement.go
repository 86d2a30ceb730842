// Package settlement moves chips between a GameState's pot, stacks,
// and escrowed bonds at the moments a hand concludes: a fold, a
// showdown, or a timeout/dispute resolution. Adapted down from the
// teacher's internal/app poker.go pot-award logic (completeByFolds,
// settleKnownShowdown, runoutAndSettleHand) to the fixed two-seat,
// single-pot shape this core has -- there are no side pots, since a
// side pot only exists once a third committed stack can out-call the
// first two.
package settlement

import (
	"fmt"

	"github.com/ocplabs/holdemcore/internal/cards"
	"github.com/ocplabs/holdemcore/internal/holdem"
	"github.com/ocplabs/holdemcore/internal/state"
)

// Result reports what a settlement did, for the engine to turn into
// tx-result events.
type Result struct {
	Reason      string
	WinnerSeats []int
	Amounts     [2]uint64
}

// AwardFold gives the entire pot to the seat that did not fold.
func AwardFold(g *state.GameState, folder int) (Result, error) {
	if g.Hand == nil {
		return Result{}, fmt.Errorf("settlement: no active hand")
	}
	winner := state.Opponent(folder)
	g.Stacks[winner] += g.Hand.Pot
	amounts := [2]uint64{}
	amounts[winner] = g.Hand.Pot
	g.Hand.Pot = 0
	g.Hand.Stage = state.Settled
	return Result{Reason: "fold", WinnerSeats: []int{winner}, Amounts: amounts}, nil
}

// AwardShowdown evaluates both hole pairs against the five-card board
// and splits the pot among the winner(s) -- evenly, with any single
// odd chip going to the lower seat index, matching the teacher's
// pot-award remainder rule.
func AwardShowdown(g *state.GameState, board [5]cards.Card, hole [2][2]cards.Card) (Result, error) {
	if g.Hand == nil {
		return Result{}, fmt.Errorf("settlement: no active hand")
	}
	winners, err := holdem.Winners(board, hole)
	if err != nil {
		return Result{}, fmt.Errorf("settlement: %w", err)
	}
	pot := g.Hand.Pot
	share := pot / uint64(len(winners))
	rem := pot % uint64(len(winners))
	var amounts [2]uint64
	for i, seat := range winners {
		amt := share
		if i == 0 {
			amt += rem
		}
		g.Stacks[seat] += amt
		amounts[seat] = amt
	}
	g.Hand.Pot = 0
	g.Hand.Stage = state.Settled
	return Result{Reason: "showdown", WinnerSeats: winners, Amounts: amounts}, nil
}

// ReturnBonds releases both players' escrowed hand bonds back to
// their stacks -- the default outcome of a hand that settles without
// a confirmed cheating dispute.
func ReturnBonds(g *state.GameState) {
	for seat := 0; seat < 2; seat++ {
		g.Stacks[seat] += g.Bonds[seat]
		g.Bonds[seat] = 0
	}
}

// ForfeitBond moves the cheater's entire escrowed bond to the
// counterparty, the consequence of a confirmed cheat dispute. Unlike the teacher's validator slash (a basis-points
// cut, since a validator keeps operating after a partial slash), a
// confirmed cheat here forfeits the whole bond: the cheater is being
// removed from the match, not fined mid-session.
func ForfeitBond(g *state.GameState, cheater int) Result {
	victim := state.Opponent(cheater)
	amt := g.Bonds[cheater]
	g.Bonds[cheater] = 0
	g.Stacks[victim] += amt
	var amounts [2]uint64
	amounts[victim] = amt
	return Result{Reason: "bond-forfeit", WinnerSeats: []int{victim}, Amounts: amounts}
}
