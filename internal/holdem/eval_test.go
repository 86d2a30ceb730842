package holdem

import (
	"testing"

	"github.com/ocplabs/holdemcore/internal/cards"
)

func mustCards(ids ...int) []cards.Card {
	out := make([]cards.Card, len(ids))
	for i, id := range ids {
		out[i] = cards.Card(id)
	}
	return out
}

func TestWheelStraightRankedLow(t *testing.T) {
	// A,2,3,4,5 across mixed suits: id12=A(suit0), id13=2(suit1),
	// id27=3(suit2), id41=4(suit3), id3=5(suit0), plus 2 kickers
	// (rank 9, rank 10) that can't form a flush or a pair.
	c7 := mustCards(12, 13, 27, 41, 3, 20, 34)
	r := Evaluate7(c7)
	if r.Category != Straight {
		t.Fatalf("expected Straight, got %v", r.Category)
	}
	if r.Tiebreakers[0] != 5 {
		t.Fatalf("wheel should rank with top card 5, got %d", r.Tiebreakers[0])
	}
}

func TestBroadwayStraightRankedHigh(t *testing.T) {
	// T,J,Q,K,A across mixed suits: id8=T(suit0), id22=J(suit1),
	// id36=Q(suit2), id50=K(suit3), id12=A(suit0), plus 2 kickers
	// (rank 2, rank 3) that can't form a flush or a pair.
	c7 := mustCards(8, 22, 36, 50, 12, 0, 1)
	r := Evaluate7(c7)
	if r.Category != Straight {
		t.Fatalf("expected Straight, got %v", r.Category)
	}
	if r.Tiebreakers[0] != 14 {
		t.Fatalf("broadway should rank with top card A(14), got %d", r.Tiebreakers[0])
	}
}

func TestWheelAndBroadwayDoNotCollide(t *testing.T) {
	wheel := Score([7]cards.Card{12, 13, 27, 41, 3, 20, 34})
	broadway := Score([7]cards.Card{8, 22, 36, 50, 12, 0, 1})
	if wheel == broadway {
		t.Fatalf("wheel and broadway straights must not collide")
	}
	if broadway <= wheel {
		t.Fatalf("broadway (top card A) must outrank wheel (top card 5)")
	}
}

func TestScoreMonotonicOnKickerSwap(t *testing.T) {
	// Same pair of Aces (ids 12, 25) and four fixed non-consecutive
	// kickers; the fifth kicker is rank 3 in lo, rank K in hi -- a
	// strictly higher replacement that must not decrease the score.
	lo := Score([7]cards.Card{12, 25, 1, 16, 31, 46, 9})
	hi := Score([7]cards.Card{12, 25, 11, 16, 31, 46, 9})
	if hi <= lo {
		t.Fatalf("raising a kicker must not decrease the score (lo=%d hi=%d)", lo, hi)
	}
}

func TestWinnersHeadsUpSplit(t *testing.T) {
	board := [5]cards.Card{8, 9, 10, 11, 25}
	// Neither pocket pair adds a club, so both seats play the board's
	// ace-high straight and split.
	hole := [2][2]cards.Card{{13, 26}, {14, 27}}
	winners, err := Winners(board, hole)
	if err != nil {
		t.Fatalf("Winners: %v", err)
	}
	if len(winners) != 2 {
		t.Fatalf("expected a split between both seats, got %v", winners)
	}
}

func TestEvaluate7Totality(t *testing.T) {
	c7 := mustCards(0, 13, 26, 39, 4, 17, 30)
	r := Evaluate7(c7)
	if r.Category > StraightFlush {
		t.Fatalf("unexpected category %v", r.Category)
	}
}
