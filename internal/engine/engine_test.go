package engine

import (
	"math/big"
	"testing"

	"github.com/ocplabs/holdemcore/internal/cipher"
	"github.com/ocplabs/holdemcore/internal/merkle"
	"github.com/ocplabs/holdemcore/internal/proof"
	"github.com/ocplabs/holdemcore/internal/state"
)

// stubVerifier lets scenario tests choose whether every proof passes
// or every proof fails, without pulling in the real ristretto255 math
// internal/refproof exercises elsewhere.
type stubVerifier struct{ ok bool }

func (s stubVerifier) Verify(proof.Kind, []byte, proof.Signals) bool { return s.ok }

// s1SlotCards is the literal seed from the happy-path end-to-end
// scenario: dealer (seat 0) pocket (49,48), non-dealer (seat 1) pocket
// (51,50), board (12,25,38,7,19).
var s1SlotCards = map[int]uint8{
	state.SlotP1PocketA: 49,
	state.SlotP1PocketB: 48,
	state.SlotP2PocketA: 51,
	state.SlotP2PocketB: 50,
	state.SlotFlop1:     12,
	state.SlotFlop2:     25,
	state.SlotFlop3:     38,
	state.SlotTurn:      7,
	state.SlotRiver:     19,
}

// dealtHand is the fixture a scenario test starts from: a match with
// both seats funded, the non-dealer's deck committed and the dealer's
// reshuffle joined, landing at PreFlopBet with both blinds posted.
// Seat 0 is always the dealer/big blind, seat 1 the non-dealer/small
// blind/deck author, matching this core's resolved Open Question (a).
type dealtHand struct {
	eng          *Engine
	g            *state.GameState
	nonDealerKey cipher.Key
	deck         [cipher.CardCount]cipher.EncryptedCard
}

func dealHand(t *testing.T, stake uint64, verifier proof.Verifier, slotCards map[int]uint8) *dealtHand {
	t.Helper()
	eng := NewEngine(verifier)

	g, err := eng.CreateMatch([]byte("dealer-pk"), stake, "dealer")
	if err != nil {
		t.Fatalf("CreateMatch: %v", err)
	}
	g, err = eng.JoinMatch(g, []byte("nondealer-pk"), "nondealer")
	if err != nil {
		t.Fatalf("JoinMatch: %v", err)
	}

	nonDealerKey := cipher.KeyFromScalar(big.NewInt(7))
	deck, err := cipher.EncryptDeck(nonDealerKey)
	if err != nil {
		t.Fatalf("EncryptDeck: %v", err)
	}
	root := merkle.Root(deck)

	now := int64(1000)
	g, err = eng.CommitDeck(g, now, 1, root[:], []byte("deck-creation-proof"))
	if err != nil {
		t.Fatalf("CommitDeck: %v", err)
	}

	var slots [9]cipher.EncryptedCard
	var inclusionProofs [9]merkle.Proof
	for slot, cardID := range slotCards {
		slots[slot] = deck[cardID]
		p, err := merkle.BuildProof(deck, int(cardID))
		if err != nil {
			t.Fatalf("BuildProof: %v", err)
		}
		inclusionProofs[slot] = p
	}

	opponentPocketA := deck[slotCards[state.SlotP2PocketA]]
	opponentPocketB := deck[slotCards[state.SlotP2PocketB]]

	g, err = eng.JoinHand(
		g, now, 0,
		[]byte("new-root"), []byte("reshuffle-proof"),
		slots, inclusionProofs,
		[2][]byte{opponentPocketA[:], opponentPocketB[:]},
		[2][]byte{[]byte("pocket-a-proof"), []byte("pocket-b-proof")},
	)
	if err != nil {
		t.Fatalf("JoinHand: %v", err)
	}

	return &dealtHand{eng: eng, g: g, nonDealerKey: nonDealerKey, deck: deck}
}

// checkBoth runs a check from seat (the non-dealer, who always acts
// first post-flop under this core's convention) then from its
// opponent, closing a bet round with no chips changing hands.
func checkBoth(t *testing.T, eng *Engine, g *state.GameState, now int64, first int) *state.GameState {
	t.Helper()
	g, err := eng.PlayerAction(g, now, first, MoveCheck, 0)
	if err != nil {
		t.Fatalf("check seat %d: %v", first, err)
	}
	g, err = eng.PlayerAction(g, now, state.Opponent(first), MoveCheck, 0)
	if err != nil {
		t.Fatalf("check seat %d: %v", state.Opponent(first), err)
	}
	return g
}

// revealBoth runs the two-step RevealShare for the active community
// stage: the dealer's (unverified) partial reveal, then the
// non-dealer's plaintext disclosure and key.
func revealBoth(t *testing.T, eng *Engine, g *state.GameState, now int64, slots []int, plaintexts map[int]uint8, nonDealerKey cipher.Key) *state.GameState {
	t.Helper()
	h := g.Hand
	partials := map[int]cipher.EncryptedCard{}
	proofs := map[int][]byte{}
	for _, slot := range slots {
		partials[slot] = rawCard(h.Board[slot])
		proofs[slot] = []byte("decryption-proof")
	}
	g, err := eng.RevealShare(g, now, h.DealerIndex, partials, nil, nil, proofs)
	if err != nil {
		t.Fatalf("dealer reveal_share: %v", err)
	}
	g, err = eng.RevealShare(g, now, state.Opponent(h.DealerIndex), nil, plaintexts, &nonDealerKey, proofs)
	if err != nil {
		t.Fatalf("non-dealer reveal_share: %v", err)
	}
	return g
}

func rawCard(b []byte) cipher.EncryptedCard {
	var out cipher.EncryptedCard
	copy(out[:], b)
	return out
}
