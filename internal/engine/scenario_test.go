package engine

import (
	"errors"
	"math/big"
	"testing"

	"github.com/ocplabs/holdemcore/internal/cipher"
	"github.com/ocplabs/holdemcore/internal/merkle"
	"github.com/ocplabs/holdemcore/internal/proof"
	"github.com/ocplabs/holdemcore/internal/state"
)

// TestHappyPath runs a full hand end to end (S1): commit, join, a
// preflop call/check, three checked-down community reveals, a
// showdown reveal, and resolution -- the literal seed board/pocket
// cards from spec.md, landing on the non-dealer holding four aces
// against the dealer's trip aces.
func TestHappyPath(t *testing.T) {
	d := dealHand(t, 10, stubVerifier{ok: true}, s1SlotCards)
	eng, g := d.eng, d.g
	now := int64(1000)

	if g.Hand.Stage != state.PreFlopBet {
		t.Fatalf("expected PreFlopBet, got %s", g.Hand.Stage)
	}
	if g.Stacks != [2]uint64{8, 9} {
		t.Fatalf("unexpected stacks after blinds: %v", g.Stacks)
	}

	var err error
	g, err = eng.PlayerAction(g, now, 1, MoveCall, 0)
	if err != nil {
		t.Fatalf("preflop call: %v", err)
	}
	g, err = eng.PlayerAction(g, now, 0, MoveCheck, 0)
	if err != nil {
		t.Fatalf("preflop check: %v", err)
	}
	if g.Hand.Stage != state.FlopReveal {
		t.Fatalf("expected FlopReveal, got %s", g.Hand.Stage)
	}
	if g.Hand.Pot != 2 {
		t.Fatalf("expected pot=2 after preflop, got %d", g.Hand.Pot)
	}

	g = revealBoth(t, eng, g, now, []int{state.SlotFlop1, state.SlotFlop2, state.SlotFlop3},
		map[int]uint8{state.SlotFlop1: 12, state.SlotFlop2: 25, state.SlotFlop3: 38}, d.nonDealerKey)
	if g.Hand.Stage != state.FlopBet {
		t.Fatalf("expected FlopBet, got %s", g.Hand.Stage)
	}
	g = checkBoth(t, eng, g, now, 1)
	if g.Hand.Stage != state.TurnReveal {
		t.Fatalf("expected TurnReveal, got %s", g.Hand.Stage)
	}

	g = revealBoth(t, eng, g, now, []int{state.SlotTurn}, map[int]uint8{state.SlotTurn: 7}, d.nonDealerKey)
	g = checkBoth(t, eng, g, now, 1)
	if g.Hand.Stage != state.RiverReveal {
		t.Fatalf("expected RiverReveal, got %s", g.Hand.Stage)
	}

	g = revealBoth(t, eng, g, now, []int{state.SlotRiver}, map[int]uint8{state.SlotRiver: 19}, d.nonDealerKey)
	g = checkBoth(t, eng, g, now, 1)
	if g.Hand.Stage != state.Showdown {
		t.Fatalf("expected Showdown, got %s", g.Hand.Stage)
	}

	dealerPocket := map[int]cipher.EncryptedCard{
		state.SlotP1PocketA: rawCard(g.Hand.Board[state.SlotP1PocketA]),
		state.SlotP1PocketB: rawCard(g.Hand.Board[state.SlotP1PocketB]),
	}
	g, err = eng.ShowdownReveal(g, now, 0, dealerPocket, nil, nil, map[int][]byte{
		state.SlotP1PocketA: []byte("p"), state.SlotP1PocketB: []byte("p"),
	})
	if err != nil {
		t.Fatalf("showdown_reveal step0: %v", err)
	}

	pocketPlaintexts := map[int]uint8{
		state.SlotP1PocketA: 49, state.SlotP1PocketB: 48,
		state.SlotP2PocketA: 51, state.SlotP2PocketB: 50,
	}
	proofs := map[int][]byte{
		state.SlotP1PocketA: []byte("p"), state.SlotP1PocketB: []byte("p"),
		state.SlotP2PocketA: []byte("p"), state.SlotP2PocketB: []byte("p"),
	}
	g, err = eng.ShowdownReveal(g, now, 1, nil, pocketPlaintexts, &d.nonDealerKey, proofs)
	if err != nil {
		t.Fatalf("showdown_reveal step1: %v", err)
	}

	g, err = eng.ResolveHand(g)
	if err != nil {
		t.Fatalf("resolve_hand: %v", err)
	}
	if g.Hand.Stage != state.Settled {
		t.Fatalf("expected Settled, got %s", g.Hand.Stage)
	}
	if g.Stacks != [2]uint64{9, 11} {
		t.Fatalf("expected the non-dealer's four aces to win the pot and both bonds back, got stacks=%v", g.Stacks)
	}
	if g.Bonds != [2]uint64{0, 0} {
		t.Fatalf("expected both bonds returned, got %v", g.Bonds)
	}
}

// TestFold runs S2: the non-dealer raises preflop and the dealer
// folds, forfeiting everything wagered this street (not just whatever
// an earlier street had already swept) to the non-dealer.
func TestFold(t *testing.T) {
	d := dealHand(t, 10, stubVerifier{ok: true}, s1SlotCards)
	eng, g := d.eng, d.g
	now := int64(1000)

	g, err := eng.PlayerAction(g, now, 1, MoveRaise, 3)
	if err != nil {
		t.Fatalf("raise: %v", err)
	}
	g, err = eng.PlayerAction(g, now, 0, MoveFold, 0)
	if err != nil {
		t.Fatalf("fold: %v", err)
	}
	if g.Hand.Stage != state.Settled {
		t.Fatalf("expected Settled after fold, got %s", g.Hand.Stage)
	}
	if g.Stacks != [2]uint64{9, 11} {
		t.Fatalf("expected the non-dealer to win every chip wagered this street plus both bonds, got %v", g.Stacks)
	}
	if g.Bonds != [2]uint64{0, 0} {
		t.Fatalf("expected both bonds returned on a plain fold, got %v", g.Bonds)
	}
}

// TestClaimTimeout_Liveness runs S3: the dealer never calls join_hand,
// so the non-dealer claims a liveness timeout and takes the pot plus
// the dealer's bond.
func TestClaimTimeout_Liveness(t *testing.T) {
	eng := NewEngine(stubVerifier{ok: true})
	g, err := eng.CreateMatch([]byte("dealer-pk"), 1000, "dealer")
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
	g, err = eng.CommitDeck(g, 1000, 1, root[:], []byte("proof"))
	if err != nil {
		t.Fatalf("CommitDeck: %v", err)
	}

	if g.Stacks != [2]uint64{900, 895} {
		t.Fatalf("unexpected stacks after commit_deck: %v", g.Stacks)
	}

	lateNow := g.Hand.Deadline + 1
	g, err = eng.ClaimTimeout(g, lateNow, 1, nil, 0)
	if err != nil {
		t.Fatalf("claim_timeout: %v", err)
	}
	if g.Hand.Stage != state.Settled {
		t.Fatalf("expected Settled, got %s", g.Hand.Stage)
	}
	if g.Stacks != [2]uint64{900, 1100} {
		t.Fatalf("expected the non-dealer to win the small blind plus the dealer's bond, got %v", g.Stacks)
	}
	if g.Bonds != [2]uint64{0, 0} {
		t.Fatalf("expected both bonds settled, got %v", g.Bonds)
	}

	// A liveness claim before the deadline is rejected.
	d2 := dealHand(t, 1000, stubVerifier{ok: true}, s1SlotCards)
	if _, err := d2.eng.ClaimTimeout(d2.g, d2.g.Hand.Deadline, 1, nil, 0); err == nil {
		t.Fatalf("expected an error claiming a timeout before the deadline")
	}
	// The seat that is itself expected to act cannot claim against
	// its own pending action.
	lateNow2 := d2.g.Hand.Deadline + 1
	if _, err := d2.eng.ClaimTimeout(d2.g, lateNow2, expectedActor(d2.g.Hand), nil, 0); err == nil {
		t.Fatalf("expected an error claiming a timeout against oneself")
	}
}

// TestClaimTimeout_CheatDispute runs S4: the dealer's reshuffle proof
// is invalid; the non-dealer disputes it during the flop and wins the
// pot plus the dealer's forfeited bond.
func TestClaimTimeout_CheatDispute(t *testing.T) {
	verifier := kindVerifier{deny: proof.Reshuffle}
	d := dealHand(t, 1000, verifier, s1SlotCards)
	eng, g := d.eng, d.g
	now := int64(1000)

	g, err := eng.PlayerAction(g, now, 1, MoveCall, 0)
	if err != nil {
		t.Fatalf("preflop call: %v", err)
	}
	g, err = eng.PlayerAction(g, now, 0, MoveCheck, 0)
	if err != nil {
		t.Fatalf("preflop check: %v", err)
	}
	if g.Hand.Stage != state.FlopReveal {
		t.Fatalf("expected FlopReveal, got %s", g.Hand.Stage)
	}
	if g.Hand.Pot != 20 {
		t.Fatalf("expected pot=20 after preflop, got %d", g.Hand.Pot)
	}

	reshuffleKind := proof.Reshuffle
	g, err = eng.ClaimTimeout(g, now, 1, &reshuffleKind, -1)
	if err != nil {
		t.Fatalf("claim_timeout dispute: %v", err)
	}
	if g.Hand.Stage != state.Settled {
		t.Fatalf("expected Settled, got %s", g.Hand.Stage)
	}
	if g.Stacks != [2]uint64{890, 1110} {
		t.Fatalf("expected the non-dealer to win the pot plus the dealer's forfeited bond, got %v", g.Stacks)
	}
	if g.Bonds[0] != 0 {
		t.Fatalf("expected the dealer's bond zeroed, got %d", g.Bonds[0])
	}
}

// TestClaimTimeout_DisputeUpholdsValidProof confirms the other branch
// of claim_timeout's cheat-dispute mode: a valid proof costs the
// disputer their own bond and the hand continues.
func TestClaimTimeout_DisputeUpholdsValidProof(t *testing.T) {
	d := dealHand(t, 1000, stubVerifier{ok: true}, s1SlotCards)
	eng, g := d.eng, d.g

	reshuffleKind := proof.Reshuffle
	g, err := eng.ClaimTimeout(g, 1000, 1, &reshuffleKind, -1)
	if err != nil {
		t.Fatalf("claim_timeout dispute: %v", err)
	}
	if g.Hand.Stage != state.AwaitingDealer && g.Hand.Stage != state.PreFlopBet {
		t.Fatalf("expected the hand to continue after a valid proof, got %s", g.Hand.Stage)
	}
	if g.Bonds[1] != 0 {
		t.Fatalf("expected the disputing non-dealer's own bond forfeited, got %d", g.Bonds[1])
	}
	if g.Stacks[0] != 990 {
		t.Fatalf("expected the dealer to receive the disputer's forfeited bond, got stacks[0]=%d", g.Stacks[0])
	}
}

// TestRevealShare_CoherenceFailure runs S5: the non-dealer claims the
// wrong plaintext for a flop slot; the coherence check folds them
// immediately and the dealer wins without any dispute.
func TestRevealShare_CoherenceFailure(t *testing.T) {
	d := dealHand(t, 1000, stubVerifier{ok: true}, s1SlotCards)
	eng, g := d.eng, d.g
	now := int64(1000)

	g, err := eng.PlayerAction(g, now, 1, MoveCall, 0)
	if err != nil {
		t.Fatalf("preflop call: %v", err)
	}
	g, err = eng.PlayerAction(g, now, 0, MoveCheck, 0)
	if err != nil {
		t.Fatalf("preflop check: %v", err)
	}

	h := g.Hand
	partials := map[int]cipher.EncryptedCard{
		state.SlotFlop1: rawCard(h.Board[state.SlotFlop1]),
		state.SlotFlop2: rawCard(h.Board[state.SlotFlop2]),
		state.SlotFlop3: rawCard(h.Board[state.SlotFlop3]),
	}
	g, err = eng.RevealShare(g, now, 0, partials, nil, nil, map[int][]byte{})
	if err != nil {
		t.Fatalf("dealer reveal_share: %v", err)
	}

	badPlaintexts := map[int]uint8{state.SlotFlop1: 0, state.SlotFlop2: 25, state.SlotFlop3: 38}
	_, err = eng.RevealShare(g, now, 1, nil, badPlaintexts, &d.nonDealerKey, map[int][]byte{})
	var coherenceErr *CoherenceFailureError
	if !errors.As(err, &coherenceErr) {
		t.Fatalf("expected a CoherenceFailureError, got %v", err)
	}
	if coherenceErr.Slot != state.SlotFlop1 {
		t.Fatalf("expected the failure at slot %d, got %d", state.SlotFlop1, coherenceErr.Slot)
	}
	if g.Hand.Stage != state.Settled {
		t.Fatalf("expected the hand to settle on coherence failure, got %s", g.Hand.Stage)
	}
	if !g.Hand.Folded[1] {
		t.Fatalf("expected the non-dealer (the revealer who claimed wrong) to be folded")
	}
	if g.Stacks[0] <= 890 {
		t.Fatalf("expected the dealer to win the pot, stacks=%v", g.Stacks)
	}
	if g.Bonds != [2]uint64{0, 0} {
		t.Fatalf("expected both bonds returned (no confirmed cheat, just a bad claim), got %v", g.Bonds)
	}
}

// TestResolveHand_TieSplitsOddChipToSmallBlind runs S6: both hands
// score identically, so the pot splits -- and the odd remainder chip
// goes to the small blind (the non-dealer), not AwardShowdown's
// lower-seat-index default.
func TestResolveHand_TieSplitsOddChipToSmallBlind(t *testing.T) {
	eng := NewEngine(stubVerifier{ok: true})
	g := &state.GameState{
		Players: [2]string{"dealer", "nondealer"},
		Stacks:  [2]uint64{100, 100},
	}
	g.Hand = state.NewHandState(0)
	g.Hand.Stage = state.Showdown
	g.Hand.Pot = 5
	g.Hand.Plaintexts = map[int]uint8{
		state.SlotP1PocketA: 13, // seat0 (dealer) pocket: 2d, 3d
		state.SlotP1PocketB: 14,
		state.SlotP2PocketA: 26, // seat1 (non-dealer) pocket: 2h, 3h
		state.SlotP2PocketB: 27,
		state.SlotFlop1:     12, // board: Ac Kd Qh Js Tc -- a made Broadway straight
		state.SlotFlop2:     24,
		state.SlotFlop3:     36,
		state.SlotTurn:      48,
		state.SlotRiver:     8,
	}

	g, err := eng.ResolveHand(g)
	if err != nil {
		t.Fatalf("resolve_hand: %v", err)
	}
	if g.Stacks[0] != 102 || g.Stacks[1] != 103 {
		t.Fatalf("expected a 2/3 split favoring the small blind (non-dealer), got stacks=%v", g.Stacks)
	}
}

// kindVerifier denies exactly one proof.Kind and accepts every other,
// letting a test isolate which proof a dispute is actually checking.
type kindVerifier struct{ deny proof.Kind }

func (k kindVerifier) Verify(kind proof.Kind, _ []byte, _ proof.Signals) bool {
	return kind != k.deny
}

// TestStartNextHand folds a hand to Settled, then rotates the dealer
// and resets HandState for the next one -- and confirms the
// preconditions that guard both StartNextHand and LeaveGame.
func TestStartNextHand(t *testing.T) {
	d := dealHand(t, 10, stubVerifier{ok: true}, s1SlotCards)
	eng, g := d.eng, d.g
	now := int64(1000)

	g, err := eng.PlayerAction(g, now, 1, MoveRaise, 3)
	if err != nil {
		t.Fatalf("preflop raise: %v", err)
	}
	g, err = eng.PlayerAction(g, now, 0, MoveFold, 0)
	if err != nil {
		t.Fatalf("preflop fold: %v", err)
	}
	if g.Hand.Stage != state.Settled {
		t.Fatalf("expected Settled after the fold, got %s", g.Hand.Stage)
	}

	// A settled hand can be left.
	if _, err := eng.LeaveGame(g, 0); err != nil {
		t.Fatalf("LeaveGame at Settled should be legal: %v", err)
	}

	prevHandID := g.CurrentHandID
	g, err = eng.StartNextHand(g)
	if err != nil {
		t.Fatalf("start_next_hand: %v", err)
	}
	if g.CurrentHandID != prevHandID+1 {
		t.Fatalf("expected CurrentHandID to increment, got %d", g.CurrentHandID)
	}
	if g.Hand.DealerIndex != 1 {
		t.Fatalf("expected the dealer to rotate to seat 1, got %d", g.Hand.DealerIndex)
	}
	if g.Hand.SmallBlindIndex != 0 || g.Hand.TurnIndex != 0 {
		t.Fatalf("expected seat 0 as the new small blind and first to act, got small_blind=%d turn=%d", g.Hand.SmallBlindIndex, g.Hand.TurnIndex)
	}
	if g.Hand.Stage != state.AwaitingCommit {
		t.Fatalf("expected a fresh hand at AwaitingCommit, got %s", g.Hand.Stage)
	}

	// Cannot start another hand before this one settles.
	if _, err := eng.StartNextHand(g); err == nil {
		t.Fatalf("expected start_next_hand to reject a hand still at AwaitingCommit")
	}

	// Cannot leave while a hand is in progress past AwaitingCommit.
	g, err = eng.CommitDeck(g, now, 0, []byte("root-32-bytes-00000000000000000"), []byte("deck-creation-proof"))
	if err != nil {
		t.Fatalf("commit_deck: %v", err)
	}
	if _, err := eng.LeaveGame(g, 1); err == nil {
		t.Fatalf("expected LeaveGame to reject leaving mid-hand")
	}
}

// TestClaimTimeout_DisputeWindowExpired confirms a cheat dispute raised
// too long after the targeted proof was recorded is rejected outright,
// without ever reaching proof verification.
func TestClaimTimeout_DisputeWindowExpired(t *testing.T) {
	verifier := kindVerifier{deny: proof.Reshuffle}
	d := dealHand(t, 1000, verifier, s1SlotCards)
	eng, g := d.eng, d.g

	reshuffleKind := proof.Reshuffle
	late := g.Hand.Deadline + eng.DisputeWindowSecs + 1
	if _, err := eng.ClaimTimeout(g, late, 1, &reshuffleKind, -1); err == nil {
		t.Fatalf("expected a dispute raised past the window to be rejected")
	}
	if g.Hand.Stage != state.PreFlopBet {
		t.Fatalf("expected a rejected dispute to leave the hand untouched, got %s", g.Hand.Stage)
	}
	if g.Bonds[0] == 0 || g.Bonds[1] == 0 {
		t.Fatalf("expected both bonds untouched by a rejected dispute, got %v", g.Bonds)
	}
}
