package engine

import (
	"github.com/ocplabs/holdemcore/internal/cards"
	"github.com/ocplabs/holdemcore/internal/cipher"
	"github.com/ocplabs/holdemcore/internal/proof"
	"github.com/ocplabs/holdemcore/internal/settlement"
	"github.com/ocplabs/holdemcore/internal/state"
)

var betStages = map[state.Stage]bool{
	state.PreFlopBet: true,
	state.FlopBet:    true,
	state.TurnBet:    true,
	state.RiverBet:   true,
}

// nextRevealStage is what a closed betting round advances into.
var nextRevealStage = map[state.Stage]state.Stage{
	state.PreFlopBet: state.FlopReveal,
	state.FlopBet:    state.TurnReveal,
	state.TurnBet:    state.RiverReveal,
	state.RiverBet:   state.Showdown,
}

// nextBetStage is what a completed community reveal advances into,
// absent an all-in skip.
var nextBetStage = map[state.Stage]state.Stage{
	state.FlopReveal:  state.FlopBet,
	state.TurnReveal:  state.TurnBet,
	state.RiverReveal: state.RiverBet,
}

// revealSlots lists the HandBoard slots due at each community reveal
// stage, per §3.1's fixed layout ([4,5,6]=flop, [7]=turn, [8]=river).
var revealSlots = map[state.Stage][]int{
	state.FlopReveal:  {state.SlotFlop1, state.SlotFlop2, state.SlotFlop3},
	state.TurnReveal:  {state.SlotTurn},
	state.RiverReveal: {state.SlotRiver},
}

// PlayerAction applies Check/Call/Raise/Fold for the seat whose turn
// it is, then advances the hand if the round closed (§4.7). Pre-flop
// and post-flop action both open with the non-dealer, per this
// implementation's resolution of the heads-up blind convention (§9
// Open Question a): the non-dealer authors commit_deck and posts
// small blind, the dealer posts big blind and acts second.
func (e *Engine) PlayerAction(g *state.GameState, now int64, actorSeat int, move Move, raiseSize uint64) (*state.GameState, error) {
	h := g.Hand
	if h == nil || !betStages[h.Stage] {
		return nil, precondition("player_action requires an active bet stage")
	}
	if h.TurnIndex != actorSeat {
		return nil, precondition("it is not seat %d's turn", actorSeat)
	}
	if now > h.Deadline {
		return nil, ErrDeadlineExpired
	}

	switch move {
	case MoveFold:
		applyFold(h, actorSeat)
	case MoveCheck:
		if err := applyCheck(h, actorSeat); err != nil {
			return nil, err
		}
	case MoveCall:
		if err := applyCall(g, actorSeat); err != nil {
			return nil, err
		}
	case MoveRaise:
		if err := applyRaise(g, actorSeat, raiseSize); err != nil {
			return nil, err
		}
	default:
		return nil, precondition("unknown move")
	}

	if h.Folded[actorSeat] {
		// A fold can land mid-round, before the street's bets have ever
		// been swept into the pot -- sweep them now so AwardFold hands
		// over everything wagered this street, not just what an earlier
		// street already collected.
		sweepBetsIntoPot(h)
		if _, err := settlement.AwardFold(g, actorSeat); err != nil {
			return nil, err
		}
		settlement.ReturnBonds(g)
		return g, nil
	}

	if !roundClosed(h) {
		h.TurnIndex = state.Opponent(actorSeat)
		h.LastActionAt = now
		h.Deadline = now + e.ActionTimeoutSecs
		return g, nil
	}

	sweepBetsIntoPot(h)
	h.Stage = nextRevealStage[h.Stage]
	h.RevealStep = 0
	// First-revealer is always the dealer, whose reshuffle layer is
	// treated as the outer one (see JoinHand).
	h.TurnIndex = h.DealerIndex
	h.LastActionAt = now
	h.Deadline = now + e.ActionTimeoutSecs
	return g, nil
}

// advancePastRevealStage moves the hand from a completed community
// reveal into the next bet stage. Once either player is already all-in
// it skips that bet stage and moves straight to the next reveal stage
// (Showdown after the river) -- §4.7's "no further betting" all-in
// rule.
func advancePastRevealStage(h *state.HandState, completedReveal state.Stage, now int64, actionTimeoutSecs int64) {
	target := nextBetStage[completedReveal]
	if eitherAllIn(h) {
		if skip, ok := nextRevealStage[target]; ok {
			h.Stage = skip
		} else {
			h.Stage = state.Showdown
		}
		h.RevealStep = 0
		h.TurnIndex = h.DealerIndex
		return
	}
	h.Stage = target
	h.TurnIndex = state.Opponent(h.DealerIndex)
	h.LastActionAt = now
	h.Deadline = now + actionTimeoutSecs
}

// RevealShare runs the two-step community-card reveal for the active
// FlopReveal/TurnReveal/RiverReveal stage (§4.7). The dealer
// (first-revealer) submits partial reveals for the due slots,
// unverified and stored only for later dispute. The non-dealer
// (second-revealer) then submits the claimed plaintexts along with
// their own cipher key for that reveal -- safe to disclose, since the
// card is being made public at this very moment -- and the core
// checks each claim eagerly: encrypting the plaintext under the
// non-dealer's own key must reproduce the stored (optimistic) partial
// reveal. A mismatch is a CoherenceFailure and forfeits the hand to
// the dealer; it does not by itself prove the dealer's earlier
// partial-reveal claim was wrong (that is what a disputed Decryption
// proof is for).
func (e *Engine) RevealShare(
	g *state.GameState,
	now int64,
	actorSeat int,
	partialReveals map[int]cipher.EncryptedCard,
	plaintexts map[int]uint8,
	revealerKey *cipher.Key,
	decryptionProofBytes map[int][]byte,
) (*state.GameState, error) {
	h := g.Hand
	slots, ok := revealSlots[h.Stage]
	if !ok {
		return nil, precondition("reveal_share requires an active community reveal stage")
	}
	if now > h.Deadline {
		return nil, ErrDeadlineExpired
	}

	if h.RevealStep == 0 {
		if actorSeat != h.DealerIndex {
			return nil, precondition("first community reveal must come from the dealer")
		}
		for _, slot := range slots {
			if _, ok := partialReveals[slot]; !ok {
				return nil, precondition("missing partial reveal for slot %d", slot)
			}
		}
		if h.PartialReveals == nil {
			h.PartialReveals = map[int][]byte{}
		}
		for _, slot := range slots {
			pr, ok := partialReveals[slot]
			if !ok {
				return nil, precondition("missing partial reveal for slot %d", slot)
			}
			h.PartialReveals[slot] = append([]byte(nil), pr[:]...)
			h.OptimisticProofs = append(h.OptimisticProofs, state.OptimisticProof{
				Kind: proof.Decryption, Slot: slot, Bytes: decryptionProofBytes[slot],
				Signals:    proof.Signals{"stored_cipher": h.Board[slot], "revealed_value": pr[:], "revealer_pk": g.PaillierPKs[actorSeat]},
				RecordedAt: now,
			})
		}
		h.RevealStep = 1
		h.LastActionAt = now
		h.Deadline = now + e.ActionTimeoutSecs
		return g, nil
	}

	nonDealer := state.Opponent(h.DealerIndex)
	if actorSeat != nonDealer {
		return nil, precondition("second community reveal must come from the non-dealer")
	}
	if revealerKey == nil {
		return nil, precondition("second community reveal must disclose the revealer's key")
	}
	for _, slot := range slots {
		if _, ok := plaintexts[slot]; !ok {
			return nil, precondition("missing plaintext for slot %d", slot)
		}
	}
	for _, slot := range slots {
		plain, ok := plaintexts[slot]
		if !ok {
			return nil, precondition("missing plaintext for slot %d", slot)
		}
		if err := checkCoherence(h, slot, plain, *revealerKey); err != nil {
			applyFold(h, nonDealer)
			if _, aerr := settlement.AwardFold(g, nonDealer); aerr != nil {
				return nil, aerr
			}
			settlement.ReturnBonds(g)
			return g, err
		}
		recordPlaintext(h, slot, plain, decryptionProofBytes[slot], g.PaillierPKs[actorSeat], now)
	}

	completedStage := h.Stage
	h.RevealStep = 0
	advancePastRevealStage(h, completedStage, now, e.ActionTimeoutSecs)
	return g, nil
}

// checkCoherence re-encrypts the claimed plaintext under the
// disclosed revealer key and compares it to the stored partial
// reveal for slot, at the second reveal submission. Only the
// revealer's single layer is checked; the dealer's key is never
// disclosed and plays no part in it.
func checkCoherence(h *state.HandState, slot int, plain uint8, revealerKey cipher.Key) error {
	claimed := encryptedCard(h.PartialReveals[slot])
	recomputed, err := cipher.Encrypt(plain, revealerKey)
	if err != nil {
		return ErrCryptoError
	}
	if recomputed != claimed {
		return newCoherenceFailure(slot)
	}
	return nil
}

func recordPlaintext(h *state.HandState, slot int, plain uint8, proofBytes []byte, revealerPK []byte, now int64) {
	if h.Plaintexts == nil {
		h.Plaintexts = map[int]uint8{}
	}
	h.Plaintexts[slot] = plain
	h.OptimisticProofs = append(h.OptimisticProofs, state.OptimisticProof{
		Kind: proof.Decryption, Slot: slot, Bytes: proofBytes,
		Signals:    proof.Signals{"stored_cipher": h.PartialReveals[slot], "revealed_value": []byte{plain}, "revealer_pk": revealerPK},
		RecordedAt: now,
	})
}

// ShowdownReveal reveals the four pocket-card slots (§4.7). The
// dealer's own two pocket slots have no partial reveal yet at this
// point, so the dealer first
// submits partial reveals for those two slots exactly as in
// RevealShare. The non-dealer then finalizes all four pocket slots
// at once: her own two (whose partial reveal was already produced
// eagerly back in join_hand) and the dealer's two (just produced
// above), self-checking each against her own disclosed key.
func (e *Engine) ShowdownReveal(
	g *state.GameState,
	now int64,
	actorSeat int,
	dealerPocketPartialReveals map[int]cipher.EncryptedCard,
	pocketPlaintexts map[int]uint8,
	revealerKey *cipher.Key,
	decryptionProofBytes map[int][]byte,
) (*state.GameState, error) {
	h := g.Hand
	if h.Stage != state.Showdown {
		return nil, precondition("showdown_reveal requires stage Showdown")
	}
	if now > h.Deadline {
		return nil, ErrDeadlineExpired
	}

	dealerPocket := []int{pocketSlot(h.DealerIndex, 0), pocketSlot(h.DealerIndex, 1)}
	nonDealer := state.Opponent(h.DealerIndex)
	nonDealerPocket := []int{pocketSlot(nonDealer, 0), pocketSlot(nonDealer, 1)}

	if h.RevealStep == 0 {
		if actorSeat != h.DealerIndex {
			return nil, precondition("first showdown reveal must come from the dealer")
		}
		for _, slot := range dealerPocket {
			if _, ok := dealerPocketPartialReveals[slot]; !ok {
				return nil, precondition("missing partial reveal for slot %d", slot)
			}
		}
		if h.PartialReveals == nil {
			h.PartialReveals = map[int][]byte{}
		}
		for _, slot := range dealerPocket {
			pr, ok := dealerPocketPartialReveals[slot]
			if !ok {
				return nil, precondition("missing partial reveal for slot %d", slot)
			}
			h.PartialReveals[slot] = append([]byte(nil), pr[:]...)
			h.OptimisticProofs = append(h.OptimisticProofs, state.OptimisticProof{
				Kind: proof.Decryption, Slot: slot, Bytes: decryptionProofBytes[slot],
				Signals:    proof.Signals{"stored_cipher": h.Board[slot], "revealed_value": pr[:], "revealer_pk": g.PaillierPKs[actorSeat]},
				RecordedAt: now,
			})
		}
		h.RevealStep = 1
		h.LastActionAt = now
		h.Deadline = now + e.ActionTimeoutSecs
		return g, nil
	}

	if actorSeat != nonDealer {
		return nil, precondition("second showdown reveal must come from the non-dealer")
	}
	if revealerKey == nil {
		return nil, precondition("second showdown reveal must disclose the revealer's key")
	}
	allPocketSlots := append(append([]int{}, dealerPocket...), nonDealerPocket...)
	for _, slot := range allPocketSlots {
		if _, ok := pocketPlaintexts[slot]; !ok {
			return nil, precondition("missing pocket plaintext for slot %d", slot)
		}
	}
	for _, slot := range allPocketSlots {
		plain, ok := pocketPlaintexts[slot]
		if !ok {
			return nil, precondition("missing pocket plaintext for slot %d", slot)
		}
		if err := checkCoherence(h, slot, plain, *revealerKey); err != nil {
			applyFold(h, nonDealer)
			if _, aerr := settlement.AwardFold(g, nonDealer); aerr != nil {
				return nil, aerr
			}
			settlement.ReturnBonds(g)
			return g, err
		}
		recordPlaintext(h, slot, plain, decryptionProofBytes[slot], g.PaillierPKs[actorSeat], now)
	}

	h.RevealStep = 0
	h.LastActionAt = now
	return g, nil
}

// ResolveHand evaluates both 7-card hands once all nine HandBoard
// slots are plaintext, splits the pot (odd unit to the small blind,
// i.e. the non-dealer, per §4.7), and settles bonds.
func (e *Engine) ResolveHand(g *state.GameState) (*state.GameState, error) {
	h := g.Hand
	if h == nil || h.Stage != state.Showdown {
		return nil, precondition("resolve_hand requires stage Showdown")
	}
	for slot := 0; slot < 9; slot++ {
		if _, ok := h.Plaintexts[slot]; !ok {
			return nil, precondition("pocket/board slot %d not yet revealed", slot)
		}
	}

	board := [5]cards.Card{
		cards.Card(h.Plaintexts[state.SlotFlop1]),
		cards.Card(h.Plaintexts[state.SlotFlop2]),
		cards.Card(h.Plaintexts[state.SlotFlop3]),
		cards.Card(h.Plaintexts[state.SlotTurn]),
		cards.Card(h.Plaintexts[state.SlotRiver]),
	}
	nonDealer := state.Opponent(h.DealerIndex)
	var hole [2][2]cards.Card
	hole[0] = [2]cards.Card{cards.Card(h.Plaintexts[pocketSlot(0, 0)]), cards.Card(h.Plaintexts[pocketSlot(0, 1)])}
	hole[1] = [2]cards.Card{cards.Card(h.Plaintexts[pocketSlot(1, 0)]), cards.Card(h.Plaintexts[pocketSlot(1, 1)])}

	res, err := settlement.AwardShowdown(g, board, hole)
	if err != nil {
		return nil, err
	}
	// A split pot's odd remainder goes to the small blind (non-dealer,
	// per this implementation's blind convention), not automatically
	// to the lower seat index -- reassign if the dealer is seat 0 and
	// received it from AwardShowdown's lower-seat-index default.
	if len(res.WinnerSeats) == 2 && nonDealer != 0 && res.Amounts[0] > res.Amounts[1] {
		moved := res.Amounts[0] - res.Amounts[1]
		g.Stacks[0] -= moved
		g.Stacks[1] += moved
	}
	settlement.ReturnBonds(g)
	return g, nil
}
