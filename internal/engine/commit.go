package engine

import (
	"github.com/ocplabs/holdemcore/internal/cipher"
	"github.com/ocplabs/holdemcore/internal/merkle"
	"github.com/ocplabs/holdemcore/internal/proof"
	"github.com/ocplabs/holdemcore/internal/state"
)

// CommitDeck is the non-dealer's opening move of a hand (§4.7): they
// singly-encrypt the 52-card deck under their key, publish its
// Merkle root, and prove deck_creation eagerly.
func (e *Engine) CommitDeck(g *state.GameState, now int64, authorSeat int, merkleRoot []byte, proofBytes []byte) (*state.GameState, error) {
	h := g.Hand
	if h == nil || h.Stage != state.AwaitingCommit {
		return nil, precondition("commit_deck requires stage AwaitingCommit")
	}
	if authorSeat == h.DealerIndex {
		return nil, precondition("commit_deck author must be the non-dealer")
	}

	signals := proof.Signals{
		"merkle_root": merkleRoot,
		"author_pk":   g.PaillierPKs[authorSeat],
	}
	if e.Verifier == nil || !e.Verifier.Verify(proof.DeckCreation, proofBytes, signals) {
		return nil, newProofInvalid(proof.DeckCreation)
	}

	smallBlind := blindAmount(g.StakeAmount)
	if g.Stacks[authorSeat] < smallBlind {
		return nil, ErrInsufficientStack
	}

	g.Stacks[authorSeat] -= smallBlind
	h.Bets[authorSeat] += smallBlind

	h.DeckCommitment = append([]byte(nil), merkleRoot...)
	h.DeckAuthorIndex = authorSeat
	h.Stage = state.AwaitingDealer
	h.LastActionAt = now
	h.Deadline = now + e.ActionTimeoutSecs
	return g, nil
}

// blindAmount derives the small blind as half the big blind, rounded
// down. The big blind is stake/100 with a floor of 1, so the small
// blind is 0 whenever the big blind is 1 (any stake under 200).
func blindAmount(stakeAmount uint64) uint64 {
	bb := bigBlindAmount(stakeAmount)
	return bb / 2
}

func bigBlindAmount(stakeAmount uint64) uint64 {
	bb := stakeAmount / 100
	if bb == 0 {
		bb = 1
	}
	return bb
}

// JoinHand is the dealer's reply to commit_deck (§4.7): they
// re-shuffle the deck into the 9 HandBoard slots with inclusion proofs
// verified eagerly against the old root, post the big blind, and store
// the reshuffle + decryption proofs optimistically for later dispute.
// Each slot stores a card of the committed singly-encrypted deck as
// is: the dealer's encryption layer is not applied to the stored
// bytes, and the reshuffle is attested only by the stored Reshuffle
// proof.
func (e *Engine) JoinHand(
	g *state.GameState,
	now int64,
	dealerSeat int,
	newRoot []byte,
	reshuffleProof []byte,
	slots [9]cipher.EncryptedCard,
	inclusionProofs [9]merkle.Proof,
	partialRevealsForOpponentPocket [2][]byte,
	decryptionProofs [2][]byte,
) (*state.GameState, error) {
	h := g.Hand
	if h == nil || h.Stage != state.AwaitingDealer {
		return nil, precondition("join_hand requires stage AwaitingDealer")
	}
	if dealerSeat != h.DealerIndex {
		return nil, precondition("join_hand author must be the dealer")
	}

	oldRoot := merkle.Hash{}
	copy(oldRoot[:], h.DeckCommitment)

	for slot := 0; slot < 9; slot++ {
		leaf := merkle.LeafHash(slots[slot])
		if !merkle.Verify(leaf, inclusionProofs[slot], oldRoot, cipher.CardCount) {
			return nil, ErrMerkleMismatch
		}
	}

	reshuffleSignals := proof.Signals{
		"old_root":      h.DeckCommitment,
		"new_root":      newRoot,
		"reshuffler_pk": g.PaillierPKs[dealerSeat],
	}
	bigBlind := bigBlindAmount(g.StakeAmount)
	if g.Stacks[dealerSeat] < bigBlind {
		return nil, ErrInsufficientStack
	}

	for i := 0; i < 9; i++ {
		h.Board[i] = append([]byte(nil), slots[i][:]...)
	}

	g.Stacks[dealerSeat] -= bigBlind
	h.Bets[dealerSeat] += bigBlind

	opponent := state.Opponent(dealerSeat)
	h.PartialReveals = map[int][]byte{
		pocketSlot(opponent, 0): append([]byte(nil), partialRevealsForOpponentPocket[0]...),
		pocketSlot(opponent, 1): append([]byte(nil), partialRevealsForOpponentPocket[1]...),
	}
	h.OptimisticProofs = append(h.OptimisticProofs,
		state.OptimisticProof{Kind: proof.Reshuffle, Slot: -1, Bytes: reshuffleProof, Signals: reshuffleSignals, RecordedAt: now},
		state.OptimisticProof{Kind: proof.Decryption, Slot: pocketSlot(opponent, 0), Bytes: decryptionProofs[0], Signals: proof.Signals{
			"stored_cipher": h.Board[pocketSlot(opponent, 0)], "revealed_value": partialRevealsForOpponentPocket[0], "revealer_pk": g.PaillierPKs[dealerSeat],
		}, RecordedAt: now},
		state.OptimisticProof{Kind: proof.Decryption, Slot: pocketSlot(opponent, 1), Bytes: decryptionProofs[1], Signals: proof.Signals{
			"stored_cipher": h.Board[pocketSlot(opponent, 1)], "revealed_value": partialRevealsForOpponentPocket[1], "revealer_pk": g.PaillierPKs[dealerSeat],
		}, RecordedAt: now},
	)

	h.Stage = state.PreFlopBet
	h.TurnIndex = opponent
	h.LastActionAt = now
	h.Deadline = now + e.ActionTimeoutSecs
	return g, nil
}

// pocketSlot maps (seat, card index 0|1) to its HandBoard slot per
// §3.1's fixed layout: [0,1]=P1 pocket, [2,3]=P2 pocket.
func pocketSlot(seat int, idx int) int {
	return seat*2 + idx
}
