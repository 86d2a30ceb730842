package codec

import (
	"encoding/json"
	"fmt"
)

// TxEnvelope is the v0 transaction container.
//
// CometBFT transactions are opaque bytes. For v0 localnet we use JSON-encoded
// txs to move fast; this is NOT the final protocol encoding.
type TxEnvelope struct {
	// Basic routing.
	Type  string          `json:"type"`
	Value json.RawMessage `json:"value"`

	// v0 tx auth (optional):
	// - Nonce: included in the signed message; the app does not check it for reuse or ordering.
	// - Signer: logical signer id (playerId for player-signed txs).
	// - Sig: Ed25519 signature over (type, nonce, signer, sha256(value)).
	//
	// Note: This is still a scaffold; it is NOT the final protocol encoding.
	Nonce  string `json:"nonce,omitempty"`
	Signer string `json:"signer,omitempty"`
	Sig    []byte `json:"sig,omitempty"`
}

func DecodeTxEnvelope(txBytes []byte) (TxEnvelope, error) {
	var env TxEnvelope
	if err := json.Unmarshal(txBytes, &env); err != nil {
		return TxEnvelope{}, fmt.Errorf("invalid tx json: %w", err)
	}
	if env.Type == "" {
		return TxEnvelope{}, fmt.Errorf("missing tx.type")
	}
	return env, nil
}

// ---- Bank ----

type BankMintTx struct {
	To     string `json:"to"`
	Amount uint64 `json:"amount"`
}

type BankSendTx struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Amount uint64 `json:"amount"`
}

// ---- Auth (v0) ----

// v0: account pubkey registration for tx authentication.
type AuthRegisterAccountTx struct {
	Account string `json:"account"`
	PubKey  []byte `json:"pubKey"` // base64 (32 bytes)
}

// ---- Match lifecycle ----

// CreateMatchTx opens a match at StatusPending, escrowing the
// creator's bond out of stakeAmount and seating them at seat 0.
type CreateMatchTx struct {
	Creator     string `json:"creator"`
	PK          []byte `json:"pk"` // base64 proof-binding public key
	StakeAmount uint64 `json:"stakeAmount"`
}

// JoinMatchTx seats the second player and starts the first hand.
type JoinMatchTx struct {
	Player  string `json:"player"`
	MatchID uint64 `json:"matchId"`
	PK      []byte `json:"pk"`
}

// StartNextHandTx begins a new hand once the previous one settled.
type StartNextHandTx struct {
	Caller  string `json:"caller"`
	MatchID uint64 `json:"matchId"`
}

// LeaveGameTx ends the match for the caller once no hand is in
// progress.
type LeaveGameTx struct {
	Player  string `json:"player"`
	MatchID uint64 `json:"matchId"`
}

// ---- Hand setup ----

// CommitDeckTx is the non-dealer's opening move of a hand: the
// singly-encrypted deck's Merkle root plus an eagerly-verified
// deck_creation proof.
type CommitDeckTx struct {
	Player     string `json:"player"`
	MatchID    uint64 `json:"matchId"`
	MerkleRoot []byte `json:"merkleRoot"`
	ProofBytes []byte `json:"proof"`
}

// JoinHandTx is the dealer's reply: the re-shuffled deck assigned to
// all nine HandBoard slots (each slot a card of the committed
// singly-encrypted deck, without a dealer layer), with
// inclusion proofs against the old root, plus the two eager partial
// reveals for the non-dealer's own pocket cards.
type JoinHandTx struct {
	Player                         string            `json:"player"`
	MatchID                        uint64            `json:"matchId"`
	NewRoot                        []byte            `json:"newRoot"`
	ReshuffleProof                 []byte            `json:"reshuffleProof"`
	Slots                          [9][]byte         `json:"slots"`
	InclusionProofs                [9]InclusionProof `json:"inclusionProofs"`
	OpponentPocketPartialReveals   [2][]byte         `json:"opponentPocketPartialReveals"`
	OpponentPocketDecryptionProofs [2][]byte         `json:"opponentPocketDecryptionProofs"`
}

// InclusionProof is the wire shape of a merkle.Proof: the sibling
// hashes walking bottom-up from the original deck leaf to its root,
// plus the leaf's index in the pre-shuffle deck ordering.
type InclusionProof struct {
	Siblings [][]byte `json:"siblings"`
	Index    int      `json:"index"`
}

// ---- Betting ----

// PlayerActionTx is a single Check/Call/Raise/Fold.
type PlayerActionTx struct {
	Player    string `json:"player"`
	MatchID   uint64 `json:"matchId"`
	Move      string `json:"move"` // check|call|raise|fold
	RaiseSize uint64 `json:"raiseSize,omitempty"`
}

// ---- Reveals ----

// RevealShareTx is one step (dealer's first, or non-dealer's second)
// of the active community-card reveal stage.
type RevealShareTx struct {
	Player               string            `json:"player"`
	MatchID              uint64            `json:"matchId"`
	PartialReveals       map[int][]byte    `json:"partialReveals,omitempty"`
	Plaintexts           map[int]uint8     `json:"plaintexts,omitempty"`
	RevealerKey          []byte            `json:"revealerKey,omitempty"`
	DecryptionProofBytes map[int][]byte    `json:"decryptionProofs,omitempty"`
}

// ShowdownRevealTx is one step of the pocket-card reveal at Showdown.
type ShowdownRevealTx struct {
	Player                     string         `json:"player"`
	MatchID                    uint64         `json:"matchId"`
	DealerPocketPartialReveals map[int][]byte `json:"dealerPocketPartialReveals,omitempty"`
	PocketPlaintexts           map[int]uint8  `json:"pocketPlaintexts,omitempty"`
	RevealerKey                []byte         `json:"revealerKey,omitempty"`
	DecryptionProofBytes       map[int][]byte `json:"decryptionProofs,omitempty"`
}

// ResolveHandTx evaluates both hands and settles the pot once every
// HandBoard slot has been revealed.
type ResolveHandTx struct {
	Caller  string `json:"caller"`
	MatchID uint64 `json:"matchId"`
}

// ClaimTimeoutTx is the two-mode escape hatch: a liveness claim
// (DisputedKind omitted) or a cheat dispute against a specific
// stored optimistic proof.
type ClaimTimeoutTx struct {
	Caller       string `json:"caller"`
	MatchID      uint64 `json:"matchId"`
	DisputedKind *int   `json:"disputedKind,omitempty"`
	DisputedSlot int    `json:"disputedSlot,omitempty"`
}

