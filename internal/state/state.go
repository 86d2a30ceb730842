// Package state holds the persistent GameState/HandState record (§3)
// and its load/save/hash plumbing, adapted from the teacher's
// multi-table internal/state down to the single heads-up match this
// core governs: the GameState is the only mutable object (§5), so
// there is exactly one embedded match instead of a Tables map.
package state

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/ocplabs/holdemcore/internal/proof"
)

// Stage is the hand lifecycle position (§4.7).
type Stage string

const (
	AwaitingCommit Stage = "AwaitingCommit"
	AwaitingDealer Stage = "AwaitingDealer"
	PreFlopBet     Stage = "PreFlopBet"
	FlopReveal     Stage = "FlopReveal"
	FlopBet        Stage = "FlopBet"
	TurnReveal     Stage = "TurnReveal"
	TurnBet        Stage = "TurnBet"
	RiverReveal    Stage = "RiverReveal"
	RiverBet       Stage = "RiverBet"
	Showdown       Stage = "Showdown"
	Settled        Stage = "Settled"
)

// stageOrder gives every stage a non-decreasing index, so "progress is
// forward-only" (invariant 3 / testable property 5) can be checked by
// simple integer comparison.
var stageOrder = map[Stage]int{
	AwaitingCommit: 0,
	AwaitingDealer: 1,
	PreFlopBet:     2,
	FlopReveal:     3,
	FlopBet:        4,
	TurnReveal:     5,
	TurnBet:        6,
	RiverReveal:    7,
	RiverBet:       8,
	Showdown:       9,
	Settled:        10,
}

// Index reports the stage's position in the forward-only lifecycle.
func (s Stage) Index() int { return stageOrder[s] }

// GameStatus is a match's top-level lifecycle marker.
type GameStatus string

const (
	// StatusPending is a realization addition the abstract spec's
	// Active|Concluded pair leaves implicit: create_match and
	// join_match are two separate commands (§6), so a match needs a
	// third marker for "created, awaiting the second player" between
	// them.
	StatusPending   GameStatus = "Pending"
	StatusActive    GameStatus = "Active"
	StatusConcluded GameStatus = "Concluded"
)

// OptimisticProof is a proof stored at submission time and verified
// only if disputed (§4.4), except DeckCreation which is always
// verified eagerly and never stored here. RecordedAt is the command
// timestamp it was stored under, the basis a claim_timeout
// cheat-dispute's window is measured against.
type OptimisticProof struct {
	Kind       proof.Kind    `json:"kind"`
	Slot       int           `json:"slot"`
	Bytes      []byte        `json:"bytes"`
	Signals    proof.Signals `json:"signals"`
	RecordedAt int64         `json:"recordedAt"`
}

// HandBoard holds the 9 board slots (§3.1): [0,1] P1 pocket, [2,3] P2
// pocket, [4,5,6] flop, [7] turn, [8] river. Each slot is a 32-byte
// big-endian cipher.EncryptedCard carrying only the deck author's
// encryption layer; the dealer's reshuffle layer is not applied to
// the stored bytes.
type HandBoard [9][]byte

const (
	SlotP1PocketA = 0
	SlotP1PocketB = 1
	SlotP2PocketA = 2
	SlotP2PocketB = 3
	SlotFlop1     = 4
	SlotFlop2     = 5
	SlotFlop3     = 6
	SlotTurn      = 7
	SlotRiver     = 8
)

// HandState is the per-hand record (§3.1), reset at the start of
// every hand.
type HandState struct {
	Stage Stage `json:"stage"`

	DealerIndex     int `json:"dealerIndex"`
	SmallBlindIndex int `json:"smallBlindIndex"`
	TurnIndex       int `json:"turnIndex"`

	DeckCommitment  []byte `json:"deckCommitment,omitempty"`
	DeckAuthorIndex int    `json:"deckAuthorIndex"`

	Board HandBoard `json:"board"`

	PartialReveals map[int][]byte `json:"partialReveals,omitempty"`
	Plaintexts     map[int]uint8  `json:"plaintexts,omitempty"`

	// RevealStep counts submissions within the active two-step reveal
	// stage (FlopReveal/TurnReveal/RiverReveal/Showdown): 0 before the
	// first-revealer (dealer) has submitted, 1 after, back to 0 once
	// the second-revealer (non-dealer) completes it and the hand
	// advances.
	RevealStep int `json:"revealStep"`

	Bets   [2]uint64 `json:"bets"`
	Pot    uint64    `json:"pot"`
	Folded [2]bool   `json:"folded"`
	AllIn  [2]bool   `json:"allIn"`

	// ActedThisRound tracks whether each player has acted since the
	// round last reset, the closing condition behind "a round closes
	// when both players have acted this round and bets are equal."
	ActedThisRound [2]bool `json:"actedThisRound"`

	LastActionAt int64 `json:"lastActionAt"`
	Deadline     int64 `json:"deadline,omitempty"`

	OptimisticProofs []OptimisticProof `json:"optimisticProofs,omitempty"`
}

// FindProof returns the stored optimistic proof for (kind, slot), if
// any -- the lookup claim_timeout's cheat-dispute mode needs.
func (h *HandState) FindProof(kind proof.Kind, slot int) (OptimisticProof, bool) {
	for _, p := range h.OptimisticProofs {
		if p.Kind == kind && p.Slot == slot {
			return p, true
		}
	}
	return OptimisticProof{}, false
}

// NewHandState returns a zeroed HandState at AwaitingCommit, as
// start_next_hand produces (§4.7).
func NewHandState(dealerIndex int) *HandState {
	return &HandState{
		Stage:           AwaitingCommit,
		DealerIndex:     dealerIndex,
		SmallBlindIndex: 1 - dealerIndex,
		TurnIndex:       1 - dealerIndex,
	}
}

// GameState is the persistent match record (§3.1). PaillierPKs keeps
// spec.md's literal field name for each player's opaque proof-binding
// public key, passed to the proof verifier only as a signal and never
// the cipher key, even though the cipher in §4.2 is not Paillier's --
// renaming it would contradict the instruction that every named field
// of the spec survive unchanged in meaning.
type GameState struct {
	Players     [2]string `json:"players"`
	PaillierPKs [2][]byte `json:"paillierPks"`
	Stacks      [2]uint64 `json:"stacks"`
	Bonds       [2]uint64 `json:"bonds"`
	StakeAmount uint64    `json:"stakeAmount"`

	CurrentHandID uint64     `json:"currentHandId"`
	Status        GameStatus `json:"status"`

	Hand *HandState `json:"hand,omitempty"`
}

// State is the ABCI-persisted root record. The GameState is the only
// mutable object (§5); at most one match is tracked per app instance.
// AccountKeys/Balances are the ambient bank/auth ledger matches draw
// stakes from and return winnings to -- unrelated to the protocol
// core itself, carried over from the teacher's bank module.
type State struct {
	Height int64      `json:"height"`
	Match  *GameState `json:"match,omitempty"`

	AccountKeys map[string][]byte `json:"accountKeys,omitempty"`
	Balances    map[string]uint64 `json:"balances,omitempty"`
}

func NewState() *State {
	return &State{
		Height:      0,
		AccountKeys: map[string][]byte{},
		Balances:    map[string]uint64{},
	}
}

// Balance returns an account's off-match bank balance.
func (s *State) Balance(addr string) uint64 {
	return s.Balances[addr]
}

// Credit adds amount to an account's bank balance.
func (s *State) Credit(addr string, amount uint64) {
	if s.Balances == nil {
		s.Balances = map[string]uint64{}
	}
	s.Balances[addr] += amount
}

// Debit subtracts amount from an account's bank balance, failing if
// the balance would go negative.
func (s *State) Debit(addr string, amount uint64) error {
	if s.Balances[addr] < amount {
		return fmt.Errorf("insufficient balance: account=%q have=%d want=%d", addr, s.Balances[addr], amount)
	}
	s.Balances[addr] -= amount
	return nil
}

func Load(home string) (*State, error) {
	path := filepath.Join(home, "state.json")
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewState(), nil
		}
		return nil, fmt.Errorf("read state: %w", err)
	}
	var st State
	if err := json.Unmarshal(b, &st); err != nil {
		return nil, fmt.Errorf("decode state: %w", err)
	}
	if st.AccountKeys == nil {
		st.AccountKeys = map[string][]byte{}
	}
	if st.Balances == nil {
		st.Balances = map[string]uint64{}
	}
	return &st, nil
}

func (s *State) Save(home string) error {
	if err := os.MkdirAll(home, 0o755); err != nil {
		return fmt.Errorf("mkdir home: %w", err)
	}
	path := filepath.Join(home, "state.json")
	b, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write state: %w", err)
	}
	return nil
}

// Clone returns a deep copy of state suitable for staged tx execution
// -- the same marshal/unmarshal trick the teacher uses, since every
// field here is plain-data (no channels, no mutexes).
func (s *State) Clone() (*State, error) {
	if s == nil {
		return nil, fmt.Errorf("state is nil")
	}
	b, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode state clone: %w", err)
	}
	var out State
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("decode state clone: %w", err)
	}
	return &out, nil
}

// AppHash returns a deterministic digest of state: maps are
// normalized into key-sorted slices before marshaling, so the hash
// does not depend on Go's map iteration order.
func (s *State) AppHash() []byte {
	accountKeys := make([]accountKeyKV, 0, len(s.AccountKeys))
	for k, v := range s.AccountKeys {
		accountKeys = append(accountKeys, accountKeyKV{Addr: k, PubKey: v})
	}
	sort.Slice(accountKeys, func(i, j int) bool { return accountKeys[i].Addr < accountKeys[j].Addr })

	balances := make([]balanceKV, 0, len(s.Balances))
	for k, v := range s.Balances {
		balances = append(balances, balanceKV{Addr: k, Balance: v})
	}
	sort.Slice(balances, func(i, j int) bool { return balances[i].Addr < balances[j].Addr })

	normalized := struct {
		Height      int64                `json:"height"`
		Match       *normalizedGameState `json:"match,omitempty"`
		AccountKeys []accountKeyKV       `json:"accountKeys,omitempty"`
		Balances    []balanceKV          `json:"balances,omitempty"`
	}{
		Height:      s.Height,
		Match:       normalizeGameState(s.Match),
		AccountKeys: accountKeys,
		Balances:    balances,
	}
	b, _ := json.Marshal(normalized)
	sum := sha256.Sum256(b)
	return sum[:]
}

type normalizedGameState struct {
	Players     [2]string           `json:"players"`
	PaillierPKs [2][]byte           `json:"paillierPks"`
	Stacks      [2]uint64           `json:"stacks"`
	Bonds       [2]uint64           `json:"bonds"`
	StakeAmount uint64              `json:"stakeAmount"`

	CurrentHandID uint64     `json:"currentHandId"`
	Status        GameStatus `json:"status"`

	Hand *normalizedHandState `json:"hand,omitempty"`
}

type normalizedHandState struct {
	Stage Stage `json:"stage"`

	DealerIndex     int `json:"dealerIndex"`
	SmallBlindIndex int `json:"smallBlindIndex"`
	TurnIndex       int `json:"turnIndex"`

	DeckCommitment  []byte `json:"deckCommitment,omitempty"`
	DeckAuthorIndex int    `json:"deckAuthorIndex"`

	Board HandBoard `json:"board"`

	RevealStep int `json:"revealStep"`

	PartialReveals []slotBytesKV `json:"partialReveals,omitempty"`
	Plaintexts     []slotCardKV  `json:"plaintexts,omitempty"`

	Bets           [2]uint64 `json:"bets"`
	Pot            uint64    `json:"pot"`
	Folded         [2]bool   `json:"folded"`
	AllIn          [2]bool   `json:"allIn"`
	ActedThisRound [2]bool   `json:"actedThisRound"`

	LastActionAt int64 `json:"lastActionAt"`
	Deadline     int64 `json:"deadline,omitempty"`

	OptimisticProofs []OptimisticProof `json:"optimisticProofs,omitempty"`
}

type accountKeyKV struct {
	Addr   string `json:"addr"`
	PubKey []byte `json:"pubKey"`
}

type balanceKV struct {
	Addr    string `json:"addr"`
	Balance uint64 `json:"balance"`
}

type slotBytesKV struct {
	Slot int    `json:"slot"`
	V    []byte `json:"v"`
}

type slotCardKV struct {
	Slot int   `json:"slot"`
	V    uint8 `json:"v"`
}

func normalizeGameState(g *GameState) *normalizedGameState {
	if g == nil {
		return nil
	}
	return &normalizedGameState{
		Players:       g.Players,
		PaillierPKs:   g.PaillierPKs,
		Stacks:        g.Stacks,
		Bonds:         g.Bonds,
		StakeAmount:   g.StakeAmount,
		CurrentHandID: g.CurrentHandID,
		Status:        g.Status,
		Hand:          normalizeHandState(g.Hand),
	}
}

func normalizeHandState(h *HandState) *normalizedHandState {
	if h == nil {
		return nil
	}
	partials := make([]slotBytesKV, 0, len(h.PartialReveals))
	for slot, v := range h.PartialReveals {
		partials = append(partials, slotBytesKV{Slot: slot, V: v})
	}
	sort.Slice(partials, func(i, j int) bool { return partials[i].Slot < partials[j].Slot })

	plaintexts := make([]slotCardKV, 0, len(h.Plaintexts))
	for slot, v := range h.Plaintexts {
		plaintexts = append(plaintexts, slotCardKV{Slot: slot, V: v})
	}
	sort.Slice(plaintexts, func(i, j int) bool { return plaintexts[i].Slot < plaintexts[j].Slot })

	proofs := append([]OptimisticProof(nil), h.OptimisticProofs...)
	sort.Slice(proofs, func(i, j int) bool {
		if proofs[i].Slot != proofs[j].Slot {
			return proofs[i].Slot < proofs[j].Slot
		}
		return proofs[i].Kind < proofs[j].Kind
	})

	return &normalizedHandState{
		Stage:            h.Stage,
		DealerIndex:      h.DealerIndex,
		SmallBlindIndex:  h.SmallBlindIndex,
		TurnIndex:        h.TurnIndex,
		DeckCommitment:   h.DeckCommitment,
		DeckAuthorIndex:  h.DeckAuthorIndex,
		Board:            h.Board,
		RevealStep:       h.RevealStep,
		PartialReveals:   partials,
		Plaintexts:       plaintexts,
		Bets:             h.Bets,
		Pot:              h.Pot,
		Folded:           h.Folded,
		AllIn:            h.AllIn,
		ActedThisRound:   h.ActedThisRound,
		LastActionAt:     h.LastActionAt,
		Deadline:         h.Deadline,
		OptimisticProofs: proofs,
	}
}

// Conserved reports the quantity invariant 1 must hold across a hand:
// stacks + escrowed bonds + pot + bets not yet swept into the pot. Bets
// has to be included alongside Pot, not just Pot alone: a posted blind
// or call moves a chip out of Stacks into Bets before the street
// closes and sweeps Bets into Pot, so omitting Bets would make the
// total appear to dip for the live duration of every betting round.
func (g *GameState) Conserved() uint64 {
	return g.Stacks[0] + g.Stacks[1] + g.Bonds[0] + g.Bonds[1] + g.potOrZero() + g.betsOrZero()
}

func (g *GameState) potOrZero() uint64 {
	if g.Hand == nil {
		return 0
	}
	return g.Hand.Pot
}

func (g *GameState) betsOrZero() uint64 {
	if g.Hand == nil {
		return 0
	}
	return g.Hand.Bets[0] + g.Hand.Bets[1]
}

// Opponent returns the other seat index.
func Opponent(seat int) int { return 1 - seat }
