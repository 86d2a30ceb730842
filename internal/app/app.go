package app

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	abci "github.com/cometbft/cometbft/abci/types"

	"github.com/ocplabs/holdemcore/internal/cipher"
	"github.com/ocplabs/holdemcore/internal/codec"
	"github.com/ocplabs/holdemcore/internal/engine"
	"github.com/ocplabs/holdemcore/internal/merkle"
	"github.com/ocplabs/holdemcore/internal/proof"
	"github.com/ocplabs/holdemcore/internal/refproof"
	"github.com/ocplabs/holdemcore/internal/state"
)

const (
	AppVersion uint64 = 1
)

// HoldemApp is the ABCI application: a thin FinalizeBlock dispatcher
// over internal/engine's pure command handlers, in the teacher's
// shape (a mutex-guarded *state.State plus a deliverTx switch), but
// narrowed to the eleven-command match surface this core defines
// instead of the teacher's open-ended multi-table poker/dealer/
// staking dispatch.
type HoldemApp struct {
	*abci.BaseApplication

	home string

	mu       sync.Mutex
	st       *state.State
	lastHash []byte
	eng      *engine.Engine
}

func New(home string) (*HoldemApp, error) {
	appHome := filepath.Join(home, "app")
	st, err := state.Load(appHome)
	if err != nil {
		return nil, err
	}
	a := &HoldemApp{
		BaseApplication: abci.NewBaseApplication(),
		home:            home,
		st:              st,
		lastHash:        st.AppHash(),
		eng:             engine.NewEngine(refproof.Verifier{}),
	}
	return a, nil
}

func (a *HoldemApp) Info(_ context.Context, _ *abci.InfoRequest) (*abci.InfoResponse, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	return &abci.InfoResponse{
		Data:             "holdemcore (v0)",
		Version:          "v0",
		AppVersion:       AppVersion,
		LastBlockHeight:  a.st.Height,
		LastBlockAppHash: a.lastHash,
	}, nil
}

func (a *HoldemApp) CheckTx(_ context.Context, req *abci.CheckTxRequest) (*abci.CheckTxResponse, error) {
	_, err := codec.DecodeTxEnvelope(req.Tx)
	if err != nil {
		return &abci.CheckTxResponse{Code: 1, Log: err.Error()}, nil
	}
	// v0: only structural validation; signatures/auth are deferred.
	return &abci.CheckTxResponse{Code: 0}, nil
}

func (a *HoldemApp) InitChain(_ context.Context, _ *abci.InitChainRequest) (*abci.InitChainResponse, error) {
	// v0: no special genesis handling.
	return &abci.InitChainResponse{}, nil
}

func (a *HoldemApp) FinalizeBlock(_ context.Context, req *abci.FinalizeBlockRequest) (*abci.FinalizeBlockResponse, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.st.Height = req.Height

	txResults := make([]*abci.ExecTxResult, 0, len(req.Txs))
	for _, txBytes := range req.Txs {
		res := a.deliverTx(txBytes, req.Height, req.Time.Unix())
		txResults = append(txResults, res)
	}

	a.lastHash = a.st.AppHash()

	return &abci.FinalizeBlockResponse{
		TxResults: txResults,
		AppHash:   a.lastHash,
	}, nil
}

func (a *HoldemApp) Commit(_ context.Context, _ *abci.CommitRequest) (*abci.CommitResponse, error) {
	// Persist after each block for devnet durability.
	appHome := filepath.Join(a.home, "app")
	if err := a.st.Save(appHome); err != nil {
		// CometBFT expects Commit to not crash; return error so node halts loudly.
		return nil, err
	}
	return &abci.CommitResponse{}, nil
}

func (a *HoldemApp) Query(_ context.Context, req *abci.QueryRequest) (*abci.QueryResponse, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	// Paths:
	// - /account/<addr>
	// - /match
	path := strings.TrimSpace(req.Path)
	switch {
	case path == "/match":
		if a.st.Match == nil {
			return &abci.QueryResponse{Code: 1, Log: "no match", Height: a.st.Height}, nil
		}
		b, _ := json.Marshal(a.st.Match)
		return &abci.QueryResponse{Code: 0, Value: b, Height: a.st.Height}, nil
	case strings.HasPrefix(path, "/account/"):
		addr := strings.TrimPrefix(path, "/account/")
		bal := a.st.Balance(addr)
		b, _ := json.Marshal(map[string]any{"addr": addr, "balance": bal})
		return &abci.QueryResponse{Code: 0, Value: b, Height: a.st.Height}, nil
	default:
		return &abci.QueryResponse{Code: 1, Log: "unknown query path", Height: a.st.Height}, nil
	}
}

func (a *HoldemApp) deliverTx(txBytes []byte, height int64, nowUnixOpt ...int64) *abci.ExecTxResult {
	env, err := codec.DecodeTxEnvelope(txBytes)
	if err != nil {
		return &abci.ExecTxResult{Code: 1, Log: err.Error()}
	}

	// v0: keep state height consistent even in tests that call deliverTx() directly.
	a.st.Height = height
	nowUnix := height
	if len(nowUnixOpt) > 0 {
		nowUnix = nowUnixOpt[0]
	}

	switch env.Type {
	case "auth/register_account":
		var msg codec.AuthRegisterAccountTx
		if err := json.Unmarshal(env.Value, &msg); err != nil {
			return &abci.ExecTxResult{Code: 1, Log: "bad auth/register_account value"}
		}
		if err := requireRegisterAccountAuth(env, msg); err != nil {
			return &abci.ExecTxResult{Code: 1, Log: err.Error()}
		}
		// Idempotent registration; key rotation is out of scope for v0.
		if existing := a.st.AccountKeys[msg.Account]; len(existing) != 0 {
			if string(existing) != string(msg.PubKey) {
				return &abci.ExecTxResult{Code: 1, Log: "account pubKey already set (rotation not supported in v0)"}
			}
			return okEvent("AccountKeyRegistered", map[string]string{
				"account":  msg.Account,
				"existing": "true",
			})
		}
		a.st.AccountKeys[msg.Account] = append([]byte(nil), msg.PubKey...)
		return okEvent("AccountKeyRegistered", map[string]string{
			"account": msg.Account,
		})

	case "bank/mint":
		var msg codec.BankMintTx
		if err := json.Unmarshal(env.Value, &msg); err != nil {
			return &abci.ExecTxResult{Code: 1, Log: "bad bank/mint value"}
		}
		if msg.To == "" || msg.Amount == 0 {
			return &abci.ExecTxResult{Code: 1, Log: "missing to/amount"}
		}
		a.st.Credit(msg.To, msg.Amount)
		return okEvent("BankMinted", map[string]string{
			"to":     msg.To,
			"amount": fmt.Sprintf("%d", msg.Amount),
		})

	case "bank/send":
		var msg codec.BankSendTx
		if err := json.Unmarshal(env.Value, &msg); err != nil {
			return &abci.ExecTxResult{Code: 1, Log: "bad bank/send value"}
		}
		if msg.From == "" || msg.To == "" || msg.Amount == 0 {
			return &abci.ExecTxResult{Code: 1, Log: "missing from/to/amount"}
		}
		if err := requireAccountAuth(a.st, env, msg.From); err != nil {
			return &abci.ExecTxResult{Code: 1, Log: err.Error()}
		}
		if err := a.st.Debit(msg.From, msg.Amount); err != nil {
			return &abci.ExecTxResult{Code: 1, Log: err.Error()}
		}
		a.st.Credit(msg.To, msg.Amount)
		return okEvent("BankSent", map[string]string{
			"from":   msg.From,
			"to":     msg.To,
			"amount": fmt.Sprintf("%d", msg.Amount),
		})

	case "match/create":
		var msg codec.CreateMatchTx
		if err := json.Unmarshal(env.Value, &msg); err != nil {
			return &abci.ExecTxResult{Code: 1, Log: "bad match/create value"}
		}
		if err := requireAccountAuth(a.st, env, msg.Creator); err != nil {
			return &abci.ExecTxResult{Code: 1, Log: err.Error()}
		}
		if a.st.Match != nil {
			return &abci.ExecTxResult{Code: 1, Log: "a match already exists on this app instance"}
		}
		if err := a.st.Debit(msg.Creator, msg.StakeAmount); err != nil {
			return &abci.ExecTxResult{Code: 1, Log: err.Error()}
		}
		g, err := a.eng.CreateMatch(msg.PK, msg.StakeAmount, msg.Creator)
		if err != nil {
			return &abci.ExecTxResult{Code: 1, Log: err.Error()}
		}
		a.st.Match = g
		return okEvent("MatchCreated", map[string]string{
			"creator":     msg.Creator,
			"stakeAmount": fmt.Sprintf("%d", msg.StakeAmount),
		})

	case "match/join":
		var msg codec.JoinMatchTx
		if err := json.Unmarshal(env.Value, &msg); err != nil {
			return &abci.ExecTxResult{Code: 1, Log: "bad match/join value"}
		}
		if err := requireAccountAuth(a.st, env, msg.Player); err != nil {
			return &abci.ExecTxResult{Code: 1, Log: err.Error()}
		}
		g := a.st.Match
		if g == nil {
			return &abci.ExecTxResult{Code: 1, Log: "no match to join"}
		}
		if err := a.st.Debit(msg.Player, g.StakeAmount); err != nil {
			return &abci.ExecTxResult{Code: 1, Log: err.Error()}
		}
		if _, err := a.eng.JoinMatch(g, msg.PK, msg.Player); err != nil {
			return &abci.ExecTxResult{Code: 1, Log: err.Error()}
		}
		return okEvent("MatchJoined", map[string]string{"player": msg.Player})

	case "match/start_next_hand":
		var msg codec.StartNextHandTx
		if err := json.Unmarshal(env.Value, &msg); err != nil {
			return &abci.ExecTxResult{Code: 1, Log: "bad match/start_next_hand value"}
		}
		g, seat, aerr := a.matchAndSeat(env, msg.Caller)
		if aerr != nil {
			return aerr
		}
		_ = seat
		if _, err := a.eng.StartNextHand(g); err != nil {
			return &abci.ExecTxResult{Code: 1, Log: err.Error()}
		}
		return okEvent("HandStarted", map[string]string{"handId": fmt.Sprintf("%d", g.CurrentHandID)})

	case "match/leave":
		var msg codec.LeaveGameTx
		if err := json.Unmarshal(env.Value, &msg); err != nil {
			return &abci.ExecTxResult{Code: 1, Log: "bad match/leave value"}
		}
		g, seat, aerr := a.matchAndSeat(env, msg.Player)
		if aerr != nil {
			return aerr
		}
		if _, err := a.eng.LeaveGame(g, seat); err != nil {
			return &abci.ExecTxResult{Code: 1, Log: err.Error()}
		}
		a.st.Credit(msg.Player, g.Stacks[seat])
		g.Stacks[seat] = 0
		return okEvent("PlayerLeft", map[string]string{"player": msg.Player})

	case "hand/commit_deck":
		var msg codec.CommitDeckTx
		if err := json.Unmarshal(env.Value, &msg); err != nil {
			return &abci.ExecTxResult{Code: 1, Log: "bad hand/commit_deck value"}
		}
		g, seat, aerr := a.matchAndSeat(env, msg.Player)
		if aerr != nil {
			return aerr
		}
		if _, err := a.eng.CommitDeck(g, nowUnix, seat, msg.MerkleRoot, msg.ProofBytes); err != nil {
			return &abci.ExecTxResult{Code: 1, Log: err.Error()}
		}
		return okEvent("DeckCommitted", map[string]string{"player": msg.Player})

	case "hand/join_hand":
		var msg codec.JoinHandTx
		if err := json.Unmarshal(env.Value, &msg); err != nil {
			return &abci.ExecTxResult{Code: 1, Log: "bad hand/join_hand value"}
		}
		g, seat, aerr := a.matchAndSeat(env, msg.Player)
		if aerr != nil {
			return aerr
		}
		var slots [9]cipher.EncryptedCard
		for i := 0; i < 9; i++ {
			copy(slots[i][:], msg.Slots[i])
		}
		var inclusionProofs [9]merkle.Proof
		for i := 0; i < 9; i++ {
			siblings := make([]merkle.Hash, len(msg.InclusionProofs[i].Siblings))
			for j, sib := range msg.InclusionProofs[i].Siblings {
				copy(siblings[j][:], sib)
			}
			inclusionProofs[i] = merkle.Proof{Siblings: siblings, Index: msg.InclusionProofs[i].Index}
		}
		var partials [2][]byte
		var decProofs [2][]byte
		partials[0], partials[1] = msg.OpponentPocketPartialReveals[0], msg.OpponentPocketPartialReveals[1]
		decProofs[0], decProofs[1] = msg.OpponentPocketDecryptionProofs[0], msg.OpponentPocketDecryptionProofs[1]
		if _, err := a.eng.JoinHand(g, nowUnix, seat, msg.NewRoot, msg.ReshuffleProof, slots, inclusionProofs, partials, decProofs); err != nil {
			return &abci.ExecTxResult{Code: 1, Log: err.Error()}
		}
		return okEvent("HandJoined", map[string]string{"player": msg.Player})

	case "hand/player_action":
		var msg codec.PlayerActionTx
		if err := json.Unmarshal(env.Value, &msg); err != nil {
			return &abci.ExecTxResult{Code: 1, Log: "bad hand/player_action value"}
		}
		g, seat, aerr := a.matchAndSeat(env, msg.Player)
		if aerr != nil {
			return aerr
		}
		move, err := parseMove(msg.Move)
		if err != nil {
			return &abci.ExecTxResult{Code: 1, Log: err.Error()}
		}
		if _, err := a.eng.PlayerAction(g, nowUnix, seat, move, msg.RaiseSize); err != nil {
			return &abci.ExecTxResult{Code: 1, Log: err.Error()}
		}
		return okEvent("ActionApplied", map[string]string{
			"player": msg.Player,
			"move":   msg.Move,
		})

	case "hand/reveal_share":
		var msg codec.RevealShareTx
		if err := json.Unmarshal(env.Value, &msg); err != nil {
			return &abci.ExecTxResult{Code: 1, Log: "bad hand/reveal_share value"}
		}
		g, seat, aerr := a.matchAndSeat(env, msg.Player)
		if aerr != nil {
			return aerr
		}
		partials := decodeSlotCards(msg.PartialReveals)
		var keyPtr *cipher.Key
		if len(msg.RevealerKey) != 0 {
			k := cipher.KeyFromScalar(new(big.Int).SetBytes(msg.RevealerKey))
			keyPtr = &k
		}
		if _, err := a.eng.RevealShare(g, nowUnix, seat, partials, msg.Plaintexts, keyPtr, msg.DecryptionProofBytes); err != nil {
			return &abci.ExecTxResult{Code: 1, Log: err.Error()}
		}
		return okEvent("RevealShared", map[string]string{"player": msg.Player})

	case "hand/showdown_reveal":
		var msg codec.ShowdownRevealTx
		if err := json.Unmarshal(env.Value, &msg); err != nil {
			return &abci.ExecTxResult{Code: 1, Log: "bad hand/showdown_reveal value"}
		}
		g, seat, aerr := a.matchAndSeat(env, msg.Player)
		if aerr != nil {
			return aerr
		}
		partials := decodeSlotCards(msg.DealerPocketPartialReveals)
		var keyPtr *cipher.Key
		if len(msg.RevealerKey) != 0 {
			k := cipher.KeyFromScalar(new(big.Int).SetBytes(msg.RevealerKey))
			keyPtr = &k
		}
		if _, err := a.eng.ShowdownReveal(g, nowUnix, seat, partials, msg.PocketPlaintexts, keyPtr, msg.DecryptionProofBytes); err != nil {
			return &abci.ExecTxResult{Code: 1, Log: err.Error()}
		}
		return okEvent("ShowdownRevealed", map[string]string{"player": msg.Player})

	case "hand/resolve_hand":
		var msg codec.ResolveHandTx
		if err := json.Unmarshal(env.Value, &msg); err != nil {
			return &abci.ExecTxResult{Code: 1, Log: "bad hand/resolve_hand value"}
		}
		g, _, aerr := a.matchAndSeat(env, msg.Caller)
		if aerr != nil {
			return aerr
		}
		if _, err := a.eng.ResolveHand(g); err != nil {
			return &abci.ExecTxResult{Code: 1, Log: err.Error()}
		}
		return okEvent("HandResolved", map[string]string{"caller": msg.Caller})

	case "hand/claim_timeout":
		var msg codec.ClaimTimeoutTx
		if err := json.Unmarshal(env.Value, &msg); err != nil {
			return &abci.ExecTxResult{Code: 1, Log: "bad hand/claim_timeout value"}
		}
		g, seat, aerr := a.matchAndSeat(env, msg.Caller)
		if aerr != nil {
			return aerr
		}
		var kindPtr *proof.Kind
		if msg.DisputedKind != nil {
			k := proof.Kind(*msg.DisputedKind)
			kindPtr = &k
		}
		if _, err := a.eng.ClaimTimeout(g, nowUnix, seat, kindPtr, msg.DisputedSlot); err != nil {
			return &abci.ExecTxResult{Code: 1, Log: err.Error()}
		}
		return okEvent("TimeoutClaimed", map[string]string{"caller": msg.Caller})

	default:
		return &abci.ExecTxResult{Code: 1, Log: "unknown tx type: " + env.Type}
	}
}

// matchAndSeat resolves the live match plus the caller's seat,
// authenticating the envelope along the way. Every in-match command
// routes through this one lookup.
func (a *HoldemApp) matchAndSeat(env codec.TxEnvelope, player string) (*state.GameState, int, *abci.ExecTxResult) {
	if err := requireAccountAuth(a.st, env, player); err != nil {
		return nil, 0, &abci.ExecTxResult{Code: 1, Log: err.Error()}
	}
	g := a.st.Match
	if g == nil {
		return nil, 0, &abci.ExecTxResult{Code: 1, Log: "no active match"}
	}
	seat := seatOfPlayer(g, player)
	if seat < 0 {
		return nil, 0, &abci.ExecTxResult{Code: 1, Log: "caller not seated in this match"}
	}
	return g, seat, nil
}

func parseMove(s string) (engine.Move, error) {
	switch s {
	case "check":
		return engine.MoveCheck, nil
	case "call":
		return engine.MoveCall, nil
	case "raise":
		return engine.MoveRaise, nil
	case "fold":
		return engine.MoveFold, nil
	default:
		return 0, fmt.Errorf("unknown move %q", s)
	}
}

func decodeSlotCards(raw map[int][]byte) map[int]cipher.EncryptedCard {
	out := make(map[int]cipher.EncryptedCard, len(raw))
	for slot, b := range raw {
		var c cipher.EncryptedCard
		copy(c[:], b)
		out[slot] = c
	}
	return out
}

func okEvent(typ string, attrs map[string]string) *abci.ExecTxResult {
	ev := abci.Event{Type: typ}
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		ev.Attributes = append(ev.Attributes, abci.EventAttribute{Key: k, Value: attrs[k], Index: true})
	}
	return &abci.ExecTxResult{
		Code:   0,
		Events: []abci.Event{ev},
	}
}
