package rps

import (
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/tolelom/rpschain/core"
	"github.com/tolelom/rpschain/crypto"
)

// Phase is the lifecycle stage of a game.
type Phase uint64

const (
	PhaseCreated   Phase = 1
	PhaseBidding   Phase = 2
	PhaseCommitted Phase = 3
	PhaseRevealed  Phase = 4
	PhaseSettled   Phase = 5
)

func (p Phase) String() string {
	switch p {
	case PhaseCreated:
		return "created"
	case PhaseBidding:
		return "bidding"
	case PhaseCommitted:
		return "committed"
	case PhaseRevealed:
		return "revealed"
	case PhaseSettled:
		return "settled"
	default:
		return fmt.Sprintf("phase(%d)", uint64(p))
	}
}

// Global state keys.
const (
	KeyPhase             = "phase"
	KeyDeadlineRound     = "deadline_round"
	KeyPlayer1Address    = "player1_address"
	KeyPlayer1Stake      = "player1_stake"
	KeyPlayer1Commitment = "player1_commitment"
	KeyPlayer1Move       = "player1_move"
	KeyPlayer2Address    = "player2_address"
	KeyPlayer2Stake      = "player2_stake"
	KeyPlayer2Commitment = "player2_commitment"
	KeyPlayer2Move       = "player2_move"
)

// GlobalSchema is the global state a game needs.
var GlobalSchema = core.StateSchema{NumUint: 6, NumByteSlice: 4}

// GameState is the persistent state of one game. Unbound player slots
// hold crypto.ZeroAddress; unset commitments are zero digests; unrevealed
// moves are zero.
type GameState struct {
	Phase             Phase  `json:"phase"`
	Player1           string `json:"player1_address"`
	Player1Stake      uint64 `json:"player1_stake"`
	Player1Commitment Digest `json:"player1_commitment"`
	Player1Move       Move   `json:"player1_move"`
	Player2           string `json:"player2_address"`
	Player2Stake      uint64 `json:"player2_stake"`
	Player2Commitment Digest `json:"player2_commitment"`
	Player2Move       Move   `json:"player2_move"`
	DeadlineRound     uint64 `json:"deadline_round"`
}

// NewGameState returns the state of a freshly created game.
func NewGameState() *GameState {
	return &GameState{
		Phase:   PhaseCreated,
		Player1: crypto.ZeroAddress,
		Player2: crypto.ZeroAddress,
	}
}

// DecodeState parses a stored game.
func DecodeState(raw json.RawMessage) (*GameState, error) {
	var g GameState
	if err := json.Unmarshal(raw, &g); err != nil {
		return nil, fmt.Errorf("decode game state: %w", err)
	}
	if g.Phase < PhaseCreated || g.Phase > PhaseSettled {
		return nil, fmt.Errorf("decode game state: unknown phase %d", g.Phase)
	}
	return &g, nil
}

// Encode serialises the state for storage.
func (g *GameState) Encode() (json.RawMessage, error) {
	return json.Marshal(g)
}

// Globals is the key/value projection of g. Commitments and moves are
// left out until they are set.
func (g *GameState) Globals() ([]core.KeyValue, error) {
	p1, err := addressBytes(g.Player1)
	if err != nil {
		return nil, err
	}
	p2, err := addressBytes(g.Player2)
	if err != nil {
		return nil, err
	}
	kvs := []core.KeyValue{
		uintKV(KeyPhase, uint64(g.Phase)),
		uintKV(KeyDeadlineRound, g.DeadlineRound),
		bytesKV(KeyPlayer1Address, p1),
		uintKV(KeyPlayer1Stake, g.Player1Stake),
		bytesKV(KeyPlayer2Address, p2),
		uintKV(KeyPlayer2Stake, g.Player2Stake),
	}
	if !g.Player1Commitment.IsZero() {
		kvs = append(kvs, bytesKV(KeyPlayer1Commitment, g.Player1Commitment[:]))
	}
	if !g.Player2Commitment.IsZero() {
		kvs = append(kvs, bytesKV(KeyPlayer2Commitment, g.Player2Commitment[:]))
	}
	if g.Player1Move != 0 {
		kvs = append(kvs, uintKV(KeyPlayer1Move, uint64(g.Player1Move)))
	}
	if g.Player2Move != 0 {
		kvs = append(kvs, uintKV(KeyPlayer2Move, uint64(g.Player2Move)))
	}
	return kvs, nil
}

// StateFromGlobals rebuilds a game from its key/value projection, the
// form any party can read back from the ledger.
func StateFromGlobals(kvs []core.KeyValue) (*GameState, error) {
	g := &GameState{Player1: crypto.ZeroAddress, Player2: crypto.ZeroAddress}
	for _, kv := range kvs {
		var err error
		switch kv.Key {
		case KeyPhase:
			g.Phase = Phase(kv.Uint)
		case KeyDeadlineRound:
			g.DeadlineRound = kv.Uint
		case KeyPlayer1Stake:
			g.Player1Stake = kv.Uint
		case KeyPlayer2Stake:
			g.Player2Stake = kv.Uint
		case KeyPlayer1Move:
			g.Player1Move = Move(kv.Uint)
		case KeyPlayer2Move:
			g.Player2Move = Move(kv.Uint)
		case KeyPlayer1Address:
			g.Player1 = hex.EncodeToString(kv.Bytes)
		case KeyPlayer2Address:
			g.Player2 = hex.EncodeToString(kv.Bytes)
		case KeyPlayer1Commitment:
			g.Player1Commitment, err = DigestFromBytes(kv.Bytes)
		case KeyPlayer2Commitment:
			g.Player2Commitment, err = DigestFromBytes(kv.Bytes)
		}
		if err != nil {
			return nil, fmt.Errorf("global %s: %w", kv.Key, err)
		}
	}
	if g.Phase < PhaseCreated || g.Phase > PhaseSettled {
		return nil, fmt.Errorf("globals carry unknown phase %d", g.Phase)
	}
	return g, nil
}

func addressBytes(addr string) ([]byte, error) {
	b, err := hex.DecodeString(addr)
	if err != nil || len(b) != crypto.AddressLen/2 {
		return nil, fmt.Errorf("malformed player address %q", addr)
	}
	return b, nil
}

func uintKV(key string, v uint64) core.KeyValue {
	return core.KeyValue{Key: key, Type: core.ValueUint, Uint: v}
}

func bytesKV(key string, v []byte) core.KeyValue {
	return core.KeyValue{Key: key, Type: core.ValueBytes, Bytes: append([]byte(nil), v...)}
}
