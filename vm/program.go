package vm

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/tolelom/rpschain/core"
	"github.com/tolelom/rpschain/crypto"
)

// Artifact is the immutable, ledger-executable form of a program: which
// registered program to run and the parameters it was built with. It is
// produced once by a build step and carried verbatim in the create
// transaction, so every node instantiates exactly the same program.
type Artifact struct {
	Name    string          `json:"name"`
	Version uint32          `json:"version"`
	Params  json.RawMessage `json:"params"`
}

// Encode returns the canonical byte form of the artifact.
func (a Artifact) Encode() ([]byte, error) {
	return json.Marshal(a)
}

// DecodeArtifact parses the byte form produced by Encode.
func DecodeArtifact(code []byte) (Artifact, error) {
	var a Artifact
	if err := json.Unmarshal(code, &a); err != nil {
		return Artifact{}, fmt.Errorf("decode program artifact: %w", err)
	}
	if a.Name == "" {
		return Artifact{}, fmt.Errorf("program artifact has no name")
	}
	return a, nil
}

// ProgramHash identifies program bytes.
func ProgramHash(code []byte) string {
	return crypto.Hash(code)
}

// Call is the execution context of an application call.
type Call struct {
	*Context
	App  *core.Application
	Args [][]byte
}

// Sender returns the address that signed the call.
func (c *Call) Sender() string { return c.Tx.From }

// Method returns Args[0] as a string, or "" when there are no args.
func (c *Call) Method() string {
	if len(c.Args) == 0 {
		return ""
	}
	return string(c.Args[0])
}

// Pay issues an inner payment from the application's escrow account.
func (c *Call) Pay(to string, amount uint64) error {
	return c.InnerPay(c.App.Address, to, amount)
}

// Program is an on-ledger application. Implementations must be
// deterministic: the same state and call always produce the same result.
type Program interface {
	// Schema is the global state the program needs; creation fails if the
	// declared schema does not cover it.
	Schema() core.StateSchema
	// Create initialises call.App.Global.
	Create(call *Call) error
	// Call runs a NoOp application call against call.App.Global.
	Call(call *Call) error
	// Globals projects the program's state into key/value slots.
	Globals(global json.RawMessage) ([]core.KeyValue, error)
}

// Factory instantiates a program from artifact parameters.
type Factory func(params json.RawMessage) (Program, error)

var (
	programsMu sync.RWMutex
	programs   = make(map[string]Factory)
)

// RegisterProgram makes a program available to create transactions.
// Panics on duplicate registration.
func RegisterProgram(name string, f Factory) {
	programsMu.Lock()
	defer programsMu.Unlock()
	if _, exists := programs[name]; exists {
		panic(fmt.Sprintf("vm: program %q already registered", name))
	}
	programs[name] = f
}

// LoadProgram decodes an artifact and instantiates its program.
func LoadProgram(code []byte) (Program, error) {
	a, err := DecodeArtifact(code)
	if err != nil {
		return nil, err
	}
	programsMu.RLock()
	f, ok := programs[a.Name]
	programsMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("vm: unknown program %q", a.Name)
	}
	return f(a.Params)
}
