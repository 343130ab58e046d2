package rps

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tolelom/rpschain/vm"
)

const (
	// ProgramName is the name the game program is registered under.
	ProgramName = "rps"
	// ProgramVersion is bumped whenever the game rules change.
	ProgramVersion uint32 = 1
)

// Params are the game policy, fixed when the program is built.
type Params struct {
	// MinStake is what each player must have escrowed before moves are
	// committed.
	MinStake uint64 `json:"min_stake"`
	// SetupFunding is the least the creator must pay the application
	// account in the setup group.
	SetupFunding uint64 `json:"setup_funding"`
	BidRounds    uint64 `json:"bid_rounds"`
	CommitRounds uint64 `json:"commit_rounds"`
	RevealRounds uint64 `json:"reveal_rounds"`
}

// DefaultParams returns the standard policy.
func DefaultParams() Params {
	return Params{
		MinStake:     100_000,
		SetupFunding: 100_000 + 3*FeeReserve,
		BidRounds:    100,
		CommitRounds: 20,
		RevealRounds: 20,
	}
}

// Validate checks that p can run a game.
func (p Params) Validate() error {
	if p.MinStake <= 2*FeeReserve {
		return fmt.Errorf("min_stake %d must exceed two fee reserves (%d)", p.MinStake, 2*FeeReserve)
	}
	if p.BidRounds == 0 || p.CommitRounds == 0 || p.RevealRounds == 0 {
		return errors.New("phase windows must be at least one round")
	}
	return nil
}

// Build produces the artifact a create transaction carries. It is the
// only way to turn policy into something the ledger can run.
func Build(p Params) (vm.Artifact, error) {
	if err := p.Validate(); err != nil {
		return vm.Artifact{}, err
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return vm.Artifact{}, err
	}
	return vm.Artifact{Name: ProgramName, Version: ProgramVersion, Params: raw}, nil
}

func decodeParams(raw json.RawMessage) (Params, error) {
	var p Params
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&p); err != nil {
		return Params{}, fmt.Errorf("decode rps params: %w", err)
	}
	return p, p.Validate()
}

// ParamsOf reads the policy back out of a deployed program.
func ParamsOf(code []byte) (Params, error) {
	a, err := vm.DecodeArtifact(code)
	if err != nil {
		return Params{}, err
	}
	if a.Name != ProgramName {
		return Params{}, fmt.Errorf("program %q is not %q", a.Name, ProgramName)
	}
	return decodeParams(a.Params)
}
