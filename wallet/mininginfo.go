// Package wallet talks to an external Burst-protocol wallet node: polling
// for mining work and submitting candidate deadlines. It owns no consensus
// state of its own — it is purely a client of a node this codebase does not
// implement.
package wallet

import (
	"encoding/hex"
	"encoding/json"
	"fmt"

	"burstminer/plot"
)

// MiningInfo is one block's worth of mining parameters, as returned by
// getMiningInfo. The wallet's JSON API encodes height and baseTarget as
// strings, so it needs the same custom-unmarshal treatment the teacher gives
// *big.Int fields in core/header/header.go.
type MiningInfo struct {
	GenerationSignature [32]byte
	Height              uint64
	BaseTarget          uint64

	scoopComputed bool
	scoop         uint16
}

// ScoopNumber is memoised after first computation, per §3 of the spec this
// module implements.
func (m *MiningInfo) ScoopNumber() uint16 {
	if !m.scoopComputed {
		m.scoop = plot.ScoopNumber(m.GenerationSignature, m.Height)
		m.scoopComputed = true
	}
	return m.scoop
}

// miningInfoWire is the wallet's wire shape: height and baseTarget arrive as
// decimal strings, generationSignature as hex.
type miningInfoWire struct {
	Height              string `json:"height"`
	BaseTarget          string `json:"baseTarget"`
	GenerationSignature string `json:"generationSignature"`
	TargetDeadline      string `json:"targetDeadline,omitempty"`
}

// UnmarshalJSON parses the wallet's string-encoded height/baseTarget fields,
// the same pattern the teacher's Header.UnmarshalJSON uses for a
// string-encoded *big.Int.
func (m *MiningInfo) UnmarshalJSON(data []byte) error {
	var wire miningInfoWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return fmt.Errorf("wallet: decode getMiningInfo response: %w", err)
	}

	var height, baseTarget uint64
	if _, err := fmt.Sscanf(wire.Height, "%d", &height); err != nil {
		return fmt.Errorf("wallet: parse height %q: %w", wire.Height, err)
	}
	if _, err := fmt.Sscanf(wire.BaseTarget, "%d", &baseTarget); err != nil {
		return fmt.Errorf("wallet: parse baseTarget %q: %w", wire.BaseTarget, err)
	}
	if baseTarget == 0 {
		return fmt.Errorf("wallet: baseTarget must be non-zero")
	}

	sigBytes, err := hex.DecodeString(wire.GenerationSignature)
	if err != nil {
		return fmt.Errorf("wallet: parse generationSignature %q: %w", wire.GenerationSignature, err)
	}
	if len(sigBytes) != 32 {
		return fmt.Errorf("wallet: generationSignature must be 32 bytes, got %d", len(sigBytes))
	}

	m.Height = height
	m.BaseTarget = baseTarget
	copy(m.GenerationSignature[:], sigBytes)
	m.scoopComputed = false
	return nil
}
