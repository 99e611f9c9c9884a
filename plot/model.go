// Package plot defines the Burst PoC nonce/scoop layout: how a plotted
// nonce's bytes are addressed, and how a scoop's deadline is derived from a
// block's generation signature and base target.
package plot

import (
	"encoding/binary"

	"burstminer/shabal"
)

// Protocol constants, fixed bit-for-bit by the Burst proof-of-capacity format.
const (
	HashSize       = 32
	HashesPerScoop = 2
	ScoopSize      = HashesPerScoop * HashSize // 64
	ScoopsPerPlot  = 4096
	PlotSize       = ScoopsPerPlot * ScoopSize // 262144
	// GenSize is PlotSize plus the 16-byte trailing pad the device-side
	// layout requires per nonce; only the first PlotSize bytes are read by
	// any consumer.
	GenSize = PlotSize + 16
)

// NoDeadline is the sentinel "nothing seen yet" value: deadlines are
// smaller-is-better, so the worst possible value marks an empty best-so-far.
const NoDeadline = ^uint64(0)

// ScoopAt returns the 64-byte scoop slice at index scoop within a PlotSize
// nonce buffer. scoop must be in [0, ScoopsPerPlot); an out-of-range index is
// a programmer error and panics, matching the teacher's assert!-on-bad-input
// convention for addressing code that should never see bad input in
// practice.
func ScoopAt(nonce []byte, scoop uint16) []byte {
	if scoop >= ScoopsPerPlot {
		panic("plot: scoop index out of range")
	}
	off := int(scoop) * ScoopSize
	return nonce[off : off+ScoopSize]
}

// ScoopNumber derives the scoop selected by a block: the last two bytes of
// Shabal256(generationSignature || be_u64(height)), reduced mod
// ScoopsPerPlot.
func ScoopNumber(generationSignature [32]byte, height uint64) uint16 {
	var buf [40]byte
	copy(buf[:32], generationSignature[:])
	binary.BigEndian.PutUint64(buf[32:], height)
	digest := shabal.Sum256(buf[:])
	return binary.BigEndian.Uint16(digest[30:32]) % ScoopsPerPlot
}

// Deadline computes the deadline of a 64-byte scoop under a block's
// generation signature and base target: Shabal256(gensig || scoop), a
// 96-byte input, first 8 bytes of the digest read little-endian as target,
// divided by baseTarget.
func Deadline(generationSignature [32]byte, scoop []byte, baseTarget uint64) uint64 {
	if len(scoop) != ScoopSize {
		panic("plot: scoop must be exactly ScoopSize bytes")
	}
	var input [96]byte
	copy(input[:32], generationSignature[:])
	copy(input[32:96], scoop)
	digest := shabal.Sum256(input[:])
	target := binary.LittleEndian.Uint64(digest[:8])
	return target / baseTarget
}
