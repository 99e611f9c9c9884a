// Package gpu computes plotted nonce batches. The original system drives an
// OpenCL kernel (two stages: seeding plus the backward hashing chain, then
// scoop finalisation); this module has no OpenCL binding available so it
// defines that kernel's contract as a Go interface and ships a CPU worker
// pool behind it, matching the byte-exact contract the original ABI
// describes while substituting a software execution path, exactly as the
// original spec allows ("can either keep the existing kernel source or
// substitute an equivalent CPU path").
package gpu

import "fmt"

// Device computes a batch of size consecutive plotted nonces starting at
// startNonce for the given miner address, writing size*plot.GenSize bytes
// into dst. Implementations must be safe for concurrent use only insofar as
// a single caller drives one ComputeBatch call to completion before issuing
// the next; the Continuous Nonce Source never overlaps calls.
type Device interface {
	ComputeBatch(dst []byte, startNonce, address uint64, size uint32) error
	Close() error
}

// Backend selects a Device implementation.
type Backend string

const (
	BackendCPU    Backend = "cpu"
	BackendOpenCL Backend = "opencl"
)

// Open constructs a Device for the named backend. platformID and deviceID
// are accepted for interface parity with the original kernel-selection
// parameters but are only meaningful for BackendOpenCL.
func Open(backend Backend, platformID, deviceID int) (Device, error) {
	switch backend {
	case BackendCPU, "":
		return newCPUDevice(), nil
	case BackendOpenCL:
		return newOpenCLDevice(platformID, deviceID)
	default:
		return nil, fmt.Errorf("gpu: unknown backend %q", backend)
	}
}
