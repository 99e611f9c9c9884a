package gpu

import "fmt"

// oclDevice exists only to give the "opencl" backend a name in config and
// CLI flags; no OpenCL binding is vendored into this module. Selecting it
// fails fast at startup rather than silently falling back to the CPU path,
// so a misconfigured deployment notices immediately instead of mining at
// CPU throughput under a GPU-shaped expectation.
type oclDevice struct{}

func newOpenCLDevice(platformID, deviceID int) (Device, error) {
	return nil, fmt.Errorf("gpu: opencl backend requested (platform %d, device %d) but no OpenCL binding is available in this build; use backend \"cpu\"", platformID, deviceID)
}

func (d *oclDevice) ComputeBatch(dst []byte, startNonce, address uint64, size uint32) error {
	return fmt.Errorf("gpu: opencl device not available")
}

func (d *oclDevice) Close() error { return nil }
