package gpu

import (
	"encoding/binary"
	"runtime"
	"sync"

	"burstminer/plot"
	"burstminer/shabal"
)

// hashCap bounds how much of the in-progress record each backward hashing
// step folds in: once the remaining tail exceeds hashCap hashes (4096
// bytes), each step hashes a fixed-size window instead of the whole
// remaining tail. This is the Burst PoC plotting rule, and it keeps the
// hashing cost linear in PlotSize instead of quadratic.
const hashCap = 128 // in units of HashSize-byte hashes

// cpuDevice is the only Device implementation shipped: a goroutine worker
// pool computing the same two logical stages the OpenCL kernels would,
// grounded on the worker-pool sealing pattern common to this corpus's
// ethash-family miners (one goroutine per slice of the work, a
// sync.WaitGroup barrier) and on the ASIC client's software-fallback stance
// (`useFallback`) of "no hardware binding available, compute it in Go".
type cpuDevice struct {
	workers int
}

func newCPUDevice() *cpuDevice {
	w := runtime.NumCPU()
	if w < 1 {
		w = 1
	}
	return &cpuDevice{workers: w}
}

// ComputeBatch fills dst (size*GenSize bytes) with size consecutive plotted
// nonces starting at startNonce, for address.
func (d *cpuDevice) ComputeBatch(dst []byte, startNonce, address uint64, size uint32) error {
	n := int(size)
	if len(dst) != n*plot.GenSize {
		panic("gpu: destination buffer does not match size*GenSize")
	}

	var wg sync.WaitGroup
	items := make(chan int, n)
	for i := 0; i < n; i++ {
		items <- i
	}
	close(items)

	for w := 0; w < d.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range items {
				record := dst[i*plot.GenSize : (i+1)*plot.GenSize]
				nonce := startNonce + uint64(i)
				seedAndHash(record, address, nonce)
				finalizeScoops(record)
			}
		}()
	}
	wg.Wait()
	return nil
}

func (d *cpuDevice) Close() error { return nil }

// seedAndHash is the nonce_step2 equivalent: it writes the (address, nonce)
// seed into the record's trailing 16 bytes and runs the backward Shabal
// hashing chain that fills in the PlotSize bytes of scoop data.
func seedAndHash(record []byte, address, nonce uint64) {
	binary.BigEndian.PutUint64(record[plot.PlotSize:plot.PlotSize+8], address)
	binary.BigEndian.PutUint64(record[plot.PlotSize+8:plot.PlotSize+16], nonce)

	for i := plot.PlotSize; i > 0; i -= plot.HashSize {
		length := plot.PlotSize + 16 - i
		if length > hashCap*plot.HashSize {
			length = hashCap * plot.HashSize
		}
		h := shabal.Sum256(record[i : i+length])
		copy(record[i-plot.HashSize:i], h[:])
	}
}

// finalizeScoops is the nonce_step3 equivalent: it XOR-obfuscates the plot
// data with the hash of the whole record, the final pass that makes the
// seed unrecoverable from any individual scoop.
func finalizeScoops(record []byte) {
	final := shabal.Sum256(record)
	for i := 0; i < plot.PlotSize; i++ {
		record[i] ^= final[i%plot.HashSize]
	}
}
