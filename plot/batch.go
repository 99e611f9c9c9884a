package plot

import "fmt"

// Batch is the unit produced by the GPU nonce computer: StartNonce plus a
// buffer interpretable as NumNonces() consecutive GenSize-byte records,
// where the first PlotSize bytes of each record hold a fully computed
// nonce.
type Batch struct {
	StartNonce uint64
	Buf        []byte
}

// NewBatch validates and wraps buf. It panics on any invariant violation —
// these can only happen from a programming error in the device backend, the
// same "fatal on malformed device output" stance the distilled addressing
// code takes.
func NewBatch(startNonce uint64, buf []byte) Batch {
	if len(buf) == 0 || len(buf)%GenSize != 0 {
		panic(fmt.Sprintf("plot: batch size %d is not a multiple of GenSize %d", len(buf), GenSize))
	}
	n := uint64(len(buf) / GenSize)
	if startNonce+n < startNonce {
		panic("plot: batch start_nonce + count overflows uint64")
	}
	return Batch{StartNonce: startNonce, Buf: buf}
}

// NumNonces returns how many nonces this batch covers.
func (b Batch) NumNonces() uint64 {
	return uint64(len(b.Buf) / GenSize)
}

// Nonce returns the PlotSize-byte plot for the i-th nonce in the batch
// (i.e. nonce number StartNonce+i).
func (b Batch) Nonce(i uint64) []byte {
	off := i * GenSize
	return b.Buf[off : off+PlotSize]
}
