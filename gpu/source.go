package gpu

import (
	"log"

	"burstminer/plot"
)

// Computer owns a Device and the persistent nonce cursor driving it.
type Computer struct {
	dev          Device
	address      uint64
	size         uint32
	buf          []byte
	currentNonce uint64
}

// NewComputer constructs the GPU Nonce Computer. size is the global work
// size (N): how many nonces ComputeNextBatch produces per call. It fails
// fatally if size is zero or the backend cannot be opened, matching the
// teacher's stance that construction-time failures of a core subsystem
// (e.g. core.NewChain's OpenBadgerStore failure) are unrecoverable.
func NewComputer(backend Backend, platformID, deviceID int, size uint32, address, startNonce uint64) *Computer {
	if size == 0 {
		log.Fatalf("[MINER] global work size must be non-zero")
	}
	dev, err := Open(backend, platformID, deviceID)
	if err != nil {
		log.Fatalf("[MINER] failed to open device: %v", err)
	}
	return &Computer{
		dev:          dev,
		address:      address,
		size:         size,
		buf:          make([]byte, int(size)*plot.GenSize),
		currentNonce: startNonce,
	}
}

// SetStartNonce overrides the cursor used by the next ComputeNextBatch call.
func (c *Computer) SetStartNonce(n uint64) {
	c.currentNonce = n
}

// ComputeNextBatch runs the device over the current window and advances the
// cursor by the window size. Device errors are fatal: a computer that can no
// longer produce nonces cannot mine.
func (c *Computer) ComputeNextBatch() plot.Batch {
	if err := c.dev.ComputeBatch(c.buf, c.currentNonce, c.address, c.size); err != nil {
		log.Fatalf("[MINER] device compute failed: %v", err)
	}
	batch := plot.NewBatch(c.currentNonce, append([]byte(nil), c.buf...))
	c.currentNonce += uint64(c.size)
	return batch
}

func (c *Computer) Close() error {
	return c.dev.Close()
}

// ContinuousNonceSource drives a Computer on its own goroutine, forwarding
// completed batches over a small bounded channel and accepting restart
// requests that reposition the cursor before the next batch is computed.
// Grounded on the teacher's miner/workloop.go pattern of a dedicated mining
// goroutine fed by a "new work" channel and interrupted by a reset signal.
type ContinuousNonceSource struct {
	computer *Computer
	out      chan plot.Batch
	restart  chan uint64
	stop     chan struct{}
}

// NewContinuousNonceSource starts the background goroutine immediately.
func NewContinuousNonceSource(computer *Computer) *ContinuousNonceSource {
	s := &ContinuousNonceSource{
		computer: computer,
		out:      make(chan plot.Batch, 2),
		restart:  make(chan uint64, 1),
		stop:     make(chan struct{}),
	}
	go s.run()
	return s
}

func (s *ContinuousNonceSource) run() {
	for {
		select {
		case n := <-s.restart:
			s.computer.SetStartNonce(n)
		default:
		}

		batch := s.computer.ComputeNextBatch()

		select {
		case s.out <- batch:
		case n := <-s.restart:
			// A restart arrived while we were trying to hand off a batch
			// computed under the old cursor; apply it and drop the stale
			// batch rather than blocking forever or delivering it anyway.
			s.computer.SetStartNonce(n)
		case <-s.stop:
			return
		}

		select {
		case <-s.stop:
			return
		default:
		}
	}
}

// Batches returns the channel the coordinator reads completed batches from.
func (s *ContinuousNonceSource) Batches() <-chan plot.Batch {
	return s.out
}

// Restart repositions the producer's nonce cursor, taking effect before the
// next batch computed (an already in-flight batch on the outbound channel
// may still be delivered and must be recognised as stale by the consumer).
func (s *ContinuousNonceSource) Restart(startNonce uint64) {
	select {
	case s.restart <- startNonce:
	default:
		// A restart is already pending; replace it so the latest wins.
		select {
		case <-s.restart:
		default:
		}
		s.restart <- startNonce
	}
}

// Stop terminates the background goroutine and releases the device.
func (s *ContinuousNonceSource) Stop() {
	close(s.stop)
	s.computer.Close()
}
