// Package coordinator owns the control loop that enforces this system's
// cross-cutting invariants: reset best-deadline on a new block, never
// submit a nonce worse than the best seen so far, and cancel in-flight
// submissions and GPU scanning when the block changes.
package coordinator

import (
	"fmt"
	"log"
	"time"

	"burstminer/metrics"
	"burstminer/plot"
	"burstminer/wallet"
)

// Config carries the mining parameters the coordinator needs, loaded once
// at startup and passed in explicitly rather than read from a global.
type Config struct {
	TargetDeadlineSeconds uint64
}

// nonceSource is the subset of *gpu.ContinuousNonceSource the coordinator
// needs, narrowed to an interface so tests can drive the control loop
// against a fake producer of batches.
type nonceSource interface {
	Batches() <-chan plot.Batch
	Restart(startNonce uint64)
}

// submitter is the subset of *wallet.Submitter the coordinator needs.
type submitter interface {
	Submit(c wallet.Candidate)
	Cancel()
}

// Coordinator consumes mining-info updates and plot batches and drives the
// submitter. It owns no network or device resources directly — those
// belong to the tracker, nonce source, and submitter it is wired to.
type Coordinator struct {
	infoCh    <-chan wallet.MiningInfo
	source    nonceSource
	submitter submitter
	metrics   *metrics.Server
	cfg       Config

	currentInfo  wallet.MiningInfo
	currentScoop uint16
	bestDeadline uint64
	startTime    time.Time
}

// New constructs a Coordinator. metricsServer may be nil, in which case
// progress gauges are simply not updated.
func New(infoCh <-chan wallet.MiningInfo, source nonceSource, sub submitter, metricsServer *metrics.Server, cfg Config) *Coordinator {
	return &Coordinator{
		infoCh:       infoCh,
		source:       source,
		submitter:    sub,
		metrics:      metricsServer,
		cfg:          cfg,
		bestDeadline: plot.NoDeadline,
	}
}

// Run blocks for the first MiningInfo, then drives the main loop until stop
// is closed.
func (c *Coordinator) Run(stop <-chan struct{}) {
	select {
	case info := <-c.infoCh:
		c.applyNewInfo(info)
	case <-stop:
		return
	}

	for {
		select {
		case info := <-c.infoCh:
			c.applyNewInfo(info)
		default:
		}

		var batch plot.Batch
		select {
		case batch = <-c.source.Batches():
		case <-stop:
			return
		}

		c.processBatch(batch)
	}
}

// applyNewInfo implements §4.G step 1: replace the cached block state,
// restart the nonce source at zero, and cancel any in-flight submission —
// in that order, so the submitter never races a stale nonce against a new
// block's wallet state.
func (c *Coordinator) applyNewInfo(info wallet.MiningInfo) {
	c.currentInfo = info
	c.currentScoop = info.ScoopNumber()
	c.bestDeadline = plot.NoDeadline
	c.source.Restart(0)
	c.submitter.Cancel()
	c.startTime = time.Now()

	log.Printf("[MINER] block height=%d scoop=%d", info.Height, c.currentScoop)
	if c.metrics != nil {
		c.metrics.CurrentHeight.Set(float64(info.Height))
		c.metrics.BestDeadline.Set(float64(plot.NoDeadline))
	}
}

// processBatch implements §4.G steps 3-4: find the best deadline in the
// batch, and if it strictly improves on best-so-far, update best-so-far and
// submit it if it also clears the target deadline.
func (c *Coordinator) processBatch(batch plot.Batch) {
	n := batch.NumNonces()
	bestDeadline := plot.NoDeadline
	var bestNonce uint64

	for i := uint64(0); i < n; i++ {
		scoop := plot.ScoopAt(batch.Nonce(i), c.currentScoop)
		dl := plot.Deadline(c.currentInfo.GenerationSignature, scoop, c.currentInfo.BaseTarget)
		if dl < bestDeadline {
			bestDeadline = dl
			bestNonce = batch.StartNonce + i
		}
	}

	if bestDeadline < c.bestDeadline {
		c.bestDeadline = bestDeadline
		log.Printf("[MINER] new best deadline nonce=%d deadline=%d (%s)", bestNonce, bestDeadline, FormatDuration(bestDeadline))
		if c.metrics != nil {
			c.metrics.BestDeadline.Set(float64(bestDeadline))
		}
		if bestDeadline <= c.cfg.TargetDeadlineSeconds {
			c.submitter.Submit(wallet.Candidate{
				Height:   c.currentInfo.Height,
				Nonce:    bestNonce,
				Deadline: bestDeadline,
			})
		}
	}

	currentNonce := batch.StartNonce + n
	elapsedMinutes := time.Since(c.startTime).Minutes()
	var noncesPerMinute float64
	if elapsedMinutes > 0 {
		noncesPerMinute = float64(currentNonce) / elapsedMinutes
	}
	// Pseudo plot size, diagnostic only; formula preserved verbatim from the
	// source's current_nonce * PLOT_SIZE / 2^30.
	pseudoPlotSizeGB := float64(currentNonce) * float64(plot.PlotSize) / float64(1<<30)
	log.Printf("[MINER] progress nonce=%d pseudo_size=%.2fGB speed=%.1f nonces/min", currentNonce, pseudoPlotSizeGB, noncesPerMinute)
	if c.metrics != nil {
		c.metrics.NoncesPerMinute.Set(noncesPerMinute)
	}
}

// FormatDuration renders a deadline in seconds using the original's
// 30-day-month, 12-month-year convention: "{y}y {mo}m {d}d {h}h {mi}m {s}s".
func FormatDuration(totalSeconds uint64) string {
	const (
		secondsPerMinute = 60
		secondsPerHour   = 60 * secondsPerMinute
		secondsPerDay    = 24 * secondsPerHour
		secondsPerMonth  = 30 * secondsPerDay
		secondsPerYear   = 12 * secondsPerMonth
	)

	s := totalSeconds
	years := s / secondsPerYear
	s %= secondsPerYear
	months := s / secondsPerMonth
	s %= secondsPerMonth
	days := s / secondsPerDay
	s %= secondsPerDay
	hours := s / secondsPerHour
	s %= secondsPerHour
	minutes := s / secondsPerMinute
	s %= secondsPerMinute

	return fmt.Sprintf("%dy %dm %dd %dh %dm %ds", years, months, days, hours, minutes, s)
}
