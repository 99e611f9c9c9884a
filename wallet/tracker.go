package wallet

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"burstminer/metrics"
)

// unhealthyThreshold is the number of consecutive failed polls after which
// the tracker reports itself unhealthy via the metrics server. Burst's
// default getMiningInfo poll interval is in the single-digit seconds, so
// three misses in a row is already several seconds of staleness worth
// paging on.
const unhealthyThreshold = 3

// Tracker polls a wallet node for mining work, emitting a new MiningInfo
// only when the height strictly advances. Mirrors the teacher's
// miner/workloop.go pattern of a dedicated polling goroutine feeding a
// channel the coordinator selects on.
type Tracker struct {
	walletURL string
	interval  time.Duration
	client    *retryablehttp.Client
	metrics   *metrics.Server

	out  chan MiningInfo
	stop chan struct{}

	lastHeight uint64

	successiveFailures atomic.Uint64
}

// NewTracker starts polling immediately on a background goroutine.
// metricsServer may be nil, in which case poll-health updates are skipped.
func NewTracker(walletURL string, interval, httpTimeout time.Duration, metricsServer *metrics.Server) *Tracker {
	t := &Tracker{
		walletURL: walletURL,
		interval:  interval,
		client:    newHTTPClient(httpTimeout),
		metrics:   metricsServer,
		out:       make(chan MiningInfo, 1),
		stop:      make(chan struct{}),
	}
	go t.run()
	return t
}

// Updates returns the channel emitting newly observed MiningInfo values.
func (t *Tracker) Updates() <-chan MiningInfo {
	return t.out
}

// SuccessiveFailures returns the poll-health counter: consecutive failed
// polls since the last success, reset to zero on success. The metrics server
// exposes it only through the derived 1/0 tracker_healthy gauge.
func (t *Tracker) SuccessiveFailures() uint64 {
	return t.successiveFailures.Load()
}

func (t *Tracker) run() {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	t.poll()
	for {
		select {
		case <-ticker.C:
			t.poll()
		case <-t.stop:
			return
		}
	}
}

func (t *Tracker) poll() {
	ctx, cancel := context.WithTimeout(context.Background(), t.interval)
	defer cancel()

	body, err := burstRequest(ctx, t.client, t.walletURL, "GET", "getMiningInfo", url.Values{})
	if err != nil {
		t.recordFailure(err)
		return
	}

	var info MiningInfo
	if err := json.Unmarshal(body, &info); err != nil {
		t.recordFailure(fmt.Errorf("decode getMiningInfo response: %w", err))
		return
	}

	t.successiveFailures.Store(0)
	t.updateHealthMetrics()

	if info.Height <= t.lastHeight {
		return
	}
	t.lastHeight = info.Height

	select {
	case t.out <- info:
	case <-t.out:
		t.out <- info
	}
}

// Stop terminates the polling goroutine.
func (t *Tracker) Stop() {
	close(t.stop)
}

func (t *Tracker) recordFailure(err error) {
	t.successiveFailures.Add(1)
	log.Printf("[TRACKER] poll failed: %v", err)
	t.updateHealthMetrics()
}

// updateHealthMetrics pushes the current poll-health state (§3.2) onto the
// metrics server (I) on every poll outcome.
func (t *Tracker) updateHealthMetrics() {
	if t.metrics == nil {
		return
	}
	failures := t.successiveFailures.Load()
	if failures > 0 {
		t.metrics.TrackerPollFailures.Inc()
	}
	healthy := 0.0
	if failures < unhealthyThreshold {
		healthy = 1.0
	}
	t.metrics.TrackerHealthy.Set(healthy)
}
