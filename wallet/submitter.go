package wallet

import (
	"context"
	"encoding/hex"
	"log"
	"net/url"
	"strconv"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/crypto/sha3"

	"burstminer/metrics"
)

// Candidate is a winning nonce worth submitting to the wallet.
type Candidate struct {
	Height   uint64
	Nonce    uint64
	Deadline uint64
}

// Submitter runs the Idle/Submitting(n,r) state machine described in §4.F:
// a background retry loop that must be preemptible, between attempts, by
// either a better candidate or a cancellation (block change). Modeled on
// the teacher's pattern of a single goroutine owning a command channel
// (miner/workloop.go's restart handling) rather than shared mutable state
// guarded by a mutex.
type Submitter struct {
	walletURL     string
	secretPhrase  string
	address       uint64
	maxRetries    int
	retryInterval time.Duration
	client        *retryablehttp.Client
	ledger        Ledger
	metrics       *metrics.Server

	in   chan *Candidate
	stop chan struct{}
}

// NewSubmitter starts the background goroutine immediately. metricsServer
// may be nil, in which case attempt counts are not exported.
func NewSubmitter(walletURL, secretPhrase string, address uint64, maxRetries int, retryInterval, httpTimeout time.Duration, ledger Ledger, metricsServer *metrics.Server) *Submitter {
	s := &Submitter{
		walletURL:     walletURL,
		secretPhrase:  secretPhrase,
		address:       address,
		maxRetries:    maxRetries,
		retryInterval: retryInterval,
		client:        newHTTPClient(httpTimeout),
		ledger:        ledger,
		metrics:       metricsServer,
		in:            make(chan *Candidate, 1),
		stop:          make(chan struct{}),
	}
	go s.run()
	return s
}

// Submit enqueues a new best candidate, preempting whatever is currently
// being submitted. Non-blocking: if a command is already pending, it is
// replaced so the latest submission always wins.
func (s *Submitter) Submit(c Candidate) {
	s.send(&c)
}

// Cancel preempts the current submission without queuing a new one (block
// change invalidated the in-flight nonce).
func (s *Submitter) Cancel() {
	s.send(nil)
}

func (s *Submitter) send(c *Candidate) {
	select {
	case s.in <- c:
		return
	default:
	}
	select {
	case <-s.in:
	default:
	}
	select {
	case s.in <- c:
	case <-s.stop:
	}
}

func (s *Submitter) run() {
	for {
		select {
		case cmd := <-s.in:
			if cmd == nil {
				continue
			}
			s.attemptSubmit(*cmd)
		case <-s.stop:
			return
		}
	}
}

// attemptSubmit drives the retry loop for one candidate, checking for
// preemption before each attempt and between attempts. A preemption by
// another candidate is handled by recursing directly into the new
// candidate's retry loop rather than returning to run(), so no pending
// command is lost to scheduling between goroutines.
func (s *Submitter) attemptSubmit(c Candidate) {
	attempt := 0
	for {
		select {
		case cmd := <-s.in:
			s.recordOutcome(c, attempt, "cancelled")
			if cmd != nil {
				s.attemptSubmit(*cmd)
			}
			return
		default:
		}

		attempt++
		body, err := s.doSubmit(c)
		if err == nil {
			log.Printf("[SUBMIT] nonce %d (height %d, passphrase=%s) accepted: %s",
				c.Nonce, c.Height, s.passphraseFingerprint(), body)
			s.recordOutcome(c, attempt, "accepted")
			return
		}
		log.Printf("[SUBMIT] attempt %d for nonce %d (height %d, passphrase=%s) failed: %v",
			attempt, c.Nonce, c.Height, s.passphraseFingerprint(), err)

		if attempt >= s.maxRetries {
			s.recordOutcome(c, attempt, "exhausted")
			return
		}

		select {
		case cmd := <-s.in:
			s.recordOutcome(c, attempt, "cancelled")
			if cmd != nil {
				s.attemptSubmit(*cmd)
			}
			return
		case <-time.After(s.retryInterval):
		case <-s.stop:
			return
		}
	}
}

func (s *Submitter) recordOutcome(c Candidate, attempt int, outcome string) {
	if s.metrics != nil {
		s.metrics.SubmitterAttempts.WithLabelValues(outcome).Inc()
	}
	if s.ledger == nil {
		return
	}
	rec := SubmissionRecord{
		Height:    c.Height,
		Nonce:     c.Nonce,
		Deadline:  c.Deadline,
		Attempt:   attempt,
		Outcome:   outcome,
		Timestamp: time.Now(),
	}
	if err := s.ledger.RecordSubmission(rec); err != nil {
		log.Printf("[SUBMIT] failed to record submission outcome: %v", err)
	}
}

// doSubmit issues submitNonce and returns the raw response body. Per the
// wallet API contract any 2xx status is success; the body is an arbitrary
// JSON/text payload that is logged by the caller, never parsed for a
// failure signal.
func (s *Submitter) doSubmit(c Candidate) ([]byte, error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.retryInterval+5*time.Second)
	defer cancel()

	extra := url.Values{}
	extra.Set("accountId", strconv.FormatUint(s.address, 10))
	extra.Set("nonce", strconv.FormatUint(c.Nonce, 10))
	extra.Set("blockheight", strconv.FormatUint(c.Height, 10))
	extra.Set("deadline", strconv.FormatUint(c.Deadline, 10))
	if s.secretPhrase != "" {
		extra.Set("secretPhrase", s.secretPhrase)
	}

	return burstRequest(ctx, s.client, s.walletURL, "POST", "submitNonce", extra)
}

// Stop terminates the submitter's goroutine.
func (s *Submitter) Stop() {
	close(s.stop)
}

// passphraseFingerprint returns a short SHA3-256 fingerprint of the
// configured secret phrase, safe to put in log lines that correlate
// attempts to a particular miner without ever writing the secret phrase
// itself to disk.
func (s *Submitter) passphraseFingerprint() string {
	sum := sha3.Sum256([]byte(s.secretPhrase))
	return hex.EncodeToString(sum[:4])
}
