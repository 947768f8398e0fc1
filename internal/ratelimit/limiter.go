package ratelimit

import (
	"time"

	"github.com/sirupsen/logrus"
)

const (
	// window is the observation span for per-minute limits.
	window = 60 * time.Second
	// pollInterval is how long an admission attempt waits before rechecking.
	pollInterval = 2 * time.Second
)

type tokenEntry struct {
	at   time.Time
	cost int
}

// Limiter is a sliding-window request/token limiter. Reserve blocks until
// the window has room, then records the usage. The window is bookkeeping,
// not a queue: admission order among blocked callers is unspecified.
type Limiter struct {
	rpmLimit int
	tpmLimit int
	clock    Clock
	log      *logrus.Logger

	// Guarded by the admission loop itself: Reserve holds no separate lock
	// because the loop runs under the limiter's serialization semantics.
	requests []time.Time
	tokens   []tokenEntry
	gate     chan struct{}
}

// NewLimiter creates a limiter admitting at most rpm requests and tpm
// estimated tokens per sliding 60-second window.
func NewLimiter(rpm, tpm int, clock Clock, log *logrus.Logger) *Limiter {
	if clock == nil {
		clock = RealClock()
	}
	l := &Limiter{
		rpmLimit: rpm,
		tpmLimit: tpm,
		clock:    clock,
		log:      log,
		gate:     make(chan struct{}, 1),
	}
	l.gate <- struct{}{}
	return l
}

// Reserve blocks until the estimated cost fits in the current window, then
// commits it. A cost larger than the whole token window is admitted once the
// window is otherwise empty, with a warning, so that one oversized unit can
// not deadlock the pipeline.
func (l *Limiter) Reserve(estimatedTokens int) {
	// Serialize admissions; the holder may sleep, which intentionally makes
	// waiters queue behind it (prune-check-append is one critical section).
	<-l.gate
	defer func() { l.gate <- struct{}{} }()

	oversized := estimatedTokens > l.tpmLimit
	warned := false

	for {
		now := l.clock.Now()
		l.prune(now)

		currentRequests := len(l.requests)
		currentTokens := 0
		for _, e := range l.tokens {
			currentTokens += e.cost
		}

		if oversized && !warned {
			l.log.WithFields(logrus.Fields{
				"estimated_tokens": estimatedTokens,
				"tpm_limit":        l.tpmLimit,
			}).Warn("Unit estimate exceeds the per-minute token limit; admitting once the window drains")
			warned = true
		}

		// An oversized estimate degrades the token check to "window empty"
		// so admission still eventually proceeds.
		tokensFit := currentTokens+estimatedTokens <= l.tpmLimit
		if oversized {
			tokensFit = currentTokens == 0
		}

		if currentRequests < l.rpmLimit && tokensFit {
			l.requests = append(l.requests, now)
			l.tokens = append(l.tokens, tokenEntry{at: now, cost: estimatedTokens})
			return
		}

		if currentRequests >= l.rpmLimit {
			l.log.WithFields(logrus.Fields{
				"requests": currentRequests,
				"limit":    l.rpmLimit,
			}).Debug("Request window full, waiting")
		} else {
			l.log.WithFields(logrus.Fields{
				"tokens":    currentTokens + estimatedTokens,
				"tpm_limit": l.tpmLimit,
			}).Debug("Token window full, waiting")
		}

		l.clock.Sleep(pollInterval)
	}
}

// prune discards window entries older than 60 seconds.
func (l *Limiter) prune(now time.Time) {
	kept := l.requests[:0]
	for _, t := range l.requests {
		if now.Sub(t) < window {
			kept = append(kept, t)
		}
	}
	l.requests = kept

	keptTokens := l.tokens[:0]
	for _, e := range l.tokens {
		if now.Sub(e.at) < window {
			keptTokens = append(keptTokens, e)
		}
	}
	l.tokens = keptTokens
}
