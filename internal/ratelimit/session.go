package ratelimit

import (
	"errors"
	"fmt"
	"sync"
)

// ErrSessionExhausted signals that the run-lifetime budget is spent. Unlike
// a full sliding window this never clears: callers must stop dispatching
// further units.
var ErrSessionExhausted = errors.New("session quota exhausted")

// Session tracks monotonically-increasing request and token usage against
// hard per-run ceilings. A zero ceiling disables that dimension.
type Session struct {
	mu            sync.Mutex
	maxRequests   int
	maxTokens     int
	usedRequests  int
	usedTokens    int
}

// NewSession creates a session budget. maxRequests and maxTokens of 0 mean
// unlimited.
func NewSession(maxRequests, maxTokens int) *Session {
	return &Session{maxRequests: maxRequests, maxTokens: maxTokens}
}

// Check returns ErrSessionExhausted if admitting another request of the
// given estimated size would cross either ceiling.
func (s *Session) Check(estimatedTokens int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.maxRequests > 0 && s.usedRequests >= s.maxRequests {
		return fmt.Errorf("%w: %d/%d requests used", ErrSessionExhausted, s.usedRequests, s.maxRequests)
	}
	if s.maxTokens > 0 && s.usedTokens+estimatedTokens >= s.maxTokens {
		return fmt.Errorf("%w: %d/%d tokens used", ErrSessionExhausted, s.usedTokens, s.maxTokens)
	}
	return nil
}

// Record adds completed usage. Tokens should be the provider-reported total
// when available, falling back to the estimate.
func (s *Session) Record(requests, tokens int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.usedRequests += requests
	s.usedTokens += tokens
}

// Usage returns the counters consumed so far.
func (s *Session) Usage() (requests, tokens int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.usedRequests, s.usedTokens
}
