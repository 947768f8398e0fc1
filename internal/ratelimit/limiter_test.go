package ratelimit

import (
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

// fakeClock advances time only when Sleep is called.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1_700_000_000, 0)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func TestReserve_UnderLimitDoesNotBlock(t *testing.T) {
	clock := newFakeClock()
	l := NewLimiter(30, 64000, clock, quietLogger())

	start := clock.Now()
	for i := 0; i < 29; i++ {
		l.Reserve(1000)
	}
	if !clock.Now().Equal(start) {
		t.Error("Reserve slept even though the window had room")
	}
}

func TestReserve_RequestLimitBlocksUntilWindowAdvances(t *testing.T) {
	clock := newFakeClock()
	l := NewLimiter(5, 1_000_000, clock, quietLogger())

	oldest := clock.Now()
	for i := 0; i < 5; i++ {
		l.Reserve(100)
	}

	// The sixth admission must block until the oldest entry leaves the
	// 60-second window.
	l.Reserve(100)

	if elapsed := clock.Now().Sub(oldest); elapsed < 60*time.Second {
		t.Errorf("Sixth admission committed after %v, before the window advanced", elapsed)
	}
}

func TestReserve_TokenLimitBlocks(t *testing.T) {
	clock := newFakeClock()
	l := NewLimiter(100, 10_000, clock, quietLogger())

	start := clock.Now()
	l.Reserve(6000)
	l.Reserve(6000) // 12000 > 10000, must wait out the first entry

	if elapsed := clock.Now().Sub(start); elapsed < 60*time.Second {
		t.Errorf("Token-limited admission committed after %v", elapsed)
	}
}

func TestReserve_OversizedCostEventuallyAdmits(t *testing.T) {
	clock := newFakeClock()
	l := NewLimiter(10, 5000, clock, quietLogger())

	// A single estimate above the whole window ceiling must not block
	// forever: it is admitted once the window is empty.
	l.Reserve(20_000)

	// And a subsequent oversized reserve drains the previous entry first.
	start := clock.Now()
	l.Reserve(20_000)
	if elapsed := clock.Now().Sub(start); elapsed < 58*time.Second {
		t.Errorf("Second oversized admission should have waited for the window to drain, waited %v", elapsed)
	}
}

func TestSession_RequestCeiling(t *testing.T) {
	s := NewSession(2, 0)

	if err := s.Check(100); err != nil {
		t.Fatalf("Fresh session should admit: %v", err)
	}
	s.Record(1, 500)
	s.Record(1, 500)

	err := s.Check(100)
	if !errors.Is(err, ErrSessionExhausted) {
		t.Errorf("Expected ErrSessionExhausted, got %v", err)
	}
}

func TestSession_TokenCeiling(t *testing.T) {
	s := NewSession(0, 10_000)

	s.Record(1, 9000)
	if err := s.Check(2000); !errors.Is(err, ErrSessionExhausted) {
		t.Errorf("Expected token ceiling breach, got %v", err)
	}
	if err := s.Check(500); err != nil {
		t.Errorf("Small request should still fit: %v", err)
	}
}

func TestSession_Unlimited(t *testing.T) {
	s := NewSession(0, 0)
	s.Record(1_000_000, 1_000_000_000)
	if err := s.Check(1_000_000); err != nil {
		t.Errorf("Unlimited session must always admit: %v", err)
	}
}

func TestSession_Usage(t *testing.T) {
	s := NewSession(10, 10_000)
	s.Record(2, 3000)
	requests, tokens := s.Usage()
	if requests != 2 || tokens != 3000 {
		t.Errorf("Usage() = (%d, %d), want (2, 3000)", requests, tokens)
	}
}

func TestEstimateTokens(t *testing.T) {
	if got := EstimateTokens(""); got != 0 {
		t.Errorf("Empty text should cost 0 tokens, got %d", got)
	}

	cjk := EstimateTokens("这是一段中文")
	if cjk < 9 { // 6 chars * 1.5
		t.Errorf("CJK estimate too low: %d", cjk)
	}

	latin := EstimateTokens("plain english text")
	if latin >= cjk {
		t.Errorf("Alphabetic text (%d) should estimate cheaper than the same count of CJK (%d)", latin, cjk)
	}
}
