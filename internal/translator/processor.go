package translator

import (
	"context"
	"errors"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"codeberg.org/ptrkv/fictionflow/internal/glossary"
	"codeberg.org/ptrkv/fictionflow/internal/history"
	"codeberg.org/ptrkv/fictionflow/internal/provider"
	"codeberg.org/ptrkv/fictionflow/internal/ratelimit"
	"codeberg.org/ptrkv/fictionflow/internal/validate"
)

// Status is the unit state machine position.
type Status int

const (
	StatusPending Status = iota
	StatusSubmitted
	StatusRetryPending
	StatusAccepted
	StatusFailed
)

// String returns the status name for logging.
func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusSubmitted:
		return "submitted"
	case StatusRetryPending:
		return "retry_pending"
	case StatusAccepted:
		return "accepted"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Unit is one chapter submitted for translation.
type Unit struct {
	Number         int
	RawPath        string
	TranslatedPath string
}

// Outcome is the terminal result of processing one unit.
type Outcome struct {
	Status     Status
	Attempts   int
	LastReason validate.Reason
}

// Config holds the retry and chunking profile.
type Config struct {
	// MaxAttempts bounds validation/error retries per unit (profile 2-5).
	MaxAttempts int
	// RetryDelay is the fixed pause after a validation reject.
	RetryDelay time.Duration
	// ErrorDelay is the fixed pause after a fatal provider error.
	ErrorDelay time.Duration
	// BackoffBase seeds the exponential delay for rate-limit signals.
	// Rate-limit backoff does not consume a logical attempt.
	BackoffBase time.Duration
	// MaxChunkRunes splits sources larger than this into sub-chunks on
	// paragraph boundaries. 0 disables chunking.
	MaxChunkRunes int
	// PromptOverheadTokens is the fixed system-prompt estimate added to
	// every request.
	PromptOverheadTokens int
}

// DefaultConfig returns the standard profile.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:          3,
		RetryDelay:           2 * time.Second,
		ErrorDelay:           5 * time.Second,
		BackoffBase:          5 * time.Second,
		MaxChunkRunes:        0,
		PromptOverheadTokens: 500,
	}
}

// Processor drives chapter units through the pipeline. All collaborators
// are injected; nothing here is ambient global state.
type Processor struct {
	provider  provider.Provider
	glossary  *glossary.Store
	limiter   *ratelimit.Limiter
	session   *ratelimit.Session
	validator *validate.Validator
	attempts  *history.Log
	cfg       Config
	marker    string
	sleep     func(time.Duration)
	log       *logrus.Logger
}

// Options bundles the Processor collaborators.
type Options struct {
	Provider  provider.Provider
	Glossary  *glossary.Store
	Limiter   *ratelimit.Limiter
	Session   *ratelimit.Session
	Validator *validate.Validator
	// History is optional; attempts are recorded best-effort.
	History *history.Log
	Config  Config
	Marker  string
	// Sleep is injectable for tests; nil means time.Sleep.
	Sleep func(time.Duration)
	Log   *logrus.Logger
}

// New creates a unit processor.
func New(opts Options) *Processor {
	if opts.Sleep == nil {
		opts.Sleep = time.Sleep
	}
	if opts.Log == nil {
		opts.Log = logrus.StandardLogger()
	}
	if opts.Marker == "" {
		opts.Marker = validate.DefaultMarker
	}
	if opts.Config.MaxAttempts == 0 {
		opts.Config = DefaultConfig()
	}
	return &Processor{
		provider:  opts.Provider,
		glossary:  opts.Glossary,
		limiter:   opts.Limiter,
		session:   opts.Session,
		validator: opts.Validator,
		attempts:  opts.History,
		cfg:       opts.Config,
		marker:    opts.Marker,
		sleep:     opts.Sleep,
		log:       opts.Log,
	}
}

// ProcessChapter runs the unit state machine to a terminal status. The only
// returned error is session exhaustion, which instructs the caller to stop
// dispatching further units; everything else resolves into the Outcome.
func (p *Processor) ProcessChapter(ctx context.Context, unit Unit) (Outcome, error) {
	raw, err := os.ReadFile(unit.RawPath)
	if err != nil {
		p.log.WithField("chapter", unit.Number).Errorf("Cannot read source: %v", err)
		return Outcome{Status: StatusFailed}, nil
	}
	source := string(raw)
	chunks := splitChunks(source, p.cfg.MaxChunkRunes)

	outcome := Outcome{Status: StatusPending}
	for attempt := 1; attempt <= p.cfg.MaxAttempts; attempt++ {
		outcome.Attempts = attempt
		outcome.Status = StatusSubmitted

		parts, terms, estTokens, err := p.translateChunks(ctx, unit, chunks)
		if err != nil {
			if errors.Is(err, ratelimit.ErrSessionExhausted) {
				return outcome, err
			}
			p.log.WithFields(logrus.Fields{
				"chapter": unit.Number,
				"attempt": attempt,
			}).Errorf("Provider error: %v", err)
			p.record(unit, attempt, "error", err.Error(), estTokens)
			outcome.Status = StatusRetryPending
			p.sleep(p.cfg.ErrorDelay)
			continue
		}

		// Persist speculatively: a crash after this point leaves a
		// reviewable artifact instead of nothing.
		assembled := strings.Join(parts, "\n\n")
		if err := p.persist(unit, assembled); err != nil {
			return Outcome{Status: StatusFailed, Attempts: attempt}, nil
		}

		verdict := p.validator.Validate(assembled, source)
		if !verdict.OK && verdict.Reason == validate.ReasonMissingMarker && len(chunks) > 1 {
			// Cheaper recovery than a full retry: only the final chunk is
			// expected to carry the marker, so re-request just that chunk
			// and splice it back in.
			var recovered int
			var recoverErr error
			assembled, terms, verdict, recovered, recoverErr = p.recoverFinalChunk(ctx, unit, chunks, parts, terms, source)
			estTokens += recovered
			if recoverErr != nil {
				return outcome, recoverErr
			}
		}

		if verdict.OK {
			if added, err := p.glossary.Merge(terms); err != nil {
				p.log.WithField("chapter", unit.Number).Warnf("Glossary persist failed: %v", err)
			} else if added > 0 {
				p.log.WithField("chapter", unit.Number).Infof("Found %d new glossary terms", added)
			}
			p.record(unit, attempt, "accepted", "", estTokens)
			p.log.WithFields(logrus.Fields{
				"chapter": unit.Number,
				"attempt": attempt,
			}).Info("Chapter accepted")
			return Outcome{Status: StatusAccepted, Attempts: attempt}, nil
		}

		outcome.Status = StatusRetryPending
		outcome.LastReason = verdict.Reason
		p.record(unit, attempt, "rejected", verdict.Reason.String(), estTokens)
		p.log.WithFields(logrus.Fields{
			"chapter": unit.Number,
			"attempt": attempt,
			"reason":  verdict.Reason.String(),
		}).Warnf("Validation failed: %s", verdict.Detail)
		p.sleep(p.cfg.RetryDelay)
	}

	p.log.WithFields(logrus.Fields{
		"chapter":  unit.Number,
		"attempts": outcome.Attempts,
	}).Error("Chapter failed after retries; last attempt left on disk")
	outcome.Status = StatusFailed
	return outcome, nil
}

// translateChunks submits every chunk in order. The returned slice has one
// translated part per source chunk; the int is the summed token estimate for
// the attempt history.
func (p *Processor) translateChunks(ctx context.Context, unit Unit, chunks []string) ([]string, []glossary.Term, int, error) {
	parts := make([]string, 0, len(chunks))
	var terms []glossary.Term
	var estTokens int

	for i, chunk := range chunks {
		final := i == len(chunks)-1
		text, chunkTerms, est, err := p.translateOne(ctx, unit, chunk, final)
		estTokens += est
		if err != nil {
			return nil, nil, estTokens, err
		}
		parts = append(parts, strings.TrimSpace(text))
		terms = append(terms, chunkTerms...)
	}

	return parts, terms, estTokens, nil
}

// translateOne performs a single rate-limited provider call, backing off on
// transient rate-limit signals without consuming a logical attempt. The int
// is the a-priori token estimate for the call.
func (p *Processor) translateOne(ctx context.Context, unit Unit, text string, wantMarker bool) (string, []glossary.Term, int, error) {
	scoped := p.glossary.Filter(text)
	system := buildSystemPrompt(scoped, p.marker, wantMarker)
	user := buildUserPrompt(text)

	inputEst := ratelimit.EstimateTokens(text) + ratelimit.EstimateTokens(system) + p.cfg.PromptOverheadTokens
	outputEst := ratelimit.EstimateTokens(text) * 3 / 2
	totalEst := inputEst + outputEst

	for backoff := 0; ; backoff++ {
		if err := p.session.Check(totalEst); err != nil {
			return "", nil, totalEst, err
		}

		p.limiter.Reserve(totalEst)

		p.log.WithFields(logrus.Fields{
			"chapter":          unit.Number,
			"provider":         p.provider.Name(),
			"estimated_tokens": totalEst,
		}).Info("Submitting chapter")

		result, err := p.provider.Translate(ctx, provider.Request{System: system, User: user})
		if err == nil {
			used := result.TokensUsed
			if used == 0 {
				used = totalEst
			}
			p.session.Record(1, used)
			return result.TranslatedText, result.NewTerms, totalEst, nil
		}

		p.session.Record(1, 0)
		if !errors.Is(err, provider.ErrRateLimited) {
			return "", nil, totalEst, err
		}

		delay := p.cfg.BackoffBase << uint(min(backoff, 6))
		p.log.WithFields(logrus.Fields{
			"chapter": unit.Number,
			"delay":   delay,
		}).Warn("Rate limited by provider, backing off")
		p.sleep(delay)
	}
}

// recoverFinalChunk re-requests only the last chunk of a multi-chunk unit
// whose assembled text is missing the completion marker, splices the fresh
// translation in, persists and re-validates the whole. Session exhaustion is
// returned as-is so the caller aborts instead of burning a retry on it.
func (p *Processor) recoverFinalChunk(ctx context.Context, unit Unit, chunks, parts []string, terms []glossary.Term, source string) (string, []glossary.Term, validate.Verdict, int, error) {
	p.log.WithField("chapter", unit.Number).Info("Final chunk missing marker, re-requesting only that chunk")

	text, chunkTerms, est, err := p.translateOne(ctx, unit, chunks[len(chunks)-1], true)
	if err != nil {
		assembled := strings.Join(parts, "\n\n")
		if errors.Is(err, ratelimit.ErrSessionExhausted) {
			return assembled, terms, validate.Verdict{}, est, err
		}
		return assembled, terms, validate.Verdict{
			Reason: validate.ReasonMissingMarker,
			Detail: "final chunk recovery failed",
		}, est, nil
	}

	spliced := make([]string, len(parts))
	copy(spliced, parts)
	spliced[len(spliced)-1] = strings.TrimSpace(text)
	assembled := strings.Join(spliced, "\n\n")

	if err := p.persist(unit, assembled); err != nil {
		return assembled, terms, validate.Verdict{
			Reason: validate.ReasonMissingMarker,
			Detail: "persist failed during recovery",
		}, est, nil
	}

	return assembled, append(terms, chunkTerms...), p.validator.Validate(assembled, source), est, nil
}

func (p *Processor) persist(unit Unit, text string) error {
	if err := os.WriteFile(unit.TranslatedPath, []byte(text), 0644); err != nil {
		p.log.WithField("chapter", unit.Number).Errorf("Cannot persist translation: %v", err)
		return err
	}
	return nil
}

// record writes a history entry when a log is configured.
func (p *Processor) record(unit Unit, attempt int, status, reason string, estTokens int) {
	if p.attempts == nil {
		return
	}
	entry := history.Entry{
		Chapter:         unit.Number,
		Attempt:         attempt,
		Status:          status,
		Reason:          reason,
		EstimatedTokens: estTokens,
	}
	if err := p.attempts.Record(entry); err != nil {
		p.log.Debugf("History record failed: %v", err)
	}
}

// splitChunks splits text on paragraph boundaries into chunks of at most
// maxRunes. 0 disables splitting. A paragraph longer than maxRunes becomes
// its own oversized chunk; the rate limiter copes with that.
func splitChunks(text string, maxRunes int) []string {
	if maxRunes <= 0 || len([]rune(text)) <= maxRunes {
		return []string{text}
	}

	var chunks []string
	var current strings.Builder
	currentRunes := 0

	for _, para := range splitParagraphs(text) {
		paraRunes := len([]rune(para))
		if currentRunes > 0 && currentRunes+paraRunes > maxRunes {
			chunks = append(chunks, current.String())
			current.Reset()
			currentRunes = 0
		}
		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(para)
		currentRunes += paraRunes
	}
	if current.Len() > 0 {
		chunks = append(chunks, current.String())
	}
	return chunks
}

func splitParagraphs(text string) []string {
	var paras []string
	for _, p := range strings.Split(text, "\n\n") {
		if strings.TrimSpace(p) != "" {
			paras = append(paras, p)
		}
	}
	return paras
}
