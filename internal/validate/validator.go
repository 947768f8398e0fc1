package validate

import (
	"fmt"
	"os"
	"strings"
	"unicode/utf8"
)

// Reason identifies which check rejected a candidate translation.
type Reason int

const (
	ReasonNone Reason = iota
	ReasonEmpty
	ReasonRefusal
	ReasonRepetition
	ReasonLengthRatio
	ReasonLineRetention
	ReasonMissingMarker
)

// String returns a short stable identifier for logging.
func (r Reason) String() string {
	switch r {
	case ReasonNone:
		return "none"
	case ReasonEmpty:
		return "empty"
	case ReasonRefusal:
		return "refusal"
	case ReasonRepetition:
		return "repetition"
	case ReasonLengthRatio:
		return "length_ratio"
	case ReasonLineRetention:
		return "line_retention"
	case ReasonMissingMarker:
		return "missing_marker"
	default:
		return "unknown"
	}
}

// Verdict is the transient result of validating one candidate. It is never
// persisted; it only gates acceptance and retry.
type Verdict struct {
	OK     bool
	Reason Reason
	Detail string
}

// Config holds the tunable validation thresholds. The defaults reproduce the
// strictest profile observed in production use.
type Config struct {
	// Marker is the literal sentinel required at the end of accepted output.
	Marker string
	// LegacyMarkers are natural-language end markers accepted in archives
	// translated before Marker was introduced. Matched case-insensitively.
	LegacyMarkers []string
	// RefusalPhrases are matched case-insensitively anywhere in the text.
	RefusalPhrases []string
	// MinLengthRatio rejects candidates shorter than this fraction of the
	// source character count. Target-language expansion is expected, so a
	// short result implies truncation or summarization.
	MinLengthRatio float64
	// MinLineRetention rejects candidates keeping fewer than this fraction
	// of the source's non-blank lines.
	MinLineRetention float64
	// LineRetentionFloor disables the line check for sources with this many
	// non-blank lines or fewer.
	LineRetentionFloor int
	// RepetitionWindow is the run length checked for immediate verbatim
	// repetition (degenerate looping output).
	RepetitionWindow int
	// MaxLineRepeats rejects when any single non-blank line recurs more
	// than this many times.
	MaxLineRepeats int
}

// DefaultMarker is the completion sentinel demanded from the model.
const DefaultMarker = "<<END_OF_CHAPTER>>"

// DefaultConfig returns the canonical threshold set.
func DefaultConfig() Config {
	return Config{
		Marker: DefaultMarker,
		LegacyMarkers: []string{
			"(end of chapter)",
			"(end of this chapter)",
			"(本章完)",
		},
		RefusalPhrases: []string{
			"i cannot translate",
			"i can't translate",
			"unable to translate",
			"ai language model",
			"content policy",
			"safety guidelines",
		},
		MinLengthRatio:     0.6,
		MinLineRetention:   0.5,
		LineRetentionFloor: 20,
		RepetitionWindow:   5,
		MaxLineRepeats:     10,
	}
}

// Validator applies the configured checks.
type Validator struct {
	cfg Config
}

// New creates a validator with the given configuration.
func New(cfg Config) *Validator {
	return &Validator{cfg: cfg}
}

// Validate gates a candidate translation. Source may be empty, in which case
// the ratio and line-retention checks are skipped.
func (v *Validator) Validate(candidate, source string) Verdict {
	if strings.TrimSpace(candidate) == "" {
		return Verdict{Reason: ReasonEmpty, Detail: "candidate is empty"}
	}

	lower := strings.ToLower(candidate)
	for _, phrase := range v.cfg.RefusalPhrases {
		if strings.Contains(lower, phrase) {
			return Verdict{Reason: ReasonRefusal, Detail: fmt.Sprintf("contains %q", phrase)}
		}
	}

	if detail, bad := v.checkRepetition(candidate); bad {
		return Verdict{Reason: ReasonRepetition, Detail: detail}
	}

	if source != "" {
		// Characters, not bytes: a CJK source packs three bytes per rune,
		// and a byte ratio would reject terse but complete translations.
		ratio := float64(utf8.RuneCountInString(candidate)) / float64(utf8.RuneCountInString(source))
		if ratio < v.cfg.MinLengthRatio {
			return Verdict{
				Reason: ReasonLengthRatio,
				Detail: fmt.Sprintf("length ratio %.2f below %.2f, likely summary", ratio, v.cfg.MinLengthRatio),
			}
		}

		sourceLines := len(nonBlankLines(source))
		candidateLines := len(nonBlankLines(candidate))
		if sourceLines > v.cfg.LineRetentionFloor &&
			float64(candidateLines) < float64(sourceLines)*v.cfg.MinLineRetention {
			return Verdict{
				Reason: ReasonLineRetention,
				Detail: fmt.Sprintf("source has %d lines, candidate %d, content skipped", sourceLines, candidateLines),
			}
		}
	}

	if !v.hasEndMarker(candidate) {
		return Verdict{
			Reason: ReasonMissingMarker,
			Detail: fmt.Sprintf("missing %s marker", v.cfg.Marker),
		}
	}

	return Verdict{OK: true}
}

// ValidateFile runs Validate against a persisted translation. Unreadable
// files count as empty: a chapter the pipeline cannot read back needs rework.
func (v *Validator) ValidateFile(path, source string) Verdict {
	data, err := os.ReadFile(path)
	if err != nil {
		return Verdict{Reason: ReasonEmpty, Detail: fmt.Sprintf("unreadable: %v", err)}
	}
	return v.Validate(string(data), source)
}

// checkRepetition detects degenerate looping output: a window of consecutive
// non-blank lines immediately repeated verbatim, or one line recurring past
// the configured cap.
func (v *Validator) checkRepetition(text string) (string, bool) {
	lines := nonBlankLines(text)
	window := v.cfg.RepetitionWindow

	if len(lines) >= window*2 {
		for i := 0; i+window*2 <= len(lines); i++ {
			if equalLines(lines[i:i+window], lines[i+window:i+window*2]) {
				return fmt.Sprintf("%d-line block repeated at line %d", window, i), true
			}
		}
	}

	counts := make(map[string]int)
	for _, line := range lines {
		counts[line]++
		if counts[line] > v.cfg.MaxLineRepeats {
			return fmt.Sprintf("line repeated %d times: %.40q", counts[line], line), true
		}
	}

	return "", false
}

func (v *Validator) hasEndMarker(text string) bool {
	if strings.Contains(text, v.cfg.Marker) {
		return true
	}

	lower := strings.ToLower(text)
	for _, legacy := range v.cfg.LegacyMarkers {
		if strings.Contains(lower, strings.ToLower(legacy)) {
			return true
		}
	}
	return false
}

func nonBlankLines(text string) []string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			lines = append(lines, trimmed)
		}
	}
	return lines
}

func equalLines(a, b []string) bool {
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
