package ratelimit

import "unicode"

// Token-per-character factors. Logographic scripts tokenize dense (roughly
// 1.5 tokens per character on current tokenizers, taken as a safe upper
// bound); alphabetic text averages a few characters per token.
const (
	logographicFactor = 1.5
	alphabeticFactor  = 0.4
)

// EstimateTokens approximates the token cost of text. The heuristic is
// deliberately coarse and errs high; the limiter tolerates systematic
// overestimation.
func EstimateTokens(text string) int {
	logographic := 0
	total := 0
	for _, r := range text {
		total++
		if unicode.In(r, unicode.Han, unicode.Hiragana, unicode.Katakana, unicode.Hangul) {
			logographic++
		}
	}
	if total == 0 {
		return 0
	}

	alphabetic := total - logographic
	est := float64(logographic)*logographicFactor + float64(alphabetic)*alphabeticFactor
	return int(est) + 1
}
