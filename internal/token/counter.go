// Package token is the boundary to the tokenizer service: text in, an
// integer token count out. The session layer never sees how counting is
// implemented — real tokenizers plug in through the Counter interface, and
// the built-in default is a calibrating character-ratio heuristic.
package token

import (
	"strings"
	"unicode/utf8"
)

// Counter counts tokens in a piece of text for one specific model.
type Counter interface {
	Count(text string) int
}

// Calibratable is implemented by counters that can refine their estimate
// from actual provider usage. The session feeds back input token counts
// after each successful call.
type Calibratable interface {
	Calibrate(text string, actualTokens int)
}

// defaultCharsPerToken is the initial ratio before calibration. 4.0 is
// conservative for English text: BPE tokenizers typically average 3.5-4.5
// characters per token, and overestimating trims history slightly early
// rather than risking a context overflow from the provider.
const defaultCharsPerToken = 4.0

// smoothingFactor controls how quickly the ratio adapts: 30% weight on a
// new observation, 70% on the running average.
const smoothingFactor = 0.3

// counterByPrefix resolves counters by model family. Families differ enough
// in tokenizer density that a per-family starting ratio beats a single
// global default.
var counterByPrefix = []struct {
	prefix string
	ratio  float64
}{
	{"gpt-", 4.0},
	{"o1", 4.0},
	{"o3", 4.0},
	{"claude-", 3.8},
	{"deepseek-", 3.6},
}

// ForModel resolves the token counter for a model identifier. Unknown
// identifiers fall back to the default character-ratio counter instead of
// failing: the capacity table is the strict gate for model support, the
// tokenizer lookup is deliberately lenient.
func ForModel(model string) Counter {
	for _, entry := range counterByPrefix {
		if strings.HasPrefix(model, entry.prefix) {
			return NewCharCounterRatio(entry.ratio)
		}
	}
	return NewCharCounter()
}

// CharCounter estimates token counts from character counts using an
// adaptive ratio. The estimate always rounds up: it is better to
// overestimate than underestimate.
type CharCounter struct {
	charsPerToken float64
	observations  int
}

// NewCharCounter creates a CharCounter with the default 4.0 ratio.
func NewCharCounter() *CharCounter {
	return NewCharCounterRatio(defaultCharsPerToken)
}

// NewCharCounterRatio creates a CharCounter with a specific starting ratio.
func NewCharCounterRatio(ratio float64) *CharCounter {
	if ratio <= 0 {
		ratio = defaultCharsPerToken
	}
	return &CharCounter{charsPerToken: ratio}
}

// Count returns the estimated token count for text.
func (c *CharCounter) Count(text string) int {
	if text == "" {
		return 0
	}
	byBytes := int(float64(len(text))/c.charsPerToken) + 1
	// Mostly-multibyte text undercounts badly on a bytes-only ratio;
	// floor dense scripts at one token per two runes.
	runes := utf8.RuneCountInString(text)
	if multibyte := len(text) - runes; multibyte > runes/2 {
		if byRunes := runes/2 + 1; byRunes > byBytes {
			return byRunes
		}
	}
	return byBytes
}

// Calibrate updates the ratio from an observed (text, actual token count)
// pair via exponential moving average. The first observation replaces the
// default outright — one real data point beats any default.
func (c *CharCounter) Calibrate(text string, actualTokens int) {
	if actualTokens <= 0 || len(text) == 0 {
		return
	}
	observed := float64(len(text)) / float64(actualTokens)

	c.observations++
	if c.observations == 1 {
		c.charsPerToken = observed
		return
	}
	c.charsPerToken = smoothingFactor*observed + (1.0-smoothingFactor)*c.charsPerToken
}

// Ratio returns the current characters-per-token ratio.
func (c *CharCounter) Ratio() float64 { return c.charsPerToken }
