package session

import (
	"sort"
	"strings"

	"github.com/chatblock-ai/chatblock/internal/provider"
	"github.com/chatblock-ai/chatblock/internal/token"
)

// contextWindowByModel is the fixed capacity table. Model support is strict:
// an identifier missing here fails session construction, unlike the tokenizer
// lookup which falls back to a default counter.
var contextWindowByModel = map[string]int{
	"gpt-3.5-turbo":             16385,
	"gpt-4":                     8192,
	"gpt-4-turbo":               128000,
	"gpt-4o":                    128000,
	"gpt-4o-mini":               128000,
	"o1":                        200000,
	"o3-mini":                   200000,
	"deepseek-chat":             64000,
	"claude-sonnet-4-20250514":  200000,
	"claude-opus-4-20250514":    200000,
	"claude-haiku-4-5-20251001": 200000,
}

// SupportedModels returns the model identifiers in the capacity table, sorted.
func SupportedModels() []string {
	models := make([]string, 0, len(contextWindowByModel))
	for m := range contextWindowByModel {
		models = append(models, m)
	}
	sort.Strings(models)
	return models
}

// TokenBudget tracks the context window allocation for one session: total
// capacity (fixed per model), the per-call output reservation, and the fixed
// overhead of the system prompt plus example turns (measured once).
type TokenBudget struct {
	contextWindow int
	outputReserve int
	overhead      int
	counter       token.Counter
}

// NewTokenBudget resolves the model's context window and validates the
// output reservation against it. The counter may be nil, in which case the
// tokenizer boundary's model-keyed resolution applies.
func NewTokenBudget(model string, outputReserve int, counter token.Counter) (*TokenBudget, error) {
	window, ok := contextWindowByModel[model]
	if !ok {
		return nil, &UnsupportedModelError{Model: model, Supported: SupportedModels()}
	}
	if outputReserve >= window {
		return nil, &ConfigurationError{
			Reason: "output reservation must be less than the model's context window",
		}
	}
	if counter == nil {
		counter = token.ForModel(model)
	}
	return &TokenBudget{
		contextWindow: window,
		outputReserve: outputReserve,
		counter:       counter,
	}, nil
}

// MeasureOverhead counts the fixed per-request cost of the preamble (system
// prompt turn plus example exchanges) and records it. Called once at session
// construction; the preamble never changes afterwards.
func (b *TokenBudget) MeasureOverhead(preamble []provider.Turn) error {
	n, err := b.CountTokens(preamble)
	if err != nil {
		return err
	}
	b.overhead = n
	return nil
}

// ContextWindow returns the model's total capacity.
func (b *TokenBudget) ContextWindow() int { return b.contextWindow }

// OutputReserve returns the per-call output reservation.
func (b *TokenBudget) OutputReserve() int { return b.outputReserve }

// HistoryLimit returns the tokens available for user/assistant history:
// capacity minus fixed overhead minus output reservation. Clamped at zero —
// an oversized preamble means no room for history, not a negative budget.
func (b *TokenBudget) HistoryLimit() int {
	limit := b.contextWindow - b.overhead - b.outputReserve
	if limit < 0 {
		return 0
	}
	return limit
}

// CountTokens counts tokens for a single turn, a turn slice, or a raw
// string. Any other input shape is a programmer error.
func (b *TokenBudget) CountTokens(input any) (int, error) {
	switch v := input.(type) {
	case string:
		return b.counter.Count(v), nil
	case provider.Turn:
		return b.counter.Count(v.Content), nil
	case []provider.Turn:
		contents := make([]string, len(v))
		for i, t := range v {
			contents[i] = t.Content
		}
		return b.counter.Count(strings.Join(contents, " ")), nil
	default:
		return 0, &UnsupportedInputError{Input: input}
	}
}

// Calibrate feeds actual input token usage back to the counter, when the
// counter supports it.
func (b *TokenBudget) Calibrate(text string, actualTokens int) {
	if c, ok := b.counter.(token.Calibratable); ok {
		c.Calibrate(text, actualTokens)
	}
}
