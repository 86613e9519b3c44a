package session

import "github.com/chatblock-ai/chatblock/internal/provider"

// Trim returns the longest contiguous suffix of history whose token total,
// as measured by count, does not exceed limit. Pure function of its inputs;
// the input slice is never modified.
//
// The scan walks from the most recent turn backward, accumulating costs and
// stopping (exclusive) at the turn that would overflow the limit. It then
// applies the stranding rule: if the oldest user turn inside the fitting
// window is not the window's first element, that user turn lost its own
// preceding context to the cut — drop everything up to and including it, so
// the suffix never begins mid-exchange. The rule discards the turn rather
// than keeping it.
//
// Edge cases: empty history returns empty; a single turn larger than the
// limit yields an empty suffix.
func Trim(history []provider.Turn, limit int, count func(provider.Turn) int) []provider.Turn {
	tokens := 0
	start := len(history)
	for i := len(history) - 1; i >= 0; i-- {
		tokens += count(history[i])
		if tokens > limit {
			break
		}
		start = i
	}
	suffix := history[start:]

	// Stranding rule: locate the oldest user turn in the window.
	userIdx := -1
	for i := range suffix {
		if suffix[i].Role == provider.RoleUser {
			userIdx = i
			break
		}
	}
	if userIdx > 0 {
		suffix = suffix[userIdx+1:]
	}
	return suffix
}
