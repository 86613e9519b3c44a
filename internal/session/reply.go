package session

import "strings"

// ReplyKind tags the shape of a normalized response. The shape is decided
// once at the transport boundary; callers switch on it instead of inspecting
// runtime types.
type ReplyKind int

const (
	// ReplyComplete: a full answer in Reply.Text.
	ReplyComplete ReplyKind = iota

	// ReplyStream: an incremental answer on Reply.Fragments.
	ReplyStream

	// ReplyDegraded: a synthetic fallback substituted for a provider
	// failure. Text in non-streaming mode, Fragments in streaming mode,
	// preserving whichever shape the caller asked for.
	ReplyDegraded
)

// Fragment is one element of a streamed reply. A fragment carries either a
// piece of text or a terminal error, never both. The stream closes after a
// terminal marker is consumed or an error fragment is delivered.
type Fragment struct {
	Text string
	Err  error
}

// Reply is the normalized result of one exchange.
type Reply struct {
	Kind      ReplyKind
	Text      string
	Fragments <-chan Fragment
}

// String collects a reply into a single string. For streamed shapes it
// drains the fragment channel — finalizing history as a side effect — and
// returns the first error fragment encountered, if any.
func (r Reply) String() (string, error) {
	if r.Fragments == nil {
		return r.Text, nil
	}
	var b strings.Builder
	for f := range r.Fragments {
		if f.Err != nil {
			return b.String(), f.Err
		}
		b.WriteString(f.Text)
	}
	return b.String(), nil
}

// wordStream returns a closed, pre-filled fragment channel that yields
// message word by word. Single-pass, like any stream: consumable exactly
// once. Used for degraded streaming replies.
func wordStream(message string) <-chan Fragment {
	words := strings.Fields(message)
	ch := make(chan Fragment, len(words))
	for _, w := range words {
		ch <- Fragment{Text: w + " "}
	}
	close(ch)
	return ch
}
