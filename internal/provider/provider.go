// Package provider defines the unified interface and shared types for all LLM providers.
// Each provider adapter (openai.go, anthropic.go) implements the Provider interface,
// normalizing vendor-specific response shapes into the unified Completion / Chunk types
// so the session layer sees a single finish-reason vocabulary.
package provider

import "context"

// ── Message types ────────────────────────────────────────────────────────────

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is a single message in the conversation, tagged with a role.
// Turns are immutable once created; an ordered slice of them forms the history.
type Turn struct {
	Role    Role
	Content string
}

// ── Finish reasons ───────────────────────────────────────────────────────────

// Normalized finish reasons. Adapters map vendor stop reasons onto these two
// values; anything else is passed through verbatim and rejected by the
// session layer as a protocol violation.
const (
	FinishStop   = "stop"
	FinishLength = "length"
)

// ── Request / response types ─────────────────────────────────────────────────

// ChatRequest is the unified request format sent to a provider.
// Turns carries the full ordered prompt: system turn, example exchanges,
// then the trimmed user/assistant history.
type ChatRequest struct {
	Model       string
	Turns       []Turn
	Temperature float64
	MaxTokens   int
}

// Completion is a complete non-streaming response.
type Completion struct {
	Content      string
	FinishReason string
	Usage        Usage
}

// Chunk is one increment of a streaming response. Exactly one of the
// following holds per chunk:
//   - Delta is non-empty and FinishReason is "" (content increment)
//   - FinishReason is non-empty (terminal marker; Delta is empty)
//   - Err is non-nil (the stream failed; no further chunks follow)
type Chunk struct {
	Delta        string
	FinishReason string
	Err          error
}

// Usage records token consumption for an API call.
type Usage struct {
	InputTokens  int
	OutputTokens int
}

// ── Provider interface ───────────────────────────────────────────────────────

// Provider is the unified interface for all LLM providers.
// Implementors are responsible for:
//  1. Converting the unified ChatRequest into the provider's API request format
//  2. Mapping vendor stop reasons onto FinishStop / FinishLength
//  3. Classifying failures as *ProviderError (structured API fault) or
//     *TransportError (network-layer fault)
type Provider interface {
	// Complete performs a blocking, non-streaming chat call.
	Complete(ctx context.Context, req *ChatRequest) (*Completion, error)

	// Stream starts a streaming chat call. The returned channel emits
	// chunks until a terminal or error chunk, then closes. Callers must
	// drain the channel.
	//
	// Adapters establish the SSE connection lazily, so dispatch failures
	// (bad credentials, unreachable host) surface as an error chunk on
	// the channel rather than an immediate error return.
	Stream(ctx context.Context, req *ChatRequest) (<-chan Chunk, error)

	// Name returns the provider identifier, e.g. "openai", "anthropic".
	Name() string

	// DefaultModel returns the model used when the request leaves Model empty.
	DefaultModel() string
}
