// Package session implements a conversational wrapper around a hosted chat
// LLM: a bounded rolling history trimmed to the model's token budget, uniform
// normalization of streaming and non-streaming responses, and an error policy
// that degrades provider failures into well-formed synthetic replies.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/chatblock-ai/chatblock/internal/provider"
	"github.com/chatblock-ai/chatblock/internal/token"
)

// Exchange is one example user/assistant pair fixed into the session preamble.
// Values are rendered with fmt.Sprint, so structured inputs are accepted
// alongside plain strings.
type Exchange struct {
	User      any
	Assistant any
}

// Preprocessor converts the caller's raw Ask arguments into the user turn
// text. It must be pure: the session may invoke it exactly once per call and
// assumes equal inputs produce equal text.
type Preprocessor func(args ...any) string

// Config is the session configuration, fixed at construction except where
// noted. The zero value of optional fields selects the documented default.
type Config struct {
	// SystemPrompt guides the conversation. Counted once into the fixed
	// token overhead together with Examples.
	SystemPrompt string

	// Examples are optional example exchanges placed after the system
	// prompt on every request.
	Examples []Exchange

	// Model must be in the supported capacity table. Empty selects the
	// provider's default model, which must itself be in the table.
	Model string

	// MaxOutputTokens is the per-call output reservation. Default 400.
	// Must be less than the model's context window.
	MaxOutputTokens int

	// Stream selects incremental fragment delivery over a single
	// complete string.
	Stream bool

	// Temperature controls output randomness. Default 0.001; higher
	// values make the output more unstable.
	Temperature float64

	// MaxRetries is the number of additional attempts for transient
	// dispatch failures (rate limits, server faults) before the error
	// policy engages. 0 uses the default of 2; negative disables retries.
	// Streaming calls are never retried once deltas have been delivered.
	MaxRetries int

	// Preprocessor produces the user turn text from Ask's arguments.
	// Default: fmt.Sprint of each argument, space-joined.
	Preprocessor Preprocessor

	// OnError is invoked exactly once per failed call, before the error
	// is raised or degraded. Default: no-op.
	OnError func(err error)

	// RaiseOnError propagates provider/transport failures to the caller
	// instead of substituting a degraded reply.
	RaiseOnError bool

	// Counter overrides the token counter. Default: resolved from the
	// model identifier, falling back to the character-ratio heuristic.
	Counter token.Counter

	// Logger is the logging sink. Default: a discarding logger; there is
	// no package-level logger.
	Logger logrus.FieldLogger
}

// Session is a single conversation against one model.
//
// A Session is not safe for concurrent use: exchanges are strictly
// sequential, and in streaming mode the returned fragment channel must be
// drained before the next Ask. The assistant turn is appended to history
// only when the terminal marker is consumed, so an abandoned stream leaves
// the exchange unfinished. Starting a new call before the prior stream
// completes interleaves answer accumulation and corrupts state.
type Session struct {
	id       string
	provider provider.Provider
	budget   *TokenBudget
	preamble []provider.Turn
	log      logrus.FieldLogger

	model        string
	temperature  float64
	stream       bool
	maxRetries   int
	preprocess   Preprocessor
	onError      func(error)
	raiseOnError bool

	history []provider.Turn
	pending string // accumulator for the in-flight streamed answer
}

// New validates the configuration and measures the fixed preamble overhead.
// Fails with *UnsupportedModelError for a model outside the capacity table
// and *ConfigurationError when the output reservation is not below the
// model's context window.
func New(p provider.Provider, cfg Config) (*Session, error) {
	model := cfg.Model
	if model == "" {
		model = p.DefaultModel()
	}

	maxOutput := cfg.MaxOutputTokens
	if maxOutput == 0 {
		maxOutput = 400
	}
	if maxOutput < 0 {
		return nil, &ConfigurationError{Reason: "output reservation must be positive"}
	}

	budget, err := NewTokenBudget(model, maxOutput, cfg.Counter)
	if err != nil {
		return nil, err
	}

	preamble := make([]provider.Turn, 0, 1+2*len(cfg.Examples))
	preamble = append(preamble, provider.Turn{Role: provider.RoleSystem, Content: cfg.SystemPrompt})
	for _, ex := range cfg.Examples {
		preamble = append(preamble,
			provider.Turn{Role: provider.RoleUser, Content: fmt.Sprint(ex.User)},
			provider.Turn{Role: provider.RoleAssistant, Content: fmt.Sprint(ex.Assistant)},
		)
	}
	if err := budget.MeasureOverhead(preamble); err != nil {
		return nil, err
	}

	temperature := cfg.Temperature
	if temperature == 0 {
		temperature = 0.001
	}

	maxRetries := cfg.MaxRetries
	if maxRetries == 0 {
		maxRetries = defaultMaxRetries
	}
	if maxRetries < 0 {
		maxRetries = 0
	}

	pre := cfg.Preprocessor
	if pre == nil {
		pre = defaultPreprocessor
	}
	onError := cfg.OnError
	if onError == nil {
		onError = func(error) {}
	}

	logger := cfg.Logger
	if logger == nil {
		discard := logrus.New()
		discard.SetOutput(io.Discard)
		logger = discard
	}

	s := &Session{
		id:           uuid.NewString(),
		provider:     p,
		budget:       budget,
		preamble:     preamble,
		model:        model,
		temperature:  temperature,
		stream:       cfg.Stream,
		maxRetries:   maxRetries,
		preprocess:   pre,
		onError:      onError,
		raiseOnError: cfg.RaiseOnError,
	}
	s.log = logger.WithFields(logrus.Fields{
		"session": s.id[:8],
		"model":   model,
	})
	return s, nil
}

func defaultPreprocessor(args ...any) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = fmt.Sprint(a)
	}
	return strings.Join(parts, " ")
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Answer returns the accumulator for the in-flight streamed answer. Empty
// outside of an active streamed exchange.
func (s *Session) Answer() string { return s.pending }

// History returns a copy of the retained user/assistant turns.
func (s *Session) History() []provider.Turn {
	out := make([]provider.Turn, len(s.history))
	copy(out, s.history)
	return out
}

// HistoryTokens returns the token count of the retained history.
func (s *Session) HistoryTokens() int {
	n, _ := s.budget.CountTokens(s.history)
	return n
}

// Budget returns the session's token budget.
func (s *Session) Budget() *TokenBudget { return s.budget }

// Reset clears the history and the pending answer. Configuration — system
// prompt, examples, model, flags — is untouched.
func (s *Session) Reset() {
	s.history = nil
	s.pending = ""
}

// Ask runs one exchange: preprocess the arguments into a user turn, trim the
// history to the token budget, dispatch to the model service, and normalize
// the response.
//
// The returned error is non-nil only for propagated failures: provider or
// transport faults under RaiseOnError, and protocol violations
// (*UnrecognizedStateError) always. Otherwise failures surface as a
// ReplyDegraded reply, after the error hook has run exactly once.
func (s *Session) Ask(ctx context.Context, args ...any) (Reply, error) {
	text := s.preprocess(args...)
	s.history = append(s.history, provider.Turn{Role: provider.RoleUser, Content: text})
	s.history = Trim(s.history, s.budget.HistoryLimit(), s.turnCost)

	req := &provider.ChatRequest{
		Model:       s.model,
		Turns:       s.promptTurns(),
		Temperature: s.temperature,
		MaxTokens:   s.budget.OutputReserve(),
	}
	if s.stream {
		return s.askStreaming(ctx, req)
	}
	return s.askBlocking(ctx, req)
}

func (s *Session) turnCost(t provider.Turn) int {
	n, _ := s.budget.CountTokens(t)
	return n
}

// promptTurns assembles the full ordered request: system prompt, example
// exchanges, trimmed history.
func (s *Session) promptTurns() []provider.Turn {
	turns := make([]provider.Turn, 0, len(s.preamble)+len(s.history))
	turns = append(turns, s.preamble...)
	turns = append(turns, s.history...)
	return turns
}

// askBlocking dispatches a non-streaming call and normalizes the single
// structured response.
func (s *Session) askBlocking(ctx context.Context, req *provider.ChatRequest) (Reply, error) {
	start := time.Now()
	comp, err := s.completeWithRetry(ctx, req)
	s.log.WithField("elapsed", time.Since(start).Round(time.Millisecond).String()).
		Debug("model call finished")

	if err != nil {
		s.failed(err)
		if s.raiseOnError {
			return Reply{}, err
		}
		return Reply{Kind: ReplyDegraded, Text: degradedText(err)}, nil
	}

	switch comp.FinishReason {
	case provider.FinishStop, provider.FinishLength:
		s.pending = ""
		s.history = append(s.history, provider.Turn{
			Role:    provider.RoleAssistant,
			Content: comp.Content,
		})
		s.calibrate(req, comp.Usage)
		return Reply{Kind: ReplyComplete, Text: comp.Content}, nil
	default:
		return Reply{}, &UnrecognizedStateError{FinishReason: comp.FinishReason}
	}
}

func (s *Session) completeWithRetry(ctx context.Context, req *provider.ChatRequest) (*provider.Completion, error) {
	for attempt := 0; ; attempt++ {
		comp, err := s.provider.Complete(ctx, req)
		if err == nil {
			return comp, nil
		}
		if attempt >= s.maxRetries || !isRetryable(err) {
			return nil, err
		}
		delay := retryDelay(attempt)
		s.log.WithFields(logrus.Fields{
			"attempt": attempt + 1,
			"delay":   delay.Round(time.Millisecond).String(),
			"error":   err.Error(),
		}).Warn("transient provider failure, retrying")
		if serr := retrySleep(ctx, delay); serr != nil {
			return nil, err
		}
	}
}

// askStreaming dispatches a streaming call and wraps the chunk sequence in
// a normalizing consumer.
func (s *Session) askStreaming(ctx context.Context, req *provider.ChatRequest) (Reply, error) {
	s.pending = ""

	chunks, err := s.provider.Stream(ctx, req)
	if err != nil {
		s.failed(err)
		if s.raiseOnError {
			return Reply{}, err
		}
		return Reply{Kind: ReplyDegraded, Fragments: wordStream(degradedText(err))}, nil
	}

	out := make(chan Fragment, 16)
	go s.consume(req, chunks, out)
	return Reply{Kind: ReplyStream, Fragments: out}, nil
}

// consume normalizes the upstream chunk sequence into fragments. Deltas
// accumulate into the pending answer; the terminal marker finalizes the
// exchange by appending the accumulated assistant turn. On upstream failure
// the partial answer is discarded (history stays unchanged), the error hook
// runs once, and a fixed degraded message is yielded word by word — unless
// the session raises on errors, in which case the failure is delivered as an
// error fragment.
func (s *Session) consume(req *provider.ChatRequest, chunks <-chan provider.Chunk, out chan<- Fragment) {
	defer close(out)

	for c := range chunks {
		switch {
		case c.Err != nil:
			s.pending = ""
			s.failed(c.Err)
			if s.raiseOnError {
				out <- Fragment{Err: c.Err}
				return
			}
			for f := range wordStream(streamFailureText) {
				out <- f
			}
			return

		case c.FinishReason == "":
			if c.Delta != "" {
				s.pending += c.Delta
				out <- Fragment{Text: c.Delta}
			}

		case c.FinishReason == provider.FinishStop || c.FinishReason == provider.FinishLength:
			s.history = append(s.history, provider.Turn{
				Role:    provider.RoleAssistant,
				Content: s.pending,
			})
			s.pending = ""
			return

		default:
			s.pending = ""
			out <- Fragment{Err: &UnrecognizedStateError{FinishReason: c.FinishReason}}
			return
		}
	}
}

// failed applies the error policy preamble: hook exactly once, then log.
func (s *Session) failed(err error) {
	s.onError(err)
	s.log.WithField("error", err.Error()).Error("model call failed")
}

// calibrate feeds actual input token usage back into the counter.
func (s *Session) calibrate(req *provider.ChatRequest, usage provider.Usage) {
	if usage.InputTokens <= 0 {
		return
	}
	contents := make([]string, len(req.Turns))
	for i, t := range req.Turns {
		contents[i] = t.Content
	}
	s.budget.Calibrate(strings.Join(contents, " "), usage.InputTokens)
}

// streamFailureText is the fixed degraded message for a stream that fails
// after delivery has begun.
const streamFailureText = "The model provider failed mid-response. Please try again."

// degradedText renders a dispatch failure as a human-readable answer,
// preserving the caller's expected response shape.
func degradedText(err error) string {
	var perr *provider.ProviderError
	if errors.As(err, &perr) {
		return fmt.Sprintf("The model provider reported an internal error. %v", err)
	}
	return fmt.Sprintf("Internal error. %v", err)
}
