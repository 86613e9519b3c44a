package provider

import (
	"context"
	"errors"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	anthropicoption "github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/ssestream"
)

// AnthropicProvider implements Provider using the Anthropic native API.
type AnthropicProvider struct {
	client anthropic.Client
	model  string
}

func NewAnthropicProvider(apiKey, model string) *AnthropicProvider {
	if model == "" {
		model = "claude-sonnet-4-20250514"
	}
	return &AnthropicProvider{
		client: anthropic.NewClient(anthropicoption.WithAPIKey(apiKey)),
		model:  model,
	}
}

func (p *AnthropicProvider) Name() string         { return "anthropic" }
func (p *AnthropicProvider) DefaultModel() string { return p.model }

// Complete performs a blocking, non-streaming Messages call.
func (p *AnthropicProvider) Complete(ctx context.Context, req *ChatRequest) (*Completion, error) {
	msg, err := p.client.Messages.New(ctx, p.buildParams(req))
	if err != nil {
		return nil, p.classify(err)
	}

	var text strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	return &Completion{
		Content:      text.String(),
		FinishReason: mapStopReason(string(msg.StopReason)),
		Usage: Usage{
			InputTokens:  int(msg.Usage.InputTokens),
			OutputTokens: int(msg.Usage.OutputTokens),
		},
	}, nil
}

// Stream starts a streaming Messages call.
func (p *AnthropicProvider) Stream(ctx context.Context, req *ChatRequest) (<-chan Chunk, error) {
	stream := p.client.Messages.NewStreaming(ctx, p.buildParams(req))

	ch := make(chan Chunk, 16)
	go p.processStream(ctx, stream, ch)
	return ch, nil
}

// processStream reads the Anthropic SSE stream and emits unified chunks.
//
// Anthropic streaming event sequence:
//   - ContentBlockDeltaEvent (TextDelta) -> content increment
//   - MessageDeltaEvent -> carries the stop reason, ends the stream
func (p *AnthropicProvider) processStream(ctx context.Context, stream *ssestream.Stream[anthropic.MessageStreamEventUnion], ch chan<- Chunk) {
	defer close(ch)
	defer stream.Close()

	for stream.Next() {
		select {
		case <-ctx.Done():
			ch <- Chunk{Err: &TransportError{Provider: "anthropic", Err: ctx.Err()}}
			return
		default:
		}

		event := stream.Current()

		switch variant := event.AsAny().(type) {
		case anthropic.ContentBlockDeltaEvent:
			if d, ok := variant.Delta.AsAny().(anthropic.TextDelta); ok {
				ch <- Chunk{Delta: d.Text}
			}

		case anthropic.MessageDeltaEvent:
			ch <- Chunk{FinishReason: mapStopReason(string(variant.Delta.StopReason))}
			return
		}
	}

	if err := stream.Err(); err != nil {
		ch <- Chunk{Err: p.classify(err)}
		return
	}

	ch <- Chunk{Err: &TransportError{Provider: "anthropic", Err: errors.New("stream ended without stop reason")}}
}

// mapStopReason translates Anthropic stop reasons onto the normalized
// finish-reason vocabulary. Unknown values pass through verbatim so the
// session layer can reject them as a protocol violation.
func mapStopReason(reason string) string {
	switch reason {
	case "end_turn", "stop_sequence":
		return FinishStop
	case "max_tokens":
		return FinishLength
	default:
		return reason
	}
}

func (p *AnthropicProvider) classify(err error) error {
	var apierr *anthropic.Error
	if errors.As(err, &apierr) {
		return &ProviderError{
			Provider:   "anthropic",
			StatusCode: apierr.StatusCode,
			Message:    apierr.Error(),
			Err:        err,
		}
	}
	return &TransportError{Provider: "anthropic", Err: err}
}

// buildParams converts the unified ChatRequest to Anthropic API params.
// System turns go into the dedicated System field; the Messages API does not
// accept a system role in the message list.
func (p *AnthropicProvider) buildParams(req *ChatRequest) anthropic.MessageNewParams {
	model := req.Model
	if model == "" {
		model = p.model
	}

	maxTokens := int64(req.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = 4096
	}

	var system []anthropic.TextBlockParam
	var msgs []anthropic.MessageParam
	for _, t := range req.Turns {
		switch t.Role {
		case RoleSystem:
			system = append(system, anthropic.TextBlockParam{Text: t.Content})
		case RoleAssistant:
			msgs = append(msgs, anthropic.NewAssistantMessage(anthropic.NewTextBlock(t.Content)))
		default:
			msgs = append(msgs, anthropic.NewUserMessage(anthropic.NewTextBlock(t.Content)))
		}
	}

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(model),
		Messages:    msgs,
		MaxTokens:   maxTokens,
		Temperature: anthropic.Float(req.Temperature),
	}
	if len(system) > 0 {
		params.System = system
	}
	return params
}
