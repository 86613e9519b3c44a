package provider

import (
	"context"
	"errors"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/ssestream"
)

// OpenAIProvider implements Provider for all OpenAI-compatible APIs,
// including OpenAI, DeepSeek, MiniMax, Kimi, Qwen, etc.
type OpenAIProvider struct {
	client  openai.Client
	model   string
	name    string
	baseURL string
}

func NewOpenAIProvider(apiKey, baseURL, model string) *OpenAIProvider {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if model == "" {
		model = "gpt-4o-mini"
	}

	name := "openai"
	if baseURL != "" {
		switch {
		case strings.Contains(baseURL, "deepseek"):
			name = "deepseek"
		case strings.Contains(baseURL, "minimax"):
			name = "minimax"
		case strings.Contains(baseURL, "moonshot"):
			name = "kimi"
		case strings.Contains(baseURL, "dashscope"):
			name = "qwen"
		}
	}

	return &OpenAIProvider{
		client:  openai.NewClient(opts...),
		model:   model,
		name:    name,
		baseURL: baseURL,
	}
}

func (p *OpenAIProvider) Name() string         { return p.name }
func (p *OpenAIProvider) DefaultModel() string { return p.model }

// Complete performs a blocking, non-streaming chat completion call.
func (p *OpenAIProvider) Complete(ctx context.Context, req *ChatRequest) (*Completion, error) {
	resp, err := p.client.Chat.Completions.New(ctx, p.buildParams(req))
	if err != nil {
		return nil, p.classify(err)
	}
	if len(resp.Choices) == 0 {
		return nil, &ProviderError{Provider: p.name, Message: "response contained no choices"}
	}
	choice := resp.Choices[0]
	return &Completion{
		Content:      choice.Message.Content,
		FinishReason: string(choice.FinishReason),
		Usage: Usage{
			InputTokens:  int(resp.Usage.PromptTokens),
			OutputTokens: int(resp.Usage.CompletionTokens),
		},
	}, nil
}

// Stream starts a streaming chat completion call. The SSE connection is
// established lazily by the SDK, so dispatch failures surface as an error
// chunk rather than an immediate error return.
func (p *OpenAIProvider) Stream(ctx context.Context, req *ChatRequest) (<-chan Chunk, error) {
	stream := p.client.Chat.Completions.NewStreaming(ctx, p.buildParams(req))

	ch := make(chan Chunk, 16)
	go p.processStream(ctx, stream, ch)
	return ch, nil
}

// processStream reads the OpenAI SSE stream and emits unified chunks.
// The stream ends at the first chunk carrying a finish_reason; trailing
// usage-only chunks are not relayed.
func (p *OpenAIProvider) processStream(ctx context.Context, stream *ssestream.Stream[openai.ChatCompletionChunk], ch chan<- Chunk) {
	defer close(ch)
	defer stream.Close()

	for stream.Next() {
		select {
		case <-ctx.Done():
			ch <- Chunk{Err: &TransportError{Provider: p.name, Err: ctx.Err()}}
			return
		default:
		}

		chunk := stream.Current()
		if len(chunk.Choices) == 0 {
			// Final chunk may only carry usage.
			continue
		}

		choice := chunk.Choices[0]
		if choice.Delta.Content != "" {
			ch <- Chunk{Delta: choice.Delta.Content}
		}
		if string(choice.FinishReason) != "" {
			ch <- Chunk{FinishReason: string(choice.FinishReason)}
			return
		}
	}

	if err := stream.Err(); err != nil {
		ch <- Chunk{Err: p.classify(err)}
		return
	}

	// Upstream closed without a terminal marker: the connection was cut.
	ch <- Chunk{Err: &TransportError{Provider: p.name, Err: errors.New("stream ended without finish reason")}}
}

// classify maps SDK errors onto the unified taxonomy: structured API errors
// become *ProviderError, everything else (DNS, reset, timeout) *TransportError.
func (p *OpenAIProvider) classify(err error) error {
	var apierr *openai.Error
	if errors.As(err, &apierr) {
		msg := apierr.Message
		if msg == "" {
			msg = "request failed"
		}
		return &ProviderError{
			Provider:   p.name,
			StatusCode: apierr.StatusCode,
			Message:    msg,
			Err:        err,
		}
	}
	return &TransportError{Provider: p.name, Err: err}
}

// buildParams converts the unified ChatRequest to OpenAI API params.
func (p *OpenAIProvider) buildParams(req *ChatRequest) openai.ChatCompletionNewParams {
	model := req.Model
	if model == "" {
		model = p.model
	}

	msgs := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Turns))
	for _, t := range req.Turns {
		switch t.Role {
		case RoleSystem:
			msgs = append(msgs, openai.SystemMessage(t.Content))
		case RoleAssistant:
			msgs = append(msgs, openai.AssistantMessage(t.Content))
		default:
			msgs = append(msgs, openai.UserMessage(t.Content))
		}
	}

	params := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(model),
		Messages:    msgs,
		Temperature: openai.Float(req.Temperature),
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}
	return params
}
