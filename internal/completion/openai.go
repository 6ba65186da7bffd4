// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package completion

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/pdiddy/deck-engine/pkg/types"
)

// OpenAI implements Client using the official openai-go SDK
// (chat completions). Transient failures are retried once at this level;
// callers treat a returned error as a stage failure.
type OpenAI struct {
	client openai.Client
	model  string
}

// NewOpenAI builds an OpenAI client from configuration.
func NewOpenAI(cfg types.CompletionConfig) (*OpenAI, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai api key missing; provide completion.api_key or .secrets/openai-api-key")
	}
	if cfg.Model == "" {
		return nil, errors.New("completion model is required")
	}
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &OpenAI{client: openai.NewClient(opts...), model: cfg.Model}, nil
}

// Complete generates text in one round trip, retrying once on failure.
func (o *OpenAI) Complete(ctx context.Context, system, user string) (Result, error) {
	res, err := o.complete(ctx, system, user)
	if err == nil || ctx.Err() != nil {
		return res, err
	}
	return o.complete(ctx, system, user)
}

func (o *OpenAI) complete(ctx context.Context, system, user string) (Result, error) {
	resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(o.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
	})
	if err != nil {
		return Result{}, err
	}
	if len(resp.Choices) == 0 {
		return Result{}, errors.New("openai: empty choices")
	}
	return Result{
		Text:   resp.Choices[0].Message.Content,
		Tokens: resp.Usage.TotalTokens,
	}, nil
}

// Stream generates text incrementally, forwarding each delta to fn as it
// arrives. Usage totals ride on the final chunk when the service reports
// them. A stream that errors before the first chunk is retried once; after
// chunks have been forwarded the error is returned as-is, since replaying
// would double-deliver content.
func (o *OpenAI) Stream(ctx context.Context, system, user string, fn ChunkFunc) (Result, error) {
	res, delivered, err := o.stream(ctx, system, user, fn)
	if err != nil && !delivered && ctx.Err() == nil {
		res, _, err = o.stream(ctx, system, user, fn)
	}
	return res, err
}

func (o *OpenAI) stream(ctx context.Context, system, user string, fn ChunkFunc) (Result, bool, error) {
	stream := o.client.Chat.Completions.NewStreaming(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(o.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
		StreamOptions: openai.ChatCompletionStreamOptionsParam{
			IncludeUsage: openai.Bool(true),
		},
	})
	defer stream.Close()

	var sb strings.Builder
	var tokens int64
	delivered := false

	for stream.Next() {
		chunk := stream.Current()
		if chunk.Usage.TotalTokens > 0 {
			tokens = chunk.Usage.TotalTokens
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		delta := chunk.Choices[0].Delta.Content
		if delta == "" {
			continue
		}
		sb.WriteString(delta)
		delivered = true
		if err := fn(delta); err != nil {
			return Result{}, delivered, fmt.Errorf("chunk handler: %w", err)
		}
	}
	if err := stream.Err(); err != nil {
		return Result{}, delivered, err
	}

	return Result{Text: sb.String(), Tokens: tokens}, delivered, nil
}
