// Package openai adapts the OpenAI chat completions API to the
// router's Provider interface.
package openai

import (
	"context"
	"errors"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/hupe1980/agentcore/core"
	"github.com/hupe1980/agentcore/router"
)

// DefaultModels is served when Options leave Models empty.
var DefaultModels = []string{"gpt-4-turbo", "gpt-3.5-turbo"}

// Options configure the OpenAI provider.
type Options struct {
	// APIKey overrides the OPENAI_API_KEY environment variable.
	APIKey string
	// BaseURL points the client at a compatible endpoint.
	BaseURL string
	// Models lists the models this provider serves, preferred first.
	Models []string
	// MaxTokens caps completion length. Zero leaves it to the API.
	MaxTokens int
}

// Provider is an OpenAI backed router.Provider.
type Provider struct {
	client openai.Client
	opts   Options
}

// New creates an OpenAI provider.
func New(optFns ...func(o *Options)) *Provider {
	opts := Options{Models: DefaultModels}
	for _, fn := range optFns {
		fn(&opts)
	}
	var reqOpts []option.RequestOption
	if opts.APIKey != "" {
		reqOpts = append(reqOpts, option.WithAPIKey(opts.APIKey))
	}
	if opts.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(opts.BaseURL))
	}
	return &Provider{client: openai.NewClient(reqOpts...), opts: opts}
}

// Name implements router.Provider.
func (p *Provider) Name() string { return "openai" }

// Models implements router.Provider.
func (p *Provider) Models() []string { return p.opts.Models }

// Complete implements router.Provider.
func (p *Provider) Complete(ctx context.Context, model string, req router.Request) (*router.Response, error) {
	params, err := p.buildParams(model, req)
	if err != nil {
		return nil, p.wrapErr(model, err)
	}
	completion, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, p.wrapErr(model, err)
	}
	if len(completion.Choices) == 0 {
		return nil, p.wrapErr(model, fmt.Errorf("empty choices in completion"))
	}
	choice := completion.Choices[0]

	resp := &router.Response{
		Content:      choice.Message.Content,
		FinishReason: string(choice.FinishReason),
		Usage: router.Usage{
			PromptTokens:     int(completion.Usage.PromptTokens),
			CompletionTokens: int(completion.Usage.CompletionTokens),
			TotalTokens:      int(completion.Usage.TotalTokens),
		},
	}
	for _, tc := range choice.Message.ToolCalls {
		resp.ToolCalls = append(resp.ToolCalls, core.ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}
	return resp, nil
}

// CompleteStream implements router.Provider. Tool call fragments are
// aggregated by index while text deltas stream through onDelta.
func (p *Provider) CompleteStream(ctx context.Context, model string, req router.Request, onDelta func(string)) (*router.Response, error) {
	params, err := p.buildParams(model, req)
	if err != nil {
		return nil, p.wrapErr(model, err)
	}
	stream := p.client.Chat.Completions.NewStreaming(ctx, params)
	defer stream.Close()

	type aggCall struct {
		id   string
		name string
		args string
	}
	var (
		content      string
		finishReason string
		calls        []aggCall
		usage        router.Usage
	)
	for stream.Next() {
		chunk := stream.Current()
		if chunk.Usage.TotalTokens > 0 {
			usage = router.Usage{
				PromptTokens:     int(chunk.Usage.PromptTokens),
				CompletionTokens: int(chunk.Usage.CompletionTokens),
				TotalTokens:      int(chunk.Usage.TotalTokens),
			}
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		choice := chunk.Choices[0]
		if choice.FinishReason != "" {
			finishReason = string(choice.FinishReason)
		}
		if choice.Delta.Content != "" {
			content += choice.Delta.Content
			if onDelta != nil {
				onDelta(choice.Delta.Content)
			}
		}
		for _, tc := range choice.Delta.ToolCalls {
			idx := int(tc.Index)
			for len(calls) <= idx {
				calls = append(calls, aggCall{})
			}
			if tc.ID != "" {
				calls[idx].id = tc.ID
			}
			if tc.Function.Name != "" {
				calls[idx].name = tc.Function.Name
			}
			calls[idx].args += tc.Function.Arguments
		}
	}
	if err := stream.Err(); err != nil {
		return nil, p.wrapErr(model, err)
	}

	resp := &router.Response{Content: content, FinishReason: finishReason, Usage: usage}
	for _, c := range calls {
		if c.id == "" && c.name == "" {
			continue
		}
		resp.ToolCalls = append(resp.ToolCalls, core.ToolCall{ID: c.id, Name: c.name, Arguments: c.args})
	}
	return resp, nil
}

func (p *Provider) buildParams(model string, req router.Request) (openai.ChatCompletionNewParams, error) {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Messages))
	for _, msg := range req.Messages {
		switch msg.Role {
		case core.RoleSystem:
			messages = append(messages, openai.SystemMessage(msg.Content))
		case core.RoleUser:
			messages = append(messages, openai.UserMessage(msg.Content))
		case core.RoleAssistant:
			if len(msg.ToolCalls) == 0 {
				messages = append(messages, openai.AssistantMessage(msg.Content))
				continue
			}
			assistant := openai.ChatCompletionAssistantMessageParam{}
			if msg.Content != "" {
				assistant.Content.OfString = openai.String(msg.Content)
			}
			for _, tc := range msg.ToolCalls {
				assistant.ToolCalls = append(assistant.ToolCalls, openai.ChatCompletionMessageToolCallParam{
					ID: tc.ID,
					Function: openai.ChatCompletionMessageToolCallFunctionParam{
						Name:      tc.Name,
						Arguments: tc.Arguments,
					},
				})
			}
			messages = append(messages, openai.ChatCompletionMessageParamUnion{OfAssistant: &assistant})
		case core.RoleTool:
			messages = append(messages, openai.ToolMessage(msg.Content, msg.ToolCallID))
		default:
			return openai.ChatCompletionNewParams{}, fmt.Errorf("unsupported message role %q", msg.Role)
		}
	}

	params := openai.ChatCompletionNewParams{
		Model:    model,
		Messages: messages,
	}
	if req.Temperature > 0 {
		params.Temperature = openai.Float(req.Temperature)
	}
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = p.opts.MaxTokens
	}
	if maxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(maxTokens))
	}
	for _, td := range req.Tools {
		params.Tools = append(params.Tools, openai.ChatCompletionToolParam{
			Function: openai.FunctionDefinitionParam{
				Name:        td.Name,
				Description: openai.String(td.Description),
				Parameters:  openai.FunctionParameters(td.Parameters),
			},
		})
	}
	return params, nil
}

// wrapErr classifies an SDK failure for the router.
func (p *Provider) wrapErr(model string, err error) error {
	class := router.ClassTransient
	var apierr *openai.Error
	status := 0
	if errors.As(err, &apierr) {
		status = apierr.StatusCode
		class = router.ClassifyStatus(status)
	} else if errors.Is(err, context.Canceled) {
		class = router.ClassConfig
	}
	return &router.ProviderError{
		Provider: p.Name(),
		Model:    model,
		Class:    class,
		Status:   status,
		Err:      err,
	}
}
