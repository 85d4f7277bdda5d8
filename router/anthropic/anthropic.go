// Package anthropic adapts the Anthropic messages API to the router's
// Provider interface.
package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/hupe1980/agentcore/core"
	"github.com/hupe1980/agentcore/router"
)

// DefaultMaxTokens bounds completions when Options leave it zero; the
// messages API requires an explicit limit.
const DefaultMaxTokens = 4096

// DefaultModels is served when Options leave Models empty.
var DefaultModels = []string{"claude-3-sonnet", "claude-3-haiku"}

// Options configure the Anthropic provider.
type Options struct {
	// APIKey overrides the ANTHROPIC_API_KEY environment variable.
	APIKey string
	// BaseURL points the client at a compatible endpoint.
	BaseURL string
	// Models lists the models this provider serves, preferred first.
	Models []string
	// MaxTokens caps completion length.
	MaxTokens int
}

// Provider is an Anthropic backed router.Provider.
type Provider struct {
	client anthropic.Client
	opts   Options
}

// New creates an Anthropic provider.
func New(optFns ...func(o *Options)) *Provider {
	opts := Options{Models: DefaultModels, MaxTokens: DefaultMaxTokens}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = DefaultMaxTokens
	}
	var reqOpts []option.RequestOption
	if opts.APIKey != "" {
		reqOpts = append(reqOpts, option.WithAPIKey(opts.APIKey))
	}
	if opts.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(opts.BaseURL))
	}
	return &Provider{client: anthropic.NewClient(reqOpts...), opts: opts}
}

// Name implements router.Provider.
func (p *Provider) Name() string { return "anthropic" }

// Models implements router.Provider.
func (p *Provider) Models() []string { return p.opts.Models }

// Complete implements router.Provider.
func (p *Provider) Complete(ctx context.Context, model string, req router.Request) (*router.Response, error) {
	params, err := p.buildParams(model, req)
	if err != nil {
		return nil, p.wrapErr(model, err)
	}
	message, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return nil, p.wrapErr(model, err)
	}
	return p.convert(message), nil
}

// CompleteStream implements router.Provider.
func (p *Provider) CompleteStream(ctx context.Context, model string, req router.Request, onDelta func(string)) (*router.Response, error) {
	params, err := p.buildParams(model, req)
	if err != nil {
		return nil, p.wrapErr(model, err)
	}
	stream := p.client.Messages.NewStreaming(ctx, params)
	defer stream.Close()

	message := anthropic.Message{}
	for stream.Next() {
		event := stream.Current()
		if err := message.Accumulate(event); err != nil {
			return nil, p.wrapErr(model, err)
		}
		switch ev := event.AsAny().(type) {
		case anthropic.ContentBlockDeltaEvent:
			switch delta := ev.Delta.AsAny().(type) {
			case anthropic.TextDelta:
				if onDelta != nil && delta.Text != "" {
					onDelta(delta.Text)
				}
			}
		}
	}
	if err := stream.Err(); err != nil {
		return nil, p.wrapErr(model, err)
	}
	return p.convert(&message), nil
}

func (p *Provider) buildParams(model string, req router.Request) (anthropic.MessageNewParams, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: int64(p.opts.MaxTokens),
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = int64(req.MaxTokens)
	}
	if req.Temperature > 0 {
		params.Temperature = anthropic.Float(req.Temperature)
	}

	for _, msg := range req.Messages {
		switch msg.Role {
		case core.RoleSystem:
			params.System = append(params.System, anthropic.TextBlockParam{Text: msg.Content})
		case core.RoleUser:
			params.Messages = append(params.Messages, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))
		case core.RoleAssistant:
			var blocks []anthropic.ContentBlockParamUnion
			if msg.Content != "" {
				blocks = append(blocks, anthropic.NewTextBlock(msg.Content))
			}
			for _, tc := range msg.ToolCalls {
				blocks = append(blocks, anthropic.NewToolUseBlock(tc.ID, json.RawMessage(tc.Arguments), tc.Name))
			}
			if len(blocks) == 0 {
				continue
			}
			params.Messages = append(params.Messages, anthropic.NewAssistantMessage(blocks...))
		case core.RoleTool:
			params.Messages = append(params.Messages, anthropic.NewUserMessage(anthropic.NewToolResultBlock(msg.ToolCallID, msg.Content, false)))
		default:
			return anthropic.MessageNewParams{}, fmt.Errorf("unsupported message role %q", msg.Role)
		}
	}

	for _, td := range req.Tools {
		properties := td.Parameters["properties"]
		var required []string
		switch v := td.Parameters["required"].(type) {
		case []string:
			required = v
		case []any:
			for _, r := range v {
				if s, ok := r.(string); ok {
					required = append(required, s)
				}
			}
		}
		params.Tools = append(params.Tools, anthropic.ToolUnionParam{
			OfTool: &anthropic.ToolParam{
				Name:        td.Name,
				Description: anthropic.String(td.Description),
				InputSchema: anthropic.ToolInputSchemaParam{
					Properties: properties,
					Required:   required,
				},
			},
		})
	}
	return params, nil
}

func (p *Provider) convert(message *anthropic.Message) *router.Response {
	resp := &router.Response{
		FinishReason: string(message.StopReason),
		Usage: router.Usage{
			PromptTokens:     int(message.Usage.InputTokens),
			CompletionTokens: int(message.Usage.OutputTokens),
			TotalTokens:      int(message.Usage.InputTokens + message.Usage.OutputTokens),
		},
	}
	for _, block := range message.Content {
		switch block.Type {
		case "text":
			resp.Content += block.AsText().Text
		case "tool_use":
			tu := block.AsToolUse()
			resp.ToolCalls = append(resp.ToolCalls, core.ToolCall{
				ID:        tu.ID,
				Name:      tu.Name,
				Arguments: string(tu.Input),
			})
		}
	}
	return resp
}

// wrapErr classifies an SDK failure for the router.
func (p *Provider) wrapErr(model string, err error) error {
	class := router.ClassTransient
	var apierr *anthropic.Error
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
