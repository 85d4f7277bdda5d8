// Package agentcore provides a high-level façade over the agent
// execution runtime: model routing with fallback, a typed tool
// registry, retrieval grounding and session persistence. Most
// applications interact with this package by:
//  1. Creating an AgentCore via New() (optionally from a loaded config)
//  2. Registering agents and custom tools
//  3. Starting runs asynchronously (Stream) or synchronously (Run)
//
// The façade delegates execution to runner.Runner while keeping setup
// ergonomics concise. All defaults are safe for local development and
// testing; production deployments typically supply real provider
// credentials, a persistent vector store and a structured logger.
package agentcore

import (
	"context"
	"fmt"
	"time"

	"github.com/hupe1980/agentcore/config"
	"github.com/hupe1980/agentcore/core"
	"github.com/hupe1980/agentcore/logging"
	"github.com/hupe1980/agentcore/retrieval"
	"github.com/hupe1980/agentcore/router"
	anthropicprovider "github.com/hupe1980/agentcore/router/anthropic"
	openaiprovider "github.com/hupe1980/agentcore/router/openai"
	"github.com/hupe1980/agentcore/runner"
	"github.com/hupe1980/agentcore/session"
	"github.com/hupe1980/agentcore/tool"
)

// Options configure the AgentCore instance.
type Options struct {
	// Config supplies provider credentials and tuning. Defaults to
	// config.Default().
	Config config.Config

	// Providers overrides the provider set built from Config. Useful
	// for tests and custom backends.
	Providers []router.Provider

	// VectorStore and Embedder enable retrieval. Both must be set
	// together; leaving them nil disables grounding.
	VectorStore retrieval.VectorStore
	Embedder    retrieval.Embedder

	// Stores default to in-memory implementations.
	MessageStore core.MessageStore
	ConfigStore  core.ConfigStore

	// Logger defaults to NoOp.
	Logger logging.Logger
}

// AgentCore is the high-level façade aggregating router, tools,
// retrieval and the runner.
type AgentCore struct {
	opts     Options
	router   *router.Router
	tools    *tool.Registry
	pipeline *retrieval.Pipeline
	runner   *runner.Runner
	configs  core.ConfigStore
}

// New creates an AgentCore with optional overrides. Builtin tools are
// registered; unset services are initialized in memory.
func New(optFns ...func(o *Options)) (*AgentCore, error) {
	opts := Options{
		Config:       config.Default(),
		MessageStore: session.NewInMemoryMessageStore(),
		ConfigStore:  session.NewInMemoryConfigStore(),
		Logger:       logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}

	providers := opts.Providers
	if providers == nil {
		providers = buildProviders(opts.Config)
	}
	if len(providers) == 0 {
		return nil, fmt.Errorf("no model providers configured")
	}

	rt := router.New(providers, func(o *router.Options) {
		cfg := opts.Config.Router
		if len(cfg.Costs) > 0 {
			o.Costs = cfg.Costs
		}
		if len(cfg.Quality) > 0 {
			o.Quality = cfg.Quality
		}
		o.Breaker = cfg.BreakerConfig()
		if cfg.InitialBackoffMS > 0 {
			o.InitialBackoff = time.Duration(cfg.InitialBackoffMS) * time.Millisecond
		}
		if cfg.MaxBackoffMS > 0 {
			o.MaxBackoff = time.Duration(cfg.MaxBackoffMS) * time.Millisecond
		}
		o.Logger = opts.Logger
	})

	registry := tool.NewRegistry()
	if err := tool.RegisterBuiltins(registry); err != nil {
		return nil, fmt.Errorf("register builtin tools: %w", err)
	}

	if opts.VectorStore == nil && opts.Embedder != nil {
		if path := opts.Config.Retrieval.PersistPath; path != "" {
			store, err := retrieval.NewPersistentChromemStore(path, false)
			if err != nil {
				return nil, fmt.Errorf("open vector store: %w", err)
			}
			opts.VectorStore = store
		} else {
			opts.VectorStore = retrieval.NewChromemStore()
		}
	}

	var pipeline *retrieval.Pipeline
	if opts.VectorStore != nil && opts.Embedder != nil {
		cfg := opts.Config.Retrieval
		pipeline = retrieval.New(opts.VectorStore, opts.Embedder, func(o *retrieval.Options) {
			o.TopK = cfg.TopK
			o.ScoreThreshold = cfg.ScoreThreshold
			o.ChunkSize = cfg.ChunkSize
			o.ChunkOverlap = cfg.ChunkOverlap
			o.ContextBudget = cfg.ContextBudget
			o.BudgetUnit = retrieval.BudgetUnit(cfg.BudgetUnit)
			o.Logger = opts.Logger
		})
	}

	run := runner.New(rt, registry, func(o *runner.Options) {
		cfg := opts.Config.Runner
		o.MessageStore = opts.MessageStore
		if pipeline != nil {
			o.Retriever = pipeline
		}
		if cfg.EventBufferSize > 0 {
			o.EventBufferSize = cfg.EventBufferSize
		}
		if cfg.ModelCallTimeoutSeconds > 0 {
			o.ModelCallTimeout = time.Duration(cfg.ModelCallTimeoutSeconds) * time.Second
		}
		if cfg.ToolCallTimeoutSeconds > 0 {
			o.ToolCallTimeout = time.Duration(cfg.ToolCallTimeoutSeconds) * time.Second
		}
		if cfg.RetrievalTimeoutSeconds > 0 {
			o.RetrievalTimeout = time.Duration(cfg.RetrievalTimeoutSeconds) * time.Second
		}
		if opts.Config.Retrieval.TopK > 0 {
			o.RetrievalTopK = opts.Config.Retrieval.TopK
		}
		o.Logger = opts.Logger
	})

	return &AgentCore{
		opts:     opts,
		router:   rt,
		tools:    registry,
		pipeline: pipeline,
		runner:   run,
		configs:  opts.ConfigStore,
	}, nil
}

func buildProviders(cfg config.Config) []router.Provider {
	var providers []router.Provider
	if cfg.OpenAI.Enabled() {
		providers = append(providers, openaiprovider.New(func(o *openaiprovider.Options) {
			o.APIKey = cfg.OpenAI.APIKey
			o.BaseURL = cfg.OpenAI.BaseURL
			if len(cfg.OpenAI.Models) > 0 {
				o.Models = cfg.OpenAI.Models
			}
		}))
	}
	if cfg.Anthropic.Enabled() {
		providers = append(providers, anthropicprovider.New(func(o *anthropicprovider.Options) {
			o.APIKey = cfg.Anthropic.APIKey
			o.BaseURL = cfg.Anthropic.BaseURL
			if len(cfg.Anthropic.Models) > 0 {
				o.Models = cfg.Anthropic.Models
			}
		}))
	}
	return providers
}

// RegisterTool adds a custom tool to the registry.
func (a *AgentCore) RegisterTool(desc tool.Descriptor, exec tool.Executor) error {
	return a.tools.Register(desc, exec)
}

// RegisterAgent stores an agent configuration for RunAgent.
func (a *AgentCore) RegisterAgent(ctx context.Context, cfg core.AgentConfig) error {
	return a.configs.SaveAgentConfig(ctx, cfg)
}

// Ingest writes documents into a knowledge base through the retrieval
// pipeline.
func (a *AgentCore) Ingest(ctx context.Context, knowledgeBase string, docs []retrieval.Document) (int, error) {
	if a.pipeline == nil {
		return 0, fmt.Errorf("retrieval is not configured")
	}
	return a.pipeline.Ingest(ctx, knowledgeBase, docs)
}

// Stream starts an asynchronous run for an ad hoc agent config.
func (a *AgentCore) Stream(ctx context.Context, sessionID string, cfg core.AgentConfig, message string) (*runner.Run, error) {
	return a.runner.Stream(ctx, sessionID, cfg, message)
}

// Run executes a run synchronously for an ad hoc agent config.
func (a *AgentCore) Run(ctx context.Context, sessionID string, cfg core.AgentConfig, message string) (*runner.Result, error) {
	return a.runner.Run(ctx, sessionID, cfg, message)
}

// RunAgent executes a run for a registered agent.
func (a *AgentCore) RunAgent(ctx context.Context, sessionID, agentID, message string) (*runner.Result, error) {
	cfg, err := a.configs.LoadAgentConfig(ctx, agentID)
	if err != nil {
		return nil, err
	}
	return a.runner.Run(ctx, sessionID, cfg, message)
}

// StreamAgent starts an asynchronous run for a registered agent.
func (a *AgentCore) StreamAgent(ctx context.Context, sessionID, agentID, message string) (*runner.Run, error) {
	cfg, err := a.configs.LoadAgentConfig(ctx, agentID)
	if err != nil {
		return nil, err
	}
	return a.runner.Stream(ctx, sessionID, cfg, message)
}

// Cancel requests cancellation of a running run by ID.
func (a *AgentCore) Cancel(runID string) bool {
	return a.runner.Cancel(runID)
}

// Tools returns the descriptors of all registered tools.
func (a *AgentCore) Tools() []tool.Descriptor {
	return a.tools.List()
}
