package parser

import (
	"context"
	"fmt"
	"strings"
	"sync"

	anyllmlib "github.com/mozilla-ai/any-llm-go"
	"github.com/mozilla-ai/any-llm-go/providers/anthropic"
	"github.com/mozilla-ai/any-llm-go/providers/gemini"
	"github.com/mozilla-ai/any-llm-go/providers/ollama"
	anyllmoai "github.com/mozilla-ai/any-llm-go/providers/openai"

	"github.com/jiyeon-yoon/picta-prototype/internal/config"
)

// LLM is the narrow capability the parser needs from a chat-completion
// backend: one system+user prompt in, one text response out. Kept
// separate from anyllmlib.Provider so tests can substitute a fake
// without touching any real provider.
type LLM interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// anyLLMProvider adapts github.com/mozilla-ai/any-llm-go's unified
// multi-provider client to the LLM interface.
type anyLLMProvider struct {
	backend anyllmlib.Provider
	model   string
}

// newAnyLLMProvider builds a provider for one of "openai", "anthropic",
// "gemini", or "ollama", the subset of any-llm-go's supported backends
// this engine exposes via LLM_PROVIDER. Without an explicit API-key
// option the underlying provider falls back to its usual environment
// variable (OPENAI_API_KEY, ANTHROPIC_API_KEY, GEMINI_API_KEY, …).
func newAnyLLMProvider(providerName, model string) (*anyLLMProvider, error) {
	if model == "" {
		return nil, fmt.Errorf("parser: LLM_MODEL must not be empty")
	}

	var backend anyllmlib.Provider
	var err error
	switch strings.ToLower(providerName) {
	case "openai":
		backend, err = anyllmoai.New()
	case "anthropic":
		backend, err = anthropic.New()
	case "gemini":
		backend, err = gemini.New()
	case "ollama":
		backend, err = ollama.New()
	default:
		return nil, fmt.Errorf("parser: unsupported LLM_PROVIDER %q", providerName)
	}
	if err != nil {
		return nil, fmt.Errorf("parser: create %q backend: %w", providerName, err)
	}

	return &anyLLMProvider{backend: backend, model: model}, nil
}

// Complete implements LLM.
func (p *anyLLMProvider) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	params := anyllmlib.CompletionParams{
		Model: p.model,
		Messages: []anyllmlib.Message{
			{Role: anyllmlib.RoleSystem, Content: systemPrompt},
			{Role: anyllmlib.RoleUser, Content: userPrompt},
		},
	}

	resp, err := p.backend.Completion(ctx, params)
	if err != nil {
		return "", fmt.Errorf("anyllm completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("anyllm: empty choices in response")
	}
	return resp.Choices[0].Message.ContentString(), nil
}

// defaultProvider lazily builds the process-wide LLM provider from
// configuration, built once and reused by every Parser that doesn't
// supply its own. Returns (nil, nil) when LLM_PROVIDER is unset:
// callers treat a nil LLM as "fallback-only parsing".
var defaultProvider = sync.OnceValues(func() (LLM, error) {
	cfg, err := config.Load("")
	if err != nil {
		return nil, err
	}
	if cfg.LLMProvider == "" {
		return nil, nil
	}
	return newAnyLLMProvider(cfg.LLMProvider, cfg.LLMModel)
})
