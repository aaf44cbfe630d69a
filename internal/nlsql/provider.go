// Package nlsql implements the NL-to-SQL Generator (C7): it builds a
// bounded, schema-aware prompt from catalogued metadata, invokes an
// external LLM, and extracts a single candidate SQL statement from the
// response. The extracted SQL is never trusted — it is handed to the
// SQL AST Parser/Validator exactly like user-submitted SQL, with zero
// privilege and zero bypass.
package nlsql

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// ProviderType identifies which LLM backend a Provider talks to.
type ProviderType string

const (
	ProviderTypeOpenAI ProviderType = "openai"
	ProviderTypeAzure  ProviderType = "azure"
	ProviderTypeOllama ProviderType = "ollama"
)

// ProviderConfig is the provider selection + credentials bundle, kept
// generic (a string map) the same way the teacher's AI provider
// factory takes provider-specific keys without a different Config type
// per provider.
type ProviderConfig struct {
	Name        string
	DisplayName string
	Type        ProviderType
	Model       string
	Config      map[string]string // api_key, endpoint, deployment_name, etc.
}

// Completion is the raw model output plus token accounting.
type Completion struct {
	Text             string
	PromptTokens     int
	CompletionTokens int
}

// Provider is the interface every LLM backend implements. Narrower than
// the teacher's chat-with-tools Provider interface since this generator
// only ever needs a single-shot completion, never streaming or tool
// calls.
type Provider interface {
	Name() string
	Type() ProviderType
	Complete(ctx context.Context, systemPrompt, userPrompt string) (*Completion, error)
	ValidateConfig() error
	Close() error
}

// NewProvider creates a Provider from config, dispatching on Type the
// same way the teacher's ai.NewProvider factory does.
func NewProvider(config ProviderConfig) (Provider, error) {
	switch config.Type {
	case ProviderTypeOpenAI:
		return newOpenAIProvider(config)
	case ProviderTypeAzure:
		return newAzureProvider(config)
	case ProviderTypeOllama:
		return newOllamaProvider(config)
	default:
		return nil, fmt.Errorf("nlsql: unknown provider type %q", config.Type)
	}
}

// openAIProvider implements Provider against the OpenAI chat completions
// API via the go-openai client.
type openAIProvider struct {
	name   string
	model  string
	client *openai.Client
}

func newOpenAIProvider(config ProviderConfig) (*openAIProvider, error) {
	apiKey := config.Config["api_key"]
	if apiKey == "" {
		return nil, fmt.Errorf("nlsql: openai provider requires config[\"api_key\"]")
	}
	model := config.Model
	if model == "" {
		model = openai.GPT4oMini
	}

	clientConfig := openai.DefaultConfig(apiKey)
	if baseURL := config.Config["base_url"]; baseURL != "" {
		clientConfig.BaseURL = baseURL
	}

	return &openAIProvider{
		name:   config.Name,
		model:  model,
		client: openai.NewClientWithConfig(clientConfig),
	}, nil
}

func (p *openAIProvider) Name() string         { return p.name }
func (p *openAIProvider) Type() ProviderType   { return ProviderTypeOpenAI }
func (p *openAIProvider) ValidateConfig() error { return nil }
func (p *openAIProvider) Close() error          { return nil }

func (p *openAIProvider) Complete(ctx context.Context, systemPrompt, userPrompt string) (*Completion, error) {
	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
		Temperature: 0,
	})
	if err != nil {
		return nil, fmt.Errorf("nlsql: openai completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("nlsql: openai returned no choices")
	}
	return &Completion{
		Text:             resp.Choices[0].Message.Content,
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
	}, nil
}

// azureProvider implements Provider against Azure OpenAI, which speaks
// the same chat-completions shape behind a deployment-scoped endpoint.
type azureProvider struct {
	name   string
	model  string
	client *openai.Client
}

func newAzureProvider(config ProviderConfig) (*azureProvider, error) {
	apiKey := config.Config["api_key"]
	endpoint := config.Config["endpoint"]
	deployment := config.Config["deployment_name"]
	if apiKey == "" || endpoint == "" || deployment == "" {
		return nil, fmt.Errorf("nlsql: azure provider requires config[\"api_key\"], config[\"endpoint\"] and config[\"deployment_name\"]")
	}

	clientConfig := openai.DefaultAzureConfig(apiKey, endpoint)
	clientConfig.AzureModelMapperFunc = func(model string) string { return deployment }

	return &azureProvider{
		name:   config.Name,
		model:  deployment,
		client: openai.NewClientWithConfig(clientConfig),
	}, nil
}

func (p *azureProvider) Name() string         { return p.name }
func (p *azureProvider) Type() ProviderType   { return ProviderTypeAzure }
func (p *azureProvider) ValidateConfig() error { return nil }
func (p *azureProvider) Close() error          { return nil }

func (p *azureProvider) Complete(ctx context.Context, systemPrompt, userPrompt string) (*Completion, error) {
	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
		Temperature: 0,
	})
	if err != nil {
		return nil, fmt.Errorf("nlsql: azure completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("nlsql: azure returned no choices")
	}
	return &Completion{
		Text:             resp.Choices[0].Message.Content,
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
	}, nil
}

// ollamaProvider implements Provider against a local Ollama server's
// OpenAI-compatible endpoint.
type ollamaProvider struct {
	name   string
	model  string
	client *openai.Client
}

func newOllamaProvider(config ProviderConfig) (*ollamaProvider, error) {
	endpoint := config.Config["endpoint"]
	if endpoint == "" {
		endpoint = "http://localhost:11434/v1"
	}
	model := config.Model
	if model == "" {
		return nil, fmt.Errorf("nlsql: ollama provider requires model")
	}

	clientConfig := openai.DefaultConfig("ollama")
	clientConfig.BaseURL = endpoint

	return &ollamaProvider{
		name:   config.Name,
		model:  model,
		client: openai.NewClientWithConfig(clientConfig),
	}, nil
}

func (p *ollamaProvider) Name() string         { return p.name }
func (p *ollamaProvider) Type() ProviderType   { return ProviderTypeOllama }
func (p *ollamaProvider) ValidateConfig() error { return nil }
func (p *ollamaProvider) Close() error          { return nil }

func (p *ollamaProvider) Complete(ctx context.Context, systemPrompt, userPrompt string) (*Completion, error) {
	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
		Temperature: 0,
	})
	if err != nil {
		return nil, fmt.Errorf("nlsql: ollama completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("nlsql: ollama returned no choices")
	}
	return &Completion{
		Text:             resp.Choices[0].Message.Content,
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
	}, nil
}

var (
	_ Provider = (*openAIProvider)(nil)
	_ Provider = (*azureProvider)(nil)
	_ Provider = (*ollamaProvider)(nil)
)
