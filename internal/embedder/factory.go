package embedder

import (
	"fmt"

	"github.com/singa-bi/biai-go/internal/rag"
)

// Default embedding models per backend.
const (
	defaultOllamaModel = "nomic-embed-text"
	defaultOpenAIModel = "text-embedding-3-small"

	// defaultOllamaDimensions is the output dimension of nomic-embed-text.
	defaultOllamaDimensions = 768
	// defaultOpenAIDimensions is the output dimension of text-embedding-3-small.
	defaultOpenAIDimensions = 1536
)

// Config selects and parameterises an embedding backend. It is resolved by
// the config layer (file + environment) before reaching this package.
type Config struct {
	// Provider is the backend name: ollama, openai, or azure.
	Provider string
	// Model overrides the backend's default embedding model.
	Model string
	// Endpoint overrides the backend's default base URL. For azure it is
	// the resource endpoint and is required.
	Endpoint string
	// APIKey authenticates openai and azure requests.
	APIKey string
	// Dimensions overrides the default vector length (0 = backend default).
	Dimensions int
	// APIVersion is the Azure OpenAI API version.
	APIVersion string
}

// ResolvedDimensions returns the embedding vector size the configured backend will
// produce. Callers that pre-create the vector store collection use this
// rather than hardcoding a value.
func (c Config) ResolvedDimensions() int {
	if c.Dimensions > 0 {
		return c.Dimensions
	}
	if c.Provider == "ollama" || c.Provider == "" {
		return defaultOllamaDimensions
	}
	return defaultOpenAIDimensions
}

// New constructs a rag.Embedder for the configured backend. The zero value
// selects a local Ollama instance with the default embedding model.
func New(cfg Config) (rag.Embedder, error) {
	switch cfg.Provider {
	case "", "ollama":
		host := cfg.Endpoint
		if host == "" {
			host = "http://localhost:11434"
		}
		model := cfg.Model
		if model == "" {
			model = defaultOllamaModel
		}
		return NewOllamaEmbedder(&OllamaConfig{Host: host, Model: model}), nil

	case "openai":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("embedder: openai backend requires an API key")
		}
		baseURL := cfg.Endpoint
		if baseURL == "" {
			baseURL = "https://api.openai.com/v1"
		}
		model := cfg.Model
		if model == "" {
			model = defaultOpenAIModel
		}
		return NewOpenAIEmbedder(&OpenAIConfig{
			BaseURL:    baseURL,
			APIKey:     cfg.APIKey,
			Model:      model,
			Dimensions: cfg.Dimensions,
		}), nil

	case "azure":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("embedder: azure backend requires an API key")
		}
		if cfg.Endpoint == "" {
			return nil, fmt.Errorf("embedder: azure backend requires an endpoint")
		}
		apiVersion := cfg.APIVersion
		if apiVersion == "" {
			apiVersion = "2025-04-01-preview"
		}
		model := cfg.Model
		if model == "" {
			model = defaultOpenAIModel
		}
		return NewOpenAIEmbedder(&OpenAIConfig{
			BaseURL:    cfg.Endpoint + "/openai",
			APIKey:     cfg.APIKey,
			Model:      model,
			Dimensions: cfg.Dimensions,
			Azure:      true,
			APIVersion: apiVersion,
		}), nil

	default:
		return nil, fmt.Errorf("embedder: unknown backend %q, valid values: ollama, openai, azure", cfg.Provider)
	}
}
