package embedder

import (
	"fmt"
	"log/slog"
	"strings"
)

// knownChatModelFragments contains name fragments that identify chat models
// which are not suitable for embedding. A match means the operator probably
// pointed the embedding config at their chat model.
var knownChatModelFragments = []string{
	"gpt-4",
	"gpt-3.5",
	"gpt-35",
	"o1",
	"o3",
	"llama3",
	"llama2",
	"llama-3",
	"llama-2",
	"mistral",
	"mixtral",
	"gemma",
	"phi-",
	"phi3",
	"claude",
	"command-r",
	"deepseek",
	"qwen",
	"solar",
	"vicuna",
	"falcon",
	"yi-",
}

// looksLikeChatModel reports whether the model name resembles a known chat
// model rather than a dedicated embedding model.
func looksLikeChatModel(model string) bool {
	lower := strings.ToLower(model)
	for _, fragment := range knownChatModelFragments {
		if strings.Contains(lower, fragment) {
			return true
		}
	}
	return false
}

// Validate is a pre-flight check run before the embedder and the vector
// store are constructed, so a bad configuration fails at startup with a
// clear message instead of during the first embed call. It returns an error
// for configurations that cannot work and logs a warning when the model name
// looks like a chat model.
func Validate(cfg Config, log *slog.Logger) error {
	switch cfg.Provider {
	case "", "ollama":
		// local backend, nothing mandatory
	case "openai":
		if cfg.APIKey == "" {
			return fmt.Errorf("embedder: openai backend selected but no API key configured, set EMBEDDING_API_KEY or OPENAI_API_KEY")
		}
	case "azure":
		if cfg.APIKey == "" {
			return fmt.Errorf("embedder: azure backend selected but no API key configured, set EMBEDDING_API_KEY or AZURE_OPENAI_API_KEY")
		}
		if cfg.Endpoint == "" {
			return fmt.Errorf("embedder: azure backend selected but no endpoint configured, set EMBEDDING_ENDPOINT or AZURE_OPENAI_ENDPOINT")
		}
	default:
		return fmt.Errorf("embedder: unknown backend %q, valid values: ollama, openai, azure", cfg.Provider)
	}

	if cfg.Model != "" && looksLikeChatModel(cfg.Model) {
		log.Warn("embedder: configured model looks like a chat model, not an embedding model",
			slog.String("model", cfg.Model),
			slog.String("hint", "use a dedicated embedding model e.g. nomic-embed-text, text-embedding-3-small"),
		)
	}
	return nil
}
