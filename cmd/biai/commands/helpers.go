package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/singa-bi/biai-go/internal/embedder"
	"github.com/singa-bi/biai-go/internal/kb"
	"github.com/singa-bi/biai-go/internal/rag"
)

func getEnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvFloat64(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

// embedderConfigFromEnv assembles the embedder configuration from EMBEDDING_*
// environment variables, falling back to MODEL_PROVIDER for backend selection
// so a single-provider setup needs no extra configuration.
func embedderConfigFromEnv() embedder.Config {
	return embedder.Config{
		Provider:   getEnvOrDefault("EMBEDDING_PROVIDER", os.Getenv("MODEL_PROVIDER")),
		Model:      os.Getenv("EMBEDDING_MODEL"),
		Endpoint:   os.Getenv("EMBEDDING_ENDPOINT"),
		APIKey:     os.Getenv("EMBEDDING_API_KEY"),
		Dimensions: getEnvInt("EMBEDDING_DIMENSIONS", 0),
		APIVersion: os.Getenv("AZURE_OPENAI_API_VERSION"),
	}
}

// newQdrantStore connects to Qdrant using QDRANT_* environment variables.
// The caller owns the returned store and must Close it.
func newQdrantStore(ctx context.Context, vectorSize int, log *slog.Logger) (*rag.QdrantStore, error) {
	host := getEnvOrDefault("QDRANT_HOST", "localhost")
	port := getEnvInt("QDRANT_PORT", 6334)
	collection := getEnvOrDefault("QDRANT_COLLECTION", "biai-kb")

	store, err := rag.NewQdrantStore(ctx, &rag.QdrantConfig{
		Host:       host,
		Port:       port,
		Collection: collection,
		VectorSize: uint64(vectorSize), //nolint:gosec // dimensions are bounded
		APIKey:     os.Getenv("QDRANT_API_KEY"),
		UseTLS:     os.Getenv("QDRANT_TLS") == "true",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Qdrant at %s:%d: %w", host, port, err)
	}
	log.Info("qdrant store ready", slog.String("host", host), slog.Int("port", port), slog.String("collection", collection))
	return store, nil
}

// newRouter wires embedder, Qdrant store, and retriever into a search router.
// The returned cleanup function closes the underlying Qdrant connection.
func newRouter(ctx context.Context, log *slog.Logger) (*kb.Router, func(), error) {
	embCfg := embedderConfigFromEnv()
	if err := embedder.Validate(embCfg, log); err != nil {
		return nil, nil, err
	}
	emb, err := embedder.New(embCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialise embedder: %w", err)
	}

	store, err := newQdrantStore(ctx, embCfg.ResolvedDimensions(), log)
	if err != nil {
		return nil, nil, err
	}

	topK := getEnvInt("KB_TOP_K", kb.DefaultTopK)
	retriever, err := rag.NewRetriever(emb, store, topK)
	if err != nil {
		store.Close()
		return nil, nil, fmt.Errorf("failed to create retriever: %w", err)
	}

	router, err := kb.NewRouter(retriever, topK)
	if err != nil {
		store.Close()
		return nil, nil, fmt.Errorf("failed to create search router: %w", err)
	}

	return router, func() { _ = store.Close() }, nil
}
