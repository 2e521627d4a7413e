// Package tools defines the knowledge-base search tools the agent can invoke
// during a conversation. Each tool satisfies both this package's interface
// and Eino's tool.BaseTool interface, so they can be registered directly
// with the agent.
package tools

import (
	"context"

	"github.com/singa-bi/biai-go/internal/rag"
)

// KBTool is the interface that all knowledge-base tools must satisfy.
// It extends the basic Eino tool contract with a Name accessor so the agent
// can log and route tool calls by name without type assertions.
type KBTool interface {
	// Name returns the unique tool name registered with the agent.
	Name() string

	// Description returns a human-readable description of what the tool does.
	// This text is sent to the LLM as part of the tool schema.
	Description() string
}

// Searcher dispatches filtered similarity searches against the index.
// Abstracting this lets tests inject a fake without a running vector store;
// *kb.Router is the production implementation.
type Searcher interface {
	// SearchTables returns the top table-schema chunks for query.
	SearchTables(ctx context.Context, query string, k int) ([]rag.Document, error)
	// SearchQueries returns the top business-query chunks for query.
	SearchQueries(ctx context.Context, query string, k int) ([]rag.Document, error)
	// SearchAll searches across both chunk kinds.
	SearchAll(ctx context.Context, query string, k int) ([]rag.Document, error)
}

// k bounds for a single tool call. The model sometimes asks for absurd
// counts; clamping keeps responses inside the context budget.
const (
	minTopK = 1
	maxTopK = 20
)

// clampK normalises a model-supplied result count. Zero and negative values
// fall back to def.
func clampK(k, def int) int {
	if k <= 0 {
		return def
	}
	if k < minTopK {
		return minTopK
	}
	if k > maxTopK {
		return maxTopK
	}
	return k
}
