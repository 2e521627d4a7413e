package kb

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/singa-bi/biai-go/internal/rag"
)

// DefaultTopK is how many documents a search returns when the caller does not
// ask for a specific count.
const DefaultTopK = 5

// Router dispatches similarity searches against the index, scoping each call
// to one chunk kind via metadata filters. Results keep the store's score
// order; the router never re-sorts.
type Router struct {
	retriever rag.Retriever
	defaultK  int
}

// NewRouter wraps a retriever. topK <= 0 selects DefaultTopK.
func NewRouter(retriever rag.Retriever, topK int) (*Router, error) {
	if retriever == nil {
		return nil, errors.New("kb: router requires a retriever")
	}
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &Router{retriever: retriever, defaultK: topK}, nil
}

// SearchTables returns the top table-schema chunks matching query. Zero
// matches yields an empty slice, not an error.
func (r *Router) SearchTables(ctx context.Context, query string, k int) ([]rag.Document, error) {
	return r.search(ctx, query, k, rag.Filter{"type": TypeTableSchema})
}

// SearchQueries returns the top business-query chunks matching query.
func (r *Router) SearchQueries(ctx context.Context, query string, k int) ([]rag.Document, error) {
	return r.search(ctx, query, k, rag.Filter{"type": TypeBusinessQuery})
}

// SearchAll searches across both chunk kinds.
func (r *Router) SearchAll(ctx context.Context, query string, k int) ([]rag.Document, error) {
	return r.search(ctx, query, k, nil)
}

// ScoredDocument pairs a retrieved document with its similarity score.
type ScoredDocument struct {
	Document rag.Document
	Score    float32
}

// SearchAllWithScore is SearchAll with each result's similarity score exposed
// alongside the document. Scores are the store's native similarity values
// (higher is closer) and are not normalised.
func (r *Router) SearchAllWithScore(ctx context.Context, query string, k int) ([]ScoredDocument, error) {
	docs, err := r.search(ctx, query, k, nil)
	if err != nil {
		return nil, err
	}
	scored := make([]ScoredDocument, len(docs))
	for i, doc := range docs {
		scored[i] = ScoredDocument{Document: doc, Score: doc.Score}
	}
	return scored, nil
}

func (r *Router) search(ctx context.Context, query string, k int, filter rag.Filter) ([]rag.Document, error) {
	if strings.TrimSpace(query) == "" {
		return nil, errors.New("kb: empty search query")
	}
	if k <= 0 {
		k = r.defaultK
	}
	docs, err := r.retriever.Retrieve(ctx, query, k, filter)
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", query, err)
	}
	return docs, nil
}

// FormatDocuments renders search results as the numbered text block handed to
// the agent. withScore appends the similarity score to each heading.
func FormatDocuments(docs []rag.Document, withScore bool) string {
	if len(docs) == 0 {
		return "未找到相关内容"
	}
	var sb strings.Builder
	for i, doc := range docs {
		if i > 0 {
			sb.WriteString("\n" + strings.Repeat("-", 60) + "\n")
		}
		fmt.Fprintf(&sb, "【检索结果 %d】%s", i+1, documentTitle(doc))
		if withScore {
			fmt.Fprintf(&sb, " (score=%.4f)", doc.Score)
		}
		sb.WriteByte('\n')
		sb.WriteString(strings.TrimRight(doc.Content, "\n"))
		sb.WriteByte('\n')
	}
	return sb.String()
}

// documentTitle builds a one-line heading from the chunk metadata.
func documentTitle(doc rag.Document) string {
	switch doc.Metadata["type"] {
	case TypeTableSchema:
		title := "表 " + doc.Metadata["table_name"]
		if c := doc.Metadata["table_comment"]; c != "" {
			title += " (" + c + ")"
		}
		return title
	case TypeBusinessQuery:
		title := "查询 #" + doc.Metadata["query_id"]
		if n := doc.Metadata["query_name"]; n != "" {
			title += ": " + n
		}
		if t := doc.Metadata["tables"]; t != "" {
			title += " [涉及表: " + t + "]"
		}
		return title
	default:
		return doc.ID
	}
}
