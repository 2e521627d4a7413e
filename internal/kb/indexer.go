package kb

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/singa-bi/biai-go/internal/rag"
)

// DefaultBatchSize is how many chunks are embedded and upserted per request.
const DefaultBatchSize = 32

// IndexConfig controls batching and embedding throughput.
type IndexConfig struct {
	// BatchSize is the number of chunks per embed/upsert round trip. Zero
	// means DefaultBatchSize.
	BatchSize int
	// BatchesPerSecond throttles embedding requests. Zero disables the
	// limiter.
	BatchesPerSecond float64
}

// ChunkFailure records one chunk that could not be indexed.
type ChunkFailure struct {
	// ID is the chunk's stable id.
	ID string
	// Reason is the failure cause.
	Reason string
}

// BuildReport summarises one index build.
type BuildReport struct {
	// Attempted is the total number of chunks submitted.
	Attempted int
	// Written is how many chunks were embedded and upserted.
	Written int
	// Failed lists the chunks that could not be indexed.
	Failed []ChunkFailure
}

// IndexWriter embeds chunks and writes them into the vector store. A build
// replaces the collection contents: the store is reset before the first
// batch, and stable chunk ids keep repeated builds idempotent.
type IndexWriter struct {
	embedder  rag.Embedder
	store     rag.VectorStore
	batchSize int
	limiter   *rate.Limiter
}

// NewIndexWriter wires an embedder and a store into an IndexWriter. A nil cfg
// selects the defaults.
func NewIndexWriter(embedder rag.Embedder, store rag.VectorStore, cfg *IndexConfig) (*IndexWriter, error) {
	if embedder == nil {
		return nil, errors.New("kb: index writer requires an embedder")
	}
	if store == nil {
		return nil, errors.New("kb: index writer requires a vector store")
	}
	w := &IndexWriter{
		embedder:  embedder,
		store:     store,
		batchSize: DefaultBatchSize,
	}
	if cfg != nil && cfg.BatchSize > 0 {
		w.batchSize = cfg.BatchSize
	}
	if cfg != nil && cfg.BatchesPerSecond > 0 {
		w.limiter = rate.NewLimiter(rate.Limit(cfg.BatchesPerSecond), 1)
	}
	return w, nil
}

// Write rebuilds the index from chunks. Failures in one batch are recorded in
// the report and do not stop later batches; only a failed reset or a
// cancelled context aborts the build.
func (w *IndexWriter) Write(ctx context.Context, chunks []Chunk) (*BuildReport, error) {
	if err := w.store.Reset(ctx); err != nil {
		return nil, fmt.Errorf("reset collection: %w", err)
	}

	report := &BuildReport{Attempted: len(chunks)}
	for start := 0; start < len(chunks); start += w.batchSize {
		end := min(start+w.batchSize, len(chunks))
		batch := chunks[start:end]

		if w.limiter != nil {
			if err := w.limiter.Wait(ctx); err != nil {
				return report, err
			}
		}
		if err := ctx.Err(); err != nil {
			return report, err
		}

		texts := make([]string, len(batch))
		for i, c := range batch {
			texts[i] = c.Text()
		}
		embeddings, err := w.embedder.Embed(ctx, texts)
		if err != nil {
			w.recordBatchFailure(report, batch, fmt.Errorf("embed: %w", err))
			continue
		}
		if len(embeddings) != len(batch) {
			w.recordBatchFailure(report, batch,
				fmt.Errorf("embed: got %d vectors for %d texts", len(embeddings), len(batch)))
			continue
		}

		docs := make([]rag.Document, len(batch))
		for i, c := range batch {
			docs[i] = rag.Document{
				ID:       c.StableID(),
				Content:  c.Text(),
				Metadata: c.Metadata(),
			}
		}
		if err := w.store.Upsert(ctx, docs, embeddings); err != nil {
			w.recordBatchFailure(report, batch, fmt.Errorf("upsert: %w", err))
			continue
		}
		report.Written += len(batch)
	}
	return report, nil
}

func (w *IndexWriter) recordBatchFailure(report *BuildReport, batch []Chunk, err error) {
	for _, c := range batch {
		report.Failed = append(report.Failed, ChunkFailure{
			ID:     c.StableID(),
			Reason: err.Error(),
		})
	}
}
