package commands

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/singa-bi/biai-go/internal/embedder"
	"github.com/singa-bi/biai-go/internal/kb"
	"github.com/singa-bi/biai-go/internal/queries"
	"github.com/singa-bi/biai-go/internal/schema"
)

// NewBuildCmd constructs the `biai build` command, which parses the schema
// dump and business-query records, chunks them, and indexes everything into
// the Qdrant vector store. The collection is reset first, so a rebuild always
// reflects the current input files.
func NewBuildCmd() *cobra.Command {
	var schemaFile string
	var queriesFile string

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build the knowledge base from a schema dump and query records",
		Long: `Parse a SQL schema dump and a JSON file of business-query records, then
embed and index them into the Qdrant vector store.

At least one input file is required. File paths can be given as flags or via
the BIAI_SCHEMA_FILE and BIAI_QUERIES_FILE environment variables.

Required environment variables:
  QDRANT_HOST          Qdrant server hostname (default: localhost)
  QDRANT_PORT          Qdrant gRPC port (default: 6334)
  QDRANT_COLLECTION    Collection name (default: biai-kb)
  EMBEDDING_PROVIDER   Embedding backend: ollama, openai, azure (default: ollama)
  EMBEDDING_*          Provider-specific overrides (see README)

Examples:
  biai build --schema schema.sql --queries queries.json
  biai build --schema dump/singa_bi.sql
  BIAI_QUERIES_FILE=queries.json biai build`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := slog.Default()
			start := time.Now()

			if schemaFile == "" {
				schemaFile = os.Getenv("BIAI_SCHEMA_FILE")
			}
			if queriesFile == "" {
				queriesFile = os.Getenv("BIAI_QUERIES_FILE")
			}
			if schemaFile == "" && queriesFile == "" {
				return fmt.Errorf("build: at least one of --schema or --queries is required")
			}

			var tables []schema.Table
			if schemaFile != "" {
				data, err := os.ReadFile(schemaFile)
				if err != nil {
					return fmt.Errorf("build: failed to read schema file: %w", err)
				}
				result := schema.Parse(string(data))
				for _, warn := range result.Warnings {
					log.Warn("schema parse warning", slog.String("table", warn.Table), slog.String("message", warn.Message))
				}
				tables = result.Tables
				log.Info("schema parsed", slog.String("file", schemaFile), slog.Int("tables", len(tables)), slog.Int("warnings", len(result.Warnings)))
			}

			var records []queries.Record
			if queriesFile != "" {
				data, err := os.ReadFile(queriesFile)
				if err != nil {
					return fmt.Errorf("build: failed to read queries file: %w", err)
				}
				result, err := queries.Parse(data)
				if err != nil {
					return fmt.Errorf("build: %w", err)
				}
				for _, warn := range result.Warnings {
					log.Warn("query record warning", slog.String("id", warn.ID), slog.String("message", warn.Message))
				}
				records = result.Records
				log.Info("query records loaded", slog.String("file", queriesFile), slog.Int("records", len(records)), slog.Int("warnings", len(result.Warnings)))
			}

			builder := kb.NewBuilder(&kb.BuilderConfig{
				ChunkSize:    getEnvInt("KB_CHUNK_SIZE", 0),
				ChunkOverlap: getEnvInt("KB_CHUNK_OVERLAP", 0),
				Database:     os.Getenv("KB_DATABASE"),
			})
			chunks := builder.BuildAll(tables, records)
			if len(chunks) == 0 {
				return fmt.Errorf("build: input files produced no indexable content")
			}
			log.Info("chunks built", slog.Int("chunks", len(chunks)))

			embCfg := embedderConfigFromEnv()
			if err := embedder.Validate(embCfg, log); err != nil {
				return fmt.Errorf("build: %w", err)
			}
			emb, err := embedder.New(embCfg)
			if err != nil {
				return fmt.Errorf("build: failed to initialise embedder: %w", err)
			}

			store, err := newQdrantStore(ctx, embCfg.ResolvedDimensions(), log)
			if err != nil {
				return fmt.Errorf("build: %w", err)
			}
			defer store.Close()

			writer, err := kb.NewIndexWriter(emb, store, &kb.IndexConfig{
				BatchSize:        getEnvInt("KB_BATCH_SIZE", kb.DefaultBatchSize),
				BatchesPerSecond: getEnvFloat64("KB_EMBED_RATE", 0),
			})
			if err != nil {
				return fmt.Errorf("build: %w", err)
			}

			log.Info("indexing started", slog.Int("chunks", len(chunks)))
			report, err := writer.Write(ctx, chunks)
			if err != nil {
				return fmt.Errorf("build: indexing failed: %w", err)
			}

			for _, f := range report.Failed {
				log.Warn("chunk failed", slog.String("id", f.ID), slog.String("reason", f.Reason))
			}

			elapsed := time.Since(start)
			writeBuildStats(log, buildStats{
				Tables:          len(tables),
				QueryRecords:    len(records),
				ChunksAttempted: report.Attempted,
				ChunksWritten:   report.Written,
				ChunksFailed:    len(report.Failed),
				DurationSeconds: elapsed.Seconds(),
				FinishedAt:      time.Now().UTC().Format(time.RFC3339),
			})

			fmt.Printf("indexed %d/%d chunks (%d tables, %d queries, %d failed) in %s\n",
				report.Written, report.Attempted, len(tables), len(records), len(report.Failed), elapsed.Round(time.Millisecond))
			if len(report.Failed) > 0 {
				return fmt.Errorf("build: %d of %d chunks failed to index", len(report.Failed), report.Attempted)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&schemaFile, "schema", "s", "", "Path to the SQL schema dump")
	cmd.Flags().StringVarP(&queriesFile, "queries", "q", "", "Path to the JSON business-query records")

	return cmd
}

// buildStats is the summary of a knowledge-base build, persisted to
// ~/.biai/build_stats.json after each run.
type buildStats struct {
	Tables          int     `json:"tables"`
	QueryRecords    int     `json:"query_records"`
	ChunksAttempted int     `json:"chunks_attempted"`
	ChunksWritten   int     `json:"chunks_written"`
	ChunksFailed    int     `json:"chunks_failed"`
	DurationSeconds float64 `json:"duration_seconds"`
	FinishedAt      string  `json:"finished_at"`
}

// writeBuildStats records the build summary next to the other biai state
// files. Failure to persist is logged but never fails the build.
func writeBuildStats(log *slog.Logger, stats buildStats) {
	home, err := os.UserHomeDir()
	if err != nil {
		log.Warn("stats: could not resolve home directory", slog.Any("error", err))
		return
	}
	dir := filepath.Join(home, ".biai")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		log.Warn("stats: could not create state directory", slog.Any("error", err))
		return
	}
	data, err := json.MarshalIndent(stats, "", "  ")
	if err != nil {
		log.Warn("stats: could not encode build stats", slog.Any("error", err))
		return
	}
	path := filepath.Join(dir, "build_stats.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		log.Warn("stats: could not write build stats", slog.Any("error", err))
		return
	}
	log.Info("build stats written", slog.String("path", path))
}
