package commands

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/singa-bi/biai-go/internal/kb"
	"github.com/singa-bi/biai-go/internal/rag"
)

// NewSearchCmd constructs the `biai search` command, which runs a one-off
// semantic search against the knowledge base without involving the LLM.
// Useful for inspecting what the agent would retrieve.
func NewSearchCmd() *cobra.Command {
	var kind string
	var topK int
	var withScore bool

	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search the knowledge base directly",
		Long: `Run a semantic search against the indexed knowledge base and print the
matching chunks. No LLM is involved; this queries Qdrant directly.

The --type flag selects which part of the knowledge base to search:
  tables    table schemas only
  queries   business-query records only
  all       both (default)

Examples:
  biai search "订单表有哪些字段"
  biai search --type tables --k 3 "用户相关的表"
  biai search --type queries --with-score "月度销售统计"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := slog.Default()

			router, closeRouter, err := newRouter(ctx, log)
			if err != nil {
				return fmt.Errorf("search: %w", err)
			}
			defer closeRouter()

			query := strings.Join(args, " ")

			var docs []rag.Document
			switch kind {
			case "tables":
				docs, err = router.SearchTables(ctx, query, topK)
			case "queries":
				docs, err = router.SearchQueries(ctx, query, topK)
			case "all":
				if withScore {
					var scored []kb.ScoredDocument
					scored, err = router.SearchAllWithScore(ctx, query, topK)
					for _, s := range scored {
						docs = append(docs, s.Document)
					}
				} else {
					docs, err = router.SearchAll(ctx, query, topK)
				}
			default:
				return fmt.Errorf("search: unknown --type %q (valid: tables, queries, all)", kind)
			}
			if err != nil {
				return fmt.Errorf("search: %w", err)
			}

			fmt.Println(kb.FormatDocuments(docs, withScore))
			return nil
		},
	}

	cmd.Flags().StringVarP(&kind, "type", "t", "all", "Knowledge-base section to search (tables, queries, all)")
	cmd.Flags().IntVarP(&topK, "k", "k", 0, "Number of results to return (default: KB_TOP_K or 5)")
	cmd.Flags().BoolVar(&withScore, "with-score", false, "Include similarity scores in the output")

	return cmd
}
