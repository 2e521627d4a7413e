package commands

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components/tool"
	"github.com/spf13/cobra"

	"github.com/singa-bi/biai-go/internal/agent"
	"github.com/singa-bi/biai-go/internal/logging"
	"github.com/singa-bi/biai-go/internal/provider"
	"github.com/singa-bi/biai-go/internal/store"
	"github.com/singa-bi/biai-go/internal/tools"
	"github.com/singa-bi/biai-go/internal/tracing"
)

// NewChatCmd constructs the `biai chat` command, which starts the database
// assistant. With a question argument it answers once and exits; without
// arguments it drops into an interactive REPL with persisted history.
func NewChatCmd() *cobra.Command {
	var session string

	cmd := &cobra.Command{
		Use:   "chat [question]",
		Short: "Chat with the database assistant",
		Long: `Ask the BI-AI agent natural language questions about your database.

The agent searches the indexed knowledge base (table schemas and historical
business queries) and answers in Chinese. Run 'biai build' first to populate
the knowledge base.

With a question argument the agent answers once and exits. Without arguments
an interactive session starts; type 'exit' or 'quit' to leave. Conversation
history is stored per session in a local SQLite database
(BIAI_HISTORY_DB, default ~/.biai/history.db, set to 'disabled' to turn off).

Examples:
  biai chat "orders表的status字段有哪些取值?"
  biai chat --session reporting
  MODEL_PROVIDER=openai biai chat`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			log := logging.New(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"))
			ctx = logging.WithLogger(ctx, log)

			// Setup Langfuse tracing — opt-in, no-op if keys are absent.
			handler, flush, ok := tracing.Setup()
			if ok {
				callbacks.AppendGlobalHandlers(handler)
				defer flush()
				log.Info("langfuse tracing enabled")
			}

			providerCfg := provider.ConfigFromEnv()
			chatModel, err := provider.New(ctx, providerCfg)
			if err != nil {
				return fmt.Errorf("chat: failed to initialise model provider: %w", err)
			}
			log.Info("provider initialised", slog.String("provider", string(providerCfg.Backend)))

			router, closeRouter, err := newRouter(ctx, log)
			if err != nil {
				return fmt.Errorf("chat: %w", err)
			}
			defer closeRouter()

			agentTools := []tool.BaseTool{
				tools.NewTablesSearchTool(router),
				tools.NewRequirementsSearchTool(router),
				tools.NewAllSearchTool(router),
			}

			// Open conversation history store. BIAI_HISTORY_DB overrides the
			// default path (~/.biai/history.db). Set to "disabled" to turn off.
			var historyStore store.ConversationStore
			dbPath := os.Getenv("BIAI_HISTORY_DB")
			if dbPath != "disabled" {
				if dbPath == "" {
					dbPath, err = store.DefaultDBPath()
					if err != nil {
						log.Warn("history: could not resolve default DB path, disabling", slog.Any("error", err))
					}
				}
				if dbPath != "" {
					hs, hsErr := store.Open(dbPath)
					if hsErr != nil {
						log.Warn("history: failed to open store, disabling", slog.Any("error", hsErr))
					} else {
						historyStore = hs
						defer func() { _ = hs.Close() }()
						log.Info("history: store opened", slog.String("path", dbPath))
					}
				}
			} else {
				log.Info("history: disabled via BIAI_HISTORY_DB=disabled")
			}

			kbAgent, err := agent.New(ctx, &agent.Config{
				ChatModel: chatModel,
				Tools:     agentTools,
				History:   historyStore,
			})
			if err != nil {
				return fmt.Errorf("chat: failed to initialise agent: %w", err)
			}

			if len(args) > 0 {
				question := strings.Join(args, " ")
				if err := kbAgent.Query(ctx, session, question, os.Stdout); err != nil {
					return err //nolint:wrapcheck // CLI entry point — error goes directly to cobra
				}
				fmt.Println()
				return nil
			}

			return repl(ctx, kbAgent, session)
		},
	}

	cmd.Flags().StringVar(&session, "session", "default", "Conversation session name for history isolation")

	return cmd
}

// repl runs the interactive read-eval-print loop until EOF, an exit command,
// or context cancellation.
func repl(ctx context.Context, kbAgent *agent.KBAgent, session string) error {
	fmt.Println("BI-AI 数据库助手 (输入 exit 或 quit 退出)")

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for {
		select {
		case <-ctx.Done():
			fmt.Println()
			return nil
		default:
		}

		fmt.Print("> ")
		if !scanner.Scan() {
			fmt.Println()
			return scanner.Err() //nolint:wrapcheck // CLI entry point
		}

		question := strings.TrimSpace(scanner.Text())
		if question == "" {
			continue
		}
		if question == "exit" || question == "quit" {
			return nil
		}

		if err := kbAgent.Query(ctx, session, question, os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			continue
		}
		fmt.Println()
	}
}
