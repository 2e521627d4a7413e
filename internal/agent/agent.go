// Package agent wires together the Eino ReAct agent with the knowledge-base
// search tools to form the conversational database assistant. The agent
// handles the full ReAct loop: it decides when to call the search tools,
// when to search again with a refined query, and when to answer directly.
package agent

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/flow/agent/react"
	"github.com/cloudwego/eino/schema"

	"github.com/singa-bi/biai-go/internal/budget"
	"github.com/singa-bi/biai-go/internal/logging"
	"github.com/singa-bi/biai-go/internal/store"
)

// systemPrompt establishes the assistant's persona and how it should use the
// knowledge-base tools.
const systemPrompt = `你是一个专业的数据库助手，负责回答关于数据库表结构和SQL查询的问题。

你的职责：
1. 使用检索工具查找相关信息：
   - kb_search_tables：查找表结构 (字段、注释、索引、DDL)
   - kb_search_requirements：查找历史业务查询需求及其SQL
   - kb_search_all：不确定时在两个库中同时检索
2. 基于检索到的信息准确回答用户问题
3. 如果信息不足，可以多次使用工具检索
4. 用清晰、专业的中文回答

注意事项：
- 对于表结构问题，详细说明字段含义
- 对于SQL问题，解释业务需求和实现逻辑
- 编写新SQL时，先检索相关表结构确认字段存在
- 如果检索不到信息，诚实告知用户`

// Config holds the dependencies required to construct a KBAgent.
type Config struct {
	// ChatModel is the LLM backend constructed by the provider factory.
	ChatModel model.ToolCallingChatModel

	// Tools is the list of knowledge-base tools available to the agent.
	Tools []tool.BaseTool

	// History is the optional conversation store used to persist and replay
	// prior turns. If nil, each query is stateless.
	History store.ConversationStore

	// HistoryDepth is the number of prior turns (user+assistant pairs) to
	// inject per query. Defaults to 10 if zero.
	HistoryDepth int

	// MaxContextTokens is the estimated token budget for the full input
	// context. History is trimmed oldest-first to fit. Defaults to
	// budget.DefaultMaxContextTokens if zero.
	MaxContextTokens int
}

// KBAgent wraps the Eino ReAct agent with the database-assistant behaviour:
// tool-driven retrieval plus optional persisted multi-turn history.
type KBAgent struct {
	reactAgent       *react.Agent
	history          store.ConversationStore
	historyDepth     int
	maxContextTokens int
}

// New constructs a KBAgent from the provided Config.
func New(ctx context.Context, cfg *Config) (*KBAgent, error) {
	if cfg.ChatModel == nil {
		return nil, fmt.Errorf("agent: ChatModel must not be nil")
	}

	reactAgent, err := react.NewAgent(ctx, &react.AgentConfig{
		ToolCallingModel: cfg.ChatModel,
		ToolsConfig: compose.ToolsNodeConfig{
			Tools: cfg.Tools,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("agent: failed to create ReAct agent: %w", err)
	}

	depth := cfg.HistoryDepth
	if depth <= 0 {
		depth = 10
	}
	maxCtx := cfg.MaxContextTokens
	if maxCtx <= 0 {
		maxCtx = budget.DefaultMaxContextTokens
	}

	return &KBAgent{
		reactAgent:       reactAgent,
		history:          cfg.History,
		historyDepth:     depth,
		maxContextTokens: maxCtx,
	}, nil
}

// Query sends a user message to the agent and streams the response to w.
// If a conversation store is configured, prior turns for the session are
// injected and the new user message and assistant response are persisted
// after completion.
func (a *KBAgent) Query(ctx context.Context, session, userMessage string, w io.Writer) error {
	messages := a.buildMessages(ctx, session, userMessage)

	sr, err := a.reactAgent.Stream(ctx, messages)
	if err != nil {
		return fmt.Errorf("agent: stream failed: %w", err)
	}
	defer sr.Close()

	var msgBuf strings.Builder
	for {
		msg, err := sr.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("agent: stream receive error: %w", err)
		}
		if msg == nil || msg.Content == "" {
			continue
		}
		if _, err := fmt.Fprint(w, msg.Content); err != nil {
			return fmt.Errorf("agent: write error: %w", err)
		}
		msgBuf.WriteString(msg.Content)
	}

	// Persist the turn to the conversation store (non-fatal on error).
	if a.history != nil {
		if err := a.history.Append(ctx, session, store.RoleUser, userMessage); err != nil {
			logging.FromContext(ctx).Warn("history: failed to persist user message", slog.Any("error", err))
		}
		if err := a.history.Append(ctx, session, store.RoleAssistant, msgBuf.String()); err != nil {
			logging.FromContext(ctx).Warn("history: failed to persist assistant message", slog.Any("error", err))
		}
	}
	return nil
}

// buildMessages constructs the message slice for the agent: system prompt,
// trimmed session history, then the current user message.
func (a *KBAgent) buildMessages(ctx context.Context, session, userMessage string) []*schema.Message {
	system := schema.SystemMessage(systemPrompt)

	var historyMsgs []*schema.Message
	if a.history != nil {
		prior, err := a.history.Recent(ctx, session, a.historyDepth*2)
		if err != nil {
			logging.FromContext(ctx).Warn("history: failed to load prior messages", slog.Any("error", err))
		} else {
			for _, m := range prior {
				switch m.Role {
				case store.RoleUser:
					historyMsgs = append(historyMsgs, schema.UserMessage(m.Content))
				case store.RoleAssistant:
					historyMsgs = append(historyMsgs, schema.AssistantMessage(m.Content, nil))
				}
			}
		}
	}

	user := schema.UserMessage(userMessage)

	// Trim history oldest-first so the estimated total fits the budget.
	fixed := []*schema.Message{system, user}
	before := len(historyMsgs)
	historyMsgs = budget.TrimHistory(fixed, historyMsgs, a.maxContextTokens)
	if dropped := before - len(historyMsgs); dropped > 0 {
		logging.FromContext(ctx).Warn("budget: dropped history messages to fit context window",
			slog.Int("dropped", dropped),
			slog.Int("retained", len(historyMsgs)),
			slog.Int("max_tokens", a.maxContextTokens),
		)
	}

	result := make([]*schema.Message, 0, 2+len(historyMsgs))
	result = append(result, system)
	result = append(result, historyMsgs...)
	result = append(result, user)
	return result
}
