package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"

	"github.com/singa-bi/biai-go/internal/kb"
)

// defaultToolTopK is the result count used when the model omits k.
const defaultToolTopK = 5

// searchInput is the JSON-serialisable input schema shared by the search tools.
type searchInput struct {
	// Query is the natural-language search text.
	Query string `json:"query"`

	// K is the desired number of results (optional).
	K int `json:"k,omitempty"`
}

// queryParams is the shared Eino parameter schema for the search tools.
func queryParams(queryDesc string) *schema.ParamsOneOf {
	return schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
		"query": {
			Type:     schema.String,
			Desc:     queryDesc,
			Required: true,
		},
		"k": {
			Type: schema.Integer,
			Desc: fmt.Sprintf("Number of results to return (%d-%d, default %d).", minTopK, maxTopK, defaultToolTopK),
		},
	})
}

// decodeSearchInput parses and validates a tool invocation payload.
func decodeSearchInput(toolName, argumentsInJSON string) (searchInput, error) {
	var input searchInput
	if err := json.Unmarshal([]byte(argumentsInJSON), &input); err != nil {
		return input, fmt.Errorf("%s: invalid input: %w", toolName, err)
	}
	if input.Query == "" {
		return input, fmt.Errorf("%s: query is required", toolName)
	}
	input.K = clampK(input.K, defaultToolTopK)
	return input, nil
}

// TablesSearchTool searches table-schema chunks.
type TablesSearchTool struct {
	searcher Searcher
}

// NewTablesSearchTool constructs a TablesSearchTool over the given Searcher.
func NewTablesSearchTool(searcher Searcher) *TablesSearchTool {
	return &TablesSearchTool{searcher: searcher}
}

// Name returns the tool name registered with the agent.
func (t *TablesSearchTool) Name() string { return "kb_search_tables" }

// Description returns the LLM-facing description of this tool.
func (t *TablesSearchTool) Description() string {
	return "搜索数据库表结构知识库。输入表名、字段名或业务概念的描述, " +
		"返回最相关的表的结构信息 (字段、注释、索引、DDL)。"
}

// Info returns the Eino tool metadata including the JSON input schema.
func (t *TablesSearchTool) Info(ctx context.Context) (*schema.ToolInfo, error) {
	return &schema.ToolInfo{
		Name:        t.Name(),
		Desc:        t.Description(),
		ParamsOneOf: queryParams("要查找的表、字段或业务概念的描述。"),
	}, nil
}

// InvokableRun executes the search and returns the formatted results.
func (t *TablesSearchTool) InvokableRun(ctx context.Context, argumentsInJSON string, opts ...tool.Option) (string, error) {
	input, err := decodeSearchInput(t.Name(), argumentsInJSON)
	if err != nil {
		return "", err
	}
	docs, err := t.searcher.SearchTables(ctx, input.Query, input.K)
	if err != nil {
		return "", fmt.Errorf("%s: %w", t.Name(), err)
	}
	return kb.FormatDocuments(docs, false), nil
}

// RequirementsSearchTool searches business-query chunks.
type RequirementsSearchTool struct {
	searcher Searcher
}

// NewRequirementsSearchTool constructs a RequirementsSearchTool.
func NewRequirementsSearchTool(searcher Searcher) *RequirementsSearchTool {
	return &RequirementsSearchTool{searcher: searcher}
}

// Name returns the tool name registered with the agent.
func (t *RequirementsSearchTool) Name() string { return "kb_search_requirements" }

// Description returns the LLM-facing description of this tool.
func (t *RequirementsSearchTool) Description() string {
	return "搜索业务查询需求知识库。输入业务问题的描述, " +
		"返回最相关的历史查询需求及其 SQL 语句, 可作为编写新查询的参考。"
}

// Info returns the Eino tool metadata including the JSON input schema.
func (t *RequirementsSearchTool) Info(ctx context.Context) (*schema.ToolInfo, error) {
	return &schema.ToolInfo{
		Name:        t.Name(),
		Desc:        t.Description(),
		ParamsOneOf: queryParams("业务问题或需求的描述。"),
	}, nil
}

// InvokableRun executes the search and returns the formatted results.
func (t *RequirementsSearchTool) InvokableRun(ctx context.Context, argumentsInJSON string, opts ...tool.Option) (string, error) {
	input, err := decodeSearchInput(t.Name(), argumentsInJSON)
	if err != nil {
		return "", err
	}
	docs, err := t.searcher.SearchQueries(ctx, input.Query, input.K)
	if err != nil {
		return "", fmt.Errorf("%s: %w", t.Name(), err)
	}
	return kb.FormatDocuments(docs, false), nil
}

// AllSearchTool searches across both chunk kinds at once.
type AllSearchTool struct {
	searcher Searcher
}

// NewAllSearchTool constructs an AllSearchTool.
func NewAllSearchTool(searcher Searcher) *AllSearchTool {
	return &AllSearchTool{searcher: searcher}
}

// Name returns the tool name registered with the agent.
func (t *AllSearchTool) Name() string { return "kb_search_all" }

// Description returns the LLM-facing description of this tool.
func (t *AllSearchTool) Description() string {
	return "同时搜索表结构和业务查询两个知识库。当不确定答案在哪个库时使用。"
}

// Info returns the Eino tool metadata including the JSON input schema.
func (t *AllSearchTool) Info(ctx context.Context) (*schema.ToolInfo, error) {
	return &schema.ToolInfo{
		Name:        t.Name(),
		Desc:        t.Description(),
		ParamsOneOf: queryParams("要搜索的问题描述。"),
	}, nil
}

// InvokableRun executes the search and returns the formatted results.
func (t *AllSearchTool) InvokableRun(ctx context.Context, argumentsInJSON string, opts ...tool.Option) (string, error) {
	input, err := decodeSearchInput(t.Name(), argumentsInJSON)
	if err != nil {
		return "", err
	}
	docs, err := t.searcher.SearchAll(ctx, input.Query, input.K)
	if err != nil {
		return "", fmt.Errorf("%s: %w", t.Name(), err)
	}
	return kb.FormatDocuments(docs, false), nil
}
