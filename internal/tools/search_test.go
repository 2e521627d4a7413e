package tools

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/singa-bi/biai-go/internal/rag"
)

// fakeSearcher records the last call and returns canned documents.
type fakeSearcher struct {
	docs     []rag.Document
	err      error
	lastKind string
	lastK    int
}

func (f *fakeSearcher) SearchTables(_ context.Context, query string, k int) ([]rag.Document, error) {
	f.lastKind, f.lastK = "tables", k
	return f.docs, f.err
}

func (f *fakeSearcher) SearchQueries(_ context.Context, query string, k int) ([]rag.Document, error) {
	f.lastKind, f.lastK = "queries", k
	return f.docs, f.err
}

func (f *fakeSearcher) SearchAll(_ context.Context, query string, k int) ([]rag.Document, error) {
	f.lastKind, f.lastK = "all", k
	return f.docs, f.err
}

func Test_ClampK(t *testing.T) {
	t.Parallel()
	cases := []struct {
		k, def, want int
	}{
		{0, 5, 5},
		{-3, 5, 5},
		{1, 5, 1},
		{7, 5, 7},
		{20, 5, 20},
		{100, 5, 20},
	}
	for _, tc := range cases {
		if got := clampK(tc.k, tc.def); got != tc.want {
			t.Errorf("clampK(%d, %d) = %d, want %d", tc.k, tc.def, got, tc.want)
		}
	}
}

func Test_TablesSearchTool_Run(t *testing.T) {
	t.Parallel()
	fake := &fakeSearcher{docs: []rag.Document{{
		ID:      "t1",
		Content: "表名: users",
		Metadata: map[string]string{
			"type":       "table_schema",
			"table_name": "users",
		},
	}}}
	tl := NewTablesSearchTool(fake)

	out, err := tl.InvokableRun(context.Background(), `{"query":"用户表","k":3}`)
	if err != nil {
		t.Fatalf("InvokableRun: %v", err)
	}
	if fake.lastKind != "tables" || fake.lastK != 3 {
		t.Errorf("dispatched %s/k=%d, want tables/k=3", fake.lastKind, fake.lastK)
	}
	if !strings.Contains(out, "users") {
		t.Errorf("output missing result:\n%s", out)
	}
}

func Test_SearchTools_KClamped(t *testing.T) {
	t.Parallel()
	fake := &fakeSearcher{}
	tl := NewRequirementsSearchTool(fake)

	if _, err := tl.InvokableRun(context.Background(), `{"query":"留存","k":500}`); err != nil {
		t.Fatalf("InvokableRun: %v", err)
	}
	if fake.lastK != maxTopK {
		t.Errorf("k = %d, want clamped to %d", fake.lastK, maxTopK)
	}

	if _, err := tl.InvokableRun(context.Background(), `{"query":"留存"}`); err != nil {
		t.Fatalf("InvokableRun: %v", err)
	}
	if fake.lastK != defaultToolTopK {
		t.Errorf("omitted k = %d, want default %d", fake.lastK, defaultToolTopK)
	}
}

func Test_SearchTools_RejectBadInput(t *testing.T) {
	t.Parallel()
	tl := NewAllSearchTool(&fakeSearcher{})

	if _, err := tl.InvokableRun(context.Background(), `{not json`); err == nil {
		t.Error("want error for malformed JSON")
	}
	if _, err := tl.InvokableRun(context.Background(), `{"k":3}`); err == nil {
		t.Error("want error for missing query")
	}
}

func Test_SearchTools_EmptyResultIsFriendly(t *testing.T) {
	t.Parallel()
	tl := NewAllSearchTool(&fakeSearcher{})

	out, err := tl.InvokableRun(context.Background(), `{"query":"不存在"}`)
	if err != nil {
		t.Fatalf("InvokableRun: %v", err)
	}
	if out != "未找到相关内容" {
		t.Errorf("empty result = %q", out)
	}
}

func Test_SearchTools_PropagateSearchError(t *testing.T) {
	t.Parallel()
	sentinel := errors.New("store down")
	tl := NewTablesSearchTool(&fakeSearcher{err: sentinel})

	if _, err := tl.InvokableRun(context.Background(), `{"query":"x"}`); !errors.Is(err, sentinel) {
		t.Errorf("want wrapped sentinel, got %v", err)
	}
}

func Test_ToolNames(t *testing.T) {
	t.Parallel()
	fake := &fakeSearcher{}
	names := []string{
		NewTablesSearchTool(fake).Name(),
		NewRequirementsSearchTool(fake).Name(),
		NewAllSearchTool(fake).Name(),
	}
	want := []string{"kb_search_tables", "kb_search_requirements", "kb_search_all"}
	for i, n := range names {
		if n != want[i] {
			t.Errorf("tool %d name = %q, want %q", i, n, want[i])
		}
	}
}
