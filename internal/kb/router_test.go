package kb

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/singa-bi/biai-go/internal/rag"
)

// fakeRetriever returns canned documents and records the last call.
type fakeRetriever struct {
	docs       []rag.Document
	err        error
	lastQuery  string
	lastTopK   int
	lastFilter rag.Filter
}

func (f *fakeRetriever) Retrieve(_ context.Context, query string, topK int, filter rag.Filter) ([]rag.Document, error) {
	f.lastQuery = query
	f.lastTopK = topK
	f.lastFilter = filter
	return f.docs, f.err
}

func Test_Router_SearchTables_Filter(t *testing.T) {
	t.Parallel()
	fake := &fakeRetriever{}
	r, err := NewRouter(fake, 0)
	if err != nil {
		t.Fatalf("NewRouter: %v", err)
	}
	if _, err := r.SearchTables(context.Background(), "注册用户", 3); err != nil {
		t.Fatalf("SearchTables: %v", err)
	}
	if fake.lastFilter["type"] != TypeTableSchema {
		t.Errorf("filter = %v, want type=%s", fake.lastFilter, TypeTableSchema)
	}
	if fake.lastTopK != 3 {
		t.Errorf("topK = %d, want 3", fake.lastTopK)
	}
}

func Test_Router_SearchQueries_Filter(t *testing.T) {
	t.Parallel()
	fake := &fakeRetriever{}
	r, err := NewRouter(fake, 7)
	if err != nil {
		t.Fatalf("NewRouter: %v", err)
	}
	if _, err := r.SearchQueries(context.Background(), "留存", 0); err != nil {
		t.Fatalf("SearchQueries: %v", err)
	}
	if fake.lastFilter["type"] != TypeBusinessQuery {
		t.Errorf("filter = %v, want type=%s", fake.lastFilter, TypeBusinessQuery)
	}
	if fake.lastTopK != 7 {
		t.Errorf("topK = %d, want default 7", fake.lastTopK)
	}
}

func Test_Router_SearchAll_NoFilter(t *testing.T) {
	t.Parallel()
	fake := &fakeRetriever{}
	r, err := NewRouter(fake, 0)
	if err != nil {
		t.Fatalf("NewRouter: %v", err)
	}
	if _, err := r.SearchAll(context.Background(), "统计", 0); err != nil {
		t.Fatalf("SearchAll: %v", err)
	}
	if fake.lastFilter != nil {
		t.Errorf("filter = %v, want nil", fake.lastFilter)
	}
	if fake.lastTopK != DefaultTopK {
		t.Errorf("topK = %d, want %d", fake.lastTopK, DefaultTopK)
	}
}

func Test_Router_EmptyQueryRejected(t *testing.T) {
	t.Parallel()
	r, err := NewRouter(&fakeRetriever{}, 0)
	if err != nil {
		t.Fatalf("NewRouter: %v", err)
	}
	if _, err := r.SearchAll(context.Background(), "  ", 5); err == nil {
		t.Error("want error for blank query")
	}
}

func Test_Router_ZeroMatchesIsNotAnError(t *testing.T) {
	t.Parallel()
	r, err := NewRouter(&fakeRetriever{docs: []rag.Document{}}, 0)
	if err != nil {
		t.Fatalf("NewRouter: %v", err)
	}
	docs, err := r.SearchTables(context.Background(), "不存在的表", 5)
	if err != nil {
		t.Fatalf("SearchTables: %v", err)
	}
	if len(docs) != 0 {
		t.Errorf("want empty result, got %d docs", len(docs))
	}
}

func Test_Router_PreservesStoreOrder(t *testing.T) {
	t.Parallel()
	// deliberately not score-sorted: the router must not re-sort
	fake := &fakeRetriever{docs: []rag.Document{
		{ID: "a", Score: 0.2},
		{ID: "b", Score: 0.9},
		{ID: "c", Score: 0.5},
	}}
	r, err := NewRouter(fake, 0)
	if err != nil {
		t.Fatalf("NewRouter: %v", err)
	}
	docs, err := r.SearchAll(context.Background(), "anything", 3)
	if err != nil {
		t.Fatalf("SearchAll: %v", err)
	}
	for i, want := range []string{"a", "b", "c"} {
		if docs[i].ID != want {
			t.Errorf("docs[%d].ID = %q, want %q", i, docs[i].ID, want)
		}
	}
}

func Test_Router_SearchAllWithScore(t *testing.T) {
	t.Parallel()
	fake := &fakeRetriever{docs: []rag.Document{
		{ID: "a", Score: 0.91},
		{ID: "b", Score: 0.40},
	}}
	r, err := NewRouter(fake, 0)
	if err != nil {
		t.Fatalf("NewRouter: %v", err)
	}
	scored, err := r.SearchAllWithScore(context.Background(), "订单统计", 2)
	if err != nil {
		t.Fatalf("SearchAllWithScore: %v", err)
	}
	if fake.lastFilter != nil {
		t.Errorf("filter = %v, want nil", fake.lastFilter)
	}
	if len(scored) != 2 {
		t.Fatalf("got %d results, want 2", len(scored))
	}
	if scored[0].Document.ID != "a" || scored[0].Score != 0.91 {
		t.Errorf("scored[0] = %+v, want doc a with score 0.91", scored[0])
	}
	if scored[1].Document.ID != "b" || scored[1].Score != 0.40 {
		t.Errorf("scored[1] = %+v, want doc b with score 0.40", scored[1])
	}
}

func Test_Router_WrapsRetrieverError(t *testing.T) {
	t.Parallel()
	sentinel := errors.New("qdrant unreachable")
	r, err := NewRouter(&fakeRetriever{err: sentinel}, 0)
	if err != nil {
		t.Fatalf("NewRouter: %v", err)
	}
	if _, err := r.SearchAll(context.Background(), "x", 1); !errors.Is(err, sentinel) {
		t.Errorf("want wrapped sentinel, got %v", err)
	}
}

func Test_FormatDocuments(t *testing.T) {
	t.Parallel()
	docs := []rag.Document{
		{
			ID:      "t1",
			Content: "表名: users\n",
			Score:   0.91,
			Metadata: map[string]string{
				"type":          TypeTableSchema,
				"table_name":    "users",
				"table_comment": "用户表",
			},
		},
		{
			ID:      "q1",
			Content: "查询ID: 408\n",
			Score:   0.72,
			Metadata: map[string]string{
				"type":       TypeBusinessQuery,
				"query_id":   "408",
				"query_name": "按小时注册统计",
				"tables":     "users",
			},
		},
	}

	out := FormatDocuments(docs, false)
	for _, want := range []string{
		"【检索结果 1】表 users (用户表)",
		"【检索结果 2】查询 #408: 按小时注册统计 [涉及表: users]",
		"表名: users",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "score=") {
		t.Error("scores rendered without withScore")
	}

	scored := FormatDocuments(docs, true)
	if !strings.Contains(scored, "score=0.9100") {
		t.Errorf("withScore output missing score:\n%s", scored)
	}
}

func Test_FormatDocuments_Empty(t *testing.T) {
	t.Parallel()
	if got := FormatDocuments(nil, false); got != "未找到相关内容" {
		t.Errorf("empty result message = %q", got)
	}
}
