package rag

import (
	"context"
	"errors"
	"testing"
)

type stubEmbedder struct {
	lastTexts []string
	err       error
}

func (e *stubEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	e.lastTexts = texts
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{0.1, 0.2, 0.3}
	}
	return out, nil
}

type stubStore struct {
	lastTopK   int
	lastFilter Filter
	docs       []Document
	searchErr  error
}

func (s *stubStore) Upsert(context.Context, []Document, [][]float32) error { return nil }
func (s *stubStore) Reset(context.Context) error                          { return nil }
func (s *stubStore) Count(context.Context) (uint64, error)                { return 0, nil }
func (s *stubStore) Close() error                                         { return nil }

func (s *stubStore) Search(_ context.Context, _ []float32, topK int, filter Filter) ([]Document, error) {
	s.lastTopK = topK
	s.lastFilter = filter
	if s.searchErr != nil {
		return nil, s.searchErr
	}
	return s.docs, nil
}

func Test_Retrieve_PassesQueryAndFilter(t *testing.T) {
	t.Parallel()

	emb := &stubEmbedder{}
	st := &stubStore{docs: []Document{{ID: "a", Content: "表名: users"}}}

	r, err := NewRetriever(emb, st, 5)
	if err != nil {
		t.Fatalf("NewRetriever() error = %v", err)
	}

	docs, err := r.Retrieve(context.Background(), "用户表结构", 3, Filter{"type": "table_schema"})
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if len(docs) != 1 || docs[0].ID != "a" {
		t.Errorf("Retrieve() docs = %+v, want single doc a", docs)
	}
	if len(emb.lastTexts) != 1 || emb.lastTexts[0] != "用户表结构" {
		t.Errorf("embedded texts = %v, want the query", emb.lastTexts)
	}
	if st.lastTopK != 3 {
		t.Errorf("store topK = %d, want 3", st.lastTopK)
	}
	if st.lastFilter["type"] != "table_schema" {
		t.Errorf("store filter = %v, want type=table_schema", st.lastFilter)
	}
}

func Test_Retrieve_ZeroTopKUsesDefault(t *testing.T) {
	t.Parallel()

	st := &stubStore{}
	r, err := NewRetriever(&stubEmbedder{}, st, 7)
	if err != nil {
		t.Fatalf("NewRetriever() error = %v", err)
	}

	if _, err := r.Retrieve(context.Background(), "orders", 0, nil); err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if st.lastTopK != 7 {
		t.Errorf("store topK = %d, want default 7", st.lastTopK)
	}
}

func Test_Retrieve_EmbedderErrorIsWrapped(t *testing.T) {
	t.Parallel()

	wantErr := errors.New("connection refused")
	r, err := NewRetriever(&stubEmbedder{err: wantErr}, &stubStore{}, 5)
	if err != nil {
		t.Fatalf("NewRetriever() error = %v", err)
	}

	_, err = r.Retrieve(context.Background(), "orders", 0, nil)
	if !errors.Is(err, wantErr) {
		t.Errorf("Retrieve() error = %v, want wrapping %v", err, wantErr)
	}
}

func Test_NewRetriever_NilDependencies(t *testing.T) {
	t.Parallel()

	if _, err := NewRetriever(nil, &stubStore{}, 5); err == nil {
		t.Error("NewRetriever(nil embedder) error = nil, want error")
	}
	if _, err := NewRetriever(&stubEmbedder{}, nil, 5); err == nil {
		t.Error("NewRetriever(nil store) error = nil, want error")
	}
}
