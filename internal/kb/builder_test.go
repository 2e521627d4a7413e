package kb

import (
	"strconv"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/singa-bi/biai-go/internal/queries"
	"github.com/singa-bi/biai-go/internal/schema"
)

func Test_BuildTable_RendersDescriptor(t *testing.T) {
	t.Parallel()
	table := schema.Table{
		Name:    "users",
		Comment: "用户表",
		Columns: []schema.Column{
			{Name: "id", Type: "bigint", Nullable: false, Comment: "主键"},
			{Name: "email", Type: "varchar(255)", Nullable: true},
		},
		Indexes: []string{"PRIMARY KEY (`id`)"},
		RawDDL:  "CREATE TABLE users (...);",
	}

	chunks := NewBuilder(nil).BuildTable(table)
	if len(chunks) != 1 {
		t.Fatalf("want 1 chunk, got %d", len(chunks))
	}
	text := chunks[0].Text()
	for _, want := range []string{
		"表名: users",
		"表说明: 用户表",
		"共 2 个字段",
		"id: bigint NOT NULL  // 主键",
		"email: varchar(255)",
		"PRIMARY KEY (`id`)",
		"完整DDL:",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("rendered text missing %q:\n%s", want, text)
		}
	}

	meta := chunks[0].Metadata()
	if meta["type"] != TypeTableSchema {
		t.Errorf("type = %q, want %q", meta["type"], TypeTableSchema)
	}
	if meta["table_name"] != "users" || meta["table_comment"] != "用户表" {
		t.Errorf("unexpected table metadata: %v", meta)
	}
	if meta["field_count"] != "2" {
		t.Errorf("field_count = %q, want 2", meta["field_count"])
	}
	if meta["database"] != DefaultDatabase {
		t.Errorf("database = %q, want %q", meta["database"], DefaultDatabase)
	}
	if _, ok := meta["chunk_index"]; ok {
		t.Error("single-chunk table should not carry chunk_index")
	}
}

func Test_BuildTable_NoColumnsStillYieldsChunk(t *testing.T) {
	t.Parallel()
	chunks := NewBuilder(nil).BuildTable(schema.Table{Name: "ghost"})
	if len(chunks) != 1 {
		t.Fatalf("want 1 chunk, got %d", len(chunks))
	}
	text := chunks[0].Text()
	if !strings.Contains(text, "表名: ghost") {
		t.Errorf("minimal chunk missing table name:\n%s", text)
	}
	if !strings.Contains(text, "表说明: 无描述") {
		t.Errorf("minimal chunk missing comment placeholder:\n%s", text)
	}
}

func Test_BuildQuery_RendersRecord(t *testing.T) {
	t.Parallel()
	record := queries.Record{
		ID:          "408",
		Name:        "按小时注册统计",
		Requirement: "统计每小时新增注册用户数",
		SQL:         "SELECT hour, COUNT(*) FROM users GROUP BY hour",
		HasSQL:      true,
	}

	chunks := NewBuilder(nil).BuildQuery(record)
	if len(chunks) != 1 {
		t.Fatalf("want 1 chunk, got %d", len(chunks))
	}
	text := chunks[0].Text()
	for _, want := range []string{
		"查询ID: 408",
		"查询名称: 按小时注册统计",
		"业务需求:\n统计每小时新增注册用户数",
		"涉及的表: users",
		"SQL语句:\nSELECT hour",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("rendered text missing %q:\n%s", want, text)
		}
	}

	meta := chunks[0].Metadata()
	if meta["query_id"] != "408" || meta["has_sql"] != "true" {
		t.Errorf("unexpected query metadata: %v", meta)
	}
	if meta["tables"] != "users" {
		t.Errorf("tables = %q, want users", meta["tables"])
	}
}

func Test_BuildQuery_NoSQL(t *testing.T) {
	t.Parallel()
	record := queries.Record{ID: "12", Name: "留存率"}
	chunks := NewBuilder(nil).BuildQuery(record)
	if len(chunks) != 1 {
		t.Fatalf("want 1 chunk, got %d", len(chunks))
	}
	text := chunks[0].Text()
	if strings.Contains(text, "SQL语句") {
		t.Errorf("record without SQL should omit the SQL section:\n%s", text)
	}
	if !strings.Contains(text, "涉及的表: 未知") {
		t.Errorf("missing unknown-tables placeholder:\n%s", text)
	}
	if chunks[0].Metadata()["has_sql"] != "false" {
		t.Error("has_sql should be false")
	}
}

func Test_Split_ExactBoundary(t *testing.T) {
	t.Parallel()
	b := NewBuilder(&BuilderConfig{ChunkSize: 100, ChunkOverlap: 10})

	exact := b.split(strings.Repeat("a", 100))
	if len(exact) != 1 {
		t.Errorf("len == chunk size: want 1 chunk, got %d", len(exact))
	}

	over := b.split(strings.Repeat("a", 101))
	if len(over) < 2 {
		t.Errorf("len == chunk size + 1: want >= 2 chunks, got %d", len(over))
	}
	for i, part := range over {
		if len(part) > 100 {
			t.Errorf("chunk %d has %d bytes, limit 100", i, len(part))
		}
	}
}

func Test_Split_CJKRuneBoundaries(t *testing.T) {
	t.Parallel()
	b := NewBuilder(&BuilderConfig{ChunkSize: 100, ChunkOverlap: 10})

	// 300 bytes of three-byte runes with no newline to cut on, so every cut
	// would land mid-rune without boundary snapping.
	text := strings.Repeat("手机号验证", 20)
	parts := b.split(text)
	if len(parts) < 2 {
		t.Fatalf("want >= 2 chunks, got %d", len(parts))
	}
	for i, part := range parts {
		if !utf8.ValidString(part) {
			t.Errorf("chunk %d is not valid UTF-8: %q", i, part)
		}
		if len(part) > 100 {
			t.Errorf("chunk %d has %d bytes, limit 100", i, len(part))
		}
	}
	if !strings.HasPrefix(text, parts[0]) {
		t.Errorf("first chunk is not a prefix of the input: %q", parts[0])
	}
	if !strings.HasSuffix(text, parts[len(parts)-1]) {
		t.Errorf("last chunk is not a suffix of the input: %q", parts[len(parts)-1])
	}
}

func Test_Split_OverlapRoundTrip(t *testing.T) {
	t.Parallel()
	const size, overlap = 120, 20
	b := NewBuilder(&BuilderConfig{ChunkSize: size, ChunkOverlap: overlap})

	var lines []string
	for i := 0; i < 40; i++ {
		lines = append(lines, strings.Repeat("x", 10+i%7))
	}
	text := strings.Join(lines, "\n")

	parts := b.split(text)
	if len(parts) < 2 {
		t.Fatalf("want multiple chunks, got %d", len(parts))
	}
	joined := parts[0]
	for _, part := range parts[1:] {
		if !strings.HasPrefix(part, joined[len(joined)-overlap:]) {
			t.Fatalf("chunk does not start with previous chunk's overlap")
		}
		joined += part[overlap:]
	}
	if joined != text {
		t.Errorf("overlap-stripped concatenation does not round-trip")
	}
}

func Test_Split_LongTableGetsChunkIndex(t *testing.T) {
	t.Parallel()
	b := NewBuilder(&BuilderConfig{ChunkSize: 200, ChunkOverlap: 20})
	table := schema.Table{Name: "wide"}
	for i := 0; i < 50; i++ {
		table.Columns = append(table.Columns, schema.Column{
			Name: "col_with_a_rather_long_name_" + strings.Repeat("x", 10),
			Type: "varchar(255)",
		})
	}
	chunks := b.BuildTable(table)
	if len(chunks) < 2 {
		t.Fatalf("want multiple chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		meta := c.Metadata()
		if got := meta["chunk_index"]; got != strconv.Itoa(i) {
			t.Errorf("chunk %d: chunk_index = %q", i, got)
		}
		if c.StableID() == chunks[(i+1)%len(chunks)].StableID() {
			t.Errorf("chunk %d shares a stable id with its neighbour", i)
		}
	}
}

func Test_StableID_Deterministic(t *testing.T) {
	t.Parallel()
	a := (&TableSchemaChunk{TableName: "users", Index: 0}).StableID()
	b := (&TableSchemaChunk{TableName: "users", Index: 0, Body: "different body"}).StableID()
	if a != b {
		t.Errorf("stable id depends on body: %q vs %q", a, b)
	}
	c := (&TableSchemaChunk{TableName: "users", Index: 1}).StableID()
	if a == c {
		t.Error("stable id ignores chunk index")
	}
	q := (&BusinessQueryChunk{QueryID: "users", Index: 0}).StableID()
	if a == q {
		t.Error("stable id ignores chunk kind")
	}
	if len(a) != 36 || strings.Count(a, "-") != 4 {
		t.Errorf("stable id %q is not UUID-shaped", a)
	}
}
