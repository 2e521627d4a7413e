package kb

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/singa-bi/biai-go/internal/queries"
	"github.com/singa-bi/biai-go/internal/schema"
)

// Splitting defaults. Chunks are cut at roughly ChunkSize characters with the
// tail of each chunk repeated at the head of the next.
const (
	DefaultChunkSize    = 2000
	DefaultChunkOverlap = 200
	DefaultDatabase     = "singa_bi"

	// boundaryLookback is how far back from a hard cut the splitter searches
	// for a line break to cut on instead.
	boundaryLookback = 100
)

// BuilderConfig controls chunk rendering and splitting.
type BuilderConfig struct {
	// ChunkSize is the maximum chunk length in bytes. Zero means
	// DefaultChunkSize.
	ChunkSize int
	// ChunkOverlap is how many trailing bytes of a chunk are repeated at the
	// start of the next. Zero means DefaultChunkOverlap; values that are not
	// smaller than ChunkSize are clamped.
	ChunkOverlap int
	// Database labels schema chunks. Empty means DefaultDatabase.
	Database string
}

// Builder renders table and query descriptors into indexable chunks.
type Builder struct {
	chunkSize    int
	chunkOverlap int
	database     string
}

// NewBuilder returns a Builder with cfg's limits applied, filling defaults for
// zero values. A nil cfg selects all defaults.
func NewBuilder(cfg *BuilderConfig) *Builder {
	b := &Builder{
		chunkSize:    DefaultChunkSize,
		chunkOverlap: DefaultChunkOverlap,
		database:     DefaultDatabase,
	}
	if cfg == nil {
		return b
	}
	if cfg.ChunkSize > 0 {
		b.chunkSize = cfg.ChunkSize
	}
	if cfg.ChunkOverlap > 0 {
		b.chunkOverlap = cfg.ChunkOverlap
	}
	if b.chunkOverlap >= b.chunkSize {
		b.chunkOverlap = b.chunkSize / 10
	}
	if cfg.Database != "" {
		b.database = cfg.Database
	}
	return b
}

// BuildTable renders one table descriptor and splits it into schema chunks.
// A table with no parsed columns still yields one minimal chunk so that it
// remains discoverable by name.
func (b *Builder) BuildTable(t schema.Table) []Chunk {
	parts := b.split(renderTable(t))
	chunks := make([]Chunk, len(parts))
	for i, body := range parts {
		chunks[i] = &TableSchemaChunk{
			TableName:    t.Name,
			TableComment: t.Comment,
			Database:     b.database,
			FieldCount:   len(t.Columns),
			Body:         body,
			Index:        i,
			Total:        len(parts),
		}
	}
	return chunks
}

// BuildQuery renders one business-query record and splits it into query
// chunks. Table names are extracted from the record's SQL statement.
func (b *Builder) BuildQuery(r queries.Record) []Chunk {
	tables := ExtractTableNames(r.SQL)
	parts := b.split(renderQuery(r, tables))
	chunks := make([]Chunk, len(parts))
	for i, body := range parts {
		chunks[i] = &BusinessQueryChunk{
			QueryID:     r.ID,
			QueryName:   r.Name,
			Requirement: r.Requirement,
			Tables:      tables,
			HasSQL:      r.HasSQL,
			Body:        body,
			Index:       i,
			Total:       len(parts),
		}
	}
	return chunks
}

// BuildAll renders every table then every record, preserving input order.
func (b *Builder) BuildAll(tables []schema.Table, records []queries.Record) []Chunk {
	var chunks []Chunk
	for _, t := range tables {
		chunks = append(chunks, b.BuildTable(t)...)
	}
	for _, r := range records {
		chunks = append(chunks, b.BuildQuery(r)...)
	}
	return chunks
}

func renderTable(t schema.Table) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "表名: %s\n\n", t.Name)
	comment := t.Comment
	if comment == "" {
		comment = "无描述"
	}
	fmt.Fprintf(&sb, "表说明: %s\n\n", comment)

	fmt.Fprintf(&sb, "字段信息 (共 %d 个字段):\n", len(t.Columns))
	for _, col := range t.Columns {
		fmt.Fprintf(&sb, "  - %s: %s", col.Name, col.Type)
		if !col.Nullable {
			sb.WriteString(" NOT NULL")
		}
		if col.Default != "" {
			fmt.Fprintf(&sb, " DEFAULT %s", col.Default)
		}
		if col.Comment != "" {
			fmt.Fprintf(&sb, "  // %s", col.Comment)
		}
		sb.WriteByte('\n')
	}

	if len(t.Indexes) > 0 {
		sb.WriteString("\n索引信息:\n")
		for _, idx := range t.Indexes {
			fmt.Fprintf(&sb, "  - %s\n", idx)
		}
	}

	if t.RawDDL != "" {
		fmt.Fprintf(&sb, "\n完整DDL:\n%s\n", t.RawDDL)
	}
	return sb.String()
}

func renderQuery(r queries.Record, tables []string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "查询ID: %s\n", r.ID)
	fmt.Fprintf(&sb, "查询名称: %s\n\n", r.Name)

	fmt.Fprintf(&sb, "业务需求:\n%s\n\n", r.Requirement)

	joined := joinTables(tables)
	if joined == "" {
		joined = "未知"
	}
	fmt.Fprintf(&sb, "涉及的表: %s\n", joined)

	if r.HasSQL && r.SQL != "" {
		fmt.Fprintf(&sb, "\nSQL语句:\n%s\n", r.SQL)
	}
	return sb.String()
}

func joinTables(tables []string) string {
	return strings.Join(tables, ", ")
}

// split cuts text into pieces of at most chunkSize bytes. Cuts prefer a line
// break within boundaryLookback bytes of the limit; the last chunkOverlap
// bytes before each cut are repeated at the start of the next piece. Cut and
// restart positions never land inside a multibyte rune, so every piece is
// valid UTF-8 whenever text is.
func (b *Builder) split(text string) []string {
	if len(text) <= b.chunkSize {
		return []string{text}
	}
	lookback := boundaryLookback
	if lookback >= b.chunkSize-b.chunkOverlap {
		lookback = 0
	}
	var parts []string
	start := 0
	for {
		end := start + b.chunkSize
		if end >= len(text) {
			parts = append(parts, text[start:])
			return parts
		}
		cut := end
		if lookback > 0 {
			if i := strings.LastIndexByte(text[end-lookback:end], '\n'); i >= 0 {
				cut = end - lookback + i + 1
			}
		}
		cut = snapToRuneStart(text, cut)
		parts = append(parts, text[start:cut])
		next := snapToRuneStart(text, cut-b.chunkOverlap)
		if next <= start {
			// degenerate overlap, fall back to a hard advance
			next = snapToRuneStart(text, end-b.chunkOverlap)
		}
		if next <= start {
			_, n := utf8.DecodeRuneInString(text[start:])
			next = start + n
		}
		start = next
	}
}

// snapToRuneStart backs idx up to the start of the rune it points into.
func snapToRuneStart(s string, idx int) int {
	for idx > 0 && idx < len(s) && !utf8.RuneStart(s[idx]) {
		idx--
	}
	return idx
}
