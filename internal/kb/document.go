// Package kb implements the knowledge-base core: rendering parsed table and
// business-query descriptors into retrievable chunks, writing them into the
// vector store, and routing filtered similarity searches for the agent layer.
package kb

import (
	"crypto/sha256"
	"fmt"
	"strconv"
)

// Metadata values identifying where a chunk came from and what it describes.
// Search filters match on the "type" key.
const (
	SourceBusinessQuery  = "business_query"
	SourceDatabaseSchema = "database_schema"

	TypeBusinessQuery = "business_query"
	TypeTableSchema   = "table_schema"
)

// Chunk is the unit actually indexed: a bounded text plus a flat metadata map
// and a deterministic id that makes re-indexing idempotent. The two concrete
// kinds are TableSchemaChunk and BusinessQueryChunk.
type Chunk interface {
	// Text returns the rendered chunk text (length bounded by the builder's
	// chunk size).
	Text() string

	// StableID returns a deterministic UUID derived from the source
	// descriptor's identity and the chunk index, used as the upsert key.
	StableID() string

	// Metadata returns the flat string metadata map stored alongside the text.
	Metadata() map[string]string
}

// TableSchemaChunk is a chunk rendered from one CREATE TABLE descriptor.
type TableSchemaChunk struct {
	// TableName is the source table name.
	TableName string
	// TableComment is the table-level comment, may be empty.
	TableComment string
	// Database labels which database the schema belongs to.
	Database string
	// FieldCount is the number of parsed columns.
	FieldCount int

	// Body is this chunk's slice of the rendered table text.
	Body string
	// Index is this chunk's position among the table's chunks (0-based).
	Index int
	// Total is how many chunks the table rendered into.
	Total int
}

// Text returns the chunk body.
func (c *TableSchemaChunk) Text() string { return c.Body }

// StableID returns the deterministic upsert key for this chunk.
func (c *TableSchemaChunk) StableID() string {
	return stableID(TypeTableSchema, c.TableName, c.Index)
}

// Metadata returns the schema-chunk metadata map.
func (c *TableSchemaChunk) Metadata() map[string]string {
	m := map[string]string{
		"source":        SourceDatabaseSchema,
		"type":          TypeTableSchema,
		"table_name":    c.TableName,
		"table_comment": c.TableComment,
		"database":      c.Database,
		"field_count":   strconv.Itoa(c.FieldCount),
	}
	if c.Total > 1 {
		m["chunk_index"] = strconv.Itoa(c.Index)
	}
	return m
}

// BusinessQueryChunk is a chunk rendered from one business-query record.
type BusinessQueryChunk struct {
	// QueryID is the source record's unique identifier.
	QueryID string
	// QueryName is the human-readable query name.
	QueryName string
	// Requirement is the business requirement text, may be empty.
	Requirement string
	// Tables lists the table names referenced by the record's SQL.
	Tables []string
	// HasSQL reports whether the record carries a SQL statement.
	HasSQL bool

	// Body is this chunk's slice of the rendered record text.
	Body string
	// Index is this chunk's position among the record's chunks (0-based).
	Index int
	// Total is how many chunks the record rendered into.
	Total int
}

// Text returns the chunk body.
func (c *BusinessQueryChunk) Text() string { return c.Body }

// StableID returns the deterministic upsert key for this chunk.
func (c *BusinessQueryChunk) StableID() string {
	return stableID(TypeBusinessQuery, c.QueryID, c.Index)
}

// Metadata returns the query-chunk metadata map.
func (c *BusinessQueryChunk) Metadata() map[string]string {
	m := map[string]string{
		"source":               SourceBusinessQuery,
		"type":                 TypeBusinessQuery,
		"query_id":             c.QueryID,
		"query_name":           c.QueryName,
		"has_sql":              strconv.FormatBool(c.HasSQL),
		"business_requirement": c.Requirement,
		"tables":               joinTables(c.Tables),
	}
	if c.Total > 1 {
		m["chunk_index"] = strconv.Itoa(c.Index)
	}
	return m
}

// stableID hashes (kind, identifier, chunk index) into a deterministic id,
// formatted as a UUID because Qdrant point ids must be UUIDs or unsigned ints.
func stableID(kind, identifier string, index int) string {
	h := sha256.Sum256(fmt.Appendf(nil, "%s#%s#%d", kind, identifier, index))
	return fmt.Sprintf("%x-%x-%x-%x-%x", h[0:4], h[4:6], h[6:8], h[8:10], h[10:16])
}
