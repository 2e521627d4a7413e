// Package schema parses MySQL-style CREATE TABLE dumps into structured table
// descriptors for the knowledge base builder. It is deliberately not a general
// SQL parser: the corpus is a small, human-curated schema dump, so parsing is
// line-oriented with a balanced-paren scan for statement bodies, and anything
// unparsable is skipped with a recorded warning rather than failing the batch.
//
// Comment convention (matching the source dumps): table comments are carried
// by a trailing COMMENT='...' clause on the closing line of the statement;
// column comments are inline COMMENT '...' clauses on the column line.
// Preceding line comments (-- ...) are tolerated but not attached to tables.
package schema

import (
	"fmt"
	"regexp"
	"strings"
)

// Column is one column definition, in declaration order.
type Column struct {
	// Name is the column name with quoting stripped.
	Name string
	// Type is the declared type, e.g. "varchar(50)" or "decimal(10,2) unsigned".
	Type string
	// Nullable is false only when the definition carries NOT NULL.
	Nullable bool
	// Default is the literal DEFAULT value, empty when none was declared.
	Default string
	// Comment is the inline COMMENT text, empty when none was declared.
	Comment string
}

// Table describes one CREATE TABLE statement.
type Table struct {
	// Name is the table name with quoting stripped. Unique within a ParseResult.
	Name string
	// Comment is the table-level COMMENT='...' text, may be empty.
	Comment string
	// Columns holds the column definitions in declaration order.
	Columns []Column
	// Indexes holds the raw PRIMARY KEY / KEY / UNIQUE KEY / CONSTRAINT lines.
	Indexes []string
	// RawDDL is the original CREATE TABLE statement text.
	RawDDL string
}

// Warning records a recoverable parse problem. Callers decide whether
// warnings are fatal; Parse itself never aborts on them.
type Warning struct {
	// Table is the table the warning relates to, empty when unknown.
	Table string
	// Message describes the problem.
	Message string
}

// ParseResult carries the successfully parsed tables together with the
// warnings accumulated while skipping malformed input.
type ParseResult struct {
	Tables   []Table
	Warnings []Warning
}

// createTableRe matches the head of a CREATE TABLE statement up to the
// opening paren, capturing the (optionally backtick-quoted) table name.
var createTableRe = regexp.MustCompile("(?i)CREATE\\s+TABLE\\s+(?:IF\\s+NOT\\s+EXISTS\\s+)?`?(\\w+)`?\\s*\\(")

// tableCommentRe extracts a trailing COMMENT='...' clause from a statement tail.
var tableCommentRe = regexp.MustCompile(`(?i)COMMENT\s*=\s*'([^']*)'`)

// Parse extracts every CREATE TABLE statement from ddl. Output order matches
// input order; duplicate table names are resolved last-write-wins with a
// warning. Parsing the same input twice yields identical output.
func Parse(ddl string) ParseResult {
	var res ParseResult
	seen := make(map[string]int) // table name → index into res.Tables

	locs := createTableRe.FindAllStringSubmatchIndex(ddl, -1)
	for n, loc := range locs {
		name := ddl[loc[2]:loc[3]]
		bodyStart := loc[1] // just past the opening paren

		// Bound the scan at the next CREATE TABLE head so a statement missing
		// its semicolon cannot swallow its neighbour's text or comment.
		limit := len(ddl)
		if n+1 < len(locs) {
			limit = locs[n+1][0]
		}

		body, tail, ok := scanStatement(ddl[bodyStart:limit])
		if !ok {
			res.Warnings = append(res.Warnings, Warning{
				Table:   name,
				Message: "unterminated CREATE TABLE statement, skipped",
			})
			continue
		}

		end := bodyStart + len(body) + 1 + len(tail)
		if end < len(ddl) && ddl[end] == ';' {
			end++
		}
		table := Table{
			Name:   name,
			RawDDL: strings.TrimSpace(ddl[loc[0]:end]),
		}
		if m := tableCommentRe.FindStringSubmatch(tail); m != nil {
			table.Comment = m[1]
		}

		parseBody(body, &table, &res.Warnings)

		if len(table.Columns) == 0 {
			// A named table with no parsable columns still yields a descriptor
			// so it is never silently dropped.
			res.Warnings = append(res.Warnings, Warning{
				Table:   name,
				Message: "no column definitions parsed",
			})
		}

		if prev, dup := seen[name]; dup {
			res.Warnings = append(res.Warnings, Warning{
				Table:   name,
				Message: "duplicate table definition, later occurrence wins",
			})
			res.Tables[prev] = table
			continue
		}
		seen[name] = len(res.Tables)
		res.Tables = append(res.Tables, table)
	}

	return res
}

// scanStatement consumes s from just past the opening paren of a CREATE TABLE
// body, returning the body (up to the matching close paren), the tail (from
// after that paren to the terminating semicolon, exclusive), and whether the
// statement was properly terminated. Single-quoted strings are honoured so a
// paren or semicolon inside a COMMENT cannot end the scan early. The caller
// slices s to end at the next statement head, so a missing semicolon yields a
// tail bounded to this statement.
func scanStatement(s string) (body, tail string, ok bool) {
	depth := 1
	inString := false
	bodyEnd := -1

	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case inString:
			if c == '\'' {
				// '' is an escaped quote inside a MySQL string literal.
				if i+1 < len(s) && s[i+1] == '\'' {
					i++
					continue
				}
				inString = false
			}
		case c == '\'':
			inString = true
		case c == '(':
			depth++
		case c == ')':
			depth--
			if depth == 0 && bodyEnd < 0 {
				bodyEnd = i
			}
		case c == ';':
			if bodyEnd < 0 {
				return "", "", false
			}
			return s[:bodyEnd], s[bodyEnd+1 : i], true
		}
	}
	if bodyEnd >= 0 {
		// Hand-authored files sometimes omit the final semicolon.
		return s[:bodyEnd], s[bodyEnd+1:], true
	}
	return "", "", false
}

// indexPrefixes identifies body lines that define keys or constraints rather
// than columns.
var indexPrefixes = []string{
	"PRIMARY KEY", "UNIQUE KEY", "UNIQUE INDEX", "KEY ", "KEY(", "INDEX ",
	"FULLTEXT", "CONSTRAINT", "FOREIGN KEY", "SPATIAL",
}

// columnRe matches a column definition line: `name` rest-of-definition.
var columnRe = regexp.MustCompile("^`?([A-Za-z_]\\w*)`?\\s+(.+?),?$")

// columnCommentRe extracts an inline COMMENT '...' clause.
var columnCommentRe = regexp.MustCompile(`(?i)\s*COMMENT\s+'([^']*)'`)

// defaultRe extracts a DEFAULT value (quoted literal or bare token).
var defaultRe = regexp.MustCompile(`(?i)\s*DEFAULT\s+('[^']*'|\S+)`)

// notNullRe and nullRe strip nullability markers from a definition.
var (
	notNullRe = regexp.MustCompile(`(?i)\s*NOT\s+NULL`)
	nullRe    = regexp.MustCompile(`(?i)\s*\bNULL\b`)
	autoIncRe = regexp.MustCompile(`(?i)\s*AUTO_INCREMENT`)
)

// parseBody splits a CREATE TABLE body into column and index definitions.
func parseBody(body string, table *Table, warnings *[]Warning) {
	for _, line := range splitDefinitions(body) {
		upper := strings.ToUpper(line)
		if isIndexLine(upper) {
			table.Indexes = append(table.Indexes, strings.TrimSuffix(line, ","))
			continue
		}

		m := columnRe.FindStringSubmatch(line)
		if m == nil {
			*warnings = append(*warnings, Warning{
				Table:   table.Name,
				Message: fmt.Sprintf("unparsable column line %q, skipped", line),
			})
			continue
		}

		col := Column{Name: m[1], Nullable: true}
		def := m[2]

		if cm := columnCommentRe.FindStringSubmatch(def); cm != nil {
			col.Comment = cm[1]
			def = columnCommentRe.ReplaceAllString(def, "")
		}
		if dm := defaultRe.FindStringSubmatch(def); dm != nil {
			if v := strings.Trim(dm[1], "'"); !strings.EqualFold(v, "NULL") {
				col.Default = v
			}
			def = defaultRe.ReplaceAllString(def, "")
		}
		if notNullRe.MatchString(def) {
			col.Nullable = false
			def = notNullRe.ReplaceAllString(def, "")
		}
		def = nullRe.ReplaceAllString(def, "")
		def = autoIncRe.ReplaceAllString(def, "")

		col.Type = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(def), ","))
		table.Columns = append(table.Columns, col)
	}
}

// splitDefinitions breaks a statement body into top-level comma-separated
// definitions, respecting parens (type args) and quoted strings (comments).
func splitDefinitions(body string) []string {
	var defs []string
	depth := 0
	inString := false
	start := 0

	flush := func(end int) {
		d := strings.TrimSpace(body[start:end])
		if d != "" {
			defs = append(defs, d)
		}
	}

	for i := 0; i < len(body); i++ {
		switch c := body[i]; {
		case inString:
			if c == '\'' {
				if i+1 < len(body) && body[i+1] == '\'' {
					i++
					continue
				}
				inString = false
			}
		case c == '\'':
			inString = true
		case c == '(':
			depth++
		case c == ')':
			depth--
		case c == ',' && depth == 0:
			flush(i)
			start = i + 1
		}
	}
	flush(len(body))
	return defs
}

// isIndexLine reports whether an upper-cased definition line declares a key
// or constraint rather than a column.
func isIndexLine(upper string) bool {
	for _, p := range indexPrefixes {
		if strings.HasPrefix(upper, p) {
			return true
		}
	}
	return false
}
