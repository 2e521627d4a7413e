package kb

import (
	"regexp"
	"sort"
	"strings"
)

// Table references are pulled out of raw SQL with clause-anchored patterns
// rather than a full parser; the statements in query records are plain MySQL
// SELECT/INSERT/UPDATE text and these four clauses cover them.
var tableRefRes = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bFROM\s+` + "`?" + `(\w+)` + "`?"),
	regexp.MustCompile(`(?i)\bJOIN\s+` + "`?" + `(\w+)` + "`?"),
	regexp.MustCompile(`(?i)\bINTO\s+` + "`?" + `(\w+)` + "`?"),
	regexp.MustCompile(`(?i)\bUPDATE\s+` + "`?" + `(\w+)` + "`?"),
}

// sqlKeywords filters out tokens that follow the clauses above without being
// table names, e.g. "SELECT" in "INSERT INTO ... SELECT" subqueries.
var sqlKeywords = map[string]struct{}{
	"select": {}, "where": {}, "group": {}, "order": {}, "limit": {},
	"having": {}, "union": {}, "values": {}, "set": {}, "dual": {},
}

// ExtractTableNames returns the distinct table names referenced by sql,
// sorted for determinism. Empty or unparseable SQL yields nil.
func ExtractTableNames(sql string) []string {
	if strings.TrimSpace(sql) == "" {
		return nil
	}
	seen := make(map[string]struct{})
	for _, re := range tableRefRes {
		for _, m := range re.FindAllStringSubmatch(sql, -1) {
			name := m[1]
			if _, keyword := sqlKeywords[strings.ToLower(name)]; keyword {
				continue
			}
			seen[name] = struct{}{}
		}
	}
	if len(seen) == 0 {
		return nil
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
