// Package queries loads the business-query requirement records that form the
// first half of the knowledge base corpus. The canonical file layout is a JSON
// array of records; the legacy layout (an object keyed by query id) produced
// by earlier exports is accepted too so existing data files load unchanged.
package queries

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

// Record is one business-query requirement.
type Record struct {
	// ID is the unique query identifier (stringified if numeric in the source).
	ID string
	// Name is the human-readable query name.
	Name string
	// Requirement is the free-text business requirement, may be empty.
	Requirement string
	// SQL is the query text, may be empty when HasSQL is false.
	SQL string
	// HasSQL reports whether the record carries a SQL statement.
	HasSQL bool
}

// Warning records a recoverable load problem (rejected or duplicate record).
type Warning struct {
	// ID is the query id the warning relates to, empty when the id itself
	// was missing.
	ID string
	// Message describes the problem.
	Message string
}

// LoadResult carries the successfully loaded records plus warnings for the
// records that were rejected or superseded. Callers decide whether warnings
// are fatal.
type LoadResult struct {
	Records  []Record
	Warnings []Warning
}

// rawRecord mirrors one JSON element. ID may be a string or a number in the
// source files, so it is decoded loosely.
type rawRecord struct {
	ID          json.RawMessage `json:"id"`
	Name        string          `json:"name"`
	Requirement string          `json:"requirement"`
	// business_requirement is the key used by the original export.
	BusinessRequirement string `json:"business_requirement"`
	SQL                 string `json:"sql"`
	HasSQL              *bool  `json:"has_sql"`
}

// Parse decodes a business-query requirements file. Records missing an
// identifier are rejected individually; duplicate identifiers resolve
// last-write-wins. Both failure modes are recorded as warnings, never as a
// batch-level error — the files are hand-edited and partial success beats
// total failure.
func Parse(data []byte) (LoadResult, error) {
	var res LoadResult

	raws, err := decode(data)
	if err != nil {
		return res, err
	}

	seen := make(map[string]int) // id → index into res.Records
	for i, raw := range raws {
		id := decodeID(raw.ID)
		if id == "" {
			res.Warnings = append(res.Warnings, Warning{
				Message: fmt.Sprintf("record %d has no id, rejected", i),
			})
			continue
		}
		if raw.Name == "" {
			res.Warnings = append(res.Warnings, Warning{
				ID:      id,
				Message: "record has no name, rejected",
			})
			continue
		}

		rec := Record{
			ID:          id,
			Name:        raw.Name,
			Requirement: raw.Requirement,
			SQL:         raw.SQL,
		}
		if rec.Requirement == "" {
			rec.Requirement = raw.BusinessRequirement
		}
		if raw.HasSQL != nil {
			rec.HasSQL = *raw.HasSQL
		} else {
			rec.HasSQL = rec.SQL != ""
		}

		if prev, dup := seen[id]; dup {
			res.Warnings = append(res.Warnings, Warning{
				ID:      id,
				Message: "duplicate query id, later occurrence wins",
			})
			res.Records[prev] = rec
			continue
		}
		seen[id] = len(res.Records)
		res.Records = append(res.Records, rec)
	}

	return res, nil
}

// decode accepts either the array layout or the legacy object-keyed-by-id
// layout. The object layout is normalised to a deterministic (id-sorted)
// record order so repeated loads are stable.
func decode(data []byte) ([]rawRecord, error) {
	var arr []rawRecord
	if err := json.Unmarshal(data, &arr); err == nil {
		return arr, nil
	}

	var byID map[string]rawRecord
	if err := json.Unmarshal(data, &byID); err != nil {
		return nil, fmt.Errorf("queries: input is neither a JSON array nor an id-keyed object: %w", err)
	}

	ids := make([]string, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]rawRecord, 0, len(byID))
	for _, id := range ids {
		raw := byID[id]
		if len(raw.ID) == 0 {
			raw.ID = json.RawMessage(strconv.Quote(id))
		}
		out = append(out, raw)
	}
	return out, nil
}

// decodeID normalises the id field, which source files carry as either a JSON
// string or a number. Returns "" when the field is absent or unusable.
func decodeID(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}
