// Package ingest turns raw spreadsheet-style rows into domain records.
//
// Column lookup is explicit: a header row is resolved against synonym sets
// into a column mapping that reports which fields could not be found, and
// only then are data rows read through that mapping.
package ingest

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnresolvedColumns is returned when a required column cannot be located
// by header name or position.
var ErrUnresolvedColumns = errors.New("required columns unresolved")

// field describes one logical column: the header synonyms that identify it
// and the index it takes when the sheet has no usable header row.
type field struct {
	name     string
	synonyms []string
	position int
}

// resolution is the outcome of matching a header row against fields.
type resolution struct {
	index      map[string]int
	unresolved []string
	matched    int
}

// resolve assigns each field an unclaimed column whose header contains one
// of its synonyms, ignoring case. Synonyms are tried in order, each against
// every column, so earlier synonyms win over earlier columns. Fields are
// resolved in slice order so more specific fields should come first.
// Fields without a match fall back to their positional index when that
// column is still free.
func resolve(header []string, fields []field) resolution {
	res := resolution{index: make(map[string]int, len(fields))}
	claimed := make(map[int]bool, len(header))
	lower := make([]string, len(header))
	for i, h := range header {
		lower[i] = strings.ToLower(strings.TrimSpace(h))
	}

	for _, f := range fields {
		res.index[f.name] = -1
		if col := findColumn(lower, f.synonyms, claimed); col >= 0 {
			res.index[f.name] = col
			claimed[col] = true
			res.matched++
		}
	}

	for _, f := range fields {
		if res.index[f.name] >= 0 {
			continue
		}
		res.unresolved = append(res.unresolved, f.name)
		if !claimed[f.position] {
			res.index[f.name] = f.position
			claimed[f.position] = true
		}
	}
	return res
}

func findColumn(lower []string, synonyms []string, claimed map[int]bool) int {
	for _, syn := range synonyms {
		for col, h := range lower {
			if claimed[col] || h == "" {
				continue
			}
			if strings.Contains(h, syn) {
				return col
			}
		}
	}
	return -1
}

// Strings converts a Sheets API value matrix into trimmed strings.
func Strings(values [][]interface{}) [][]string {
	out := make([][]string, len(values))
	for i, row := range values {
		cols := make([]string, len(row))
		for j, v := range row {
			cols[j] = strings.TrimSpace(fmt.Sprint(v))
		}
		out[i] = cols
	}
	return out
}

func safeGet(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func blankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
