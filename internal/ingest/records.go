package ingest

import (
	"fmt"
	"time"

	"revdash/internal/core"
)

const (
	FieldDate       = "date"
	FieldDepartment = "department"
	FieldCash       = "cash"
	FieldOnline     = "online"
)

var recordFields = []field{
	{name: FieldDate, synonyms: []string{"date"}, position: 0},
	{name: FieldDepartment, synonyms: []string{"department", "dept", "section", "counter"}, position: 1},
	{name: FieldCash, synonyms: []string{"cash"}, position: 2},
	{name: FieldOnline, synonyms: []string{"online", "upi", "digital", "card"}, position: 3},
}

// RecordColumns maps record fields to column indexes. An index of -1 means
// the field has no column and reads as empty.
type RecordColumns struct {
	Date       int
	Department int
	Cash       int
	Online     int
	// Unresolved lists fields no header matched, in field order.
	Unresolved []string
	// Positional is set when no header matched at all.
	Positional bool
	// HeaderRow is false when the first row holds data rather than labels.
	HeaderRow bool
}

// Resolved reports whether every field was found by header name.
func (c RecordColumns) Resolved() bool { return len(c.Unresolved) == 0 }

// ResolveRecordHeaders matches the first row of a records sheet.
//
// Headers are matched by case-insensitive substring against the synonyms
// date; department, dept, section, counter; cash; online, upi, digital, card.
// When no header matches, the first four columns are used in that order and
// the first row counts as data if its first cell parses as a record date.
func ResolveRecordHeaders(header []string) RecordColumns {
	res := resolve(header, recordFields)
	cols := RecordColumns{
		Date:       res.index[FieldDate],
		Department: res.index[FieldDepartment],
		Cash:       res.index[FieldCash],
		Online:     res.index[FieldOnline],
		Unresolved: res.unresolved,
		Positional: res.matched == 0,
		HeaderRow:  true,
	}
	if cols.Positional {
		if _, err := core.ParseRecordDate(safeGet(header, cols.Date), time.UTC); err == nil {
			cols.HeaderRow = false
		}
	}
	return cols
}

// RecordBatch is the result of parsing a records sheet.
type RecordBatch struct {
	Records []core.TransactionRecord
	Columns RecordColumns
	// Dropped counts non-blank rows skipped for a missing date or department.
	Dropped int
}

// ParseRecords reads transaction records from rows whose first row is a
// header (or data, see ResolveRecordHeaders).
//
// Rows without a date or department are dropped. Amounts are sanitized,
// unparseable amounts read as zero and negative amounts clamp to zero.
func ParseRecords(rows [][]string) (RecordBatch, error) {
	if len(rows) == 0 {
		return RecordBatch{}, nil
	}
	cols := ResolveRecordHeaders(rows[0])
	batch := RecordBatch{Columns: cols}
	if cols.Date < 0 || cols.Department < 0 {
		return batch, fmt.Errorf("%w: date=%d department=%d", ErrUnresolvedColumns, cols.Date, cols.Department)
	}

	data := rows
	if cols.HeaderRow {
		data = rows[1:]
	}
	batch.Records = make([]core.TransactionRecord, 0, len(data))
	for _, row := range data {
		if blankRow(row) {
			continue
		}
		date := safeGet(row, cols.Date)
		dept := safeGet(row, cols.Department)
		if date == "" || dept == "" {
			batch.Dropped++
			continue
		}
		batch.Records = append(batch.Records, core.TransactionRecord{
			Date:       date,
			Department: dept,
			Cash:       core.NonNegative(core.SanitizeAmount(safeGet(row, cols.Cash))),
			Online:     core.NonNegative(core.SanitizeAmount(safeGet(row, cols.Online))),
		})
	}
	return batch, nil
}
