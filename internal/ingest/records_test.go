package ingest

import (
	"errors"
	"reflect"
	"testing"

	"github.com/shopspring/decimal"
)

func TestResolveRecordHeaders(t *testing.T) {
	tests := []struct {
		name       string
		header     []string
		want       [4]int
		unresolved []string
		positional bool
		headerRow  bool
	}{
		{
			name:      "exact names",
			header:    []string{"Date", "Department", "Cash", "Online"},
			want:      [4]int{0, 1, 2, 3},
			headerRow: true,
		},
		{
			name:      "synonyms in another order",
			header:    []string{"UPI Amount", "Counter", "Txn Date", "Cash Received"},
			want:      [4]int{2, 1, 3, 0},
			headerRow: true,
		},
		{
			name:      "case insensitive substrings",
			header:    []string{"  DATE of entry", "dept.", "CASH (INR)", "Card/Digital"},
			want:      [4]int{0, 1, 2, 3},
			headerRow: true,
		},
		{
			name:       "partial header falls back by position",
			header:     []string{"Date", "Where", "Cash", "Other"},
			want:       [4]int{0, 1, 2, 3},
			unresolved: []string{FieldDepartment, FieldOnline},
			headerRow:  true,
		},
		{
			name:       "no match with label row",
			header:     []string{"When", "What", "Notes", "Extra"},
			want:       [4]int{0, 1, 2, 3},
			unresolved: []string{FieldDate, FieldDepartment, FieldCash, FieldOnline},
			positional: true,
			headerRow:  true,
		},
		{
			name:       "no header at all",
			header:     []string{"1/5/2025", "Kitchen", "100", "50"},
			want:       [4]int{0, 1, 2, 3},
			unresolved: []string{FieldDate, FieldDepartment, FieldCash, FieldOnline},
			positional: true,
			headerRow:  false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolveRecordHeaders(tt.header)
			idx := [4]int{got.Date, got.Department, got.Cash, got.Online}
			if idx != tt.want {
				t.Fatalf("indexes = %v, want %v", idx, tt.want)
			}
			if !reflect.DeepEqual(got.Unresolved, tt.unresolved) {
				t.Fatalf("unresolved = %v, want %v", got.Unresolved, tt.unresolved)
			}
			if got.Resolved() != (len(tt.unresolved) == 0) {
				t.Fatalf("Resolved() = %v", got.Resolved())
			}
			if got.Positional != tt.positional || got.HeaderRow != tt.headerRow {
				t.Fatalf("positional/headerRow = %v/%v", got.Positional, got.HeaderRow)
			}
		})
	}
}

func TestParseRecords(t *testing.T) {
	rows := [][]string{
		{"Department", "Date", "Online", "Cash"},
		{"Kitchen", "1/1/2025", "50", "100"},
		{"Main Hundi", "1/2/2025", "", "₹1,200.50"},
		{"", "1/2/2025", "5", "5"},
		{"Parking", "", "5", "5"},
		{"", "", "", ""},
		{"Gift Shop", "1/3/2025", "-10", "abc"},
		{"Book Stall", "1/4/2025"},
	}
	batch, err := ParseRecords(rows)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if batch.Dropped != 2 {
		t.Fatalf("dropped = %d", batch.Dropped)
	}
	want := []struct {
		date, dept, cash, online string
	}{
		{"1/1/2025", "Kitchen", "100", "50"},
		{"1/2/2025", "Main Hundi", "1200.5", "0"},
		{"1/3/2025", "Gift Shop", "0", "0"},
		{"1/4/2025", "Book Stall", "0", "0"},
	}
	if len(batch.Records) != len(want) {
		t.Fatalf("records = %d, want %d", len(batch.Records), len(want))
	}
	for i, w := range want {
		r := batch.Records[i]
		if r.Date != w.date || r.Department != w.dept {
			t.Fatalf("record %d = %+v", i, r)
		}
		if !r.Cash.Equal(decimal.RequireFromString(w.cash)) || !r.Online.Equal(decimal.RequireFromString(w.online)) {
			t.Fatalf("record %d amounts = %s/%s, want %s/%s", i, r.Cash, r.Online, w.cash, w.online)
		}
	}
}

func TestParseRecordsHeaderless(t *testing.T) {
	rows := [][]string{
		{"1/1/2025", "Kitchen", "10", "20"},
		{"1/2/2025", "Parking", "1", "2"},
	}
	batch, err := ParseRecords(rows)
	if err != nil {
		t.Fatal(err)
	}
	if len(batch.Records) != 2 || !batch.Columns.Positional {
		t.Fatalf("expected both rows as data, got %+v", batch)
	}
}

func TestParseRecordsEmpty(t *testing.T) {
	batch, err := ParseRecords(nil)
	if err != nil || len(batch.Records) != 0 {
		t.Fatalf("got %+v, %v", batch, err)
	}
	batch, err = ParseRecords([][]string{{"Date", "Department", "Cash", "Online"}})
	if err != nil || len(batch.Records) != 0 {
		t.Fatalf("header only: got %+v, %v", batch, err)
	}
}

func TestParseRecordsUnresolvable(t *testing.T) {
	// amount headers claim the positions date and department would fall back to
	_, err := ParseRecords([][]string{{"Online", "Cash"}, {"1", "2"}})
	if !errors.Is(err, ErrUnresolvedColumns) {
		t.Fatalf("expected ErrUnresolvedColumns, got %v", err)
	}
}

func TestStrings(t *testing.T) {
	got := Strings([][]interface{}{{" 1/1/2025 ", 100, 2.5}, {}})
	want := [][]string{{"1/1/2025", "100", "2.5"}, {}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}
