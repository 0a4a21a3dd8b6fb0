// Package export renders record subsets as CSV or XLSX downloads.
package export

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"revdash/internal/core"
)

const (
	ContentTypeCSV  = "text/csv; charset=utf-8"
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	SheetName = "Records"
)

// Header is the fixed column order of every export.
var Header = []string{"date", "department", "cash", "online", "total"}

// WriteCSV writes the header and one row per record. Fields containing the
// delimiter, a quote or a newline are quoted with inner quotes doubled.
func WriteCSV(w io.Writer, records []core.TransactionRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for i, r := range records {
		row := []string{r.Date, r.Department, r.Cash.String(), r.Online.String(), r.Total().String()}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row %d: %w", i+1, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteXLSX writes a single-sheet workbook with numeric amount cells and a
// closing totals row.
func WriteXLSX(w io.Writer, records []core.TransactionRecord) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	header := make([]interface{}, len(Header))
	for i, h := range Header {
		header[i] = h
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	var cash, online decimal.Decimal
	for i, r := range records {
		row := []interface{}{
			r.Date,
			r.Department,
			r.Cash.InexactFloat64(),
			r.Online.InexactFloat64(),
			r.Total().InexactFloat64(),
		}
		if err := f.SetSheetRow(SheetName, fmt.Sprintf("A%d", i+2), &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
		cash = cash.Add(r.Cash)
		online = online.Add(r.Online)
	}

	totals := []interface{}{"Total", "", cash.InexactFloat64(), online.InexactFloat64(), cash.Add(online).InexactFloat64()}
	totalsCell := fmt.Sprintf("A%d", len(records)+2)
	if err := f.SetSheetRow(SheetName, totalsCell, &totals); err != nil {
		return fmt.Errorf("write totals: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create style: %w", err)
	}
	if err := f.SetRowStyle(SheetName, 1, 1, bold); err != nil {
		return fmt.Errorf("style header: %w", err)
	}
	if err := f.SetRowStyle(SheetName, len(records)+2, len(records)+2, bold); err != nil {
		return fmt.Errorf("style totals: %w", err)
	}
	if err := f.SetColWidth(SheetName, "A", "B", 18); err != nil {
		return fmt.Errorf("set column width: %w", err)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// Filename builds the download name, e.g. revdash-week-2025-01-15.csv.
func Filename(mode core.FilterMode, date string, ext string) string {
	if mode == "" {
		mode = core.FilterAll
	}
	return fmt.Sprintf("revdash-%s-%s.%s", mode, date, ext)
}
