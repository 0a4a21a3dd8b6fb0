package core

import "github.com/shopspring/decimal"

type (
	// Department is a catalog entry. A department with sub-sections is
	// composite: its displayed figures include the rows of every sub-section.
	Department struct {
		Name        string   `json:"name"`
		SubSections []string `json:"subSections,omitempty"`
	}

	// Catalog is the ordered list of departments. Order is display order.
	Catalog []Department

	// SubSectionTotals pairs a sub-section name with its own totals.
	SubSectionTotals struct {
		Name   string           `json:"name"`
		Totals DepartmentTotals `json:"totals"`
	}

	// DepartmentRow is one line of the department table: the rolled-up
	// totals plus, for composite departments, the per-sub-section split.
	DepartmentRow struct {
		Name        string             `json:"name"`
		Composite   bool               `json:"composite"`
		Own         DepartmentTotals   `json:"own"`
		Totals      DepartmentTotals   `json:"totals"`
		SubSections []SubSectionTotals `json:"subSections,omitempty"`
	}
)

// DefaultCatalog is the single authoritative department table.
var DefaultCatalog = Catalog{
	{Name: "Main Hundi"},
	{Name: "Kitchen", SubSections: []string{"Kitchen Hundi", "Kitchen Seva Office"}},
	{Name: "Seva Office"},
	{Name: "Donation Counter"},
	{Name: "Prasadam Counter"},
	{Name: "Annadanam", SubSections: []string{"Annadanam Hundi"}},
	{Name: "Book Stall"},
	{Name: "Gift Shop"},
	{Name: "Accommodation"},
	{Name: "Parking"},
}

// Size is the number of top-level departments.
func (c Catalog) Size() int { return len(c) }

// Names returns the top-level department names in display order.
func (c Catalog) Names() []string {
	out := make([]string, len(c))
	for i, d := range c {
		out[i] = d.Name
	}
	return out
}

// Lookup returns the catalog entry with the given name.
func (c Catalog) Lookup(name string) (Department, bool) {
	for _, d := range c {
		if d.Name == name {
			return d, true
		}
	}
	return Department{}, false
}

// IsComposite reports whether name is a department with sub-sections.
func (c Catalog) IsComposite(name string) bool {
	d, ok := c.Lookup(name)
	return ok && len(d.SubSections) > 0
}

// IsValid reports whether name is a department or a sub-section name.
func (c Catalog) IsValid(name string) bool {
	for _, d := range c {
		if d.Name == name {
			return true
		}
		for _, s := range d.SubSections {
			if s == name {
				return true
			}
		}
	}
	return false
}

// MainDepartmentTotals returns the displayed totals of a department: its
// own rows plus, for composite departments, the rows of each sub-section.
// Names outside the catalog fall back to a flat match.
func (c Catalog) MainDepartmentTotals(records []TransactionRecord, name string) DepartmentTotals {
	names := []string{name}
	if d, ok := c.Lookup(name); ok {
		names = append(names, d.SubSections...)
	}
	return sumMatching(records, names...)
}

// Breakdown returns one row per catalog department in catalog order.
func (c Catalog) Breakdown(records []TransactionRecord) []DepartmentRow {
	rows := make([]DepartmentRow, 0, len(c))
	for _, d := range c {
		row := DepartmentRow{
			Name:      d.Name,
			Composite: len(d.SubSections) > 0,
			Own:       CalculateDepartmentTotals(records, d.Name),
			Totals:    c.MainDepartmentTotals(records, d.Name),
		}
		for _, s := range d.SubSections {
			row.SubSections = append(row.SubSections, SubSectionTotals{
				Name:   s,
				Totals: CalculateDepartmentTotals(records, s),
			})
		}
		rows = append(rows, row)
	}
	return rows
}

func newTotals(cash, online decimal.Decimal, matched bool) DepartmentTotals {
	total := cash.Add(online)
	return DepartmentTotals{
		Cash:    cash,
		Online:  online,
		Total:   total,
		HasData: matched && total.IsPositive(),
	}
}
