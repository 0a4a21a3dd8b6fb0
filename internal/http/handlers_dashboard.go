package http

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"revdash/internal/core"
	"revdash/internal/export"
	"revdash/internal/log"
	"revdash/internal/services"
)

// DashboardResponse is every derived view for one filter.
type DashboardResponse struct {
	Filter       FilterView           `json:"filter"`
	KPIs         core.KPIData         `json:"kpis"`
	Analytics    core.AnalyticsData   `json:"analytics"`
	Departments  []core.DepartmentRow `json:"departments"`
	Selected     *SelectedDepartment  `json:"selected,omitempty"`
	Daily        []core.SeriesPoint   `json:"daily"`
	ByDepartment []core.SeriesPoint   `json:"byDepartment"`
	Bank         core.BankSummary     `json:"bank"`
	RecordCount  int                  `json:"recordCount"`
	FetchedAt    time.Time            `json:"fetchedAt"`
	Status       services.Status      `json:"status"`
}

// FilterView echoes the effective filter with resolved bounds.
type FilterView struct {
	Mode       core.FilterMode `json:"mode"`
	Start      string          `json:"start,omitempty"`
	End        string          `json:"end,omitempty"`
	Department string          `json:"department,omitempty"`
}

type SelectedDepartment struct {
	Name        string                  `json:"name"`
	Known       bool                    `json:"known"`
	Composite   bool                    `json:"composite"`
	Totals      core.DepartmentTotals   `json:"totals"`
	SubSections []core.SubSectionTotals `json:"subSections,omitempty"`
}

// loadView parses the query and returns the snapshot and date-filtered
// records. It writes the error response itself and returns ok=false.
func (s *Server) loadView(w http.ResponseWriter, r *http.Request) (DashboardQuery, *core.Snapshot, []core.TransactionRecord, bool) {
	q, err := ParseDashboardQuery(r.URL.Query(), s.loc)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_query", err.Error())
		return q, nil, nil, false
	}
	snap, err := s.sync.Snapshot()
	if err != nil {
		if errors.Is(err, services.ErrNoSnapshot) {
			writeError(w, http.StatusServiceUnavailable, "no_data", "no data loaded yet; connect or refresh first")
		} else {
			writeError(w, http.StatusInternalServerError, "internal", err.Error())
		}
		return q, nil, nil, false
	}
	records := core.FilterByDate(snap.Records, q.Filter, s.now().In(s.loc))
	return q, snap, records, true
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	q, snap, records, ok := s.loadView(w, r)
	if !ok {
		return
	}

	now := s.now().In(s.loc)
	key := q.cacheKey(snap.FetchedAt, now)
	resp, hit := s.dashboardCache.Get(key)
	s.recordCache(hit)
	if !hit {
		resp = s.buildDashboard(q, snap, records, now)
		s.dashboardCache.Set(key, resp)
	}
	resp.Status = s.sync.Status()

	cacheState := "MISS"
	if hit {
		cacheState = "HIT"
	}
	_ = NewJSONResponse().Header("X-Cache", cacheState).Write(w, resp)
}

func (s *Server) buildDashboard(q DashboardQuery, snap *core.Snapshot, records []core.TransactionRecord, now time.Time) DashboardResponse {
	resp := DashboardResponse{
		Filter:       filterView(q, now),
		KPIs:         core.CalculateKPIs(records, s.catalog),
		Analytics:    core.CalculateAnalytics(records, s.loc),
		Departments:  s.catalog.Breakdown(records),
		Daily:        core.DailySeries(records, s.loc),
		ByDepartment: core.DepartmentSeries(records, s.catalog),
		Bank:         core.SummarizeBankAccounts(snap.BankAccounts, s.bankExclusions),
		RecordCount:  len(records),
		FetchedAt:    snap.FetchedAt,
	}
	if q.Department != "" {
		sel := &SelectedDepartment{
			Name:      q.Department,
			Known:     s.catalog.IsValid(q.Department),
			Composite: s.catalog.IsComposite(q.Department),
			Totals:    s.catalog.MainDepartmentTotals(records, q.Department),
		}
		if d, ok := s.catalog.Lookup(q.Department); ok {
			for _, sub := range d.SubSections {
				sel.SubSections = append(sel.SubSections, core.SubSectionTotals{
					Name:   sub,
					Totals: core.CalculateDepartmentTotals(records, sub),
				})
			}
		}
		resp.Selected = sel
	}
	return resp
}

func filterView(q DashboardQuery, now time.Time) FilterView {
	v := FilterView{Mode: q.Filter.Mode, Department: q.Department}
	if start, end, bounded := q.Filter.Range(now); bounded {
		v.Start = core.FormatRecordDate(start)
		v.End = core.FormatRecordDate(end)
	}
	return v
}

// scoped applies the department filter when one was requested.
func (s *Server) scoped(q DashboardQuery, records []core.TransactionRecord) []core.TransactionRecord {
	if q.Department == "" {
		return records
	}
	return core.FilterByDepartment(records, s.catalog, q.Department)
}

func (s *Server) handleRecords(w http.ResponseWriter, r *http.Request) {
	q, _, records, ok := s.loadView(w, r)
	if !ok {
		return
	}
	records = s.scoped(q, records)
	writeJSON(w, http.StatusOK, map[string]any{
		"filter":  filterView(q, s.now().In(s.loc)),
		"records": records,
		"count":   len(records),
	})
}

func (s *Server) handleDepartments(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{
		"catalog": s.catalog,
		"names":   s.catalog.Names(),
	}
	if snap, err := s.sync.Snapshot(); err == nil {
		body["breakdown"] = s.catalog.Breakdown(snap.Records)
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) handleBankAccounts(w http.ResponseWriter, r *http.Request) {
	snap, err := s.sync.Snapshot()
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "no_data", "no data loaded yet; connect or refresh first")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"summary":    core.SummarizeBankAccounts(snap.BankAccounts, s.bankExclusions),
		"exclusions": s.bankExclusions,
	})
}

func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	s.serveExport(w, r, "csv", export.ContentTypeCSV, export.WriteCSV)
}

func (s *Server) handleExportXLSX(w http.ResponseWriter, r *http.Request) {
	s.serveExport(w, r, "xlsx", export.ContentTypeXLSX, export.WriteXLSX)
}

// serveExport renders into a buffer first so a failed render can still be
// reported as JSON.
func (s *Server) serveExport(w http.ResponseWriter, r *http.Request, ext, contentType string,
	render func(io.Writer, []core.TransactionRecord) error) {
	q, _, records, ok := s.loadView(w, r)
	if !ok {
		return
	}
	records = s.scoped(q, records)

	var buf bytes.Buffer
	if err := render(&buf, records); err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Export failed",
			log.FieldOperation, log.OpExport, log.FieldError, err)
		writeError(w, http.StatusInternalServerError, "export_failed", err.Error())
		return
	}
	atomic.AddInt64(&s.metrics.exports, 1)

	name := export.Filename(q.Filter.Mode, s.now().In(s.loc).Format("2006-01-02"), ext)
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
