package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"revdash/internal/cache"
	"revdash/internal/core"
	"revdash/internal/middleware/ratelimit"
	"revdash/internal/notify"
	"revdash/internal/services"
	"revdash/internal/sheets/memory"
)

// Wednesday
var testNow = time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC)

func rec(date, dept string, cash, online int64) core.TransactionRecord {
	return core.TransactionRecord{Date: date, Department: dept, Cash: decimal.NewFromInt(cash), Online: decimal.NewFromInt(online)}
}

type testEnv struct {
	srv    *Server
	sync   *services.SyncManager
	center *notify.Center
	store  *memory.Store
}

func newTestEnv(t *testing.T, limit ratelimit.Config) *testEnv {
	t.Helper()
	store := memory.New(
		[]core.TransactionRecord{
			rec("1/13/2025", "Kitchen", 100, 50),
			rec("1/14/2025", "Kitchen Hundi", 20, 0),
			rec("1/2/2025", "Main Hundi", 300, 100),
			rec("12/30/2024", "Parking", 10, 10),
		},
		[]core.BankAccountRecord{
			{BankDetails: "SBI Main", CurrentBalance: decimal.NewFromInt(1000)},
			{BankDetails: "Kotak Mahindra", CurrentBalance: decimal.NewFromInt(500)},
		},
	)
	center := notify.NewCenter(time.Minute)
	mgr := services.NewSyncManager(store, services.SyncManagerConfig{RefreshInterval: time.Hour}, center, nil)
	caches := cache.NewManager(nil)

	srv := NewServer(Options{
		Addr:          ":0",
		Sync:          mgr,
		Notifications: center,
		Location:      time.UTC,
		Caches:        caches,
		RateLimit:     limit,
		Now:           func() time.Time { return testNow },
	})
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		mgr.Disconnect(ctx)
		srv.Shutdown(ctx)
		caches.Stop()
	})
	return &testEnv{srv: srv, sync: mgr, center: center, store: store}
}

func (e *testEnv) do(t *testing.T, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(method, target, nil)
	req.RemoteAddr = "203.0.113.7:5555"
	e.srv.Handler.ServeHTTP(rr, req)
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode %q: %v", rr.Body.String(), err)
	}
	return body
}

func TestHealthAndReadiness(t *testing.T) {
	env := newTestEnv(t, ratelimit.Config{})

	if rr := env.do(t, http.MethodGet, "/healthz"); rr.Code != http.StatusOK {
		t.Fatalf("healthz = %d", rr.Code)
	}
	if rr := env.do(t, http.MethodGet, "/readyz"); rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("readyz before connect = %d", rr.Code)
	}
	if rr := env.do(t, http.MethodPost, "/api/connect"); rr.Code != http.StatusOK {
		t.Fatalf("connect = %d %s", rr.Code, rr.Body.String())
	}
	if rr := env.do(t, http.MethodGet, "/readyz"); rr.Code != http.StatusOK {
		t.Fatalf("readyz after connect = %d", rr.Code)
	}
}

func TestEndpointsBeforeConnect(t *testing.T) {
	env := newTestEnv(t, ratelimit.Config{})

	rr := env.do(t, http.MethodGet, "/api/dashboard")
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("dashboard = %d", rr.Code)
	}
	if code := decode(t, rr)["error"].(map[string]any)["code"]; code != "no_data" {
		t.Fatalf("error code = %v", code)
	}

	rr = env.do(t, http.MethodPost, "/api/refresh")
	if rr.Code != http.StatusConflict {
		t.Fatalf("refresh = %d", rr.Code)
	}

	rr = env.do(t, http.MethodGet, "/api/departments")
	if rr.Code != http.StatusOK {
		t.Fatalf("departments = %d", rr.Code)
	}
	body := decode(t, rr)
	if _, ok := body["breakdown"]; ok {
		t.Fatal("breakdown needs data")
	}
	names := body["names"].([]any)
	if len(names) != len(core.DefaultCatalog) || names[0] != "Main Hundi" {
		t.Fatalf("names = %v", names)
	}
}

func TestConnectFailure(t *testing.T) {
	env := newTestEnv(t, ratelimit.Config{})
	env.store.FailWith(context.DeadlineExceeded)

	rr := env.do(t, http.MethodPost, "/api/connect")
	if rr.Code != http.StatusBadGateway {
		t.Fatalf("connect = %d", rr.Code)
	}
	body := decode(t, rr)
	if body["status"].(map[string]any)["state"] != "error" {
		t.Fatalf("status = %v", body["status"])
	}
}

func TestDashboard(t *testing.T) {
	env := newTestEnv(t, ratelimit.Config{})
	env.do(t, http.MethodPost, "/api/connect")

	rr := env.do(t, http.MethodGet, "/api/dashboard?filter=week&department=Kitchen")
	if rr.Code != http.StatusOK {
		t.Fatalf("dashboard = %d %s", rr.Code, rr.Body.String())
	}
	if rr.Header().Get("X-Cache") != "MISS" {
		t.Fatalf("first request should miss, got %q", rr.Header().Get("X-Cache"))
	}
	body := decode(t, rr)

	if body["recordCount"].(float64) != 2 {
		t.Fatalf("recordCount = %v", body["recordCount"])
	}
	filter := body["filter"].(map[string]any)
	if filter["start"] != "1/13/2025" || filter["end"] != "1/19/2025" {
		t.Fatalf("filter = %v", filter)
	}
	kpis := body["kpis"].(map[string]any)
	if kpis["totalRevenue"] != "170" || kpis["activeDepartments"].(float64) != 2 {
		t.Fatalf("kpis = %v", kpis)
	}
	selected := body["selected"].(map[string]any)
	if selected["composite"] != true || selected["totals"].(map[string]any)["total"] != "170" {
		t.Fatalf("selected = %v", selected)
	}
	analytics := body["analytics"].(map[string]any)
	if analytics["bestDay"] != "1/13/2025" || analytics["cashOnlineRatio"] != "2.40:1" {
		t.Fatalf("analytics = %v", analytics)
	}
	bank := body["bank"].(map[string]any)
	if bank["totalBalance"] != "1000" || bank["excludedCount"].(float64) != 1 {
		t.Fatalf("bank = %v", bank)
	}
	if body["status"].(map[string]any)["connected"] != true {
		t.Fatal("status should be embedded")
	}

	rr = env.do(t, http.MethodGet, "/api/dashboard?filter=week&department=Kitchen")
	if rr.Header().Get("X-Cache") != "HIT" {
		t.Fatalf("second request should hit, got %q", rr.Header().Get("X-Cache"))
	}

	// A refresh produces a new snapshot, so the cached view is not reused.
	time.Sleep(time.Millisecond)
	env.do(t, http.MethodPost, "/api/refresh")
	rr = env.do(t, http.MethodGet, "/api/dashboard?filter=week&department=Kitchen")
	if rr.Header().Get("X-Cache") != "MISS" {
		t.Fatalf("request after refresh should miss, got %q", rr.Header().Get("X-Cache"))
	}
}

func TestDashboardUnknownDepartment(t *testing.T) {
	env := newTestEnv(t, ratelimit.Config{})
	env.do(t, http.MethodPost, "/api/connect")

	rr := env.do(t, http.MethodGet, "/api/dashboard?department=Nowhere")
	selected := decode(t, rr)["selected"].(map[string]any)
	if selected["known"] != false || selected["totals"].(map[string]any)["hasData"] != false {
		t.Fatalf("selected = %v", selected)
	}
}

func TestDashboardBadQuery(t *testing.T) {
	env := newTestEnv(t, ratelimit.Config{})
	env.do(t, http.MethodPost, "/api/connect")

	rr := env.do(t, http.MethodGet, "/api/dashboard?start=not-a-date")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rr.Code)
	}
}

func TestRecordsAndBankAccounts(t *testing.T) {
	env := newTestEnv(t, ratelimit.Config{})
	env.do(t, http.MethodPost, "/api/connect")

	rr := env.do(t, http.MethodGet, "/api/records?department=Kitchen")
	if got := decode(t, rr)["count"].(float64); got != 2 {
		t.Fatalf("kitchen records = %v", got)
	}
	rr = env.do(t, http.MethodGet, "/api/records?filter=specific&start=2025-01-02&end=2025-01-02")
	if got := decode(t, rr)["count"].(float64); got != 1 {
		t.Fatalf("specific day records = %v", got)
	}

	rr = env.do(t, http.MethodGet, "/api/bank-accounts")
	summary := decode(t, rr)["summary"].(map[string]any)
	if summary["includedCount"].(float64) != 1 {
		t.Fatalf("summary = %v", summary)
	}
}

func TestExports(t *testing.T) {
	env := newTestEnv(t, ratelimit.Config{})
	env.do(t, http.MethodPost, "/api/connect")

	rr := env.do(t, http.MethodGet, "/api/export.csv?filter=month")
	if rr.Code != http.StatusOK {
		t.Fatalf("csv = %d", rr.Code)
	}
	if !strings.HasPrefix(rr.Header().Get("Content-Type"), "text/csv") {
		t.Fatalf("content type = %q", rr.Header().Get("Content-Type"))
	}
	if !strings.Contains(rr.Header().Get("Content-Disposition"), "revdash-month-2025-01-15.csv") {
		t.Fatalf("disposition = %q", rr.Header().Get("Content-Disposition"))
	}
	lines := strings.Split(strings.TrimSpace(rr.Body.String()), "\n")
	if lines[0] != "date,department,cash,online,total" || len(lines) != 4 {
		t.Fatalf("csv body = %q", rr.Body.String())
	}

	rr = env.do(t, http.MethodGet, "/api/export.xlsx")
	if rr.Code != http.StatusOK || rr.Header().Get("Content-Type") != "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet" {
		t.Fatalf("xlsx = %d %q", rr.Code, rr.Header().Get("Content-Type"))
	}
	if rr.Body.Len() == 0 {
		t.Fatal("empty workbook")
	}
}

func TestNotifications(t *testing.T) {
	env := newTestEnv(t, ratelimit.Config{})
	env.do(t, http.MethodPost, "/api/connect")

	rr := env.do(t, http.MethodGet, "/api/notifications")
	body := decode(t, rr)
	if body["count"].(float64) < 2 {
		t.Fatalf("notifications = %v", body)
	}
	first := body["notifications"].([]any)[0].(map[string]any)
	id := first["id"].(string)

	if rr := env.do(t, http.MethodDelete, "/api/notifications/"+id); rr.Code != http.StatusNoContent {
		t.Fatalf("dismiss = %d", rr.Code)
	}
	if rr := env.do(t, http.MethodDelete, "/api/notifications/"+id); rr.Code != http.StatusNotFound {
		t.Fatalf("second dismiss = %d", rr.Code)
	}
}

func TestDisconnectKeepsSnapshot(t *testing.T) {
	env := newTestEnv(t, ratelimit.Config{})
	env.do(t, http.MethodPost, "/api/connect")

	rr := env.do(t, http.MethodPost, "/api/disconnect")
	if rr.Code != http.StatusOK || decode(t, rr)["connected"] != false {
		t.Fatalf("disconnect = %d %s", rr.Code, rr.Body.String())
	}
	if rr := env.do(t, http.MethodGet, "/api/dashboard"); rr.Code != http.StatusOK {
		t.Fatalf("dashboard after disconnect = %d", rr.Code)
	}
	if rr := env.do(t, http.MethodPost, "/api/refresh"); rr.Code != http.StatusConflict {
		t.Fatalf("refresh after disconnect = %d", rr.Code)
	}
}

func TestMiddlewareChain(t *testing.T) {
	env := newTestEnv(t, ratelimit.Config{RequestsPerMinute: 2, Methods: []string{http.MethodPost}})

	rr := env.do(t, http.MethodGet, "/api/status")
	if rr.Header().Get("X-Request-ID") == "" {
		t.Error("missing request id")
	}
	if rr.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("missing security headers")
	}

	env.do(t, http.MethodPost, "/api/connect")
	env.do(t, http.MethodPost, "/api/refresh")
	rr = env.do(t, http.MethodPost, "/api/refresh")
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("third POST = %d", rr.Code)
	}
	if rr := env.do(t, http.MethodGet, "/api/status"); rr.Code != http.StatusOK {
		t.Fatalf("GET should not be limited, got %d", rr.Code)
	}

	rr = env.do(t, http.MethodGet, "/metrics")
	for _, want := range []string{"http_requests_total", "rate_limit_hits_total 1", "source_connected 1"} {
		if !strings.Contains(rr.Body.String(), want) {
			t.Errorf("metrics missing %q", want)
		}
	}

	rr = env.do(t, http.MethodGet, "/nope")
	if rr.Code != http.StatusNotFound || decode(t, rr)["error"] == nil {
		t.Fatalf("unknown route = %d %s", rr.Code, rr.Body.String())
	}
}
