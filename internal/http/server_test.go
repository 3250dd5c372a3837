package http

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GillJordan/Home-expense/internal/core"
	"github.com/GillJordan/Home-expense/internal/gateway"
	"github.com/GillJordan/Home-expense/internal/log"
	"github.com/GillJordan/Home-expense/internal/sheets/memory"
)

var testNow = time.Date(2025, 9, 4, 10, 11, 12, 345_000_000, time.UTC)

func newTestServer(t *testing.T, store *memory.Store, rateLimit int) *Server {
	t.Helper()
	logger := log.New(log.Config{Handler: slog.NewTextHandler(io.Discard, nil)})
	clock := func() time.Time { return testNow }
	svc := gateway.New(store, gateway.WithClock(clock), gateway.WithLogger(logger))
	srv := NewServer(":0", svc, Options{RateLimitPerMinute: rateLimit, Logger: logger, Now: clock})
	t.Cleanup(func() { srv.limiter.Stop() })
	return srv
}

func do(srv *Server, method, target, body string) *httptest.ResponseRecorder {
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestLedger_Health(t *testing.T) {
	srv := newTestServer(t, memory.New(), 0)
	rec := do(srv, http.MethodGet, "/api/ledger?health=1", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":true,"msg":"function alive","method":"GET"}`, rec.Body.String())
	assertNoCache(t, rec.Header())
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}

func TestLedger_HealthWinsOverEverything(t *testing.T) {
	srv := newTestServer(t, memory.New(), 0)
	rec := do(srv, http.MethodPost, "/api/ledger?health=1&all=true", `{"date":"2025-09-04"}`)
	assert.JSONEq(t, `{"ok":true,"msg":"function alive","method":"POST"}`, rec.Body.String())
}

func TestLedger_Diag(t *testing.T) {
	store := memory.New()
	store.Seed("2024", core.SchemaV1.Header())
	srv := newTestServer(t, store, 0)

	rec := do(srv, http.MethodGet, "/api/ledger?diag=1", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":true,"sheetId":"memory","tabs":["2024"]}`, rec.Body.String())

	store.FailWith = core.Auth("invalid_grant", nil)
	rec = do(srv, http.MethodGet, "/api/ledger?diag=1", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.True(t, strings.HasPrefix(decode(t, rec)["error"].(string), "Auth/Sheet error: "))
}

func TestLedger_AppendThenDaily(t *testing.T) {
	srv := newTestServer(t, memory.New(), 0)

	rec := do(srv, http.MethodPost, "/api/ledger", `{"date":"2025-09-04","debit":"3.20","product":"Milk","for":"Home","quantity":1,"by":"Ann","from":"Shop"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"message":"Row added","row":["Thursday","04 September 2025","","3.20","Milk","Home","1","Ann","Shop","2025-09-04T10:11:12.345Z"]}`, rec.Body.String())

	rec = do(srv, http.MethodGet, "/api/ledger?daily=true&date=2025-09-04", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"data":[["Thursday","04 September 2025","","3.20","Milk","Home","1","Ann","Shop","2025-09-04T10:11:12.345Z"]]}`, rec.Body.String())

	rec = do(srv, http.MethodGet, "/api/ledger?all=true", "")
	require.Equal(t, http.StatusOK, rec.Code)
	data := decode(t, rec)["data"].([]any)
	assert.Len(t, data, 2)
}

func TestLedger_AppendErrors(t *testing.T) {
	srv := newTestServer(t, memory.New(), 0)

	tests := []struct {
		name string
		body string
		want string
	}{
		{"missing date", `{"product":"Milk"}`, "Body must include at least { date }"},
		{"empty body", "", "Body must include at least { date }"},
		{"invalid date", `{"date":"yesterday"}`, `invalid date "yesterday"`},
		{"malformed json", `{"date":`, "invalid JSON body"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(srv, http.MethodPost, "/api/ledger", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.want, decode(t, rec)["error"])
			assertNoCache(t, rec.Header())
		})
	}
}

func TestLedger_StoreFailureIs500(t *testing.T) {
	store := memory.New()
	store.FailWith = core.Store("quota exceeded", nil)
	srv := newTestServer(t, store, 0)

	rec := do(srv, http.MethodPost, "/api/ledger", `{"date":"2025-09-04"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, decode(t, rec)["error"], "quota exceeded")
}

func TestLedger_DailyNeedsDate(t *testing.T) {
	srv := newTestServer(t, memory.New(), 0)
	rec := do(srv, http.MethodGet, "/api/ledger?daily=true", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "daily=true needs ?date=YYYY-MM-DD", decode(t, rec)["error"])
}

func TestLedger_Search(t *testing.T) {
	store := memory.New()
	store.Seed("2025", core.SchemaV1.Header(),
		core.Row{"Monday", "01 September 2025", "", "100", "Milk"},
		core.Row{"Tuesday", "02 September 2025", "", "", "Bread"},
		core.Row{"Wednesday", "03 September 2025", "", "abc", "Oat milk"},
		core.Row{"Thursday", "04 September 2025", "", "50", "Cheese"},
	)
	srv := newTestServer(t, store, 0)

	rec := do(srv, http.MethodGet, "/api/ledger?search=", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Len(t, body["data"], 4)
	assert.Equal(t, float64(150), body["totalDebit"])

	rec = do(srv, http.MethodGet, "/api/ledger?search=MILK", "")
	body = decode(t, rec)
	assert.Len(t, body["data"], 2)
	assert.Equal(t, float64(100), body["totalDebit"])

	rec = do(srv, http.MethodGet, "/api/ledger?search=&startDate=2025-09-03&endDate=2025-09-04", "")
	body = decode(t, rec)
	assert.Len(t, body["data"], 2)
	assert.Equal(t, float64(50), body["totalDebit"])

	rec = do(srv, http.MethodGet, "/api/ledger?search=x&startDate=bogus", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLedger_Suggestions(t *testing.T) {
	store := memory.New()
	store.Seed("2025", core.SchemaV1.Header(),
		core.Row{"", "", "", "", "Milk", "Home", "", "Ann", "Shop"},
		core.Row{"", "", "", "", "Milk", "", "", "Bob", "Shop"},
	)
	srv := newTestServer(t, store, 0)

	rec := do(srv, http.MethodGet, "/api/ledger?suggestions=true", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"data":{"products":["Milk"],"forList":["Home"],"byList":["Ann","Bob"],"fromList":["Shop"]}}`, rec.Body.String())
}

func TestLedger_MethodNotAllowed(t *testing.T) {
	srv := newTestServer(t, memory.New(), 0)
	for _, m := range []string{http.MethodGet, http.MethodPut, http.MethodDelete} {
		rec := do(srv, m, "/api/ledger", "")
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code, m)
		assert.Equal(t, "Method Not Allowed", decode(t, rec)["error"])
	}
}

func TestLedger_LegacyPath(t *testing.T) {
	srv := newTestServer(t, memory.New(), 0)
	rec := do(srv, http.MethodGet, "/.netlify/functions/addExpense?health=1", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestLedger_PreflightAndCORS(t *testing.T) {
	srv := newTestServer(t, memory.New(), 0)
	rec := do(srv, http.MethodOptions, "/api/ledger", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestLedger_RateLimitsPosts(t *testing.T) {
	srv := newTestServer(t, memory.New(), 1)

	rec := do(srv, http.MethodPost, "/api/ledger", `{"date":"2025-09-04"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(srv, http.MethodPost, "/api/ledger", `{"date":"2025-09-04"}`)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
	assertNoCache(t, rec.Header())

	rec = do(srv, http.MethodGet, "/api/ledger?all=true", "")
	assert.Equal(t, http.StatusOK, rec.Code, "reads are not rate limited")
}

func TestHealthAndReady(t *testing.T) {
	store := memory.New()
	srv := newTestServer(t, store, 0)

	for _, path := range []string{"/healthz", "/readyz"} {
		rec := do(srv, http.MethodGet, path, "")
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}

	store.FailWith = core.Store("down", nil)
	rec := do(srv, http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
