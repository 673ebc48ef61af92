package api

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/starford/rollbook/internal/form"
	"github.com/starford/rollbook/internal/recordstore"
	"github.com/starford/rollbook/internal/session"
	"github.com/starford/rollbook/internal/testutil"
)

var header = []string{"character_name", "date", "roll_value", "notes"}

// testEnv sets up a fake store, a pinned session and the router.
// An empty authToken means disabled mode.
func testEnv(t *testing.T, authToken string, rows [][]string) (*testutil.FakeProvider, http.Handler) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	p := testutil.NewFakeProvider(rows)
	store := recordstore.New(p, time.Second, logger)
	router := NewRouter(session.NewPinned(store), form.NewController(logger), authToken != "", authToken)
	return p, router
}

func seeded() [][]string {
	return [][]string{
		header,
		{"Alice", "2024-01-01", "55", "note A"},
		{"Bob", "2024-02-01", "10", "note B"},
	}
}

func postJSON(t *testing.T, router http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/records", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestListRecords(t *testing.T) {
	_, router := testEnv(t, "", seeded())

	req := httptest.NewRequest(http.MethodGet, "/records?name=Alice", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("list status = %d, body = %s", w.Code, w.Body.String())
	}

	var resp struct {
		Records []struct {
			CharacterName string `json:"character_name"`
			Date          string `json:"date"`
			RollValue     int    `json:"roll_value"`
		} `json:"records"`
		Total int      `json:"total"`
		Names []string `json:"names"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Total != 2 {
		t.Errorf("total = %d, want 2", resp.Total)
	}
	if len(resp.Records) != 1 || resp.Records[0].CharacterName != "Alice" || resp.Records[0].Date != "2024-01-01" {
		t.Errorf("records = %+v", resp.Records)
	}
	if len(resp.Names) != 2 {
		t.Errorf("names = %v", resp.Names)
	}
}

func TestListRecords_Empty(t *testing.T) {
	_, router := testEnv(t, "", nil)

	req := httptest.NewRequest(http.MethodGet, "/records", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("list status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"records":[]`) {
		t.Errorf("body = %s, want empty array", w.Body.String())
	}
}

func TestListRecords_BadFilter(t *testing.T) {
	_, router := testEnv(t, "", seeded())

	req := httptest.NewRequest(http.MethodGet, "/records?min=lots", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad filter = %d, want 400", w.Code)
	}
}

func TestCreateRecord(t *testing.T) {
	p, router := testEnv(t, "", nil)

	w := postJSON(t, router, `{"character_name":"Alice","date":"2024-01-01","roll_value":55,"notes":"x"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", w.Code, w.Body.String())
	}
	rows := p.Rows()
	if len(rows) != 2 || rows[1][0] != "Alice" || rows[1][2] != "55" {
		t.Errorf("stored rows = %v", rows)
	}

	// String roll values are accepted too.
	w = postJSON(t, router, `{"character_name":"Bob","date":"2024-02-01","roll_value":"0"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `"total":2`) {
		t.Errorf("body = %s", w.Body.String())
	}
}

func TestCreateRecord_Validation(t *testing.T) {
	p, router := testEnv(t, "", nil)

	w := postJSON(t, router, `{"character_name":"","date":"2024-01-01","roll_value":0}`)
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", w.Code)
	}
	var resp errResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Fields[form.FieldCharacterName] == "" {
		t.Errorf("fields = %v, want character_name", resp.Fields)
	}
	if _, ok := resp.Fields[form.FieldRollValue]; ok {
		t.Error("roll 0 must be valid")
	}
	if p.Writes != 0 {
		t.Errorf("writes = %d, want 0", p.Writes)
	}
}

func TestCreateRecord_MissingRoll(t *testing.T) {
	_, router := testEnv(t, "", nil)

	w := postJSON(t, router, `{"character_name":"Alice","date":"2024-01-01","roll_value":null}`)
	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422", w.Code)
	}
}

func TestCreateRecord_InvalidJSON(t *testing.T) {
	_, router := testEnv(t, "", nil)

	for _, body := range []string{`{`, `{"unknown":1}`, `{"roll_value":true}`} {
		if w := postJSON(t, router, body); w.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", body, w.Code)
		}
	}
}

func TestCreateRecord_PersistFailure(t *testing.T) {
	p, router := testEnv(t, "", nil)
	p.SetFailures(false, true)

	w := postJSON(t, router, `{"character_name":"Alice","date":"2024-01-01","roll_value":1}`)
	if w.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", w.Code)
	}

	// Kept in the session; the retry saves it.
	p.SetFailures(false, false)
	req := httptest.NewRequest(http.MethodPost, "/records/persist", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("persist status = %d", rec.Code)
	}
	if rows := p.Rows(); len(rows) != 2 {
		t.Errorf("stored rows = %v", rows)
	}
}

func TestStoreUnavailable(t *testing.T) {
	p, router := testEnv(t, "", seeded())
	p.SetFailures(true, false)

	req := httptest.NewRequest(http.MethodGet, "/records", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", w.Code)
	}
}

func TestExportRecords(t *testing.T) {
	_, router := testEnv(t, "", seeded())

	req := httptest.NewRequest(http.MethodGet, "/records/export?max=20", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("export status = %d", w.Code)
	}
	want := "character_name,date,roll_value,notes\nBob,2024-02-01,10,note B\n"
	if w.Body.String() != want {
		t.Errorf("export = %q, want %q", w.Body.String(), want)
	}
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	_, router := testEnv(t, "secret123", nil)

	body, _ := json.Marshal(map[string]any{"character_name": "Alice", "date": "2024-01-01", "roll_value": 5})
	req := httptest.NewRequest(http.MethodPost, "/records", bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer secret123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Errorf("authed create = %d, want 201", w.Code)
	}
}

func TestAuthMiddleware_MissingToken(t *testing.T) {
	_, router := testEnv(t, "secret123", nil)

	req := httptest.NewRequest(http.MethodGet, "/records", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("unauthed = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_WrongToken(t *testing.T) {
	_, router := testEnv(t, "secret123", nil)

	req := httptest.NewRequest(http.MethodGet, "/records", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token = %d, want 401", w.Code)
	}
}

func TestExportRecords_NotModified(t *testing.T) {
	_, router := testEnv(t, "", seeded())

	req := httptest.NewRequest(http.MethodGet, "/records/export", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	etag := w.Header().Get("ETag")
	if etag == "" {
		t.Fatal("missing ETag")
	}

	req = httptest.NewRequest(http.MethodGet, "/records/export", nil)
	req.Header.Set("If-None-Match", etag)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusNotModified || w.Body.Len() != 0 {
		t.Errorf("conditional export = %d %q, want 304", w.Code, w.Body.String())
	}

	// A new record changes the tag.
	postJSON(t, router, `{"character_name":"Cara","date":"2024-03-01","roll_value":3}`)
	req = httptest.NewRequest(http.MethodGet, "/records/export", nil)
	req.Header.Set("If-None-Match", etag)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("export after change = %d, want 200", w.Code)
	}
}
