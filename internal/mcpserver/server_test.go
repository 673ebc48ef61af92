package mcpserver

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/rollbook/internal/form"
	"github.com/starford/rollbook/internal/recordstore"
	"github.com/starford/rollbook/internal/session"
	"github.com/starford/rollbook/internal/testutil"
)

func testServer(t *testing.T, rows [][]string) (*Server, *testutil.FakeProvider) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	p := testutil.NewFakeProvider(rows)
	store := recordstore.New(p, time.Second, logger)
	return New(session.NewPinned(store), form.NewController(logger)), p
}

func seeded() [][]string {
	return [][]string{
		{"character_name", "date", "roll_value", "notes"},
		{"Alice", "2024-01-01", "55", "note A"},
		{"Bob", "2024-02-01", "10", "note B"},
	}
}

func callTool(t *testing.T, srv *Server, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go has no in-process call helper, so dispatch to the handlers.
	var result *mcp.CallToolResult
	var err error

	switch name {
	case "add_record":
		result, err = srv.addRecord(ctx, req)
	case "find_records":
		result, err = srv.findRecords(ctx, req)
	case "export_records":
		result, err = srv.exportRecords(ctx, req)
	case "list_characters":
		result, err = srv.listCharacters(ctx, req)
	case "get_record_format":
		result, err = srv.getRecordFormat(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestAddRecord(t *testing.T) {
	srv, p := testServer(t, nil)

	r := callTool(t, srv, "add_record", map[string]interface{}{
		"character_name": "Alice",
		"date":           "2024-01-01",
		"roll_value":     float64(0),
		"notes":          "first",
	})
	if r.IsError {
		t.Fatalf("add failed: %s", resultText(r))
	}
	if text := resultText(r); text != "recorded: Alice rolled 0 on 2024-01-01" {
		t.Errorf("add result = %q", text)
	}
	rows := p.Rows()
	if len(rows) != 2 || rows[1][2] != "0" {
		t.Errorf("stored rows = %v", rows)
	}
}

func TestAddRecord_Invalid(t *testing.T) {
	srv, p := testServer(t, nil)

	r := callTool(t, srv, "add_record", map[string]interface{}{
		"character_name": " ",
		"date":           "1999-12-31",
		"roll_value":     float64(101),
	})
	if !r.IsError {
		t.Fatal("expected validation error")
	}
	text := resultText(r)
	for _, field := range []string{"character_name", "date", "roll_value"} {
		if !strings.Contains(text, field) {
			t.Errorf("error %q does not name %s", text, field)
		}
	}
	if p.Writes != 0 {
		t.Errorf("writes = %d, want 0", p.Writes)
	}
}

func TestAddRecord_PersistFailure(t *testing.T) {
	srv, p := testServer(t, nil)
	p.SetFailures(false, true)

	r := callTool(t, srv, "add_record", map[string]interface{}{
		"character_name": "Alice",
		"date":           "2024-01-01",
		"roll_value":     float64(7),
	})
	if !r.IsError || !strings.Contains(resultText(r), "not saved") {
		t.Errorf("result = %q, want not saved error", resultText(r))
	}

	// The record stays in the session.
	r = callTool(t, srv, "list_characters", map[string]interface{}{})
	if resultText(r) != "Alice" {
		t.Errorf("characters = %q", resultText(r))
	}
}

func TestFindRecords(t *testing.T) {
	srv, _ := testServer(t, seeded())

	r := callTool(t, srv, "find_records", map[string]interface{}{"name": "Alice"})
	text := resultText(r)
	if !strings.Contains(text, `"character_name": "Alice"`) || strings.Contains(text, "Bob") {
		t.Errorf("find result = %s", text)
	}

	r = callTool(t, srv, "find_records", map[string]interface{}{"min": float64(90)})
	if text := resultText(r); text != "no records found" {
		t.Errorf("find result = %q", text)
	}

	r = callTool(t, srv, "find_records", map[string]interface{}{"from": "last week"})
	if !r.IsError {
		t.Error("expected error for bad date")
	}
}

func TestExportRecords(t *testing.T) {
	srv, _ := testServer(t, seeded())

	r := callTool(t, srv, "export_records", map[string]interface{}{"name": []interface{}{"Bob"}})
	want := "character_name,date,roll_value,notes\nBob,2024-02-01,10,note B\n"
	if text := resultText(r); text != want {
		t.Errorf("export = %q, want %q", text, want)
	}
}

func TestListCharacters(t *testing.T) {
	srv, _ := testServer(t, nil)
	r := callTool(t, srv, "list_characters", map[string]interface{}{})
	if text := resultText(r); text != "no characters recorded" {
		t.Errorf("empty list = %q", text)
	}

	srv, _ = testServer(t, seeded())
	r = callTool(t, srv, "list_characters", map[string]interface{}{})
	if text := resultText(r); text != "Alice\nBob" {
		t.Errorf("list = %q", text)
	}

	// Order follows the records, not the alphabet.
	srv, _ = testServer(t, [][]string{
		{"character_name", "date", "roll_value", "notes"},
		{"Zed", "2024-01-01", "1", ""},
		{"Alice", "2024-01-02", "2", ""},
		{"Zed", "2024-01-03", "3", ""},
	})
	r = callTool(t, srv, "list_characters", map[string]interface{}{})
	if text := resultText(r); text != "Zed\nAlice" {
		t.Errorf("list = %q, want first-appearance order", text)
	}
}

func TestStoreUnavailable(t *testing.T) {
	srv, p := testServer(t, seeded())
	p.SetFailures(true, false)

	r := callTool(t, srv, "list_characters", map[string]interface{}{})
	if !r.IsError {
		t.Error("expected error when the store cannot be read")
	}
}

func TestRecordFormatResource(t *testing.T) {
	srv, _ := testServer(t, nil)
	contents, err := srv.readRecordFormatResource(context.Background(), mcp.ReadResourceRequest{})
	if err != nil {
		t.Fatal(err)
	}
	tc, ok := contents[0].(mcp.TextResourceContents)
	if !ok || tc.URI != "rollbook://record-format" || !strings.Contains(tc.Text, "roll_value") {
		t.Errorf("resource = %+v", contents)
	}
	if text := resultText(callTool(t, srv, "get_record_format", nil)); text != RecordFormat {
		t.Error("tool and resource disagree")
	}
}
