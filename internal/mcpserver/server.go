// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes rollbook tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/rollbook/internal/apperr"
	"github.com/starford/rollbook/internal/export"
	"github.com/starford/rollbook/internal/filter"
	"github.com/starford/rollbook/internal/form"
	"github.com/starford/rollbook/internal/session"
)

const formatURI = "rollbook://record-format"

// Server wraps the MCP server with rollbook tools.
type Server struct {
	mcp   *server.MCPServer
	pin   *session.Pinned
	forms *form.Controller
}

// New creates a new MCP server with all rollbook tools registered.
func New(pin *session.Pinned, forms *form.Controller) *Server {
	s := &Server{pin: pin, forms: forms}

	s.mcp = server.NewMCPServer(
		"Rollbook",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("add_record",
		mcp.WithDescription("Record a dice roll and save it to the record store. "+
			"Read the record format first via the get_record_format tool or the "+
			formatURI+" resource."),
		mcp.WithString(form.FieldCharacterName, mcp.Required(), mcp.Description("Character who rolled")),
		mcp.WithString(form.FieldDate, mcp.Required(), mcp.Description("Date of the roll, YYYY-MM-DD")),
		mcp.WithNumber(form.FieldRollValue, mcp.Required(), mcp.Description("Roll value, 0 to 100")),
		mcp.WithString(form.FieldNotes, mcp.Description("Optional notes")),
	), s.addRecord)

	s.mcp.AddTool(withFilters(mcp.NewTool("find_records",
		mcp.WithDescription("List records matching the optional filters as JSON."),
	)), s.findRecords)

	s.mcp.AddTool(withFilters(mcp.NewTool("export_records",
		mcp.WithDescription("Export records matching the optional filters as CSV."),
	)), s.exportRecords)

	s.mcp.AddTool(mcp.NewTool("list_characters",
		mcp.WithDescription("List the distinct character names in order of first appearance."),
	), s.listCharacters)

	s.mcp.AddTool(mcp.NewTool("get_record_format",
		mcp.WithDescription("Returns the record field rules and filter parameters."),
	), s.getRecordFormat)

	s.mcp.AddResource(
		mcp.NewResource(formatURI, "Record Format",
			mcp.WithResourceDescription("Dice-roll record fields, validation rules and filters."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readRecordFormatResource,
	)

	return s
}

// withFilters adds the filter arguments shared by find and export.
func withFilters(t mcp.Tool) mcp.Tool {
	opts := []mcp.ToolOption{
		mcp.WithString(filter.ParamName, mcp.Description("Character names, comma separated")),
		mcp.WithString(filter.ParamFrom, mcp.Description("First date, YYYY-MM-DD")),
		mcp.WithString(filter.ParamTo, mcp.Description("Last date, YYYY-MM-DD")),
		mcp.WithNumber(filter.ParamMin, mcp.Description("Lowest roll")),
		mcp.WithNumber(filter.ParamMax, mcp.Description("Highest roll")),
	}
	for _, o := range opts {
		o(&t)
	}
	return t
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) addRecord(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	in := form.Input{
		CharacterName: argString(args[form.FieldCharacterName]),
		Date:          argString(args[form.FieldDate]),
		RollValue:     argString(args[form.FieldRollValue]),
		Notes:         argString(args[form.FieldNotes]),
	}
	sess, err := s.pin.Get(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	rec, err := s.forms.Submit(ctx, sess, in)
	var verr *apperr.ValidationError
	switch {
	case err == nil:
	case errors.As(err, &verr):
		out, _ := json.Marshal(verr.Fields)
		return mcp.NewToolResultError("validation failed: " + string(out)), nil
	case errors.Is(err, apperr.ErrPersistPartial):
		return mcp.NewToolResultError("recorded in session but not saved: " + err.Error()), nil
	default:
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("recorded: %s rolled %d on %s",
		rec.CharacterName, rec.RollValue, rec.DateString())), nil
}

func (s *Server) findRecords(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, err := s.pin.Get(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	records := sess.Records()
	crit, err := filter.Parse(filterValues(req.GetArguments()), filter.Defaults(records))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	matched := filter.Apply(records, crit)
	if len(matched) == 0 {
		return mcp.NewToolResultText("no records found"), nil
	}
	out, _ := json.MarshalIndent(matched, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) exportRecords(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, err := s.pin.Get(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	records := sess.Records()
	crit, err := filter.Parse(filterValues(req.GetArguments()), filter.Defaults(records))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	body, err := export.ToCSV(filter.Apply(records, crit))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(body), nil
}

func (s *Server) listCharacters(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, err := s.pin.Get(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	names := filter.Names(sess.Records())
	if len(names) == 0 {
		return mcp.NewToolResultText("no characters recorded"), nil
	}
	return mcp.NewToolResultText(strings.Join(names, "\n")), nil
}

func (s *Server) getRecordFormat(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(RecordFormat), nil
}

func (s *Server) readRecordFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      formatURI,
			MIMEType: "text/markdown",
			Text:     RecordFormat,
		},
	}, nil
}

// filterValues maps tool arguments onto the query parameters filter.Parse
// understands. Names may arrive comma separated or as a list.
func filterValues(args map[string]any) url.Values {
	v := url.Values{}
	switch names := args[filter.ParamName].(type) {
	case string:
		for _, n := range strings.Split(names, ",") {
			v.Add(filter.ParamName, n)
		}
	case []any:
		for _, n := range names {
			v.Add(filter.ParamName, argString(n))
		}
	}
	for _, key := range []string{filter.ParamFrom, filter.ParamTo, filter.ParamMin, filter.ParamMax} {
		if s := argString(args[key]); s != "" {
			v.Set(key, s)
		}
	}
	return v
}

func argString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case json.Number:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}
