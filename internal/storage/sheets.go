package storage

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// SheetsOptions identifies a spreadsheet range and how to reach it.
type SheetsOptions struct {
	SpreadsheetID string
	Range         string // A1 notation, e.g. "Sheet1!A1:E1000"
	// CredentialsJSON is a service account key. Ignored when ClientOptions
	// already carry credentials.
	CredentialsJSON []byte
	ClientOptions   []option.ClientOption
}

// ErrRangeFull is returned when rows do not fit the configured range.
var ErrRangeFull = errors.New("storage: rows exceed sheet range")

// Sheets implements Provider on a Google Sheets value range.
//
// ReplaceRows writes the new values over the top of the range and then
// clears the rows below them. A failed write leaves the previous rows in
// place; a failed clear leaves stale rows below the new ones.
type Sheets struct {
	svc           *sheets.Service
	spreadsheetID string
	rng           string
	bounds        a1Range
}

// NewSheets builds a Sheets provider. It does not contact the service.
func NewSheets(ctx context.Context, opts SheetsOptions) (*Sheets, error) {
	if opts.SpreadsheetID == "" {
		return nil, errors.New("storage: spreadsheet id is empty")
	}
	if opts.Range == "" {
		return nil, errors.New("storage: sheet range is empty")
	}
	bounds, err := parseA1(opts.Range)
	if err != nil {
		return nil, err
	}
	clientOpts := []option.ClientOption{option.WithScopes(sheets.SpreadsheetsScope)}
	if len(opts.CredentialsJSON) > 0 {
		clientOpts = append(clientOpts, option.WithCredentialsJSON(opts.CredentialsJSON))
	}
	clientOpts = append(clientOpts, opts.ClientOptions...)

	svc, err := sheets.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("storage: sheets client: %w", err)
	}
	return &Sheets{svc: svc, spreadsheetID: opts.SpreadsheetID, rng: opts.Range, bounds: bounds}, nil
}

// ReadRows fetches the configured range as formatted strings.
func (s *Sheets) ReadRows(ctx context.Context) ([][]string, error) {
	resp, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, s.rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("storage: sheets get %s: %w", s.rng, err)
	}
	out := make([][]string, 0, len(resp.Values))
	for _, row := range resp.Values {
		cells := make([]string, len(row))
		for i, v := range row {
			if v != nil {
				cells[i] = fmt.Sprint(v)
			}
		}
		out = append(out, cells)
	}
	return out, nil
}

// ReplaceRows writes rows from the top of the range with RAW input, so
// cells are stored as the exact strings given, then clears what is left of
// the range below them. Rows that cannot fit fail with ErrRangeFull before
// anything is written.
func (s *Sheets) ReplaceRows(ctx context.Context, rows [][]string) error {
	if err := s.bounds.fits(rows); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrRangeFull, s.rng, err)
	}

	if len(rows) > 0 {
		values := make([][]interface{}, len(rows))
		for i, row := range rows {
			cells := make([]interface{}, len(row))
			for j, c := range row {
				cells[j] = c
			}
			values[i] = cells
		}
		vr := &sheets.ValueRange{MajorDimension: "ROWS", Values: values}
		if _, err := s.svc.Spreadsheets.Values.Update(s.spreadsheetID, s.rng, vr).
			ValueInputOption("RAW").Context(ctx).Do(); err != nil {
			return fmt.Errorf("storage: sheets update %s: %w", s.rng, err)
		}
	}

	tail, ok := s.bounds.below(len(rows))
	if !ok {
		return nil
	}
	if _, err := s.svc.Spreadsheets.Values.Clear(s.spreadsheetID, tail, &sheets.ClearValuesRequest{}).Context(ctx).Do(); err != nil {
		return fmt.Errorf("storage: sheets clear %s: %w", tail, err)
	}
	return nil
}

// Close is a no-op; the HTTP client is shared.
func (s *Sheets) Close() error { return nil }

// a1Range is the parsed form of an A1 range. An empty column means the
// range spans every column; endRow 0 means it has no last row.
type a1Range struct {
	sheet    string
	startCol string
	startRow int
	endCol   string
	endRow   int
}

var a1CellRe = regexp.MustCompile(`^([A-Za-z]{0,3})([0-9]*)$`)

func parseA1(s string) (a1Range, error) {
	var r a1Range
	cells := s
	if i := strings.LastIndex(s, "!"); i >= 0 {
		r.sheet, cells = s[:i], s[i+1:]
	} else if !strings.Contains(s, ":") && !a1CellRe.MatchString(s) {
		r.sheet, cells = s, ""
	}
	r.startRow = 1
	if cells == "" {
		return r, nil
	}

	start, end, hasEnd := strings.Cut(cells, ":")
	col, row, err := parseA1Cell(start)
	if err != nil {
		return a1Range{}, fmt.Errorf("storage: sheet range %q: %w", s, err)
	}
	r.startCol = col
	if row > 0 {
		r.startRow = row
	}
	// A single anchor cell grows with the data written to it.
	if !hasEnd {
		return r, nil
	}
	if r.endCol, r.endRow, err = parseA1Cell(end); err != nil {
		return a1Range{}, fmt.Errorf("storage: sheet range %q: %w", s, err)
	}
	if r.endRow > 0 && r.endRow < r.startRow {
		return a1Range{}, fmt.Errorf("storage: sheet range %q: last row before first", s)
	}
	return r, nil
}

func parseA1Cell(s string) (string, int, error) {
	m := a1CellRe.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil || (m[1] == "" && m[2] == "") {
		return "", 0, fmt.Errorf("invalid cell %q", s)
	}
	row := 0
	if m[2] != "" {
		n, err := strconv.Atoi(m[2])
		if err != nil || n < 1 {
			return "", 0, fmt.Errorf("invalid row in %q", s)
		}
		row = n
	}
	return strings.ToUpper(m[1]), row, nil
}

// colIndex maps a column label to its 1-based index: A=1, Z=26, AA=27.
func colIndex(col string) int {
	n := 0
	for _, c := range col {
		n = n*26 + int(c-'A'+1)
	}
	return n
}

// fits reports an error when rows are taller or wider than the range.
func (r a1Range) fits(rows [][]string) error {
	if r.endRow > 0 {
		if capacity := r.endRow - r.startRow + 1; len(rows) > capacity {
			return fmt.Errorf("%d rows, room for %d", len(rows), capacity)
		}
	}
	if r.startCol != "" && r.endCol != "" {
		width := colIndex(r.endCol) - colIndex(r.startCol) + 1
		for i, row := range rows {
			if len(row) > width {
				return fmt.Errorf("row %d has %d cells, room for %d", i+1, len(row), width)
			}
		}
	}
	return nil
}

// below returns the part of the range under its first n rows, or false
// when nothing is left.
func (r a1Range) below(n int) (string, bool) {
	first := r.startRow + n
	if r.endRow > 0 && first > r.endRow {
		return "", false
	}
	startCol, endCol := r.startCol, r.endCol
	if startCol == "" {
		startCol = "A"
	}
	if endCol == "" {
		endCol = "ZZZ"
	}
	last := ""
	if r.endRow > 0 {
		last = strconv.Itoa(r.endRow)
	}
	prefix := ""
	if r.sheet != "" {
		prefix = r.sheet + "!"
	}
	return fmt.Sprintf("%s%s%d:%s%s", prefix, startCol, first, endCol, last), true
}
