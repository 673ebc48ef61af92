package recordstore

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/starford/rollbook/internal/apperr"
	"github.com/starford/rollbook/internal/models"
)

// dateLayouts are tried in order when reading a date cell. A sheet written
// edited by hand may hold dates in its own locale format.
var dateLayouts = []string{
	models.DateLayout,
	"2006/01/02",
	"2006/1/2",
	"2006-1-2",
	"2006-01-02 15:04:05",
	"2006/01/02 15:04:05",
	time.RFC3339,
}

var knownHeaders = []models.Header{models.CanonicalHeader, models.LegacyHeader}

// ParseDate reads a date cell in any accepted layout.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return models.Day(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", s)
}

// decodeRows turns stored rows (header first) into a collection.
func decodeRows(rows [][]string) (*models.Collection, error) {
	rows = trimBlankRows(rows)
	if len(rows) == 0 {
		return models.NewCollection(), nil
	}

	header, index, err := mapHeader(rows[0])
	if err != nil {
		return nil, err
	}

	c := &models.Collection{Header: header}
	for i, row := range rows[1:] {
		if isBlank(row) {
			continue
		}
		rec, err := decodeRow(row, index, header)
		if err != nil {
			var re *apperr.RowError
			if errors.As(err, &re) {
				re.Row = i + 2
			}
			return nil, err
		}
		c.Append(rec)
	}
	return c, nil
}

// mapHeader finds the position of every field in the header row. Labels
// from one known header set must all be present; order is free.
func mapHeader(row []string) (models.Header, [4]int, error) {
	cells := make(map[string]int, len(row))
	for i, c := range row {
		cells[strings.TrimSpace(c)] = i
	}
	for _, h := range knownHeaders {
		var index [4]int
		ok := true
		for field, label := range h {
			pos, found := cells[label]
			if !found {
				ok = false
				break
			}
			index[field] = pos
		}
		if ok {
			return h, index, nil
		}
	}
	return models.Header{}, [4]int{}, &apperr.RowError{
		Row: 1,
		Err: fmt.Errorf("unrecognised header %q", row),
	}
}

func decodeRow(row []string, index [4]int, header models.Header) (models.Record, error) {
	cell := func(field int) string {
		if pos := index[field]; pos < len(row) {
			return strings.TrimSpace(row[pos])
		}
		return ""
	}

	name := cell(models.ColCharacterName)
	if name == "" {
		return models.Record{}, &apperr.RowError{Column: header[models.ColCharacterName], Err: errors.New("empty name")}
	}
	date, err := ParseDate(cell(models.ColDate))
	if err != nil {
		return models.Record{}, &apperr.RowError{Column: header[models.ColDate], Err: err}
	}
	roll, err := parseRoll(cell(models.ColRollValue))
	if err != nil {
		return models.Record{}, &apperr.RowError{Column: header[models.ColRollValue], Err: err}
	}

	notes := ""
	if pos := index[models.ColNotes]; pos < len(row) {
		notes = row[pos]
	}
	return models.Record{CharacterName: name, Date: date, RollValue: roll, Notes: notes}, nil
}

// parseRoll accepts integers and integral decimals such as "55.0".
func parseRoll(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		f, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil || f != float64(int(f)) {
			return 0, fmt.Errorf("not an integer: %q", s)
		}
		n = int(f)
	}
	if n < models.MinRoll || n > models.MaxRoll {
		return 0, fmt.Errorf("out of range [%d,%d]: %d", models.MinRoll, models.MaxRoll, n)
	}
	return n, nil
}

// encodeRows renders the header plus one row per record.
func encodeRows(c *models.Collection) [][]string {
	header := c.Header
	if header == (models.Header{}) {
		header = models.CanonicalHeader
	}
	out := make([][]string, 0, len(c.Records)+1)
	out = append(out, header[:])
	for _, r := range c.Records {
		out = append(out, []string{
			r.CharacterName,
			r.DateString(),
			strconv.Itoa(r.RollValue),
			r.Notes,
		})
	}
	return out
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func trimBlankRows(rows [][]string) [][]string {
	for len(rows) > 0 && isBlank(rows[0]) {
		rows = rows[1:]
	}
	return rows
}
