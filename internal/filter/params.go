package filter

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/starford/rollbook/internal/models"
)

// Query parameter names shared by the web page, the API and the CLI.
const (
	ParamName = "name"
	ParamFrom = "from"
	ParamTo   = "to"
	ParamMin  = "min"
	ParamMax  = "max"
)

// Parse reads criteria from query values. Blank values fall back to def.
// Roll bounds are clamped to the valid range and reversed intervals are
// swapped.
func Parse(values url.Values, def Criteria) (Criteria, error) {
	c := def
	c.Names = nil
	for _, n := range values[ParamName] {
		if n = strings.TrimSpace(n); n != "" && !contains(c.Names, n) {
			c.Names = append(c.Names, n)
		}
	}

	var err error
	if c.From, err = parseDate(values.Get(ParamFrom), def.From); err != nil {
		return Criteria{}, fmt.Errorf("filter: %s: %w", ParamFrom, err)
	}
	if c.To, err = parseDate(values.Get(ParamTo), def.To); err != nil {
		return Criteria{}, fmt.Errorf("filter: %s: %w", ParamTo, err)
	}
	if c.MinRoll, err = parseRoll(values.Get(ParamMin), def.MinRoll); err != nil {
		return Criteria{}, fmt.Errorf("filter: %s: %w", ParamMin, err)
	}
	if c.MaxRoll, err = parseRoll(values.Get(ParamMax), def.MaxRoll); err != nil {
		return Criteria{}, fmt.Errorf("filter: %s: %w", ParamMax, err)
	}

	if c.To.Before(c.From) {
		c.From, c.To = c.To, c.From
	}
	if c.MaxRoll < c.MinRoll {
		c.MinRoll, c.MaxRoll = c.MaxRoll, c.MinRoll
	}
	return c, nil
}

// Values renders c back into query values, for links that keep the
// current filter.
func (c Criteria) Values() url.Values {
	v := url.Values{}
	for _, n := range c.Names {
		v.Add(ParamName, n)
	}
	if !c.From.IsZero() {
		v.Set(ParamFrom, c.From.Format(models.DateLayout))
	}
	if !c.To.IsZero() {
		v.Set(ParamTo, c.To.Format(models.DateLayout))
	}
	v.Set(ParamMin, strconv.Itoa(c.MinRoll))
	v.Set(ParamMax, strconv.Itoa(c.MaxRoll))
	return v
}

func parseDate(s string, def time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return def, nil
	}
	t, err := time.Parse(models.DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("want YYYY-MM-DD, got %q", s)
	}
	return t, nil
}

func parseRoll(s string, def int) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("want an integer, got %q", s)
	}
	return min(max(n, models.MinRoll), models.MaxRoll), nil
}
