// Package filter narrows a record list by character name, date interval and
// roll interval.
package filter

import (
	"time"

	"github.com/starford/rollbook/internal/models"
)

// Criteria selects records. Both intervals are inclusive. An empty Names
// set places no restriction on the character.
type Criteria struct {
	Names   []string
	From    time.Time
	To      time.Time
	MinRoll int
	MaxRoll int
}

// Defaults returns criteria that match every record in records: no name
// restriction, the full date span present, and the full roll range.
func Defaults(records []models.Record) Criteria {
	c := Criteria{MinRoll: models.MinRoll, MaxRoll: models.MaxRoll}
	for i, r := range records {
		if i == 0 || r.Date.Before(c.From) {
			c.From = r.Date
		}
		if i == 0 || r.Date.After(c.To) {
			c.To = r.Date
		}
	}
	return c
}

// Match reports whether r satisfies every predicate of c.
func (c Criteria) Match(r models.Record) bool {
	if len(c.Names) > 0 && !contains(c.Names, r.CharacterName) {
		return false
	}
	if r.Date.Before(c.From) || r.Date.After(c.To) {
		return false
	}
	return r.RollValue >= c.MinRoll && r.RollValue <= c.MaxRoll
}

// Apply returns the records matching c in their original order.
func Apply(records []models.Record, c Criteria) []models.Record {
	out := make([]models.Record, 0, len(records))
	for _, r := range records {
		if c.Match(r) {
			out = append(out, r)
		}
	}
	return out
}

// Names lists the distinct character names in first-appearance order.
func Names(records []models.Record) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, r := range records {
		if _, ok := seen[r.CharacterName]; ok {
			continue
		}
		seen[r.CharacterName] = struct{}{}
		out = append(out, r.CharacterName)
	}
	return out
}

// Selected reports whether name is one of the chosen names.
func (c Criteria) Selected(name string) bool {
	return contains(c.Names, name)
}

func contains(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}
