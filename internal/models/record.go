// Package models defines the domain types for Rollbook.
package models

import (
	"encoding/json"
	"time"
)

// Bounds for a roll value and the earliest date a record may carry.
const (
	MinRoll = 0
	MaxRoll = 100
)

// DateLayout is the canonical string form of a record date.
const DateLayout = "2006-01-02"

// MinDate is the earliest accepted record date.
var MinDate = time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)

// Record is one dice-roll observation.
type Record struct {
	CharacterName string
	Date          time.Time
	RollValue     int
	Notes         string
}

type recordJSON struct {
	CharacterName string `json:"character_name"`
	Date          string `json:"date"`
	RollValue     int    `json:"roll_value"`
	Notes         string `json:"notes"`
}

// MarshalJSON encodes the record with its date as YYYY-MM-DD.
func (r Record) MarshalJSON() ([]byte, error) {
	return json.Marshal(recordJSON{
		CharacterName: r.CharacterName,
		Date:          r.DateString(),
		RollValue:     r.RollValue,
		Notes:         r.Notes,
	})
}

// DateString renders the record date as YYYY-MM-DD.
func (r Record) DateString() string {
	return r.Date.Format(DateLayout)
}

// Day truncates t to midnight UTC of its calendar date.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Header holds the column labels in field order: name, date, roll, notes.
type Header [4]string

// Column positions within a Header.
const (
	ColCharacterName = iota
	ColDate
	ColRollValue
	ColNotes
)

// CanonicalHeader is written to new stores and to exports.
var CanonicalHeader = Header{"character_name", "date", "roll_value", "notes"}

// LegacyHeader is the Japanese header used by sheets created before the
// canonical labels existed.
var LegacyHeader = Header{"キャラクター名", "年月日", "さいころの出目", "備考"}

// Collection is the ordered, append-only set of records of one session.
type Collection struct {
	Header  Header
	Records []Record
}

// NewCollection returns an empty collection with the canonical header.
func NewCollection() *Collection {
	return &Collection{Header: CanonicalHeader}
}

// Append adds r to the end of the collection.
func (c *Collection) Append(r Record) *Collection {
	c.Records = append(c.Records, r)
	return c
}

// Len returns the number of records.
func (c *Collection) Len() int {
	return len(c.Records)
}

// Empty reports whether the collection holds no records.
func (c *Collection) Empty() bool {
	return len(c.Records) == 0
}

// Clone returns a copy that shares no slice storage with c.
func (c *Collection) Clone() *Collection {
	out := &Collection{Header: c.Header}
	if len(c.Records) > 0 {
		out.Records = make([]Record, len(c.Records))
		copy(out.Records, c.Records)
	}
	return out
}
