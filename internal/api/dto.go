package api

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/starford/rollbook/internal/form"
	"github.com/starford/rollbook/internal/models"
)

// CreateRecordRequest is the request body for adding a record.
type CreateRecordRequest struct {
	CharacterName string    `json:"character_name" example:"Alice"`
	Date          string    `json:"date" example:"2024-01-01"`
	RollValue     rollValue `json:"roll_value" example:"55"`
	Notes         string    `json:"notes,omitempty" example:"critical"`
}

func (req CreateRecordRequest) input() form.Input {
	return form.Input{
		CharacterName: req.CharacterName,
		Date:          req.Date,
		RollValue:     string(req.RollValue),
		Notes:         req.Notes,
	}
}

// rollValue accepts the roll as a JSON number or string. null and a
// missing field both decode to blank, which validation rejects.
type rollValue string

func (v *rollValue) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		*v = ""
	case len(b) > 0 && b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*v = rollValue(s)
	default:
		var n json.Number
		if err := json.Unmarshal(b, &n); err != nil {
			return fmt.Errorf("roll_value: %w", err)
		}
		*v = rollValue(n.String())
	}
	return nil
}

// RecordListResponse wraps a filtered record listing.
type RecordListResponse struct {
	Records []models.Record `json:"records"`
	// Total counts the session's records before filtering.
	Total int      `json:"total" example:"42"`
	Names []string `json:"names"`
}

// CreateRecordResponse echoes the stored record.
type CreateRecordResponse struct {
	Record models.Record `json:"record"`
	Total  int           `json:"total"`
}
