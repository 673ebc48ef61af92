// Package form turns raw New Entry input into a record and commits it to a
// session.
package form

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/rollbook/internal/apperr"
	"github.com/starford/rollbook/internal/models"
	"github.com/starford/rollbook/internal/session"
)

// Field names, shared with the HTML form and the JSON API.
const (
	FieldCharacterName = "character_name"
	FieldDate          = "date"
	FieldRollValue     = "roll_value"
	FieldNotes         = "notes"
)

// Validation messages. The UI translates them by their English text.
const (
	MsgNameRequired = "Character name is required"
	MsgDateRequired = "Date is required"
	MsgDateInvalid  = "Date must be YYYY-MM-DD on or after 2000-01-01"
	MsgRollRequired = "Roll value is required"
	MsgRollInvalid  = "Roll value must be a whole number from 0 to 100"
)

// Input holds the raw field values of one submission.
//
// RollValue must be entered explicitly: a blank field is rejected, while
// an entered 0 is a valid roll.
type Input struct {
	CharacterName string `json:"character_name"`
	Date          string `json:"date"`
	RollValue     string `json:"roll_value"`
	Notes         string `json:"notes"`
}

// Normalize trims the single-line fields.
func (in Input) Normalize() Input {
	in.CharacterName = strings.TrimSpace(in.CharacterName)
	in.Date = strings.TrimSpace(in.Date)
	in.RollValue = strings.TrimSpace(in.RollValue)
	return in
}

// Validate checks presence and range of every field and builds the record.
// It returns a *apperr.ValidationError listing each failing field.
func Validate(in Input) (models.Record, error) {
	in = in.Normalize()
	err := validation.ValidateStruct(&in,
		validation.Field(&in.CharacterName,
			validation.Required.Error(MsgNameRequired)),
		validation.Field(&in.Date,
			validation.Required.Error(MsgDateRequired),
			validation.Date(models.DateLayout).
				Min(models.MinDate).
				Error(MsgDateInvalid).
				RangeError(MsgDateInvalid)),
		validation.Field(&in.RollValue,
			validation.Required.Error(MsgRollRequired),
			validation.By(rollRule)),
	)
	if err != nil {
		var verrs validation.Errors
		if !errors.As(err, &verrs) {
			return models.Record{}, fmt.Errorf("form: validate: %w", err)
		}
		fields := make(map[string]string, len(verrs))
		for name, ferr := range verrs {
			fields[name] = ferr.Error()
		}
		return models.Record{}, &apperr.ValidationError{Fields: fields}
	}

	date, _ := time.Parse(models.DateLayout, in.Date)
	roll, _ := strconv.Atoi(in.RollValue)
	return models.Record{
		CharacterName: in.CharacterName,
		Date:          date,
		RollValue:     roll,
		Notes:         in.Notes,
	}, nil
}

// MissingRequired reports whether any field error is a blank required field.
func MissingRequired(fields map[string]string) bool {
	for _, msg := range fields {
		switch msg {
		case MsgNameRequired, MsgDateRequired, MsgRollRequired:
			return true
		}
	}
	return false
}

func rollRule(value interface{}) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < models.MinRoll || n > models.MaxRoll {
		return errors.New(MsgRollInvalid)
	}
	return nil
}

// Controller commits validated submissions to a session.
type Controller struct {
	logger *slog.Logger
}

// NewController creates a Controller.
func NewController(logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{logger: logger}
}

// Submit validates in, appends the record to sess and persists the session.
// A validation failure leaves sess untouched. A persist failure returns the
// appended record together with an error matching apperr.ErrPersistPartial:
// the record stays in the session but the store did not take it.
func (c *Controller) Submit(ctx context.Context, sess *session.Session, in Input) (models.Record, error) {
	rec, err := Validate(in)
	if err != nil {
		return models.Record{}, err
	}

	sess.Append(rec)
	if err := sess.Persist(ctx); err != nil {
		c.logger.Warn("form: record kept in session only",
			slog.String("session_id", sess.ID()),
			slog.String("error", err.Error()))
		return rec, fmt.Errorf("%w: %w", apperr.ErrPersistPartial, err)
	}

	c.logger.Info("form: record added",
		slog.String("session_id", sess.ID()),
		slog.String("date", rec.DateString()),
		slog.Int("roll_value", rec.RollValue))
	return rec, nil
}
